package repositories

import (
	"context"
	"fmt"
	"log/slog"

	"OplatymBot/internal/models/domain"
	"OplatymBot/internal/storage"

	"github.com/google/uuid"
)

// AddReview appends a review to the pending list.
func (r *Repository) AddReview(ctx context.Context, authorID int64, username, text string) (domain.Review, error) {
	op := "Repository.AddReview"
	review := domain.Review{
		ID:             uuid.New(),
		AuthorID:       authorID,
		AuthorUsername: username,
		Text:           text,
		CreatedAt:      r.now(),
	}

	var reviews []domain.Review
	err := r.store.Update(ctx, storage.DocReviews, &reviews, func() error {
		reviews = append(reviews, review)
		return nil
	})
	if err != nil {
		return domain.Review{}, fmt.Errorf("%s: %w", op, err)
	}

	r.log.Info("review added",
		slog.Int64("author_id", authorID),
		slog.String("review_id", review.ID.String()))
	return review, nil
}

// ListReviews returns pending reviews in submission order.
func (r *Repository) ListReviews(ctx context.Context) ([]domain.Review, error) {
	op := "Repository.ListReviews"
	var reviews []domain.Review
	if err := r.store.Load(ctx, storage.DocReviews, &reviews); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return reviews, nil
}

// RemoveReviews drops the given reviews. Reviews submitted after the caller
// listed the store stay pending.
func (r *Repository) RemoveReviews(ctx context.Context, ids []uuid.UUID) error {
	op := "Repository.RemoveReviews"
	drop := make(map[uuid.UUID]struct{}, len(ids))
	for _, id := range ids {
		drop[id] = struct{}{}
	}

	var reviews []domain.Review
	err := r.store.Update(ctx, storage.DocReviews, &reviews, func() error {
		kept := make([]domain.Review, 0, len(reviews))
		for _, rv := range reviews {
			if _, ok := drop[rv.ID]; !ok {
				kept = append(kept, rv)
			}
		}
		reviews = kept
		return nil
	})
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}
