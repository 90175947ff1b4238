// Package pgstore keeps the JSON documents as jsonb rows of one Postgres table.
package pgstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"OplatymBot/internal/config"
	"OplatymBot/internal/migrator"
	"OplatymBot/internal/storage"
	"OplatymBot/internal/utils/logger/sl"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

type Store struct {
	db  *sqlx.DB
	log *slog.Logger
}

var _ storage.DocumentStore = (*Store)(nil)

// New connects to the database and runs migrations.
func New(ctx context.Context, logger *slog.Logger, cfg config.DBConfig) (*Store, error) {
	op := "pgstore.New()"
	log := logger.With(slog.String("op", op))

	dsn := fmt.Sprintf(
		"host=%s port=%s user=%s dbname=%s sslmode=disable password=%s search_path=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Name, cfg.Password, cfg.Schema)

	conn, err := sqlx.ConnectContext(ctx, "postgres", dsn)
	if err != nil {
		log.Error("error connecting to database", sl.Err(err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	log.Debug("sqlx connected to database")

	m := migrator.NewMigrator(conn, log, cfg.Schema)
	if err := m.Run(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &Store{
		db:  conn,
		log: logger.With(slog.String("component", "pgstore")),
	}, nil
}

func (s *Store) Load(ctx context.Context, name string, dst any) error {
	op := "pgstore.Load()"
	var raw []byte
	err := s.db.GetContext(ctx, &raw, `SELECT body FROM documents WHERE name = $1`, name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("%s: %s: %w", op, name, err)
	}
	return storage.Decode(s.log, name, raw, dst)
}

func (s *Store) Save(ctx context.Context, name string, v any) error {
	op := "pgstore.Save()"
	raw, err := storage.Encode(v)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	query := `INSERT INTO documents (name, body, updated_at)
		VALUES ($1, $2, CURRENT_TIMESTAMP)
		ON CONFLICT (name) DO UPDATE
		SET body = EXCLUDED.body, updated_at = EXCLUDED.updated_at`
	if _, err := s.db.ExecContext(ctx, query, name, raw); err != nil {
		return fmt.Errorf("%s: %s: %w", op, name, err)
	}
	return nil
}

// Update locks the document row for the duration of fn.
func (s *Store) Update(ctx context.Context, name string, dst any, fn func() error) (err error) {
	op := "pgstore.Update()"

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%s: begin: %w", op, err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx,
		`INSERT INTO documents (name) VALUES ($1) ON CONFLICT (name) DO NOTHING`, name); err != nil {
		return fmt.Errorf("%s: ensure row: %w", op, err)
	}

	var raw []byte
	if err = tx.GetContext(ctx, &raw,
		`SELECT body FROM documents WHERE name = $1 FOR UPDATE`, name); err != nil {
		return fmt.Errorf("%s: select: %w", op, err)
	}
	if err = storage.Decode(s.log, name, raw, dst); err != nil {
		return err
	}
	if err = fn(); err != nil {
		return err
	}

	body, err := storage.Encode(dst)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if _, err = tx.ExecContext(ctx,
		`UPDATE documents SET body = $2, updated_at = CURRENT_TIMESTAMP WHERE name = $1`,
		name, body); err != nil {
		return fmt.Errorf("%s: update: %w", op, err)
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("%s: commit: %w", op, err)
	}
	return nil
}

// Close closes the connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}
