package telegram

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"OplatymBot/internal/crm"
	"OplatymBot/internal/models/domain"
	"OplatymBot/internal/responder"
	"OplatymBot/internal/utils/logger/sl"

	"github.com/go-telegram/bot/models"
)

// handleText routes a plain text message by the sender's session state.
func (opBot *Bot) handleText(ctx context.Context, msg *models.Message) {
	op := "telegram.handleText()"
	log := opBot.log.With(slog.String("op", op))

	userID := msg.From.ID
	isManager := opBot.isManager(userID)

	switch st := opBot.sessions.get(userID).(type) {
	case AwaitingReview:
		opBot.submitReview(ctx, msg)
		return
	case RepliesTo:
		if isManager {
			opBot.relayReply(ctx, msg, st.ClientID)
			return
		}
	case CreatingOrder:
		if isManager {
			opBot.createOrder(ctx, msg)
			return
		}
	}

	if msg.Chat.Type == models.ChatTypePrivate && !isManager {
		clientID := strconv.FormatInt(userID, 10)
		if _, err := opBot.repo.TouchClient(ctx, clientID, msg.From.Username, msg.Text); err != nil {
			log.Error("failed to record client message", slog.String("client_id", clientID), sl.Err(err))
		}
	}

	keywords, reply := opBot.cfg.ResponderRules()
	if answer := responder.New(keywords, reply).Respond(msg.Text); answer != "" {
		if err := opBot.sendReply(ctx, msg.Chat.ID, answer); err != nil {
			log.Error("failed to send auto reply", sl.Err(err))
			return
		}
		opBot.metrics.AutoReplies.Inc()
	}
}

// submitReview stores the message as the sender's review.
func (opBot *Bot) submitReview(ctx context.Context, msg *models.Message) {
	op := "telegram.submitReview()"
	log := opBot.log.With(slog.String("op", op))

	from := msg.From
	username := from.Username
	if username == "" {
		username = from.FirstName
	}

	review, err := opBot.repo.AddReview(ctx, from.ID, username, msg.Text)
	if err != nil {
		log.Error("failed to store review", slog.Int64("user_id", from.ID), sl.Err(err))
		if err := opBot.sendReply(ctx, msg.Chat.ID, "❌ Не удалось сохранить отзыв, попробуйте ещё раз."); err != nil {
			log.Error("failed to send reply", sl.Err(err))
		}
		return
	}
	opBot.sessions.clear(from.ID)
	opBot.metrics.ReviewsSubmitted.Inc()
	log.Info("review stored", slog.String("review_id", review.ID.String()), slog.Int64("user_id", from.ID))

	if err := opBot.sendReply(ctx, msg.Chat.ID, "Спасибо! Ваш отзыв сохранён и будет отправлен менеджером."); err != nil {
		log.Error("failed to send reply", sl.Err(err))
	}
}

// relayReply forwards the manager's text to the client chat.
func (opBot *Bot) relayReply(ctx context.Context, msg *models.Message, clientID string) {
	op := "telegram.relayReply()"
	log := opBot.log.With(slog.String("op", op), slog.String("client_id", clientID))

	managerID := msg.From.ID
	opBot.sessions.clear(managerID)

	sendErr := opBot.sendToClient(ctx, clientID, msg.Text)
	opBot.crm.RecordReply(ctx, managerID, clientID, domain.ActionReply, sendErr)

	text := fmt.Sprintf("✅ Сообщение отправлено клиенту %s.", clientID)
	if sendErr != nil {
		log.Error("failed to relay reply", sl.Err(sendErr))
		text = fmt.Sprintf("❌ Не удалось отправить сообщение клиенту %s: %v", clientID, sendErr)
	}
	kb := inlineKeyboard(inlineRow(inlineBtn("⬅️ К клиенту", cbClientPrefix+clientID)))
	if err := opBot.sendWithKeyboard(ctx, msg.Chat.ID, text, kb); err != nil {
		log.Error("failed to send reply", sl.Err(err))
	}
}

func (opBot *Bot) sendToClient(ctx context.Context, clientID, text string) error {
	chatID, err := strconv.ParseInt(clientID, 10, 64)
	if err != nil {
		return fmt.Errorf("bad client id %q: %w", clientID, err)
	}
	return opBot.sendReply(ctx, chatID, text)
}

// createOrder parses "@client, item, price" and stores the order.
func (opBot *Bot) createOrder(ctx context.Context, msg *models.Message) {
	op := "telegram.createOrder()"
	log := opBot.log.With(slog.String("op", op))

	managerID := msg.From.ID
	opBot.sessions.clear(managerID)

	id, order, err := opBot.crm.CreateOrder(ctx, managerID, strings.TrimSpace(msg.Text))
	var text string
	switch {
	case errors.Is(err, crm.ErrBadOrderFormat):
		text = crm.OrderUsage
	case err != nil:
		log.Error("failed to create order", sl.Err(err))
		text = fmt.Sprintf("❌ Ошибка создания заказа: %v", err)
	default:
		log.Info("order created", slog.String("order_id", id), slog.Int64("manager_id", managerID))
		text = "✅ Заказ создан\n\n" + formatOrder(id, order)
	}

	kb := inlineKeyboard(inlineRow(inlineBtn("📦 К заказам", cbOrders)))
	if err := opBot.sendWithKeyboard(ctx, msg.Chat.ID, text, kb); err != nil {
		log.Error("failed to send reply", sl.Err(err))
	}
}
