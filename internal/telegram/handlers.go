package telegram

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"OplatymBot/internal/broadcast"
	"OplatymBot/internal/utils/logger/sl"

	"github.com/go-telegram/bot/models"
)

// ─── Command dispatcher ────────────────────────────────────────────────────

var knownCommands = map[string]bool{
	"start": true, "help": true, "id": true,
	"end": true, "konec": true, "конец": true,
	"manager": true, "askreview": true, "cancel": true,
	"ban": true, "kick": true, "check": true,
	"settext": true, "addadmin": true, "reload": true,
}

// commandHandler dispatches bot commands.
func (opBot *Bot) commandHandler(ctx context.Context, msg *models.Message) error {
	chatID := msg.Chat.ID
	cmd, _ := parseCommand(msg.Text)

	// A command ends the manager input modes. A pending review survives
	// everything but /cancel.
	if msg.From != nil {
		switch opBot.sessions.get(msg.From.ID).(type) {
		case RepliesTo, CreatingOrder:
			opBot.sessions.clear(msg.From.ID)
		case AwaitingReview:
			if cmd == "cancel" {
				opBot.sessions.clear(msg.From.ID)
			}
		}
	}

	switch cmd {
	case "start", "help":
		return opBot.handleStart(ctx, chatID, msg)
	case "id":
		return opBot.handleID(ctx, chatID)
	case "end", "konec", "конец":
		return opBot.handleEnd(ctx, chatID, msg)
	case "manager":
		return opBot.handleManager(ctx, chatID, msg)
	case "askreview":
		return opBot.handleAskReview(ctx, chatID, msg)
	case "cancel":
		return opBot.sendReply(ctx, chatID, "↩️ Действие отменено.")
	case "ban":
		return opBot.handleBan(ctx, chatID, msg)
	case "kick":
		return opBot.handleKick(ctx, chatID, msg)
	case "check":
		return opBot.handleCheck(ctx, chatID, msg)
	case "settext":
		return opBot.handleSetText(ctx, chatID, msg)
	case "addadmin":
		return opBot.handleAddAdmin(ctx, chatID, msg)
	case "reload":
		return opBot.handleReload(ctx, chatID, msg)
	default:
		// group chats carry commands meant for other bots
		if msg.Chat.Type != models.ChatTypePrivate {
			return nil
		}
		return opBot.sendReply(ctx, chatID,
			fmt.Sprintf("❓ Неизвестная команда: /%s\nИспользуйте /start для списка команд.", cmd))
	}
}

// ─── /start ───────────────────────────────────────────────────────────────

func (opBot *Bot) handleStart(ctx context.Context, chatID int64, msg *models.Message) error {
	text := "👋 Добро пожаловать! Я бот Oplatym.ru.\n\n" +
		"Команды:\n" +
		"/id — получить chat_id\n" +
		"/check @username — проверить, наш ли это аккаунт"

	if msg.From != nil && opBot.isManager(msg.From.ID) {
		text += "\n\nДля менеджеров:\n" +
			"/manager — CRM-панель\n" +
			"/askreview <user_id> — попросить клиента оставить отзыв\n" +
			"/конец (/end) — отправить накопленные отзывы в общий чат\n" +
			"/cancel — отменить текущее действие"
	}
	if msg.From != nil && opBot.isAdmin(msg.From.ID) {
		text += "\n\nДля администраторов:\n" +
			"/ban, /kick — ответом на сообщение или с user_id\n" +
			"/settext <текст> — приветствие (%s — имя участника)\n" +
			"/addadmin <user_id> — добавить администратора\n" +
			"/reload — перечитать конфигурацию"
	}
	return opBot.sendReply(ctx, chatID, text)
}

// ─── /id ──────────────────────────────────────────────────────────────────

func (opBot *Bot) handleID(ctx context.Context, chatID int64) error {
	return opBot.sendReply(ctx, chatID, fmt.Sprintf("Chat ID: %d", chatID))
}

// ─── /end ─────────────────────────────────────────────────────────────────

func (opBot *Bot) handleEnd(ctx context.Context, chatID int64, msg *models.Message) error {
	op := "telegram.handleEnd()"
	log := opBot.log.With(slog.String("op", op))

	if msg.From == nil || !opBot.isManager(msg.From.ID) {
		return opBot.deny(ctx, chatID, senderID(msg), "end")
	}

	res, err := opBot.publisher.Publish(ctx)
	switch {
	case errors.Is(err, broadcast.ErrNoReviews):
		return opBot.sendReply(ctx, chatID, "ℹ️ Отзывов нет.")
	case errors.Is(err, broadcast.ErrNotCleared):
		log.Error("reviews published but not cleared", sl.Err(err))
		return opBot.sendReply(ctx, chatID, fmt.Sprintf(
			"⚠️ Отзывы отправлены (сообщений: %d), но буфер не очищен: %v\nПовторный /end отправит их ещё раз.",
			res.Chunks, err))
	case err != nil:
		log.Error("review broadcast failed", sl.Err(err))
		text := fmt.Sprintf("❌ Ошибка при отправке отзывов: %v", err)
		if res.Chunks > 0 {
			text += fmt.Sprintf("\nОтправлено частей: %d. Отзывы сохранены.", res.Chunks)
		}
		return opBot.sendReply(ctx, chatID, text)
	}

	log.Info("reviews broadcast by manager",
		slog.Int64("manager_id", msg.From.ID),
		slog.Int("reviews", res.Reviews))
	return opBot.sendReply(ctx, chatID,
		fmt.Sprintf("✅ Все отзывы отправлены и буфер очищен.\nОтзывов: %d, сообщений: %d.", res.Reviews, res.Chunks))
}

// ─── /askreview ───────────────────────────────────────────────────────────

func (opBot *Bot) handleAskReview(ctx context.Context, chatID int64, msg *models.Message) error {
	op := "telegram.handleAskReview()"
	log := opBot.log.With(slog.String("op", op))

	if msg.From == nil || !opBot.isManager(msg.From.ID) {
		return opBot.deny(ctx, chatID, senderID(msg), "askreview")
	}
	userID, err := strconv.ParseInt(commandArguments(msg), 10, 64)
	if err != nil {
		return opBot.sendReply(ctx, chatID, "⚠️ Использование: /askreview <user_id>")
	}

	if err := opBot.sendReviewMenu(ctx, userID); err != nil {
		log.Error("failed to send review menu", slog.Int64("user_id", userID), sl.Err(err))
		return opBot.sendReply(ctx, chatID,
			fmt.Sprintf("❌ Не удалось отправить меню пользователю %d: %v", userID, err))
	}
	log.Info("review menu sent", slog.Int64("user_id", userID))
	return opBot.sendReply(ctx, chatID, fmt.Sprintf("✅ Меню отзыва отправлено пользователю %d.", userID))
}

// sendReviewMenu asks a customer for a review after a purchase.
func (opBot *Bot) sendReviewMenu(ctx context.Context, userID int64) error {
	kb := inlineKeyboard(
		inlineRow(inlineBtn("⭐ Оставить отзыв", cbLeaveReview)),
		inlineRow(inlineBtn("❌ Отмена", cbCancelReview)),
	)
	return opBot.sendWithKeyboard(ctx, userID, "Спасибо за покупку! Хотите оставить отзыв?", kb)
}

// ─── /manager ─────────────────────────────────────────────────────────────

func (opBot *Bot) handleManager(ctx context.Context, chatID int64, msg *models.Message) error {
	if msg.From == nil || !opBot.isManager(msg.From.ID) {
		return opBot.deny(ctx, chatID, senderID(msg), "manager")
	}
	return opBot.sendWithKeyboard(ctx, chatID, crmMenuText, crmMenuKeyboard())
}

func senderID(msg *models.Message) int64 {
	if msg == nil || msg.From == nil {
		return 0
	}
	return msg.From.ID
}
