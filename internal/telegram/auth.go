package telegram

import (
	"context"
	"log/slog"

	"OplatymBot/internal/utils/logger/sl"

	"github.com/go-telegram/bot"
)

const deniedText = "⛔ У вас нет прав для выполнения этой команды."

// isManager checks the sender against the managers and admins lists.
func (opBot *Bot) isManager(userID int64) bool {
	return opBot.cfg.IsManager(userID)
}

// isAdmin checks the sender against the admins list.
func (opBot *Bot) isAdmin(userID int64) bool {
	return opBot.cfg.IsAdmin(userID)
}

// deny answers a privileged command from an unauthorised user. Nothing is
// mutated.
func (opBot *Bot) deny(ctx context.Context, chatID, userID int64, command string) error {
	opBot.metrics.PermissionDenied.WithLabelValues(command).Inc()
	opBot.log.Warn("permission denied",
		slog.Int64("user_id", userID),
		slog.String("command", command))
	return opBot.sendReply(ctx, chatID, deniedText)
}

// denyCallback shows the refusal as a callback alert instead of a message.
func (opBot *Bot) denyCallback(ctx context.Context, callbackID string, userID int64, data string) {
	opBot.metrics.PermissionDenied.WithLabelValues("callback").Inc()
	opBot.log.Warn("permission denied",
		slog.Int64("user_id", userID),
		slog.String("callback", data))
	if _, err := opBot.api.AnswerCallbackQuery(ctx, &bot.AnswerCallbackQueryParams{
		CallbackQueryID: callbackID,
		Text:            deniedText,
		ShowAlert:       true,
	}); err != nil {
		opBot.log.Error("failed to answer callback", sl.Err(err))
	}
}
