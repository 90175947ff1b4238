package telegram

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strconv"
	"strings"

	"OplatymBot/internal/utils/logger/sl"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

var errNoTarget = errors.New("no target user")

// defaultOfficialAccounts are the accounts listed in the payment instructions.
var defaultOfficialAccounts = []string{
	"OplatymRU",
	"ByOplatymRu",
	"oplatymManager3",
	"OplatymRu4",
	"oplatym_exchange07",
	"Oplatym_exchange20",
	"CNYExchangeOplatym",
	"CNYExchangeOplatym2",
}

// ─── /ban, /kick ──────────────────────────────────────────────────────────

func (opBot *Bot) handleBan(ctx context.Context, chatID int64, msg *models.Message) error {
	op := "telegram.handleBan()"
	log := opBot.log.With(slog.String("op", op))

	if msg.From == nil || !opBot.isAdmin(msg.From.ID) {
		return opBot.deny(ctx, chatID, senderID(msg), "ban")
	}
	if msg.Chat.Type == models.ChatTypePrivate {
		return opBot.sendReply(ctx, chatID, "⚠️ Команда работает только в группах.")
	}
	target, err := targetUserID(msg)
	if err != nil {
		return opBot.sendReply(ctx, chatID, "⚠️ Использование: ответьте на сообщение командой /ban или /ban <user_id>")
	}

	if _, err := opBot.api.BanChatMember(ctx, &bot.BanChatMemberParams{
		ChatID: chatID,
		UserID: target,
	}); err != nil {
		log.Error("ban failed", slog.Int64("user_id", target), sl.Err(err))
		return opBot.sendReply(ctx, chatID, fmt.Sprintf("❌ Не удалось заблокировать пользователя: %v", err))
	}
	log.Info("user banned",
		slog.Int64("user_id", target),
		slog.Int64("chat_id", chatID),
		slog.Int64("admin_id", msg.From.ID))
	return opBot.sendReply(ctx, chatID, fmt.Sprintf("🚫 Пользователь %d заблокирован.", target))
}

// handleKick removes a member who may join again: ban then unban.
func (opBot *Bot) handleKick(ctx context.Context, chatID int64, msg *models.Message) error {
	op := "telegram.handleKick()"
	log := opBot.log.With(slog.String("op", op))

	if msg.From == nil || !opBot.isAdmin(msg.From.ID) {
		return opBot.deny(ctx, chatID, senderID(msg), "kick")
	}
	if msg.Chat.Type == models.ChatTypePrivate {
		return opBot.sendReply(ctx, chatID, "⚠️ Команда работает только в группах.")
	}
	target, err := targetUserID(msg)
	if err != nil {
		return opBot.sendReply(ctx, chatID, "⚠️ Использование: ответьте на сообщение командой /kick или /kick <user_id>")
	}

	if _, err := opBot.api.BanChatMember(ctx, &bot.BanChatMemberParams{
		ChatID: chatID,
		UserID: target,
	}); err != nil {
		log.Error("kick failed", slog.Int64("user_id", target), sl.Err(err))
		return opBot.sendReply(ctx, chatID, fmt.Sprintf("❌ Не удалось исключить пользователя: %v", err))
	}
	if _, err := opBot.api.UnbanChatMember(ctx, &bot.UnbanChatMemberParams{
		ChatID:       chatID,
		UserID:       target,
		OnlyIfBanned: true,
	}); err != nil {
		log.Error("unban after kick failed", slog.Int64("user_id", target), sl.Err(err))
	}
	log.Info("user kicked",
		slog.Int64("user_id", target),
		slog.Int64("chat_id", chatID),
		slog.Int64("admin_id", msg.From.ID))
	return opBot.sendReply(ctx, chatID, fmt.Sprintf("👢 Пользователь %d исключён.", target))
}

// targetUserID takes the author of the replied-to message, else the
// numeric argument.
func targetUserID(msg *models.Message) (int64, error) {
	if r := msg.ReplyToMessage; r != nil && r.From != nil {
		return r.From.ID, nil
	}
	args := commandArguments(msg)
	if args == "" {
		return 0, errNoTarget
	}
	id, err := strconv.ParseInt(strings.Fields(args)[0], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", errNoTarget, err)
	}
	return id, nil
}

// ─── /check ───────────────────────────────────────────────────────────────

func (opBot *Bot) handleCheck(ctx context.Context, chatID int64, msg *models.Message) error {
	args := strings.Fields(commandArguments(msg))
	if len(args) == 0 {
		return opBot.sendReply(ctx, chatID, "⚠️ Использование: /check @username")
	}
	username := normalizeUsername(args[0])
	if username == "" {
		return opBot.sendReply(ctx, chatID, "⚠️ Использование: /check @username")
	}

	if isOfficial(opBot.cfg.OfficialAccounts(), username) {
		return opBot.sendReply(ctx, chatID,
			fmt.Sprintf("✅ @%s — официальный аккаунт Oplatym.ru.", username))
	}
	return opBot.sendReply(ctx, chatID,
		fmt.Sprintf("⚠️ @%s не является аккаунтом Oplatym.ru!\nМы первыми не пишем. Пожалуйста, остерегайтесь мошенников.", username))
}

func normalizeUsername(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "https://t.me/")
	s = strings.TrimPrefix(s, "t.me/")
	return strings.TrimPrefix(s, "@")
}

// isOfficial compares case-insensitively; Telegram usernames are.
func isOfficial(accounts []string, username string) bool {
	if len(accounts) == 0 {
		accounts = defaultOfficialAccounts
	}
	return slices.ContainsFunc(accounts, func(a string) bool {
		return strings.EqualFold(normalizeUsername(a), username)
	})
}

// ─── /settext ─────────────────────────────────────────────────────────────

func (opBot *Bot) handleSetText(ctx context.Context, chatID int64, msg *models.Message) error {
	op := "telegram.handleSetText()"
	log := opBot.log.With(slog.String("op", op))

	if msg.From == nil || !opBot.isAdmin(msg.From.ID) {
		return opBot.deny(ctx, chatID, senderID(msg), "settext")
	}
	text := commandArguments(msg)
	if text == "" {
		return opBot.sendReply(ctx, chatID, "⚠️ Использование: /settext <текст приветствия>\n%s заменяется именем участника.")
	}
	if err := opBot.cfg.SetWelcomeText(text); err != nil {
		log.Error("failed to save welcome text", sl.Err(err))
		return opBot.sendReply(ctx, chatID, fmt.Sprintf("❌ Не удалось сохранить текст: %v", err))
	}
	log.Info("welcome text updated", slog.Int64("admin_id", msg.From.ID))
	return opBot.sendReply(ctx, chatID, "✅ Текст приветствия обновлён.\n\nПример:\n"+formatWelcome(text, displayName(*msg.From)))
}

// ─── /addadmin ────────────────────────────────────────────────────────────

func (opBot *Bot) handleAddAdmin(ctx context.Context, chatID int64, msg *models.Message) error {
	op := "telegram.handleAddAdmin()"
	log := opBot.log.With(slog.String("op", op))

	if msg.From == nil || !opBot.isAdmin(msg.From.ID) {
		return opBot.deny(ctx, chatID, senderID(msg), "addadmin")
	}
	userID, err := strconv.ParseInt(commandArguments(msg), 10, 64)
	if err != nil {
		return opBot.sendReply(ctx, chatID, "⚠️ Использование: /addadmin <user_id>")
	}

	added, err := opBot.cfg.AddAdmin(userID)
	if err != nil {
		log.Error("failed to add admin", slog.Int64("user_id", userID), sl.Err(err))
		return opBot.sendReply(ctx, chatID, fmt.Sprintf("❌ Не удалось сохранить конфигурацию: %v", err))
	}
	if !added {
		return opBot.sendReply(ctx, chatID, fmt.Sprintf("ℹ️ Пользователь %d уже администратор.", userID))
	}
	log.Info("admin added", slog.Int64("user_id", userID), slog.Int64("by", msg.From.ID))
	return opBot.sendReply(ctx, chatID, fmt.Sprintf("✅ Пользователь %d добавлен в администраторы.", userID))
}

// ─── /reload ──────────────────────────────────────────────────────────────

func (opBot *Bot) handleReload(ctx context.Context, chatID int64, msg *models.Message) error {
	op := "telegram.handleReload()"
	log := opBot.log.With(slog.String("op", op))

	if msg.From == nil || !opBot.isAdmin(msg.From.ID) {
		return opBot.deny(ctx, chatID, senderID(msg), "reload")
	}
	if err := opBot.cfg.Reload(); err != nil {
		log.Error("config reload failed", sl.Err(err))
		return opBot.sendReply(ctx, chatID, fmt.Sprintf("❌ Ошибка чтения конфигурации: %v", err))
	}
	log.Info("config reloaded", slog.Int64("admin_id", msg.From.ID))
	return opBot.sendReply(ctx, chatID, "✅ Конфигурация перечитана.")
}
