package telegram

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"OplatymBot/internal/utils/logger/sl"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

const DefaultWelcomeText = "👋 Добро пожаловать, %s!\n\n" +
	"⚠️ Мы первыми не пишем! Остерегайтесь мошенников, которые выдают себя за менеджеров Oplatym.ru.\n" +
	"Проверить аккаунт можно командой /check @username."

// welcomeTracker remembers the welcomes of the latest join event per chat.
type welcomeTracker struct {
	mu   sync.Mutex
	last map[int64][]int
}

func newWelcomeTracker() *welcomeTracker {
	return &welcomeTracker{last: make(map[int64][]int)}
}

// swap stores ids as the latest welcomes of the chat and returns the previous ones.
func (w *welcomeTracker) swap(chatID int64, ids []int) []int {
	w.mu.Lock()
	defer w.mu.Unlock()
	prev := w.last[chatID]
	w.last[chatID] = ids
	return prev
}

// handleNewMembers greets every human member of a join event.
func (opBot *Bot) handleNewMembers(ctx context.Context, msg *models.Message) {
	op := "telegram.handleNewMembers()"
	log := opBot.log.With(slog.String("op", op), slog.Int64("chat_id", msg.Chat.ID))

	tmpl := opBot.cfg.WelcomeText()
	deleteAfter := opBot.cfg.WelcomeDeleteAfter()

	var posted []int
	for _, member := range msg.NewChatMembers {
		if member.IsBot {
			continue
		}
		sent, err := opBot.api.SendMessage(ctx, &bot.SendMessageParams{
			ChatID: msg.Chat.ID,
			Text:   formatWelcome(tmpl, displayName(member)),
		})
		if err != nil {
			log.Error("failed to send welcome", slog.Int64("user_id", member.ID), sl.Err(err))
			continue
		}
		opBot.metrics.Welcomes.Inc()
		log.Debug("welcome sent", slog.Int64("user_id", member.ID), slog.Int("message_id", sent.ID))

		if deleteAfter > 0 {
			opBot.deleter.schedule(msg.Chat.ID, sent.ID, deleteAfter)
			posted = append(posted, sent.ID)
		}
	}

	if len(posted) > 0 {
		opBot.dropSupersededWelcomes(ctx, msg.Chat.ID, opBot.welcomes.swap(msg.Chat.ID, posted))
	}
}

// dropSupersededWelcomes deletes older welcomes right away once a newer join
// event is greeted. Welcomes whose timer already fired are skipped.
func (opBot *Bot) dropSupersededWelcomes(ctx context.Context, chatID int64, ids []int) {
	for _, id := range ids {
		if !opBot.deleter.cancel(chatID, id) {
			continue
		}
		if _, err := opBot.api.DeleteMessage(ctx, &bot.DeleteMessageParams{
			ChatID:    chatID,
			MessageID: id,
		}); err != nil {
			opBot.log.Debug("superseded welcome not deleted",
				slog.Int64("chat_id", chatID),
				slog.Int("message_id", id),
				sl.Err(err))
		}
	}
}

// formatWelcome substitutes the first %s with the member name. Other verbs
// are left as typed by the admin.
func formatWelcome(tmpl, name string) string {
	if strings.TrimSpace(tmpl) == "" {
		tmpl = DefaultWelcomeText
	}
	return strings.Replace(tmpl, "%s", name, 1)
}

func displayName(u models.User) string {
	if u.Username != "" {
		return "@" + u.Username
	}
	if name := strings.TrimSpace(u.FirstName + " " + u.LastName); name != "" {
		return name
	}
	return "гость"
}
