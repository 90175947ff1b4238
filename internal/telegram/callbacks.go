package telegram

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"OplatymBot/internal/utils/logger/sl"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

// ─── Callback data format ──────────────────────────────────────────────────
//
// leave_review / cancel_review            customer review menu
// crm_menu|crm_clients|crm_orders|crm_quick|crm_stats|crm_neworder
// crm_client_<clientID>                   client card
// crm_cst_<hold|done|scam>_<clientID>     client status
// crm_reply_<clientID>                    free-text reply
// crm_qrlist_<clientID>                   quick reply picker
// crm_qr_<index>_<clientID>               send quick reply
// crm_order_<orderID>                     order card
// crm_ost_<close|cancel>_<orderID>        order status

const (
	cbLeaveReview  = "leave_review"
	cbCancelReview = "cancel_review"

	cbCRMPrefix = "crm_"
	cbMenu      = "crm_menu"
	cbClients   = "crm_clients"
	cbOrders    = "crm_orders"
	cbQuick     = "crm_quick"
	cbStats     = "crm_stats"
	cbNewOrder  = "crm_neworder"

	cbClientPrefix       = "crm_client_"
	cbClientStatusPrefix = "crm_cst_"
	cbReplyPrefix        = "crm_reply_"
	cbQuickListPrefix    = "crm_qrlist_"
	cbQuickPrefix        = "crm_qr_"
	cbOrderPrefix        = "crm_order_"
	cbOrderStatusPrefix  = "crm_ost_"
)

const callbackTimeout = 30 * time.Second

// handleCallbackQuery dispatches inline keyboard callbacks.
func (opBot *Bot) handleCallbackQuery(ctx context.Context, callback *models.CallbackQuery) {
	op := "telegram.handleCallbackQuery()"
	log := opBot.log.With(slog.String("op", op))

	data := callback.Data
	userID := callback.From.ID

	if strings.HasPrefix(data, cbCRMPrefix) && !opBot.isManager(userID) {
		opBot.denyCallback(ctx, callback.ID, userID, data)
		return
	}

	// Acknowledge the callback immediately
	if _, err := opBot.api.AnswerCallbackQuery(ctx, &bot.AnswerCallbackQueryParams{
		CallbackQueryID: callback.ID,
	}); err != nil {
		log.Error("failed to ack callback", sl.Err(err))
	}

	ctx, cancel := context.WithTimeout(ctx, callbackTimeout)
	defer cancel()

	chatID, messageID := callbackMessage(callback)

	switch {
	case data == cbLeaveReview:
		opBot.sessions.set(userID, AwaitingReview{})
		if err := opBot.editOrSend(ctx, chatID, messageID,
			"✍️ Напишите ваш отзыв одним сообщением. После отправки отзыв будет сохранён.", nil); err != nil {
			log.Error("failed to show review prompt", sl.Err(err))
		}

	case data == cbCancelReview:
		opBot.sessions.clear(userID)
		if err := opBot.editOrSend(ctx, chatID, messageID, "❌ Отзыв отменён.", nil); err != nil {
			log.Error("failed to confirm cancel", sl.Err(err))
		}

	case strings.HasPrefix(data, cbCRMPrefix):
		if err := opBot.handleCRMCallback(ctx, chatID, messageID, userID, data); err != nil {
			log.Error("crm callback failed", slog.String("data", data), sl.Err(err))
		}

	default:
		log.Warn("unknown callback data", slog.String("data", data))
	}
}

// callbackMessage returns the chat and message the pressed keyboard belongs to.
func callbackMessage(callback *models.CallbackQuery) (int64, int) {
	if m := callback.Message.Message; m != nil {
		return m.Chat.ID, m.ID
	}
	if m := callback.Message.InaccessibleMessage; m != nil {
		return m.Chat.ID, 0
	}
	return callback.From.ID, 0
}
