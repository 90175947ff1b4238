package telegram

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"OplatymBot/internal/models/domain"
	"OplatymBot/internal/repositories"

	"github.com/go-telegram/bot/models"
)

const (
	crmMenuText = "🗂 CRM-панель менеджера"
	// keeps the keyboard under Telegram's button limits
	maxListButtons = 40
	maxLabelRunes  = 40
)

var clientStatusCodes = map[string]domain.ClientStatus{
	"hold": domain.ClientOnHold,
	"done": domain.ClientDone,
	"scam": domain.ClientScam,
}

var orderStatusCodes = map[string]domain.OrderStatus{
	"close":  domain.OrderClosed,
	"cancel": domain.OrderCancelled,
}

func crmMenuKeyboard() *models.InlineKeyboardMarkup {
	return inlineKeyboard(
		inlineRow(inlineBtn("👥 Клиенты", cbClients), inlineBtn("📦 Заказы", cbOrders)),
		inlineRow(inlineBtn("⚡ Быстрые ответы", cbQuick), inlineBtn("📊 Статистика", cbStats)),
	)
}

func backRow(data string) []models.InlineKeyboardButton {
	return inlineRow(inlineBtn("⬅️ Назад", data))
}

// handleCRMCallback renders CRM screens in place of the pressed menu message.
func (opBot *Bot) handleCRMCallback(ctx context.Context, chatID int64, messageID int, managerID int64, data string) error {
	text, kb, err := opBot.crmScreen(ctx, managerID, data)
	if err != nil {
		text = fmt.Sprintf("❌ Ошибка: %v", err)
		kb = inlineKeyboard(backRow(cbMenu))
		if errors.Is(err, repositories.ErrNotFound) {
			text = "❌ Запись не найдена."
		}
	}
	if sendErr := opBot.editOrSend(ctx, chatID, messageID, text, kb); sendErr != nil {
		return errors.Join(err, sendErr)
	}
	return err
}

func (opBot *Bot) crmScreen(ctx context.Context, managerID int64, data string) (string, *models.InlineKeyboardMarkup, error) {
	switch {
	case data == cbMenu:
		return crmMenuText, crmMenuKeyboard(), nil
	case data == cbClients:
		return opBot.clientsScreen(ctx)
	case data == cbOrders:
		return opBot.ordersScreen(ctx)
	case data == cbQuick:
		return quickRepliesText(opBot.cfg.QuickReplies()), inlineKeyboard(backRow(cbMenu)), nil
	case data == cbStats:
		return opBot.statsScreen(ctx)
	case data == cbNewOrder:
		opBot.sessions.set(managerID, CreatingOrder{})
		return "📝 Введите заказ в формате: @клиент, товар, цена\nНапример: @alice, VPN, 500\n\n/cancel — отмена",
			nil, nil

	case strings.HasPrefix(data, cbClientPrefix):
		return opBot.clientScreen(ctx, strings.TrimPrefix(data, cbClientPrefix), "")
	case strings.HasPrefix(data, cbReplyPrefix):
		clientID := strings.TrimPrefix(data, cbReplyPrefix)
		opBot.sessions.set(managerID, RepliesTo{ClientID: clientID})
		return fmt.Sprintf("✉️ Введите сообщение для клиента %s.\n\n/cancel — отмена", clientID), nil, nil
	case strings.HasPrefix(data, cbQuickListPrefix):
		return opBot.quickPickerScreen(strings.TrimPrefix(data, cbQuickListPrefix))
	case strings.HasPrefix(data, cbQuickPrefix):
		return opBot.sendQuickReply(ctx, managerID, strings.TrimPrefix(data, cbQuickPrefix))
	case strings.HasPrefix(data, cbClientStatusPrefix):
		code, clientID, ok := splitCode(strings.TrimPrefix(data, cbClientStatusPrefix))
		status, known := clientStatusCodes[code]
		if !ok || !known {
			return "", nil, fmt.Errorf("bad callback %q", data)
		}
		if _, err := opBot.crm.SetClientStatus(ctx, managerID, clientID, status); err != nil {
			return "", nil, err
		}
		return opBot.clientScreen(ctx, clientID, "✅ Статус обновлён.")

	case strings.HasPrefix(data, cbOrderPrefix):
		return opBot.orderScreen(ctx, strings.TrimPrefix(data, cbOrderPrefix), "")
	case strings.HasPrefix(data, cbOrderStatusPrefix):
		code, orderID, ok := splitCode(strings.TrimPrefix(data, cbOrderStatusPrefix))
		status, known := orderStatusCodes[code]
		if !ok || !known {
			return "", nil, fmt.Errorf("bad callback %q", data)
		}
		if _, err := opBot.crm.SetOrderStatus(ctx, managerID, orderID, status); err != nil {
			return "", nil, err
		}
		return opBot.orderScreen(ctx, orderID, "✅ Статус обновлён.")
	}
	return "", nil, fmt.Errorf("unknown callback %q", data)
}

// ─── Clients ──────────────────────────────────────────────────────────────

func (opBot *Bot) clientsScreen(ctx context.Context) (string, *models.InlineKeyboardMarkup, error) {
	clients, err := opBot.repo.ListClients(ctx)
	if err != nil {
		return "", nil, err
	}
	if len(clients) == 0 {
		return "👥 Клиентов пока нет.", inlineKeyboard(backRow(cbMenu)), nil
	}

	ids := make([]string, 0, len(clients))
	for id := range clients {
		ids = append(ids, id)
	}
	// most recent first
	slices.SortFunc(ids, func(a, b string) int {
		if c := clients[b].UpdatedAt.Compare(clients[a].UpdatedAt); c != 0 {
			return c
		}
		return strings.Compare(a, b)
	})

	rows := make([][]models.InlineKeyboardButton, 0, min(len(ids), maxListButtons)+1)
	for _, id := range ids[:min(len(ids), maxListButtons)] {
		c := clients[id]
		label := fmt.Sprintf("%s %s", clientStatusEmoji(c.Status), clientLabel(id, c))
		rows = append(rows, inlineRow(inlineBtn(truncate(label, maxLabelRunes), cbClientPrefix+id)))
	}
	rows = append(rows, backRow(cbMenu))
	return fmt.Sprintf("👥 Клиенты (%d):", len(clients)), inlineKeyboard(rows...), nil
}

func (opBot *Bot) clientScreen(ctx context.Context, clientID, notice string) (string, *models.InlineKeyboardMarkup, error) {
	c, err := opBot.repo.GetClient(ctx, clientID)
	if errors.Is(err, repositories.ErrNotFound) {
		// a client can be addressed before it ever wrote to the bot
		c, err = domain.Client{Status: domain.ClientInProgress}, nil
	}
	if err != nil {
		return "", nil, err
	}

	var b strings.Builder
	if notice != "" {
		b.WriteString(notice + "\n\n")
	}
	fmt.Fprintf(&b, "👤 Клиент %s\n", clientLabel(clientID, c))
	fmt.Fprintf(&b, "Статус: %s %s\n", clientStatusEmoji(c.Status), clientStatusTitle(c.Status))
	if c.LastMessage != "" {
		fmt.Fprintf(&b, "Последнее сообщение: %s\n", truncate(c.LastMessage, 500))
	}
	if !c.UpdatedAt.IsZero() {
		fmt.Fprintf(&b, "Обновлён: %s", c.UpdatedAt.Format("02.01.2006 15:04"))
	}

	kb := inlineKeyboard(
		inlineRow(
			inlineBtn("✉️ Ответить", cbReplyPrefix+clientID),
			inlineBtn("⚡ Быстрый ответ", cbQuickListPrefix+clientID),
		),
		inlineRow(
			inlineBtn("⏸ Ожидание", cbClientStatusPrefix+"hold_"+clientID),
			inlineBtn("✅ Готово", cbClientStatusPrefix+"done_"+clientID),
			inlineBtn("🚫 Скам", cbClientStatusPrefix+"scam_"+clientID),
		),
		backRow(cbClients),
	)
	return strings.TrimRight(b.String(), "\n"), kb, nil
}

func (opBot *Bot) quickPickerScreen(clientID string) (string, *models.InlineKeyboardMarkup, error) {
	replies := opBot.cfg.QuickReplies()
	if len(replies) == 0 {
		return "⚡ Быстрые ответы не настроены.", inlineKeyboard(backRow(cbClientPrefix + clientID)), nil
	}
	rows := make([][]models.InlineKeyboardButton, 0, len(replies)+1)
	for i, r := range replies {
		rows = append(rows, inlineRow(inlineBtn(
			truncate(r, maxLabelRunes),
			fmt.Sprintf("%s%d_%s", cbQuickPrefix, i, clientID),
		)))
	}
	rows = append(rows, backRow(cbClientPrefix+clientID))
	return fmt.Sprintf("⚡ Выберите ответ для клиента %s:", clientID), inlineKeyboard(rows...), nil
}

// sendQuickReply sends template <index> to the client right away.
func (opBot *Bot) sendQuickReply(ctx context.Context, managerID int64, rest string) (string, *models.InlineKeyboardMarkup, error) {
	idxStr, clientID, ok := splitCode(rest)
	idx, err := strconv.Atoi(idxStr)
	replies := opBot.cfg.QuickReplies()
	if !ok || err != nil || idx < 0 || idx >= len(replies) {
		return "", nil, fmt.Errorf("bad quick reply %q", rest)
	}

	sendErr := opBot.sendToClient(ctx, clientID, replies[idx])
	opBot.crm.RecordReply(ctx, managerID, clientID, domain.ActionQuickReply, sendErr)
	if sendErr != nil {
		return opBot.clientScreen(ctx, clientID, fmt.Sprintf("❌ Не удалось отправить: %v", sendErr))
	}
	return opBot.clientScreen(ctx, clientID, "✅ Быстрый ответ отправлен.")
}

// ─── Orders ───────────────────────────────────────────────────────────────

func (opBot *Bot) ordersScreen(ctx context.Context) (string, *models.InlineKeyboardMarkup, error) {
	orders, err := opBot.repo.ListOrders(ctx)
	if err != nil {
		return "", nil, err
	}

	ids := make([]string, 0, len(orders))
	for id := range orders {
		ids = append(ids, id)
	}
	// newest (highest id) first
	slices.SortFunc(ids, func(a, b string) int {
		na, errA := strconv.Atoi(a)
		nb, errB := strconv.Atoi(b)
		if errA != nil || errB != nil {
			return strings.Compare(b, a)
		}
		return cmp.Compare(nb, na)
	})

	rows := make([][]models.InlineKeyboardButton, 0, min(len(ids), maxListButtons)+2)
	for _, id := range ids[:min(len(ids), maxListButtons)] {
		o := orders[id]
		label := fmt.Sprintf("%s #%s %s · %s", orderStatusEmoji(o.Status), id, o.Client, o.Item)
		rows = append(rows, inlineRow(inlineBtn(truncate(label, maxLabelRunes), cbOrderPrefix+id)))
	}
	rows = append(rows, inlineRow(inlineBtn("➕ Новый заказ", cbNewOrder)), backRow(cbMenu))

	text := fmt.Sprintf("📦 Заказы (%d):", len(orders))
	if len(orders) == 0 {
		text = "📦 Заказов пока нет."
	}
	return text, inlineKeyboard(rows...), nil
}

func (opBot *Bot) orderScreen(ctx context.Context, orderID, notice string) (string, *models.InlineKeyboardMarkup, error) {
	o, err := opBot.repo.GetOrder(ctx, orderID)
	if err != nil {
		return "", nil, err
	}
	text := formatOrder(orderID, o)
	if notice != "" {
		text = notice + "\n\n" + text
	}

	rows := [][]models.InlineKeyboardButton{}
	if o.Status == domain.OrderAwaitingPayment {
		rows = append(rows, inlineRow(
			inlineBtn("✅ Закрыть", cbOrderStatusPrefix+"close_"+orderID),
			inlineBtn("❌ Отменить", cbOrderStatusPrefix+"cancel_"+orderID),
		))
	}
	rows = append(rows, backRow(cbOrders))
	return text, inlineKeyboard(rows...), nil
}

func formatOrder(id string, o domain.Order) string {
	return fmt.Sprintf("📦 Заказ #%s\nКлиент: @%s\nТовар: %s\nЦена: %s\nСтатус: %s %s",
		id, o.Client, o.Item, o.Price, orderStatusEmoji(o.Status), orderStatusTitle(o.Status))
}

// ─── Quick replies & stats ────────────────────────────────────────────────

func quickRepliesText(replies []string) string {
	if len(replies) == 0 {
		return "⚡ Быстрые ответы не настроены."
	}
	var b strings.Builder
	b.WriteString("⚡ Быстрые ответы:\n")
	for i, r := range replies {
		fmt.Fprintf(&b, "\n%d. %s", i+1, r)
	}
	b.WriteString("\n\nОтправить ответ клиенту можно из карточки клиента.")
	return b.String()
}

func (opBot *Bot) statsScreen(ctx context.Context) (string, *models.InlineKeyboardMarkup, error) {
	stats, fresh, err := opBot.crm.Stats(ctx)
	if err != nil {
		return "", nil, err
	}
	kb := inlineKeyboard(backRow(cbMenu))
	if len(stats) == 0 {
		return "📊 Статистики пока нет.", kb, nil
	}

	ids := make([]string, 0, len(stats))
	for id := range stats {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	var b strings.Builder
	if !fresh {
		b.WriteString("⚠️ Журнал недоступен, показана сохранённая статистика.\n\n")
	}
	b.WriteString("📊 Статистика менеджеров:\n")
	for _, id := range ids {
		s := stats[id]
		fmt.Fprintf(&b, "\n👤 %s — клиенты: %d, заказы: %d, ошибки: %d", id, s.Clients, s.Orders, s.Errors)
	}
	return b.String(), kb, nil
}

// ─── Helpers ──────────────────────────────────────────────────────────────

// splitCode splits "<code>_<id>" at the first underscore.
func splitCode(rest string) (string, string, bool) {
	code, id, ok := strings.Cut(rest, "_")
	if !ok || code == "" || id == "" {
		return "", "", false
	}
	return code, id, true
}

func clientLabel(id string, c domain.Client) string {
	if c.Username != "" {
		return fmt.Sprintf("@%s (%s)", c.Username, id)
	}
	return id
}

func clientStatusEmoji(s domain.ClientStatus) string {
	switch s {
	case domain.ClientOnHold:
		return "⏸"
	case domain.ClientDone:
		return "✅"
	case domain.ClientScam:
		return "🚫"
	default:
		return "🟢"
	}
}

func clientStatusTitle(s domain.ClientStatus) string {
	switch s {
	case domain.ClientOnHold:
		return "ожидание"
	case domain.ClientDone:
		return "завершён"
	case domain.ClientScam:
		return "мошенник"
	default:
		return "в работе"
	}
}

func orderStatusEmoji(s domain.OrderStatus) string {
	switch s {
	case domain.OrderClosed:
		return "✅"
	case domain.OrderCancelled:
		return "❌"
	default:
		return "⏳"
	}
}

func orderStatusTitle(s domain.OrderStatus) string {
	switch s {
	case domain.OrderClosed:
		return "закрыт"
	case domain.OrderCancelled:
		return "отменён"
	default:
		return "ожидает оплаты"
	}
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
