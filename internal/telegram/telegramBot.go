package telegram

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"
	"unicode"

	"OplatymBot/internal/broadcast"
	"OplatymBot/internal/config"
	"OplatymBot/internal/crm"
	"OplatymBot/internal/metrics"
	"OplatymBot/internal/repositories"
	"OplatymBot/internal/utils/logger/sl"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

const (
	ModePolling = "polling"
	ModeWebhook = "webhook"
)

const getMeTimeout = 10 * time.Second

var allowedUpdates = bot.AllowedUpdates{
	"message",
	"callback_query",
}

// botAPI is the part of *bot.Bot the handlers call.
type botAPI interface {
	SendMessage(ctx context.Context, params *bot.SendMessageParams) (*models.Message, error)
	EditMessageText(ctx context.Context, params *bot.EditMessageTextParams) (*models.Message, error)
	DeleteMessage(ctx context.Context, params *bot.DeleteMessageParams) (bool, error)
	BanChatMember(ctx context.Context, params *bot.BanChatMemberParams) (bool, error)
	UnbanChatMember(ctx context.Context, params *bot.UnbanChatMemberParams) (bool, error)
	AnswerCallbackQuery(ctx context.Context, params *bot.AnswerCallbackQueryParams) (bool, error)
}

// Bot is the Telegram front end of the Oplatym support bot.
type Bot struct {
	b         *bot.Bot
	api       botAPI
	cfg       *config.Config
	repo      *repositories.Repository
	crm       *crm.Service
	username  string
	publisher *broadcast.Service
	metrics   *metrics.Metrics
	sessions  *sessionStore
	deleter   *deleter
	welcomes  *welcomeTracker
	ctx       context.Context
	cancel    context.CancelFunc
	log       *slog.Logger
}

// New creates the bot client and looks up its username. Updates are not
// received until Start.
func New(
	logger *slog.Logger,
	cfg *config.Config,
	repo *repositories.Repository,
	crmSvc *crm.Service,
	m *metrics.Metrics,
) (*Bot, error) {
	op := "telegram.New()"
	log := logger.With(slog.String("op", op))

	opBot := newBot(logger, cfg, repo, crmSvc, m)

	opts := []bot.Option{
		bot.WithDefaultHandler(opBot.defaultHandler),
		bot.WithAllowedUpdates(allowedUpdates),
		bot.WithErrorsHandler(func(err error) {
			opBot.log.Error("telegram api error", sl.Err(err))
		}),
	}
	if cfg.BotConfig.Workers > 0 {
		opts = append(opts, bot.WithWorkers(cfg.BotConfig.Workers))
	}
	if cfg.BotConfig.WebhookSecret != "" {
		opts = append(opts, bot.WithWebhookSecretToken(cfg.BotConfig.WebhookSecret))
	}

	b, err := bot.New(cfg.BotConfig.TgbotApiToken, opts...)
	if err != nil {
		log.Error("error auth telegram bot", sl.Err(err))
		opBot.cancel()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	opBot.b = b
	opBot.attach(b)

	meCtx, meCancel := context.WithTimeout(opBot.ctx, getMeTimeout)
	defer meCancel()
	if me, err := b.GetMe(meCtx); err != nil {
		log.Warn("cannot get bot username, @mentions are not checked", sl.Err(err))
	} else {
		opBot.username = me.Username
	}

	log.Info("telegram bot created", slog.String("mode", opBot.mode()))
	return opBot, nil
}

// newBot builds everything that does not need the API client.
func newBot(
	logger *slog.Logger,
	cfg *config.Config,
	repo *repositories.Repository,
	crmSvc *crm.Service,
	m *metrics.Metrics,
) *Bot {
	ctx, cancel := context.WithCancel(context.Background())
	return &Bot{
		cfg:      cfg,
		repo:     repo,
		crm:      crmSvc,
		metrics:  m,
		sessions: newSessionStore(cfg.BotConfig.SessionTTL),
		welcomes: newWelcomeTracker(),
		ctx:      ctx,
		cancel:   cancel,
		log:      logger.With(slog.String("component", "telegram")),
	}
}

// attach wires the components that talk to Telegram.
func (opBot *Bot) attach(api botAPI) {
	opBot.api = api
	opBot.deleter = newDeleter(api, opBot.log)

	limit := opBot.cfg.BotConfig.BroadcastLimit
	if limit <= 0 {
		limit = broadcast.DefaultLimit
	}
	opBot.publisher = broadcast.New(
		opBot.log,
		opBot.repo,
		api,
		opBot.cfg.PublicChatID,
		limit,
		opBot.cfg.BotConfig.BroadcastInterval,
		opBot.metrics,
	)
}

// Publisher returns the review broadcaster so it can also run on a schedule.
func (opBot *Bot) Publisher() *broadcast.Service {
	return opBot.publisher
}

func (opBot *Bot) mode() string {
	if strings.EqualFold(opBot.cfg.BotConfig.Mode, ModeWebhook) {
		return ModeWebhook
	}
	return ModePolling
}

// WebhookHandler returns the update endpoint in webhook mode and nil otherwise.
func (opBot *Bot) WebhookHandler() http.Handler {
	if opBot.mode() != ModeWebhook {
		return nil
	}
	return opBot.b.WebhookHandler()
}

// Start registers the update source and blocks until Shutdown.
func (opBot *Bot) Start() error {
	op := "telegram.Start()"
	log := opBot.log.With(slog.String("op", op))

	if opBot.mode() == ModeWebhook {
		if opBot.cfg.BotConfig.WebhookURL == "" {
			return fmt.Errorf("%s: webhook mode without webhookUrl", op)
		}
		if _, err := opBot.b.SetWebhook(opBot.ctx, &bot.SetWebhookParams{
			URL:                opBot.cfg.BotConfig.WebhookURL,
			SecretToken:        opBot.cfg.BotConfig.WebhookSecret,
			AllowedUpdates:     allowedUpdates,
			DropPendingUpdates: true,
		}); err != nil {
			return fmt.Errorf("%s: set webhook: %w", op, err)
		}
		log.Info("webhook registered, waiting for updates")
		opBot.b.StartWebhook(opBot.ctx)
		log.Info("telegram bot webhook stopped")
		return nil
	}

	if _, err := opBot.b.DeleteWebhook(opBot.ctx, &bot.DeleteWebhookParams{
		DropPendingUpdates: true,
	}); err != nil {
		log.Warn("cannot delete webhook before polling", sl.Err(err))
	}
	log.Info("starting telegram bot polling")
	opBot.b.Start(opBot.ctx)
	log.Info("telegram bot polling stopped")
	return nil
}

// defaultHandler is the single entry point for all updates from go-telegram/bot.
func (opBot *Bot) defaultHandler(ctx context.Context, _ *bot.Bot, update *models.Update) {
	op := "telegram.defaultHandler()"
	log := opBot.log.With(slog.String("op", op))

	if msg := update.Message; msg != nil && msg.From != nil {
		log.Info("input message",
			slog.String("user_id", strconv.FormatInt(msg.From.ID, 10)),
			slog.String("user_name", msg.From.Username),
			slog.Int64("chat_id", msg.Chat.ID),
			slog.String("text", msg.Text),
		)
	}
	if cq := update.CallbackQuery; cq != nil {
		log.Info("input callback",
			slog.String("user_id", strconv.FormatInt(cq.From.ID, 10)),
			slog.String("user_name", cq.From.Username),
			slog.String("data", cq.Data),
		)
	}

	switch {
	case update.Message != nil && len(update.Message.NewChatMembers) > 0:
		opBot.metrics.Updates.WithLabelValues("new_members").Inc()
		opBot.handleNewMembers(ctx, update.Message)
	case update.Message != nil && opBot.isForeignCommand(update.Message):
		opBot.metrics.Updates.WithLabelValues("foreign_command").Inc()
	case update.Message != nil && opBot.isCommand(update.Message):
		opBot.metrics.Updates.WithLabelValues("command").Inc()
		if err := opBot.commandHandler(ctx, update.Message); err != nil {
			log.Error("command handler error", sl.Err(err))
		}
	case update.CallbackQuery != nil:
		opBot.metrics.Updates.WithLabelValues("callback").Inc()
		opBot.handleCallbackQuery(ctx, update.CallbackQuery)
	case update.Message != nil && update.Message.From != nil && update.Message.Text != "":
		opBot.metrics.Updates.WithLabelValues("text").Inc()
		opBot.handleText(ctx, update.Message)
	default:
		opBot.metrics.Updates.WithLabelValues("other").Inc()
	}
}

// isCommand reports whether msg is a command for this bot. Telegram marks
// only latin commands with an entity, so a leading slash counts for the
// known commands as well; any other slash text stays plain input.
func (opBot *Bot) isCommand(msg *models.Message) bool {
	if msg == nil {
		return false
	}
	cmd, mention := parseCommand(msg.Text)
	if cmd == "" || opBot.isForeignMention(mention) {
		return false
	}
	for _, e := range msg.Entities {
		if e.Type == models.MessageEntityTypeBotCommand && e.Offset == 0 {
			return true
		}
	}
	return knownCommands[cmd]
}

// isForeignCommand reports a command addressed to another bot, e.g. /start@OtherBot.
func (opBot *Bot) isForeignCommand(msg *models.Message) bool {
	if msg == nil {
		return false
	}
	cmd, mention := parseCommand(msg.Text)
	return cmd != "" && opBot.isForeignMention(mention)
}

func (opBot *Bot) isForeignMention(mention string) bool {
	return mention != "" && opBot.username != "" && !strings.EqualFold(mention, opBot.username)
}

// parseCommand splits "/Cmd@bot args" into the lower-cased command and the
// bot mention without "@".
func parseCommand(text string) (string, string) {
	fields := strings.Fields(text)
	if len(fields) == 0 || !strings.HasPrefix(fields[0], "/") {
		return "", ""
	}
	cmd, mention, _ := strings.Cut(strings.TrimPrefix(fields[0], "/"), "@")
	return strings.ToLower(cmd), mention
}

// commandArguments returns the text after the command, line breaks kept.
func commandArguments(msg *models.Message) string {
	if msg == nil {
		return ""
	}
	text := strings.TrimSpace(msg.Text)
	i := strings.IndexFunc(text, unicode.IsSpace)
	if i < 0 {
		return ""
	}
	return strings.TrimSpace(text[i:])
}

// sendReply sends a plain-text message to the given chat.
func (opBot *Bot) sendReply(ctx context.Context, chatID int64, text string) error {
	if _, err := opBot.api.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: chatID,
		Text:   text,
	}); err != nil {
		return fmt.Errorf("sendReply: %w", err)
	}
	return nil
}

// sendWithKeyboard sends a plain-text message with an inline keyboard.
func (opBot *Bot) sendWithKeyboard(
	ctx context.Context,
	chatID int64,
	text string,
	kb *models.InlineKeyboardMarkup,
) error {
	p := &bot.SendMessageParams{
		ChatID: chatID,
		Text:   text,
	}
	if kb != nil {
		p.ReplyMarkup = kb
	}
	if _, err := opBot.api.SendMessage(ctx, p); err != nil {
		return fmt.Errorf("sendWithKeyboard: %w", err)
	}
	return nil
}

// editOrSend replaces the menu message in place. When editing is impossible
// (message too old, deleted or inaccessible) a new message is sent instead.
func (opBot *Bot) editOrSend(
	ctx context.Context,
	chatID int64,
	messageID int,
	text string,
	kb *models.InlineKeyboardMarkup,
) error {
	if messageID != 0 {
		p := &bot.EditMessageTextParams{
			ChatID:    chatID,
			MessageID: messageID,
			Text:      text,
		}
		if kb != nil {
			p.ReplyMarkup = kb
		}
		_, err := opBot.api.EditMessageText(ctx, p)
		if err == nil {
			return nil
		}
		opBot.log.Debug("edit failed, sending new message",
			slog.Int64("chat_id", chatID), sl.Err(err))
	}
	return opBot.sendWithKeyboard(ctx, chatID, text, kb)
}

// inlineKeyboard builds an InlineKeyboardMarkup from rows of buttons.
func inlineKeyboard(rows ...[]models.InlineKeyboardButton) *models.InlineKeyboardMarkup {
	return &models.InlineKeyboardMarkup{InlineKeyboard: rows}
}

// inlineRow builds a single row of inline keyboard buttons.
func inlineRow(btns ...models.InlineKeyboardButton) []models.InlineKeyboardButton {
	return btns
}

// inlineBtn creates an inline keyboard button with callback data.
func inlineBtn(text, data string) models.InlineKeyboardButton {
	return models.InlineKeyboardButton{Text: text, CallbackData: data}
}

// Shutdown stops update processing and cancels pending message deletions.
func (opBot *Bot) Shutdown(_ context.Context) error {
	opBot.cancel()
	if opBot.deleter != nil {
		n := opBot.deleter.stop()
		opBot.log.Info("pending deletions cancelled", slog.Int("count", n))
	}
	return nil
}
