package telegram

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/go-telegram/bot"
)

const deleteTimeout = 10 * time.Second

type messageDeleter interface {
	DeleteMessage(ctx context.Context, params *bot.DeleteMessageParams) (bool, error)
}

type msgKey struct {
	chatID    int64
	messageID int
}

type pendingDelete struct {
	timer *time.Timer
	gen   uint64
}

// deleter owns the timers of messages scheduled for deletion. Every timer
// can be cancelled individually and all of them are stopped on shutdown.
type deleter struct {
	api messageDeleter
	log *slog.Logger

	mu      sync.Mutex
	pending map[msgKey]pendingDelete
	gen     uint64
	stopped bool
}

func newDeleter(api messageDeleter, logger *slog.Logger) *deleter {
	return &deleter{
		api:     api,
		log:     logger.With(slog.String("component", "deleter")),
		pending: make(map[msgKey]pendingDelete),
	}
}

// schedule deletes the message after d. Scheduling the same message again
// replaces the previous timer.
func (d *deleter) schedule(chatID int64, messageID int, after time.Duration) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped {
		return
	}

	key := msgKey{chatID: chatID, messageID: messageID}
	if prev, ok := d.pending[key]; ok {
		prev.timer.Stop()
	}
	d.gen++
	gen := d.gen
	d.pending[key] = pendingDelete{
		timer: time.AfterFunc(after, func() { d.fire(key, gen) }),
		gen:   gen,
	}
}

// cancel reports whether a pending deletion was stopped.
func (d *deleter) cancel(chatID int64, messageID int) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	key := msgKey{chatID: chatID, messageID: messageID}
	p, ok := d.pending[key]
	if !ok {
		return false
	}
	p.timer.Stop()
	delete(d.pending, key)
	return true
}

// stop cancels every pending deletion; later schedules are ignored.
func (d *deleter) stop() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	n := len(d.pending)
	for key, p := range d.pending {
		p.timer.Stop()
		delete(d.pending, key)
	}
	d.stopped = true
	return n
}

func (d *deleter) fire(key msgKey, gen uint64) {
	d.mu.Lock()
	p, ok := d.pending[key]
	if !ok || p.gen != gen || d.stopped {
		d.mu.Unlock()
		return
	}
	delete(d.pending, key)
	d.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), deleteTimeout)
	defer cancel()

	if _, err := d.api.DeleteMessage(ctx, &bot.DeleteMessageParams{
		ChatID:    key.chatID,
		MessageID: key.messageID,
	}); err != nil {
		// already removed by an admin or the chat is gone
		d.log.Debug("scheduled delete failed",
			slog.Int64("chat_id", key.chatID),
			slog.Int("message_id", key.messageID),
			slog.String("error", err.Error()))
	}
}
