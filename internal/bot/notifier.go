package bot

import (
	"context"
	"errors"
	"sync/atomic"

	tele "gopkg.in/telebot.v4"
)

// ErrNotAttached is returned when a notification is requested before the
// bot connection is up.
var ErrNotAttached = errors.New("bot: notifier not attached")

// TelegramNotifier delivers out-of-band messages (watch notifications,
// payment outcomes) through the live bot connection. It is constructed
// before the bot and attached once the bot starts.
type TelegramNotifier struct {
	bot atomic.Pointer[tele.Bot]
}

// NewNotifier creates a detached notifier.
func NewNotifier() *TelegramNotifier {
	return &TelegramNotifier{}
}

// Attach wires the live bot. Safe to call from the start hook.
func (n *TelegramNotifier) Attach(b *tele.Bot) {
	n.bot.Store(b)
}

// Detach drops the bot reference on shutdown.
func (n *TelegramNotifier) Detach() {
	n.bot.Store(nil)
}

// Notify sends a Markdown message to the user.
func (n *TelegramNotifier) Notify(_ context.Context, userID int64, text string) error {
	b := n.bot.Load()
	if b == nil {
		return ErrNotAttached
	}
	_, err := b.Send(tele.ChatID(userID), text, tele.ModeMarkdown)
	return err
}
