package bot

import (
	"errors"
	"time"

	"driverbot/core/telegram/helpers"
	"driverbot/core/telegram/state"
	"driverbot/internal/flow"
	"driverbot/internal/service"
	"driverbot/internal/storage"

	tele "gopkg.in/telebot.v4"
)

// Temp data keys used across conversation steps.
const (
	tmpPlate     = "plate"
	tmpRating    = "rating"
	tmpComment   = "comment"
	tmpLat       = "lat"
	tmpLon       = "lon"
	tmpPhotoID   = "photo_id"
	tmpVideoID   = "video_id"
	tmpPaymentID = "payment_id"
)

// Options carries everything the Telegram surface depends on.
type Options struct {
	Users     *service.Users
	Ents      *service.Entitlements
	Reviews   *service.Reviews
	Watches   *service.Watches
	Payments  *service.Payments
	Broadcast *service.Broadcast
	Reports   *service.Reports
	FSM       state.Manager
	Notifier  *TelegramNotifier

	ModeratorID int64
	KaspiPhone  string
}

// Bot holds the handler set. All Telegram I/O goes through here.
type Bot struct {
	users     *service.Users
	ents      *service.Entitlements
	reviews   *service.Reviews
	watches   *service.Watches
	payments  *service.Payments
	broadcast *service.Broadcast
	reports   *service.Reports
	fsm       state.Manager
	notifier  *TelegramNotifier

	moderatorID int64
	kaspiPhone  string
}

// New builds the handler set.
func New(opts Options) *Bot {
	return &Bot{
		users:       opts.Users,
		ents:        opts.Ents,
		reviews:     opts.Reviews,
		watches:     opts.Watches,
		payments:    opts.Payments,
		broadcast:   opts.Broadcast,
		reports:     opts.Reports,
		fsm:         opts.FSM,
		notifier:    opts.Notifier,
		moderatorID: opts.ModeratorID,
		kaspiPhone:  opts.KaspiPhone,
	}
}

// timeNow is replaceable in tests.
var timeNow = time.Now

// advance moves the conversation along the transition table. A move to
// the idle state clears the session, temps included; a move not in the
// table leaves the session untouched.
func (b *Bot) advance(userID int64, from flow.Step, ev flow.Event) {
	next, ok := flow.Next(from, ev)
	if !ok {
		return
	}
	if next == flow.StepNone {
		b.fsm.Clear(userID)
		return
	}
	b.fsm.SetState(userID, st(next))
}

// liveBot returns the running bot connection, nil before start.
func (b *Bot) liveBot() *tele.Bot {
	if b.notifier == nil {
		return nil
	}
	return b.notifier.bot.Load()
}

func (b *Bot) botUsername() string {
	if tb := b.liveBot(); tb != nil && tb.Me != nil {
		return tb.Me.Username
	}
	return ""
}

// replyDenied answers an entitlement denial with the tier catalog
// attached, giving the user a direct path to upgrade.
func (b *Bot) replyDenied(c tele.Context, err error) error {
	if reason, ok := service.Denied(err); ok {
		return helpers.SendMD(c, reason, tierKeyboard(b.ents.Catalog().Paid()))
	}
	return replyServiceError(c, err)
}

// replyServiceError translates service errors into user-facing replies.
// Unexpected errors propagate to the router for logging.
func replyServiceError(c tele.Context, err error) error {
	if reason, ok := service.Denied(err); ok {
		return helpers.SendText(c, reason)
	}
	switch {
	case errors.Is(err, service.ErrBanned):
		return helpers.SendText(c, "🚫 Вы заблокированы и не можете пользоваться ботом.")
	case errors.Is(err, storage.ErrNotFound):
		return helpers.SendText(c, "❌ Ничего не найдено.")
	}
	return err
}
