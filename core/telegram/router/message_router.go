package router

import (
	"time"

	tg "driverbot/core/telegram"
	"driverbot/core/telegram/middleware"

	tele "gopkg.in/telebot.v4"
)

// FSM defines the minimal interface for an FSM manager.
type FSM interface {
	InProgress(userID int64) bool
	ManagerHandler(c tele.Context) error
}

// NavFilter inspects an incoming text before any FSM dispatch. When it
// reports handled=true the update is consumed and the active conversation
// is abandoned in favour of the navigation target. This keeps global menu
// buttons responsive from any conversation step.
type NavFilter func(c tele.Context) (handled bool, err error)

// TextOptions controls routing of text and media updates.
type TextOptions struct {
	// Nav runs before FSM dispatch for every text update.
	Nav             NavFilter
	UnknownText     tele.HandlerFunc
	UnknownMedia    tele.HandlerFunc
	// MediaEndpoints lists extra endpoints (photos, documents, locations)
	// that should reach the FSM when a conversation is in progress.
	MediaEndpoints []any
}

// TextRoutes builds handlers for text and media routing.
func TextRoutes(fsmMgr FSM, reg *tg.Registry, opts TextOptions) []tg.Route {
	handler := func(c tele.Context) error {
		start := time.Now()
		text := c.Text()

		if opts.Nav != nil {
			handled, err := opts.Nav(c)
			if handled || err != nil {
				return handleWithSummary(c, "nav", start, func() error { return err })
			}
		}

		if fsmMgr != nil && fsmMgr.InProgress(c.Sender().ID) {
			return handleWithSummary(c, "fsm", start, func() error {
				return fsmMgr.ManagerHandler(c)
			})
		}

		if reg != nil {
			if key, cmd, ok := reg.LookupCommand(text); ok && cmd.Handler != nil {
				name := normalizeHandlerName(key)
				return handleWithSummary(c, name, start, func() error {
					return cmd.Handler(c)
				})
			}
			if fb := reg.TextFallback(); fb != nil {
				return handleWithSummary(c, "fallback", start, func() error {
					return fb(c)
				})
			}
		}

		if opts.UnknownText != nil {
			return handleWithSummary(c, "unknown_text", start, func() error {
				return opts.UnknownText(c)
			})
		}

		logHandlerSummary(c, "unknown_text", start, nil)
		return nil
	}

	mediaHandler := func(c tele.Context) error {
		start := time.Now()
		if fsmMgr != nil && fsmMgr.InProgress(c.Sender().ID) {
			return handleWithSummary(c, "fsm_media", start, func() error {
				return fsmMgr.ManagerHandler(c)
			})
		}
		if opts.UnknownMedia != nil {
			return handleWithSummary(c, "unexpected_media", start, func() error {
				return opts.UnknownMedia(c)
			})
		}
		logHandlerSummary(c, "unexpected_media", start, nil)
		return nil
	}

	routes := []tg.Route{
		{
			Endpoint: tele.OnText,
			Handler:  middleware.RecoverMiddleware(middleware.LoggerMiddleware(handler)),
		},
	}
	for _, ep := range opts.MediaEndpoints {
		routes = append(routes, tg.Route{
			Endpoint: ep,
			Handler:  middleware.RecoverMiddleware(middleware.LoggerMiddleware(mediaHandler)),
		})
	}
	return routes
}
