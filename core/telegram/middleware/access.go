package middleware

import tele "gopkg.in/telebot.v4"

// ModeratorOptions defines how moderator-only checks should behave.
type ModeratorOptions struct {
	ModeratorID int64
	OnReject    tele.HandlerFunc
}

// ModeratorOnlyMiddleware ensures that only the moderator can invoke downstream handlers.
func ModeratorOnlyMiddleware(opts ModeratorOptions) tele.MiddlewareFunc {
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			if opts.ModeratorID != 0 && c.Sender().ID != opts.ModeratorID {
				if opts.OnReject != nil {
					return opts.OnReject(c)
				}
				return nil
			}
			return next(c)
		}
	}
}
