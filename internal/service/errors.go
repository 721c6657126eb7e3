// Package service holds the business logic of the bot: user accounts,
// entitlement checks, reviews with watcher fanout, watches, payment
// moderation, and moderator broadcast.
package service

import "errors"

var (
	// ErrBanned is returned for any write attempted by a banned user.
	ErrBanned = errors.New("service: user is banned")
	// ErrNotModerator is returned when a payment decision comes from
	// anyone but the configured moderator.
	ErrNotModerator = errors.New("service: not the moderator")
	// ErrAlreadyDecided is returned when a payment request is no longer
	// pending.
	ErrAlreadyDecided = errors.New("service: payment already decided")
)

// DeniedError carries a user-facing reason for a tier or quota denial.
type DeniedError struct {
	Reason string
}

func (e *DeniedError) Error() string { return e.Reason }

// Denied extracts a denial reason from err, if any.
func Denied(err error) (string, bool) {
	var de *DeniedError
	if errors.As(err, &de) {
		return de.Reason, true
	}
	return "", false
}
