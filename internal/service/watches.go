package service

import (
	"context"
	"errors"
	"log/slog"

	"driverbot/core/logger"
	"driverbot/internal/model"
	"driverbot/internal/storage"
	"driverbot/internal/validate"
)

// ErrDuplicateWatch re-exports the storage sentinel for handlers.
var ErrDuplicateWatch = storage.ErrDuplicateWatch

// Watches manages per-user plate subscriptions (the garage).
type Watches struct {
	store storage.Store
	users *Users
	ents  *Entitlements
}

// NewWatches builds the watch service.
func NewWatches(store storage.Store, users *Users, ents *Entitlements) *Watches {
	return &Watches{store: store, users: users, ents: ents}
}

// Add subscribes the user to a plate after checking the garage limit of
// their tier. Adding a plate already in the garage is reported with
// ErrDuplicateWatch and changes nothing.
func (s *Watches) Add(ctx context.Context, userID int64, rawPlate string) (string, error) {
	if _, err := s.users.EnsureActive(ctx, userID); err != nil {
		return "", err
	}
	plate := validate.CleanPlate(rawPlate)
	if reason := validate.ValidatePlate(plate); reason != "" {
		return "", &DeniedError{Reason: reason}
	}
	if err := s.ents.CheckGarageSlot(ctx, userID); err != nil {
		return "", err
	}
	if err := s.store.AddWatch(ctx, userID, plate); err != nil {
		if errors.Is(err, storage.ErrDuplicateWatch) {
			return plate, ErrDuplicateWatch
		}
		return "", err
	}
	logger.LogEvent(ctx, logger.SVCWatches, slog.LevelInfo, "watch.added",
		slog.Int64("user_id", userID),
		slog.String("plate", plate),
	)
	return plate, nil
}

// Remove deletes the watch. The user stops receiving notifications for
// the plate immediately.
func (s *Watches) Remove(ctx context.Context, userID int64, plate string) error {
	if err := s.store.RemoveWatch(ctx, userID, plate); err != nil {
		return err
	}
	logger.LogEvent(ctx, logger.SVCWatches, slog.LevelInfo, "watch.removed",
		slog.Int64("user_id", userID),
		slog.String("plate", plate),
	)
	return nil
}

// List returns the user's garage with per-plate review counts.
func (s *Watches) List(ctx context.Context, userID int64) ([]model.Watch, error) {
	return s.store.ListWatches(ctx, userID)
}

// Count returns how many plates the user watches.
func (s *Watches) Count(ctx context.Context, userID int64) (int, error) {
	return s.store.CountWatches(ctx, userID)
}
