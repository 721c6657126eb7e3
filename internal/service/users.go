package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"driverbot/core/logger"
	"driverbot/internal/model"
	"driverbot/internal/storage"
)

// Users manages Telegram identities known to the bot.
type Users struct {
	store storage.Store
	now   func() time.Time
}

// NewUsers builds the user service.
func NewUsers(store storage.Store) *Users {
	return &Users{store: store, now: time.Now}
}

// Register creates or refreshes a user record on contact. The referrer is
// recorded only on first contact and only when it names another known user.
func (s *Users) Register(ctx context.Context, id int64, username, fullName string, referrerID int64) (*model.User, error) {
	now := s.now()

	var referredBy *int64
	if referrerID != 0 && referrerID != id {
		if _, err := s.store.GetUser(ctx, referrerID); err == nil {
			referredBy = &referrerID
		}
	}

	u := &model.User{
		ID:         id,
		Username:   username,
		FullName:   fullName,
		JoinedAt:   now,
		LastActive: now,
		ReferredBy: referredBy,
	}
	if err := s.store.UpsertUser(ctx, u); err != nil {
		return nil, err
	}
	if referredBy != nil {
		logger.LogEvent(ctx, logger.SVCUsers, slog.LevelInfo, "user.referred",
			slog.Int64("user_id", id),
			slog.Int64("referrer_id", *referredBy),
		)
	}
	return s.store.GetUser(ctx, id)
}

// GetUserByTelegramID resolves a user by their Telegram ID.
func (s *Users) GetUserByTelegramID(ctx context.Context, id int64) (*model.User, error) {
	return s.store.GetUser(ctx, id)
}

// FindByRef resolves a user by numeric ID or @username for the moderator.
func (s *Users) FindByRef(ctx context.Context, ref string) (*model.User, error) {
	var id int64
	if _, err := fmt.Sscanf(ref, "%d", &id); err == nil && id > 0 {
		return s.store.GetUser(ctx, id)
	}
	if len(ref) > 1 && ref[0] == '@' {
		ref = ref[1:]
	}
	return s.store.GetUserByUsername(ctx, ref)
}

// SetBanned toggles the ban flag.
func (s *Users) SetBanned(ctx context.Context, id int64, banned bool) error {
	if err := s.store.SetBanned(ctx, id, banned); err != nil {
		return err
	}
	logger.LogEvent(ctx, logger.SVCUsers, slog.LevelInfo, "user.ban_changed",
		slog.Int64("user_id", id),
		slog.Bool("banned", banned),
	)
	return nil
}

// EnsureActive returns the user and rejects banned accounts.
func (s *Users) EnsureActive(ctx context.Context, id int64) (*model.User, error) {
	u, err := s.store.GetUser(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if u.IsBanned {
		return nil, ErrBanned
	}
	return u, nil
}
