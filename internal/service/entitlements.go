package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"driverbot/core/logger"
	"driverbot/internal/model"
	"driverbot/internal/storage"
	"driverbot/internal/tiers"
)

// Entitlements resolves the effective tier of a user and enforces daily
// quotas against the usage ledger.
type Entitlements struct {
	store   storage.Store
	catalog *tiers.Catalog
	now     func() time.Time
}

// NewEntitlements builds the entitlement service.
func NewEntitlements(store storage.Store, catalog *tiers.Catalog) *Entitlements {
	return &Entitlements{store: store, catalog: catalog, now: time.Now}
}

// Catalog exposes the immutable tier catalog.
func (s *Entitlements) Catalog() *tiers.Catalog { return s.catalog }

// CurrentTier returns the user's effective tier. Expiry is lazy: an
// assignment past its expires_at is cleared on read and the user degrades
// to the free tier.
func (s *Entitlements) CurrentTier(ctx context.Context, userID int64) (tiers.Tier, *model.TierAssignment, error) {
	a, err := s.store.GetTierAssignment(ctx, userID)
	if errors.Is(err, storage.ErrNotFound) {
		return s.catalog.Get(tiers.Free), nil, nil
	}
	if err != nil {
		return tiers.Tier{}, nil, err
	}
	if a.ExpiresAt != nil && !a.ExpiresAt.After(s.now()) {
		if err := s.store.ClearTier(ctx, userID); err != nil {
			return tiers.Tier{}, nil, err
		}
		logger.LogEvent(ctx, logger.SVCUsage, slog.LevelInfo, "tier.expired",
			slog.Int64("user_id", userID),
			slog.String("tier", a.Tier),
		)
		return s.catalog.Get(tiers.Free), nil, nil
	}
	return s.catalog.Get(a.Tier), a, nil
}

// ConsumeSearch counts one plate lookup against the daily quota. The
// counter is bumped atomically first, then compared to the tier limit, so
// concurrent lookups cannot slip past it.
func (s *Entitlements) ConsumeSearch(ctx context.Context, userID int64) (tiers.Tier, error) {
	tier, _, err := s.CurrentTier(ctx, userID)
	if err != nil {
		return tiers.Tier{}, err
	}
	if tier.MaxSearchesPerDay == tiers.Unlimited {
		return tier, nil
	}
	count, err := s.store.IncrementUsage(ctx, userID, s.now(), model.ActionSearch)
	if err != nil {
		return tiers.Tier{}, err
	}
	if count > tier.MaxSearchesPerDay {
		d := s.catalog.Evaluate(tier.Name, tiers.ActionSearch, count)
		logger.LogEvent(ctx, logger.SVCUsage, slog.LevelInfo, "quota.search_denied",
			slog.Int64("user_id", userID),
			slog.Int("count", count),
			slog.Int("limit", tier.MaxSearchesPerDay),
		)
		return tier, &DeniedError{Reason: d.Reason}
	}
	return tier, nil
}

// CheckSearchQuota verifies the daily search limit without consuming
// it. Entry guard for the search flow; the consuming check in
// ConsumeSearch still runs on completion.
func (s *Entitlements) CheckSearchQuota(ctx context.Context, userID int64) error {
	tier, _, err := s.CurrentTier(ctx, userID)
	if err != nil {
		return err
	}
	if tier.MaxSearchesPerDay == tiers.Unlimited {
		return nil
	}
	usage, err := s.store.GetUsage(ctx, userID, s.now())
	if err != nil {
		return err
	}
	if d := s.catalog.Evaluate(tier.Name, tiers.ActionSearch, usage.Searches); !d.Allowed {
		return &DeniedError{Reason: d.Reason}
	}
	return nil
}

// CheckReviewCap verifies the daily review cap without consuming it.
func (s *Entitlements) CheckReviewCap(ctx context.Context, userID int64, maxPerDay int) error {
	if maxPerDay <= 0 {
		return nil
	}
	usage, err := s.store.GetUsage(ctx, userID, s.now())
	if err != nil {
		return err
	}
	if usage.Reviews >= maxPerDay {
		return &DeniedError{Reason: "❌ Достигнут дневной лимит отзывов. Попробуйте завтра."}
	}
	return nil
}

// ConsumeReview counts one review submission against the daily cap.
func (s *Entitlements) ConsumeReview(ctx context.Context, userID int64, maxPerDay int) error {
	if maxPerDay <= 0 {
		return nil
	}
	count, err := s.store.IncrementUsage(ctx, userID, s.now(), model.ActionReview)
	if err != nil {
		return err
	}
	if count > maxPerDay {
		logger.LogEvent(ctx, logger.SVCUsage, slog.LevelInfo, "quota.review_denied",
			slog.Int64("user_id", userID),
			slog.Int("count", count),
			slog.Int("limit", maxPerDay),
		)
		return &DeniedError{Reason: "❌ Достигнут дневной лимит отзывов. Попробуйте завтра."}
	}
	return nil
}

// CheckGarageSlot verifies a free garage slot against the tier limit.
func (s *Entitlements) CheckGarageSlot(ctx context.Context, userID int64) error {
	tier, _, err := s.CurrentTier(ctx, userID)
	if err != nil {
		return err
	}
	used, err := s.store.CountWatches(ctx, userID)
	if err != nil {
		return err
	}
	if d := s.catalog.Evaluate(tier.Name, tiers.ActionTrack, used); !d.Allowed {
		return &DeniedError{Reason: d.Reason}
	}
	return nil
}

// Can answers a flag-style capability question for the user's tier.
func (s *Entitlements) Can(ctx context.Context, userID int64, action tiers.Action) (bool, error) {
	tier, _, err := s.CurrentTier(ctx, userID)
	if err != nil {
		return false, err
	}
	return s.catalog.Evaluate(tier.Name, action, 0).Allowed, nil
}

// Usage returns today's counter snapshot.
func (s *Entitlements) Usage(ctx context.Context, userID int64) (model.Usage, error) {
	return s.store.GetUsage(ctx, userID, s.now())
}
