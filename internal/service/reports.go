package service

import (
	"context"
	"time"

	"driverbot/internal/model"
	"driverbot/internal/storage"
)

// Reports produces the moderator's summary screens.
type Reports struct {
	store storage.Store
	now   func() time.Time
}

// NewReports builds the report service.
func NewReports(store storage.Store) *Reports {
	return &Reports{store: store, now: time.Now}
}

// Admin returns the system-wide summary.
func (s *Reports) Admin(ctx context.Context) (*model.AdminStats, error) {
	return s.store.AdminStats(ctx)
}

// Finance returns confirmed revenue grouped by period and tier.
func (s *Reports) Finance(ctx context.Context) (*model.FinanceStats, error) {
	return s.store.FinanceStats(ctx, s.now())
}
