// Package storage defines the persistence interface of the bot and its
// PostgreSQL and in-memory implementations.
package storage

import (
	"context"
	"errors"
	"time"

	"driverbot/internal/model"
)

// Sentinel errors shared by all implementations.
var (
	// ErrNotFound is returned when the requested row does not exist.
	ErrNotFound = errors.New("storage: not found")
	// ErrDuplicateWatch is returned when a (user, plate) watch already exists.
	ErrDuplicateWatch = errors.New("storage: watch already exists")
)

// Store is the unified storage interface. All methods are safe for
// concurrent use.
type Store interface {
	// Users
	UpsertUser(ctx context.Context, u *model.User) error
	GetUser(ctx context.Context, userID int64) (*model.User, error)
	GetUserByUsername(ctx context.Context, username string) (*model.User, error)
	SetBanned(ctx context.Context, userID int64, banned bool) error
	ListUserIDs(ctx context.Context) ([]int64, error)

	// Reviews
	CreateReview(ctx context.Context, r *model.Review) (int64, error)
	ReviewsByPlate(ctx context.Context, plate string) ([]model.Review, error)
	PlateStats(ctx context.Context, plate string) (model.PlateStats, error)
	CountReviewsByAuthor(ctx context.Context, userID int64) (int, error)
	SoftDeleteReviewsByPlate(ctx context.Context, plate string) (int64, error)

	// Watches
	AddWatch(ctx context.Context, userID int64, plate string) error
	RemoveWatch(ctx context.Context, userID int64, plate string) error
	ListWatches(ctx context.Context, userID int64) ([]model.Watch, error)
	CountWatches(ctx context.Context, userID int64) (int, error)
	WatchersOfPlate(ctx context.Context, plate string) ([]int64, error)

	// Tier assignments
	AssignTier(ctx context.Context, a model.TierAssignment) error
	GetTierAssignment(ctx context.Context, userID int64) (*model.TierAssignment, error)
	ClearTier(ctx context.Context, userID int64) error

	// Payment requests
	CreatePaymentRequest(ctx context.Context, p *model.PaymentRequest) error
	GetPaymentRequest(ctx context.Context, paymentID string) (*model.PaymentRequest, error)
	// DecidePaymentRequest moves a pending request to the given terminal
	// status. It reports false when the request was not pending, making
	// repeated decisions harmless.
	DecidePaymentRequest(ctx context.Context, paymentID, status string, decidedAt time.Time) (bool, error)

	// Usage counters
	// IncrementUsage atomically bumps the per-day counter for one action
	// and returns the new value.
	IncrementUsage(ctx context.Context, userID int64, day time.Time, action string) (int, error)
	GetUsage(ctx context.Context, userID int64, day time.Time) (model.Usage, error)

	// Reports
	AdminStats(ctx context.Context) (*model.AdminStats, error)
	FinanceStats(ctx context.Context, now time.Time) (*model.FinanceStats, error)
}

// DayKey normalizes a timestamp to its calendar day for the usage ledger.
func DayKey(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
