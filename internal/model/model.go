package model

import "time"

// User is a Telegram identity known to the bot. Created on first contact,
// refreshed on every contact, never physically deleted.
type User struct {
	ID         int64      `db:"user_id"`
	Username   string     `db:"username"`
	FullName   string     `db:"full_name"`
	JoinedAt   time.Time  `db:"joined_at"`
	LastActive time.Time  `db:"last_active"`
	ReferredBy *int64     `db:"referred_by"`
	IsBanned   bool       `db:"is_banned"`
}

// Review is a single driver review keyed by license plate.
type Review struct {
	ID             int64     `db:"id"`
	Plate          string    `db:"plate"`
	Rating         int       `db:"rating"`
	Comment        string    `db:"comment"`
	PhotoID        *string   `db:"photo_id"`
	VideoID        *string   `db:"video_id"`
	Latitude       *float64  `db:"latitude"`
	Longitude      *float64  `db:"longitude"`
	AuthorID       int64     `db:"user_id"`
	AuthorName     *string   `db:"author_name"`
	AuthorUsername *string   `db:"author_username"`
	CreatedAt      time.Time `db:"created_at"`
	IsDeleted      bool      `db:"is_deleted"`
}

// HasMedia reports whether the review carries a photo or video reference.
func (r Review) HasMedia() bool {
	return (r.PhotoID != nil && *r.PhotoID != "") || (r.VideoID != nil && *r.VideoID != "")
}

// HasLocation reports whether the review carries a geolocation.
func (r Review) HasLocation() bool {
	return r.Latitude != nil && r.Longitude != nil
}

// PlateStats aggregates non-deleted reviews of one plate.
type PlateStats struct {
	ReviewCount int        `db:"review_count"`
	AvgRating   float64    `db:"avg_rating"`
	LastReview  *time.Time `db:"last_review_date"`
}

// Watch subscribes a user to new-review notifications for a plate.
// Unique per (user, plate) pair.
type Watch struct {
	UserID       int64     `db:"user_id"`
	Plate        string    `db:"plate"`
	SubscribedAt time.Time `db:"subscribed_at"`
	ReviewCount  int       `db:"review_count"`
}

// TierAssignment records a user's paid tier. At most one row per user;
// absence means the free tier. Expiry is evaluated lazily at read time.
type TierAssignment struct {
	UserID    int64      `db:"user_id"`
	Tier      string     `db:"tier"`
	StartedAt time.Time  `db:"started_at"`
	ExpiresAt *time.Time `db:"expires_at"`
}

// Payment request statuses. A request moves exactly once from pending
// to a terminal state.
const (
	PaymentPending   = "pending"
	PaymentConfirmed = "confirmed"
	PaymentRejected  = "rejected"
)

// PaymentRequest is a human-confirmed intent to upgrade a user's tier.
type PaymentRequest struct {
	ID        int64      `db:"id"`
	PaymentID string     `db:"payment_id"`
	UserID    int64      `db:"user_id"`
	Tier      string     `db:"tier"`
	Amount    int        `db:"amount"`
	Status    string     `db:"status"`
	CreatedAt time.Time  `db:"created_at"`
	DecidedAt *time.Time `db:"decided_at"`
}

// Terminal reports whether the request has reached a final status.
func (p PaymentRequest) Terminal() bool {
	return p.Status == PaymentConfirmed || p.Status == PaymentRejected
}

// Usage action kinds tracked by the daily ledger.
const (
	ActionSearch = "search"
	ActionReview = "review"
)

// Usage is the per-day counter snapshot for one user.
type Usage struct {
	Searches int `db:"searches"`
	Reviews  int `db:"reviews"`
}

// AdminStats summarizes the whole system for the moderator.
type AdminStats struct {
	TotalUsers     int `db:"total_users"`
	TotalReviews   int `db:"total_reviews"`
	UniquePlates   int `db:"unique_plates"`
	ActiveSubs     int `db:"active_subs"`
	MonthlyRevenue int `db:"monthly_revenue"`
	NewUsersWeek   int `db:"new_users_week"`
}

// TierRevenue is revenue grouped by tier for the finance report.
type TierRevenue struct {
	Tier    string `db:"tier"`
	Count   int    `db:"count"`
	Revenue int    `db:"revenue"`
}

// FinanceStats summarizes confirmed payment revenue by period.
type FinanceStats struct {
	Today   int
	Week    int
	Month   int
	Total   int
	ByTier  []TierRevenue
	Pending int
}
