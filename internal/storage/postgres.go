package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"driverbot/internal/model"
)

// compile-time interface check
var _ Store = (*Postgres)(nil)

// Postgres implements Store on top of sqlx.
type Postgres struct {
	db *sqlx.DB
}

// NewPostgres wraps an established connection pool.
func NewPostgres(db *sqlx.DB) *Postgres {
	return &Postgres{db: db}
}

// ==================== Users ====================

func (s *Postgres) UpsertUser(ctx context.Context, u *model.User) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (user_id, username, full_name, joined_at, last_active, referred_by, is_banned)
		VALUES ($1, $2, $3, $4, $5, $6, FALSE)
		ON CONFLICT (user_id) DO UPDATE
		SET username = EXCLUDED.username,
		    full_name = EXCLUDED.full_name,
		    last_active = EXCLUDED.last_active`,
		u.ID, u.Username, u.FullName, u.JoinedAt, u.LastActive, u.ReferredBy)
	if err != nil {
		return fmt.Errorf("upsert user %d: %w", u.ID, err)
	}
	return nil
}

func (s *Postgres) GetUser(ctx context.Context, userID int64) (*model.User, error) {
	var u model.User
	err := s.db.GetContext(ctx, &u,
		`SELECT user_id, username, full_name, joined_at, last_active, referred_by, is_banned
		 FROM users WHERE user_id = $1`, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get user %d: %w", userID, err)
	}
	return &u, nil
}

func (s *Postgres) GetUserByUsername(ctx context.Context, username string) (*model.User, error) {
	var u model.User
	err := s.db.GetContext(ctx, &u,
		`SELECT user_id, username, full_name, joined_at, last_active, referred_by, is_banned
		 FROM users WHERE LOWER(username) = LOWER($1)`, username)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get user by username %q: %w", username, err)
	}
	return &u, nil
}

func (s *Postgres) SetBanned(ctx context.Context, userID int64, banned bool) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE users SET is_banned = $2 WHERE user_id = $1`, userID, banned)
	if err != nil {
		return fmt.Errorf("set banned %d: %w", userID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Postgres) ListUserIDs(ctx context.Context) ([]int64, error) {
	var ids []int64
	err := s.db.SelectContext(ctx, &ids,
		`SELECT user_id FROM users WHERE NOT is_banned ORDER BY user_id`)
	if err != nil {
		return nil, fmt.Errorf("list user ids: %w", err)
	}
	return ids, nil
}

// ==================== Reviews ====================

func (s *Postgres) CreateReview(ctx context.Context, r *model.Review) (int64, error) {
	var id int64
	err := s.db.QueryRowxContext(ctx, `
		INSERT INTO reviews (plate, rating, comment, photo_id, video_id,
		                     latitude, longitude, user_id, author_name, author_username, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id`,
		r.Plate, r.Rating, r.Comment, r.PhotoID, r.VideoID,
		r.Latitude, r.Longitude, r.AuthorID, r.AuthorName, r.AuthorUsername, r.CreatedAt,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("create review for %s: %w", r.Plate, err)
	}
	return id, nil
}

func (s *Postgres) ReviewsByPlate(ctx context.Context, plate string) ([]model.Review, error) {
	var out []model.Review
	err := s.db.SelectContext(ctx, &out, `
		SELECT id, plate, rating, comment, photo_id, video_id,
		       latitude, longitude, user_id, author_name, author_username, created_at, is_deleted
		FROM reviews
		WHERE plate = $1 AND NOT is_deleted
		ORDER BY created_at ASC, id ASC`, plate)
	if err != nil {
		return nil, fmt.Errorf("reviews by plate %s: %w", plate, err)
	}
	return out, nil
}

func (s *Postgres) PlateStats(ctx context.Context, plate string) (model.PlateStats, error) {
	var st model.PlateStats
	err := s.db.GetContext(ctx, &st, `
		SELECT COUNT(*) AS review_count,
		       COALESCE(AVG(rating), 0) AS avg_rating,
		       MAX(created_at) AS last_review_date
		FROM reviews
		WHERE plate = $1 AND NOT is_deleted`, plate)
	if err != nil {
		return model.PlateStats{}, fmt.Errorf("plate stats %s: %w", plate, err)
	}
	return st, nil
}

func (s *Postgres) CountReviewsByAuthor(ctx context.Context, userID int64) (int, error) {
	var n int
	err := s.db.GetContext(ctx, &n,
		`SELECT COUNT(*) FROM reviews WHERE user_id = $1 AND NOT is_deleted`, userID)
	if err != nil {
		return 0, fmt.Errorf("count reviews by %d: %w", userID, err)
	}
	return n, nil
}

func (s *Postgres) SoftDeleteReviewsByPlate(ctx context.Context, plate string) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE reviews SET is_deleted = TRUE WHERE plate = $1 AND NOT is_deleted`, plate)
	if err != nil {
		return 0, fmt.Errorf("delete reviews for %s: %w", plate, err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

// ==================== Watches ====================

func (s *Postgres) AddWatch(ctx context.Context, userID int64, plate string) error {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO watches (user_id, plate, subscribed_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (user_id, plate) DO NOTHING`, userID, plate)
	if err != nil {
		return fmt.Errorf("add watch %d/%s: %w", userID, plate, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrDuplicateWatch
	}
	return nil
}

func (s *Postgres) RemoveWatch(ctx context.Context, userID int64, plate string) error {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM watches WHERE user_id = $1 AND plate = $2`, userID, plate)
	if err != nil {
		return fmt.Errorf("remove watch %d/%s: %w", userID, plate, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Postgres) ListWatches(ctx context.Context, userID int64) ([]model.Watch, error) {
	var out []model.Watch
	err := s.db.SelectContext(ctx, &out, `
		SELECT w.user_id, w.plate, w.subscribed_at,
		       (SELECT COUNT(*) FROM reviews r WHERE r.plate = w.plate AND NOT r.is_deleted) AS review_count
		FROM watches w
		WHERE w.user_id = $1
		ORDER BY w.subscribed_at ASC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list watches %d: %w", userID, err)
	}
	return out, nil
}

func (s *Postgres) CountWatches(ctx context.Context, userID int64) (int, error) {
	var n int
	err := s.db.GetContext(ctx, &n,
		`SELECT COUNT(*) FROM watches WHERE user_id = $1`, userID)
	if err != nil {
		return 0, fmt.Errorf("count watches %d: %w", userID, err)
	}
	return n, nil
}

func (s *Postgres) WatchersOfPlate(ctx context.Context, plate string) ([]int64, error) {
	var ids []int64
	err := s.db.SelectContext(ctx, &ids, `
		SELECT w.user_id
		FROM watches w
		JOIN users u ON u.user_id = w.user_id
		WHERE w.plate = $1 AND NOT u.is_banned
		ORDER BY w.user_id`, plate)
	if err != nil {
		return nil, fmt.Errorf("watchers of %s: %w", plate, err)
	}
	return ids, nil
}

// ==================== Tier assignments ====================

func (s *Postgres) AssignTier(ctx context.Context, a model.TierAssignment) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO tier_assignments (user_id, tier, started_at, expires_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id) DO UPDATE
		SET tier = EXCLUDED.tier,
		    started_at = EXCLUDED.started_at,
		    expires_at = EXCLUDED.expires_at`,
		a.UserID, a.Tier, a.StartedAt, a.ExpiresAt)
	if err != nil {
		return fmt.Errorf("assign tier %s to %d: %w", a.Tier, a.UserID, err)
	}
	return nil
}

func (s *Postgres) GetTierAssignment(ctx context.Context, userID int64) (*model.TierAssignment, error) {
	var a model.TierAssignment
	err := s.db.GetContext(ctx, &a,
		`SELECT user_id, tier, started_at, expires_at FROM tier_assignments WHERE user_id = $1`, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get tier %d: %w", userID, err)
	}
	return &a, nil
}

func (s *Postgres) ClearTier(ctx context.Context, userID int64) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM tier_assignments WHERE user_id = $1`, userID)
	if err != nil {
		return fmt.Errorf("clear tier %d: %w", userID, err)
	}
	return nil
}

// ==================== Payment requests ====================

func (s *Postgres) CreatePaymentRequest(ctx context.Context, p *model.PaymentRequest) error {
	err := s.db.QueryRowxContext(ctx, `
		INSERT INTO payment_requests (payment_id, user_id, tier, amount, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`,
		p.PaymentID, p.UserID, p.Tier, p.Amount, p.Status, p.CreatedAt,
	).Scan(&p.ID)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return fmt.Errorf("payment id %s already exists: %w", p.PaymentID, err)
		}
		return fmt.Errorf("create payment request %s: %w", p.PaymentID, err)
	}
	return nil
}

func (s *Postgres) GetPaymentRequest(ctx context.Context, paymentID string) (*model.PaymentRequest, error) {
	var p model.PaymentRequest
	err := s.db.GetContext(ctx, &p, `
		SELECT id, payment_id, user_id, tier, amount, status, created_at, decided_at
		FROM payment_requests WHERE payment_id = $1`, paymentID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get payment request %s: %w", paymentID, err)
	}
	return &p, nil
}

func (s *Postgres) DecidePaymentRequest(ctx context.Context, paymentID, status string, decidedAt time.Time) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE payment_requests
		SET status = $2, decided_at = $3
		WHERE payment_id = $1 AND status = $4`,
		paymentID, status, decidedAt, model.PaymentPending)
	if err != nil {
		return false, fmt.Errorf("decide payment %s: %w", paymentID, err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

// ==================== Usage counters ====================

func (s *Postgres) IncrementUsage(ctx context.Context, userID int64, day time.Time, action string) (int, error) {
	var count int
	err := s.db.QueryRowxContext(ctx, `
		INSERT INTO usage_counters (user_id, day, action, count)
		VALUES ($1, $2, $3, 1)
		ON CONFLICT (user_id, day, action) DO UPDATE
		SET count = usage_counters.count + 1
		RETURNING count`,
		userID, DayKey(day), action,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("increment %s usage for %d: %w", action, userID, err)
	}
	return count, nil
}

func (s *Postgres) GetUsage(ctx context.Context, userID int64, day time.Time) (model.Usage, error) {
	rows, err := s.db.QueryxContext(ctx, `
		SELECT action, count FROM usage_counters WHERE user_id = $1 AND day = $2`,
		userID, DayKey(day))
	if err != nil {
		return model.Usage{}, fmt.Errorf("get usage for %d: %w", userID, err)
	}
	defer rows.Close()

	var u model.Usage
	for rows.Next() {
		var action string
		var count int
		if err := rows.Scan(&action, &count); err != nil {
			return model.Usage{}, fmt.Errorf("scan usage for %d: %w", userID, err)
		}
		switch action {
		case model.ActionSearch:
			u.Searches = count
		case model.ActionReview:
			u.Reviews = count
		}
	}
	return u, rows.Err()
}

// ==================== Reports ====================

func (s *Postgres) AdminStats(ctx context.Context) (*model.AdminStats, error) {
	var st model.AdminStats
	err := s.db.GetContext(ctx, &st, `
		SELECT
			(SELECT COUNT(*) FROM users) AS total_users,
			(SELECT COUNT(*) FROM reviews WHERE NOT is_deleted) AS total_reviews,
			(SELECT COUNT(DISTINCT plate) FROM reviews WHERE NOT is_deleted) AS unique_plates,
			(SELECT COUNT(*) FROM tier_assignments
			 WHERE expires_at IS NULL OR expires_at > NOW()) AS active_subs,
			(SELECT COALESCE(SUM(amount), 0) FROM payment_requests
			 WHERE status = 'confirmed' AND decided_at >= NOW() - INTERVAL '30 days') AS monthly_revenue,
			(SELECT COUNT(*) FROM users WHERE joined_at >= NOW() - INTERVAL '7 days') AS new_users_week`)
	if err != nil {
		return nil, fmt.Errorf("admin stats: %w", err)
	}
	return &st, nil
}

func (s *Postgres) FinanceStats(ctx context.Context, now time.Time) (*model.FinanceStats, error) {
	st := &model.FinanceStats{}

	err := s.db.QueryRowxContext(ctx, `
		SELECT
			COALESCE(SUM(amount) FILTER (WHERE decided_at >= $1), 0),
			COALESCE(SUM(amount) FILTER (WHERE decided_at >= $2), 0),
			COALESCE(SUM(amount) FILTER (WHERE decided_at >= $3), 0),
			COALESCE(SUM(amount), 0)
		FROM payment_requests
		WHERE status = 'confirmed'`,
		DayKey(now), now.AddDate(0, 0, -7), now.AddDate(0, -1, 0),
	).Scan(&st.Today, &st.Week, &st.Month, &st.Total)
	if err != nil {
		return nil, fmt.Errorf("finance totals: %w", err)
	}

	err = s.db.SelectContext(ctx, &st.ByTier, `
		SELECT tier, COUNT(*) AS count, COALESCE(SUM(amount), 0) AS revenue
		FROM payment_requests
		WHERE status = 'confirmed'
		GROUP BY tier
		ORDER BY revenue DESC`)
	if err != nil {
		return nil, fmt.Errorf("finance by tier: %w", err)
	}

	err = s.db.GetContext(ctx, &st.Pending,
		`SELECT COUNT(*) FROM payment_requests WHERE status = 'pending'`)
	if err != nil {
		return nil, fmt.Errorf("finance pending: %w", err)
	}
	return st, nil
}
