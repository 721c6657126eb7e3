package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"driverbot/core/logger"
	"driverbot/internal/model"
	"driverbot/internal/storage"
	"driverbot/internal/tiers"
)

// Payments handles the human-moderated upgrade flow: a user requests a
// paid tier, transfers money out of band, and the moderator confirms or
// rejects the request.
type Payments struct {
	store       storage.Store
	catalog     *tiers.Catalog
	moderatorID int64
	now         func() time.Time
}

// NewPayments builds the payment service.
func NewPayments(store storage.Store, catalog *tiers.Catalog, moderatorID int64) *Payments {
	return &Payments{store: store, catalog: catalog, moderatorID: moderatorID, now: time.Now}
}

// CreateRequest opens a pending payment request for a paid tier. The short
// payment ID is what the user quotes in the transfer comment.
func (s *Payments) CreateRequest(ctx context.Context, userID int64, tierName string) (*model.PaymentRequest, error) {
	tier := s.catalog.Get(tierName)
	if tier.Price <= 0 {
		return nil, &DeniedError{Reason: "❌ Этот тариф нельзя купить"}
	}

	p := &model.PaymentRequest{
		PaymentID: shortPaymentID(),
		UserID:    userID,
		Tier:      tier.Name,
		Amount:    tier.Price,
		Status:    model.PaymentPending,
		CreatedAt: s.now(),
	}
	if err := s.store.CreatePaymentRequest(ctx, p); err != nil {
		return nil, err
	}
	logger.LogEvent(ctx, logger.SVCPayments, slog.LevelInfo, "payment.requested",
		slog.String("payment_id", p.PaymentID),
		slog.Int64("user_id", userID),
		slog.String("tier", tier.Name),
		slog.Int("amount", tier.Price),
	)
	return p, nil
}

// Get returns a payment request by its short ID.
func (s *Payments) Get(ctx context.Context, paymentID string) (*model.PaymentRequest, error) {
	return s.store.GetPaymentRequest(ctx, paymentID)
}

// Decide moves a pending request to confirmed or rejected. Only the
// configured moderator may decide. A second decision on the same request
// returns ErrAlreadyDecided and changes nothing. Confirmation assigns the
// purchased tier for its full duration starting now.
func (s *Payments) Decide(ctx context.Context, actorID int64, paymentID string, approve bool) (*model.PaymentRequest, error) {
	if actorID != s.moderatorID {
		logger.LogEvent(ctx, logger.SVCPayments, slog.LevelWarn, "payment.decide_denied",
			slog.Int64("actor_id", actorID),
			slog.String("payment_id", paymentID),
		)
		return nil, ErrNotModerator
	}

	p, err := s.store.GetPaymentRequest(ctx, paymentID)
	if err != nil {
		return nil, err
	}

	status := model.PaymentRejected
	if approve {
		status = model.PaymentConfirmed
	}
	decidedAt := s.now()
	ok, err := s.store.DecidePaymentRequest(ctx, paymentID, status, decidedAt)
	if err != nil {
		return nil, err
	}
	if !ok {
		return p, ErrAlreadyDecided
	}
	p.Status = status
	p.DecidedAt = &decidedAt

	if approve {
		tier := s.catalog.Get(p.Tier)
		expires := decidedAt.AddDate(0, 0, tier.DurationDays)
		err := s.store.AssignTier(ctx, model.TierAssignment{
			UserID:    p.UserID,
			Tier:      tier.Name,
			StartedAt: decidedAt,
			ExpiresAt: &expires,
		})
		if err != nil {
			return nil, fmt.Errorf("assign tier after confirm %s: %w", paymentID, err)
		}
	}

	logger.LogEvent(ctx, logger.SVCPayments, slog.LevelInfo, "payment.decided",
		slog.String("payment_id", paymentID),
		slog.String("status", status),
		slog.Int64("user_id", p.UserID),
	)
	return p, nil
}

func shortPaymentID() string {
	return strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
}
