package service

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/time/rate"

	"driverbot/core/logger"
	"driverbot/internal/storage"
)

// BroadcastReport summarizes one finished broadcast.
type BroadcastReport struct {
	Total    int
	Sent     int
	Failed   int
	Duration time.Duration
}

// Broadcast delivers a moderator message to every non-banned user. Sends
// are throttled below the Telegram flood ceiling and one failed recipient
// never stops the run.
type Broadcast struct {
	store   storage.Store
	limiter *rate.Limiter
}

// NewBroadcast builds the broadcast service. perSecond bounds outgoing
// message rate.
func NewBroadcast(store storage.Store, perSecond float64) *Broadcast {
	if perSecond <= 0 {
		perSecond = 20
	}
	return &Broadcast{
		store:   store,
		limiter: rate.NewLimiter(rate.Limit(perSecond), 1),
	}
}

// Run sends text to all recipients via send, invoking progress after
// every tenth delivery attempt. It blocks until done or ctx is canceled.
func (s *Broadcast) Run(
	ctx context.Context,
	send func(userID int64) error,
	progress func(done, total int),
) (*BroadcastReport, error) {
	start := time.Now()
	ids, err := s.store.ListUserIDs(ctx)
	if err != nil {
		return nil, err
	}

	rep := &BroadcastReport{Total: len(ids)}
	for i, userID := range ids {
		if err := s.limiter.Wait(ctx); err != nil {
			return rep, err
		}
		if err := send(userID); err != nil {
			rep.Failed++
			logger.LogEvent(ctx, logger.SVCBroadcast, slog.LevelWarn, "broadcast.send_failed",
				slog.Int64("user_id", userID),
				slog.String("err", err.Error()),
			)
		} else {
			rep.Sent++
		}
		if progress != nil && (i+1)%10 == 0 {
			progress(i+1, len(ids))
		}
	}

	rep.Duration = time.Since(start)
	logger.LogEvent(ctx, logger.SVCBroadcast, slog.LevelInfo, "broadcast.done",
		slog.Int("total", rep.Total),
		slog.Int("sent", rep.Sent),
		slog.Int("failed", rep.Failed),
		slog.Int64("duration_ms", rep.Duration.Milliseconds()),
	)
	return rep, nil
}
