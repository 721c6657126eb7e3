package service

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"driverbot/core/logger"
	"driverbot/internal/format"
	"driverbot/internal/model"
	"driverbot/internal/storage"
	"driverbot/internal/tiers"
	"driverbot/internal/validate"
)

// Notifier delivers a plain text message to a user outside the current
// update. Implemented by the Telegram layer.
type Notifier interface {
	Notify(ctx context.Context, userID int64, text string) error
}

// Reviews creates reviews, serves plate lookups, and fans out new-review
// notifications to watchers.
type Reviews struct {
	store     storage.Store
	users     *Users
	ents      *Entitlements
	notifier  Notifier
	maxPerDay int
	now       func() time.Time

	fanouts sync.WaitGroup
}

// NewReviews builds the review service. maxPerDay caps review submissions
// per author per day.
func NewReviews(store storage.Store, users *Users, ents *Entitlements, notifier Notifier, maxPerDay int) *Reviews {
	return &Reviews{
		store:     store,
		users:     users,
		ents:      ents,
		notifier:  notifier,
		maxPerDay: maxPerDay,
		now:       time.Now,
	}
}

// LookupResult is one plate lookup with visibility already resolved.
type LookupResult struct {
	Plate   string
	Stats   model.PlateStats
	Reviews []model.Review
	// Hidden is how many reviews the tier does not show.
	Hidden int
	Tier   tiers.Tier
}

// Lookup searches a plate for the user. It consumes one search from the
// daily quota and trims the review list to what the tier may see.
func (s *Reviews) Lookup(ctx context.Context, userID int64, rawPlate string) (*LookupResult, error) {
	if _, err := s.users.EnsureActive(ctx, userID); err != nil {
		return nil, err
	}

	plate := validate.CleanPlate(rawPlate)
	if reason := validate.ValidatePlate(plate); reason != "" {
		return nil, &DeniedError{Reason: reason}
	}

	tier, err := s.ents.ConsumeSearch(ctx, userID)
	if err != nil {
		return nil, err
	}

	stats, err := s.store.PlateStats(ctx, plate)
	if err != nil {
		return nil, err
	}
	all, err := s.store.ReviewsByPlate(ctx, plate)
	if err != nil {
		return nil, err
	}

	res := &LookupResult{Plate: plate, Stats: stats, Reviews: all, Tier: tier}
	if !tier.ViewAllReviews && len(all) > 1 {
		res.Reviews = all[:1]
		res.Hidden = len(all) - 1
	}

	logger.LogEvent(ctx, logger.SVCReviews, slog.LevelInfo, "plate.lookup",
		slog.Int64("user_id", userID),
		slog.String("plate", plate),
		slog.Int("reviews", stats.ReviewCount),
	)
	return res, nil
}

// NewReview carries validated input for a review submission.
type NewReview struct {
	AuthorID       int64
	AuthorName     string
	AuthorUsername string
	Plate          string
	Rating         int
	Comment        string
	PhotoID        string
	VideoID        string
	Latitude       *float64
	Longitude      *float64
}

// Create validates and stores a review, then fans out notifications to
// the plate's watchers in the background. The author never notifies
// themselves.
func (s *Reviews) Create(ctx context.Context, in NewReview) (*model.Review, error) {
	if _, err := s.users.EnsureActive(ctx, in.AuthorID); err != nil {
		return nil, err
	}

	plate := validate.CleanPlate(in.Plate)
	if reason := validate.ValidatePlate(plate); reason != "" {
		return nil, &DeniedError{Reason: reason}
	}
	if !validate.ValidRating(in.Rating) {
		return nil, &DeniedError{Reason: "❌ Оценка должна быть от 1 до 5"}
	}
	comment := validate.SanitizeText(in.Comment)
	if reason := validate.ValidateComment(comment); reason != "" {
		return nil, &DeniedError{Reason: reason}
	}

	if err := s.ents.ConsumeReview(ctx, in.AuthorID, s.maxPerDay); err != nil {
		return nil, err
	}

	rev := &model.Review{
		Plate:     plate,
		Rating:    in.Rating,
		Comment:   comment,
		AuthorID:  in.AuthorID,
		CreatedAt: s.now(),
	}
	if in.PhotoID != "" {
		rev.PhotoID = &in.PhotoID
	}
	if in.VideoID != "" {
		rev.VideoID = &in.VideoID
	}
	if in.AuthorName != "" {
		rev.AuthorName = &in.AuthorName
	}
	if in.AuthorUsername != "" {
		rev.AuthorUsername = &in.AuthorUsername
	}
	rev.Latitude, rev.Longitude = in.Latitude, in.Longitude

	id, err := s.store.CreateReview(ctx, rev)
	if err != nil {
		return nil, err
	}
	rev.ID = id

	logger.LogEvent(ctx, logger.SVCReviews, slog.LevelInfo, "review.created",
		slog.Int64("review_id", id),
		slog.Int64("author_id", in.AuthorID),
		slog.String("plate", plate),
		slog.Int("rating", in.Rating),
	)

	s.fanouts.Add(1)
	go func() {
		defer s.fanouts.Done()
		s.fanout(context.WithoutCancel(ctx), rev)
	}()
	return rev, nil
}

// CheckDailyCap is the entry guard for the review flow: it denies
// before any conversation state exists. The consuming check in Create
// still applies.
func (s *Reviews) CheckDailyCap(ctx context.Context, userID int64) error {
	if _, err := s.users.EnsureActive(ctx, userID); err != nil {
		return err
	}
	return s.ents.CheckReviewCap(ctx, userID, s.maxPerDay)
}

// WaitFanouts blocks until all in-flight notification fanouts finish.
// Used on shutdown and in tests.
func (s *Reviews) WaitFanouts() {
	s.fanouts.Wait()
}

// fanout notifies every watcher of the plate except the review author.
// One failed recipient never blocks the rest.
func (s *Reviews) fanout(ctx context.Context, rev *model.Review) {
	if s.notifier == nil {
		return
	}
	watchers, err := s.store.WatchersOfPlate(ctx, rev.Plate)
	if err != nil {
		logger.LogEvent(ctx, logger.SVCReviews, slog.LevelError, "fanout.watchers_failed",
			slog.String("plate", rev.Plate),
			slog.String("err", err.Error()),
		)
		return
	}

	text := format.ReviewAlert(rev.Plate, rev.Rating, rev.Comment)

	sent := 0
	for _, userID := range watchers {
		if userID == rev.AuthorID {
			continue
		}
		if err := s.notifier.Notify(ctx, userID, text); err != nil {
			logger.LogEvent(ctx, logger.SVCReviews, slog.LevelWarn, "fanout.notify_failed",
				slog.Int64("user_id", userID),
				slog.String("plate", rev.Plate),
				slog.String("err", err.Error()),
			)
			continue
		}
		sent++
	}
	logger.LogEvent(ctx, logger.SVCReviews, slog.LevelInfo, "fanout.done",
		slog.String("plate", rev.Plate),
		slog.Int("watchers", len(watchers)),
		slog.Int("sent", sent),
	)
}

// PlateOverview returns stats and the full review list for a plate the
// user already watches. Viewing your own garage never consumes the
// search quota and never trims the list.
func (s *Reviews) PlateOverview(ctx context.Context, plate string) (model.PlateStats, []model.Review, error) {
	stats, err := s.store.PlateStats(ctx, plate)
	if err != nil {
		return model.PlateStats{}, nil, err
	}
	reviews, err := s.store.ReviewsByPlate(ctx, plate)
	if err != nil {
		return model.PlateStats{}, nil, err
	}
	return stats, reviews, nil
}

// CountByAuthor returns how many visible reviews the user has written.
func (s *Reviews) CountByAuthor(ctx context.Context, userID int64) (int, error) {
	return s.store.CountReviewsByAuthor(ctx, userID)
}

// DeletePlate soft-deletes every review of a plate. Moderator tooling.
func (s *Reviews) DeletePlate(ctx context.Context, rawPlate string) (int64, error) {
	plate := validate.CleanPlate(rawPlate)
	n, err := s.store.SoftDeleteReviewsByPlate(ctx, plate)
	if err != nil {
		return 0, err
	}
	logger.LogEvent(ctx, logger.SVCReviews, slog.LevelInfo, "plate.deleted",
		slog.String("plate", plate),
		slog.Int64("removed", n),
	)
	return n, nil
}
