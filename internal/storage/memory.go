package storage

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"driverbot/internal/model"
)

// compile-time interface check
var _ Store = (*Memory)(nil)

// Memory is an in-memory Store used by tests.
type Memory struct {
	mu sync.RWMutex

	users    map[int64]*model.User
	reviews  []model.Review
	nextID   int64
	watches  map[int64]map[string]model.Watch
	tiers    map[int64]model.TierAssignment
	payments map[string]*model.PaymentRequest
	usage    map[usageKey]int
}

type usageKey struct {
	userID int64
	day    time.Time
	action string
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		users:    make(map[int64]*model.User),
		nextID:   1,
		watches:  make(map[int64]map[string]model.Watch),
		tiers:    make(map[int64]model.TierAssignment),
		payments: make(map[string]*model.PaymentRequest),
		usage:    make(map[usageKey]int),
	}
}

// ==================== Users ====================

func (s *Memory) UpsertUser(_ context.Context, u *model.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if cur, ok := s.users[u.ID]; ok {
		cur.Username = u.Username
		cur.FullName = u.FullName
		cur.LastActive = u.LastActive
		return nil
	}
	cp := *u
	s.users[u.ID] = &cp
	return nil
}

func (s *Memory) GetUser(_ context.Context, userID int64) (*model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[userID]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (s *Memory) GetUserByUsername(_ context.Context, username string) (*model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.users {
		if strings.EqualFold(u.Username, username) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (s *Memory) SetBanned(_ context.Context, userID int64, banned bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[userID]
	if !ok {
		return ErrNotFound
	}
	u.IsBanned = banned
	return nil
}

func (s *Memory) ListUserIDs(_ context.Context) ([]int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]int64, 0, len(s.users))
	for id, u := range s.users {
		if !u.IsBanned {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

// ==================== Reviews ====================

func (s *Memory) CreateReview(_ context.Context, r *model.Review) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *r
	cp.ID = s.nextID
	s.nextID++
	s.reviews = append(s.reviews, cp)
	return cp.ID, nil
}

func (s *Memory) ReviewsByPlate(_ context.Context, plate string) ([]model.Review, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []model.Review
	for _, r := range s.reviews {
		if r.Plate == plate && !r.IsDeleted {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (s *Memory) PlateStats(_ context.Context, plate string) (model.PlateStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var st model.PlateStats
	var sum int
	for _, r := range s.reviews {
		if r.Plate != plate || r.IsDeleted {
			continue
		}
		st.ReviewCount++
		sum += r.Rating
		if st.LastReview == nil || r.CreatedAt.After(*st.LastReview) {
			t := r.CreatedAt
			st.LastReview = &t
		}
	}
	if st.ReviewCount > 0 {
		st.AvgRating = float64(sum) / float64(st.ReviewCount)
	}
	return st, nil
}

func (s *Memory) CountReviewsByAuthor(_ context.Context, userID int64) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, r := range s.reviews {
		if r.AuthorID == userID && !r.IsDeleted {
			n++
		}
	}
	return n, nil
}

func (s *Memory) SoftDeleteReviewsByPlate(_ context.Context, plate string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for i := range s.reviews {
		if s.reviews[i].Plate == plate && !s.reviews[i].IsDeleted {
			s.reviews[i].IsDeleted = true
			n++
		}
	}
	return n, nil
}

// ==================== Watches ====================

func (s *Memory) AddWatch(_ context.Context, userID int64, plate string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	byPlate, ok := s.watches[userID]
	if !ok {
		byPlate = make(map[string]model.Watch)
		s.watches[userID] = byPlate
	}
	if _, exists := byPlate[plate]; exists {
		return ErrDuplicateWatch
	}
	byPlate[plate] = model.Watch{UserID: userID, Plate: plate, SubscribedAt: time.Now()}
	return nil
}

func (s *Memory) RemoveWatch(_ context.Context, userID int64, plate string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	byPlate := s.watches[userID]
	if _, ok := byPlate[plate]; !ok {
		return ErrNotFound
	}
	delete(byPlate, plate)
	return nil
}

func (s *Memory) ListWatches(_ context.Context, userID int64) ([]model.Watch, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []model.Watch
	for _, w := range s.watches[userID] {
		for _, r := range s.reviews {
			if r.Plate == w.Plate && !r.IsDeleted {
				w.ReviewCount++
			}
		}
		out = append(out, w)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SubscribedAt.Before(out[j].SubscribedAt) })
	return out, nil
}

func (s *Memory) CountWatches(_ context.Context, userID int64) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.watches[userID]), nil
}

func (s *Memory) WatchersOfPlate(_ context.Context, plate string) ([]int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var ids []int64
	for userID, byPlate := range s.watches {
		if _, ok := byPlate[plate]; !ok {
			continue
		}
		if u, exists := s.users[userID]; exists && u.IsBanned {
			continue
		}
		ids = append(ids, userID)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

// ==================== Tier assignments ====================

func (s *Memory) AssignTier(_ context.Context, a model.TierAssignment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tiers[a.UserID] = a
	return nil
}

func (s *Memory) GetTierAssignment(_ context.Context, userID int64) (*model.TierAssignment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.tiers[userID]
	if !ok {
		return nil, ErrNotFound
	}
	cp := a
	return &cp, nil
}

func (s *Memory) ClearTier(_ context.Context, userID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.tiers, userID)
	return nil
}

// ==================== Payment requests ====================

func (s *Memory) CreatePaymentRequest(_ context.Context, p *model.PaymentRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *p
	cp.ID = s.nextID
	s.nextID++
	s.payments[p.PaymentID] = &cp
	p.ID = cp.ID
	return nil
}

func (s *Memory) GetPaymentRequest(_ context.Context, paymentID string) (*model.PaymentRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.payments[paymentID]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (s *Memory) DecidePaymentRequest(_ context.Context, paymentID, status string, decidedAt time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.payments[paymentID]
	if !ok || p.Status != model.PaymentPending {
		return false, nil
	}
	p.Status = status
	t := decidedAt
	p.DecidedAt = &t
	return true, nil
}

// ==================== Usage counters ====================

func (s *Memory) IncrementUsage(_ context.Context, userID int64, day time.Time, action string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := usageKey{userID: userID, day: DayKey(day), action: action}
	s.usage[k]++
	return s.usage[k], nil
}

func (s *Memory) GetUsage(_ context.Context, userID int64, day time.Time) (model.Usage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d := DayKey(day)
	return model.Usage{
		Searches: s.usage[usageKey{userID: userID, day: d, action: model.ActionSearch}],
		Reviews:  s.usage[usageKey{userID: userID, day: d, action: model.ActionReview}],
	}, nil
}

// ==================== Reports ====================

func (s *Memory) AdminStats(_ context.Context) (*model.AdminStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st := &model.AdminStats{TotalUsers: len(s.users)}
	plates := make(map[string]struct{})
	for _, r := range s.reviews {
		if r.IsDeleted {
			continue
		}
		st.TotalReviews++
		plates[r.Plate] = struct{}{}
	}
	st.UniquePlates = len(plates)
	now := time.Now()
	for _, a := range s.tiers {
		if a.ExpiresAt == nil || a.ExpiresAt.After(now) {
			st.ActiveSubs++
		}
	}
	for _, p := range s.payments {
		if p.Status == model.PaymentConfirmed && p.DecidedAt != nil &&
			p.DecidedAt.After(now.AddDate(0, 0, -30)) {
			st.MonthlyRevenue += p.Amount
		}
	}
	for _, u := range s.users {
		if u.JoinedAt.After(now.AddDate(0, 0, -7)) {
			st.NewUsersWeek++
		}
	}
	return st, nil
}

func (s *Memory) FinanceStats(_ context.Context, now time.Time) (*model.FinanceStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st := &model.FinanceStats{}
	byTier := make(map[string]*model.TierRevenue)
	for _, p := range s.payments {
		if p.Status == model.PaymentPending {
			st.Pending++
			continue
		}
		if p.Status != model.PaymentConfirmed || p.DecidedAt == nil {
			continue
		}
		st.Total += p.Amount
		if !p.DecidedAt.Before(now.AddDate(0, -1, 0)) {
			st.Month += p.Amount
		}
		if !p.DecidedAt.Before(now.AddDate(0, 0, -7)) {
			st.Week += p.Amount
		}
		if !p.DecidedAt.Before(DayKey(now)) {
			st.Today += p.Amount
		}
		tr, ok := byTier[p.Tier]
		if !ok {
			tr = &model.TierRevenue{Tier: p.Tier}
			byTier[p.Tier] = tr
		}
		tr.Count++
		tr.Revenue += p.Amount
	}
	for _, tr := range byTier {
		st.ByTier = append(st.ByTier, *tr)
	}
	sort.Slice(st.ByTier, func(i, j int) bool { return st.ByTier[i].Revenue > st.ByTier[j].Revenue })
	return st, nil
}
