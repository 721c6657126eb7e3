package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"driverbot/internal/model"
	"driverbot/internal/storage"
	"driverbot/internal/tiers"
)

const moderatorID int64 = 999

type fixture struct {
	store    *storage.Memory
	users    *Users
	ents     *Entitlements
	reviews  *Reviews
	watches  *Watches
	payments *Payments
	notifier *fakeNotifier
}

type fakeNotifier struct {
	mu     sync.Mutex
	sent   map[int64][]string
	failID int64
}

func (n *fakeNotifier) Notify(_ context.Context, userID int64, text string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.failID != 0 && userID == n.failID {
		return errors.New("blocked by user")
	}
	if n.sent == nil {
		n.sent = make(map[int64][]string)
	}
	n.sent[userID] = append(n.sent[userID], text)
	return nil
}

func (n *fakeNotifier) count(userID int64) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.sent[userID])
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := storage.NewMemory()
	catalog := tiers.NewCatalog(tiers.Prices{Basic: 500, Premium: 1000, Business: 2500}, 3)
	users := NewUsers(store)
	ents := NewEntitlements(store, catalog)
	notifier := &fakeNotifier{}
	return &fixture{
		store:    store,
		users:    users,
		ents:     ents,
		reviews:  NewReviews(store, users, ents, notifier, 10),
		watches:  NewWatches(store, users, ents),
		payments: NewPayments(store, catalog, moderatorID),
		notifier: notifier,
	}
}

func (f *fixture) addUser(t *testing.T, id int64) {
	t.Helper()
	_, err := f.users.Register(context.Background(), id, fmt.Sprintf("user%d", id), "Test User", 0)
	if err != nil {
		t.Fatal(err)
	}
}

func (f *fixture) addReview(t *testing.T, authorID int64, plate string) {
	t.Helper()
	_, err := f.reviews.Create(context.Background(), NewReview{
		AuthorID: authorID,
		Plate:    plate,
		Rating:   4,
		Comment:  "аккуратно водит, уступает дорогу",
	})
	if err != nil {
		t.Fatal(err)
	}
	f.reviews.WaitFanouts()
}

func TestFreeSearchQuota(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.addUser(t, 1)

	for i := 0; i < 3; i++ {
		if _, err := f.reviews.Lookup(ctx, 1, "123ABC02"); err != nil {
			t.Fatalf("lookup %d: %v", i+1, err)
		}
	}
	_, err := f.reviews.Lookup(ctx, 1, "123ABC02")
	reason, ok := Denied(err)
	if !ok {
		t.Fatalf("4th lookup: got %v, want denial", err)
	}
	if reason == "" {
		t.Error("denial must carry a reason")
	}
}

func TestSearchQuotaEntryGuard(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.addUser(t, 1)

	if err := f.ents.CheckSearchQuota(ctx, 1); err != nil {
		t.Fatalf("fresh user: %v", err)
	}
	for i := 0; i < 3; i++ {
		if _, err := f.reviews.Lookup(ctx, 1, "123ABC02"); err != nil {
			t.Fatalf("lookup %d: %v", i+1, err)
		}
	}

	err := f.ents.CheckSearchQuota(ctx, 1)
	if _, ok := Denied(err); !ok {
		t.Fatalf("guard at limit = %v, want denial", err)
	}
	// the guard must not consume quota itself
	usage, _ := f.store.GetUsage(ctx, 1, time.Now())
	if usage.Searches != 3 {
		t.Errorf("searches = %d after guard, want 3", usage.Searches)
	}
}

func TestReviewCapEntryGuard(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.addUser(t, 1)

	if err := f.reviews.CheckDailyCap(ctx, 1); err != nil {
		t.Fatalf("fresh user: %v", err)
	}
	for i := 0; i < 10; i++ {
		if _, err := f.reviews.Create(ctx, NewReview{
			AuthorID: 1, Plate: "123ABC02", Rating: 3,
			Comment: fmt.Sprintf("отзыв номер %d про вождение", i),
		}); err != nil {
			t.Fatalf("review %d: %v", i+1, err)
		}
	}
	f.reviews.WaitFanouts()

	err := f.reviews.CheckDailyCap(ctx, 1)
	if _, ok := Denied(err); !ok {
		t.Fatalf("guard at cap = %v, want denial", err)
	}
	usage, _ := f.store.GetUsage(ctx, 1, time.Now())
	if usage.Reviews != 10 {
		t.Errorf("reviews = %d after guard, want 10", usage.Reviews)
	}

	if err := f.users.SetBanned(ctx, 1, true); err != nil {
		t.Fatal(err)
	}
	if err := f.reviews.CheckDailyCap(ctx, 1); !errors.Is(err, ErrBanned) {
		t.Errorf("guard for banned user = %v, want ErrBanned", err)
	}
}

func TestPaidTierUnlimitedSearch(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.addUser(t, 1)
	exp := time.Now().AddDate(0, 0, 30)
	if err := f.store.AssignTier(ctx, model.TierAssignment{
		UserID: 1, Tier: tiers.Basic, StartedAt: time.Now(), ExpiresAt: &exp,
	}); err != nil {
		t.Fatal(err)
	}

	for i := 0; i < 20; i++ {
		if _, err := f.reviews.Lookup(ctx, 1, "123ABC02"); err != nil {
			t.Fatalf("lookup %d: %v", i+1, err)
		}
	}
}

func TestExpiredTierDegradesToFree(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.addUser(t, 1)
	exp := time.Now().Add(-time.Hour)
	if err := f.store.AssignTier(ctx, model.TierAssignment{
		UserID: 1, Tier: tiers.Premium, StartedAt: time.Now().AddDate(0, -1, 0), ExpiresAt: &exp,
	}); err != nil {
		t.Fatal(err)
	}

	tier, assignment, err := f.ents.CurrentTier(ctx, 1)
	if err != nil {
		t.Fatal(err)
	}
	if tier.Name != tiers.Free || assignment != nil {
		t.Errorf("tier = %s (assignment %v), want free with no assignment", tier.Name, assignment)
	}
	if _, err := f.store.GetTierAssignment(ctx, 1); !errors.Is(err, storage.ErrNotFound) {
		t.Error("expired assignment must be cleared on read")
	}
}

func TestFreeTierSeesOnlyFirstReview(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.addUser(t, 1)
	for i := int64(2); i <= 4; i++ {
		f.addUser(t, i)
		f.addReview(t, i, "123ABC02")
	}

	res, err := f.reviews.Lookup(ctx, 1, "123ABC02")
	if err != nil {
		t.Fatal(err)
	}
	if res.Stats.ReviewCount != 3 {
		t.Errorf("stats count = %d, want 3", res.Stats.ReviewCount)
	}
	if len(res.Reviews) != 1 {
		t.Fatalf("visible reviews = %d, want 1", len(res.Reviews))
	}
	if res.Hidden != 2 {
		t.Errorf("hidden = %d, want 2", res.Hidden)
	}
	first, _ := f.store.ReviewsByPlate(ctx, "123ABC02")
	if res.Reviews[0].ID != first[0].ID {
		t.Error("visible review must be the oldest one")
	}
}

func TestPaymentConfirmAssignsTier(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.addUser(t, 1)

	req, err := f.payments.CreateRequest(ctx, 1, tiers.Basic)
	if err != nil {
		t.Fatal(err)
	}
	if len(req.PaymentID) != 8 {
		t.Errorf("payment id %q must be 8 chars", req.PaymentID)
	}
	if req.Amount != 500 || req.Status != model.PaymentPending {
		t.Errorf("request = %+v", req)
	}

	decided, err := f.payments.Decide(ctx, moderatorID, req.PaymentID, true)
	if err != nil {
		t.Fatal(err)
	}
	if decided.Status != model.PaymentConfirmed {
		t.Errorf("status = %s, want confirmed", decided.Status)
	}

	tier, assignment, err := f.ents.CurrentTier(ctx, 1)
	if err != nil {
		t.Fatal(err)
	}
	if tier.Name != tiers.Basic {
		t.Errorf("tier = %s, want basic", tier.Name)
	}
	if assignment == nil || assignment.ExpiresAt == nil {
		t.Fatal("assignment with expiry expected")
	}
	want := time.Now().AddDate(0, 0, 30)
	if diff := assignment.ExpiresAt.Sub(want); diff < -time.Minute || diff > time.Minute {
		t.Errorf("expires_at = %v, want about %v", assignment.ExpiresAt, want)
	}
}

func TestPaymentDecideIdempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.addUser(t, 1)

	req, _ := f.payments.CreateRequest(ctx, 1, tiers.Premium)
	if _, err := f.payments.Decide(ctx, moderatorID, req.PaymentID, true); err != nil {
		t.Fatal(err)
	}
	_, err := f.payments.Decide(ctx, moderatorID, req.PaymentID, false)
	if !errors.Is(err, ErrAlreadyDecided) {
		t.Fatalf("second decide = %v, want ErrAlreadyDecided", err)
	}

	got, _ := f.payments.Get(ctx, req.PaymentID)
	if got.Status != model.PaymentConfirmed {
		t.Errorf("status = %s, confirm must stand", got.Status)
	}
	tier, _, _ := f.ents.CurrentTier(ctx, 1)
	if tier.Name != tiers.Premium {
		t.Errorf("tier = %s, want premium", tier.Name)
	}
}

func TestPaymentDecideRequiresModerator(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.addUser(t, 1)

	req, _ := f.payments.CreateRequest(ctx, 1, tiers.Basic)
	if _, err := f.payments.Decide(ctx, 1, req.PaymentID, true); !errors.Is(err, ErrNotModerator) {
		t.Fatalf("decide by non-moderator = %v, want ErrNotModerator", err)
	}
	got, _ := f.payments.Get(ctx, req.PaymentID)
	if got.Status != model.PaymentPending {
		t.Errorf("status = %s, must stay pending", got.Status)
	}
}

func TestFanoutNotifiesWatchersOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	for id := int64(1); id <= 4; id++ {
		f.addUser(t, id)
	}
	// users 1 to 3 watch the plate; user 3 will write the review
	for id := int64(1); id <= 3; id++ {
		if _, err := f.watches.Add(ctx, id, "123ABC02"); err != nil {
			t.Fatal(err)
		}
	}
	f.notifier.failID = 2

	f.addReview(t, 3, "123ABC02")

	if got := f.notifier.count(1); got != 1 {
		t.Errorf("watcher 1 notified %d times, want 1", got)
	}
	if got := f.notifier.count(2); got != 0 {
		t.Errorf("failing watcher 2 recorded %d sends", got)
	}
	if got := f.notifier.count(3); got != 0 {
		t.Errorf("author notified %d times, want 0", got)
	}
	if got := f.notifier.count(4); got != 0 {
		t.Errorf("non-watcher 4 notified %d times, want 0", got)
	}
}

func TestReviewDailyCap(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.addUser(t, 1)

	for i := 0; i < 10; i++ {
		if _, err := f.reviews.Create(ctx, NewReview{
			AuthorID: 1, Plate: "123ABC02", Rating: 3,
			Comment: fmt.Sprintf("отзыв номер %d про вождение", i),
		}); err != nil {
			t.Fatalf("review %d: %v", i+1, err)
		}
	}
	_, err := f.reviews.Create(ctx, NewReview{
		AuthorID: 1, Plate: "123ABC02", Rating: 3,
		Comment: "одиннадцатый отзыв про вождение",
	})
	if _, ok := Denied(err); !ok {
		t.Fatalf("11th review = %v, want denial", err)
	}
	f.reviews.WaitFanouts()
}

func TestBannedUserRejected(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.addUser(t, 1)
	if err := f.users.SetBanned(ctx, 1, true); err != nil {
		t.Fatal(err)
	}

	if _, err := f.reviews.Lookup(ctx, 1, "123ABC02"); !errors.Is(err, ErrBanned) {
		t.Errorf("lookup = %v, want ErrBanned", err)
	}
	if _, err := f.reviews.Create(ctx, NewReview{
		AuthorID: 1, Plate: "123ABC02", Rating: 5, Comment: "отличный водитель, рекомендую",
	}); !errors.Is(err, ErrBanned) {
		t.Errorf("create = %v, want ErrBanned", err)
	}
	if _, err := f.watches.Add(ctx, 1, "123ABC02"); !errors.Is(err, ErrBanned) {
		t.Errorf("watch = %v, want ErrBanned", err)
	}
}

func TestGarageLimitFreeTier(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.addUser(t, 1)

	if _, err := f.watches.Add(ctx, 1, "111AAA01"); err != nil {
		t.Fatal(err)
	}
	_, err := f.watches.Add(ctx, 1, "222BBB02")
	if _, ok := Denied(err); !ok {
		t.Fatalf("second garage slot on free = %v, want denial", err)
	}

	if _, err := f.watches.Add(ctx, 1, "111AAA01"); !errors.Is(err, ErrDuplicateWatch) {
		t.Errorf("duplicate add = %v, want ErrDuplicateWatch", err)
	}

	if err := f.watches.Remove(ctx, 1, "111AAA01"); err != nil {
		t.Fatal(err)
	}
	if _, err := f.watches.Add(ctx, 1, "222BBB02"); err != nil {
		t.Errorf("add after remove = %v, want success", err)
	}
}

func TestWatchRemovalStopsNotifications(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.addUser(t, 1)
	f.addUser(t, 2)

	if _, err := f.watches.Add(ctx, 1, "123ABC02"); err != nil {
		t.Fatal(err)
	}
	f.addReview(t, 2, "123ABC02")
	if got := f.notifier.count(1); got != 1 {
		t.Fatalf("notified %d times, want 1", got)
	}

	if err := f.watches.Remove(ctx, 1, "123ABC02"); err != nil {
		t.Fatal(err)
	}
	f.addReview(t, 2, "123ABC02")
	if got := f.notifier.count(1); got != 1 {
		t.Errorf("notified %d times after removal, want still 1", got)
	}
}

func TestBroadcastIsolatesFailures(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	for id := int64(1); id <= 25; id++ {
		f.addUser(t, id)
	}

	var progressCalls int
	b := NewBroadcast(f.store, 10000)
	rep, err := b.Run(ctx, func(userID int64) error {
		if userID%5 == 0 {
			return errors.New("blocked")
		}
		return nil
	}, func(done, total int) {
		progressCalls++
	})
	if err != nil {
		t.Fatal(err)
	}
	if rep.Total != 25 || rep.Sent != 20 || rep.Failed != 5 {
		t.Errorf("report = %+v", rep)
	}
	if progressCalls != 2 {
		t.Errorf("progress calls = %d, want 2", progressCalls)
	}
}

func TestReferralRecordedOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.addUser(t, 1)

	u, err := f.users.Register(ctx, 2, "invited", "Invited User", 1)
	if err != nil {
		t.Fatal(err)
	}
	if u.ReferredBy == nil || *u.ReferredBy != 1 {
		t.Fatalf("referred_by = %v, want 1", u.ReferredBy)
	}

	// self-referral and unknown referrer are ignored
	u3, _ := f.users.Register(ctx, 3, "selfref", "Self Ref", 3)
	if u3.ReferredBy != nil {
		t.Error("self referral must be ignored")
	}
	u4, _ := f.users.Register(ctx, 4, "ghostref", "Ghost Ref", 777)
	if u4.ReferredBy != nil {
		t.Error("unknown referrer must be ignored")
	}
}
