package storage

import (
	"context"
	"sync"
	"testing"
	"time"

	"driverbot/internal/model"
)

func TestIncrementUsageConcurrent(t *testing.T) {
	s := NewMemory()
	ctx := context.Background()
	day := time.Date(2025, 6, 1, 15, 4, 5, 0, time.UTC)

	const n = 100
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := s.IncrementUsage(ctx, 7, day, model.ActionSearch); err != nil {
				t.Error(err)
			}
		}()
	}
	wg.Wait()

	u, err := s.GetUsage(ctx, 7, day)
	if err != nil {
		t.Fatal(err)
	}
	if u.Searches != n {
		t.Errorf("searches = %d, want %d", u.Searches, n)
	}
	if u.Reviews != 0 {
		t.Errorf("reviews = %d, want 0", u.Reviews)
	}
}

func TestUsageDayBoundary(t *testing.T) {
	s := NewMemory()
	ctx := context.Background()
	d1 := time.Date(2025, 6, 1, 23, 59, 0, 0, time.UTC)
	d2 := time.Date(2025, 6, 2, 0, 1, 0, 0, time.UTC)

	if _, err := s.IncrementUsage(ctx, 7, d1, model.ActionSearch); err != nil {
		t.Fatal(err)
	}
	u, _ := s.GetUsage(ctx, 7, d2)
	if u.Searches != 0 {
		t.Errorf("next day searches = %d, want 0", u.Searches)
	}
}

func TestAddWatchDuplicate(t *testing.T) {
	s := NewMemory()
	ctx := context.Background()

	if err := s.AddWatch(ctx, 1, "123ABC02"); err != nil {
		t.Fatal(err)
	}
	if err := s.AddWatch(ctx, 1, "123ABC02"); err != ErrDuplicateWatch {
		t.Errorf("second add = %v, want ErrDuplicateWatch", err)
	}
	if err := s.RemoveWatch(ctx, 1, "123ABC02"); err != nil {
		t.Fatal(err)
	}
	if err := s.RemoveWatch(ctx, 1, "123ABC02"); err != ErrNotFound {
		t.Errorf("second remove = %v, want ErrNotFound", err)
	}
}

func TestDecidePaymentIdempotent(t *testing.T) {
	s := NewMemory()
	ctx := context.Background()

	p := &model.PaymentRequest{
		PaymentID: "AB12CD34",
		UserID:    7,
		Tier:      "basic",
		Amount:    500,
		Status:    model.PaymentPending,
		CreatedAt: time.Now(),
	}
	if err := s.CreatePaymentRequest(ctx, p); err != nil {
		t.Fatal(err)
	}

	ok, err := s.DecidePaymentRequest(ctx, "AB12CD34", model.PaymentConfirmed, time.Now())
	if err != nil || !ok {
		t.Fatalf("first decide: ok=%v err=%v", ok, err)
	}
	ok, err = s.DecidePaymentRequest(ctx, "AB12CD34", model.PaymentRejected, time.Now())
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Error("second decide must be a no-op")
	}

	got, err := s.GetPaymentRequest(ctx, "AB12CD34")
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != model.PaymentConfirmed {
		t.Errorf("status = %s, want confirmed", got.Status)
	}
}

func TestUpsertUserKeepsJoinedAt(t *testing.T) {
	s := NewMemory()
	ctx := context.Background()
	joined := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	u := &model.User{ID: 7, Username: "old", FullName: "Old Name", JoinedAt: joined, LastActive: joined}
	if err := s.UpsertUser(ctx, u); err != nil {
		t.Fatal(err)
	}
	later := joined.AddDate(0, 2, 0)
	u2 := &model.User{ID: 7, Username: "new", FullName: "New Name", JoinedAt: later, LastActive: later}
	if err := s.UpsertUser(ctx, u2); err != nil {
		t.Fatal(err)
	}

	got, err := s.GetUser(ctx, 7)
	if err != nil {
		t.Fatal(err)
	}
	if got.Username != "new" || got.FullName != "New Name" {
		t.Errorf("profile not refreshed: %+v", got)
	}
	if !got.JoinedAt.Equal(joined) {
		t.Errorf("joined_at changed to %v", got.JoinedAt)
	}
	if !got.LastActive.Equal(later) {
		t.Errorf("last_active = %v, want %v", got.LastActive, later)
	}
}

func TestSoftDeleteHidesReviews(t *testing.T) {
	s := NewMemory()
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := s.CreateReview(ctx, &model.Review{
			Plate: "123ABC02", Rating: 4, Comment: "нормальный водитель",
			AuthorID: int64(i + 1), CreatedAt: time.Now(),
		})
		if err != nil {
			t.Fatal(err)
		}
	}
	n, err := s.SoftDeleteReviewsByPlate(ctx, "123ABC02")
	if err != nil {
		t.Fatal(err)
	}
	if n != 3 {
		t.Errorf("deleted = %d, want 3", n)
	}
	rs, _ := s.ReviewsByPlate(ctx, "123ABC02")
	if len(rs) != 0 {
		t.Errorf("visible reviews = %d, want 0", len(rs))
	}
	st, _ := s.PlateStats(ctx, "123ABC02")
	if st.ReviewCount != 0 {
		t.Errorf("stats count = %d, want 0", st.ReviewCount)
	}
}
