package format

import (
	"strings"
	"testing"
	"time"

	"driverbot/internal/model"
	"driverbot/internal/tiers"
)

func sampleReviews(n int) []model.Review {
	out := make([]model.Review, 0, n)
	base := time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < n; i++ {
		out = append(out, model.Review{
			ID:        int64(i + 1),
			Plate:     "123ABC02",
			Rating:    4,
			Comment:   "комментарий номер " + string(rune('A'+i)),
			CreatedAt: base.AddDate(0, 0, i),
		})
	}
	return out
}

func TestPlateReportHidesRestrictedReviews(t *testing.T) {
	all := sampleReviews(3)
	stats := model.PlateStats{ReviewCount: 3, AvgRating: 4.0}

	// free tier: only the first review is passed in, two are hidden
	out := PlateReport("123ABC02", stats, all[:1], 2)

	if !strings.Contains(out, all[0].Comment) {
		t.Error("first review must be visible")
	}
	for _, r := range all[1:] {
		if strings.Contains(out, r.Comment) {
			t.Errorf("hidden review %d leaked into output", r.ID)
		}
	}
	if !strings.Contains(out, "Скрыто еще 2") {
		t.Error("teaser with hidden count expected")
	}
	if !strings.Contains(out, "Алматы") {
		t.Error("region name expected in header")
	}
}

func TestPlateReportNoReviews(t *testing.T) {
	out := PlateReport("123ABC17", model.PlateStats{}, nil, 0)
	if !strings.Contains(out, "Отзывов об этом номере пока нет") {
		t.Errorf("empty report = %q", out)
	}
	if !strings.Contains(out, "Шымкент") {
		t.Error("region name expected")
	}
}

func TestPlateReportFullVisibility(t *testing.T) {
	all := sampleReviews(3)
	stats := model.PlateStats{ReviewCount: 3, AvgRating: 4.0}
	out := PlateReport("123ABC02", stats, all, 0)
	for _, r := range all {
		if !strings.Contains(out, r.Comment) {
			t.Errorf("review %d missing from full report", r.ID)
		}
	}
	if strings.Contains(out, "Скрыто") {
		t.Error("no teaser expected with full visibility")
	}
}

func TestReviewBlockLocationLink(t *testing.T) {
	lat, lon := 43.238949, 76.889709
	r := model.Review{Rating: 5, Comment: "довез быстро", CreatedAt: time.Now(), Latitude: &lat, Longitude: &lon}
	out := ReviewBlock(r, 1)
	if !strings.Contains(out, "https://www.google.com/maps?q=43.238949,76.889709") {
		t.Errorf("map link missing: %q", out)
	}
}

// Comments are user text: Markdown control characters must come out
// escaped or the transport rejects the whole message.
func TestReviewBlockEscapesUserText(t *testing.T) {
	r := model.Review{
		Rating:    2,
		Comment:   "подрезал *дважды* и `сигналил`, ник water_mark",
		CreatedAt: time.Now(),
	}
	out := ReviewBlock(r, 1)
	for _, want := range []string{`\*дважды\*`, "\\`сигналил\\`", `water\_mark`} {
		if !strings.Contains(out, want) {
			t.Errorf("escaped form %q missing from %q", want, out)
		}
	}
}

func TestReviewAlertEscapesComment(t *testing.T) {
	out := ReviewAlert("123ABC02", 1, "хам [и грубиян]")
	if !strings.Contains(out, `\[и грубиян]`) {
		t.Errorf("alert = %q", out)
	}
	if !strings.Contains(out, "`123ABC02`") {
		t.Error("plate must stay in code span")
	}
	if !strings.Contains(out, "⭐") {
		t.Error("rating stars expected")
	}
}

func TestUserCardEscapesNames(t *testing.T) {
	u := &model.User{
		ID:         42,
		Username:   "mr_underscore",
		FullName:   "Иван *Грозный*",
		JoinedAt:   time.Now(),
		LastActive: time.Now(),
	}
	out := UserCard(u, "🆓 Бесплатный", 3)
	if !strings.Contains(out, `mr\_underscore`) || !strings.Contains(out, `\*Грозный\*`) {
		t.Errorf("card = %q", out)
	}
}

func TestSubscriptionInfoDaysLeft(t *testing.T) {
	catalog := tiers.NewCatalog(tiers.Prices{Basic: 500, Premium: 1000, Business: 2500}, 3)
	now := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	exp := now.AddDate(0, 0, 12)
	a := &model.TierAssignment{UserID: 1, Tier: tiers.Basic, ExpiresAt: &exp}

	out := SubscriptionInfo(catalog.Get(tiers.Basic), a, model.Usage{Searches: 5}, now)
	if !strings.Contains(out, "Осталось дней: 12") {
		t.Errorf("days left missing: %q", out)
	}
	if !strings.Contains(out, "Поисков сегодня: 5") {
		t.Error("usage missing")
	}

	free := SubscriptionInfo(catalog.Get(tiers.Free), nil, model.Usage{Searches: 2}, now)
	if !strings.Contains(free, "Поисков сегодня: 2 из 3") {
		t.Errorf("free usage with limit missing: %q", free)
	}
}

func TestPaymentInstructions(t *testing.T) {
	catalog := tiers.NewCatalog(tiers.Prices{Basic: 500, Premium: 1000, Business: 2500}, 3)
	out := PaymentInstructions("+7 777 123 45 67", catalog.Get(tiers.Premium), "AB12CD34")
	for _, want := range []string{"1000 ₸", "+7 777 123 45 67", "AB12CD34"} {
		if !strings.Contains(out, want) {
			t.Errorf("instructions missing %q", want)
		}
	}
}

func TestStars(t *testing.T) {
	if Stars(3) != "⭐⭐⭐" {
		t.Errorf("Stars(3) = %q", Stars(3))
	}
	if Stars(0) != "" || Stars(-1) != "" {
		t.Error("non-positive ratings render empty")
	}
	if Stars(9) != Stars(5) {
		t.Error("ratings clamp at 5")
	}
}

func TestBroadcastTexts(t *testing.T) {
	if got := BroadcastProgress(10, 100); !strings.Contains(got, "10 из 100") {
		t.Errorf("progress = %q", got)
	}
	done := BroadcastDone(95, 5, 9500*time.Millisecond)
	if !strings.Contains(done, "Доставлено: 95") || !strings.Contains(done, "Ошибок: 5") {
		t.Errorf("done = %q", done)
	}
}
