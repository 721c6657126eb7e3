package tiers

import "testing"

func testCatalog() *Catalog {
	return NewCatalog(Prices{Basic: 500, Premium: 1000, Business: 2500}, 3)
}

func TestSearchLimitBoundary(t *testing.T) {
	c := testCatalog()
	limit := c.Get(Free).MaxSearchesPerDay
	for usage := 0; usage < limit; usage++ {
		if d := c.Evaluate(Free, ActionSearch, usage); !d.Allowed {
			t.Errorf("usage %d of %d: expected allow, got %q", usage, limit, d.Reason)
		}
	}
	if d := c.Evaluate(Free, ActionSearch, limit); d.Allowed {
		t.Errorf("usage %d of %d: expected deny", limit, limit)
	}
	if d := c.Evaluate(Free, ActionSearch, limit); d.Reason == "" {
		t.Error("denial must carry a reason")
	}
}

func TestUnlimitedAlwaysAllows(t *testing.T) {
	c := testCatalog()
	for _, usage := range []int{0, 1, 100, 1 << 20} {
		if d := c.Evaluate(Basic, ActionSearch, usage); !d.Allowed {
			t.Errorf("basic search at usage %d: expected allow", usage)
		}
		if d := c.Evaluate(Premium, ActionTrack, usage); !d.Allowed {
			t.Errorf("premium track at usage %d: expected allow", usage)
		}
	}
}

func TestGarageLimits(t *testing.T) {
	c := testCatalog()
	cases := []struct {
		tier    string
		usage   int
		allowed bool
	}{
		{Free, 0, true},
		{Free, 1, false},
		{Basic, 2, true},
		{Basic, 3, false},
		{Business, 1000, true},
	}
	for _, tc := range cases {
		d := c.Evaluate(tc.tier, ActionTrack, tc.usage)
		if d.Allowed != tc.allowed {
			t.Errorf("%s track at %d: got allowed=%v, want %v", tc.tier, tc.usage, d.Allowed, tc.allowed)
		}
	}
}

func TestFlagActionsIgnoreUsage(t *testing.T) {
	c := testCatalog()
	if d := c.Evaluate(Free, ActionViewAllReviews, 0); d.Allowed {
		t.Error("free must not view all reviews")
	}
	if d := c.Evaluate(Basic, ActionViewAllReviews, 1<<20); !d.Allowed {
		t.Error("basic must view all reviews regardless of usage")
	}
	if d := c.Evaluate(Basic, ActionExportPDF, 0); d.Allowed {
		t.Error("basic must not export PDF")
	}
	if d := c.Evaluate(Premium, ActionExportPDF, 0); !d.Allowed {
		t.Error("premium must export PDF")
	}
	if d := c.Evaluate(Business, ActionAnalytics, 0); !d.Allowed {
		t.Error("business must see analytics")
	}
}

func TestUnknownTierDegradesToFree(t *testing.T) {
	c := testCatalog()
	got := c.Get("platinum")
	if got.Name != Free {
		t.Errorf("unknown tier resolved to %s, want free", got.Name)
	}
	if c.Known("platinum") {
		t.Error("platinum must not be a known tier")
	}
	if !c.Known("BASIC") {
		t.Error("tier lookup must be case-insensitive")
	}
}

func TestPaidOrderAndPrices(t *testing.T) {
	c := testCatalog()
	paid := c.Paid()
	if len(paid) != 3 {
		t.Fatalf("paid tiers = %d, want 3", len(paid))
	}
	want := []struct {
		name  string
		price int
	}{{Basic, 500}, {Premium, 1000}, {Business, 2500}}
	for i, w := range want {
		if paid[i].Name != w.name || paid[i].Price != w.price {
			t.Errorf("paid[%d] = %s/%d, want %s/%d", i, paid[i].Name, paid[i].Price, w.name, w.price)
		}
		if paid[i].DurationDays != 30 {
			t.Errorf("%s duration = %d, want 30", paid[i].Name, paid[i].DurationDays)
		}
	}
}
