package tiers

import (
	"fmt"
	"strings"
)

// Unlimited marks a numeric limit with no ceiling.
const Unlimited = -1

// Tier names form a closed set. Any unknown name degrades to Free.
const (
	Free     = "free"
	Basic    = "basic"
	Premium  = "premium"
	Business = "business"
)

// Action identifies a capability checked against a tier.
type Action string

const (
	// ActionSearch is a plate lookup, limited per day on free tiers.
	ActionSearch Action = "search"
	// ActionTrack adds a plate to the user's garage, limited by garage size.
	ActionTrack Action = "track"
	// ActionViewAllReviews gates full review-history visibility.
	ActionViewAllReviews Action = "view_all_reviews"
	// ActionExportPDF gates PDF export.
	ActionExportPDF Action = "export_pdf"
	// ActionAnalytics gates analytics views.
	ActionAnalytics Action = "analytics"
)

// Tier bundles the limits and capability flags of one subscription level.
// Catalog data is immutable after construction.
type Tier struct {
	Name              string
	DisplayName       string
	Price             int // tenge
	DurationDays      int
	MaxSearchesPerDay int // Unlimited = no ceiling
	MaxGarageSlots    int // Unlimited = no ceiling
	ViewAllReviews    bool
	ExportPDF         bool
	Analytics         bool
	PrioritySupport   bool
}

// Prices carries the configurable part of the paid tiers.
type Prices struct {
	Basic    int
	Premium  int
	Business int
}

// Catalog is the full set of tier definitions.
type Catalog struct {
	byName map[string]Tier
	order  []string
}

// NewCatalog builds the tier catalog from configured prices and the
// free-tier daily search limit.
func NewCatalog(prices Prices, freeSearchesPerDay int) *Catalog {
	if freeSearchesPerDay <= 0 {
		freeSearchesPerDay = 3
	}
	defs := []Tier{
		{
			Name:              Free,
			DisplayName:       "🆓 Бесплатный",
			Price:             0,
			DurationDays:      0,
			MaxSearchesPerDay: freeSearchesPerDay,
			MaxGarageSlots:    1,
		},
		{
			Name:              Basic,
			DisplayName:       "⭐ Базовый",
			Price:             prices.Basic,
			DurationDays:      30,
			MaxSearchesPerDay: Unlimited,
			MaxGarageSlots:    3,
			ViewAllReviews:    true,
		},
		{
			Name:              Premium,
			DisplayName:       "💎 Премиум",
			Price:             prices.Premium,
			DurationDays:      30,
			MaxSearchesPerDay: Unlimited,
			MaxGarageSlots:    Unlimited,
			ViewAllReviews:    true,
			ExportPDF:         true,
			Analytics:         true,
			PrioritySupport:   true,
		},
		{
			Name:              Business,
			DisplayName:       "🏢 Бизнес",
			Price:             prices.Business,
			DurationDays:      30,
			MaxSearchesPerDay: Unlimited,
			MaxGarageSlots:    Unlimited,
			ViewAllReviews:    true,
			ExportPDF:         true,
			Analytics:         true,
			PrioritySupport:   true,
		},
	}
	c := &Catalog{byName: make(map[string]Tier, len(defs))}
	for _, t := range defs {
		c.byName[t.Name] = t
		c.order = append(c.order, t.Name)
	}
	return c
}

// Get returns the tier by name, degrading unknown names to Free.
func (c *Catalog) Get(name string) Tier {
	if t, ok := c.byName[strings.ToLower(strings.TrimSpace(name))]; ok {
		return t
	}
	return c.byName[Free]
}

// Known reports whether the name identifies a catalog tier.
func (c *Catalog) Known(name string) bool {
	_, ok := c.byName[strings.ToLower(strings.TrimSpace(name))]
	return ok
}

// Paid lists the purchasable tiers in catalog order.
func (c *Catalog) Paid() []Tier {
	out := make([]Tier, 0, len(c.order)-1)
	for _, name := range c.order {
		if name == Free {
			continue
		}
		out = append(out, c.byName[name])
	}
	return out
}

// Decision is the outcome of an entitlement check.
type Decision struct {
	Allowed bool
	Reason  string
}

// Evaluate answers whether the given action is permitted for a tier at the
// supplied usage count. It is a pure function over caller-supplied state:
// it never reads or writes storage.
func (c *Catalog) Evaluate(tierName string, action Action, currentUsage int) Decision {
	t := c.Get(tierName)

	switch action {
	case ActionSearch:
		return limitDecision(t.MaxSearchesPerDay, currentUsage, fmt.Sprintf(
			"❌ Достигнут лимит поисков (%d/день)\n\n💎 Обновите подписку для безлимитного доступа!",
			t.MaxSearchesPerDay,
		))
	case ActionTrack:
		return limitDecision(t.MaxGarageSlots, currentUsage, fmt.Sprintf(
			"❌ Достигнут лимит авто в гараже (%d)\n\n💎 Обновите подписку для добавления большего количества авто!",
			t.MaxGarageSlots,
		))
	case ActionViewAllReviews:
		if !t.ViewAllReviews {
			return Decision{Reason: "🔒 Доступен только первый отзыв\n\n💎 Оформите подписку для просмотра всех отзывов!"}
		}
	case ActionExportPDF:
		if !t.ExportPDF {
			return Decision{Reason: "🔒 Экспорт в PDF доступен только в Премиум и Бизнес подписках"}
		}
	case ActionAnalytics:
		if !t.Analytics {
			return Decision{Reason: "🔒 Аналитика доступна только в Премиум и Бизнес подписках"}
		}
	}
	return Decision{Allowed: true}
}

func limitDecision(limit, usage int, reason string) Decision {
	if limit == Unlimited {
		return Decision{Allowed: true}
	}
	if usage >= limit {
		return Decision{Reason: reason}
	}
	return Decision{Allowed: true}
}

// Description renders a human-readable list of a tier's capabilities.
func (t Tier) Description() string {
	var features []string

	if t.MaxSearchesPerDay == Unlimited {
		features = append(features, "✅ Неограниченные поиски")
	} else {
		features = append(features, fmt.Sprintf("✅ До %d поисков в день", t.MaxSearchesPerDay))
	}

	if t.MaxGarageSlots == Unlimited {
		features = append(features, "✅ Неограниченное количество авто в гараже")
	} else {
		features = append(features, fmt.Sprintf("✅ До %d авто в гараже", t.MaxGarageSlots))
	}

	if t.ViewAllReviews {
		features = append(features, "✅ Просмотр всех отзывов")
	} else {
		features = append(features, "❌ Только первый отзыв")
	}
	if t.ExportPDF {
		features = append(features, "✅ Экспорт в PDF")
	}
	if t.Analytics {
		features = append(features, "✅ Аналитика и статистика")
	}
	if t.PrioritySupport {
		features = append(features, "✅ Приоритетная поддержка")
	}

	return strings.Join(features, "\n")
}
