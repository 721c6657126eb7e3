// Package format renders user-facing messages. Everything here is pure
// text assembly: no storage, no Telegram calls.
package format

import (
	"fmt"
	"strings"
	"time"

	tgformat "driverbot/core/telegram/format"
	"driverbot/internal/model"
	"driverbot/internal/tiers"
	"driverbot/internal/validate"
)

// esc neutralizes Markdown control characters in user-supplied text.
// Everything a user typed goes through here before embedding.
func esc(s string) string {
	return tgformat.EscapeMarkdown(s)
}

// Stars renders a rating as filled stars.
func Stars(rating int) string {
	if rating < 0 {
		rating = 0
	}
	if rating > 5 {
		rating = 5
	}
	return strings.Repeat("⭐", rating)
}

// Welcome greets a user on /start.
func Welcome(name string) string {
	return fmt.Sprintf(
		"👋 Привет, %s!\n\n"+
			"Я помогу узнать, что другие водители думают о машине по её номеру, "+
			"и оставить свой отзыв.\n\n"+
			"Выберите действие в меню ниже 👇",
		esc(name),
	)
}

// PlateReport renders a lookup result: header, visible reviews, and a
// teaser for reviews hidden by the tier. Hidden review content never
// appears in the output.
func PlateReport(plate string, stats model.PlateStats, reviews []model.Review, hidden int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "🚗 Номер: `%s`\n📍 Регион: %s\n\n", plate, validate.RegionName(plate))

	if stats.ReviewCount == 0 {
		b.WriteString("ℹ️ Отзывов об этом номере пока нет.\n\nВы можете оставить первый!")
		return b.String()
	}

	fmt.Fprintf(&b, "📊 Отзывов: %d\n⭐ Средняя оценка: %.1f\n", stats.ReviewCount, stats.AvgRating)
	if stats.LastReview != nil {
		fmt.Fprintf(&b, "🕐 Последний отзыв: %s\n", stats.LastReview.Format("02.01.2006"))
	}
	b.WriteString("\n")

	for i, r := range reviews {
		b.WriteString(ReviewBlock(r, i+1))
		b.WriteString("\n")
	}

	if hidden > 0 {
		fmt.Fprintf(&b, "🔒 Скрыто еще %d отзыв(ов)\n\n💎 Оформите подписку, чтобы видеть все отзывы!", hidden)
	}
	return strings.TrimRight(b.String(), "\n")
}

// ReviewBlock renders a single review with its ordinal.
func ReviewBlock(r model.Review, idx int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d. %s %s\n", idx, Stars(r.Rating), r.CreatedAt.Format("02.01.2006"))
	fmt.Fprintf(&b, "💬 %s\n", esc(r.Comment))
	if r.HasMedia() {
		b.WriteString("📎 Есть вложение\n")
	}
	if r.HasLocation() {
		fmt.Fprintf(&b, "📍 [Место на карте](https://www.google.com/maps?q=%f,%f)\n", *r.Latitude, *r.Longitude)
	}
	return b.String()
}

// ReviewAlert renders the notification watchers receive when a new
// review lands on their plate.
func ReviewAlert(plate string, rating int, comment string) string {
	return fmt.Sprintf(
		"🔔 *Новый отзыв о вашем авто!*\n\n🚗 Номер: `%s`\n⭐ Оценка: %s\n💬 %s",
		plate, Stars(rating), esc(comment),
	)
}

// SubscriptionInfo renders the user's current tier, its remaining days,
// and today's usage.
func SubscriptionInfo(tier tiers.Tier, a *model.TierAssignment, usage model.Usage, now time.Time) string {
	var b strings.Builder
	fmt.Fprintf(&b, "💎 *Ваша подписка*\n\nТариф: %s\n", tier.DisplayName)

	if a != nil && a.ExpiresAt != nil {
		days := int(a.ExpiresAt.Sub(now).Hours() / 24)
		if days < 0 {
			days = 0
		}
		fmt.Fprintf(&b, "⏳ Осталось дней: %d (до %s)\n", days, a.ExpiresAt.Format("02.01.2006"))
	}

	b.WriteString("\n")
	b.WriteString(tier.Description())
	b.WriteString("\n\n")

	if tier.MaxSearchesPerDay == tiers.Unlimited {
		fmt.Fprintf(&b, "🔍 Поисков сегодня: %d\n", usage.Searches)
	} else {
		fmt.Fprintf(&b, "🔍 Поисков сегодня: %d из %d\n", usage.Searches, tier.MaxSearchesPerDay)
	}
	return strings.TrimRight(b.String(), "\n")
}

// TierOffer renders one purchasable tier for the selection screen.
func TierOffer(t tiers.Tier) string {
	return fmt.Sprintf("%s — %d ₸ / %d дней\n%s", t.DisplayName, t.Price, t.DurationDays, t.Description())
}

// PaymentInstructions tells the user how to pay and what to quote.
func PaymentInstructions(kaspiPhone string, t tiers.Tier, paymentID string) string {
	return fmt.Sprintf(
		"💳 *Оплата подписки %s*\n\n"+
			"Сумма: *%d ₸*\n\n"+
			"1️⃣ Переведите сумму на Kaspi: `%s`\n"+
			"2️⃣ В комментарии к переводу укажите код: `%s`\n"+
			"3️⃣ Отправьте сюда скриншот чека\n\n"+
			"После проверки модератором подписка активируется автоматически.",
		t.DisplayName, t.Price, kaspiPhone, paymentID,
	)
}

// PaymentCard renders a pending request for the moderator.
func PaymentCard(p *model.PaymentRequest, u *model.User) string {
	var who string
	if u != nil {
		who = fmt.Sprintf("%s (@%s, id %d)", esc(u.FullName), esc(u.Username), u.ID)
	} else {
		who = fmt.Sprintf("id %d", p.UserID)
	}
	return fmt.Sprintf(
		"💰 *Новая оплата*\n\n"+
			"Код: `%s`\n"+
			"От: %s\n"+
			"Тариф: %s\n"+
			"Сумма: %d ₸",
		p.PaymentID, who, p.Tier, p.Amount,
	)
}

// GarageList renders the user's watched plates.
func GarageList(watches []model.Watch) string {
	if len(watches) == 0 {
		return "🚗 *Мой гараж*\n\nГараж пуст. Добавьте номер, чтобы получать уведомления о новых отзывах."
	}
	var b strings.Builder
	b.WriteString("🚗 *Мой гараж*\n\n")
	for i, w := range watches {
		fmt.Fprintf(&b, "%d. `%s` — отзывов: %d\n", i+1, w.Plate, w.ReviewCount)
	}
	b.WriteString("\nВы получаете уведомления о каждом новом отзыве на эти номера.")
	return b.String()
}

// MyStats renders the personal statistics screen.
func MyStats(u *model.User, tier tiers.Tier, reviewsWritten, garageUsed int, usage model.Usage) string {
	return fmt.Sprintf(
		"📊 *Моя статистика*\n\n"+
			"Тариф: %s\n"+
			"✍️ Отзывов написано: %d\n"+
			"🚗 Авто в гараже: %d\n"+
			"🔍 Поисков сегодня: %d\n"+
			"📅 С нами с: %s",
		tier.DisplayName, reviewsWritten, garageUsed, usage.Searches,
		u.JoinedAt.Format("02.01.2006"),
	)
}

// Invite renders the referral message with a deep link.
func Invite(botUsername string, userID int64) string {
	return fmt.Sprintf(
		"🎁 *Пригласите друга!*\n\n"+
			"Поделитесь ссылкой:\n"+
			"https://t.me/%s?start=ref_%d",
		botUsername, userID,
	)
}

// AdminStats renders the system summary for the moderator.
func AdminStats(st *model.AdminStats) string {
	return fmt.Sprintf(
		"📊 *Статистика*\n\n"+
			"👥 Пользователей: %d\n"+
			"🆕 Новых за неделю: %d\n"+
			"✍️ Отзывов: %d\n"+
			"🚗 Уникальных номеров: %d\n"+
			"💎 Активных подписок: %d\n"+
			"💰 Доход за 30 дней: %d ₸",
		st.TotalUsers, st.NewUsersWeek, st.TotalReviews,
		st.UniquePlates, st.ActiveSubs, st.MonthlyRevenue,
	)
}

// FinanceReport renders confirmed revenue by period and tier.
func FinanceReport(st *model.FinanceStats) string {
	var b strings.Builder
	b.WriteString("💰 *Финансы*\n\n")
	fmt.Fprintf(&b, "Сегодня: %d ₸\n", st.Today)
	fmt.Fprintf(&b, "За неделю: %d ₸\n", st.Week)
	fmt.Fprintf(&b, "За месяц: %d ₸\n", st.Month)
	fmt.Fprintf(&b, "Всего: %d ₸\n", st.Total)
	if len(st.ByTier) > 0 {
		b.WriteString("\n*По тарифам:*\n")
		for _, tr := range st.ByTier {
			fmt.Fprintf(&b, "• %s: %d шт, %d ₸\n", tr.Tier, tr.Count, tr.Revenue)
		}
	}
	fmt.Fprintf(&b, "\n⏳ Ожидают проверки: %d", st.Pending)
	return b.String()
}

// UserCard renders one user for the moderator's find tool.
func UserCard(u *model.User, tierName string, reviewsWritten int) string {
	ban := "нет"
	if u.IsBanned {
		ban = "да"
	}
	ref := "—"
	if u.ReferredBy != nil {
		ref = fmt.Sprintf("%d", *u.ReferredBy)
	}
	return fmt.Sprintf(
		"👤 *Пользователь*\n\n"+
			"ID: `%d`\n"+
			"Имя: %s\n"+
			"Username: @%s\n"+
			"Тариф: %s\n"+
			"Отзывов: %d\n"+
			"Бан: %s\n"+
			"Приглашен: %s\n"+
			"Регистрация: %s\n"+
			"Активность: %s",
		u.ID, esc(u.FullName), esc(u.Username), tierName, reviewsWritten, ban, ref,
		u.JoinedAt.Format("02.01.2006"), u.LastActive.Format("02.01.2006 15:04"),
	)
}

// BroadcastProgress renders the in-place progress edit.
func BroadcastProgress(done, total int) string {
	return fmt.Sprintf("📤 Рассылка: %d из %d...", done, total)
}

// BroadcastDone renders the final broadcast report.
func BroadcastDone(sent, failed int, d time.Duration) string {
	return fmt.Sprintf(
		"✅ Рассылка завершена\n\nДоставлено: %d\nОшибок: %d\nВремя: %s",
		sent, failed, d.Round(time.Second),
	)
}
