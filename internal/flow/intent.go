package flow

import "strings"

// Menu button labels shown on the persistent reply keyboard.
const (
	BtnSearch       = "🔍 Проверить номер"
	BtnReview       = "✍️ Оставить отзыв"
	BtnGarage       = "🚗 Мой гараж"
	BtnSubscription = "💎 Подписка"
	BtnSupport      = "💬 Поддержка"
	BtnInvite       = "🎁 Пригласить друга"
	BtnMyStats      = "📊 Моя статистика"
	BtnSkip         = "⏭ Пропустить"
	BtnCancel       = "❌ Отменить"
)

// Intent is a global navigation action triggered by a menu button or
// command, valid at any point of any conversation.
type Intent string

const (
	IntentNone         Intent = ""
	IntentSearch       Intent = "search"
	IntentReview       Intent = "review"
	IntentGarage       Intent = "garage"
	IntentSubscription Intent = "subscription"
	IntentSupport      Intent = "support"
	IntentInvite       Intent = "invite"
	IntentMyStats      Intent = "my_stats"
	IntentCancel       Intent = "cancel"
)

// byLabel resolves exact button text to an intent. Cancel is global:
// pressing it mid-conversation abandons the conversation.
var byLabel = map[string]Intent{
	BtnSearch:       IntentSearch,
	BtnReview:       IntentReview,
	BtnGarage:       IntentGarage,
	BtnSubscription: IntentSubscription,
	BtnSupport:      IntentSupport,
	BtnInvite:       IntentInvite,
	BtnMyStats:      IntentMyStats,
	BtnCancel:       IntentCancel,
	"/cancel":       IntentCancel,
}

// DetectIntent maps message text to a navigation intent, or IntentNone
// when the text is plain conversation input.
func DetectIntent(text string) Intent {
	return byLabel[strings.TrimSpace(text)]
}

// IsSkip reports whether the text presses the skip button.
func IsSkip(text string) bool {
	return strings.TrimSpace(text) == BtnSkip
}
