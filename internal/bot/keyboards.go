package bot

import (
	"fmt"
	"strconv"

	"driverbot/core/telegram/keyboard"
	"driverbot/internal/flow"
	"driverbot/internal/model"
	"driverbot/internal/tiers"

	tele "gopkg.in/telebot.v4"
)

// mainMenu is the persistent reply keyboard shown after every finished
// action.
func mainMenu() *tele.ReplyMarkup {
	return keyboard.ReplyButtons(
		[]string{flow.BtnSearch, flow.BtnReview},
		[]string{flow.BtnGarage, flow.BtnSubscription},
		[]string{flow.BtnMyStats, flow.BtnInvite},
		[]string{flow.BtnSupport},
	)
}

// cancelMenu offers only the cancel button mid-conversation.
func cancelMenu() *tele.ReplyMarkup {
	return keyboard.ReplyButtons([]string{flow.BtnCancel})
}

// skipCancelMenu offers skip and cancel on optional steps.
func skipCancelMenu() *tele.ReplyMarkup {
	return keyboard.ReplyButtons([]string{flow.BtnSkip}, []string{flow.BtnCancel})
}

// locationMenu asks for a geolocation with skip and cancel fallbacks.
func locationMenu() *tele.ReplyMarkup {
	markup := &tele.ReplyMarkup{ResizeKeyboard: true}
	markup.Reply(
		markup.Row(markup.Location("📍 Отправить геолокацию")),
		markup.Row(markup.Text(flow.BtnSkip)),
		markup.Row(markup.Text(flow.BtnCancel)),
	)
	return markup
}

// ratingKeyboard renders the five rating buttons in one row.
func ratingKeyboard() *tele.ReplyMarkup {
	btns := make([]keyboard.InlineBtn, 0, 5)
	for r := 1; r <= 5; r++ {
		btns = append(btns, keyboard.InlineBtn{
			Text:   strconv.Itoa(r) + "⭐",
			Unique: string(VerbRate),
			Data:   encodeArg(strconv.Itoa(r)),
		})
	}
	return keyboard.InlineButtonsNPerRow(btns, 5)
}

// tierKeyboard renders one buy button per purchasable tier.
func tierKeyboard(paid []tiers.Tier) *tele.ReplyMarkup {
	btns := make([]keyboard.InlineBtn, 0, len(paid))
	for _, t := range paid {
		btns = append(btns, keyboard.InlineBtn{
			Text:   fmt.Sprintf("%s — %d ₸", t.DisplayName, t.Price),
			Unique: string(VerbBuy),
			Data:   encodeArg(t.Name),
		})
	}
	return keyboard.InlineButtons(btns)
}

// garageKeyboard renders one row per watched plate plus the add button.
func garageKeyboard(watches []model.Watch) *tele.ReplyMarkup {
	rows := make([][]keyboard.InlineBtn, 0, len(watches)+1)
	for _, w := range watches {
		rows = append(rows, []keyboard.InlineBtn{
			{Text: "👁 " + w.Plate, Unique: string(VerbViewCar), Data: encodeArg(w.Plate)},
			{Text: "🗑", Unique: string(VerbRemoveCar), Data: encodeArg(w.Plate)},
		})
	}
	rows = append(rows, []keyboard.InlineBtn{
		{Text: "➕ Добавить авто", Unique: string(VerbAddCar), Data: encodeArg("")},
	})
	return keyboard.InlineButtonsRows(rows...)
}

// paymentDecisionKeyboard is attached to the moderator's payment card.
func paymentDecisionKeyboard(paymentID string) *tele.ReplyMarkup {
	return keyboard.InlineButtonsRows([]keyboard.InlineBtn{
		{Text: "✅ Подтвердить", Unique: string(VerbConfirmPay), Data: encodeArg(paymentID)},
		{Text: "❌ Отклонить", Unique: string(VerbRejectPay), Data: encodeArg(paymentID)},
	})
}

// shareKeyboard is attached to plate reports. When part of the report
// is hidden by the tier, an upgrade button is added.
func shareKeyboard(plate string, locked bool) *tele.ReplyMarkup {
	rows := [][]keyboard.InlineBtn{
		{{Text: "📤 Поделиться", Unique: string(VerbShare), Data: encodeArg(plate)}},
	}
	if locked {
		rows = append(rows, []keyboard.InlineBtn{
			{Text: "💎 Открыть все отзывы", Unique: string(VerbUpgrade), Data: encodeArg("")},
		})
	}
	return keyboard.InlineButtonsRows(rows...)
}

// adminKeyboard is the moderator panel.
func adminKeyboard() *tele.ReplyMarkup {
	return keyboard.InlineButtonsRows(
		[]keyboard.InlineBtn{
			{Text: "📊 Статистика", Unique: string(VerbAdminStats), Data: encodeArg("")},
			{Text: "💰 Финансы", Unique: string(VerbAdminFinance), Data: encodeArg("")},
		},
		[]keyboard.InlineBtn{
			{Text: "📤 Рассылка", Unique: string(VerbAdminBroadcast), Data: encodeArg("")},
			{Text: "🗑 Удалить номер", Unique: string(VerbAdminDelPlate), Data: encodeArg("")},
		},
		[]keyboard.InlineBtn{
			{Text: "🔎 Найти пользователя", Unique: string(VerbAdminFindUser), Data: encodeArg("")},
		},
	)
}

// banKeyboard toggles a user's ban from their card.
func banKeyboard(userID int64, banned bool) *tele.ReplyMarkup {
	label := "🚫 Забанить"
	arg := fmt.Sprintf("ban:%d", userID)
	if banned {
		label = "♻️ Разбанить"
		arg = fmt.Sprintf("unban:%d", userID)
	}
	return keyboard.InlineButtons([]keyboard.InlineBtn{
		{Text: label, Unique: string(VerbAdminBan), Data: encodeArg(arg)},
	})
}
