package bot

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"driverbot/core/telegram/helpers"
	"driverbot/internal/flow"
	"driverbot/internal/format"
	"driverbot/internal/service"

	tele "gopkg.in/telebot.v4"
)

// requireModerator guards moderator callbacks: command routes are wrapped
// by middleware, but callbacks arrive on the shared OnCallback endpoint.
func (b *Bot) requireModerator(c tele.Context) bool {
	if c.Sender() != nil && c.Sender().ID == b.moderatorID {
		return true
	}
	_ = c.Respond(&tele.CallbackResponse{Text: "Недостаточно прав"})
	return false
}

func (b *Bot) handleAdmin(c tele.Context) error {
	return helpers.SendMD(c, "🛠 *Панель модератора*", adminKeyboard())
}

func (b *Bot) cbAdminStats(c tele.Context) error {
	if !b.requireModerator(c) {
		return nil
	}
	if _, err := ParseAction(c); err != nil {
		return err
	}
	ctx := helpers.BuildContext(c)
	stats, err := b.reports.Admin(ctx)
	if err != nil {
		return err
	}
	return helpers.EditOrSendMD(c, format.AdminStats(stats), adminKeyboard())
}

func (b *Bot) cbAdminFinance(c tele.Context) error {
	if !b.requireModerator(c) {
		return nil
	}
	if _, err := ParseAction(c); err != nil {
		return err
	}
	ctx := helpers.BuildContext(c)
	stats, err := b.reports.Finance(ctx)
	if err != nil {
		return err
	}
	return helpers.EditOrSendMD(c, format.FinanceReport(stats), adminKeyboard())
}

func (b *Bot) cbAdminBroadcast(c tele.Context) error {
	if !b.requireModerator(c) {
		return nil
	}
	if _, err := ParseAction(c); err != nil {
		return err
	}
	b.fsm.Clear(c.Sender().ID)
	b.fsm.SetState(c.Sender().ID, st(flow.StepAdminBroadcast))
	return helpers.SendText(c, "📤 Отправьте текст рассылки:",
		&tele.SendOptions{ReplyMarkup: cancelMenu()})
}

// stepAdminBroadcast starts the broadcast in the background so the
// moderator's chat stays responsive. Progress is edited into one message.
func (b *Bot) stepAdminBroadcast(c tele.Context) error {
	ctx := helpers.BuildContext(c)
	text := c.Text()
	b.advance(c.Sender().ID, flow.StepAdminBroadcast, flow.EventInput)

	tb := b.liveBot()
	if tb == nil {
		return ErrNotAttached
	}
	progressMsg, err := tb.Send(tele.ChatID(b.moderatorID), format.BroadcastProgress(0, 0))
	if err != nil {
		return err
	}

	go func(ctx context.Context) {
		rep, runErr := b.broadcast.Run(ctx,
			func(userID int64) error {
				_, sendErr := tb.Send(tele.ChatID(userID), text)
				return sendErr
			},
			func(done, total int) {
				_, _ = tb.Edit(progressMsg, format.BroadcastProgress(done, total))
			},
		)
		if runErr != nil {
			_, _ = tb.Edit(progressMsg, "❌ Рассылка прервана: "+runErr.Error())
			return
		}
		_, _ = tb.Edit(progressMsg, format.BroadcastDone(rep.Sent, rep.Failed, rep.Duration))
	}(context.WithoutCancel(ctx))

	return nil
}

func (b *Bot) cbAdminDelPlate(c tele.Context) error {
	if !b.requireModerator(c) {
		return nil
	}
	if _, err := ParseAction(c); err != nil {
		return err
	}
	b.fsm.Clear(c.Sender().ID)
	b.fsm.SetState(c.Sender().ID, st(flow.StepAdminDeletePlate))
	return helpers.SendText(c, "🗑 Введите номер, отзывы о котором нужно удалить:",
		&tele.SendOptions{ReplyMarkup: cancelMenu()})
}

func (b *Bot) stepAdminDelPlate(c tele.Context) error {
	ctx := helpers.BuildContext(c)
	b.advance(c.Sender().ID, flow.StepAdminDeletePlate, flow.EventInput)
	n, err := b.reviews.DeletePlate(ctx, c.Text())
	if err != nil {
		return err
	}
	return helpers.SendText(c, fmt.Sprintf("🗑 Удалено отзывов: %d", n),
		&tele.SendOptions{ReplyMarkup: mainMenu()})
}

func (b *Bot) cbAdminFindUser(c tele.Context) error {
	if !b.requireModerator(c) {
		return nil
	}
	if _, err := ParseAction(c); err != nil {
		return err
	}
	b.fsm.Clear(c.Sender().ID)
	b.fsm.SetState(c.Sender().ID, st(flow.StepAdminFindUser))
	return helpers.SendText(c, "🔎 Отправьте ID или @username пользователя:",
		&tele.SendOptions{ReplyMarkup: cancelMenu()})
}

func (b *Bot) stepAdminFindUser(c tele.Context) error {
	ctx := helpers.BuildContext(c)
	b.advance(c.Sender().ID, flow.StepAdminFindUser, flow.EventInput)

	u, err := b.users.FindByRef(ctx, strings.TrimSpace(c.Text()))
	if err != nil {
		return replyServiceError(c, err)
	}
	tier, _, err := b.ents.CurrentTier(ctx, u.ID)
	if err != nil {
		return err
	}
	written, err := b.reviews.CountByAuthor(ctx, u.ID)
	if err != nil {
		return err
	}
	return helpers.SendMD(c, format.UserCard(u, tier.DisplayName, written), banKeyboard(u.ID, u.IsBanned))
}

func (b *Bot) cbAdminBan(c tele.Context) error {
	if !b.requireModerator(c) {
		return nil
	}
	action, err := ParseAction(c)
	if err != nil {
		return err
	}
	op, rawID, found := strings.Cut(action.Arg, ":")
	if !found || (op != "ban" && op != "unban") {
		return fmt.Errorf("%w: ban arg %q", ErrBadAction, action.Arg)
	}
	userID, err := strconv.ParseInt(rawID, 10, 64)
	if err != nil {
		return fmt.Errorf("%w: ban target %q", ErrBadAction, rawID)
	}

	ctx := helpers.BuildContext(c)
	banned := op == "ban"
	if err := b.users.SetBanned(ctx, userID, banned); err != nil {
		return replyServiceError(c, err)
	}
	status := "♻️ Пользователь разбанен"
	if banned {
		status = "🚫 Пользователь забанен"
	}
	return helpers.EditOrSendMD(c, fmt.Sprintf("%s: `%d`", status, userID), banKeyboard(userID, banned))
}

// ==================== Payment decisions ====================

func (b *Bot) cbConfirmPay(c tele.Context) error {
	return b.decidePayment(c, true)
}

func (b *Bot) cbRejectPay(c tele.Context) error {
	return b.decidePayment(c, false)
}

func (b *Bot) decidePayment(c tele.Context, approve bool) error {
	action, err := ParseAction(c)
	if err != nil {
		return err
	}
	ctx := helpers.BuildContext(c)

	p, err := b.payments.Decide(ctx, c.Sender().ID, action.Arg, approve)
	switch {
	case errors.Is(err, service.ErrNotModerator):
		return c.Respond(&tele.CallbackResponse{Text: "Недостаточно прав"})
	case errors.Is(err, service.ErrAlreadyDecided):
		return helpers.EditOrSendMD(c, fmt.Sprintf("ℹ️ Заявка `%s` уже обработана (%s).", p.PaymentID, p.Status))
	case err != nil:
		return replyServiceError(c, err)
	}

	var moderatorNote, userNote string
	if approve {
		tier := b.ents.Catalog().Get(p.Tier)
		moderatorNote = fmt.Sprintf("✅ Оплата `%s` подтверждена, тариф %s активирован.", p.PaymentID, tier.DisplayName)
		userNote = fmt.Sprintf(
			"✅ *Оплата подтверждена!*\n\nПодписка %s активна на %d дней. Приятного пользования!",
			tier.DisplayName, tier.DurationDays,
		)
	} else {
		moderatorNote = fmt.Sprintf("❌ Оплата `%s` отклонена.", p.PaymentID)
		userNote = "❌ *Оплата не прошла проверку.*\n\nЕсли вы уверены, что перевод был, напишите в поддержку."
	}

	if b.notifier != nil {
		if err := b.notifier.Notify(ctx, p.UserID, userNote); err != nil {
			moderatorNote += "\n⚠️ Не удалось уведомить пользователя."
		}
	}
	return helpers.EditOrSendMD(c, moderatorNote)
}
