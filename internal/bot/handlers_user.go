package bot

import (
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"driverbot/core/logger"
	"driverbot/core/telegram/helpers"
	"driverbot/core/telegram/state"
	"driverbot/internal/flow"
	"driverbot/internal/format"
	"driverbot/internal/service"
	"driverbot/internal/validate"

	tele "gopkg.in/telebot.v4"
)

func st(step flow.Step) state.State {
	return state.State(step)
}

// handleStart registers the user, honoring ref_<id> deep links, and shows
// the main menu.
func (b *Bot) handleStart(c tele.Context) error {
	ctx := helpers.BuildContext(c)
	sender := c.Sender()

	var ref int64
	if p := c.Message().Payload; strings.HasPrefix(p, "ref_") {
		ref, _ = strconv.ParseInt(strings.TrimPrefix(p, "ref_"), 10, 64)
	}

	fullName := strings.TrimSpace(sender.FirstName + " " + sender.LastName)
	if _, err := b.users.Register(ctx, sender.ID, sender.Username, fullName, ref); err != nil {
		return err
	}
	b.fsm.Clear(sender.ID)

	name := sender.FirstName
	if name == "" {
		name = "водитель"
	}
	return helpers.SendMD(c, format.Welcome(name), mainMenu())
}

func (b *Bot) handleHelp(c tele.Context) error {
	return helpers.SendMD(c,
		"ℹ️ *Как пользоваться ботом*\n\n"+
			"🔍 *Проверить номер* — узнать отзывы о водителе\n"+
			"✍️ *Оставить отзыв* — оценить водителя по номеру авто\n"+
			"🚗 *Мой гараж* — следить за отзывами на свои номера\n"+
			"💎 *Подписка* — снять дневные лимиты\n\n"+
			"Номер вводится в формате 123ABC02 (две последние цифры — код региона).",
		mainMenu())
}

// ==================== Navigation ====================

// promptSearch opens the lookup conversation. The quota is checked up
// front so a user over the limit never enters the flow.
func (b *Bot) promptSearch(c tele.Context) error {
	ctx := helpers.BuildContext(c)
	userID := c.Sender().ID
	b.fsm.Clear(userID)
	if err := b.ents.CheckSearchQuota(ctx, userID); err != nil {
		return b.replyDenied(c, err)
	}
	b.fsm.SetState(userID, st(flow.StepSearchPlate))
	return helpers.SendText(c, "🔍 Введите номер авто (например, 123ABC02):",
		&tele.SendOptions{ReplyMarkup: cancelMenu()})
}

// promptReview opens the review conversation. A user at the daily cap
// is turned away before the first step.
func (b *Bot) promptReview(c tele.Context) error {
	ctx := helpers.BuildContext(c)
	userID := c.Sender().ID
	b.fsm.Clear(userID)
	if err := b.reviews.CheckDailyCap(ctx, userID); err != nil {
		return b.replyDenied(c, err)
	}
	b.fsm.SetState(userID, st(flow.StepReviewPlate))
	return helpers.SendText(c, "✍️ Введите номер авто, о котором хотите оставить отзыв:",
		&tele.SendOptions{ReplyMarkup: cancelMenu()})
}

func (b *Bot) showGarage(c tele.Context) error {
	ctx := helpers.BuildContext(c)
	b.fsm.Clear(c.Sender().ID)
	watches, err := b.watches.List(ctx, c.Sender().ID)
	if err != nil {
		return err
	}
	return helpers.SendMD(c, format.GarageList(watches), garageKeyboard(watches))
}

func (b *Bot) showSubscription(c tele.Context) error {
	ctx := helpers.BuildContext(c)
	b.fsm.Clear(c.Sender().ID)
	userID := c.Sender().ID

	tier, assignment, err := b.ents.CurrentTier(ctx, userID)
	if err != nil {
		return err
	}
	usage, err := b.ents.Usage(ctx, userID)
	if err != nil {
		return err
	}
	text := format.SubscriptionInfo(tier, assignment, usage, timeNow())
	return helpers.SendMD(c, text, tierKeyboard(b.ents.Catalog().Paid()))
}

func (b *Bot) showSupport(c tele.Context) error {
	b.fsm.Clear(c.Sender().ID)
	return helpers.SendMD(c,
		"💬 *Поддержка*\n\nОпишите проблему одним сообщением, и мы ответим как можно быстрее.",
		mainMenu())
}

func (b *Bot) showInvite(c tele.Context) error {
	b.fsm.Clear(c.Sender().ID)
	return helpers.SendMD(c, format.Invite(b.botUsername(), c.Sender().ID), mainMenu())
}

func (b *Bot) showMyStats(c tele.Context) error {
	ctx := helpers.BuildContext(c)
	b.fsm.Clear(c.Sender().ID)
	userID := c.Sender().ID

	u, err := b.users.GetUserByTelegramID(ctx, userID)
	if err != nil {
		return replyServiceError(c, err)
	}
	tier, _, err := b.ents.CurrentTier(ctx, userID)
	if err != nil {
		return err
	}
	written, err := b.reviews.CountByAuthor(ctx, userID)
	if err != nil {
		return err
	}
	garage, err := b.watches.Count(ctx, userID)
	if err != nil {
		return err
	}
	usage, err := b.ents.Usage(ctx, userID)
	if err != nil {
		return err
	}
	return helpers.SendMD(c, format.MyStats(u, tier, written, garage, usage), mainMenu())
}

func (b *Bot) cancelAll(c tele.Context) error {
	b.fsm.Clear(c.Sender().ID)
	return helpers.SendText(c, "❌ Действие отменено.",
		&tele.SendOptions{ReplyMarkup: mainMenu()})
}

// ==================== Search conversation ====================

func (b *Bot) stepSearchPlate(c tele.Context) error {
	ctx := helpers.BuildContext(c)
	userID := c.Sender().ID

	if reason := validate.ValidatePlate(c.Text()); reason != "" {
		return helpers.SendText(c, reason+"\n\nПопробуйте еще раз:")
	}

	res, err := b.reviews.Lookup(ctx, userID, c.Text())
	if err != nil {
		b.fsm.Clear(userID)
		return replyServiceError(c, err)
	}
	b.advance(userID, flow.StepSearchPlate, flow.EventInput)

	if err := helpers.SendMD(c, format.PlateReport(res.Plate, res.Stats, res.Reviews, res.Hidden),
		shareKeyboard(res.Plate, res.Hidden > 0)); err != nil {
		return err
	}
	return helpers.SendText(c, "Выберите следующее действие 👇",
		&tele.SendOptions{ReplyMarkup: mainMenu()})
}

// ==================== Review conversation ====================

func (b *Bot) stepReviewPlate(c tele.Context) error {
	userID := c.Sender().ID
	if reason := validate.ValidatePlate(c.Text()); reason != "" {
		return helpers.SendText(c, reason+"\n\nПопробуйте еще раз:")
	}
	b.fsm.SetTemp(userID, tmpPlate, validate.CleanPlate(c.Text()))
	b.advance(userID, flow.StepReviewPlate, flow.EventInput)
	return helpers.SendMD(c, "⭐ Оцените водителя:", ratingKeyboard())
}

// stepReviewRating accepts a typed digit as a fallback to the rating
// buttons.
func (b *Bot) stepReviewRating(c tele.Context) error {
	rating, err := strconv.Atoi(strings.TrimSpace(c.Text()))
	if err != nil || !validate.ValidRating(rating) {
		return helpers.SendText(c, "Выберите оценку кнопкой выше или отправьте цифру от 1 до 5.")
	}
	return b.acceptRating(c, rating)
}

func (b *Bot) acceptRating(c tele.Context, rating int) error {
	userID := c.Sender().ID
	b.fsm.SetTemp(userID, tmpRating, rating)
	b.advance(userID, flow.StepReviewRating, flow.EventInput)
	return helpers.SendText(c, "💬 Напишите комментарий (от 10 до 1000 символов):",
		&tele.SendOptions{ReplyMarkup: cancelMenu()})
}

func (b *Bot) cbRate(c tele.Context) error {
	action, err := ParseAction(c)
	if err != nil {
		return err
	}
	if b.fsm.GetState(c.Sender().ID) != st(flow.StepReviewRating) {
		return c.Respond(&tele.CallbackResponse{Text: "Сейчас это действие недоступно"})
	}
	rating, err := strconv.Atoi(action.Arg)
	if err != nil || !validate.ValidRating(rating) {
		return fmt.Errorf("%w: rating %q", ErrBadAction, action.Arg)
	}
	return b.acceptRating(c, rating)
}

func (b *Bot) stepReviewComment(c tele.Context) error {
	userID := c.Sender().ID
	comment := validate.SanitizeText(c.Text())
	if reason := validate.ValidateComment(comment); reason != "" {
		return helpers.SendText(c, reason+"\n\nПопробуйте еще раз:")
	}
	b.fsm.SetTemp(userID, tmpComment, comment)
	b.advance(userID, flow.StepReviewComment, flow.EventInput)
	return helpers.SendText(c, "📍 Отправьте место, где это произошло, или пропустите этот шаг:",
		&tele.SendOptions{ReplyMarkup: locationMenu()})
}

func (b *Bot) stepReviewLocation(c tele.Context) error {
	userID := c.Sender().ID
	msg := c.Message()

	ev := flow.EventInput
	switch {
	case msg != nil && msg.Location != nil:
		b.fsm.SetTemp(userID, tmpLat, float64(msg.Location.Lat))
		b.fsm.SetTemp(userID, tmpLon, float64(msg.Location.Lng))
	case flow.IsSkip(c.Text()):
		ev = flow.EventSkip
	default:
		return helpers.SendText(c, "Отправьте геолокацию кнопкой или нажмите «⏭ Пропустить».")
	}

	b.advance(userID, flow.StepReviewLocation, ev)
	return helpers.SendText(c, "📎 Прикрепите фото или видео, либо пропустите этот шаг:",
		&tele.SendOptions{ReplyMarkup: skipCancelMenu()})
}

func (b *Bot) stepReviewMedia(c tele.Context) error {
	userID := c.Sender().ID
	msg := c.Message()

	switch {
	case msg != nil && msg.Photo != nil:
		b.fsm.SetTemp(userID, tmpPhotoID, msg.Photo.FileID)
	case msg != nil && msg.Video != nil:
		b.fsm.SetTemp(userID, tmpVideoID, msg.Video.FileID)
	case flow.IsSkip(c.Text()):
		// optional step
	default:
		return helpers.SendText(c, "Прикрепите фото или видео, либо нажмите «⏭ Пропустить».")
	}
	return b.finalizeReview(c)
}

// finalizeReview assembles the collected steps and stores the review.
// The conversation is cleared no matter the outcome.
func (b *Bot) finalizeReview(c tele.Context) error {
	ctx := helpers.BuildContext(c)
	userID := c.Sender().ID
	sender := c.Sender()

	in := service.NewReview{
		AuthorID:       userID,
		AuthorName:     strings.TrimSpace(sender.FirstName + " " + sender.LastName),
		AuthorUsername: sender.Username,
	}
	in.Plate, _ = b.fsm.GetTempString(userID, tmpPlate)
	in.Rating, _ = b.fsm.GetTempInt(userID, tmpRating)
	in.Comment, _ = b.fsm.GetTempString(userID, tmpComment)
	in.PhotoID, _ = b.fsm.GetTempString(userID, tmpPhotoID)
	in.VideoID, _ = b.fsm.GetTempString(userID, tmpVideoID)
	if lat, ok := b.fsm.GetTemp(userID, tmpLat); ok {
		if lon, ok2 := b.fsm.GetTemp(userID, tmpLon); ok2 {
			latF, okLat := lat.(float64)
			lonF, okLon := lon.(float64)
			if okLat && okLon {
				in.Latitude, in.Longitude = &latF, &lonF
			}
		}
	}

	b.advance(userID, flow.StepReviewMedia, flow.EventInput)

	if _, err := b.reviews.Create(ctx, in); err != nil {
		if repErr := replyServiceError(c, err); repErr != nil {
			return repErr
		}
		return helpers.SendText(c, "Выберите следующее действие 👇",
			&tele.SendOptions{ReplyMarkup: mainMenu()})
	}
	return helpers.SendText(c, "✅ Отзыв сохранен! Спасибо, что делаете дороги безопаснее.",
		&tele.SendOptions{ReplyMarkup: mainMenu()})
}

// ==================== Garage ====================

func (b *Bot) cbAddCar(c tele.Context) error {
	if _, err := ParseAction(c); err != nil {
		return err
	}
	ctx := helpers.BuildContext(c)
	userID := c.Sender().ID
	b.fsm.Clear(userID)
	if err := b.ents.CheckGarageSlot(ctx, userID); err != nil {
		return b.replyDenied(c, err)
	}
	b.fsm.SetState(userID, st(flow.StepGaragePlate))
	return helpers.SendText(c, "🚗 Введите номер вашего авто:",
		&tele.SendOptions{ReplyMarkup: cancelMenu()})
}

func (b *Bot) stepGaragePlate(c tele.Context) error {
	ctx := helpers.BuildContext(c)
	userID := c.Sender().ID

	if reason := validate.ValidatePlate(c.Text()); reason != "" {
		return helpers.SendText(c, reason+"\n\nПопробуйте еще раз:")
	}

	plate, err := b.watches.Add(ctx, userID, c.Text())
	b.advance(userID, flow.StepGaragePlate, flow.EventInput)
	switch {
	case errors.Is(err, service.ErrDuplicateWatch):
		return helpers.SendText(c, "ℹ️ Номер `"+plate+"` уже в вашем гараже.",
			&tele.SendOptions{ParseMode: tele.ModeMarkdown, ReplyMarkup: mainMenu()})
	case err != nil:
		return replyServiceError(c, err)
	}
	return helpers.SendText(c,
		"✅ Номер `"+plate+"` добавлен в гараж. Вы будете получать уведомления о новых отзывах.",
		&tele.SendOptions{ParseMode: tele.ModeMarkdown, ReplyMarkup: mainMenu()})
}

func (b *Bot) cbViewCar(c tele.Context) error {
	action, err := ParseAction(c)
	if err != nil {
		return err
	}
	ctx := helpers.BuildContext(c)
	stats, reviews, err := b.reviews.PlateOverview(ctx, action.Arg)
	if err != nil {
		return err
	}
	return helpers.EditOrSendMD(c, format.PlateReport(action.Arg, stats, reviews, 0))
}

func (b *Bot) cbRemoveCar(c tele.Context) error {
	action, err := ParseAction(c)
	if err != nil {
		return err
	}
	ctx := helpers.BuildContext(c)
	if err := b.watches.Remove(ctx, c.Sender().ID, action.Arg); err != nil {
		return replyServiceError(c, err)
	}
	watches, err := b.watches.List(ctx, c.Sender().ID)
	if err != nil {
		return err
	}
	return helpers.EditOrSendMD(c, format.GarageList(watches), garageKeyboard(watches))
}

// ==================== Sharing ====================

func (b *Bot) cbShare(c tele.Context) error {
	action, err := ParseAction(c)
	if err != nil {
		return err
	}
	text := fmt.Sprintf(
		"🔍 Проверьте водителя по номеру авто!\n\nНомер: `%s`\n\nСмотрите отзывы в @%s",
		action.Arg, b.botUsername(),
	)
	return helpers.SendMD(c, text)
}

// ==================== Subscription purchase ====================

// cbUpgrade opens the subscription view from a locked plate report.
func (b *Bot) cbUpgrade(c tele.Context) error {
	if _, err := ParseAction(c); err != nil {
		return err
	}
	return b.showSubscription(c)
}

func (b *Bot) cbBuy(c tele.Context) error {
	action, err := ParseAction(c)
	if err != nil {
		return err
	}
	ctx := helpers.BuildContext(c)
	userID := c.Sender().ID

	p, err := b.payments.CreateRequest(ctx, userID, action.Arg)
	if err != nil {
		return replyServiceError(c, err)
	}

	b.fsm.Clear(userID)
	b.fsm.SetTemp(userID, tmpPaymentID, p.PaymentID)
	b.fsm.SetState(userID, st(flow.StepPaymentReceipt))

	tier := b.ents.Catalog().Get(p.Tier)
	return helpers.SendMD(c, format.PaymentInstructions(b.kaspiPhone, tier, p.PaymentID), cancelMenu())
}

func (b *Bot) stepPaymentReceipt(c tele.Context) error {
	ctx := helpers.BuildContext(c)
	userID := c.Sender().ID
	msg := c.Message()

	if msg == nil || (msg.Photo == nil && msg.Document == nil) {
		return helpers.SendText(c, "Отправьте скриншот чека об оплате (фото или файл).")
	}

	paymentID, ok := b.fsm.GetTempString(userID, tmpPaymentID)
	if !ok {
		b.fsm.Clear(userID)
		return helpers.SendText(c, "❌ Заявка не найдена. Начните оформление заново.",
			&tele.SendOptions{ReplyMarkup: mainMenu()})
	}

	p, err := b.payments.Get(ctx, paymentID)
	if err != nil {
		b.fsm.Clear(userID)
		return replyServiceError(c, err)
	}

	tb := b.liveBot()
	if tb == nil {
		return ErrNotAttached
	}
	u, _ := b.users.GetUserByTelegramID(ctx, userID)
	mod := tele.ChatID(b.moderatorID)

	_, sendErr := tb.Send(mod, format.PaymentCard(p, u), tele.ModeMarkdown, paymentDecisionKeyboard(paymentID))
	var fwdErr error
	if sendErr == nil {
		_, fwdErr = tb.Forward(mod, msg)
	}

	// The session never stays at the receipt step: a failed delivery is
	// reported as retryable, not left to strand the user.
	b.advance(userID, flow.StepPaymentReceipt, flow.EventInput)

	settled, reply := receiptOutcome(sendErr, fwdErr)
	if !settled {
		logger.LogEvent(ctx, logger.TG, slog.LevelWarn, "payment.receipt_delivery_failed",
			slog.String("payment_id", paymentID),
			slog.String("err", sendErr.Error()),
		)
	} else if fwdErr != nil {
		logger.LogEvent(ctx, logger.TG, slog.LevelWarn, "payment.receipt_forward_failed",
			slog.String("payment_id", paymentID),
			slog.String("err", fwdErr.Error()),
		)
	}
	return helpers.SendText(c, reply, &tele.SendOptions{ReplyMarkup: mainMenu()})
}

// receiptOutcome maps moderator-delivery results to the user reply.
// A failed card send leaves nothing with the moderator, so the user is
// asked to resubmit; a failed forward is tolerated because the card
// alone carries the payment id and decision buttons.
func receiptOutcome(sendErr, fwdErr error) (settled bool, reply string) {
	if sendErr != nil {
		return false, "❌ Не удалось отправить чек на проверку. Попробуйте снова через раздел «💎 Подписка»."
	}
	if fwdErr != nil {
		return true, "✅ Чек принят. Если модератору понадобится оригинал, мы запросим его отдельно."
	}
	return true, "✅ Чек отправлен на проверку. Обычно это занимает до 30 минут, мы сообщим о результате."
}
