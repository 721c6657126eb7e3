package bot

import (
	"context"

	tg "driverbot/core/telegram"
	"driverbot/core/telegram/commands"
	"driverbot/core/telegram/helpers"
	"driverbot/core/telegram/router"
	"driverbot/internal/flow"

	tele "gopkg.in/telebot.v4"
)

// BuildRegistry declares every command and callback the bot serves.
func (b *Bot) BuildRegistry() *tg.Registry {
	reg := tg.NewRegistry()

	reg.RegisterCommand("/start", commands.Command{
		Handler:     b.handleStart,
		Description: "Запустить бота",
	})
	reg.RegisterCommand("/help", commands.Command{
		Handler:     b.handleHelp,
		Description: "Как пользоваться ботом",
	})
	reg.RegisterCommand("/admin", commands.Command{
		Handler:       b.handleAdmin,
		Description:   "Панель модератора",
		ModeratorOnly: true,
	})

	cbs := map[Verb]tele.HandlerFunc{
		VerbRate:       b.cbRate,
		VerbShare:      b.cbShare,
		VerbBuy:        b.cbBuy,
		VerbConfirmPay: b.cbConfirmPay,
		VerbRejectPay:  b.cbRejectPay,
		VerbViewCar:    b.cbViewCar,
		VerbRemoveCar:  b.cbRemoveCar,
		VerbAddCar:     b.cbAddCar,
		VerbUpgrade:    b.cbUpgrade,
		VerbCancel:     b.cbCancel,

		VerbAdminStats:     b.cbAdminStats,
		VerbAdminFinance:   b.cbAdminFinance,
		VerbAdminBroadcast: b.cbAdminBroadcast,
		VerbAdminDelPlate:  b.cbAdminDelPlate,
		VerbAdminFindUser:  b.cbAdminFindUser,
		VerbAdminBan:       b.cbAdminBan,
	}
	for verb, h := range cbs {
		_ = reg.RegisterCallback(string(verb), h)
	}

	reg.SetTextFallback(b.unknownText)
	return reg
}

// RegisterStates binds every conversation step to its handler.
func (b *Bot) RegisterStates() {
	b.fsm.RegisterHandler(st(flow.StepSearchPlate), b.stepSearchPlate)
	b.fsm.RegisterHandler(st(flow.StepReviewPlate), b.stepReviewPlate)
	b.fsm.RegisterHandler(st(flow.StepReviewRating), b.stepReviewRating)
	b.fsm.RegisterHandler(st(flow.StepReviewComment), b.stepReviewComment)
	b.fsm.RegisterHandler(st(flow.StepReviewLocation), b.stepReviewLocation)
	b.fsm.RegisterHandler(st(flow.StepReviewMedia), b.stepReviewMedia)
	b.fsm.RegisterHandler(st(flow.StepGaragePlate), b.stepGaragePlate)
	b.fsm.RegisterHandler(st(flow.StepPaymentReceipt), b.stepPaymentReceipt)
	b.fsm.RegisterHandler(st(flow.StepAdminBroadcast), b.stepAdminBroadcast)
	b.fsm.RegisterHandler(st(flow.StepAdminDeletePlate), b.stepAdminDelPlate)
	b.fsm.RegisterHandler(st(flow.StepAdminFindUser), b.stepAdminFindUser)
}

// NavFilter handles global menu buttons before any conversation step.
// A recognized button abandons the active conversation.
func (b *Bot) NavFilter(c tele.Context) (bool, error) {
	intent := flow.DetectIntent(c.Text())
	if intent == flow.IntentNone {
		return false, nil
	}
	switch intent {
	case flow.IntentSearch:
		return true, b.promptSearch(c)
	case flow.IntentReview:
		return true, b.promptReview(c)
	case flow.IntentGarage:
		return true, b.showGarage(c)
	case flow.IntentSubscription:
		return true, b.showSubscription(c)
	case flow.IntentSupport:
		return true, b.showSupport(c)
	case flow.IntentInvite:
		return true, b.showInvite(c)
	case flow.IntentMyStats:
		return true, b.showMyStats(c)
	case flow.IntentCancel:
		return true, b.cancelAll(c)
	}
	return false, nil
}

// Routes assembles every endpoint: text with nav and FSM dispatch, media
// endpoints feeding active conversations, callbacks, and commands.
func (b *Bot) Routes(reg *tg.Registry) []tg.Route {
	routes := router.TextRoutes(b.fsm, reg, router.TextOptions{
		Nav:          b.NavFilter,
		UnknownText:  b.unknownText,
		UnknownMedia: b.unknownMedia,
		MediaEndpoints: []any{
			tele.OnPhoto, tele.OnVideo, tele.OnLocation, tele.OnDocument,
		},
	})
	routes = append(routes, router.CallbackRoute(reg, router.CallbackOptions{}))
	routes = append(routes, router.CommandRoutes(reg, router.CommandRouteOptions{
		ModeratorID: b.moderatorID,
		OnReject: func(c tele.Context) error {
			return helpers.SendText(c, "Недостаточно прав.")
		},
	})...)
	return routes
}

func (b *Bot) unknownText(c tele.Context) error {
	return helpers.SendText(c, "Не понимаю 🤔 Выберите действие в меню ниже.",
		&tele.SendOptions{ReplyMarkup: mainMenu()})
}

func (b *Bot) unknownMedia(c tele.Context) error {
	return helpers.SendText(c, "Сейчас я не жду вложений. Выберите действие в меню ниже.",
		&tele.SendOptions{ReplyMarkup: mainMenu()})
}

func (b *Bot) cbCancel(c tele.Context) error {
	if _, err := ParseAction(c); err != nil {
		return err
	}
	b.fsm.Clear(c.Sender().ID)
	return helpers.EditOrSendMD(c, "❌ Отменено.")
}

// OnStart attaches the notifier and tells the moderator the bot is up.
func (b *Bot) OnStart(_ context.Context, rt tg.Runtime) error {
	if b.notifier != nil {
		b.notifier.Attach(rt.Bot)
	}
	if b.moderatorID != 0 {
		_, _ = rt.Bot.Send(tele.ChatID(b.moderatorID), "✅ Бот запущен!")
	}
	return nil
}

// OnStop drains notification fanouts and tells the moderator the bot is
// going down.
func (b *Bot) OnStop(_ context.Context, rt tg.Runtime) error {
	if b.moderatorID != 0 {
		_, _ = rt.Bot.Send(tele.ChatID(b.moderatorID), "⚠️ Бот остановлен")
	}
	b.reviews.WaitFanouts()
	if b.notifier != nil {
		b.notifier.Detach()
	}
	return nil
}
