package app

import (
	"fmt"

	corebootstrap "driverbot/core/bootstrap"
	coretelegram "driverbot/core/telegram"
	"driverbot/core/telegram/sender"
	"driverbot/core/telegram/state"
	"driverbot/internal/bot"
	"driverbot/internal/service"
	"driverbot/internal/storage"
	"driverbot/internal/tiers"
)

// App is the assembled application.
type App struct {
	cfg     *Config
	surface *bot.Bot
}

// Bootstrap initializes logging, the database, and every service, and
// wires the Telegram surface.
func Bootstrap(cfg *Config) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("app: nil config")
	}

	res, err := corebootstrap.Run(corebootstrap.Options{
		Config:   cfg.CoreConfig(),
		Database: cfg.Database,
	})
	if err != nil {
		return nil, err
	}

	store := storage.NewPostgres(res.DB)
	catalog := tiers.NewCatalog(tiers.Prices{
		Basic:    cfg.Payments.BasicPrice,
		Premium:  cfg.Payments.PremiumPrice,
		Business: cfg.Payments.BusinessPrice,
	}, cfg.Limits.FreeSearchesPerDay)

	notifier := bot.NewNotifier()
	users := service.NewUsers(store)
	ents := service.NewEntitlements(store, catalog)
	reviews := service.NewReviews(store, users, ents, notifier, cfg.Limits.MaxReviewsPerDay)
	watches := service.NewWatches(store, users, ents)
	payments := service.NewPayments(store, catalog, cfg.Core.Telegram.ModeratorID)
	broadcast := service.NewBroadcast(store, cfg.Limits.BroadcastPerSecond)
	reports := service.NewReports(store)

	surface := bot.New(bot.Options{
		Users:       users,
		Ents:        ents,
		Reviews:     reviews,
		Watches:     watches,
		Payments:    payments,
		Broadcast:   broadcast,
		Reports:     reports,
		FSM:         state.NewMemoryManager(),
		Notifier:    notifier,
		ModeratorID: cfg.Core.Telegram.ModeratorID,
		KaspiPhone:  cfg.Payments.KaspiPhone,
	})
	surface.RegisterStates()

	return &App{cfg: cfg, surface: surface}, nil
}

// TelegramRunOptions builds the bot runtime configuration.
func (a *App) TelegramRunOptions() (coretelegram.RunOptions, error) {
	reg := a.surface.BuildRegistry()
	return coretelegram.RunOptions{
		Config:            a.cfg.CoreConfig(),
		Registry:          reg,
		DispatcherOptions: sender.Options{},
		Middlewares:       coretelegram.DefaultMiddlewares(a.cfg.CoreConfig(), nil),
		Routes:            a.surface.Routes(reg),
		OnStart:           a.surface.OnStart,
		OnStop:            a.surface.OnStop,
	}, nil
}
