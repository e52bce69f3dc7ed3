package app

import (
	"context"
	"errors"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"

	"sol-price-alerts/internal/alerting"
	"sol-price-alerts/internal/card"
	"sol-price-alerts/internal/config"
	"sol-price-alerts/internal/fetcher"
	"sol-price-alerts/internal/history"
	"sol-price-alerts/internal/scheduler"
	"sol-price-alerts/internal/service"
	"sol-price-alerts/internal/state"
)

// App aggregates configuration and shared dependencies for the CLI
// commands.
type App struct {
	Config *config.Config
	Logger zerolog.Logger
}

// NewApp constructs a new application handle.
func NewApp(cfg *config.Config, logger zerolog.Logger) *App {
	return &App{Config: cfg, Logger: logger.With().Str("component", "app").Logger()}
}

func (a *App) newFetcher() fetcher.QuoteFetcher {
	return fetcher.NewBinance(fetcher.BinanceOptions{
		BaseURL:   a.Config.Quote.BaseURL,
		Symbol:    a.Config.Quote.Symbol,
		Timeout:   a.Config.Quote.RequestTimeout,
		UserAgent: a.Config.Quote.UserAgent,
	}, a.Logger)
}

func (a *App) newRenderer() (*card.Renderer, error) {
	return card.NewRenderer(a.Config.CardOptions(), a.Logger)
}

func (a *App) newNotifier() (alerting.Notifier, error) {
	if !a.Config.Telegram.Enabled {
		return nil, nil
	}
	cfg := a.Config.Telegram
	return alerting.NewTelegramNotifier(cfg.BotToken, cfg.ChatID, cfg.APIBase, a.Logger)
}

func (a *App) openHistory() (*history.Store, func(), error) {
	if a.Config.History.Path == "" {
		return nil, nil, nil
	}
	store, err := history.Open(a.Config.History.Path)
	if err != nil {
		return nil, nil, err
	}
	return store, func() { store.Close() }, nil
}

func (a *App) newService(states state.Store) (*service.Service, func(), error) {
	renderer, err := a.newRenderer()
	if err != nil {
		return nil, nil, err
	}

	notifier, err := a.newNotifier()
	if err != nil {
		return nil, nil, err
	}
	if notifier == nil {
		a.Logger.Warn().Msg("telegram not enabled; fired alerts will not be delivered")
	}

	policy, err := a.Config.Policy()
	if err != nil {
		return nil, nil, err
	}

	audit, closeAudit, err := a.openHistory()
	if err != nil {
		return nil, nil, err
	}

	var auditStore service.AlertHistory
	if audit != nil {
		auditStore = audit
	}

	svc := service.New(a.newFetcher(), states, renderer, notifier, auditStore, policy, a.Config.Quote.Symbol, a.Logger)
	if closeAudit == nil {
		closeAudit = func() {}
	}
	return svc, closeAudit, nil
}

// RunOnce executes a single fetch-decide-notify cycle against the
// persisted state file.
func (a *App) RunOnce(ctx context.Context) error {
	svc, closer, err := a.newService(state.NewFileStore(a.Config.State.Path))
	if err != nil {
		return err
	}
	defer closer()

	_, err = svc.RunOnce(ctx)
	return err
}

// Watch runs the one-shot cycle on an aligned interval for deployments
// without an external scheduler.
func (a *App) Watch(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	svc, closer, err := a.newService(state.NewFileStore(a.Config.State.Path))
	if err != nil {
		return err
	}
	defer closer()

	sched := scheduler.New(a.Config.Watch.Interval, a.Logger)

	a.Logger.Info().Dur("interval", a.Config.Watch.Interval).Msg("starting watch loop")
	err = sched.Run(ctx, func(ctx context.Context) error {
		_, err := svc.RunOnce(ctx)
		return err
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
