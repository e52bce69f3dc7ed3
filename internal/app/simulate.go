package app

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"

	"sol-price-alerts/internal/alert"
	"sol-price-alerts/internal/fetcher"
	"sol-price-alerts/internal/service"
	"sol-price-alerts/internal/state"
)

// SimulateAlert runs the full decide-render-send path against a
// synthetic quote and an in-memory baseline shifted by delta, without
// touching the persisted state file.
func (a *App) SimulateAlert(ctx context.Context, price, delta decimal.Decimal) error {
	renderer, err := a.newRenderer()
	if err != nil {
		return err
	}
	notifier, err := a.newNotifier()
	if err != nil {
		return err
	}
	if notifier == nil {
		return errors.New("telegram must be enabled to simulate an alert")
	}
	policy, err := a.Config.Policy()
	if err != nil {
		return err
	}

	states := &memStore{}
	baseline := alert.Quantize(price.Sub(delta))
	switch policy.Mode {
	case alert.ModeBucket:
		states.st = state.State{}.WithLastStep(alert.BucketLevel(baseline, policy.Step))
	default:
		states.st = state.State{}.WithLastPrice(baseline)
	}
	states.found = true

	svc := service.New(&staticFetcher{price: price}, states, renderer, notifier, nil, policy, a.Config.Quote.Symbol, a.Logger)

	decision, err := svc.RunOnce(ctx)
	if err != nil {
		return err
	}
	if !decision.Fire {
		a.Logger.Info().
			Str("price", decision.Price.String()).
			Str("delta", decision.Delta.String()).
			Msg("simulated move stays under the threshold; nothing sent")
	}
	return nil
}

type staticFetcher struct {
	price decimal.Decimal
}

func (s *staticFetcher) FetchQuote(ctx context.Context) (decimal.Decimal, error) {
	return s.price, nil
}

type memStore struct {
	st    state.State
	found bool
}

func (m *memStore) Load() (state.State, bool, error) { return m.st, m.found, nil }

func (m *memStore) Save(st state.State) error {
	m.st = st
	m.found = true
	return nil
}

var _ fetcher.QuoteFetcher = (*staticFetcher)(nil)
var _ state.Store = (*memStore)(nil)
