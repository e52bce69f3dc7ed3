package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"sol-price-alerts/internal/alert"
	"sol-price-alerts/internal/alerting"
	"sol-price-alerts/internal/card"
	"sol-price-alerts/internal/fetcher"
	"sol-price-alerts/internal/history"
	"sol-price-alerts/internal/state"
)

// Error categories. Every failed run maps onto exactly one of these so
// the caller can classify without parsing messages.
var (
	ErrFetch  = errors.New("quote fetch failed")
	ErrState  = errors.New("state persistence failed")
	ErrRender = errors.New("card rendering failed")
	ErrSend   = errors.New("notification send failed")
)

// CardRenderer renders the notification image for a decision.
type CardRenderer interface {
	Render(price, delta decimal.Decimal, dir alert.Direction) ([]byte, error)
}

// AlertHistory records fired alerts for auditing.
type AlertHistory interface {
	RecordAlert(ctx context.Context, rec history.Record) (int64, error)
}

// Service runs the fetch-decide-notify pipeline once per invocation.
type Service struct {
	quotes   fetcher.QuoteFetcher
	states   state.Store
	renderer CardRenderer
	notifier alerting.Notifier
	audit    AlertHistory // optional
	policy   alert.Policy
	symbol   string
	logger   zerolog.Logger
}

// New constructs the service. audit may be nil; notifier may be nil for
// render-only dry runs, in which case a fired decision is logged but
// not delivered.
func New(quotes fetcher.QuoteFetcher, states state.Store, renderer CardRenderer, notifier alerting.Notifier, audit AlertHistory, policy alert.Policy, symbol string, logger zerolog.Logger) *Service {
	return &Service{
		quotes:   quotes,
		states:   states,
		renderer: renderer,
		notifier: notifier,
		audit:    audit,
		policy:   policy,
		symbol:   symbol,
		logger:   logger.With().Str("component", "service").Logger(),
	}
}

// RunOnce executes one full run: load state, fetch the quote, decide,
// and on fire render, deliver, and record. State is persisted only
// after the decision is complete and the notification has either been
// delivered or intentionally skipped; every failure leaves the
// persisted state untouched.
func (s *Service) RunOnce(ctx context.Context) (alert.Decision, error) {
	prev, _, err := s.states.Load()
	if err != nil {
		return alert.Decision{}, fmt.Errorf("%w: %w", ErrState, err)
	}

	price, err := s.quotes.FetchQuote(ctx)
	if err != nil {
		return alert.Decision{}, fmt.Errorf("%w: %w", ErrFetch, err)
	}

	decision, next, err := alert.Decide(price, prev, s.policy)
	if err != nil {
		return alert.Decision{}, err
	}

	if decision.Seeded {
		// No baseline for the active mode yet, whether the state file
		// is absent or was written by the other mode. Store the fresh
		// baseline and send nothing.
		if err := s.states.Save(next); err != nil {
			return decision, fmt.Errorf("%w: %w", ErrState, err)
		}
		s.logger.Info().
			Str("price", decision.Price.String()).
			Msg("baseline initialized, no alert")
		return decision, nil
	}

	if !decision.Fire {
		s.logger.Info().
			Str("price", decision.Price.String()).
			Str("delta", decision.Delta.String()).
			Str("direction", string(decision.Direction)).
			Msg("no alert")
		return decision, nil
	}

	img, err := s.renderer.Render(decision.Price, decision.Delta, decision.Direction)
	if err != nil {
		return decision, fmt.Errorf("%w: %w", ErrRender, err)
	}

	if s.notifier != nil {
		note := alerting.Notification{
			Card:      img,
			Caption:   s.caption(decision),
			Price:     decision.Price,
			Delta:     decision.Delta,
			Direction: decision.Direction,
		}
		if err := s.notifier.Notify(ctx, note); err != nil {
			return decision, fmt.Errorf("%w: %w", ErrSend, err)
		}
	} else {
		s.logger.Warn().Msg("no notifier configured; alert not delivered")
	}

	if s.audit != nil {
		rec := history.Record{
			Symbol:    s.symbol,
			Mode:      string(s.policy.Mode),
			Price:     decision.Price,
			Delta:     decision.Delta,
			Level:     decision.Level,
			Direction: string(decision.Direction),
		}
		if _, err := s.audit.RecordAlert(ctx, rec); err != nil {
			// Auditing is best effort; the alert is already out.
			s.logger.Error().Err(err).Msg("failed to record alert history")
		}
	}

	if err := s.states.Save(next); err != nil {
		return decision, fmt.Errorf("%w: %w", ErrState, err)
	}

	s.logger.Info().
		Str("price", decision.Price.String()).
		Str("delta", decision.Delta.String()).
		Str("direction", string(decision.Direction)).
		Msg("alert fired")
	return decision, nil
}

func (s *Service) caption(d alert.Decision) string {
	switch s.policy.Mode {
	case alert.ModeBucket:
		return fmt.Sprintf("<b>%s</b> reached the $%d level\nCurrent: <b>%s</b>",
			s.symbol, d.Level, card.FormatUSD(d.Price))
	default:
		return fmt.Sprintf("<b>%s</b> moved %s since last alert\nCurrent: <b>%s</b>",
			s.symbol, card.FormatSignedDelta(d.Delta), card.FormatUSD(d.Price))
	}
}
