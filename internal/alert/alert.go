package alert

import (
	"fmt"

	"github.com/shopspring/decimal"

	"sol-price-alerts/internal/state"
)

// Mode selects the alert policy.
type Mode string

const (
	// ModeDelta fires when the price has moved by at least the
	// configured absolute amount since the last fired alert.
	ModeDelta Mode = "delta"
	// ModeBucket fires when the price reaches a strictly higher
	// multiple-of-step level than the last fired alert.
	ModeBucket Mode = "bucket"
)

// Direction classifies the price move carried by a decision.
type Direction string

const (
	DirectionUp   Direction = "up"
	DirectionDown Direction = "down"
	DirectionFlat Direction = "flat"
)

// Policy parameterises a decision.
type Policy struct {
	Mode      Mode
	Threshold decimal.Decimal // ModeDelta: minimum absolute move
	Step      int64           // ModeBucket: bucket size
}

// Decision is the outcome of one run against the persisted baseline.
type Decision struct {
	Fire      bool
	Seeded    bool            // no baseline existed for the active mode; next carries a fresh one
	Price     decimal.Decimal // quantized in delta mode
	Delta     decimal.Decimal // move since the baseline
	Level     int64           // bucket mode: current bucket level
	Direction Direction
}

// Quantize rounds to 2 decimal places, halves away from zero.
func Quantize(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// Decide evaluates the current price against the persisted baseline
// under the given policy. It never mutates prev; the caller decides
// whether to persist the returned state. With no prior baseline the
// decision never fires and the returned state carries the new baseline.
func Decide(price decimal.Decimal, prev state.State, p Policy) (Decision, state.State, error) {
	switch p.Mode {
	case ModeDelta:
		return decideDelta(price, prev, p)
	case ModeBucket:
		return decideBucket(price, prev, p)
	default:
		return Decision{}, prev, fmt.Errorf("unknown alert mode %q", p.Mode)
	}
}

func decideDelta(price decimal.Decimal, prev state.State, p Policy) (Decision, state.State, error) {
	if p.Threshold.IsNegative() {
		return Decision{}, prev, fmt.Errorf("delta threshold cannot be negative")
	}

	q := Quantize(price)

	if prev.LastPrice == nil {
		// No baseline for this mode yet, even if the state file holds
		// the other mode's field. Establish one without firing.
		dec := Decision{Seeded: true, Price: q, Direction: DirectionFlat}
		return dec, prev.WithLastPrice(q), nil
	}

	last := Quantize(*prev.LastPrice)
	delta := Quantize(q.Sub(last))

	dec := Decision{
		Price:     q,
		Delta:     delta,
		Direction: classify(delta),
	}

	if delta.Abs().LessThan(p.Threshold) {
		return dec, prev, nil
	}

	// The baseline tracks the price at the last fired alert, not the
	// last poll, so every comparison is relative to the previous
	// notification.
	dec.Fire = true
	return dec, prev.WithLastPrice(q), nil
}

func decideBucket(price decimal.Decimal, prev state.State, p Policy) (Decision, state.State, error) {
	if p.Step <= 0 {
		return Decision{}, prev, fmt.Errorf("bucket step must be positive")
	}

	level := BucketLevel(price, p.Step)

	if prev.LastStep == nil {
		dec := Decision{Seeded: true, Price: Quantize(price), Level: level, Direction: DirectionFlat}
		return dec, prev.WithLastStep(level), nil
	}

	last := *prev.LastStep
	delta := Quantize(price).Sub(decimal.NewFromInt(last))

	dec := Decision{
		Price:     Quantize(price),
		Delta:     delta,
		Level:     level,
		Direction: classify(delta),
	}

	// Milestone semantics: only a strictly higher bucket fires, and a
	// decrease never rewinds the stored level.
	if level <= last {
		return dec, prev, nil
	}

	dec.Fire = true
	return dec, prev.WithLastStep(level), nil
}

// BucketLevel returns the largest multiple of step not greater than
// price, flooring toward negative infinity.
func BucketLevel(price decimal.Decimal, step int64) int64 {
	s := decimal.NewFromInt(step)
	q, r := price.QuoRem(s, 0)
	level := q.IntPart()
	if r.IsNegative() {
		level--
	}
	return level * step
}

func classify(delta decimal.Decimal) Direction {
	switch delta.Sign() {
	case 1:
		return DirectionUp
	case -1:
		return DirectionDown
	default:
		return DirectionFlat
	}
}
