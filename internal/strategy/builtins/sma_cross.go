// Package builtins provides the built-in strategy implementations that ship
// with the saturn engine.
package builtins

import (
	"math"

	"saturn/internal/domain"
	"saturn/internal/indicator"
	"saturn/internal/strategy"
)

// DefaultPositionFrac is the fraction of available cash a built-in strategy
// commits to a new position when no explicit fraction is configured.
const DefaultPositionFrac = 0.95

// Compile-time interface check.
var _ strategy.Strategy = (*SMACross)(nil)

// SMACross implements a simple moving average crossover strategy. It buys
// when the short-period SMA crosses above the long-period SMA while flat,
// and closes the position when the short SMA crosses back below.
type SMACross struct {
	shortPeriod  int
	longPeriod   int
	positionFrac float64
}

// NewSMACross creates an SMACross strategy with the specified short and long
// moving average periods.
func NewSMACross(short, long int) *SMACross {
	return &SMACross{
		shortPeriod:  short,
		longPeriod:   long,
		positionFrac: DefaultPositionFrac,
	}
}

// Name returns "sma-cross".
func (s *SMACross) Name() string {
	return "sma-cross"
}

// SetPositionFrac overrides the fraction of cash committed per entry.
func (s *SMACross) SetPositionFrac(frac float64) {
	if frac > 0 && frac <= 1 {
		s.positionFrac = frac
	}
}

// Decide emits a buy on an upward crossover while flat and a full-position
// sell on a downward crossover. No signal while either SMA is warming up.
func (s *SMACross) Decide(bar indicator.EnrichedBar, positions map[string]domain.Position, cash float64) *domain.OrderIntent {
	shortName := indicator.SMAName(s.shortPeriod)
	longName := indicator.SMAName(s.longPeriod)

	short, ok1 := bar.At(shortName)
	long, ok2 := bar.At(longName)
	prevShort, ok3 := bar.PrevAt(shortName)
	prevLong, ok4 := bar.PrevAt(longName)
	if !ok1 || !ok2 || !ok3 || !ok4 {
		return nil
	}

	pos, held := positions[bar.Symbol]

	crossUp := prevShort <= prevLong && short > long
	crossDown := prevShort >= prevLong && short < long

	switch {
	case crossUp && !held:
		qty := sizeBuy(cash, bar.Close, s.positionFrac)
		if qty <= 0 {
			return nil
		}
		return &domain.OrderIntent{
			Symbol: bar.Symbol,
			Side:   domain.OrderSideBuy,
			Qty:    qty,
			Kind:   domain.OrderKindMarket,
		}
	case crossDown && held:
		return &domain.OrderIntent{
			Symbol: bar.Symbol,
			Side:   domain.OrderSideSell,
			Qty:    pos.Qty,
			Kind:   domain.OrderKindMarket,
		}
	}
	return nil
}

// sizeBuy converts a cash fraction into a whole number of shares, rounding
// down. Fractional share counts are never requested.
func sizeBuy(cash, price, frac float64) int64 {
	if cash <= 0 || price <= 0 || frac <= 0 {
		return 0
	}
	return int64(math.Floor(cash * frac / price))
}
