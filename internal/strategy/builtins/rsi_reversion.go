package builtins

import (
	"saturn/internal/domain"
	"saturn/internal/indicator"
	"saturn/internal/strategy"
)

// Compile-time interface check.
var _ strategy.Strategy = (*RSIReversion)(nil)

// RSIReversion implements a mean-reversion strategy on RSI: buy when the RSI
// drops below the oversold threshold while flat, close the position when it
// rises above the overbought threshold.
type RSIReversion struct {
	period       int
	oversold     float64
	overbought   float64
	positionFrac float64
}

// NewRSIReversion creates an RSIReversion strategy with the classic 30/70
// thresholds.
func NewRSIReversion(period int) *RSIReversion {
	return &RSIReversion{
		period:       period,
		oversold:     30,
		overbought:   70,
		positionFrac: DefaultPositionFrac,
	}
}

// Name returns "rsi-reversion".
func (s *RSIReversion) Name() string {
	return "rsi-reversion"
}

// SetPositionFrac overrides the fraction of cash committed per entry.
func (s *RSIReversion) SetPositionFrac(frac float64) {
	if frac > 0 && frac <= 1 {
		s.positionFrac = frac
	}
}

// Decide buys oversold bars and sells overbought ones. No signal while the
// RSI is inside its warm-up window or between the thresholds.
func (s *RSIReversion) Decide(bar indicator.EnrichedBar, positions map[string]domain.Position, cash float64) *domain.OrderIntent {
	rsi, ok := bar.At(indicator.RSIName(s.period))
	if !ok {
		return nil
	}

	pos, held := positions[bar.Symbol]

	switch {
	case rsi < s.oversold && !held:
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
	case rsi > s.overbought && held:
		return &domain.OrderIntent{
			Symbol: bar.Symbol,
			Side:   domain.OrderSideSell,
			Qty:    pos.Qty,
			Kind:   domain.OrderKindMarket,
		}
	}
	return nil
}
