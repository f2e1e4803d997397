package builtins

import (
	"saturn/internal/domain"
	"saturn/internal/indicator"
	"saturn/internal/strategy"
)

// Compile-time interface check.
var _ strategy.Strategy = (*MACDCross)(nil)

// MACDCross trades MACD-line crossings of the signal line: buy when the MACD
// line crosses above the signal line while flat, close the position on the
// reverse cross.
type MACDCross struct {
	positionFrac float64
}

// NewMACDCross creates a MACDCross strategy. The MACD periods themselves are
// configured on the indicator pipeline, not here.
func NewMACDCross() *MACDCross {
	return &MACDCross{positionFrac: DefaultPositionFrac}
}

// Name returns "macd-cross".
func (s *MACDCross) Name() string {
	return "macd-cross"
}

// SetPositionFrac overrides the fraction of cash committed per entry.
func (s *MACDCross) SetPositionFrac(frac float64) {
	if frac > 0 && frac <= 1 {
		s.positionFrac = frac
	}
}

// Decide detects signal-line crossings using the previous-bar values carried
// on the enriched bar.
func (s *MACDCross) Decide(bar indicator.EnrichedBar, positions map[string]domain.Position, cash float64) *domain.OrderIntent {
	macd, ok1 := bar.At(indicator.MACDLine)
	signal, ok2 := bar.At(indicator.MACDSignal)
	prevMACD, ok3 := bar.PrevAt(indicator.MACDLine)
	prevSignal, ok4 := bar.PrevAt(indicator.MACDSignal)
	if !ok1 || !ok2 || !ok3 || !ok4 {
		return nil
	}

	pos, held := positions[bar.Symbol]

	crossUp := prevMACD <= prevSignal && macd > signal
	crossDown := prevMACD >= prevSignal && macd < signal

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
