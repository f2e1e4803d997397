// Package execution simulates order fills against a reference price with
// proportional slippage and commission. The simulator has no knowledge of
// positions; the ledger applies the resulting fills.
package execution

import (
	"time"

	"saturn/internal/domain"
)

// Default cost rates, applied when a Simulator is built with zero values via
// NewSimulator.
const (
	DefaultSlippageRate   = 0.0005
	DefaultCommissionRate = 0.001
)

// RejectReason explains why an intent produced no fill. The empty string
// means the order filled.
type RejectReason string

const (
	RejectNone             RejectReason = ""
	RejectInsufficientCash RejectReason = "insufficient_cash"
	RejectNoPosition       RejectReason = "no_position"
	RejectZeroQuantity     RejectReason = "zero_quantity"
)

// Simulator converts order intents into fills. Buys pay the reference price
// marked up by the slippage rate; sells receive it marked down. Commission is
// proportional to filled notional and charged on both sides.
type Simulator struct {
	SlippageRate   float64
	CommissionRate float64
}

// NewSimulator creates a Simulator with the given rates. Negative rates are
// replaced by the defaults; zero is a valid, frictionless configuration.
func NewSimulator(slippageRate, commissionRate float64) *Simulator {
	if slippageRate < 0 {
		slippageRate = DefaultSlippageRate
	}
	if commissionRate < 0 {
		commissionRate = DefaultCommissionRate
	}
	return &Simulator{
		SlippageRate:   slippageRate,
		CommissionRate: commissionRate,
	}
}

// Execute attempts to fill the intent at the slippage-adjusted reference
// price. It returns the fill and the updated cash balance, or a rejection
// reason with cash untouched. A rejected intent never mutates anything.
//
// Sell quantities are assumed to be pre-capped at the open position by the
// caller; the simulator itself only checks funding.
func (s *Simulator) Execute(intent domain.OrderIntent, refPrice float64, ts time.Time, cash float64) (*domain.Fill, float64, RejectReason) {
	if intent.Qty <= 0 {
		return nil, cash, RejectZeroQuantity
	}

	var fillPrice float64
	switch intent.Side {
	case domain.OrderSideBuy:
		fillPrice = refPrice * (1 + s.SlippageRate)
	case domain.OrderSideSell:
		fillPrice = refPrice * (1 - s.SlippageRate)
	default:
		return nil, cash, RejectZeroQuantity
	}

	qty := float64(intent.Qty)
	commission := qty * fillPrice * s.CommissionRate
	slippage := qty * refPrice * s.SlippageRate

	switch intent.Side {
	case domain.OrderSideBuy:
		required := qty*fillPrice + commission
		if required > cash {
			return nil, cash, RejectInsufficientCash
		}
		cash -= required
	case domain.OrderSideSell:
		cash += qty*fillPrice - commission
	}

	return &domain.Fill{
		Symbol:     intent.Symbol,
		Side:       intent.Side,
		Qty:        intent.Qty,
		Price:      fillPrice,
		Commission: commission,
		Slippage:   slippage,
		Timestamp:  ts,
	}, cash, RejectNone
}
