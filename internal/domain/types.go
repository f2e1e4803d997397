// Package domain defines the core types shared across the saturn simulation
// engine: bars, order intents, fills, positions, closed trades, and equity
// curve points.
package domain

import (
	"fmt"
	"math"
	"time"
)

// ---------------------------------------------------------------------------
// Enums
// ---------------------------------------------------------------------------

// OrderSide is the direction of an order.
type OrderSide string

const (
	OrderSideBuy  OrderSide = "buy"
	OrderSideSell OrderSide = "sell"
)

// OrderKind is the execution style of an order. The simulator currently fills
// market orders; limit and stop are accepted at the type level for forward
// compatibility.
type OrderKind string

const (
	OrderKindMarket OrderKind = "market"
	OrderKindLimit  OrderKind = "limit"
	OrderKindStop   OrderKind = "stop"
)

// Market identifies the exchange universe a symbol belongs to.
type Market string

const (
	MarketUS Market = "us"
	MarketCN Market = "cn"
)

// ---------------------------------------------------------------------------
// Market data
// ---------------------------------------------------------------------------

// Bar is one OHLCV observation at a timestamp. Bars are immutable once loaded
// from a data source.
type Bar struct {
	Symbol     string
	Timestamp  time.Time
	Open       float64
	High       float64
	Low        float64
	Close      float64
	Volume     int64
	TradeCount int64
	VWAP       float64
}

// Validate checks the bar for degenerate price data: non-positive or
// non-finite prices, negative volume, or inconsistent high/low bounds.
func (b Bar) Validate() error {
	for name, v := range map[string]float64{
		"open": b.Open, "high": b.High, "low": b.Low, "close": b.Close,
	} {
		if v <= 0 || math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%s price %v is not a positive finite number", name, v)
		}
	}
	if b.Volume < 0 {
		return fmt.Errorf("volume %d is negative", b.Volume)
	}
	if b.High < math.Max(b.Open, b.Close) {
		return fmt.Errorf("high %v below max(open, close)", b.High)
	}
	if b.Low > math.Min(b.Open, b.Close) {
		return fmt.Errorf("low %v above min(open, close)", b.Low)
	}
	return nil
}

// ---------------------------------------------------------------------------
// Order flow
// ---------------------------------------------------------------------------

// OrderIntent is a strategy's request to trade. It is ephemeral: the
// orchestrator hands it to the execution simulator within the same bar and
// discards it.
type OrderIntent struct {
	Symbol string
	Side   OrderSide
	Qty    int64
	Kind   OrderKind

	// RefPrice is an optional reference price for limit/stop intents. Zero
	// means "use the triggering bar's close".
	RefPrice float64
}

// Fill is the result of executing an OrderIntent: the slippage-adjusted
// price actually paid or received, the commission charged, and the slippage
// cost relative to the reference price.
type Fill struct {
	Symbol     string
	Side       OrderSide
	Qty        int64
	Price      float64
	Commission float64
	Slippage   float64
	Timestamp  time.Time
}

// Position is the open exposure in one symbol. Quantity is always positive;
// a fully closed position is removed from the ledger rather than kept at
// zero.
type Position struct {
	Symbol    string
	Qty       int64
	AvgPrice  float64
	EntryTime time.Time
}

// MarketValue returns the position valued at the given price.
func (p Position) MarketValue(price float64) float64 {
	return float64(p.Qty) * price
}

// ---------------------------------------------------------------------------
// Run artifacts
// ---------------------------------------------------------------------------

// ClosedTrade records a completed round trip (or the closed slice of a
// partial exit). Entry price is the position's average price at the time of
// the close. Append-only; never mutated after creation.
type ClosedTrade struct {
	Symbol     string    `json:"symbol"`
	Side       OrderSide `json:"side"`
	Qty        int64     `json:"qty"`
	EntryPrice float64   `json:"entry_price"`
	ExitPrice  float64   `json:"exit_price"`
	EntryTime  time.Time `json:"entry_time"`
	ExitTime   time.Time `json:"exit_time"`
	PnL        float64   `json:"pnl"`
	PnLPct     float64   `json:"pnl_pct"`
}

// EquityPoint is one mark-to-market sample of the portfolio: cash plus all
// open positions valued at that bar's close. One point is appended per bar,
// trade or no trade.
type EquityPoint struct {
	Timestamp time.Time `json:"timestamp"`
	Cash      float64   `json:"cash"`
	Value     float64   `json:"value"`
}
