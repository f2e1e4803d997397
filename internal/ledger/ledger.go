// Package ledger is the single source of truth for a backtest run's cash,
// open positions, closed-trade history, and equity curve.
//
// Per symbol the ledger is a small state machine: Flat -> Open -> Flat,
// re-enterable. Buys while open recompute the volume-weighted average entry
// price; sells emit ClosedTrades and delete the position on a full close. A
// position with zero quantity never exists in the ledger.
package ledger

import (
	"time"

	"saturn/internal/domain"
)

// Ledger holds all mutable state of one backtest run. It has exactly one
// writer (the orchestrator) and is not safe for concurrent use; independent
// runs each own their own instance.
type Ledger struct {
	cash      float64
	positions map[string]domain.Position
	trades    []domain.ClosedTrade
	equity    []domain.EquityPoint

	commissionPaid float64
	slippagePaid   float64
	realizedPnL    float64
}

// New creates a Ledger with the given starting cash and no positions.
func New(initialCash float64) *Ledger {
	return &Ledger{
		cash:      initialCash,
		positions: make(map[string]domain.Position),
	}
}

// Cash returns the current cash balance.
func (l *Ledger) Cash() float64 { return l.cash }

// Position returns the open position for a symbol, if any.
func (l *Ledger) Position(symbol string) (domain.Position, bool) {
	p, ok := l.positions[symbol]
	return p, ok
}

// Positions returns a copy of all open positions keyed by symbol.
func (l *Ledger) Positions() map[string]domain.Position {
	out := make(map[string]domain.Position, len(l.positions))
	for sym, p := range l.positions {
		out[sym] = p
	}
	return out
}

// Trades returns a copy of the closed-trade history in emission order.
func (l *Ledger) Trades() []domain.ClosedTrade {
	out := make([]domain.ClosedTrade, len(l.trades))
	copy(out, l.trades)
	return out
}

// Equity returns a copy of the equity curve in bar order.
func (l *Ledger) Equity() []domain.EquityPoint {
	out := make([]domain.EquityPoint, len(l.equity))
	copy(out, l.equity)
	return out
}

// CommissionPaid returns the total commission charged across all fills.
func (l *Ledger) CommissionPaid() float64 { return l.commissionPaid }

// SlippagePaid returns the total slippage cost across all fills.
func (l *Ledger) SlippagePaid() float64 { return l.slippagePaid }

// RealizedPnL returns the sum of closed-trade P&L (gross of commissions,
// which are netted into cash at fill time).
func (l *Ledger) RealizedPnL() float64 { return l.realizedPnL }

// ApplyFill mutates cash and position state for one fill.
//
// Buys debit cash by notional plus commission and either open a position or
// recompute the weighted average price of an existing one. Sells credit cash
// net of commission, emit a ClosedTrade priced against the position's current
// average, and delete the position when fully closed. Sell quantity is capped
// at the open quantity.
func (l *Ledger) ApplyFill(f domain.Fill) {
	l.commissionPaid += f.Commission
	l.slippagePaid += f.Slippage

	switch f.Side {
	case domain.OrderSideBuy:
		l.applyBuy(f)
	case domain.OrderSideSell:
		l.applySell(f)
	}
}

func (l *Ledger) applyBuy(f domain.Fill) {
	qty := float64(f.Qty)
	l.cash -= qty*f.Price + f.Commission

	pos, ok := l.positions[f.Symbol]
	if !ok {
		l.positions[f.Symbol] = domain.Position{
			Symbol:    f.Symbol,
			Qty:       f.Qty,
			AvgPrice:  f.Price,
			EntryTime: f.Timestamp,
		}
		return
	}

	// Same-direction add: volume-weighted average entry price.
	oldQty := float64(pos.Qty)
	pos.AvgPrice = (oldQty*pos.AvgPrice + qty*f.Price) / (oldQty + qty)
	pos.Qty += f.Qty
	l.positions[f.Symbol] = pos
}

func (l *Ledger) applySell(f domain.Fill) {
	pos, ok := l.positions[f.Symbol]
	if !ok {
		return
	}

	qty := f.Qty
	if qty > pos.Qty {
		qty = pos.Qty
	}
	fqty := float64(qty)

	l.cash += fqty*f.Price - f.Commission

	pnl := (f.Price - pos.AvgPrice) * fqty
	pnlPct := 0.0
	if pos.AvgPrice > 0 {
		pnlPct = pnl / (pos.AvgPrice * fqty)
	}
	l.realizedPnL += pnl

	l.trades = append(l.trades, domain.ClosedTrade{
		Symbol:     f.Symbol,
		Side:       domain.OrderSideSell,
		Qty:        qty,
		EntryPrice: pos.AvgPrice,
		ExitPrice:  f.Price,
		EntryTime:  pos.EntryTime,
		ExitTime:   f.Timestamp,
		PnL:        pnl,
		PnLPct:     pnlPct,
	})

	if qty == pos.Qty {
		delete(l.positions, f.Symbol)
		return
	}
	pos.Qty -= qty
	// Average price is unchanged on a partial close.
	l.positions[f.Symbol] = pos
}

// Snapshot appends one mark-to-market equity point valuing every open
// position at the close price supplied for its symbol. Called once per bar,
// trade or no trade.
func (l *Ledger) Snapshot(ts time.Time, closes map[string]float64) domain.EquityPoint {
	value := l.cash
	for sym, pos := range l.positions {
		if c, ok := closes[sym]; ok {
			value += pos.MarketValue(c)
		}
	}
	point := domain.EquityPoint{Timestamp: ts, Cash: l.cash, Value: value}
	l.equity = append(l.equity, point)
	return point
}
