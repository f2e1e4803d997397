// Package backtest wires the saturn simulation engine together: it validates
// run configuration, computes indicators once over the loaded history,
// replays the series bar by bar through a strategy and the execution
// simulator, maintains the portfolio ledger, and derives the performance
// report.
//
// One run is strictly single-threaded: each bar's fill affects the next
// bar's cash and positions, so there is no parallelism inside the loop.
// Independent runs are freely parallelizable because every run owns its own
// ledger.
package backtest

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"saturn/internal/analytics"
	"saturn/internal/domain"
	"saturn/internal/execution"
	"saturn/internal/indicator"
	"saturn/internal/ledger"
	"saturn/internal/strategy"
)

// Status is the lifecycle state of one run.
type Status string

const (
	StatusInitialized Status = "initialized"
	StatusRunning     Status = "running"
	StatusCompleted   Status = "completed"
	StatusFailed      Status = "failed"
)

// Config holds the parameters of one backtest run. Zero cost rates are
// valid (frictionless) configurations; validation only rejects negatives.
type Config struct {
	Strategy       string
	Symbol         string
	Start          time.Time
	End            time.Time
	InitialCapital float64
	CommissionRate float64
	SlippageRate   float64

	// PeriodsPerYear is the annualization factor for volatility and Sharpe.
	// Zero means 252 (daily bars).
	PeriodsPerYear float64

	// Indicators selects the pipeline configuration. The zero value computes
	// the default indicator set.
	Indicators indicator.Config
}

// RejectedOrder records an intent the simulator refused. Rejections never
// stop the run.
type RejectedOrder struct {
	Timestamp time.Time        `json:"timestamp"`
	Symbol    string           `json:"symbol"`
	Side      domain.OrderSide `json:"side"`
	Qty       int64            `json:"qty"`
	Reason    string           `json:"reason"`
}

// Report is the complete result of a run. Its field set is the stable wire
// shape consumed by callers; all slices are copies, never views into
// internal state.
type Report struct {
	Strategy         string               `json:"strategy"`
	Symbol           string               `json:"symbol"`
	InitialCapital   float64              `json:"initial_capital"`
	FinalValue       float64              `json:"final_value"`
	TotalReturn      float64              `json:"total_return"`
	AnnualizedReturn float64              `json:"annualized_return"`
	Volatility       float64              `json:"volatility"`
	SharpeRatio      float64              `json:"sharpe_ratio"`
	SortinoRatio     float64              `json:"sortino_ratio"`
	MaxDrawdown      float64              `json:"max_drawdown"`
	WinRate          float64              `json:"win_rate"`
	ProfitFactor     float64              `json:"profit_factor"`
	TotalTrades      int                  `json:"total_trades"`
	CommissionPaid   float64              `json:"commission_paid"`
	SlippagePaid     float64              `json:"slippage_paid"`
	Trades           []domain.ClosedTrade `json:"trades"`
	EquityCurve      []domain.EquityPoint `json:"equity_curve"`
	RejectedOrders   []RejectedOrder      `json:"rejected_orders,omitempty"`
}

// Backtester replays historical bars through a registered strategy and
// computes performance metrics.
type Backtester struct {
	source   BarSource
	registry *strategy.Registry
	log      *slog.Logger
}

// New creates a Backtester that reads bars from the given source and looks
// up strategies in the provided registry.
func New(source BarSource, registry *strategy.Registry, log *slog.Logger) *Backtester {
	if log == nil {
		log = slog.Default()
	}
	return &Backtester{
		source:   source,
		registry: registry,
		log:      log,
	}
}

// Run executes one backtest. Configuration problems surface as *ConfigError
// and malformed history as *DataError; order rejections are recorded in the
// report and never fail the run. All mutable state is scoped to this call,
// so a failed run leaves nothing behind.
func (bt *Backtester) Run(ctx context.Context, cfg Config) (*Report, error) {
	status := StatusInitialized

	strat, err := bt.validate(cfg)
	if err != nil {
		return nil, err
	}

	bars, err := bt.source.LoadHistory(ctx, cfg.Symbol, cfg.Start, cfg.End)
	if err != nil {
		return nil, fmt.Errorf("loading history for %s: %w", cfg.Symbol, err)
	}
	if err := validateBars(cfg.Symbol, bars); err != nil {
		return nil, err
	}

	status = StatusRunning
	bt.log.Debug("backtest started",
		"strategy", cfg.Strategy,
		"symbol", cfg.Symbol,
		"bars", len(bars),
		"status", string(status),
	)

	enriched := indicator.Compute(bars, cfg.Indicators)

	led := ledger.New(cfg.InitialCapital)
	sim := execution.NewSimulator(cfg.SlippageRate, cfg.CommissionRate)

	var rejected []RejectedOrder
	for _, bar := range enriched {
		intent := strat.Decide(bar, led.Positions(), led.Cash())
		if intent != nil {
			if reject := bt.routeIntent(led, sim, *intent, bar); reject != nil {
				rejected = append(rejected, *reject)
			}
		}
		led.Snapshot(bar.Timestamp, map[string]float64{bar.Symbol: bar.Close})
	}

	metrics := analytics.Compute(led.Equity(), led.Trades(), analytics.Options{
		PeriodsPerYear: cfg.PeriodsPerYear,
	})

	status = StatusCompleted
	report := buildReport(cfg, led, metrics, rejected)
	bt.log.Info("backtest completed",
		"strategy", cfg.Strategy,
		"symbol", cfg.Symbol,
		"trades", report.TotalTrades,
		"final_value", report.FinalValue,
		"status", string(status),
	)
	return report, nil
}

// routeIntent caps sell quantities at the open position, executes the intent
// against the bar close, and applies the fill to the ledger. Returns the
// rejection event, if any.
func (bt *Backtester) routeIntent(led *ledger.Ledger, sim *execution.Simulator, intent domain.OrderIntent, bar indicator.EnrichedBar) *RejectedOrder {
	if intent.Side == domain.OrderSideSell {
		pos, ok := led.Position(intent.Symbol)
		if !ok {
			return &RejectedOrder{
				Timestamp: bar.Timestamp,
				Symbol:    intent.Symbol,
				Side:      intent.Side,
				Qty:       intent.Qty,
				Reason:    string(execution.RejectNoPosition),
			}
		}
		if intent.Qty > pos.Qty {
			intent.Qty = pos.Qty
		}
	}

	fill, _, reason := sim.Execute(intent, bar.Close, bar.Timestamp, led.Cash())
	if reason != execution.RejectNone {
		bt.log.Debug("order rejected",
			"symbol", intent.Symbol,
			"side", string(intent.Side),
			"qty", intent.Qty,
			"reason", string(reason),
		)
		return &RejectedOrder{
			Timestamp: bar.Timestamp,
			Symbol:    intent.Symbol,
			Side:      intent.Side,
			Qty:       intent.Qty,
			Reason:    string(reason),
		}
	}

	led.ApplyFill(*fill)
	return nil
}

// validate checks the run parameters and resolves the strategy. Fails fast
// before any simulation state exists.
func (bt *Backtester) validate(cfg Config) (strategy.Strategy, error) {
	if cfg.Symbol == "" {
		return nil, &ConfigError{Field: "symbol", Reason: "must not be empty"}
	}
	if !cfg.End.After(cfg.Start) {
		return nil, &ConfigError{Field: "end", Reason: "must be after start"}
	}
	if cfg.InitialCapital <= 0 {
		return nil, &ConfigError{Field: "initial_capital", Reason: "must be positive"}
	}
	if cfg.CommissionRate < 0 || cfg.CommissionRate >= 1 {
		return nil, &ConfigError{Field: "commission_rate", Reason: "must be in [0, 1)"}
	}
	if cfg.SlippageRate < 0 || cfg.SlippageRate >= 1 {
		return nil, &ConfigError{Field: "slippage_rate", Reason: "must be in [0, 1)"}
	}

	strat, ok := bt.registry.Get(cfg.Strategy)
	if !ok {
		return nil, &ConfigError{Field: "strategy", Reason: fmt.Sprintf("unknown strategy %q", cfg.Strategy)}
	}
	return strat, nil
}

// validateBars rejects malformed history: out-of-order timestamps or
// degenerate OHLC. The offending bar is identified in the error.
func validateBars(symbol string, bars []domain.Bar) error {
	for i, b := range bars {
		if err := b.Validate(); err != nil {
			return &DataError{Index: i, Symbol: symbol, Timestamp: b.Timestamp, Reason: err.Error()}
		}
		if i > 0 && !b.Timestamp.After(bars[i-1].Timestamp) {
			return &DataError{Index: i, Symbol: symbol, Timestamp: b.Timestamp, Reason: "timestamp not strictly increasing"}
		}
	}
	return nil
}

// buildReport assembles the final report from ledger state and metrics. The
// ledger accessors already return copies, so the caller never aliases run
// state.
func buildReport(cfg Config, led *ledger.Ledger, m analytics.Metrics, rejected []RejectedOrder) *Report {
	equity := led.Equity()
	finalValue := cfg.InitialCapital
	if len(equity) > 0 {
		finalValue = equity[len(equity)-1].Value
	}

	trades := led.Trades()
	return &Report{
		Strategy:         cfg.Strategy,
		Symbol:           cfg.Symbol,
		InitialCapital:   cfg.InitialCapital,
		FinalValue:       finalValue,
		TotalReturn:      m.TotalReturn,
		AnnualizedReturn: m.AnnualizedReturn,
		Volatility:       m.Volatility,
		SharpeRatio:      m.SharpeRatio,
		SortinoRatio:     m.SortinoRatio,
		MaxDrawdown:      m.MaxDrawdown,
		WinRate:          m.WinRate,
		ProfitFactor:     m.ProfitFactor,
		TotalTrades:      len(trades),
		CommissionPaid:   led.CommissionPaid(),
		SlippagePaid:     led.SlippagePaid(),
		Trades:           trades,
		EquityCurve:      equity,
		RejectedOrders:   rejected,
	}
}
