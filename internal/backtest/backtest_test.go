package backtest

import (
	"context"
	"errors"
	"math"
	"reflect"
	"testing"
	"time"

	"saturn/internal/domain"
	"saturn/internal/indicator"
	"saturn/internal/strategy"
	"saturn/internal/strategy/builtins"
)

var testStart = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func dailyBars(symbol string, closes []float64) []domain.Bar {
	bars := make([]domain.Bar, len(closes))
	for i, c := range closes {
		bars[i] = domain.Bar{
			Symbol:    symbol,
			Timestamp: testStart.AddDate(0, 0, i),
			Open:      c, High: c, Low: c, Close: c,
			Volume: 1000,
		}
	}
	return bars
}

func defaultRegistry() *strategy.Registry {
	r := strategy.NewRegistry()
	r.Register(builtins.NewSMACross(10, 30))
	r.Register(builtins.NewRSIReversion(14))
	r.Register(builtins.NewMACDCross())
	return r
}

// scriptStrategy issues a fixed intent per bar index. Used to drive exact
// fill sequences through the engine.
type scriptStrategy struct {
	name    string
	intents map[int]*domain.OrderIntent
	seen    int
}

func (s *scriptStrategy) Name() string { return s.name }

func (s *scriptStrategy) Decide(_ indicator.EnrichedBar, _ map[string]domain.Position, _ float64) *domain.OrderIntent {
	intent := s.intents[s.seen]
	s.seen++
	return intent
}

func scripted(intents map[int]*domain.OrderIntent) (*strategy.Registry, *scriptStrategy) {
	s := &scriptStrategy{name: "scripted", intents: intents}
	r := strategy.NewRegistry()
	r.Register(s)
	return r, s
}

func TestFlatSeriesProducesNoTrades(t *testing.T) {
	// 100 daily bars at a constant price: the SMAs never strictly cross, so
	// no trades occur and the final value equals the starting capital.
	closes := make([]float64, 100)
	for i := range closes {
		closes[i] = 50
	}
	bt := New(StaticSource(dailyBars("FLAT", closes)), defaultRegistry(), nil)

	report, err := bt.Run(context.Background(), Config{
		Strategy:       "sma-cross",
		Symbol:         "FLAT",
		Start:          testStart,
		End:            testStart.AddDate(0, 0, 200),
		InitialCapital: 100000,
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if report.TotalTrades != 0 {
		t.Errorf("total trades = %d, want 0", report.TotalTrades)
	}
	if report.FinalValue != 100000 {
		t.Errorf("final value = %v, want 100000", report.FinalValue)
	}
	if len(report.EquityCurve) != 100 {
		t.Errorf("equity curve has %d points, want one per bar (100)", len(report.EquityCurve))
	}
}

func TestFrictionlessRoundTrip(t *testing.T) {
	// Zero commission and slippage, buy 10 at 100 and sell 10 at 110:
	// final value is exactly initial + 100.
	registry, _ := scripted(map[int]*domain.OrderIntent{
		0: {Symbol: "AAPL", Side: domain.OrderSideBuy, Qty: 10, Kind: domain.OrderKindMarket},
		1: {Symbol: "AAPL", Side: domain.OrderSideSell, Qty: 10, Kind: domain.OrderKindMarket},
	})
	bt := New(StaticSource(dailyBars("AAPL", []float64{100, 110, 110})), registry, nil)

	report, err := bt.Run(context.Background(), Config{
		Strategy:       "scripted",
		Symbol:         "AAPL",
		Start:          testStart,
		End:            testStart.AddDate(0, 0, 10),
		InitialCapital: 100000,
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if report.FinalValue != 100100 {
		t.Errorf("final value = %v, want exactly 100100", report.FinalValue)
	}
	if report.TotalTrades != 1 {
		t.Fatalf("total trades = %d, want 1", report.TotalTrades)
	}
	tr := report.Trades[0]
	if tr.PnL != 100 {
		t.Errorf("pnl = %v, want exactly 100", tr.PnL)
	}
	if math.Abs(tr.PnLPct-0.10) > 1e-12 {
		t.Errorf("pnl pct = %v, want 0.10", tr.PnLPct)
	}
	if tr.EntryPrice != 100 || tr.ExitPrice != 110 {
		t.Errorf("trade prices = %v/%v, want 100/110", tr.EntryPrice, tr.ExitPrice)
	}
}

func TestUnfundableBuyIsRejected(t *testing.T) {
	registry, _ := scripted(map[int]*domain.OrderIntent{
		0: {Symbol: "AAPL", Side: domain.OrderSideBuy, Qty: 10000, Kind: domain.OrderKindMarket},
	})
	bt := New(StaticSource(dailyBars("AAPL", []float64{100, 100})), registry, nil)

	report, err := bt.Run(context.Background(), Config{
		Strategy:       "scripted",
		Symbol:         "AAPL",
		Start:          testStart,
		End:            testStart.AddDate(0, 0, 10),
		InitialCapital: 1000,
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if report.TotalTrades != 0 {
		t.Errorf("total trades = %d, want 0", report.TotalTrades)
	}
	// Cash unchanged, no position created, rejection recorded.
	if report.FinalValue != 1000 {
		t.Errorf("final value = %v, want 1000", report.FinalValue)
	}
	if len(report.RejectedOrders) != 1 {
		t.Fatalf("rejected orders = %d, want 1", len(report.RejectedOrders))
	}
	if report.RejectedOrders[0].Reason != "insufficient_cash" {
		t.Errorf("rejection reason = %q, want insufficient_cash", report.RejectedOrders[0].Reason)
	}
}

func TestSellWithoutPositionRecordedNotFatal(t *testing.T) {
	registry, _ := scripted(map[int]*domain.OrderIntent{
		0: {Symbol: "AAPL", Side: domain.OrderSideSell, Qty: 5, Kind: domain.OrderKindMarket},
	})
	bt := New(StaticSource(dailyBars("AAPL", []float64{100, 101})), registry, nil)

	report, err := bt.Run(context.Background(), Config{
		Strategy:       "scripted",
		Symbol:         "AAPL",
		Start:          testStart,
		End:            testStart.AddDate(0, 0, 10),
		InitialCapital: 1000,
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(report.RejectedOrders) != 1 || report.RejectedOrders[0].Reason != "no_position" {
		t.Errorf("rejected orders = %+v, want one no_position event", report.RejectedOrders)
	}
	if report.FinalValue != 1000 {
		t.Errorf("final value = %v, want 1000", report.FinalValue)
	}
}

func TestCashConservation(t *testing.T) {
	// Ends flat, so commissions + final cash == initial + sum of trade pnl
	// (slippage is already embedded in the fill prices the pnl uses).
	registry, _ := scripted(map[int]*domain.OrderIntent{
		1: {Symbol: "AAPL", Side: domain.OrderSideBuy, Qty: 50, Kind: domain.OrderKindMarket},
		3: {Symbol: "AAPL", Side: domain.OrderSideBuy, Qty: 30, Kind: domain.OrderKindMarket},
		5: {Symbol: "AAPL", Side: domain.OrderSideSell, Qty: 80, Kind: domain.OrderKindMarket},
	})
	bt := New(StaticSource(dailyBars("AAPL", []float64{100, 102, 104, 101, 103, 108, 107})), registry, nil)

	report, err := bt.Run(context.Background(), Config{
		Strategy:       "scripted",
		Symbol:         "AAPL",
		Start:          testStart,
		End:            testStart.AddDate(0, 0, 10),
		InitialCapital: 100000,
		CommissionRate: 0.001,
		SlippageRate:   0.0005,
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	var realized float64
	for _, tr := range report.Trades {
		realized += tr.PnL
	}
	lhs := report.FinalValue + report.CommissionPaid
	rhs := report.InitialCapital + realized
	if math.Abs(lhs-rhs) > 1e-6 {
		t.Errorf("conservation violated: final+commissions=%v, initial+realized=%v", lhs, rhs)
	}
	if report.CommissionPaid <= 0 || report.SlippagePaid <= 0 {
		t.Errorf("costs not accounted: commission=%v slippage=%v", report.CommissionPaid, report.SlippagePaid)
	}
}

func TestRunIsDeterministic(t *testing.T) {
	closes := []float64{100, 102, 101, 104, 103, 99, 97, 101, 105, 108, 104, 102,
		107, 111, 109, 113, 110, 108, 112, 116, 114, 118, 117, 121, 119, 123,
		120, 124, 122, 126, 125, 129, 127, 131, 128, 132, 130, 134, 131, 135}
	cfg := Config{
		Strategy:       "macd-cross",
		Symbol:         "AAPL",
		Start:          testStart,
		End:            testStart.AddDate(0, 1, 15),
		InitialCapital: 100000,
		CommissionRate: 0.001,
		SlippageRate:   0.0005,
	}

	run := func() *Report {
		bt := New(StaticSource(dailyBars("AAPL", closes)), defaultRegistry(), nil)
		report, err := bt.Run(context.Background(), cfg)
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
		return report
	}

	if a, b := run(), run(); !reflect.DeepEqual(a, b) {
		t.Error("two runs of the same configuration produced different reports")
	}
}

func TestShortSeriesCompletesWithoutTrades(t *testing.T) {
	// Fewer bars than any indicator window: indicators stay undefined, the
	// strategy stays silent, and the run still completes.
	bt := New(StaticSource(dailyBars("AAPL", []float64{100, 101, 102})), defaultRegistry(), nil)

	report, err := bt.Run(context.Background(), Config{
		Strategy:       "sma-cross",
		Symbol:         "AAPL",
		Start:          testStart,
		End:            testStart.AddDate(0, 0, 10),
		InitialCapital: 100000,
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if report.TotalTrades != 0 {
		t.Errorf("total trades = %d, want 0", report.TotalTrades)
	}
}

func TestConfigValidation(t *testing.T) {
	valid := Config{
		Strategy:       "sma-cross",
		Symbol:         "AAPL",
		Start:          testStart,
		End:            testStart.AddDate(0, 0, 10),
		InitialCapital: 100000,
	}

	tests := []struct {
		name   string
		mutate func(c *Config)
		field  string
	}{
		{"end before start", func(c *Config) { c.End = c.Start.AddDate(0, 0, -1) }, "end"},
		{"end equals start", func(c *Config) { c.End = c.Start }, "end"},
		{"zero capital", func(c *Config) { c.InitialCapital = 0 }, "initial_capital"},
		{"negative capital", func(c *Config) { c.InitialCapital = -5 }, "initial_capital"},
		{"unknown strategy", func(c *Config) { c.Strategy = "nope" }, "strategy"},
		{"empty symbol", func(c *Config) { c.Symbol = "" }, "symbol"},
		{"negative commission", func(c *Config) { c.CommissionRate = -0.1 }, "commission_rate"},
		{"slippage of one", func(c *Config) { c.SlippageRate = 1 }, "slippage_rate"},
	}

	bt := New(StaticSource(nil), defaultRegistry(), nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid
			tt.mutate(&cfg)
			_, err := bt.Run(context.Background(), cfg)

			var cfgErr *ConfigError
			if !errors.As(err, &cfgErr) {
				t.Fatalf("Run error = %v, want *ConfigError", err)
			}
			if cfgErr.Field != tt.field {
				t.Errorf("ConfigError.Field = %q, want %q", cfgErr.Field, tt.field)
			}
		})
	}
}

func TestCorruptBarsAbortTheRun(t *testing.T) {
	cfg := Config{
		Strategy:       "sma-cross",
		Symbol:         "AAPL",
		Start:          testStart,
		End:            testStart.AddDate(0, 0, 30),
		InitialCapital: 100000,
	}

	t.Run("non-monotonic timestamps", func(t *testing.T) {
		bars := dailyBars("AAPL", []float64{100, 101, 102})
		bars[2].Timestamp = bars[0].Timestamp

		_, err := New(StaticSource(bars), defaultRegistry(), nil).Run(context.Background(), cfg)
		var dataErr *DataError
		if !errors.As(err, &dataErr) {
			t.Fatalf("Run error = %v, want *DataError", err)
		}
		if dataErr.Index != 2 {
			t.Errorf("DataError.Index = %d, want 2 (the offending bar)", dataErr.Index)
		}
	})

	t.Run("high below low", func(t *testing.T) {
		bars := dailyBars("AAPL", []float64{100, 101, 102})
		bars[1].High = 90

		_, err := New(StaticSource(bars), defaultRegistry(), nil).Run(context.Background(), cfg)
		var dataErr *DataError
		if !errors.As(err, &dataErr) {
			t.Fatalf("Run error = %v, want *DataError", err)
		}
		if dataErr.Index != 1 {
			t.Errorf("DataError.Index = %d, want 1", dataErr.Index)
		}
	})
}

func TestStaticSourceFilters(t *testing.T) {
	bars := append(dailyBars("AAPL", []float64{100, 101, 102}), dailyBars("MSFT", []float64{400})...)
	src := StaticSource(bars)

	got, err := src.LoadHistory(context.Background(), "AAPL", testStart.AddDate(0, 0, 1), testStart.AddDate(0, 0, 5))
	if err != nil {
		t.Fatalf("LoadHistory: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("LoadHistory returned %d bars, want 2", len(got))
	}
	for _, b := range got {
		if b.Symbol != "AAPL" {
			t.Errorf("bar for wrong symbol: %s", b.Symbol)
		}
	}
}
