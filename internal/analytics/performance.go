// Package analytics derives risk-adjusted performance metrics from an equity
// curve and a closed-trade list. Compute is a pure, stateless function; every
// degenerate input (no trades, zero variance, zero elapsed time) maps to a
// defined zero or sentinel value, never a NaN or a panic.
package analytics

import (
	"math"
	"time"

	"saturn/internal/domain"
)

// MaxProfitFactor is the sentinel reported when there are winning trades and
// zero gross loss. Finite so reports stay JSON-serializable.
const MaxProfitFactor = 999.0

// Options tunes the annualization assumptions.
type Options struct {
	// PeriodsPerYear is the annualization factor for volatility and Sharpe /
	// Sortino. Defaults to 252 (daily bars).
	PeriodsPerYear float64

	// RiskFreeRate is the per-period risk-free return subtracted from mean
	// returns. Defaults to 0.
	RiskFreeRate float64
}

// DefaultOptions assumes daily bars and a zero risk-free rate.
func DefaultOptions() Options {
	return Options{PeriodsPerYear: 252}
}

// Metrics is the derived performance report. Fractions are plain ratios
// (0.10 means 10%), not percentages.
type Metrics struct {
	TotalReturn      float64 `json:"total_return"`
	AnnualizedReturn float64 `json:"annualized_return"`
	Volatility       float64 `json:"volatility"`
	SharpeRatio      float64 `json:"sharpe_ratio"`
	SortinoRatio     float64 `json:"sortino_ratio"`
	MaxDrawdown      float64 `json:"max_drawdown"`
	WinRate          float64 `json:"win_rate"`
	ProfitFactor     float64 `json:"profit_factor"`
}

// Compute derives all metrics from the equity curve and trade history. An
// empty or single-point curve yields zero metrics.
func Compute(equity []domain.EquityPoint, trades []domain.ClosedTrade, opts Options) Metrics {
	if opts.PeriodsPerYear <= 0 {
		opts.PeriodsPerYear = DefaultOptions().PeriodsPerYear
	}

	var m Metrics
	m.WinRate = winRate(trades)
	m.ProfitFactor = profitFactor(trades)

	if len(equity) < 2 {
		return m
	}

	first, last := equity[0].Value, equity[len(equity)-1].Value
	if first > 0 {
		m.TotalReturn = (last - first) / first
	}
	m.AnnualizedReturn = annualizedReturn(first, last, equity[0].Timestamp, equity[len(equity)-1].Timestamp)
	m.MaxDrawdown = maxDrawdown(equity)

	returns := periodReturns(equity)
	mean := meanOf(returns)
	std := stddev(returns, mean)

	sqrtYear := math.Sqrt(opts.PeriodsPerYear)
	m.Volatility = std * sqrtYear
	if std > 0 {
		m.SharpeRatio = (mean - opts.RiskFreeRate) / std * sqrtYear
	}
	if down := downsideDeviation(returns, opts.RiskFreeRate); down > 0 {
		m.SortinoRatio = (mean - opts.RiskFreeRate) / down * sqrtYear
	}

	return m
}

// ---------------------------------------------------------------------------
// Metric helpers
// ---------------------------------------------------------------------------

// annualizedReturn compounds the total return over 365.25-day years. Zero
// when no time elapsed or values are degenerate.
func annualizedReturn(first, last float64, start, end time.Time) float64 {
	days := end.Sub(start).Hours() / 24
	if days <= 0 || first <= 0 || last <= 0 {
		return 0
	}
	return math.Pow(last/first, 365.25/days) - 1
}

// periodReturns is the simple percent change of consecutive equity values.
// Samples following a non-positive value are skipped rather than dividing by
// zero.
func periodReturns(equity []domain.EquityPoint) []float64 {
	returns := make([]float64, 0, len(equity)-1)
	for i := 1; i < len(equity); i++ {
		prev := equity[i-1].Value
		if prev <= 0 {
			continue
		}
		returns = append(returns, (equity[i].Value-prev)/prev)
	}
	return returns
}

// maxDrawdown is the largest peak-to-trough decline as a fraction of the
// running peak.
func maxDrawdown(equity []domain.EquityPoint) float64 {
	peak := equity[0].Value
	maxDD := 0.0
	for _, p := range equity {
		if p.Value > peak {
			peak = p.Value
		}
		if peak > 0 {
			if dd := (peak - p.Value) / peak; dd > maxDD {
				maxDD = dd
			}
		}
	}
	return maxDD
}

func winRate(trades []domain.ClosedTrade) float64 {
	if len(trades) == 0 {
		return 0
	}
	wins := 0
	for _, t := range trades {
		if t.PnL > 0 {
			wins++
		}
	}
	return float64(wins) / float64(len(trades))
}

func profitFactor(trades []domain.ClosedTrade) float64 {
	var gain, loss float64
	for _, t := range trades {
		if t.PnL > 0 {
			gain += t.PnL
		} else {
			loss += -t.PnL
		}
	}
	if loss == 0 {
		if gain > 0 {
			return MaxProfitFactor
		}
		return 0
	}
	return gain / loss
}

func meanOf(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	sum := 0.0
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

// stddev is the sample standard deviation. Zero for fewer than two samples.
func stddev(xs []float64, mean float64) float64 {
	if len(xs) < 2 {
		return 0
	}
	sum := 0.0
	for _, x := range xs {
		d := x - mean
		sum += d * d
	}
	return math.Sqrt(sum / float64(len(xs)-1))
}

// downsideDeviation is the sample deviation of returns below the threshold,
// computed over all samples (shortfalls of zero for returns above it).
func downsideDeviation(xs []float64, threshold float64) float64 {
	if len(xs) < 2 {
		return 0
	}
	sum := 0.0
	for _, x := range xs {
		if x < threshold {
			d := x - threshold
			sum += d * d
		}
	}
	return math.Sqrt(sum / float64(len(xs)-1))
}
