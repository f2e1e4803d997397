// Package indicator computes technical indicators over a chronologically
// ordered bar series, producing enriched per-bar records for strategy
// consumption.
//
// Definedness is modeled by map-key presence: an indicator that has not
// warmed up yet is simply absent from the bar's value map. NaN never appears
// as a sentinel. Compute is a pure function of its inputs.
//
// Conventions, fixed engine-wide:
//   - EMA uses the cumulative weighted form (pandas ewm adjust=true):
//     num_t = x_t + (1-a)*num_{t-1}, den_t = 1 + (1-a)*den_{t-1},
//     EMA_t = num_t/den_t with a = 2/(n+1). Defined from the first bar.
//     The same recurrence is used for the MACD signal line.
//   - RSI uses simple rolling means of gains and losses over the period
//     (Cutler's variant); it needs period deltas, so it is undefined for the
//     first period bars. RSI is 100 when the mean loss is zero.
//   - Bollinger Bands use the population standard deviation.
package indicator

import (
	"fmt"
	"math"

	"saturn/internal/domain"
)

// ---------------------------------------------------------------------------
// Indicator names
// ---------------------------------------------------------------------------

// Fixed-name indicators.
const (
	MACDLine   = "macd"
	MACDSignal = "macd_signal"
	MACDHist   = "macd_hist"
	BollMiddle = "bb_middle"
	BollUpper  = "bb_upper"
	BollLower  = "bb_lower"
)

// SMAName returns the value-map key for an SMA of the given period.
func SMAName(period int) string { return fmt.Sprintf("sma_%d", period) }

// EMAName returns the value-map key for an EMA of the given period.
func EMAName(period int) string { return fmt.Sprintf("ema_%d", period) }

// RSIName returns the value-map key for an RSI of the given period.
func RSIName(period int) string { return fmt.Sprintf("rsi_%d", period) }

// ---------------------------------------------------------------------------
// Enriched bars
// ---------------------------------------------------------------------------

// EnrichedBar is a Bar plus the indicator values computed at this bar and the
// mirrored values at the previous bar. The previous-bar map exists so
// strategies can detect crossovers without keeping state of their own.
type EnrichedBar struct {
	domain.Bar

	Values map[string]float64
	Prev   map[string]float64
}

// At returns the indicator value at this bar. The second return value is
// false while the indicator is still inside its warm-up window.
func (b EnrichedBar) At(name string) (float64, bool) {
	v, ok := b.Values[name]
	return v, ok
}

// PrevAt returns the indicator value at the previous bar.
func (b EnrichedBar) PrevAt(name string) (float64, bool) {
	v, ok := b.Prev[name]
	return v, ok
}

// ---------------------------------------------------------------------------
// Pipeline configuration
// ---------------------------------------------------------------------------

// Config selects which indicators the pipeline computes and with what
// periods.
type Config struct {
	SMAPeriods []int
	EMAPeriods []int
	RSIPeriod  int
	MACDFast   int
	MACDSlow   int
	MACDSig    int
	BollPeriod int
	BollK      float64
}

// DefaultConfig returns the standard indicator set: SMA 10/30, EMA 12/26,
// RSI 14, MACD 12/26/9, Bollinger 20/2.
func DefaultConfig() Config {
	return Config{
		SMAPeriods: []int{10, 30},
		EMAPeriods: []int{12, 26},
		RSIPeriod:  14,
		MACDFast:   12,
		MACDSlow:   26,
		MACDSig:    9,
		BollPeriod: 20,
		BollK:      2.0,
	}
}

// normalized fills zero fields with defaults so a partially specified Config
// still produces a full pipeline.
func (c Config) normalized() Config {
	def := DefaultConfig()
	if len(c.SMAPeriods) == 0 {
		c.SMAPeriods = def.SMAPeriods
	}
	if len(c.EMAPeriods) == 0 {
		c.EMAPeriods = def.EMAPeriods
	}
	if c.RSIPeriod <= 0 {
		c.RSIPeriod = def.RSIPeriod
	}
	if c.MACDFast <= 0 {
		c.MACDFast = def.MACDFast
	}
	if c.MACDSlow <= 0 {
		c.MACDSlow = def.MACDSlow
	}
	if c.MACDSig <= 0 {
		c.MACDSig = def.MACDSig
	}
	if c.BollPeriod <= 0 {
		c.BollPeriod = def.BollPeriod
	}
	if c.BollK <= 0 {
		c.BollK = def.BollK
	}
	return c
}

// ---------------------------------------------------------------------------
// Pipeline
// ---------------------------------------------------------------------------

// Compute enriches the bar series with every configured indicator. Output has
// the same length and order as the input. A series shorter than an
// indicator's window yields bars where that indicator is simply absent;
// insufficient history is never an error.
func Compute(bars []domain.Bar, cfg Config) []EnrichedBar {
	cfg = cfg.normalized()

	closes := make([]float64, len(bars))
	for i, b := range bars {
		closes[i] = b.Close
	}

	out := make([]EnrichedBar, len(bars))
	for i, b := range bars {
		out[i] = EnrichedBar{
			Bar:    b,
			Values: make(map[string]float64),
			Prev:   make(map[string]float64),
		}
	}

	for _, p := range cfg.SMAPeriods {
		vals, ok := smaSeries(closes, p)
		applySeries(out, SMAName(p), vals, ok)
	}
	for _, p := range cfg.EMAPeriods {
		applySeries(out, EMAName(p), emaSeries(closes, p), allDefined(len(closes)))
	}

	rsiVals, rsiOK := rsiSeries(closes, cfg.RSIPeriod)
	applySeries(out, RSIName(cfg.RSIPeriod), rsiVals, rsiOK)

	macd, signal, hist := macdSeries(closes, cfg.MACDFast, cfg.MACDSlow, cfg.MACDSig)
	defined := allDefined(len(closes))
	applySeries(out, MACDLine, macd, defined)
	applySeries(out, MACDSignal, signal, defined)
	applySeries(out, MACDHist, hist, defined)

	mid, upper, lower, bbOK := bollingerSeries(closes, cfg.BollPeriod, cfg.BollK)
	applySeries(out, BollMiddle, mid, bbOK)
	applySeries(out, BollUpper, upper, bbOK)
	applySeries(out, BollLower, lower, bbOK)

	// One-step lag over the finished series. Computed last so every previous
	// value matches what the main series reported at that bar.
	for i := 1; i < len(out); i++ {
		for name, v := range out[i-1].Values {
			out[i].Prev[name] = v
		}
	}

	return out
}

// applySeries copies defined values into the enriched bars.
func applySeries(out []EnrichedBar, name string, vals []float64, defined []bool) {
	for i := range out {
		if defined[i] {
			out[i].Values[name] = vals[i]
		}
	}
}

// allDefined returns a definedness mask that is true everywhere.
func allDefined(n int) []bool {
	ok := make([]bool, n)
	for i := range ok {
		ok[i] = true
	}
	return ok
}

// ---------------------------------------------------------------------------
// Series math
// ---------------------------------------------------------------------------

// smaSeries computes the trailing arithmetic mean over period values,
// inclusive of the current one. Undefined for the first period-1 positions.
func smaSeries(xs []float64, period int) (vals []float64, defined []bool) {
	vals = make([]float64, len(xs))
	defined = make([]bool, len(xs))
	if period <= 0 {
		return vals, defined
	}

	sum := 0.0
	for i, x := range xs {
		sum += x
		if i >= period {
			sum -= xs[i-period]
		}
		if i >= period-1 {
			vals[i] = sum / float64(period)
			defined[i] = true
		}
	}
	return vals, defined
}

// emaSeries computes the cumulative weighted EMA described in the package
// comment. Defined from the first value.
func emaSeries(xs []float64, period int) []float64 {
	vals := make([]float64, len(xs))
	if len(xs) == 0 {
		return vals
	}

	alpha := 2.0 / (float64(period) + 1.0)
	decay := 1.0 - alpha

	num, den := 0.0, 0.0
	for i, x := range xs {
		num = x + decay*num
		den = 1 + decay*den
		vals[i] = num / den
	}
	return vals
}

// rsiSeries computes Cutler's RSI: simple rolling means of gains and losses
// over period deltas. Undefined for the first period positions. When the
// rolling mean of losses is zero the RSI is 100 by definition, never a NaN.
func rsiSeries(xs []float64, period int) (vals []float64, defined []bool) {
	vals = make([]float64, len(xs))
	defined = make([]bool, len(xs))
	if period <= 0 || len(xs) < 2 {
		return vals, defined
	}

	gains := make([]float64, len(xs))
	losses := make([]float64, len(xs))
	for i := 1; i < len(xs); i++ {
		delta := xs[i] - xs[i-1]
		if delta > 0 {
			gains[i] = delta
		} else {
			losses[i] = -delta
		}
	}

	var gainSum, lossSum float64
	for i := 1; i < len(xs); i++ {
		gainSum += gains[i]
		lossSum += losses[i]
		if i > period {
			gainSum -= gains[i-period]
			lossSum -= losses[i-period]
		}
		if i >= period {
			avgLoss := lossSum / float64(period)
			if avgLoss == 0 {
				vals[i] = 100
			} else {
				avgGain := gainSum / float64(period)
				rs := avgGain / avgLoss
				vals[i] = 100 - 100/(1+rs)
			}
			defined[i] = true
		}
	}
	return vals, defined
}

// macdSeries computes the MACD line (fast EMA minus slow EMA), the signal
// line (EMA of the MACD line), and the histogram. All three share the EMA
// convention and are defined from the first bar.
func macdSeries(xs []float64, fast, slow, signalPeriod int) (macd, signal, hist []float64) {
	fastEMA := emaSeries(xs, fast)
	slowEMA := emaSeries(xs, slow)

	macd = make([]float64, len(xs))
	for i := range xs {
		macd[i] = fastEMA[i] - slowEMA[i]
	}
	signal = emaSeries(macd, signalPeriod)

	hist = make([]float64, len(xs))
	for i := range xs {
		hist[i] = macd[i] - signal[i]
	}
	return macd, signal, hist
}

// bollingerSeries computes the middle band (SMA), and upper/lower bands at
// k population standard deviations. Undefined for the first period-1
// positions.
func bollingerSeries(xs []float64, period int, k float64) (mid, upper, lower []float64, defined []bool) {
	mid = make([]float64, len(xs))
	upper = make([]float64, len(xs))
	lower = make([]float64, len(xs))
	defined = make([]bool, len(xs))
	if period <= 0 {
		return mid, upper, lower, defined
	}

	var sum, sumSq float64
	for i, x := range xs {
		sum += x
		sumSq += x * x
		if i >= period {
			old := xs[i-period]
			sum -= old
			sumSq -= old * old
		}
		if i >= period-1 {
			n := float64(period)
			mean := sum / n
			variance := sumSq/n - mean*mean
			if variance < 0 {
				variance = 0 // guard against negative epsilon from cancellation
			}
			std := math.Sqrt(variance)

			mid[i] = mean
			upper[i] = mean + k*std
			lower[i] = mean - k*std
			defined[i] = true
		}
	}
	return mid, upper, lower, defined
}
