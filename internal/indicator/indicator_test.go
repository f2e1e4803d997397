package indicator

import (
	"math"
	"testing"
	"time"

	"saturn/internal/domain"
)

func barsFromCloses(closes []float64) []domain.Bar {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	bars := make([]domain.Bar, len(closes))
	for i, c := range closes {
		bars[i] = domain.Bar{
			Symbol:    "TEST",
			Timestamp: start.AddDate(0, 0, i),
			Open:      c, High: c, Low: c, Close: c,
			Volume: 1000,
		}
	}
	return bars
}

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestSMASeries(t *testing.T) {
	vals, ok := smaSeries([]float64{1, 2, 3, 4, 5}, 3)

	if ok[0] || ok[1] {
		t.Error("SMA(3) should be undefined for the first 2 positions")
	}
	want := []float64{0, 0, 2, 3, 4}
	for i := 2; i < 5; i++ {
		if !ok[i] {
			t.Fatalf("SMA(3) undefined at %d", i)
		}
		if !almostEqual(vals[i], want[i]) {
			t.Errorf("SMA(3)[%d] = %v, want %v", i, vals[i], want[i])
		}
	}
}

func TestEMASeriesCumulativeConvention(t *testing.T) {
	// EMA(3): alpha = 0.5. Hand-computed adjust=true values for {1, 2, 3}:
	//   t0: 1
	//   t1: (2 + 0.5*1) / (1 + 0.5)        = 5/3
	//   t2: (3 + 0.5*2 + 0.25*1) / 1.75    = 17/7
	vals := emaSeries([]float64{1, 2, 3}, 3)

	want := []float64{1, 5.0 / 3.0, 17.0 / 7.0}
	for i := range want {
		if !almostEqual(vals[i], want[i]) {
			t.Errorf("EMA(3)[%d] = %v, want %v", i, vals[i], want[i])
		}
	}
}

func TestRSISeries(t *testing.T) {
	// Monotonically rising closes: no losses, RSI pegged at 100 once defined.
	rising := make([]float64, 20)
	for i := range rising {
		rising[i] = 100 + float64(i)
	}
	vals, ok := rsiSeries(rising, 14)

	for i := 0; i < 14; i++ {
		if ok[i] {
			t.Errorf("RSI(14) should be undefined at position %d", i)
		}
	}
	for i := 14; i < len(rising); i++ {
		if !ok[i] {
			t.Fatalf("RSI(14) undefined at %d", i)
		}
		if vals[i] != 100 {
			t.Errorf("RSI of a rising series = %v at %d, want 100", vals[i], i)
		}
	}

	// Alternating gains and losses of equal size settle at 50.
	alternating := make([]float64, 30)
	for i := range alternating {
		if i%2 == 0 {
			alternating[i] = 100
		} else {
			alternating[i] = 101
		}
	}
	vals, ok = rsiSeries(alternating, 14)
	last := len(alternating) - 1
	if !ok[last] || !almostEqual(vals[last], 50) {
		t.Errorf("RSI of alternating series = %v, want 50", vals[last])
	}
}

func TestMACDSeries(t *testing.T) {
	closes := []float64{10, 11, 12, 13, 12, 11, 12, 13, 14, 15}
	macd, signal, hist := macdSeries(closes, 3, 6, 4)

	fast := emaSeries(closes, 3)
	slow := emaSeries(closes, 6)
	for i := range closes {
		if !almostEqual(macd[i], fast[i]-slow[i]) {
			t.Errorf("macd[%d] = %v, want fast-slow = %v", i, macd[i], fast[i]-slow[i])
		}
		if !almostEqual(hist[i], macd[i]-signal[i]) {
			t.Errorf("hist[%d] = %v, want macd-signal = %v", i, hist[i], macd[i]-signal[i])
		}
	}
}

func TestBollingerSeries(t *testing.T) {
	// Window {1,2,3,4,5}: mean 3, population variance 2.
	xs := []float64{1, 2, 3, 4, 5}
	mid, upper, lower, ok := bollingerSeries(xs, 5, 2)

	if !ok[4] {
		t.Fatal("Bollinger(5) should be defined at the 5th position")
	}
	std := math.Sqrt(2)
	if !almostEqual(mid[4], 3) {
		t.Errorf("middle = %v, want 3", mid[4])
	}
	if !almostEqual(upper[4], 3+2*std) {
		t.Errorf("upper = %v, want %v", upper[4], 3+2*std)
	}
	if !almostEqual(lower[4], 3-2*std) {
		t.Errorf("lower = %v, want %v", lower[4], 3-2*std)
	}
}

func TestComputePreviousBarLag(t *testing.T) {
	closes := []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12}
	enriched := Compute(barsFromCloses(closes), Config{SMAPeriods: []int{3}, RSIPeriod: 14})

	name := SMAName(3)
	for i := 1; i < len(enriched); i++ {
		prev, prevOK := enriched[i].PrevAt(name)
		cur, curOK := enriched[i-1].At(name)
		if prevOK != curOK {
			t.Fatalf("bar %d: prev definedness %v != bar %d definedness %v", i, prevOK, i-1, curOK)
		}
		if prevOK && prev != cur {
			t.Errorf("bar %d: PrevAt = %v, want previous bar's value %v", i, prev, cur)
		}
	}

	// First bar never has previous values.
	if len(enriched[0].Prev) != 0 {
		t.Errorf("first bar Prev map has %d entries, want 0", len(enriched[0].Prev))
	}
}

func TestComputeShortSeries(t *testing.T) {
	// Fewer bars than every window: output exists, windowed indicators are
	// absent everywhere, and nothing panics.
	enriched := Compute(barsFromCloses([]float64{100, 101}), DefaultConfig())

	if len(enriched) != 2 {
		t.Fatalf("Compute returned %d bars, want 2", len(enriched))
	}
	for i, eb := range enriched {
		if _, ok := eb.At(SMAName(10)); ok {
			t.Errorf("bar %d: SMA(10) defined on a 2-bar series", i)
		}
		if _, ok := eb.At(RSIName(14)); ok {
			t.Errorf("bar %d: RSI(14) defined on a 2-bar series", i)
		}
		if _, ok := eb.At(BollMiddle); ok {
			t.Errorf("bar %d: Bollinger defined on a 2-bar series", i)
		}
	}
}

func TestComputeDeterministic(t *testing.T) {
	closes := []float64{10, 12, 11, 13, 15, 14, 16, 18, 17, 19, 21, 20, 22, 24, 23, 25, 27, 26, 28, 30, 29, 31}
	bars := barsFromCloses(closes)

	a := Compute(bars, DefaultConfig())
	b := Compute(bars, DefaultConfig())

	for i := range a {
		if len(a[i].Values) != len(b[i].Values) {
			t.Fatalf("bar %d: value map sizes differ", i)
		}
		for name, v := range a[i].Values {
			if b[i].Values[name] != v {
				t.Errorf("bar %d: %s differs across runs: %v vs %v", i, name, v, b[i].Values[name])
			}
		}
	}
}
