package backtest

import (
	"context"
	"time"

	"saturn/internal/domain"
	"saturn/internal/store"
)

// BarSource supplies the historical bars for a run. The engine does not care
// whether bars come from a database, files, or a remote feed; it only
// requires monotonic timestamps and non-degenerate OHLC, which it validates
// itself.
type BarSource interface {
	// LoadHistory returns the bars for symbol within [start, end], oldest
	// first.
	LoadHistory(ctx context.Context, symbol string, start, end time.Time) ([]domain.Bar, error)
}

// ---------------------------------------------------------------------------
// Store-backed source
// ---------------------------------------------------------------------------

// Compile-time interface check.
var _ BarSource = (*StoreSource)(nil)

// StoreSource adapts a store.BarStore to the BarSource interface.
type StoreSource struct {
	store  store.BarStore
	market domain.Market
}

// NewStoreSource creates a BarSource reading from the given store and market.
func NewStoreSource(s store.BarStore, market domain.Market) *StoreSource {
	return &StoreSource{store: s, market: market}
}

// LoadHistory reads bars from the underlying store.
func (s *StoreSource) LoadHistory(ctx context.Context, symbol string, start, end time.Time) ([]domain.Bar, error) {
	return s.store.ReadBars(ctx, symbol, s.market, start, end)
}

// ---------------------------------------------------------------------------
// Static source
// ---------------------------------------------------------------------------

// Compile-time interface check.
var _ BarSource = (StaticSource)(nil)

// StaticSource serves a fixed in-memory bar slice. Useful for tests and for
// callers that already hold the history.
type StaticSource []domain.Bar

// LoadHistory returns the bars for symbol within [start, end], preserving
// input order.
func (s StaticSource) LoadHistory(_ context.Context, symbol string, start, end time.Time) ([]domain.Bar, error) {
	var out []domain.Bar
	for _, b := range s {
		if b.Symbol != symbol {
			continue
		}
		if b.Timestamp.Before(start) || b.Timestamp.After(end) {
			continue
		}
		out = append(out, b)
	}
	return out, nil
}
