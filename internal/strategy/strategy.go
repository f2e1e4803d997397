// Package strategy defines the Strategy interface for backtest trading
// strategies and provides a Registry for managing multiple strategy
// implementations.
package strategy

import (
	"sort"

	"saturn/internal/domain"
	"saturn/internal/indicator"
)

// Strategy is a pure decision function over one enriched bar. Implementations
// are stateless across calls: everything they need about the past is either
// in the enriched bar (previous-bar indicator values exist exactly for
// crossover detection) or in the positions/cash the orchestrator supplies.
type Strategy interface {
	// Name returns the unique identifier for this strategy.
	Name() string

	// Decide returns the order intent for this bar, or nil for no signal.
	// A strategy must return nil whenever any indicator it depends on is
	// still undefined, and must never request a sell quantity exceeding the
	// open position for that symbol.
	Decide(bar indicator.EnrichedBar, positions map[string]domain.Position, cash float64) *domain.OrderIntent
}

// Registry holds a named collection of strategies for lookup and enumeration.
type Registry struct {
	strategies map[string]Strategy
}

// NewRegistry creates an empty strategy Registry.
func NewRegistry() *Registry {
	return &Registry{
		strategies: make(map[string]Strategy),
	}
}

// Register adds a strategy to the registry, keyed by its Name().
func (r *Registry) Register(s Strategy) {
	r.strategies[s.Name()] = s
}

// Get retrieves a strategy by name. The second return value indicates whether
// the strategy was found.
func (r *Registry) Get(name string) (Strategy, bool) {
	s, ok := r.strategies[name]
	return s, ok
}

// List returns a sorted slice of all registered strategy names.
func (r *Registry) List() []string {
	names := make([]string, 0, len(r.strategies))
	for name := range r.strategies {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
