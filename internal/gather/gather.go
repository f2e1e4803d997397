// Package gather fetches historical market data from external providers and
// persists it to the local bar store.
package gather

import "context"

// Gatherer is a long-running data collection job.
type Gatherer interface {
	// Name returns a unique identifier for the gatherer.
	Name() string

	// Run executes the gathering job. It returns when the job completes or
	// the context is cancelled.
	Run(ctx context.Context) error
}
