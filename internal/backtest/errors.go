package backtest

import (
	"fmt"
	"time"
)

// ConfigError reports an invalid run parameter. The run fails before any
// simulation state is created.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid backtest config: %s: %s", e.Field, e.Reason)
}

// DataError reports a malformed bar in the loaded history: non-monotonic
// timestamps, negative prices, or inconsistent high/low bounds. Fatal for the
// run; corrupt data is never silently skipped.
type DataError struct {
	Index     int
	Symbol    string
	Timestamp time.Time
	Reason    string
}

func (e *DataError) Error() string {
	return fmt.Sprintf("bad bar %d (%s at %s): %s",
		e.Index, e.Symbol, e.Timestamp.Format(time.RFC3339), e.Reason)
}
