package ports

import (
	"context"

	"retailpulse/domain/forecast"
	"retailpulse/domain/ledger"
)

// ProgressFunc reports pipeline progress. Implementations may call it from
// the pipeline goroutine; receivers must tolerate out-of-order calls.
type ProgressFunc func(processed, total int)

// EnsemblePipeline is the deterministic in-process prediction path. It is
// expected to succeed on any well-formed dataset thanks to hierarchical
// fallbacks when SKU-level history is thin.
type EnsemblePipeline interface {
	Run(ctx context.Context, ds *ledger.Dataset, horizonMonths int, targetSeason string, progress ProgressFunc) (*forecast.StandardResult, error)
}
