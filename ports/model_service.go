package ports

import (
	"context"

	"retailpulse/domain/core"
	"retailpulse/domain/forecast"
)

// ModelService is the external trainable pipeline. Train must succeed
// before Predict is attempted. Implementations classify their failures
// through the domain pipeline errors (transport, timeout, model).
type ModelService interface {
	Train(ctx context.Context, datasetID core.DatasetID) error
	Predict(ctx context.Context, datasetID core.DatasetID, targetSeason string) (*forecast.MlResult, error)
}
