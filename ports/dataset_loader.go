package ports

import (
	"context"

	"retailpulse/domain/core"
	"retailpulse/domain/ledger"
)

// DatasetLoader delivers the already-parsed ledger bundle for a dataset.
// Column detection and file handling live behind this boundary.
type DatasetLoader interface {
	Load(ctx context.Context, id core.DatasetID) (*ledger.Dataset, error)
}
