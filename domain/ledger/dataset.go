package ledger

import (
	"retailpulse/domain/core"
)

// Dataset bundles the three parsed exports for one upload. Treated as
// immutable after load; aggregation reads it concurrently without locking.
type Dataset struct {
	ID        core.DatasetID   `json:"id"`
	Sales     []SalesRecord    `json:"-"`
	Products  []ProductRecord  `json:"-"`
	Transfers []TransferRecord `json:"-"`
	LoadedAt  core.Timestamp   `json:"loaded_at"`

	// Rows the loader dropped because a mandatory date failed to parse.
	DroppedSalesRows    int `json:"dropped_sales_rows"`
	DroppedProductRows  int `json:"dropped_product_rows"`
	DroppedTransferRows int `json:"dropped_transfer_rows"`
}
