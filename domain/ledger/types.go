package ledger

import (
	"time"

	"retailpulse/domain/core"
)

// FictitiousFamily is the sentinel family used for non-merchandise
// accounting adjustments. Most headline KPIs exclude it; the raw
// transaction count does not. See kpi.Compute.
const FictitiousFamily = "GR.ART.FICTICIO"

// IsFictitious reports whether a family description is the accounting
// sentinel, tolerating case and padding differences in the export.
func IsFictitious(family string) bool {
	return core.NormalizeKey(family) == FictitiousFamily
}

// SalesRecord is one ledger line. Quantity < 0 marks a return; NetAmount
// carries the same sign. Records are immutable once loaded.
type SalesRecord struct {
	StoreID    core.StoreID `json:"store_id"`
	StoreName  string       `json:"store_name"`
	IsOnline   bool         `json:"is_online"`
	Zone       string       `json:"zone"`
	FamilyCode string       `json:"family_code"`
	Family     string       `json:"family"`
	Season     string       `json:"season"`
	ProductCode string      `json:"product_code"`
	Size       string       `json:"size"`
	SaleDate   time.Time    `json:"sale_date"`
	Quantity   int          `json:"quantity"`
	NetAmount  float64      `json:"net_amount"`
}

// Month returns the sale month key in YYYY-MM form.
func (r SalesRecord) Month() string {
	return r.SaleDate.Format("2006-01")
}

// SignMismatch reports a quantity/amount sign disagreement. Such rows are
// data-quality flags, not hard failures.
func (r SalesRecord) SignMismatch() bool {
	switch {
	case r.Quantity > 0:
		return r.NetAmount < 0
	case r.Quantity < 0:
		return r.NetAmount > 0
	default:
		return false
	}
}

// ProductRecord is one SKU line from the product export. CostPrice is nil
// when the cost is unknown; nil is never coerced to zero.
type ProductRecord struct {
	ProductCode        string       `json:"product_code"`
	Family             string       `json:"family"`
	Season             string       `json:"season"`
	Size               string       `json:"size"`
	StoreID            core.StoreID `json:"store_id"`
	StoreName          string       `json:"store_name"`
	SalePrice          float64      `json:"sale_price"`
	CostPrice          *float64     `json:"cost_price,omitempty"`
	WarehouseEntryDate *time.Time   `json:"warehouse_entry_date,omitempty"`
	FirstSaleDate      *time.Time   `json:"first_sale_date,omitempty"`
	ShipDate           *time.Time   `json:"ship_date,omitempty"`
}

// TransferRecord is one inter-store movement, used only for the sales
// versus transfers comparison.
type TransferRecord struct {
	StoreID   core.StoreID `json:"store_id"`
	StoreName string       `json:"store_name"`
	Season    string       `json:"season"`
	Quantity  int          `json:"quantity"`
	Date      time.Time    `json:"date"`
}
