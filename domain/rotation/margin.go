package rotation

import (
	"retailpulse/domain/ledger"
)

// Margin is a known unit and percentage margin for one product. A zero
// margin (cost equals price) is a legitimate value; "unknown cost" is
// represented by the absence of a Margin, never by zero.
type Margin struct {
	Unit    float64 `json:"unit"`
	Percent float64 `json:"percent"`
}

// ComputeMargin returns nil when the cost price is unknown.
func ComputeMargin(p ledger.ProductRecord) *Margin {
	if p.CostPrice == nil {
		return nil
	}
	m := Margin{Unit: p.SalePrice - *p.CostPrice}
	if p.SalePrice > 0 {
		m.Percent = m.Unit / p.SalePrice * 100
	}
	return &m
}

// NegativeMarginProduct flags a product priced below cost, surfaced as a
// data-quality list next to the margin KPIs.
type NegativeMarginProduct struct {
	ProductCode string  `json:"product_code"`
	Family      string  `json:"family"`
	SalePrice   float64 `json:"sale_price"`
	CostPrice   float64 `json:"cost_price"`
	UnitMargin  float64 `json:"unit_margin"`
}

// MarginSummary aggregates margins over products with a known cost. The
// coverage counts distinguish a family that genuinely breaks even from one
// whose products simply lack cost data.
type MarginSummary struct {
	AvgUnitMargin    float64 `json:"avg_unit_margin"`
	AvgPercentMargin float64 `json:"avg_percent_margin"`

	WithCost    int `json:"with_cost"`
	MissingCost int `json:"missing_cost"`

	NegativeMargins []NegativeMarginProduct `json:"negative_margins,omitempty"`
}

// SummarizeMargins averages unit and percentage margins over products with
// known cost only. Products without cost are counted, never zero-filled.
func SummarizeMargins(products []ledger.ProductRecord) MarginSummary {
	var s MarginSummary
	var unitSum, pctSum float64

	for _, p := range products {
		m := ComputeMargin(p)
		if m == nil {
			s.MissingCost++
			continue
		}
		s.WithCost++
		unitSum += m.Unit
		pctSum += m.Percent
		if m.Unit < 0 {
			s.NegativeMargins = append(s.NegativeMargins, NegativeMarginProduct{
				ProductCode: p.ProductCode,
				Family:      p.Family,
				SalePrice:   p.SalePrice,
				CostPrice:   *p.CostPrice,
				UnitMargin:  m.Unit,
			})
		}
	}

	if s.WithCost > 0 {
		s.AvgUnitMargin = unitSum / float64(s.WithCost)
		s.AvgPercentMargin = pctSum / float64(s.WithCost)
	}
	return s
}
