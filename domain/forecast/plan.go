package forecast

// PlanRow is one merchandising section of a purchase plan, in the canonical
// display shape. Both pipelines are mapped into this shape before any
// consumer sees them.
type PlanRow struct {
	Section             string  `json:"section"`
	PvpSharePercent     float64 `json:"pvp_share_percent"`
	ContributionPercent float64 `json:"contribution_percent"`
	Units               int     `json:"units"`
	RetailValue         float64 `json:"retail_value"`
	CostValue           float64 `json:"cost_value"`
	Profit              float64 `json:"profit"`
	OptionCount         int     `json:"option_count"`
	AvgCost             float64 `json:"avg_cost"`
	AvgPrice            float64 `json:"avg_price"`
	MarginPercent       float64 `json:"margin_percent"`
	MarkdownPercent     float64 `json:"markdown_percent"`
	SurplusPercent      float64 `json:"surplus_percent"`
	PerStore            float64 `json:"per_store"`
	PerSize             float64 `json:"per_size"`
}

// PurchasePlan is the normalized forecast output. Totals is computed by
// summing Rows, never by re-aggregating the source data, so the two can
// never disagree.
type PurchasePlan struct {
	ModelName         string   `json:"model_name"`
	AccuracyPercent   *float64 `json:"accuracy_percent,omitempty"`
	MAE               *float64 `json:"mae,omitempty"`
	RMSE              *float64 `json:"rmse,omitempty"`
	CoveragePercent   *float64 `json:"coverage_percent,omitempty"`
	TargetSeasonLabel string   `json:"target_season_label"`
	Rows              []PlanRow `json:"rows"`
	Totals            PlanRow   `json:"totals"`
}

// Clone returns a plan that shares no mutable state with the receiver.
func (p PurchasePlan) Clone() PurchasePlan {
	out := p
	out.AccuracyPercent = cloneFloat(p.AccuracyPercent)
	out.MAE = cloneFloat(p.MAE)
	out.RMSE = cloneFloat(p.RMSE)
	out.CoveragePercent = cloneFloat(p.CoveragePercent)
	if p.Rows != nil {
		out.Rows = make([]PlanRow, len(p.Rows))
		copy(out.Rows, p.Rows)
	}
	return out
}

func cloneFloat(v *float64) *float64 {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

// AccuracyFromMAPE derives the display accuracy as 100 - MAPE, or nil when
// the error metric is unavailable.
func AccuracyFromMAPE(mape *float64) *float64 {
	if mape == nil {
		return nil
	}
	acc := 100 - *mape
	return &acc
}

// computeTotals sums the row set into one totals row. Averages and margin
// are derived from the summed figures.
func computeTotals(rows []PlanRow) PlanRow {
	t := PlanRow{Section: "TOTAL"}
	var perStoreSum, perSizeSum float64
	for _, r := range rows {
		t.Units += r.Units
		t.RetailValue += r.RetailValue
		t.CostValue += r.CostValue
		t.Profit += r.Profit
		t.OptionCount += r.OptionCount
		t.PvpSharePercent += r.PvpSharePercent
		t.ContributionPercent += r.ContributionPercent
		perStoreSum += r.PerStore
		perSizeSum += r.PerSize
	}
	if t.Units > 0 {
		t.AvgCost = t.CostValue / float64(t.Units)
		t.AvgPrice = t.RetailValue / float64(t.Units)
	}
	if t.CostValue > 0 {
		t.MarginPercent = (t.RetailValue - t.CostValue) / t.CostValue * 100
	}
	t.PerStore = perStoreSum
	t.PerSize = perSizeSum
	if n := len(rows); n > 0 {
		var mdSum, spSum float64
		for _, r := range rows {
			mdSum += r.MarkdownPercent
			spSum += r.SurplusPercent
		}
		t.MarkdownPercent = mdSum / float64(n)
		t.SurplusPercent = spSum / float64(n)
	}
	return t
}
