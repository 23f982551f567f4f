package forecast

import (
	"fmt"
	"sort"
)

// StandardRow is the raw per-section output of the deterministic ensemble.
// Shares, averages and margin are derived during reconciliation.
type StandardRow struct {
	Section         string
	Units           float64
	RetailValue     float64
	CostValue       float64
	OptionCount     int
	SizeCount       int
	MarkdownPercent float64
	SurplusPercent  float64
}

// StandardResult is the deterministic ensemble's plan.
type StandardResult struct {
	ModelName         string
	TargetSeasonLabel string
	CoveragePercent   float64
	StoreCount        int
	MAPE              *float64
	MAE               *float64
	RMSE              *float64
	Rows              []StandardRow
}

// MlRow mirrors one plan row of the ML service payload, which uses the
// business spreadsheet's column names on the wire.
type MlRow struct {
	Section         string  `json:"SECCION"`
	PvpShare        float64 `json:"% seccion"`
	Contribution    float64 `json:"CONTRI."`
	Units           float64 `json:"UDS"`
	Retail          float64 `json:"PVP"`
	Cost            float64 `json:"COSTE"`
	OptionCount     float64 `json:"Opc"`
	AvgCost         float64 `json:"PM Cte"`
	AvgPrice        float64 `json:"PM Vta"`
	Margin          float64 `json:"Mk"`
	MarkdownPercent float64 `json:"MARKDOWN"`
	SurplusPercent  float64 `json:"SOBRANTE"`
	PerStore        float64 `json:"x tienda"`
	PerSize         float64 `json:"x talla"`
}

// MlResult mirrors the ML service's predict payload. Status is inspected by
// the orchestrator before reconciliation: a transport-level success whose
// payload reports an error is a job failure, not a plan.
type MlResult struct {
	Status            string   `json:"status"`
	Error             string   `json:"error,omitempty"`
	TargetSeasonLabel string   `json:"temporada_objetivo"`
	CoveragePercent   *float64 `json:"cobertura_productos,omitempty"`
	ModelName         string   `json:"modelo_ganador"`
	MAPE              *float64 `json:"mape,omitempty"`
	MAE               *float64 `json:"mae,omitempty"`
	RMSE              *float64 `json:"rmse,omitempty"`
	PlanRows          []MlRow  `json:"plan_compras"`
}

// Result is the tagged union of the two pipeline outputs. Exactly one side
// is set; the tag never leaks past Reconcile.
type Result struct {
	Standard *StandardResult
	ML       *MlResult
}

// Reconcile maps either pipeline output into the canonical PurchasePlan.
// Rows are ordered by retail value descending; totals are computed by
// summation over the reconciled rows.
func Reconcile(res Result) (PurchasePlan, error) {
	switch {
	case res.Standard != nil && res.ML == nil:
		return reconcileStandard(res.Standard), nil
	case res.ML != nil && res.Standard == nil:
		return reconcileML(res.ML), nil
	default:
		return PurchasePlan{}, fmt.Errorf("result must carry exactly one pipeline output")
	}
}

func reconcileStandard(r *StandardResult) PurchasePlan {
	var totalRetail, totalCost float64
	for _, row := range r.Rows {
		totalRetail += row.RetailValue
		totalCost += row.CostValue
	}

	rows := make([]PlanRow, 0, len(r.Rows))
	for _, s := range r.Rows {
		row := PlanRow{
			Section:         s.Section,
			Units:           int(s.Units + 0.5),
			RetailValue:     s.RetailValue,
			CostValue:       s.CostValue,
			Profit:          s.RetailValue - s.CostValue,
			OptionCount:     s.OptionCount,
			MarkdownPercent: s.MarkdownPercent,
			SurplusPercent:  s.SurplusPercent,
		}
		if totalRetail > 0 {
			row.PvpSharePercent = s.RetailValue / totalRetail * 100
		}
		if totalCost > 0 {
			row.ContributionPercent = s.CostValue / totalCost * 100
		}
		if s.Units > 0 {
			row.AvgCost = s.CostValue / s.Units
			row.AvgPrice = s.RetailValue / s.Units
		}
		if s.CostValue > 0 {
			row.MarginPercent = (s.RetailValue - s.CostValue) / s.CostValue * 100
		}
		if r.StoreCount > 0 {
			row.PerStore = s.Units / float64(r.StoreCount)
		}
		if s.SizeCount > 0 {
			row.PerSize = s.Units / float64(s.SizeCount)
		}
		rows = append(rows, row)
	}
	sortRows(rows)

	coverage := r.CoveragePercent
	return PurchasePlan{
		ModelName:         r.ModelName,
		AccuracyPercent:   AccuracyFromMAPE(r.MAPE),
		MAE:               r.MAE,
		RMSE:              r.RMSE,
		CoveragePercent:   &coverage,
		TargetSeasonLabel: r.TargetSeasonLabel,
		Rows:              rows,
		Totals:            computeTotals(rows),
	}
}

func reconcileML(r *MlResult) PurchasePlan {
	rows := make([]PlanRow, 0, len(r.PlanRows))
	for _, m := range r.PlanRows {
		rows = append(rows, PlanRow{
			Section:             m.Section,
			PvpSharePercent:     m.PvpShare,
			ContributionPercent: m.Contribution,
			Units:               int(m.Units + 0.5),
			RetailValue:         m.Retail,
			CostValue:           m.Cost,
			Profit:              m.Retail - m.Cost,
			OptionCount:         int(m.OptionCount + 0.5),
			AvgCost:             m.AvgCost,
			AvgPrice:            m.AvgPrice,
			MarginPercent:       m.Margin,
			MarkdownPercent:     m.MarkdownPercent,
			SurplusPercent:      m.SurplusPercent,
			PerStore:            m.PerStore,
			PerSize:             m.PerSize,
		})
	}
	sortRows(rows)

	modelName := r.ModelName
	if modelName == "" {
		modelName = "ML"
	}
	return PurchasePlan{
		ModelName:         modelName,
		AccuracyPercent:   AccuracyFromMAPE(r.MAPE),
		MAE:               r.MAE,
		RMSE:              r.RMSE,
		CoveragePercent:   r.CoveragePercent,
		TargetSeasonLabel: r.TargetSeasonLabel,
		Rows:              rows,
		Totals:            computeTotals(rows),
	}
}

func sortRows(rows []PlanRow) {
	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].RetailValue > rows[j].RetailValue
	})
}
