package forecast

import (
	"math"
	"testing"
)

func TestReconcile_RequiresExactlyOneResult(t *testing.T) {
	if _, err := Reconcile(Result{}); err == nil {
		t.Error("empty result must be rejected")
	}
	if _, err := Reconcile(Result{Standard: &StandardResult{}, ML: &MlResult{}}); err == nil {
		t.Error("double result must be rejected")
	}
}

func TestReconcileStandard_DerivedFieldsAndTotals(t *testing.T) {
	mape := 20.0
	res := Result{Standard: &StandardResult{
		ModelName:         "seasonal-ensemble",
		TargetSeasonLabel: "PV26",
		CoveragePercent:   80,
		StoreCount:        10,
		MAPE:              &mape,
		Rows: []StandardRow{
			{Section: "A", Units: 100, RetailValue: 6000, CostValue: 2000, OptionCount: 4, SizeCount: 5, MarkdownPercent: 15, SurplusPercent: 8},
			{Section: "B", Units: 50, RetailValue: 4000, CostValue: 2000, OptionCount: 2, SizeCount: 4, MarkdownPercent: 15, SurplusPercent: 8},
		},
	}}

	plan, err := Reconcile(res)
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}

	// Rows are ordered by retail value descending.
	if plan.Rows[0].Section != "A" || plan.Rows[1].Section != "B" {
		t.Errorf("row order = [%s %s], want [A B]", plan.Rows[0].Section, plan.Rows[1].Section)
	}

	a := plan.Rows[0]
	if a.Profit != 4000 {
		t.Errorf("profit = %v, want 4000", a.Profit)
	}
	if math.Abs(a.PvpSharePercent-60) > 1e-9 {
		t.Errorf("pvp share = %v, want 60", a.PvpSharePercent)
	}
	if math.Abs(a.ContributionPercent-50) > 1e-9 {
		t.Errorf("contribution = %v, want 50", a.ContributionPercent)
	}
	if a.AvgPrice != 60 || a.AvgCost != 20 {
		t.Errorf("averages = %v / %v, want 60 / 20", a.AvgPrice, a.AvgCost)
	}
	if math.Abs(a.MarginPercent-200) > 1e-9 {
		t.Errorf("margin = %v, want 200", a.MarginPercent)
	}
	if a.PerStore != 10 {
		t.Errorf("per store = %v, want 10", a.PerStore)
	}
	if a.PerSize != 20 {
		t.Errorf("per size = %v, want 20", a.PerSize)
	}

	// Totals come from summing the reconciled rows.
	if plan.Totals.Units != 150 || plan.Totals.RetailValue != 10000 || plan.Totals.CostValue != 4000 {
		t.Errorf("totals = %+v, want 150 units / 10000 retail / 4000 cost", plan.Totals)
	}
	if plan.Totals.Profit != plan.Rows[0].Profit+plan.Rows[1].Profit {
		t.Error("totals profit must equal the sum of row profits")
	}

	if plan.AccuracyPercent == nil || *plan.AccuracyPercent != 80 {
		t.Errorf("accuracy = %v, want 80 (100 - MAPE)", plan.AccuracyPercent)
	}
	if plan.CoveragePercent == nil || *plan.CoveragePercent != 80 {
		t.Errorf("coverage = %v, want 80", plan.CoveragePercent)
	}
}

func TestReconcileML_MapsRowsDirectly(t *testing.T) {
	mape := 12.5
	cov := 91.0
	res := Result{ML: &MlResult{
		Status:            "success",
		TargetSeasonLabel: "OI25",
		ModelName:         "catboost",
		MAPE:              &mape,
		CoveragePercent:   &cov,
		PlanRows: []MlRow{
			{Section: "B", Units: 40, Retail: 2000, Cost: 900, OptionCount: 3, PerStore: 4, PerSize: 8},
			{Section: "A", Units: 80, Retail: 5000, Cost: 2100, OptionCount: 6, PerStore: 8, PerSize: 16},
		},
	}}

	plan, err := Reconcile(res)
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if plan.ModelName != "catboost" {
		t.Errorf("model = %s, want catboost", plan.ModelName)
	}
	if plan.Rows[0].Section != "A" {
		t.Errorf("rows must be resorted by retail value, got %s first", plan.Rows[0].Section)
	}
	if plan.Rows[0].Profit != 2900 {
		t.Errorf("profit = %v, want 2900", plan.Rows[0].Profit)
	}
	if plan.Totals.Units != 120 {
		t.Errorf("totals units = %d, want 120", plan.Totals.Units)
	}
	if plan.AccuracyPercent == nil || *plan.AccuracyPercent != 87.5 {
		t.Errorf("accuracy = %v, want 87.5", plan.AccuracyPercent)
	}
}

func TestReconcileML_DefaultModelName(t *testing.T) {
	plan, err := Reconcile(Result{ML: &MlResult{Status: "success"}})
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if plan.ModelName != "ML" {
		t.Errorf("model = %s, want ML fallback", plan.ModelName)
	}
}

func TestAccuracyFromMAPE_Nil(t *testing.T) {
	if AccuracyFromMAPE(nil) != nil {
		t.Error("nil MAPE must yield nil accuracy")
	}
}
