package rotation

import (
	"testing"
	"time"

	"retailpulse/domain/core"
	"retailpulse/domain/ledger"
)

func product(code, store string, entryDay, saleDay int) ledger.ProductRecord {
	entry := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, entryDay)
	sale := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, saleDay)
	return ledger.ProductRecord{
		ProductCode:        code,
		Family:             "FAMILIA A",
		StoreID:            core.NormalizeStoreID(store),
		StoreName:          "STORE " + store,
		SalePrice:          50,
		WarehouseEntryDate: &entry,
		FirstSaleDate:      &sale,
	}
}

func TestObserve_TrimBand(t *testing.T) {
	products := []ledger.ProductRecord{
		product("P1", "T001", 0, 5),
		product("P2", "T001", 0, 10),
		product("P3", "T001", 0, 400), // beyond 365, excluded
		product("P4", "T001", 0, 20),
		{ProductCode: "P5"}, // no dates
	}

	obs, missing, excluded := Observe(products)
	if len(obs) != 3 {
		t.Fatalf("trimmed set = %d observations, want 3", len(obs))
	}
	if excluded != 1 {
		t.Errorf("excluded = %d, want 1", excluded)
	}
	if missing != 1 {
		t.Errorf("missing dates = %d, want 1", missing)
	}
	if obs[0].Days != 5 || obs[1].Days != 10 || obs[2].Days != 20 {
		t.Errorf("days = [%v %v %v], want [5 10 20]", obs[0].Days, obs[1].Days, obs[2].Days)
	}
}

func TestObserve_NegativeDaysExcluded(t *testing.T) {
	// Sold before it entered the warehouse: data-entry error.
	obs, _, excluded := Observe([]ledger.ProductRecord{product("P1", "T001", 10, 5)})
	if len(obs) != 0 || excluded != 1 {
		t.Errorf("negative turnover must be excluded, got %d obs / %d excluded", len(obs), excluded)
	}
}

func TestCompute_InsufficientUnderGlobalFloor(t *testing.T) {
	products := []ledger.ProductRecord{
		product("P1", "T001", 0, 5),
		product("P2", "T001", 0, 10),
		product("P3", "T001", 0, 20),
	}
	s := Compute(products)
	if !s.Insufficient {
		t.Error("3 observations are under the global floor, Insufficient must be set")
	}
	if s.Mean != 0 || s.Median != 0 {
		t.Error("insufficient stats must stay zero")
	}
	if s.TrimmedCount != 3 {
		t.Errorf("TrimmedCount = %d, want 3", s.TrimmedCount)
	}
}

func TestCompute_LeadersAndFloors(t *testing.T) {
	var products []ledger.ProductRecord
	// Fast store with 3 observations around 5 days.
	products = append(products,
		product("F1", "T001", 0, 4),
		product("F2", "T001", 0, 5),
		product("F3", "T001", 0, 6),
	)
	// Slow store with 4 observations around 60 days.
	products = append(products,
		product("S1", "T002", 0, 55),
		product("S2", "T002", 0, 60),
		product("S3", "T002", 0, 65),
		product("S4", "T002", 0, 70),
	)
	// A store under the per-store floor never leads, however fast.
	products = append(products,
		product("X1", "T003", 0, 1),
		product("X2", "T003", 0, 1),
	)
	// Filler to clear the global floor.
	products = append(products, product("G1", "T004", 0, 30))

	s := Compute(products)
	if s.Insufficient {
		t.Fatal("10 observations must clear the global floor")
	}
	if s.FastestStore == nil || s.FastestStore.Key != "T001" {
		t.Errorf("fastest store = %+v, want T001", s.FastestStore)
	}
	if s.SlowestStore == nil || s.SlowestStore.Key != "T002" {
		t.Errorf("slowest store = %+v, want T002", s.SlowestStore)
	}
	if s.FastestProduct == nil || s.FastestProduct.Key != "X1" {
		t.Errorf("fastest product = %+v, want X1 (no product floor)", s.FastestProduct)
	}
	if s.SlowestProduct == nil || s.SlowestProduct.Key != "S4" {
		t.Errorf("slowest product = %+v, want S4", s.SlowestProduct)
	}
}

func TestComputeMargin_NilVersusZero(t *testing.T) {
	noCost := ledger.ProductRecord{ProductCode: "P1", SalePrice: 50}
	if m := ComputeMargin(noCost); m != nil {
		t.Errorf("unknown cost must yield nil margin, got %+v", m)
	}

	cost := 50.0
	breakEven := ledger.ProductRecord{ProductCode: "P2", SalePrice: 50, CostPrice: &cost}
	m := ComputeMargin(breakEven)
	if m == nil {
		t.Fatal("break-even product must yield a margin")
	}
	if m.Unit != 0 || m.Percent != 0 {
		t.Errorf("break-even margin = %+v, want zero values", m)
	}
}

func TestSummarizeMargins(t *testing.T) {
	cheap, expensive := 20.0, 60.0
	products := []ledger.ProductRecord{
		{ProductCode: "P1", Family: "A", SalePrice: 50, CostPrice: &cheap},
		{ProductCode: "P2", Family: "A", SalePrice: 50, CostPrice: &expensive}, // priced below cost
		{ProductCode: "P3", Family: "A", SalePrice: 50},                        // no cost
	}

	s := SummarizeMargins(products)
	if s.WithCost != 2 || s.MissingCost != 1 {
		t.Errorf("coverage = %d with / %d missing, want 2 / 1", s.WithCost, s.MissingCost)
	}
	if s.AvgUnitMargin != 10 {
		t.Errorf("AvgUnitMargin = %v, want 10 ((30 + -10) / 2)", s.AvgUnitMargin)
	}
	if len(s.NegativeMargins) != 1 || s.NegativeMargins[0].ProductCode != "P2" {
		t.Errorf("negative margin list = %+v, want [P2]", s.NegativeMargins)
	}
}
