package grouping

import (
	"errors"
	"testing"
	"time"

	"retailpulse/domain/core"
	"retailpulse/domain/ledger"
)

func sale(store, season string, qty int, net float64) ledger.SalesRecord {
	return ledger.SalesRecord{
		StoreID:   core.NormalizeStoreID(store),
		StoreName: "STORE " + store,
		Family:    "FAMILIA A",
		Season:    season,
		SaleDate:  time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC),
		Quantity:  qty,
		NetAmount: net,
	}
}

func TestGroupBy_FirstSeenOrder(t *testing.T) {
	records := []ledger.SalesRecord{
		sale("B01", "PV25", 1, 10),
		sale("A01", "PV25", 2, 20),
		sale("B01", "PV25", 3, 30),
	}

	out, err := GroupBy(records, DimStore)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out) != 2 {
		t.Fatalf("expected 2 groups, got %d", len(out))
	}
	if out[0].Key != "B01" || out[1].Key != "A01" {
		t.Errorf("groups must keep first-seen order, got [%s %s]", out[0].Key, out[1].Key)
	}
	if out[0].Units != 4 || out[0].Revenue != 40 {
		t.Errorf("B01 aggregate = %d units / %v revenue, want 4 / 40", out[0].Units, out[0].Revenue)
	}
}

func TestGroupBy_UnknownDimension(t *testing.T) {
	_, err := GroupBy([]ledger.SalesRecord{sale("A01", "PV25", 1, 10)}, Dimension("color"))
	if !errors.Is(err, core.ErrUnknownDimension) {
		t.Errorf("expected ErrUnknownDimension, got %v", err)
	}
}

func TestGroupByStacked_ZeroFillsCrossProduct(t *testing.T) {
	records := []ledger.SalesRecord{
		sale("A01", "PV25", 1, 10),
		sale("A01", "OI24", 2, 20),
		sale("B01", "PV25", 3, 30),
		// B01 has no OI24 sales.
	}

	out, err := GroupByStacked(records, DimStore)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out) != 4 {
		t.Fatalf("expected full 2x2 cross product, got %d rows", len(out))
	}

	var found bool
	for _, g := range out {
		if g.Key == "B01" && g.Season == "OI24" {
			found = true
			if g.Units != 0 || g.Revenue != 0 {
				t.Errorf("missing combination must be zero-filled, got %d/%v", g.Units, g.Revenue)
			}
		}
	}
	if !found {
		t.Error("B01/OI24 row missing from the cross product")
	}
}

func TestTopN_StableOnTies(t *testing.T) {
	records := []ledger.SalesRecord{
		sale("A01", "PV25", 1, 50),
		sale("B01", "PV25", 1, 50),
		sale("C01", "PV25", 1, 10),
	}
	grouped, _ := GroupBy(records, DimStore)

	top := TopN(grouped, 2, ByRevenue)
	if len(top) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(top))
	}
	// A01 and B01 tie on revenue; insertion order breaks the tie.
	if top[0].Key != "A01" || top[1].Key != "B01" {
		t.Errorf("tie must keep insertion order, got [%s %s]", top[0].Key, top[1].Key)
	}

	// The input must be untouched.
	if grouped[0].Key != "A01" || grouped[2].Key != "C01" {
		t.Error("TopN must not reorder its input")
	}
}

func TestTopN_NegativeCountIsEmpty(t *testing.T) {
	records := []ledger.SalesRecord{
		sale("A01", "PV25", 1, 50),
		sale("B01", "PV25", 1, 10),
	}
	grouped, _ := GroupBy(records, DimStore)

	if got := TopN(grouped, -1, ByRevenue); len(got) != 0 {
		t.Errorf("TopN(-1) = %d rows, want 0", len(got))
	}
	if got := BottomN(grouped, -3, ByUnits); len(got) != 0 {
		t.Errorf("BottomN(-3) = %d rows, want 0", len(got))
	}
}

func TestBottomN(t *testing.T) {
	records := []ledger.SalesRecord{
		sale("A01", "PV25", 5, 500),
		sale("B01", "PV25", 1, 10),
	}
	grouped, _ := GroupBy(records, DimStore)

	bottom := BottomN(grouped, 1, ByUnits)
	if len(bottom) != 1 || bottom[0].Key != "B01" {
		t.Errorf("expected B01 at the bottom, got %v", bottom)
	}
}

func TestTopStoresStacked_RanksByTotalFirst(t *testing.T) {
	// A01 leads on total revenue even though B01 wins within PV25.
	records := []ledger.SalesRecord{
		sale("A01", "PV25", 1, 40),
		sale("A01", "OI24", 1, 60),
		sale("B01", "PV25", 1, 50),
		sale("C01", "PV25", 1, 5),
	}

	out, err := TopStoresStacked(records, 2, ByRevenue)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	stores := make(map[string]struct{})
	for _, g := range out {
		stores[g.Key] = struct{}{}
	}
	if _, ok := stores["A01"]; !ok {
		t.Error("A01 must be selected by total revenue")
	}
	if _, ok := stores["C01"]; ok {
		t.Error("C01 must not be in the top 2")
	}
}

func TestSortSizes_MerchandisingOrder(t *testing.T) {
	rows := []GroupedResult{
		{Key: "ZZ"}, {Key: "M"}, {Key: "38"}, {Key: "TU"},
		{Key: "XS"}, {Key: "36"}, {Key: "XL"}, {Key: "AA"},
	}
	SortSizes(rows)

	want := []string{"36", "38", "XS", "M", "XL", "TU", "AA", "ZZ"}
	for i, w := range want {
		if rows[i].Key != w {
			t.Fatalf("position %d = %s, want %s (full order %v)", i, rows[i].Key, w, rows)
		}
	}
}
