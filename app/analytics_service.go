package app

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/rs/zerolog/log"

	"retailpulse/domain/core"
	"retailpulse/domain/grouping"
	"retailpulse/domain/kpi"
	"retailpulse/domain/ledger"
	"retailpulse/domain/rotation"
	"retailpulse/ports"
)

// AnalyticsService owns the loaded datasets and answers every read-side
// question: KPIs, grouped breakdowns, rankings, rotation and margin
// statistics. Filtered views and KPI results are cached per canonical
// filter key; a dataset reload invalidates its cache wholesale.
type AnalyticsService struct {
	loader ports.DatasetLoader

	mu       sync.RWMutex
	datasets map[core.DatasetID]*ledger.Dataset
	filtered map[string][]ledger.SalesRecord
	kpis     map[string]kpi.Kpis
}

// NewAnalyticsService creates the analytics service.
func NewAnalyticsService(loader ports.DatasetLoader) *AnalyticsService {
	return &AnalyticsService{
		loader:   loader,
		datasets: make(map[core.DatasetID]*ledger.Dataset),
		filtered: make(map[string][]ledger.SalesRecord),
		kpis:     make(map[string]kpi.Kpis),
	}
}

// Open loads the dataset through the loader and registers it, replacing
// any previous version and dropping its cached views.
func (s *AnalyticsService) Open(ctx context.Context, id core.DatasetID) (*ledger.Dataset, error) {
	ds, err := s.loader.Load(ctx, id)
	if err != nil {
		return nil, err
	}
	s.Register(ds)
	return ds, nil
}

// Register installs an already-built dataset.
func (s *AnalyticsService) Register(ds *ledger.Dataset) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.datasets[ds.ID] = ds
	prefix := string(ds.ID) + "|"
	for k := range s.filtered {
		if len(k) >= len(prefix) && k[:len(prefix)] == prefix {
			delete(s.filtered, k)
		}
	}
	for k := range s.kpis {
		if len(k) >= len(prefix) && k[:len(prefix)] == prefix {
			delete(s.kpis, k)
		}
	}

	log.Info().
		Str("component", "analytics").
		Str("dataset", string(ds.ID)).
		Int("sales", len(ds.Sales)).
		Msg("dataset registered")
}

// Dataset returns the registered dataset or core.ErrDatasetNotFound.
func (s *AnalyticsService) Dataset(id core.DatasetID) (*ledger.Dataset, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ds, ok := s.datasets[id]
	if !ok {
		return nil, fmt.Errorf("%w %q", core.ErrDatasetNotFound, id.String())
	}
	return ds, nil
}

// DatasetIDs lists the registered datasets in stable order.
func (s *AnalyticsService) DatasetIDs() []core.DatasetID {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]core.DatasetID, 0, len(s.datasets))
	for id := range s.datasets {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Filtered returns the sales records matching the filter, in ledger order.
// Results are cached by the filter's canonical key.
func (s *AnalyticsService) Filtered(id core.DatasetID, spec ledger.FilterSpec) ([]ledger.SalesRecord, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}

	key := id.String() + "|" + spec.Key()

	s.mu.RLock()
	if cached, ok := s.filtered[key]; ok {
		s.mu.RUnlock()
		return cached, nil
	}
	ds, ok := s.datasets[id]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w %q", core.ErrDatasetNotFound, id.String())
	}

	pred, err := ledger.Compile(spec)
	if err != nil {
		return nil, err
	}
	out := ledger.Apply(ds.Sales, pred)

	s.mu.Lock()
	s.filtered[key] = out
	s.mu.Unlock()
	return out, nil
}

// Kpis computes the headline KPI block for the filtered view.
func (s *AnalyticsService) Kpis(id core.DatasetID, spec ledger.FilterSpec) (kpi.Kpis, error) {
	key := id.String() + "|" + spec.Key()

	s.mu.RLock()
	if cached, ok := s.kpis[key]; ok {
		s.mu.RUnlock()
		return cached, nil
	}
	s.mu.RUnlock()

	records, err := s.Filtered(id, spec)
	if err != nil {
		return kpi.Kpis{}, err
	}
	result := kpi.Compute(records)

	s.mu.Lock()
	s.kpis[key] = result
	s.mu.Unlock()
	return result, nil
}

// Breakdown groups the filtered view along one dimension. Stacked adds the
// per-season split with a zero-filled cross product. Size rows come back in
// merchandising size order rather than first-seen order.
func (s *AnalyticsService) Breakdown(id core.DatasetID, spec ledger.FilterSpec, dim grouping.Dimension, stacked bool) ([]grouping.GroupedResult, error) {
	records, err := s.Filtered(id, spec)
	if err != nil {
		return nil, err
	}
	var rows []grouping.GroupedResult
	if stacked {
		rows, err = grouping.GroupByStacked(records, dim)
	} else {
		rows, err = grouping.GroupBy(records, dim)
	}
	if err != nil {
		return nil, err
	}
	if dim == grouping.DimSize {
		grouping.SortSizes(rows)
	}
	return rows, nil
}

// TopGroups ranks the grouped view and keeps the best n entries.
func (s *AnalyticsService) TopGroups(id core.DatasetID, spec ledger.FilterSpec, dim grouping.Dimension, n int, by grouping.ValueField) ([]grouping.GroupedResult, error) {
	grouped, err := s.Breakdown(id, spec, dim, false)
	if err != nil {
		return nil, err
	}
	return grouping.TopN(grouped, n, by), nil
}

// BottomGroups ranks the grouped view and keeps the worst n entries.
func (s *AnalyticsService) BottomGroups(id core.DatasetID, spec ledger.FilterSpec, dim grouping.Dimension, n int, by grouping.ValueField) ([]grouping.GroupedResult, error) {
	grouped, err := s.Breakdown(id, spec, dim, false)
	if err != nil {
		return nil, err
	}
	return grouping.BottomN(grouped, n, by), nil
}

// TopStoresStacked ranks stores by total value and returns the per-season
// stack for the winners.
func (s *AnalyticsService) TopStoresStacked(id core.DatasetID, spec ledger.FilterSpec, n int, by grouping.ValueField) ([]grouping.GroupedResult, error) {
	records, err := s.Filtered(id, spec)
	if err != nil {
		return nil, err
	}
	return grouping.TopStoresStacked(records, n, by)
}

// Rotation computes turnover statistics over the product records matching
// the filter's season and family constraints.
func (s *AnalyticsService) Rotation(id core.DatasetID, spec ledger.FilterSpec) (rotation.Stats, error) {
	products, err := s.filteredProducts(id, spec)
	if err != nil {
		return rotation.Stats{}, err
	}
	return rotation.Compute(products), nil
}

// Margins summarizes unit and percent margins over the matching products.
func (s *AnalyticsService) Margins(id core.DatasetID, spec ledger.FilterSpec) (rotation.MarginSummary, error) {
	products, err := s.filteredProducts(id, spec)
	if err != nil {
		return rotation.MarginSummary{}, err
	}
	return rotation.SummarizeMargins(products), nil
}

func (s *AnalyticsService) filteredProducts(id core.DatasetID, spec ledger.FilterSpec) ([]ledger.ProductRecord, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	ds, err := s.Dataset(id)
	if err != nil {
		return nil, err
	}

	// Season and family match through the same normalized keys the sales
	// predicate uses, so both sides of a dashboard agree on one FilterSpec.
	season := core.NormalizeKey(spec.Season)
	family := core.NormalizeKey(spec.Family)

	var out []ledger.ProductRecord
	for _, p := range ds.Products {
		if season != "" && core.NormalizeKey(p.Season) != season {
			continue
		}
		switch spec.FamilyMode {
		case ledger.FamilyRealOnly:
			if ledger.IsFictitious(p.Family) {
				continue
			}
		case ledger.FamilyExact:
			if core.NormalizeKey(p.Family) != family {
				continue
			}
		}
		out = append(out, p)
	}
	return out, nil
}

// StoreFlow compares units sold against units received by transfer for one
// store. Delta > 0 means the store sold more than it was sent.
type StoreFlow struct {
	StoreID       core.StoreID `json:"store_id"`
	StoreName     string       `json:"store_name"`
	UnitsSold     int          `json:"units_sold"`
	UnitsReceived int          `json:"units_received"`
	Delta         int          `json:"delta"`
}

// SalesVsTransfers builds the per-store sold/received comparison for the
// filtered view, ordered by units sold descending.
func (s *AnalyticsService) SalesVsTransfers(id core.DatasetID, spec ledger.FilterSpec) ([]StoreFlow, error) {
	records, err := s.Filtered(id, spec)
	if err != nil {
		return nil, err
	}
	ds, err := s.Dataset(id)
	if err != nil {
		return nil, err
	}

	flows := make(map[core.StoreID]*StoreFlow)
	order := make([]core.StoreID, 0)

	get := func(storeID core.StoreID, name string) *StoreFlow {
		f, ok := flows[storeID]
		if !ok {
			f = &StoreFlow{StoreID: storeID, StoreName: name}
			flows[storeID] = f
			order = append(order, storeID)
		}
		return f
	}

	for _, r := range records {
		if ledger.IsFictitious(r.Family) {
			continue
		}
		get(r.StoreID, r.StoreName).UnitsSold += r.Quantity
	}
	for _, t := range ds.Transfers {
		if spec.Season != "" && t.Season != spec.Season {
			continue
		}
		get(t.StoreID, t.StoreName).UnitsReceived += t.Quantity
	}

	out := make([]StoreFlow, 0, len(order))
	for _, storeID := range order {
		f := flows[storeID]
		f.Delta = f.UnitsSold - f.UnitsReceived
		out = append(out, *f)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].UnitsSold > out[j].UnitsSold })
	return out, nil
}
