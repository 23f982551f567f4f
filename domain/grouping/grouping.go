// Package grouping produces multi-dimensional breakdowns with ranking over
// a filtered ledger. Group keys always use resolved identifiers, so rows
// whose display text differs only in case or padding merge into one group.
package grouping

import (
	"sort"

	"retailpulse/domain/core"
	"retailpulse/domain/ledger"
)

// Dimension names a grouping axis.
type Dimension string

const (
	DimStore  Dimension = "store"
	DimMonth  Dimension = "month"
	DimSize   Dimension = "size"
	DimZone   Dimension = "zone"
	DimSeason Dimension = "season"
	DimFamily Dimension = "family"
)

// ValueField selects which aggregate a ranking sorts by.
type ValueField string

const (
	ByUnits   ValueField = "units"
	ByRevenue ValueField = "revenue"
)

// GroupedResult is one row of a breakdown. Season is set only by the
// stacked variants. Rows keep their first-seen insertion order so ranking
// ties break deterministically.
type GroupedResult struct {
	Key     string  `json:"key"`
	Label   string  `json:"label"`
	Season  string  `json:"season,omitempty"`
	Units   int     `json:"units"`
	Revenue float64 `json:"revenue"`

	order int
}

func dimensionKey(r ledger.SalesRecord, dim Dimension) (key, label string, ok bool) {
	switch dim {
	case DimStore:
		return r.StoreID.String(), r.StoreName, true
	case DimMonth:
		return r.Month(), r.Month(), true
	case DimSize:
		return core.NormalizeKey(r.Size), r.Size, true
	case DimZone:
		return core.NormalizeKey(r.Zone), r.Zone, true
	case DimSeason:
		return core.NormalizeKey(r.Season), r.Season, true
	case DimFamily:
		return core.NormalizeKey(r.Family), r.Family, true
	default:
		return "", "", false
	}
}

// GroupBy aggregates units and revenue along one dimension. Rows appear in
// first-seen order of their key.
func GroupBy(filtered []ledger.SalesRecord, dim Dimension) ([]GroupedResult, error) {
	index := make(map[string]int)
	var out []GroupedResult

	for _, r := range filtered {
		key, label, ok := dimensionKey(r, dim)
		if !ok {
			return nil, core.ErrUnknownDimension
		}
		i, seen := index[key]
		if !seen {
			i = len(out)
			index[key] = i
			out = append(out, GroupedResult{Key: key, Label: label, order: i})
		}
		out[i].Units += r.Quantity
		out[i].Revenue += r.NetAmount
	}
	return out, nil
}

// GroupByStacked aggregates along (dimension, season) and zero-fills the
// full cross-product of observed dimension values and observed seasons, so
// a season missing for one dimension value shows as zero instead of being
// silently omitted.
func GroupByStacked(filtered []ledger.SalesRecord, dim Dimension) ([]GroupedResult, error) {
	type cell struct {
		units   int
		revenue float64
	}

	dimOrder := make([]string, 0)
	dimLabels := make(map[string]string)
	seasonOrder := make([]string, 0)
	seasonLabels := make(map[string]string)
	cells := make(map[[2]string]cell)

	for _, r := range filtered {
		key, label, ok := dimensionKey(r, dim)
		if !ok {
			return nil, core.ErrUnknownDimension
		}
		season := core.NormalizeKey(r.Season)
		if _, seen := dimLabels[key]; !seen {
			dimLabels[key] = label
			dimOrder = append(dimOrder, key)
		}
		if _, seen := seasonLabels[season]; !seen {
			seasonLabels[season] = r.Season
			seasonOrder = append(seasonOrder, season)
		}
		c := cells[[2]string{key, season}]
		c.units += r.Quantity
		c.revenue += r.NetAmount
		cells[[2]string{key, season}] = c
	}

	out := make([]GroupedResult, 0, len(dimOrder)*len(seasonOrder))
	for _, key := range dimOrder {
		for _, season := range seasonOrder {
			c := cells[[2]string{key, season}]
			out = append(out, GroupedResult{
				Key:     key,
				Label:   dimLabels[key],
				Season:  seasonLabels[season],
				Units:   c.units,
				Revenue: c.revenue,
				order:   len(out),
			})
		}
	}
	return out, nil
}

func value(g GroupedResult, by ValueField) float64 {
	if by == ByUnits {
		return float64(g.Units)
	}
	return g.Revenue
}

// TopN returns the n highest rows by the chosen field. Ties keep original
// insertion order; the input slice is not modified. A negative n yields an
// empty result rather than a panic.
func TopN(grouped []GroupedResult, n int, by ValueField) []GroupedResult {
	ranked := make([]GroupedResult, len(grouped))
	copy(ranked, grouped)
	sort.SliceStable(ranked, func(i, j int) bool {
		return value(ranked[i], by) > value(ranked[j], by)
	})
	return clampN(ranked, n)
}

// BottomN returns the n lowest rows by the chosen field, stable on ties.
func BottomN(grouped []GroupedResult, n int, by ValueField) []GroupedResult {
	ranked := make([]GroupedResult, len(grouped))
	copy(ranked, grouped)
	sort.SliceStable(ranked, func(i, j int) bool {
		return value(ranked[i], by) < value(ranked[j], by)
	})
	return clampN(ranked, n)
}

func clampN(ranked []GroupedResult, n int) []GroupedResult {
	if n < 0 {
		n = 0
	}
	if n < len(ranked) {
		ranked = ranked[:n]
	}
	return ranked
}

// TopStoresStacked ranks stores by total revenue across all seasons first,
// then stacks only the selected stores by season. Ranking on the stacked
// per-season value instead of the total is a different, wrong algorithm.
func TopStoresStacked(filtered []ledger.SalesRecord, n int, by ValueField) ([]GroupedResult, error) {
	totals, err := GroupBy(filtered, DimStore)
	if err != nil {
		return nil, err
	}
	top := TopN(totals, n, by)

	selected := make(map[string]struct{}, len(top))
	for _, g := range top {
		selected[g.Key] = struct{}{}
	}
	subset := make([]ledger.SalesRecord, 0, len(filtered))
	for _, r := range filtered {
		if _, ok := selected[r.StoreID.String()]; ok {
			subset = append(subset, r)
		}
	}
	return GroupByStacked(subset, DimStore)
}
