// Package ensemble is the deterministic in-process forecasting pipeline.
// It predicts next-season demand per SKU from the dataset's own history,
// with hierarchical fallbacks so a plan always comes out of a well-formed
// dataset.
package ensemble

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/montanaflynn/stats"
	"github.com/rs/zerolog/log"

	"retailpulse/domain/core"
	"retailpulse/domain/forecast"
	"retailpulse/domain/ledger"
	"retailpulse/ports"
)

const (
	modelName = "seasonal-ensemble"

	// Planning assumptions carried into every section row.
	defaultMarkdownPercent = 15.0
	defaultSurplusPercent  = 8.0

	// Cost ratio applied when no product in the dataset carries a cost.
	fallbackCostRatio = 0.38

	progressEvery = 50
)

// Pipeline implements ports.EnsemblePipeline.
type Pipeline struct {
	// defaultStoreCount backs the per-store split when the dataset has no
	// physical stores for the season type.
	defaultStoreCount int
}

// NewPipeline creates the deterministic pipeline.
func NewPipeline(defaultStoreCount int) *Pipeline {
	return &Pipeline{defaultStoreCount: defaultStoreCount}
}

var _ ports.EnsemblePipeline = (*Pipeline)(nil)

// skuHistory is one SKU's per-season unit totals for a single season type.
type skuHistory struct {
	code    string
	family  string
	units   map[string]float64 // season label -> units sold
	revenue float64
	sold    float64
}

// Run builds a per-section purchase plan for the target season. Only real
// merchandise families of the matching season type feed the model.
func (p *Pipeline) Run(ctx context.Context, ds *ledger.Dataset, horizonMonths int, targetSeason string, progress ports.ProgressFunc) (*forecast.StandardResult, error) {
	seasonType, targetLabel, err := resolveTarget(ds, targetSeason)
	if err != nil {
		return nil, err
	}

	history, seasons, storeCount := collectHistory(ds, seasonType)
	if len(history) == 0 {
		return nil, fmt.Errorf("%w: %s", core.ErrNoSeasonHistory, seasonType)
	}
	if storeCount == 0 {
		storeCount = p.defaultStoreCount
	}
	sort.Strings(seasons)

	prices, costRatios := indexProducts(ds)
	globalRatio := globalCostRatio(costRatios)

	// Family-level unit means back the fallback tier for SKUs without
	// their own season history.
	familyMeans := make(map[string][]float64)
	var globalUnits []float64
	for _, h := range history {
		for _, u := range h.units {
			familyMeans[h.family] = append(familyMeans[h.family], u)
			globalUnits = append(globalUnits, u)
		}
	}
	globalMean, _ := stats.Mean(globalUnits)

	// A season spans roughly six months; other horizons scale linearly.
	scale := 1.0
	if horizonMonths > 0 {
		scale = float64(horizonMonths) / 6.0
	}

	type sectionAcc struct {
		units  float64
		retail float64
		cost   float64
		opts   int
		sizes  map[string]struct{}
	}
	sections := make(map[string]*sectionAcc)
	sizesByFamily := collectSizes(ds, seasonType)

	covered := 0
	total := len(history)
	processed := 0

	for _, h := range history {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		pred, own := predictUnits(h, seasons, familyMeans[h.family], globalMean)
		pred *= scale
		if own {
			covered++
		}
		if pred <= 0 {
			processed++
			continue
		}

		price := prices[h.code]
		if price <= 0 && h.sold > 0 {
			price = h.revenue / h.sold
		}
		ratio := costRatioFor(h.family, costRatios, globalRatio)

		acc := sections[h.family]
		if acc == nil {
			acc = &sectionAcc{sizes: sizesByFamily[h.family]}
			sections[h.family] = acc
		}
		acc.units += pred
		acc.retail += pred * price
		acc.cost += pred * price * ratio
		acc.opts++

		processed++
		if progress != nil && (processed%progressEvery == 0 || processed == total) {
			progress(processed, total)
		}
	}

	rows := make([]forecast.StandardRow, 0, len(sections))
	for family, acc := range sections {
		rows = append(rows, forecast.StandardRow{
			Section:         family,
			Units:           acc.units,
			RetailValue:     acc.retail,
			CostValue:       acc.cost,
			OptionCount:     acc.opts,
			SizeCount:       len(acc.sizes),
			MarkdownPercent: defaultMarkdownPercent,
			SurplusPercent:  defaultSurplusPercent,
		})
	}

	mape, mae, rmse := backtest(history, seasons, familyMeans, globalMean)

	coverage := 0.0
	if total > 0 {
		coverage = float64(covered) / float64(total) * 100
	}

	log.Info().
		Str("component", "ensemble").
		Str("target", targetLabel).
		Int("skus", total).
		Int("sections", len(rows)).
		Float64("coverage_pct", coverage).
		Msg("plan built")

	return &forecast.StandardResult{
		ModelName:         modelName,
		TargetSeasonLabel: targetLabel,
		CoveragePercent:   coverage,
		StoreCount:        storeCount,
		MAPE:              mape,
		MAE:               mae,
		RMSE:              rmse,
		Rows:              rows,
	}, nil
}

// resolveTarget turns a target request (next_PV, next_OI, or an explicit
// label like PV26) into a season type plus display label.
func resolveTarget(ds *ledger.Dataset, target string) (seasonType, label string, err error) {
	t := strings.ToUpper(strings.TrimSpace(target))
	switch t {
	case "NEXT_PV":
		seasonType = "PV"
	case "NEXT_OI":
		seasonType = "OI"
	default:
		if len(t) >= 2 && (t[:2] == "PV" || t[:2] == "OI") {
			return t[:2], t, nil
		}
		return "", "", fmt.Errorf("%w: unknown target season %q", core.ErrUnknownPipeline, target)
	}

	maxYear := -1
	for _, s := range ds.Sales {
		st, year, ok := splitSeason(s.Season)
		if ok && st == seasonType && year > maxYear {
			maxYear = year
		}
	}
	if maxYear < 0 {
		return "", "", fmt.Errorf("%w: %s", core.ErrNoSeasonHistory, seasonType)
	}
	return seasonType, fmt.Sprintf("%s%02d", seasonType, (maxYear+1)%100), nil
}

// splitSeason parses labels of the form PV25 / OI24.
func splitSeason(season string) (seasonType string, year int, ok bool) {
	s := strings.ToUpper(strings.TrimSpace(season))
	if len(s) < 3 {
		return "", 0, false
	}
	st := s[:2]
	if st != "PV" && st != "OI" {
		return "", 0, false
	}
	year, err := strconv.Atoi(s[2:])
	if err != nil {
		return "", 0, false
	}
	return st, year, true
}

func collectHistory(ds *ledger.Dataset, seasonType string) (map[string]*skuHistory, []string, int) {
	history := make(map[string]*skuHistory)
	seasonSet := make(map[string]struct{})
	storeSet := make(map[core.StoreID]struct{})

	for _, s := range ds.Sales {
		if ledger.IsFictitious(s.Family) || s.Quantity <= 0 {
			continue
		}
		st, _, ok := splitSeason(s.Season)
		if !ok || st != seasonType {
			continue
		}
		seasonSet[s.Season] = struct{}{}
		if !s.IsOnline {
			storeSet[s.StoreID] = struct{}{}
		}

		h := history[s.ProductCode]
		if h == nil {
			h = &skuHistory{code: s.ProductCode, family: s.Family, units: make(map[string]float64)}
			history[s.ProductCode] = h
		}
		h.units[s.Season] += float64(s.Quantity)
		h.revenue += s.NetAmount
		h.sold += float64(s.Quantity)
	}

	seasons := make([]string, 0, len(seasonSet))
	for s := range seasonSet {
		seasons = append(seasons, s)
	}
	return history, seasons, len(storeSet)
}

func collectSizes(ds *ledger.Dataset, seasonType string) map[string]map[string]struct{} {
	out := make(map[string]map[string]struct{})
	for _, s := range ds.Sales {
		if ledger.IsFictitious(s.Family) || s.Size == "" {
			continue
		}
		st, _, ok := splitSeason(s.Season)
		if !ok || st != seasonType {
			continue
		}
		set := out[s.Family]
		if set == nil {
			set = make(map[string]struct{})
			out[s.Family] = set
		}
		set[s.Size] = struct{}{}
	}
	return out
}

// predictUnits blends the SKU's own seasonal history with a recency-tilted
// component. own reports whether the SKU had history of its own, feeding
// coverage; without it the family then global means step in.
func predictUnits(h *skuHistory, seasons []string, familyUnits []float64, globalMean float64) (float64, bool) {
	var series []float64
	for _, season := range seasons {
		if u, ok := h.units[season]; ok {
			series = append(series, u)
		}
	}

	if len(series) == 0 {
		if mean, err := stats.Mean(familyUnits); err == nil && mean > 0 {
			return mean, false
		}
		return globalMean, false
	}

	mean, _ := stats.Mean(series)
	last := series[len(series)-1]

	// Recent season weighted double against the long-run mean.
	return (2*last + mean) / 3, true
}

// backtest holds out the latest season and scores the same predictor
// against it. Metrics stay nil with fewer than two seasons of history.
func backtest(history map[string]*skuHistory, seasons []string, familyMeans map[string][]float64, globalMean float64) (mape, mae, rmse *float64) {
	if len(seasons) < 2 {
		return nil, nil, nil
	}
	holdout := seasons[len(seasons)-1]
	prior := seasons[:len(seasons)-1]

	var absPct, absErr, sqErr []float64
	for _, h := range history {
		actual, ok := h.units[holdout]
		if !ok || actual <= 0 {
			continue
		}
		trimmed := &skuHistory{code: h.code, family: h.family, units: make(map[string]float64)}
		for s, u := range h.units {
			if s != holdout {
				trimmed.units[s] = u
			}
		}
		pred, _ := predictUnits(trimmed, prior, familyMeans[h.family], globalMean)
		diff := pred - actual
		absPct = append(absPct, math.Abs(diff)/actual*100)
		absErr = append(absErr, math.Abs(diff))
		sqErr = append(sqErr, diff*diff)
	}
	if len(absErr) == 0 {
		return nil, nil, nil
	}

	mapeV, _ := stats.Mean(absPct)
	maeV, _ := stats.Mean(absErr)
	msLevel, _ := stats.Mean(sqErr)
	rmseV := math.Sqrt(msLevel)
	return &mapeV, &maeV, &rmseV
}

func indexProducts(ds *ledger.Dataset) (prices map[string]float64, ratios map[string][]float64) {
	prices = make(map[string]float64)
	ratios = make(map[string][]float64)
	for _, p := range ds.Products {
		if p.SalePrice > 0 {
			if _, seen := prices[p.ProductCode]; !seen {
				prices[p.ProductCode] = p.SalePrice
			}
			if p.CostPrice != nil && *p.CostPrice > 0 {
				ratios[p.Family] = append(ratios[p.Family], *p.CostPrice/p.SalePrice)
			}
		}
	}
	return prices, ratios
}

func globalCostRatio(ratios map[string][]float64) float64 {
	var all []float64
	for _, rs := range ratios {
		all = append(all, rs...)
	}
	if mean, err := stats.Mean(all); err == nil && mean > 0 {
		return mean
	}
	return fallbackCostRatio
}

func costRatioFor(family string, ratios map[string][]float64, global float64) float64 {
	if mean, err := stats.Mean(ratios[family]); err == nil && mean > 0 {
		return mean
	}
	return global
}
