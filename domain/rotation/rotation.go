// Package rotation computes inventory turnover distributions and product
// margin summaries over the product export.
package rotation

import (
	"github.com/montanaflynn/stats"

	"retailpulse/domain/core"
	"retailpulse/domain/ledger"
)

// Turnover trim band in days. Values outside it are data-entry outliers and
// are excluded from every statistic, but the exclusion itself is reported.
const (
	MinTurnoverDays = 0
	MaxTurnoverDays = 365
)

// Reliability floors, matching the dashboard's behavior: a store needs a
// few observations before it can lead a board, and the global stats are not
// worth reporting under ten trimmed observations.
const (
	minStoreObservations  = 3
	minGlobalObservations = 10
)

// Observation is one product's turnover measurement.
type Observation struct {
	ProductCode string       `json:"product_code"`
	Family      string       `json:"family"`
	StoreID     core.StoreID `json:"store_id"`
	StoreName   string       `json:"store_name"`
	Days        float64      `json:"days"`
}

// Leader is one entry of a rotation leaderboard.
type Leader struct {
	Key          string  `json:"key"`
	Label        string  `json:"label"`
	Days         float64 `json:"days"`
	Observations int     `json:"observations"`
}

// Stats is the turnover summary for one filtered product set. Mean, median
// and population standard deviation are all computed over the exact same
// trimmed observation set.
type Stats struct {
	Mean   float64 `json:"mean"`
	Median float64 `json:"median"`
	StdDev float64 `json:"std_dev"`

	TrimmedCount     int `json:"trimmed_count"`
	ExcludedOutliers int `json:"excluded_outliers"`
	MissingDates     int `json:"missing_dates"`

	// Insufficient is set when fewer than ten observations survive the
	// trim; the numeric stats are zero in that case, not an error.
	Insufficient bool `json:"insufficient"`

	// Store boards rank by per-store median days (median resists the
	// trim-band edges better than mean). Product boards rank each
	// product by its own turnover value.
	FastestStore   *Leader `json:"fastest_store,omitempty"`
	SlowestStore   *Leader `json:"slowest_store,omitempty"`
	FastestProduct *Leader `json:"fastest_product,omitempty"`
	SlowestProduct *Leader `json:"slowest_product,omitempty"`

	Shape *DistributionShape `json:"shape,omitempty"`
}

// Observe extracts the trimmed observation set from a product export. The
// returned counts explain the shrinking denominator: how many products had
// no usable date pair and how many fell outside the trim band.
func Observe(products []ledger.ProductRecord) (obs []Observation, missingDates, excluded int) {
	for _, p := range products {
		if p.WarehouseEntryDate == nil || p.FirstSaleDate == nil {
			missingDates++
			continue
		}
		days := core.DaysBetween(*p.WarehouseEntryDate, *p.FirstSaleDate)
		if days < MinTurnoverDays || days > MaxTurnoverDays {
			excluded++
			continue
		}
		obs = append(obs, Observation{
			ProductCode: p.ProductCode,
			Family:      p.Family,
			StoreID:     p.StoreID,
			StoreName:   p.StoreName,
			Days:        float64(days),
		})
	}
	return obs, missingDates, excluded
}

// Compute builds the full rotation summary for a product set.
func Compute(products []ledger.ProductRecord) Stats {
	obs, missing, excluded := Observe(products)

	s := Stats{
		TrimmedCount:     len(obs),
		ExcludedOutliers: excluded,
		MissingDates:     missing,
	}

	if len(obs) < minGlobalObservations {
		s.Insufficient = true
		return s
	}

	days := make([]float64, len(obs))
	for i, o := range obs {
		days[i] = o.Days
	}

	// The stats library only errors on empty input, which the floor above
	// already rules out.
	s.Mean, _ = stats.Mean(days)
	s.Median, _ = stats.Median(days)
	s.StdDev, _ = stats.StdDevP(days)

	s.FastestStore, s.SlowestStore = storeLeaders(obs)
	s.FastestProduct, s.SlowestProduct = productLeaders(obs)

	if shape, err := AnalyzeShape(days); err == nil {
		s.Shape = &shape
	}
	return s
}

func storeLeaders(obs []Observation) (fastest, slowest *Leader) {
	type bucket struct {
		label string
		days  []float64
	}
	order := make([]core.StoreID, 0)
	buckets := make(map[core.StoreID]*bucket)
	for _, o := range obs {
		b, ok := buckets[o.StoreID]
		if !ok {
			b = &bucket{label: o.StoreName}
			buckets[o.StoreID] = b
			order = append(order, o.StoreID)
		}
		b.days = append(b.days, o.Days)
	}

	for _, id := range order {
		b := buckets[id]
		if len(b.days) < minStoreObservations {
			continue
		}
		median, _ := stats.Median(b.days)
		leader := &Leader{
			Key:          id.String(),
			Label:        b.label,
			Days:         median,
			Observations: len(b.days),
		}
		// Fastest rotation = fewest median days on shelf.
		if fastest == nil || median < fastest.Days {
			fastest = leader
		}
		if slowest == nil || median > slowest.Days {
			slowest = leader
		}
	}
	return fastest, slowest
}

func productLeaders(obs []Observation) (fastest, slowest *Leader) {
	for _, o := range obs {
		leader := &Leader{
			Key:          o.ProductCode,
			Label:        o.Family,
			Days:         o.Days,
			Observations: 1,
		}
		if fastest == nil || o.Days < fastest.Days {
			fastest = leader
		}
		if slowest == nil || o.Days > slowest.Days {
			slowest = leader
		}
	}
	return fastest, slowest
}
