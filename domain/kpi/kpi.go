// Package kpi computes scalar headline figures over a filtered ledger.
//
// Fixed business rule: every headline KPI operates on "real" records only,
// meaning the fictitious accounting family is excluded. The one exception
// is the raw transaction count, which deliberately includes it. The
// asymmetry is intentional and must not be normalized away.
package kpi

import (
	"math"

	"retailpulse/domain/core"
	"retailpulse/domain/ledger"
)

// Kpis is the scalar KPI set for one filtered view. Empty input yields the
// zero value; no input produces NaN, Inf, or a panic.
type Kpis struct {
	// Headline figures, fictitious family excluded.
	GrossSales float64 `json:"gross_sales"`
	NetSales   float64 `json:"net_sales"`
	Returns    float64 `json:"returns"`
	// ReturnRate is a fraction in [0,1]; 0 when NetSales is 0.
	ReturnRate float64 `json:"return_rate"`

	// The same four figures over only the fictitious family, kept as a
	// separate block so accounting adjustments stay visible.
	FictitiousGrossSales float64 `json:"fictitious_gross_sales"`
	FictitiousNetSales   float64 `json:"fictitious_net_sales"`
	FictitiousReturns    float64 `json:"fictitious_returns"`
	FictitiousReturnRate float64 `json:"fictitious_return_rate"`

	// Physical/online split over positive-quantity real sales. The online
	// classification is resolved upstream; this package only reads it.
	PhysicalNetSales   float64 `json:"physical_net_sales"`
	OnlineNetSales     float64 `json:"online_net_sales"`
	PhysicalStoreCount int     `json:"physical_store_count"`
	OnlineStoreCount   int     `json:"online_store_count"`

	// Scope counts over real records.
	FamilyCount int `json:"family_count"`
	StoreCount  int `json:"store_count"`
	SeasonCount int `json:"season_count"`
	// TransactionCount counts every filtered record, fictitious family
	// included. Intentional exception to the exclusion rule.
	TransactionCount int `json:"transaction_count"`

	// Data-quality flags surfaced with the result instead of failing it.
	SignMismatchCount int `json:"sign_mismatch_count"`
}

// Compute aggregates a filtered record set into KPIs.
func Compute(filtered []ledger.SalesRecord) Kpis {
	var k Kpis
	k.TransactionCount = len(filtered)

	families := make(map[string]struct{})
	stores := make(map[core.StoreID]struct{})
	seasons := make(map[string]struct{})
	physicalStores := make(map[core.StoreID]struct{})
	onlineStores := make(map[core.StoreID]struct{})

	var grossPositive, returnsAbs float64
	var fictPositive, fictReturnsAbs float64

	for _, r := range filtered {
		if r.SignMismatch() {
			k.SignMismatchCount++
		}

		if ledger.IsFictitious(r.Family) {
			switch {
			case r.Quantity > 0:
				fictPositive += r.NetAmount
			case r.Quantity < 0:
				fictReturnsAbs += math.Abs(r.NetAmount)
			}
			continue
		}

		families[core.NormalizeKey(r.Family)] = struct{}{}
		stores[r.StoreID] = struct{}{}
		seasons[core.NormalizeKey(r.Season)] = struct{}{}

		switch {
		case r.Quantity > 0:
			grossPositive += r.NetAmount
			if r.IsOnline {
				k.OnlineNetSales += r.NetAmount
				onlineStores[r.StoreID] = struct{}{}
			} else {
				k.PhysicalNetSales += r.NetAmount
				physicalStores[r.StoreID] = struct{}{}
			}
		case r.Quantity < 0:
			returnsAbs += math.Abs(r.NetAmount)
		}
	}

	k.NetSales = grossPositive
	k.Returns = returnsAbs
	k.GrossSales = grossPositive + returnsAbs
	k.ReturnRate = safeRate(returnsAbs, grossPositive)

	k.FictitiousNetSales = fictPositive
	k.FictitiousReturns = fictReturnsAbs
	k.FictitiousGrossSales = fictPositive + fictReturnsAbs
	k.FictitiousReturnRate = safeRate(fictReturnsAbs, fictPositive)

	k.FamilyCount = len(families)
	k.StoreCount = len(stores)
	k.SeasonCount = len(seasons)
	k.PhysicalStoreCount = len(physicalStores)
	k.OnlineStoreCount = len(onlineStores)

	return k
}

// safeRate divides returns by net sales without ever surfacing NaN or Inf.
func safeRate(returns, net float64) float64 {
	if net <= 0 {
		return 0
	}
	return returns / net
}
