// Package testkit generates deterministic synthetic retail datasets for
// tests and local demos.
package testkit

import (
	"fmt"
	"math/rand"
	"time"

	"retailpulse/domain/core"
	"retailpulse/domain/ledger"
)

// LedgerGeneratorConfig configures the synthetic ledger generator.
type LedgerGeneratorConfig struct {
	StoreCount       int
	OnlineStoreCount int
	FamilyCount      int
	ProductsPerStore int
	Seasons          []string
	ReturnRate       float64
	FictitiousRate   float64
	StartDate        time.Time
	EndDate          time.Time
	Seed             int64
}

// DefaultLedgerConfig returns a small but realistic dataset shape.
func DefaultLedgerConfig() LedgerGeneratorConfig {
	return LedgerGeneratorConfig{
		StoreCount:       12,
		OnlineStoreCount: 2,
		FamilyCount:      6,
		ProductsPerStore: 40,
		Seasons:          []string{"PV24", "PV25", "OI24"},
		ReturnRate:       0.08,
		FictitiousRate:   0.02,
		StartDate:        time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC),
		EndDate:          time.Date(2025, 7, 31, 0, 0, 0, 0, time.UTC),
		Seed:             42,
	}
}

// LedgerGenerator builds datasets from a seeded RNG, so the same config
// always yields the same records.
type LedgerGenerator struct {
	config LedgerGeneratorConfig
	rng    *rand.Rand
}

// NewLedgerGenerator creates a generator.
func NewLedgerGenerator(config LedgerGeneratorConfig) *LedgerGenerator {
	return &LedgerGenerator{
		config: config,
		rng:    rand.New(rand.NewSource(config.Seed)),
	}
}

var sizes = []string{"XS", "S", "M", "L", "XL"}

// Generate builds a complete dataset.
func (g *LedgerGenerator) Generate(id core.DatasetID) *ledger.Dataset {
	ds := &ledger.Dataset{ID: id, LoadedAt: core.Now()}

	stores := g.stores()
	families := g.families()

	productSeq := 0
	for _, store := range stores {
		for i := 0; i < g.config.ProductsPerStore; i++ {
			productSeq++
			code := fmt.Sprintf("ACT%05d", productSeq)
			family := families[g.rng.Intn(len(families))]
			season := g.config.Seasons[g.rng.Intn(len(g.config.Seasons))]
			size := sizes[g.rng.Intn(len(sizes))]
			price := 15 + g.rng.Float64()*85

			entry := g.randomDate()
			firstSale := entry.AddDate(0, 0, 1+g.rng.Intn(60))

			product := ledger.ProductRecord{
				ProductCode:        code,
				Family:             family,
				Season:             season,
				Size:               size,
				StoreID:            store.id,
				StoreName:          store.name,
				SalePrice:          round2(price),
				WarehouseEntryDate: &entry,
				FirstSaleDate:      &firstSale,
			}
			// A minority of products lack cost data.
			if g.rng.Float64() > 0.15 {
				cost := round2(price * (0.30 + g.rng.Float64()*0.25))
				product.CostPrice = &cost
			}
			ds.Products = append(ds.Products, product)

			ds.Sales = append(ds.Sales, g.salesFor(product, store)...)
		}

		ds.Transfers = append(ds.Transfers, ledger.TransferRecord{
			StoreID:   store.id,
			StoreName: store.name,
			Season:    g.config.Seasons[g.rng.Intn(len(g.config.Seasons))],
			Quantity:  20 + g.rng.Intn(200),
			Date:      g.randomDate(),
		})
	}

	return ds
}

type storeInfo struct {
	id     core.StoreID
	name   string
	online bool
	zone   string
}

func (g *LedgerGenerator) stores() []storeInfo {
	stores := make([]storeInfo, 0, g.config.StoreCount)
	for i := 0; i < g.config.StoreCount; i++ {
		online := i < g.config.OnlineStoreCount
		name := fmt.Sprintf("TIENDA %02d", i+1)
		zone := "TRUCCO ES"
		if online {
			name = fmt.Sprintf("ONLINE %02d", i+1)
		}
		if !online && i%5 == 4 {
			name = fmt.Sprintf("COIN MILANO %02d", i+1)
			zone = "ITALY"
		}
		stores = append(stores, storeInfo{
			id:     core.NormalizeStoreID(fmt.Sprintf("T%03d", i+1)),
			name:   name,
			online: online,
			zone:   zone,
		})
	}
	return stores
}

func (g *LedgerGenerator) families() []string {
	families := make([]string, 0, g.config.FamilyCount)
	for i := 0; i < g.config.FamilyCount; i++ {
		families = append(families, fmt.Sprintf("FAMILIA %02d", i+1))
	}
	return families
}

func (g *LedgerGenerator) salesFor(p ledger.ProductRecord, store storeInfo) []ledger.SalesRecord {
	count := 1 + g.rng.Intn(5)
	records := make([]ledger.SalesRecord, 0, count)

	for i := 0; i < count; i++ {
		qty := 1 + g.rng.Intn(3)
		amount := round2(float64(qty) * p.SalePrice)
		if g.rng.Float64() < g.config.ReturnRate {
			qty = -qty
			amount = -amount
		}

		family := p.Family
		if g.rng.Float64() < g.config.FictitiousRate {
			family = ledger.FictitiousFamily
		}

		records = append(records, ledger.SalesRecord{
			StoreID:     store.id,
			StoreName:   store.name,
			IsOnline:    store.online,
			Zone:        store.zone,
			Family:      family,
			Season:      p.Season,
			ProductCode: p.ProductCode,
			Size:        p.Size,
			SaleDate:    g.randomDate(),
			Quantity:    qty,
			NetAmount:   amount,
		})
	}
	return records
}

func (g *LedgerGenerator) randomDate() time.Time {
	span := int(g.config.EndDate.Sub(g.config.StartDate).Hours() / 24)
	if span <= 0 {
		return g.config.StartDate
	}
	return g.config.StartDate.AddDate(0, 0, g.rng.Intn(span))
}

func round2(v float64) float64 {
	return float64(int(v*100+0.5)) / 100
}
