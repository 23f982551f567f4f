// Package excel loads the three point-of-sale exports (sales, products,
// transfers) into the in-memory ledger. Excel and CSV files are supported,
// chosen by file extension.
package excel

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/xuri/excelize/v2"
	"golang.org/x/sync/errgroup"

	"retailpulse/domain/core"
	"retailpulse/domain/ledger"
	"retailpulse/ports"
)

// Config holds the export file paths. TransfersFile may be empty; the
// transfers view is then simply unavailable.
type Config struct {
	SalesFile     string
	ProductsFile  string
	TransfersFile string
}

// Loader reads the exports and resolves store classifications while
// loading, so the core only ever sees records with attributes attached.
type Loader struct {
	cfg        Config
	classifier ports.StoreClassifier
}

// NewLoader creates a dataset loader.
func NewLoader(cfg Config, classifier ports.StoreClassifier) *Loader {
	return &Loader{cfg: cfg, classifier: classifier}
}

var _ ports.DatasetLoader = (*Loader)(nil)

// Load reads all exports concurrently and assembles the dataset bundle.
func (l *Loader) Load(ctx context.Context, id core.DatasetID) (*ledger.Dataset, error) {
	ds := &ledger.Dataset{ID: id, LoadedAt: core.Now()}

	var salesRows, productRows, transferRows [][]string

	g, _ := errgroup.WithContext(ctx)
	g.Go(func() error {
		rows, err := readRows(l.cfg.SalesFile)
		if err != nil {
			return fmt.Errorf("sales export: %w", err)
		}
		salesRows = rows
		return nil
	})
	g.Go(func() error {
		rows, err := readRows(l.cfg.ProductsFile)
		if err != nil {
			return fmt.Errorf("products export: %w", err)
		}
		productRows = rows
		return nil
	})
	if l.cfg.TransfersFile != "" {
		g.Go(func() error {
			rows, err := readRows(l.cfg.TransfersFile)
			if err != nil {
				return fmt.Errorf("transfers export: %w", err)
			}
			transferRows = rows
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	ds.Sales, ds.DroppedSalesRows = l.parseSales(salesRows)
	ds.Products, ds.DroppedProductRows = l.parseProducts(productRows, ds.Sales)
	ds.Transfers, ds.DroppedTransferRows = l.parseTransfers(transferRows)

	log.Info().
		Str("component", "excel").
		Str("dataset", id.String()).
		Int("sales", len(ds.Sales)).
		Int("products", len(ds.Products)).
		Int("transfers", len(ds.Transfers)).
		Int("dropped", ds.DroppedSalesRows+ds.DroppedProductRows+ds.DroppedTransferRows).
		Msg("dataset loaded")

	return ds, nil
}

// parseSales maps the sales export. Rows with an unparseable sale date and
// rows from excluded stores are dropped; drops are counted.
func (l *Loader) parseSales(rows [][]string) ([]ledger.SalesRecord, int) {
	if len(rows) < 2 {
		return nil, 0
	}
	h := newHeader(rows[0])
	var out []ledger.SalesRecord
	dropped := 0

	for _, row := range rows[1:] {
		name := h.get(row, "NombreTPV")
		storeID := core.NormalizeStoreID(h.get(row, "TPV"))
		class := l.classifier.Classify(storeID, name)
		if class.Excluded {
			dropped++
			continue
		}

		saleDate, err := parseDate(h.get(row, "Fecha Documento"))
		if err != nil {
			dropped++
			continue
		}

		family := h.get(row, "Descripción Familia")
		if strings.TrimSpace(family) == "" {
			family = "Sin Familia"
		}
		season := h.get(row, "Temporada")
		if strings.TrimSpace(season) == "" {
			season = "Sin Temporada"
		}

		out = append(out, ledger.SalesRecord{
			StoreID:     storeID,
			StoreName:   class.Name,
			IsOnline:    class.IsOnline,
			Zone:        class.Zone,
			FamilyCode:  strings.TrimSpace(h.get(row, "Familia")),
			Family:      strings.TrimSpace(family),
			Season:      strings.TrimSpace(season),
			ProductCode: strings.TrimSpace(h.get(row, "ACT")),
			Size:        strings.TrimSpace(h.get(row, "Talla")),
			SaleDate:    saleDate,
			Quantity:    int(parseNumber(h.get(row, "Cantidad"))),
			NetAmount:   parseNumber(h.get(row, "Subtotal")),
		})
	}
	return out, dropped
}

// parseProducts maps the product export. The export has no first-sale
// column; it is derived from the sales ledger by product code, the same
// join the turnover analysis needs.
func (l *Loader) parseProducts(rows [][]string, sales []ledger.SalesRecord) ([]ledger.ProductRecord, int) {
	if len(rows) < 2 {
		return nil, 0
	}

	type saleInfo struct {
		first   time.Time
		family  string
		season  string
		store   core.StoreID
		storeNm string
	}
	firstSales := make(map[string]saleInfo)
	for _, s := range sales {
		if s.Quantity <= 0 {
			continue
		}
		info, seen := firstSales[s.ProductCode]
		if !seen || s.SaleDate.Before(info.first) {
			firstSales[s.ProductCode] = saleInfo{
				first:   s.SaleDate,
				family:  s.Family,
				season:  s.Season,
				store:   s.StoreID,
				storeNm: s.StoreName,
			}
		}
	}

	h := newHeader(rows[0])
	var out []ledger.ProductRecord
	dropped := 0

	for _, row := range rows[1:] {
		code := strings.TrimSpace(h.get(row, "ACT"))
		if code == "" {
			dropped++
			continue
		}

		p := ledger.ProductRecord{
			ProductCode: code,
			Size:        strings.TrimSpace(h.get(row, "Talla")),
			SalePrice:   parseNumber(h.get(row, "P.V.P.")),
		}

		// Cost absence means unknown, never zero.
		if raw := strings.TrimSpace(h.get(row, "Precio Coste")); raw != "" {
			cost := parseNumber(raw)
			p.CostPrice = &cost
		}
		if d, err := parseDate(h.get(row, "Fecha REAL entrada en almacén")); err == nil {
			p.WarehouseEntryDate = &d
		}
		if d, err := parseDate(h.get(row, "Fecha Tope")); err == nil {
			p.ShipDate = &d
		}

		if info, ok := firstSales[code]; ok {
			first := info.first
			p.FirstSaleDate = &first
			p.Family = info.family
			p.Season = info.season
			p.StoreID = info.store
			p.StoreName = info.storeNm
		}
		if season := strings.TrimSpace(h.get(row, "Temporada")); season != "" {
			p.Season = season
		}

		out = append(out, p)
	}
	return out, dropped
}

func (l *Loader) parseTransfers(rows [][]string) ([]ledger.TransferRecord, int) {
	if len(rows) < 2 {
		return nil, 0
	}
	h := newHeader(rows[0])
	var out []ledger.TransferRecord
	dropped := 0

	for _, row := range rows[1:] {
		date, err := parseDate(h.get(row, "Fecha Documento"))
		if err != nil {
			dropped++
			continue
		}
		out = append(out, ledger.TransferRecord{
			StoreID:   core.NormalizeStoreID(h.get(row, "Nº. TPV Destino")),
			StoreName: strings.TrimSpace(h.get(row, "NombreTpvDestino")),
			Season:    strings.TrimSpace(h.get(row, "Temporada")),
			Quantity:  int(parseNumber(h.get(row, "Enviado"))),
			Date:      date,
		})
	}
	return out, dropped
}

// header resolves column positions by name so the exports can reorder or
// add columns without breaking the loader.
type header struct {
	index map[string]int
}

func newHeader(row []string) header {
	idx := make(map[string]int, len(row))
	for i, name := range row {
		idx[strings.TrimSpace(name)] = i
	}
	return header{index: idx}
}

func (h header) get(row []string, name string) string {
	i, ok := h.index[name]
	if !ok || i >= len(row) {
		return ""
	}
	return row[i]
}

// readRows reads all rows from an Excel or CSV file.
func readRows(path string) ([][]string, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("file not found: %s", path)
	}
	if strings.ToLower(filepath.Ext(path)) == ".csv" {
		return readCSV(path)
	}
	return readExcel(path)
}

func readExcel(path string) ([][]string, error) {
	start := time.Now()
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open Excel file: %w", err)
	}
	defer f.Close()

	// The exports always carry their data on Sheet1.
	rows, err := f.GetRows("Sheet1")
	if err != nil {
		return nil, fmt.Errorf("failed to read Sheet1: %w", err)
	}
	log.Debug().
		Str("component", "excel").
		Str("file", filepath.Base(path)).
		Int("rows", len(rows)).
		Dur("elapsed", time.Since(start)).
		Msg("sheet read")
	return rows, nil
}

func readCSV(path string) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open CSV file: %w", err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV: %w", err)
	}
	return rows, nil
}

var dateLayouts = []string{
	// Day-first, the way the POS exports write dates.
	"02/01/2006",
	"2/1/2006",
	"02-01-2006",
	"2006-01-02",
	"2006-01-02 15:04:05",
}

func parseDate(raw string) (time.Time, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return time.Time{}, fmt.Errorf("empty date")
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unparseable date %q", s)
}

// parseNumber tolerates European decimal commas and returns 0 for blanks
// and garbage, matching how the upstream spreadsheets coerce numerics.
func parseNumber(raw string) float64 {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0
	}
	if strings.Contains(s, ",") {
		s = strings.ReplaceAll(s, ".", "")
		s = strings.ReplaceAll(s, ",", ".")
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return v
}
