package app

import (
	"fmt"
	"strings"

	"github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"

	"retailpulse/domain/core"
	"retailpulse/domain/grouping"
	"retailpulse/domain/ledger"
)

// ReportService renders a human-readable summary of a filtered view:
// the KPI block, the family ranking, and the data-quality counters.
type ReportService struct {
	analytics *AnalyticsService
}

// NewReportService creates the report service.
func NewReportService(analytics *AnalyticsService) *ReportService {
	return &ReportService{analytics: analytics}
}

// Markdown builds the report in markdown form.
func (s *ReportService) Markdown(id core.DatasetID, spec ledger.FilterSpec) (string, error) {
	k, err := s.analytics.Kpis(id, spec)
	if err != nil {
		return "", err
	}
	families, err := s.analytics.TopGroups(id, spec, grouping.DimFamily, 10, grouping.ByRevenue)
	if err != nil {
		return "", err
	}
	ds, err := s.analytics.Dataset(id)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "# Sales summary: %s\n\n", id)
	if scope := describeScope(spec); scope != "" {
		fmt.Fprintf(&b, "_Scope: %s_\n\n", scope)
	}

	b.WriteString("## Headline figures\n\n")
	b.WriteString("| Metric | Value |\n|---|---|\n")
	fmt.Fprintf(&b, "| Gross sales | %.2f |\n", k.GrossSales)
	fmt.Fprintf(&b, "| Net sales | %.2f |\n", k.NetSales)
	fmt.Fprintf(&b, "| Returns | %.2f |\n", k.Returns)
	fmt.Fprintf(&b, "| Return rate | %.1f%% |\n", k.ReturnRate*100)
	fmt.Fprintf(&b, "| Transactions | %d |\n", k.TransactionCount)
	fmt.Fprintf(&b, "| Families | %d |\n", k.FamilyCount)
	fmt.Fprintf(&b, "| Stores | %d |\n", k.StoreCount)
	fmt.Fprintf(&b, "| Seasons | %d |\n\n", k.SeasonCount)

	b.WriteString("## Channel split\n\n")
	b.WriteString("| Channel | Net sales | Stores |\n|---|---|---|\n")
	fmt.Fprintf(&b, "| Physical | %.2f | %d |\n", k.PhysicalNetSales, k.PhysicalStoreCount)
	fmt.Fprintf(&b, "| Online | %.2f | %d |\n\n", k.OnlineNetSales, k.OnlineStoreCount)

	if len(families) > 0 {
		b.WriteString("## Top families by revenue\n\n")
		b.WriteString("| Family | Units | Revenue |\n|---|---|---|\n")
		for _, g := range families {
			fmt.Fprintf(&b, "| %s | %d | %.2f |\n", g.Label, g.Units, g.Revenue)
		}
		b.WriteString("\n")
	}

	b.WriteString("## Data quality\n\n")
	fmt.Fprintf(&b, "- Sign mismatches in view: %d\n", k.SignMismatchCount)
	fmt.Fprintf(&b, "- Rows dropped at load: %d sales, %d products, %d transfers\n",
		ds.DroppedSalesRows, ds.DroppedProductRows, ds.DroppedTransferRows)

	return b.String(), nil
}

// HTML renders the markdown report into a standalone HTML fragment.
func (s *ReportService) HTML(id core.DatasetID, spec ledger.FilterSpec) ([]byte, error) {
	md, err := s.Markdown(id, spec)
	if err != nil {
		return nil, err
	}

	p := parser.NewWithExtensions(parser.CommonExtensions | parser.Tables)
	renderer := html.NewRenderer(html.RendererOptions{Flags: html.CommonFlags})
	return markdown.ToHTML([]byte(md), p, renderer), nil
}

func describeScope(spec ledger.FilterSpec) string {
	var parts []string
	if spec.Season != "" {
		parts = append(parts, "season "+spec.Season)
	}
	switch spec.FamilyMode {
	case ledger.FamilyRealOnly:
		parts = append(parts, "real families only")
	case ledger.FamilyExact:
		parts = append(parts, "family "+spec.Family)
	}
	if n := len(spec.StoreIDs); n > 0 {
		parts = append(parts, fmt.Sprintf("%d selected stores", n))
	}
	if spec.DateFrom != nil || spec.DateTo != nil {
		from, to := "start", "end"
		if spec.DateFrom != nil {
			from = spec.DateFrom.Format("2006-01-02")
		}
		if spec.DateTo != nil {
			to = spec.DateTo.Format("2006-01-02")
		}
		parts = append(parts, from+" to "+to)
	}
	return strings.Join(parts, ", ")
}
