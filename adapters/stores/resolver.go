// Package stores resolves store attributes from the display names used in
// the point-of-sale exports. The heuristics are deliberately simple string
// checks: the export carries no structured channel or brand field.
package stores

import (
	"strings"

	"retailpulse/domain/core"
	"retailpulse/ports"
)

// Zones assigned by brand markers in the store name.
const (
	ZoneTruccoES = "TRUCCO_ES"
	ZoneItaly    = "IT"
	ZoneNaelle   = "NAELLE"
)

// excludedStores are pilot and returns-processing entries dropped from
// every analysis at load time.
var excludedStores = map[string]struct{}{
	"COMODIN":                                 {},
	"R998- PILOTO":                            {},
	"ECI ONLINE GESTION":                      {},
	"W001 DEVOLUCIONES WEB (NO ENVIAR TRASP)": {},
}

// Resolver classifies stores by display-name heuristics.
type Resolver struct{}

// NewResolver creates a store classification resolver.
func NewResolver() *Resolver {
	return &Resolver{}
}

var _ ports.StoreClassifier = (*Resolver)(nil)

// Classify resolves the online flag and zone for one store. Names are
// matched case-insensitively after trimming; the exclusion list is matched
// on the exact trimmed name, the way the export spells it.
func (r *Resolver) Classify(id core.StoreID, name string) ports.StoreClassification {
	trimmed := strings.TrimSpace(name)
	upper := strings.ToUpper(trimmed)

	c := ports.StoreClassification{
		ID:       id,
		Name:     trimmed,
		IsOnline: strings.Contains(upper, "ONLINE"),
		Zone:     ZoneTruccoES,
	}
	switch {
	case strings.Contains(upper, "NAELLE"):
		c.Zone = ZoneNaelle
	case strings.Contains(upper, "COIN"):
		c.Zone = ZoneItaly
	}
	if _, excluded := excludedStores[trimmed]; excluded {
		c.Excluded = true
	}
	return c
}
