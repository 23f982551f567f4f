package ledger

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"retailpulse/domain/core"
)

// FamilyMode selects how the family constraint is interpreted.
type FamilyMode string

const (
	// FamilyAll applies no family constraint.
	FamilyAll FamilyMode = "all"
	// FamilyRealOnly excludes exactly the fictitious sentinel family.
	FamilyRealOnly FamilyMode = "real_only"
	// FamilyExact matches one family description.
	FamilyExact FamilyMode = "exact"
)

// FilterSpec is a pure value describing season/family/store-set/date-range
// constraints. Absence of a term means no constraint. Two FilterSpecs
// naming the same constraints compare equal through Key, which backs the
// view caches.
type FilterSpec struct {
	Season     string         `json:"season,omitempty"`
	FamilyMode FamilyMode     `json:"family_mode,omitempty"`
	Family     string         `json:"family,omitempty"`
	StoreIDs   []core.StoreID `json:"store_ids,omitempty"`
	DateFrom   *time.Time     `json:"date_from,omitempty"`
	DateTo     *time.Time     `json:"date_to,omitempty"`
}

// Validate rejects malformed specs before any ledger work happens.
func (s FilterSpec) Validate() error {
	if s.DateFrom != nil && s.DateTo != nil && s.DateFrom.After(*s.DateTo) {
		return core.ErrDateRangeInverted
	}
	switch s.FamilyMode {
	case "", FamilyAll, FamilyRealOnly:
	case FamilyExact:
		if strings.TrimSpace(s.Family) == "" {
			return core.NewValidationError("family", "exact family mode requires a family")
		}
	default:
		return core.NewValidationError("family_mode", fmt.Sprintf("unknown mode %q", s.FamilyMode))
	}
	return nil
}

// Key returns a canonical cache key. Store IDs are sorted so that two specs
// naming the same store set in different order compare equal.
func (s FilterSpec) Key() string {
	stores := make([]string, 0, len(s.StoreIDs))
	for _, id := range s.StoreIDs {
		stores = append(stores, id.String())
	}
	sort.Strings(stores)

	from, to := "", ""
	if s.DateFrom != nil {
		from = s.DateFrom.Format("2006-01-02")
	}
	if s.DateTo != nil {
		to = s.DateTo.Format("2006-01-02")
	}

	mode := s.FamilyMode
	if mode == "" {
		mode = FamilyAll
	}

	return fmt.Sprintf("season=%s|mode=%s|family=%s|stores=%s|from=%s|to=%s",
		core.NormalizeKey(s.Season), mode, core.NormalizeKey(s.Family),
		strings.Join(stores, ","), from, to)
}

// Predicate decides whether one sales record satisfies a filter.
type Predicate func(SalesRecord) bool

// Compile turns a validated spec into a predicate over ledger records.
// No term panics on absent optional fields.
func Compile(spec FilterSpec) (Predicate, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}

	var terms []Predicate

	if season := core.NormalizeKey(spec.Season); season != "" {
		terms = append(terms, func(r SalesRecord) bool {
			return core.NormalizeKey(r.Season) == season
		})
	}

	switch spec.FamilyMode {
	case FamilyRealOnly:
		terms = append(terms, func(r SalesRecord) bool {
			return !IsFictitious(r.Family)
		})
	case FamilyExact:
		family := core.NormalizeKey(spec.Family)
		terms = append(terms, func(r SalesRecord) bool {
			return core.NormalizeKey(r.Family) == family
		})
	}

	if len(spec.StoreIDs) > 0 {
		// Inclusion tests run against the resolved store identifier,
		// never the display name.
		set := make(map[core.StoreID]struct{}, len(spec.StoreIDs))
		for _, id := range spec.StoreIDs {
			set[id] = struct{}{}
		}
		terms = append(terms, func(r SalesRecord) bool {
			_, ok := set[r.StoreID]
			return ok
		})
	}

	if spec.DateFrom != nil {
		from := core.DayStart(*spec.DateFrom)
		terms = append(terms, func(r SalesRecord) bool {
			return !r.SaleDate.Before(from)
		})
	}
	if spec.DateTo != nil {
		// Inclusive upper bound: compare against the start of the day
		// after DateTo so time-of-day components never exclude a
		// same-day sale.
		bound := core.DayStart(*spec.DateTo).AddDate(0, 0, 1)
		terms = append(terms, func(r SalesRecord) bool {
			return r.SaleDate.Before(bound)
		})
	}

	if len(terms) == 0 {
		return func(SalesRecord) bool { return true }, nil
	}
	return func(r SalesRecord) bool {
		for _, term := range terms {
			if !term(r) {
				return false
			}
		}
		return true
	}, nil
}

// Apply filters records through a predicate. It allocates a fresh slice,
// never mutates the source, and preserves original record order so that
// downstream top-N ties stay stable.
func Apply(records []SalesRecord, pred Predicate) []SalesRecord {
	out := make([]SalesRecord, 0, len(records))
	for _, r := range records {
		if pred(r) {
			out = append(out, r)
		}
	}
	return out
}
