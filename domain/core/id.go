package core

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// ID represents a domain identifier
type ID string

// NewID creates a new unique identifier using UUID v7 for time-ordered generation
func NewID() ID {
	// Use UUID v7 for time-ordered, sortable IDs
	// Falls back to v4 if v7 is not available (for compatibility)
	id, err := uuid.NewV7()
	if err != nil {
		id = uuid.New()
	}
	return ID(id.String())
}

// String returns the string representation
func (id ID) String() string {
	return string(id)
}

// IsEmpty checks if the ID is empty
func (id ID) IsEmpty() bool {
	return id == ""
}

// Domain-specific ID types
type (
	DatasetID ID
	JobID     ID
	StoreID   ID
	ProductID ID
)

// String conversions for domain IDs
func (id DatasetID) String() string { return ID(id).String() }
func (id JobID) String() string     { return ID(id).String() }
func (id StoreID) String() string   { return ID(id).String() }
func (id ProductID) String() string { return ID(id).String() }

// NewJobID creates a new time-ordered job identifier
func NewJobID() JobID {
	return JobID(NewID())
}

// ParseDatasetID parses a string into DatasetID
func ParseDatasetID(s string) (DatasetID, error) {
	if strings.TrimSpace(s) == "" {
		return "", fmt.Errorf("dataset ID cannot be empty")
	}
	return DatasetID(s), nil
}

// ParseJobID parses a string into JobID. Job IDs are always UUIDs.
func ParseJobID(s string) (JobID, error) {
	if strings.TrimSpace(s) == "" {
		return "", fmt.Errorf("job ID cannot be empty")
	}
	if _, err := uuid.Parse(s); err != nil {
		return "", fmt.Errorf("malformed job ID: %w", err)
	}
	return JobID(s), nil
}

// NormalizeStoreID canonicalizes a raw store identifier for key equality.
// Grouping and store-set filters must never key on display text.
func NormalizeStoreID(raw string) StoreID {
	return StoreID(strings.ToUpper(strings.TrimSpace(raw)))
}

// NormalizeKey canonicalizes free-text dimension values (family, season,
// size) so that differently-cased or padded exports merge into one group.
func NormalizeKey(raw string) string {
	return strings.ToUpper(strings.TrimSpace(raw))
}
