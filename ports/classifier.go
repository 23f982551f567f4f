package ports

import (
	"retailpulse/domain/core"
)

// StoreClassification is the resolved attribute set for one store. The
// aggregation core consumes these attributes; it never re-derives them.
type StoreClassification struct {
	ID       core.StoreID
	Name     string
	IsOnline bool
	Zone     string
	// Excluded stores (pilot stores, returns-processing entries) are
	// dropped from the ledger at load time.
	Excluded bool
}

// StoreClassifier resolves a store identifier and display name into its
// classification.
type StoreClassifier interface {
	Classify(id core.StoreID, name string) StoreClassification
}
