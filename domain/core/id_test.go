package core

import (
	"strings"
	"testing"
)

func TestNewJobID_Unique(t *testing.T) {
	seen := make(map[JobID]struct{})
	for i := 0; i < 100; i++ {
		id := NewJobID()
		if id == "" {
			t.Fatal("empty job id")
		}
		if _, dup := seen[id]; dup {
			t.Fatalf("duplicate job id %s", id)
		}
		seen[id] = struct{}{}
	}
}

func TestParseJobID(t *testing.T) {
	id := NewJobID()
	parsed, err := ParseJobID(id.String())
	if err != nil {
		t.Fatalf("ParseJobID(%s): %v", id, err)
	}
	if parsed != id {
		t.Errorf("round trip changed id: %s != %s", parsed, id)
	}

	if _, err := ParseJobID(""); err == nil {
		t.Error("expected error for empty job id")
	}
	if _, err := ParseJobID("not-a-uuid"); err == nil {
		t.Error("expected error for malformed job id")
	}
}

func TestParseDatasetID(t *testing.T) {
	if _, err := ParseDatasetID("   "); err == nil {
		t.Error("expected error for blank dataset id")
	}
	id, err := ParseDatasetID("default")
	if err != nil || id != DatasetID("default") {
		t.Errorf("ParseDatasetID(default) = %v, %v", id, err)
	}
}

func TestNormalizeStoreID(t *testing.T) {
	cases := map[string]StoreID{
		" t001 ":  "T001",
		"T001":    "T001",
		"eci web": "ECI WEB",
	}
	for raw, want := range cases {
		if got := NormalizeStoreID(raw); got != want {
			t.Errorf("NormalizeStoreID(%q) = %q, want %q", raw, got, want)
		}
	}
}

func TestNormalizeKey(t *testing.T) {
	if got := NormalizeKey("  vestidos "); got != "VESTIDOS" {
		t.Errorf("NormalizeKey = %q", got)
	}
	if got := NormalizeKey(strings.Repeat(" ", 3)); got != "" {
		t.Errorf("NormalizeKey(blank) = %q", got)
	}
}
