package stores

import (
	"testing"

	"retailpulse/domain/core"
)

func TestClassify_OnlineDetection(t *testing.T) {
	r := NewResolver()

	cases := []struct {
		name   string
		online bool
	}{
		{"TRUCCO ONLINE", true},
		{"eci online gestion 2", true},
		{"TIENDA SERRANO", false},
		{"", false},
	}
	for _, tc := range cases {
		c := r.Classify(core.NormalizeStoreID("T001"), tc.name)
		if c.IsOnline != tc.online {
			t.Errorf("Classify(%q).IsOnline = %v, want %v", tc.name, c.IsOnline, tc.online)
		}
	}
}

func TestClassify_Zones(t *testing.T) {
	r := NewResolver()

	cases := []struct {
		name string
		zone string
	}{
		{"COIN MILANO", ZoneItaly},
		{"NAELLE BILBAO", ZoneNaelle},
		{"naelle coin mixto", ZoneNaelle}, // brand marker wins over mall marker
		{"TIENDA SERRANO", ZoneTruccoES},
	}
	for _, tc := range cases {
		c := r.Classify(core.NormalizeStoreID("T001"), tc.name)
		if c.Zone != tc.zone {
			t.Errorf("Classify(%q).Zone = %s, want %s", tc.name, c.Zone, tc.zone)
		}
	}
}

func TestClassify_ExclusionList(t *testing.T) {
	r := NewResolver()

	excluded := []string{
		"COMODIN",
		"R998- PILOTO",
		"ECI ONLINE GESTION",
		"W001 DEVOLUCIONES WEB (NO ENVIAR TRASP)",
		"  COMODIN  ", // padding in the export
	}
	for _, name := range excluded {
		if c := r.Classify(core.NormalizeStoreID("T001"), name); !c.Excluded {
			t.Errorf("Classify(%q) must be excluded", name)
		}
	}

	if c := r.Classify(core.NormalizeStoreID("T001"), "COMODIN 2"); c.Excluded {
		t.Error("exclusion is exact-name, not substring")
	}
}
