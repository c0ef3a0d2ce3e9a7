package region

import "testing"

func TestCatalogShape(t *testing.T) {
	cities := Catalog()
	if len(cities) != 15 {
		t.Fatalf("catalog has %d cities, want 15", len(cities))
	}

	seen := make(map[string]bool, len(cities))
	for _, c := range cities {
		if seen[c.Name] {
			t.Errorf("duplicate city %q", c.Name)
		}
		seen[c.Name] = true

		if c.Lat < 48 || c.Lat > 49 || c.Lon < -4 || c.Lon > -2.5 {
			t.Errorf("%s has coordinates outside the region: %v, %v", c.Name, c.Lat, c.Lon)
		}
		if c.Population <= 0 {
			t.Errorf("%s has no population", c.Name)
		}
	}
}

func TestCatalogReturnsCopy(t *testing.T) {
	first := Catalog()
	first[0].Name = "mutated"

	if Catalog()[0].Name == "mutated" {
		t.Fatal("Catalog must hand out a copy")
	}
}

func TestClassifyImportance(t *testing.T) {
	tests := []struct {
		name string
		city City
		want ImportanceTier
	}{
		{"large town", City{Population: 20000}, TierHigh},
		{"notable village", City{Population: 2400, Notable: true}, TierHigh},
		{"mid-size town", City{Population: 4500}, TierMedium},
		{"village", City{Population: 900}, TierLow},
		{"threshold high", City{Population: 10000}, TierHigh},
		{"threshold medium", City{Population: 3000}, TierMedium},
	}

	for _, tt := range tests {
		if got := ClassifyImportance(tt.city); got != tt.want {
			t.Errorf("%s: got %q, want %q", tt.name, got, tt.want)
		}
	}
}

func TestFind(t *testing.T) {
	if _, ok := Find("Lannion"); !ok {
		t.Error("Lannion should be in the catalog")
	}
	if _, ok := Find("Paris"); ok {
		t.Error("Paris should not be in the catalog")
	}
}
