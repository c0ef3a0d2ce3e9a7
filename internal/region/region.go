package region

// ImportanceTier classifies a city for marker visibility at low zoom.
type ImportanceTier string

const (
	TierHigh   ImportanceTier = "high"
	TierMedium ImportanceTier = "medium"
	TierLow    ImportanceTier = "low"
	// TierUnclassified is the zero value; unclassified cities stay visible
	// at every zoom level until classified.
	TierUnclassified ImportanceTier = ""
)

// City is one entry of the fixed monitored set.
type City struct {
	Name       string  `json:"name"`
	Lat        float64 `json:"lat"`
	Lon        float64 `json:"lon"`
	Population int     `json:"population"`
	// Notable marks small towns that are major tourist landmarks and should
	// rank as high importance regardless of population.
	Notable bool `json:"notable,omitempty"`
}

// Population thresholds for importance classification.
const (
	highPopulation   = 10000
	mediumPopulation = 3000
)

// ClassifyImportance returns the importance tier for a city. It is a pure
// function of the city's static attributes and is called once at ingestion;
// the result is stored on the forecast record, never recomputed lazily.
func ClassifyImportance(c City) ImportanceTier {
	if c.Notable || c.Population >= highPopulation {
		return TierHigh
	}
	if c.Population >= mediumPopulation {
		return TierMedium
	}
	return TierLow
}

// catalog is the fixed ordered set of monitored cities on the Trégor coast.
// The slice order is the canonical request order: forecast bundles keep one
// entry per city per day in exactly this order.
var catalog = []City{
	{Name: "Lannion", Lat: 48.7326, Lon: -3.4590, Population: 20040},
	{Name: "Perros-Guirec", Lat: 48.8142, Lon: -3.4392, Population: 7375, Notable: true},
	{Name: "Trégastel", Lat: 48.8240, Lon: -3.5067, Population: 2410, Notable: true},
	{Name: "Trébeurden", Lat: 48.7700, Lon: -3.5614, Population: 3650},
	{Name: "Pleumeur-Bodou", Lat: 48.7800, Lon: -3.5167, Population: 3930},
	{Name: "Tréguier", Lat: 48.7847, Lon: -3.2322, Population: 2320, Notable: true},
	{Name: "Paimpol", Lat: 48.7778, Lon: -3.0444, Population: 7070},
	{Name: "Lézardrieux", Lat: 48.7850, Lon: -3.1061, Population: 1530},
	{Name: "Pontrieux", Lat: 48.7000, Lon: -3.1583, Population: 1010},
	{Name: "Guingamp", Lat: 48.5633, Lon: -3.1508, Population: 6830},
	{Name: "Bégard", Lat: 48.6283, Lon: -3.3003, Population: 4650},
	{Name: "Plouaret", Lat: 48.6167, Lon: -3.4667, Population: 2190},
	{Name: "Plestin-les-Grèves", Lat: 48.6581, Lon: -3.6308, Population: 3820},
	{Name: "Morlaix", Lat: 48.5775, Lon: -3.8278, Population: 14850},
	{Name: "Louannec", Lat: 48.7967, Lon: -3.4183, Population: 3090},
}

// Catalog returns a copy of the monitored city set in canonical order.
func Catalog() []City {
	out := make([]City, len(catalog))
	copy(out, catalog)
	return out
}

// Find returns the catalog entry with the given name.
func Find(name string) (City, bool) {
	for _, c := range catalog {
		if c.Name == name {
			return c, true
		}
	}
	return City{}, false
}
