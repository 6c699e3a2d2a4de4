// This package defines the fixed catalog of datasets acquired by the
// service: five tabular indicator datasets from Our World in Data and one
// Natural Earth country-boundary archive. The catalog is static identity
// data; all fetching and processing happens elsewhere.
package catalog

// the kind of local file a dataset produces
type Kind int

const (
	KindTabular Kind = iota // a CSV table
	KindArchive             // a zip archive containing a shapefile layer
)

// A Descriptor identifies a single dataset: where it lives remotely, what
// its local file is called, and what kind of file it is. Descriptors are
// defined once below and never mutated.
type Descriptor struct {
	// logical name, unique within the catalog
	Name string
	// remote URL from which the dataset is fetched
	URL string
	// name of the local file written into the download directory
	Filename string
	// kind of local file (tabular or archive)
	Kind Kind
	// human-readable name used by consumers of merged results
	DisplayName string
}

// the logical name of the boundary archive entry
const Geodata = "geodata"

// the fixed catalog, in a stable order
var entries = []Descriptor{
	{
		Name:        "annual_change_forest_area",
		URL:         "https://ourworldindata.org/grapher/annual-change-forest-area.csv?v=1&csvType=full&useColumnShortNames=true",
		Filename:    "annual_change_forest_area.csv",
		Kind:        KindTabular,
		DisplayName: "Annual Change in Forest Area",
	},
	{
		Name:        "annual_deforestation",
		URL:         "https://ourworldindata.org/grapher/annual-deforestation.csv?v=1&csvType=full&useColumnShortNames=true",
		Filename:    "annual_deforestation.csv",
		Kind:        KindTabular,
		DisplayName: "Annual Deforestation",
	},
	{
		Name:        "share_land_protected",
		URL:         "https://ourworldindata.org/grapher/terrestrial-protected-areas.csv?v=1&csvType=full&useColumnShortNames=true",
		Filename:    "share_land_protected.csv",
		Kind:        KindTabular,
		DisplayName: "Share of Land Protected",
	},
	{
		Name:        "share_land_degraded",
		URL:         "https://ourworldindata.org/grapher/forest-area-net-change-rate.csv?v=1&csvType=full&useColumnShortNames=true",
		Filename:    "share_land_degraded.csv",
		Kind:        KindTabular,
		DisplayName: "Share of Land Degraded",
	},
	{
		Name:        "forest_area_total",
		URL:         "https://ourworldindata.org/grapher/forest-area-as-share-of-land-area.csv?v=1&csvType=full&useColumnShortNames=true",
		Filename:    "forest_area_total.csv",
		Kind:        KindTabular,
		DisplayName: "Forest Area Total Share",
	},
	{
		Name:     Geodata,
		URL:      "https://naturalearth.s3.amazonaws.com/110m_cultural/ne_110m_admin_0_countries.zip",
		Filename: "ne_110m_admin_0_countries.zip",
		Kind:     KindArchive,
	},
}

// returns every catalog entry, in a stable order
func All() []Descriptor {
	all := make([]Descriptor, len(entries))
	copy(all, entries)
	return all
}

// returns the tabular catalog entries, in a stable order
func Tabular() []Descriptor {
	tabular := make([]Descriptor, 0, len(entries))
	for _, entry := range entries {
		if entry.Kind == KindTabular {
			tabular = append(tabular, entry)
		}
	}
	return tabular
}

// looks up the catalog entry with the given logical name
func Lookup(name string) (Descriptor, error) {
	for _, entry := range entries {
		if entry.Name == name {
			return entry, nil
		}
	}
	return Descriptor{}, NotFoundError{Dataset: name}
}

// returns a mapping from the logical name of each tabular entry to its
// display name
func DisplayNames() map[string]string {
	names := make(map[string]string)
	for _, entry := range entries {
		if entry.Kind == KindTabular {
			names[entry.Name] = entry.DisplayName
		}
	}
	return names
}
