package catalog

// Catalog holds the reference vocabularies the spec extractor matches
// against. It is loaded once per run and treated as immutable afterwards;
// callers pass it explicitly rather than reading shared state.
type Catalog struct {
	Models       []string
	CPUs         []string
	RAMSizes     []string
	StorageSizes []string
}

// Default returns the built-in seed vocabulary, used when the reference
// tables are empty or no database is configured.
func Default() Catalog {
	return Catalog{
		Models: []string{
			"X1 Carbon", "X1 Yoga", "X1 Extreme", "X1 Nano",
			"X13", "X280", "X270", "X260", "X250", "X240",
			"T14s", "T14", "T16", "T480s", "T480", "T490s", "T490", "T495",
			"T470s", "T470", "T460s", "T460", "T450s", "T450", "T440s", "T440",
			"T430", "T420", "T410",
			"P14s", "P15s", "P1", "P50", "P51", "P52", "P53",
			"L14", "L13", "L480", "L470", "L390",
			"E14", "E15", "E480", "E470",
			"W540", "W541", "W530",
			"Yoga 370", "Yoga 260",
			"11e", "13",
		},
		CPUs: []string{
			"i9", "i7", "i5", "i3",
			"Ryzen 7 Pro", "Ryzen 5 Pro", "Ryzen 7", "Ryzen 5", "Ryzen 3",
			"Celeron", "Pentium",
		},
		RAMSizes: []string{
			"4GB", "8GB", "12GB", "16GB", "24GB", "32GB", "40GB", "64GB",
		},
		StorageSizes: []string{
			"128GB SSD", "180GB SSD", "256GB SSD", "500GB SSD", "512GB SSD",
			"1TB SSD", "2TB SSD",
			"500GB HDD", "1TB HDD",
			"128GB", "256GB", "512GB", "1TB",
		},
	}
}

// IsEmpty reports whether no vocabulary at all was loaded.
func (c Catalog) IsEmpty() bool {
	return len(c.Models) == 0 && len(c.CPUs) == 0 &&
		len(c.RAMSizes) == 0 && len(c.StorageSizes) == 0
}
