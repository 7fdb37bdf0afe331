package parser

// IsRealProduct classifies a parsed spec bundle as a genuine laptop rather
// than an accessory (battery, charger, stand). Accessories rarely carry a
// coherent model plus at least one hardware spec, so that pair is the
// acceptance test. The heuristic is deliberately cheap; occasional
// misclassification in either direction is accepted.
func IsRealProduct(specs Specs) bool {
	if !present(specs.Model) {
		return false
	}
	return present(specs.CPU) || present(specs.RAM) || present(specs.Storage)
}

func present(v string) bool {
	return v != "" && v != Unknown
}
