package parser

import (
	"regexp"
	"strings"

	"thinkpad-price-tracker/internal/catalog"
)

// Unknown is the sentinel for a spec field that could not be extracted.
// Extraction never fails; ambiguity always resolves to defaults.
const Unknown = "Unknown"

const brandToken = "thinkpad"

// punctReplacer flattens the punctuation sellers sprinkle through titles
// ("T14s/i7, 16GB|512GB") so vocabulary entries match on plain words.
var punctReplacer = strings.NewReplacer(
	`"`, " ", "/", " ", ",", " ", "|", " ", ".", " ", "-", " ",
)

var cpuFreqPattern = regexp.MustCompile(`\d+(\.\d+)?\s?ghz`)

// Specs is the structured result of parsing one listing's free text.
type Specs struct {
	Model       string
	CPU         string
	CPUFreq     string
	RAM         string
	Storage     string
	StorageType string
}

// Extract parses a title plus optional short description into structured
// specs using the given catalog. Identical inputs always produce identical
// output; there is no I/O and no error path.
func Extract(title, shortDescription string, cat catalog.Catalog) Specs {
	raw := strings.ToLower(title + " " + shortDescription)
	window := punctReplacer.Replace(raw)

	// Marketing boilerplate ahead of the brand name ("15.6 inch ... Lenovo
	// ThinkPad T480") is full of model-like numbers; search only past the
	// first brand token when one is present.
	if idx := strings.Index(window, brandToken); idx >= 0 {
		window = window[idx+len(brandToken):]
	}

	specs := Specs{
		Model:   matchModel(window, cat.Models),
		CPU:     firstWordMatch(window, cat.CPUs),
		RAM:     firstWordMatch(window, cat.RAMSizes),
		Storage: matchStorage(window, cat.StorageSizes),
	}

	// Frequency is matched against the un-flattened text: normalisation
	// turns "2.6GHz" into "2 6ghz" and would split the decimal point.
	specs.CPUFreq = cpuFreqPattern.FindString(raw)
	specs.StorageType = classifyStorageType(window)

	return specs
}

// matchModel collects every boundary-aware catalog hit and applies the
// tie-break: alphanumeric model codes beat purely numeric ones, and within
// the preferred set the longest entry wins ("X1 Carbon" over "X1").
func matchModel(window string, models []string) string {
	var alnum, numeric []string
	for _, m := range models {
		entry := strings.ToLower(m)
		pureNumeric := isNumeric(entry)
		if !modelBoundaryMatch(window, entry, pureNumeric) {
			continue
		}
		if pureNumeric {
			numeric = append(numeric, m)
		} else {
			alnum = append(alnum, m)
		}
	}

	if best := longest(alnum); best != "" {
		return best
	}
	if best := longest(numeric); best != "" {
		return best
	}
	return Unknown
}

// modelBoundaryMatch tests an entry at a word boundary: the hit must be
// followed by whitespace or end-of-string, and a purely numeric entry must
// not sit immediately after another digit (keeps "420" out of "5420").
func modelBoundaryMatch(window, entry string, pureNumeric bool) bool {
	pattern := regexp.QuoteMeta(entry) + `(\s|$)`
	if pureNumeric {
		pattern = `(^|[^0-9])` + pattern
	}
	matched, err := regexp.MatchString(pattern, window)
	return err == nil && matched
}

// firstWordMatch returns the first catalog entry whose word-bounded form
// appears in the window. Catalog order is authoritative; no length ranking.
func firstWordMatch(window string, entries []string) string {
	for _, e := range entries {
		pattern := `\b` + regexp.QuoteMeta(strings.ToLower(e)) + `\b`
		if matched, err := regexp.MatchString(pattern, window); err == nil && matched {
			return e
		}
	}
	return Unknown
}

// matchStorage compares with all whitespace squashed out of both sides so
// "512 GB SSD" and "512GB SSD" land on the same catalog entry.
func matchStorage(window string, entries []string) string {
	squashed := stripSpaces(window)
	for _, e := range entries {
		if strings.Contains(squashed, stripSpaces(strings.ToLower(e))) {
			return e
		}
	}
	return Unknown
}

func classifyStorageType(window string) string {
	switch {
	case strings.Contains(window, "nvme"):
		return "NVME"
	case strings.Contains(window, "ssd"):
		return "SSD"
	case strings.Contains(window, "hdd"), strings.Contains(window, "hard drive"):
		return "HDD"
	default:
		return ""
	}
}

func isNumeric(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func longest(entries []string) string {
	best := ""
	for _, e := range entries {
		if len(e) > len(best) {
			best = e
		}
	}
	return best
}

func stripSpaces(s string) string {
	return strings.Map(func(r rune) rune {
		if r == ' ' || r == '\t' {
			return -1
		}
		return r
	}, s)
}
