// Package marker defines the marker types shared by the agent response
// parser and the analyzer service: the LLM's raw, chunk-relative output and
// the absolute-time, deduplicated markers held after resolution.
package marker

import "sort"

// Category is a closed vocabulary for marker classification, with an Other
// catch-all for anything an LLM emits outside the known set. Resolves
// spec.md's open question about an unconstrained category vocabulary.
type Category string

const (
	CategoryPlanning       Category = "planning"
	CategoryDesign         Category = "design"
	CategoryImplementation Category = "implementation"
	CategorySuccess        Category = "success"
	CategoryFailure        Category = "failure"
	CategoryOther          Category = "other"
)

// ParseCategory maps an LLM-supplied string onto the closed vocabulary,
// falling back to CategoryOther with the original string preserved in
// OtherLabel.
func ParseCategory(s string) (Category, string) {
	switch s {
	case "planning":
		return CategoryPlanning, ""
	case "design":
		return CategoryDesign, ""
	case "implementation":
		return CategoryImplementation, ""
	case "success":
		return CategorySuccess, ""
	case "failure":
		return CategoryFailure, ""
	default:
		return CategoryOther, s
	}
}

// Raw is a marker exactly as emitted by the LLM: a timestamp relative to
// the chunk's own start time, not yet resolved to an absolute recording
// time.
type Raw struct {
	Timestamp  float64
	Label      string
	Category   Category
	OtherLabel string
}

// Validated is a marker held in memory after its chunk-relative timestamp
// has been resolved to an absolute recording time. Markers are totally
// ordered by Timestamp.
type Validated struct {
	Timestamp  float64
	Label      string
	Category   Category
	OtherLabel string
}

// SortByTimestamp orders markers in place by ascending absolute timestamp.
func SortByTimestamp(markers []Validated) {
	sort.Slice(markers, func(i, j int) bool { return markers[i].Timestamp < markers[j].Timestamp })
}

// minLabelPrefixMatch is the minimum number of matching leading characters
// (case-insensitive) required for two markers' labels to be considered the
// "same" marker during cross-chunk overlap dedup.
const minLabelPrefixMatch = 8

// dedupWindowSeconds is the maximum absolute time delta between two
// markers for them to be considered duplicates.
const dedupWindowSeconds = 2.0

// Dedup removes duplicate markers arising from chunk overlap: two markers
// within dedupWindowSeconds of each other are the same marker when either
// their labels share a case-insensitive prefix of at least
// minLabelPrefixMatch characters, or they share a category. Markers are
// assumed sorted by origin chunk id ascending (earlier chunk wins ties);
// callers should pass markers in chunk-dispatch order before any timestamp
// sort.
func Dedup(markers []Validated) []Validated {
	var out []Validated
	for _, m := range markers {
		dup := false
		for i := range out {
			if isDuplicate(out[i], m) {
				dup = true
				break
			}
		}
		if !dup {
			out = append(out, m)
		}
	}
	return out
}

func isDuplicate(a, b Validated) bool {
	dt := a.Timestamp - b.Timestamp
	if dt < 0 {
		dt = -dt
	}
	if dt >= dedupWindowSeconds {
		return false
	}
	if labelPrefixMatches(a.Label, b.Label) {
		return true
	}
	return a.Category == b.Category
}

func labelPrefixMatches(a, b string) bool {
	ra, rb := []rune(toLower(a)), []rune(toLower(b))
	n := minLabelPrefixMatch
	if len(ra) < n || len(rb) < n {
		return false
	}
	for i := 0; i < n; i++ {
		if ra[i] != rb[i] {
			return false
		}
	}
	return true
}

func toLower(s string) string {
	r := []rune(s)
	for i, c := range r {
		if c >= 'A' && c <= 'Z' {
			r[i] = c + ('a' - 'A')
		}
	}
	return string(r)
}
