package agent

import (
	"encoding/json"
	"strings"

	"github.com/thiscantbeserious/agr/internal/marker"
)

// rawMarkerJSON mirrors the wire shape an LLM is prompted to emit for a
// single marker.
type rawMarkerJSON struct {
	Timestamp float64 `json:"timestamp"`
	Label     string  `json:"label"`
	Category  string  `json:"category"`
}

type analysisJSON struct {
	Markers []rawMarkerJSON `json:"markers"`
}

// claudeWrapper is the shape `claude --output-format json` wraps its final
// answer in: the actual assistant text lives in `result`.
type claudeWrapper struct {
	IsError bool   `json:"is_error"`
	Result  string `json:"result"`
}

// ExtractMarkers defensively pulls a marker list out of an agent's raw
// stdout text, trying progressively looser strategies since CLI wrappers
// and models alike are inconsistent about emitting clean JSON:
//  1. the whole trimmed response parses directly as `{"markers": [...]}`.
//  2. the response is a Claude CLI wrapper object; its `result` string is
//     itself the analysis JSON (or contains it).
//  3. a balanced `{...}` span anywhere in the text parses as the analysis
//     JSON — models often wrap responses in prose or code fences.
//
// Returns (nil, false) only when none of the strategies find valid JSON at
// all; a successfully parsed object with zero markers is NOT an error.
func ExtractMarkers(response string) ([]marker.Raw, bool) {
	trimmed := strings.TrimSpace(response)

	if raw, ok := tryParseAnalysis(trimmed); ok {
		return raw, true
	}

	var wrapper claudeWrapper
	if err := json.Unmarshal([]byte(trimmed), &wrapper); err == nil && wrapper.Result != "" {
		if raw, ok := tryParseAnalysis(strings.TrimSpace(wrapper.Result)); ok {
			return raw, true
		}
		if span, ok := findBalancedObject(wrapper.Result); ok {
			if raw, ok := tryParseAnalysis(span); ok {
				return raw, true
			}
		}
	}

	if span, ok := findBalancedObject(trimmed); ok {
		if raw, ok := tryParseAnalysis(span); ok {
			return raw, true
		}
	}

	return nil, false
}

func tryParseAnalysis(s string) ([]marker.Raw, bool) {
	if s == "" {
		return nil, false
	}
	var analysis analysisJSON
	if err := json.Unmarshal([]byte(s), &analysis); err != nil {
		return nil, false
	}
	out := make([]marker.Raw, 0, len(analysis.Markers))
	for _, m := range analysis.Markers {
		cat, other := marker.ParseCategory(m.Category)
		out = append(out, marker.Raw{
			Timestamp:  m.Timestamp,
			Label:      m.Label,
			Category:   cat,
			OtherLabel: other,
		})
	}
	return out, true
}

// findBalancedObject returns the first top-level `{...}` span in s, scanning
// brace depth and skipping braces inside string literals.
func findBalancedObject(s string) (string, bool) {
	start := -1
	depth := 0
	inString := false
	escaped := false

	for i, r := range s {
		if start == -1 {
			if r == '{' {
				start = i
				depth = 1
			}
			continue
		}
		if inString {
			switch {
			case escaped:
				escaped = false
			case r == '\\':
				escaped = true
			case r == '"':
				inString = false
			}
			continue
		}
		switch r {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[start : i+len(string(r))], true
			}
		}
	}
	return "", false
}
