package extract

import (
	"strings"
	"unicode"

	"github.com/clipperhouse/uax29/v2/words"
)

// minKeybindingHits is the minimum number of modifier-key pattern
// occurrences required to classify a line as a keybinding hint bar.
const minKeybindingHits = 2

// IsNoise classifies a line as one-shot TUI noise using structural
// heuristics (shape, not hardcoded strings), so it generalises across
// different agent TUIs.
func IsNoise(line string) bool {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" {
		return false
	}
	return isSpinnerLine(trimmed) || isKeybindingBar(trimmed) || isMetadataPrefix(trimmed) || isStatusSummary(trimmed)
}

// isSpinnerLine: a single natural-language word ending in an ellipsis
// character or three dots, under 80 characters.
func isSpinnerLine(s string) bool {
	if len([]rune(s)) >= 80 {
		return false
	}
	endsEllipsis := strings.HasSuffix(s, "…") || strings.HasSuffix(s, "...")
	if !endsEllipsis {
		return false
	}
	stem := strings.TrimSuffix(s, "…")
	stem = strings.TrimSuffix(stem, "...")

	wordCount := 0
	var onlyWord string
	for seg := range words.FromString(stem) {
		token := strings.TrimSpace(string(seg))
		if token == "" {
			continue
		}
		wordCount++
		onlyWord = token
	}
	if wordCount == 0 {
		return true
	}
	if wordCount != 1 {
		return false
	}
	for _, c := range onlyWord {
		if !(unicode.IsLetter(c) || c == '-' || c == '\'') {
			return false
		}
	}
	return true
}

// isKeybindingBar counts total pattern occurrences (not unique patterns),
// so "Ctrl+C … Ctrl+D" scores 2 even though both match "ctrl+".
func isKeybindingBar(s string) bool {
	lower := strings.ToLower(s)
	hits := 0
	for _, pat := range []string{"ctrl+", "alt+", "shift+", "cmd+", "meta+", "super+"} {
		hits += strings.Count(lower, pat)
	}
	for _, pat := range []string{"(tab", "(esc", "(enter"} {
		hits += strings.Count(lower, pat)
	}
	for _, pat := range []string{"esc to ", "tab to ", "enter to "} {
		hits += strings.Count(lower, pat)
	}
	return hits >= minKeybindingHits
}

func isMetadataPrefix(s string) bool {
	for _, pfx := range []string{"Tip:", "Hint:", "Note:", "Update available", "Context left until"} {
		if strings.HasPrefix(s, pfx) {
			return true
		}
	}
	return false
}

// isStatusSummary covers thinking-indicator lines and tool-use summary
// counters ("Done (in Xs | N tool uses)").
func isStatusSummary(s string) bool {
	if len([]rune(s)) < 40 {
		lower := strings.ToLower(s)
		switch {
		case lower == "thinking",
			strings.HasSuffix(lower, "thinking"),
			strings.HasSuffix(lower, "thinking…"),
			strings.HasSuffix(lower, "thinking..."),
			strings.HasSuffix(lower, "(thinking)"),
			strings.HasSuffix(lower, "(thinking…)"),
			strings.HasSuffix(lower, "(thinking...)"):
			return true
		}
	}
	if strings.Contains(s, "Done") && (strings.Contains(s, "tool use") || strings.Contains(s, "tool call")) {
		return true
	}
	return false
}
