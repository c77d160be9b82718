package analyzer

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/thiscantbeserious/agr/internal/chunk"
	"github.com/thiscantbeserious/agr/internal/marker"
)

// maxPromptContentTokens caps the content of one analyze prompt. It sits
// above the Claude (72,000) and Codex (154,700) available_for_content()
// ceilings, but below Gemini's (841,500), so Gemini chunks estimated above
// 170,000 tokens are truncated here.
const maxPromptContentTokens = 170_000

// charsPerToken is used only for the truncation cutoff above, independent
// of the extract package's own token estimator.
const charsPerToken = 4

// Target total marker count for an entire session, distributed across
// however many chunks the recording required.
const (
	targetTotalMarkersMin = 10
	targetTotalMarkersMax = 20
)

const analyzeTemplate = `You are reviewing a terminal session recording of an AI coding agent at work.

Time range: {chunk_start_time}s - {chunk_end_time}s (recording total: {total_duration}s)

Identify {min_markers}-{max_markers} significant moments in this excerpt — points where the agent
began planning, made a design decision, started implementing something, succeeded, or failed.
For each, report a timestamp (in seconds, relative to the start of this excerpt), a short label,
and a category (one of: planning, design, implementation, success, failure).

Respond with JSON only, in this exact shape:
{"markers": [{"timestamp": 12.5, "label": "...", "category": "..."}]}

--- transcript excerpt ---
{cleaned_content}
--- end excerpt ---
`

const renameTemplate = `This terminal recording is {total_duration}s ({duration_minutes} minutes) long and
has been analyzed into {marker_count} marker(s):

{markers_json}

The file is currently named "{current_filename}". Suggest a short, descriptive, filesystem-safe
replacement name (no extension, no spaces) that captures what the session was about. Respond with
only the filename on the first line.
`

const curateTemplate = `The following {marker_count} marker(s) were extracted from a {total_duration}s
({duration_minutes} minute) terminal recording:

{markers_json}

Some of these may be redundant or low-value. Select the most significant subset that best tells
the story of the session. Respond with JSON only, in this exact shape:
{"markers": [{"timestamp": 12.5, "label": "...", "category": "..."}]}
`

// buildAnalyzePrompt renders the analyze template for one chunk, truncating
// its content if an oversized chunk somehow slipped past the calculator.
func buildAnalyzePrompt(c chunk.AnalysisChunk, totalDuration float64, totalChunks int) string {
	minMarkers, maxMarkers := calculateMarkersPerChunk(totalChunks)
	content := truncateContentIfNeeded(c.Text, c.EstimatedTokens)

	r := strings.NewReplacer(
		"{chunk_start_time}", fmt.Sprintf("%.1f", c.TimeRange.Start),
		"{chunk_end_time}", fmt.Sprintf("%.1f", c.TimeRange.End),
		"{total_duration}", fmt.Sprintf("%.1f", totalDuration),
		"{min_markers}", fmt.Sprintf("%d", minMarkers),
		"{max_markers}", fmt.Sprintf("%d", maxMarkers),
		"{cleaned_content}", content,
	)
	return r.Replace(analyzeTemplate)
}

// calculateMarkersPerChunk distributes the session-wide marker target
// across chunks, capping the per-chunk range at (5, 8) to avoid flooding a
// single excerpt with requests. A single chunk gets the whole session
// target (10, 20), uncapped.
func calculateMarkersPerChunk(totalChunks int) (min, max int) {
	if totalChunks <= 1 {
		return targetTotalMarkersMin, targetTotalMarkersMax
	}
	minPerChunk := targetTotalMarkersMin / totalChunks
	if minPerChunk < 1 {
		minPerChunk = 1
	}
	maxPerChunk := targetTotalMarkersMax / totalChunks
	if maxPerChunk < minPerChunk+1 {
		maxPerChunk = minPerChunk + 1
	}
	if minPerChunk > 5 {
		minPerChunk = 5
	}
	if maxPerChunk > 8 {
		maxPerChunk = 8
	}
	return minPerChunk, maxPerChunk
}

func truncateContentIfNeeded(content string, estimatedTokens int) string {
	if estimatedTokens <= maxPromptContentTokens {
		return content
	}
	slog.Warn("truncating oversized chunk content before prompting",
		"estimated_tokens", estimatedTokens, "limit", maxPromptContentTokens)

	maxChars := maxPromptContentTokens * charsPerToken
	runes := []rune(content)
	if len(runes) > maxChars {
		runes = runes[:maxChars]
	}
	return string(runes) + "\n\n[Content truncated due to size limits]"
}

func markersJSON(markers []marker.Validated) string {
	type markerJSON struct {
		Timestamp float64 `json:"timestamp"`
		Label     string  `json:"label"`
		Category  string  `json:"category"`
	}
	out := make([]markerJSON, 0, len(markers))
	for _, m := range markers {
		cat := string(m.Category)
		if m.Category == marker.CategoryOther && m.OtherLabel != "" {
			cat = m.OtherLabel
		}
		out = append(out, markerJSON{Timestamp: m.Timestamp, Label: m.Label, Category: cat})
	}
	b, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return "[]"
	}
	return string(b)
}

func buildRenamePrompt(markers []marker.Validated, totalDuration float64, currentFilename string) string {
	r := strings.NewReplacer(
		"{total_duration}", fmt.Sprintf("%.1f", totalDuration),
		"{duration_minutes}", fmt.Sprintf("%.1f", totalDuration/60.0),
		"{marker_count}", fmt.Sprintf("%d", len(markers)),
		"{current_filename}", currentFilename,
		"{markers_json}", markersJSON(markers),
	)
	return r.Replace(renameTemplate)
}

func buildCurationPrompt(markers []marker.Validated, totalDuration float64) string {
	r := strings.NewReplacer(
		"{total_duration}", fmt.Sprintf("%.1f", totalDuration),
		"{duration_minutes}", fmt.Sprintf("%.1f", totalDuration/60.0),
		"{marker_count}", fmt.Sprintf("%d", len(markers)),
		"{markers_json}", markersJSON(markers),
	)
	return r.Replace(curateTemplate)
}

// extractRenameResponse pulls a filename out of an LLM rename response,
// handling both the Claude CLI wrapper and plain text.
func extractRenameResponse(response string) (string, bool) {
	trimmed := strings.TrimSpace(response)

	var wrapper struct {
		Type   string `json:"type"`
		Result string `json:"result"`
	}
	if err := json.Unmarshal([]byte(trimmed), &wrapper); err == nil && wrapper.Type == "result" {
		name := strings.TrimSpace(wrapper.Result)
		if name != "" {
			return name, true
		}
	}

	lines := strings.SplitN(trimmed, "\n", 2)
	first := strings.TrimSpace(lines[0])
	if first != "" {
		return first, true
	}
	return "", false
}
