package analyzer

import (
	"strings"
	"testing"

	"github.com/thiscantbeserious/agr/internal/chunk"
	"github.com/thiscantbeserious/agr/internal/marker"
)

func TestBuildAnalyzePromptSubstitutesTimeRange(t *testing.T) {
	c := chunk.AnalysisChunk{
		ID:              0,
		TimeRange:       chunk.TimeRange{Start: 10, End: 60},
		Text:            "some terminal output",
		EstimatedTokens: 100,
	}
	prompt := buildAnalyzePrompt(c, 120, 2)

	if !strings.Contains(prompt, "10.0s - 60.0s") {
		t.Errorf("prompt missing chunk time range: %s", prompt)
	}
	if !strings.Contains(prompt, "120.0") {
		t.Errorf("prompt missing total duration: %s", prompt)
	}
	if !strings.Contains(prompt, "some terminal output") {
		t.Errorf("prompt missing chunk content")
	}
}

func TestCalculateMarkersPerChunkSingleChunk(t *testing.T) {
	min, max := calculateMarkersPerChunk(1)
	if min != targetTotalMarkersMin || max != targetTotalMarkersMax {
		t.Errorf("calculateMarkersPerChunk(1) = (%d, %d), want (%d, %d)", min, max, targetTotalMarkersMin, targetTotalMarkersMax)
	}
}

func TestCalculateMarkersPerChunkCapsPerChunkRange(t *testing.T) {
	min, max := calculateMarkersPerChunk(20)
	if min < 1 || max < min+1 {
		t.Errorf("calculateMarkersPerChunk(20) = (%d, %d), want min>=1 and max>min", min, max)
	}
	if min > 5 || max > 8 {
		t.Errorf("calculateMarkersPerChunk(20) = (%d, %d), exceeds per-chunk cap (5, 8)", min, max)
	}
}

func TestTruncateContentIfNeededLeavesSmallContentAlone(t *testing.T) {
	content := "short content"
	got := truncateContentIfNeeded(content, 10)
	if got != content {
		t.Errorf("truncateContentIfNeeded modified content under the limit: %q", got)
	}
}

func TestTruncateContentIfNeededCutsOversizedContent(t *testing.T) {
	content := strings.Repeat("x", maxPromptContentTokens*charsPerToken+1000)
	got := truncateContentIfNeeded(content, maxPromptContentTokens+1)
	if !strings.HasSuffix(got, "[Content truncated due to size limits]") {
		t.Errorf("expected truncation suffix, got suffix: %q", got[max(0, len(got)-50):])
	}
	if len(got) >= len(content) {
		t.Errorf("truncated content (%d) should be shorter than original (%d)", len(got), len(content))
	}
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func TestExtractRenameResponsePlainText(t *testing.T) {
	name, ok := extractRenameResponse("debugging-the-parser\nextra lines ignored")
	if !ok || name != "debugging-the-parser" {
		t.Errorf("extractRenameResponse = (%q, %v), want (debugging-the-parser, true)", name, ok)
	}
}

func TestExtractRenameResponseClaudeWrapper(t *testing.T) {
	resp := `{"type":"result","result":"fixing-auth-bug"}`
	name, ok := extractRenameResponse(resp)
	if !ok || name != "fixing-auth-bug" {
		t.Errorf("extractRenameResponse(wrapper) = (%q, %v), want (fixing-auth-bug, true)", name, ok)
	}
}

func TestBuildCurationPromptIncludesMarkerJSON(t *testing.T) {
	markers := []marker.Validated{
		{Timestamp: 1.5, Label: "started planning", Category: marker.CategoryPlanning},
	}
	prompt := buildCurationPrompt(markers, 300)
	if !strings.Contains(prompt, "started planning") {
		t.Errorf("curation prompt missing marker label: %s", prompt)
	}
	if !strings.Contains(prompt, `"category": "planning"`) {
		t.Errorf("curation prompt missing marker category: %s", prompt)
	}
}
