package extract

import (
	"strings"
	"testing"

	"github.com/thiscantbeserious/agr/internal/cast"
)

func TestExtractCollapsesRepeatedSpinnerFrames(t *testing.T) {
	events := []cast.Event{
		cast.Output(0.1, "spinner |\r"),
		cast.Output(0.1, "spinner /\r"),
		cast.Output(0.1, "spinner -\r"),
		cast.Output(0.1, "done.\n"),
	}
	content := Extract(events, DefaultOptions())
	if len(content.Segments) == 0 {
		t.Fatal("expected at least one segment")
	}
	joined := content.Text()
	if !strings.Contains(joined, "done") {
		t.Errorf("expected final output in extracted content, got: %q", joined)
	}
}

func TestExtractOpensNewSegmentOnTimeGap(t *testing.T) {
	events := []cast.Event{
		cast.Output(0.1, "first burst\n"),
		cast.Output(5.0, "second burst after a gap\n"),
	}
	content := Extract(events, DefaultOptions())
	if len(content.Segments) != 2 {
		t.Fatalf("got %d segments, want 2 (events separated by >= 2s gap)", len(content.Segments))
	}
}

func TestExtractEmptyEventsProducesNoSegments(t *testing.T) {
	content := Extract(nil, DefaultOptions())
	if len(content.Segments) != 0 {
		t.Errorf("got %d segments for empty input, want 0", len(content.Segments))
	}
}

func TestExtractDropsResizeEvents(t *testing.T) {
	events := []cast.Event{
		{Time: 0.1, Kind: cast.KindResize, Data: "80x24"},
		cast.Output(0.1, "hello\n"),
	}
	content := Extract(events, DefaultOptions())
	if strings.Contains(content.Text(), "80x24") {
		t.Error("resize event payload leaked into extracted content")
	}
}

func TestStatsCompressionRatio(t *testing.T) {
	s := Stats{OriginalBytes: 1000, ExtractedBytes: 250}
	if got := s.CompressionRatio(); got != 0.25 {
		t.Errorf("CompressionRatio() = %v, want 0.25", got)
	}
	if got := s.ReductionPercentage(); got != 0.75 {
		t.Errorf("ReductionPercentage() = %v, want 0.75", got)
	}
}

func TestContentSegmentAtTime(t *testing.T) {
	c := &Content{Segments: []Segment{
		{StartTime: 0, EndTime: 10, Content: "a"},
		{StartTime: 10, EndTime: 20, Content: "b"},
	}}
	seg := c.SegmentAtTime(15)
	if seg == nil || seg.Content != "b" {
		t.Errorf("SegmentAtTime(15) = %+v, want segment b", seg)
	}
	if c.SegmentAtTime(100) != nil {
		t.Error("expected nil for a time outside any segment")
	}
}
