// Package extract composes the ordered transform pipeline that turns a raw
// cast event stream into cleaned, time-tagged segments ready for chunking.
package extract

import "github.com/thiscantbeserious/agr/internal/cast"

// Segment is a maximal run of consecutive retained events, separated from
// its neighbours by a time gap.
type Segment struct {
	StartTime       float64
	EndTime         float64
	Content         string
	EstimatedTokens int
	EventRange      [2]int
}

// Content is the complete analysis content extracted from a cast file.
type Content struct {
	Segments     []Segment
	TotalDuration float64
	TotalTokens   int
	Stats         Stats
}

// Stats records extraction statistics for transparency.
type Stats struct {
	OriginalBytes              int
	ExtractedBytes             int
	AnsiSequencesStripped      int
	ControlCharsStripped       int
	ProgressLinesDeduplicated  int
	EventsProcessed            int
	EventsRetained             int
}

// CompressionRatio is extracted/original byte size.
func (s Stats) CompressionRatio() float64 {
	if s.OriginalBytes == 0 {
		return 0
	}
	return float64(s.ExtractedBytes) / float64(s.OriginalBytes)
}

// ReductionPercentage is 1 - CompressionRatio.
func (s Stats) ReductionPercentage() float64 {
	return 1 - s.CompressionRatio()
}

// SegmentAtTime returns the segment containing a given timestamp, if any.
func (c *Content) SegmentAtTime(t float64) *Segment {
	for i := range c.Segments {
		s := &c.Segments[i]
		if s.StartTime <= t && t < s.EndTime {
			return s
		}
	}
	return nil
}

// SegmentsInRange returns segments overlapping [start, end).
func (c *Content) SegmentsInRange(start, end float64) []*Segment {
	var out []*Segment
	for i := range c.Segments {
		s := &c.Segments[i]
		if s.EndTime > start && s.StartTime < end {
			out = append(out, s)
		}
	}
	return out
}

// Text joins every segment's content with newlines.
func (c *Content) Text() string {
	parts := make([]string, len(c.Segments))
	for i, s := range c.Segments {
		parts[i] = s.Content
	}
	out := ""
	for i, p := range parts {
		if i > 0 {
			out += "\n"
		}
		out += p
	}
	return out
}

// rawEvent pairs a cast.Event with its originating index, the shape the
// pipeline's transforms operate over.
type rawEvent struct {
	cast.Event
	index int
}
