// Package chunk splits extracted content into overlapping, budget-respecting
// chunks with preserved absolute time ranges, ported from the original
// ChunkCalculator.
package chunk

import (
	"github.com/thiscantbeserious/agr/internal/budget"
	"github.com/thiscantbeserious/agr/internal/extract"
)

// TimeRange is an absolute [start, end) span of the recording.
type TimeRange struct {
	Start, End float64
}

func (r TimeRange) Duration() float64 { return r.End - r.Start }

func (r TimeRange) Contains(ts float64) bool { return ts >= r.Start && ts < r.End }

// AnalysisChunk is a budget-sized slice of content ready for one LLM call.
type AnalysisChunk struct {
	ID              int
	TimeRange       TimeRange
	Segments        []extract.Segment
	Text            string
	EstimatedTokens int
}

// New builds a chunk from its segments, joining their content with
// newlines and summing their token estimates.
func New(id int, tr TimeRange, segments []extract.Segment) AnalysisChunk {
	text := ""
	total := 0
	for i, s := range segments {
		if i > 0 {
			text += "\n"
		}
		text += s.Content
		total += s.EstimatedTokens
	}
	return AnalysisChunk{ID: id, TimeRange: tr, Segments: segments, Text: text, EstimatedTokens: total}
}

// ResolveMarkerTimestamp maps an LLM-reported timestamp (relative to chunk
// start) back to absolute recording time.
func (c AnalysisChunk) ResolveMarkerTimestamp(relative float64) float64 {
	return c.TimeRange.Start + relative
}

// FindTimestampByText returns the start time of the first segment whose
// content contains needle, used as a fallback when the LLM reports a
// plausibly-wrong relative time.
func (c AnalysisChunk) FindTimestampByText(needle string) (float64, bool) {
	for _, s := range c.Segments {
		if contains(s.Content, needle) {
			return s.StartTime, true
		}
	}
	return 0, false
}

func contains(haystack, needle string) bool {
	return needle != "" && indexOf(haystack, needle) >= 0
}

func indexOf(haystack, needle string) int {
	n, m := len(haystack), len(needle)
	if m == 0 || m > n {
		return -1
	}
	for i := 0; i+m <= n; i++ {
		if haystack[i:i+m] == needle {
			return i
		}
	}
	return -1
}

// Config tunes overlap behaviour between consecutive chunks.
type Config struct {
	OverlapPct       float64
	MinOverlapTokens int
}

// DefaultConfig matches the original implementation: 10% overlap, minimum
// 500 tokens.
func DefaultConfig() Config {
	return Config{OverlapPct: 0.10, MinOverlapTokens: 500}
}

// Calculator divides AnalysisContent into chunks respecting a token budget.
type Calculator struct {
	Budget budget.TokenBudget
	Config Config
}

// NewCalculator constructs a calculator for an explicit budget/config pair.
func NewCalculator(b budget.TokenBudget, cfg Config) Calculator {
	return Calculator{Budget: b, Config: cfg}
}

// ForAgent builds a calculator using an agent's canonical budget and the
// default overlap configuration.
func ForAgent(agent string) (Calculator, bool) {
	b, ok := budget.ForAgent(agent)
	if !ok {
		return Calculator{}, false
	}
	return Calculator{Budget: b, Config: DefaultConfig()}, true
}

// CalculateChunks respects event boundaries — it never splits mid-segment
// except where a single oversized segment must itself be split.
func (c Calculator) CalculateChunks(content *extract.Content) []AnalysisChunk {
	available := c.Budget.AvailableForContent()

	if content.TotalTokens <= available {
		return []AnalysisChunk{c.singleChunk(content)}
	}
	return c.overlappingChunks(content, available)
}

func (c Calculator) singleChunk(content *extract.Content) AnalysisChunk {
	start := 0.0
	if len(content.Segments) > 0 {
		start = content.Segments[0].StartTime
	}
	tr := TimeRange{Start: start, End: content.TotalDuration}
	return New(0, tr, content.Segments)
}

func (c Calculator) overlappingChunks(content *extract.Content, available int) []AnalysisChunk {
	overlap := c.calculateOverlap(available)
	step := available - overlap
	if step < 1 {
		step = 1
	}

	var chunks []AnalysisChunk
	tokenOffset := 0
	chunkID := 0

	for tokenOffset < content.TotalTokens {
		targetEnd := tokenOffset + available
		if targetEnd > content.TotalTokens {
			targetEnd = content.TotalTokens
		}

		segments, tr := c.findSegmentsForRange(content, tokenOffset, targetEnd)
		if len(segments) > 0 {
			chunks = append(chunks, New(chunkID, tr, segments))
			chunkID++
		}

		tokenOffset += step
		if targetEnd >= content.TotalTokens {
			break
		}
	}
	return chunks
}

func (c Calculator) calculateOverlap(available int) int {
	pct := int(float64(available) * c.Config.OverlapPct)
	if pct < c.Config.MinOverlapTokens {
		return c.Config.MinOverlapTokens
	}
	return pct
}

// findSegmentsForRange walks segments accumulating a running token counter
// and includes the portion of each segment overlapping [startTokens,
// endTokens), splitting oversized segments by token-proportional character
// and time interpolation.
func (c Calculator) findSegmentsForRange(content *extract.Content, startTokens, endTokens int) ([]extract.Segment, TimeRange) {
	var segments []extract.Segment
	accumulated := 0
	haveStart := false
	var startTime, endTime float64

	for _, seg := range content.Segments {
		segStart := accumulated
		segEnd := accumulated + seg.EstimatedTokens

		if segEnd > startTokens && segStart < endTokens {
			includeStart := startTokens - segStart
			if includeStart < 0 {
				includeStart = 0
			}
			includeEnd := endTokens - segStart
			if includeEnd > seg.EstimatedTokens {
				includeEnd = seg.EstimatedTokens
			}

			if includeEnd > includeStart {
				segTokens := seg.EstimatedTokens
				if segTokens < 1 {
					segTokens = 1
				}
				duration := seg.EndTime - seg.StartTime
				timePerToken := duration / float64(segTokens)

				partialStart := seg.StartTime + float64(includeStart)*timePerToken
				partialEnd := seg.StartTime + float64(includeEnd)*timePerToken

				if !haveStart {
					startTime = partialStart
					haveStart = true
				}
				endTime = partialEnd

				includedTokens := includeEnd - includeStart
				content := partialContent(seg.Content, includeStart, includeEnd, segTokens, includedTokens)

				segments = append(segments, extract.Segment{
					StartTime:       partialStart,
					EndTime:         partialEnd,
					Content:         content,
					EstimatedTokens: includedTokens,
					EventRange:      seg.EventRange,
				})
			}
		}

		accumulated = segEnd
		if accumulated >= endTokens {
			break
		}
	}

	return segments, TimeRange{Start: startTime, End: endTime}
}

// partialContent extracts the character span corresponding to a token
// range via proportional mapping: char_pos ≈ token_pos * (total_chars /
// total_tokens).
func partialContent(content string, includeStart, includeEnd, segTokens, includedTokens int) string {
	if includeStart == 0 && includeEnd == segTokens {
		return content
	}
	runes := []rune(content)
	total := len(runes)
	if total == 0 {
		return ""
	}
	ratio := float64(total) / float64(segTokens)
	charStart := int(float64(includeStart) * ratio)
	if charStart > total {
		charStart = total
	}
	charEnd := int(float64(includeEnd) * ratio)
	if charEnd > total {
		charEnd = total
	}
	if charEnd <= charStart && includedTokens > 0 {
		charStart, charEnd = 0, total
	}
	if charEnd < charStart {
		charEnd = charStart
	}
	return string(runes[charStart:charEnd])
}

// CalculateChunkCount returns the expected number of chunks for a given
// total token count, using ceiling division over the overlap-adjusted step.
func (c Calculator) CalculateChunkCount(totalTokens int) int {
	available := c.Budget.AvailableForContent()
	if totalTokens <= available {
		return 1
	}
	overlap := c.calculateOverlap(available)
	step := available - overlap
	if step < 1 {
		step = 1
	}
	numerator := totalTokens - overlap
	if numerator < 0 {
		numerator = 0
	}
	return (numerator + step - 1) / step
}
