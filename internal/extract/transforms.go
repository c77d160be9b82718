package extract

import (
	"crypto/sha256"
	"strings"

	"github.com/thiscantbeserious/agr/internal/cast"
	"github.com/thiscantbeserious/agr/internal/vt"
)

// Options tunes the optional stages of the pipeline.
type Options struct {
	// NormalizeWhitespace enables the optional whitespace-collapse stage.
	// Off by default — whether it should run in production is
	// config-dependent (spec.md's open question), so it defaults to off
	// and is toggled per-run.
	NormalizeWhitespace bool
	Cols, Rows          int
}

// DefaultOptions matches a typical 120x40 agent terminal session.
func DefaultOptions() Options {
	return Options{Cols: 120, Rows: 40}
}

// segmentGapSeconds is the minimum time gap that opens a new segment.
const segmentGapSeconds = 2.0

// Extract runs the full ordered transform pipeline over a cast file's
// events and produces the cleaned AnalysisContent used for chunking.
func Extract(events []cast.Event, opts Options) *Content {
	stats := Stats{EventsProcessed: len(events)}
	for _, e := range events {
		stats.OriginalBytes += len(e.Data)
	}

	raw := preFilter(events)
	rendered := preRender(raw, opts, &stats)
	denoised := classifyNoise(rendered)
	deduped := dedupProgressLines(denoised, &stats)
	if opts.NormalizeWhitespace {
		deduped = normalizeWhitespace(deduped)
	}

	stats.EventsRetained = len(deduped)
	segments := segment(deduped)

	var totalTokens int
	var totalDuration float64
	for _, s := range segments {
		totalTokens += s.EstimatedTokens
		stats.ExtractedBytes += len(s.Content)
		if s.EndTime > totalDuration {
			totalDuration = s.EndTime
		}
	}

	return &Content{
		Segments:      segments,
		TotalDuration: totalDuration,
		TotalTokens:   totalTokens,
		Stats:         stats,
	}
}

// preFilter drops non-output events that carry no semantic content for
// analysis purposes (a bare resize with no accompanying output). The
// original cast is never mutated — this operates on a copy.
func preFilter(events []cast.Event) []rawEvent {
	out := make([]rawEvent, 0, len(events))
	var cumulative float64
	for i, e := range events {
		cumulative += e.Time
		if e.Kind == cast.KindResize {
			continue
		}
		if e.Kind == cast.KindOutput && e.Data == "" {
			continue
		}
		ev := e
		ev.Time = cumulative
		out = append(out, rawEvent{Event: ev, index: i})
	}
	return out
}

// preRender feeds events through a virtual terminal and hashes the visible
// screen after each event; duplicate hashes collapse so spinner frames (the
// same visible screen across many raw events) produce at most one visible
// change. Each surviving frame becomes a synthetic output event carrying
// the newly added content at the originating event's absolute time.
func preRender(events []rawEvent, opts Options, stats *Stats) []rawEvent {
	cols, rows := opts.Cols, opts.Rows
	if cols <= 0 {
		cols = 120
	}
	if rows <= 0 {
		rows = 40
	}
	buf := vt.New(cols, rows)

	var out []rawEvent
	var lastHash [32]byte
	var lastText string
	first := true

	for _, e := range events {
		if e.Kind != cast.KindOutput && e.Kind != cast.KindInput {
			out = append(out, e)
			continue
		}
		if e.Kind == cast.KindInput {
			// Input events are echoed back by the agent CLI and thus
			// visible in output; they don't drive the buffer directly.
			out = append(out, e)
			continue
		}
		stats.AnsiSequencesStripped += strings.Count(e.Data, "\x1b")
		buf.Process(e.Data, nil)
		text := buf.String()
		hash := sha256.Sum256([]byte(text))
		if !first && hash == lastHash {
			continue
		}
		first = false
		added := newlyAdded(lastText, text)
		lastHash = hash
		lastText = text
		if strings.TrimSpace(added) == "" {
			continue
		}
		synthetic := e.Event
		synthetic.Data = added
		out = append(out, rawEvent{Event: synthetic, index: e.index})
	}
	return out
}

// newlyAdded returns the suffix of `next` that extends beyond `prev`, or
// the whole of `next` if it isn't a simple extension (e.g. the screen
// scrolled or was cleared).
func newlyAdded(prev, next string) string {
	if prev == "" {
		return next
	}
	if strings.HasPrefix(next, prev) {
		return strings.TrimPrefix(next, prev)
	}
	return next
}

func classifyNoise(events []rawEvent) []rawEvent {
	out := make([]rawEvent, 0, len(events))
	for _, e := range events {
		if e.Kind == cast.KindOutput && IsNoise(e.Data) {
			continue
		}
		out = append(out, e)
	}
	return out
}

// dedupProgressLines collapses successive lines sharing a common prefix
// (the part before the first run of digits/percent/bar chars) into the
// last one, recording the number of collapses.
func dedupProgressLines(events []rawEvent, stats *Stats) []rawEvent {
	out := make([]rawEvent, 0, len(events))
	var lastPrefix string
	var havePrefix bool

	for _, e := range events {
		if e.Kind != cast.KindOutput {
			out = append(out, e)
			havePrefix = false
			continue
		}
		prefix := progressPrefix(e.Data)
		if prefix != "" && havePrefix && prefix == lastPrefix && len(out) > 0 {
			out[len(out)-1] = e
			stats.ProgressLinesDeduplicated++
			lastPrefix = prefix
			continue
		}
		out = append(out, e)
		if prefix != "" {
			lastPrefix = prefix
			havePrefix = true
		} else {
			havePrefix = false
		}
	}
	return out
}

// progressPrefix returns the portion of a line before the first digit,
// '%', or progress-bar glyph, or "" if the line has no such marker.
func progressPrefix(s string) string {
	for i, r := range s {
		if (r >= '0' && r <= '9') || r == '%' || r == '█' || r == '▓' || r == '▒' || r == '░' || r == '=' {
			return strings.TrimSpace(s[:i])
		}
	}
	return ""
}

// normalizeWhitespace collapses runs of >= 3 blank lines to 2 and strips
// trailing per-line whitespace. It operates within each event's data
// independently (events are joined across newlines downstream).
func normalizeWhitespace(events []rawEvent) []rawEvent {
	out := make([]rawEvent, len(events))
	for i, e := range events {
		if e.Kind != cast.KindOutput {
			out[i] = e
			continue
		}
		lines := strings.Split(e.Data, "\n")
		var collapsed []string
		blanks := 0
		for _, l := range lines {
			trimmed := strings.TrimRight(l, " \t")
			if trimmed == "" {
				blanks++
				if blanks <= 2 {
					collapsed = append(collapsed, trimmed)
				}
				continue
			}
			blanks = 0
			collapsed = append(collapsed, trimmed)
		}
		e.Data = strings.Join(collapsed, "\n")
		out[i] = e
	}
	return out
}

// segment groups consecutive retained events into segments by time gap: a
// gap >= segmentGapSeconds opens a new segment.
func segment(events []rawEvent) []Segment {
	var segments []Segment
	estimator := DefaultTokenEstimator()

	var cur []rawEvent
	flush := func() {
		if len(cur) == 0 {
			return
		}
		var sb strings.Builder
		for i, e := range cur {
			if i > 0 {
				sb.WriteByte('\n')
			}
			sb.WriteString(e.Data)
		}
		content := sb.String()
		tokens := estimateSegmentTokens(estimator, content)
		segments = append(segments, Segment{
			StartTime:       cur[0].Time,
			EndTime:         cur[len(cur)-1].Time,
			Content:         content,
			EstimatedTokens: tokens,
			EventRange:      [2]int{cur[0].index, cur[len(cur)-1].index},
		})
		cur = nil
	}

	var lastTime float64
	for i, e := range events {
		if i > 0 && e.Time-lastTime >= segmentGapSeconds {
			flush()
		}
		cur = append(cur, e)
		lastTime = e.Time
	}
	flush()
	return segments
}

func estimateSegmentTokens(e TokenEstimator, content string) int {
	n := graphemeCount(content)
	if n == 0 {
		return 0
	}
	ws := 0
	for _, c := range content {
		if isSpaceRune(c) {
			ws++
		}
	}
	if float64(ws)/float64(n) >= 0.15 {
		return e.EstimateCode(content)
	}
	return e.Estimate(content)
}
