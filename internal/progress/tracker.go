// Package progress tracks per-chunk usage metrics across an analysis run
// and reports progress to an optional UI, grounded on the original
// TokenTracker/DefaultProgressReporter pair.
package progress

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dustin/go-humanize"
)

// ChunkUsage is usage information recorded for a single completed chunk.
type ChunkUsage struct {
	ChunkID         int
	EstimatedTokens int
	Duration        time.Duration
	Success         bool
	Attempts        int
}

// UsageSummary aggregates all recorded ChunkUsage entries.
type UsageSummary struct {
	ChunksProcessed      int
	SuccessfulChunks     int
	FailedChunks         int
	TotalEstimatedTokens int
	TotalDuration        time.Duration
	AvgTokensPerChunk    int
	AvgDurationPerChunk  time.Duration
	SuccessRate          float64
	TotalRetries         int
}

// Tracker accumulates ChunkUsage records and computes a UsageSummary on
// demand. Safe for concurrent use from the analyzer's worker pool: writes
// are serialised under a mutex on the receiving side of worker results.
type Tracker struct {
	mu        sync.Mutex
	usage     []ChunkUsage
	startTime time.Time
}

// NewTracker starts a tracker with its clock running.
func NewTracker(now time.Time) *Tracker {
	return &Tracker{startTime: now}
}

// RecordChunk appends a usage record for one completed chunk.
func (t *Tracker) RecordChunk(chunkID, estimatedTokens int, duration time.Duration, success bool, attempts int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.usage = append(t.usage, ChunkUsage{
		ChunkID:         chunkID,
		EstimatedTokens: estimatedTokens,
		Duration:        duration,
		Success:         success,
		Attempts:        attempts,
	})
}

func (t *Tracker) RecordSuccess(chunkID, estimatedTokens int, duration time.Duration, attempts int) {
	t.RecordChunk(chunkID, estimatedTokens, duration, true, attempts)
}

func (t *Tracker) RecordFailure(chunkID, estimatedTokens int, duration time.Duration, attempts int) {
	t.RecordChunk(chunkID, estimatedTokens, duration, false, attempts)
}

// AllChunks returns a copy of every recorded usage entry.
func (t *Tracker) AllChunks() []ChunkUsage {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]ChunkUsage, len(t.usage))
	copy(out, t.usage)
	return out
}

// Elapsed reports wall time since the tracker started.
func (t *Tracker) Elapsed(now time.Time) time.Duration {
	return now.Sub(t.startTime)
}

// Summary computes the aggregate UsageSummary as of now.
func (t *Tracker) Summary(now time.Time) UsageSummary {
	t.mu.Lock()
	defer t.mu.Unlock()

	n := len(t.usage)
	summary := UsageSummary{ChunksProcessed: n, TotalDuration: t.Elapsed(now)}
	for _, u := range t.usage {
		if u.Success {
			summary.SuccessfulChunks++
		}
		summary.TotalEstimatedTokens += u.EstimatedTokens
		if u.Attempts > 1 {
			summary.TotalRetries += u.Attempts - 1
		}
	}
	summary.FailedChunks = n - summary.SuccessfulChunks

	if n > 0 {
		summary.AvgTokensPerChunk = summary.TotalEstimatedTokens / n
		summary.AvgDurationPerChunk = summary.TotalDuration / time.Duration(n)
		summary.SuccessRate = float64(summary.SuccessfulChunks) / float64(n)
	}
	return summary
}

// ShouldRetrySmallChunksFirst reports whether any recorded failure is below
// the given token threshold — used to bias a future retry pass toward
// cheap chunks first.
func (t *Tracker) ShouldRetrySmallChunksFirst(thresholdTokens int) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, u := range t.usage {
		if !u.Success && u.EstimatedTokens < thresholdTokens {
			return true
		}
	}
	return false
}

// FormatSummary renders a human-readable block matching the original
// CLI's "Analysis Summary" report.
func FormatSummary(s UsageSummary) string {
	out := "\nAnalysis Summary:\n"
	out += fmt.Sprintf("   Chunks processed: %d\n", s.ChunksProcessed)
	out += fmt.Sprintf("   Estimated tokens: ~%s\n", humanize.Comma(int64(s.TotalEstimatedTokens)))
	out += fmt.Sprintf("   Total duration: %s\n", formatDuration(s.TotalDuration))
	out += fmt.Sprintf("   Success rate: %.0f%%\n", s.SuccessRate*100)
	if s.TotalRetries > 0 {
		out += fmt.Sprintf("   Retries: %d\n", s.TotalRetries)
	}
	return out
}

func formatDuration(d time.Duration) string {
	secs := int64(d / time.Second)
	if secs >= 60 {
		return fmt.Sprintf("%dm %ds", secs/60, secs%60)
	}
	return fmt.Sprintf("%ds", secs)
}

// FormatTokens renders a token count with K/M suffixes for compact display
// (500 -> "500", 1000 -> "1K", 1_000_000 -> "1.0M").
func FormatTokens(n int) string {
	switch {
	case n >= 1_000_000:
		return fmt.Sprintf("%.1fM", float64(n)/1_000_000)
	case n >= 1_000:
		if n%1000 == 0 {
			return fmt.Sprintf("%dK", n/1000)
		}
		return fmt.Sprintf("%.1fK", float64(n)/1000)
	default:
		return fmt.Sprintf("%d", n)
	}
}

// Reporter is implemented by both the terminal progress UI and a silent
// no-op used in tests.
type Reporter interface {
	Start(chunkCount, estimatedTokens int)
	ChunkCompleted(chunkID int, duration time.Duration)
	Finish(markersAdded int)
	FinishPartial(markersAdded, failedChunks int)
	FinishPartialWithErrors(markersAdded int, errs []error)
	Progress() (completed, total int)
}

// DefaultReporter is a lock-free-counter progress reporter that optionally
// prints to stdout.
type DefaultReporter struct {
	completed  atomic.Int64
	total      int
	showOutput bool
	started    time.Time
}

// NewReporter creates a reporter; showOutput controls whether it prints.
func NewReporter(showOutput bool) *DefaultReporter {
	return &DefaultReporter{showOutput: showOutput}
}

// Quiet creates a reporter that never prints, for tests and library use.
func Quiet() *DefaultReporter {
	return NewReporter(false)
}

func (r *DefaultReporter) Start(chunkCount, estimatedTokens int) {
	r.total = chunkCount
	r.completed.Store(0)
	r.started = time.Now()
	if r.showOutput {
		fmt.Printf("Analyzing %d chunk(s), ~%s tokens...\n", chunkCount, FormatTokens(estimatedTokens))
	}
}

func (r *DefaultReporter) ChunkCompleted(chunkID int, duration time.Duration) {
	done := r.completed.Add(1)
	if r.showOutput {
		fmt.Printf("  chunk %d done (%s) [%d/%d]\n", chunkID, duration.Round(time.Millisecond), done, r.total)
	}
}

func (r *DefaultReporter) Finish(markersAdded int) {
	if r.showOutput {
		fmt.Printf("Done. %d marker(s) added.\n", markersAdded)
	}
}

func (r *DefaultReporter) FinishPartial(markersAdded, failedChunks int) {
	if r.showOutput {
		fmt.Printf("Done (partial). %d marker(s) added, %d chunk(s) failed.\n", markersAdded, failedChunks)
	}
}

func (r *DefaultReporter) FinishPartialWithErrors(markersAdded int, errors []error) {
	if r.showOutput {
		fmt.Printf("Done (partial). %d marker(s) added, %d error(s):\n", markersAdded, len(errors))
		for _, e := range errors {
			fmt.Printf("  - %v\n", e)
		}
	}
}

func (r *DefaultReporter) Progress() (completed, total int) {
	return int(r.completed.Load()), r.total
}

// CompletedCounter returns a shareable pointer to the completed counter so
// multiple goroutines can read live progress without touching the reporter.
func (r *DefaultReporter) CompletedCounter() *atomic.Int64 {
	return &r.completed
}
