// Package analyzer orchestrates the full analysis pipeline: extraction,
// chunking, parallel agent dispatch with retry, marker merge/dedup, and the
// optional curate/rename secondary passes.
package analyzer

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/thiscantbeserious/agr/internal/agent"
	"github.com/thiscantbeserious/agr/internal/budget"
	"github.com/thiscantbeserious/agr/internal/cast"
	"github.com/thiscantbeserious/agr/internal/chunk"
	"github.com/thiscantbeserious/agr/internal/errs"
	"github.com/thiscantbeserious/agr/internal/extract"
	"github.com/thiscantbeserious/agr/internal/history"
	"github.com/thiscantbeserious/agr/internal/marker"
	"github.com/thiscantbeserious/agr/internal/progress"
	"github.com/thiscantbeserious/agr/internal/retry"
)

// curationThreshold is the marker count above which a secondary curation
// pass runs automatically. Fixed regardless of token budget — curation
// cost scales with marker count, not recording size (resolves the open
// question in favor of a flat threshold).
const curationThreshold = 12

// chunkState is the lifecycle of a single chunk's analysis.
type chunkState int

const (
	statePending chunkState = iota
	stateRunning
	stateSleeping
	stateSuccess
	stateFailed
)

// AnalyzeOptions configures one Analyze() run.
type AnalyzeOptions struct {
	Agent               agent.Agent
	Workers             int
	Timeout             time.Duration
	Sequential          bool
	Debug               bool
	ShowOutput          bool
	ExtractOptions      extract.Options
	ChunkConfig         chunk.Config
	RetryPolicy         retry.Policy
	CurationThreshold   int
	InvokeRatePerSecond float64
	History             *history.Store

	// SchemaEnforcement asks the backend to enforce the markers JSON
	// schema on its response, where the underlying CLI supports it.
	SchemaEnforcement bool
	// ExtraAgentArgs are spliced into every backend invocation ahead of
	// its safety-critical flags; see agent.RunOpts.ExtraAgentArgs.
	ExtraAgentArgs []string
	// OutputOverride, when set, is the path markers are written to
	// instead of mutating the analyzed cast file in place.
	OutputOverride string
}

// runOpts builds the agent.RunOpts shared by every invocation this service
// makes, carrying the schema-enforcement and extra-args configuration.
func (s *AnalyzerService) runOpts() agent.RunOpts {
	return agent.RunOpts{UseSchema: s.opts.SchemaEnforcement, ExtraAgentArgs: s.opts.ExtraAgentArgs}
}

// DefaultAnalyzeOptions returns sane defaults for a given backend.
func DefaultAnalyzeOptions(a agent.Agent) AnalyzeOptions {
	return AnalyzeOptions{
		Agent:               a,
		Workers:             4,
		Timeout:             120 * time.Second,
		ExtractOptions:      extract.DefaultOptions(),
		ChunkConfig:         chunk.DefaultConfig(),
		RetryPolicy:         retry.DefaultPolicy(),
		CurationThreshold:   curationThreshold,
		InvokeRatePerSecond: 2,
	}
}

// chunkResult is one worker's outcome for a single chunk, keyed by chunk id
// so the final merge is independent of completion order.
type chunkResult struct {
	chunkID int
	state   chunkState
	markers []marker.Validated
	usage   progress.ChunkUsage
	err     error
}

// AnalyzerResult is the outcome of a full Analyze() run.
type AnalyzerResult struct {
	Markers      []marker.Validated
	TotalDuration float64
	Usage        progress.UsageSummary
	IsPartial    bool
	FailedChunks int
	Errors       []error
}

// AnalyzerService drives extraction, chunking, dispatch, and merge for one
// or more cast files against a fixed set of options.
type AnalyzerService struct {
	opts     AnalyzeOptions
	backend  *agent.Backend
	reporter progress.Reporter
	pacer    *invokePacer
}

// NewAnalyzerService constructs a service, defaulting the progress reporter
// to silent when ShowOutput is false.
func NewAnalyzerService(opts AnalyzeOptions) *AnalyzerService {
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	if opts.CurationThreshold == 0 {
		opts.CurationThreshold = curationThreshold
	}
	return &AnalyzerService{
		opts:     opts,
		backend:  agent.NewBackend(opts.Agent),
		reporter: progress.NewReporter(opts.ShowOutput),
		pacer:    newInvokePacer(opts.InvokeRatePerSecond, opts.Workers),
	}
}

// IsAgentAvailable checks whether the configured backend's CLI is
// installed and healthy.
func (s *AnalyzerService) IsAgentAvailable() bool {
	return s.backend.IsAvailable()
}

// Analyze runs the full pipeline against a cast file and returns its
// markers resolved to absolute recording time.
func (s *AnalyzerService) Analyze(ctx context.Context, castPath string) (*AnalyzerResult, error) {
	file, err := cast.Parse(castPath)
	if err != nil {
		return nil, &errs.AnalysisError{Kind: errs.KindIo, Agent: s.opts.Agent.Name(), Err: fmt.Errorf("parse cast file: %w", err)}
	}

	content := extract.Extract(file.Events, s.opts.ExtractOptions)
	slog.Debug("extract done", "segments", len(content.Segments), "total_tokens", content.TotalTokens)
	if len(content.Segments) == 0 {
		return nil, &errs.AnalysisError{Kind: errs.KindNoContent, Agent: s.opts.Agent.Name()}
	}

	calc := chunk.NewCalculator(resolveBudget(s.opts.Agent), s.opts.ChunkConfig)
	chunks := calc.CalculateChunks(content)
	slog.Debug("chunks computed", "count", len(chunks))

	var runID string
	if s.opts.History != nil {
		runID, err = s.opts.History.StartRun(ctx, castPath, s.opts.Agent.Name(), time.Now(), len(chunks))
		if err != nil {
			slog.Warn("failed to record analysis run start", "err", err)
		}
	}

	tracker := progress.NewTracker(time.Now())
	s.reporter.Start(len(chunks), content.TotalTokens)

	var results []chunkResult
	if s.opts.Sequential || s.opts.Workers == 1 {
		results = s.runSequential(ctx, chunks, len(chunks), content.TotalDuration)
	} else {
		results = s.runParallel(ctx, chunks, len(chunks), content.TotalDuration)
	}
	slog.Debug("dispatch complete", "results", len(results))

	var allMarkers []marker.Validated
	var errors []error
	failedChunks := 0

	sort.Slice(results, func(i, j int) bool { return results[i].chunkID < results[j].chunkID })
	for _, r := range results {
		tracker.RecordChunk(r.chunkID, chunks[r.chunkID].EstimatedTokens, r.usage.Duration, r.state == stateSuccess, r.usage.Attempts)
		s.reporter.ChunkCompleted(r.chunkID, r.usage.Duration)
		if r.state != stateSuccess {
			failedChunks++
			errors = append(errors, r.err)
			continue
		}
		allMarkers = append(allMarkers, r.markers...)
	}

	if len(results) > 0 && failedChunks == len(results) {
		if runID != "" {
			if histErr := s.opts.History.FinishRun(ctx, runID, time.Now(), 0, 0, true); histErr != nil {
				slog.Warn("failed to record analysis run finish", "err", histErr)
			}
		}
		return nil, errs.NewAllChunksFailed(errors)
	}

	deduped := marker.Dedup(allMarkers)
	marker.SortByTimestamp(deduped)
	slog.Debug("merge done", "markers", len(deduped), "failed_chunks", failedChunks)

	if len(deduped) > s.opts.CurationThreshold {
		curated, curateErr := s.CurateMarkers(ctx, deduped, content.TotalDuration, s.opts.Timeout)
		if curateErr != nil {
			slog.Warn("curation pass failed, keeping uncurated markers", "err", curateErr, "marker_count", len(deduped))
		} else {
			slog.Debug("curation done", "before", len(deduped), "after", len(curated))
			deduped = curated
		}
	}

	summary := tracker.Summary(time.Now())
	isPartial := failedChunks > 0
	if isPartial {
		s.reporter.FinishPartialWithErrors(len(deduped), errors)
	} else {
		s.reporter.Finish(len(deduped))
	}

	if runID != "" {
		if histErr := s.opts.History.FinishRun(ctx, runID, time.Now(), summary.SuccessRate, len(deduped), isPartial); histErr != nil {
			slog.Warn("failed to record analysis run finish", "err", histErr)
		}
	}

	return &AnalyzerResult{
		Markers:       deduped,
		TotalDuration: content.TotalDuration,
		Usage:         summary,
		IsPartial:     isPartial,
		FailedChunks:  failedChunks,
		Errors:        errors,
	}, nil
}

func (s *AnalyzerService) runSequential(ctx context.Context, chunks []chunk.AnalysisChunk, total int, totalDuration float64) []chunkResult {
	results := make([]chunkResult, 0, len(chunks))
	for _, c := range chunks {
		results = append(results, s.runChunk(ctx, c, total, totalDuration))
	}
	return results
}

// runParallel dispatches chunks to a worker pool of size
// min(configured, len(chunks)); each worker pulls chunks from a shared
// channel, so results are keyed by chunk id and merge order never depends
// on completion order.
func (s *AnalyzerService) runParallel(ctx context.Context, chunks []chunk.AnalysisChunk, total int, totalDuration float64) []chunkResult {
	workers := s.opts.Workers
	if workers > len(chunks) {
		workers = len(chunks)
	}
	if workers < 1 {
		workers = 1
	}

	jobs := make(chan chunk.AnalysisChunk)
	out := make(chan chunkResult, len(chunks))

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for c := range jobs {
				out <- s.runChunk(ctx, c, total, totalDuration)
			}
		}()
	}

	go func() {
		for _, c := range chunks {
			jobs <- c
		}
		close(jobs)
	}()

	go func() {
		wg.Wait()
		close(out)
	}()

	results := make([]chunkResult, 0, len(chunks))
	for r := range out {
		results = append(results, r)
	}
	return results
}

// runChunk drives one chunk's prompt-build -> invoke -> parse -> resolve
// loop through the retry coordinator.
func (s *AnalyzerService) runChunk(ctx context.Context, c chunk.AnalysisChunk, totalChunks int, totalDuration float64) chunkResult {
	prompt := buildAnalyzePrompt(c, totalDuration, totalChunks)
	start := time.Now()

	raw, attempts, err := retry.Do(s.opts.RetryPolicy, time.Sleep, func(attempt int) ([]marker.Raw, error) {
		if waitErr := s.pacer.wait(ctx); waitErr != nil {
			return nil, waitErr
		}
		response, _, _, invokeErr := s.backend.Invoke(ctx, prompt, s.opts.Timeout, s.runOpts())
		if invokeErr != nil {
			return nil, invokeErr
		}
		return s.backend.ParseResponse(response)
	})

	duration := time.Since(start)
	usage := progress.ChunkUsage{ChunkID: c.ID, EstimatedTokens: c.EstimatedTokens, Duration: duration, Attempts: attempts}

	if err != nil {
		if s.opts.Debug {
			slog.Debug("chunk failed", "chunk_id", c.ID, "attempts", attempts, "err", err)
		}
		usage.Success = false
		return chunkResult{chunkID: c.ID, state: stateFailed, usage: usage, err: fmt.Errorf("chunk %d: %w", c.ID, err)}
	}

	usage.Success = true
	validated := make([]marker.Validated, 0, len(raw))
	for _, m := range raw {
		validated = append(validated, marker.Validated{
			Timestamp:  c.ResolveMarkerTimestamp(m.Timestamp),
			Label:      m.Label,
			Category:   m.Category,
			OtherLabel: m.OtherLabel,
		})
	}
	return chunkResult{chunkID: c.ID, state: stateSuccess, markers: validated, usage: usage}
}

// CurateMarkers issues a secondary prompt asking the agent to select the
// most significant subset of an already-merged marker list. Analyze calls
// this automatically once len(markers) exceeds CurationThreshold; exported
// so callers can also trigger it manually (e.g. re-curating after a manual
// marker edit).
func (s *AnalyzerService) CurateMarkers(ctx context.Context, markers []marker.Validated, totalDuration float64, timeout time.Duration) ([]marker.Validated, error) {
	prompt := buildCurationPrompt(markers, totalDuration)
	response, _, _, err := s.backend.Invoke(ctx, prompt, timeout, s.runOpts())
	if err != nil {
		return markers, err
	}
	raw, parseErr := s.backend.ParseResponse(response)
	if parseErr != nil {
		return markers, parseErr
	}
	out := make([]marker.Validated, 0, len(raw))
	for _, m := range raw {
		out = append(out, marker.Validated{Timestamp: m.Timestamp, Label: m.Label, Category: m.Category, OtherLabel: m.OtherLabel})
	}
	marker.SortByTimestamp(out)
	return out, nil
}

// SuggestRename asks the agent for a descriptive replacement filename based
// on the session's markers.
func (s *AnalyzerService) SuggestRename(ctx context.Context, markers []marker.Validated, totalDuration float64, timeout time.Duration, currentPath string) (string, error) {
	prompt := buildRenamePrompt(markers, totalDuration, filepath.Base(currentPath))
	response, _, _, err := s.backend.Invoke(ctx, prompt, timeout, s.runOpts())
	if err != nil {
		return "", err
	}
	name, ok := extractRenameResponse(response)
	if !ok {
		return "", &errs.AnalysisError{Kind: errs.KindJSONExtraction, Agent: s.opts.Agent.Name(), Response: response}
	}
	return name, nil
}

// resolveBudget prefers the canonical per-agent budget table; an agent
// outside that table (e.g. a local Ollama model or Cursor) still gets a
// usable budget derived from its own advertised context window instead of
// failing the run.
func resolveBudget(a agent.Agent) budget.TokenBudget {
	if b, ok := budget.ForAgent(a.Name()); ok {
		return b
	}
	return budget.FromContextWindow(a.ContextWindow())
}
