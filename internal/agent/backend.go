package agent

import (
	"context"
	"errors"
	"os/exec"
	"time"

	"github.com/thiscantbeserious/agr/internal/budget"
	"github.com/thiscantbeserious/agr/internal/errs"
	"github.com/thiscantbeserious/agr/internal/marker"
)

// Backend wraps an Agent with the invoke/parse/budget contract the analyzer
// service drives directly, translating low-level exec failures into the
// shared errs.AnalysisError taxonomy.
type Backend struct {
	Agent Agent
}

// NewBackend wraps an existing Agent adapter.
func NewBackend(a Agent) *Backend {
	return &Backend{Agent: a}
}

// IsAvailable reports whether the underlying CLI is installed and healthy.
func (b *Backend) IsAvailable() bool {
	return b.Agent.Health() == nil
}

// TokenBudget resolves this agent's canonical token budget.
func (b *Backend) TokenBudget() (budget.TokenBudget, bool) {
	return budget.ForAgent(b.Agent.Name())
}

// Invoke runs the agent against a single prompt and blocks until it produces
// a complete response or the timeout elapses, returning the agent's raw
// text output. Errors are classified into *errs.AnalysisError so the retry
// coordinator can decide whether to retry.
func (b *Backend) Invoke(ctx context.Context, prompt string, timeout time.Duration, opts RunOpts) (string, int, int, error) {
	name := b.Agent.Name()

	if !b.IsAvailable() {
		return "", 0, 0, &errs.AnalysisError{Kind: errs.KindAgentNotAvailable, Agent: name}
	}

	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	opts.Timeout = timeout
	stream, err := b.Agent.Run(runCtx, prompt, opts)
	if err != nil {
		return "", 0, 0, classifyStartErr(name, err)
	}

	for {
		_, ok := stream.Next()
		if !ok {
			break
		}
	}

	if err := stream.Err(); err != nil {
		if runCtx.Err() == context.DeadlineExceeded {
			return "", 0, 0, &errs.AnalysisError{Kind: errs.KindAgentTimeout, Agent: name, Duration: timeout, Err: err}
		}
		return "", 0, 0, classifyRunErr(name, err)
	}

	input, output := stream.Tokens()
	return stream.Text(), input, output, nil
}

// ParseResponse extracts the markers an agent reported, classifying a
// failure to find any JSON at all as KindJSONExtraction (the model didn't
// produce anything resembling the expected shape) versus a well-formed
// JSON object the model emitted with a structure `encoding/json` itself
// rejects (KindJSONParse never fires here since ExtractMarkers only
// succeeds on valid JSON; a response with no JSON is an extraction
// failure, not a parse failure).
func (b *Backend) ParseResponse(response string) ([]marker.Raw, error) {
	markers, ok := ExtractMarkers(response)
	if !ok {
		return nil, &errs.AnalysisError{Kind: errs.KindJSONExtraction, Agent: b.Agent.Name(), Response: response}
	}
	return markers, nil
}

func classifyStartErr(agentName string, err error) error {
	if errors.Is(err, exec.ErrNotFound) {
		return &errs.AnalysisError{Kind: errs.KindAgentNotAvailable, Agent: agentName}
	}
	return classifyExitOrIo(agentName, err)
}

func classifyRunErr(agentName string, err error) error {
	return classifyExitOrIo(agentName, err)
}

func classifyExitOrIo(agentName string, err error) error {
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		stderr := string(exitErr.Stderr)
		if retryAfter, ok := parseRateLimitInfo(stderr); ok {
			return &errs.AnalysisError{Kind: errs.KindRateLimited, Agent: agentName, RetryAfter: retryAfter, Message: stderr}
		}
		return &errs.AnalysisError{
			Kind:     errs.KindExitCode,
			Agent:    agentName,
			ExitCode: exitErr.ExitCode(),
			Stderr:   stderr,
			Err:      err,
		}
	}
	return &errs.AnalysisError{Kind: errs.KindIo, Agent: agentName, Err: err}
}

// rateLimitMarkers are case-insensitive substrings that identify a CLI's
// stderr output as a rate-limit rejection rather than a generic failure.
var rateLimitMarkers = []string{"rate limit", "rate_limit", "too many requests", "429"}

// parseRateLimitInfo detects a rate-limit rejection in stderr text and
// extracts an advised retry delay when the CLI reports one (e.g. "retry
// after 30s" / "retry-after: 30"). Absence of an explicit delay still
// reports the rate limit with ok=true and a nil duration — the retry
// coordinator falls back to its own backoff schedule in that case.
func parseRateLimitInfo(stderr string) (*time.Duration, bool) {
	lower := toLowerASCII(stderr)
	isRateLimit := false
	for _, m := range rateLimitMarkers {
		if contains(lower, m) {
			isRateLimit = true
			break
		}
	}
	if !isRateLimit {
		return nil, false
	}

	if secs, ok := extractRetryAfterSeconds(lower); ok {
		d := time.Duration(secs) * time.Second
		return &d, true
	}
	return nil, true
}

func toLowerASCII(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c >= 'A' && c <= 'Z' {
			b[i] = c + ('a' - 'A')
		}
	}
	return string(b)
}

func contains(haystack, needle string) bool {
	return len(needle) == 0 || indexOf(haystack, needle) >= 0
}

func indexOf(haystack, needle string) int {
	n, m := len(haystack), len(needle)
	if m > n {
		return -1
	}
	for i := 0; i+m <= n; i++ {
		if haystack[i:i+m] == needle {
			return i
		}
	}
	return -1
}

// extractRetryAfterSeconds scans for a short run of digits following
// "retry-after" or "retry after" markers.
func extractRetryAfterSeconds(lower string) (int, bool) {
	for _, marker := range []string{"retry-after:", "retry after"} {
		idx := indexOf(lower, marker)
		if idx < 0 {
			continue
		}
		rest := lower[idx+len(marker):]
		digits := ""
		started := false
		for _, c := range rest {
			if c >= '0' && c <= '9' {
				digits += string(c)
				started = true
				continue
			}
			if started {
				break
			}
			if c == ' ' || c == ':' {
				continue
			}
			break
		}
		if digits != "" {
			n := 0
			for _, c := range digits {
				n = n*10 + int(c-'0')
			}
			return n, true
		}
	}
	return 0, false
}
