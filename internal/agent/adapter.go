package agent

import (
	"context"
	"os/exec"
	"time"
)

type Agent interface {
	Name() string
	Run(ctx context.Context, prompt string, opts RunOpts) (*Stream, error)
	Health() error
	ContextWindow() int
}

// CmdFactory creates an exec.Cmd that may run inside a sandbox.
// When nil, agents fall back to exec.CommandContext.
type CmdFactory func(ctx context.Context, name string, args []string) (*exec.Cmd, error)

type RunOpts struct {
	AllowedTools         []string
	SystemPrompt         string
	ReplaceSystemPrompt  bool
	Timeout              time.Duration
	CmdFactory           CmdFactory

	// UseSchema asks the backend to enforce the markers JSON schema on its
	// response, where the underlying CLI supports it.
	UseSchema bool
	// ExtraAgentArgs are user-supplied arguments spliced into the command
	// line ahead of every safety-critical flag (sandbox mode, prompt
	// source, approval mode), so they can never shadow one.
	ExtraAgentArgs []string
}

// schemaEnforcementPrompt is appended as a system-prompt addendum when
// UseSchema is set, for backends with no dedicated schema flag.
const schemaEnforcementPrompt = `Respond with a single JSON object of the exact shape {"markers":[{"timestamp":<number>,"label":<string>,"category":<string>}]} — no prose, no markdown fences, no other keys.`

type Chunk struct {
	Text string
}
