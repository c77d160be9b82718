package agent

import (
	"context"
	"testing"
)

func TestParseStreamEventAssistant(t *testing.T) {
	line := `{"type":"assistant","message":{"role":"assistant","content":[{"type":"text","text":"Hello"}]}}`
	text, ok := parseStreamEvent(line)
	if !ok {
		t.Fatal("expected ok")
	}
	if text != "Hello" {
		t.Errorf("text = %q, want %q", text, "Hello")
	}
}

func TestParseStreamEventDelta(t *testing.T) {
	line := `{"type":"content_block_delta","delta":{"type":"text_delta","text":" world"}}`
	text, ok := parseStreamEvent(line)
	if !ok {
		t.Fatal("expected ok")
	}
	if text != " world" {
		t.Errorf("text = %q, want %q", text, " world")
	}
}

func TestParseStreamEventStop(t *testing.T) {
	cases := []string{
		`{"type":"content_block_stop"}`,
		`{"type":"message_stop"}`,
	}
	for _, line := range cases {
		_, ok := parseStreamEvent(line)
		if ok {
			t.Errorf("expected no text for %s", line)
		}
	}
}

func TestParseStreamEventGarbage(t *testing.T) {
	_, ok := parseStreamEvent("not json at all")
	if ok {
		t.Error("expected no text for garbage input")
	}
}

func TestParseStreamEventEmptyText(t *testing.T) {
	line := `{"type":"content_block_delta","delta":{"type":"text_delta","text":""}}`
	_, ok := parseStreamEvent(line)
	if ok {
		t.Error("expected no text for empty delta")
	}
}

func TestParseStreamEventNonTextDelta(t *testing.T) {
	line := `{"type":"content_block_delta","delta":{"type":"input_json_delta","partial_json":"{\"foo\""}}`
	_, ok := parseStreamEvent(line)
	if ok {
		t.Error("expected no text for non-text delta")
	}
}

func TestParseStreamEventAssistantMultipleBlocks(t *testing.T) {
	line := `{"type":"assistant","message":{"role":"assistant","content":[{"type":"tool_use","text":""},{"type":"text","text":"Found it"}]}}`
	text, ok := parseStreamEvent(line)
	if !ok {
		t.Fatal("expected ok")
	}
	if text != "Found it" {
		t.Errorf("text = %q, want %q", text, "Found it")
	}
}

func TestStreamCollectsText(t *testing.T) {
	ctx := context.Background()
	s := newStream(ctx)

	go func() {
		s.send(Chunk{Text: "Hello"})
		s.send(Chunk{Text: " "})
		s.send(Chunk{Text: "world"})
		s.close(nil)
	}()

	for {
		_, ok := s.Next()
		if !ok {
			break
		}
	}

	if got := s.Text(); got != "Hello world" {
		t.Errorf("text = %q, want %q", got, "Hello world")
	}
	if err := s.Err(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestStreamContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	s := newStream(ctx)

	cancel()

	// send should not block when context is cancelled
	s.send(Chunk{Text: "dropped"})
	s.close(ctx.Err())

	if err := s.Err(); err != context.Canceled {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

func TestNewClaudeDefaults(t *testing.T) {
	c := NewClaude(0)
	if c.ContextWindow() != 200000 {
		t.Errorf("context window = %d, want 200000", c.ContextWindow())
	}
}

func TestNewClaudeCustomWindow(t *testing.T) {
	c := NewClaude(128000)
	if c.ContextWindow() != 128000 {
		t.Errorf("context window = %d, want 128000", c.ContextWindow())
	}
}

func indexOf(args []string, s string) int {
	for i, a := range args {
		if a == s {
			return i
		}
	}
	return -1
}

// TestBuildClaudeArgsOrdersExtraArgsBeforeSafetyFlags pins the ordering
// invariant: a user-supplied extra arg must never land after (or shadow)
// the hardcoded safety-critical flags.
func TestBuildClaudeArgsOrdersExtraArgsBeforeSafetyFlags(t *testing.T) {
	args := buildClaudeArgs("do the thing", RunOpts{ExtraAgentArgs: []string{"--model", "opus"}})

	extraIdx := indexOf(args, "--model")
	safetyIdx := indexOf(args, "--permission-mode")
	if extraIdx < 0 || safetyIdx < 0 {
		t.Fatalf("expected both flags present in %v", args)
	}
	if extraIdx > safetyIdx {
		t.Errorf("extra arg at %d, safety flag at %d; want extra before safety", extraIdx, safetyIdx)
	}
	if got := args[safetyIdx+1]; got != "bypassPermissions" {
		t.Errorf("--permission-mode value = %q, want %q (not overridden by extra args)", got, "bypassPermissions")
	}
}

func TestBuildClaudeArgsUseSchemaAppendsEnforcementPrompt(t *testing.T) {
	without := buildClaudeArgs("do the thing", RunOpts{})
	if indexOf(without, schemaEnforcementPrompt) >= 0 {
		t.Error("schema enforcement prompt present without UseSchema")
	}

	with := buildClaudeArgs("do the thing", RunOpts{UseSchema: true})
	if indexOf(with, schemaEnforcementPrompt) < 0 {
		t.Error("expected schema enforcement prompt with UseSchema=true")
	}
}

func TestBuildCodexArgsOrdersExtraArgsBeforeSafetyFlags(t *testing.T) {
	args := buildCodexArgs("do the thing", RunOpts{ExtraAgentArgs: []string{"--sandbox", "danger-full-access"}})

	firstSandbox := indexOf(args, "--sandbox")
	safetyIdx := indexOf(args, "--ask-for-approval")
	if firstSandbox < 0 || safetyIdx < 0 {
		t.Fatalf("expected both flags present in %v", args)
	}
	if firstSandbox > safetyIdx {
		t.Errorf("extra arg at %d, safety flag at %d; want extra before safety", firstSandbox, safetyIdx)
	}
	// The safety-critical --sandbox read-only is appended after the extra
	// args, so the last --sandbox occurrence must carry "read-only".
	lastSandbox := -1
	for i, a := range args {
		if a == "--sandbox" {
			lastSandbox = i
		}
	}
	if got := args[lastSandbox+1]; got != "read-only" {
		t.Errorf("final --sandbox value = %q, want %q", got, "read-only")
	}
}

func TestBuildCodexArgsUseSchemaAppendsOutputSchemaFlag(t *testing.T) {
	without := buildCodexArgs("do the thing", RunOpts{})
	if indexOf(without, "--output-schema") >= 0 {
		t.Error("--output-schema present without UseSchema")
	}

	with := buildCodexArgs("do the thing", RunOpts{UseSchema: true})
	idx := indexOf(with, "--output-schema")
	if idx < 0 || with[idx+1] != "markers" {
		t.Errorf("expected --output-schema markers with UseSchema=true, got %v", with)
	}
}

func TestParseStreamFullSequence(t *testing.T) {
	lines := []string{
		`{"type":"assistant","message":{"role":"assistant","content":[{"type":"text","text":"Hello"}]}}`,
		`{"type":"content_block_delta","delta":{"type":"text_delta","text":" world"}}`,
		`{"type":"content_block_delta","delta":{"type":"text_delta","text":"!"}}`,
		`{"type":"content_block_stop"}`,
		`{"type":"message_stop"}`,
	}

	var collected string
	for _, line := range lines {
		if text, ok := parseStreamEvent(line); ok {
			collected += text
		}
	}

	if collected != "Hello world!" {
		t.Errorf("collected = %q, want %q", collected, "Hello world!")
	}
}
