package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/thiscantbeserious/agr/internal/agent"
	"github.com/thiscantbeserious/agr/internal/analyzer"
	"github.com/thiscantbeserious/agr/internal/cast"
	"github.com/thiscantbeserious/agr/internal/config"
	"github.com/thiscantbeserious/agr/internal/history"
	"github.com/thiscantbeserious/agr/internal/progress"
)

func analyzeCmd() *cobra.Command {
	var agentFlag string
	var workers int
	var timeoutSeconds int
	var sequential bool
	var showOutput bool
	var offerRename bool
	var schemaEnforcement bool
	var extraAgentArgs []string
	var outputOverride string

	cmd := &cobra.Command{
		Use:   "analyze <cast-file>",
		Short: "Analyze a recorded session and write markers back into it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			castPath := args[0]

			a, err := resolveAgent(agentFlag)
			if err != nil {
				return err
			}

			dir, err := config.UserConfigDir()
			if err != nil {
				return fmt.Errorf("resolve config dir: %w", err)
			}
			if err := os.MkdirAll(dir, 0755); err != nil {
				return fmt.Errorf("create config dir: %w", err)
			}
			runCfg, err := config.LoadRunConfig(dir)
			if err != nil {
				return fmt.Errorf("load run config: %w", err)
			}

			store, err := history.Open(dir + "/history.db")
			if err != nil {
				return fmt.Errorf("open analysis history: %w", err)
			}
			defer store.Close()

			opts := analyzer.DefaultAnalyzeOptions(a)
			opts.ShowOutput = showOutput
			opts.Sequential = sequential
			opts.History = store
			if workers > 0 {
				opts.Workers = workers
			} else if runCfg.Workers > 0 {
				opts.Workers = runCfg.Workers
			}
			if timeoutSeconds > 0 {
				opts.Timeout = time.Duration(timeoutSeconds) * time.Second
			} else if runCfg.TimeoutSeconds > 0 {
				opts.Timeout = time.Duration(runCfg.TimeoutSeconds) * time.Second
			}
			if runCfg.RetryMaxAttempts > 0 {
				opts.RetryPolicy.MaxAttempts = runCfg.RetryMaxAttempts
			}
			if runCfg.CurationThreshold > 0 {
				opts.CurationThreshold = runCfg.CurationThreshold
			}
			opts.ExtractOptions.NormalizeWhitespace = runCfg.NormalizeWhitespace
			opts.SchemaEnforcement = schemaEnforcement
			opts.ExtraAgentArgs = extraAgentArgs
			opts.OutputOverride = outputOverride

			svc := analyzer.NewAnalyzerService(opts)
			if !svc.IsAgentAvailable() {
				return fmt.Errorf("agent %q is not available (CLI not found or unhealthy)", a.Name())
			}

			result, err := svc.Analyze(cmd.Context(), castPath)
			if err != nil {
				return fmt.Errorf("analyze: %w", err)
			}

			targetPath := castPath
			if opts.OutputOverride != "" {
				targetPath = opts.OutputOverride
				if err := copyCastFile(castPath, targetPath); err != nil {
					return fmt.Errorf("write output override: %w", err)
				}
			}
			for _, m := range result.Markers {
				if err := cast.Insert(targetPath, m.Timestamp, m.Label); err != nil {
					return fmt.Errorf("insert marker at %.2fs: %w", m.Timestamp, err)
				}
			}

			fmt.Print(progress.FormatSummary(result.Usage))
			if result.IsPartial {
				fmt.Printf("warning: %d chunk(s) failed; markers are partial\n", result.FailedChunks)
			}

			if offerRename && len(result.Markers) > 0 {
				if err := maybeRenameCast(cmd.Context(), svc, result, targetPath); err != nil {
					fmt.Fprintf(os.Stderr, "rename suggestion failed: %v\n", err)
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&agentFlag, "agent", "claude", "Agent CLI backend: claude, codex, gemini, ollama, cursor")
	cmd.Flags().IntVar(&workers, "workers", 0, "Parallel worker count (0 = config default)")
	cmd.Flags().IntVar(&timeoutSeconds, "timeout", 0, "Per-chunk timeout in seconds (0 = config default)")
	cmd.Flags().BoolVar(&sequential, "sequential", false, "Dispatch chunks one at a time instead of in parallel")
	cmd.Flags().BoolVar(&showOutput, "verbose", false, "Print per-chunk progress")
	cmd.Flags().BoolVar(&offerRename, "rename", false, "Suggest a descriptive filename from the markers and confirm before renaming")
	cmd.Flags().BoolVar(&schemaEnforcement, "schema-enforcement", false, "Ask the backend to enforce the markers JSON schema on its response")
	cmd.Flags().StringArrayVar(&extraAgentArgs, "extra-agent-arg", nil, "Extra argument to pass to the agent CLI (repeatable); always appended before the agent's safety-critical flags")
	cmd.Flags().StringVar(&outputOverride, "output", "", "Write markers to this path instead of the input cast file")
	return cmd
}

// copyCastFile duplicates src to dst so marker insertion can target dst
// without mutating the original recording.
func copyCastFile(src, dst string) error {
	data, err := os.ReadFile(src)
	if err != nil {
		return fmt.Errorf("read source: %w", err)
	}
	if err := os.WriteFile(dst, data, 0644); err != nil {
		return fmt.Errorf("write destination: %w", err)
	}
	return nil
}

// maybeRenameCast asks the backend for a descriptive filename and, only on
// an interactive terminal with the user's explicit confirmation, renames
// the cast file in place.
func maybeRenameCast(ctx context.Context, svc *analyzer.AnalyzerService, result *analyzer.AnalyzerResult, castPath string) error {
	suggestion, err := svc.SuggestRename(ctx, result.Markers, result.TotalDuration, 30*time.Second, castPath)
	if err != nil {
		return err
	}
	newPath := filepath.Join(filepath.Dir(castPath), suggestion+filepath.Ext(castPath))
	if !confirmYesNo(os.Stdin, os.Stdout, fmt.Sprintf("Rename %s to %s?", filepath.Base(castPath), filepath.Base(newPath))) {
		return nil
	}
	if err := os.Rename(castPath, newPath); err != nil {
		return fmt.Errorf("rename cast file: %w", err)
	}
	fmt.Printf("renamed to %s\n", newPath)
	return nil
}

func resolveAgent(name string) (agent.Agent, error) {
	switch name {
	case "claude":
		return agent.NewClaude(200_000), nil
	case "codex":
		return agent.NewCodex(128_000), nil
	case "gemini":
		return agent.NewGemini("gemini-2.5-pro", 1_000_000), nil
	case "ollama":
		return agent.NewOllama("llama3.1", 128_000), nil
	case "cursor":
		return agent.NewCursor(128_000), nil
	default:
		return nil, fmt.Errorf("unknown agent %q", name)
	}
}
