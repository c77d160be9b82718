package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/thiscantbeserious/agr/internal/logger"
)

func main() {
	if err := logger.Init("info", ""); err != nil {
		fmt.Fprintln(os.Stderr, "logger init:", err)
		os.Exit(1)
	}

	root := &cobra.Command{
		Use:   "agr",
		Short: "agr — AI-agent terminal session analyzer",
		Long:  "Extracts meaningful moments from recorded AI-agent terminal sessions, using an external LLM CLI to locate and label them in an asciicast v3 recording.",
	}

	root.AddCommand(
		analyzeCmd(),
		repairCmd(),
		markerCmd(),
		dumpCmd(),
	)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
