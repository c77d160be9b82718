package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/colorprofile"
	"github.com/spf13/cobra"

	"github.com/thiscantbeserious/agr/internal/cast"
	"github.com/thiscantbeserious/agr/internal/vt"
)

// dumpCmd replays a cast file's output through the virtual terminal and
// prints the final screen, downsampled to whatever color profile the
// current terminal supports. A debug aid, not part of the analysis path.
func dumpCmd() *cobra.Command {
	var cols, rows int

	cmd := &cobra.Command{
		Use:   "dump <cast-file>",
		Short: "Replay a cast file's final screen to the terminal (debug aid)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			file, err := cast.Parse(args[0])
			if err != nil {
				return fmt.Errorf("parse cast file: %w", err)
			}

			if file.Header.Term != nil {
				if file.Header.Term.Cols > 0 {
					cols = file.Header.Term.Cols
				}
				if file.Header.Term.Rows > 0 {
					rows = file.Header.Term.Rows
				}
			}
			buf := vt.New(cols, rows)

			for _, ev := range file.Events {
				switch ev.Kind {
				case cast.KindOutput:
					buf.Process(ev.Data, nil)
				case cast.KindResize:
					if hint, ok := parseResize(ev.Data); ok {
						buf.Resize(hint[0], hint[1])
					}
				}
			}

			profile := colorprofile.Detect(os.Stdout, os.Environ())
			return buf.WriteANSI(os.Stdout, profile)
		},
	}

	cmd.Flags().IntVar(&cols, "cols", 120, "Terminal columns to replay at (overridden by the cast header when present)")
	cmd.Flags().IntVar(&rows, "rows", 40, "Terminal rows to replay at (overridden by the cast header when present)")
	return cmd
}

// parseResize decodes a resize event's "<COLS>x<ROWS>" payload.
func parseResize(data string) ([2]int, bool) {
	cols, rows, ok := strings.Cut(data, "x")
	if !ok {
		return [2]int{}, false
	}
	c, err1 := strconv.Atoi(cols)
	r, err2 := strconv.Atoi(rows)
	if err1 != nil || err2 != nil {
		return [2]int{}, false
	}
	return [2]int{c, r}, true
}
