package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/thiscantbeserious/agr/internal/cast"
)

func markerCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "marker",
		Short: "Insert, clear, or count markers in a cast recording",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "insert <cast-file> <seconds> <label>",
		Short: "Insert a marker at an absolute timestamp",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			absTime, err := strconv.ParseFloat(args[1], 64)
			if err != nil {
				return fmt.Errorf("invalid timestamp %q: %w", args[1], err)
			}
			return cast.Insert(args[0], absTime, args[2])
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "clear <cast-file>",
		Short: "Remove every marker from a cast recording",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			removed, err := cast.Clear(args[0])
			if err != nil {
				return err
			}
			fmt.Printf("removed %d marker(s)\n", removed)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "count <cast-file>",
		Short: "Count markers currently in a cast recording",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := cast.Count(args[0])
			if err != nil {
				return err
			}
			fmt.Println(n)
			return nil
		},
	})

	return cmd
}
