package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/thiscantbeserious/agr/internal/cast"
)

func repairCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "repair <cast-file>",
		Short: "Diagnose and repair a truncated or corrupted cast recording",
		Args:  cobra.ExactArgs(1),
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "diagnose <cast-file>",
		Short: "Report integrity issues without modifying the file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			result, err := cast.Diagnose(args[0])
			if err != nil {
				return err
			}
			if len(result.BadLines) == 0 {
				fmt.Printf("clean: %d valid event line(s)\n", result.ValidEventLines)
				return nil
			}
			for _, issue := range result.BadLines {
				fmt.Printf("line %d: %s\n", issue.LineNumber, issue.Reason)
			}
			return nil
		},
	})

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		removed, err := cast.Repair(args[0])
		if err != nil {
			return fmt.Errorf("repair: %w", err)
		}
		fmt.Printf("repaired: removed %d bad line(s)\n", removed)
		return nil
	}

	return cmd
}
