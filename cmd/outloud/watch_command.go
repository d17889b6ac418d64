package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"outloud/internal/progress"
)

func newWatchCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "watch <id>",
		Short: "Stream progress for an item until it finishes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseItemID(args[0])
			if err != nil {
				return err
			}
			stdout := cmd.OutOrStdout()
			return ctx.client().Follow(cmd.Context(), id, func(evt progress.Event) {
				line := fmt.Sprintf("[%s]", evt.Stage)
				if evt.Message != "" {
					line += " " + evt.Message
				}
				if evt.Percent > 0 {
					line += fmt.Sprintf(" (%.0f%%)", evt.Percent)
				}
				if evt.Error != "" {
					line += " error: " + evt.Error
				}
				fmt.Fprintln(stdout, line)
			})
		},
	}
}
