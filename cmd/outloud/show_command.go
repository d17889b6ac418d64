package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"outloud/internal/api"
)

func newShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show details for one item",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseItemID(args[0])
			if err != nil {
				return err
			}
			item, err := ctx.client().Get(cmd.Context(), id)
			if err != nil {
				return err
			}
			printItem(cmd, item)
			return nil
		},
	}
}

func parseItemID(arg string) (int64, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid item id %q", arg)
	}
	return id, nil
}

func printItem(cmd *cobra.Command, item *api.Item) {
	stdout := cmd.OutOrStdout()
	fmt.Fprintf(stdout, "Item #%d\n", item.ID)
	fmt.Fprintf(stdout, "  Title:    %s\n", item.Title)
	fmt.Fprintf(stdout, "  Source:   %s", item.SourceType)
	if item.SourcePath != "" {
		fmt.Fprintf(stdout, " (%s)", item.SourcePath)
	}
	fmt.Fprintln(stdout)
	fmt.Fprintf(stdout, "  Stage:    %s\n", item.Stage)
	fmt.Fprintf(stdout, "  Status:   %s\n", item.Status)
	fmt.Fprintf(stdout, "  Voice:    %s\n", item.Voice)
	fmt.Fprintf(stdout, "  Cleaned:  %s\n", yesNo(item.WasCleaned))
	fmt.Fprintf(stdout, "  Audio:    %s\n", yesNo(item.HasAudio))
	if item.ProgressMessage != "" {
		fmt.Fprintf(stdout, "  Progress: %s (%.0f%%)\n", item.ProgressMessage, item.ProgressPercent)
	}
	if item.ErrorMessage != "" {
		fmt.Fprintf(stdout, "  Error:    %s\n", item.ErrorMessage)
	}
	fmt.Fprintf(stdout, "  Added:    %s\n", item.CreatedAt.Local().Format(time.RFC1123))
	if item.CompletedAt != nil {
		fmt.Fprintf(stdout, "  Listened: %s\n", item.CompletedAt.Local().Format(time.RFC1123))
	}
}
