package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"outloud/internal/api"
)

func newListCommand(ctx *commandContext) *cobra.Command {
	var stageFilter string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List library items",
		RunE: func(cmd *cobra.Command, args []string) error {
			var stages []string
			if trimmed := strings.TrimSpace(stageFilter); trimmed != "" {
				stages = strings.Split(trimmed, ",")
			}
			items, err := ctx.client().List(cmd.Context(), stages...)
			if err != nil {
				return err
			}
			stdout := cmd.OutOrStdout()
			if len(items) == 0 {
				fmt.Fprintln(stdout, "Library is empty")
				return nil
			}

			rows := make([][]string, 0, len(items))
			for _, item := range items {
				rows = append(rows, []string{
					strconv.FormatInt(item.ID, 10),
					truncate(item.Title, 48),
					itemStageCell(item),
					item.Status,
					item.Voice,
					yesNo(item.HasAudio),
				})
			}
			table := renderTable(
				[]string{"ID", "Title", "Stage", "Status", "Voice", "Audio"},
				rows,
				[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignLeft, alignLeft},
			)
			fmt.Fprintln(stdout, table)
			return nil
		},
	}

	cmd.Flags().StringVar(&stageFilter, "stage", "", "Only show items in these stages (comma separated)")
	return cmd
}

func itemStageCell(item api.Item) string {
	if item.ProgressMessage != "" && item.ProgressPercent > 0 {
		return fmt.Sprintf("%s (%.0f%%)", item.Stage, item.ProgressPercent)
	}
	return item.Stage
}

func truncate(value string, limit int) string {
	runes := []rune(value)
	if len(runes) <= limit {
		return value
	}
	if limit <= 1 {
		return string(runes[:limit])
	}
	return string(runes[:limit-1]) + "…"
}
