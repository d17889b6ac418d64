package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func newVoicesCommand(ctx *commandContext) *cobra.Command {
	voicesCmd := &cobra.Command{
		Use:   "voices",
		Short: "List available narration voices",
		RunE: func(cmd *cobra.Command, args []string) error {
			voices, err := ctx.client().Voices(cmd.Context())
			if err != nil {
				return err
			}
			rows := make([][]string, 0, len(voices))
			for _, voice := range voices {
				rows = append(rows, []string{voice.ID, voice.Name, voice.Lang, voice.Gender})
			}
			table := renderTable(
				[]string{"Voice", "Name", "Language", "Gender"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft},
			)
			fmt.Fprintln(cmd.OutOrStdout(), table)
			return nil
		},
	}

	var outPath string
	previewCmd := &cobra.Command{
		Use:   "preview <voice>",
		Short: "Save a short sample of a voice to an mp3 file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			voice := args[0]
			audio, err := ctx.client().Preview(cmd.Context(), voice)
			if err != nil {
				return err
			}
			target := outPath
			if target == "" {
				target = fmt.Sprintf("%s_preview.mp3", voice)
			}
			if err := os.WriteFile(target, audio, 0o644); err != nil {
				return fmt.Errorf("write preview: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", target)
			return nil
		},
	}
	previewCmd.Flags().StringVarP(&outPath, "output", "o", "", "Destination file for the sample")

	voicesCmd.AddCommand(previewCmd)
	return voicesCmd
}
