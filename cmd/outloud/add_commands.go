package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"outloud/internal/config"
)

var uploadExtensions = map[string]struct{}{
	".txt":      {},
	".pdf":      {},
	".md":       {},
	".markdown": {},
	".html":     {},
	".htm":      {},
}

func newAddCommand(ctx *commandContext) *cobra.Command {
	var voice string
	var clean bool

	addCmd := &cobra.Command{
		Use:   "add",
		Short: "Add content to the narration library",
	}
	addCmd.PersistentFlags().StringVar(&voice, "voice", "", "Voice to narrate with")
	addCmd.PersistentFlags().BoolVar(&clean, "clean", false, "Rewrite the text for narration before synthesis")

	urlCmd := &cobra.Command{
		Use:   "url <url>",
		Short: "Add a web article by URL",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pageURL := strings.TrimSpace(args[0])
			if !strings.HasPrefix(pageURL, "http://") && !strings.HasPrefix(pageURL, "https://") {
				return fmt.Errorf("unsupported URL %q: only http and https are accepted", pageURL)
			}
			item, err := ctx.client().AddURL(cmd.Context(), pageURL, voice, clean)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Queued item #%d (%s)\n", item.ID, item.Title)
			return nil
		},
	}

	var title string
	textCmd := &cobra.Command{
		Use:   "text [file]",
		Short: "Add pasted text, from a file argument or stdin",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var body []byte
			var err error
			if len(args) == 1 {
				body, err = os.ReadFile(args[0])
			} else {
				body, err = io.ReadAll(cmd.InOrStdin())
			}
			if err != nil {
				return fmt.Errorf("read text: %w", err)
			}
			if strings.TrimSpace(string(body)) == "" {
				return errors.New("no text provided")
			}
			item, err := ctx.client().AddText(cmd.Context(), title, string(body), voice, clean)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Queued item #%d (%s)\n", item.ID, item.Title)
			return nil
		},
	}
	textCmd.Flags().StringVar(&title, "title", "", "Title for the item")

	fileCmd := &cobra.Command{
		Use:   "file <path>",
		Short: "Upload a document for narration",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := config.ExpandPath(args[0])
			if err != nil {
				return fmt.Errorf("resolve path: %w", err)
			}
			info, err := os.Stat(path)
			if err != nil {
				if errors.Is(err, os.ErrNotExist) {
					return fmt.Errorf("file does not exist: %s", path)
				}
				return fmt.Errorf("inspect file: %w", err)
			}
			if info.IsDir() {
				return fmt.Errorf("%s is a directory", path)
			}
			ext := strings.ToLower(filepath.Ext(info.Name()))
			if _, ok := uploadExtensions[ext]; !ok {
				return fmt.Errorf("unsupported file extension %q", ext)
			}

			item, err := ctx.client().Upload(cmd.Context(), path, voice, clean)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Queued item #%d (%s)\n", item.ID, filepath.Base(path))
			return nil
		},
	}

	addCmd.AddCommand(urlCmd, textCmd, fileCmd)
	return addCmd
}
