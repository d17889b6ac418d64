package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"outloud/internal/api"
)

func newItemCommands(ctx *commandContext) []*cobra.Command {
	retryCmd := &cobra.Command{
		Use:   "retry <id>",
		Short: "Requeue a failed item",
		Args:  cobra.ExactArgs(1),
		RunE: itemAction(ctx, func(c *api.Client, cmd *cobra.Command, id int64) error {
			item, err := c.Retry(cmd.Context(), id)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Item #%d requeued\n", item.ID)
			return nil
		}),
	}

	cleanCmd := &cobra.Command{
		Use:   "clean <id>",
		Short: "Rerun narration cleanup and synthesis for a finished item",
		Args:  cobra.ExactArgs(1),
		RunE: itemAction(ctx, func(c *api.Client, cmd *cobra.Command, id int64) error {
			item, err := c.Reclean(cmd.Context(), id)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Item #%d sent back through cleanup\n", item.ID)
			return nil
		}),
	}

	var regenVoice string
	regenerateCmd := &cobra.Command{
		Use:   "regenerate <id>",
		Short: "Re-synthesize audio, optionally with a different voice",
		Args:  cobra.ExactArgs(1),
		RunE: itemAction(ctx, func(c *api.Client, cmd *cobra.Command, id int64) error {
			item, err := c.Regenerate(cmd.Context(), id, regenVoice)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Item #%d regenerating with voice %s\n", item.ID, item.Voice)
			return nil
		}),
	}
	regenerateCmd.Flags().StringVar(&regenVoice, "voice", "", "Voice to narrate with")

	completeCmd := &cobra.Command{
		Use:   "complete <id>",
		Short: "Mark an item as listened",
		Args:  cobra.ExactArgs(1),
		RunE: itemAction(ctx, func(c *api.Client, cmd *cobra.Command, id int64) error {
			if _, err := c.Complete(cmd.Context(), id); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Item #%d marked as listened\n", id)
			return nil
		}),
	}

	uncompleteCmd := &cobra.Command{
		Use:   "uncomplete <id>",
		Short: "Clear an item's listened flag",
		Args:  cobra.ExactArgs(1),
		RunE: itemAction(ctx, func(c *api.Client, cmd *cobra.Command, id int64) error {
			if _, err := c.Uncomplete(cmd.Context(), id); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Item #%d back in the queue\n", id)
			return nil
		}),
	}

	cancelCmd := &cobra.Command{
		Use:   "cancel <id>",
		Short: "Cancel an item's in-flight run",
		Args:  cobra.ExactArgs(1),
		RunE: itemAction(ctx, func(c *api.Client, cmd *cobra.Command, id int64) error {
			if err := c.Cancel(cmd.Context(), id); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Cancellation requested for item #%d\n", id)
			return nil
		}),
	}

	deleteCmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete an item and its audio",
		Args:  cobra.ExactArgs(1),
		RunE: itemAction(ctx, func(c *api.Client, cmd *cobra.Command, id int64) error {
			if err := c.Delete(cmd.Context(), id); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Item #%d deleted\n", id)
			return nil
		}),
	}

	return []*cobra.Command{retryCmd, cleanCmd, regenerateCmd, completeCmd, uncompleteCmd, cancelCmd, deleteCmd}
}

func itemAction(ctx *commandContext, fn func(*api.Client, *cobra.Command, int64) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		id, err := parseItemID(args[0])
		if err != nil {
			return err
		}
		return fn(ctx.client(), cmd, id)
	}
}
