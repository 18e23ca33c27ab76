package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fastygo/agroflow/domain"
)

func NewOutboxCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "outbox",
		Short: "Inspect or edit pending outbox entries",
	}
	cmd.AddCommand(newOutboxListCommand(rootOpts))
	cmd.AddCommand(newOutboxDropCommand(rootOpts))
	return cmd
}

func newOutboxListCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List pending entries in drain order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withLocal(cmd, rootOpts, func(ctx context.Context, a *app) error {
				entries, err := a.local.PeekAll(ctx)
				if err != nil {
					return err
				}
				return newPrinter(rootOpts, cmd).entries(entries)
			})
		},
	}
}

// The drain halts at an entry the remote keeps rejecting; dropping it is the
// manual way past it.
func newOutboxDropCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "drop <entry-id>",
		Short: "Remove one entry without sending it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withLocal(cmd, rootOpts, func(ctx context.Context, a *app) error {
				return dropEntry(ctx, a, args[0], cmd)
			})
		},
	}
}

func dropEntry(ctx context.Context, a *app, id string, cmd *cobra.Command) error {
	entries, err := a.local.PeekAll(ctx)
	if err != nil {
		return err
	}
	for _, e := range entries {
		if e.ID != id {
			continue
		}
		if err := a.local.RemoveFromOutbox(ctx, id); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "dropped %s (%s %s %s)\n", e.ID, e.Action, e.Entity, e.RecordID())
		return nil
	}
	return fmt.Errorf("%s: %w", id, domain.ErrEntryNotFound)
}

func withLocal(cmd *cobra.Command, rootOpts *RootOptions, fn func(context.Context, *app) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	cfg, zapLogger, err := loadConfig(rootOpts)
	if err != nil {
		return err
	}
	a, err := bootstrap(ctx, cfg, zapLogger, stageLocal)
	if err != nil {
		return err
	}
	defer a.close()
	return fn(ctx, a)
}
