package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

type syncOptions struct {
	force bool
}

func NewSyncCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &syncOptions{}
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Drain the outbox once and exit",
		Long: `Probes the remote backend and, when it is reachable, replays pending
outbox entries in order. The pass stops at the first entry the remote rejects;
that entry stays at the head of the outbox.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			cfg, zapLogger, err := loadConfig(rootOpts)
			if err != nil {
				return err
			}
			a, err := bootstrap(ctx, cfg, zapLogger, stageSync)
			if err != nil {
				return err
			}
			defer a.close()

			if opts.force {
				a.monitor.SetOnline(true)
			} else {
				a.monitor.Refresh(ctx)
			}

			result, passErr := a.engine.Pass(ctx)
			out := newPrinter(rootOpts, cmd)
			if err := out.passResult(result); err != nil {
				return err
			}
			if passErr != nil {
				return fmt.Errorf("sync halted: %w", passErr)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&opts.force, "force", false, "skip the connectivity probe and treat the remote as reachable")
	return cmd
}
