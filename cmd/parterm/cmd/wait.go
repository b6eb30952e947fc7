package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/PiranhaCodes/parterm/internal/pipe"
)

var waitCmd = &cobra.Command{
	Use:   "wait [--name NAME] [--timeout DURATION]",
	Short: "Block until a session is listening",
	Example: `  parterm wait --name work --timeout 10s && parterm client --name work -- make`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		name, _ := cmd.Flags().GetString("name")
		timeout, _ := cmd.Flags().GetDuration("timeout")

		ctx := cmd.Context()
		if timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, timeout)
			defer cancel()
		}

		if err := pipe.WaitForServer(ctx, cfg.PipeDir(), name); err != nil {
			return fmt.Errorf("waiting for session %q: %w", name, err)
		}
		return nil
	},
}

func init() {
	addNameFlag(waitCmd)
	waitCmd.Flags().Duration("timeout", 0, "give up after this long (0 waits forever)")
}
