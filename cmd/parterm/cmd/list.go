package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/PiranhaCodes/parterm/internal/pipe"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List sessions with a live pipe",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		names, err := pipe.List(cfg.PipeDir())
		if err != nil {
			logger.Error("list failed", zap.Error(err))
			return err
		}
		for _, name := range names {
			fmt.Fprintln(cmd.OutOrStdout(), name)
		}
		return nil
	},
}
