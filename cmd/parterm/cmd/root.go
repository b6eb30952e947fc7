// Package cmd implements the parterm command line.
//
// parterm runs a shell inside a pty attached to your terminal (server) and
// lets other processes type into that shell through a named pipe (client):
//
//	parterm server --name work
//	parterm client --name work -- make test
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/PiranhaCodes/parterm/internal/config"
	"github.com/PiranhaCodes/parterm/internal/logging"
	"github.com/PiranhaCodes/parterm/internal/pipe"
)

var (
	cfg    *config.Config
	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "parterm",
	Short: "Remote control for your terminal",
	Long: `parterm wraps your shell in a pseudo-terminal and accepts input for it
from other processes.

Start a session in the terminal you want to control:
  parterm server --name work

Then, from anywhere on the same machine:
  parterm client --name work -- git status

Sessions are reachable through a named pipe parterm_<name>.pipe in the
system temp directory (or $PARTERM_PIPE_DIR). Logs go to $PARTERM_LOG_FILE,
by default parterm.log in the temp directory.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.Load()
		if err != nil {
			return err
		}
		cfg = loaded
		logCfg := logging.DefaultConfig(cfg.LogFile())
		logCfg.Level = cfg.Level
		logCfg.Development = cfg.Development
		logger = logging.NewOrNop(logCfg)
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

// Execute runs the root command.
func Execute() error {
	err := rootCmd.Execute()
	if err != nil {
		fmt.Fprintln(os.Stderr, "parterm:", err)
	}
	return err
}

func addNameFlag(cmd *cobra.Command) {
	cmd.Flags().StringP("name", "n", pipe.DefaultName, "name of the session")
}

func init() {
	rootCmd.AddCommand(clientCmd, serverCmd, listCmd, waitCmd)
}
