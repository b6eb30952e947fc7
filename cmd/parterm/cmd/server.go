package cmd

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/PiranhaCodes/parterm/internal/pty"
	"github.com/PiranhaCodes/parterm/internal/session"
)

var serverCmd = &cobra.Command{
	Use:   "server [--name NAME] [--command COMMAND]",
	Short: "Run a shell that accepts remote commands",
	Long: `Starts your shell inside a pty attached to this terminal and listens for
commands sent with 'parterm client'. The session ends when the shell exits.`,
	Args: cobra.NoArgs,
	RunE: runServer,
}

func init() {
	addNameFlag(serverCmd)
	serverCmd.Flags().StringP("command", "c", "", "command to run in the shell once it starts")
}

func runServer(cmd *cobra.Command, args []string) error {
	name, _ := cmd.Flags().GetString("name")
	command, _ := cmd.Flags().GetString("command")

	shell, err := pty.DetectShell(cfg.ShellConfig.Path)
	if err != nil {
		logger.Error("shell detection failed", zap.Error(err))
		return err
	}

	logger.Info("server", zap.String("session", name), zap.String("shell", shell))
	err = session.Run(cmd.Context(), session.Options{
		Name:        name,
		Shell:       shell,
		Command:     command,
		PipeDir:     cfg.PipeDir(),
		IdleBackoff: cfg.IdleBackoff,
		Logger:      logger,
	})
	if err != nil {
		logger.Error("server failed", zap.String("session", name), zap.Error(err))
	}
	return err
}
