package cmd

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/PiranhaCodes/parterm/internal/pipe"
)

var clientCmd = &cobra.Command{
	Use:   "client [--name NAME] -- COMMAND...",
	Short: "Send a command to a running session",
	Long: `Types COMMAND followed by a newline into the shell of the session NAME.

A single argument is typed verbatim, so pipes and redirections in it reach
the remote shell. Several arguments are typed as one command line with each
word quoted, keeping the word boundaries they had locally.

Fails without side effects when no server is running for NAME.`,
	Example: `  parterm client -- ls -la
  parterm client --name work -- 'make test 2>&1 | tee build.log'`,
	Args: cobra.ArbitraryArgs,
	RunE: runClient,
}

func init() {
	addNameFlag(clientCmd)
	// Everything after the first positional argument belongs to the command.
	clientCmd.Flags().SetInterspersed(false)
}

func runClient(cmd *cobra.Command, args []string) error {
	if len(args) == 0 {
		return cmd.Usage()
	}
	name, _ := cmd.Flags().GetString("name")
	line := commandLine(args) + "\n"

	log := logger.With(zap.String("session", name))
	log.Info("client", zap.Int("bytes", len(line)))

	// Delivery problems are reported, not turned into a failing exit status.
	if err := pipe.Submit(cfg.PipeDir(), name, []byte(line)); err != nil {
		log.Info("submit failed", zap.Error(err), zap.Bool("no_server", errors.Is(err, pipe.ErrNoServer)))
		fmt.Fprintln(cmd.ErrOrStderr(), "parterm:", err)
	}
	return nil
}

// commandLine builds the line typed into the remote shell.
func commandLine(args []string) string {
	if len(args) == 1 {
		return args[0]
	}
	words := make([]string, len(args))
	for i, a := range args {
		words[i] = shellQuote(a)
	}
	return strings.Join(words, " ")
}

// shellQuote single-quotes s for a POSIX shell unless it only holds
// characters that never need quoting.
func shellQuote(s string) string {
	if s == "" {
		return "''"
	}
	if strings.IndexFunc(s, needsQuote) < 0 {
		return s
	}
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

func needsQuote(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		return false
	case strings.ContainsRune("-_./=:,+@%", r):
		return false
	}
	return true
}
