package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/quietwire/linkcheck/internal/log"
)

// ErrLinksFailed signals that the run found failing links. The report has
// already been written, so Execute only sets the exit status.
var ErrLinksFailed = errors.New("link check failed")

// NewRootCmd creates the root command for linkcheck.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "linkcheck",
		Short: "Validate the links of a Markdown corpus",
		Long: `linkcheck validates every hyperlink referenced by a set of Markdown documents.

External (http/https) links must resolve to a live resource that is not on a
private network. Relative links must point to an existing file and, when they
carry a fragment, to a heading of that file.

Results of external checks are cached between runs, and every run is recorded
so that newly broken links can be compared against earlier runs.`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")
	cmd.PersistentFlags().Bool("log-json", false, "Write logs as JSON")

	cmd.AddCommand(NewCheckCmd())
	cmd.AddCommand(NewHistoryCmd())
	cmd.AddCommand(NewInitCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command. SIGINT and SIGTERM cancel the context so
// in-flight requests abort and the partial result is still reported.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := NewRootCmd().ExecuteContext(ctx)
	stop()

	if err != nil {
		if !errors.Is(err, ErrLinksFailed) {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}
}

// getVerboseFlag retrieves the verbose flag from the command or its parent.
func getVerboseFlag(cmd *cobra.Command) bool {
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		verbose, err = cmd.Root().PersistentFlags().GetBool("verbose")
		if err != nil {
			return false
		}
	}
	return verbose
}

// setupLogger creates the sanitizing stderr logger and installs it as default.
func setupLogger(cmd *cobra.Command) *slog.Logger {
	asJSON, err := cmd.Flags().GetBool("log-json")
	if err != nil {
		asJSON, _ = cmd.Root().PersistentFlags().GetBool("log-json")
	}
	newLogger := log.NewSecureLogger
	if asJSON {
		newLogger = log.NewSecureJSONLogger
	}
	logger := newLogger(cmd.ErrOrStderr(), getVerboseFlag(cmd))
	slog.SetDefault(logger)
	return logger
}
