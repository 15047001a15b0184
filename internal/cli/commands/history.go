package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/datacleanhq/dataclean/internal/cli/config"
)

// HistoryOptions holds options for the history command.
type HistoryOptions struct {
	Kind  string
	Limit int
	Prune time.Duration
}

// NewHistoryCommand creates the history command.
func NewHistoryCommand() *cobra.Command {
	opts := &HistoryOptions{}

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show commands sent to the kernel",
		Long: `List the kernel commands recorded by the panel server and the exec
command, most recent first.`,
		Example: `  # Show the last 20 commands
  dataclean history

  # Show only summary polls, as JSON
  dataclean history --kind poll -o json

  # Drop entries older than three days
  dataclean history --prune 72h`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runHistory(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.Kind, "kind", "", "Filter by command kind (poll|bootstrap|column-widget|pipeline-widget|exec)")
	cmd.Flags().IntVar(&opts.Limit, "limit", 20, "Maximum number of entries to show")
	cmd.Flags().DurationVar(&opts.Prune, "prune", 0, "Delete entries older than this duration instead of listing")

	return cmd
}

func runHistory(cmd *cobra.Command, opts *HistoryOptions) error {
	cfg := getConfig()
	logger := config.GetLogger(cmd.Context())

	hist, err := openHistory(cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to open history database: %w", err)
	}
	defer func() { _ = hist.Close() }()

	if opts.Prune > 0 {
		n, err := hist.Prune(cmd.Context(), opts.Prune)
		if err != nil {
			return fmt.Errorf("failed to prune history: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Pruned %d entries\n", n)
		return nil
	}

	entries, err := hist.Recent(cmd.Context(), opts.Kind, opts.Limit)
	if err != nil {
		return fmt.Errorf("failed to read history: %w", err)
	}

	return renderHistory(cmd.OutOrStdout(), entries, cfg.OutputFormat)
}
