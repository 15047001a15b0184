package commands

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/datacleanhq/dataclean/internal/cli/config"
	"github.com/datacleanhq/dataclean/internal/introspect"
	"github.com/datacleanhq/dataclean/internal/kernel"
)

// framesTimeout bounds the wait for the kernel's summary reply.
const framesTimeout = 30 * time.Second

// NewFramesCommand creates the frames command.
func NewFramesCommand() *cobra.Command {
	var columns bool

	cmd := &cobra.Command{
		Use:   "frames",
		Short: "List the dataframes tracked in the attached kernel",
		Example: `  # List frames as a table
  dataclean frames

  # List frames with their columns, as JSON
  dataclean frames --columns -o json`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runFrames(cmd, columns)
		},
	}

	cmd.Flags().BoolVar(&columns, "columns", false, "Include per-column details")

	return cmd
}

func runFrames(cmd *cobra.Command, columns bool) error {
	cfg := getConfig()
	logger := config.GetLogger(cmd.Context())
	applyNotebookOverrides(cfg, logger)

	ctx, cancel := context.WithTimeout(cmd.Context(), framesTimeout)
	defer cancel()

	client, _, err := connectKernel(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to attach to kernel: %w", err)
	}
	defer func() { _ = client.Close() }()

	frames, err := fetchSummary(ctx, client, logger)
	if err != nil {
		return err
	}

	if columns {
		return renderColumns(cmd.OutOrStdout(), frames, cfg.OutputFormat)
	}
	return renderFrames(cmd.OutOrStdout(), frames, cfg.OutputFormat)
}

// fetchSummary issues a single summary poll and waits for the reply.
func fetchSummary(ctx context.Context, bridge kernel.Bridge, logger *slog.Logger) ([]introspect.FrameDescriptor, error) {
	summaries := make(chan introspect.Summary, 1)
	poller := introspect.NewPoller(bridge, logger, nil, func(s introspect.Summary) {
		select {
		case summaries <- s:
		default:
		}
	})

	poller.Poll(ctx)

	select {
	case s := <-summaries:
		return s.Frames, nil
	case <-ctx.Done():
		return nil, fmt.Errorf("timed out waiting for kernel reply: %w", ctx.Err())
	}
}
