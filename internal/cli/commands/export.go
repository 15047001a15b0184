package commands

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/datacleanhq/dataclean/internal/cli/config"
	"github.com/datacleanhq/dataclean/internal/pipeline"
)

// exportTimeout bounds the wait for the kernel's pipeline reply.
const exportTimeout = 30 * time.Second

// NewExportCommand creates the export command.
func NewExportCommand() *cobra.Command {
	var outFile string

	cmd := &cobra.Command{
		Use:   "export <frame-id>",
		Short: "Export a frame's cleaning pipeline as a Python script",
		Long: `Fetch the cleaning steps recorded against a dataframe and emit them
as a standalone exported_pipeline function.`,
		Example: `  # Print the pipeline for a frame
  dataclean export 94352160

  # Write it to a file
  dataclean export 94352160 -f cleaned.py`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExport(cmd, args[0], outFile)
		},
	}

	cmd.Flags().StringVarP(&outFile, "file", "f", "", "Write the script to a file instead of stdout")

	return cmd
}

func runExport(cmd *cobra.Command, frameID, outFile string) error {
	cfg := getConfig()
	logger := config.GetLogger(cmd.Context())
	applyNotebookOverrides(cfg, logger)

	ctx, cancel := context.WithTimeout(cmd.Context(), exportTimeout)
	defer cancel()

	client, _, err := connectKernel(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to attach to kernel: %w", err)
	}
	defer func() { _ = client.Close() }()

	steps, err := pipeline.Fetch(ctx, client, frameID)
	if err != nil {
		return fmt.Errorf("failed to fetch pipeline: %w", err)
	}

	script, err := pipeline.Export(steps)
	if err != nil {
		return fmt.Errorf("failed to generate script: %w", err)
	}

	if outFile != "" {
		if err := os.WriteFile(outFile, []byte(script), 0644); err != nil {
			return fmt.Errorf("failed to write %s: %w", outFile, err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d steps to %s\n", len(steps), outFile)
		return nil
	}

	fmt.Fprint(cmd.OutOrStdout(), script)
	return nil
}
