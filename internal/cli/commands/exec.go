package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/chzyer/readline"
	"github.com/spf13/cobra"

	"github.com/datacleanhq/dataclean/internal/cli/config"
	"github.com/datacleanhq/dataclean/internal/history"
	"github.com/datacleanhq/dataclean/internal/kernel"
)

// NewExecCommand creates the exec command.
func NewExecCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "exec [code]",
		Short: "Execute Python code in the attached kernel",
		Long: `Execute code in the attached kernel and print its output.

With an argument the code is executed once. Without arguments an
interactive session starts; a line ending in a colon opens a block
that is sent when an empty line closes it.`,
		Example: `  # Run a single statement
  dataclean exec "df.describe()"

  # Start an interactive session
  dataclean exec`,
		Args: cobra.ArbitraryArgs,
		RunE: runExec,
	}

	return cmd
}

func runExec(cmd *cobra.Command, args []string) error {
	cfg := getConfig()
	logger := config.GetLogger(cmd.Context())
	applyNotebookOverrides(cfg, logger)

	client, info, err := connectKernel(cmd.Context(), cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to attach to kernel: %w", err)
	}
	defer func() { _ = client.Close() }()

	hist, err := openHistory(cfg, logger)
	if err != nil {
		logger.Warn("command history disabled", "path", cfg.HistoryPath, "error", err)
		hist = nil
	} else {
		defer func() { _ = hist.Close() }()
	}

	if len(args) > 0 {
		return execOnce(cmd.Context(), cmd.OutOrStdout(), client, hist, strings.Join(args, " "))
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Connected to kernel %s (%s)\n", info.ID, info.Name)
	fmt.Fprintln(cmd.OutOrStdout(), `Type ".help" for help, ".quit" to exit`)
	return runRepl(cmd.Context(), cmd.OutOrStdout(), client, hist, logger)
}

// execOnce sends one block of code and waits for the kernel to finish it.
func execOnce(ctx context.Context, w io.Writer, bridge kernel.Bridge, hist *history.Store, code string) error {
	start := time.Now()
	done := make(chan error, 1)

	err := bridge.Execute(ctx, code, kernel.OutputHandlers{
		OnStream: func(text string) {
			fmt.Fprint(w, text)
		},
		OnDisplayData: func(data map[string]string) {
			if plain, ok := data["text/plain"]; ok {
				fmt.Fprintln(w, plain)
			}
		},
		OnError: func(ename, evalue string, _ []string) {
			select {
			case done <- fmt.Errorf("%s: %s", ename, evalue):
			default:
			}
		},
		OnDone: func() {
			select {
			case done <- nil:
			default:
			}
		},
	})
	if err != nil {
		recordExec(ctx, hist, code, "send-failed", time.Since(start))
		return err
	}

	select {
	case err := <-done:
		status := "ok"
		if err != nil {
			status = "error"
		}
		recordExec(ctx, hist, code, status, time.Since(start))
		return err
	case <-ctx.Done():
		recordExec(ctx, hist, code, "timeout", time.Since(start))
		return ctx.Err()
	}
}

func recordExec(ctx context.Context, hist *history.Store, code, status string, elapsed time.Duration) {
	if hist == nil {
		return
	}
	hist.Record(ctx, "exec", code, status, elapsed)
}

// runRepl runs the interactive exec session.
func runRepl(ctx context.Context, w io.Writer, bridge kernel.Bridge, hist *history.Store, logger *slog.Logger) error {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          ">>> ",
		HistoryFile:     filepath.Join(os.TempDir(), ".dataclean_exec_history"),
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return fmt.Errorf("failed to initialize readline: %w", err)
	}
	defer func() { _ = rl.Close() }()

	var buffer []string

	for {
		line, err := rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			// Ctrl+C clears a pending block, a second one exits.
			if len(buffer) > 0 {
				buffer = nil
				rl.SetPrompt(">>> ")
				continue
			}
			return nil
		}
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}

		trimmed := strings.TrimSpace(line)

		// Dot commands only apply outside a block.
		if len(buffer) == 0 && strings.HasPrefix(trimmed, ".") {
			if quit := handleDotCommand(ctx, w, bridge, logger, trimmed); quit {
				return nil
			}
			continue
		}

		if len(buffer) > 0 {
			if trimmed == "" {
				code := strings.Join(buffer, "\n")
				buffer = nil
				rl.SetPrompt(">>> ")
				if err := execOnce(ctx, w, bridge, hist, code); err != nil {
					fmt.Fprintf(w, "Error: %v\n", err)
				}
			} else {
				buffer = append(buffer, line)
			}
			continue
		}

		if trimmed == "" {
			continue
		}

		// A trailing colon opens a multi-line block.
		if strings.HasSuffix(trimmed, ":") {
			buffer = append(buffer, line)
			rl.SetPrompt("... ")
			continue
		}

		if err := execOnce(ctx, w, bridge, hist, line); err != nil {
			fmt.Fprintf(w, "Error: %v\n", err)
		}
	}
}

// handleDotCommand processes a REPL dot command. Returns true to exit.
func handleDotCommand(ctx context.Context, w io.Writer, bridge kernel.Bridge, logger *slog.Logger, cmd string) bool {
	switch strings.Fields(cmd)[0] {
	case ".quit", ".exit":
		return true
	case ".frames":
		frames, err := fetchSummary(ctx, bridge, logger)
		if err != nil {
			fmt.Fprintf(w, "Error: %v\n", err)
			return false
		}
		if err := renderFrames(w, frames, "table"); err != nil {
			fmt.Fprintf(w, "Error: %v\n", err)
		}
	case ".help":
		fmt.Fprintln(w, "Commands:")
		fmt.Fprintln(w, "  .frames        List the dataframes tracked in the kernel")
		fmt.Fprintln(w, "  .help          Show this help")
		fmt.Fprintln(w, "  .quit, .exit   Exit the session")
		fmt.Fprintln(w, "")
		fmt.Fprintln(w, "Anything else is sent to the kernel. End a line with a colon")
		fmt.Fprintln(w, "to open a block; an empty line sends it.")
	default:
		fmt.Fprintf(w, "Unknown command: %s (try .help)\n", cmd)
	}
	return false
}
