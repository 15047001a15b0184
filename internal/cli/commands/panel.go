package commands

import (
	"fmt"
	"os"
	"os/exec"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/datacleanhq/dataclean/internal/cli/config"
	"github.com/datacleanhq/dataclean/internal/introspect"
	"github.com/datacleanhq/dataclean/internal/metadata"
	"github.com/datacleanhq/dataclean/internal/ui"
)

// PanelOptions holds options for the panel command.
type PanelOptions struct {
	NoBrowser bool
	Watch     bool
}

// NewPanelCommand creates the panel command.
func NewPanelCommand() *cobra.Command {
	opts := &PanelOptions{}

	cmd := &cobra.Command{
		Use:   "panel",
		Short: "Serve the interactive cleaning panel",
		Long: `Attach to a running Jupyter kernel and serve the floating panel.

The panel provides:
- Live summaries of the dataframes tracked in the kernel
- Expandable per-column cleaning widgets
- Pipeline export to a plain Python script
- Layout persisted into the notebook's metadata`,
		Example: `  # Serve the panel for a notebook
  dataclean panel --notebook analysis.ipynb

  # Serve on a custom port without opening a browser
  dataclean panel --notebook analysis.ipynb --port 3000 --no-browser`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runPanel(cmd, opts)
		},
	}

	cmd.Flags().BoolVar(&opts.NoBrowser, "no-browser", false, "Don't auto-open browser")
	cmd.Flags().BoolVar(&opts.Watch, "watch", true, "Watch the notebook file for changes")

	return cmd
}

func runPanel(cmd *cobra.Command, opts *PanelOptions) error {
	cfg := getConfig()
	logger := config.GetLogger(cmd.Context())
	applyNotebookOverrides(cfg, logger)

	port := cfg.Port
	if port == 0 {
		port = config.DefaultPort
	}

	autoOpen := cfg.AutoOpen
	if opts.NoBrowser {
		autoOpen = false
	}

	watch := cfg.Watch
	if cmd.Flags().Changed("watch") {
		watch = opts.Watch
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client, info, err := connectKernel(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to attach to kernel: %w", err)
	}
	defer func() { _ = client.Close() }()

	// History is ancillary; a broken database must not keep the panel down.
	var recorder introspect.Recorder
	hist, err := openHistory(cfg, logger)
	if err != nil {
		logger.Warn("command history disabled", "path", cfg.HistoryPath, "error", err)
	} else {
		recorder = hist
		defer func() { _ = hist.Close() }()
	}

	var store metadata.Store
	if cfg.Notebook != "" {
		store = metadata.NewNotebookStore(cfg.Notebook)
	} else {
		store = metadata.NewMemoryStore()
	}

	server := ui.NewServer(ui.Config{
		Bridge:        client,
		Store:         store,
		Recorder:      recorder,
		Port:          port,
		Watch:         watch,
		NotebookPath:  cfg.Notebook,
		SessionSecret: sessionSecret(cfg),
		Logger:        logger,
	})

	if autoOpen {
		url := fmt.Sprintf("http://localhost:%d", port)
		go openBrowser(url)
	}

	fmt.Printf("Attached to kernel %s (%s)\n", info.ID, info.Name)
	fmt.Printf("Serving panel on http://localhost:%d\n", port)
	fmt.Println("Press Ctrl+C to stop")

	return server.Serve(ctx)
}

// sessionSecret returns the cookie session secret.
func sessionSecret(cfg *config.Config) string {
	if cfg.SessionSecret != "" {
		return cfg.SessionSecret
	}
	secret := os.Getenv("DATACLEAN_SESSION_SECRET")
	if secret == "" {
		// Default secret for development (nolint:gosec)
		secret = "dataclean-dev-secret-change-in-production" //nolint:gosec
	}
	return secret
}

// openBrowser opens the default browser to the specified URL.
func openBrowser(url string) {
	var cmd *exec.Cmd

	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url) //nolint:noctx
	case "linux":
		cmd = exec.Command("xdg-open", url) //nolint:noctx
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url) //nolint:noctx
	default:
		return
	}

	_ = cmd.Start()
}
