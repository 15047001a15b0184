// Package commands implements the dataclean subcommands.
package commands

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/datacleanhq/dataclean/internal/cli/config"
	"github.com/datacleanhq/dataclean/internal/history"
	"github.com/datacleanhq/dataclean/internal/kernel"
	"github.com/datacleanhq/dataclean/internal/metadata"
)

// getConfig returns the loaded CLI configuration. When no configuration has
// been loaded (direct command construction in tests), it falls back to
// environment variables with defaults.
func getConfig() *config.Config {
	if cfg := config.GetCurrentConfig(); cfg != nil {
		return cfg
	}

	return &config.Config{
		ServerURL:    getEnvOrDefault("DATACLEAN_SERVER_URL", config.DefaultServerURL),
		Token:        os.Getenv("DATACLEAN_TOKEN"),
		KernelID:     os.Getenv("DATACLEAN_KERNEL_ID"),
		Notebook:     os.Getenv("DATACLEAN_NOTEBOOK"),
		HistoryPath:  getEnvOrDefault("DATACLEAN_HISTORY_PATH", config.DefaultHistoryFile),
		Port:         config.DefaultPort,
		OutputFormat: getEnvOrDefault("DATACLEAN_OUTPUT", config.DefaultOutput),
	}
}

func getEnvOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// applyNotebookOverrides merges the notebook's kernels_config metadata over
// the process configuration. A notebook pins its own kernel connection, so
// document values win over file and environment values.
func applyNotebookOverrides(cfg *config.Config, logger *slog.Logger) {
	if cfg.Notebook == "" {
		return
	}
	doc, err := metadata.NewNotebookStore(cfg.Notebook).Load()
	if err != nil {
		logger.Warn("could not read notebook metadata", "path", cfg.Notebook, "error", err)
		return
	}
	kc := doc.KernelsConfig
	if kc.ServerURL != "" {
		cfg.ServerURL = kc.ServerURL
	}
	if kc.Token != "" {
		cfg.Token = kc.Token
	}
	if kc.KernelID != "" {
		cfg.KernelID = kc.KernelID
	}
}

// connectKernel resolves the configured kernel and attaches to it.
func connectKernel(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*kernel.Client, kernel.Info, error) {
	server := kernel.Server{BaseURL: cfg.ServerURL, Token: cfg.Token}
	info, err := kernel.Resolve(ctx, server, cfg.KernelID)
	if err != nil {
		return nil, kernel.Info{}, err
	}
	client, err := kernel.Connect(ctx, server, info.ID, logger)
	if err != nil {
		return nil, kernel.Info{}, err
	}
	return client, info, nil
}

// openHistory opens the command history database, creating its directory
// when needed.
func openHistory(cfg *config.Config, logger *slog.Logger) (*history.Store, error) {
	dir := filepath.Dir(cfg.HistoryPath)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return nil, err
		}
	}
	return history.Open(cfg.HistoryPath, logger)
}
