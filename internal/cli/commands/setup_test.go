package commands

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/datacleanhq/dataclean/internal/cli/config"
)

func writeNotebook(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.ipynb")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestApplyNotebookOverrides(t *testing.T) {
	logger := slog.New(slog.DiscardHandler)

	t.Run("kernels_config wins over process config", func(t *testing.T) {
		path := writeNotebook(t, `{
 "cells": [],
 "metadata": {
  "dataclean": {
   "window_display": true,
   "kernels_config": {
    "server_url": "http://nb:8888",
    "token": "nb-token",
    "kernel_id": "nb-kernel"
   }
  }
 },
 "nbformat": 4
}`)

		cfg := &config.Config{
			ServerURL: "http://process:8888",
			Token:     "process-token",
			KernelID:  "process-kernel",
			Notebook:  path,
		}
		applyNotebookOverrides(cfg, logger)

		assert.Equal(t, "http://nb:8888", cfg.ServerURL)
		assert.Equal(t, "nb-token", cfg.Token)
		assert.Equal(t, "nb-kernel", cfg.KernelID)
	})

	t.Run("empty document fields keep process config", func(t *testing.T) {
		path := writeNotebook(t, `{"cells": [], "metadata": {}, "nbformat": 4}`)

		cfg := &config.Config{ServerURL: "http://process:8888", Notebook: path}
		applyNotebookOverrides(cfg, logger)

		assert.Equal(t, "http://process:8888", cfg.ServerURL)
	})

	t.Run("no notebook configured is a no-op", func(t *testing.T) {
		cfg := &config.Config{ServerURL: "http://process:8888"}
		applyNotebookOverrides(cfg, logger)
		assert.Equal(t, "http://process:8888", cfg.ServerURL)
	})

	t.Run("unreadable notebook keeps process config", func(t *testing.T) {
		cfg := &config.Config{ServerURL: "http://process:8888", Notebook: "/nonexistent/x.ipynb"}
		applyNotebookOverrides(cfg, logger)
		assert.Equal(t, "http://process:8888", cfg.ServerURL)
	})
}

func TestGetConfig_EnvFallback(t *testing.T) {
	config.ResetConfig()
	t.Setenv("DATACLEAN_SERVER_URL", "http://env:8888")
	t.Setenv("DATACLEAN_TOKEN", "env-token")

	cfg := getConfig()
	assert.Equal(t, "http://env:8888", cfg.ServerURL)
	assert.Equal(t, "env-token", cfg.Token)
	assert.Equal(t, config.DefaultPort, cfg.Port)
	assert.Equal(t, config.DefaultOutput, cfg.OutputFormat)
}
