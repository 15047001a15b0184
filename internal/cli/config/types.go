// Package config provides configuration management for the dataclean CLI.
//
// Configuration is layered: defaults, then an optional dataclean.yaml file,
// then DATACLEAN_* environment variables, then CLI flags. A notebook's own
// kernels_config metadata is merged on top of the result by the commands
// that operate on a notebook.
package config

// Config holds all CLI configuration options.
type Config struct {
	ServerURL     string `koanf:"server_url"`
	Token         string `koanf:"token"`
	KernelID      string `koanf:"kernel_id"`
	Notebook      string `koanf:"notebook"`
	HistoryPath   string `koanf:"history_path"`
	Port          int    `koanf:"port"`
	Watch         bool   `koanf:"watch"`
	AutoOpen      bool   `koanf:"auto_open"`
	Verbose       bool   `koanf:"verbose"`
	OutputFormat  string `koanf:"output"`
	SessionSecret string `koanf:"session_secret"`
}

// Default configuration values.
const (
	DefaultServerURL   = "http://localhost:8888"
	DefaultHistoryFile = ".dataclean/history.db"
	DefaultPort        = 8765
	DefaultOutput      = "table"
)
