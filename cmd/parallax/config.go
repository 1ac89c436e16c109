package main

import (
	"os"
	"path/filepath"

	"github.com/urfave/cli/v3"
	"gopkg.in/yaml.v3"
)

// Config is the optional file at ~/.config/parallax/config.yaml. Pointer
// fields distinguish "not set" from zero values; explicit CLI flags win.
type Config struct {
	Workers         *int64 `yaml:"workers"`
	SyncAfterLaunch *bool  `yaml:"sync_after_launch"`
	LogLevel        string `yaml:"log_level"`
	LogFormat       string `yaml:"log_format"`
	ServerAddress   string `yaml:"server_address"`
}

func configPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "parallax", "config.yaml")
}

func loadConfig() Config {
	var cfg Config
	path := configPath()
	if path == "" {
		return cfg
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg
	}
	// A malformed config file is ignored rather than fatal; flags and
	// defaults still apply.
	_ = yaml.Unmarshal(data, &cfg)
	return cfg
}

// applyConfig fills flag variables from the config file where the user did
// not pass the flag explicitly.
func applyConfig(c *cli.Command, cfg Config, addr *string) {
	if cfg.Workers != nil && !c.IsSet("workers") {
		workers = *cfg.Workers
	}
	if cfg.SyncAfterLaunch != nil && !c.IsSet("sync-after-launch") {
		syncAfterLaunch = *cfg.SyncAfterLaunch
	}
	if cfg.LogLevel != "" && !c.IsSet("log-level") {
		logLevel = cfg.LogLevel
	}
	if cfg.LogFormat != "" && !c.IsSet("log-format") {
		logFormat = cfg.LogFormat
	}
	if addr != nil && cfg.ServerAddress != "" && !c.IsSet("addr") {
		*addr = cfg.ServerAddress
	}
}
