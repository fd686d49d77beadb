// Package config holds the process configuration: the (root, port) pair the
// server is bound to for its lifetime, plus logging targets. Values come
// from an optional TOML file with CLI flags layered on top; once validated
// the configuration is immutable.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
)

const (
	DefaultPort            = 8080
	DefaultShutdownTimeout = "30s"
)

// Config is the top-level configuration structure.
type Config struct {
	Server  Server  `toml:"server"`
	Logging Logging `toml:"logging"`
}

// Server configures the listener and the served directory.
type Server struct {
	// Root is the directory exposed over HTTP. Relative values are resolved
	// against the working directory during Validate.
	Root string `toml:"root"`
	// Port is the TCP port to bind, 1-65535.
	Port int `toml:"port"`
	// IndexFiles are tried in order when a directory is requested; the first
	// existing regular file is served instead of a listing.
	IndexFiles []string `toml:"index_files"`
	// ShutdownTimeout bounds the drain phase, e.g. "30s".
	ShutdownTimeout string `toml:"shutdown_timeout"`
}

// Logging selects the log level and the two sink targets. A target is
// "stdout", "stderr", or a file path.
type Logging struct {
	Level     string `toml:"level"`
	AccessLog string `toml:"access_log"`
	ErrorLog  string `toml:"error_log"`
}

// Default returns the configuration used when no file and no flags are
// given: serve the working directory on port 8080.
func Default() *Config {
	return &Config{
		Server: Server{
			Root:            ".",
			Port:            DefaultPort,
			IndexFiles:      []string{"index.html"},
			ShutdownTimeout: DefaultShutdownTimeout,
		},
		Logging: Logging{
			Level:     "info",
			AccessLog: "stdout",
			ErrorLog:  "stderr",
		},
	}
}

// Load reads a TOML configuration file over the defaults, so absent keys
// keep their default values.
func Load(path string) (*Config, error) {
	cfg := Default()
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmt.Errorf("loading config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks the configuration and normalizes Server.Root to an
// absolute, cleaned path. The root must exist and be a directory; the
// server re-checks this before listening.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("port %d out of range 1-65535", c.Server.Port)
	}
	if c.Server.Root == "" {
		return fmt.Errorf("root directory must not be empty")
	}
	root, err := filepath.Abs(c.Server.Root)
	if err != nil {
		return fmt.Errorf("resolving root directory: %w", err)
	}
	info, err := os.Stat(root)
	if err != nil {
		return fmt.Errorf("root directory %s: %w", root, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("root %s is not a directory", root)
	}
	c.Server.Root = root

	if len(c.Server.IndexFiles) == 0 {
		c.Server.IndexFiles = []string{"index.html"}
	}
	if _, err := time.ParseDuration(c.Server.ShutdownTimeout); err != nil {
		return fmt.Errorf("invalid shutdown_timeout %q: %w", c.Server.ShutdownTimeout, err)
	}
	return nil
}

// ShutdownTimeoutDuration returns the parsed drain bound. Validate must have
// accepted the configuration first.
func (c *Config) ShutdownTimeoutDuration() time.Duration {
	d, err := time.ParseDuration(c.Server.ShutdownTimeout)
	if err != nil {
		d, _ = time.ParseDuration(DefaultShutdownTimeout)
	}
	return d
}
