// Command servedir exposes a directory tree over HTTP with automatic
// content types, browsable listings and an index-file fallback.
//
// Usage:
//
//	servedir [-root DIR] [-port N] [-config FILE] [-log-level LEVEL]
//
// Flags override values from the optional TOML configuration file. The
// process exits 0 after a clean drain and non-zero on startup failure.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"example.com/servedir/internal/config"
	"example.com/servedir/internal/fileserve"
	"example.com/servedir/internal/logger"
	"example.com/servedir/internal/server"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	fs := flag.NewFlagSet("servedir", flag.ExitOnError)
	configPath := fs.String("config", "", "path to a TOML configuration file")
	root := fs.String("root", "", "directory to serve (default: working directory)")
	port := fs.Int("port", config.DefaultPort, "TCP port to listen on")
	logLevel := fs.String("log-level", "", "log level: debug, info, warn or error")
	fs.Parse(args)

	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "servedir: %v\n", err)
			return 1
		}
		cfg = loaded
	}
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "root":
			cfg.Server.Root = *root
		case "port":
			cfg.Server.Port = *port
		case "log-level":
			cfg.Logging.Level = *logLevel
		}
	})

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "servedir: invalid configuration: %v\n", err)
		return 1
	}

	lg, err := logger.New(cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "servedir: %v\n", err)
		return 1
	}
	defer lg.Close()

	handler := fileserve.NewHandler(cfg.Server.Root, cfg.Server.IndexFiles, lg)
	srv := server.New(cfg, lg, handler)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := srv.Run(ctx); err != nil {
		lg.Diag.Error().Err(err).Msg("server exited with error")
		return 1
	}
	return 0
}
