package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"lattice/internal/core/app"
	"lattice/internal/core/config"
	"lattice/internal/shared/observability"
)

var (
	configPath = flag.String("config", "./lattice.toml", "Path to config file")
	once       = flag.Bool("once", false, "Run single scan and exit")
	ui         = flag.Bool("ui", false, "Enable terminal UI mode")
	verbose    = flag.Bool("verbose", false, "Enable verbose logging")
	version    = flag.Bool("version", false, "Print version and exit")
)

const VERSION = "1.0.0"

func main() {
	flag.Parse()

	if *version {
		fmt.Printf("lattice v%s\n", VERSION)
		os.Exit(0)
	}

	logLevel := slog.LevelInfo
	if *verbose {
		logLevel = slog.LevelDebug
	}

	output := os.Stdout
	if *ui {
		// In UI mode, avoid stdout logs corrupting the TUI.
		logPath := resolveLogPath()
		if err := os.MkdirAll(filepath.Dir(logPath), 0700); err != nil {
			fmt.Fprintf(os.Stderr, "warning: failed to create log dir for %s: %v\n", logPath, err)
		} else if f, err := os.OpenFile(logPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600); err == nil {
			output = f
		} else {
			fmt.Fprintf(os.Stderr, "warning: failed to open log file %s: %v\n", logPath, err)
		}
	}

	logger := slog.New(slog.NewTextHandler(output, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	cfg, err := config.Load(*configPath)
	if err != nil {
		if *configPath == "./lattice.toml" && errors.Is(err, os.ErrNotExist) {
			cfg = config.Default()
		} else {
			slog.Error("failed to load config", "error", err)
			os.Exit(1)
		}
	}

	root := "."
	if flag.NArg() > 0 {
		root = flag.Arg(0)
	}

	ctx := context.Background()

	if cfg.Observability.OTLPEndpoint != "" {
		shutdown, err := observability.InitTracing(ctx, cfg.Observability.OTLPEndpoint, VERSION)
		if err != nil {
			slog.Warn("failed to initialize tracing", "error", err)
		} else {
			defer shutdown(context.Background())
		}
	}

	a, err := app.New(cfg, root)
	if err != nil {
		slog.Error("failed to initialize", "error", err)
		os.Exit(1)
	}
	defer a.Close()

	if cfg.Observability.MetricsAddr != "" {
		srv := app.NewObservabilityServer(cfg.Observability.MetricsAddr, a)
		if err := srv.Start(); err != nil {
			slog.Warn("failed to start metrics server", "error", err)
		} else {
			defer srv.Stop(context.Background())
		}
	}

	report, err := a.RunScan(ctx)
	if err != nil {
		slog.Error("scan failed", "error", err)
		os.Exit(1)
	}

	if *once {
		if err := report.Render(os.Stdout); err != nil {
			slog.Error("failed to render report", "error", err)
			os.Exit(1)
		}
		if err := report.Err(); err != nil {
			slog.Error("scan finished with diagnostics", "error", err)
			os.Exit(1)
		}
		os.Exit(0)
	}

	session, err := a.StartWatch(ctx)
	if err != nil {
		slog.Error("failed to start watcher", "error", err)
		os.Exit(1)
	}
	defer session.Close()

	if *ui {
		if err := runUI(session, report); err != nil {
			slog.Error("failed to run UI", "error", err)
			os.Exit(1)
		}
		return
	}

	if err := report.Render(os.Stdout); err != nil {
		slog.Error("failed to render report", "error", err)
	}
	for update := range session.Updates() {
		if err := update.Render(os.Stdout); err != nil {
			slog.Error("failed to render report", "error", err)
		}
	}
}

func resolveLogPath() string {
	if xdg := os.Getenv("XDG_STATE_HOME"); xdg != "" {
		return filepath.Join(xdg, "lattice", "lattice.log")
	}
	home, err := os.UserHomeDir()
	if err == nil && home != "" {
		return filepath.Join(home, ".local", "state", "lattice", "lattice.log")
	}
	return "lattice.log"
}
