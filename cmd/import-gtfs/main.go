package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/gladetimes/tapaastimes/internal/app"
	"github.com/gladetimes/tapaastimes/internal/config"
	"github.com/gladetimes/tapaastimes/internal/gtfsimport"
	"github.com/gladetimes/tapaastimes/internal/logging"
)

func main() {
	var configPath, sourceName string
	var force, verbose bool

	flag.StringVar(&configPath, "config", "config.yaml", "Path to the YAML configuration file")
	flag.StringVar(&sourceName, "source", "", "Import a single named source (default: every source with a feed URL)")
	flag.BoolVar(&force, "force", false, "Import even if the feed has not changed")
	flag.BoolVar(&verbose, "verbose", false, "Enable debug logging")
	flag.Parse()

	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	logger := logging.NewStructuredLogger(os.Stdout, level)

	application, err := app.New(configPath, logger)
	if err != nil {
		logging.LogError(logger, "failed to start", err)
		os.Exit(1)
	}
	defer application.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var sources []*config.Source
	if sourceName != "" {
		source, err := application.Config.FindSource(sourceName)
		if err != nil {
			logging.LogError(logger, "unknown source", err)
			os.Exit(1)
		}
		sources = append(sources, source)
	} else {
		for i := range application.Config.Sources {
			if application.Config.Sources[i].URL != "" {
				sources = append(sources, &application.Config.Sources[i])
			}
		}
	}

	failed := false
	for _, source := range sources {
		importer := gtfsimport.New(application.Client, source, application.Config.CacheDir, logger)
		if _, err := importer.Run(ctx, force); err != nil && !errors.Is(err, gtfsimport.ErrNotModified) {
			logging.LogError(logger, "import failed", err, slog.String("source", source.Name))
			failed = true
		}
	}
	if failed {
		os.Exit(1)
	}
}
