package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/julienschmidt/httprouter"

	"github.com/gladetimes/tapaastimes/internal/app"
	"github.com/gladetimes/tapaastimes/internal/logging"
	"github.com/gladetimes/tapaastimes/internal/vehicles"
)

func main() {
	var configPath, addr string
	var verbose bool

	flag.StringVar(&configPath, "config", "config.yaml", "Path to the YAML configuration file")
	flag.StringVar(&addr, "addr", ":4000", "Address for the health and stats endpoints")
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

	poller := vehicles.NewPoller(application.Client, logger)
	for i := range application.Config.Sources {
		source := &application.Config.Sources[i]
		if source.Realtime.URL == "" {
			continue
		}
		tz, err := time.LoadLocation(source.Realtime.Timezone)
		if err != nil {
			logging.LogError(logger, "invalid timezone", err, slog.String("source", source.Name))
			os.Exit(1)
		}

		var feed vehicles.Source
		switch source.Realtime.Format {
		case "radar":
			feed = vehicles.NewRadarSource(source.Name, source.Realtime)
		default:
			feed = vehicles.NewGTFSRTSource(source.Name, source.Realtime)
		}
		interval := time.Duration(source.Realtime.IntervalSeconds) * time.Second
		if err := poller.AddSource(ctx, feed, source.Realtime.URL, tz, interval); err != nil {
			logging.LogError(logger, "failed to register source", err, slog.String("source", source.Name))
			os.Exit(1)
		}
	}

	srv := &http.Server{
		Addr:         addr,
		Handler:      routes(poller),
		IdleTimeout:  time.Minute,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		ErrorLog:     slog.NewLogLogger(logger.Handler(), slog.LevelError),
	}
	go func() {
		logger.Info("starting server", slog.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.LogError(logger, "server failed", err)
		}
	}()

	err = poller.Run(ctx)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logging.LogError(logger, "server shutdown failed", err)
	}

	if err != nil && !errors.Is(err, context.Canceled) {
		logging.LogError(logger, "poller stopped", err)
		os.Exit(1)
	}
}

func routes(poller *vehicles.Poller) http.Handler {
	router := httprouter.New()
	router.GET("/healthz", func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	router.GET("/stats", func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(poller.Stats())
	})
	return router
}
