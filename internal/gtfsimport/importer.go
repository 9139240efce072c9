// Package gtfsimport loads GTFS static feeds into the database. Each run
// downloads a feed (skipping unchanged ones), reconciles its agencies,
// routes and stops against existing records, and rewrites the timetable
// inside a single transaction.
package gtfsimport

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/jamespfennell/gtfs"

	"github.com/gladetimes/tapaastimes/busdb"
	"github.com/gladetimes/tapaastimes/internal/config"
	"github.com/gladetimes/tapaastimes/internal/logging"
)

// ErrNotModified is returned by Run when the feed has not changed since the
// last successful import and force was not set.
var ErrNotModified = errors.New("feed not modified")

// Importer imports one configured GTFS source.
type Importer struct {
	client     *busdb.Client
	cfg        *config.Source
	cacheDir   string
	logger     *slog.Logger
	httpClient *http.Client
}

func New(client *busdb.Client, cfg *config.Source, cacheDir string, logger *slog.Logger) *Importer {
	return &Importer{
		client:     client,
		cfg:        cfg,
		cacheDir:   cacheDir,
		logger:     logger.With(slog.String("source", cfg.Name)),
		httpClient: &http.Client{Timeout: 5 * time.Minute},
	}
}

// StopPoint is the subset of a stored stop needed for trip destinations and
// route link projection.
type StopPoint struct {
	Code string
	Lat  float64
	Lon  float64
}

// runState carries everything built up over the phases of a single run. All
// writes go through q, which is bound to the run's transaction.
type runState struct {
	q      *busdb.Queries
	source busdb.Source
	feed   *gtfs.Static
	run    busdb.ImportRun

	operators map[string]string      // feed agency id -> operator noc
	routes    map[string]busdb.Route // feed route id -> stored route
	routeNOC  map[string]string      // feed route id -> operator noc
	services  map[int64]bool         // service ids touched this run
	calendars map[string]int64       // feed service id -> calendar id
	stops     map[string]StopPoint   // prefixed stop code -> position
}

// Run downloads, parses and imports the feed. The import itself is
// all-or-nothing: every phase shares one transaction, committed only after
// the post-pass completes.
func (im *Importer) Run(ctx context.Context, force bool) (busdb.ImportRun, error) {
	q := im.client.Queries

	source, err := q.GetOrCreateSource(ctx, im.cfg.Name, im.cfg.URL)
	if err != nil {
		return busdb.ImportRun{}, err
	}

	path := filepath.Join(im.cacheDir, im.cfg.Name+".zip")
	changed, err := DownloadIfModified(ctx, im.httpClient, im.cfg.URL, path)
	if err != nil {
		return busdb.ImportRun{}, err
	}
	if !changed && !force && source.CheckedAt.Valid {
		im.logger.Info("feed unchanged, skipping")
		return busdb.ImportRun{}, ErrNotModified
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return busdb.ImportRun{}, err
	}
	feed, err := gtfs.ParseStatic(content, gtfs.ParseStaticOptions{})
	if err != nil {
		return busdb.ImportRun{}, fmt.Errorf("parsing %s: %w", path, err)
	}
	im.logger.Info("feed parsed",
		slog.Int("agencies", len(feed.Agencies)),
		slog.Int("routes", len(feed.Routes)),
		slog.Int("stops", len(feed.Stops)),
		slog.Int("trips", len(feed.Trips)))

	tx, err := im.client.DB.BeginTx(ctx, nil)
	if err != nil {
		return busdb.ImportRun{}, err
	}
	defer logging.SafeRollbackWithLogging(tx, im.logger, "gtfs import")

	st := &runState{
		q:      q.WithTx(tx),
		source: source,
		feed:   feed,
		run: busdb.ImportRun{
			ID:        uuid.NewString(),
			SourceID:  source.ID,
			StartedAt: time.Now().UTC().Format(time.RFC3339),
		},
		operators: map[string]string{},
		routes:    map[string]busdb.Route{},
		routeNOC:  map[string]string{},
		services:  map[int64]bool{},
		calendars: map[string]int64{},
		stops:     map[string]StopPoint{},
	}
	if err := st.q.CreateImportRun(ctx, st.run); err != nil {
		return busdb.ImportRun{}, err
	}

	for _, phase := range []struct {
		name string
		run  func(context.Context, *runState) error
	}{
		{"operators", im.importOperators},
		{"routes", im.importRoutes},
		{"stops", im.importStops},
		{"calendars", im.importCalendars},
		{"trips", im.importTrips},
		{"route links", im.importRouteLinks},
		{"post-pass", im.finish},
	} {
		if err := phase.run(ctx, st); err != nil {
			return busdb.ImportRun{}, fmt.Errorf("%s: importing %s: %w", im.cfg.Name, phase.name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return busdb.ImportRun{}, err
	}
	logging.LogOperation(im.logger, "import finished",
		slog.String("run", st.run.ID),
		slog.Int64("trips_created", st.run.TripsCreated),
		slog.Int64("trips_dropped", st.run.TripsDropped),
		slog.Int64("stop_times_written", st.run.StopTimesWritten))
	return st.run, nil
}

// finish runs the per-service post-pass and retires anything the feed no
// longer mentions.
func (im *Importer) finish(ctx context.Context, st *runState) error {
	skipRegions := im.cfg.GTFS.RegionHandling == "skip"

	for serviceID := range st.services {
		if err := st.q.RebuildServiceStops(ctx, serviceID); err != nil {
			return err
		}
		if !skipRegions {
			if err := st.q.SetServiceRegion(ctx, serviceID); err != nil {
				return err
			}
		}
		if err := st.q.UpdateServiceSearchText(ctx, serviceID); err != nil {
			return err
		}
	}

	if !skipRegions {
		for _, noc := range st.operators {
			if err := st.q.SetOperatorRegion(ctx, noc); err != nil {
				return err
			}
		}
	}

	keep := make([]int64, 0, len(st.routes))
	for _, route := range st.routes {
		keep = append(keep, route.ID)
	}
	retired, err := st.q.RetireServices(ctx, st.source.ID, keep)
	if err != nil {
		return err
	}
	detached, err := st.q.DetachOldRoutes(ctx, st.source.ID, keep)
	if err != nil {
		return err
	}
	if retired > 0 || detached > 0 {
		im.logger.Info("retired stale records",
			slog.Int64("services", retired),
			slog.Int64("routes", detached))
	}

	now := time.Now().UTC().Format(time.RFC3339)
	st.run.FinishedAt.String = now
	st.run.FinishedAt.Valid = true
	if err := st.q.FinishImportRun(ctx, st.run); err != nil {
		return err
	}
	return st.q.SetSourceCheckedAt(ctx, st.source.ID, now)
}
