package vehicles

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/gladetimes/tapaastimes/busdb"
	"github.com/gladetimes/tapaastimes/internal/logging"
)

// SourceStats are the counters one polled source has accumulated.
type SourceStats struct {
	Fetches         int64     `json:"fetches"`
	FetchErrors     int64     `json:"fetch_errors"`
	Reports         int64     `json:"reports"`
	MatchedTrips    int64     `json:"matched_trips"`
	MatchedServices int64     `json:"matched_services"`
	Unmatched       int64     `json:"unmatched"`
	LastFetch       time.Time `json:"last_fetch"`
}

// runner pairs one live feed with its stored source row and matcher.
type runner struct {
	feed     Source
	source   busdb.Source
	matcher  *Matcher
	interval time.Duration
}

// Poller polls every configured live feed on its own interval and matches
// the reports as they come in.
type Poller struct {
	client  *busdb.Client
	logger  *slog.Logger
	runners []*runner

	mu    sync.Mutex
	stats map[string]*SourceStats
}

func NewPoller(client *busdb.Client, logger *slog.Logger) *Poller {
	return &Poller{
		client: client,
		logger: logger,
		stats:  map[string]*SourceStats{},
	}
}

// AddSource registers a live feed. The source row is created up front so
// every report of the run belongs to the same source id.
func (p *Poller) AddSource(ctx context.Context, feed Source, url string, tz *time.Location, interval time.Duration) error {
	source, err := p.client.Queries.GetOrCreateSource(ctx, feed.Name(), url)
	if err != nil {
		return err
	}
	p.runners = append(p.runners, &runner{
		feed:     feed,
		source:   source,
		matcher:  NewMatcher(p.client.Queries, tz, p.logger.With(slog.String("source", feed.Name()))),
		interval: interval,
	})
	p.mu.Lock()
	p.stats[feed.Name()] = &SourceStats{}
	p.mu.Unlock()
	return nil
}

// Run polls until the context is cancelled. Fetch errors are logged and
// retried on the next tick rather than stopping the loop.
func (p *Poller) Run(ctx context.Context) error {
	group, ctx := errgroup.WithContext(ctx)
	for _, r := range p.runners {
		group.Go(func() error {
			return p.poll(ctx, r)
		})
	}
	return group.Wait()
}

func (p *Poller) poll(ctx context.Context, r *runner) error {
	ctx = logging.WithLogger(ctx, p.logger.With(slog.String("source", r.feed.Name())))
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	p.pollOnce(ctx, r)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			p.pollOnce(ctx, r)
		}
	}
}

func (p *Poller) pollOnce(ctx context.Context, r *runner) {
	logger := logging.FromContext(ctx)
	reports, err := r.feed.FetchReports(ctx)
	p.mu.Lock()
	stats := p.stats[r.feed.Name()]
	stats.Fetches++
	stats.LastFetch = time.Now().UTC()
	if err != nil {
		stats.FetchErrors++
	}
	p.mu.Unlock()
	if err != nil {
		if ctx.Err() == nil {
			logger.Warn("fetch failed", slog.String("error", err.Error()))
		}
		return
	}

	var matchedTrips, matchedServices, unmatched int64
	for _, report := range reports {
		result, err := r.matcher.Match(ctx, r.source, report)
		if err != nil {
			logger.Warn("matching report failed",
				slog.String("vehicle", report.VehicleCode),
				slog.String("error", err.Error()))
			continue
		}
		switch {
		case result.MatchedTrip:
			matchedTrips++
		case result.MatchedService:
			matchedServices++
		default:
			unmatched++
		}
	}

	p.mu.Lock()
	stats.Reports += int64(len(reports))
	stats.MatchedTrips += matchedTrips
	stats.MatchedServices += matchedServices
	stats.Unmatched += unmatched
	p.mu.Unlock()

	logger.Info("poll finished",
		slog.Int("reports", len(reports)),
		slog.Int64("matched_trips", matchedTrips),
		slog.Int64("unmatched", unmatched))
}

// Stats returns a copy of the per-source counters.
func (p *Poller) Stats() map[string]SourceStats {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make(map[string]SourceStats, len(p.stats))
	for name, stats := range p.stats {
		out[name] = *stats
	}
	return out
}
