package vehicles

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gladetimes/tapaastimes/busdb"
	"github.com/gladetimes/tapaastimes/internal/logging"
)

type stubSource struct {
	name    string
	reports []Report
	err     error
}

func (s *stubSource) Name() string { return s.name }

func (s *stubSource) FetchReports(ctx context.Context) ([]Report, error) {
	return s.reports, s.err
}

func TestPollOnce(t *testing.T) {
	client, err := busdb.NewClient(busdb.NewConfig(":memory:", false))
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	ctx := context.Background()

	feed := &stubSource{
		name: "testfeed",
		reports: []Report{
			{VehicleCode: "bus-1", HasPosition: true, Lat: 1, Lon: 2, RecordedAt: time.Now().UTC()},
			{VehicleCode: "bus-2", HasPosition: true, Lat: 3, Lon: 4, RecordedAt: time.Now().UTC()},
		},
	}

	p := NewPoller(client, testLogger())
	require.NoError(t, p.AddSource(ctx, feed, "", time.UTC, time.Minute))
	require.Len(t, p.runners, 1)

	p.pollOnce(logging.WithLogger(ctx, testLogger()), p.runners[0])

	stats := p.Stats()["testfeed"]
	assert.Equal(t, int64(1), stats.Fetches)
	assert.Equal(t, int64(0), stats.FetchErrors)
	assert.Equal(t, int64(2), stats.Reports)
	assert.Equal(t, int64(2), stats.Unmatched)
	assert.False(t, stats.LastFetch.IsZero())

	// both vehicles were recorded against the same source
	source, err := client.Queries.GetSourceByName(ctx, "testfeed")
	require.NoError(t, err)
	_, created, err := client.Queries.GetOrCreateVehicle(ctx, source.ID, "bus-1")
	require.NoError(t, err)
	assert.False(t, created)
}

func TestPollOnceCountsFetchErrors(t *testing.T) {
	client, err := busdb.NewClient(busdb.NewConfig(":memory:", false))
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	ctx := context.Background()

	feed := &stubSource{name: "brokenfeed", err: errors.New("connection refused")}

	p := NewPoller(client, testLogger())
	require.NoError(t, p.AddSource(ctx, feed, "", time.UTC, time.Minute))

	p.pollOnce(ctx, p.runners[0])
	p.pollOnce(ctx, p.runners[0])

	stats := p.Stats()["brokenfeed"]
	assert.Equal(t, int64(2), stats.Fetches)
	assert.Equal(t, int64(2), stats.FetchErrors)
	assert.Equal(t, int64(0), stats.Reports)
}
