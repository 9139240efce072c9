package vehicles

import (
	"context"
	"database/sql"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/gladetimes/tapaastimes/busdb"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestMatcher(t *testing.T) (*Matcher, busdb.Source) {
	t.Helper()

	client, err := busdb.NewClient(busdb.NewConfig(":memory:", false))
	require.NoError(t, err, "Failed to create client")
	t.Cleanup(func() { _ = client.Close() })

	source, err := client.Queries.GetOrCreateSource(context.Background(), "testfeed", "")
	require.NoError(t, err)

	return NewMatcher(client.Queries, time.UTC, testLogger()), source
}

// createTestTimetable stores one current service with one route and returns
// them, for reports to match against.
func createTestTimetable(t *testing.T, q *busdb.Queries, sourceID int64, routeCode, lineName string) (busdb.Service, busdb.Route) {
	t.Helper()
	ctx := context.Background()

	service := busdb.Service{
		SourceID:    sourceID,
		ServiceCode: routeCode,
		LineName:    lineName,
		Mode:        "bus",
		Current:     true,
	}
	id, err := q.CreateService(ctx, service)
	require.NoError(t, err)
	service.ID = id

	route := busdb.Route{
		SourceID:  sourceID,
		Code:      routeCode,
		LineName:  lineName,
		ServiceID: sql.NullInt64{Int64: id, Valid: true},
	}
	route.ID, err = q.CreateRoute(ctx, route)
	require.NoError(t, err)
	return service, route
}

func createTestTrip(t *testing.T, q *busdb.Queries, trip busdb.Trip) busdb.Trip {
	t.Helper()

	trips := []*busdb.Trip{&trip}
	require.NoError(t, q.CreateTrips(context.Background(), trips))
	return *trips[0]
}
