package busdb

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetOrCreateVehicle(t *testing.T) {
	client := newTestClient(t)
	q := client.Queries
	ctx := context.Background()

	source := createTestSource(t, q, "testfeed")

	v, created, err := q.GetOrCreateVehicle(ctx, source.ID, "bus-1")
	require.NoError(t, err)
	assert.True(t, created)
	assert.NotZero(t, v.ID)

	again, created, err := q.GetOrCreateVehicle(ctx, source.ID, "bus-1")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, v.ID, again.ID)

	// same code under a different source is a different vehicle
	other := createTestSource(t, q, "otherfeed")
	v2, created, err := q.GetOrCreateVehicle(ctx, other.ID, "bus-1")
	require.NoError(t, err)
	assert.True(t, created)
	assert.NotEqual(t, v.ID, v2.ID)
}

func TestSetVehicleLatestJourney(t *testing.T) {
	client := newTestClient(t)
	q := client.Queries
	ctx := context.Background()

	source := createTestSource(t, q, "testfeed")
	v, _, err := q.GetOrCreateVehicle(ctx, source.ID, "bus-1")
	require.NoError(t, err)

	journeyID, err := q.CreateVehicleJourney(ctx, VehicleJourney{
		VehicleID: v.ID,
		SourceID:  source.ID,
		Code:      "1234",
		StartAt:   "2026-08-31T08:00:00Z",
		RouteName: "7",
	})
	require.NoError(t, err)

	require.NoError(t, q.SetVehicleLatestJourney(ctx, v.ID, journeyID, `{"trip":"1234"}`))

	stored, err := q.GetVehicleByCode(ctx, source.ID, "bus-1")
	require.NoError(t, err)
	require.True(t, stored.LatestJourneyID.Valid)
	assert.Equal(t, journeyID, stored.LatestJourneyID.Int64)
	assert.Equal(t, `{"trip":"1234"}`, stored.LatestJourneyData)

	n, err := q.CountJourneysForVehicle(ctx, v.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestFindCurrentServiceByRouteCode(t *testing.T) {
	client := newTestClient(t)
	q := client.Queries
	ctx := context.Background()

	source := createTestSource(t, q, "testfeed")
	service := createTestService(t, q, source.ID, "100", "100", "City Centre")
	createTestRoute(t, q, source.ID, service.ID, "route-100")

	found, err := q.FindCurrentServiceByRouteCode(ctx, source.ID, "route-100")
	require.NoError(t, err)
	assert.Equal(t, service.ID, found.ID)

	_, err = q.FindCurrentServiceByRouteCode(ctx, source.ID, "route-999")
	assert.ErrorIs(t, err, sql.ErrNoRows)

	// retired services are never matched
	_, err = q.RetireServices(ctx, source.ID, nil)
	require.NoError(t, err)
	_, err = q.FindCurrentServiceByRouteCode(ctx, source.ID, "route-100")
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestFindCurrentServiceByTripCode(t *testing.T) {
	client := newTestClient(t)
	q := client.Queries
	ctx := context.Background()

	source := createTestSource(t, q, "testfeed")
	service := createTestService(t, q, source.ID, "100", "100", "City Centre")
	route := createTestRoute(t, q, source.ID, service.ID, "route-100")

	trips := []*Trip{{RouteID: route.ID, TicketMachineCode: "trip-1"}}
	require.NoError(t, q.CreateTrips(ctx, trips))

	found, err := q.FindCurrentServiceByTripCode(ctx, source.ID, "trip-1")
	require.NoError(t, err)
	assert.Equal(t, service.ID, found.ID)

	_, err = q.FindCurrentServiceByTripCode(ctx, source.ID, "trip-2")
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestFindServiceByRouteCodeSuffix(t *testing.T) {
	client := newTestClient(t)
	q := client.Queries
	ctx := context.Background()

	source := createTestSource(t, q, "testfeed")
	service := createTestService(t, q, source.ID, "100", "100", "City Centre")
	createTestRoute(t, q, source.ID, service.ID, "city_1693")

	found, err := q.FindServiceByRouteCodeSuffix(ctx, source.ID, "_1693")
	require.NoError(t, err)
	assert.Equal(t, service.ID, found.ID)

	// the underscore must match literally, not as a wildcard
	createTestRoute(t, q, source.ID, service.ID, "cityX1694")
	_, err = q.FindServiceByRouteCodeSuffix(ctx, source.ID, "_1694")
	assert.ErrorIs(t, err, sql.ErrNoRows)

	// a suffix shared by routes of two services is ambiguous
	other := createTestService(t, q, source.ID, "200", "200", "Suburbs")
	createTestRoute(t, q, source.ID, other.ID, "town_1693")
	_, err = q.FindServiceByRouteCodeSuffix(ctx, source.ID, "_1693")
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestCreateVehicleLocation(t *testing.T) {
	client := newTestClient(t)
	q := client.Queries
	ctx := context.Background()

	source := createTestSource(t, q, "testfeed")
	v, _, err := q.GetOrCreateVehicle(ctx, source.ID, "bus-1")
	require.NoError(t, err)
	journeyID, err := q.CreateVehicleJourney(ctx, VehicleJourney{
		VehicleID: v.ID, SourceID: source.ID, StartAt: "2026-08-31T08:00:00Z",
	})
	require.NoError(t, err)

	id, err := q.CreateVehicleLocation(ctx, VehicleLocation{
		JourneyID:  journeyID,
		Lat:        54.6,
		Lon:        -5.9,
		Heading:    sql.NullFloat64{Float64: 90, Valid: true},
		Occupancy:  "Seats available",
		RecordedAt: "2026-08-31T08:00:05Z",
	})
	require.NoError(t, err)
	assert.NotZero(t, id)
}
