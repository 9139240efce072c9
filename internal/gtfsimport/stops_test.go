package gtfsimport

import (
	"context"
	"database/sql"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/jamespfennell/gtfs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gladetimes/tapaastimes/busdb"
	"github.com/gladetimes/tapaastimes/internal/config"
)

func TestImportStops(t *testing.T) {
	im, st := newTestState(t, config.Source{
		Name: "Dublin",
		GTFS: config.GTFSSettings{StopPrefix: "dublin-"},
	})
	ctx := context.Background()

	st.feed.Stops = []gtfs.Stop{
		{Id: "1", Name: "High Street, stop B", Latitude: floatPtr(53.34), Longitude: floatPtr(-6.26)},
		{Id: "2", Name: "An Extremely Long Stop Name That Goes On And On And On",
			Latitude: floatPtr(53.35), Longitude: floatPtr(-6.27)},
		{Id: "3", Name: "No Position"},
		{Id: "4", Name: strings.Repeat("a", 47) + "é",
			Latitude: floatPtr(53.36), Longitude: floatPtr(-6.28)},
	}
	require.NoError(t, im.importStops(ctx, st))

	stop, err := st.q.GetStop(ctx, "dublin-1")
	require.NoError(t, err)
	assert.Equal(t, "High Street", stop.CommonName)
	assert.Equal(t, "stop B", stop.Indicator)
	assert.Equal(t, 53.34, stop.Lat)

	stop, err = st.q.GetStop(ctx, "dublin-2")
	require.NoError(t, err)
	assert.Len(t, stop.CommonName, 48)

	// truncation never splits a multi-byte rune
	stop, err = st.q.GetStop(ctx, "dublin-4")
	require.NoError(t, err)
	assert.Equal(t, strings.Repeat("a", 47), stop.CommonName)
	assert.True(t, utf8.ValidString(stop.CommonName))

	_, err = st.q.GetStop(ctx, "dublin-3")
	assert.ErrorIs(t, err, sql.ErrNoRows)

	// positions are kept for later phases
	assert.Equal(t, StopPoint{Code: "dublin-1", Lat: 53.34, Lon: -6.26}, st.stops["dublin-1"])
	assert.NotContains(t, st.stops, "dublin-3")
}

func TestImportStopsLeavesOtherSourcesAlone(t *testing.T) {
	im, st := newTestState(t, config.Source{
		Name: "Dublin",
		GTFS: config.GTFSSettings{StopPrefix: ""},
	})
	ctx := context.Background()

	other, err := st.q.GetOrCreateSource(ctx, "Other", "")
	require.NoError(t, err)
	require.NoError(t, st.q.CreateStops(ctx, []busdb.Stop{{
		AtcoCode: "shared-1", CommonName: "Official Name", Lat: 1, Lon: 2,
		SourceID: sql.NullInt64{Int64: other.ID, Valid: true}, Active: true,
	}}))

	st.feed.Stops = []gtfs.Stop{
		{Id: "shared-1", Name: "Feed Name", Latitude: floatPtr(9), Longitude: floatPtr(9)},
	}
	require.NoError(t, im.importStops(ctx, st))

	stop, err := st.q.GetStop(ctx, "shared-1")
	require.NoError(t, err)
	assert.Equal(t, "Official Name", stop.CommonName)
	assert.Equal(t, 1.0, stop.Lat)

	// the stored position wins for this run too
	assert.Equal(t, StopPoint{Code: "shared-1", Lat: 1, Lon: 2}, st.stops["shared-1"])
}

func TestImportStopsUpdatesOnlyChangedStops(t *testing.T) {
	im, st := newTestState(t, config.Source{
		Name: "Dublin",
		GTFS: config.GTFSSettings{StopPrefix: "dublin-"},
	})
	ctx := context.Background()

	st.feed.Stops = []gtfs.Stop{
		{Id: "1", Name: "Same", Latitude: floatPtr(53.34), Longitude: floatPtr(-6.26)},
		{Id: "2", Name: "Renamed", Latitude: floatPtr(53.35), Longitude: floatPtr(-6.27)},
	}
	require.NoError(t, im.importStops(ctx, st))

	st.feed.Stops[1].Name = "Renamed Again"
	require.NoError(t, im.importStops(ctx, st))

	stop, err := st.q.GetStop(ctx, "dublin-2")
	require.NoError(t, err)
	assert.Equal(t, "Renamed Again", stop.CommonName)
}

func TestAssignAdminAreas(t *testing.T) {
	im, st := newTestState(t, config.Source{
		Name: "Dublin",
		GTFS: config.GTFSSettings{StopPrefix: ""},
	})
	ctx := context.Background()

	require.NoError(t, st.q.CreateRegion(ctx, busdb.Region{ID: "L", Name: "Leinster"}))
	require.NoError(t, st.q.CreateAdminArea(ctx, busdb.AdminArea{ID: "700", RegionID: "L", Name: "Dublin"}))

	st.feed.Stops = []gtfs.Stop{
		{Id: "700123", Name: "Known Area", Latitude: floatPtr(1), Longitude: floatPtr(1)},
		{Id: "999123", Name: "Unknown Area", Latitude: floatPtr(1), Longitude: floatPtr(1)},
	}
	require.NoError(t, im.importStops(ctx, st))

	stop, err := st.q.GetStop(ctx, "700123")
	require.NoError(t, err)
	require.True(t, stop.AdminAreaID.Valid)
	assert.Equal(t, "700", stop.AdminAreaID.String)

	stop, err = st.q.GetStop(ctx, "999123")
	require.NoError(t, err)
	assert.False(t, stop.AdminAreaID.Valid)
}

func TestAssignAdminAreasFromRegion(t *testing.T) {
	im, st := newTestState(t, config.Source{
		Name: "Dublin",
		GTFS: config.GTFSSettings{StopPrefix: "dublin-", RegionHandling: "L"},
	})
	ctx := context.Background()

	require.NoError(t, st.q.CreateRegion(ctx, busdb.Region{ID: "L", Name: "Leinster"}))
	require.NoError(t, st.q.CreateAdminArea(ctx, busdb.AdminArea{ID: "700", RegionID: "L", Name: "Dublin"}))

	st.feed.Stops = []gtfs.Stop{
		{Id: "1", Name: "Somewhere", Latitude: floatPtr(1), Longitude: floatPtr(1)},
	}
	require.NoError(t, im.importStops(ctx, st))

	stop, err := st.q.GetStop(ctx, "dublin-1")
	require.NoError(t, err)
	require.True(t, stop.AdminAreaID.Valid)
	assert.Equal(t, "700", stop.AdminAreaID.String)
}
