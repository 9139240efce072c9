package vehicles

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gladetimes/tapaastimes/internal/config"
)

func TestRadarFetchReports(t *testing.T) {
	items := []radarItem{
		{UniqueName: "EP07-1001", Name: "IC 3500 Warszawa", Points: "21.01,52.23"},
		{UniqueName: "EN57-200", Name: "Osobowy", Points: "19.45,51.75"},
		{Name: "no unique name", Points: "19.45,51.75"},
	}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewEncoder(w).Encode(items))
	}))
	defer server.Close()

	s := NewRadarSource("testradar", config.RealtimeSettings{URL: server.URL})

	reports, err := s.FetchReports(context.Background())
	require.NoError(t, err)
	require.Len(t, reports, 2)

	assert.Equal(t, "EP07-1001", reports[0].VehicleCode)
	assert.Equal(t, "IC 3500 Warszawa", reports[0].RouteName)
	assert.Equal(t, "IC 3500 Warszawa", reports[0].Destination)
	assert.True(t, reports[0].HasPosition)
	assert.Equal(t, 52.23, reports[0].Lat)
	assert.Equal(t, 21.01, reports[0].Lon)
	assert.Contains(t, reports[0].Raw, "EP07-1001")

	// vehicles that have not moved are dropped on the next fetch
	items[0].Points = "21.02,52.24"
	reports, err = s.FetchReports(context.Background())
	require.NoError(t, err)
	require.Len(t, reports, 1)
	assert.Equal(t, "EP07-1001", reports[0].VehicleCode)
}

func TestRadarNormaliseTruncates(t *testing.T) {
	s := NewRadarSource("testradar", config.RealtimeSettings{})

	report, err := s.normalise(radarItem{
		UniqueName: strings.Repeat("x", 60),
		Name:       strings.Repeat("y", 300),
		Points:     "1,2",
	})
	require.NoError(t, err)
	assert.Len(t, report.VehicleCode, 50)
	assert.Len(t, report.RouteName, 64)
	assert.Len(t, report.Destination, 255)

	// multi-byte runes straddling the limit are dropped whole
	report, err = s.normalise(radarItem{
		UniqueName: strings.Repeat("x", 49) + "ę",
		Name:       strings.Repeat("y", 63) + "ż",
		Points:     "1,2",
	})
	require.NoError(t, err)
	assert.Equal(t, strings.Repeat("x", 49), report.VehicleCode)
	assert.Equal(t, strings.Repeat("y", 63), report.RouteName)
	assert.True(t, utf8.ValidString(report.RouteName))
	assert.Equal(t, strings.Repeat("y", 63)+"ż", report.Destination)
}

func TestParsePoints(t *testing.T) {
	lon, lat, err := parsePoints("21.01, 52.23")
	require.NoError(t, err)
	assert.Equal(t, 21.01, lon)
	assert.Equal(t, 52.23, lat)

	_, _, err = parsePoints("21.01")
	assert.Error(t, err)
	_, _, err = parsePoints("east,north")
	assert.Error(t, err)
	_, _, err = parsePoints("181,0")
	assert.Error(t, err)
	_, _, err = parsePoints("0,91")
	assert.Error(t, err)
}
