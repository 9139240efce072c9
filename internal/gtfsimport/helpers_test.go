package gtfsimport

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/jamespfennell/gtfs"
	"github.com/stretchr/testify/require"

	"github.com/gladetimes/tapaastimes/busdb"
	"github.com/gladetimes/tapaastimes/internal/config"
)

func newTestState(t *testing.T, cfg config.Source) (*Importer, *runState) {
	t.Helper()

	client, err := busdb.NewClient(busdb.NewConfig(":memory:", false))
	require.NoError(t, err, "Failed to create client")
	t.Cleanup(func() { _ = client.Close() })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	im := New(client, &cfg, t.TempDir(), logger)

	source, err := client.Queries.GetOrCreateSource(context.Background(), cfg.Name, cfg.URL)
	require.NoError(t, err)

	st := &runState{
		q:         client.Queries,
		source:    source,
		feed:      &gtfs.Static{},
		run:       busdb.ImportRun{ID: "test-run", SourceID: source.ID},
		operators: map[string]string{},
		routes:    map[string]busdb.Route{},
		routeNOC:  map[string]string{},
		services:  map[int64]bool{},
		calendars: map[string]int64{},
		stops:     map[string]StopPoint{},
	}
	require.NoError(t, st.q.CreateImportRun(context.Background(), st.run))
	return im, st
}

func floatPtr(f float64) *float64 {
	return &f
}
