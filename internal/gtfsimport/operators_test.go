package gtfsimport

import (
	"context"
	"testing"
	"unicode/utf8"

	"github.com/jamespfennell/gtfs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gladetimes/tapaastimes/busdb"
	"github.com/gladetimes/tapaastimes/internal/config"
)

func TestHandleAgencyCreatesOperator(t *testing.T) {
	im, st := newTestState(t, config.Source{Name: "Dublin"})
	ctx := context.Background()

	st.feed.Agencies = []gtfs.Agency{
		{Id: "DUB", Name: "Dublin Bus", Url: "https://dublinbus.example"},
	}
	require.NoError(t, im.importOperators(ctx, st))
	assert.Equal(t, map[string]string{"DUB": "DUB"}, st.operators)

	op, err := st.q.GetOperatorByNOC(ctx, "DUB")
	require.NoError(t, err)
	assert.Equal(t, "Dublin Bus", op.Name)
	assert.Equal(t, "https://dublinbus.example", op.URL)
}

func TestHandleAgencyNOCFallbacks(t *testing.T) {
	t.Run("configured noc", func(t *testing.T) {
		im, st := newTestState(t, config.Source{
			Name: "Dublin",
			GTFS: config.GTFSSettings{OperatorNOC: "DUB"},
		})
		noc, err := im.handleAgency(context.Background(), st, &gtfs.Agency{Name: "Dublin Bus"})
		require.NoError(t, err)
		assert.Equal(t, "DUB", noc)
	})

	t.Run("first word of name, capped at ten characters", func(t *testing.T) {
		im, st := newTestState(t, config.Source{Name: "Dublin"})
		noc, err := im.handleAgency(context.Background(), st,
			&gtfs.Agency{Name: "Serviciocompleto de Autobuses"})
		require.NoError(t, err)
		assert.Equal(t, "Servicioco", noc)
	})

	t.Run("cap lands on a rune boundary", func(t *testing.T) {
		im, st := newTestState(t, config.Source{Name: "Fortaleza"})
		noc, err := im.handleAgency(context.Background(), st,
			&gtfs.Agency{Name: "Companhiaçu de Transportes"})
		require.NoError(t, err)
		assert.Equal(t, "Companhia", noc)
		assert.True(t, utf8.ValidString(noc))
	})

	t.Run("source name as last resort", func(t *testing.T) {
		im, st := newTestState(t, config.Source{Name: "Dublin Area"})
		noc, err := im.handleAgency(context.Background(), st, &gtfs.Agency{})
		require.NoError(t, err)
		assert.Equal(t, "Dublin", noc)
	})

	t.Run("agency prefix", func(t *testing.T) {
		im, st := newTestState(t, config.Source{
			Name: "Dublin",
			GTFS: config.GTFSSettings{AgencyPrefix: "ie-"},
		})
		noc, err := im.handleAgency(context.Background(), st, &gtfs.Agency{Id: "DUB"})
		require.NoError(t, err)
		assert.Equal(t, "ie-DUB", noc)
	})
}

func TestHandleAgencyMatchesByName(t *testing.T) {
	im, st := newTestState(t, config.Source{
		Name: "Dublin",
		GTFS: config.GTFSSettings{OperatorMatching: "name"},
	})
	ctx := context.Background()

	require.NoError(t, st.q.CreateOperator(ctx, busdb.Operator{
		NOC: "DUB", Name: "Dublin Bus", URL: "https://old.example",
	}))

	// a matched operator keeps its NOC and gets the feed's URL
	noc, err := im.handleAgency(ctx, st, &gtfs.Agency{
		Id: "something-else", Name: "Dublin Bus", Url: "https://new.example",
	})
	require.NoError(t, err)
	assert.Equal(t, "DUB", noc)

	op, err := st.q.GetOperatorByNOC(ctx, "DUB")
	require.NoError(t, err)
	assert.Equal(t, "https://new.example", op.URL)
}

func TestHandleAgencyMatchesByURL(t *testing.T) {
	im, st := newTestState(t, config.Source{
		Name: "Dublin",
		GTFS: config.GTFSSettings{OperatorMatching: "url"},
	})
	ctx := context.Background()

	require.NoError(t, st.q.CreateOperator(ctx, busdb.Operator{
		NOC: "DUB", Name: "Dublin Bus", URL: "https://dublinbus.example",
	}))

	noc, err := im.handleAgency(ctx, st, &gtfs.Agency{
		Id: "1", Name: "Dublin Bus Feed", Url: "https://dublinbus.example",
	})
	require.NoError(t, err)
	assert.Equal(t, "DUB", noc)

	// no URL to match on means a fresh operator
	noc, err = im.handleAgency(ctx, st, &gtfs.Agency{Id: "2", Name: "Other"})
	require.NoError(t, err)
	assert.Equal(t, "2", noc)
}

func TestFirstWord(t *testing.T) {
	assert.Equal(t, "Dublin", firstWord("Dublin Bus"))
	assert.Equal(t, "Solo", firstWord("Solo"))
	assert.Equal(t, "Translinkb", firstWord("Translinkbelfast"))
	assert.Equal(t, "", firstWord(""))
}
