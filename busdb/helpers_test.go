package busdb

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T) *Client {
	t.Helper()

	client, err := NewClient(NewConfig(":memory:", false))
	require.NoError(t, err, "Failed to create client")
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func createTestSource(t *testing.T, q *Queries, name string) Source {
	t.Helper()

	source, err := q.GetOrCreateSource(context.Background(), name, "https://example.com/"+name+".zip")
	require.NoError(t, err)
	return source
}

func createTestService(t *testing.T, q *Queries, sourceID int64, code, lineName, description string) Service {
	t.Helper()

	service := Service{
		SourceID:    sourceID,
		ServiceCode: code,
		LineName:    lineName,
		Description: description,
		Mode:        "bus",
		Current:     true,
	}
	id, err := q.CreateService(context.Background(), service)
	require.NoError(t, err)
	service.ID = id
	return service
}

func createTestRoute(t *testing.T, q *Queries, sourceID, serviceID int64, code string) Route {
	t.Helper()

	route := Route{
		SourceID:  sourceID,
		Code:      code,
		ServiceID: sql.NullInt64{Int64: serviceID, Valid: serviceID != 0},
	}
	id, err := q.CreateRoute(context.Background(), route)
	require.NoError(t, err)
	route.ID = id
	return route
}
