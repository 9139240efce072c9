package busdb

import (
	"context"
	"fmt"
)

// RouteLinkKey identifies a directed stop pair on a service
type RouteLinkKey struct {
	ServiceID int64
	FromStop  string
	ToStop    string
}

// GetRouteLinksForSource fetches every existing route link reachable from the
// source's services, keyed for in-memory matching during a run
func (q *Queries) GetRouteLinksForSource(ctx context.Context, sourceID int64) (map[RouteLinkKey]RouteLink, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT rl.id, rl.service_id, rl.from_stop, rl.to_stop, rl.geometry
		 FROM route_links rl
		 JOIN services s ON s.id = rl.service_id
		 WHERE s.source_id = ?`, sourceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	links := make(map[RouteLinkKey]RouteLink)
	for rows.Next() {
		var rl RouteLink
		if err := rows.Scan(&rl.ID, &rl.ServiceID, &rl.FromStop, &rl.ToStop, &rl.Geometry); err != nil {
			return nil, err
		}
		links[RouteLinkKey{rl.ServiceID, rl.FromStop, rl.ToStop}] = rl
	}
	return links, rows.Err()
}

// UpsertRouteLink inserts a new route link or updates the geometry of an
// existing one with the same (service, from, to) key
func (q *Queries) UpsertRouteLink(ctx context.Context, rl RouteLink) error {
	_, err := q.db.ExecContext(ctx,
		`INSERT INTO route_links (service_id, from_stop, to_stop, geometry)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT (service_id, from_stop, to_stop) DO UPDATE SET
		 geometry = excluded.geometry`,
		rl.ServiceID, rl.FromStop, rl.ToStop, rl.Geometry)
	if err != nil {
		return fmt.Errorf("error upserting route link: %w", err)
	}
	return nil
}

// CountRouteLinksForService reports how many links a service has
func (q *Queries) CountRouteLinksForService(ctx context.Context, serviceID int64) (int64, error) {
	row := q.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM route_links WHERE service_id = ?`, serviceID)
	var n int64
	err := row.Scan(&n)
	return n, err
}
