package busdb

import (
	"context"
	"database/sql"
	"fmt"
)

func (q *Queries) GetRouteByCode(ctx context.Context, sourceID int64, code string) (Route, error) {
	row := q.db.QueryRowContext(ctx,
		`SELECT id, source_id, code, line_name, description, service_id
		 FROM routes WHERE source_id = ? AND code = ?`, sourceID, code)
	var r Route
	err := row.Scan(&r.ID, &r.SourceID, &r.Code, &r.LineName, &r.Description, &r.ServiceID)
	return r, err
}

func (q *Queries) GetRoute(ctx context.Context, id int64) (Route, error) {
	row := q.db.QueryRowContext(ctx,
		`SELECT id, source_id, code, line_name, description, service_id
		 FROM routes WHERE id = ?`, id)
	var r Route
	err := row.Scan(&r.ID, &r.SourceID, &r.Code, &r.LineName, &r.Description, &r.ServiceID)
	return r, err
}

func (q *Queries) CreateRoute(ctx context.Context, r Route) (int64, error) {
	res, err := q.db.ExecContext(ctx,
		`INSERT INTO routes (source_id, code, line_name, description, service_id)
		 VALUES (?, ?, ?, ?, ?)`,
		r.SourceID, r.Code, r.LineName, r.Description, r.ServiceID)
	if err != nil {
		return 0, fmt.Errorf("error creating route: %w", err)
	}
	return res.LastInsertId()
}

func (q *Queries) UpdateRoute(ctx context.Context, r Route) error {
	_, err := q.db.ExecContext(ctx,
		`UPDATE routes SET line_name = ?, description = ?, service_id = ?
		 WHERE id = ?`,
		r.LineName, r.Description, r.ServiceID, r.ID)
	return err
}

// DeleteRouteTrips removes every trip of a route together with its stop times,
// so a re-imported route never holds a mixture of two import generations
func (q *Queries) DeleteRouteTrips(ctx context.Context, routeID int64) error {
	if _, err := q.db.ExecContext(ctx,
		`DELETE FROM stop_times WHERE trip_id IN (SELECT id FROM trips WHERE route_id = ?)`,
		routeID); err != nil {
		return err
	}
	_, err := q.db.ExecContext(ctx, `DELETE FROM trips WHERE route_id = ?`, routeID)
	return err
}

// DetachOldRoutes clears the service reference of every route of the source
// that was not recreated in this run
func (q *Queries) DetachOldRoutes(ctx context.Context, sourceID int64, keepRouteIDs []int64) (int64, error) {
	query := `UPDATE routes SET service_id = NULL
		WHERE source_id = ? AND id NOT IN (` + placeholders(len(keepRouteIDs)) + `)`

	args := make([]interface{}, 0, len(keepRouteIDs)+1)
	args = append(args, sourceID)
	for _, id := range keepRouteIDs {
		args = append(args, id)
	}

	res, err := q.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// FindServiceByRouteCodeSuffix resolves a service via a route code ending in
// the given suffix; an ambiguous match (more than one service) returns no rows
func (q *Queries) FindServiceByRouteCodeSuffix(ctx context.Context, sourceID int64, suffix string) (Service, error) {
	rows, err := q.db.QueryContext(ctx, fmt.Sprintf(
		`SELECT DISTINCT %s FROM services s
		 JOIN routes r ON r.service_id = s.id
		 WHERE r.source_id = ? AND substr(r.code, -length(?)) = ?`, serviceColumns),
		sourceID, suffix, suffix)
	if err != nil {
		return Service{}, err
	}
	defer rows.Close()

	var found []Service
	for rows.Next() {
		var s Service
		if err := rows.Scan(&s.ID, &s.SourceID, &s.ServiceCode, &s.LineName, &s.Description,
			&s.Mode, &s.Current, &s.RegionID, &s.Geometry, &s.SearchText); err != nil {
			return Service{}, err
		}
		found = append(found, s)
	}
	if err := rows.Err(); err != nil {
		return Service{}, err
	}
	if len(found) != 1 {
		return Service{}, sql.ErrNoRows
	}
	return found[0], nil
}
