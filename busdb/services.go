package busdb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

const serviceColumns = `s.id, s.source_id, s.service_code, s.line_name, s.description,
	s.mode, s.current, s.region_id, s.geometry, s.search_text`

func scanService(row *sql.Row) (Service, error) {
	var s Service
	err := row.Scan(&s.ID, &s.SourceID, &s.ServiceCode, &s.LineName, &s.Description,
		&s.Mode, &s.Current, &s.RegionID, &s.Geometry, &s.SearchText)
	return s, err
}

// operatorScope restricts a service query to services linked to the given
// operator, or to services with no operator link when noc is empty
func operatorScope(noc string) (string, []interface{}) {
	if noc == "" {
		return `NOT EXISTS (SELECT 1 FROM service_operators so WHERE so.service_id = s.id)`, nil
	}
	return `EXISTS (SELECT 1 FROM service_operators so
		WHERE so.service_id = s.id AND so.operator_noc = ?)`, []interface{}{noc}
}

// FindServiceByRouteCode finds the service of an existing route with the same
// (source, code), scoped to the operator
func (q *Queries) FindServiceByRouteCode(ctx context.Context, sourceID int64, code, operatorNOC string) (Service, error) {
	scope, args := operatorScope(operatorNOC)
	query := fmt.Sprintf(`SELECT %s FROM services s
		JOIN routes r ON r.service_id = s.id
		WHERE r.source_id = ? AND r.code = ? AND %s
		ORDER BY s.id LIMIT 1`, serviceColumns, scope)
	return scanService(q.db.QueryRowContext(ctx, query, append([]interface{}{sourceID, code}, args...)...))
}

// FindServiceByServiceCode finds a service whose stored external code matches,
// scoped to the operator
func (q *Queries) FindServiceByServiceCode(ctx context.Context, code, operatorNOC string) (Service, error) {
	scope, args := operatorScope(operatorNOC)
	query := fmt.Sprintf(`SELECT %s FROM services s
		WHERE s.service_code = ? AND %s
		ORDER BY s.id LIMIT 1`, serviceColumns, scope)
	return scanService(q.db.QueryRowContext(ctx, query, append([]interface{}{code}, args...)...))
}

// FindServiceByLineName finds a service by exact case-insensitive line name,
// scoped to the operator
func (q *Queries) FindServiceByLineName(ctx context.Context, lineName, operatorNOC string) (Service, error) {
	scope, args := operatorScope(operatorNOC)
	query := fmt.Sprintf(`SELECT %s FROM services s
		WHERE s.line_name = ? COLLATE NOCASE AND %s
		ORDER BY s.id LIMIT 1`, serviceColumns, scope)
	return scanService(q.db.QueryRowContext(ctx, query, append([]interface{}{lineName}, args...)...))
}

// FindServiceByDescription finds a service by exact description, scoped to the
// operator
func (q *Queries) FindServiceByDescription(ctx context.Context, description, operatorNOC string) (Service, error) {
	scope, args := operatorScope(operatorNOC)
	query := fmt.Sprintf(`SELECT %s FROM services s
		WHERE s.description = ? AND %s
		ORDER BY s.id LIMIT 1`, serviceColumns, scope)
	return scanService(q.db.QueryRowContext(ctx, query, append([]interface{}{description}, args...)...))
}

func (q *Queries) GetService(ctx context.Context, id int64) (Service, error) {
	query := fmt.Sprintf(`SELECT %s FROM services s WHERE s.id = ?`, serviceColumns)
	return scanService(q.db.QueryRowContext(ctx, query, id))
}

func (q *Queries) CreateService(ctx context.Context, s Service) (int64, error) {
	res, err := q.db.ExecContext(ctx,
		`INSERT INTO services (source_id, service_code, line_name, description, mode, current)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		s.SourceID, s.ServiceCode, s.LineName, s.Description, s.Mode, boolToInt(s.Current))
	if err != nil {
		return 0, fmt.Errorf("error creating service: %w", err)
	}
	return res.LastInsertId()
}

func (q *Queries) UpdateService(ctx context.Context, s Service) error {
	_, err := q.db.ExecContext(ctx,
		`UPDATE services SET source_id = ?, service_code = ?, line_name = ?,
		 description = ?, mode = ?, current = ? WHERE id = ?`,
		s.SourceID, s.ServiceCode, s.LineName, s.Description, s.Mode,
		boolToInt(s.Current), s.ID)
	return err
}

func (q *Queries) SetServiceGeometry(ctx context.Context, id int64, wkt string) error {
	_, err := q.db.ExecContext(ctx,
		`UPDATE services SET geometry = ? WHERE id = ?`, wkt, id)
	return err
}

// SetServiceOperators replaces the operator set of a service
func (q *Queries) SetServiceOperators(ctx context.Context, serviceID int64, nocs []string) error {
	if _, err := q.db.ExecContext(ctx,
		`DELETE FROM service_operators WHERE service_id = ?`, serviceID); err != nil {
		return err
	}
	for _, noc := range nocs {
		if err := q.AddServiceOperator(ctx, serviceID, noc); err != nil {
			return err
		}
	}
	return nil
}

// AddServiceOperator adds an operator to the set without disturbing others
func (q *Queries) AddServiceOperator(ctx context.Context, serviceID int64, noc string) error {
	_, err := q.db.ExecContext(ctx,
		`INSERT INTO service_operators (service_id, operator_noc) VALUES (?, ?)
		 ON CONFLICT (service_id, operator_noc) DO NOTHING`, serviceID, noc)
	return err
}

func (q *Queries) GetServiceOperators(ctx context.Context, serviceID int64) ([]string, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT operator_noc FROM service_operators WHERE service_id = ? ORDER BY operator_noc`,
		serviceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var nocs []string
	for rows.Next() {
		var noc string
		if err := rows.Scan(&noc); err != nil {
			return nil, err
		}
		nocs = append(nocs, noc)
	}
	return nocs, rows.Err()
}

// RebuildServiceStops recomputes the distinct stops a service calls at
func (q *Queries) RebuildServiceStops(ctx context.Context, serviceID int64) error {
	if _, err := q.db.ExecContext(ctx,
		`DELETE FROM service_stops WHERE service_id = ?`, serviceID); err != nil {
		return err
	}
	_, err := q.db.ExecContext(ctx, `
		INSERT INTO service_stops (service_id, stop_code)
		SELECT DISTINCT ?, st.stop_code
		FROM stop_times st
		JOIN trips t ON t.id = st.trip_id
		JOIN routes r ON r.id = t.route_id
		WHERE r.service_id = ?`, serviceID, serviceID)
	return err
}

// UpdateServiceSearchText rebuilds the search text from the line name and
// description
func (q *Queries) UpdateServiceSearchText(ctx context.Context, serviceID int64) error {
	_, err := q.db.ExecContext(ctx,
		`UPDATE services SET search_text = TRIM(line_name || ' ' || description)
		 WHERE id = ?`, serviceID)
	return err
}

// SetServiceRegion assigns the region by majority vote over the admin areas of
// the service's stops
func (q *Queries) SetServiceRegion(ctx context.Context, serviceID int64) error {
	row := q.db.QueryRowContext(ctx, `
		SELECT aa.region_id
		FROM service_stops ss
		JOIN stops s ON s.atco_code = ss.stop_code
		JOIN admin_areas aa ON aa.id = s.admin_area_id
		WHERE ss.service_id = ?
		GROUP BY aa.region_id
		ORDER BY COUNT(*) DESC
		LIMIT 1`, serviceID)

	var regionID string
	if err := row.Scan(&regionID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		return err
	}

	_, err := q.db.ExecContext(ctx,
		`UPDATE services SET region_id = ? WHERE id = ?`, regionID, serviceID)
	return err
}

// RetireServices marks as not current every current service of the source
// whose routes were not recreated in this run
func (q *Queries) RetireServices(ctx context.Context, sourceID int64, keepRouteIDs []int64) (int64, error) {
	query := `UPDATE services SET current = 0
		WHERE source_id = ? AND current = 1
		AND id NOT IN (SELECT service_id FROM routes WHERE service_id IS NOT NULL AND id IN (` +
		placeholders(len(keepRouteIDs)) + `))`

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

func placeholders(n int) string {
	if n == 0 {
		return "NULL"
	}
	b := make([]byte, 0, n*2)
	for i := 0; i < n; i++ {
		if i > 0 {
			b = append(b, ',')
		}
		b = append(b, '?')
	}
	return string(b)
}
