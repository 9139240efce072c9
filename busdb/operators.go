package busdb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

func (q *Queries) GetOperatorByNOC(ctx context.Context, noc string) (Operator, error) {
	row := q.db.QueryRowContext(ctx,
		`SELECT noc, name, url, region_id FROM operators WHERE noc = ?`, noc)
	return scanOperator(row)
}

func (q *Queries) GetOperatorByName(ctx context.Context, name string) (Operator, error) {
	row := q.db.QueryRowContext(ctx,
		`SELECT noc, name, url, region_id FROM operators
		 WHERE name = ? COLLATE NOCASE ORDER BY noc LIMIT 1`, name)
	return scanOperator(row)
}

func (q *Queries) GetOperatorByURL(ctx context.Context, url string) (Operator, error) {
	row := q.db.QueryRowContext(ctx,
		`SELECT noc, name, url, region_id FROM operators
		 WHERE url = ? ORDER BY noc LIMIT 1`, url)
	return scanOperator(row)
}

func scanOperator(row *sql.Row) (Operator, error) {
	var o Operator
	err := row.Scan(&o.NOC, &o.Name, &o.URL, &o.RegionID)
	return o, err
}

func (q *Queries) CreateOperator(ctx context.Context, o Operator) error {
	_, err := q.db.ExecContext(ctx,
		`INSERT INTO operators (noc, name, url, region_id) VALUES (?, ?, ?, ?)`,
		o.NOC, o.Name, o.URL, o.RegionID)
	if err != nil {
		return fmt.Errorf("error creating operator: %w", err)
	}
	return nil
}

func (q *Queries) UpdateOperatorURL(ctx context.Context, noc, url string) error {
	_, err := q.db.ExecContext(ctx,
		`UPDATE operators SET url = ? WHERE noc = ?`, url, noc)
	return err
}

// SetOperatorRegion recomputes an operator's region by majority vote over the
// admin areas of the stops its services call at
func (q *Queries) SetOperatorRegion(ctx context.Context, noc string) error {
	row := q.db.QueryRowContext(ctx, `
		SELECT aa.region_id
		FROM service_operators so
		JOIN service_stops ss ON ss.service_id = so.service_id
		JOIN stops s ON s.atco_code = ss.stop_code
		JOIN admin_areas aa ON aa.id = s.admin_area_id
		WHERE so.operator_noc = ?
		GROUP BY aa.region_id
		ORDER BY COUNT(*) DESC
		LIMIT 1`, noc)

	var regionID string
	if err := row.Scan(&regionID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		return err
	}

	_, err := q.db.ExecContext(ctx,
		`UPDATE operators SET region_id = ? WHERE noc = ?`, regionID, noc)
	return err
}
