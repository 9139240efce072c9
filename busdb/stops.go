package busdb

import (
	"context"
	"fmt"
)

// GetStopsByCodes fetches existing stops for a set of codes in one query
func (q *Queries) GetStopsByCodes(ctx context.Context, codes []string) (map[string]Stop, error) {
	stops := make(map[string]Stop, len(codes))
	// Chunked to stay clear of the SQLite bound-parameter limit
	const chunkSize = 500
	for start := 0; start < len(codes); start += chunkSize {
		end := start + chunkSize
		if end > len(codes) {
			end = len(codes)
		}
		chunk := codes[start:end]

		query := `SELECT atco_code, common_name, indicator, lat, lon, admin_area_id, source_id, active
			FROM stops WHERE atco_code IN (` + placeholders(len(chunk)) + `)`
		args := make([]interface{}, len(chunk))
		for i, code := range chunk {
			args[i] = code
		}

		rows, err := q.db.QueryContext(ctx, query, args...)
		if err != nil {
			return nil, err
		}
		for rows.Next() {
			var s Stop
			if err := rows.Scan(&s.AtcoCode, &s.CommonName, &s.Indicator, &s.Lat, &s.Lon,
				&s.AdminAreaID, &s.SourceID, &s.Active); err != nil {
				rows.Close()
				return nil, err
			}
			stops[s.AtcoCode] = s
		}
		if err := rows.Err(); err != nil {
			rows.Close()
			return nil, err
		}
		rows.Close()
	}
	return stops, nil
}

// CreateStops bulk inserts stops through one prepared statement
func (q *Queries) CreateStops(ctx context.Context, stops []Stop) error {
	stmt, err := q.db.PrepareContext(ctx,
		`INSERT INTO stops (atco_code, common_name, indicator, lat, lon, admin_area_id, source_id, active)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("error preparing statement: %w", err)
	}
	defer stmt.Close() // nolint:errcheck

	for _, s := range stops {
		_, err := stmt.ExecContext(ctx,
			s.AtcoCode, s.CommonName, s.Indicator, s.Lat, s.Lon,
			s.AdminAreaID, s.SourceID, boolToInt(s.Active))
		if err != nil {
			return fmt.Errorf("error inserting stop %s: %w", s.AtcoCode, err)
		}
	}
	return nil
}

// UpdateStops bulk updates display name, indicator, position and ownership
func (q *Queries) UpdateStops(ctx context.Context, stops []Stop) error {
	stmt, err := q.db.PrepareContext(ctx,
		`UPDATE stops SET common_name = ?, indicator = ?, lat = ?, lon = ?, source_id = ?
		 WHERE atco_code = ?`)
	if err != nil {
		return fmt.Errorf("error preparing statement: %w", err)
	}
	defer stmt.Close() // nolint:errcheck

	for _, s := range stops {
		_, err := stmt.ExecContext(ctx,
			s.CommonName, s.Indicator, s.Lat, s.Lon, s.SourceID, s.AtcoCode)
		if err != nil {
			return fmt.Errorf("error updating stop %s: %w", s.AtcoCode, err)
		}
	}
	return nil
}

func (q *Queries) GetStop(ctx context.Context, atcoCode string) (Stop, error) {
	row := q.db.QueryRowContext(ctx,
		`SELECT atco_code, common_name, indicator, lat, lon, admin_area_id, source_id, active
		 FROM stops WHERE atco_code = ?`, atcoCode)
	var s Stop
	err := row.Scan(&s.AtcoCode, &s.CommonName, &s.Indicator, &s.Lat, &s.Lon,
		&s.AdminAreaID, &s.SourceID, &s.Active)
	return s, err
}

func (q *Queries) AdminAreaExists(ctx context.Context, id string) (bool, error) {
	row := q.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM admin_areas WHERE id = ?`, id)
	var n int64
	err := row.Scan(&n)
	return n > 0, err
}

// FirstAdminAreaInRegion returns the first admin area of a region, used for
// stops whose codes carry no numeric admin-area prefix
func (q *Queries) FirstAdminAreaInRegion(ctx context.Context, regionID string) (AdminArea, error) {
	row := q.db.QueryRowContext(ctx,
		`SELECT id, region_id, name FROM admin_areas WHERE region_id = ? ORDER BY id LIMIT 1`,
		regionID)
	var a AdminArea
	err := row.Scan(&a.ID, &a.RegionID, &a.Name)
	return a, err
}

func (q *Queries) CreateRegion(ctx context.Context, r Region) error {
	_, err := q.db.ExecContext(ctx,
		`INSERT INTO regions (id, name) VALUES (?, ?)
		 ON CONFLICT (id) DO UPDATE SET name = excluded.name`, r.ID, r.Name)
	return err
}

func (q *Queries) CreateAdminArea(ctx context.Context, a AdminArea) error {
	_, err := q.db.ExecContext(ctx,
		`INSERT INTO admin_areas (id, region_id, name) VALUES (?, ?, ?)
		 ON CONFLICT (id) DO UPDATE SET region_id = excluded.region_id, name = excluded.name`,
		a.ID, a.RegionID, a.Name)
	return err
}
