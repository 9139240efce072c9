package busdb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

func (q *Queries) GetVehicleByCode(ctx context.Context, sourceID int64, code string) (Vehicle, error) {
	row := q.db.QueryRowContext(ctx,
		`SELECT id, source_id, code, operator_noc, latest_journey_id, latest_journey_data
		 FROM vehicles WHERE source_id = ? AND code = ?`, sourceID, code)
	var v Vehicle
	err := row.Scan(&v.ID, &v.SourceID, &v.Code, &v.OperatorNOC, &v.LatestJourneyID, &v.LatestJourneyData)
	return v, err
}

// GetOrCreateVehicle returns the vehicle with the given code, creating it on
// first sighting
func (q *Queries) GetOrCreateVehicle(ctx context.Context, sourceID int64, code string) (Vehicle, bool, error) {
	v, err := q.GetVehicleByCode(ctx, sourceID, code)
	if err == nil {
		return v, false, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return Vehicle{}, false, err
	}

	res, err := q.db.ExecContext(ctx,
		`INSERT INTO vehicles (source_id, code) VALUES (?, ?)`, sourceID, code)
	if err != nil {
		return Vehicle{}, false, fmt.Errorf("error creating vehicle: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return Vehicle{}, false, err
	}
	return Vehicle{ID: id, SourceID: sourceID, Code: code}, true, nil
}

// SetVehicleOperator adopts an operator onto a vehicle; never called for
// vehicles that already have one
func (q *Queries) SetVehicleOperator(ctx context.Context, vehicleID int64, noc string) error {
	_, err := q.db.ExecContext(ctx,
		`UPDATE vehicles SET operator_noc = ? WHERE id = ?`, noc, vehicleID)
	return err
}

// SetVehicleLatestJourney caches the latest journey and the raw report payload
// on the vehicle for the short-circuit on the next poll
func (q *Queries) SetVehicleLatestJourney(ctx context.Context, vehicleID, journeyID int64, rawData string) error {
	_, err := q.db.ExecContext(ctx,
		`UPDATE vehicles SET latest_journey_id = ?, latest_journey_data = ? WHERE id = ?`,
		journeyID, rawData, vehicleID)
	return err
}

func (q *Queries) GetVehicleJourney(ctx context.Context, id int64) (VehicleJourney, error) {
	row := q.db.QueryRowContext(ctx,
		`SELECT id, vehicle_id, source_id, code, start_at, service_id, trip_id, destination, route_name
		 FROM vehicle_journeys WHERE id = ?`, id)
	var j VehicleJourney
	err := row.Scan(&j.ID, &j.VehicleID, &j.SourceID, &j.Code, &j.StartAt,
		&j.ServiceID, &j.TripID, &j.Destination, &j.RouteName)
	return j, err
}

func (q *Queries) CreateVehicleJourney(ctx context.Context, j VehicleJourney) (int64, error) {
	res, err := q.db.ExecContext(ctx,
		`INSERT INTO vehicle_journeys (vehicle_id, source_id, code, start_at,
		 service_id, trip_id, destination, route_name)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		j.VehicleID, j.SourceID, j.Code, j.StartAt, j.ServiceID, j.TripID,
		j.Destination, j.RouteName)
	if err != nil {
		return 0, fmt.Errorf("error creating vehicle journey: %w", err)
	}
	return res.LastInsertId()
}

func (q *Queries) CreateVehicleLocation(ctx context.Context, l VehicleLocation) (int64, error) {
	res, err := q.db.ExecContext(ctx,
		`INSERT INTO vehicle_locations (journey_id, lat, lon, heading, occupancy, recorded_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		l.JourneyID, l.Lat, l.Lon, l.Heading, l.Occupancy, l.RecordedAt)
	if err != nil {
		return 0, fmt.Errorf("error creating vehicle location: %w", err)
	}
	return res.LastInsertId()
}

// CountJourneysForVehicle reports how many journeys a vehicle has accumulated
func (q *Queries) CountJourneysForVehicle(ctx context.Context, vehicleID int64) (int64, error) {
	row := q.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM vehicle_journeys WHERE vehicle_id = ?`, vehicleID)
	var n int64
	err := row.Scan(&n)
	return n, err
}

// FindCurrentServiceByRouteCode resolves a current service via an exact
// (source, route code) match
func (q *Queries) FindCurrentServiceByRouteCode(ctx context.Context, sourceID int64, routeCode string) (Service, error) {
	query := fmt.Sprintf(`SELECT %s FROM services s
		JOIN routes r ON r.service_id = s.id
		WHERE s.current = 1 AND r.source_id = ? AND r.code = ?
		ORDER BY s.id LIMIT 1`, serviceColumns)
	return scanService(q.db.QueryRowContext(ctx, query, sourceID, routeCode))
}

// FindCurrentServiceByTripCode resolves a current service via any route that
// has a trip carrying the given external code
func (q *Queries) FindCurrentServiceByTripCode(ctx context.Context, sourceID int64, tripCode string) (Service, error) {
	query := fmt.Sprintf(`SELECT %s FROM services s
		JOIN routes r ON r.service_id = s.id
		JOIN trips t ON t.route_id = r.id
		WHERE s.current = 1 AND r.source_id = ? AND t.ticket_machine_code = ?
		ORDER BY s.id LIMIT 1`, serviceColumns)
	return scanService(q.db.QueryRowContext(ctx, query, sourceID, tripCode))
}
