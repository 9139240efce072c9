package busdb

import (
	"context"
	"fmt"
)

// CreateTrips inserts a batch of trips through one prepared statement and
// writes the assigned row id back into each trip, preserving input order
func (q *Queries) CreateTrips(ctx context.Context, trips []*Trip) error {
	stmt, err := q.db.PrepareContext(ctx,
		`INSERT INTO trips (route_id, calendar_id, inbound, start_time, end_time,
		 headsign, destination, block, ticket_machine_code, vehicle_journey_code, operator_noc)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("error preparing statement: %w", err)
	}
	defer stmt.Close() // nolint:errcheck

	for _, t := range trips {
		res, err := stmt.ExecContext(ctx,
			t.RouteID, t.CalendarID, boolToInt(t.Inbound), t.Start, t.End,
			t.Headsign, t.Destination, t.Block, t.TicketMachineCode,
			t.VehicleJourneyCode, t.OperatorNOC)
		if err != nil {
			return fmt.Errorf("error inserting trip %s: %w", t.TicketMachineCode, err)
		}
		t.ID, err = res.LastInsertId()
		if err != nil {
			return err
		}
	}
	return nil
}

const tripColumns = `t.id, t.route_id, t.calendar_id, t.inbound, t.start_time, t.end_time,
	t.headsign, t.destination, t.block, t.ticket_machine_code, t.vehicle_journey_code, t.operator_noc`

func (q *Queries) scanTrips(ctx context.Context, query string, args ...interface{}) ([]Trip, error) {
	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var trips []Trip
	for rows.Next() {
		var t Trip
		if err := rows.Scan(&t.ID, &t.RouteID, &t.CalendarID, &t.Inbound, &t.Start, &t.End,
			&t.Headsign, &t.Destination, &t.Block, &t.TicketMachineCode,
			&t.VehicleJourneyCode, &t.OperatorNOC); err != nil {
			return nil, err
		}
		trips = append(trips, t)
	}
	return trips, rows.Err()
}

// GetTripsByTicketCodeForService finds trips by external ticket code within
// one service
func (q *Queries) GetTripsByTicketCodeForService(ctx context.Context, code string, serviceID int64) ([]Trip, error) {
	return q.scanTrips(ctx, fmt.Sprintf(
		`SELECT %s FROM trips t
		 JOIN routes r ON r.id = t.route_id
		 WHERE t.ticket_machine_code = ? AND r.service_id = ?
		 ORDER BY t.id`, tripColumns), code, serviceID)
}

// GetTripsByTicketCodeForSource finds trips by external ticket code across a
// whole source
func (q *Queries) GetTripsByTicketCodeForSource(ctx context.Context, code string, sourceID int64) ([]Trip, error) {
	return q.scanTrips(ctx, fmt.Sprintf(
		`SELECT %s FROM trips t
		 JOIN routes r ON r.id = t.route_id
		 WHERE t.ticket_machine_code = ? AND r.source_id = ?
		 ORDER BY t.id`, tripColumns), code, sourceID)
}

// GetTripsByStartAndDirection finds trips by exact start time-of-day and
// direction, optionally scoped to one service
func (q *Queries) GetTripsByStartAndDirection(ctx context.Context, sourceID int64, startSecs int64, inbound bool, serviceID int64) ([]Trip, error) {
	query := fmt.Sprintf(`SELECT %s FROM trips t
		 JOIN routes r ON r.id = t.route_id
		 WHERE r.source_id = ? AND t.start_time = ? AND t.inbound = ?`, tripColumns)
	args := []interface{}{sourceID, startSecs, boolToInt(inbound)}
	if serviceID != 0 {
		query += ` AND r.service_id = ?`
		args = append(args, serviceID)
	}
	query += ` ORDER BY t.id`
	return q.scanTrips(ctx, query, args...)
}

// CountTripsForRoute reports how many trips are attached to a route
func (q *Queries) CountTripsForRoute(ctx context.Context, routeID int64) (int64, error) {
	row := q.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM trips WHERE route_id = ?`, routeID)
	var n int64
	err := row.Scan(&n)
	return n, err
}
