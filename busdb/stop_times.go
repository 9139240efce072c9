package busdb

import (
	"context"
	"database/sql"
	"fmt"
)

// StopTimeStream is the high-throughput insert path for stop_times. It holds
// one prepared statement inside the feed-run transaction and is fed one row at
// a time; feeds can carry hundreds of thousands of rows, so per-row
// autocommit inserts are not an option here.
type StopTimeStream struct {
	stmt    *sql.Stmt
	written int64
}

// StreamStopTimes prepares the stop-time insert path on the given transaction
func (q *Queries) StreamStopTimes(ctx context.Context) (*StopTimeStream, error) {
	stmt, err := q.db.PrepareContext(ctx,
		`INSERT INTO stop_times (trip_id, stop_code, arrival, departure, sequence,
		 timing_point, pick_up, set_down)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return nil, fmt.Errorf("error preparing stop_times statement: %w", err)
	}
	return &StopTimeStream{stmt: stmt}, nil
}

func (s *StopTimeStream) Write(ctx context.Context, st StopTime) error {
	_, err := s.stmt.ExecContext(ctx,
		st.TripID, st.StopCode, st.Arrival, st.Departure, st.Sequence,
		boolToInt(st.TimingPoint), boolToInt(st.PickUp), boolToInt(st.SetDown))
	if err != nil {
		return fmt.Errorf("error inserting stop_time: %w", err)
	}
	s.written++
	return nil
}

// Written reports how many rows have gone through the stream
func (s *StopTimeStream) Written() int64 {
	return s.written
}

func (s *StopTimeStream) Close() error {
	return s.stmt.Close()
}

// GetStopTimesForTrip returns a trip's stop times in sequence order
func (q *Queries) GetStopTimesForTrip(ctx context.Context, tripID int64) ([]StopTime, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT trip_id, stop_code, arrival, departure, sequence, timing_point, pick_up, set_down
		 FROM stop_times WHERE trip_id = ? ORDER BY sequence`, tripID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var stopTimes []StopTime
	for rows.Next() {
		var st StopTime
		if err := rows.Scan(&st.TripID, &st.StopCode, &st.Arrival, &st.Departure,
			&st.Sequence, &st.TimingPoint, &st.PickUp, &st.SetDown); err != nil {
			return nil, err
		}
		stopTimes = append(stopTimes, st)
	}
	return stopTimes, rows.Err()
}

// CountStopTimesForRoute reports how many stop-time rows are reachable from a
// route's trips
func (q *Queries) CountStopTimesForRoute(ctx context.Context, routeID int64) (int64, error) {
	row := q.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM stop_times
		 WHERE trip_id IN (SELECT id FROM trips WHERE route_id = ?)`, routeID)
	var n int64
	err := row.Scan(&n)
	return n, err
}
