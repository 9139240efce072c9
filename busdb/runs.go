package busdb

import (
	"context"
	"fmt"
)

func (q *Queries) CreateImportRun(ctx context.Context, run ImportRun) error {
	_, err := q.db.ExecContext(ctx,
		`INSERT INTO import_runs (id, source_id, started_at) VALUES (?, ?, ?)`,
		run.ID, run.SourceID, run.StartedAt)
	if err != nil {
		return fmt.Errorf("error creating import run: %w", err)
	}
	return nil
}

func (q *Queries) FinishImportRun(ctx context.Context, run ImportRun) error {
	_, err := q.db.ExecContext(ctx,
		`UPDATE import_runs SET finished_at = ?, trips_created = ?, trips_dropped = ?,
		 stop_times_written = ?, stop_times_skipped = ? WHERE id = ?`,
		run.FinishedAt, run.TripsCreated, run.TripsDropped,
		run.StopTimesWritten, run.StopTimesSkipped, run.ID)
	return err
}

func (q *Queries) GetImportRun(ctx context.Context, id string) (ImportRun, error) {
	row := q.db.QueryRowContext(ctx,
		`SELECT id, source_id, started_at, finished_at, trips_created, trips_dropped,
		 stop_times_written, stop_times_skipped
		 FROM import_runs WHERE id = ?`, id)
	var run ImportRun
	err := row.Scan(&run.ID, &run.SourceID, &run.StartedAt, &run.FinishedAt,
		&run.TripsCreated, &run.TripsDropped, &run.StopTimesWritten, &run.StopTimesSkipped)
	return run, err
}
