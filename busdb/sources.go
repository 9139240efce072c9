package busdb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// GetOrCreateSource returns the source with the given name, creating it if needed
func (q *Queries) GetOrCreateSource(ctx context.Context, name, url string) (Source, error) {
	source, err := q.GetSourceByName(ctx, name)
	if err == nil {
		return source, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return Source{}, err
	}

	res, err := q.db.ExecContext(ctx,
		`INSERT INTO sources (name, url) VALUES (?, ?)`, name, url)
	if err != nil {
		return Source{}, fmt.Errorf("error creating source: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return Source{}, err
	}
	return Source{ID: id, Name: name, URL: url}, nil
}

func (q *Queries) GetSourceByName(ctx context.Context, name string) (Source, error) {
	row := q.db.QueryRowContext(ctx,
		`SELECT id, name, url, checked_at FROM sources WHERE name = ?`, name)
	var s Source
	err := row.Scan(&s.ID, &s.Name, &s.URL, &s.CheckedAt)
	return s, err
}

// SetSourceCheckedAt records the last-modified checkpoint for a source
func (q *Queries) SetSourceCheckedAt(ctx context.Context, id int64, checkedAt string) error {
	_, err := q.db.ExecContext(ctx,
		`UPDATE sources SET checked_at = ? WHERE id = ?`, checkedAt, id)
	return err
}
