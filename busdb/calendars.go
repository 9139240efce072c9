package busdb

import (
	"context"
	"fmt"
	"time"
)

const calendarDateFormat = "20060102"

func (q *Queries) CreateCalendar(ctx context.Context, c Calendar) (int64, error) {
	_, err := q.db.ExecContext(ctx,
		`INSERT INTO calendars (source_id, code, monday, tuesday, wednesday, thursday,
		 friday, saturday, sunday, start_date, end_date)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (source_id, code) DO UPDATE SET
		 monday = excluded.monday, tuesday = excluded.tuesday,
		 wednesday = excluded.wednesday, thursday = excluded.thursday,
		 friday = excluded.friday, saturday = excluded.saturday,
		 sunday = excluded.sunday, start_date = excluded.start_date,
		 end_date = excluded.end_date`,
		c.SourceID, c.Code, boolToInt(c.Monday), boolToInt(c.Tuesday),
		boolToInt(c.Wednesday), boolToInt(c.Thursday), boolToInt(c.Friday),
		boolToInt(c.Saturday), boolToInt(c.Sunday), c.StartDate, c.EndDate)
	if err != nil {
		return 0, fmt.Errorf("error creating calendar: %w", err)
	}

	// The upsert path does not report the existing row id
	row := q.db.QueryRowContext(ctx,
		`SELECT id FROM calendars WHERE source_id = ? AND code = ?`, c.SourceID, c.Code)
	var id int64
	err = row.Scan(&id)
	return id, err
}

func (q *Queries) CreateCalendarDate(ctx context.Context, d CalendarDate) error {
	_, err := q.db.ExecContext(ctx,
		`INSERT INTO calendar_dates (calendar_id, date, operation) VALUES (?, ?, ?)
		 ON CONFLICT (calendar_id, date) DO UPDATE SET operation = excluded.operation`,
		d.CalendarID, d.Date, boolToInt(d.Operation))
	return err
}

// ActiveCalendars returns the subset of the given calendar ids that operate on
// the given date, taking weekday bits, date ranges and per-date exceptions
// into account
func (q *Queries) ActiveCalendars(ctx context.Context, ids []int64, date time.Time) ([]int64, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	day := date.Format(calendarDateFormat)

	query := `SELECT id, monday, tuesday, wednesday, thursday, friday, saturday, sunday,
		start_date, end_date FROM calendars WHERE id IN (` + placeholders(len(ids)) + `)`
	args := make([]interface{}, len(ids))
	for i, id := range ids {
		args[i] = id
	}

	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	weekday := int(date.Weekday()) // Sunday = 0
	runsOnDay := make(map[int64]bool)
	for rows.Next() {
		var c Calendar
		if err := rows.Scan(&c.ID, &c.Monday, &c.Tuesday, &c.Wednesday, &c.Thursday,
			&c.Friday, &c.Saturday, &c.Sunday, &c.StartDate, &c.EndDate); err != nil {
			return nil, err
		}
		days := []bool{c.Sunday, c.Monday, c.Tuesday, c.Wednesday, c.Thursday, c.Friday, c.Saturday}
		runsOnDay[c.ID] = days[weekday] && c.StartDate <= day && day <= c.EndDate
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Per-date exceptions override the weekday pattern
	exQuery := `SELECT calendar_id, operation FROM calendar_dates
		WHERE date = ? AND calendar_id IN (` + placeholders(len(ids)) + `)`
	exArgs := append([]interface{}{day}, args...)

	exRows, err := q.db.QueryContext(ctx, exQuery, exArgs...)
	if err != nil {
		return nil, err
	}
	defer exRows.Close()

	for exRows.Next() {
		var calendarID int64
		var operation bool
		if err := exRows.Scan(&calendarID, &operation); err != nil {
			return nil, err
		}
		runsOnDay[calendarID] = operation
	}
	if err := exRows.Err(); err != nil {
		return nil, err
	}

	var active []int64
	for _, id := range ids {
		if runsOnDay[id] {
			active = append(active, id)
		}
	}
	return active, nil
}
