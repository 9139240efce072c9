// Package vehicles polls live vehicle position feeds and matches each
// report to the imported timetable.
package vehicles

import (
	"context"
	"database/sql"
	"time"
)

// Report is one vehicle position, normalised from whatever dialect the
// feed speaks.
type Report struct {
	VehicleCode string
	JourneyCode string // external trip code
	RouteCode   string // external route code

	// Schedule fields, valid only when HasSchedule is set.
	HasSchedule bool
	StartDate   string // YYYYMMDD, in the feed's timezone
	StartTime   int64  // seconds of day, may pass midnight
	Inbound     bool

	HasPosition bool
	Lat         float64
	Lon         float64
	Heading     sql.NullFloat64
	Occupancy   string

	RouteName   string
	Destination string
	RecordedAt  time.Time

	// Raw is the report as received, cached on the vehicle record.
	Raw string
}

// Source produces vehicle reports from one live feed.
type Source interface {
	Name() string
	FetchReports(ctx context.Context) ([]Report, error)
}
