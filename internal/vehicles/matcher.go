package vehicles

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/gladetimes/tapaastimes/busdb"
)

// MatchResult says what one report was resolved to.
type MatchResult struct {
	JourneyID      int64
	Reused         bool // report continued the vehicle's latest journey
	MatchedService bool
	MatchedTrip    bool
}

// Matcher resolves vehicle reports to services and trips and records the
// resulting journeys and locations.
type Matcher struct {
	q      *busdb.Queries
	tz     *time.Location
	logger *slog.Logger

	now func() time.Time
}

func NewMatcher(q *busdb.Queries, tz *time.Location, logger *slog.Logger) *Matcher {
	return &Matcher{q: q, tz: tz, logger: logger, now: time.Now}
}

// Match records one report. When the report carries the same journey code
// as the vehicle's latest journey, that journey is continued rather than
// matched again.
func (m *Matcher) Match(ctx context.Context, source busdb.Source, r Report) (MatchResult, error) {
	vehicle, _, err := m.q.GetOrCreateVehicle(ctx, source.ID, r.VehicleCode)
	if err != nil {
		return MatchResult{}, err
	}

	if r.JourneyCode != "" && vehicle.LatestJourneyID.Valid {
		latest, err := m.q.GetVehicleJourney(ctx, vehicle.LatestJourneyID.Int64)
		if err == nil && latest.Code == r.JourneyCode {
			if err := m.q.SetVehicleLatestJourney(ctx, vehicle.ID, latest.ID, r.Raw); err != nil {
				return MatchResult{}, err
			}
			if err := m.recordLocation(ctx, latest.ID, r); err != nil {
				return MatchResult{}, err
			}
			return MatchResult{
				JourneyID:      latest.ID,
				Reused:         true,
				MatchedService: latest.ServiceID.Valid,
				MatchedTrip:    latest.TripID.Valid,
			}, nil
		}
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return MatchResult{}, err
		}
	}

	journey := busdb.VehicleJourney{
		VehicleID:   vehicle.ID,
		SourceID:    source.ID,
		Code:        r.JourneyCode,
		StartAt:     m.startDateTime(r).Format(time.RFC3339),
		Destination: r.Destination,
		RouteName:   r.RouteName,
	}

	service, haveService, err := m.findService(ctx, source, r)
	if err != nil {
		return MatchResult{}, err
	}

	var trips []busdb.Trip
	if r.JourneyCode != "" {
		if haveService {
			trips, err = m.q.GetTripsByTicketCodeForService(ctx, r.JourneyCode, service.ID)
		} else {
			trips, err = m.q.GetTripsByTicketCodeForSource(ctx, r.JourneyCode, source.ID)
		}
		if err != nil {
			return MatchResult{}, err
		}
	}

	// Feeds that prefix their trip and route ids per dataset version can
	// still be matched on the stable part after the underscore.
	if len(trips) == 0 && !haveService && strings.Contains(r.JourneyCode, "_") {
		suffix := r.RouteCode
		if i := strings.IndexByte(suffix, '_'); i >= 0 {
			suffix = suffix[i+1:]
		}
		if suffix != "" {
			found, err := m.q.FindServiceByRouteCodeSuffix(ctx, source.ID, "_"+suffix)
			if err == nil {
				service, haveService = found, true
			} else if !errors.Is(err, sql.ErrNoRows) {
				return MatchResult{}, err
			}
		}
		if r.HasSchedule {
			var serviceID int64
			if haveService {
				serviceID = service.ID
			}
			trips, err = m.q.GetTripsByStartAndDirection(ctx, source.ID, r.StartTime, r.Inbound, serviceID)
			if err != nil {
				return MatchResult{}, err
			}
		}
	}

	trip, haveTrip, err := m.pickTrip(ctx, trips, r)
	if err != nil {
		return MatchResult{}, err
	}

	if haveTrip {
		if !haveService {
			service, haveService, err = m.serviceForTrip(ctx, trip)
			if err != nil {
				return MatchResult{}, err
			}
		}
		journey.TripID = sql.NullInt64{Int64: trip.ID, Valid: true}
		journey.Destination = trip.Headsign
		if trip.OperatorNOC != "" && vehicle.OperatorNOC == "" {
			if err := m.q.SetVehicleOperator(ctx, vehicle.ID, trip.OperatorNOC); err != nil {
				return MatchResult{}, err
			}
		}
	}
	if haveService {
		journey.ServiceID = sql.NullInt64{Int64: service.ID, Valid: true}
		journey.RouteName = service.LineName
	}

	journeyID, err := m.q.CreateVehicleJourney(ctx, journey)
	if err != nil {
		return MatchResult{}, err
	}
	if err := m.q.SetVehicleLatestJourney(ctx, vehicle.ID, journeyID, r.Raw); err != nil {
		return MatchResult{}, err
	}
	if err := m.recordLocation(ctx, journeyID, r); err != nil {
		return MatchResult{}, err
	}
	return MatchResult{
		JourneyID:      journeyID,
		MatchedService: haveService,
		MatchedTrip:    haveTrip,
	}, nil
}

func (m *Matcher) findService(ctx context.Context, source busdb.Source, r Report) (busdb.Service, bool, error) {
	if r.RouteCode != "" {
		service, err := m.q.FindCurrentServiceByRouteCode(ctx, source.ID, r.RouteCode)
		if err == nil {
			return service, true, nil
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return busdb.Service{}, false, err
		}
	}
	if r.JourneyCode != "" {
		service, err := m.q.FindCurrentServiceByTripCode(ctx, source.ID, r.JourneyCode)
		if err == nil {
			return service, true, nil
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return busdb.Service{}, false, err
		}
	}
	return busdb.Service{}, false, nil
}

// pickTrip disambiguates multiple candidate trips by which calendars are
// active on the report's service date.
func (m *Matcher) pickTrip(ctx context.Context, trips []busdb.Trip, r Report) (busdb.Trip, bool, error) {
	switch len(trips) {
	case 0:
		return busdb.Trip{}, false, nil
	case 1:
		return trips[0], true, nil
	}

	calendarIDs := make([]int64, 0, len(trips))
	for _, trip := range trips {
		if trip.CalendarID.Valid {
			calendarIDs = append(calendarIDs, trip.CalendarID.Int64)
		}
	}
	active, err := m.q.ActiveCalendars(ctx, calendarIDs, m.serviceDate(r))
	if err != nil {
		return busdb.Trip{}, false, err
	}
	activeSet := make(map[int64]bool, len(active))
	for _, id := range active {
		activeSet[id] = true
	}
	for _, trip := range trips {
		if trip.CalendarID.Valid && activeSet[trip.CalendarID.Int64] {
			return trip, true, nil
		}
	}
	return busdb.Trip{}, false, nil
}

func (m *Matcher) serviceForTrip(ctx context.Context, trip busdb.Trip) (busdb.Service, bool, error) {
	route, err := m.q.GetRoute(ctx, trip.RouteID)
	if err != nil || !route.ServiceID.Valid {
		if errors.Is(err, sql.ErrNoRows) {
			err = nil
		}
		return busdb.Service{}, false, err
	}
	service, err := m.q.GetService(ctx, route.ServiceID.Int64)
	if errors.Is(err, sql.ErrNoRows) {
		return busdb.Service{}, false, nil
	}
	if err != nil {
		return busdb.Service{}, false, err
	}
	return service, true, nil
}

func (m *Matcher) recordLocation(ctx context.Context, journeyID int64, r Report) error {
	if !r.HasPosition {
		return nil
	}
	_, err := m.q.CreateVehicleLocation(ctx, busdb.VehicleLocation{
		JourneyID:  journeyID,
		Lat:        r.Lat,
		Lon:        r.Lon,
		Heading:    r.Heading,
		Occupancy:  r.Occupancy,
		RecordedAt: r.RecordedAt.UTC().Format(time.RFC3339),
	})
	return err
}

// startDateTime works out the journey's start. GTFS anchors start_time at
// noon minus 12 hours, so times past midnight and daylight saving changes
// come out right: the wall clock time is noon plus (start_time - 12h).
func (m *Matcher) startDateTime(r Report) time.Time {
	if !r.HasSchedule {
		return m.now().In(m.tz)
	}
	day, err := time.ParseInLocation("20060102", r.StartDate, time.UTC)
	if err != nil {
		return m.now().In(m.tz)
	}
	wall := day.Add(12*time.Hour + time.Duration(r.StartTime)*time.Second - 12*time.Hour)
	return time.Date(wall.Year(), wall.Month(), wall.Day(),
		wall.Hour(), wall.Minute(), wall.Second(), 0, m.tz)
}

// serviceDate is the date whose calendars decide which trips run.
func (m *Matcher) serviceDate(r Report) time.Time {
	if !r.HasSchedule {
		return m.now().In(m.tz)
	}
	day, err := time.ParseInLocation("20060102", r.StartDate, m.tz)
	if err != nil {
		return m.now().In(m.tz)
	}
	return day
}
