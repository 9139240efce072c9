package gtfsimport

import (
	"context"
	"database/sql"
	"log/slog"
	"strings"

	"github.com/jamespfennell/gtfs"

	"github.com/gladetimes/tapaastimes/busdb"
	"github.com/gladetimes/tapaastimes/internal/logging"
)

const tripBatchSize = 1000

type tripPair struct {
	feed *gtfs.ScheduledTrip
	row  *busdb.Trip
}

// importTrips writes every scheduled trip and its stop times. Trips are
// created in batches; their times come from the first departure and last
// arrival. Trips without stop times are dropped, along with their stop time
// rows.
func (im *Importer) importTrips(ctx context.Context, st *runState) error {
	prefix := im.cfg.GTFS.StopPrefix

	var pairs []tripPair
	var batch []*busdb.Trip
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if err := st.q.CreateTrips(ctx, batch); err != nil {
			return err
		}
		batch = batch[:0]
		return nil
	}

	for i := range st.feed.Trips {
		feedTrip := &st.feed.Trips[i]
		route, ok := st.routes[feedTrip.Route.Id]
		if !ok {
			st.run.TripsDropped++
			continue
		}
		if len(feedTrip.StopTimes) == 0 {
			if st.run.TripsDropped < 5 {
				im.logger.Warn("trip has no stop times", slog.String("trip", feedTrip.ID))
			}
			st.run.TripsDropped++
			continue
		}

		first := feedTrip.StopTimes[0]
		last := feedTrip.StopTimes[len(feedTrip.StopTimes)-1]

		trip := &busdb.Trip{
			RouteID:            route.ID,
			Inbound:            int64(feedTrip.DirectionId) == 1,
			Start:              sql.NullInt64{Int64: int64(first.DepartureTime.Seconds()), Valid: true},
			End:                sql.NullInt64{Int64: int64(last.ArrivalTime.Seconds()), Valid: true},
			Headsign:           feedTrip.Headsign,
			Block:              cleanBlock(feedTrip.BlockID),
			TicketMachineCode:  feedTrip.ID,
			VehicleJourneyCode: feedTrip.ShortName,
			OperatorNOC:        st.routeNOC[feedTrip.Route.Id],
		}
		if calendarID, ok := st.calendars[feedTrip.Service.Id]; ok {
			trip.CalendarID = sql.NullInt64{Int64: calendarID, Valid: true}
		}
		// Only stops that made it into the stop table can be a destination.
		if dest, ok := st.stops[prefix+last.Stop.Id]; ok {
			trip.Destination = dest.Code
		}

		pairs = append(pairs, tripPair{feed: feedTrip, row: trip})
		batch = append(batch, trip)
		if len(batch) >= tripBatchSize {
			if err := flush(); err != nil {
				return err
			}
		}
	}
	if err := flush(); err != nil {
		return err
	}
	st.run.TripsCreated = int64(len(pairs))

	// Dropped trips' stop time rows are counted but never written.
	total := 0
	for i := range st.feed.Trips {
		total += len(st.feed.Trips[i].StopTimes)
	}

	stream, err := st.q.StreamStopTimes(ctx)
	if err != nil {
		return err
	}
	defer logging.SafeCloseWithLogging(stream, im.logger, "stop time stream")

	for _, pair := range pairs {
		for _, feedStopTime := range pair.feed.StopTimes {
			departure := int64(feedStopTime.DepartureTime.Seconds())
			row := busdb.StopTime{
				TripID:      pair.row.ID,
				StopCode:    prefix + feedStopTime.Stop.Id,
				Departure:   departure,
				Sequence:    int64(feedStopTime.StopSequence),
				TimingPoint: feedStopTime.ExactTimes,
				PickUp:      int64(feedStopTime.PickupType) != 1,
				SetDown:     int64(feedStopTime.DropOffType) != 1,
			}
			if feedStopTime.ArrivalTime != feedStopTime.DepartureTime {
				row.Arrival = sql.NullInt64{Int64: int64(feedStopTime.ArrivalTime.Seconds()), Valid: true}
			}
			if err := stream.Write(ctx, row); err != nil {
				return err
			}
		}
	}
	if err := stream.Close(); err != nil {
		return err
	}

	st.run.StopTimesWritten = stream.Written()
	st.run.StopTimesSkipped = int64(total) - stream.Written()
	im.logger.Info("trips processed",
		slog.Int64("created", st.run.TripsCreated),
		slog.Int64("dropped", st.run.TripsDropped),
		slog.Int64("stop_times", st.run.StopTimesWritten))
	return nil
}

func cleanBlock(block string) string {
	block = strings.TrimSpace(block)
	if strings.EqualFold(block, "n/a") {
		return ""
	}
	return block
}
