package gtfsimport

import (
	"context"
	"log/slog"

	"github.com/gladetimes/tapaastimes/busdb"
	"github.com/gladetimes/tapaastimes/internal/geom"
)

// importRouteLinks derives the geometry between each pair of adjacent stops
// on a service by cutting the trip's shape between the stops' projections
// onto it. One trip per distinct shape is enough; the projection distance of
// the previous pair's end is carried forward as the next pair's start.
func (im *Importer) importRouteLinks(ctx context.Context, st *runState) error {
	if im.cfg.GTFS.SkipRouteLinks {
		return nil
	}
	prefix := im.cfg.GTFS.StopPrefix

	existing, err := st.q.GetRouteLinksForSource(ctx, st.source.ID)
	if err != nil {
		return err
	}

	links := map[busdb.RouteLinkKey]string{}
	seenShapes := map[string]bool{}

	for i := range st.feed.Trips {
		trip := &st.feed.Trips[i]
		if trip.Shape == nil || len(trip.Shape.Points) < 2 || seenShapes[trip.Shape.ID] {
			continue
		}
		seenShapes[trip.Shape.ID] = true

		route, ok := st.routes[trip.Route.Id]
		if !ok || !route.ServiceID.Valid {
			continue
		}
		serviceID := route.ServiceID.Int64
		line := shapeLine(trip.Shape)

		var startDist float64
		haveStart := false
		for j := 0; j+1 < len(trip.StopTimes); j++ {
			from := prefix + trip.StopTimes[j].Stop.Id
			to := prefix + trip.StopTimes[j+1].Stop.Id
			key := busdb.RouteLinkKey{ServiceID: serviceID, FromStop: from, ToStop: to}

			if _, done := links[key]; done {
				haveStart = false
				continue
			}
			fromStop, fromOK := st.stops[from]
			toStop, toOK := st.stops[to]
			if !fromOK || !toOK {
				haveStart = false
				continue
			}

			if !haveStart {
				startDist = line.Project(geom.Point{Lon: fromStop.Lon, Lat: fromStop.Lat})
			}
			endDist := line.Project(geom.Point{Lon: toStop.Lon, Lat: toStop.Lat})

			if sub, ok := line.Substring(startDist, endDist); ok {
				links[key] = geom.LineWKT(sub)
			}
			startDist, haveStart = endDist, true
		}
	}

	created, updated := 0, 0
	for key, wkt := range links {
		link := busdb.RouteLink{
			ServiceID: key.ServiceID,
			FromStop:  key.FromStop,
			ToStop:    key.ToStop,
			Geometry:  wkt,
		}
		if err := st.q.UpsertRouteLink(ctx, link); err != nil {
			return err
		}
		if _, ok := existing[key]; ok {
			updated++
		} else {
			created++
		}
	}
	im.logger.Info("route links processed",
		slog.Int("created", created),
		slog.Int("updated", updated))
	return nil
}
