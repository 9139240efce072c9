package gtfsimport

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"sort"
	"strings"

	"github.com/jamespfennell/gtfs"

	"github.com/gladetimes/tapaastimes/busdb"
	"github.com/gladetimes/tapaastimes/internal/geom"
)

// modes maps GTFS route_type values to service modes.
var modes = map[int64]string{
	0:   "tram",
	1:   "metro",
	2:   "rail",
	3:   "bus",
	4:   "ferry",
	5:   "tram",
	6:   "cable car",
	7:   "funicular",
	11:  "bus",
	12:  "monorail",
	200: "coach",
}

func (im *Importer) importRoutes(ctx context.Context, st *runState) error {
	for i := range st.feed.Routes {
		if err := im.handleRoute(ctx, st, &st.feed.Routes[i]); err != nil {
			return err
		}
	}
	im.logger.Info("routes processed", slog.Int("routes", len(st.routes)))
	return im.setServiceGeometries(ctx, st)
}

// handleRoute reconciles one feed route against existing services. A feed
// route is matched to a service, scoped to its operator, by trying in turn
// the stored route code, the service code, the line name and the
// description. Nothing matching means a new service.
func (im *Importer) handleRoute(ctx context.Context, st *runState, route *gtfs.Route) error {
	lineName := route.ShortName
	description := route.LongName
	if lineName == "" && !strings.Contains(description, " ") {
		lineName = description
		if len(lineName) < 5 {
			description = ""
		}
	}

	noc := im.routeOperator(st, route)

	service, err := im.findService(ctx, st, route, lineName, description, noc)
	if errors.Is(err, sql.ErrNoRows) {
		service = busdb.Service{SourceID: st.source.ID}
	} else if err != nil {
		return err
	}

	service.ServiceCode = route.Id
	service.LineName = lineName
	service.Description = description
	service.Current = true
	service.SourceID = st.source.ID
	if mode, ok := modes[int64(route.Type)]; ok {
		service.Mode = mode
	} else {
		im.logger.Warn("unknown route type",
			slog.String("route", route.Id),
			slog.Int64("type", int64(route.Type)))
	}

	if service.ID == 0 {
		service.ID, err = st.q.CreateService(ctx, service)
	} else {
		err = st.q.UpdateService(ctx, service)
	}
	if err != nil {
		return err
	}

	if noc != "" {
		// Several feed routes can fold into one service; the first one this
		// run replaces the operator set, later ones only add to it.
		if st.services[service.ID] {
			err = st.q.AddServiceOperator(ctx, service.ID, noc)
		} else {
			err = st.q.SetServiceOperators(ctx, service.ID, []string{noc})
		}
		if err != nil {
			return err
		}
	}
	st.services[service.ID] = true

	stored, err := st.q.GetRouteByCode(ctx, st.source.ID, route.Id)
	if errors.Is(err, sql.ErrNoRows) {
		stored = busdb.Route{SourceID: st.source.ID, Code: route.Id}
		stored.LineName = service.LineName
		stored.Description = service.Description
		stored.ServiceID = sql.NullInt64{Int64: service.ID, Valid: true}
		stored.ID, err = st.q.CreateRoute(ctx, stored)
		if err != nil {
			return err
		}
	} else if err != nil {
		return err
	} else {
		stored.LineName = service.LineName
		stored.Description = service.Description
		stored.ServiceID = sql.NullInt64{Int64: service.ID, Valid: true}
		if err := st.q.UpdateRoute(ctx, stored); err != nil {
			return err
		}
		// A surviving route gets its timetable rebuilt from scratch.
		if err := st.q.DeleteRouteTrips(ctx, stored.ID); err != nil {
			return err
		}
	}

	st.routes[route.Id] = stored
	st.routeNOC[route.Id] = noc
	return nil
}

func (im *Importer) findService(ctx context.Context, st *runState, route *gtfs.Route, lineName, description, noc string) (busdb.Service, error) {
	service, err := st.q.FindServiceByRouteCode(ctx, st.source.ID, route.Id, noc)
	if !errors.Is(err, sql.ErrNoRows) {
		return service, err
	}
	service, err = st.q.FindServiceByServiceCode(ctx, route.Id, noc)
	if !errors.Is(err, sql.ErrNoRows) {
		return service, err
	}
	if lineName != "" && lineName != "rail" && lineName != "InterCity" {
		return st.q.FindServiceByLineName(ctx, lineName, noc)
	}
	if description != "" {
		return st.q.FindServiceByDescription(ctx, description, noc)
	}
	return busdb.Service{}, sql.ErrNoRows
}

// routeOperator resolves the operator NOC for a feed route, falling back to
// the sole agency or the configured default when the route has none.
func (im *Importer) routeOperator(st *runState, route *gtfs.Route) string {
	if im.cfg.GTFS.OperatorNOC != "" {
		return im.cfg.GTFS.OperatorNOC
	}
	if route.Agency != nil {
		if noc, ok := st.operators[route.Agency.Id]; ok {
			return noc
		}
	}
	if len(st.operators) == 1 {
		for _, noc := range st.operators {
			return noc
		}
	}
	return im.cfg.GTFS.DefaultOperator
}

// setServiceGeometries stores each service's geometry, built from the
// shapes of the trips running its routes.
func (im *Importer) setServiceGeometries(ctx context.Context, st *runState) error {
	shapesByService := map[int64]map[string]geom.Line{}
	for i := range st.feed.Trips {
		trip := &st.feed.Trips[i]
		if trip.Shape == nil || len(trip.Shape.Points) < 2 {
			continue
		}
		route, ok := st.routes[trip.Route.Id]
		if !ok || !route.ServiceID.Valid {
			continue
		}
		lines := shapesByService[route.ServiceID.Int64]
		if lines == nil {
			lines = map[string]geom.Line{}
			shapesByService[route.ServiceID.Int64] = lines
		}
		if _, seen := lines[trip.Shape.ID]; !seen {
			lines[trip.Shape.ID] = shapeLine(trip.Shape)
		}
	}

	for serviceID, lines := range shapesByService {
		ids := make([]string, 0, len(lines))
		for id := range lines {
			ids = append(ids, id)
		}
		sort.Strings(ids)
		collected := make([]geom.Line, 0, len(ids))
		for _, id := range ids {
			collected = append(collected, lines[id])
		}
		if err := st.q.SetServiceGeometry(ctx, serviceID, geom.MultiLineWKT(collected)); err != nil {
			return err
		}
	}
	return nil
}

func shapeLine(shape *gtfs.Shape) geom.Line {
	line := make(geom.Line, 0, len(shape.Points))
	for _, p := range shape.Points {
		line = append(line, geom.Point{Lon: p.Longitude, Lat: p.Latitude})
	}
	return line
}
