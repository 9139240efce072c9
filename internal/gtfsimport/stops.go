package gtfsimport

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"strings"

	"github.com/gladetimes/tapaastimes/busdb"
)

func (im *Importer) importStops(ctx context.Context, st *runState) error {
	prefix := im.cfg.GTFS.StopPrefix

	candidates := make(map[string]busdb.Stop, len(st.feed.Stops))
	codes := make([]string, 0, len(st.feed.Stops))
	for i := range st.feed.Stops {
		feedStop := &st.feed.Stops[i]
		if feedStop.Latitude == nil || feedStop.Longitude == nil {
			continue
		}
		code := prefix + feedStop.Id

		stop := busdb.Stop{
			AtcoCode:   code,
			CommonName: feedStop.Name,
			Lat:        *feedStop.Latitude,
			Lon:        *feedStop.Longitude,
			SourceID:   sql.NullInt64{Int64: st.source.ID, Valid: true},
			Active:     true,
		}
		// Names like "High Street, stop B" carry the indicator in the name.
		if strings.Contains(stop.CommonName, ", stop") && strings.Count(stop.CommonName, ", ") == 1 {
			name, indicator, _ := strings.Cut(stop.CommonName, ", ")
			stop.CommonName, stop.Indicator = name, indicator
		}
		stop.CommonName = truncate(stop.CommonName, 48)
		candidates[code] = stop
		codes = append(codes, code)
	}

	existing, err := st.q.GetStopsByCodes(ctx, codes)
	if err != nil {
		return err
	}

	var toCreate, toUpdate []busdb.Stop
	for _, code := range codes {
		stop := candidates[code]
		old, ok := existing[code]
		if !ok {
			toCreate = append(toCreate, stop)
			continue
		}
		// Stops owned by another source are left alone.
		if old.SourceID.Valid && old.SourceID.Int64 != st.source.ID {
			continue
		}
		if old.Lat != stop.Lat || old.Lon != stop.Lon || old.CommonName != stop.CommonName {
			toUpdate = append(toUpdate, stop)
		}
	}

	if im.cfg.GTFS.RegionHandling != "skip" {
		if err := im.assignAdminAreas(ctx, st, toCreate); err != nil {
			return err
		}
	}

	if err := st.q.UpdateStops(ctx, toUpdate); err != nil {
		return err
	}
	if err := st.q.CreateStops(ctx, toCreate); err != nil {
		return err
	}
	im.logger.Info("stops processed",
		slog.Int("created", len(toCreate)),
		slog.Int("updated", len(toUpdate)))

	// Keep positions for trip destinations and route link projection. Stops
	// owned elsewhere keep their stored position.
	for _, code := range codes {
		stop := candidates[code]
		if old, ok := existing[code]; ok && old.SourceID.Valid && old.SourceID.Int64 != st.source.ID {
			stop = old
		}
		st.stops[code] = StopPoint{Code: code, Lat: stop.Lat, Lon: stop.Lon}
	}
	return nil
}

// assignAdminAreas fills in admin areas for new stops. A numeric three
// character code prefix is treated as an admin area id; otherwise a
// configured region supplies its first admin area.
func (im *Importer) assignAdminAreas(ctx context.Context, st *runState, stops []busdb.Stop) error {
	known := map[string]bool{}
	var regionArea string
	regionAreaLoaded := false

	for i := range stops {
		areaID := stops[i].AtcoCode
		if len(areaID) > 3 {
			areaID = areaID[:3]
		}
		if isDigits(areaID) {
			exists, ok := known[areaID]
			if !ok {
				var err error
				exists, err = st.q.AdminAreaExists(ctx, areaID)
				if err != nil {
					return err
				}
				known[areaID] = exists
			}
			if exists {
				stops[i].AdminAreaID = sql.NullString{String: areaID, Valid: true}
			}
			continue
		}

		if region := im.cfg.GTFS.RegionHandling; region != "" && region != "auto" {
			if !regionAreaLoaded {
				regionAreaLoaded = true
				area, err := st.q.FirstAdminAreaInRegion(ctx, region)
				if errors.Is(err, sql.ErrNoRows) {
					continue
				} else if err != nil {
					return err
				}
				regionArea = area.ID
			}
			if regionArea != "" {
				stops[i].AdminAreaID = sql.NullString{String: regionArea, Valid: true}
			}
		}
	}
	return nil
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}
