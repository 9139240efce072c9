package vehicles

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	gtfsrt "github.com/MobilityData/gtfs-realtime-bindings/golang/gtfs"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/proto"

	"github.com/gladetimes/tapaastimes/internal/config"
)

// GTFSRTSource reads vehicle positions from a GTFS-Realtime protobuf feed.
type GTFSRTSource struct {
	name   string
	cfg    config.RealtimeSettings
	client *http.Client
}

func NewGTFSRTSource(name string, cfg config.RealtimeSettings) *GTFSRTSource {
	return &GTFSRTSource{
		name:   name,
		cfg:    cfg,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

func (s *GTFSRTSource) Name() string { return s.name }

func (s *GTFSRTSource) FetchReports(ctx context.Context) ([]Report, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.cfg.URL, nil)
	if err != nil {
		return nil, err
	}
	for key, value := range s.cfg.Headers {
		req.Header.Set(key, value)
	}
	if s.cfg.APIKey != "" {
		req.Header.Set("x-api-key", s.cfg.APIKey)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetching %s: unexpected status %s", s.cfg.URL, resp.Status)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	feed := &gtfsrt.FeedMessage{}
	if err := proto.Unmarshal(body, feed); err != nil {
		return nil, fmt.Errorf("decoding %s: %w", s.cfg.URL, err)
	}

	reports := make([]Report, 0, len(feed.Entity))
	for _, entity := range feed.Entity {
		vp := entity.GetVehicle()
		if vp == nil {
			continue
		}
		report, err := s.normalise(entity, vp)
		if err != nil {
			continue
		}
		reports = append(reports, report)
	}
	return reports, nil
}

func (s *GTFSRTSource) normalise(entity *gtfsrt.FeedEntity, vp *gtfsrt.VehiclePosition) (Report, error) {
	code := vp.GetVehicle().GetId()
	if code == "" {
		code = entity.GetId()
	}
	// Some feeds compose vehicle ids like "123_4567"; only the last segment
	// is the fleet number.
	if s.cfg.VehicleCodeScheme == "suffix" {
		if i := strings.LastIndexByte(code, '_'); i >= 0 {
			code = code[i+1:]
		}
	}
	if code == "" {
		return Report{}, fmt.Errorf("vehicle without id")
	}

	trip := vp.GetTrip()
	report := Report{
		VehicleCode: code,
		JourneyCode: trip.GetTripId(),
		RouteCode:   trip.GetRouteId(),
		Inbound:     trip.GetDirectionId() == 1,
		RecordedAt:  time.Now().UTC(),
	}
	if trip.GetStartDate() != "" && trip.GetStartTime() != "" {
		startTime, err := parseTimeOfDay(trip.GetStartTime())
		if err == nil {
			report.HasSchedule = true
			report.StartDate = trip.GetStartDate()
			report.StartTime = startTime
		}
	}

	if pos := vp.GetPosition(); pos != nil {
		report.HasPosition = true
		report.Lat = float64(pos.GetLatitude())
		report.Lon = float64(pos.GetLongitude())
		if bearing := pos.GetBearing(); bearing != 0 {
			report.Heading = sql.NullFloat64{Float64: float64(bearing), Valid: true}
		}
	}
	if vp.OccupancyStatus != nil {
		report.Occupancy = occupancyLabel(int(vp.GetOccupancyStatus()), s.cfg.OccupancyMapping)
	}
	if ts := vp.GetTimestamp(); ts != 0 {
		report.RecordedAt = time.Unix(int64(ts), 0).UTC()
	}

	raw, err := protojson.Marshal(entity)
	if err != nil {
		return Report{}, err
	}
	report.Raw = string(raw)
	return report, nil
}

// parseTimeOfDay parses an "HH:MM:SS" time which may pass midnight.
func parseTimeOfDay(s string) (int64, error) {
	parts := strings.Split(s, ":")
	if len(parts) != 3 {
		return 0, fmt.Errorf("malformed time of day %q", s)
	}
	var total int64
	for _, part := range parts {
		n, err := strconv.ParseInt(strings.TrimSpace(part), 10, 64)
		if err != nil {
			return 0, fmt.Errorf("malformed time of day %q", s)
		}
		total = total*60 + n
	}
	return total, nil
}
