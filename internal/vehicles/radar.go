package vehicles

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/gladetimes/tapaastimes/internal/config"
)

// radarItem is one vehicle record from a radar-style JSON API.
type radarItem struct {
	UniqueName       string `json:"UniqueName"`
	Name             string `json:"Name"`
	Loco             string `json:"Loco"`
	Simulator        string `json:"Simulator"`
	Points           string `json:"Points"` // "lon,lat"
	Speed            string `json:"Speed"`  // "103 km/h"
	DriveType        string `json:"DriveType"`
	Announcement     string `json:"Announcement"`
	AnnouncementType string `json:"AnnouncementType"`
}

// RadarSource reads vehicle positions from a radar-style JSON API, which is
// POSTed to and answers with an array of vehicle records. Vehicles that
// have not moved since the previous fetch are dropped, so each report
// represents a movement.
type RadarSource struct {
	name   string
	cfg    config.RealtimeSettings
	client *http.Client

	lastPoints map[string]string
}

func NewRadarSource(name string, cfg config.RealtimeSettings) *RadarSource {
	return &RadarSource{
		name:       name,
		cfg:        cfg,
		client:     &http.Client{Timeout: 20 * time.Second},
		lastPoints: map[string]string{},
	}
}

func (s *RadarSource) Name() string { return s.name }

func (s *RadarSource) FetchReports(ctx context.Context) ([]Report, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.cfg.URL, bytes.NewReader([]byte("{}")))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	for key, value := range s.cfg.Headers {
		req.Header.Set(key, value)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetching %s: unexpected status %s", s.cfg.URL, resp.Status)
	}

	var items []radarItem
	decoder := json.NewDecoder(resp.Body)
	if err := decoder.Decode(&items); err != nil {
		// The API sometimes returns a single object instead of an array.
		return nil, fmt.Errorf("decoding %s: %w", s.cfg.URL, err)
	}

	var reports []Report
	for _, item := range items {
		if item.UniqueName == "" {
			continue
		}
		if s.lastPoints[item.UniqueName] == item.Points {
			continue
		}
		report, err := s.normalise(item)
		if err != nil {
			continue
		}
		s.lastPoints[item.UniqueName] = item.Points
		reports = append(reports, report)
	}
	return reports, nil
}

func (s *RadarSource) normalise(item radarItem) (Report, error) {
	lon, lat, err := parsePoints(item.Points)
	if err != nil {
		return Report{}, err
	}
	raw, err := json.Marshal(item)
	if err != nil {
		return Report{}, err
	}
	code := truncate(item.UniqueName, 50)
	return Report{
		VehicleCode: code,
		RouteName:   truncate(item.Name, 64),
		Destination: truncate(item.Name, 255),
		HasPosition: true,
		Lat:         lat,
		Lon:         lon,
		RecordedAt:  time.Now().UTC(),
		Raw:         string(raw),
	}, nil
}

// parsePoints parses a "lon,lat" coordinate pair.
func parsePoints(points string) (lon, lat float64, err error) {
	parts := strings.Split(points, ",")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("malformed coordinates %q", points)
	}
	lon, err = strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return 0, 0, err
	}
	lat, err = strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return 0, 0, err
	}
	if lon < -180 || lon > 180 || lat < -90 || lat > 90 {
		return 0, 0, fmt.Errorf("coordinates out of range %q", points)
	}
	return lon, lat, nil
}

// truncate shortens s to at most n bytes without splitting a rune.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
