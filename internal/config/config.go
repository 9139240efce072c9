package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// GTFSSettings configures the static timetable import for one source
type GTFSSettings struct {
	AgencyPrefix     string `yaml:"agency_prefix"`
	StopPrefix       string `yaml:"stop_prefix"`
	OperatorNOC      string `yaml:"operator_noc"`
	DefaultOperator  string `yaml:"default_operator"`
	OperatorMatching string `yaml:"operator_matching" validate:"omitempty,oneof=noc name url"`
	RegionHandling   string `yaml:"region_handling"`
	SkipRouteLinks   bool   `yaml:"skip_route_links"`
}

// RealtimeSettings configures the realtime vehicle feed for one source
type RealtimeSettings struct {
	URL               string            `yaml:"url" validate:"omitempty,url"`
	Format            string            `yaml:"format" validate:"omitempty,oneof=gtfsrt radar"`
	Timezone          string            `yaml:"timezone"`
	APIKey            string            `yaml:"api_key"`
	Headers           map[string]string `yaml:"headers"`
	VehicleCodeScheme string            `yaml:"vehicle_code_scheme" validate:"omitempty,oneof=full suffix"`
	OccupancyMapping  map[int]string    `yaml:"occupancy_mapping"`
	IntervalSeconds   int               `yaml:"interval_seconds" validate:"gte=0"`
}

// Source is the full configuration for one data source
type Source struct {
	Name     string           `yaml:"name" validate:"required"`
	URL      string           `yaml:"url" validate:"omitempty,url"`
	GTFS     GTFSSettings     `yaml:"gtfs"`
	Realtime RealtimeSettings `yaml:"realtime"`
}

// Config is the root configuration file
type Config struct {
	Database string   `yaml:"database" validate:"required"`
	CacheDir string   `yaml:"cache_dir"`
	Sources  []Source `yaml:"sources" validate:"required,dive"`
}

// Load reads, validates and defaults the configuration file. Unknown keys are
// ignored; missing keys get documented defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("error parsing config: %w", err)
	}

	v := validator.New()
	if err := v.Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	if cfg.CacheDir == "" {
		cfg.CacheDir = "data"
	}
	for i := range cfg.Sources {
		applyDefaults(&cfg.Sources[i])
	}
	return &cfg, nil
}

func applyDefaults(s *Source) {
	if s.GTFS.StopPrefix == "" {
		// Stop codes are namespaced per source so feeds cannot collide
		s.GTFS.StopPrefix = strings.ToLower(s.Name) + "-"
	}
	if s.GTFS.OperatorMatching == "" {
		s.GTFS.OperatorMatching = "noc"
	}
	if s.GTFS.RegionHandling == "" {
		s.GTFS.RegionHandling = "auto"
	}
	if s.Realtime.Format == "" {
		s.Realtime.Format = "gtfsrt"
	}
	if s.Realtime.Timezone == "" {
		s.Realtime.Timezone = "UTC"
	}
	if s.Realtime.VehicleCodeScheme == "" {
		s.Realtime.VehicleCodeScheme = "full"
	}
	if s.Realtime.IntervalSeconds == 0 {
		s.Realtime.IntervalSeconds = 60
	}
}

// FindSource returns the source with the given name
func (c *Config) FindSource(name string) (*Source, error) {
	for i := range c.Sources {
		if c.Sources[i].Name == name {
			return &c.Sources[i], nil
		}
	}
	return nil, fmt.Errorf("data source %q not found", name)
}
