package busdb

import "database/sql"

// Region is a top-level geographic area
type Region struct {
	ID   string // id
	Name string // name
}

// AdminArea is an administrative area used for assigning stops to regions
type AdminArea struct {
	ID       string // id
	RegionID string // region_id
	Name     string // name
}

// Source is one external data feed (a static timetable, a realtime API, or both)
type Source struct {
	ID        int64          // id
	Name      string         // name
	URL       string         // url
	CheckedAt sql.NullString // checked_at (RFC 3339, last successful import)
}

// Operator is a transport operator or agency
type Operator struct {
	NOC      string         // noc
	Name     string         // name
	URL      string         // url
	RegionID sql.NullString // region_id
}

// Service is a logical bus or train line
type Service struct {
	ID          int64          // id
	SourceID    int64          // source_id
	ServiceCode string         // service_code (external route id)
	LineName    string         // line_name
	Description string         // description
	Mode        string         // mode
	Current     bool           // current
	RegionID    sql.NullString // region_id
	Geometry    string         // geometry (WKT)
	SearchText  string         // search_text
}

// Route is one timetabled variant of a Service, scoped to one source
type Route struct {
	ID          int64         // id
	SourceID    int64         // source_id
	Code        string        // code
	LineName    string        // line_name
	Description string        // description
	ServiceID   sql.NullInt64 // service_id (null when superseded)
}

// Calendar is the set of dates a trip operates on
type Calendar struct {
	ID        int64  // id
	SourceID  int64  // source_id
	Code      string // code (feed service_id)
	Monday    bool   // monday
	Tuesday   bool   // tuesday
	Wednesday bool   // wednesday
	Thursday  bool   // thursday
	Friday    bool   // friday
	Saturday  bool   // saturday
	Sunday    bool   // sunday
	StartDate string // start_date (YYYYMMDD)
	EndDate   string // end_date (YYYYMMDD)
}

// CalendarDate is an added or removed operating date for a Calendar
type CalendarDate struct {
	CalendarID int64  // calendar_id
	Date       string // date (YYYYMMDD)
	Operation  bool   // operation (true = added, false = removed)
}

// Stop is a physical stop point
type Stop struct {
	AtcoCode    string         // atco_code
	CommonName  string         // common_name
	Indicator   string         // indicator
	Lat         float64        // lat
	Lon         float64        // lon
	AdminAreaID sql.NullString // admin_area_id
	SourceID    sql.NullInt64  // source_id (owning source)
	Active      bool           // active
}

// Trip is one scheduled vehicle run
type Trip struct {
	ID                 int64         // id
	RouteID            int64         // route_id
	CalendarID         sql.NullInt64 // calendar_id
	Inbound            bool          // inbound
	Start              sql.NullInt64 // start_time (seconds of day)
	End                sql.NullInt64 // end_time (seconds of day)
	Headsign           string        // headsign
	Destination        string        // destination (stop atco_code)
	Block              string        // block
	TicketMachineCode  string        // ticket_machine_code (feed trip_id)
	VehicleJourneyCode string        // vehicle_journey_code
	OperatorNOC        string        // operator_noc
}

// StopTime is one stop visit within a Trip
type StopTime struct {
	TripID      int64         // trip_id
	StopCode    string        // stop_code
	Arrival     sql.NullInt64 // arrival (null = same as departure)
	Departure   int64         // departure (seconds of day)
	Sequence    int64         // sequence
	TimingPoint bool          // timing_point
	PickUp      bool          // pick_up
	SetDown     bool          // set_down
}

// RouteLink is the directed geometry between two adjacent stops on a Service
type RouteLink struct {
	ID        int64  // id
	ServiceID int64  // service_id
	FromStop  string // from_stop
	ToStop    string // to_stop
	Geometry  string // geometry (WKT LINESTRING)
}

// Vehicle is a tracked physical vehicle
type Vehicle struct {
	ID                int64         // id
	SourceID          int64         // source_id
	Code              string        // code
	OperatorNOC       string        // operator_noc
	LatestJourneyID   sql.NullInt64 // latest_journey_id
	LatestJourneyData string        // latest_journey_data (raw report JSON)
}

// VehicleJourney is one observed run of a Vehicle
type VehicleJourney struct {
	ID          int64         // id
	VehicleID   int64         // vehicle_id
	SourceID    int64         // source_id
	Code        string        // code (external trip code)
	StartAt     string        // start_at (RFC 3339)
	ServiceID   sql.NullInt64 // service_id
	TripID      sql.NullInt64 // trip_id
	Destination string        // destination
	RouteName   string        // route_name
}

// VehicleLocation is one position sample
type VehicleLocation struct {
	ID         int64           // id
	JourneyID  int64           // journey_id
	Lat        float64         // lat
	Lon        float64         // lon
	Heading    sql.NullFloat64 // heading
	Occupancy  string          // occupancy
	RecordedAt string          // recorded_at (RFC 3339)
}

// ImportRun records the outcome of one static feed import
type ImportRun struct {
	ID               string         // id (uuid)
	SourceID         int64          // source_id
	StartedAt        string         // started_at
	FinishedAt       sql.NullString // finished_at
	TripsCreated     int64          // trips_created
	TripsDropped     int64          // trips_dropped
	StopTimesWritten int64          // stop_times_written
	StopTimesSkipped int64          // stop_times_skipped
}
