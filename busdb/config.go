package busdb

// Config holds configuration options for the Client
type Config struct {
	DBPath  string // Path to SQLite database file
	Verbose bool   // Verbose logging
}

func NewConfig(dbPath string, verbose bool) Config {
	return Config{
		DBPath:  dbPath,
		Verbose: verbose,
	}
}
