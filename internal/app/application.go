package app

import (
	"log/slog"

	"github.com/gladetimes/tapaastimes/busdb"
	"github.com/gladetimes/tapaastimes/internal/config"
)

// Application holds the dependencies shared by the commands: the parsed
// configuration, a logger and the database client.
type Application struct {
	Config *config.Config
	Logger *slog.Logger
	Client *busdb.Client
}

func New(configPath string, logger *slog.Logger) (*Application, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	client, err := busdb.NewClient(busdb.NewConfig(cfg.Database, false))
	if err != nil {
		return nil, err
	}
	return &Application{
		Config: cfg,
		Logger: logger,
		Client: client,
	}, nil
}

func (a *Application) Close() error {
	return a.Client.Close()
}
