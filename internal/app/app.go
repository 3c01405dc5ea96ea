// Package app wires the reciclo client together. It opens the session store, builds the API
// client and the event bus, and constructs the session, catalog, recycling and marketplace
// services on top of them. The CLI and the end to end tests both start from NewApp.
package app

import (
	"context"
	"errors"
	"time"

	"reciclo/internal/api"
	"reciclo/internal/catalog"
	"reciclo/internal/config"
	"reciclo/internal/marketplace"
	"reciclo/internal/pkg/events"
	"reciclo/internal/pkg/logger"
	"reciclo/internal/pkg/notify"
	"reciclo/internal/pkg/report"
	"reciclo/internal/pkg/security"
	"reciclo/internal/recycling"
	"reciclo/internal/session"
	"reciclo/internal/storage"
)

// ErrMissingBaseURL indicates that no API address was configured.
var ErrMissingBaseURL = errors.New("app: missing API base URL")

const reporterFlushTimeout = 2 * time.Second

// Config holds the settings NewApp needs.
type Config struct {
	APIBaseURL     string
	RequestTimeout time.Duration
	SearchDebounce time.Duration

	// SessionDSN is the SQLite file of the session store. DatabaseURI, when set, selects
	// PostgreSQL instead.
	SessionDSN    string
	DatabaseURI   string
	Profile       string
	SessionSecret string

	DownloadDir string
	MinIO       catalog.MinIOConfig

	SentryDSN string
}

// ConfigFromEnv returns the Config described by the environment and the .env file.
func ConfigFromEnv() Config {
	return Config{
		APIBaseURL:     config.APIBaseURL,
		RequestTimeout: config.RequestTimeout,
		SearchDebounce: config.SearchDebounce,
		SessionDSN:     config.SessionDSN,
		DatabaseURI:    config.DatabaseURI,
		Profile:        storage.DefaultProfile,
		SessionSecret:  config.SessionSecret,
		DownloadDir:    config.DownloadDir,
		MinIO: catalog.MinIOConfig{
			Endpoint:  config.MinioEndpoint,
			AccessKey: config.MinioAccessKey,
			SecretKey: config.MinioSecretKey,
			Bucket:    config.MinioBucket,
			Secure:    config.MinioSecure,
		},
		SentryDSN: config.SentryDSN,
	}
}

// App encapsulates the client services and the resources they share.
type App struct {
	Config   Config
	Log      *logger.Logger
	Notifier notify.Notifier
	Reporter *report.Reporter
	Client   *api.Client
	Bus      *events.Bus
	Store    storage.Storage
	Sink     catalog.Sink

	Session     *session.Service
	Catalog     *catalog.Service
	Recycling   *recycling.Service
	Marketplace *marketplace.Service
}

// NewApp opens the session store and builds every service. The session is not started; call
// Start before reading the user.
func NewApp(ctx context.Context, cfg Config, notifier notify.Notifier, l *logger.Logger) (*App, error) {
	if cfg.APIBaseURL == "" {
		return nil, ErrMissingBaseURL
	}

	reporter, err := report.New(cfg.SentryDSN, l)
	if err != nil {
		l.Sugar().Errorf("Failed to set up error reporting: %s", err)
		reporter = report.Nop(l)
	}

	store, err := openStore(cfg, security.NewSealer(cfg.SessionSecret), l)
	if err != nil {
		return nil, err
	}

	sink, err := openSink(ctx, cfg)
	if err != nil {
		store.Close()
		return nil, err
	}

	client := api.NewClient(cfg.APIBaseURL, l, api.WithTimeout(cfg.RequestTimeout))
	bus := events.NewBus()
	notifier = notify.Multi{notifier, notify.NewLog(l)}

	app := &App{
		Config:   cfg,
		Log:      l,
		Notifier: notifier,
		Reporter: reporter,
		Client:   client,
		Bus:      bus,
		Store:    store,
		Sink:     sink,
	}
	app.Session = session.New(client, store, notifier, l, session.WithReporter(reporter), session.WithEvents(bus))
	app.Catalog = catalog.NewService(client, notifier, reporter, l)
	app.Recycling = recycling.NewService(client, notifier, reporter, bus, l)
	app.Marketplace = marketplace.NewService(client, notifier, reporter, bus, l)
	return app, nil
}

func openStore(cfg Config, sealer *security.Sealer, l *logger.Logger) (storage.Storage, error) {
	if cfg.DatabaseURI != "" {
		profile := cfg.Profile
		if profile == "" {
			profile = storage.DefaultProfile
		}
		return storage.NewPostgreSQL(cfg.DatabaseURI, profile, sealer, l)
	}
	return storage.NewSQLite(cfg.SessionDSN, sealer, l)
}

func openSink(ctx context.Context, cfg Config) (catalog.Sink, error) {
	if cfg.MinIO.Endpoint != "" {
		return catalog.NewMinIOSink(ctx, cfg.MinIO)
	}
	return catalog.NewDirSink(cfg.DownloadDir), nil
}

// Start restores the persisted session.
func (app *App) Start(ctx context.Context) error {
	return app.Session.Start(ctx)
}

// Close disposes of the session, closes the store and flushes pending error reports.
func (app *App) Close() {
	app.Session.Close()
	app.Store.Close()
	app.Reporter.Flush(reporterFlushTimeout)
}
