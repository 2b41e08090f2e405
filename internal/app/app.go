// Package app wires the preference core together: storage engine,
// identity session, remote store, notifier, metrics and the facade.
package app

import (
	"context"
	"errors"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/artpar/staykeep/internal/config"
	"github.com/artpar/staykeep/internal/identity"
	"github.com/artpar/staykeep/internal/logging"
	"github.com/artpar/staykeep/internal/metrics"
	"github.com/artpar/staykeep/internal/notify"
	"github.com/artpar/staykeep/internal/prefs"
	"github.com/artpar/staykeep/internal/remote"
	remotememory "github.com/artpar/staykeep/internal/remote/memory"
	"github.com/artpar/staykeep/internal/remote/sqlstore"
	"github.com/artpar/staykeep/internal/storage"
	"github.com/artpar/staykeep/internal/storage/filesystem"
	"github.com/artpar/staykeep/internal/storage/memory"
	"github.com/artpar/staykeep/internal/storage/s3"
	"github.com/artpar/staykeep/internal/storage/sqlite"
)

// App is the application container with dependency injection.
type App struct {
	config   config.Config
	logger   *zap.Logger
	metrics  *metrics.Metrics
	notifier *notify.Notifier
	session  *identity.Session
	engine   storage.Engine
	remote   remote.Store
	service  *prefs.Service

	ownsEngine bool
	ownsRemote bool
}

// Option is a function that configures the App.
type Option func(*App)

// WithLogger sets the logger instead of building one from the config.
func WithLogger(logger *zap.Logger) Option {
	return func(a *App) {
		a.logger = logger
	}
}

// WithEngine sets the local storage engine. The caller keeps ownership.
func WithEngine(engine storage.Engine) Option {
	return func(a *App) {
		a.engine = engine
	}
}

// WithRemote sets the remote store. The caller keeps ownership.
func WithRemote(store remote.Store) Option {
	return func(a *App) {
		a.remote = store
	}
}

// WithSession sets the identity session.
func WithSession(session *identity.Session) Option {
	return func(a *App) {
		a.session = session
	}
}

// New builds the application from cfg.
func New(ctx context.Context, cfg config.Config, opts ...Option) (*App, error) {
	a := &App{config: cfg}
	for _, opt := range opts {
		opt(a)
	}

	if a.logger == nil {
		logger, err := logging.New(logging.Config{Level: cfg.Log.Level, JSON: cfg.Log.JSON})
		if err != nil {
			return nil, err
		}
		a.logger = logger
	}
	a.metrics = metrics.New()
	a.notifier = notify.New(
		notify.WithLogger(a.logger),
		notify.WithPanicCounter(a.metrics.ListenerPanics),
	)

	if err := a.open(ctx); err != nil {
		a.Close()
		return nil, err
	}

	local := prefs.NewLocalOnlyStore(a.engine, prefs.WithStoreLogger(a.logger))
	serviceOpts := []prefs.Option{
		prefs.WithIdentity(a.session),
		prefs.WithNotifier(a.notifier),
		prefs.WithMetrics(a.metrics),
		prefs.WithLogger(a.logger),
	}
	if a.remote != nil {
		serviceOpts = append(serviceOpts, prefs.WithRemote(a.remote))
	}

	service, err := prefs.NewService(ctx, local, serviceOpts...)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to start preference service: %w", err)
	}
	a.service = service
	return a, nil
}

func (a *App) open(ctx context.Context) error {
	if a.engine == nil {
		engine, err := OpenEngine(ctx, a.config)
		if err != nil {
			return err
		}
		a.engine = engine
		a.ownsEngine = true
	}

	if a.session == nil {
		if a.config.Storage.Driver == config.StorageMemory {
			a.session = identity.NewInMemorySession()
		} else {
			session, err := identity.NewSession(a.config.SessionPath())
			if err != nil {
				return err
			}
			a.session = session
		}
	}

	if a.remote == nil {
		store, err := OpenRemote(ctx, a.config)
		if err != nil {
			return err
		}
		a.remote = store
		a.ownsRemote = store != nil
	}
	return nil
}

// OpenEngine opens the local storage engine selected by cfg.
func OpenEngine(ctx context.Context, cfg config.Config) (storage.Engine, error) {
	switch cfg.Storage.Driver {
	case config.StorageMemory:
		return memory.New(), nil
	case config.StorageFile:
		return filesystem.New(cfg.FilesPath())
	case config.StorageS3:
		return s3.New(ctx, s3.Config{
			Region:          cfg.Storage.S3.Region,
			Bucket:          cfg.Storage.S3.Bucket,
			Prefix:          cfg.Storage.S3.Prefix,
			Endpoint:        cfg.Storage.S3.Endpoint,
			AccessKeyID:     cfg.Storage.S3.AccessKeyID,
			SecretAccessKey: cfg.Storage.S3.SecretAccessKey,
			PathStyle:       cfg.Storage.S3.PathStyle,
		})
	case config.StorageSQLite, "":
		if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create data directory: %w", err)
		}
		return sqlite.New(cfg.DatabasePath())
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
	}
}

// OpenRemote opens the remote store selected by cfg. It returns nil for
// the "none" driver.
func OpenRemote(ctx context.Context, cfg config.Config) (remote.Store, error) {
	switch cfg.Remote.Driver {
	case config.RemoteNone, "":
		return nil, nil
	case config.RemoteMemory:
		return remotememory.New(), nil
	case config.RemoteSQLite:
		if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create data directory: %w", err)
		}
		return sqlstore.Open(ctx, sqlstore.DriverSQLite, cfg.RemoteDSN())
	case config.RemotePostgres:
		return sqlstore.Open(ctx, sqlstore.DriverPostgres, cfg.RemoteDSN())
	default:
		return nil, fmt.Errorf("unknown remote driver %q", cfg.Remote.Driver)
	}
}

// Config returns the application configuration.
func (a *App) Config() config.Config { return a.config }

// Logger returns the logger.
func (a *App) Logger() *zap.Logger { return a.logger }

// Metrics returns the metrics registry.
func (a *App) Metrics() *metrics.Metrics { return a.metrics }

// Notifier returns the change notifier.
func (a *App) Notifier() *notify.Notifier { return a.notifier }

// Session returns the identity session.
func (a *App) Session() *identity.Session { return a.session }

// Service returns the preference facade.
func (a *App) Service() *prefs.Service { return a.service }

// SignIn records userID and switches to Remote mode, reporting a failed
// remote load.
func (a *App) SignIn(ctx context.Context, userID string) error {
	if err := a.session.SignIn(userID); err != nil {
		return err
	}
	return a.service.Sync(ctx)
}

// SignOut clears the session and returns to Local mode.
func (a *App) SignOut(ctx context.Context) error {
	if err := a.session.SignOut(); err != nil {
		return err
	}
	return a.service.Sync(ctx)
}

// Close releases everything the app opened.
func (a *App) Close() error {
	if a.service != nil {
		a.service.Close()
	}

	var errs []error
	if a.ownsRemote && a.remote != nil {
		errs = append(errs, a.remote.Close())
	}
	if a.ownsEngine && a.engine != nil {
		errs = append(errs, a.engine.Close())
	}
	if a.logger != nil {
		_ = a.logger.Sync()
	}
	return errors.Join(errs...)
}
