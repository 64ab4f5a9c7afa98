package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/chemcat/chemcat-cli/config"
	"github.com/chemcat/chemcat-cli/internal/adapters/redissignal"
	"github.com/chemcat/chemcat-cli/internal/adapters/snapshot"
	"github.com/chemcat/chemcat-cli/internal/adapters/viewer"
	"github.com/chemcat/chemcat-cli/internal/api"
	"github.com/chemcat/chemcat-cli/internal/observability/statsd"
	"github.com/chemcat/chemcat-cli/internal/ports"
	"github.com/chemcat/chemcat-cli/internal/service"
	"github.com/redis/go-redis/v9"
)

// App holds the wired client services and the handles needed to shut them
// down.
type App struct {
	Client    *api.Client
	Session   *service.SessionStore
	Resolver  *service.StructureResolver
	Compounds *service.CompoundService
	Admin     *service.AdminService
	Metrics   *statsd.Client
	Logger    *slog.Logger

	notifier *redissignal.Notifier
	redis    *redis.Client
	detach   func()
}

// BuildApp wires the full client stack from configuration. The returned App
// owns its connections; call Close when done.
func BuildApp(ctx context.Context, cfg config.AppConfig, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}

	metrics, err := statsd.NewClient(statsd.Config{
		Enabled: cfg.Observability.Metrics.IsEnabled(),
		Address: cfg.Observability.Metrics.StatsdAddress,
		Prefix:  "chemcat",
		Logger:  logger,
	})
	if err != nil {
		return nil, fmt.Errorf("create metrics client: %w", err)
	}

	client, err := api.NewClient(api.Options{
		BaseURL:   cfg.API.BaseURL,
		Timeout:   cfg.API.Timeout,
		UserAgent: cfg.API.UserAgent,
		Logger:    logger,
	})
	if err != nil {
		return nil, fmt.Errorf("create api client: %w", err)
	}

	app := &App{
		Client:  client,
		Metrics: metrics,
		Logger:  logger,
	}

	var snapshots ports.SnapshotStore
	if cfg.Session.SnapshotPath != "" {
		store, serr := snapshot.NewFileStore(filepath.Clean(cfg.Session.SnapshotPath))
		if serr != nil {
			return nil, fmt.Errorf("create snapshot store: %w", serr)
		}
		snapshots = store
	}

	var publisher ports.ChangePublisher
	if cfg.Signal.UseRedis {
		app.redis = redis.NewClient(&redis.Options{
			Addr:     cfg.Signal.RedisAddr,
			Password: cfg.Signal.RedisPassword,
			DB:       cfg.Signal.RedisDB,
		})
		app.notifier = redissignal.NewNotifier(ctx, app.redis, cfg.Signal.Channel, logger)
		publisher = app.notifier
	}

	app.Session = service.NewSessionStore(ctx, service.SessionStoreOptions{
		Client:    client,
		Snapshots: snapshots,
		Publisher: publisher,
		Logger:    logger,
		Metrics:   metrics,
	})
	if app.notifier != nil {
		app.detach = app.Session.AttachAutoRefresh(app.notifier)
	}

	app.Resolver = service.NewStructureResolver(service.StructureResolverOptions{
		Loader:       viewer.Static(viewer.TermEngine{}),
		FetchTimeout: cfg.Viewer.FetchTimeout,
		Logger:       logger,
		Metrics:      metrics,
	})

	app.Compounds = service.NewCompoundService(service.CompoundServiceOptions{API: app.Session})
	app.Admin = service.NewAdminService(service.AdminServiceOptions{API: app.Session})

	return app, nil
}

// Close releases the app's connections. Safe to call once.
func (a *App) Close() error {
	if a == nil {
		return nil
	}
	if a.detach != nil {
		a.detach()
	}
	var firstErr error
	if a.notifier != nil {
		if err := a.notifier.Close(); err != nil {
			firstErr = err
		}
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if a.Metrics != nil {
		if err := a.Metrics.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
