package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/haguru/bookshelf/config"
	"github.com/haguru/bookshelf/internal/bookrepo"
	"github.com/haguru/bookshelf/internal/bookservice"
	"github.com/haguru/bookshelf/internal/cache"
	"github.com/haguru/bookshelf/internal/interfaces"
	storemetrics "github.com/haguru/bookshelf/internal/metrics"
	"github.com/haguru/bookshelf/internal/middleware"
	"github.com/haguru/bookshelf/internal/routes"
	"github.com/haguru/bookshelf/internal/server"
	"github.com/haguru/bookshelf/pkg/databases/mongo"
	"github.com/haguru/bookshelf/pkg/databases/postgres"
	"github.com/haguru/bookshelf/pkg/metrics"
	"github.com/haguru/bookshelf/pkg/zerolog"

	structValidator "github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

var (
	StartupTimeout  = 30 * time.Second
	ShutdownTimeout = 15 * time.Second
)

// App represents the main application, containing server and configuration.
// It initializes with a config file, validates settings, and manages routes.
type App struct {
	Server  interfaces.Server
	Config  *config.ServiceConfig
	Logger  interfaces.Logger
	Metrics interfaces.Metrics

	dbClient interfaces.DBClient
	redis    *redis.Client
}

// NewApp creates and configures a new App instance.
func NewApp(configPath string) (*App, error) {
	cfg, err := config.ReadLocalConfig(configPath)
	if err != nil {
		return nil, err
	}
	config.ApplyEnvOverrides(cfg, config.ENV_PATH)

	validator := structValidator.New()
	if err := cfg.Validate(validator); err != nil {
		return nil, err
	}

	logger := zerolog.NewZerologLogger(cfg.ServiceName)
	logger.SetLevel(cfg.LogLevel)

	app := &App{
		Config:  cfg,
		Logger:  logger,
		Metrics: newMetrics(cfg.ServiceName),
		Server:  server.NewServer(cfg.Host, cfg.Port, logger),
	}

	ctx, cancel := context.WithTimeout(context.Background(), StartupTimeout)
	defer cancel()

	if err := app.initializeDBClient(ctx); err != nil {
		app.Close()
		return nil, fmt.Errorf("failed to initialize database client: %w", err)
	}

	bookRepo := bookrepo.NewBookRepository(app.initializeRecordStore(ctx))
	if err := bookRepo.EnsureIndexes(ctx); err != nil {
		app.Close()
		return nil, fmt.Errorf("failed to ensure indexes: %w", err)
	}

	bookService := bookservice.NewBookService(bookRepo, app.dbClient, logger, app.Metrics)
	route := routes.NewRoute(app.Metrics, bookService, validator)

	if err := app.addRoutes(route); err != nil {
		app.Close()
		return nil, err
	}

	limiter := middleware.NewLimiter(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst)
	app.Server.Use(middleware.RateLimitMiddleware(limiter, logger, app.Metrics))

	return app, nil
}

// Run serves HTTP until SIGINT or SIGTERM, then shuts the server down and closes the database.
func (app *App) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- app.Server.ListenAndServe()
	}()

	var err error
	select {
	case err = <-serveErr:
	case <-ctx.Done():
		app.Logger.Info("Shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
		defer cancel()
		err = app.Server.Shutdown(shutdownCtx)
		if serveFailure := <-serveErr; err == nil {
			err = serveFailure
		}
	}

	app.Close()
	return err
}

// Close releases the database link and the cache client. It is safe to call more than once.
func (app *App) Close() {
	ctx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
	defer cancel()

	if app.dbClient != nil {
		if err := app.dbClient.Disconnect(ctx); err != nil {
			app.Logger.Error("Failed to disconnect from database", "error", err)
		}
	}
	if app.redis != nil {
		if err := app.redis.Close(); err != nil && !errors.Is(err, redis.ErrClosed) {
			app.Logger.Error("Failed to close cache client", "error", err)
		}
	}
}

func newMetrics(serviceName string) interfaces.Metrics {
	appMetrics := metrics.NewMetrics(serviceName)
	storemetrics.RegisterStoreMetrics(appMetrics)
	storemetrics.RegisterHTTPMetrics(appMetrics)
	return appMetrics
}

func (app *App) initializeDBClient(ctx context.Context) error {
	dbCfg := app.Config.Database

	var dsn string
	switch dbCfg.Type {
	case config.DatabaseTypeMongo:
		app.dbClient = mongo.NewMongoDB(&dbCfg.MongoDB, app.Logger)
		dsn = config.BuildMongoURI(dbCfg.MongoDB)

	case config.DatabaseTypePostgres:
		app.dbClient = postgres.NewPostgresDatabaseClient(dbCfg.Postgres.Options, app.Logger)
		dsn = dbCfg.Postgres.DSN

	default:
		return fmt.Errorf("unsupported database type: %s", dbCfg.Type)
	}

	if err := app.dbClient.Connect(ctx, dsn); err != nil {
		return fmt.Errorf("failed to connect to %s: %w", dbCfg.Type, err)
	}
	return nil
}

// initializeRecordStore builds the book store, behind the Redis cache when it is enabled.
func (app *App) initializeRecordStore(ctx context.Context) interfaces.RecordStore {
	store := bookrepo.NewBookStore(app.dbClient, app.Logger, app.Metrics)
	if !app.Config.Cache.Enabled {
		return store
	}

	app.redis = cache.NewRedisClient(app.Config.Cache)
	if err := app.redis.Ping(ctx).Err(); err != nil {
		// reads fall back to the store while redis is away
		app.Logger.Warn("Cache unreachable at startup", "addr", app.Config.Cache.Addr, "error", err)
	}
	return cache.NewCachedStore(store, app.redis, app.Config.Cache, app.Logger, app.Metrics)
}

func (app *App) addRoutes(route *routes.Route) error {
	metricsHandler := promhttp.HandlerFor(app.Metrics.GetRegistry(), promhttp.HandlerOpts{})
	tracedMetricsHandler := otelhttp.NewHandler(metricsHandler, routes.MetricsRouteAPI)
	if err := app.Server.AddRoute(routes.MetricsRouteAPI, tracedMetricsHandler.ServeHTTP); err != nil {
		return fmt.Errorf("failed to add metrics route: %w", err)
	}

	for _, r := range []struct {
		pattern string
		handler http.HandlerFunc
	}{
		{routes.CreateBookRouteAPI, route.CreateBook},
		{routes.ListBooksRouteAPI, route.ListBooks},
		{routes.FirstBookRouteAPI, route.FirstBook},
		{routes.GetBookRouteAPI, route.GetBook},
		{routes.SaveBookRouteAPI, route.SaveBook},
		{routes.UpdateBooksRouteAPI, route.UpdateBooks},
		{routes.RemoveBooksRouteAPI, route.RemoveBooks},
		{routes.HealthRouteAPI, route.Health},
	} {
		if err := app.Server.AddRoute(r.pattern, route.Instrument(r.pattern, r.handler)); err != nil {
			return fmt.Errorf("failed to add route %s: %w", r.pattern, err)
		}
	}
	return nil
}
