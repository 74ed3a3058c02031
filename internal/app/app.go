package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/hashicorp/go-multierror"
	"golang.org/x/sync/errgroup"

	"bikedash/internal/config"
	apierrors "bikedash/internal/errors"
	"bikedash/internal/exporter"
	"bikedash/internal/infrastructure"
	customMiddleware "bikedash/internal/middleware"
	"bikedash/internal/rentals"
	"bikedash/internal/services"
	handlers "bikedash/internal/transport/http"
	"bikedash/internal/watcher"
	ws "bikedash/internal/websocket"
)

// Options configure NewApplication
type Options struct {
	// ConfigFile is an explicit YAML file; empty means the well-known locations.
	ConfigFile string
	Build      services.BuildInfo
	// Configure, when set, adjusts the loaded configuration before anything
	// is wired, e.g. with command-line overrides.
	Configure func(*config.Config) error
}

// Application represents the main application container
type Application struct {
	Config        *config.Config
	Paths         *config.Paths
	Logger        *slog.Logger
	OTelProviders *infrastructure.OTelProviders
	Metrics       *infrastructure.DashboardMetrics
	ErrorHandler  *apierrors.ErrorHandler

	Dashboard    *services.DashboardService
	Health       *services.HealthService
	WebSocketHub *ws.Hub
	Watcher      *watcher.Watcher

	Router *chi.Mux
	Server *http.Server

	build services.BuildInfo
}

// NewApplication loads configuration and logging, then wires the application
func NewApplication(opts Options) (*Application, error) {
	cfg, err := config.Load(opts.ConfigFile)
	if err != nil {
		return nil, apierrors.NewConfigError("failed to load configuration", err)
	}
	if opts.Configure != nil {
		if err := opts.Configure(cfg); err != nil {
			return nil, apierrors.NewConfigError("invalid configuration", err)
		}
	}

	paths, err := cfg.ResolvePaths()
	if err != nil {
		return nil, apierrors.NewConfigError("failed to resolve paths", err)
	}

	logCfg := cfg.Logging
	logCfg.FilePath = paths.LogFile
	logger, err := infrastructure.InitializeLogger(logCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	return New(cfg, opts.Build, logger)
}

// New wires an application from an already loaded configuration
func New(cfg *config.Config, build services.BuildInfo, logger *slog.Logger) (*Application, error) {
	if build.Version == "" {
		build.Version = config.AppVersion
	}

	paths, err := cfg.ResolvePaths()
	if err != nil {
		return nil, apierrors.NewConfigError("failed to resolve paths", err)
	}
	if err := paths.EnsureDirectories(); err != nil {
		return nil, apierrors.NewStorageError("failed to create directories", err)
	}

	providers, err := infrastructure.InitializeOTel(infrastructure.NewOTelConfig(cfg.Telemetry, build.Version), logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize OpenTelemetry: %w", err)
	}
	metrics, err := infrastructure.CreateDashboardMetrics(providers.Meter)
	if err != nil {
		return nil, fmt.Errorf("failed to create metrics: %w", err)
	}

	a := &Application{
		Config:        cfg,
		Paths:         paths,
		Logger:        logger,
		OTelProviders: providers,
		Metrics:       metrics,
		build:         build,
	}

	a.initializeServices()
	a.setupRouter()
	a.createServer()

	logger.Info("application initialized",
		slog.String("name", config.AppName),
		slog.String("version", build.Version),
		slog.String("dataset", paths.DatasetFile),
		slog.Int("port", cfg.Server.Port))
	return a, nil
}

func (a *Application) initializeServices() {
	a.ErrorHandler = apierrors.NewErrorHandler(a.Logger, a.Config.Logging.Development)
	handlers.RegisterErrorMappings(a.ErrorHandler)

	loader := rentals.NewLoader(rentals.Options{
		Profile:      a.Config.Dataset.Profile,
		MaxRowErrors: a.Config.Dataset.MaxRowErrors,
		Logger:       a.Logger,
	})

	a.Dashboard = services.NewDashboardService(services.DashboardOptions{
		Path:     a.Paths.DatasetFile,
		Loader:   loader,
		Exporter: exporter.New(a.Logger),
		Tracer:   a.OTelProviders.Tracer,
		Metrics:  a.Metrics,
		Logger:   a.Logger,
	})

	a.WebSocketHub = ws.NewHub(a.Metrics, a.Logger)
	a.Dashboard.Subscribe(ws.NewReloadNotifier(a.WebSocketHub))

	a.Health = services.NewHealthService(a.build, a.Paths.DatasetFile, a.Dashboard, a.WebSocketHub, a.Logger)
}

func (a *Application) corsConfig() customMiddleware.CORSConfig {
	return customMiddleware.CORSConfig{
		AllowedOrigins: a.Config.Security.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", customMiddleware.RequestIDHeader},
		ExposedHeaders: []string{customMiddleware.RequestIDHeader, "Content-Disposition"},
		MaxAge:         300,
		Logger:         a.Logger,
	}
}

func (a *Application) setupRouter() {
	r := chi.NewRouter()
	r.Use(customMiddleware.RequestID)
	r.NotFound(a.ErrorHandler.NotFound)
	r.MethodNotAllowed(a.ErrorHandler.MethodNotAllowed)

	// the websocket route must not sit behind middleware that wraps the writer
	r.Handle(config.WebSocketEndpoint, ws.NewHandler(a.WebSocketHub, a.Config.WebSocket, a.Config.Security.AllowedOrigins, a.Logger))

	if a.OTelProviders.PrometheusHTTP != nil {
		r.Handle(config.MetricsEndpoint, a.OTelProviders.PrometheusHTTP)
	}

	r.Group(func(r chi.Router) {
		r.Use(customMiddleware.NewOTelMiddleware(a.OTelProviders.Tracer, a.Metrics).Handler)
		r.Use(customMiddleware.StructuredLogger(a.Logger))
		r.Use(a.ErrorHandler.Recoverer)
		r.Use(customMiddleware.SecurityHeaders)
		if a.Config.Security.EnableCORS {
			r.Use(customMiddleware.CORS(a.corsConfig()))
		}
		if a.Config.Security.RateLimit.Enabled {
			r.Use(customMiddleware.NewRateLimiter(
				a.Config.Security.RateLimit.RPS,
				a.Config.Security.RateLimit.Burst,
				a.Logger,
			).Handler)
		}
		r.Use(customMiddleware.Timeout(a.Config.Server.RequestTimeout))

		healthHandler := handlers.NewHealthHandler(a.Health, a.Logger)
		dashboardHandler := handlers.NewDashboardHandler(a.Dashboard, a.Logger, a.ErrorHandler)

		r.Route(config.APIBasePath, func(r chi.Router) {
			r.Mount("/health", healthHandler.Routes())
			r.Get("/version", healthHandler.Version)
			r.Mount("/dashboard", dashboardHandler.Routes())
		})
	})

	a.Router = r
}

func (a *Application) createServer() {
	a.Server = &http.Server{
		Addr:           fmt.Sprintf(":%d", a.Config.Server.Port),
		Handler:        a.Router,
		ReadTimeout:    a.Config.Server.ReadTimeout,
		WriteTimeout:   a.Config.Server.WriteTimeout,
		IdleTimeout:    a.Config.Server.IdleTimeout,
		MaxHeaderBytes: a.Config.Server.MaxHeaderBytes,
		ErrorLog:       slog.NewLogLogger(a.Logger.Handler(), slog.LevelWarn),
	}
}

// Start loads the dataset and starts the background services. A dataset
// that cannot be loaded is fatal.
func (a *Application) Start(ctx context.Context) error {
	ctx = infrastructure.EnsureTraceID(ctx)

	report, err := a.Dashboard.Load(ctx)
	if err != nil {
		a.Logger.ErrorContext(ctx, "failed to load dataset",
			slog.String("path", a.Paths.DatasetFile),
			slog.String("error", err.Error()))
		return fmt.Errorf("failed to load dataset: %w", err)
	}
	a.Logger.InfoContext(ctx, "dataset ready",
		slog.String("profile", report.Profile),
		slog.Int("rows", report.Rows),
		slog.Int("unknown_season_rows", report.UnknownSeasonRows),
		slog.Duration("duration", report.Duration))

	a.WebSocketHub.Start()

	if a.Config.Dataset.Watch {
		w, err := watcher.New(a.Paths.DatasetFile, a.Dashboard, a.Config.Dataset.WatchDebounce, a.Logger)
		if err != nil {
			return err
		}
		if err := w.Start(context.WithoutCancel(ctx)); err != nil {
			w.Stop()
			return err
		}
		a.Watcher = w
	}
	return nil
}

// Stop shuts the server and background services down. Every step runs even
// when an earlier one fails.
func (a *Application) Stop(ctx context.Context) error {
	a.Logger.InfoContext(ctx, "shutting down application")

	shutdownCtx, cancel := context.WithTimeout(ctx, a.Config.Server.ShutdownTimeout)
	defer cancel()

	var result *multierror.Error
	if err := a.Server.Shutdown(shutdownCtx); err != nil {
		result = multierror.Append(result, fmt.Errorf("server shutdown: %w", err))
	}
	if a.Watcher != nil {
		if err := a.Watcher.Stop(); err != nil {
			result = multierror.Append(result, err)
		}
	}
	a.WebSocketHub.Stop()
	if err := a.OTelProviders.Shutdown(shutdownCtx); err != nil {
		result = multierror.Append(result, fmt.Errorf("telemetry shutdown: %w", err))
	}

	if err := result.ErrorOrNil(); err != nil {
		a.Logger.ErrorContext(ctx, "shutdown finished with errors", slog.String("error", err.Error()))
		return err
	}
	a.Logger.InfoContext(ctx, "application shutdown complete")
	return nil
}

// Run starts the application and serves HTTP until ctx is cancelled or an
// interrupt arrives.
func (a *Application) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := a.Start(ctx); err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		a.Logger.InfoContext(gctx, "listening", slog.String("address", a.Server.Addr))
		if err := a.Server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		return a.Stop(context.WithoutCancel(gctx))
	})

	err := g.Wait()
	infrastructure.CloseLogFile()
	return err
}
