package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/DefoxxAnalytics/Etn-Quarterly/internal/cache"
	"github.com/DefoxxAnalytics/Etn-Quarterly/internal/config"
	"github.com/DefoxxAnalytics/Etn-Quarterly/internal/dataprocessing"
	apierrors "github.com/DefoxxAnalytics/Etn-Quarterly/internal/errors"
	"github.com/DefoxxAnalytics/Etn-Quarterly/internal/exporter"
	"github.com/DefoxxAnalytics/Etn-Quarterly/internal/files"
	"github.com/DefoxxAnalytics/Etn-Quarterly/internal/infrastructure"
	customMiddleware "github.com/DefoxxAnalytics/Etn-Quarterly/internal/middleware"
	"github.com/DefoxxAnalytics/Etn-Quarterly/internal/services"
	handlers "github.com/DefoxxAnalytics/Etn-Quarterly/internal/transport/http"
	ws "github.com/DefoxxAnalytics/Etn-Quarterly/internal/websocket"
	"github.com/DefoxxAnalytics/Etn-Quarterly/pkg/contracts"
)

const runtimeCollectInterval = 15 * time.Second

// Application represents the main application container
type Application struct {
	Config        *config.Config
	Paths         *config.Paths
	Router        *chi.Mux
	Server        *http.Server
	Logger        *slog.Logger
	OTelProviders *infrastructure.OTelProviders
	Metrics       *infrastructure.PipelineMetrics
	Runtime       *infrastructure.RuntimeCollector
	WebSocketHub  *ws.Hub
	Memo          *cache.Memo
	Files         *files.Manager
	DataService   *services.DataService
	HealthService *services.HealthService

	errorHandler *apierrors.ErrorHandler
	validator    *customMiddleware.Validator
	listenAddr   string
}

// NewApplication wires every component from cfg. logger is the process
// logger built by the caller from cfg.Logging.
func NewApplication(cfg *config.Config, logger *slog.Logger) (*Application, error) {
	if cfg == nil {
		return nil, errors.New("config is required")
	}
	if logger == nil {
		logger = slog.Default()
	}

	logger.Info("application starting",
		slog.String("name", config.AppName),
		slog.String("version", contracts.Version))

	paths, err := cfg.ResolvePaths()
	if err != nil {
		return nil, fmt.Errorf("failed to resolve paths: %w", err)
	}
	if err := paths.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("failed to ensure directories: %w", err)
	}
	paths.LogPathResolution(logger)

	otelProviders, err := infrastructure.InitializeOTel(infrastructure.OTelConfigFromTelemetry(cfg.Telemetry), logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize OpenTelemetry: %w", err)
	}

	app := &Application{
		Config:        cfg,
		Paths:         paths,
		Logger:        logger,
		OTelProviders: otelProviders,
		errorHandler:  apierrors.NewErrorHandler(logger, cfg.Logging.Development),
		validator:     customMiddleware.NewValidator(logger),
	}

	if err := app.initializeServices(); err != nil {
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	app.setupRouter()
	app.createServer()

	return app, nil
}

// initializeServices builds the dataset pipeline and its collaborators
func (a *Application) initializeServices() error {
	metrics, err := infrastructure.NewPipelineMetrics(a.OTelProviders.Meter)
	if err != nil {
		return err
	}
	a.Metrics = metrics

	runtimeCollector, err := infrastructure.NewRuntimeCollector(a.OTelProviders.Meter, runtimeCollectInterval)
	if err != nil {
		return err
	}
	a.Runtime = runtimeCollector

	hubMetrics, err := ws.NewHubMetrics(a.OTelProviders.Meter)
	if err != nil {
		return err
	}
	a.WebSocketHub = ws.NewHub(a.Logger, ws.WithHubMetrics(hubMetrics))

	a.Memo = cache.New(a.Config.Cache)
	a.Files = files.NewManager(a.Paths, a.Logger)

	loader := dataprocessing.NewLoader(a.Logger, a.Config.Data)
	reports := exporter.NewReportBuilder(a.Logger, a.Config.Analysis, a.Config.Data.MaxExportRows)

	a.DataService = services.NewDataService(loader, a.Memo, reports, a.Config.Analysis, a.Logger,
		services.WithMetrics(metrics),
		services.WithTracer(a.OTelProviders.Tracer),
		services.WithEventPublisher(a.WebSocketHub),
		services.WithUploadArchiver(a.Files),
	)

	a.HealthService = services.NewHealthService(a.Paths, a.DataService, a.WebSocketHub, a.Logger)
	return nil
}

// setupRouter configures the HTTP router with all routes
func (a *Application) setupRouter() {
	r := chi.NewRouter()

	r.Use(customMiddleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(apierrors.NewErrorMiddleware(a.errorHandler, a.Logger).Handler)
	r.Use(customMiddleware.SecurityHeaders)
	r.Use(customMiddleware.CORS(a.Config.Security, a.Logger))

	r.NotFound(a.errorHandler.NotFound)
	r.MethodNotAllowed(a.errorHandler.MethodNotAllowed)

	health := handlers.NewHealthHandler(a.HealthService, a.Logger)
	metricsHandler := handlers.NewMetricsHandler(a.OTelProviders.PrometheusHTTP, a.DataService, a.WebSocketHub, a.HealthService, a.errorHandler)

	// Probes and scrapes stay outside tracing and rate limiting
	r.Get(config.HealthEndpoint, health.HealthCheck)
	r.Get(config.HealthEndpoint+"/ready", health.ReadinessCheck)
	r.Get(config.HealthEndpoint+"/live", health.LivenessCheck)
	r.Get(config.MetricsEndpoint, metricsHandler.Prometheus)

	// The websocket route must not be wrapped by Timeout
	r.Handle(config.WebSocketEndpoint, handlers.NewWebSocketHandler(a.WebSocketHub, a.Config.WebSocket, a.Config.Security.AllowedOrigins, a.Logger))

	r.Group(func(r chi.Router) {
		r.Use(customMiddleware.NewOTelMiddleware(a.OTelProviders.Tracer, a.Metrics).Handler)
		r.Use(customMiddleware.NewRateLimiter(a.Config.Security.RateLimit, a.errorHandler, a.Logger).Handler)
		if a.Config.Server.RequestTimeout > 0 {
			r.Use(middleware.Timeout(a.Config.Server.RequestTimeout))
		}

		r.Get("/version", health.Version)
		r.Get(config.HealthEndpoint+"/detailed", health.Detailed)

		data := handlers.NewDataHandler(a.DataService, a.validator, a.Config.Analysis, a.Config.Data.MaxUploadBytes, a.Logger, a.errorHandler)
		clientLog := handlers.NewClientLogHandler(a.validator, a.errorHandler, a.Logger)

		r.Route(config.APIBasePath, func(r chi.Router) {
			r.Get("/stats", metricsHandler.GetStats)
			r.With(customMiddleware.MaxBodySize(64<<10)).Post("/client-log", clientLog.Handle)
			r.Mount("/", data.Routes())
		})
	})

	a.Router = r
}

// createServer creates the HTTP server
func (a *Application) createServer() {
	a.Server = &http.Server{
		Addr:           net.JoinHostPort(a.Config.Server.Host, strconv.Itoa(a.Config.Server.Port)),
		Handler:        a.Router,
		ReadTimeout:    a.Config.Server.ReadTimeout,
		WriteTimeout:   a.Config.Server.WriteTimeout,
		IdleTimeout:    a.Config.Server.IdleTimeout,
		MaxHeaderBytes: a.Config.Server.MaxHeaderBytes,
		ErrorLog:       slog.NewLogLogger(a.Logger.Handler(), slog.LevelWarn),
	}
}

// LoadInitialDataset loads the configured source. When it is missing the
// most recent archived upload is used instead. Failing to load leaves the
// service without data; the dashboard keeps running and accepts uploads.
func (a *Application) LoadInitialDataset(ctx context.Context) error {
	path := a.Paths.ResolveDataPath(a.Config.Data.Path)

	if path == "" || !config.FileExists(path) {
		latest, ok, err := files.NewDiscovery(a.Paths.BaseDir).LatestSource(a.Paths.UploadsDir)
		if err != nil || !ok {
			a.Logger.WarnContext(ctx, "no purchase-order source available, waiting for upload",
				slog.String("configured_path", path),
				slog.String("uploads_dir", a.Paths.UploadsDir))
			return nil
		}
		a.Logger.InfoContext(ctx, "configured source missing, using latest archived upload",
			slog.String("configured_path", path),
			slog.String("path", latest.Path))
		path = latest.Path
	}

	ds, err := a.DataService.LoadFile(ctx, path)
	if err != nil {
		return fmt.Errorf("failed to load %s: %w", path, err)
	}

	a.Logger.InfoContext(ctx, "dataset loaded",
		slog.String("source", ds.Source),
		slog.Int("records", ds.Len()),
		slog.Int("dropped", ds.Report.TotalDropped()))
	return nil
}

// Start starts background workers and the HTTP server. cancel is called if
// the server stops unexpectedly.
func (a *Application) Start(ctx context.Context, cancel context.CancelFunc) error {
	a.Logger.InfoContext(ctx, "starting application",
		slog.String("address", a.Server.Addr),
		slog.String("level", a.Config.Logging.Level))

	a.WebSocketHub.Start()
	go a.Runtime.Start(ctx)

	if err := a.LoadInitialDataset(ctx); err != nil {
		a.Logger.ErrorContext(ctx, "initial dataset load failed", slog.String("error", err.Error()))
	}

	listener, err := net.Listen("tcp", a.Server.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", a.Server.Addr, err)
	}

	a.listenAddr = listener.Addr().String()

	go func() {
		if err := a.Server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.Logger.ErrorContext(ctx, "server error", slog.String("error", err.Error()))
			cancel()
		}
	}()

	a.Logger.InfoContext(ctx, "application started",
		slog.String("address", a.listenAddr))
	return nil
}

// Addr returns the address the server is listening on once Start has run
func (a *Application) Addr() string {
	return a.listenAddr
}

// Stop gracefully stops the application
func (a *Application) Stop(ctx context.Context) error {
	a.Logger.InfoContext(ctx, "shutting down application")

	shutdownCtx, cancel := context.WithTimeout(ctx, a.Config.Server.ShutdownTimeout)
	defer cancel()

	var errs []error
	if err := a.Server.Shutdown(shutdownCtx); err != nil {
		errs = append(errs, fmt.Errorf("server shutdown: %w", err))
	}

	a.WebSocketHub.Stop()
	a.Runtime.Stop()
	a.Memo.Stop()

	if a.OTelProviders != nil {
		if err := a.OTelProviders.Shutdown(shutdownCtx); err != nil {
			a.Logger.ErrorContext(ctx, "error shutting down OpenTelemetry", slog.String("error", err.Error()))
		}
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	a.Logger.InfoContext(ctx, "application shutdown complete")
	return nil
}

// Run runs the application until interrupted
func (a *Application) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	if err := a.Start(ctx, cancel); err != nil {
		return err
	}

	select {
	case sig := <-sigChan:
		a.Logger.InfoContext(ctx, "received signal", slog.String("signal", sig.String()))
	case <-ctx.Done():
		a.Logger.WarnContext(ctx, "server stopped unexpectedly")
	}

	return a.Stop(context.Background())
}
