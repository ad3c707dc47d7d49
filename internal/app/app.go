package app

import (
	"context"
	"crypto/sha256"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/gorilla/websocket"
	"golang.org/x/sync/errgroup"

	"nbacli/internal/catalog"
	"nbacli/internal/config"
	"nbacli/internal/errors"
	"nbacli/internal/infrastructure"
	customMiddleware "nbacli/internal/middleware"
	"nbacli/internal/operations"
	"nbacli/internal/services"
	handlers "nbacli/internal/transport/http"
	ws "nbacli/internal/websocket"
)

const (
	Version = "1.4.0"
	RepoURL = "https://github.com/nbastats/nbacli"
	AppName = "nbacli dashboard server"
)

var (
	// BuildTime is set at compile time via -ldflags
	BuildTime = time.Now().Format(time.RFC3339)
	// BuildID identifies this build in health responses
	BuildID = generateBuildID()
)

func generateBuildID() string {
	h := sha256.New()
	h.Write([]byte(Version))
	h.Write([]byte(time.Now().Format("2006-01-02")))
	return fmt.Sprintf("%x", h.Sum(nil))[:12]
}

// Application wires the cleaning pipeline, run catalog and HTTP surface
// together for the web binary.
type Application struct {
	Config           *config.Config
	Paths            *config.Paths
	Router           *chi.Mux
	Server           *http.Server
	Catalog          *catalog.Catalog
	WebSocketHub     *ws.Hub
	OperationService *services.OperationService
	DataService      *services.DataService
	RunService       *services.RunService
	HealthService    *services.HealthService
	Logger           *slog.Logger
	OTelProviders    *infrastructure.OTelProviders
	BusinessMetrics  *infrastructure.BusinessMetrics
	RuntimeMetrics   *infrastructure.RuntimeMetricsCollector
	JobQueue         *operations.JobQueue
}

// NewApplication builds an application from environment and file
// configuration, initializing every dependency in order.
func NewApplication() (*Application, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	logger.Info("application starting",
		slog.String("name", AppName),
		slog.String("version", Version))

	paths, err := cfg.ResolvePaths()
	if err != nil {
		return nil, fmt.Errorf("failed to resolve paths: %w", err)
	}
	paths.LogPathResolution()

	otelProviders, err := infrastructure.InitializeOTel(infrastructure.DefaultOTelConfig(), logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize OpenTelemetry: %w", err)
	}

	if err := operations.InitGlobalOperationTracer(otelProviders); err != nil {
		return nil, fmt.Errorf("failed to initialize operation tracer: %w", err)
	}

	if err := ws.InitOTelMetrics(); err != nil {
		return nil, fmt.Errorf("failed to initialize WebSocket metrics: %w", err)
	}

	runtimeMetrics, err := infrastructure.NewRuntimeMetricsCollector(otelProviders.Meter, 30*time.Second)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize runtime metrics: %w", err)
	}
	runtimeMetrics.Start(context.Background())

	app := &Application{
		Config:         cfg,
		Paths:          paths,
		Logger:         logger,
		OTelProviders:  otelProviders,
		RuntimeMetrics: runtimeMetrics,
	}

	if err := app.initializeServices(); err != nil {
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	app.setupRouter()
	app.createServer()

	return app, nil
}

// initializeServices constructs the catalog, hub, job queue and the
// service layer in dependency order.
func (a *Application) initializeServices() error {
	cat, err := catalog.Open(a.Paths.CatalogFile, a.Logger)
	if err != nil {
		return fmt.Errorf("failed to open run catalog: %w", err)
	}
	a.Catalog = cat

	hub := ws.NewHub(a.Logger)
	hub.Start()
	a.WebSocketHub = hub

	operationService, err := services.NewOperationService(hub, cat, a.Config, a.Logger)
	if err != nil {
		return fmt.Errorf("failed to initialize operation service: %w", err)
	}
	a.OperationService = operationService

	// Cleaning runs rewrite whole season directories, so one worker is
	// enough; the queue rejects a second submission while one is active.
	a.JobQueue = operations.NewJobQueue(1, operations.NewMemoryJobStore(), operationService.GetManager(), a.Logger)
	a.JobQueue.Start(context.Background())

	dataService, err := services.NewDataServiceWithLogger(a.Config, a.Logger)
	if err != nil {
		return fmt.Errorf("failed to initialize data service: %w", err)
	}
	a.DataService = dataService

	a.RunService = services.NewRunService(cat, a.Logger)

	a.HealthService = services.NewHealthServiceWithBuildInfo(
		Version,
		RepoURL,
		BuildTime,
		BuildID,
		a.Paths,
		cat,
		operationService.GetManager(),
		hub,
		a.Logger,
	)

	return nil
}

// setupRouter configures the HTTP router with all routes
func (a *Application) setupRouter() {
	r := chi.NewRouter()

	// Minimal middleware first; these do not wrap the ResponseWriter and
	// are safe for the WebSocket upgrade.
	r.Use(customMiddleware.RequestID)
	r.Use(customMiddleware.RealIP)

	r.With(customMiddleware.WebSocketTraceMiddleware(a.Logger)).HandleFunc("/ws", a.handleWebSocket)

	// Prometheus scrape endpoint stays outside the full middleware chain.
	if a.OTelProviders.PrometheusHTTP != nil {
		r.Handle("/metrics", a.OTelProviders.PrometheusHTTP)
	}

	r.Group(func(r chi.Router) {
		otelMiddleware, err := customMiddleware.NewOTelMiddleware(a.OTelProviders)
		if err != nil {
			a.Logger.Error("failed to create OpenTelemetry middleware", slog.String("error", err.Error()))
		} else {
			r.Use(otelMiddleware.Handler)
		}

		businessMetrics, err := infrastructure.CreateBusinessMetrics(a.OTelProviders.Meter)
		if err != nil {
			a.Logger.Error("failed to create business metrics", slog.String("error", err.Error()))
		} else {
			a.BusinessMetrics = businessMetrics
			r.Use(customMiddleware.BusinessMetricsMiddleware(businessMetrics))
		}

		r.Use(customMiddleware.StructuredLogger(a.Logger))
		r.Use(customMiddleware.Recoverer(a.Logger))
		r.Use(customMiddleware.DefaultSecureHeaders().Handler)
		r.Use(customMiddleware.CORS(a.getCORSConfig()))

		if a.Config.Security.RateLimit.Enabled {
			r.Use(customMiddleware.NewRateLimiter(
				a.Config.Security.RateLimit.RPS,
				a.Config.Security.RateLimit.Burst,
				a.Logger,
			).Handler)
		}

		a.setupAPIRoutes(r)
	})

	a.Router = r
}

// setupAPIRoutes configures API endpoints
func (a *Application) setupAPIRoutes(r chi.Router) {
	errorHandler := errors.NewErrorHandler(a.Logger, a.Config.Logging.Development)

	r.Route("/api", func(r chi.Router) {
		r.Use(render.SetContentType(render.ContentTypeJSON))

		// Standard timeout for read-mostly endpoints.
		r.Group(func(r chi.Router) {
			r.Use(customMiddleware.Timeout(a.Config.Server.ReadTimeout, a.Logger))

			healthHandler := handlers.NewHealthHandler(a.HealthService, a.Logger)
			r.Mount("/health", healthHandler.Routes())
			r.Get("/version", healthHandler.Version)

			metricsHandler := handlers.NewMetricsHandler(a.OTelProviders.PrometheusHTTP, a.WebSocketHub.GetHubMetrics)
			r.Mount("/metrics", metricsHandler.Routes())

			dataHandler := handlers.NewDataHandler(a.DataService, a.Logger, errorHandler)
			r.Mount("/data", dataHandler.Routes())

			runsHandler := handlers.NewRunsHandler(a.RunService, a.Logger, errorHandler)
			r.Mount("/runs", runsHandler.Routes())

			opsMetricsHandler, err := handlers.NewOperationsMetricsHandler(a.OperationService, a.Logger)
			if err != nil {
				a.Logger.Error("failed to create operations metrics handler", slog.String("error", err.Error()))
			} else {
				r.Mount("/observability", opsMetricsHandler.Routes())
			}

			r.With(customMiddleware.TraceMiddleware("client_logs")).
				Post("/client-logs", handlers.NewClientLogHandler(a.Logger).Handle)
		})

		// Cleaning runs can spend a long time on all-seasons rebuilds.
		r.Group(func(r chi.Router) {
			r.Use(customMiddleware.Timeout(a.Config.Server.OperationTimeout, a.Logger))

			// Launches mutate whole season directories, so they get the
			// audit trail and the strict request validation chain.
			validation := customMiddleware.NewValidationMiddleware(a.Logger, errorHandler)
			r.Use(customMiddleware.AuditLog(a.Logger))
			r.Use(validation.ValidateRequest)
			r.Use(customMiddleware.ContentTypeValidator("application/json"))

			operationsHandler := handlers.NewOperationsHandler(a.OperationService, a.WebSocketHub, a.Logger)
			operationsHandler.SetJobQueue(a.JobQueue)
			operationsHandler.SetValidator(validation)
			if a.BusinessMetrics != nil {
				operationsHandler.SetMetrics(a.BusinessMetrics)
			}
			r.Mount("/operations", operationsHandler.Routes())
		})
	})
}

// getCORSConfig returns CORS configuration from the security settings.
func (a *Application) getCORSConfig() customMiddleware.CORSConfig {
	cfg := customMiddleware.CORSConfig{
		AllowedOrigins: []string{
			fmt.Sprintf("http://localhost:%d", a.Config.Server.Port),
			fmt.Sprintf("http://127.0.0.1:%d", a.Config.Server.Port),
		},
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{
			"Accept",
			"Authorization",
			"Content-Type",
			"X-Request-ID",
			"X-Requested-With",
		},
		ExposedHeaders: []string{
			"X-Request-ID",
		},
		AllowCredentials: true,
		MaxAge:           300,
		Logger:           a.Logger,
	}

	if a.Config.Security.EnableCORS && len(a.Config.Security.AllowedOrigins) > 0 {
		cfg.AllowedOrigins = append(cfg.AllowedOrigins, a.Config.Security.AllowedOrigins...)
	}

	return cfg
}

// createServer creates the HTTP server
func (a *Application) createServer() {
	a.Server = &http.Server{
		Addr:           fmt.Sprintf(":%d", a.Config.Server.Port),
		Handler:        a.Router,
		ReadTimeout:    a.Config.Server.ReadTimeout,
		WriteTimeout:   a.Config.Server.WriteTimeout,
		IdleTimeout:    a.Config.Server.IdleTimeout,
		MaxHeaderBytes: a.Config.Server.MaxHeaderBytes,
	}
}

// Run serves until the context is cancelled by SIGINT or SIGTERM, then
// shuts everything down in reverse dependency order.
func (a *Application) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a.Logger.InfoContext(ctx, "server listening",
		slog.String("address", fmt.Sprintf("http://localhost:%d", a.Config.Server.Port)),
		slog.String("version", Version),
		slog.String("catalog", a.Paths.CatalogFile))

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := a.Server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		return a.Stop(context.Background())
	})

	return g.Wait()
}

// Stop gracefully stops the application
func (a *Application) Stop(ctx context.Context) error {
	a.Logger.InfoContext(ctx, "shutting down application")

	shutdownCtx, cancel := context.WithTimeout(ctx, a.Config.Server.ShutdownTimeout)
	defer cancel()

	if err := a.Server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown error: %w", err)
	}

	if a.JobQueue != nil {
		if err := a.JobQueue.Stop(30 * time.Second); err != nil {
			a.Logger.ErrorContext(ctx, "failed to stop job queue gracefully", slog.String("error", err.Error()))
		}
	}

	if err := a.OperationService.CancelAll(ctx); err != nil {
		a.Logger.ErrorContext(ctx, "error cancelling operations", slog.String("error", err.Error()))
	}

	a.WebSocketHub.Stop()

	if a.RuntimeMetrics != nil {
		a.RuntimeMetrics.Stop()
	}

	if a.Catalog != nil {
		if err := a.Catalog.Close(); err != nil {
			a.Logger.ErrorContext(ctx, "error closing catalog", slog.String("error", err.Error()))
		}
	}

	if a.OTelProviders != nil {
		if err := a.OTelProviders.Shutdown(shutdownCtx); err != nil {
			a.Logger.ErrorContext(ctx, "error shutting down OpenTelemetry", slog.String("error", err.Error()))
		}
	}

	a.Logger.InfoContext(ctx, "application shutdown complete")
	return nil
}

// handleWebSocket upgrades /ws connections and hands them to the hub.
func (a *Application) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	reqID := r.Header.Get("X-Request-ID")
	if reqID == "" {
		reqID = fmt.Sprintf("ws-%d", time.Now().UnixNano())
	}

	ctx := infrastructure.WithTraceID(r.Context(), reqID)
	a.Logger.InfoContext(ctx, "WebSocket upgrade request",
		slog.String("remote_addr", r.RemoteAddr),
		slog.String("origin", r.Header.Get("Origin")))

	upgrader := websocket.Upgrader{
		ReadBufferSize:  a.Config.WebSocket.ReadBufferSize,
		WriteBufferSize: a.Config.WebSocket.WriteBufferSize,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" {
				return true
			}
			for _, allowed := range a.getCORSConfig().AllowedOrigins {
				if origin == allowed {
					return true
				}
			}
			a.Logger.WarnContext(ctx, "WebSocket origin rejected",
				slog.String("origin", origin))
			return false
		},
		Error: func(w http.ResponseWriter, r *http.Request, status int, reason error) {
			a.Logger.ErrorContext(ctx, "WebSocket upgrade error",
				slog.Int("status", status),
				slog.String("reason", reason.Error()))
			// Overriding the hook suppresses gorilla's default response,
			// so the handshake failure must be written here.
			http.Error(w, http.StatusText(status), status)
		},
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		a.Logger.ErrorContext(ctx, "WebSocket upgrade failed",
			slog.String("error", err.Error()))
		return
	}

	client := ws.NewClientWithTrace(a.WebSocketHub, conn, reqID, a.Logger)
	a.WebSocketHub.Register(client)

	a.Logger.InfoContext(ctx, "WebSocket client connected",
		slog.String("remote_addr", r.RemoteAddr),
		slog.String("request_id", reqID))

	go client.WritePump()
	go client.ReadPump()
}
