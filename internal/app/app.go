// Package app wires configuration, logging, observability, the pipeline
// services, and the HTTP router into a runnable application.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	"golang.org/x/sync/errgroup"

	"salespulse/internal/analysis"
	"salespulse/internal/chart"
	"salespulse/internal/cleaning"
	"salespulse/internal/config"
	apperrors "salespulse/internal/errors"
	"salespulse/internal/exporter"
	"salespulse/internal/infrastructure"
	"salespulse/internal/ingest"
	customMiddleware "salespulse/internal/middleware"
	"salespulse/internal/profile"
	"salespulse/internal/services"
	handlers "salespulse/internal/transport/http"
	"salespulse/pkg/contracts"
)

// Application is the composed server: configuration, observability, the
// session service, and the router.
type Application struct {
	Config        *config.Config
	Logger        *slog.Logger
	OTelProviders *infrastructure.OTelProviders
	Sessions      *services.SessionService
	Router        chi.Router

	server *http.Server
}

// NewApplication loads configuration and builds the full dependency graph.
func NewApplication() (*Application, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	providers, err := infrastructure.InitializeOTel(infrastructure.DefaultOTelConfig(), logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize observability: %w", err)
	}

	app := &Application{
		Config:        cfg,
		Logger:        logger,
		OTelProviders: providers,
	}
	if err := app.initializeServices(); err != nil {
		return nil, err
	}
	app.setupRouter()
	app.createServer()
	return app, nil
}

// initializeServices builds the pipeline stages and the session service.
func (a *Application) initializeServices() error {
	var metrics *infrastructure.PipelineMetrics
	if a.OTelProviders.Meter != nil {
		m, err := infrastructure.CreatePipelineMetrics(a.OTelProviders.Meter)
		if err != nil {
			return fmt.Errorf("failed to create pipeline metrics: %w", err)
		}
		metrics = m
	}

	pipeline := a.Config.Pipeline
	a.Sessions = services.NewSessionService(
		a.Logger,
		pipeline.Language,
		ingest.New(a.Logger, pipeline.MaxUploadBytes),
		profile.New(a.Logger, profile.Options{
			MissingTokens:      pipeline.MissingTokens,
			DateFormats:        pipeline.DateFormats,
			TopCategoriesLimit: pipeline.TopCategoriesLimit,
		}),
		cleaning.New(a.Logger, cleaning.Options{
			MissingTokens:        pipeline.MissingTokens,
			DateFormats:          pipeline.DateFormats,
			OutlierIQRMultiplier: pipeline.OutlierIQRMultiplier,
		}),
		analysis.New(a.Logger, analysis.Options{
			TopCategoriesLimit: pipeline.TopCategoriesLimit,
		}),
		chart.New(a.Logger, chart.Options{
			HistogramBins:      pipeline.HistogramBins,
			TopCategoriesLimit: pipeline.TopCategoriesLimit,
		}),
		exporter.New(a.Logger),
		metrics,
	)
	return nil
}

// setupRouter configures the middleware chain and mounts the routes.
// Ordering: RequestID, RealIP, OTel, Logger, Recoverer, SecurityHeaders,
// CORS, RateLimiter, Timeout.
func (a *Application) setupRouter() {
	r := chi.NewRouter()

	r.Use(customMiddleware.RequestID)
	r.Use(customMiddleware.RealIP)

	r.Group(func(r chi.Router) {
		otelMiddleware, err := customMiddleware.NewOTelMiddleware(a.OTelProviders)
		if err != nil {
			a.Logger.Error("failed to create OpenTelemetry middleware", slog.String("error", err.Error()))
		} else {
			r.Use(otelMiddleware.Handler)
		}

		r.Use(customMiddleware.StructuredLogger(a.Logger))
		r.Use(customMiddleware.Recoverer(a.Logger))
		r.Use(customMiddleware.SecurityHeaders)

		if a.Config.Security.EnableCORS {
			r.Use(customMiddleware.CORS(customMiddleware.CORSConfig{
				AllowedOrigins: a.Config.Security.AllowedOrigins,
				Logger:         a.Logger,
			}))
		}
		if a.Config.Security.RateLimit.Enabled {
			r.Use(customMiddleware.NewRateLimiter(
				a.Config.Security.RateLimit.RPS,
				a.Config.Security.RateLimit.Burst,
				a.Logger,
			).Handler)
		}
		r.Use(customMiddleware.Timeout(a.Config.Server.RequestTimeout, a.Logger))

		errorHandler := apperrors.NewErrorHandler(a.Logger)
		sessionHandler := handlers.NewSessionHandler(a.Sessions, a.Logger, errorHandler)
		healthHandler := handlers.NewHealthHandler(a.Logger, contracts.Version, a.Sessions)

		r.Route("/api", func(r chi.Router) {
			r.Mount("/sessions", sessionHandler.Routes())
			r.Get("/version", healthHandler.Version)
		})
		r.Get("/healthz", healthHandler.HealthCheck)

		r.NotFound(errorHandler.NotFound)
		r.MethodNotAllowed(errorHandler.MethodNotAllowed)
	})

	// Prometheus endpoint stays outside the middleware group.
	if a.OTelProviders.PrometheusHTTP != nil {
		r.Handle("/metrics", a.OTelProviders.PrometheusHTTP)
	}

	a.Router = r
}

// createServer builds the HTTP server from the server config.
func (a *Application) createServer() {
	a.server = &http.Server{
		Addr:           fmt.Sprintf(":%d", a.Config.Server.Port),
		Handler:        a.Router,
		ReadTimeout:    a.Config.Server.ReadTimeout,
		WriteTimeout:   a.Config.Server.WriteTimeout,
		IdleTimeout:    a.Config.Server.IdleTimeout,
		MaxHeaderBytes: a.Config.Server.MaxHeaderBytes,
	}
}

// Run serves until the context is canceled or a SIGINT/SIGTERM arrives,
// then shuts down gracefully.
func (a *Application) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.Logger.InfoContext(ctx, "server starting",
			slog.String("addr", a.server.Addr),
			slog.String("version", contracts.Version))
		if err := a.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.Config.Server.ShutdownTimeout)
		defer cancel()

		a.Logger.InfoContext(shutdownCtx, "server shutting down")
		if err := a.server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown failed: %w", err)
		}
		if err := a.OTelProviders.Shutdown(shutdownCtx); err != nil {
			a.Logger.WarnContext(shutdownCtx, "observability shutdown failed",
				slog.String("error", err.Error()))
		}
		infrastructure.CloseLogFile()
		return nil
	})

	return g.Wait()
}
