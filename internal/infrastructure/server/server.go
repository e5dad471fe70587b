package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	apihttp "github.com/GriffinCanCode/framenav/internal/api/http"
	"github.com/GriffinCanCode/framenav/internal/api/middleware"
	"github.com/GriffinCanCode/framenav/internal/api/ws"
	"github.com/GriffinCanCode/framenav/internal/domain/session"
	"github.com/GriffinCanCode/framenav/internal/domain/tab"
	"github.com/GriffinCanCode/framenav/internal/infrastructure/config"
	"github.com/GriffinCanCode/framenav/internal/infrastructure/logging"
	"github.com/GriffinCanCode/framenav/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/framenav/internal/infrastructure/tracing"
	"github.com/GriffinCanCode/framenav/internal/renderer/loopback"
)

// Server wraps the HTTP server and dependencies
type Server struct {
	router   *gin.Engine
	http     *http.Server
	tabs     *tab.Manager
	renderer *loopback.Renderer
	sessions *session.Manager
	codec    *session.Codec
	tracer   *tracing.Tracer
	logger   *logging.Logger
	config   *config.Config
	metrics  *monitoring.Metrics
}

// NewServer creates a new server instance
func NewServer(cfg *config.Config) (*Server, error) {
	logger, err := logging.New(logging.Config{
		Level:       cfg.Logging.Level,
		Development: cfg.Logging.Development,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	logger.Info("Initializing framenav server",
		zap.String("addr", net.JoinHostPort(cfg.Server.Host, cfg.Server.Port)),
		zap.Int("max_entries", cfg.Navigation.MaxEntryCount),
		zap.Bool("subframe_history", cfg.Navigation.SubframeHistoryNavigation),
	)

	// Initialize metrics first (needed by other components)
	metrics := monitoring.NewMetrics()

	tracer := tracing.New("framenav", logger.Logger)

	fetcher := loopback.NewFetcher(cfg.Renderer).WithMetrics(metrics)
	renderer := loopback.NewWithFetcher(fetcher, cfg.Renderer.Timeout, logger.Component("renderer").Logger)

	tabs := tab.NewManager(cfg.Navigation, renderer, logger.Component("tabs").Logger).
		WithMetrics(metrics).
		WithTracer(tracer)

	store, err := session.NewFileStore(cfg.Session.Dir)
	if err != nil {
		tracer.Close()
		return nil, fmt.Errorf("failed to open session store: %w", err)
	}
	codec, err := session.NewCodec(cfg.Session.CompressionLevel)
	if err != nil {
		tracer.Close()
		return nil, fmt.Errorf("failed to create session codec: %w", err)
	}
	sessions := session.NewManager(tabs, store, codec, logger.Component("sessions").Logger).WithMetrics(metrics)
	logger.Info("Session store ready", zap.String("dir", store.Dir()))

	if !cfg.Logging.Development {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()

	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	router.Use(middleware.Logger(logger.Component("http").Logger))
	router.Use(tracing.HTTPMiddleware(tracer))
	router.Use(monitoring.Middleware(metrics))
	router.Use(middleware.CORS(middleware.DefaultCORSConfig(cfg.Server.CORSOrigins...)))
	if cfg.RateLimit.Enabled {
		logger.Info("Rate limiting enabled",
			zap.Int("rps", cfg.RateLimit.RequestsPerSecond),
			zap.Int("burst", cfg.RateLimit.Burst),
		)
		router.Use(middleware.RateLimit(cfg.RateLimit))
	}

	handlers := apihttp.NewHandlers(tabs, renderer, sessions, apihttp.NewHandlerMetrics(metrics), logger.Component("api").Logger)
	aggregator := apihttp.NewMetricsAggregator(metrics, tabs, fetcher.Breaker(), store.Breaker())
	apihttp.Register(router, handlers, aggregator)

	wsHandler := ws.NewHandler(tabs, metrics, logger.Component("ws").Logger)
	router.GET("/ws/tabs", wsHandler.AllEvents)
	router.GET("/ws/tabs/:id", wsHandler.TabEvents)

	router.GET("/metrics", gin.WrapH(metrics.Handler()))

	logger.Info("Server initialized successfully")

	return &Server{
		router:   router,
		tabs:     tabs,
		renderer: renderer,
		sessions: sessions,
		codec:    codec,
		tracer:   tracer,
		logger:   logger,
		config:   cfg,
		metrics:  metrics,
	}, nil
}

// Handler returns the router, for tests and embedding
func (s *Server) Handler() http.Handler {
	return s.router
}

// Tabs returns the tab manager
func (s *Server) Tabs() *tab.Manager {
	return s.tabs
}

// Run serves until ctx is canceled, then shuts down gracefully
func (s *Server) Run(ctx context.Context) error {
	addr := net.JoinHostPort(s.config.Server.Host, s.config.Server.Port)
	s.http = &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.config.Server.ShutdownTimeout)
	defer cancel()
	if err := s.http.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down: %w", err)
	}
	return <-errCh
}

// Close gracefully shuts down the server
func (s *Server) Close() error {
	s.logger.Info("Shutting down server...")

	s.tabs.CloseAll()
	s.renderer.Wait()
	s.codec.Close()
	s.tracer.Close()

	// Sync logger before exit
	_ = s.logger.Sync()
	return nil
}
