package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/klauspost/compress/gzhttp"
	"go.uber.org/zap"

	httpapi "github.com/GriffinCanCode/echochat/internal/api/http"
	"github.com/GriffinCanCode/echochat/internal/api/middleware"
	"github.com/GriffinCanCode/echochat/internal/api/ws"
	"github.com/GriffinCanCode/echochat/internal/domain/chat"
	"github.com/GriffinCanCode/echochat/internal/domain/session"
	"github.com/GriffinCanCode/echochat/internal/infrastructure/config"
	"github.com/GriffinCanCode/echochat/internal/infrastructure/logging"
	"github.com/GriffinCanCode/echochat/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/echochat/internal/infrastructure/resilience"
	"github.com/GriffinCanCode/echochat/internal/infrastructure/tracing"
	"github.com/GriffinCanCode/echochat/internal/providers/llm"
	"github.com/GriffinCanCode/echochat/internal/providers/retrieval"
)

// Server wraps the HTTP server and dependencies
type Server struct {
	config  *config.Config
	logger  *logging.Logger
	metrics *monitoring.Metrics
	tracer  *tracing.Tracer

	store   *session.Store
	reaper  *session.Reaper
	limiter *middleware.RateLimiter
	search  *retrieval.Client

	router  *gin.Engine
	handler http.Handler
}

// Option configures a Server
type Option func(*options)

type options struct {
	logger    *logging.Logger
	metrics   *monitoring.Metrics
	retriever chat.DocumentRetriever
	model     chat.ConversationModel
}

// WithLogger sets the root logger
func WithLogger(l *logging.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithMetrics sets the metrics sink
func WithMetrics(m *monitoring.Metrics) Option {
	return func(o *options) { o.metrics = m }
}

// WithRetriever replaces the HTTP search client
func WithRetriever(r chat.DocumentRetriever) Option {
	return func(o *options) { o.retriever = r }
}

// WithModel replaces the configured language model
func WithModel(m chat.ConversationModel) Option {
	return func(o *options) { o.model = m }
}

// New creates a new server instance
func New(cfg *config.Config, opts ...Option) (*Server, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	logger := o.logger
	if logger == nil {
		var err error
		logger, err = logging.New(logging.Config{
			Level:       cfg.Logging.Level,
			Development: cfg.Logging.Development,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create logger: %w", err)
		}
	}

	logger.Info("Initializing echochat server",
		zap.String("addr", cfg.Server.Addr()),
		zap.String("retrieval_url", cfg.Retrieval.URL),
		zap.String("model_provider", cfg.Model.Provider),
		zap.String("model", cfg.Model.Name),
		zap.Duration("session_ttl", cfg.Session.TTL),
		zap.Duration("reap_interval", cfg.Session.Interval()),
	)

	metrics := o.metrics
	if metrics == nil {
		metrics = monitoring.NewMetrics()
	}
	tracer := tracing.New("echochat", logger.Component("tracing"))

	// Sessions
	store := session.NewStore(
		session.WithObserver(metrics),
		session.WithLogger(logger.Logger),
	)
	reaper := session.NewReaper(store, cfg.Session.TTL,
		session.WithInterval(cfg.Session.Interval()),
		session.WithSweepObserver(metrics),
		session.WithReaperLogger(logger.Logger),
	)

	// Collaborators
	s := &Server{
		config:  cfg,
		logger:  logger,
		metrics: metrics,
		tracer:  tracer,
		store:   store,
		reaper:  reaper,
	}

	retriever := o.retriever
	if retriever == nil {
		rcfg := retrieval.DefaultConfig()
		rcfg.BaseURL = cfg.Retrieval.URL
		rcfg.Timeout = cfg.Retrieval.Timeout
		s.search = retrieval.NewClient(rcfg, logger.Logger)
		retriever = s.search
	}

	model := o.model
	if model == nil {
		m, err := llm.New(cfg.Model, logger.Logger)
		if err != nil {
			tracer.Close()
			return nil, fmt.Errorf("failed to create model: %w", err)
		}
		model = m
	}

	orchestrator := chat.NewOrchestrator(store, retriever, model,
		chat.Config{
			TopK:         cfg.Retrieval.TopK,
			SnippetChars: cfg.Retrieval.SnippetChars,
			Timeout:      cfg.Model.Timeout + cfg.Retrieval.Timeout,
		},
		chat.WithLogger(logger.Logger),
		chat.WithObserver(metrics),
		chat.WithBreakers(
			newBreaker(chat.CollaboratorRetriever, logger.Logger),
			newBreaker(chat.CollaboratorModel, logger.Logger),
		),
	)

	// Router
	if !cfg.Logging.Development {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()

	router.Use(middleware.Recovery(logger.Component("http")))
	router.Use(tracing.HTTPMiddleware(tracer))
	router.Use(monitoring.Middleware(metrics, "/metrics"))
	router.Use(middleware.Logger(logger.Component("http")))
	router.Use(middleware.CORS(middleware.DefaultCORSConfig().WithOrigins(cfg.Server.AllowedOrigins)))
	if cfg.RateLimit.Enabled {
		logger.Info("Rate limiting enabled",
			zap.Int("rps", cfg.RateLimit.RequestsPerSecond),
			zap.Int("burst", cfg.RateLimit.Burst),
		)
		limitCfg := middleware.DefaultRateLimitConfig()
		limitCfg.RequestsPerSecond = cfg.RateLimit.RequestsPerSecond
		limitCfg.Burst = cfg.RateLimit.Burst
		s.limiter = middleware.NewRateLimiter(limitCfg, nil)
		router.Use(s.limiter.Middleware())
	}

	handlers := httpapi.NewHandlers(orchestrator, store, logger.Logger)
	wsHandler := ws.NewHandler(orchestrator, metrics, logger.Logger)

	// Register routes
	router.GET("/", handlers.Root)
	router.GET("/health", handlers.Health)
	router.POST("/chat", handlers.Chat)
	router.DELETE("/session/:id", handlers.DeleteSession)
	router.GET("/stream", wsHandler.HandleConnection)
	router.GET("/metrics", metrics.GinHandler())

	s.router = router
	s.handler = gzhttp.GzipHandler(router)

	logger.Info("Server initialized successfully")
	return s, nil
}

func newBreaker(name string, logger *zap.Logger) *resilience.Breaker {
	return resilience.New(name, resilience.Settings{
		OnStateChange: func(name string, from, to resilience.State) {
			logger.Warn("Circuit breaker state changed",
				zap.String("collaborator", name),
				zap.Stringer("from", from),
				zap.Stringer("to", to),
			)
		},
	})
}

// Handler returns the compressed root handler
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Store returns the session store
func (s *Server) Store() *session.Store {
	return s.store
}

// Run serves on the configured address until ctx is cancelled, then shuts
// down gracefully
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.config.Server.Addr())
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.config.Server.Addr(), err)
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is cancelled
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	bgCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	s.reaper.Start(bgCtx)
	if s.limiter != nil {
		go s.limiter.Run(bgCtx)
	}
	if s.search != nil {
		go s.checkRetrieval(bgCtx)
	}

	srv := &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Starting HTTP server", zap.String("addr", ln.Addr().String()))
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		s.Close()
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.logger.Info("Shutting down server...")
	shutdownCtx, stop := context.WithTimeout(context.Background(), s.config.Server.ShutdownTimeout)
	defer stop()

	err := srv.Shutdown(shutdownCtx)
	s.Close()
	if err != nil {
		return fmt.Errorf("failed to shut down: %w", err)
	}
	return nil
}

// Close stops background work and releases resources
func (s *Server) Close() {
	s.reaper.Stop()
	s.store.Close()
	s.tracer.Close()
	s.logger.Info("Server stopped")
	s.logger.Sync()
}

func (s *Server) checkRetrieval(ctx context.Context) {
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := s.search.Ping(pingCtx); err != nil {
		s.logger.Warn("Retrieval service unreachable", zap.String("url", s.config.Retrieval.URL), zap.Error(err))
		return
	}
	s.logger.Info("Connected to retrieval service", zap.String("url", s.config.Retrieval.URL))
}
