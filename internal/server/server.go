// Package server provides the HTTP server of the dog list API.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/vyrodovalexey/doglist-api/internal/auth"
	"github.com/vyrodovalexey/doglist-api/internal/config"
	"github.com/vyrodovalexey/doglist-api/internal/dogs"
	"github.com/vyrodovalexey/doglist-api/internal/handler"
	"github.com/vyrodovalexey/doglist-api/internal/middleware"
)

// Deps are the collaborators the server exposes over HTTP.
type Deps struct {
	Service *dogs.Service
	Flows   *dogs.FlowRegistry
	// Authenticator guards every non-public route. Nil leaves the API open.
	Authenticator auth.Authenticator
}

// Server represents the HTTP server.
type Server struct {
	httpServer  *http.Server
	router      *mux.Router
	config      *config.Config
	logger      *zap.Logger
	feedHandler *handler.FeedHandler
	flows       *dogs.FlowRegistry
}

// New creates a new Server instance.
func New(cfg *config.Config, logger *zap.Logger, deps Deps) *Server {
	router := mux.NewRouter()

	s := &Server{
		router: router,
		config: cfg,
		logger: logger,
		flows:  deps.Flows,
	}

	s.setupMiddleware(deps.Authenticator)
	s.setupRoutes(deps)
	s.setupHTTPServer()

	return s
}

// setupMiddleware configures the middleware chain attached to the router.
func (s *Server) setupMiddleware(authenticator auth.Authenticator) {
	// Apply middleware in order (first applied = outermost)
	s.router.Use(mux.MiddlewareFunc(middleware.Recovery(s.logger)))
	s.router.Use(mux.MiddlewareFunc(middleware.RequestID()))

	if s.config.MetricsEnabled {
		s.router.Use(mux.MiddlewareFunc(middleware.Metrics()))
	}

	s.router.Use(mux.MiddlewareFunc(middleware.Logging(s.logger)))

	if authenticator != nil {
		s.router.Use(mux.MiddlewareFunc(middleware.Auth(authenticator, s.logger)))
		s.logger.Info("authentication enabled", zap.String("method", string(authenticator.Method())))
	}
}

// corsPolicy lets browser clients on any origin call the API.
func corsPolicy() middleware.CORSPolicy {
	return middleware.CORSPolicy{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{
			http.MethodGet,
			http.MethodPost,
			http.MethodDelete,
			http.MethodOptions,
		},
		AllowedHeaders: []string{
			"Content-Type",
			"Authorization",
			auth.APIKeyHeader,
			middleware.RequestIDHeader,
		},
		ExposedHeaders: []string{middleware.RequestIDHeader},
		MaxAge:         24 * time.Hour,
	}
}

// setupRoutes configures the API routes.
func (s *Server) setupRoutes(deps Deps) {
	handler.NewDogHandler(deps.Service, s.logger).RegisterRoutes(s.router)

	if deps.Flows != nil {
		handler.NewFlowHandler(deps.Flows, deps.Service, s.logger).RegisterRoutes(s.router)
	}

	s.feedHandler = handler.NewFeedHandler(deps.Service.Collection(), s.logger)
	s.feedHandler.RegisterRoutes(s.router)

	if s.config.MetricsEnabled {
		s.router.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
	}
}

// setupHTTPServer configures the HTTP server. WriteTimeout leaves room for
// flow long-polls that wait on a photo fetch. CORS wraps the router because
// mux middleware never runs for preflights that match no route method.
func (s *Server) setupHTTPServer() {
	s.httpServer = &http.Server{
		Addr:              s.config.Address(),
		Handler:           middleware.CORS(corsPolicy())(s.router),
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      s.config.PhotoTimeout + 15*time.Second,
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    1 << 20, // 1 MB
	}
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	s.logger.Info("starting server",
		zap.String("address", s.config.Address()),
		zap.Bool("metrics_enabled", s.config.MetricsEnabled),
	)

	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server listen and serve: %w", err)
	}

	return nil
}

// Shutdown closes feed connections and pending photo flows, then drains the
// HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down server")

	if s.feedHandler != nil {
		s.feedHandler.CloseAllConnections()
	}

	if s.flows != nil {
		s.flows.Close()
	}

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	s.logger.Info("server shutdown complete")
	return nil
}

// Router returns the server's router for testing purposes.
func (s *Server) Router() *mux.Router {
	return s.router
}

// Handler returns the full request handler, CORS included.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}
