// Package server exposes the campaign session manager over an HTTP JSON API
// and a websocket log feed for UI collaborators.
package server

import (
	"context"
	"net/http"

	"github.com/rs/cors"
	"go.uber.org/zap"

	"github.com/arkraven000/CrusadeTracker-sub002/internal/config"
	"github.com/arkraven000/CrusadeTracker-sub002/internal/session"
)

// Server wires the session manager, websocket hub, and middleware into one
// HTTP listener.
type Server struct {
	cfg              config.HTTPConfig
	sessions         *session.Manager
	hub              *Hub
	logger           *zap.Logger
	httpServer       *http.Server
	defaultMaxTokens int
}

// New creates the server and subscribes the websocket hub to the session
// manager's log feed.
func New(cfg config.HTTPConfig, defaultMaxTokens int, sessions *session.Manager, logger *zap.Logger) *Server {
	hub := NewHub(logger)
	sessions.SetLogHandler(hub.Broadcast)
	return &Server{
		cfg:              cfg,
		sessions:         sessions,
		hub:              hub,
		logger:           logger,
		defaultMaxTokens: defaultMaxTokens,
	}
}

// Routes builds the full handler chain.
func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", s.handleHealth)

	mux.HandleFunc("POST /api/campaigns", s.handleCreateCampaign)
	mux.HandleFunc("GET /api/campaigns", s.handleListCampaigns)
	mux.HandleFunc("GET /api/campaigns/{id}", s.handleGetCampaign)
	mux.HandleFunc("POST /api/campaigns/{id}/players", s.handleAddPlayer)
	mux.HandleFunc("PUT /api/campaigns/{id}/map", s.handleConfigureMap)
	mux.HandleFunc("POST /api/campaigns/{id}/hexes/{hex}/tokens", s.handlePlaceToken)
	mux.HandleFunc("DELETE /api/campaigns/{id}/hexes/{hex}/tokens/{token}", s.handleRemoveToken)
	mux.HandleFunc("PUT /api/campaigns/{id}/hexes/{hex}/controller", s.handleSetController)
	mux.HandleFunc("POST /api/campaigns/{id}/players/{player}/resolve", s.handleResolveEffects)
	mux.HandleFunc("POST /api/campaigns/{id}/players/{player}/spend", s.handleSpendRequisition)
	mux.HandleFunc("GET /api/campaigns/{id}/statistics", s.handleStatistics)
	mux.HandleFunc("GET /api/campaigns/{id}/log", s.handleLog)
	mux.HandleFunc("GET /api/campaigns/{id}/snapshot", s.handleExportSnapshot)
	mux.HandleFunc("POST /api/campaigns/snapshot", s.handleImportSnapshot)

	mux.HandleFunc("GET /ws/campaigns/{id}", s.hub.HandleFeed)

	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   s.cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: true,
	})

	rateLimiter := NewRateLimiter(s.cfg.RateLimit)

	var handler http.Handler = mux
	handler = rateLimiter.Middleware(handler)
	handler = corsHandler.Handler(handler)
	handler = LoggingMiddleware(s.logger)(handler)
	return handler
}

// Start begins serving and blocks until the listener stops.
func (s *Server) Start() error {
	s.httpServer = &http.Server{
		Addr:         s.cfg.Address,
		Handler:      s.Routes(),
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
	}
	if s.logger != nil {
		s.logger.Info("starting HTTP server", zap.String("address", s.cfg.Address))
	}
	err := s.httpServer.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Shutdown drains in-flight requests and disconnects feed clients.
func (s *Server) Shutdown(ctx context.Context) error {
	s.hub.CloseAll()
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}
