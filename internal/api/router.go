// Package api exposes the operator dashboard: a status page, a JSON API for
// telemetry, control settings and audit events, and a live WebSocket feed.
package api

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"solarview/internal/auth"
	"solarview/internal/config"
	"solarview/internal/control"
	"solarview/internal/events"
	"solarview/internal/history"
	"solarview/internal/storage"
	"solarview/internal/telemetry"
)

// Server represents the API server
type Server struct {
	router     *chi.Mux
	config     *config.Config
	stream     *telemetry.Stream
	loop       *control.Loop
	store      storage.Store
	ring       *history.Ring
	eventStore *events.Store
	hub        *Hub
	pamAuth    *auth.PAMAuth
	jwtManager *auth.JWTManager
	authMw     *auth.Middleware
	version    string
	startTime  time.Time
}

// NewServer creates new API server
func NewServer(cfg *config.Config, stream *telemetry.Stream, loop *control.Loop, store storage.Store, ring *history.Ring, eventStore *events.Store, version string, logger *log.Logger) *Server {
	jwtManager := auth.NewJWTManager(cfg.JWTSecret(), cfg.JWTExpiration())

	s := &Server{
		router:     chi.NewRouter(),
		config:     cfg,
		stream:     stream,
		loop:       loop,
		store:      store,
		ring:       ring,
		eventStore: eventStore,
		hub:        NewHub(logger),
		pamAuth:    auth.NewPAMAuth(),
		jwtManager: jwtManager,
		authMw:     auth.NewMiddleware(jwtManager),
		version:    version,
		startTime:  time.Now(),
	}

	s.setupRoutes()
	return s
}

// setupRoutes configures all routes
func (s *Server) setupRoutes() {
	r := s.router

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))

	authHandler := NewAuthHandler(s.pamAuth, s.jwtManager, s.eventStore)
	statusHandler := NewStatusHandler(s)
	controlHandler := NewControlHandler(s.store, s.eventStore)
	telemetryHandler := NewTelemetryHandler(s.stream)
	eventsHandler := NewEventsHandler(s.eventStore)

	// Public routes
	r.Get("/health", s.handleHealth)
	r.Post("/api/auth/login", authHandler.Login)
	r.Get("/", s.serveDashboard)
	r.Get("/status", s.serveDashboard)
	r.Get("/status/json", statusHandler.History)

	// Protected API routes
	r.Group(func(r chi.Router) {
		if !s.config.NoAuth() {
			r.Use(s.authMw.RequireAuth)
		} else {
			// In no-auth mode, inject a fake admin user
			r.Use(s.fakeAuthMiddleware)
		}

		// Auth
		r.Post("/api/auth/logout", authHandler.Logout)
		r.Get("/api/auth/me", authHandler.Me)

		// Controller status and history
		r.Get("/api/status", statusHandler.Status)
		r.Get("/api/history", statusHandler.History)

		// Telemetry
		r.Get("/api/telemetry", telemetryHandler.Snapshot)
		r.Get("/api/telemetry/entities", telemetryHandler.Entities)

		// Control settings
		r.Get("/api/control", controlHandler.Get)
		r.With(s.authMw.RequireAdmin).Post("/api/control", controlHandler.Set)

		// Audit events
		r.Get("/api/events", eventsHandler.List)

		// Live cycle feed (WebSocket)
		r.Get("/api/live", s.hub.Serve)
	})
}

// handleHealth reports process liveness. It deliberately carries no
// controller state so load balancers do not restart the service over a
// gateway outage.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// BroadcastSample pushes a completed cycle sample to all live clients.
func (s *Server) BroadcastSample(sample history.Sample) {
	s.hub.Broadcast(sample)
}

// Router returns the chi router
func (s *Server) Router() *chi.Mux {
	return s.router
}

// writeJSON writes JSON response
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// fakeAuthMiddleware injects a fake admin user for no-auth mode
func (s *Server) fakeAuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fakeUser := &auth.User{
			Username: "dev",
			UID:      "0",
			Role:     auth.RoleAdmin,
		}
		next.ServeHTTP(w, r.WithContext(auth.SetUserContext(r.Context(), fakeUser)))
	})
}
