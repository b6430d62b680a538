// Package server provides the HTTP server for formcheck: the REST API, the
// live result feed, the annotated camera stream and the web UI.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"

	"github.com/ayusman/formcheck/internal/feedback"
	"github.com/ayusman/formcheck/internal/metrics"
	"github.com/ayusman/formcheck/internal/plugin"
	"github.com/ayusman/formcheck/internal/scoring"
	"github.com/ayusman/formcheck/internal/server/api"
	"github.com/ayusman/formcheck/internal/server/middleware"
	"github.com/ayusman/formcheck/internal/session"
	"github.com/ayusman/formcheck/internal/store"
)

// Config holds the server configuration. Every dependency is optional; the
// routes that need a missing one are not registered.
type Config struct {
	StaticDir string
	Store     *store.Store
	Sessions  *session.Manager
	Plugins   *plugin.Manager
	Detector  api.PoseDetector
	Scoring   scoring.Config
	Catalog   *feedback.Catalog
	Metrics   *metrics.Manager
	// Gatherer serves /metrics.
	Gatherer prometheus.Gatherer
	// Preview serves /api/stream.
	Preview *Preview

	OnProfilesChanged func()
	OnSettingChanged  func(key, value string)
	OnSessionClosed   func(id string)
}

// Server represents the HTTP server for the formcheck application.
type Server struct {
	config     Config
	router     *mux.Router
	hub        *Hub
	start      time.Time
	httpServer *http.Server
}

// New creates a new Server with the given configuration.
func New(config Config) *Server {
	if config.Catalog == nil {
		config.Catalog = feedback.Default()
	}

	s := &Server{
		config: config,
		hub:    NewHub(config.Metrics),
		start:  time.Now(),
	}
	if config.Sessions != nil {
		config.Sessions.Subscribe(s.hub.Publish)
	}
	s.router = s.routerSetup()
	s.httpServer = &http.Server{
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       time.Minute,
		// No WriteTimeout: /api/stream never ends.
	}
	return s
}

func (s *Server) routerSetup() *mux.Router {
	r := mux.NewRouter()
	c := s.config

	r.HandleFunc("/api/health", s.handleHealth).Methods("GET")

	if c.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(c.Gatherer, promhttp.HandlerOpts{})).Methods("GET")
	}

	if c.Store != nil {
		api.NewActionHandler(c.Store, c.Plugins).Register(r)
		api.NewProfileHandler(c.Store, c.OnProfilesChanged).Register(r)
		api.NewSettingHandler(c.Store, c.Catalog, c.OnSettingChanged).Register(r)
	}

	if c.Sessions != nil {
		api.NewSessionHandler(c.Sessions, c.OnSessionClosed).Register(r)
		r.Handle("/api/live", s.hub).Methods("GET")
	}

	if c.Detector != nil {
		api.NewAnalyzeHandler(c.Detector, c.Scoring, c.Catalog, c.Metrics).Register(r)
	}

	if c.Preview != nil {
		r.Handle("/api/stream", NewStreamHandler(c.Preview)).Methods("GET")
	}

	if c.StaticDir != "" {
		r.PathPrefix("/").Handler(http.FileServer(http.Dir(c.StaticDir))).Methods("GET", "HEAD")
	}

	r.Use(middleware.PanicRecovery(c.Metrics))
	r.Use(middleware.LogRequest())
	if c.Metrics != nil {
		r.Use(middleware.RequestMetrics(c.Metrics))
	}
	r.Use(middleware.DrainAndCloseRequest())

	return r
}

// ServeHTTP implements the http.Handler interface.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Hub returns the live result hub.
func (s *Server) Hub() *Hub {
	return s.hub
}

type healthResponse struct {
	Status      string `json:"status"`
	Uptime      string `json:"uptime"`
	Sessions    int    `json:"sessions"`
	LiveClients int    `json:"live_clients"`
	LastFrame   string `json:"last_frame,omitempty"`
}

// handleHealth handles GET requests to /api/health.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{
		Status:      "ok",
		Uptime:      time.Since(s.start).Round(time.Second).String(),
		LiveClients: s.hub.Clients(),
	}
	if s.config.Sessions != nil {
		resp.Sessions = s.config.Sessions.Len()
	}
	if s.config.Preview != nil {
		if at := s.config.Preview.LastUpdate(); !at.IsZero() {
			resp.LastFrame = at.Format(time.RFC3339)
		}
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		log.WithError(err).Error("failed to encode health response")
	}
}

// ListenAndServe serves on addr until Shutdown is called.
func (s *Server) ListenAndServe(addr string) error {
	s.httpServer.Addr = addr

	log.Infof(" > server listening on: [%s]", addr)
	err := s.httpServer.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown disconnects live clients and stops the HTTP server, waiting for
// in-flight requests until ctx is done.
func (s *Server) Shutdown(ctx context.Context) error {
	s.hub.Close()
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return err
	}
	log.Warnln("server shut down")
	return nil
}
