package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"happdash/internal/config"
	"happdash/internal/export"
	"happdash/internal/service"
	"happdash/internal/views"

	"github.com/rs/zerolog"
)

// Server exposes the dashboard over HTTP: read endpoints serve cached view
// snapshots, mutation endpoints go through the plan service.
type Server struct {
	cfg      config.APIConfig
	views    *views.Manager
	plans    *service.PlanService
	exporter *export.Exporter
	logger   *zerolog.Logger
	server   *http.Server
}

func NewServer(
	cfg config.APIConfig,
	viewMgr *views.Manager,
	plans *service.PlanService,
	exporter *export.Exporter,
	logger *zerolog.Logger,
) *Server {
	srv := &Server{
		cfg:      cfg,
		views:    viewMgr,
		plans:    plans,
		exporter: exporter,
		logger:   logger,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/dashboard", srv.handleDashboard)
	mux.HandleFunc("/api/v1/plans", srv.handlePlans)
	mux.HandleFunc("/api/v1/plans/export", srv.handleExport)
	mux.HandleFunc("/api/v1/plans/", srv.handlePlanByID)
	mux.HandleFunc("/healthz", srv.handleHealth)

	handler := srv.loggingMiddleware(newAuth(cfg.Auth).wrap(mux))

	srv.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      30 * time.Second,
	}

	return srv
}

// Handler returns the fully wrapped handler, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

func (s *Server) Start() error {
	s.logger.Info().Str("addr", s.server.Addr).Msg("HTTP API listening")
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, statusCode int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, statusCode int, message string) {
	writeJSON(w, statusCode, map[string]string{"error": message})
}
