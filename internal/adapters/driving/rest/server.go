// Package rest exposes sync control over HTTP. Triggers are
// asynchronous: the response carries a task id and the caller polls
// the task endpoints for completion.
package rest

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/custodia-labs/regsync/internal/core/ports/driving"
	"github.com/custodia-labs/regsync/internal/logger"
)

// Server is the HTTP control surface.
type Server struct {
	syncSvc     driving.SyncService
	settingsSvc driving.SettingsService
	httpServer  *http.Server
}

// NewServer creates the HTTP server with all routes registered.
func NewServer(addr string, syncSvc driving.SyncService, settingsSvc driving.SettingsService) *Server {
	s := &Server{
		syncSvc:     syncSvc,
		settingsSvc: settingsSvc,
	}

	router := mux.NewRouter()
	router.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)

	api := router.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/sync/cycle", s.handleTriggerCycle).Methods(http.MethodPost)
	api.HandleFunc("/sync/full", s.handleTriggerFull).Methods(http.MethodPost)
	api.HandleFunc("/sync/cancel", s.handleCancel).Methods(http.MethodPost)
	api.HandleFunc("/tasks/latest", s.handleLatestTask).Methods(http.MethodGet)
	api.HandleFunc("/tasks/{id}", s.handleTask).Methods(http.MethodGet)
	api.HandleFunc("/config", s.handleGetConfig).Methods(http.MethodGet)
	api.HandleFunc("/config", s.handlePutConfig).Methods(http.MethodPut)

	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Start serves until Shutdown is called. Blocks.
func (s *Server) Start() error {
	logger.Info("http: listening on %s", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown stops accepting connections and drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// Handler returns the route tree. Used by tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// writeJSON writes a JSON response with the given status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("http: encoding response: %v", err)
	}
}

// writeError writes a JSON error body.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
