package rest

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/custodia-labs/regsync/internal/core/domain"
)

// taskResponse is the wire shape of a task record.
type taskResponse struct {
	ID           string `json:"id"`
	Kind         string `json:"kind"`
	Status       string `json:"status"`
	StartedAt    string `json:"started_at"`
	EndedAt      string `json:"ended_at,omitempty"`
	RowsReceived int    `json:"rows_received"`
	RowsUpdated  int    `json:"rows_updated"`
	Message      string `json:"message,omitempty"`
	ExportedFile string `json:"exported_file,omitempty"`
}

func toTaskResponse(t *domain.Task) taskResponse {
	resp := taskResponse{
		ID:           t.ID,
		Kind:         string(t.Kind),
		Status:       string(t.Status),
		StartedAt:    t.StartedAt.Format(time.RFC3339),
		RowsReceived: t.RowsReceived,
		RowsUpdated:  t.RowsUpdated,
		Message:      t.Message,
		ExportedFile: t.ExportedFile,
	}
	if !t.EndedAt.IsZero() {
		resp.EndedAt = t.EndedAt.Format(time.RFC3339)
	}
	return resp
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"syncing": s.syncSvc.Running(),
	})
}

func (s *Server) handleTriggerCycle(w http.ResponseWriter, r *http.Request) {
	s.trigger(w, r, s.syncSvc.TriggerSingleCycle)
}

func (s *Server) handleTriggerFull(w http.ResponseWriter, r *http.Request) {
	s.trigger(w, r, s.syncSvc.TriggerFullSync)
}

func (s *Server) trigger(w http.ResponseWriter, r *http.Request, fn func(ctx context.Context) (string, error)) {
	id, err := fn(r.Context())
	if err != nil {
		if errors.Is(err, domain.ErrSyncInProgress) {
			writeError(w, http.StatusConflict, "a sync is already running")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"task_id": id})
}

func (s *Server) handleCancel(w http.ResponseWriter, _ *http.Request) {
	if !s.syncSvc.Running() {
		writeError(w, http.StatusConflict, "no sync is running")
		return
	}
	s.syncSvc.Cancel()
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "cancelling"})
}

func (s *Server) handleLatestTask(w http.ResponseWriter, r *http.Request) {
	task, err := s.syncSvc.LatestStatus(r.Context())
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "no task has run yet")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, toTaskResponse(task))
}

func (s *Server) handleTask(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	task, err := s.syncSvc.TaskStatus(r.Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "unknown task id")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, toTaskResponse(task))
}

func (s *Server) handleGetConfig(w http.ResponseWriter, _ *http.Request) {
	settings, err := s.settingsSvc.Get()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, settings)
}

func (s *Server) handlePutConfig(w http.ResponseWriter, r *http.Request) {
	var settings domain.Settings
	if err := json.NewDecoder(r.Body).Decode(&settings); err != nil {
		writeError(w, http.StatusBadRequest, "malformed settings body")
		return
	}
	if err := s.settingsSvc.Update(settings); err != nil {
		if errors.Is(err, domain.ErrInvalidInput) {
			writeError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, settings)
}
