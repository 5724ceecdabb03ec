package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/regsync/internal/core/domain"
	"github.com/custodia-labs/regsync/internal/core/ports/driving"
)

type stubSyncService struct {
	triggerID  string
	triggerErr error
	running    bool
	canceled   bool
	tasks      map[string]*domain.Task
	latest     *domain.Task
}

func (s *stubSyncService) TriggerSingleCycle(context.Context) (string, error) {
	return s.triggerID, s.triggerErr
}

func (s *stubSyncService) TriggerFullSync(context.Context) (string, error) {
	return s.triggerID, s.triggerErr
}

func (s *stubSyncService) RunFullSync(context.Context) (*domain.Task, error) {
	return s.latest, nil
}

func (s *stubSyncService) Cancel()       { s.canceled = true }
func (s *stubSyncService) Running() bool { return s.running }

func (s *stubSyncService) LatestStatus(context.Context) (*domain.Task, error) {
	if s.latest == nil {
		return nil, domain.ErrNotFound
	}
	return s.latest, nil
}

func (s *stubSyncService) TaskStatus(_ context.Context, id string) (*domain.Task, error) {
	task, ok := s.tasks[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return task, nil
}

type stubSettingsService struct {
	settings  domain.Settings
	updateErr error
	updated   *domain.Settings
}

func (s *stubSettingsService) Get() (domain.Settings, error) { return s.settings, nil }

func (s *stubSettingsService) Update(settings domain.Settings) error {
	if s.updateErr != nil {
		return s.updateErr
	}
	s.updated = &settings
	return nil
}

var (
	_ driving.SyncService     = (*stubSyncService)(nil)
	_ driving.SettingsService = (*stubSettingsService)(nil)
)

func newTestServer(syncSvc *stubSyncService, settingsSvc *stubSettingsService) *Server {
	if settingsSvc == nil {
		settingsSvc = &stubSettingsService{settings: domain.DefaultSettings()}
	}
	return NewServer("127.0.0.1:0", syncSvc, settingsSvc)
}

func doRequest(t *testing.T, srv *Server, method, path string, body []byte) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestHealthEndpoint(t *testing.T) {
	srv := newTestServer(&stubSyncService{running: true}, nil)

	rec := doRequest(t, srv, http.MethodGet, "/healthz", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, true, body["syncing"])
}

func TestTriggerEndpointsReturnTaskID(t *testing.T) {
	for _, path := range []string{"/api/v1/sync/cycle", "/api/v1/sync/full"} {
		srv := newTestServer(&stubSyncService{triggerID: "task-123"}, nil)

		rec := doRequest(t, srv, http.MethodPost, path, nil)

		assert.Equal(t, http.StatusAccepted, rec.Code, path)
		body := decodeBody(t, rec)
		assert.Equal(t, "task-123", body["task_id"], path)
	}
}

func TestTriggerConflictsWhileSyncing(t *testing.T) {
	srv := newTestServer(&stubSyncService{triggerErr: domain.ErrSyncInProgress}, nil)

	rec := doRequest(t, srv, http.MethodPost, "/api/v1/sync/full", nil)

	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestTriggerRejectsGet(t *testing.T) {
	srv := newTestServer(&stubSyncService{}, nil)

	rec := doRequest(t, srv, http.MethodGet, "/api/v1/sync/full", nil)

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestCancelEndpoint(t *testing.T) {
	syncSvc := &stubSyncService{running: true}
	srv := newTestServer(syncSvc, nil)

	rec := doRequest(t, srv, http.MethodPost, "/api/v1/sync/cancel", nil)

	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.True(t, syncSvc.canceled)
}

func TestCancelWithoutRunConflicts(t *testing.T) {
	srv := newTestServer(&stubSyncService{running: false}, nil)

	rec := doRequest(t, srv, http.MethodPost, "/api/v1/sync/cancel", nil)

	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestLatestTaskEndpoint(t *testing.T) {
	task := &domain.Task{
		ID:           "task-9",
		Kind:         domain.KindFullSync,
		Status:       domain.TaskComplete,
		StartedAt:    time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC),
		EndedAt:      time.Date(2025, 3, 1, 12, 5, 0, 0, time.UTC),
		RowsReceived: 10,
		RowsUpdated:  3,
		ExportedFile: "exports/registrations.csv",
	}
	srv := newTestServer(&stubSyncService{latest: task}, nil)

	rec := doRequest(t, srv, http.MethodGet, "/api/v1/tasks/latest", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "task-9", body["id"])
	assert.Equal(t, "full_sync", body["kind"])
	assert.Equal(t, "complete", body["status"])
	assert.Equal(t, "2025-03-01T12:05:00Z", body["ended_at"])
	assert.Equal(t, float64(3), body["rows_updated"])
	assert.Equal(t, "exports/registrations.csv", body["exported_file"])
}

func TestLatestTaskNotFound(t *testing.T) {
	srv := newTestServer(&stubSyncService{}, nil)

	rec := doRequest(t, srv, http.MethodGet, "/api/v1/tasks/latest", nil)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestTaskByID(t *testing.T) {
	task := &domain.Task{ID: "abc", Kind: domain.KindSingleCycle, Status: domain.TaskRunning, StartedAt: time.Now()}
	srv := newTestServer(&stubSyncService{tasks: map[string]*domain.Task{"abc": task}}, nil)

	rec := doRequest(t, srv, http.MethodGet, "/api/v1/tasks/abc", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "running", body["status"])
	assert.NotContains(t, body, "ended_at")

	rec = doRequest(t, srv, http.MethodGet, "/api/v1/tasks/missing", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetConfig(t *testing.T) {
	settingsSvc := &stubSettingsService{settings: domain.Settings{
		Scheduler: domain.SchedulerSettings{IntervalMinutes: 45},
		ETL:       domain.ETLSettings{ChunkSize: 200},
	}}
	srv := newTestServer(&stubSyncService{}, settingsSvc)

	rec := doRequest(t, srv, http.MethodGet, "/api/v1/config", nil)

	assert.Equal(t, http.StatusOK, rec.Code)

	var got domain.Settings
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, settingsSvc.settings, got)
}

func TestPutConfig(t *testing.T) {
	settingsSvc := &stubSettingsService{}
	srv := newTestServer(&stubSyncService{}, settingsSvc)

	body := []byte(`{"scheduler":{"interval_minutes":30},"etl":{"chunk_size":100}}`)
	rec := doRequest(t, srv, http.MethodPut, "/api/v1/config", body)

	assert.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, settingsSvc.updated)
	assert.Equal(t, 30, settingsSvc.updated.Scheduler.IntervalMinutes)
	assert.Equal(t, 100, settingsSvc.updated.ETL.ChunkSize)
}

func TestPutConfigRejectsBadBodies(t *testing.T) {
	srv := newTestServer(&stubSyncService{}, &stubSettingsService{})

	rec := doRequest(t, srv, http.MethodPut, "/api/v1/config", []byte("{not json"))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	invalid := &stubSettingsService{updateErr: domain.ErrInvalidInput}
	srv = newTestServer(&stubSyncService{}, invalid)
	rec = doRequest(t, srv, http.MethodPut, "/api/v1/config", []byte(`{"scheduler":{"interval_minutes":0}}`))
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}
