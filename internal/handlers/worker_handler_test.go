package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"corpsite/internal/models"
	"corpsite/internal/worker"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubWorker struct{}

func (stubWorker) GetInstance() string { return "default" }

func (stubWorker) GetStatus() worker.Status {
	return worker.Status{IsRunning: true, CurrentActivity: "Idle", LastRunDay: "2024-03-10"}
}

func (stubWorker) GetHistory() []worker.RunRecord {
	return []worker.RunRecord{{Status: worker.RunSuccess, Result: models.RunResult{Due: 1, Sent: 1}}}
}

func (stubWorker) GetActivityLogs() []worker.ActivityLog {
	return []worker.ActivityLog{{Level: "INFO", Message: "Worker default started"}}
}

func TestWorkerRouter_Health(t *testing.T) {
	router := NewWorkerRouter(testConfig(), stubWorker{}, testLogger())

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v1/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestWorkerRouter_Details(t *testing.T) {
	router := NewWorkerRouter(testConfig(), stubWorker{}, testLogger())

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v1/worker", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Instance string             `json:"instance"`
		Status   worker.Status      `json:"status"`
		History  []worker.RunRecord `json:"history"`
		Logs     []worker.ActivityLog
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "default", body.Instance)
	assert.Equal(t, "2024-03-10", body.Status.LastRunDay)
	require.Len(t, body.History, 1)
	assert.Equal(t, 1, body.History[0].Result.Sent)
	assert.Len(t, body.Logs, 1)
}

func TestWorkerRouter_Status(t *testing.T) {
	router := NewWorkerRouter(testConfig(), stubWorker{}, testLogger())

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v1/worker/status", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"is_running":true`)
}
