package handler_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/kiranshivaraju/jobpilot/internal/api/handler"
	"github.com/kiranshivaraju/jobpilot/internal/runner"
	"github.com/kiranshivaraju/jobpilot/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAutomation struct {
	startFn   func(ctx context.Context, title string) (*models.AutomationStatus, error)
	controlFn func(ctx context.Context, req models.ControlRequest) (*models.AutomationStatus, error)
	status    *models.AutomationStatus
	logs      []models.AutomationLog
	err       error
}

func (f *fakeAutomation) Start(ctx context.Context, title string) (*models.AutomationStatus, error) {
	return f.startFn(ctx, title)
}

func (f *fakeAutomation) Control(ctx context.Context, req models.ControlRequest) (*models.AutomationStatus, error) {
	return f.controlFn(ctx, req)
}

func (f *fakeAutomation) Status(_ context.Context) (*models.AutomationStatus, error) {
	return f.status, f.err
}

func (f *fakeAutomation) Logs(_ context.Context) ([]models.AutomationLog, error) {
	return f.logs, f.err
}

func TestStartAutomation_Success(t *testing.T) {
	var gotTitle string
	a := &fakeAutomation{startFn: func(_ context.Context, title string) (*models.AutomationStatus, error) {
		gotTitle = title
		return &models.AutomationStatus{Status: models.AutomationRunning}, nil
	}}

	rec := httptest.NewRecorder()
	handler.NewStartAutomationHandler(a).ServeHTTP(rec,
		jsonRequest(t, http.MethodPost, "/api/start-automation", map[string]string{"jobTitle": "Frontend"}))

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "Frontend", gotTitle)
	status := decodeBody[models.AutomationStatus](t, rec)
	assert.Equal(t, models.AutomationRunning, status.Status)
}

func TestStartAutomation_MissingTitle(t *testing.T) {
	a := &fakeAutomation{startFn: func(context.Context, string) (*models.AutomationStatus, error) {
		t.Fatal("runner should not be called")
		return nil, nil
	}}

	rec := httptest.NewRecorder()
	handler.NewStartAutomationHandler(a).ServeHTTP(rec,
		jsonRequest(t, http.MethodPost, "/api/start-automation", map[string]string{}))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	env := decodeError(t, rec)
	assert.Equal(t, "VALIDATION_ERROR", env.Error.Code)
	assert.Equal(t, "required", env.Error.Details["jobTitle"])
}

func TestStartAutomation_InvalidJSON(t *testing.T) {
	a := &fakeAutomation{}

	rec := httptest.NewRecorder()
	handler.NewStartAutomationHandler(a).ServeHTTP(rec,
		jsonRequest(t, http.MethodPost, "/api/start-automation", "{nope"))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "INVALID_REQUEST", decodeError(t, rec).Error.Code)
}

func TestStartAutomation_ErrorMapping(t *testing.T) {
	tests := []struct {
		err  error
		code int
		name string
	}{
		{runner.ErrRunActive, http.StatusConflict, "RUN_ACTIVE"},
		{runner.ErrJobTitleRequired, http.StatusBadRequest, "VALIDATION_ERROR"},
		{errors.New("db down"), http.StatusInternalServerError, "INTERNAL_ERROR"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := &fakeAutomation{startFn: func(context.Context, string) (*models.AutomationStatus, error) {
				return nil, fmt.Errorf("start: %w", tt.err)
			}}

			rec := httptest.NewRecorder()
			handler.NewStartAutomationHandler(a).ServeHTTP(rec,
				jsonRequest(t, http.MethodPost, "/api/start-automation", map[string]string{"jobTitle": "x"}))

			assert.Equal(t, tt.code, rec.Code)
			assert.Equal(t, tt.name, decodeError(t, rec).Error.Code)
		})
	}
}

func TestAutomationStatus(t *testing.T) {
	id := int64(2)
	title := "Senior Frontend Engineer"
	a := &fakeAutomation{status: &models.AutomationStatus{
		Status: models.AutomationRunning, JobsTotal: 3, JobsCompleted: 1,
		CurrentJobID: &id, CurrentJobTitle: &title,
	}}

	rec := httptest.NewRecorder()
	handler.NewAutomationStatusHandler(a).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/job-status", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"running","jobsTotal":3,"jobsCompleted":1,"jobsFailed":0,
		"currentJobId":2,"currentJobTitle":"Senior Frontend Engineer"}`, rec.Body.String())
}

func TestAutomationLogs(t *testing.T) {
	ts := time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC)
	a := &fakeAutomation{logs: []models.AutomationLog{
		{ID: 1, Type: models.LogSearch, Message: "Searching for Frontend jobs...", Timestamp: ts},
		{ID: 2, Type: models.LogInfo, Message: "Found 3 jobs", Timestamp: ts},
	}}

	rec := httptest.NewRecorder()
	handler.NewAutomationLogsHandler(a).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/job-logs", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	resp := decodeBody[models.LogsResponse](t, rec)
	require.Len(t, resp.Logs, 2)
	assert.Equal(t, int64(1), resp.Logs[0].ID)
	assert.Equal(t, models.LogSearch, resp.Logs[0].Type)
}

func TestControl_Pause(t *testing.T) {
	var got models.ControlRequest
	a := &fakeAutomation{controlFn: func(_ context.Context, req models.ControlRequest) (*models.AutomationStatus, error) {
		got = req
		return &models.AutomationStatus{Status: models.AutomationPaused}, nil
	}}

	rec := httptest.NewRecorder()
	handler.NewControlHandler(a).ServeHTTP(rec,
		jsonRequest(t, http.MethodPost, "/api/control", map[string]string{"action": "pause"}))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, models.ControlPause, got.Action)
	assert.Equal(t, models.AutomationPaused, decodeBody[models.AutomationStatus](t, rec).Status)
}

func TestControl_UnknownActionRejectedByValidation(t *testing.T) {
	a := &fakeAutomation{}

	rec := httptest.NewRecorder()
	handler.NewControlHandler(a).ServeHTTP(rec,
		jsonRequest(t, http.MethodPost, "/api/control", map[string]string{"action": "rewind"}))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	env := decodeError(t, rec)
	assert.Equal(t, "VALIDATION_ERROR", env.Error.Code)
	assert.Equal(t, "oneof", env.Error.Details["action"])
}

func TestControl_NoActiveRun(t *testing.T) {
	a := &fakeAutomation{controlFn: func(context.Context, models.ControlRequest) (*models.AutomationStatus, error) {
		return nil, runner.ErrNoActiveRun
	}}

	rec := httptest.NewRecorder()
	handler.NewControlHandler(a).ServeHTTP(rec,
		jsonRequest(t, http.MethodPost, "/api/control", map[string]string{"action": "stop"}))

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "NO_ACTIVE_RUN", decodeError(t, rec).Error.Code)
}
