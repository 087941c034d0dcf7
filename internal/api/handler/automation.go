package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/kiranshivaraju/jobpilot/internal/api/response"
	"github.com/kiranshivaraju/jobpilot/internal/runner"
	"github.com/kiranshivaraju/jobpilot/pkg/models"
)

// Automation is the server-side automation runner as seen by the handlers.
type Automation interface {
	Start(ctx context.Context, jobTitle string) (*models.AutomationStatus, error)
	Control(ctx context.Context, req models.ControlRequest) (*models.AutomationStatus, error)
	Status(ctx context.Context) (*models.AutomationStatus, error)
	Logs(ctx context.Context) ([]models.AutomationLog, error)
}

// NewStartAutomationHandler returns an http.HandlerFunc for POST /api/start-automation.
func NewStartAutomationHandler(a Automation) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req models.StartAutomationRequest
		if !decodeJSON(w, r, &req) {
			return
		}

		status, err := a.Start(r.Context(), req.JobTitle)
		if err != nil {
			writeAutomationError(w, err)
			return
		}
		response.JSON(w, status)
	}
}

// NewAutomationStatusHandler returns an http.HandlerFunc for GET /api/job-status.
func NewAutomationStatusHandler(a Automation) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status, err := a.Status(r.Context())
		if err != nil {
			writeAutomationError(w, err)
			return
		}
		response.JSON(w, status)
	}
}

// NewAutomationLogsHandler returns an http.HandlerFunc for GET /api/job-logs.
func NewAutomationLogsHandler(a Automation) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logs, err := a.Logs(r.Context())
		if err != nil {
			writeAutomationError(w, err)
			return
		}
		response.JSON(w, models.LogsResponse{Logs: logs})
	}
}

// NewControlHandler returns an http.HandlerFunc for POST /api/control.
func NewControlHandler(a Automation) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req models.ControlRequest
		if !decodeJSON(w, r, &req) {
			return
		}

		status, err := a.Control(r.Context(), req)
		if err != nil {
			writeAutomationError(w, err)
			return
		}
		response.JSON(w, status)
	}
}

func writeAutomationError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, runner.ErrRunActive):
		response.Error(w, http.StatusConflict, "RUN_ACTIVE",
			"An automation run is already in progress", nil)
	case errors.Is(err, runner.ErrNoActiveRun):
		response.Error(w, http.StatusConflict, "NO_ACTIVE_RUN",
			"There is no automation run to control", nil)
	case errors.Is(err, runner.ErrInvalidAction):
		response.Error(w, http.StatusBadRequest, "INVALID_ACTION", err.Error(), nil)
	case errors.Is(err, runner.ErrJobTitleRequired):
		response.Error(w, http.StatusBadRequest, "VALIDATION_ERROR",
			"Invalid request", map[string]string{"jobTitle": "required"})
	default:
		slog.Error("automation request failed", "error", err)
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR",
			"An unexpected error occurred", nil)
	}
}
