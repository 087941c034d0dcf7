package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/kiranshivaraju/jobpilot/internal/api/response"
	"github.com/kiranshivaraju/jobpilot/internal/application"
	"github.com/kiranshivaraju/jobpilot/internal/store"
	"github.com/kiranshivaraju/jobpilot/pkg/models"
)

// Applications is the application service as seen by the handlers.
type Applications interface {
	Apply(ctx context.Context, req models.ApplyRequest) (*models.ApplicationStatus, error)
	ApplyMultiple(ctx context.Context, req models.ApplyMultipleRequest) ([]models.ApplicationStatus, error)
	Get(ctx context.Context, id int64) (*models.ApplicationStatus, error)
}

// NewApplyHandler returns an http.HandlerFunc for POST /api/apply-job.
func NewApplyHandler(svc Applications) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req models.ApplyRequest
		if !decodeJSON(w, r, &req) {
			return
		}

		status, err := svc.Apply(r.Context(), req)
		if err != nil {
			writeApplicationError(w, err)
			return
		}
		response.JSON(w, status)
	}
}

// NewApplyMultipleHandler returns an http.HandlerFunc for POST /api/apply-multiple.
func NewApplyMultipleHandler(svc Applications) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req models.ApplyMultipleRequest
		if !decodeJSON(w, r, &req) {
			return
		}

		apps, err := svc.ApplyMultiple(r.Context(), req)
		if err != nil {
			writeApplicationError(w, err)
			return
		}
		response.JSON(w, models.ApplyMultipleResponse{Applications: apps})
	}
}

// NewApplicationStatusHandler returns an http.HandlerFunc for
// GET /api/job-status/{applicationID}.
func NewApplicationStatusHandler(svc Applications) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := strconv.ParseInt(chi.URLParam(r, "applicationID"), 10, 64)
		if err != nil || id <= 0 {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST",
				"applicationID must be a positive integer", nil)
			return
		}

		status, err := svc.Get(r.Context(), id)
		if err != nil {
			writeApplicationError(w, err)
			return
		}
		response.JSON(w, status)
	}
}

func writeApplicationError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, application.ErrJobNotFound):
		response.Error(w, http.StatusNotFound, "JOB_NOT_FOUND", err.Error(), nil)
	case errors.Is(err, store.ErrNotFound):
		response.Error(w, http.StatusNotFound, "RESOURCE_NOT_FOUND", "Application not found", nil)
	case errors.Is(err, context.Canceled):
		// Client went away; nobody reads this.
		response.Error(w, http.StatusServiceUnavailable, "CANCELLED", "Request cancelled", nil)
	default:
		slog.Error("application request failed", "error", err)
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR",
			"An unexpected error occurred", nil)
	}
}
