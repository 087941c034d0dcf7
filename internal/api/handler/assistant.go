package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/kiranshivaraju/jobpilot/internal/ai"
	"github.com/kiranshivaraju/jobpilot/internal/api/response"
	"github.com/kiranshivaraju/jobpilot/internal/store"
	"github.com/kiranshivaraju/jobpilot/pkg/models"
)

// assistantContextJobs is how many catalog jobs are given to the model when
// the question names none.
const assistantContextJobs = 20

// Advisor answers questions about job listings.
type Advisor interface {
	Ask(ctx context.Context, question string, jobs []models.JobSearchResult) (*models.AskResponse, error)
}

// JobCatalog is the job lookup the assistant handler needs.
type JobCatalog interface {
	JobSearcher
	GetJobsByIDs(ctx context.Context, ids []int64) ([]models.JobSearchResult, error)
}

// NewAskHandler returns an http.HandlerFunc for POST /api/assistant/ask.
func NewAskHandler(advisor Advisor, jobs JobCatalog) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req models.AskRequest
		if !decodeJSON(w, r, &req) {
			return
		}

		var (
			jobContext []models.JobSearchResult
			err        error
		)
		if len(req.JobIDs) > 0 {
			jobContext, err = jobs.GetJobsByIDs(r.Context(), req.JobIDs)
		} else {
			jobContext, err = jobs.SearchJobs(r.Context(), store.JobFilter{Limit: assistantContextJobs})
		}
		if err != nil {
			slog.Error("loading assistant job context", "error", err)
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR",
				"An unexpected error occurred", nil)
			return
		}

		answer, err := advisor.Ask(r.Context(), req.Question, jobContext)
		if err != nil {
			if errors.Is(err, ai.ErrEmptyQuestion) {
				response.Error(w, http.StatusBadRequest, "VALIDATION_ERROR",
					"Invalid request", map[string]string{"question": "required"})
				return
			}
			slog.Error("assistant request failed", "error", err)
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR",
				"An unexpected error occurred", nil)
			return
		}
		response.JSON(w, answer)
	}
}
