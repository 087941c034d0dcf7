package handler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/kiranshivaraju/jobpilot/internal/api/response"
	"github.com/kiranshivaraju/jobpilot/internal/matching"
	"github.com/kiranshivaraju/jobpilot/internal/resume"
	"github.com/kiranshivaraju/jobpilot/internal/store"
	"github.com/kiranshivaraju/jobpilot/pkg/models"
)

const (
	analyzeCatalogLimit = 100
	analyzeMatchLimit   = 10
)

// TextExtractor turns an uploaded CV into plain text.
type TextExtractor interface {
	Extract(ctx context.Context, ext string, r io.Reader) (string, error)
}

// NewAnalyzeCVHandler returns an http.HandlerFunc for POST /api/analyze-cv.
// Skills named by catalog postings are looked up in the CV text and the
// catalog is ranked against them. The upload is not stored.
func NewAnalyzeCVHandler(jobs JobSearcher, extractor TextExtractor, maxSize int64) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		file, header, ext, ok := formResume(w, r, maxSize)
		if !ok {
			return
		}
		defer file.Close()

		text, err := extractor.Extract(r.Context(), ext, file)
		if err != nil {
			switch {
			case errors.Is(err, resume.ErrUnreadable):
				response.Error(w, http.StatusUnprocessableEntity, "UNREADABLE_FILE",
					"The uploaded file could not be read", map[string]string{"filename": header.Filename})
			case errors.Is(err, resume.ErrExtractorUnavailable):
				slog.Error("analyzing resume", "error", err)
				response.Error(w, http.StatusServiceUnavailable, "EXTRACTOR_UNAVAILABLE",
					"PDF analysis is not available on this server", nil)
			default:
				slog.Error("extracting resume text", "error", err, "filename", header.Filename)
				response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR",
					"An unexpected error occurred", nil)
			}
			return
		}

		catalog, err := jobs.SearchJobs(r.Context(), store.JobFilter{Limit: analyzeCatalogLimit})
		if err != nil {
			slog.Error("loading job catalog", "error", err)
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR",
				"An unexpected error occurred", nil)
			return
		}

		skills := matching.ExtractSkills(text, matching.Vocabulary(catalog))
		matches := matching.Analyze(catalog, skills, analyzeMatchLimit)

		slog.Info("resume analyzed", "skills", len(skills), "matches", len(matches))
		response.JSON(w, models.AnalyzeCVResponse{Skills: skills, JobMatches: matches})
	}
}
