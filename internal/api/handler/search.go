package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/kiranshivaraju/jobpilot/internal/api/response"
	"github.com/kiranshivaraju/jobpilot/internal/cache"
	"github.com/kiranshivaraju/jobpilot/internal/matching"
	"github.com/kiranshivaraju/jobpilot/internal/store"
	"github.com/kiranshivaraju/jobpilot/pkg/models"
)

const (
	defaultSearchLimit = 20
	searchCacheTTL     = 5 * time.Minute
)

// JobSearcher is the job catalog as seen by the search handler.
type JobSearcher interface {
	SearchJobs(ctx context.Context, filter store.JobFilter) ([]models.JobSearchResult, error)
}

// KV is the subset of cache.Cache used to memoize search results.
type KV interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// NewSearchJobsHandler returns an http.HandlerFunc for POST /api/search-jobs.
// Results are annotated with skill matches and ranked when skills are given.
// A nil kv disables result caching.
func NewSearchJobsHandler(jobs JobSearcher, kv KV) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req models.SearchJobsRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		limit := req.Limit
		if limit == 0 {
			limit = defaultSearchLimit
		}

		key := cache.SearchResultKey(matching.SearchKey(req.JobTitle, req.Skills, limit))
		if kv != nil {
			if b, found, err := kv.Get(r.Context(), key); err == nil && found {
				var cached models.SearchJobsResponse
				if json.Unmarshal(b, &cached) == nil {
					response.JSON(w, cached)
					return
				}
			}
		}

		results, err := jobs.SearchJobs(r.Context(), store.JobFilter{Title: req.JobTitle, Limit: limit})
		if err != nil {
			slog.Error("searching jobs", "error", err, "job_title", req.JobTitle)
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR",
				"An unexpected error occurred", nil)
			return
		}

		resp := models.SearchJobsResponse{SearchResults: matching.Rank(results, req.Skills)}

		if kv != nil {
			if b, err := json.Marshal(resp); err == nil {
				if err := kv.Set(r.Context(), key, b, searchCacheTTL); err != nil {
					slog.Warn("caching search results", "error", err)
				}
			}
		}

		response.JSON(w, resp)
	}
}
