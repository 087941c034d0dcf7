package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	mw "github.com/kiranshivaraju/jobpilot/internal/api/middleware"
	"github.com/kiranshivaraju/jobpilot/internal/api/response"
)

// Dependencies holds all handler and middleware dependencies for the router.
type Dependencies struct {
	Auth      *mw.Auth
	RateLimit *mw.RateLimit

	HealthHandler http.HandlerFunc

	StartAutomationHandler  http.HandlerFunc
	AutomationStatusHandler http.HandlerFunc
	AutomationLogsHandler   http.HandlerFunc
	ControlHandler          http.HandlerFunc

	UploadCVHandler   http.HandlerFunc
	AnalyzeCVHandler  http.HandlerFunc
	SearchJobsHandler http.HandlerFunc

	ApplyHandler             http.HandlerFunc
	ApplyMultipleHandler     http.HandlerFunc
	ApplicationStatusHandler http.HandlerFunc

	AskHandler http.HandlerFunc
}

// NewRouter builds the Chi router with middleware stack and all routes.
func NewRouter(deps Dependencies) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimw.RequestID)
	r.Use(mw.Logger)
	r.Use(mw.Recovery)

	// Public health check
	r.Get("/api/health", orNotImplemented(deps.HealthHandler))

	r.Group(func(r chi.Router) {
		if deps.Auth != nil {
			r.Use(deps.Auth.Authenticate)
		}
		if deps.RateLimit != nil {
			r.Use(deps.RateLimit.Limit)
		}

		r.Post("/api/start-automation", orNotImplemented(deps.StartAutomationHandler))
		r.Get("/api/job-status", orNotImplemented(deps.AutomationStatusHandler))
		r.Get("/api/job-logs", orNotImplemented(deps.AutomationLogsHandler))
		r.Post("/api/control", orNotImplemented(deps.ControlHandler))

		r.Post("/api/upload-cv", orNotImplemented(deps.UploadCVHandler))
		r.Post("/api/analyze-cv", orNotImplemented(deps.AnalyzeCVHandler))
		r.Post("/api/search-jobs", orNotImplemented(deps.SearchJobsHandler))

		r.Post("/api/apply-job", orNotImplemented(deps.ApplyHandler))
		r.Post("/api/apply-multiple", orNotImplemented(deps.ApplyMultipleHandler))
		r.Get("/api/job-status/{applicationID}", orNotImplemented(deps.ApplicationStatusHandler))

		r.Post("/api/assistant/ask", orNotImplemented(deps.AskHandler))
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		response.Error(w, http.StatusNotFound, "RESOURCE_NOT_FOUND", "Route not found", nil)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		response.Error(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed", nil)
	})

	return r
}

// orNotImplemented returns the handler if non-nil, or a 501 placeholder.
func orNotImplemented(h http.HandlerFunc) http.HandlerFunc {
	if h != nil {
		return h
	}
	return func(w http.ResponseWriter, r *http.Request) {
		response.Error(w, http.StatusNotImplemented, "NOT_IMPLEMENTED", "Endpoint not yet implemented", nil)
	}
}
