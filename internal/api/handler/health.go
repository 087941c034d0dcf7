package handler

import (
	"context"
	"net/http"

	"github.com/kiranshivaraju/jobpilot/internal/api/response"
)

// Pinger is anything whose connectivity can be checked.
type Pinger interface {
	Ping(ctx context.Context) error
}

// ReadyChecker reports whether an optional backend is serving.
type ReadyChecker interface {
	Ready(ctx context.Context) error
}

// NewHealthHandler checks database and cache connectivity. The assistant
// backend is reported but never degrades health, since the assistant has a
// fallback answer.
func NewHealthHandler(db, kv Pinger, assistant ReadyChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		checks := map[string]string{
			"database": "ok",
			"cache":    "ok",
		}

		if err := db.Ping(r.Context()); err != nil {
			checks["database"] = "degraded"
		}
		if err := kv.Ping(r.Context()); err != nil {
			checks["cache"] = "degraded"
		}

		degraded := checks["database"] != "ok" || checks["cache"] != "ok"
		if degraded {
			response.Error(w, http.StatusServiceUnavailable, "DEGRADED",
				"One or more services degraded", checks)
			return
		}

		if assistant != nil {
			checks["assistant"] = "ok"
			if err := assistant.Ready(r.Context()); err != nil {
				checks["assistant"] = "unavailable"
			}
		}

		response.JSON(w, map[string]any{
			"status":   "ok",
			"services": checks,
		})
	}
}
