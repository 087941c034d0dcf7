package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/kiranshivaraju/jobpilot/internal/store"
	"github.com/kiranshivaraju/jobpilot/pkg/models"
	"github.com/stretchr/testify/require"
)

// --- fakes ---

type memKV struct {
	mu   sync.Mutex
	data map[string][]byte
	ttls map[string]time.Duration
	err  error
}

func newMemKV() *memKV {
	return &memKV{data: map[string][]byte{}, ttls: map[string]time.Duration{}}
}

func (m *memKV) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, false, m.err
	}
	v, ok := m.data[key]
	return v, ok, nil
}

func (m *memKV) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.data[key] = value
	m.ttls[key] = ttl
	return nil
}

type fakeCatalog struct {
	jobs     []models.JobSearchResult
	err      error
	searches []store.JobFilter
	lookups  [][]int64
}

func (c *fakeCatalog) SearchJobs(_ context.Context, f store.JobFilter) ([]models.JobSearchResult, error) {
	c.searches = append(c.searches, f)
	if c.err != nil {
		return nil, c.err
	}
	out := []models.JobSearchResult{}
	for _, j := range c.jobs {
		if f.Title == "" || containsFold(j.Title, f.Title) {
			out = append(out, j)
		}
		if f.Limit > 0 && len(out) == f.Limit {
			break
		}
	}
	return out, nil
}

func (c *fakeCatalog) GetJobsByIDs(_ context.Context, ids []int64) ([]models.JobSearchResult, error) {
	c.lookups = append(c.lookups, ids)
	if c.err != nil {
		return nil, c.err
	}
	out := []models.JobSearchResult{}
	for _, id := range ids {
		for _, j := range c.jobs {
			if j.ID == id {
				out = append(out, j)
			}
		}
	}
	return out, nil
}

func containsFold(s, sub string) bool {
	return bytes.Contains(bytes.ToLower([]byte(s)), bytes.ToLower([]byte(sub)))
}

func testCatalog() *fakeCatalog {
	return &fakeCatalog{jobs: []models.JobSearchResult{
		{ID: 1, Title: "Frontend Developer", Company: "TechCorp", Location: "Remote", Salary: "$90k",
			Skills: []string{"React", "TypeScript", "CSS"}},
		{ID: 2, Title: "Senior Frontend Engineer", Company: "WebWorks", Location: "NYC", Salary: "$140k",
			Skills: []string{"React", "GraphQL"}},
		{ID: 3, Title: "Backend Engineer", Company: "DataCo", Location: "Austin", Salary: "$120k",
			Skills: []string{"Go", "PostgreSQL"}},
		{ID: 9, Title: "Frontend Intern", Company: "StartIt", Location: "Remote", Salary: "$25/h"},
	}}
}

// --- helpers ---

func jsonRequest(t *testing.T, method, path string, body any) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	if s, ok := body.(string); ok {
		buf.WriteString(s)
	} else if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	r := httptest.NewRequest(method, path, &buf)
	r.Header.Set("Content-Type", "application/json")
	return r
}

// withURLParam attaches a chi route param the way the router would.
func withURLParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

type errorEnvelope struct {
	Error struct {
		Code    string            `json:"code"`
		Message string            `json:"message"`
		Details map[string]string `json:"details"`
	} `json:"error"`
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) errorEnvelope {
	t.Helper()
	return decodeBody[errorEnvelope](t, rec)
}
