package ollama

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/kiranshivaraju/jobpilot/internal/config"
	"github.com/kiranshivaraju/jobpilot/pkg/models"
)

// --- helpers ---

func ollamaServer(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	return httptest.NewServer(handler)
}

func newTestProvider(t *testing.T, baseURL string) *Provider {
	t.Helper()
	return NewProvider(config.OllamaConfig{BaseURL: baseURL, Model: "mistral"})
}

// --- Generate tests ---

func TestGenerate_ValidResponse(t *testing.T) {
	ts := ollamaServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/generate" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if r.Method != http.MethodPost {
			t.Errorf("unexpected method: %s", r.Method)
		}

		var req generateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decoding request: %v", err)
		}
		if req.Model != "mistral" {
			t.Errorf("unexpected model: %s", req.Model)
		}
		if req.Prompt != "Which jobs are remote?" {
			t.Errorf("unexpected prompt: %s", req.Prompt)
		}
		if req.Stream {
			t.Error("expected stream=false")
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(generateResponse{
			Model:    "mistral",
			Response: "Jobs 1 and 4 are remote.",
			Done:     true,
		})
	})
	defer ts.Close()

	p := newTestProvider(t, ts.URL)
	answer, err := p.Generate(context.Background(), "Which jobs are remote?")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if answer != "Jobs 1 and 4 are remote." {
		t.Errorf("unexpected answer: %q", answer)
	}
}

func TestGenerate_TrailingSlashInBaseURL(t *testing.T) {
	ts := ollamaServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/generate" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		json.NewEncoder(w).Encode(generateResponse{Response: "ok"})
	})
	defer ts.Close()

	p := newTestProvider(t, ts.URL+"/")
	if _, err := p.Generate(context.Background(), "q"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestGenerate_ServerError(t *testing.T) {
	ts := ollamaServer(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `model "mistral" not found`, http.StatusNotFound)
	})
	defer ts.Close()

	p := newTestProvider(t, ts.URL)
	_, err := p.Generate(context.Background(), "q")
	if !errors.Is(err, models.ErrProviderUnavailable) {
		t.Errorf("expected ErrProviderUnavailable, got: %v", err)
	}
}

func TestGenerate_MalformedJSON(t *testing.T) {
	ts := ollamaServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("{not json"))
	})
	defer ts.Close()

	p := newTestProvider(t, ts.URL)
	_, err := p.Generate(context.Background(), "q")
	if !errors.Is(err, models.ErrInvalidResponse) {
		t.Errorf("expected ErrInvalidResponse, got: %v", err)
	}
}

func TestGenerate_EmptyResponse(t *testing.T) {
	ts := ollamaServer(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(generateResponse{Response: "  ", Done: true})
	})
	defer ts.Close()

	p := newTestProvider(t, ts.URL)
	_, err := p.Generate(context.Background(), "q")
	if !errors.Is(err, models.ErrInvalidResponse) {
		t.Errorf("expected ErrInvalidResponse, got: %v", err)
	}
}

func TestGenerate_Timeout(t *testing.T) {
	ts := ollamaServer(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	})
	defer ts.Close()

	p := newTestProvider(t, ts.URL)
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := p.Generate(ctx, "q")
	if !errors.Is(err, models.ErrInferenceTimeout) {
		t.Errorf("expected ErrInferenceTimeout, got: %v", err)
	}
}

func TestGenerate_Unreachable(t *testing.T) {
	p := newTestProvider(t, "http://127.0.0.1:1")
	_, err := p.Generate(context.Background(), "q")
	if !errors.Is(err, models.ErrProviderUnavailable) {
		t.Errorf("expected ErrProviderUnavailable, got: %v", err)
	}
}

// --- Ready tests ---

func TestReady_OK(t *testing.T) {
	ts := ollamaServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/tags" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if r.Method != http.MethodGet {
			t.Errorf("unexpected method: %s", r.Method)
		}
		w.Write([]byte(`{"models":[{"name":"mistral:latest"}]}`))
	})
	defer ts.Close()

	p := newTestProvider(t, ts.URL)
	if err := p.Ready(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestReady_NotOK(t *testing.T) {
	ts := ollamaServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})
	defer ts.Close()

	p := newTestProvider(t, ts.URL)
	err := p.Ready(context.Background())
	if !errors.Is(err, models.ErrProviderUnavailable) {
		t.Errorf("expected ErrProviderUnavailable, got: %v", err)
	}
}

func TestReady_Unreachable(t *testing.T) {
	p := newTestProvider(t, "http://127.0.0.1:1")
	err := p.Ready(context.Background())
	if !errors.Is(err, models.ErrProviderUnavailable) {
		t.Errorf("expected ErrProviderUnavailable, got: %v", err)
	}
}

func TestName(t *testing.T) {
	p := newTestProvider(t, "http://localhost:11434")
	if p.Name() != "ollama" {
		t.Errorf("unexpected name: %s", p.Name())
	}
}
