package automation

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/kiranshivaraju/jobpilot/pkg/models"
)

// Sentinel errors for backend client failures.
var (
	ErrBackendUnreachable = errors.New("automation backend unreachable")
	ErrBackendError       = errors.New("automation backend error")
	ErrBackendTimeout     = errors.New("automation backend timeout")
)

// Client is the interface for talking to the automation backend.
type Client interface {
	StartAutomation(ctx context.Context, jobTitle string) (*models.AutomationStatus, error)
	Status(ctx context.Context) (*models.AutomationStatus, error)
	Logs(ctx context.Context) ([]models.AutomationLog, error)
	Control(ctx context.Context, req models.ControlRequest) (*models.AutomationStatus, error)
	UploadCV(ctx context.Context, filename string, content io.Reader) (*models.UploadResult, error)
	AnalyzeCV(ctx context.Context, filename string, content io.Reader) (*models.AnalyzeCVResponse, error)
	ApplyJob(ctx context.Context, req models.ApplyRequest) (*models.ApplicationStatus, error)
	ApplyMultiple(ctx context.Context, req models.ApplyMultipleRequest) ([]models.ApplicationStatus, error)
	ApplicationStatus(ctx context.Context, applicationID int64) (*models.ApplicationStatus, error)
	SearchJobs(ctx context.Context, req models.SearchJobsRequest) ([]models.JobSearchResult, error)
	Ready(ctx context.Context) error
}

// APIError is a non-2xx response from the backend. It unwraps to ErrBackendError.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("%s: status %d", ErrBackendError, e.StatusCode)
	}
	return fmt.Sprintf("%s: status %d: %s: %s", ErrBackendError, e.StatusCode, e.Code, e.Message)
}

func (e *APIError) Unwrap() error { return ErrBackendError }

// HTTPClient implements Client over the backend's JSON API.
type HTTPClient struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

// NewHTTPClient creates a client rooted at baseURL (for example http://localhost:5000/api).
// An empty apiKey sends no Authorization header.
func NewHTTPClient(baseURL, apiKey string, timeout time.Duration) *HTTPClient {
	return &HTTPClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		client:  &http.Client{Timeout: timeout},
	}
}

func (c *HTTPClient) StartAutomation(ctx context.Context, jobTitle string) (*models.AutomationStatus, error) {
	var status models.AutomationStatus
	body := models.StartAutomationRequest{JobTitle: jobTitle}
	if err := c.doJSON(ctx, http.MethodPost, "/start-automation", body, &status); err != nil {
		return nil, err
	}
	return &status, nil
}

func (c *HTTPClient) Status(ctx context.Context) (*models.AutomationStatus, error) {
	var status models.AutomationStatus
	if err := c.doJSON(ctx, http.MethodGet, "/job-status", nil, &status); err != nil {
		return nil, err
	}
	return &status, nil
}

func (c *HTTPClient) Logs(ctx context.Context) ([]models.AutomationLog, error) {
	var resp models.LogsResponse
	if err := c.doJSON(ctx, http.MethodGet, "/job-logs", nil, &resp); err != nil {
		return nil, err
	}
	if resp.Logs == nil {
		return []models.AutomationLog{}, nil
	}
	return resp.Logs, nil
}

func (c *HTTPClient) Control(ctx context.Context, req models.ControlRequest) (*models.AutomationStatus, error) {
	var status models.AutomationStatus
	if err := c.doJSON(ctx, http.MethodPost, "/control", req, &status); err != nil {
		return nil, err
	}
	return &status, nil
}

func (c *HTTPClient) UploadCV(ctx context.Context, filename string, content io.Reader) (*models.UploadResult, error) {
	var result models.UploadResult
	if err := c.postFile(ctx, "/upload-cv", filename, content, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// AnalyzeCV sends a CV for scoring against the job catalog without storing it.
func (c *HTTPClient) AnalyzeCV(ctx context.Context, filename string, content io.Reader) (*models.AnalyzeCVResponse, error) {
	var result models.AnalyzeCVResponse
	if err := c.postFile(ctx, "/analyze-cv", filename, content, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *HTTPClient) ApplyJob(ctx context.Context, req models.ApplyRequest) (*models.ApplicationStatus, error) {
	var status models.ApplicationStatus
	if err := c.doJSON(ctx, http.MethodPost, "/apply-job", req, &status); err != nil {
		return nil, err
	}
	return &status, nil
}

func (c *HTTPClient) ApplyMultiple(ctx context.Context, req models.ApplyMultipleRequest) ([]models.ApplicationStatus, error) {
	var resp models.ApplyMultipleResponse
	if err := c.doJSON(ctx, http.MethodPost, "/apply-multiple", req, &resp); err != nil {
		return nil, err
	}
	return resp.Applications, nil
}

func (c *HTTPClient) ApplicationStatus(ctx context.Context, applicationID int64) (*models.ApplicationStatus, error) {
	var status models.ApplicationStatus
	path := "/job-status/" + strconv.FormatInt(applicationID, 10)
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &status); err != nil {
		return nil, err
	}
	return &status, nil
}

func (c *HTTPClient) SearchJobs(ctx context.Context, req models.SearchJobsRequest) ([]models.JobSearchResult, error) {
	var resp models.SearchJobsResponse
	if err := c.doJSON(ctx, http.MethodPost, "/search-jobs", req, &resp); err != nil {
		return nil, err
	}
	return resp.SearchResults, nil
}

func (c *HTTPClient) Ready(ctx context.Context) error {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	c.setHeaders(httpReq)

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrBackendUnreachable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: backend not ready (status %d)", ErrBackendUnreachable, resp.StatusCode)
	}
	return nil
}

// doJSON sends an optional JSON body and decodes a JSON response into out.
func (c *HTTPClient) doJSON(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding request: %w", err)
		}
		reader = bytes.NewReader(b)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	if body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	return c.do(httpReq, out)
}

func (c *HTTPClient) do(httpReq *http.Request, out any) error {
	c.setHeaders(httpReq)

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return classifyError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeAPIError(resp)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding %s response: %w", httpReq.URL.Path, err)
	}
	return nil
}

func (c *HTTPClient) setHeaders(req *http.Request) {
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
}

// postFile uploads content as the multipart "file" part and decodes the JSON response into out.
func (c *HTTPClient) postFile(ctx context.Context, path, filename string, content io.Reader, out any) error {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return fmt.Errorf("creating form file: %w", err)
	}
	if _, err := io.Copy(part, content); err != nil {
		return fmt.Errorf("copying cv content: %w", err)
	}
	if err := mw.Close(); err != nil {
		return fmt.Errorf("closing multipart writer: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, &buf)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	httpReq.Header.Set("Content-Type", mw.FormDataContentType())
	return c.do(httpReq, out)
}

// decodeAPIError reads the backend's error envelope, tolerating bodies that are not JSON.
func decodeAPIError(resp *http.Response) error {
	apiErr := &APIError{StatusCode: resp.StatusCode}
	var env struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if json.Unmarshal(body, &env) == nil {
		apiErr.Code = env.Error.Code
		apiErr.Message = env.Error.Message
	}
	return apiErr
}

// classifyError maps transport-level errors to sentinel errors.
func classifyError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return fmt.Errorf("%w: %v", ErrBackendTimeout, err)
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Errorf("%w: %v", ErrBackendTimeout, err)
	}

	return fmt.Errorf("%w: %v", ErrBackendUnreachable, err)
}

// Compile-time check that HTTPClient implements Client.
var _ Client = (*HTTPClient)(nil)
