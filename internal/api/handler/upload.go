package handler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/kiranshivaraju/jobpilot/internal/api/response"
	"github.com/kiranshivaraju/jobpilot/internal/cache"
	"github.com/kiranshivaraju/jobpilot/pkg/models"
)

var allowedResumeExts = map[string]bool{
	".pdf":  true,
	".docx": true,
}

// KVSetter is the subset of cache.Cache the upload handler needs.
type KVSetter interface {
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// UploadConfig controls where resumes are stored.
type UploadConfig struct {
	Dir     string
	MaxSize int64
}

// NewUploadCVHandler returns an http.HandlerFunc for POST /api/upload-cv.
// The multipart "file" part is saved as resume<ext> under Dir, replacing any
// previous upload, and its path is recorded in the KV store for the runner.
func NewUploadCVHandler(kv KVSetter, cfg UploadConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		file, header, ext, ok := formResume(w, r, cfg.MaxSize)
		if !ok {
			return
		}
		defer file.Close()

		path, err := saveResume(cfg.Dir, ext, file)
		if err != nil {
			slog.Error("saving uploaded resume", "error", err)
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR",
				"Failed to store the uploaded file", nil)
			return
		}

		if err := kv.Set(r.Context(), cache.LatestCVKey(), []byte(path), 0); err != nil {
			slog.Warn("recording uploaded resume path", "error", err, "path", path)
		}

		slog.Info("resume uploaded", "path", path, "size", header.Size)
		response.JSON(w, models.UploadResult{
			Success:  true,
			Message:  "CV uploaded successfully",
			FilePath: path,
		})
	}
}

// formResume reads the multipart "file" part and checks its extension. On
// failure the error response has been written and ok is false.
func formResume(w http.ResponseWriter, r *http.Request, maxSize int64) (multipart.File, *multipart.FileHeader, string, bool) {
	if maxSize > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, maxSize)
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			response.Error(w, http.StatusRequestEntityTooLarge, "FILE_TOO_LARGE",
				fmt.Sprintf("File exceeds the %d byte limit", tooLarge.Limit), nil)
			return nil, nil, "", false
		}
		response.Error(w, http.StatusBadRequest, "INVALID_REQUEST",
			"Multipart field \"file\" is required", nil)
		return nil, nil, "", false
	}

	ext := strings.ToLower(filepath.Ext(header.Filename))
	if !allowedResumeExts[ext] {
		file.Close()
		response.Error(w, http.StatusBadRequest, "INVALID_FILE_TYPE",
			"Only .pdf and .docx files are accepted", map[string]string{"filename": header.Filename})
		return nil, nil, "", false
	}
	return file, header, ext, true
}

// saveResume writes src to a temp file in dir and renames it to resume<ext>.
func saveResume(dir, ext string, src io.Reader) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating upload dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "upload-*"+ext)
	if err != nil {
		return "", fmt.Errorf("creating temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, src); err != nil {
		tmp.Close()
		return "", fmt.Errorf("writing upload: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("closing upload: %w", err)
	}

	dst := filepath.Join(dir, "resume"+ext)
	if err := os.Rename(tmp.Name(), dst); err != nil {
		return "", fmt.Errorf("moving upload into place: %w", err)
	}
	return dst, nil
}
