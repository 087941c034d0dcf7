package main

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/kiranshivaraju/jobpilot/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testAnalyzer struct {
	filename string
	content  string
	res      *models.AnalyzeCVResponse
	err      error
}

func (a *testAnalyzer) AnalyzeCV(_ context.Context, filename string, content io.Reader) (*models.AnalyzeCVResponse, error) {
	a.filename = filename
	b, _ := io.ReadAll(content)
	a.content = string(b)
	return a.res, a.err
}

func TestAnalyzeFile_PrintsMatches(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ada.docx")
	require.NoError(t, os.WriteFile(path, []byte("PK cv"), 0o600))

	a := &testAnalyzer{res: &models.AnalyzeCVResponse{
		Skills: []string{"go", "postgresql"},
		JobMatches: []models.JobMatch{
			{ID: 3, Title: "Backend Engineer", Company: "DataCo", MatchScore: 100},
			{ID: 7, Title: "Platform Engineer", Company: "Initech", MatchScore: 50},
		},
	}}
	var out bytes.Buffer
	require.NoError(t, analyzeFile(context.Background(), a, path, &out))

	assert.Equal(t, "ada.docx", a.filename)
	assert.Equal(t, "PK cv", a.content)
	assert.Equal(t, "Skills: [go postgresql]\n"+
		"ID  TITLE              COMPANY  SCORE\n"+
		"3   Backend Engineer   DataCo   100%\n"+
		"7   Platform Engineer  Initech  50%\n", out.String())
}

func TestAnalyzeFile_NoSkills(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cv.pdf")
	require.NoError(t, os.WriteFile(path, []byte("%PDF"), 0o600))

	var out bytes.Buffer
	a := &testAnalyzer{res: &models.AnalyzeCVResponse{Skills: []string{}, JobMatches: []models.JobMatch{}}}
	require.NoError(t, analyzeFile(context.Background(), a, path, &out))
	assert.Equal(t, "No known skills found in the CV\n", out.String())
}

func TestAnalyzeFile_Errors(t *testing.T) {
	err := analyzeFile(context.Background(), &testAnalyzer{}, filepath.Join(t.TempDir(), "missing.pdf"), io.Discard)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "open cv")

	path := filepath.Join(t.TempDir(), "cv.pdf")
	require.NoError(t, os.WriteFile(path, []byte("%PDF"), 0o600))
	err = analyzeFile(context.Background(), &testAnalyzer{err: errors.New("backend down")}, path, io.Discard)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "analyze cv: backend down")
}
