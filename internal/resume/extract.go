// Package resume extracts plain text from uploaded CVs.
package resume

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
)

var (
	ErrUnsupportedFormat    = errors.New("unsupported resume format")
	ErrUnreadable           = errors.New("resume could not be read")
	ErrExtractorUnavailable = errors.New("pdf text extractor unavailable")
)

const docxBody = "word/document.xml"

// Extractor turns .pdf and .docx uploads into plain text. PDFs go through
// poppler's pdftotext; DOCX bodies are read directly from the archive.
type Extractor struct {
	// PDFToText is the pdftotext binary. Empty means "pdftotext" on PATH.
	PDFToText string
}

func NewExtractor(pdfToText string) *Extractor {
	return &Extractor{PDFToText: pdfToText}
}

// Extract reads r fully and returns its text. ext is the lowercase file
// extension including the dot.
func (e *Extractor) Extract(ctx context.Context, ext string, r io.Reader) (string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("reading upload: %w", err)
	}

	switch ext {
	case ".docx":
		return docxText(data)
	case ".pdf":
		return e.pdfText(ctx, data)
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}
}

// docxText walks word/document.xml, keeping w:t runs and breaking lines at
// paragraph ends.
func docxText(data []byte) (string, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnreadable, err)
	}

	var body *zip.File
	for _, f := range zr.File {
		if f.Name == docxBody {
			body = f
			break
		}
	}
	if body == nil {
		return "", fmt.Errorf("%w: missing %s", ErrUnreadable, docxBody)
	}

	rc, err := body.Open()
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnreadable, err)
	}
	defer rc.Close()

	var sb strings.Builder
	inText := false
	dec := xml.NewDecoder(rc)
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", fmt.Errorf("%w: %v", ErrUnreadable, err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "t":
				inText = true
			case "tab":
				sb.WriteByte('\t')
			case "br":
				sb.WriteByte('\n')
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inText = false
			case "p":
				sb.WriteByte('\n')
			}
		case xml.CharData:
			if inText {
				sb.Write(t)
			}
		}
	}
	return strings.TrimSpace(sb.String()), nil
}

func (e *Extractor) pdfText(ctx context.Context, data []byte) (string, error) {
	bin := e.PDFToText
	if bin == "" {
		bin = "pdftotext"
	}
	path, err := exec.LookPath(bin)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrExtractorUnavailable, err)
	}

	tmp, err := os.CreateTemp("", "cv-*.pdf")
	if err != nil {
		return "", fmt.Errorf("creating temp file: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return "", fmt.Errorf("writing temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("closing temp file: %w", err)
	}

	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, path, "-q", "-enc", "UTF-8", tmp.Name(), "-")
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", fmt.Errorf("%w: pdftotext: %v: %s", ErrUnreadable, err, strings.TrimSpace(stderr.String()))
	}
	return strings.TrimSpace(string(out)), nil
}
