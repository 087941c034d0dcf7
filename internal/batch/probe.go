package batch

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/kiranshivaraju/jobpilot/pkg/models"
)

// applyControlSelectors match well-known apply controls before falling back
// to a text scan of buttons and links.
var applyControlSelectors = []string{
	".jobs-apply-button",
	"[data-control-name='jobdetails_topcard_inapply']",
	"#apply-button",
	"form[action*='apply'] [type='submit']",
}

// ProbeApplier loads the job posting and succeeds when an apply control is present.
type ProbeApplier struct {
	client *http.Client
}

func NewProbeApplier(timeout time.Duration) *ProbeApplier {
	return &ProbeApplier{client: &http.Client{Timeout: timeout}}
}

func (a *ProbeApplier) Attempt(ctx context.Context, job models.JobSearchResult) (Outcome, error) {
	if job.Link == "" {
		return Outcome{Message: "Job posting has no link"}, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, job.Link, nil)
	if err != nil {
		return Outcome{}, fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Accept", "text/html")

	resp, err := a.client.Do(req)
	if err != nil {
		return Outcome{}, fmt.Errorf("fetching job posting: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Outcome{Message: fmt.Sprintf("Job posting returned status %d", resp.StatusCode)}, nil
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return Outcome{}, fmt.Errorf("parsing job posting: %w", err)
	}

	label, ok := findApplyControl(doc)
	if !ok {
		return Outcome{Message: "No Apply button found"}, nil
	}
	return Outcome{Success: true, Message: fmt.Sprintf("Found %q control", label)}, nil
}

// findApplyControl returns the label of the first apply control in doc.
func findApplyControl(doc *goquery.Document) (string, bool) {
	for _, sel := range applyControlSelectors {
		if s := doc.Find(sel).First(); s.Length() > 0 {
			return controlLabel(s), true
		}
	}

	var label string
	doc.Find("button, a, input[type='submit']").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		text := controlLabel(s)
		if strings.Contains(strings.ToLower(text), "apply") {
			label = text
			return false
		}
		return true
	})
	return label, label != ""
}

func controlLabel(s *goquery.Selection) string {
	if v, ok := s.Attr("value"); ok && strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v)
	}
	if v, ok := s.Attr("aria-label"); ok && strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v)
	}
	return strings.Join(strings.Fields(s.Text()), " ")
}

var _ Applier = (*ProbeApplier)(nil)
