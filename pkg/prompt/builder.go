// Package prompt renders the text sent to the job assistant model.
package prompt

import (
	"fmt"
	"strings"

	"github.com/kiranshivaraju/jobpilot/pkg/models"
)

const jobTemplate = `
You are a helpful AI assistant for a job search platform. Below is the available job data:

%s

User question: %s

Please answer the question based on the job data provided. If the question is about specific jobs, provide relevant details from the data.
`

// Builder constructs assistant prompts.
// All methods are pure functions with no side effects.
// Zero value is ready to use.
type Builder struct{}

// BuildJobPrompt embeds one summary line per job and the user's question into
// the assistant template. Jobs keep their given order.
func (b Builder) BuildJobPrompt(question string, jobs []models.JobSearchResult) string {
	lines := make([]string, len(jobs))
	for i, j := range jobs {
		lines[i] = b.jobLine(j)
	}
	return fmt.Sprintf(jobTemplate, strings.Join(lines, "\n"), strings.TrimSpace(question))
}

func (b Builder) jobLine(j models.JobSearchResult) string {
	return fmt.Sprintf("Job ID: %d, Title: %s, Company: %s, Location: %s, Salary: %s",
		j.ID, j.Title, j.Company, j.Location, j.Salary)
}
