package matching

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/kiranshivaraju/jobpilot/pkg/models"
)

var (
	reToken    = regexp.MustCompile(`[a-z0-9+#]+(?:[.\-][a-z0-9+#]+)*`)
	reSentence = regexp.MustCompile(`[.!?]+\s+`)
)

const maxResponsibilities = 3

// ExtractSkills returns the vocabulary skills mentioned in text, normalized,
// in vocabulary order and without duplicates. Multi-word skills match when
// their words appear consecutively.
func ExtractSkills(text string, vocabulary []string) []string {
	stream := " " + strings.Join(normalizedTokens(text), " ") + " "

	found := []string{}
	seen := make(map[string]bool, len(vocabulary))
	for _, v := range vocabulary {
		canonical := NormalizeSkill(v)
		if canonical == "" || seen[canonical] {
			continue
		}
		phrase := strings.Join(normalizedTokens(v), " ")
		if strings.Contains(stream, " "+canonical+" ") ||
			(phrase != "" && strings.Contains(stream, " "+phrase+" ")) {
			seen[canonical] = true
			found = append(found, canonical)
		}
	}
	return found
}

func normalizedTokens(s string) []string {
	raw := reToken.FindAllString(strings.ToLower(s), -1)
	out := make([]string, 0, len(raw))
	for _, tok := range raw {
		if n := NormalizeSkill(tok); n != "" {
			out = append(out, n)
		}
	}
	return out
}

// Vocabulary collects every distinct skill listed by jobs, in first-seen order.
func Vocabulary(jobs []models.JobSearchResult) []string {
	var vocab []string
	seen := make(map[string]bool)
	for _, j := range jobs {
		for _, s := range j.Skills {
			n := NormalizeSkill(s)
			if n == "" || seen[n] {
				continue
			}
			seen[n] = true
			vocab = append(vocab, s)
		}
	}
	return vocab
}

// Analyze ranks jobs against skills found in a CV and explains each match.
// Jobs sharing no skill with the CV are left out. limit <= 0 means no limit.
func Analyze(jobs []models.JobSearchResult, cvSkills []string, limit int) []models.JobMatch {
	matches := []models.JobMatch{}
	for _, job := range Rank(jobs, cvSkills) {
		if len(job.MatchedSkills) == 0 {
			continue
		}
		matches = append(matches, explain(job))
		if limit > 0 && len(matches) == limit {
			break
		}
	}
	return matches
}

func explain(job models.JobSearchResult) models.JobMatch {
	matched := make(map[string]bool, len(job.MatchedSkills))
	for _, s := range job.MatchedSkills {
		matched[s] = true
	}
	var missing []string
	for _, s := range job.Skills {
		if !matched[s] {
			missing = append(missing, s)
		}
	}

	whyExcel := "You already cover every skill this role lists."
	if len(missing) > 0 {
		whyExcel = fmt.Sprintf("Adding %s would round out your profile for this role.", joinList(missing))
	}

	return models.JobMatch{
		ID:         job.ID,
		Title:      job.Title,
		Company:    job.Company,
		MatchScore: percentage(job),
		WhyMatch: fmt.Sprintf("Your experience with %s covers %d of the %d skills this role lists.",
			joinList(job.MatchedSkills), len(job.MatchedSkills), len(job.Skills)),
		Responsibilities: responsibilities(job.Description),
		WhyExcel:         whyExcel,
		MatchedSkills:    job.MatchedSkills,
	}
}

// responsibilities takes the leading sentences of a posting's description.
func responsibilities(description string) []string {
	out := []string{}
	for _, s := range reSentence.Split(strings.TrimSpace(description), -1) {
		s = strings.TrimRight(strings.TrimSpace(s), ".!?")
		if s == "" {
			continue
		}
		out = append(out, s)
		if len(out) == maxResponsibilities {
			break
		}
	}
	return out
}

func joinList(items []string) string {
	switch len(items) {
	case 0:
		return ""
	case 1:
		return items[0]
	default:
		return strings.Join(items[:len(items)-1], ", ") + " and " + items[len(items)-1]
	}
}
