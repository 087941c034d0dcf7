// Package matching scores job postings against a candidate's skills.
package matching

import (
	"crypto/sha256"
	"fmt"
	"math"
	"regexp"
	"sort"
	"strings"

	"github.com/kiranshivaraju/jobpilot/pkg/models"
)

// Normalization regexes compiled once at package init.
var (
	reSeparators = regexp.MustCompile(`[\s_/]+`)
	reTrailingJS = regexp.MustCompile(`[.\s]?js$`)
	rePunct      = regexp.MustCompile(`[^a-z0-9+#.\- ]`)
)

// aliases maps common spellings onto one canonical skill name.
var aliases = map[string]string{
	"js":                  "javascript",
	"ecmascript":          "javascript",
	"ts":                  "typescript",
	"golang":              "go",
	"postgres":            "postgresql",
	"psql":                "postgresql",
	"k8s":                 "kubernetes",
	"py":                  "python",
	"react":               "react",
	"reactjs":             "react",
	"node":                "node",
	"nodejs":              "node",
	"vue":                 "vue",
	"vuejs":               "vue",
	"amazon web services": "aws",
	"gcp":                 "google cloud",
	"ml":                  "machine learning",
}

// NormalizeSkill folds case, separators and punctuation and resolves aliases,
// so "React.js", "reactjs" and "React" compare equal.
func NormalizeSkill(skill string) string {
	s := strings.ToLower(skill)
	s = reSeparators.ReplaceAllString(s, " ")
	s = rePunct.ReplaceAllString(s, "")
	s = strings.Trim(strings.Join(strings.Fields(s), " "), ".-")
	if canonical, ok := aliases[s]; ok {
		return canonical
	}
	if stripped := reTrailingJS.ReplaceAllString(s, ""); stripped != s && stripped != "" {
		if canonical, ok := aliases[stripped+"js"]; ok {
			return canonical
		}
		return stripped
	}
	return s
}

// Annotate returns a copy of job with MatchedSkills and MatchPercentage set.
// MatchedSkills keeps the job's own spelling and order. A job without listed
// skills is returned without a percentage.
func Annotate(job models.JobSearchResult, candidateSkills []string) models.JobSearchResult {
	job.MatchedSkills = nil
	job.MatchPercentage = nil
	if len(job.Skills) == 0 || len(candidateSkills) == 0 {
		return job
	}

	have := make(map[string]bool, len(candidateSkills))
	for _, s := range candidateSkills {
		if n := NormalizeSkill(s); n != "" {
			have[n] = true
		}
	}

	matched := []string{}
	for _, s := range job.Skills {
		if have[NormalizeSkill(s)] {
			matched = append(matched, s)
		}
	}

	pct := int(math.Round(100 * float64(len(matched)) / float64(len(job.Skills))))
	job.MatchedSkills = matched
	job.MatchPercentage = &pct
	return job
}

// Rank annotates every job and sorts by match percentage descending, then id
// ascending. Jobs without a percentage sort last. The input is not modified.
func Rank(jobs []models.JobSearchResult, candidateSkills []string) []models.JobSearchResult {
	ranked := make([]models.JobSearchResult, len(jobs))
	for i, j := range jobs {
		ranked[i] = Annotate(j, candidateSkills)
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		pi, pj := percentage(ranked[i]), percentage(ranked[j])
		if pi != pj {
			return pi > pj
		}
		return ranked[i].ID < ranked[j].ID
	})
	return ranked
}

func percentage(j models.JobSearchResult) int {
	if j.MatchPercentage == nil {
		return -1
	}
	return *j.MatchPercentage
}

// SearchKey computes a stable fingerprint for a search, independent of skill
// order, case and aliasing.
func SearchKey(title string, skills []string, limit int) string {
	normalized := make([]string, 0, len(skills))
	for _, s := range skills {
		if n := NormalizeSkill(s); n != "" {
			normalized = append(normalized, n)
		}
	}
	sort.Strings(normalized)

	t := reSeparators.ReplaceAllString(strings.ToLower(strings.TrimSpace(title)), " ")
	hash := sha256.Sum256([]byte(fmt.Sprintf("%s|%s|%d", t, strings.Join(normalized, ","), limit)))
	return fmt.Sprintf("%x", hash)
}
