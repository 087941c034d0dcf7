// Package models contains shared data models used across the jobpilot codebase.
package models

// JobSearchResult is a single job listing as returned by a search.
// Values are treated as immutable once fetched.
type JobSearchResult struct {
	ID              int64    `json:"id"`
	Title           string   `json:"title"`
	Company         string   `json:"company"`
	Location        string   `json:"location"`
	Salary          string   `json:"salary"`
	Description     string   `json:"description"`
	Posted          string   `json:"posted"`
	Remote          bool     `json:"remote"`
	Link            string   `json:"link"`
	EasyApply       bool     `json:"easyApply,omitempty"`
	MatchPercentage *int     `json:"matchPercentage,omitempty"`
	CompanyLogo     string   `json:"companyLogo,omitempty"`
	JobType         string   `json:"jobType,omitempty"`
	Skills          []string `json:"skills,omitempty"`
	MatchedSkills   []string `json:"matchedSkills,omitempty"`
}

// SearchJobsRequest is the body of POST /search-jobs.
type SearchJobsRequest struct {
	JobTitle string   `json:"jobTitle" validate:"required,max=200"`
	Skills   []string `json:"skills,omitempty" validate:"max=100,dive,max=64"`
	Limit    int      `json:"limit,omitempty" validate:"gte=0,lte=100"`
}

// SearchJobsResponse wraps search results the way the backend returns them.
type SearchJobsResponse struct {
	SearchResults []JobSearchResult `json:"search_results"`
}

// JobMatch is a catalog job scored against the skills found in an uploaded CV.
type JobMatch struct {
	ID               int64    `json:"id"`
	Title            string   `json:"title"`
	Company          string   `json:"company"`
	MatchScore       int      `json:"matchScore"`
	WhyMatch         string   `json:"whyMatch"`
	Responsibilities []string `json:"responsibilities"`
	WhyExcel         string   `json:"whyExcel"`
	MatchedSkills    []string `json:"matchedSkills"`
}

// AnalyzeCVResponse is the body returned by POST /analyze-cv.
type AnalyzeCVResponse struct {
	Skills     []string   `json:"skills"`
	JobMatches []JobMatch `json:"job_matches"`
}
