package cache

import "fmt"

func AutomationStatusKey() string {
	return "automation:status"
}

// LatestCVKey holds the path of the most recently uploaded resume.
func LatestCVKey() string {
	return "cv:latest"
}

func RateLimitKey(keyPrefix string) string {
	return fmt.Sprintf("ratelimit:%s", keyPrefix)
}

func SearchResultKey(filterHash string) string {
	return fmt.Sprintf("jobs:search:%s", filterHash)
}
