package domain

import (
	"encoding/json"
	"strings"
)

// ParseJobIDs decodes the job_ids form field, a JSON array of strings.
// The decoded order and values are kept exactly as submitted.
func ParseJobIDs(raw string) ([]string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, &ValidationError{Field: "job_ids", Message: "is required"}
	}

	var ids []string
	if err := json.Unmarshal([]byte(raw), &ids); err != nil {
		return nil, &ValidationError{Field: "job_ids", Message: "must be a JSON array of strings"}
	}
	if !HasIdentifier(ids) {
		return nil, &ValidationError{Field: "job_ids", Message: "must contain at least one job id"}
	}
	return ids, nil
}

// HasIdentifier reports whether ids holds at least one non-blank entry.
func HasIdentifier(ids []string) bool {
	for _, id := range ids {
		if strings.TrimSpace(id) != "" {
			return true
		}
	}
	return false
}
