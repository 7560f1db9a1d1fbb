package models

import (
	"time"
)

// CheckResult represents the outcome of checking one book source
type CheckResult struct {
	Source     BookSource    `json:"source"`
	Reachable  bool          `json:"reachable"`
	StatusCode int           `json:"status_code,omitempty"`
	Title      string        `json:"title,omitempty"`
	Err        string        `json:"error,omitempty"`
	Duration   time.Duration `json:"duration"`
}

// ResultSet partitions checked sources into reachable and unreachable ones.
// Both slices are in completion order.
type ResultSet struct {
	Good  []BookSource `json:"good"`
	Error []BookSource `json:"error"`
}

// Total returns the number of sources in both partitions
func (r ResultSet) Total() int {
	return len(r.Good) + len(r.Error)
}
