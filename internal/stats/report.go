package stats

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/williampepple1/booksource-verifier/pkg/models"
)

// Summary is the report of one run
type Summary struct {
	Total              int     `json:"total"`
	Valid              int     `json:"valid"`
	Invalid            int     `json:"invalid"`
	SuccessRatePercent float64 `json:"successRatePercent"`
	DedupEnabled       bool    `json:"dedupEnabled"`
	DuplicateCount     int     `json:"duplicateCount"`
	FilteredCount      int     `json:"filteredCount"`
	ElapsedSeconds     float64 `json:"elapsedSeconds"`
}

// Summarize computes the statistics of a (post-processed) result set.
// An empty set has a success rate of 0.
func Summarize(rs models.ResultSet) Summary {
	s := Summary{
		Total:   rs.Total(),
		Valid:   len(rs.Good),
		Invalid: len(rs.Error),
	}
	if s.Total > 0 {
		s.SuccessRatePercent = float64(s.Valid) / float64(s.Total) * 100
	}
	return s
}

// WithElapsed returns a copy of s carrying the run duration
func (s Summary) WithElapsed(d time.Duration) Summary {
	s.ElapsedSeconds = d.Seconds()
	return s
}

// Write renders a human-readable report
func (s Summary) Write(w io.Writer) error {
	var sb strings.Builder
	sb.WriteString(strings.Repeat("-", 16) + "\n")
	sb.WriteString("Report\n")
	fmt.Fprintf(&sb, "Total sources:   %d\n", s.Total)
	fmt.Fprintf(&sb, "Valid sources:   %d\n", s.Valid)
	fmt.Fprintf(&sb, "Invalid sources: %d\n", s.Invalid)
	fmt.Fprintf(&sb, "Success rate:    %.2f%%\n", s.SuccessRatePercent)
	if s.DedupEnabled {
		fmt.Fprintf(&sb, "Duplicates:      %d\n", s.DuplicateCount)
	} else {
		sb.WriteString("Duplicates:      dedup not enabled\n")
	}
	if s.FilteredCount > 0 {
		fmt.Fprintf(&sb, "Filtered:        %d\n", s.FilteredCount)
	}
	fmt.Fprintf(&sb, "Elapsed:         %.2fs\n", s.ElapsedSeconds)

	_, err := io.WriteString(w, sb.String())
	return err
}
