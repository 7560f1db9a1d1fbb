package postprocess

import (
	"log/slog"
	"slices"
	"strings"

	"github.com/williampepple1/booksource-verifier/pkg/models"
)

// Filter removes sources matching operator supplied keywords
type Filter struct {
	keywords []string
	exact    bool
	logger   *slog.Logger
}

// NewFilter creates a keyword filter. Keywords are trimmed and lowercased,
// empty ones are dropped. With exact set, only a case-insensitive equal
// bookSourceName matches; otherwise any keyword contained in the name, URL,
// group or comment does.
func NewFilter(keywords []string, exact bool, logger *slog.Logger) *Filter {
	f := &Filter{exact: exact, logger: logger}
	for _, kw := range keywords {
		kw = strings.ToLower(strings.TrimSpace(kw))
		if kw != "" && !slices.Contains(f.keywords, kw) {
			f.keywords = append(f.keywords, kw)
		}
	}
	return f
}

// Keywords returns the normalized keyword set
func (f *Filter) Keywords() []string {
	return slices.Clone(f.keywords)
}

// ShouldFilter reports whether source matches any keyword
func (f *Filter) ShouldFilter(source models.BookSource) bool {
	if f.exact {
		return slices.Contains(f.keywords, strings.ToLower(source.Name()))
	}

	fields := [...]string{
		strings.ToLower(source.Name()),
		strings.ToLower(source.URL()),
		strings.ToLower(source.Group()),
		strings.ToLower(source.Comment()),
	}
	for _, kw := range f.keywords {
		for _, field := range fields {
			if strings.Contains(field, kw) {
				return true
			}
		}
	}
	return false
}

// Apply returns the sources that do not match, in order, and how many were
// removed.
func (f *Filter) Apply(sources []models.BookSource) ([]models.BookSource, int) {
	kept := make([]models.BookSource, 0, len(sources))
	removed := 0
	for _, s := range sources {
		if f.ShouldFilter(s) {
			removed++
			f.logger.Debug("Filtered book source by keyword", "name", s.Name(), "url", s.URL())
			continue
		}
		kept = append(kept, s)
	}
	return kept, removed
}
