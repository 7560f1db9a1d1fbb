// Package postprocess removes duplicate and unwanted book sources after the
// liveness checks have run.
package postprocess

import (
	"github.com/zeebo/xxh3"

	"github.com/williampepple1/booksource-verifier/pkg/models"
)

// Dedup keeps the first source for every distinct bookSourceUrl and returns
// the kept sources in their original order together with the number of
// sources dropped.
func Dedup(sources []models.BookSource) ([]models.BookSource, int) {
	seen := make(map[xxh3.Uint128]struct{}, len(sources))
	kept := make([]models.BookSource, 0, len(sources))
	for _, s := range sources {
		key := xxh3.HashString128(s.URL())
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		kept = append(kept, s)
	}
	return kept, len(sources) - len(kept)
}
