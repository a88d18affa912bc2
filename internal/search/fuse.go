// Package search provides the hybrid fuser (mergeResults, spec.md §4.7)
// plus small vector helpers shared by the embedding cache. Grounded on the
// donor's internal/search/hybrid.go for the overall "run two sources,
// merge, sort, truncate" shape, simplified to the deterministic contract
// spec.md actually specifies — no spreading activation, no context-match
// bonus (see DESIGN.md for what was dropped and why).
package search

import (
	"sort"
	"strings"

	"github.com/TheFrenchOak/total-reclaw/internal/models"
)

// MergeResults implements spec.md §4.7's deterministic fusion: walk the
// lexical list first keeping each unique id; walk the vector list next,
// dropping any entry whose id already appears or whose text equals any
// kept entry's text case-insensitively; stable-sort survivors by score
// descending; truncate to limit. On any id/text tie across backends, the
// lexical entry wins regardless of score.
func MergeResults(lexical, vector []models.MemoryEntry, limit int) []models.MemoryEntry {
	seenIDs := make(map[string]struct{}, len(lexical))
	seenTexts := make(map[string]struct{}, len(lexical))

	merged := make([]models.MemoryEntry, 0, len(lexical)+len(vector))
	for _, e := range lexical {
		if _, ok := seenIDs[e.ID]; ok {
			continue
		}
		seenIDs[e.ID] = struct{}{}
		seenTexts[strings.ToLower(e.Text)] = struct{}{}
		merged = append(merged, e)
	}
	for _, e := range vector {
		if _, ok := seenIDs[e.ID]; ok {
			continue
		}
		if _, ok := seenTexts[strings.ToLower(e.Text)]; ok {
			continue
		}
		merged = append(merged, e)
	}

	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].Score > merged[j].Score
	})

	if limit > 0 && len(merged) > limit {
		merged = merged[:limit]
	}
	return merged
}
