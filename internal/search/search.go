// Package search provides fuzzy matching over playlist names.
package search

import (
	"cmp"
	"slices"
	"strings"

	"github.com/lithammer/fuzzysearch/fuzzy"
	sfuzzy "github.com/sahilm/fuzzy"
)

// RankNames returns the names that fuzzily contain query, best match first.
// Matching is case-insensitive; ties are broken by name. An empty query
// matches every name.
func RankNames(query string, names []string) []string {
	query = strings.TrimSpace(query)
	if query == "" {
		out := slices.Clone(names)
		slices.Sort(out)
		return out
	}

	ranks := fuzzy.RankFindFold(query, names)
	slices.SortFunc(ranks, func(a, b fuzzy.Rank) int {
		if c := cmp.Compare(a.Distance, b.Distance); c != 0 {
			return c
		}
		return strings.Compare(a.Target, b.Target)
	})

	out := make([]string, len(ranks))
	for i, r := range ranks {
		out[i] = r.Target
	}
	return out
}

// Highlight returns the rune positions in name that matched query, for
// rendering. Matching folds case rune by rune on the original name, so the
// positions stay valid for names whose lowercase form has a different
// length. It returns nil when name does not match.
func Highlight(query, name string) []int {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil
	}
	matches := sfuzzy.Find(query, []string{name})
	if len(matches) == 0 {
		return nil
	}
	return runeIndexes(name, matches[0].MatchedIndexes)
}

// runeIndexes converts byte offsets reported by the matcher to rune offsets.
func runeIndexes(s string, byteIdx []int) []int {
	if len(byteIdx) == 0 {
		return nil
	}
	pos := make(map[int]int, len(s))
	r := 0
	for b := range s {
		pos[b] = r
		r++
	}
	out := make([]int, 0, len(byteIdx))
	for _, b := range byteIdx {
		if i, ok := pos[b]; ok {
			out = append(out, i)
		}
	}
	return out
}
