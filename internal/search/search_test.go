package search

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRankNames(t *testing.T) {
	names := []string{"Road Trip", "Rainy Day", "Workout", "road"}

	tests := []struct {
		name  string
		query string
		want  []string
	}{
		{"empty query lists everything sorted", "", []string{"Rainy Day", "Road Trip", "Workout", "road"}},
		{"closest first", "road", []string{"road", "Road Trip"}},
		{"case folded", "WORK", []string{"Workout"}},
		{"no match", "zzz", []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, RankNames(tt.query, names))
		})
	}
}

func TestHighlight(t *testing.T) {
	assert.Equal(t, []int{0, 1, 2, 3}, Highlight("road", "Road Trip"))
	assert.Equal(t, []int{0, 1}, Highlight("ca", "Café"))
	assert.Nil(t, Highlight("xyz", "Road Trip"))
	assert.Nil(t, Highlight("", "Road Trip"))
	assert.Equal(t, []int{0, 1}, Highlight("RO", "road"))
}

func TestHighlight_CaseFoldingKeepsPositions(t *testing.T) {
	// Lowercasing "İ" yields two runes, which would shift every later index
	name := "İstanbul"
	got := Highlight("stan", name)
	assert.Equal(t, []int{1, 2, 3, 4}, got)

	runes := []rune(name)
	var matched string
	for _, i := range got {
		matched += string(runes[i])
	}
	assert.Equal(t, "stan", matched)
}

func TestRuneIndexes(t *testing.T) {
	// "é" is two bytes, so the byte offset of "x" is 3 but its rune offset is 2
	assert.Equal(t, []int{0, 2}, runeIndexes("aéx", []int{0, 3}))
	assert.Nil(t, runeIndexes("abc", nil))
}
