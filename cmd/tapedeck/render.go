package main

import (
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/mmcdole/tapedeck/internal/domain"
	"github.com/mmcdole/tapedeck/internal/hierarchy"
	"github.com/mmcdole/tapedeck/internal/search"
)

// Color palette
var (
	Amber     = lipgloss.Color("#E5A00D")
	DimGray   = lipgloss.Color("#6B7280")
	LightGray = lipgloss.Color("#9CA3AF")
	Blue      = lipgloss.Color("#3B82F6")
)

type styles struct {
	Directory lipgloss.Style
	Playlist  lipgloss.Style
	Branch    lipgloss.Style
	Count     lipgloss.Style
	Match     lipgloss.Style
}

// newStyles returns the output styles; without color every style renders
// text unchanged.
func newStyles(color bool) styles {
	if !color {
		plain := lipgloss.NewStyle()
		return styles{plain, plain, plain, plain, plain}
	}
	return styles{
		Directory: lipgloss.NewStyle().Foreground(Blue).Bold(true),
		Playlist:  lipgloss.NewStyle().Foreground(LightGray),
		Branch:    lipgloss.NewStyle().Foreground(DimGray),
		Count:     lipgloss.NewStyle().Foreground(DimGray),
		Match:     lipgloss.NewStyle().Foreground(Amber).Underline(true),
	}
}

func (st styles) name(p *domain.Playlist) string {
	if p.IsDirectory() {
		return st.Directory.Render(p.Name() + "/")
	}
	return st.Playlist.Render(p.Name())
}

func (st styles) count(n int) string {
	unit := "items"
	if n == 1 {
		unit = "item"
	}
	return st.Count.Render(fmt.Sprintf("(%d %s)", n, unit))
}

// renderTree writes every root playlist and its descendants. A playlist with
// several parents is shown under each of them. Lines are cut at width when
// width is positive.
func renderTree(w io.Writer, h *hierarchy.Hierarchy, st styles, width int) {
	line := lipgloss.NewStyle()
	if width > 0 {
		line = line.MaxWidth(width)
	}
	emit := func(s string) { fmt.Fprintln(w, line.Render(s)) }

	var walk func(p *domain.Playlist, prefix string)
	walk = func(p *domain.Playlist, prefix string) {
		children := childrenOf(h, p)
		for i, c := range children {
			branch, next := "├── ", "│   "
			if i == len(children)-1 {
				branch, next = "└── ", "    "
			}
			items, _ := h.AudioItemsRecursive(c.ID())
			emit(st.Branch.Render(prefix+branch) + st.name(c) + " " + st.count(len(items)))
			walk(c, prefix+next)
		}
	}

	roots := h.Roots()
	sortByName(roots)
	for _, p := range roots {
		items, _ := h.AudioItemsRecursive(p.ID())
		emit(st.name(p) + " " + st.count(len(items)))
		walk(p, "")
	}
	if len(roots) == 0 {
		emit(st.Count.Render("no playlists"))
	}
}

// renderList writes the playlists matching query, best match first, with
// the matched characters highlighted.
func renderList(w io.Writer, h *hierarchy.Hierarchy, query string, st styles) {
	var playlists []*domain.Playlist
	if strings.TrimSpace(query) == "" {
		playlists = h.Playlists()
	} else {
		playlists = h.SearchByName(query)
	}
	for _, p := range playlists {
		name := highlight(p.Name(), search.Highlight(query, p.Name()), st)
		if p.IsDirectory() {
			name += st.Directory.Render("/")
		}
		fmt.Fprintf(w, "%4d  %s %s\n", p.ID(), name, st.count(p.NumAudioItems()))
	}
}

func highlight(name string, matched []int, st styles) string {
	if len(matched) == 0 {
		return st.Playlist.Render(name)
	}
	var b strings.Builder
	for i, r := range []rune(name) {
		if slices.Contains(matched, i) {
			b.WriteString(st.Match.Render(string(r)))
		} else {
			b.WriteString(st.Playlist.Render(string(r)))
		}
	}
	return b.String()
}

func childrenOf(h *hierarchy.Hierarchy, p *domain.Playlist) []*domain.Playlist {
	var children []*domain.Playlist
	for _, id := range p.ChildPlaylists() {
		if c, ok := h.FindByID(id); ok {
			children = append(children, c)
		}
	}
	sortByName(children)
	return children
}

func sortByName(ps []*domain.Playlist) {
	slices.SortStableFunc(ps, func(a, b *domain.Playlist) int {
		return domain.ComparePlaylists(a, b, nil)
	})
}
