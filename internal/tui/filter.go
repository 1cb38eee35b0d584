package tui

import (
	"strings"

	"github.com/sahilm/fuzzy"

	"github.com/mmcdole/marquee/internal/domain"
)

// movieTitles implements fuzzy.Source over lowercase titles
type movieTitles []string

func (t movieTitles) String(i int) string { return t[i] }
func (t movieTitles) Len() int            { return len(t) }

// filterMovies returns the indexes of movies whose title fuzzy-matches
// query, best match first. An empty query returns nil (no filter).
func filterMovies(movies []domain.Movie, query string) []int {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return nil
	}

	titles := make(movieTitles, len(movies))
	for i, m := range movies {
		titles[i] = strings.ToLower(m.Title)
	}

	matches := fuzzy.FindFrom(query, titles)
	idx := make([]int, len(matches))
	for i, match := range matches {
		idx[i] = match.Index
	}
	return idx
}
