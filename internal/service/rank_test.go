package service

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mmcdole/marquee/internal/domain"
)

func titles(movies []domain.Movie) []string {
	out := make([]string, len(movies))
	for i, m := range movies {
		out[i] = m.Title
	}
	return out
}

func TestRankMovies(t *testing.T) {
	movies := []domain.Movie{
		{ID: 1, Title: "The Dark Knight"},
		{ID: 2, Title: "Batman Begins"},
		{ID: 3, Title: "Batman"},
		{ID: 4, Title: "Lego Batman Movie"},
		{ID: 5, Title: "Chiroptera", OriginalTitle: "Batman Returns"},
	}

	ranked := RankMovies(movies, "Batman")
	assert.Equal(t, []string{
		"Batman",
		"Batman Begins",
		"Lego Batman Movie",
		"Chiroptera",
		"The Dark Knight",
	}, titles(ranked))
}

func TestRankMovies_EmptyQueryKeepsOrder(t *testing.T) {
	movies := []domain.Movie{{Title: "B"}, {Title: "A"}}
	assert.Equal(t, movies, RankMovies(movies, " "))
}
