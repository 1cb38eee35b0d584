package service

import (
	"sort"
	"strings"

	"github.com/lithammer/fuzzysearch/fuzzy"

	"github.com/mmcdole/marquee/internal/domain"
)

// RankMovies orders movies by how closely their title matches query,
// keeping the API's order among equal scores
func RankMovies(movies []domain.Movie, query string) []domain.Movie {
	query = strings.ToLower(strings.TrimSpace(query))
	if len(movies) == 0 || query == "" {
		return movies
	}

	type rankedMovie struct {
		movie domain.Movie
		score int
	}

	ranked := make([]rankedMovie, 0, len(movies))
	for _, m := range movies {
		ranked = append(ranked, rankedMovie{movie: m, score: matchScore(m, query)})
	}

	// Sort by score (lower is better)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].score < ranked[j].score
	})

	results := make([]domain.Movie, len(ranked))
	for i, r := range ranked {
		results[i] = r.movie
	}
	return results
}

// matchScore scores a title against a lowercase query. Lower is better.
func matchScore(m domain.Movie, query string) int {
	title := strings.ToLower(m.Title)

	switch {
	case title == query:
		return 0
	case strings.HasPrefix(title, query):
		return 10
	case strings.Contains(title, query):
		return 50
	case fuzzy.MatchFold(query, title):
		return 75
	}

	// The original title may match when the localized one does not
	if original := strings.ToLower(m.OriginalTitle); original != "" && strings.Contains(original, query) {
		return 60
	}

	return 100 + fuzzy.LevenshteinDistance(query, title)
}
