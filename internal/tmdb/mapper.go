package tmdb

import (
	"time"

	"github.com/mmcdole/marquee/internal/domain"
)

const releaseDateLayout = "2006-01-02"

// MapSearchResult converts a search response to a domain search result
func MapSearchResult(resp SearchResponse) *domain.SearchResult {
	return &domain.SearchResult{
		Movies:       MapMovies(resp.Results),
		CurrentPage:  resp.Page,
		TotalPages:   resp.TotalPages,
		TotalResults: resp.TotalResults,
	}
}

// MapMovies converts search result entries to domain movies
func MapMovies(items []Movie) []domain.Movie {
	movies := make([]domain.Movie, 0, len(items))
	for _, item := range items {
		movies = append(movies, MapMovie(item))
	}
	return movies
}

// MapMovie converts a single search result entry to a domain movie
func MapMovie(m Movie) domain.Movie {
	return domain.Movie{
		ID:               m.ID,
		Title:            m.Title,
		OriginalTitle:    m.OriginalTitle,
		Overview:         m.Overview,
		ReleaseDate:      parseReleaseDate(m.ReleaseDate),
		PosterPath:       nonEmpty(m.PosterPath),
		BackdropPath:     nonEmpty(m.BackdropPath),
		VoteAverage:      m.VoteAverage,
		VoteCount:        m.VoteCount,
		Popularity:       m.Popularity,
		GenreIDs:         m.GenreIDs,
		IsAdult:          m.Adult,
		HasVideo:         m.Video,
		OriginalLanguage: m.OriginalLanguage,
	}
}

// MapMovieDetail converts a detail response to a domain movie detail
func MapMovieDetail(d MovieDetail) *domain.MovieDetail {
	detail := &domain.MovieDetail{
		ID:            d.ID,
		Title:         d.Title,
		OriginalTitle: d.OriginalTitle,
		Overview:      d.Overview,
		ReleaseDate:   parseReleaseDate(d.ReleaseDate),
		PosterPath:    nonEmpty(d.PosterPath),
		BackdropPath:  nonEmpty(d.BackdropPath),
		VoteAverage:   d.VoteAverage,
		VoteCount:     d.VoteCount,
		Popularity:    d.Popularity,
		Runtime:       d.Runtime,
		Tagline:       nonEmpty(d.Tagline),
		Status:        d.Status,
		Homepage:      nonEmpty(d.Homepage),
		IMDbID:        nonEmpty(d.IMDbID),
		Budget:        d.Budget,
		Revenue:       d.Revenue,
	}

	for _, g := range d.Genres {
		detail.Genres = append(detail.Genres, domain.Genre{ID: g.ID, Name: g.Name})
	}
	for _, c := range d.ProductionCompanies {
		detail.ProductionCompanies = append(detail.ProductionCompanies, domain.ProductionCompany{
			ID:            c.ID,
			LogoPath:      nonEmpty(c.LogoPath),
			Name:          c.Name,
			OriginCountry: c.OriginCountry,
		})
	}
	for _, c := range d.ProductionCountries {
		detail.ProductionCountries = append(detail.ProductionCountries, domain.ProductionCountry{
			ISO31661: c.ISO31661,
			Name:     c.Name,
		})
	}
	for _, l := range d.SpokenLanguages {
		detail.SpokenLanguages = append(detail.SpokenLanguages, domain.SpokenLanguage{
			EnglishName: l.EnglishName,
			ISO6391:     l.ISO6391,
			Name:        l.Name,
		})
	}

	return detail
}

// MapAccountStates converts an account states response to domain account states
func MapAccountStates(s AccountStates) *domain.MovieAccountStates {
	return &domain.MovieAccountStates{
		MovieID:   s.ID,
		Favorite:  s.Favorite,
		Rated:     bool(s.Rated),
		Watchlist: s.Watchlist,
	}
}

// parseReleaseDate parses a yyyy-MM-dd date; empty or malformed dates map to nil
func parseReleaseDate(s string) *time.Time {
	if s == "" {
		return nil
	}
	t, err := time.Parse(releaseDateLayout, s)
	if err != nil {
		return nil
	}
	return &t
}

func nonEmpty(s *string) *string {
	if s == nil || *s == "" {
		return nil
	}
	return s
}
