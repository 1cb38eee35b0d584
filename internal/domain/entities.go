package domain

import (
	"fmt"
	"strings"
	"time"
)

const (
	posterBaseURL   = "https://image.tmdb.org/t/p/w500"
	backdropBaseURL = "https://image.tmdb.org/t/p/w1280"
)

// Movie is a search-result level movie summary
type Movie struct {
	ID               int        // TMDB movie identifier
	Title            string     // Display title
	OriginalTitle    string     // Title in the original language
	Overview         string     // Plot synopsis
	ReleaseDate      *time.Time // nil when unknown
	PosterPath       *string    // Relative poster image path
	BackdropPath     *string    // Relative backdrop image path
	VoteAverage      float64    // 0-10 community rating
	VoteCount        int
	Popularity       float64
	GenreIDs         []int
	IsAdult          bool
	HasVideo         bool
	OriginalLanguage string // ISO 639-1
}

// ReleaseYear returns the four digit release year, or "" if unknown
func (m Movie) ReleaseYear() string {
	if m.ReleaseDate == nil {
		return ""
	}
	return fmt.Sprintf("%d", m.ReleaseDate.Year())
}

// FormattedVoteAverage returns the rating with one decimal place
func (m Movie) FormattedVoteAverage() string {
	return fmt.Sprintf("%.1f", m.VoteAverage)
}

// Genre is a TMDB genre
type Genre struct {
	ID   int
	Name string
}

// ProductionCompany is a studio credited on a movie
type ProductionCompany struct {
	ID            int
	LogoPath      *string
	Name          string
	OriginCountry string
}

// ProductionCountry is a country credited on a movie
type ProductionCountry struct {
	ISO31661 string
	Name     string
}

// SpokenLanguage is a language spoken in a movie
type SpokenLanguage struct {
	EnglishName string
	ISO6391     string
	Name        string
}

// MovieDetail holds the extended metadata for a single movie.
// It is cached and refreshed independently of Movie.
type MovieDetail struct {
	ID            int
	Title         string
	OriginalTitle string
	Overview      string
	ReleaseDate   *time.Time
	PosterPath    *string
	BackdropPath  *string
	VoteAverage   float64
	VoteCount     int
	Popularity    float64

	// Detail-only fields
	Runtime             *int // Minutes
	Tagline             *string
	Status              string // "Released", "Post Production", ...
	Genres              []Genre
	ProductionCompanies []ProductionCompany
	ProductionCountries []ProductionCountry
	SpokenLanguages     []SpokenLanguage
	Homepage            *string
	IMDbID              *string
	Budget              int64 // USD
	Revenue             int64 // USD
}

// PosterURL returns the full poster image URL, or "" if the movie has no poster
func (d MovieDetail) PosterURL() string {
	return imageURL(posterBaseURL, d.PosterPath)
}

// BackdropURL returns the full backdrop image URL, or "" if the movie has no backdrop
func (d MovieDetail) BackdropURL() string {
	return imageURL(backdropBaseURL, d.BackdropPath)
}

// FormattedRuntime returns the runtime as "2h 15m", or "" if unknown
func (d MovieDetail) FormattedRuntime() string {
	if d.Runtime == nil {
		return ""
	}
	h := *d.Runtime / 60
	mins := *d.Runtime % 60
	if h > 0 {
		return fmt.Sprintf("%dh %dm", h, mins)
	}
	return fmt.Sprintf("%dm", mins)
}

// FormattedVoteAverage returns the rating with one decimal place
func (d MovieDetail) FormattedVoteAverage() string {
	return fmt.Sprintf("%.1f", d.VoteAverage)
}

// GenreNames returns a comma separated list of genre names
func (d MovieDetail) GenreNames() string {
	names := make([]string, len(d.Genres))
	for i, g := range d.Genres {
		names[i] = g.Name
	}
	return strings.Join(names, ", ")
}

// FormattedBudget returns the budget in USD, or "" if not reported
func (d MovieDetail) FormattedBudget() string {
	return formatUSD(d.Budget)
}

// FormattedRevenue returns the revenue in USD, or "" if not reported
func (d MovieDetail) FormattedRevenue() string {
	return formatUSD(d.Revenue)
}

// Summary returns the base movie identity carried by the detail
func (d MovieDetail) Summary() Movie {
	return Movie{
		ID:            d.ID,
		Title:         d.Title,
		OriginalTitle: d.OriginalTitle,
		Overview:      d.Overview,
		ReleaseDate:   d.ReleaseDate,
		PosterPath:    d.PosterPath,
		BackdropPath:  d.BackdropPath,
		VoteAverage:   d.VoteAverage,
		VoteCount:     d.VoteCount,
		Popularity:    d.Popularity,
	}
}

// SearchResult is one page of search results
type SearchResult struct {
	Movies       []Movie
	CurrentPage  int
	TotalPages   int
	TotalResults int
}

// HasMorePages reports whether pages after CurrentPage exist
func (r SearchResult) HasMorePages() bool {
	return r.CurrentPage < r.TotalPages
}

// IsEmpty reports whether the page holds no movies
func (r SearchResult) IsEmpty() bool {
	return len(r.Movies) == 0
}

// SearchQuery identifies one page of a search.
// (Query, Page, Language) is the cache key; IncludeAdult only shapes the request.
type SearchQuery struct {
	Query        string
	IncludeAdult bool
	Language     string
	Page         int
}

// CacheKey returns the storage key for this query
func (q SearchQuery) CacheKey() string {
	return fmt.Sprintf("lang:%s:page:%d:q:%s", q.Language, q.Page, q.Query)
}

// MovieAccountStates holds the per-account flags for a movie
type MovieAccountStates struct {
	MovieID   int
	Favorite  bool
	Rated     bool
	Watchlist bool
}

func imageURL(base string, path *string) string {
	if path == nil || *path == "" {
		return ""
	}
	return base + *path
}

// formatUSD renders whole dollars with thousands separators ("$1,250,000")
func formatUSD(amount int64) string {
	if amount <= 0 {
		return ""
	}
	digits := fmt.Sprintf("%d", amount)
	var b strings.Builder
	b.WriteByte('$')
	for i, r := range digits {
		if i > 0 && (len(digits)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	return b.String()
}
