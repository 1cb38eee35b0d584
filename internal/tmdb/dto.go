package tmdb

import (
	"bytes"
	"encoding/json"
)

// SearchResponse represents the response from /search/movie
type SearchResponse struct {
	Page         int     `json:"page"`
	Results      []Movie `json:"results"`
	TotalPages   int     `json:"total_pages"`
	TotalResults int     `json:"total_results"`
}

// Movie represents a movie summary in search results
type Movie struct {
	ID               int     `json:"id"`
	Title            string  `json:"title"`
	OriginalTitle    string  `json:"original_title"`
	Overview         string  `json:"overview"`
	ReleaseDate      string  `json:"release_date,omitempty"` // yyyy-MM-dd, may be ""
	PosterPath       *string `json:"poster_path"`
	BackdropPath     *string `json:"backdrop_path"`
	VoteAverage      float64 `json:"vote_average"`
	VoteCount        int     `json:"vote_count"`
	Popularity       float64 `json:"popularity"`
	GenreIDs         []int   `json:"genre_ids"`
	Adult            bool    `json:"adult"`
	Video            bool    `json:"video"`
	OriginalLanguage string  `json:"original_language"`
}

// MovieDetail represents the response from /movie/{id}
type MovieDetail struct {
	ID                  int                 `json:"id"`
	Title               string              `json:"title"`
	OriginalTitle       string              `json:"original_title"`
	Overview            string              `json:"overview"`
	ReleaseDate         string              `json:"release_date,omitempty"`
	PosterPath          *string             `json:"poster_path"`
	BackdropPath        *string             `json:"backdrop_path"`
	VoteAverage         float64             `json:"vote_average"`
	VoteCount           int                 `json:"vote_count"`
	Popularity          float64             `json:"popularity"`
	Runtime             *int                `json:"runtime"`
	Tagline             *string             `json:"tagline"`
	Status              string              `json:"status"`
	Genres              []Genre             `json:"genres"`
	ProductionCompanies []ProductionCompany `json:"production_companies"`
	ProductionCountries []ProductionCountry `json:"production_countries"`
	SpokenLanguages     []SpokenLanguage    `json:"spoken_languages"`
	Homepage            *string             `json:"homepage"`
	IMDbID              *string             `json:"imdb_id"`
	Budget              int64               `json:"budget"`
	Revenue             int64               `json:"revenue"`
}

// Genre represents a genre entry
type Genre struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// ProductionCompany represents a studio entry
type ProductionCompany struct {
	ID            int     `json:"id"`
	LogoPath      *string `json:"logo_path"`
	Name          string  `json:"name"`
	OriginCountry string  `json:"origin_country"`
}

// ProductionCountry represents a country entry
type ProductionCountry struct {
	ISO31661 string `json:"iso_3166_1"`
	Name     string `json:"name"`
}

// SpokenLanguage represents a language entry
type SpokenLanguage struct {
	EnglishName string `json:"english_name"`
	ISO6391     string `json:"iso_639_1"`
	Name        string `json:"name"`
}

// AccountStates represents the response from /movie/{id}/account_states
type AccountStates struct {
	ID        int       `json:"id"`
	Favorite  bool      `json:"favorite"`
	Rated     RatedFlag `json:"rated"`
	Watchlist bool      `json:"watchlist"`
}

// RatedFlag decodes the "rated" field, which the API sends either as
// false or as an object holding the user's rating ({"value": 8.5}).
type RatedFlag bool

func (r *RatedFlag) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	switch {
	case bytes.Equal(trimmed, []byte("null")):
		*r = false
		return nil
	case len(trimmed) > 0 && trimmed[0] == '{':
		var rating struct {
			Value *float64 `json:"value"`
		}
		if err := json.Unmarshal(trimmed, &rating); err != nil {
			return err
		}
		*r = RatedFlag(rating.Value != nil)
		return nil
	default:
		var b bool
		if err := json.Unmarshal(trimmed, &b); err != nil {
			return err
		}
		*r = RatedFlag(b)
		return nil
	}
}

// FavoriteRequest is the body posted to /account/{id}/favorite
type FavoriteRequest struct {
	MediaType string `json:"media_type"`
	MediaID   int    `json:"media_id"`
	Favorite  bool   `json:"favorite"`
}

// StatusResponse is returned by write endpoints and by most error responses
type StatusResponse struct {
	Success       *bool  `json:"success,omitempty"`
	StatusCode    int    `json:"status_code"`
	StatusMessage string `json:"status_message"`
}
