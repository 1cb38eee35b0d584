package tmdb

import (
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/mmcdole/marquee/internal/domain"
)

// Endpoint describes a single API request
type Endpoint struct {
	Name         string // Stable label for logs and metrics
	Method       string
	Path         string     // Relative to the base URL, e.g. "/search/movie"
	Query        url.Values // Encoded into the URL for every method
	Body         any        // JSON encoded for non-GET requests
	RequiresAuth bool       // Sends the read access token as a bearer token
}

// SearchMoviesEndpoint searches movies by title
func SearchMoviesEndpoint(q domain.SearchQuery) Endpoint {
	query := url.Values{}
	query.Set("query", q.Query)
	query.Set("include_adult", strconv.FormatBool(q.IncludeAdult))
	query.Set("language", q.Language)
	query.Set("page", strconv.Itoa(q.Page))

	return Endpoint{Name: "search_movies", Method: http.MethodGet, Path: "/search/movie", Query: query}
}

// MovieDetailEndpoint fetches the full details of a movie
func MovieDetailEndpoint(movieID int, language string) Endpoint {
	query := url.Values{}
	query.Set("language", language)

	return Endpoint{Name: "movie_detail", Method: http.MethodGet, Path: fmt.Sprintf("/movie/%d", movieID), Query: query}
}

// AccountStatesEndpoint fetches the favorite/rated/watchlist flags of a movie
// for the account owning the access token
func AccountStatesEndpoint(movieID int) Endpoint {
	return Endpoint{
		Name:         "account_states",
		Method:       http.MethodGet,
		Path:         fmt.Sprintf("/movie/%d/account_states", movieID),
		RequiresAuth: true,
	}
}

// MarkFavoriteEndpoint adds a movie to, or removes it from, an account's favorites
func MarkFavoriteEndpoint(accountID string, movieID int, favorite bool) Endpoint {
	return Endpoint{
		Name:   "mark_favorite",
		Method: http.MethodPost,
		Path:   "/account/" + url.PathEscape(accountID) + "/favorite",
		Body: FavoriteRequest{
			MediaType: "movie",
			MediaID:   movieID,
			Favorite:  favorite,
		},
		RequiresAuth: true,
	}
}
