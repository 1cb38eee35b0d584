package loader

import (
	"context"
	"fmt"

	"github.com/mmcdole/marquee/internal/domain"
	"github.com/mmcdole/marquee/internal/tmdb"
)

// Transport sends a single API request and decodes the response into out
type Transport interface {
	Do(ctx context.Context, ep tmdb.Endpoint, out any) error
}

// RemoteMovieLoader fetches movie data from the API. Each call is exactly
// one request; retries belong to the transport.
type RemoteMovieLoader struct {
	transport Transport
}

// NewRemoteMovieLoader creates a movie loader backed by transport
func NewRemoteMovieLoader(transport Transport) *RemoteMovieLoader {
	return &RemoteMovieLoader{transport: transport}
}

func (r *RemoteMovieLoader) SearchMovies(ctx context.Context, q domain.SearchQuery) (*domain.SearchResult, error) {
	var resp tmdb.SearchResponse
	if err := r.transport.Do(ctx, tmdb.SearchMoviesEndpoint(q), &resp); err != nil {
		return nil, err
	}
	return tmdb.MapSearchResult(resp), nil
}

func (r *RemoteMovieLoader) GetMovieDetail(ctx context.Context, movieID int, language string) (*domain.MovieDetail, error) {
	var resp tmdb.MovieDetail
	if err := r.transport.Do(ctx, tmdb.MovieDetailEndpoint(movieID, language), &resp); err != nil {
		return nil, err
	}
	return tmdb.MapMovieDetail(resp), nil
}

// RemoteAccountStatesLoader reads and writes account flags through the API.
// The account is identified by the transport's access token.
type RemoteAccountStatesLoader struct {
	transport Transport
}

// NewRemoteAccountStatesLoader creates an account states loader backed by transport
func NewRemoteAccountStatesLoader(transport Transport) *RemoteAccountStatesLoader {
	return &RemoteAccountStatesLoader{transport: transport}
}

func (r *RemoteAccountStatesLoader) GetAccountStates(ctx context.Context, movieID int, _ string) (*domain.MovieAccountStates, error) {
	var resp tmdb.AccountStates
	if err := r.transport.Do(ctx, tmdb.AccountStatesEndpoint(movieID), &resp); err != nil {
		return nil, err
	}
	states := tmdb.MapAccountStates(resp)
	if states.MovieID == 0 {
		states.MovieID = movieID
	}
	return states, nil
}

func (r *RemoteAccountStatesLoader) MarkAsFavorite(ctx context.Context, accountID string, movieID int, favorite bool) error {
	var resp tmdb.StatusResponse
	if err := r.transport.Do(ctx, tmdb.MarkFavoriteEndpoint(accountID, movieID, favorite), &resp); err != nil {
		return err
	}
	if resp.Success != nil && !*resp.Success {
		return fmt.Errorf("%w: %s", domain.ErrFavoriteRejected, resp.StatusMessage)
	}
	return nil
}
