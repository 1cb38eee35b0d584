package loader

import (
	"context"

	"github.com/mmcdole/marquee/internal/domain"
)

// CachingMovieLoader persists every successful non-nil result of delegate
// in the background. Save failures are logged and never reach the caller.
// Results are shared with the save, so callers must not mutate them.
type CachingMovieLoader struct {
	delegate domain.MovieLoader
	store    domain.MovieStore
	bg       *Background
}

// NewCachingMovieLoader wraps delegate so its results are saved to st
func NewCachingMovieLoader(delegate domain.MovieLoader, st domain.MovieStore, bg *Background) *CachingMovieLoader {
	return &CachingMovieLoader{delegate: delegate, store: st, bg: bg}
}

func (c *CachingMovieLoader) SearchMovies(ctx context.Context, q domain.SearchQuery) (*domain.SearchResult, error) {
	result, err := c.delegate.SearchMovies(ctx, q)
	if err != nil || result == nil {
		return result, err
	}

	c.bg.Go(ctx, "save_search_result", func(ctx context.Context) error {
		return c.store.SaveSearchResult(ctx, result, q)
	}, "key", q.CacheKey())
	return result, nil
}

func (c *CachingMovieLoader) GetMovieDetail(ctx context.Context, movieID int, language string) (*domain.MovieDetail, error) {
	detail, err := c.delegate.GetMovieDetail(ctx, movieID, language)
	if err != nil || detail == nil {
		return detail, err
	}

	c.bg.Go(ctx, "save_movie_detail", func(ctx context.Context) error {
		return c.store.SaveMovieDetail(ctx, detail, language)
	}, "movieID", movieID, "language", language)
	return detail, nil
}

// CachingAccountStatesLoader persists account states fetched by delegate.
// Anonymous reads (empty account) are never saved.
type CachingAccountStatesLoader struct {
	delegate domain.AccountStatesLoader
	store    domain.AccountStatesStore
	bg       *Background
}

// NewCachingAccountStatesLoader wraps delegate so its results are saved to st
func NewCachingAccountStatesLoader(delegate domain.AccountStatesLoader, st domain.AccountStatesStore, bg *Background) *CachingAccountStatesLoader {
	return &CachingAccountStatesLoader{delegate: delegate, store: st, bg: bg}
}

func (c *CachingAccountStatesLoader) GetAccountStates(ctx context.Context, movieID int, accountID string) (*domain.MovieAccountStates, error) {
	states, err := c.delegate.GetAccountStates(ctx, movieID, accountID)
	if err != nil || states == nil || accountID == "" {
		return states, err
	}

	c.bg.Go(ctx, "save_account_states", func(ctx context.Context) error {
		return c.store.SaveAccountStates(ctx, states, accountID)
	}, "movieID", movieID, "accountID", accountID)
	return states, nil
}

// MarkAsFavorite passes through; the composite loader owns the local write
func (c *CachingAccountStatesLoader) MarkAsFavorite(ctx context.Context, accountID string, movieID int, favorite bool) error {
	return c.delegate.MarkAsFavorite(ctx, accountID, movieID, favorite)
}
