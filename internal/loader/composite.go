package loader

import (
	"context"
	"errors"
	"log/slog"

	"github.com/mmcdole/marquee/internal/domain"
	"github.com/mmcdole/marquee/internal/metrics"
)

// CompositeMovieLoader serves movie data local-first and falls back to
// remote on a miss. Persisting remote results is the job of the caching
// decorator wrapped around remote.
type CompositeMovieLoader struct {
	local  domain.MovieLoader
	remote domain.MovieLoader
	logger *slog.Logger
}

// NewCompositeMovieLoader creates a local-first movie loader
func NewCompositeMovieLoader(local, remote domain.MovieLoader, logger *slog.Logger) *CompositeMovieLoader {
	if logger == nil {
		logger = slog.Default()
	}
	return &CompositeMovieLoader{local: local, remote: remote, logger: logger}
}

func (c *CompositeMovieLoader) SearchMovies(ctx context.Context, q domain.SearchQuery) (*domain.SearchResult, error) {
	result, err := c.local.SearchMovies(ctx, q)
	if err != nil {
		if isContextErr(err) {
			return nil, err
		}
		c.logger.Warn("local search failed, falling back to remote", "key", q.CacheKey(), "error", err)
	} else if result != nil {
		return result, nil
	}
	return c.remote.SearchMovies(ctx, q)
}

func (c *CompositeMovieLoader) GetMovieDetail(ctx context.Context, movieID int, language string) (*domain.MovieDetail, error) {
	detail, err := c.local.GetMovieDetail(ctx, movieID, language)
	if err != nil {
		if isContextErr(err) {
			return nil, err
		}
		c.logger.Warn("local detail failed, falling back to remote", "movieID", movieID, "error", err)
	} else if detail != nil {
		return detail, nil
	}
	return c.remote.GetMovieDetail(ctx, movieID, language)
}

// CompositeAccountStatesLoader serves account states local-first, but every
// local hit also triggers a background refresh from remote so the cached
// favorite flag converges on the server's value.
type CompositeAccountStatesLoader struct {
	local   domain.AccountStatesLoader
	remote  domain.AccountStatesLoader
	bg      *Background
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// NewCompositeAccountStatesLoader creates a local-first account states loader.
// remote is expected to persist what it fetches (see CachingAccountStatesLoader).
func NewCompositeAccountStatesLoader(local, remote domain.AccountStatesLoader, bg *Background, m *metrics.Metrics, logger *slog.Logger) *CompositeAccountStatesLoader {
	if logger == nil {
		logger = slog.Default()
	}
	return &CompositeAccountStatesLoader{local: local, remote: remote, bg: bg, metrics: m, logger: logger}
}

func (c *CompositeAccountStatesLoader) GetAccountStates(ctx context.Context, movieID int, accountID string) (*domain.MovieAccountStates, error) {
	if accountID == "" {
		return c.remote.GetAccountStates(ctx, movieID, accountID)
	}

	states, err := c.local.GetAccountStates(ctx, movieID, accountID)
	if err != nil {
		if isContextErr(err) {
			return nil, err
		}
		c.logger.Warn("local account states failed, falling back to remote",
			"movieID", movieID, "accountID", accountID, "error", err)
	} else if states != nil {
		c.bg.Go(ctx, "reconcile_account_states", func(ctx context.Context) error {
			_, err := c.remote.GetAccountStates(ctx, movieID, accountID)
			return err
		}, "movieID", movieID, "accountID", accountID)
		return states, nil
	}

	return c.remote.GetAccountStates(ctx, movieID, accountID)
}

// MarkAsFavorite applies the change locally, then remotely. If the remote
// write fails the local write is reverted and the remote error returned.
func (c *CompositeAccountStatesLoader) MarkAsFavorite(ctx context.Context, accountID string, movieID int, favorite bool) error {
	if err := c.local.MarkAsFavorite(ctx, accountID, movieID, favorite); err != nil {
		return err
	}

	remoteErr := c.remote.MarkAsFavorite(ctx, accountID, movieID, favorite)
	if remoteErr == nil {
		return nil
	}

	// The caller may have been canceled; the revert must still land.
	if err := c.local.MarkAsFavorite(context.WithoutCancel(ctx), accountID, movieID, !favorite); err != nil {
		c.metrics.RecordFavoriteRollback(metrics.StatusError)
		c.logger.Warn("favorite rollback failed",
			"task", "rollback_favorite",
			"movieID", movieID,
			"accountID", accountID,
			"favorite", favorite,
			"error", err,
		)
	} else {
		c.metrics.RecordFavoriteRollback(metrics.StatusSuccess)
		c.logger.Info("favorite change reverted",
			"movieID", movieID, "accountID", accountID, "favorite", favorite, "error", remoteErr)
	}
	return remoteErr
}

func isContextErr(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
