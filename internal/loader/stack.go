package loader

import (
	"log/slog"

	"github.com/mmcdole/marquee/internal/domain"
	"github.com/mmcdole/marquee/internal/metrics"
)

// LocalMovieCache is a movie cache usable as both read and write side
type LocalMovieCache interface {
	domain.MovieLoader
	domain.MovieStore
}

// LocalAccountStatesCache is an account states cache usable as both read and write side
type LocalAccountStatesCache interface {
	domain.AccountStatesLoader
	domain.AccountStatesStore
}

// NewMovieStack wires Composite(local, Caching(remote, local)). Only remote
// results are saved, so a cache hit never refreshes its own timestamp.
func NewMovieStack(local LocalMovieCache, remote domain.MovieLoader, bg *Background, logger *slog.Logger) domain.MovieLoader {
	return NewCompositeMovieLoader(local, NewCachingMovieLoader(remote, local, bg), logger)
}

// NewAccountStatesStack wires Composite(local, Caching(remote, local)). The
// composite's background reconciliation goes through the caching decorator,
// which writes the server's value back to local.
func NewAccountStatesStack(local LocalAccountStatesCache, remote domain.AccountStatesLoader, bg *Background, m *metrics.Metrics, logger *slog.Logger) domain.AccountStatesLoader {
	return NewCompositeAccountStatesLoader(local, NewCachingAccountStatesLoader(remote, local, bg), bg, m, logger)
}
