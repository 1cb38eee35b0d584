package domain

import "context"

// MovieLoader reads movie data from a single source or a composition of sources.
// A nil result with a nil error means the source has nothing for the key.
type MovieLoader interface {
	SearchMovies(ctx context.Context, q SearchQuery) (*SearchResult, error)
	GetMovieDetail(ctx context.Context, movieID int, language string) (*MovieDetail, error)
}

// MovieStore persists movie data. Saves are idempotent: re-saving a key
// replaces the record and resets its timestamp. language is the language
// the detail was fetched in.
type MovieStore interface {
	SaveSearchResult(ctx context.Context, result *SearchResult, q SearchQuery) error
	SaveMovieDetail(ctx context.Context, detail *MovieDetail, language string) error
}

// AccountStatesLoader reads and mutates per-account movie flags.
// An empty accountID means no account is configured.
type AccountStatesLoader interface {
	GetAccountStates(ctx context.Context, movieID int, accountID string) (*MovieAccountStates, error)
	MarkAsFavorite(ctx context.Context, accountID string, movieID int, favorite bool) error
}

// AccountStatesStore persists account states fetched from the API
type AccountStatesStore interface {
	SaveAccountStates(ctx context.Context, states *MovieAccountStates, accountID string) error
}
