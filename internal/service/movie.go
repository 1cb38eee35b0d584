package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/mmcdole/marquee/internal/domain"
	"github.com/mmcdole/marquee/internal/loader"
)

// DefaultLanguage is used when no language preference is configured
const DefaultLanguage = "en-US"

// Pruner clears stale records from the local cache
type Pruner interface {
	ClearExpiredCache(ctx context.Context) (loader.PruneReport, error)
}

// FavoriteLister lists the movies cached as favorites for an account
type FavoriteLister interface {
	FavoriteIDs(ctx context.Context, accountID string) (map[int]bool, error)
}

// Options configures a MovieService
type Options struct {
	Language     string // Defaults to DefaultLanguage
	IncludeAdult bool
	Pruner       Pruner         // Optional
	Favorites    FavoriteLister // Optional
	Logger       *slog.Logger
}

// MovieOverview is a movie detail plus the account's flags for it
type MovieOverview struct {
	Detail *domain.MovieDetail
	States *domain.MovieAccountStates // nil when unavailable
}

// MovieService validates requests, applies preferences, and turns loader
// results into either a value or a named error
type MovieService struct {
	movies       domain.MovieLoader
	states       domain.AccountStatesLoader
	pruner       Pruner
	favorites    FavoriteLister
	language     string
	includeAdult bool
	logger       *slog.Logger
}

// NewMovieService creates a new movie service
func NewMovieService(movies domain.MovieLoader, states domain.AccountStatesLoader, opts Options) *MovieService {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	language := opts.Language
	if language == "" {
		language = DefaultLanguage
	}
	return &MovieService{
		movies:       movies,
		states:       states,
		pruner:       opts.Pruner,
		favorites:    opts.Favorites,
		language:     language,
		includeAdult: opts.IncludeAdult,
		logger:       logger,
	}
}

// Language returns the language requests are made in
func (s *MovieService) Language() string {
	return s.language
}

// SearchMovies returns one page of movies whose title matches query
func (s *MovieService) SearchMovies(ctx context.Context, query string, page int) (*domain.SearchResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, domain.ErrInvalidQuery
	}
	if page < 1 {
		return nil, domain.ErrInvalidPage
	}

	q := domain.SearchQuery{
		Query:        query,
		IncludeAdult: s.includeAdult,
		Language:     s.language,
		Page:         page,
	}
	result, err := s.movies.SearchMovies(ctx, q)
	if err != nil {
		return nil, s.classify(err, "search movies", "query", query, "page", page)
	}
	if result == nil {
		return nil, domain.ErrDataUnavailable
	}
	return result, nil
}

// GetMovieDetail returns the full details of a movie
func (s *MovieService) GetMovieDetail(ctx context.Context, movieID int) (*domain.MovieDetail, error) {
	if movieID < 1 {
		return nil, domain.ErrInvalidMovieID
	}

	detail, err := s.movies.GetMovieDetail(ctx, movieID, s.language)
	if err != nil {
		return nil, s.classify(err, "get movie detail", "movieID", movieID)
	}
	if detail == nil {
		return nil, domain.ErrDataUnavailable
	}
	return detail, nil
}

// GetAccountStates returns the account's flags for a movie. An empty
// accountID reads from the API only.
func (s *MovieService) GetAccountStates(ctx context.Context, movieID int, accountID string) (*domain.MovieAccountStates, error) {
	if movieID < 1 {
		return nil, domain.ErrInvalidMovieID
	}

	states, err := s.states.GetAccountStates(ctx, movieID, strings.TrimSpace(accountID))
	if err != nil {
		return nil, s.classify(err, "get account states", "movieID", movieID, "accountID", accountID)
	}
	if states == nil {
		return nil, domain.ErrDataUnavailable
	}
	return states, nil
}

// MarkAsFavorite adds a movie to, or removes it from, the account's favorites
func (s *MovieService) MarkAsFavorite(ctx context.Context, accountID string, movieID int, favorite bool) error {
	if movieID < 1 {
		return domain.ErrInvalidMovieID
	}
	accountID = strings.TrimSpace(accountID)
	if accountID == "" {
		return domain.ErrInvalidAccountID
	}

	if err := s.states.MarkAsFavorite(ctx, accountID, movieID, favorite); err != nil {
		return s.classify(err, "mark as favorite", "movieID", movieID, "accountID", accountID, "favorite", favorite)
	}
	return nil
}

// ToggleFavorite flips the favorite flag and returns the new value
func (s *MovieService) ToggleFavorite(ctx context.Context, accountID string, movieID int) (bool, error) {
	accountID = strings.TrimSpace(accountID)
	if accountID == "" {
		return false, domain.ErrInvalidAccountID
	}

	states, err := s.GetAccountStates(ctx, movieID, accountID)
	if err != nil {
		return false, err
	}

	favorite := !states.Favorite
	if err := s.MarkAsFavorite(ctx, accountID, movieID, favorite); err != nil {
		return states.Favorite, err
	}
	return favorite, nil
}

// GetMovieOverview loads the detail and the account states concurrently.
// The detail is required; account states are best effort.
func (s *MovieService) GetMovieOverview(ctx context.Context, movieID int, accountID string) (*MovieOverview, error) {
	if movieID < 1 {
		return nil, domain.ErrInvalidMovieID
	}

	var overview MovieOverview
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		detail, err := s.GetMovieDetail(gctx, movieID)
		if err != nil {
			return err
		}
		overview.Detail = detail
		return nil
	})

	g.Go(func() error {
		states, err := s.GetAccountStates(gctx, movieID, accountID)
		if err != nil {
			s.logger.Debug("account states unavailable", "movieID", movieID, "error", err)
			return nil
		}
		overview.States = states
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &overview, nil
}

// FavoriteIDs returns the movie IDs cached as favorites for accountID.
// It never calls the API.
func (s *MovieService) FavoriteIDs(ctx context.Context, accountID string) (map[int]bool, error) {
	accountID = strings.TrimSpace(accountID)
	if s.favorites == nil || accountID == "" {
		return map[int]bool{}, nil
	}
	return s.favorites.FavoriteIDs(ctx, accountID)
}

// PruneCache removes stale search results and details from the local cache
func (s *MovieService) PruneCache(ctx context.Context) (loader.PruneReport, error) {
	if s.pruner == nil {
		return loader.PruneReport{}, nil
	}
	return s.pruner.ClearExpiredCache(ctx)
}

// classify passes through errors callers can act on and folds anything
// else into ErrDataUnavailable
func (s *MovieService) classify(err error, op string, attrs ...any) error {
	var httpErr *domain.HTTPError
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return err
	case domain.IsValidationError(err),
		errors.Is(err, domain.ErrDataUnavailable),
		errors.Is(err, domain.ErrNetwork),
		errors.Is(err, domain.ErrDecoding),
		errors.Is(err, domain.ErrAuthFailed),
		errors.Is(err, domain.ErrFavoriteRejected),
		errors.As(err, &httpErr):
		s.logger.Warn(op+" failed", append(attrs, "error", err)...)
		return err
	default:
		s.logger.Warn(op+" failed", append(attrs, "error", err)...)
		return fmt.Errorf("%w: %v", domain.ErrDataUnavailable, err)
	}
}
