package loader

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/mmcdole/marquee/internal/domain"
	"github.com/mmcdole/marquee/internal/metrics"
	"github.com/mmcdole/marquee/internal/store"
)

// DefaultTTL is how long cached search results and details stay fresh
const DefaultTTL = 24 * time.Hour

// Metric kinds
const (
	kindSearch = "search"
	kindDetail = "detail"
	kindStates = "states"
)

// LocalOptions configures the local loaders and the janitor
type LocalOptions struct {
	TTL     time.Duration    // Defaults to DefaultTTL
	Now     func() time.Time // Defaults to time.Now
	Metrics *metrics.Metrics
	Logger  *slog.Logger
}

type expiry struct {
	ttl time.Duration
	now func() time.Time
}

func newExpiry(opts LocalOptions) expiry {
	e := expiry{ttl: opts.TTL, now: opts.Now}
	if e.ttl <= 0 {
		e.ttl = DefaultTTL
	}
	if e.now == nil {
		e.now = time.Now
	}
	return e
}

// expired reports whether a record saved at savedAt is stale. Records
// without a timestamp are always stale.
func (e expiry) expired(savedAt time.Time) bool {
	return savedAt.IsZero() || e.now().Sub(savedAt) > e.ttl
}

// === Records ===

type searchRecord struct {
	Query        string    `json:"query"`
	Language     string    `json:"language"`
	IncludeAdult bool      `json:"include_adult"`
	Page         int       `json:"page"`
	MovieIDs     []int     `json:"movie_ids"`
	CurrentPage  int       `json:"current_page"`
	TotalPages   int       `json:"total_pages"`
	TotalResults int       `json:"total_results"`
	SavedAt      time.Time `json:"saved_at"`
}

type movieRecord struct {
	Movie   domain.Movie `json:"movie"`
	SavedAt time.Time    `json:"saved_at"`
}

// detailRecord holds the detail-only attributes of a movie plus the text
// localized in Language. The base identity lives in the movies bucket so a
// detail can expire on its own.
type detailRecord struct {
	Language            string                     `json:"language"`
	Title               string                     `json:"title"`
	Overview            string                     `json:"overview"`
	Runtime             *int                       `json:"runtime,omitempty"`
	Tagline             *string                    `json:"tagline,omitempty"`
	Status              string                     `json:"status"`
	Genres              []domain.Genre             `json:"genres"`
	ProductionCompanies []domain.ProductionCompany `json:"production_companies"`
	ProductionCountries []domain.ProductionCountry `json:"production_countries"`
	SpokenLanguages     []domain.SpokenLanguage    `json:"spoken_languages"`
	Homepage            *string                    `json:"homepage,omitempty"`
	IMDbID              *string                    `json:"imdb_id,omitempty"`
	Budget              int64                      `json:"budget"`
	Revenue             int64                      `json:"revenue"`
	SavedAt             time.Time                  `json:"saved_at"`
}

type favoriteRecord struct {
	MovieID   int       `json:"movie_id"`
	AccountID string    `json:"account_id"`
	SavedAt   time.Time `json:"saved_at"`
}

func movieKey(movieID int) string {
	return "movie:" + strconv.Itoa(movieID)
}

func favoriteKey(accountID string, movieID int) string {
	return favoritePrefix(accountID) + "movie:" + strconv.Itoa(movieID)
}

func favoritePrefix(accountID string) string {
	return "acct:" + accountID + ":"
}

// === Movie data ===

// LocalMovieLoader reads and writes cached movie data. It is both the read
// side (domain.MovieLoader) and the write side (domain.MovieStore) of the cache.
type LocalMovieLoader struct {
	store   *store.Store
	expiry  expiry
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// NewLocalMovieLoader creates a movie cache over st
func NewLocalMovieLoader(st *store.Store, opts LocalOptions) *LocalMovieLoader {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &LocalMovieLoader{
		store:   st,
		expiry:  newExpiry(opts),
		metrics: opts.Metrics,
		logger:  logger,
	}
}

// SearchMovies returns the cached page for q, or nil if it is missing or
// stale. Stale pages are deleted.
func (l *LocalMovieLoader) SearchMovies(ctx context.Context, q domain.SearchQuery) (*domain.SearchResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	key := q.CacheKey()
	var rec searchRecord
	ok, err := l.store.Get(store.BucketSearches, key, &rec)
	if err != nil {
		return nil, fmt.Errorf("failed to read cached search: %w", err)
	}
	if !ok {
		l.metrics.RecordCacheLookup(kindSearch, metrics.LookupMiss)
		return nil, nil
	}

	// Saved under a different adult filter; the next remote save replaces it
	if rec.IncludeAdult != q.IncludeAdult {
		l.metrics.RecordCacheLookup(kindSearch, metrics.LookupMiss)
		l.logger.Debug("cached search has other adult filter", "key", key, "includeAdult", rec.IncludeAdult)
		return nil, nil
	}

	if l.expiry.expired(rec.SavedAt) {
		l.metrics.RecordCacheLookup(kindSearch, metrics.LookupExpired)
		l.logger.Debug("evicting expired search", "key", key, "savedAt", rec.SavedAt)
		if err := l.evict(store.BucketSearches, key, func(tx *store.Tx) (time.Time, bool, error) {
			var cur searchRecord
			found, err := tx.Get(store.BucketSearches, key, &cur)
			return cur.SavedAt, found, err
		}); err != nil {
			return nil, err
		}
		return nil, nil
	}

	movies := make([]domain.Movie, 0, len(rec.MovieIDs))
	err = l.store.View(func(tx *store.Tx) error {
		for _, id := range rec.MovieIDs {
			var m movieRecord
			found, err := tx.Get(store.BucketMovies, movieKey(id), &m)
			if err != nil {
				return err
			}
			if !found {
				return errMissingMovie
			}
			movies = append(movies, m.Movie)
		}
		return nil
	})
	if errors.Is(err, errMissingMovie) {
		l.metrics.RecordCacheLookup(kindSearch, metrics.LookupMiss)
		l.logger.Debug("cached search references missing movie", "key", key)
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read cached movies: %w", err)
	}

	l.metrics.RecordCacheLookup(kindSearch, metrics.LookupHit)
	l.logger.Debug("search cache hit", "key", key)
	return &domain.SearchResult{
		Movies:       movies,
		CurrentPage:  rec.CurrentPage,
		TotalPages:   rec.TotalPages,
		TotalResults: rec.TotalResults,
	}, nil
}

var errMissingMovie = errors.New("cached movie missing")

// GetMovieDetail returns the cached detail for movieID in language, or nil
// if it is missing, stale or cached in another language. A stale detail
// loses only its detail attributes; the base movie row stays for search
// results that reference it.
func (l *LocalMovieLoader) GetMovieDetail(ctx context.Context, movieID int, language string) (*domain.MovieDetail, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	key := movieKey(movieID)
	var rec detailRecord
	ok, err := l.store.Get(store.BucketDetails, key, &rec)
	if err != nil {
		return nil, fmt.Errorf("failed to read cached detail: %w", err)
	}
	if !ok {
		l.metrics.RecordCacheLookup(kindDetail, metrics.LookupMiss)
		return nil, nil
	}

	// One detail per movie: a fetch in another language replaces it
	if rec.Language != language {
		l.metrics.RecordCacheLookup(kindDetail, metrics.LookupMiss)
		l.logger.Debug("cached detail in other language", "movieID", movieID, "cached", rec.Language, "language", language)
		return nil, nil
	}

	if l.expiry.expired(rec.SavedAt) {
		l.metrics.RecordCacheLookup(kindDetail, metrics.LookupExpired)
		l.logger.Debug("evicting expired detail", "movieID", movieID, "savedAt", rec.SavedAt)
		if err := l.evict(store.BucketDetails, key, func(tx *store.Tx) (time.Time, bool, error) {
			var cur detailRecord
			found, err := tx.Get(store.BucketDetails, key, &cur)
			return cur.SavedAt, found, err
		}); err != nil {
			return nil, err
		}
		return nil, nil
	}

	var base movieRecord
	ok, err = l.store.Get(store.BucketMovies, key, &base)
	if err != nil {
		return nil, fmt.Errorf("failed to read cached movie: %w", err)
	}
	if !ok {
		l.metrics.RecordCacheLookup(kindDetail, metrics.LookupMiss)
		return nil, nil
	}

	l.metrics.RecordCacheLookup(kindDetail, metrics.LookupHit)
	l.logger.Debug("detail cache hit", "movieID", movieID)
	return joinDetail(base.Movie, rec), nil
}

// evict deletes bucket/key if the record is still stale inside the write
// transaction, so a save that landed after the read is kept.
func (l *LocalMovieLoader) evict(bucket []byte, key string, savedAt func(tx *store.Tx) (time.Time, bool, error)) error {
	err := l.store.Perform(func(tx *store.Tx) error {
		ts, found, err := savedAt(tx)
		if err != nil || !found || !l.expiry.expired(ts) {
			return err
		}
		return tx.Delete(bucket, key)
	})
	if err != nil {
		return fmt.Errorf("failed to evict %s: %w", key, err)
	}
	return nil
}

// SaveSearchResult stores the page and upserts every movie on it
func (l *LocalMovieLoader) SaveSearchResult(ctx context.Context, result *domain.SearchResult, q domain.SearchQuery) error {
	if result == nil {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	now := l.expiry.now()
	rec := searchRecord{
		Query:        q.Query,
		Language:     q.Language,
		IncludeAdult: q.IncludeAdult,
		Page:         q.Page,
		MovieIDs:     make([]int, 0, len(result.Movies)),
		CurrentPage:  result.CurrentPage,
		TotalPages:   result.TotalPages,
		TotalResults: result.TotalResults,
		SavedAt:      now,
	}

	return l.store.Perform(func(tx *store.Tx) error {
		for _, m := range result.Movies {
			rec.MovieIDs = append(rec.MovieIDs, m.ID)
			if err := tx.Put(store.BucketMovies, movieKey(m.ID), movieRecord{Movie: m, SavedAt: now}); err != nil {
				return err
			}
		}
		return tx.Put(store.BucketSearches, q.CacheKey(), rec)
	})
}

// SaveMovieDetail stores the detail attributes and refreshes the base movie
// row. An existing row keeps its localized text and the summary-only fields
// the detail does not carry, so search pages cached in other languages are
// unaffected.
func (l *LocalMovieLoader) SaveMovieDetail(ctx context.Context, detail *domain.MovieDetail, language string) error {
	if detail == nil {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	now := l.expiry.now()
	key := movieKey(detail.ID)

	return l.store.Perform(func(tx *store.Tx) error {
		base := detail.Summary()

		var existing movieRecord
		found, err := tx.Get(store.BucketMovies, key, &existing)
		if err != nil {
			return err
		}
		if found {
			base.Title = existing.Movie.Title
			base.Overview = existing.Movie.Overview
			base.GenreIDs = existing.Movie.GenreIDs
			base.IsAdult = existing.Movie.IsAdult
			base.HasVideo = existing.Movie.HasVideo
			base.OriginalLanguage = existing.Movie.OriginalLanguage
		}
		if len(base.GenreIDs) == 0 {
			for _, g := range detail.Genres {
				base.GenreIDs = append(base.GenreIDs, g.ID)
			}
		}

		if err := tx.Put(store.BucketMovies, key, movieRecord{Movie: base, SavedAt: now}); err != nil {
			return err
		}
		return tx.Put(store.BucketDetails, key, splitDetail(detail, language, now))
	})
}

func splitDetail(d *domain.MovieDetail, language string, savedAt time.Time) detailRecord {
	return detailRecord{
		Language:            language,
		Title:               d.Title,
		Overview:            d.Overview,
		Runtime:             d.Runtime,
		Tagline:             d.Tagline,
		Status:              d.Status,
		Genres:              d.Genres,
		ProductionCompanies: d.ProductionCompanies,
		ProductionCountries: d.ProductionCountries,
		SpokenLanguages:     d.SpokenLanguages,
		Homepage:            d.Homepage,
		IMDbID:              d.IMDbID,
		Budget:              d.Budget,
		Revenue:             d.Revenue,
		SavedAt:             savedAt,
	}
}

func joinDetail(m domain.Movie, rec detailRecord) *domain.MovieDetail {
	return &domain.MovieDetail{
		ID:                  m.ID,
		Title:               rec.Title,
		OriginalTitle:       m.OriginalTitle,
		Overview:            rec.Overview,
		ReleaseDate:         m.ReleaseDate,
		PosterPath:          m.PosterPath,
		BackdropPath:        m.BackdropPath,
		VoteAverage:         m.VoteAverage,
		VoteCount:           m.VoteCount,
		Popularity:          m.Popularity,
		Runtime:             rec.Runtime,
		Tagline:             rec.Tagline,
		Status:              rec.Status,
		Genres:              rec.Genres,
		ProductionCompanies: rec.ProductionCompanies,
		ProductionCountries: rec.ProductionCountries,
		SpokenLanguages:     rec.SpokenLanguages,
		Homepage:            rec.Homepage,
		IMDbID:              rec.IMDbID,
		Budget:              rec.Budget,
		Revenue:             rec.Revenue,
	}
}

// === Account states ===

// LocalAccountStatesLoader caches favorite status per (account, movie).
// Only favorite presence is stored: a record means favorite, no record means
// unknown, and rated/watchlist are always reported false.
type LocalAccountStatesLoader struct {
	store   *store.Store
	now     func() time.Time
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// NewLocalAccountStatesLoader creates a favorites cache over st. Favorite
// records do not expire; TTL in opts is ignored.
func NewLocalAccountStatesLoader(st *store.Store, opts LocalOptions) *LocalAccountStatesLoader {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &LocalAccountStatesLoader{
		store:   st,
		now:     newExpiry(opts).now,
		metrics: opts.Metrics,
		logger:  logger,
	}
}

// GetAccountStates returns nil when no favorite record exists; absence is
// not the same as "not favorite".
func (l *LocalAccountStatesLoader) GetAccountStates(ctx context.Context, movieID int, accountID string) (*domain.MovieAccountStates, error) {
	if accountID == "" {
		return nil, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var rec favoriteRecord
	ok, err := l.store.Get(store.BucketFavorites, favoriteKey(accountID, movieID), &rec)
	if err != nil {
		return nil, fmt.Errorf("failed to read cached favorite: %w", err)
	}
	if !ok {
		l.metrics.RecordCacheLookup(kindStates, metrics.LookupMiss)
		return nil, nil
	}

	l.metrics.RecordCacheLookup(kindStates, metrics.LookupHit)
	return &domain.MovieAccountStates{MovieID: movieID, Favorite: true}, nil
}

// MarkAsFavorite creates or replaces the favorite record, or deletes it when
// favorite is false
func (l *LocalAccountStatesLoader) MarkAsFavorite(ctx context.Context, accountID string, movieID int, favorite bool) error {
	if accountID == "" {
		return domain.ErrInvalidAccountID
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	key := favoriteKey(accountID, movieID)
	if !favorite {
		return l.store.Delete(store.BucketFavorites, key)
	}
	return l.store.Put(store.BucketFavorites, key, favoriteRecord{
		MovieID:   movieID,
		AccountID: accountID,
		SavedAt:   l.now(),
	})
}

// SaveAccountStates persists the favorite flag of states
func (l *LocalAccountStatesLoader) SaveAccountStates(ctx context.Context, states *domain.MovieAccountStates, accountID string) error {
	if states == nil {
		return nil
	}
	return l.MarkAsFavorite(ctx, accountID, states.MovieID, states.Favorite)
}

// FavoriteIDs returns the movie IDs cached as favorites for accountID
func (l *LocalAccountStatesLoader) FavoriteIDs(ctx context.Context, accountID string) (map[int]bool, error) {
	ids := make(map[int]bool)
	if accountID == "" {
		return ids, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	err := l.store.View(func(tx *store.Tx) error {
		return tx.ForEachPrefix(store.BucketFavorites, favoritePrefix(accountID), func(_ string, raw []byte) error {
			var rec favoriteRecord
			if err := store.Decode(raw, &rec); err != nil {
				return err
			}
			ids[rec.MovieID] = true
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list cached favorites: %w", err)
	}
	return ids, nil
}

// Forget deletes every cached favorite of accountID
func (l *LocalAccountStatesLoader) Forget(ctx context.Context, accountID string) (int, error) {
	if accountID == "" {
		return 0, domain.ErrInvalidAccountID
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	return l.store.DeletePrefix(store.BucketFavorites, favoritePrefix(accountID))
}
