package loader

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmcdole/marquee/internal/domain"
	"github.com/mmcdole/marquee/internal/log"
	"github.com/mmcdole/marquee/internal/store"
)

func newTestLocal(t *testing.T) (*LocalMovieLoader, *store.Store, *testClock) {
	t.Helper()
	st := openTestStore(t)
	clock := newTestClock()
	local := NewLocalMovieLoader(st, LocalOptions{Now: clock.Now, Logger: log.NullLogger()})
	return local, st, clock
}

func TestLocalSearch_RoundTrip(t *testing.T) {
	local, _, _ := newTestLocal(t)
	ctx := context.Background()
	q := testQuery("heat", 1)

	result, err := local.SearchMovies(ctx, q)
	require.NoError(t, err)
	assert.Nil(t, result)

	saved := testSearchResult(1, 3, 1, 2)
	require.NoError(t, local.SaveSearchResult(ctx, saved, q))

	result, err = local.SearchMovies(ctx, q)
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, saved, result)

	// Other pages and languages are separate keys
	result, err = local.SearchMovies(ctx, testQuery("heat", 2))
	require.NoError(t, err)
	assert.Nil(t, result)

	result, err = local.SearchMovies(ctx, domain.SearchQuery{Query: "heat", Language: "de-DE", Page: 1})
	require.NoError(t, err)
	assert.Nil(t, result)
}

func TestLocalSearch_SaveIsIdempotent(t *testing.T) {
	local, st, clock := newTestLocal(t)
	ctx := context.Background()
	q := testQuery("heat", 1)

	require.NoError(t, local.SaveSearchResult(ctx, testSearchResult(1, 1), q))
	clock.Advance(23 * time.Hour)
	require.NoError(t, local.SaveSearchResult(ctx, testSearchResult(1, 2, 3), q))

	n, err := st.Count(store.BucketSearches)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	// The second save reset the timestamp, so the page outlives the first save's TTL
	clock.Advance(2 * time.Hour)
	result, err := local.SearchMovies(ctx, q)
	require.NoError(t, err)
	require.NotNil(t, result)
	require.Len(t, result.Movies, 2)
	assert.Equal(t, 2, result.Movies[0].ID)
}

func TestLocalSearch_ExpiredIsEvicted(t *testing.T) {
	local, st, clock := newTestLocal(t)
	ctx := context.Background()
	q := testQuery("heat", 1)

	require.NoError(t, local.SaveSearchResult(ctx, testSearchResult(1, 1), q))

	// Exactly at the TTL is still fresh
	clock.Advance(DefaultTTL)
	result, err := local.SearchMovies(ctx, q)
	require.NoError(t, err)
	require.NotNil(t, result)

	clock.Advance(time.Second)
	result, err = local.SearchMovies(ctx, q)
	require.NoError(t, err)
	assert.Nil(t, result)

	n, err := st.Count(store.BucketSearches)
	require.NoError(t, err)
	assert.Zero(t, n)

	// Not re-observed on a later read
	result, err = local.SearchMovies(ctx, q)
	require.NoError(t, err)
	assert.Nil(t, result)
}

func TestLocalSearch_AdultFilterMismatchIsMiss(t *testing.T) {
	local, _, _ := newTestLocal(t)
	ctx := context.Background()

	adult := domain.SearchQuery{Query: "heat", Language: "en-US", Page: 1, IncludeAdult: true}
	saved := testSearchResult(1, 1)
	saved.Movies[0].IsAdult = true
	require.NoError(t, local.SaveSearchResult(ctx, saved, adult))

	safe := adult
	safe.IncludeAdult = false
	result, err := local.SearchMovies(ctx, safe)
	require.NoError(t, err)
	assert.Nil(t, result, "a page saved with adult results must not answer a filtered query")

	result, err = local.SearchMovies(ctx, adult)
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.True(t, result.Movies[0].IsAdult)

	// Saving under the filtered query replaces the record for both
	require.NoError(t, local.SaveSearchResult(ctx, testSearchResult(1, 2), safe))
	result, err = local.SearchMovies(ctx, safe)
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, 2, result.Movies[0].ID)

	result, err = local.SearchMovies(ctx, adult)
	require.NoError(t, err)
	assert.Nil(t, result)
}

func TestLocalDetail_ExpiryKeepsBaseMovie(t *testing.T) {
	local, st, clock := newTestLocal(t)
	ctx := context.Background()

	require.NoError(t, local.SaveSearchResult(ctx, testSearchResult(1, 7), testQuery("alien", 1)))
	clock.Advance(time.Hour)
	require.NoError(t, local.SaveMovieDetail(ctx, testDetail(7), "en-US"))

	detail, err := local.GetMovieDetail(ctx, 7, "en-US")
	require.NoError(t, err)
	require.NotNil(t, detail)
	assert.Equal(t, "2h 0m", detail.FormattedRuntime())
	assert.Equal(t, "Drama", detail.GenreNames())

	clock.Advance(DefaultTTL + time.Minute)
	detail, err = local.GetMovieDetail(ctx, 7, "en-US")
	require.NoError(t, err)
	assert.Nil(t, detail)

	n, err := st.Count(store.BucketDetails)
	require.NoError(t, err)
	assert.Zero(t, n)

	var base movieRecord
	ok, err := st.Get(store.BucketMovies, movieKey(7), &base)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "Movie 7", base.Movie.Title)
	assert.Equal(t, []int{18}, base.Movie.GenreIDs)
}

func TestLocalDetail_SaveKeepsSummaryOnlyFields(t *testing.T) {
	local, st, _ := newTestLocal(t)
	ctx := context.Background()

	search := testSearchResult(1, 7)
	search.Movies[0].OriginalLanguage = "en"
	search.Movies[0].HasVideo = true
	require.NoError(t, local.SaveSearchResult(ctx, search, testQuery("alien", 1)))

	detail := testDetail(7)
	detail.Title = "Alien (Director's Cut)"
	detail.VoteAverage = 8.5
	require.NoError(t, local.SaveMovieDetail(ctx, detail, "en-US"))

	var base movieRecord
	ok, err := st.Get(store.BucketMovies, movieKey(7), &base)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "Movie 7", base.Movie.Title, "search text is kept")
	assert.Equal(t, 8.5, base.Movie.VoteAverage)
	assert.Equal(t, "en", base.Movie.OriginalLanguage)
	assert.True(t, base.Movie.HasVideo)

	cached, err := local.GetMovieDetail(ctx, 7, "en-US")
	require.NoError(t, err)
	require.NotNil(t, cached)
	assert.Equal(t, "Alien (Director's Cut)", cached.Title)
}

func TestLocalDetail_LanguageIsPartOfTheHit(t *testing.T) {
	local, _, _ := newTestLocal(t)
	ctx := context.Background()

	frSearch := testSearchResult(1, 7)
	frSearch.Movies[0].Title = "Le Movie 7"
	frSearch.Movies[0].Overview = "Un film."
	frQuery := domain.SearchQuery{Query: "movie", Language: "fr-FR", Page: 1}
	require.NoError(t, local.SaveSearchResult(ctx, frSearch, frQuery))

	detail := testDetail(7)
	detail.Overview = "A movie."
	require.NoError(t, local.SaveMovieDetail(ctx, detail, "en-US"))

	cached, err := local.GetMovieDetail(ctx, 7, "fr-FR")
	require.NoError(t, err)
	assert.Nil(t, cached, "an English detail must not answer a French request")

	cached, err = local.GetMovieDetail(ctx, 7, "en-US")
	require.NoError(t, err)
	require.NotNil(t, cached)
	assert.Equal(t, "A movie.", cached.Overview)

	// The French search page still shows French text
	page, err := local.SearchMovies(ctx, frQuery)
	require.NoError(t, err)
	require.NotNil(t, page)
	assert.Equal(t, "Le Movie 7", page.Movies[0].Title)
	assert.Equal(t, "Un film.", page.Movies[0].Overview)
}

func TestLocalDetail_MissWithoutBaseRow(t *testing.T) {
	local, st, _ := newTestLocal(t)
	ctx := context.Background()

	require.NoError(t, local.SaveMovieDetail(ctx, testDetail(3), "en-US"))
	require.NoError(t, st.Delete(store.BucketMovies, movieKey(3)))

	detail, err := local.GetMovieDetail(ctx, 3, "en-US")
	require.NoError(t, err)
	assert.Nil(t, detail)
}

func TestLocal_CanceledContext(t *testing.T) {
	local, _, _ := newTestLocal(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := local.SearchMovies(ctx, testQuery("heat", 1))
	assert.ErrorIs(t, err, context.Canceled)
	assert.ErrorIs(t, local.SaveMovieDetail(ctx, testDetail(1), "en-US"), context.Canceled)
}

func TestLocalAccountStates(t *testing.T) {
	st := openTestStore(t)
	local := NewLocalAccountStatesLoader(st, LocalOptions{Logger: log.NullLogger()})
	ctx := context.Background()

	// Unknown, not "not favorite"
	states, err := local.GetAccountStates(ctx, 1, "acct")
	require.NoError(t, err)
	assert.Nil(t, states)

	require.NoError(t, local.SaveAccountStates(ctx, &domain.MovieAccountStates{MovieID: 1, Favorite: true, Rated: true, Watchlist: true}, "acct"))
	states, err = local.GetAccountStates(ctx, 1, "acct")
	require.NoError(t, err)
	require.NotNil(t, states)
	// Only favorite presence survives the cache
	assert.Equal(t, domain.MovieAccountStates{MovieID: 1, Favorite: true}, *states)

	// Other accounts are separate
	states, err = local.GetAccountStates(ctx, 1, "other")
	require.NoError(t, err)
	assert.Nil(t, states)

	// Anonymous lookups never hit the cache
	states, err = local.GetAccountStates(ctx, 1, "")
	require.NoError(t, err)
	assert.Nil(t, states)

	require.NoError(t, local.MarkAsFavorite(ctx, "acct", 1, false))
	states, err = local.GetAccountStates(ctx, 1, "acct")
	require.NoError(t, err)
	assert.Nil(t, states)

	n, err := st.Count(store.BucketFavorites)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestLocalAccountStates_FavoriteIDsAndForget(t *testing.T) {
	st := openTestStore(t)
	local := NewLocalAccountStatesLoader(st, LocalOptions{Logger: log.NullLogger()})
	ctx := context.Background()

	require.NoError(t, local.MarkAsFavorite(ctx, "acct", 1, true))
	require.NoError(t, local.MarkAsFavorite(ctx, "acct", 2, true))
	require.NoError(t, local.MarkAsFavorite(ctx, "acct2", 3, true))

	ids, err := local.FavoriteIDs(ctx, "acct")
	require.NoError(t, err)
	assert.Equal(t, map[int]bool{1: true, 2: true}, ids)

	n, err := local.Forget(ctx, "acct")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	ids, err = local.FavoriteIDs(ctx, "acct2")
	require.NoError(t, err)
	assert.Equal(t, map[int]bool{3: true}, ids)

	_, err = local.Forget(ctx, "")
	assert.ErrorIs(t, err, domain.ErrInvalidAccountID)
}
