package loader

import (
	"context"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/mmcdole/marquee/internal/domain"
	"github.com/mmcdole/marquee/internal/log"
	"github.com/mmcdole/marquee/internal/store"
)

// Every background task must finish before the package's tests end
func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func openTestStore(t *testing.T) *store.Store {
	t.Helper()
	st, err := store.Open(t.TempDir(), "")
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	return st
}

func newTestBackground(t *testing.T) *Background {
	t.Helper()
	bg := NewBackground(log.NullLogger(), nil)
	t.Cleanup(bg.Wait)
	return bg
}

func testQuery(q string, page int) domain.SearchQuery {
	return domain.SearchQuery{Query: q, Language: "en-US", Page: page}
}

func testSearchResult(page int, ids ...int) *domain.SearchResult {
	movies := make([]domain.Movie, 0, len(ids))
	for _, id := range ids {
		movies = append(movies, domain.Movie{ID: id, Title: "Movie " + strconv.Itoa(id), GenreIDs: []int{18}})
	}
	return &domain.SearchResult{Movies: movies, CurrentPage: page, TotalPages: 5, TotalResults: 100}
}

func testDetail(id int) *domain.MovieDetail {
	runtime := 120
	return &domain.MovieDetail{
		ID:      id,
		Title:   "Movie " + strconv.Itoa(id),
		Runtime: &runtime,
		Status:  "Released",
		Genres:  []domain.Genre{{ID: 18, Name: "Drama"}},
		Budget:  1000000,
	}
}

// === Fakes ===

type fakeMovieLoader struct {
	mu          sync.Mutex
	search      *domain.SearchResult
	detail      *domain.MovieDetail
	err         error
	searchCalls int
	detailCalls int
}

func (f *fakeMovieLoader) SearchMovies(_ context.Context, _ domain.SearchQuery) (*domain.SearchResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.searchCalls++
	return f.search, f.err
}

func (f *fakeMovieLoader) GetMovieDetail(_ context.Context, _ int, _ string) (*domain.MovieDetail, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.detailCalls++
	return f.detail, f.err
}

func (f *fakeMovieLoader) calls() (int, int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.searchCalls, f.detailCalls
}

type fakeMovieStore struct {
	mu        sync.Mutex
	err       error
	searches  []*domain.SearchResult
	details   []*domain.MovieDetail
	languages []string
}

func (f *fakeMovieStore) SaveSearchResult(_ context.Context, result *domain.SearchResult, _ domain.SearchQuery) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.searches = append(f.searches, result)
	return f.err
}

func (f *fakeMovieStore) SaveMovieDetail(_ context.Context, detail *domain.MovieDetail, language string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.details = append(f.details, detail)
	f.languages = append(f.languages, language)
	return f.err
}

type fakeStatesLoader struct {
	mu        sync.Mutex
	states    *domain.MovieAccountStates
	getErr    error
	markErrs  []error       // per MarkAsFavorite call, in order
	block     chan struct{} // GetAccountStates waits on it when set
	getCalls  int
	writes    []bool
	markCalls int
}

func (f *fakeStatesLoader) GetAccountStates(ctx context.Context, _ int, _ string) (*domain.MovieAccountStates, error) {
	f.mu.Lock()
	f.getCalls++
	block := f.block
	f.mu.Unlock()

	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	return f.states, f.getErr
}

func (f *fakeStatesLoader) MarkAsFavorite(_ context.Context, _ string, _ int, favorite bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	call := f.markCalls
	f.markCalls++
	if call < len(f.markErrs) && f.markErrs[call] != nil {
		return f.markErrs[call]
	}
	f.writes = append(f.writes, favorite)
	return nil
}

func (f *fakeStatesLoader) gets() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.getCalls
}

type fakeStatesStore struct {
	mu    sync.Mutex
	err   error
	saved []*domain.MovieAccountStates
}

func (f *fakeStatesStore) SaveAccountStates(_ context.Context, states *domain.MovieAccountStates, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saved = append(f.saved, states)
	return f.err
}
