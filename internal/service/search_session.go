package service

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/mmcdole/marquee/internal/domain"
)

// ErrSuperseded is returned by a search that was replaced by a newer one
var ErrSuperseded = errors.New("search superseded by a newer query")

// Searcher fetches one page of search results
type Searcher interface {
	SearchMovies(ctx context.Context, query string, page int) (*domain.SearchResult, error)
}

// SearchState is a point-in-time copy of a session's results
type SearchState struct {
	Query        string
	Movies       []domain.Movie
	CurrentPage  int
	TotalPages   int
	TotalResults int
	Loading      bool
}

// HasMorePages reports whether LoadNextPage can fetch anything
func (s SearchState) HasMorePages() bool {
	return s.CurrentPage < s.TotalPages
}

// SearchSession accumulates paginated results for one query at a time.
// Starting a new search cancels the request in flight; cancellation only
// reaches the fetch, never the background cache writes it triggered.
type SearchSession struct {
	searcher Searcher

	mu           sync.Mutex
	query        string
	movies       []domain.Movie
	currentPage  int
	totalPages   int
	totalResults int
	loading      bool
	cancel       context.CancelFunc
	generation   uint64
}

// NewSearchSession creates an empty session
func NewSearchSession(searcher Searcher) *SearchSession {
	return &SearchSession{searcher: searcher}
}

// Search replaces the session's results with the first page for query.
// A blank query resets the session.
func (s *SearchSession) Search(ctx context.Context, query string) (SearchState, error) {
	query = strings.TrimSpace(query)

	s.mu.Lock()
	s.abortLocked()
	if query == "" {
		s.clearLocked()
		state := s.stateLocked()
		s.mu.Unlock()
		return state, nil
	}

	s.clearLocked()
	s.query = query
	ctx, gen := s.beginLocked(ctx)
	s.mu.Unlock()

	result, err := s.searcher.SearchMovies(ctx, query, 1)

	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.generation {
		return SearchState{}, ErrSuperseded
	}
	s.finishLocked()
	if err != nil {
		return s.stateLocked(), err
	}

	s.movies = append([]domain.Movie(nil), result.Movies...)
	s.currentPage = result.CurrentPage
	s.totalPages = result.TotalPages
	s.totalResults = result.TotalResults
	return s.stateLocked(), nil
}

// LoadNextPage appends the next page of the current query. It does nothing
// while a request is in flight or when there are no more pages.
func (s *SearchSession) LoadNextPage(ctx context.Context) (SearchState, error) {
	s.mu.Lock()
	if s.loading || s.query == "" || s.currentPage >= s.totalPages {
		state := s.stateLocked()
		s.mu.Unlock()
		return state, nil
	}

	query, next := s.query, s.currentPage+1
	ctx, gen := s.beginLocked(ctx)
	s.mu.Unlock()

	result, err := s.searcher.SearchMovies(ctx, query, next)

	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.generation {
		return SearchState{}, ErrSuperseded
	}
	s.finishLocked()
	if err != nil {
		return s.stateLocked(), err
	}

	s.movies = append(s.movies, result.Movies...)
	s.currentPage = result.CurrentPage
	s.totalPages = result.TotalPages
	s.totalResults = result.TotalResults
	return s.stateLocked(), nil
}

// Reset cancels any request in flight and clears the results
func (s *SearchSession) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.abortLocked()
	s.clearLocked()
}

// State returns a copy of the current results
func (s *SearchSession) State() SearchState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stateLocked()
}

// HasMorePages reports whether another page exists for the current query
func (s *SearchSession) HasMorePages() bool {
	return s.State().HasMorePages()
}

func (s *SearchSession) beginLocked(ctx context.Context) (context.Context, uint64) {
	ctx, cancel := context.WithCancel(ctx)
	s.generation++
	s.cancel = cancel
	s.loading = true
	return ctx, s.generation
}

func (s *SearchSession) finishLocked() {
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.loading = false
}

// abortLocked supersedes whatever request is in flight
func (s *SearchSession) abortLocked() {
	s.generation++
	s.finishLocked()
}

func (s *SearchSession) clearLocked() {
	s.query = ""
	s.movies = nil
	s.currentPage = 0
	s.totalPages = 0
	s.totalResults = 0
}

func (s *SearchSession) stateLocked() SearchState {
	return SearchState{
		Query:        s.query,
		Movies:       append([]domain.Movie(nil), s.movies...),
		CurrentPage:  s.currentPage,
		TotalPages:   s.totalPages,
		TotalResults: s.totalResults,
		Loading:      s.loading,
	}
}
