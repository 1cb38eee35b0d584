package tui

import (
	"context"
	"errors"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmcdole/marquee/internal/domain"
	"github.com/mmcdole/marquee/internal/log"
	"github.com/mmcdole/marquee/internal/service"
)

type stubMovies struct {
	result *domain.SearchResult
	detail *domain.MovieDetail
}

func (s *stubMovies) SearchMovies(context.Context, domain.SearchQuery) (*domain.SearchResult, error) {
	return s.result, nil
}

func (s *stubMovies) GetMovieDetail(context.Context, int, string) (*domain.MovieDetail, error) {
	return s.detail, nil
}

type stubStates struct {
	markErr error
}

func (s *stubStates) GetAccountStates(_ context.Context, movieID int, _ string) (*domain.MovieAccountStates, error) {
	return &domain.MovieAccountStates{MovieID: movieID}, nil
}

func (s *stubStates) MarkAsFavorite(context.Context, string, int, bool) error {
	return s.markErr
}

func newTestModel(t *testing.T, states *stubStates, accountID string) Model {
	t.Helper()
	movies := &stubMovies{result: &domain.SearchResult{CurrentPage: 1, TotalPages: 1}}
	svc := service.NewMovieService(movies, states, service.Options{Logger: log.NullLogger()})
	m := NewModel(context.Background(), svc, service.NewSearchSession(svc), accountID, log.NullLogger())
	updated, _ := m.Update(tea.WindowSizeMsg{Width: 80, Height: 24})
	return updated.(Model)
}

func testMovies() []domain.Movie {
	return []domain.Movie{
		{ID: 1, Title: "Alien", VoteAverage: 8.4},
		{ID: 2, Title: "Aliens", VoteAverage: 8.3},
		{ID: 3, Title: "Heat", VoteAverage: 8.3},
	}
}

func withResults(t *testing.T, m Model) Model {
	t.Helper()
	m.State = ViewResults
	updated, _ := m.Update(SearchResultsMsg{State: service.SearchState{
		Query:        "alien",
		Movies:       testMovies(),
		CurrentPage:  1,
		TotalPages:   2,
		TotalResults: 40,
	}})
	return updated.(Model)
}

func keyRunes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestFilterMovies(t *testing.T) {
	movies := testMovies()

	assert.Nil(t, filterMovies(movies, "  "))

	idx := filterMovies(movies, "HT")
	require.Len(t, idx, 1)
	assert.Equal(t, 2, idx[0])

	assert.NotNil(t, filterMovies(movies, "zzz"))
	assert.Empty(t, filterMovies(movies, "zzz"))
}

func TestUpdate_SearchResultsRankedAgainstQuery(t *testing.T) {
	m := withResults(t, newTestModel(t, &stubStates{}, ""))

	require.Len(t, m.movies, 3)
	assert.Equal(t, "Alien", m.movies[0].Title)
	assert.Equal(t, "Heat", m.movies[2].Title)
	assert.Equal(t, 40, m.totalResults)
	assert.False(t, m.Loading)
}

func TestUpdate_NextPageAppends(t *testing.T) {
	m := withResults(t, newTestModel(t, &stubStates{}, ""))

	more := append(testMovies(), domain.Movie{ID: 4, Title: "Alien 3"})
	updated, _ := m.Update(NextPageMsg{State: service.SearchState{
		Query:       "alien",
		Movies:      more,
		CurrentPage: 2,
		TotalPages:  2,
	}})
	m = updated.(Model)

	require.Len(t, m.movies, 4)
	assert.Equal(t, 4, m.movies[3].ID)
	assert.Equal(t, 2, m.currentPage)
}

func TestUpdate_NextPageForOldQueryIgnored(t *testing.T) {
	m := withResults(t, newTestModel(t, &stubStates{}, ""))

	updated, _ := m.Update(NextPageMsg{State: service.SearchState{
		Query:  "heat",
		Movies: []domain.Movie{{ID: 9}, {ID: 10}, {ID: 11}, {ID: 12}},
	}})
	assert.Len(t, updated.(Model).movies, 3)
}

func TestUpdate_SupersededErrorIgnored(t *testing.T) {
	m := newTestModel(t, &stubStates{}, "")
	m.Loading = true

	updated, cmd := m.Update(ErrMsg{Err: service.ErrSuperseded, Context: "searching"})
	m = updated.(Model)

	assert.Nil(t, cmd)
	assert.Empty(t, m.StatusMsg)
}

func TestUpdate_ErrorShowsStatus(t *testing.T) {
	m := newTestModel(t, &stubStates{}, "")

	updated, cmd := m.Update(ErrMsg{Err: domain.ErrNetwork, Context: "searching"})
	m = updated.(Model)

	assert.NotNil(t, cmd)
	assert.True(t, m.StatusIsErr)
	assert.Contains(t, m.StatusMsg, "searching")
}

func TestFavorite_OptimisticThenReverted(t *testing.T) {
	states := &stubStates{markErr: errors.New("boom")}
	m := withResults(t, newTestModel(t, states, "acct"))

	updated, cmd := m.Update(keyRunes("f"))
	m = updated.(Model)
	require.NotNil(t, cmd)
	assert.True(t, m.favorites[1], "toggle shows immediately")

	msg := cmd()
	toggled, ok := msg.(FavoriteToggledMsg)
	require.True(t, ok)
	require.Error(t, toggled.Err)

	updated, _ = m.Update(toggled)
	m = updated.(Model)
	assert.False(t, m.favorites[1], "failed toggle is reverted")
	assert.True(t, m.StatusIsErr)
}

func TestFavorite_Confirmed(t *testing.T) {
	m := withResults(t, newTestModel(t, &stubStates{}, "acct"))

	updated, cmd := m.Update(keyRunes("f"))
	m = updated.(Model)
	updated, _ = m.Update(cmd())
	m = updated.(Model)

	assert.True(t, m.favorites[1])
	assert.False(t, m.StatusIsErr)
	assert.Equal(t, "Added to favorites", m.StatusMsg)
}

func TestFavorite_RequiresAccount(t *testing.T) {
	m := withResults(t, newTestModel(t, &stubStates{}, ""))

	updated, _ := m.Update(keyRunes("f"))
	m = updated.(Model)

	assert.False(t, m.favorites[1])
	assert.True(t, m.StatusIsErr)
}

func TestNavigation(t *testing.T) {
	m := withResults(t, newTestModel(t, &stubStates{}, ""))

	updated, _ := m.Update(keyRunes("j"))
	m = updated.(Model)
	updated, _ = m.Update(keyRunes("j"))
	m = updated.(Model)
	updated, _ = m.Update(keyRunes("j"))
	m = updated.(Model)
	assert.Equal(t, 2, m.cursor, "cursor stops at the last row")

	updated, _ = m.Update(keyRunes("k"))
	m = updated.(Model)
	assert.Equal(t, 1, m.cursor)

	updated, _ = m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	m = updated.(Model)
	assert.Equal(t, ViewSearch, m.State)
}

func TestFilterMode(t *testing.T) {
	m := withResults(t, newTestModel(t, &stubStates{}, ""))

	updated, _ := m.Update(keyRunes("/"))
	m = updated.(Model)
	require.True(t, m.filtering)

	updated, _ = m.Update(keyRunes("heat"))
	m = updated.(Model)
	require.Len(t, m.visible(), 1)

	movie, ok := m.selectedMovie()
	require.True(t, ok)
	assert.Equal(t, "Heat", movie.Title)

	updated, _ = m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	m = updated.(Model)
	assert.False(t, m.filtering)
	assert.Len(t, m.visible(), 3)
}

func TestOverviewOpensDetail(t *testing.T) {
	m := withResults(t, newTestModel(t, &stubStates{}, "acct"))

	updated, _ := m.Update(OverviewLoadedMsg{
		MovieID: 3,
		Overview: &service.MovieOverview{
			Detail: &domain.MovieDetail{ID: 3, Title: "Heat"},
			States: &domain.MovieAccountStates{MovieID: 3, Favorite: true},
		},
	})
	m = updated.(Model)

	assert.Equal(t, ViewDetail, m.State)
	assert.True(t, m.favorites[3])
	assert.Contains(t, m.View(), "Heat")
}
