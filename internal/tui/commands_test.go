package tui

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmcdole/marquee/internal/domain"
	"github.com/mmcdole/marquee/internal/log"
	"github.com/mmcdole/marquee/internal/service"
)

// ctxMovies fails once the request context is done, like a real loader
type ctxMovies struct {
	calls int
}

func (s *ctxMovies) SearchMovies(ctx context.Context, _ domain.SearchQuery) (*domain.SearchResult, error) {
	s.calls++
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return &domain.SearchResult{CurrentPage: 1, TotalPages: 1}, nil
}

func (s *ctxMovies) GetMovieDetail(ctx context.Context, movieID int, _ string) (*domain.MovieDetail, error) {
	s.calls++
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return &domain.MovieDetail{ID: movieID, Title: "Alien"}, nil
}

func TestLoadOverviewCmd_FollowsParentContext(t *testing.T) {
	movies := &ctxMovies{}
	svc := service.NewMovieService(movies, &stubStates{}, service.Options{Logger: log.NullLogger()})

	msg := LoadOverviewCmd(context.Background(), svc, 7, "")()
	loaded, ok := msg.(OverviewLoadedMsg)
	require.True(t, ok, "got %T", msg)
	assert.Equal(t, "Alien", loaded.Overview.Detail.Title)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	msg = LoadOverviewCmd(ctx, svc, 7, "")()
	errMsg, ok := msg.(ErrMsg)
	require.True(t, ok, "got %T", msg)
	assert.Equal(t, "loading movie", errMsg.Context)
	assert.Equal(t, 2, movies.calls)
}

func TestSearchCmd_FollowsParentContext(t *testing.T) {
	movies := &ctxMovies{}
	svc := service.NewMovieService(movies, &stubStates{}, service.Options{Logger: log.NullLogger()})
	session := service.NewSearchSession(svc)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	msg := SearchCmd(ctx, session, "alien")()
	_, ok := msg.(ErrMsg)
	assert.True(t, ok, "got %T", msg)
}
