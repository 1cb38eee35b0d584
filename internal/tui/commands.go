package tui

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/mmcdole/marquee/internal/service"
)

const requestTimeout = 30 * time.Second

// Command factories for async operations. Each request derives from the
// model's parent context so cancelling it stops work still in flight.

// SearchCmd runs the first page of a new search. A newer search cancels
// this one, which then reports service.ErrSuperseded.
func SearchCmd(parent context.Context, session *service.SearchSession, query string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(parent, requestTimeout)
		defer cancel()

		state, err := session.Search(ctx, query)
		if err != nil {
			return ErrMsg{Err: err, Context: "searching"}
		}
		return SearchResultsMsg{State: state}
	}
}

// NextPageCmd loads the next page of the current search
func NextPageCmd(parent context.Context, session *service.SearchSession) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(parent, requestTimeout)
		defer cancel()

		state, err := session.LoadNextPage(ctx)
		if err != nil {
			return ErrMsg{Err: err, Context: "loading more results"}
		}
		return NextPageMsg{State: state}
	}
}

// LoadOverviewCmd loads a movie's detail and account states
func LoadOverviewCmd(parent context.Context, svc *service.MovieService, movieID int, accountID string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(parent, requestTimeout)
		defer cancel()

		overview, err := svc.GetMovieOverview(ctx, movieID, accountID)
		if err != nil {
			return ErrMsg{Err: err, Context: "loading movie"}
		}
		return OverviewLoadedMsg{MovieID: movieID, Overview: overview}
	}
}

// LoadFavoritesCmd reads the account's cached favorites
func LoadFavoritesCmd(parent context.Context, svc *service.MovieService, accountID string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(parent, requestTimeout)
		defer cancel()

		ids, err := svc.FavoriteIDs(ctx, accountID)
		if err != nil {
			return ErrMsg{Err: err, Context: "loading favorites"}
		}
		return FavoritesLoadedMsg{IDs: ids}
	}
}

// MarkFavoriteCmd sets a movie's favorite flag
func MarkFavoriteCmd(parent context.Context, svc *service.MovieService, accountID string, movieID int, favorite bool) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(parent, requestTimeout)
		defer cancel()

		err := svc.MarkAsFavorite(ctx, accountID, movieID, favorite)
		return FavoriteToggledMsg{MovieID: movieID, Favorite: favorite, Err: err}
	}
}

// TickCmd returns a command that sends a tick after a delay
func TickCmd(delay time.Duration) tea.Cmd {
	return tea.Tick(delay, func(time.Time) tea.Msg {
		return TickMsg{}
	})
}

// ClearStatusCmd returns a command that clears status after a delay
func ClearStatusCmd(delay time.Duration) tea.Cmd {
	return tea.Tick(delay, func(time.Time) tea.Msg {
		return ClearStatusMsg{}
	})
}
