package tui

import (
	"github.com/mmcdole/marquee/internal/service"
)

// Message types for the TUI

// ErrMsg represents an error
type ErrMsg struct {
	Err     error
	Context string
}

// Error implements the error interface
func (e ErrMsg) Error() string {
	if e.Context != "" {
		return e.Context + ": " + e.Err.Error()
	}
	return e.Err.Error()
}

// SearchResultsMsg signals that the first page of a search is ready
type SearchResultsMsg struct {
	State service.SearchState
}

// NextPageMsg signals that another page was appended to the results
type NextPageMsg struct {
	State service.SearchState
}

// OverviewLoadedMsg signals that a movie's detail (and account states) loaded
type OverviewLoadedMsg struct {
	MovieID  int
	Overview *service.MovieOverview
}

// FavoritesLoadedMsg carries the favorites cached for the account
type FavoritesLoadedMsg struct {
	IDs map[int]bool
}

// FavoriteToggledMsg reports the outcome of a favorite change. On error the
// optimistic value must be reverted.
type FavoriteToggledMsg struct {
	MovieID  int
	Favorite bool
	Err      error
}

// TickMsg is sent periodically for spinner animation
type TickMsg struct{}

// ClearStatusMsg signals to clear the status message
type ClearStatusMsg struct{}
