package tui

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/mmcdole/marquee/internal/domain"
	"github.com/mmcdole/marquee/internal/service"
)

// ViewState is the screen currently shown
type ViewState int

const (
	ViewSearch ViewState = iota
	ViewResults
	ViewDetail
	ViewHelp
)

const (
	tickInterval   = 100 * time.Millisecond
	statusDuration = 4 * time.Second

	// Header, search box, and footer
	chromeHeight = 4
)

// Model is the main Bubble Tea model for the application
type Model struct {
	State     ViewState
	prevState ViewState // restored when help closes
	Ready     bool

	// Services
	MovieSvc  *service.MovieService
	Session   *service.SearchSession
	AccountID string

	keys        KeyMap
	searchInput textinput.Model
	filterInput textinput.Model
	filtering   bool

	// Data
	query     string
	movies    []domain.Movie // Display order: each page ranked against the query
	filtered  []int          // Indexes into movies; nil when no filter is applied
	favorites map[int]bool
	overview  *service.MovieOverview

	currentPage  int
	totalPages   int
	totalResults int

	// Cursor
	cursor int
	offset int

	// Dimensions
	Width  int
	Height int

	// UI state
	StatusMsg    string
	StatusIsErr  bool
	Loading      bool
	SpinnerFrame int

	ctx    context.Context // parent of every request
	logger *slog.Logger
}

// NewModel creates the application model. Requests started by the model
// are cancelled when ctx is.
func NewModel(ctx context.Context, svc *service.MovieService, session *service.SearchSession, accountID string, logger *slog.Logger) Model {
	if logger == nil {
		logger = slog.Default()
	}

	search := textinput.New()
	search.Placeholder = "Search movies..."
	search.Prompt = "🔍 "
	search.CharLimit = 100
	search.Focus()

	filter := textinput.New()
	filter.Prompt = "/"
	filter.CharLimit = 50

	return Model{
		State:       ViewSearch,
		MovieSvc:    svc,
		Session:     session,
		AccountID:   accountID,
		keys:        DefaultKeyMap(),
		searchInput: search,
		filterInput: filter,
		favorites:   make(map[int]bool),
		ctx:         ctx,
		logger:      logger,
	}
}

// Init starts the spinner and loads cached favorites
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		textinput.Blink,
		LoadFavoritesCmd(m.ctx, m.MovieSvc, m.AccountID),
		TickCmd(tickInterval),
	)
}

// Update handles all messages
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.Width = msg.Width
		m.Height = msg.Height
		m.Ready = true
		m.searchInput.Width = max(msg.Width-6, 10)
		m.clampCursor()
		return m, nil

	case tea.KeyMsg:
		return m.handleKeyMsg(msg)

	case TickMsg:
		if m.Loading {
			m.SpinnerFrame++
		}
		return m, TickCmd(tickInterval)

	case ClearStatusMsg:
		m.StatusMsg = ""
		m.StatusIsErr = false
		return m, nil

	case SearchResultsMsg:
		m.Loading = false
		m.query = msg.State.Query
		m.movies = service.RankMovies(msg.State.Movies, msg.State.Query)
		m.setPaging(msg.State)
		m.resetFilter()
		m.cursor, m.offset = 0, 0
		if len(m.movies) == 0 {
			cmd := m.setStatus("No movies found", false)
			return m, cmd
		}
		return m, nil

	case NextPageMsg:
		m.Loading = false
		if msg.State.Query != m.query || len(msg.State.Movies) < len(m.movies) {
			return m, nil
		}
		added := msg.State.Movies[len(m.movies):]
		m.movies = append(m.movies, service.RankMovies(added, m.query)...)
		m.setPaging(msg.State)
		m.applyFilter()
		return m, nil

	case OverviewLoadedMsg:
		m.Loading = false
		if msg.Overview.States != nil {
			m.favorites[msg.MovieID] = msg.Overview.States.Favorite
		}
		// The user may have moved on while it loaded
		if m.State == ViewResults {
			m.overview = msg.Overview
			m.State = ViewDetail
		}
		return m, nil

	case FavoritesLoadedMsg:
		for id, fav := range msg.IDs {
			m.favorites[id] = fav
		}
		return m, nil

	case FavoriteToggledMsg:
		return m.handleFavoriteToggled(msg)

	case ErrMsg:
		m.Loading = false
		// Replaced by a newer search; its own result will arrive
		if errors.Is(msg.Err, service.ErrSuperseded) {
			return m, nil
		}
		m.logger.Warn("tui command failed", "context", msg.Context, "error", msg.Err)
		cmd := m.setStatus(msg.Error(), true)
		return m, cmd
	}

	return m.updateInputs(msg)
}

func (m Model) updateInputs(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch {
	case m.State == ViewSearch:
		m.searchInput, cmd = m.searchInput.Update(msg)
	case m.filtering:
		m.filterInput, cmd = m.filterInput.Update(msg)
	}
	return m, cmd
}

func (m Model) handleKeyMsg(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keys.ForceQuit) {
		return m, tea.Quit
	}

	switch m.State {
	case ViewSearch:
		return m.handleSearchKeys(msg)
	case ViewResults:
		if m.filtering {
			return m.handleFilterKeys(msg)
		}
		return m.handleResultsKeys(msg)
	case ViewDetail:
		return m.handleDetailKeys(msg)
	case ViewHelp:
		m.State = m.prevState
		return m, nil
	}
	return m, nil
}

func (m Model) handleSearchKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Enter):
		query := strings.TrimSpace(m.searchInput.Value())
		if query == "" {
			return m, nil
		}
		m.searchInput.Blur()
		m.State = ViewResults
		m.Loading = true
		m.StatusMsg = ""
		return m, SearchCmd(m.ctx, m.Session, query)

	case key.Matches(msg, m.keys.Back):
		if len(m.movies) > 0 {
			m.searchInput.Blur()
			m.State = ViewResults
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.searchInput, cmd = m.searchInput.Update(msg)
	return m, cmd
}

func (m Model) handleFilterKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Back):
		m.resetFilter()
		return m, nil
	case key.Matches(msg, m.keys.Enter):
		m.filtering = false
		m.filterInput.Blur()
		return m, nil
	}

	var cmd tea.Cmd
	m.filterInput, cmd = m.filterInput.Update(msg)
	m.applyFilter()
	return m, cmd
}

func (m Model) handleResultsKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.Help):
		m.prevState = m.State
		m.State = ViewHelp

	case key.Matches(msg, m.keys.Up):
		m.moveCursor(-1)
	case key.Matches(msg, m.keys.Down):
		m.moveCursor(1)
	case key.Matches(msg, m.keys.PageUp):
		m.moveCursor(-m.listHeight())
	case key.Matches(msg, m.keys.PageDown):
		m.moveCursor(m.listHeight())

	case key.Matches(msg, m.keys.Enter):
		movie, ok := m.selectedMovie()
		if !ok {
			return m, nil
		}
		m.Loading = true
		return m, LoadOverviewCmd(m.ctx, m.MovieSvc, movie.ID, m.AccountID)

	case key.Matches(msg, m.keys.NextPage):
		if m.Loading || m.currentPage >= m.totalPages {
			return m, nil
		}
		m.Loading = true
		return m, NextPageCmd(m.ctx, m.Session)

	case key.Matches(msg, m.keys.Filter):
		m.filtering = true
		m.filterInput.SetValue("")
		cmd := m.filterInput.Focus()
		return m, cmd

	case key.Matches(msg, m.keys.Favorite):
		if movie, ok := m.selectedMovie(); ok {
			return m.toggleFavorite(movie.ID)
		}

	case key.Matches(msg, m.keys.Search), key.Matches(msg, m.keys.Back):
		m.State = ViewSearch
		cmd := m.searchInput.Focus()
		return m, cmd
	}
	return m, nil
}

func (m Model) handleDetailKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.Help):
		m.prevState = m.State
		m.State = ViewHelp
	case key.Matches(msg, m.keys.Back):
		m.State = ViewResults
		m.overview = nil
	case key.Matches(msg, m.keys.Favorite):
		if m.overview != nil && m.overview.Detail != nil {
			return m.toggleFavorite(m.overview.Detail.ID)
		}
	}
	return m, nil
}

// toggleFavorite flips the displayed value immediately and reverts it if
// the change fails
func (m Model) toggleFavorite(movieID int) (tea.Model, tea.Cmd) {
	if m.AccountID == "" {
		cmd := m.setStatus("Set tmdb.account_id to manage favorites", true)
		return m, cmd
	}

	favorite := !m.favorites[movieID]
	m.setFavorite(movieID, favorite)
	return m, MarkFavoriteCmd(m.ctx, m.MovieSvc, m.AccountID, movieID, favorite)
}

func (m Model) handleFavoriteToggled(msg FavoriteToggledMsg) (tea.Model, tea.Cmd) {
	if msg.Err != nil {
		m.setFavorite(msg.MovieID, !msg.Favorite)
		m.logger.Warn("favorite change failed", "movieID", msg.MovieID, "favorite", msg.Favorite, "error", msg.Err)
		cmd := m.setStatus("Could not update favorite: "+msg.Err.Error(), true)
		return m, cmd
	}
	if msg.Favorite {
		cmd := m.setStatus("Added to favorites", false)
		return m, cmd
	}
	cmd := m.setStatus("Removed from favorites", false)
	return m, cmd
}

func (m *Model) setFavorite(movieID int, favorite bool) {
	m.favorites[movieID] = favorite
	if m.overview != nil && m.overview.Detail != nil && m.overview.Detail.ID == movieID {
		if m.overview.States == nil {
			m.overview.States = &domain.MovieAccountStates{MovieID: movieID}
		}
		m.overview.States.Favorite = favorite
	}
}

func (m *Model) setStatus(text string, isErr bool) tea.Cmd {
	m.StatusMsg = text
	m.StatusIsErr = isErr
	return ClearStatusCmd(statusDuration)
}

func (m *Model) setPaging(state service.SearchState) {
	m.currentPage = state.CurrentPage
	m.totalPages = state.TotalPages
	m.totalResults = state.TotalResults
}

// === List helpers ===

func (m *Model) resetFilter() {
	m.filtering = false
	m.filterInput.Blur()
	m.filterInput.SetValue("")
	m.filtered = nil
	m.clampCursor()
}

func (m *Model) applyFilter() {
	m.filtered = filterMovies(m.movies, m.filterInput.Value())
	m.cursor, m.offset = 0, 0
}

// visible returns the indexes of the rows currently listed
func (m Model) visible() []int {
	if m.filtered != nil {
		return m.filtered
	}
	idx := make([]int, len(m.movies))
	for i := range idx {
		idx[i] = i
	}
	return idx
}

func (m Model) selectedMovie() (domain.Movie, bool) {
	rows := m.visible()
	if m.cursor < 0 || m.cursor >= len(rows) {
		return domain.Movie{}, false
	}
	return m.movies[rows[m.cursor]], true
}

func (m Model) listHeight() int {
	return max(m.Height-chromeHeight, 1)
}

func (m *Model) moveCursor(delta int) {
	m.cursor += delta
	m.clampCursor()
}

func (m *Model) clampCursor() {
	n := len(m.visible())
	if m.cursor >= n {
		m.cursor = n - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}

	h := m.listHeight()
	if m.cursor < m.offset {
		m.offset = m.cursor
	}
	if m.cursor >= m.offset+h {
		m.offset = m.cursor - h + 1
	}
}
