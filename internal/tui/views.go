package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/lipgloss"

	"github.com/mmcdole/marquee/internal/domain"
	"github.com/mmcdole/marquee/internal/tui/styles"
)

// View renders the current screen
func (m Model) View() string {
	if !m.Ready {
		return "Loading..."
	}

	var body string
	switch m.State {
	case ViewSearch:
		body = m.renderSearch()
	case ViewResults:
		body = m.renderResults()
	case ViewDetail:
		body = m.renderDetail()
	case ViewHelp:
		body = m.renderHelp()
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		m.renderHeader(),
		body,
		m.renderFooter(),
	)
}

func (m Model) renderHeader() string {
	title := styles.HeaderStyle.Render("Marquee")
	var info string
	if m.query != "" && m.State != ViewSearch {
		info = styles.DimStyle.Render(fmt.Sprintf("%q  %d results  page %d/%d",
			m.query, m.totalResults, m.currentPage, m.totalPages))
	}
	if m.Loading {
		info += " " + RenderSpinner(m.SpinnerFrame)
	}
	return title + info
}

func (m Model) renderSearch() string {
	box := styles.ActiveBorder.Width(max(m.Width-4, 20)).Render(m.searchInput.View())
	hint := styles.DimStyle.Render("  Type a title and press enter")
	return lipgloss.JoinVertical(lipgloss.Left, box, hint)
}

func (m Model) renderResults() string {
	var b strings.Builder

	if m.filtering || m.filterInput.Value() != "" {
		b.WriteString(styles.FilterPromptStyle.Render(m.filterInput.View()))
		b.WriteString("\n")
	}

	rows := m.visible()
	if len(rows) == 0 {
		if m.Loading {
			b.WriteString(styles.DimStyle.Render("  Searching..."))
		} else {
			b.WriteString(styles.DimStyle.Render("  No movies"))
		}
		return b.String()
	}

	end := min(m.offset+m.listHeight(), len(rows))
	for i := m.offset; i < end; i++ {
		movie := m.movies[rows[i]]
		b.WriteString(RenderMovieItem(movie, m.favorites[movie.ID], i == m.cursor, m.Width))
		if i < end-1 {
			b.WriteString("\n")
		}
	}

	if end == len(rows) && m.currentPage < m.totalPages && m.filtered == nil {
		b.WriteString("\n")
		b.WriteString(styles.DimStyle.Render("  n: load more results"))
	}
	return b.String()
}

// RenderMovieItem renders a movie row for the results list
func RenderMovieItem(movie domain.Movie, favorite, selected bool, width int) string {
	heart := styles.NotFavoriteChar
	heartColor := styles.DimGray
	if favorite {
		heart = styles.FavoriteChar
		heartColor = styles.Pink
	}

	year := movie.ReleaseYear()
	if year == "" {
		year = "----"
	}
	rating := movie.FormattedVoteAverage()

	// Row margins, heart, year column and rating column
	titleWidth := width - 2 - 2 - 6 - 1 - len(rating)
	title := styles.Truncate(movie.Title, titleWidth)
	pad := titleWidth - lipgloss.Width(title)
	if pad < 0 {
		pad = 0
	}

	dim := styles.DimGray
	gold := styles.MarqueeGold
	parts := []styles.RowPart{
		{Text: heart + " ", Foreground: &heartColor},
		{Text: title + strings.Repeat(" ", pad)},
		{Text: " " + year + " ", Foreground: &dim},
		{Text: " " + rating, Foreground: &gold},
	}
	return styles.RenderListRow(parts, selected, width)
}

func (m Model) renderDetail() string {
	if m.overview == nil || m.overview.Detail == nil {
		return styles.DimStyle.Render("  No movie selected")
	}
	d := *m.overview.Detail
	return RenderMovieDetail(d, m.favorites[d.ID], m.Width)
}

// RenderMovieDetail renders the detail screen for a movie
func RenderMovieDetail(d domain.MovieDetail, favorite bool, width int) string {
	var b strings.Builder
	inner := max(width-6, 20)

	heart := styles.NotFavoriteHeart
	if favorite {
		heart = styles.FavoriteHeart
	}
	b.WriteString(heart + " " + styles.TitleStyle.Render(d.Title))
	if d.ReleaseDate != nil {
		b.WriteString(styles.DimStyle.Render(fmt.Sprintf(" (%d)", d.ReleaseDate.Year())))
	}
	b.WriteString("\n")

	if d.OriginalTitle != "" && d.OriginalTitle != d.Title {
		b.WriteString(styles.SubtitleStyle.Render(d.OriginalTitle))
		b.WriteString("\n")
	}
	if d.Tagline != nil && *d.Tagline != "" {
		b.WriteString(styles.TaglineStyle.Render(wordWrap(*d.Tagline, inner)))
		b.WriteString("\n")
	}
	b.WriteString("\n")

	var meta []string
	meta = append(meta, styles.BadgeStyle.Render("★ "+d.FormattedVoteAverage()))
	if rt := d.FormattedRuntime(); rt != "" {
		meta = append(meta, styles.DimBadgeStyle.Render(rt))
	}
	if d.Status != "" {
		meta = append(meta, styles.DimBadgeStyle.Render(d.Status))
	}
	b.WriteString(strings.Join(meta, " "))
	b.WriteString("\n")

	if genres := d.GenreNames(); genres != "" {
		b.WriteString(styles.AccentStyle.Render(genres))
		b.WriteString("\n")
	}
	b.WriteString("\n")

	if d.Overview != "" {
		b.WriteString(styles.SubtitleStyle.Render(wordWrap(d.Overview, inner)))
		b.WriteString("\n\n")
	}

	if budget := d.FormattedBudget(); budget != "" {
		b.WriteString(styles.DimStyle.Render("Budget:  " + budget))
		b.WriteString("\n")
	}
	if revenue := d.FormattedRevenue(); revenue != "" {
		b.WriteString(styles.DimStyle.Render("Revenue: " + revenue))
		b.WriteString("\n")
	}
	if d.Homepage != nil && *d.Homepage != "" {
		b.WriteString(styles.DimStyle.Render(*d.Homepage))
		b.WriteString("\n")
	}

	return styles.DetailStyle.Width(width).Render(b.String())
}

func (m Model) renderHelp() string {
	bindings := []key.Binding{
		m.keys.Up, m.keys.Down, m.keys.PageUp, m.keys.PageDown,
		m.keys.Enter, m.keys.Back, m.keys.Search, m.keys.Filter,
		m.keys.NextPage, m.keys.Favorite, m.keys.Quit,
	}
	var b strings.Builder
	for _, kb := range bindings {
		h := kb.Help()
		fmt.Fprintf(&b, "  %s  %s\n",
			styles.HelpKeyStyle.Render(fmt.Sprintf("%-8s", h.Key)),
			styles.HelpDescStyle.Render(h.Desc))
	}
	b.WriteString("\n")
	b.WriteString(styles.DimStyle.Render("  Press any key to close"))
	return styles.InactiveBorder.Render(b.String())
}

func (m Model) renderFooter() string {
	if m.StatusMsg != "" {
		if m.StatusIsErr {
			return styles.FooterStyle.Render(styles.ErrorStyle.Render(styles.Truncate(m.StatusMsg, m.Width-2)))
		}
		return styles.FooterStyle.Render(styles.SuccessStyle.Render(styles.Truncate(m.StatusMsg, m.Width-2)))
	}

	var parts []string
	for _, kb := range m.keys.ShortHelp() {
		h := kb.Help()
		parts = append(parts, styles.HelpKeyStyle.Render(h.Key)+" "+styles.HelpDescStyle.Render(h.Desc))
	}
	return styles.FooterStyle.Render(strings.Join(parts, "  "))
}

// wordWrap wraps text to the specified width
func wordWrap(text string, width int) string {
	if width <= 0 {
		return text
	}

	var result strings.Builder
	words := strings.Fields(text)
	lineLen := 0

	for i, word := range words {
		wordLen := lipgloss.Width(word)

		if lineLen+wordLen+1 > width && lineLen > 0 {
			result.WriteString("\n")
			lineLen = 0
		}

		if i > 0 && lineLen > 0 {
			result.WriteString(" ")
			lineLen++
		}

		result.WriteString(word)
		lineLen += wordLen
	}

	return result.String()
}

// RenderSpinner renders a loading spinner
func RenderSpinner(frame int) string {
	return styles.SpinnerStyle.Render(styles.SpinnerFrames[frame%len(styles.SpinnerFrames)])
}
