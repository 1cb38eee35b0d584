package main

import (
	"fmt"
	"io"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/mmcdole/marquee/internal/domain"
	"github.com/mmcdole/marquee/internal/store"
	"github.com/mmcdole/marquee/internal/tui/styles"
)

func printSearchResult(w io.Writer, result *domain.SearchResult, language string) {
	if result.IsEmpty() {
		fmt.Fprintln(w, "No movies found")
		return
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(styles.DimStyle).
		Headers("ID", "TITLE", "YEAR", "RATING")
	for _, m := range result.Movies {
		t.Row(strconv.Itoa(m.ID), m.Title, m.ReleaseYear(), m.FormattedVoteAverage())
	}
	fmt.Fprintln(w, t.Render())
	fmt.Fprintf(w, "Page %d of %d (%d results, %s)\n", result.CurrentPage, result.TotalPages, result.TotalResults, language)
}

func printMovieDetail(w io.Writer, d *domain.MovieDetail, states *domain.MovieAccountStates) {
	title := d.Title
	if year := d.Summary().ReleaseYear(); year != "" {
		title += " (" + year + ")"
	}
	fmt.Fprintln(w, styles.TitleStyle.Render(title))
	if d.Tagline != nil && *d.Tagline != "" {
		fmt.Fprintln(w, styles.TaglineStyle.Render(*d.Tagline))
	}
	fmt.Fprintln(w)

	field := func(label, value string) {
		if value != "" {
			fmt.Fprintf(w, "%-10s %s\n", label+":", value)
		}
	}
	field("Rating", d.FormattedVoteAverage())
	field("Runtime", d.FormattedRuntime())
	field("Status", d.Status)
	field("Genres", d.GenreNames())
	field("Budget", d.FormattedBudget())
	field("Revenue", d.FormattedRevenue())
	field("Poster", d.PosterURL())
	field("Backdrop", d.BackdropURL())
	if states != nil {
		field("Favorite", strconv.FormatBool(states.Favorite))
	}

	if d.Overview != "" {
		fmt.Fprintln(w)
		fmt.Fprintln(w, d.Overview)
	}
}

func printAccountStates(w io.Writer, states *domain.MovieAccountStates) {
	if states == nil {
		fmt.Fprintln(w, "No account states (is tmdb.account_id set?)")
		return
	}
	fmt.Fprintf(w, "Movie:     %d\n", states.MovieID)
	fmt.Fprintf(w, "Favorite:  %t\n", states.Favorite)
	fmt.Fprintf(w, "Rated:     %t\n", states.Rated)
	fmt.Fprintf(w, "Watchlist: %t\n", states.Watchlist)
}

// bucketCounter is the part of the store printCacheStats reads
type bucketCounter interface {
	Count(bucket []byte) (int, error)
}

func printCacheStats(w io.Writer, st bucketCounter) error {
	buckets := []struct {
		label  string
		bucket []byte
	}{
		{"Searches", store.BucketSearches},
		{"Movies", store.BucketMovies},
		{"Details", store.BucketDetails},
		{"Favorites", store.BucketFavorites},
	}
	for _, b := range buckets {
		n, err := st.Count(b.bucket)
		if err != nil {
			return fmt.Errorf("failed to count %s: %w", b.label, err)
		}
		fmt.Fprintf(w, "%-10s %d\n", b.label+":", n)
	}
	return nil
}
