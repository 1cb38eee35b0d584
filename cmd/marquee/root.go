package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/mmcdole/marquee/internal/config"
	"github.com/mmcdole/marquee/internal/service"
	"github.com/mmcdole/marquee/internal/tui"
)

// RootCommand creates the marquee command tree
func RootCommand() *cobra.Command {
	var configPath string

	rootCmd := &cobra.Command{
		Use:           "marquee",
		Short:         "Browse the movie catalog from the terminal",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, configPath, runTUI)
		},
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default ~/.config/marquee/config.yaml)")

	rootCmd.AddCommand(
		searchCommand(&configPath),
		detailCommand(&configPath),
		statesCommand(&configPath),
		favoriteCommand(&configPath),
		cacheCommand(&configPath),
	)
	return rootCmd
}

// withApp wires the application, prunes expired cache entries, runs fn and
// waits for background writes before returning
func withApp(cmd *cobra.Command, configPath string, fn func(ctx context.Context, cmd *cobra.Command, a *app) error) error {
	a, err := newApp(configPath)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	a.pruneExpired(ctx)

	runErr := fn(ctx, cmd, a)
	if err := a.Close(); err != nil && runErr == nil {
		runErr = fmt.Errorf("failed to close cache: %w", err)
	}
	return runErr
}

// requireCredentials fails commands that need the API before any request
func requireCredentials(a *app) error {
	if !a.cfg.IsConfigured() {
		return errors.New("no TMDB credentials: set tmdb.api_key or MARQUEE_TMDB_API_KEY")
	}
	return nil
}

func runTUI(ctx context.Context, _ *cobra.Command, a *app) error {
	if !term.IsTerminal(int(os.Stdin.Fd())) || !term.IsTerminal(int(os.Stdout.Fd())) {
		return errors.New("the interactive UI needs a terminal; try `marquee search`")
	}
	if err := requireCredentials(a); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	if err := a.serveMetrics(ctx); err != nil {
		return err
	}

	accountID := a.cfg.TMDB.AccountID
	if err := a.accountAccess(); err != nil {
		if a.cfg.HasAccount() {
			a.logger.Warn("favorites disabled", "error", err)
		}
		accountID = ""
	}

	model := tui.NewModel(ctx, a.svc, service.NewSearchSession(a.svc), accountID, a.logger)
	p := tea.NewProgram(
		model,
		tea.WithAltScreen(),
		tea.WithContext(ctx),
	)

	a.logger.Info("starting TUI")
	_, err := p.Run()
	// Commands still running return promptly once their requests are cancelled
	cancel()
	if err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		a.logger.Error("TUI error", "error", err)
		return fmt.Errorf("TUI error: %w", err)
	}
	return nil
}

func searchCommand(configPath *string) *cobra.Command {
	var page int
	cmd := &cobra.Command{
		Use:   "search QUERY",
		Short: "Search movies by title",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, *configPath, func(ctx context.Context, cmd *cobra.Command, a *app) error {
				if err := requireCredentials(a); err != nil {
					return err
				}
				result, err := a.svc.SearchMovies(ctx, args[0], page)
				if err != nil {
					return err
				}
				printSearchResult(cmd.OutOrStdout(), result, a.svc.Language())
				return nil
			})
		},
	}
	cmd.Flags().IntVarP(&page, "page", "p", 1, "result page")
	return cmd
}

func detailCommand(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "detail ID",
		Short: "Show a movie's details",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			movieID, err := parseMovieID(args[0])
			if err != nil {
				return err
			}
			return withApp(cmd, *configPath, func(ctx context.Context, cmd *cobra.Command, a *app) error {
				if err := requireCredentials(a); err != nil {
					return err
				}
				overview, err := a.svc.GetMovieOverview(ctx, movieID, a.cfg.TMDB.AccountID)
				if err != nil {
					return err
				}
				printMovieDetail(cmd.OutOrStdout(), overview.Detail, overview.States)
				return nil
			})
		},
	}
}

func statesCommand(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "states ID",
		Short: "Show the account's flags for a movie",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			movieID, err := parseMovieID(args[0])
			if err != nil {
				return err
			}
			return withApp(cmd, *configPath, func(ctx context.Context, cmd *cobra.Command, a *app) error {
				if err := requireCredentials(a); err != nil {
					return err
				}
				if !a.client.HasAccessToken() {
					return errNoAccessToken
				}
				states, err := a.svc.GetAccountStates(ctx, movieID, a.cfg.TMDB.AccountID)
				if err != nil {
					return err
				}
				printAccountStates(cmd.OutOrStdout(), states)
				return nil
			})
		},
	}
}

func favoriteCommand(configPath *string) *cobra.Command {
	var remove bool
	cmd := &cobra.Command{
		Use:   "favorite ID",
		Short: "Add a movie to the account's favorites",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			movieID, err := parseMovieID(args[0])
			if err != nil {
				return err
			}
			return withApp(cmd, *configPath, func(ctx context.Context, cmd *cobra.Command, a *app) error {
				if err := requireCredentials(a); err != nil {
					return err
				}
				if err := a.accountAccess(); err != nil {
					return err
				}
				if err := a.svc.MarkAsFavorite(ctx, a.cfg.TMDB.AccountID, movieID, !remove); err != nil {
					return err
				}
				if remove {
					fmt.Fprintf(cmd.OutOrStdout(), "Removed %d from favorites\n", movieID)
				} else {
					fmt.Fprintf(cmd.OutOrStdout(), "Added %d to favorites\n", movieID)
				}
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&remove, "remove", false, "remove instead of add")
	return cmd
}

func cacheCommand(configPath *string) *cobra.Command {
	cacheCmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the local cache",
	}

	pruneCmd := &cobra.Command{
		Use:   "prune",
		Short: "Remove expired search results and details",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			// withApp already prunes on start; report the counts explicitly here
			return withApp(cmd, *configPath, func(ctx context.Context, cmd *cobra.Command, a *app) error {
				report, err := a.svc.PruneCache(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Pruned %d searches and %d details\n",
					report.SearchesDeleted, report.DetailsCleared)
				return nil
			})
		},
	}

	var (
		account string
		all     bool
	)
	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete every cached record",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if all {
				// The store stays closed so its directory can be removed
				cfg, err := config.LoadConfig(*configPath)
				if err != nil {
					return fmt.Errorf("failed to load config: %w", err)
				}
				if err := config.ClearCache(cfg); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Removed %s\n", cfg.Cache.Dir)
				return nil
			}
			return withApp(cmd, *configPath, func(ctx context.Context, cmd *cobra.Command, a *app) error {
				if account != "" {
					n, err := a.states.Forget(ctx, account)
					if err != nil {
						return err
					}
					fmt.Fprintf(cmd.OutOrStdout(), "Forgot %d favorites for account %s\n", n, account)
					return nil
				}
				if err := a.store.Purge(); err != nil {
					return fmt.Errorf("failed to clear cache: %w", err)
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Cache cleared")
				return nil
			})
		},
	}
	clearCmd.Flags().StringVar(&account, "account", "", "only forget cached favorites for this account")
	clearCmd.Flags().BoolVar(&all, "all", false, "remove the caches of every API endpoint")
	clearCmd.MarkFlagsMutuallyExclusive("account", "all")

	statsCmd := &cobra.Command{
		Use:   "stats",
		Short: "Show how many records the cache holds",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, *configPath, func(_ context.Context, cmd *cobra.Command, a *app) error {
				fmt.Fprintf(cmd.OutOrStdout(), "Cache: %s\n", a.store.Path())
				return printCacheStats(cmd.OutOrStdout(), a.store)
			})
		},
	}

	cacheCmd.AddCommand(pruneCmd, clearCmd, statsCmd)
	return cacheCmd
}

func parseMovieID(arg string) (int, error) {
	id, err := strconv.Atoi(arg)
	if err != nil || id < 1 {
		return 0, fmt.Errorf("invalid movie ID %q", arg)
	}
	return id, nil
}
