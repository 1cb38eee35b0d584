package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mmcdole/marquee/internal/config"
	"github.com/mmcdole/marquee/internal/loader"
	"github.com/mmcdole/marquee/internal/log"
	"github.com/mmcdole/marquee/internal/metrics"
	"github.com/mmcdole/marquee/internal/service"
	"github.com/mmcdole/marquee/internal/store"
	"github.com/mmcdole/marquee/internal/tmdb"
)

// app holds the wired components shared by every command
type app struct {
	cfg      *config.Config
	logger   *slog.Logger
	store    *store.Store
	client   *tmdb.Client
	bg       *loader.Background
	registry *prometheus.Registry
	svc      *service.MovieService
	states   *loader.LocalAccountStatesLoader

	closeLog func() error
}

// newApp loads configuration and builds the loader stacks. The cache
// directory is scoped by API base URL so different endpoints never share data.
func newApp(configPath string) (*app, error) {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger, closeLog, err := log.SetupLogger(&cfg.Logging)
	if err != nil {
		// Fall back to null logger if file logging fails
		logger = log.NullLogger()
		closeLog = func() error { return nil }
	}
	slog.SetDefault(logger)

	registry := prometheus.NewRegistry()
	m, err := metrics.NewMetrics(registry)
	if err != nil {
		_ = closeLog()
		return nil, fmt.Errorf("failed to register metrics: %w", err)
	}

	client := tmdb.NewClient(tmdb.Options{
		BaseURL:           cfg.TMDB.BaseURL,
		APIKey:            cfg.TMDB.APIKey,
		AccessToken:       cfg.TMDB.ReadAccessToken,
		Timeout:           cfg.TMDB.Timeout,
		RequestsPerSecond: cfg.TMDB.RequestsPerSecond,
		MaxRetries:        cfg.TMDB.MaxRetries,
		Metrics:           m,
		Logger:            logger,
	})

	// Scope by the normalized root the client actually calls
	st, err := store.Open(cfg.Cache.Dir, client.BaseURL())
	if err != nil {
		_ = closeLog()
		return nil, fmt.Errorf("failed to open cache: %w", err)
	}

	localOpts := loader.LocalOptions{TTL: cfg.Cache.TTL, Metrics: m, Logger: logger}
	bg := loader.NewBackground(logger, m)
	localStates := loader.NewLocalAccountStatesLoader(st, localOpts)

	movies := loader.NewMovieStack(
		loader.NewLocalMovieLoader(st, localOpts),
		loader.NewRemoteMovieLoader(client),
		bg, logger,
	)
	states := loader.NewAccountStatesStack(
		localStates,
		loader.NewRemoteAccountStatesLoader(client),
		bg, m, logger,
	)

	svc := service.NewMovieService(movies, states, service.Options{
		Language:     cfg.Preferences.Language,
		IncludeAdult: cfg.Preferences.IncludeAdult,
		Pruner:       loader.NewJanitor(st, localOpts),
		Favorites:    localStates,
		Logger:       logger,
	})

	logger.Info("starting marquee", "version", Version, "api", client.BaseURL(), "cache", st.Path())

	return &app{
		cfg:      cfg,
		logger:   logger,
		store:    st,
		client:   client,
		bg:       bg,
		registry: registry,
		svc:      svc,
		states:   localStates,
		closeLog: closeLog,
	}, nil
}

// pruneExpired drops stale cache entries. Failures only cost disk space.
func (a *app) pruneExpired(ctx context.Context) {
	report, err := a.svc.PruneCache(ctx)
	if err != nil {
		a.logger.Warn("cache prune failed", "error", err)
		return
	}
	a.logger.Info("cache pruned", "searches", report.SearchesDeleted, "details", report.DetailsCleared)
}

// serveMetrics exposes the registry on cfg.Metrics.Listen until ctx is done
func (a *app) serveMetrics(ctx context.Context) error {
	addr := a.cfg.Metrics.Listen
	if addr == "" {
		return nil
	}

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen for metrics: %w", err)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(a.registry, promhttp.HandlerOpts{}))
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Warn("metrics server stopped", "error", err)
		}
	}()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	a.logger.Info("serving metrics", "addr", ln.Addr().String())
	return nil
}

var (
	errNoAccount     = errors.New("no account configured: set tmdb.account_id")
	errNoAccessToken = errors.New("account endpoints need a read access token: set tmdb.read_access_token")
)

// accountAccess reports why account writes cannot be made, or nil.
// They need both an account ID and a bearer token.
func (a *app) accountAccess() error {
	if !a.cfg.HasAccount() {
		return errNoAccount
	}
	if !a.client.HasAccessToken() {
		return errNoAccessToken
	}
	return nil
}

// Close stops background cache writes, then releases the store and log file.
// Tasks submitted after this point are dropped rather than racing the close.
func (a *app) Close() error {
	a.bg.Shutdown()
	err := a.store.Close()
	a.logger.Info("shutting down")
	if cerr := a.closeLog(); err == nil {
		err = cerr
	}
	return err
}
