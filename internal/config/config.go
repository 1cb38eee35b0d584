package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	TMDB        TMDBConfig        `mapstructure:"tmdb"`
	Preferences PreferencesConfig `mapstructure:"preferences"`
	Cache       CacheConfig       `mapstructure:"cache"`
	Logging     LoggingConfig     `mapstructure:"logging"`
	Metrics     MetricsConfig     `mapstructure:"metrics"`
}

// TMDBConfig holds movie database API configuration
type TMDBConfig struct {
	BaseURL           string        `mapstructure:"base_url"`
	APIKey            string        `mapstructure:"api_key"`
	ReadAccessToken   string        `mapstructure:"read_access_token"` // Bearer token for account endpoints
	AccountID         string        `mapstructure:"account_id"`        // Optional; enables favorites
	Timeout           time.Duration `mapstructure:"timeout"`
	RequestsPerSecond float64       `mapstructure:"requests_per_second"`
	MaxRetries        int           `mapstructure:"max_retries"`
}

// PreferencesConfig holds request defaults
type PreferencesConfig struct {
	Language     string `mapstructure:"language"`
	IncludeAdult bool   `mapstructure:"include_adult"`
}

// CacheConfig holds local cache configuration
type CacheConfig struct {
	Dir string        `mapstructure:"dir"`
	TTL time.Duration `mapstructure:"ttl"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	File  string `mapstructure:"file"`
	Level string `mapstructure:"level"`
}

// MetricsConfig holds the optional prometheus endpoint
type MetricsConfig struct {
	Listen string `mapstructure:"listen"` // e.g. "127.0.0.1:9464"; empty disables
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		TMDB: TMDBConfig{
			BaseURL:           "https://api.themoviedb.org/3",
			Timeout:           30 * time.Second,
			RequestsPerSecond: 20,
			MaxRetries:        3,
		},
		Preferences: PreferencesConfig{
			Language:     "en-US",
			IncludeAdult: false,
		},
		Cache: CacheConfig{
			Dir: defaultCachePath(),
			TTL: 24 * time.Hour,
		},
		Logging: LoggingConfig{
			File:  defaultLogPath(),
			Level: "INFO",
		},
	}
}

// defaultLogPath returns the default log file path for the current OS
func defaultLogPath() string {
	switch runtime.GOOS {
	case "windows":
		return filepath.Join(os.Getenv("APPDATA"), "marquee", "marquee.log")
	default:
		home, _ := os.UserHomeDir()
		return filepath.Join(home, ".local", "share", "marquee", "marquee.log")
	}
}

// defaultConfigPath returns the default config directory for the current OS
func defaultConfigPath() string {
	switch runtime.GOOS {
	case "windows":
		return filepath.Join(os.Getenv("APPDATA"), "marquee")
	default:
		home, _ := os.UserHomeDir()
		return filepath.Join(home, ".config", "marquee")
	}
}

// defaultCachePath returns the default cache directory for the current OS
func defaultCachePath() string {
	switch runtime.GOOS {
	case "windows":
		return filepath.Join(os.Getenv("LOCALAPPDATA"), "marquee", "cache")
	default:
		home, _ := os.UserHomeDir()
		return filepath.Join(home, ".local", "share", "marquee", "cache")
	}
}

// LoadConfig loads configuration from file and environment.
// An empty path searches the default config directory and the working directory.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()
	v := viper.New()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(defaultConfigPath())
		v.AddConfigPath(".")
	}

	// Environment variable overrides (MARQUEE_TMDB_API_KEY, ...)
	v.SetEnvPrefix("MARQUEE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	bindKeys(v, cfg)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found is OK, use defaults
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("error parsing config: %w", err)
	}

	cfg.Cache.Dir = expandHome(cfg.Cache.Dir)
	cfg.Logging.File = expandHome(cfg.Logging.File)

	return cfg, nil
}

// bindKeys registers every key with its default so AutomaticEnv can
// override keys that are absent from the config file.
func bindKeys(v *viper.Viper, cfg *Config) {
	v.SetDefault("tmdb.base_url", cfg.TMDB.BaseURL)
	v.SetDefault("tmdb.api_key", cfg.TMDB.APIKey)
	v.SetDefault("tmdb.read_access_token", cfg.TMDB.ReadAccessToken)
	v.SetDefault("tmdb.account_id", cfg.TMDB.AccountID)
	v.SetDefault("tmdb.timeout", cfg.TMDB.Timeout)
	v.SetDefault("tmdb.requests_per_second", cfg.TMDB.RequestsPerSecond)
	v.SetDefault("tmdb.max_retries", cfg.TMDB.MaxRetries)

	v.SetDefault("preferences.language", cfg.Preferences.Language)
	v.SetDefault("preferences.include_adult", cfg.Preferences.IncludeAdult)

	v.SetDefault("cache.dir", cfg.Cache.Dir)
	v.SetDefault("cache.ttl", cfg.Cache.TTL)

	v.SetDefault("logging.file", cfg.Logging.File)
	v.SetDefault("logging.level", cfg.Logging.Level)

	v.SetDefault("metrics.listen", cfg.Metrics.Listen)
}

// expandHome expands a leading ~ to the user's home directory
func expandHome(path string) string {
	if !strings.HasPrefix(path, "~") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[1:])
}

// IsConfigured returns true if some form of API credential is set
func (c *Config) IsConfigured() bool {
	return c.TMDB.APIKey != "" || c.TMDB.ReadAccessToken != ""
}

// HasAccount returns true if an account is configured for favorites
func (c *Config) HasAccount() bool {
	return c.TMDB.AccountID != ""
}

// ClearCache removes all cached data under the configured cache directory
func ClearCache(cfg *Config) error {
	if err := os.RemoveAll(cfg.Cache.Dir); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to clear cache: %w", err)
	}
	return nil
}
