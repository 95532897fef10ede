package adapter

import (
	"errors"
	"net/url"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/spf13/viper"
	"go.trai.ch/zerr"

	"github.com/mmcdole/booksync/internal/cache"
	"github.com/mmcdole/booksync/internal/poller"
	"github.com/mmcdole/booksync/internal/retry"
	"github.com/mmcdole/booksync/internal/syncjob"
	"github.com/mmcdole/booksync/internal/transport"
)

const (
	appName   = "booksync"
	envPrefix = "BOOKSYNC"
)

// ErrInvalidConfig is wrapped by every validation failure
var ErrInvalidConfig = zerr.New("invalid configuration")

// Config holds all application configuration
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Retry     RetryConfig     `mapstructure:"retry"`
	Cache     CacheConfig     `mapstructure:"cache"`
	Poll      PollConfig      `mapstructure:"poll"`
	Transport TransportConfig `mapstructure:"transport"`
	Viewer    ViewerConfig    `mapstructure:"viewer"`
	Archive   ArchiveConfig   `mapstructure:"archive"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

// ServerConfig locates the sync service
type ServerConfig struct {
	URL           string        `mapstructure:"url"`        // e.g. http://nas:8000
	APIPrefix     string        `mapstructure:"api_prefix"` // e.g. /api/v1
	Timeout       time.Duration `mapstructure:"timeout"`
	HealthTimeout time.Duration `mapstructure:"health_timeout"`
	CAFile        string        `mapstructure:"ca_file"` // extra trusted root, PEM
	HTTP2         bool          `mapstructure:"http2"`
}

// RetryConfig holds the backoff policy
type RetryConfig struct {
	BaseDelay  time.Duration `mapstructure:"base_delay"`
	MaxRetries int           `mapstructure:"max_retries"`
}

// CacheConfig holds response cache settings
type CacheConfig struct {
	TTL time.Duration `mapstructure:"ttl"`
}

// PollConfig holds sync status polling settings
type PollConfig struct {
	FastInterval time.Duration `mapstructure:"fast_interval"`
	SlowInterval time.Duration `mapstructure:"slow_interval"`
	HistoryLimit int           `mapstructure:"history_limit"`
}

// TransportConfig holds client-side throttling and notification settings
type TransportConfig struct {
	RateLimit       float64  `mapstructure:"rate_limit"` // requests per second, 0 = unlimited
	Burst           int      `mapstructure:"burst"`
	BackgroundPaths []string `mapstructure:"background_paths"`
}

// ViewerConfig selects the program used to open downloaded covers
type ViewerConfig struct {
	Command string   `mapstructure:"command"` // empty = system default
	Args    []string `mapstructure:"args"`
}

// ArchiveConfig locates exported history
type ArchiveConfig struct {
	Dir string `mapstructure:"dir"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	File  string `mapstructure:"file"`
	Level string `mapstructure:"level"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			URL:           "http://localhost:8000",
			APIPrefix:     "/api/v1",
			Timeout:       transport.DefaultTimeout,
			HealthTimeout: transport.HealthTimeout,
			HTTP2:         true,
		},
		Retry: RetryConfig{
			BaseDelay:  retry.DefaultBaseDelay,
			MaxRetries: retry.DefaultMaxRetries,
		},
		Cache: CacheConfig{
			TTL: cache.DefaultTTL,
		},
		Poll: PollConfig{
			FastInterval: poller.DefaultFastInterval,
			SlowInterval: poller.DefaultSlowInterval,
			HistoryLimit: syncjob.DefaultHistoryLimit,
		},
		Transport: TransportConfig{
			BackgroundPaths: append([]string(nil), transport.DefaultBackgroundPaths...),
		},
		Viewer: ViewerConfig{
			Args: []string{},
		},
		Archive: ArchiveConfig{
			Dir: defaultDataPath(),
		},
		Logging: LoggingConfig{
			File:  filepath.Join(defaultDataPath(), appName+".log"),
			Level: "INFO",
		},
	}
}

// defaultDataPath returns the default data directory for the current OS
func defaultDataPath() string {
	switch runtime.GOOS {
	case "windows":
		return filepath.Join(os.Getenv("APPDATA"), appName)
	default:
		home, _ := os.UserHomeDir()
		return filepath.Join(home, ".local", "share", appName)
	}
}

// defaultConfigPath returns the default config directory for the current OS
func defaultConfigPath() string {
	switch runtime.GOOS {
	case "windows":
		return filepath.Join(os.Getenv("APPDATA"), appName)
	default:
		home, _ := os.UserHomeDir()
		return filepath.Join(home, ".config", appName)
	}
}

// setDefaults registers every key so environment overrides apply even
// when no config file mentions them.
func setDefaults(v *viper.Viper, cfg *Config) {
	v.SetDefault("server.url", cfg.Server.URL)
	v.SetDefault("server.api_prefix", cfg.Server.APIPrefix)
	v.SetDefault("server.timeout", cfg.Server.Timeout)
	v.SetDefault("server.health_timeout", cfg.Server.HealthTimeout)
	v.SetDefault("server.ca_file", cfg.Server.CAFile)
	v.SetDefault("server.http2", cfg.Server.HTTP2)

	v.SetDefault("retry.base_delay", cfg.Retry.BaseDelay)
	v.SetDefault("retry.max_retries", cfg.Retry.MaxRetries)

	v.SetDefault("cache.ttl", cfg.Cache.TTL)

	v.SetDefault("poll.fast_interval", cfg.Poll.FastInterval)
	v.SetDefault("poll.slow_interval", cfg.Poll.SlowInterval)
	v.SetDefault("poll.history_limit", cfg.Poll.HistoryLimit)

	v.SetDefault("transport.rate_limit", cfg.Transport.RateLimit)
	v.SetDefault("transport.burst", cfg.Transport.Burst)
	v.SetDefault("transport.background_paths", cfg.Transport.BackgroundPaths)

	v.SetDefault("viewer.command", cfg.Viewer.Command)
	v.SetDefault("viewer.args", cfg.Viewer.Args)

	v.SetDefault("archive.dir", cfg.Archive.Dir)

	v.SetDefault("logging.file", cfg.Logging.File)
	v.SetDefault("logging.level", cfg.Logging.Level)
}

// LoadConfig loads configuration from file and environment. An empty
// configFile searches the default config directory and the working directory.
func LoadConfig(configFile string) (*Config, error) {
	cfg := DefaultConfig()
	v := viper.New()
	setDefaults(v, cfg)

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(defaultConfigPath())
		v.AddConfigPath(".")
	}

	// Environment variable overrides, e.g. BOOKSYNC_SERVER_URL
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) || configFile != "" {
			return nil, zerr.With(zerr.Wrap(err, "error reading config file"), "file", configFile)
		}
		// Config file not found is OK, use defaults
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, zerr.Wrap(err, "error parsing config")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks values that would otherwise fail at request time
func (c *Config) Validate() error {
	u, err := url.Parse(c.Server.URL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return zerr.With(zerr.Wrap(ErrInvalidConfig, "server.url must be an absolute http(s) URL"), "url", c.Server.URL)
	}

	durations := []struct {
		key string
		d   time.Duration
	}{
		{"server.timeout", c.Server.Timeout},
		{"server.health_timeout", c.Server.HealthTimeout},
		{"retry.base_delay", c.Retry.BaseDelay},
		{"cache.ttl", c.Cache.TTL},
		{"poll.fast_interval", c.Poll.FastInterval},
		{"poll.slow_interval", c.Poll.SlowInterval},
	}
	for _, d := range durations {
		if d.d <= 0 {
			return zerr.With(zerr.Wrap(ErrInvalidConfig, d.key+" must be positive"), "value", d.d.String())
		}
	}

	if c.Retry.MaxRetries < 0 {
		return zerr.Wrap(ErrInvalidConfig, "retry.max_retries must not be negative")
	}
	if c.Poll.FastInterval > c.Poll.SlowInterval {
		return zerr.Wrap(ErrInvalidConfig, "poll.fast_interval must not exceed poll.slow_interval")
	}
	if c.Transport.RateLimit < 0 {
		return zerr.Wrap(ErrInvalidConfig, "transport.rate_limit must not be negative")
	}
	return nil
}

// RetryPolicy builds the retry policy
func (c *Config) RetryPolicy() retry.Policy {
	return retry.Policy{
		BaseDelay:  c.Retry.BaseDelay,
		MaxRetries: c.Retry.MaxRetries,
		Retryable:  retry.DefaultRetryable(),
	}
}

// PipelineConfig builds the request pipeline settings
func (c *Config) PipelineConfig(version string) transport.Config {
	return transport.Config{
		BaseURL:         c.Server.URL,
		APIPrefix:       c.Server.APIPrefix,
		Timeout:         c.Server.Timeout,
		Policy:          c.RetryPolicy(),
		BackgroundPaths: c.Transport.BackgroundPaths,
		RateLimit:       c.Transport.RateLimit,
		Burst:           c.Transport.Burst,
		Version:         version,
	}
}

// PollIntervals builds the poller rates
func (c *Config) PollIntervals() poller.Intervals {
	return poller.Intervals{Fast: c.Poll.FastInterval, Slow: c.Poll.SlowInterval}
}
