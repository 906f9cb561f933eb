// Package config loads and validates the application configuration.
package config

import (
	"errors"
	"fmt"
	"net/netip"
	"net/url"
	"strings"

	"github.com/spf13/viper"
)

// EnvPrefix is the prefix for environment overrides, e.g. MOVIEBROWSER_SERVER_PORT.
const EnvPrefix = "MOVIEBROWSER"

// Config holds all application configuration.
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	TMDB    TMDBConfig    `mapstructure:"tmdb"`
	Player  PlayerConfig  `mapstructure:"player"`
	Enrich  EnrichConfig  `mapstructure:"enrich"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host      string  `mapstructure:"host"`
	Port      int     `mapstructure:"port"`
	StaticDir string  `mapstructure:"static_dir"`
	RateLimit float64 `mapstructure:"rate_limit"` // requests per second per client IP, 0 disables
	RateBurst int     `mapstructure:"rate_burst"`
	// TrustedProxies are IPs or CIDRs allowed to set X-Forwarded-For.
	TrustedProxies []string `mapstructure:"trusted_proxies"`
}

// TMDBConfig holds the upstream metadata API settings.
type TMDBConfig struct {
	APIKey  string `mapstructure:"api_key"`
	BaseURL string `mapstructure:"base_url"`
	Timeout int    `mapstructure:"timeout"` // seconds
}

// PlayerConfig holds the video embed settings.
type PlayerConfig struct {
	EmbedBaseURL string `mapstructure:"embed_base_url"`
}

// EnrichConfig tunes the search enrichment fan-out.
type EnrichConfig struct {
	MaxConcurrency int `mapstructure:"max_concurrency"` // 0 means one lookup per TV result at once
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Path   string `mapstructure:"path"`
}

// Default returns a Config with default values.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:      "0.0.0.0",
			Port:      8080,
			RateBurst: 20,
		},
		TMDB: TMDBConfig{
			BaseURL: "https://api.themoviedb.org/3",
			Timeout: 30,
		},
		Player: PlayerConfig{
			EmbedBaseURL: "https://vidsrc.xyz/embed",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// Load reads configuration from file and environment variables.
// Priority: environment variables > config file > defaults
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// The API key keeps its conventional name.
	if err := v.BindEnv("tmdb.api_key", EnvPrefix+"_TMDB_API_KEY", "TMDB_API_KEY"); err != nil {
		return nil, fmt.Errorf("failed to bind api key: %w", err)
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	d := Default()

	v.SetDefault("server.host", d.Server.Host)
	v.SetDefault("server.port", d.Server.Port)
	v.SetDefault("server.static_dir", d.Server.StaticDir)
	v.SetDefault("server.rate_limit", d.Server.RateLimit)
	v.SetDefault("server.rate_burst", d.Server.RateBurst)
	v.SetDefault("server.trusted_proxies", []string{})

	v.SetDefault("tmdb.api_key", d.TMDB.APIKey)
	v.SetDefault("tmdb.base_url", d.TMDB.BaseURL)
	v.SetDefault("tmdb.timeout", d.TMDB.Timeout)

	v.SetDefault("player.embed_base_url", d.Player.EmbedBaseURL)

	v.SetDefault("enrich.max_concurrency", d.Enrich.MaxConcurrency)

	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("logging.format", d.Logging.Format)
	v.SetDefault("logging.path", d.Logging.Path)
}

// Validate checks the configuration once before the server accepts traffic.
// A missing API key is not an error; see MissingAPIKey.
func (c *Config) Validate() error {
	var errs []error

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port %d out of range", c.Server.Port))
	}
	if c.Server.RateLimit < 0 {
		errs = append(errs, fmt.Errorf("server.rate_limit must not be negative"))
	}
	if c.Server.RateLimit > 0 && c.Server.RateBurst < 1 {
		errs = append(errs, fmt.Errorf("server.rate_burst must be at least 1 when rate limiting"))
	}
	for _, proxy := range c.Server.TrustedProxies {
		if err := validateProxy(proxy); err != nil {
			errs = append(errs, fmt.Errorf("server.trusted_proxies: %w", err))
		}
	}
	if err := validateHTTPURL(c.TMDB.BaseURL); err != nil {
		errs = append(errs, fmt.Errorf("tmdb.base_url: %w", err))
	}
	if c.TMDB.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("tmdb.timeout must be positive"))
	}
	if err := validateHTTPURL(c.Player.EmbedBaseURL); err != nil {
		errs = append(errs, fmt.Errorf("player.embed_base_url: %w", err))
	}
	if c.Enrich.MaxConcurrency < 0 {
		errs = append(errs, fmt.Errorf("enrich.max_concurrency must not be negative"))
	}
	switch c.Logging.Level {
	case "trace", "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("logging.level %q is not supported", c.Logging.Level))
	}
	switch c.Logging.Format {
	case "console", "json":
	default:
		errs = append(errs, fmt.Errorf("logging.format %q is not supported", c.Logging.Format))
	}

	return errors.Join(errs...)
}

// MissingAPIKey reports whether no upstream API key was configured.
func (c *Config) MissingAPIKey() bool {
	return strings.TrimSpace(c.TMDB.APIKey) == ""
}

// Address returns the server address string.
func (c *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

func validateProxy(raw string) error {
	raw = strings.TrimSpace(raw)
	if strings.Contains(raw, "/") {
		_, err := netip.ParsePrefix(raw)
		return err
	}
	_, err := netip.ParseAddr(raw)
	return err
}

func validateHTTPURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%q must use http or https", raw)
	}
	if u.Host == "" {
		return fmt.Errorf("%q has no host", raw)
	}
	return nil
}
