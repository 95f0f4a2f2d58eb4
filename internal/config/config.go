package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/samber/lo"
	"github.com/spf13/viper"
)

// Config holds all configuration for the Sea tools.
type Config struct {
	// SeaURL is the API base URL, e.g. https://sea.example.com/api.
	SeaURL string `mapstructure:"sea_url" validate:"omitempty,url"`

	// WebsocketURL is the realtime endpoint used for timeline streaming.
	WebsocketURL string `mapstructure:"sea_websocket_url" validate:"omitempty,url"`

	// Token is the bearer token for API requests, usually obtained with the
	// login and callback commands.
	Token string `mapstructure:"sea_token"`

	OAuthAuthorizeURL string `mapstructure:"oauth_authorize_url" validate:"omitempty,url"`
	OAuthTokenURL     string `mapstructure:"oauth_token_url" validate:"omitempty,url"`
	OAuthRedirectURL  string `mapstructure:"oauth_redirect_url" validate:"omitempty,url"`
	ClientID          string `mapstructure:"client_id"`
	ClientSecret      string `mapstructure:"client_secret"`

	// TracingEndpoint is an OTLP/HTTP host:port. Tracing is off when empty.
	TracingEndpoint string `mapstructure:"tracing_endpoint"`
	ServiceName     string `mapstructure:"service_name" validate:"required"`

	LogLevel string `mapstructure:"log_level" validate:"oneof=debug info warn error"`
}

// SlogLevel returns the configured log level.
func (c *Config) SlogLevel() slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return level
}

// RequireSeaURL returns an error when the API base URL is not configured.
func (c *Config) RequireSeaURL() error {
	if c.SeaURL == "" {
		return errors.New("SEA_URL is required")
	}
	return nil
}

// RequireToken returns an error when no API token is configured.
func (c *Config) RequireToken() error {
	if c.Token == "" {
		return errors.New("SEA_TOKEN is required (run login and callback to obtain one)")
	}
	return nil
}

// RequireOAuth returns an error when the OAuth client registration is
// incomplete.
func (c *Config) RequireOAuth() error {
	fields := []lo.Tuple2[string, string]{
		lo.T2("OAUTH_AUTHORIZE_URL", c.OAuthAuthorizeURL),
		lo.T2("OAUTH_TOKEN_URL", c.OAuthTokenURL),
		lo.T2("CLIENT_ID", c.ClientID),
		lo.T2("CLIENT_SECRET", c.ClientSecret),
	}
	missing := lo.FilterMap(fields, func(f lo.Tuple2[string, string], _ int) (string, bool) {
		return f.A, f.B == ""
	})
	if len(missing) > 0 {
		return fmt.Errorf("%s required for OAuth", strings.Join(missing, ", "))
	}
	return nil
}

var envKeys = map[string]string{
	"sea_url":             "SEA_URL",
	"sea_websocket_url":   "SEA_WEBSOCKET_URL",
	"sea_token":           "SEA_TOKEN",
	"oauth_authorize_url": "OAUTH_AUTHORIZE_URL",
	"oauth_token_url":     "OAUTH_TOKEN_URL",
	"oauth_redirect_url":  "OAUTH_REDIRECT_URL",
	"client_id":           "CLIENT_ID",
	"client_secret":       "CLIENT_SECRET",
	"tracing_endpoint":    "SEA_TRACING_ENDPOINT",
	"service_name":        "SEA_SERVICE_NAME",
	"log_level":           "SEA_LOG_LEVEL",
}

// Load reads settings.toml from the working directory or its parent, if
// present, then environment variables, which take precedence.
func Load() (*Config, error) {
	return LoadFrom(".", "..")
}

// LoadFrom is Load with explicit directories to search for settings.toml.
func LoadFrom(dirs ...string) (*Config, error) {
	v := viper.New()
	for _, dir := range dirs {
		v.AddConfigPath(dir)
	}
	v.SetConfigName("settings")
	v.SetConfigType("toml")

	v.SetDefault("service_name", "sea-timeline")
	v.SetDefault("log_level", "info")

	for key, env := range envKeys {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("bind %s: %w", env, err)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read settings: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode settings: %w", err)
	}
	cfg.LogLevel = strings.ToLower(cfg.LogLevel)

	if err := validator.New().Struct(&cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}
