// Package config provides configuration loading from YAML files.
package config

import (
	"os"

	"github.com/cockroachdb/errors"
	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Config represents the application configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	App      AppConfig      `yaml:"app"`
	Spotify  SpotifyConfig  `yaml:"spotify"`
	Stripe   StripeConfig   `yaml:"stripe"`
}

// ServerConfig represents HTTP server configuration.
type ServerConfig struct {
	Addr string `yaml:"addr" default:":8080"`
}

// DatabaseConfig represents the Postgres connection configuration.
type DatabaseConfig struct {
	URL string `yaml:"url" validate:"required"`
}

// AppConfig represents cross-cutting application settings.
type AppConfig struct {
	// PublicURL is the guest-facing web origin, used as the fallback
	// base for payment redirect URLs when the request carries no Origin.
	PublicURL string `yaml:"public_url" default:"http://localhost:5173" validate:"url"`
}

// SpotifyConfig represents Spotify integration configuration.
// Client id/secret are per-venue and live in the database; only the
// OAuth redirect target is server-wide.
type SpotifyConfig struct {
	RedirectURL string `yaml:"redirect_url" validate:"required,url"`
}

// StripeConfig represents Stripe Checkout configuration.
type StripeConfig struct {
	SecretKey string `yaml:"secret_key" validate:"required"`
	Currency  string `yaml:"currency" default:"sek" validate:"len=3"`
	Locale    string `yaml:"locale" default:"sv"`
}

// Load loads configuration from a YAML file.
// Environment variables take precedence over file values for secrets.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read config file")
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, errors.Wrap(err, "failed to parse config file")
	}

	cfg.overrideFromEnv()

	if err := defaults.Set(&cfg); err != nil {
		return nil, errors.Wrap(err, "failed to set defaults")
	}

	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "config validation failed")
	}

	return &cfg, nil
}

// overrideFromEnv overrides config values with environment variables.
func (c *Config) overrideFromEnv() {
	if v := os.Getenv("DATABASE_URL"); v != "" {
		c.Database.URL = v
	}
	if v := os.Getenv("STRIPE_SECRET_KEY"); v != "" {
		c.Stripe.SecretKey = v
	}
	if v := os.Getenv("SPOTIFY_REDIRECT_URL"); v != "" {
		c.Spotify.RedirectURL = v
	}
	if v := os.Getenv("PUBLIC_URL"); v != "" {
		c.App.PublicURL = v
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return errors.Wrap(err, "struct validation failed")
	}
	return nil
}
