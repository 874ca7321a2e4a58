// Package config loads the bridge client's file configuration.
//
// A config file `<name>.<ext>` may be accompanied by `<name>.local.<ext>`,
// whose keys override the base file, zero values included. Environment
// variables are applied last.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/titanous/json5"
	"gopkg.in/yaml.v3"

	twitter "github.com/anatolykoptev/go-twitter-bridge"
)

// Config is the subset of application configuration the client reads.
type Config struct {
	API        API     `yaml:"api" json:"api"`
	Logging    Logging `yaml:"logging" json:"logging"`
	CookieFile string  `yaml:"cookie_file" json:"cookie_file"`
}

// API configures the bridge connection.
type API struct {
	BaseURL        string  `yaml:"base_url" json:"base_url"`
	TimeoutSeconds float64 `yaml:"timeout_seconds" json:"timeout_seconds"`
	MaxRetries     int     `yaml:"max_retries" json:"max_retries"`
	BackoffBase    float64 `yaml:"backoff_base" json:"backoff_base"`
	Stealth        bool    `yaml:"stealth" json:"stealth"`
	Proxy          string  `yaml:"proxy" json:"proxy"`
}

// Default returns the configuration used when a file sets nothing.
func Default() Config {
	return Config{
		API: API{
			BaseURL:        twitter.DefaultBaseURL,
			TimeoutSeconds: 30,
			MaxRetries:     3,
			BackoffBase:    2,
		},
		Logging: Logging{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads path over the defaults, merges the sibling local override file
// if present, applies environment overrides and validates the result.
func Load(path string) (Config, error) {
	cfg := Default()
	if err := decodeFile(path, &cfg); err != nil {
		return Config{}, err
	}

	// The local file decodes over a copy of the base, so keys it sets win
	// even when zero (stealth: false, max_retries: 0) and absent keys keep
	// the base value.
	localPath := localPath(path)
	local := cfg
	err := decodeFile(localPath, &local)
	switch {
	case err == nil:
		cfg = local
		slog.Info("merging config with local overrides", slog.String("local", localPath))
	case errors.Is(err, os.ErrNotExist):
	default:
		return Config{}, err
	}

	cfg.ApplyEnv(os.LookupEnv)
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// decodeFile unmarshals path into out according to its extension.
func decodeFile(path string, out *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("configuration file %s: %w", path, err)
	}
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, out); err != nil {
			return fmt.Errorf("invalid YAML in %s: %w", path, err)
		}
	case ".json", ".json5":
		if err := json5.Unmarshal(data, out); err != nil {
			return fmt.Errorf("invalid JSON in %s: %w", path, err)
		}
	default:
		return fmt.Errorf("unsupported config format %q", ext)
	}
	return nil
}

// localPath maps "dir/app.yaml" to "dir/app.local.yaml".
func localPath(path string) string {
	ext := filepath.Ext(path)
	return strings.TrimSuffix(path, ext) + ".local" + ext
}

// ApplyEnv overrides fields from environment variables. Unparsable numbers
// are ignored with a warning.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) {
	if v, ok := lookup("API_BASE_URL"); ok {
		c.API.BaseURL = v
	}
	if v, ok := lookup("API_TIMEOUT_SECONDS"); ok {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			c.API.TimeoutSeconds = f
		} else {
			slog.Warn("ignoring invalid env override", slog.String("key", "API_TIMEOUT_SECONDS"), slog.String("value", v))
		}
	}
	if v, ok := lookup("API_MAX_RETRIES"); ok {
		if n, err := strconv.Atoi(v); err == nil {
			c.API.MaxRetries = n
		} else {
			slog.Warn("ignoring invalid env override", slog.String("key", "API_MAX_RETRIES"), slog.String("value", v))
		}
	}
	if v, ok := lookup("API_BACKOFF_BASE"); ok {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			c.API.BackoffBase = f
		} else {
			slog.Warn("ignoring invalid env override", slog.String("key", "API_BACKOFF_BASE"), slog.String("value", v))
		}
	}
	if v, ok := lookup("LOG_LEVEL"); ok {
		c.Logging.Level = v
	}
	if v, ok := lookup("COOKIE_FILE"); ok {
		c.CookieFile = v
	}
}

// Validate checks every value the client depends on.
func (c Config) Validate() error {
	u, err := url.Parse(c.API.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("invalid API base URL format: %q", c.API.BaseURL)
	}
	if c.API.TimeoutSeconds <= 0 {
		return errors.New("timeout must be positive")
	}
	if c.API.MaxRetries < 0 {
		return errors.New("max retries must not be negative")
	}
	if c.API.BackoffBase <= 1 {
		return errors.New("backoff base must be greater than 1")
	}
	if _, err := c.Logging.level(); err != nil {
		return err
	}
	return nil
}

// ClientConfig converts the API section for twitter.NewClient.
func (c Config) ClientConfig() twitter.ClientConfig {
	return twitter.ClientConfig{
		BaseURL:     c.API.BaseURL,
		Timeout:     time.Duration(c.API.TimeoutSeconds * float64(time.Second)),
		MaxRetries:  twitter.Retries(c.API.MaxRetries),
		BackoffBase: c.API.BackoffBase,
		Stealth:     c.API.Stealth,
		Proxy:       c.API.Proxy,
	}
}
