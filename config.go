package twitter

import (
	"fmt"
	"net/url"
	"time"

	"dario.cat/mergo"
	"github.com/anatolykoptev/go-stealth/ratelimit"
)

// ClientConfig holds all configuration for the bridge client.
type ClientConfig struct {
	// BaseURL is the bridge root. Default: http://localhost:3000
	BaseURL string

	// Timeout bounds each individual attempt, not the whole retry sequence.
	// Default: 30s
	Timeout time.Duration

	// MaxRetries is the maximum number of attempts per request. Nil means
	// the default of 3; Retries(0) makes every request fail with
	// ErrRetriesExhausted without touching the network.
	MaxRetries *int

	// BackoffBase is the base of the exponential backoff; attempt n sleeps
	// BackoffBase^n seconds. Must be > 1. Default: 2
	BackoffBase float64

	// UserAgent overrides the User-Agent header.
	UserAgent string

	// Transport replaces the built-in transport. The client owns it and
	// closes it on Close.
	Transport Transport

	// Stealth selects the browser-fingerprinted transport instead of the
	// plain HTTP one. Ignored when Transport is set.
	Stealth bool

	// Proxy is the proxy URL for the stealth transport.
	Proxy string

	// RateLimit enables client-side per-endpoint rate limiting. Nil disables it.
	RateLimit *ratelimit.Config

	// MetricsHook is called once per request sequence for external metrics collection.
	// endpoint is the operation name, success and rateLimited indicate the outcome.
	MetricsHook func(endpoint string, success, rateLimited bool)
}

const defaultMaxRetries = 3

// Retries returns an attempt count for ClientConfig.MaxRetries.
func Retries(n int) *int {
	return &n
}

// defaults fills in zero-value config fields with sensible defaults.
// MaxRetries is copied so later edits to the caller's int cannot reach the
// client.
func (cfg *ClientConfig) defaults() error {
	if err := mergo.Merge(cfg, ClientConfig{
		BaseURL:     DefaultBaseURL,
		Timeout:     30 * time.Second,
		BackoffBase: 2,
		UserAgent:   defaultUserAgent,
	}); err != nil {
		return fmt.Errorf("apply client defaults: %w", err)
	}
	if cfg.MaxRetries == nil {
		cfg.MaxRetries = Retries(defaultMaxRetries)
	} else {
		cfg.MaxRetries = Retries(*cfg.MaxRetries)
	}
	return nil
}

// validate rejects values the client cannot work with. Called after defaults.
func (cfg *ClientConfig) validate() error {
	u, err := url.Parse(cfg.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("invalid bridge base URL format: %q", cfg.BaseURL)
	}
	if cfg.Timeout < 0 {
		return fmt.Errorf("timeout must be positive, got %s", cfg.Timeout)
	}
	if *cfg.MaxRetries < 0 {
		return fmt.Errorf("max retries must be >= 0, got %d", *cfg.MaxRetries)
	}
	if cfg.BackoffBase <= 1 {
		return fmt.Errorf("backoff base must be > 1, got %g", cfg.BackoffBase)
	}
	return nil
}
