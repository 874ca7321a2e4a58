package twitter

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/anatolykoptev/go-stealth/ratelimit"
	"github.com/anatolykoptev/go-twitter-bridge/cookies"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/anatolykoptev/go-twitter-bridge"

// Client talks to the Node.js bridge with harvested session cookies.
// One transport is acquired by NewClient and reused until Close.
type Client struct {
	cfg        ClientConfig
	maxRetries int
	cookies    cookies.Store
	limiter    *ratelimit.Limiter
	tracer     trace.Tracer

	// sleep and now are swapped in tests.
	sleep func(ctx context.Context, d time.Duration) error
	now   func() time.Time

	mu        sync.RWMutex
	transport Transport
}

// NewClient creates a bridge client. cfg is copied; zero fields get defaults.
func NewClient(cfg ClientConfig) (*Client, error) {
	if err := cfg.defaults(); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	tr := cfg.Transport
	switch {
	case tr != nil:
	case cfg.Stealth:
		st, err := newStealthTransport(cfg.Proxy, cfg.Timeout)
		if err != nil {
			return nil, err
		}
		tr = st
	default:
		tr = newRestyTransport(cfg.Timeout)
	}

	c := &Client{
		cfg:        cfg,
		maxRetries: *cfg.MaxRetries,
		tracer:     otel.Tracer(tracerName),
		sleep:      sleepContext,
		now:        time.Now,
		transport:  tr,
	}
	if cfg.RateLimit != nil {
		c.limiter = ratelimit.NewLimiter(*cfg.RateLimit)
	}

	slog.Debug("bridge client ready",
		slog.String("base_url", cfg.BaseURL),
		slog.Duration("timeout", cfg.Timeout),
		slog.Int("max_retries", *cfg.MaxRetries),
		slog.Float64("backoff_base", cfg.BackoffBase),
		slog.Bool("stealth", cfg.Stealth && cfg.Transport == nil))
	return c, nil
}

// Close releases the transport. Any later call, including a second Close,
// fails with ErrClosed.
func (c *Client) Close() error {
	c.mu.Lock()
	tr := c.transport
	c.transport = nil
	c.mu.Unlock()

	if tr == nil {
		return ErrClosed
	}
	if err := tr.Close(); err != nil {
		return fmt.Errorf("close transport: %w", err)
	}
	return nil
}

// transportHandle returns the live transport or ErrClosed.
func (c *Client) transportHandle() (Transport, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.transport == nil {
		return nil, ErrClosed
	}
	return c.transport, nil
}

// LoadCookies replaces the credential bundle.
func (c *Client) LoadCookies(b cookies.Bundle) {
	c.cookies.Load(b)
	if missing := b.Missing(); len(missing) > 0 {
		slog.Warn("loaded cookies lack essentials", slog.Any("missing", missing))
	}
	if diff := b.Inconsistent(); len(diff) > 0 {
		slog.Warn("cookie header disagrees with essentials", slog.Any("cookies", diff))
	}
}

// LoadCookieFile reads a harvested bundle from path and loads it.
func (c *Client) LoadCookieFile(path string) error {
	b, err := cookies.ReadFile(path)
	if err != nil {
		return err
	}
	c.cookies.Load(b)
	return nil
}

// Essentials returns the essential auth cookies, or an empty map.
func (c *Client) Essentials() map[string]string {
	return c.cookies.Essentials()
}

// CookieHeader returns the Cookie header sent to the bridge.
func (c *Client) CookieHeader() string {
	return c.cookies.CookieHeader()
}

// IsAuthenticated reports whether all essential cookies are present and non-empty.
func (c *Client) IsAuthenticated() bool {
	return c.cookies.IsAuthenticated()
}

// Config returns the effective configuration after defaults.
func (c *Client) Config() ClientConfig {
	return c.cfg
}

// recordAPICall calls the metrics hook if configured.
func (c *Client) recordAPICall(endpoint string, success, rateLimited bool) {
	if c.cfg.MetricsHook != nil {
		c.cfg.MetricsHook(endpoint, success, rateLimited)
	}
}
