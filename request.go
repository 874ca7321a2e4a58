package twitter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// attemptClass is the outcome of a single attempt.
type attemptClass int

const (
	attemptOK        attemptClass = iota
	attemptTransport              // no response: timeout or connection failure
	attemptTransient              // HTTP 502/503/504
	attemptFatal                  // anything else; never retried
)

// attemptResult is what one attempt produced. The retry loop decides from
// class alone.
type attemptResult struct {
	env     *envelope
	err     error
	class   attemptClass
	status  int
	resetAt time.Time
}

// execute runs a full request sequence: gate, build, retry, classify.
func (c *Client) execute(ctx context.Context, endpoint, method, path string, body map[string]any) (*envelope, error) {
	tr, err := c.transportHandle()
	if err != nil {
		return nil, err
	}
	if err := c.checkAuthentication(); err != nil {
		return nil, err
	}
	if c.limiter != nil && (c.limiter.IsRateLimited(endpoint) || !c.limiter.Allow(endpoint)) {
		c.recordAPICall(endpoint, false, true)
		return nil, fmt.Errorf("%w: %s throttled locally until %s", ErrRateLimited, endpoint,
			c.limiter.AvailableAt(endpoint).Format(time.RFC3339))
	}

	req, err := c.buildRequest(method, path, body)
	if err != nil {
		return nil, err
	}

	ctx, span := c.tracer.Start(ctx, "bridge "+endpoint,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.method", method),
			attribute.String("bridge.path", path),
		))
	defer span.End()

	res, attempts := c.retry(ctx, endpoint, tr, req)
	span.SetAttributes(attribute.Int("bridge.attempts", attempts))
	if res.status != 0 {
		span.SetAttributes(attribute.Int("http.status_code", res.status))
	}

	if res.err != nil {
		rateLimited := errors.Is(res.err, ErrRateLimited)
		if rateLimited && c.limiter != nil {
			c.limiter.MarkRateLimited(endpoint, res.resetAt)
		}
		c.recordAPICall(endpoint, false, rateLimited)
		span.RecordError(res.err)
		span.SetStatus(codes.Error, res.err.Error())
		return nil, res.err
	}

	c.recordAPICall(endpoint, true, false)
	return res.env, nil
}

// checkAuthentication fails before any network activity when the loaded
// cookies do not satisfy the bridge's auth contract.
func (c *Client) checkAuthentication() error {
	if !c.cookies.Complete() {
		return ErrAuthenticationMissing
	}
	if !c.cookies.IsAuthenticated() {
		return fmt.Errorf("%w: cookies invalid or incomplete, missing %s",
			ErrAuthenticationMissing, strings.Join(c.cookies.Missing(), ", "))
	}
	return nil
}

// buildRequest composes URL, headers and body. POST bodies get a fresh copy
// of the essentials under "cookies"; the caller's map is not touched.
func (c *Client) buildRequest(method, path string, body map[string]any) (*Request, error) {
	req := &Request{
		Method:  method,
		URL:     joinURL(c.cfg.BaseURL, path),
		Headers: bridgeHeaders(c.cookies.CookieHeader(), c.cfg.UserAgent),
	}
	if method != http.MethodPost {
		return req, nil
	}

	payload := maps.Clone(body)
	if payload == nil {
		payload = make(map[string]any, 1)
	}
	payload["cookies"] = c.cookies.Essentials()
	b, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode request body: %w", err)
	}
	req.Body = b
	return req, nil
}

// retry performs up to MaxRetries attempts. It returns the last result and
// the number of attempts made.
func (c *Client) retry(ctx context.Context, endpoint string, tr Transport, req *Request) (attemptResult, int) {
	for attempt := range c.maxRetries {
		res := c.attempt(ctx, tr, req)
		switch res.class {
		case attemptOK, attemptFatal:
			return res, attempt + 1
		}

		if attempt == c.maxRetries-1 {
			if res.class == attemptTransport {
				res.err = transportUnavailable(res.err)
			}
			return res, attempt + 1
		}

		delay := c.backoff(attempt)
		slog.Warn("bridge request failed, retrying",
			slog.String("endpoint", endpoint),
			slog.Int("attempt", attempt+1),
			slog.Int("max_retries", c.maxRetries),
			slog.Duration("backoff", delay),
			slog.Any("error", res.err))
		if err := c.sleep(ctx, delay); err != nil {
			return attemptResult{err: err, class: attemptFatal}, attempt + 1
		}
	}
	return attemptResult{err: ErrRetriesExhausted, class: attemptFatal}, c.maxRetries
}

// attempt issues one request and classifies the outcome.
func (c *Client) attempt(ctx context.Context, tr Transport, req *Request) attemptResult {
	resp, err := tr.Do(ctx, req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return attemptResult{err: ctxErr, class: attemptFatal}
		}
		return attemptResult{err: err, class: attemptTransport}
	}

	env, err := classifyResponse(resp)
	res := attemptResult{env: env, err: err, status: resp.Status}
	var httpErr *HTTPError
	switch {
	case err == nil:
		res.class = attemptOK
	case errors.As(err, &httpErr) && httpErr.Transient():
		res.class = attemptTransient
	default:
		res.class = attemptFatal
		if errors.Is(err, ErrRateLimited) {
			res.resetAt = parseRateLimitReset(resp.Header["x-rate-limit-reset"])
		}
	}
	return res
}

// backoff returns BackoffBase^attempt seconds; attempt is zero-indexed.
func (c *Client) backoff(attempt int) time.Duration {
	return time.Duration(math.Pow(c.cfg.BackoffBase, float64(attempt)) * float64(time.Second))
}

// transportUnavailable wraps a final transport failure.
func transportUnavailable(err error) error {
	if IsTimeout(err) {
		return fmt.Errorf("%w: request timeout - bridge may be unavailable: %w", ErrTransportUnavailable, err)
	}
	return fmt.Errorf("%w: connection error - unable to reach bridge: %w", ErrTransportUnavailable, err)
}

// sleepContext waits for d or until ctx is done.
func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// parseRateLimitReset parses the X-Rate-Limit-Reset unix timestamp header.
// Falls back to 15 minutes from now if missing or invalid.
func parseRateLimitReset(v string) time.Time {
	if ts, err := strconv.ParseInt(v, 10, 64); err == nil {
		return time.Unix(ts, 0)
	}
	return time.Now().Add(15 * time.Minute)
}
