package twitter

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	stealth "github.com/anatolykoptev/go-stealth"
)

// stealthTransport sends bridge requests through a browser-fingerprinted
// client. The per-attempt timeout is enforced here because the underlying
// client call is not context-aware.
type stealthTransport struct {
	client  *stealth.BrowserClient
	timeout time.Duration
}

func newStealthTransport(proxy string, timeout time.Duration) (*stealthTransport, error) {
	opts := []stealth.ClientOption{
		stealth.WithHeaderOrder(bridgeHeaderOrder),
	}
	if proxy != "" {
		opts = append(opts, stealth.WithProxy(proxy))
	}
	bc, err := stealth.NewClient(opts...)
	if err != nil {
		return nil, fmt.Errorf("stealth client: %w", err)
	}
	if proxy != "" {
		slog.Info("stealth transport via proxy", slog.String("proxy", stealth.MaskProxy(proxy)))
	}
	return &stealthTransport{client: bc, timeout: timeout}, nil
}

type stealthResult struct {
	body    []byte
	headers map[string]string
	status  int
	err     error
}

func (t *stealthTransport) Do(ctx context.Context, req *Request) (*Response, error) {
	var body io.Reader
	if req.Body != nil {
		body = bytes.NewReader(req.Body)
	}

	// Buffered so the sender never blocks after a timeout.
	ch := make(chan stealthResult, 1)
	go func() {
		b, h, status, err := t.client.DoWithHeaderOrder(req.Method, req.URL, req.Headers, body, bridgeHeaderOrder)
		ch <- stealthResult{body: b, headers: h, status: status, err: err}
	}()

	timer := time.NewTimer(t.timeout)
	defer timer.Stop()

	select {
	case r := <-ch:
		if r.err != nil {
			return nil, r.err
		}
		header := make(map[string]string, len(r.headers))
		for k, v := range r.headers {
			header[strings.ToLower(k)] = v
		}
		return &Response{Status: r.status, Header: header, Body: r.body}, nil
	case <-timer.C:
		return nil, fmt.Errorf("%s %s: %w after %s", req.Method, req.URL, errAttemptTimeout, t.timeout)
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (t *stealthTransport) Close() error {
	return nil
}
