package twitter

import (
	"context"
	"errors"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/anatolykoptev/go-twitter-bridge/cookies"
	"github.com/stretchr/testify/require"
)

// scriptedTransport replays one step per call and records every request.
type scriptedTransport struct {
	mu     sync.Mutex
	steps  []func(*Request) (*Response, error)
	calls  []*Request
	closed int
}

func (s *scriptedTransport) Do(_ context.Context, req *Request) (*Response, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, req)
	i := len(s.calls) - 1
	if i >= len(s.steps) {
		return nil, errors.New("unexpected extra call")
	}
	return s.steps[i](req)
}

func (s *scriptedTransport) Close() error {
	s.mu.Lock()
	s.closed++
	s.mu.Unlock()
	return nil
}

func (s *scriptedTransport) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.calls)
}

func reply(status int, body string) func(*Request) (*Response, error) {
	return func(*Request) (*Response, error) {
		return &Response{Status: status, Body: []byte(body)}, nil
	}
}

func connRefused() func(*Request) (*Response, error) {
	return func(*Request) (*Response, error) {
		return nil, &net.OpError{Op: "dial", Net: "tcp", Err: errors.New("connect: connection refused")}
	}
}

func timedOut() func(*Request) (*Response, error) {
	return func(*Request) (*Response, error) {
		return nil, errAttemptTimeout
	}
}

func validCookies() []cookies.Cookie {
	return []cookies.Cookie{
		{Name: "auth_token", Value: "tok", Domain: ".x.com", Path: "/", Secure: true, HTTPOnly: true},
		{Name: "ct0", Value: "csrf", Domain: ".x.com", Path: "/"},
		{Name: "twid", Value: "u%3D42", Domain: ".x.com", Path: "/"},
		{Name: "guest_id", Value: "v1%3A1", Domain: ".x.com", Path: "/"},
		{Name: "att", Value: "att-val", Domain: ".x.com", Path: "/"},
		{Name: "lang", Value: "en", Domain: "x.com", Path: "/"},
	}
}

func validBundle() cookies.Bundle {
	return cookies.NewBundle(validCookies())
}

// newTestClient builds an authenticated client over tr. Backoff sleeps are
// recorded instead of slept.
func newTestClient(t *testing.T, tr Transport, cfg ClientConfig) (*Client, *[]time.Duration) {
	t.Helper()
	cfg.Transport = tr
	c, err := NewClient(cfg)
	require.NoError(t, err)
	var delays []time.Duration
	c.sleep = func(_ context.Context, d time.Duration) error {
		delays = append(delays, d)
		return nil
	}
	c.LoadCookies(validBundle())
	return c, &delays
}

const sampleTweetJSON = `{
	"id": "1234567890123456789",
	"text": "Is anyone else excited about #golang? @gopher https://go.dev",
	"user": {
		"id": "42",
		"username": "gopher",
		"displayName": "Gopher",
		"bio": "Mascot",
		"verified": true,
		"followers": 12000,
		"following": 100,
		"joinDate": "2009-11-10T23:00:00Z",
		"tweetCount": 500
	},
	"createdAt": "2024-01-15T10:30:00Z",
	"engagement": {"likes": 10, "retweets": 2, "replies": 3, "views": 1000},
	"hashtags": ["golang"],
	"mentions": ["gopher"],
	"media": [{"type": "photo", "url": "https://pbs.twimg.com/media/x.jpg"}],
	"isThread": true,
	"threadPosition": 1
}`
