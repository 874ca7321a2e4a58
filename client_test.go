package twitter

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/anatolykoptev/go-twitter-bridge/cookies"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewClient_Defaults(t *testing.T) {
	c, err := NewClient(ClientConfig{})
	require.NoError(t, err)
	defer c.Close()

	cfg := c.Config()
	assert.Equal(t, DefaultBaseURL, cfg.BaseURL)
	assert.Equal(t, 30*time.Second, cfg.Timeout)
	assert.Equal(t, 3, *cfg.MaxRetries)
	assert.Equal(t, 2.0, cfg.BackoffBase)
	assert.Equal(t, defaultUserAgent, cfg.UserAgent)
	assert.IsType(t, &restyTransport{}, c.transport)
	assert.False(t, c.IsAuthenticated())
	assert.Empty(t, c.Essentials())
	assert.Empty(t, c.CookieHeader())
}

func TestNewClient_InvalidConfig(t *testing.T) {
	tests := []struct {
		name string
		cfg  ClientConfig
	}{
		{"no scheme", ClientConfig{BaseURL: "localhost:3000"}},
		{"garbage url", ClientConfig{BaseURL: "::not a url"}},
		{"negative timeout", ClientConfig{Timeout: -time.Second}},
		{"negative retries", ClientConfig{MaxRetries: Retries(-1)}},
		{"backoff base one", ClientConfig{BackoffBase: 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewClient(tt.cfg)
			require.Error(t, err)
		})
	}
}

func TestClose(t *testing.T) {
	tr := &scriptedTransport{}
	c, _ := newTestClient(t, tr, ClientConfig{})

	require.NoError(t, c.Close())
	assert.Equal(t, 1, tr.closed)
	require.ErrorIs(t, c.Close(), ErrClosed)
	assert.Equal(t, 1, tr.closed)

	_, err := c.FetchTimeline(context.Background(), 1)
	require.ErrorIs(t, err, ErrClosed)
	_, err = c.FetchByID(context.Background(), "1")
	require.ErrorIs(t, err, ErrClosed)
	_, err = c.FetchLatest(context.Background())
	require.ErrorIs(t, err, ErrClosed)
	assert.Zero(t, tr.callCount())
}

func TestFetchLatest(t *testing.T) {
	t.Run("empty timeline", func(t *testing.T) {
		tr := &scriptedTransport{steps: []func(*Request) (*Response, error){reply(200, emptyTimeline)}}
		c, _ := newTestClient(t, tr, ClientConfig{})

		_, err := c.FetchLatest(context.Background())
		require.ErrorIs(t, err, ErrEmptyResult)

		var body map[string]any
		require.NoError(t, json.Unmarshal(tr.calls[0].Body, &body))
		assert.Equal(t, float64(1), body["count"])
	})

	t.Run("null data", func(t *testing.T) {
		tr := &scriptedTransport{steps: []func(*Request) (*Response, error){reply(200, `{"success":true,"data":null}`)}}
		c, _ := newTestClient(t, tr, ClientConfig{})

		_, err := c.FetchLatest(context.Background())
		require.ErrorIs(t, err, ErrEmptyResult)
	})

	t.Run("first post", func(t *testing.T) {
		tr := &scriptedTransport{steps: []func(*Request) (*Response, error){
			reply(200, `{"success":true,"data":[`+sampleTweetJSON+`,{"id":"2","text":"second"}]}`),
		}}
		c, _ := newTestClient(t, tr, ClientConfig{})

		post, err := c.FetchLatest(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "1234567890123456789", post.ID)
	})
}

func TestFetchByID_NullData(t *testing.T) {
	tr := &scriptedTransport{steps: []func(*Request) (*Response, error){reply(200, `{"success":true}`)}}
	c, _ := newTestClient(t, tr, ClientConfig{})

	_, err := c.FetchByID(context.Background(), "77")
	require.ErrorIs(t, err, ErrEmptyResult)
	assert.Contains(t, err.Error(), "Tweet 77")
}

func TestFetchByID_EscapesID(t *testing.T) {
	tr := &scriptedTransport{steps: []func(*Request) (*Response, error){reply(200, `{"success":true,"data":{"id":"a/b"}}`)}}
	c, _ := newTestClient(t, tr, ClientConfig{})

	_, err := c.FetchByID(context.Background(), "a/b")
	require.NoError(t, err)
	assert.Equal(t, DefaultBaseURL+"/api/tweet/a%2Fb", tr.calls[0].URL)
}

func TestPlaceholders(t *testing.T) {
	tr := &scriptedTransport{}
	c, _ := newTestClient(t, tr, ClientConfig{})
	ctx := context.Background()

	_, err := c.Search(ctx, "golang", 10)
	require.ErrorIs(t, err, ErrNotImplemented)
	_, err = c.FetchProfile(ctx, "gopher")
	require.ErrorIs(t, err, ErrNotImplemented)
	_, err = c.FetchTrends(ctx, "worldwide")
	require.ErrorIs(t, err, ErrNotImplemented)
	_, err = c.FetchMentions(ctx, 10)
	require.ErrorIs(t, err, ErrNotImplemented)
	assert.Zero(t, tr.callCount())
}

func TestLoadCookieFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cookies.json")
	require.NoError(t, cookies.WriteFile(path, validBundle()))

	c, err := NewClient(ClientConfig{Transport: &scriptedTransport{}})
	require.NoError(t, err)
	require.NoError(t, c.LoadCookieFile(path))
	assert.True(t, c.IsAuthenticated())
	assert.Equal(t, "tok", c.Essentials()["auth_token"])

	require.Error(t, c.LoadCookieFile(filepath.Join(t.TempDir(), "missing.json")))
}

func TestLoadCookies_WarnsOnHeaderMismatch(t *testing.T) {
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(&buf, nil)))
	t.Cleanup(func() { slog.SetDefault(prev) })

	c, err := NewClient(ClientConfig{Transport: &scriptedTransport{}})
	require.NoError(t, err)

	c.LoadCookies(validBundle())
	assert.Empty(t, buf.String())

	b := validBundle()
	b.CookieHeader = "auth_token=stale; ct0=csrf; twid=u%3D42; guest_id=v1%3A1; att=att-val"
	c.LoadCookies(b)
	assert.Contains(t, buf.String(), "cookie header disagrees with essentials")
	assert.Contains(t, buf.String(), "auth_token")
	assert.True(t, c.IsAuthenticated(), "a mismatch warns but still loads")
}

func TestEssentialsReturnsCopy(t *testing.T) {
	c, _ := newTestClient(t, &scriptedTransport{}, ClientConfig{})
	e := c.Essentials()
	e["auth_token"] = "tampered"
	assert.Equal(t, "tok", c.Essentials()["auth_token"])
}

// The tests below go through the default resty transport.

func TestResty_TimelineRoundTrip(t *testing.T) {
	var gotCookie, gotUA string
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotCookie = r.Header.Get("Cookie")
		gotUA = r.Header.Get("User-Agent")
		b, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(b, &gotBody)
		if r.Method != http.MethodPost || r.URL.Path != "/api/timeline" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"success":true,"data":[`+sampleTweetJSON+`]}`)
	}))
	defer srv.Close()

	c, err := NewClient(ClientConfig{BaseURL: srv.URL, UserAgent: "bridge-test/1"})
	require.NoError(t, err)
	defer c.Close()
	c.LoadCookies(validBundle())

	posts, err := c.FetchTimeline(context.Background(), 2)
	require.NoError(t, err)
	require.Len(t, posts, 1)
	assert.Equal(t, "gopher", posts[0].Author.Username)
	assert.Equal(t, validBundle().CookieHeader, gotCookie)
	assert.Equal(t, "bridge-test/1", gotUA)
	assert.Equal(t, float64(2), gotBody["count"])
	assert.Contains(t, gotBody, "cookies")
}

func TestResty_TransientThenSuccess(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		io.WriteString(w, `{"success":true,"data":`+sampleTweetJSON+`}`)
	}))
	defer srv.Close()

	c, err := NewClient(ClientConfig{BaseURL: srv.URL})
	require.NoError(t, err)
	defer c.Close()
	var delays []time.Duration
	c.sleep = func(_ context.Context, d time.Duration) error {
		delays = append(delays, d)
		return nil
	}
	c.LoadCookies(validBundle())

	post, err := c.FetchByID(context.Background(), "1234567890123456789")
	require.NoError(t, err)
	assert.Equal(t, "1234567890123456789", post.ID)
	assert.Equal(t, int32(2), hits.Load())
	assert.Equal(t, []time.Duration{time.Second}, delays)
}

func TestResty_PerAttemptTimeout(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		select {
		case <-time.After(2 * time.Second):
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()

	c, err := NewClient(ClientConfig{BaseURL: srv.URL, Timeout: 50 * time.Millisecond, MaxRetries: Retries(2)})
	require.NoError(t, err)
	defer c.Close()
	c.sleep = func(context.Context, time.Duration) error { return nil }
	c.LoadCookies(validBundle())

	_, err = c.FetchTimeline(context.Background(), 1)
	require.ErrorIs(t, err, ErrTransportUnavailable)
	assert.True(t, IsTimeout(err))
	assert.Equal(t, int32(2), hits.Load())
}

func TestResty_ConnectionRefused(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c, err := NewClient(ClientConfig{BaseURL: url, Timeout: time.Second})
	require.NoError(t, err)
	defer c.Close()
	c.sleep = func(context.Context, time.Duration) error { return nil }
	c.LoadCookies(validBundle())

	_, err = c.FetchTimeline(context.Background(), 1)
	require.ErrorIs(t, err, ErrTransportUnavailable)
	assert.False(t, IsTimeout(err))
	assert.Contains(t, err.Error(), "connection error")
}

func TestResty_HeadersLowercased(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Rate-Limit-Reset", "1700000000")
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	tr := newRestyTransport(time.Second)
	defer tr.Close()
	resp, err := tr.Do(context.Background(), &Request{Method: http.MethodGet, URL: srv.URL})
	require.NoError(t, err)
	assert.Equal(t, http.StatusTooManyRequests, resp.Status)
	assert.Equal(t, "Too Many Requests", resp.Reason)
	assert.Equal(t, "1700000000", resp.Header["x-rate-limit-reset"])
}
