package twitter

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

// errAttemptTimeout is reported by transports that enforce the per-attempt
// timeout themselves.
var errAttemptTimeout = errors.New("request timeout")

// Request is a single outbound call to the bridge.
type Request struct {
	Method  string
	URL     string
	Headers map[string]string
	Body    []byte
}

// Response is what a transport delivered. A non-nil Response means the bridge
// answered, whatever the status.
type Response struct {
	Status int
	// Reason is the status phrase, e.g. "Bad Gateway". May be empty.
	Reason string
	Header map[string]string
	Body   []byte
}

func (r *Response) reason() string {
	if r.Reason != "" {
		return r.Reason
	}
	if s := http.StatusText(r.Status); s != "" {
		return s
	}
	return "Unknown Error"
}

// Transport executes one attempt. It must return a nil Response with a
// non-nil error for timeouts and connection-level failures only; any HTTP
// answer is a Response.
type Transport interface {
	Do(ctx context.Context, req *Request) (*Response, error)
	Close() error
}

// restyTransport is the default bridge transport.
type restyTransport struct {
	client *resty.Client
}

func newRestyTransport(timeout time.Duration) *restyTransport {
	client := resty.New()
	client.SetTimeout(timeout)
	client.SetRetryCount(0)
	return &restyTransport{client: client}
}

func (t *restyTransport) Do(ctx context.Context, req *Request) (*Response, error) {
	r := t.client.R().
		SetContext(ctx).
		SetHeaders(req.Headers)
	if req.Body != nil {
		r.SetBody(req.Body)
	}
	res, err := r.Execute(req.Method, req.URL)
	if err != nil {
		return nil, err
	}

	header := make(map[string]string, len(res.Header()))
	for k := range res.Header() {
		header[strings.ToLower(k)] = res.Header().Get(k)
	}
	return &Response{
		Status: res.StatusCode(),
		Reason: statusReason(res.Status(), res.StatusCode()),
		Header: header,
		Body:   res.Body(),
	}, nil
}

func (t *restyTransport) Close() error {
	t.client.GetClient().CloseIdleConnections()
	return nil
}

// statusReason strips the numeric code from a status line like "503 Service Unavailable".
func statusReason(status string, code int) string {
	if _, reason, ok := strings.Cut(status, " "); ok && reason != "" {
		return reason
	}
	return http.StatusText(code)
}
