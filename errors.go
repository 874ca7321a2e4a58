package twitter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"strings"
)

// Sentinel errors returned by the client. Callers branch with errors.Is.
var (
	ErrAuthenticationMissing  = errors.New("authentication cookies missing: expected cookieHeader and essentials")
	ErrTransportUnavailable   = errors.New("bridge unavailable")
	ErrMalformedResponse      = errors.New("invalid response format")
	ErrAuthenticationRejected = errors.New("authentication error")
	ErrResourceNotFound       = errors.New("resource not found")
	ErrRateLimited            = errors.New("rate limit exceeded")
	ErrRetriesExhausted       = errors.New("max retries exceeded")
	ErrEmptyResult            = errors.New("no tweets found")
	ErrNotImplemented         = errors.New("not yet implemented")
	ErrClosed                 = errors.New("client is closed")
)

// HTTPError is returned when the bridge answers with HTTP status >= 400.
// Code and Message come from the JSON error envelope; Reason is the status
// phrase used when the body was not JSON.
type HTTPError struct {
	Status  int
	Code    string
	Message string
	Reason  string
}

func (e *HTTPError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("HTTP %d: %s - %s", e.Status, e.Code, e.Message)
	}
	return fmt.Sprintf("HTTP %d: %s", e.Status, e.Reason)
}

// Transient reports whether the status is a temporary server-side condition
// worth retrying (502, 503, 504).
func (e *HTTPError) Transient() bool {
	switch e.Status {
	case 502, 503, 504:
		return true
	}
	return false
}

// Is matches the sentinel that corresponds to the status or envelope code,
// so a 404 satisfies errors.Is(err, ErrResourceNotFound).
func (e *HTTPError) Is(target error) bool {
	switch target {
	case ErrResourceNotFound:
		return e.Status == 404 || e.Code == "NOT_FOUND"
	case ErrAuthenticationRejected:
		return e.Status == 401 || e.Status == 403 || strings.Contains(e.Code, "AUTHENTICATION")
	case ErrRateLimited:
		return e.Status == 429 || e.Code == "RATE_LIMITED"
	}
	return false
}

// APIError is an application-level failure (success:false) whose code has no
// dedicated sentinel.
type APIError struct {
	Code    string
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API error (%s): %s", e.Code, e.Message)
}

// errorEnvelope is the error part of the bridge envelope.
type errorEnvelope struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// fillDefaults substitutes the bridge's documented placeholders.
func (e errorEnvelope) fillDefaults() errorEnvelope {
	if e.Code == "" {
		e.Code = "UNKNOWN"
	}
	if e.Message == "" {
		e.Message = "Unknown error"
	}
	return e
}

// envelope is the bridge response wrapper.
type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *errorEnvelope  `json:"error"`
}

// hasData returns true if the envelope carries a non-null data field.
func (e *envelope) hasData() bool {
	return len(e.Data) > 0 && string(e.Data) != "null"
}

// classifyResponse maps a delivered response to the success envelope or a
// classified error. HTTP-level failures are checked before the payload.
func classifyResponse(resp *Response) (*envelope, error) {
	if resp.Status >= 400 {
		var env struct {
			Error *errorEnvelope `json:"error"`
		}
		if json.Unmarshal(resp.Body, &env) != nil {
			return nil, &HTTPError{Status: resp.Status, Reason: resp.reason()}
		}
		var ee errorEnvelope
		if env.Error != nil {
			ee = *env.Error
		}
		ee = ee.fillDefaults()
		return nil, &HTTPError{Status: resp.Status, Code: ee.Code, Message: ee.Message}
	}

	var env envelope
	if err := json.Unmarshal(resp.Body, &env); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrMalformedResponse, truncateBytes(resp.Body, 200))
	}
	if !env.Success {
		var ee errorEnvelope
		if env.Error != nil {
			ee = *env.Error
		}
		return nil, classifyAPIError(ee.fillDefaults())
	}
	return &env, nil
}

// classifyAPIError inspects the envelope error code of a success:false reply.
func classifyAPIError(e errorEnvelope) error {
	switch {
	case strings.Contains(e.Code, "AUTHENTICATION"):
		return fmt.Errorf("%w: %s", ErrAuthenticationRejected, e.Message)
	case e.Code == "NOT_FOUND":
		return fmt.Errorf("%w: %s", ErrResourceNotFound, e.Message)
	case e.Code == "RATE_LIMITED":
		return fmt.Errorf("%w: %s", ErrRateLimited, e.Message)
	default:
		return &APIError{Code: e.Code, Message: e.Message}
	}
}

// IsTimeout reports whether err was caused by an attempt timing out rather
// than a refused or dropped connection.
func IsTimeout(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, errAttemptTimeout) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

func truncateBytes(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
