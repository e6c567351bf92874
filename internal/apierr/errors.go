// Package apierr provides the error sentinels shared by the upload
// backends. Backend-specific failures are classified into these sentinels
// at the adapter boundary.
//
// Callers check with errors.Is(err, apierr.ErrTransport) etc. HTTP status
// failures are *StatusError values that match both ErrHTTP and the
// sentinel of their status class.
package apierr

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"unicode/utf8"
)

// Sentinel errors for upload failures.
var (
	// ErrTransport indicates the request never produced an HTTP response
	// (DNS, connect, TLS, timeout, reset).
	ErrTransport = errors.New("upload transport failed")

	// ErrHTTP indicates the server answered with a non-success status.
	ErrHTTP = errors.New("server returned an error status")

	// ErrNoContent indicates a success status with an empty body.
	ErrNoContent = errors.New("server returned no audio")

	// ErrRateLimit indicates the server rate limit was exceeded.
	ErrRateLimit = errors.New("rate limit exceeded")

	// ErrQuotaExceeded indicates the API quota was exceeded (billing issue).
	ErrQuotaExceeded = errors.New("quota exceeded")

	// ErrTimeout indicates a request timed out.
	ErrTimeout = errors.New("request timeout")

	// ErrAuthFailed indicates authentication failed (invalid key or token).
	ErrAuthFailed = errors.New("authentication failed")

	// ErrBadRequest indicates a client error (4xx) that is not otherwise classified.
	ErrBadRequest = errors.New("bad request")

	// ErrServer indicates a server-side failure (5xx).
	ErrServer = errors.New("server error")
)

// ExcerptLimit is the maximum number of bytes of a response body kept in
// a StatusError.
const ExcerptLimit = 500

// StatusError is a non-success HTTP response.
type StatusError struct {
	StatusCode int
	Excerpt    string
}

// NewStatusError builds a StatusError keeping a bounded body excerpt.
func NewStatusError(code int, body []byte) *StatusError {
	return &StatusError{StatusCode: code, Excerpt: Excerpt(body, ExcerptLimit)}
}

func (e *StatusError) Error() string {
	if e.Excerpt == "" {
		return fmt.Sprintf("HTTP %d %s", e.StatusCode, http.StatusText(e.StatusCode))
	}
	return fmt.Sprintf("HTTP %d %s: %s", e.StatusCode, http.StatusText(e.StatusCode), e.Excerpt)
}

// Unwrap exposes ErrHTTP and the status class sentinel.
func (e *StatusError) Unwrap() []error {
	if class := ClassifyStatus(e.StatusCode, e.Excerpt); class != nil {
		return []error{ErrHTTP, class}
	}
	return []error{ErrHTTP}
}

// ClassifyStatus maps an HTTP status to a sentinel, or nil for statuses
// with no class. msg disambiguates quota from rate limiting on 429.
func ClassifyStatus(code int, msg string) error {
	switch {
	case code == http.StatusTooManyRequests:
		lower := strings.ToLower(msg)
		if strings.Contains(lower, "quota") || strings.Contains(lower, "billing") {
			return ErrQuotaExceeded
		}
		return ErrRateLimit
	case code == http.StatusUnauthorized:
		return ErrAuthFailed
	case code == http.StatusRequestTimeout || code == http.StatusGatewayTimeout:
		return ErrTimeout
	case code >= 400 && code < 500:
		return ErrBadRequest
	case code >= 500:
		return ErrServer
	default:
		return nil
	}
}

// Excerpt returns at most limit bytes of body as trimmed text, cut on a
// rune boundary.
func Excerpt(body []byte, limit int) string {
	s := strings.TrimSpace(string(body))
	if len(s) <= limit {
		return s
	}
	cut := limit
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}
