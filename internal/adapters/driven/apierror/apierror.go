// Package apierror classifies failures of HTTP calls to AI providers.
//
// Rate limits, server errors and network failures wrap
// domain.ErrTransientExternal so callers can retry them. Everything else
// (bad key, bad request, unknown model) is permanent.
package apierror

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/custodia-labs/ragindex/internal/core/domain"
	"github.com/custodia-labs/ragindex/internal/core/ports/driven"
)

// Ensure StatusError carries retry hints.
var _ driven.RetryAfterError = (*StatusError)(nil)

// maxBody bounds how much of an error body is kept in the message.
const maxBody = 512

// StatusError is a non-2xx response from a provider.
type StatusError struct {
	Provider   string
	StatusCode int
	Body       string
	RetryAfter time.Duration
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s error (status %d): %s", e.Provider, e.StatusCode, e.Body)
}

// Unwrap returns domain.ErrTransientExternal for retryable statuses.
func (e *StatusError) Unwrap() error {
	if Retryable(e.StatusCode) {
		return domain.ErrTransientExternal
	}
	return nil
}

// RetryAfterSeconds returns the server-requested delay, or 0.
func (e *StatusError) RetryAfterSeconds() float64 {
	return e.RetryAfter.Seconds()
}

// Retryable reports whether a status code is worth retrying.
func Retryable(code int) bool {
	switch code {
	case http.StatusRequestTimeout, http.StatusTooEarly, http.StatusTooManyRequests:
		return true
	default:
		return code >= 500
	}
}

// FromResponse builds a StatusError from a failed response and its body.
func FromResponse(provider string, resp *http.Response, body []byte) error {
	msg := strings.TrimSpace(string(body))
	if len(msg) > maxBody {
		msg = msg[:maxBody] + "..."
	}
	return &StatusError{
		Provider:   provider,
		StatusCode: resp.StatusCode,
		Body:       msg,
		RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After"), time.Now()),
	}
}

// Transport wraps an error returned by http.Client.Do. Network failures are
// transient unless the caller's own context ended.
func Transport(ctx context.Context, provider string, err error) error {
	if ctx.Err() != nil {
		return fmt.Errorf("%s: %w", provider, ctx.Err())
	}
	return fmt.Errorf("%s: %w: %w", provider, domain.ErrTransientExternal, err)
}

// parseRetryAfter accepts delay-seconds or an HTTP date.
func parseRetryAfter(v string, now time.Time) time.Duration {
	v = strings.TrimSpace(v)
	if v == "" {
		return 0
	}
	if secs, err := strconv.ParseFloat(v, 64); err == nil {
		if secs < 0 {
			return 0
		}
		return time.Duration(secs * float64(time.Second))
	}
	if t, err := http.ParseTime(v); err == nil {
		if d := t.Sub(now); d > 0 {
			return d
		}
	}
	return 0
}

// RetryAfter extracts a server-provided delay from anywhere in err's chain.
func RetryAfter(err error) (time.Duration, bool) {
	var ra driven.RetryAfterError
	if errors.As(err, &ra) && ra.RetryAfterSeconds() > 0 {
		return time.Duration(ra.RetryAfterSeconds() * float64(time.Second)), true
	}
	return 0, false
}
