package apierror

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/ragindex/internal/core/domain"
)

func response(code int, retryAfter string) *http.Response {
	h := http.Header{}
	if retryAfter != "" {
		h.Set("Retry-After", retryAfter)
	}
	return &http.Response{StatusCode: code, Header: h}
}

func TestRetryable(t *testing.T) {
	tests := []struct {
		code int
		want bool
	}{
		{http.StatusTooManyRequests, true},
		{http.StatusInternalServerError, true},
		{http.StatusBadGateway, true},
		{http.StatusServiceUnavailable, true},
		{http.StatusRequestTimeout, true},
		{http.StatusBadRequest, false},
		{http.StatusUnauthorized, false},
		{http.StatusNotFound, false},
	}

	for _, tt := range tests {
		t.Run(http.StatusText(tt.code), func(t *testing.T) {
			assert.Equal(t, tt.want, Retryable(tt.code))
		})
	}
}

func TestFromResponse(t *testing.T) {
	err := FromResponse("openai", response(http.StatusTooManyRequests, "3"), []byte(" slow down \n"))

	require.ErrorIs(t, err, domain.ErrTransientExternal)
	assert.Equal(t, "openai error (status 429): slow down", err.Error())

	d, ok := RetryAfter(fmt.Errorf("wrapped: %w", err))
	require.True(t, ok)
	assert.Equal(t, 3*time.Second, d)
}

func TestFromResponse_Permanent(t *testing.T) {
	err := FromResponse("mistral", response(http.StatusUnauthorized, ""), []byte("bad key"))

	assert.False(t, errors.Is(err, domain.ErrTransientExternal))
	_, ok := RetryAfter(err)
	assert.False(t, ok)
}

func TestFromResponse_TruncatesBody(t *testing.T) {
	body := make([]byte, 2000)
	for i := range body {
		body[i] = 'x'
	}
	err := FromResponse("openai", response(http.StatusBadRequest, ""), body)

	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Len(t, se.Body, maxBody+3)
}

func TestParseRetryAfter(t *testing.T) {
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)

	assert.Equal(t, time.Duration(0), parseRetryAfter("", now))
	assert.Equal(t, 1500*time.Millisecond, parseRetryAfter("1.5", now))
	assert.Equal(t, time.Duration(0), parseRetryAfter("-4", now))
	assert.Equal(t, 10*time.Second, parseRetryAfter(now.Add(10*time.Second).Format(http.TimeFormat), now))
	assert.Equal(t, time.Duration(0), parseRetryAfter(now.Add(-time.Minute).Format(http.TimeFormat), now))
	assert.Equal(t, time.Duration(0), parseRetryAfter("soon", now))
}

func TestTransport(t *testing.T) {
	netErr := errors.New("connection refused")

	err := Transport(context.Background(), "ollama", netErr)
	require.ErrorIs(t, err, domain.ErrTransientExternal)
	require.ErrorIs(t, err, netErr)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err = Transport(ctx, "ollama", netErr)
	require.ErrorIs(t, err, context.Canceled)
	assert.False(t, errors.Is(err, domain.ErrTransientExternal))
}
