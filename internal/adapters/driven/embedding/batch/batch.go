// Package batch wraps an Embedder with batching, throttling and retries.
//
// Provider adapters make exactly one request per call. This decorator
// splits large inputs into fixed-size batches, waits on a rate limiter
// before each request and retries transient failures with exponential
// backoff, honouring a server-provided Retry-After delay.
package batch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/time/rate"

	"github.com/custodia-labs/ragindex/internal/adapters/driven/apierror"
	"github.com/custodia-labs/ragindex/internal/core/domain"
	"github.com/custodia-labs/ragindex/internal/core/ports/driven"
	"github.com/custodia-labs/ragindex/internal/logger"
)

// Ensure Embedder implements the interface.
var _ driven.Embedder = (*Embedder)(nil)

// Default policy values.
const (
	DefaultBatchSize   = 128
	DefaultMaxAttempts = 6
	DefaultBaseDelay   = 200 * time.Millisecond
	DefaultMaxDelay    = 5 * time.Second
)

// Embedder is a batching, retrying driven.Embedder.
type Embedder struct {
	next        driven.Embedder
	batchSize   int
	maxAttempts int
	baseDelay   time.Duration
	maxDelay    time.Duration
	limiter     *rate.Limiter
	sleep       func(ctx context.Context, d time.Duration) error
}

// Option configures the Embedder.
type Option func(*Embedder)

// WithBatchSize sets the number of texts per request.
func WithBatchSize(n int) Option {
	return func(e *Embedder) {
		if n > 0 {
			e.batchSize = n
		}
	}
}

// WithMaxAttempts bounds the attempts per batch, first attempt included.
func WithMaxAttempts(n int) Option {
	return func(e *Embedder) {
		if n > 0 {
			e.maxAttempts = n
		}
	}
}

// WithBackoff sets the first retry delay and the delay cap.
func WithBackoff(base, maxDelay time.Duration) Option {
	return func(e *Embedder) {
		if base > 0 {
			e.baseDelay = base
		}
		if maxDelay > 0 {
			e.maxDelay = maxDelay
		}
	}
}

// WithRequestsPerMinute throttles requests. Zero or less disables throttling.
func WithRequestsPerMinute(rpm int) Option {
	return func(e *Embedder) {
		if rpm > 0 {
			e.limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(rpm)), 1)
		} else {
			e.limiter = nil
		}
	}
}

// WithSleep replaces the wait between attempts. Used by tests.
func WithSleep(fn func(ctx context.Context, d time.Duration) error) Option {
	return func(e *Embedder) {
		e.sleep = fn
	}
}

// New wraps next.
func New(next driven.Embedder, opts ...Option) *Embedder {
	e := &Embedder{
		next:        next,
		batchSize:   DefaultBatchSize,
		maxAttempts: DefaultMaxAttempts,
		baseDelay:   DefaultBaseDelay,
		maxDelay:    DefaultMaxDelay,
		sleep:       sleepContext,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// FromSettings wraps next with the policy from embedding settings.
func FromSettings(next driven.Embedder, s domain.EmbeddingSettings) *Embedder {
	return New(next,
		WithBatchSize(s.BatchSize),
		WithMaxAttempts(s.MaxAttempts),
		WithRequestsPerMinute(s.RequestsPerMinute),
	)
}

// EmbedBatch embeds texts in batches and returns one vector per text in
// input order. A batch that still fails after its attempts aborts the
// whole call with domain.ErrEmbeddingFailed; no partial result is returned.
func (e *Embedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	out := make([][]float32, 0, len(texts))
	dims := 0
	for start := 0; start < len(texts); start += e.batchSize {
		end := min(start+e.batchSize, len(texts))
		batchNo := start / e.batchSize

		vecs, err := e.embedWithRetry(ctx, batchNo, texts[start:end])
		if err != nil {
			return nil, err
		}
		if len(vecs) != end-start {
			return nil, fmt.Errorf("%w: batch %d: got %d vectors for %d texts", domain.ErrEmbeddingFailed, batchNo, len(vecs), end-start)
		}
		for i, v := range vecs {
			if dims == 0 {
				dims = len(v)
			}
			if len(v) == 0 || len(v) != dims {
				return nil, fmt.Errorf("%w: text %d: vector has %d dimensions, want %d", domain.ErrEmbeddingFailed, start+i, len(v), dims)
			}
		}
		out = append(out, vecs...)
	}
	return out, nil
}

func (e *Embedder) embedWithRetry(ctx context.Context, batchNo int, texts []string) ([][]float32, error) {
	var lastErr error
	for attempt := range e.maxAttempts {
		if e.limiter != nil {
			if err := e.limiter.Wait(ctx); err != nil {
				return nil, fmt.Errorf("%w: batch %d: %w", domain.ErrEmbeddingFailed, batchNo, err)
			}
		}

		vecs, err := e.next.EmbedBatch(ctx, texts)
		if err == nil {
			return vecs, nil
		}
		lastErr = err

		if !errors.Is(err, domain.ErrTransientExternal) || ctx.Err() != nil {
			return nil, fmt.Errorf("%w: batch %d: %w", domain.ErrEmbeddingFailed, batchNo, err)
		}
		if attempt == e.maxAttempts-1 {
			break
		}

		delay := e.backoff(attempt)
		if ra, ok := apierror.RetryAfter(err); ok {
			delay = min(ra, e.maxDelay)
		}
		logger.Debug("embedding: batch %d attempt %d/%d failed, retrying in %s: %v",
			batchNo, attempt+1, e.maxAttempts, delay, err)
		if err := e.sleep(ctx, delay); err != nil {
			return nil, fmt.Errorf("%w: batch %d: %w", domain.ErrEmbeddingFailed, batchNo, err)
		}
	}

	return nil, fmt.Errorf("%w: batch %d: gave up after %d attempts: %w",
		domain.ErrEmbeddingFailed, batchNo, e.maxAttempts, lastErr)
}

// backoff returns baseDelay * 2^attempt, capped at maxDelay.
func (e *Embedder) backoff(attempt int) time.Duration {
	d := e.baseDelay
	for range attempt {
		d *= 2
		if d >= e.maxDelay {
			return e.maxDelay
		}
	}
	return min(d, e.maxDelay)
}

// Dimensions returns the wrapped embedder's vector size.
func (e *Embedder) Dimensions() int {
	return e.next.Dimensions()
}

// ModelName returns the wrapped embedder's model.
func (e *Embedder) ModelName() string {
	return e.next.ModelName()
}

// Ping checks the wrapped embedder.
func (e *Embedder) Ping(ctx context.Context) error {
	return e.next.Ping(ctx)
}

// Close closes the wrapped embedder.
func (e *Embedder) Close() error {
	return e.next.Close()
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
