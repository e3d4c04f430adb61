package driven

import "context"

// Embedder turns text into fixed-dimension vectors.
//
// Implementations may include:
//   - OpenAI (text-embedding-3-*)
//   - Mistral (mistral-embed, OpenAI-compatible)
//   - Ollama (local models)
//
// Provider adapters make one request per EmbedBatch call and classify
// failures: retryable ones wrap domain.ErrTransientExternal. Batching and
// retry live in a decorator so every provider gets the same policy.
type Embedder interface {
	// EmbedBatch returns one vector per input text, in input order.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions returns the embedding vector size.
	Dimensions() int

	// ModelName returns the name of the embedding model being used.
	ModelName() string

	// Ping validates the service is reachable.
	Ping(ctx context.Context) error

	// Close releases resources.
	Close() error
}

// RetryAfterError is implemented by errors that carry a server-provided
// delay before the next attempt (for example an HTTP Retry-After header).
type RetryAfterError interface {
	error
	RetryAfterSeconds() float64
}
