package driven

import "context"

// Generator produces text completions from a prompt.
//
// Implementations may include:
//   - OpenAI and Mistral (chat completions)
//   - Anthropic (messages API)
//   - Ollama (local models)
type Generator interface {
	// Complete runs a single, non-streaming completion.
	Complete(ctx context.Context, prompt string, opts GenerateOptions) (string, error)

	// ModelName returns the name of the model being used.
	ModelName() string

	// Ping validates the service is reachable by making a lightweight request.
	Ping(ctx context.Context) error

	// Close releases resources.
	Close() error
}

// GenerateOptions configures text generation behaviour.
type GenerateOptions struct {
	// System is an optional system instruction.
	System string

	// MaxTokens is the maximum number of tokens to generate. Zero uses the
	// provider default.
	MaxTokens int

	// Temperature controls randomness (0.0 = deterministic).
	Temperature float64

	// JSON requests a JSON object response where the provider supports it.
	JSON bool
}
