package domain

const unknownDescription = "Unknown"

// AIProvider identifies an AI service provider for embeddings or generation.
type AIProvider string

// Available AI providers.
const (
	// AIProviderOllama is a local Ollama instance.
	AIProviderOllama AIProvider = "ollama"

	// AIProviderOpenAI is the OpenAI cloud API.
	AIProviderOpenAI AIProvider = "openai"

	// AIProviderMistral is the Mistral cloud API (OpenAI-compatible).
	AIProviderMistral AIProvider = "mistral"

	// AIProviderAnthropic is the Anthropic cloud API.
	AIProviderAnthropic AIProvider = "anthropic"
)

// IsValid returns true if the AI provider is recognised.
func (p AIProvider) IsValid() bool {
	switch p {
	case AIProviderOllama, AIProviderOpenAI, AIProviderMistral, AIProviderAnthropic:
		return true
	default:
		return false
	}
}

// RequiresAPIKey returns true if this provider needs an API key.
func (p AIProvider) RequiresAPIKey() bool {
	return p != AIProviderOllama
}

// SupportsEmbeddings returns true if the provider can embed text.
func (p AIProvider) SupportsEmbeddings() bool {
	return p == AIProviderOllama || p == AIProviderOpenAI || p == AIProviderMistral
}

// String returns the string representation.
func (p AIProvider) String() string {
	return string(p)
}

// Description returns a human-readable description of the provider.
func (p AIProvider) Description() string {
	switch p {
	case AIProviderOllama:
		return "Ollama (local)"
	case AIProviderOpenAI:
		return "OpenAI (cloud)"
	case AIProviderMistral:
		return "Mistral (cloud)"
	case AIProviderAnthropic:
		return "Anthropic (cloud)"
	default:
		return unknownDescription
	}
}

// RerankerKind selects the reranking strategy.
type RerankerKind string

// Available rerankers.
const (
	// RerankerLLM scores candidates with the generative model.
	RerankerLLM RerankerKind = "llm"

	// RerankerLexical scores candidates locally by term overlap.
	RerankerLexical RerankerKind = "lexical"

	// RerankerNone keeps retrieval order and only truncates.
	RerankerNone RerankerKind = "none"
)

// IsValid returns true if the reranker kind is recognised.
func (k RerankerKind) IsValid() bool {
	return k == RerankerLLM || k == RerankerLexical || k == RerankerNone
}

// StorageBackend selects where index snapshots are persisted.
type StorageBackend string

// Available storage backends.
const (
	StorageFS     StorageBackend = "fs"
	StorageMinio  StorageBackend = "minio"
	StorageBadger StorageBackend = "badger"
	StorageMemory StorageBackend = "memory"
)

// IsValid returns true if the backend is recognised.
func (b StorageBackend) IsValid() bool {
	switch b {
	case StorageFS, StorageMinio, StorageBadger, StorageMemory:
		return true
	default:
		return false
	}
}

// ChunkingSettings controls the chunker.
type ChunkingSettings struct {
	Size    int `validate:"gt=0"`
	Overlap int `validate:"gte=0,ltfield=Size"`
}

// EmbeddingSettings holds embedding provider configuration.
type EmbeddingSettings struct {
	Provider AIProvider `validate:"required"`
	Model    string     `validate:"required"`

	// BaseURL overrides the provider endpoint.
	BaseURL string `validate:"omitempty,url"`

	// APIKey is required by cloud providers.
	APIKey string

	// BatchSize is the number of texts sent per request.
	BatchSize int `validate:"gt=0,lte=2048"`

	// MaxAttempts bounds retries of one batch, first attempt included.
	MaxAttempts int `validate:"gt=0,lte=20"`

	// RequestsPerMinute throttles calls. Zero disables throttling.
	RequestsPerMinute int `validate:"gte=0"`

	// Normalize L2-normalises vectors so inner product equals cosine.
	Normalize bool
}

// IsConfigured returns true if the embedding provider is set up.
func (e EmbeddingSettings) IsConfigured() bool {
	if !e.Provider.IsValid() || !e.Provider.SupportsEmbeddings() {
		return false
	}
	if e.Provider.RequiresAPIKey() && e.APIKey == "" {
		return false
	}
	return true
}

// IndexSettings holds vector index construction parameters.
type IndexSettings struct {
	Kind           IndexKind `validate:"required"`
	M              int       `validate:"gte=2,lte=128"`
	EfConstruction int       `validate:"gtefield=M"`
	EfSearch       int       `validate:"gt=0"`
}

// RetrievalSettings holds default query breadth and reranking.
type RetrievalSettings struct {
	K          int          `validate:"gt=0"`
	RerankTopN int          `validate:"gt=0"`
	Reranker   RerankerKind `validate:"required"`
}

// LLMSettings holds generative model configuration.
type LLMSettings struct {
	Provider    AIProvider `validate:"required"`
	Model       string     `validate:"required"`
	BaseURL     string     `validate:"omitempty,url"`
	APIKey      string
	Temperature float64 `validate:"gte=0,lte=2"`
}

// IsConfigured returns true if the LLM provider is set up.
func (l LLMSettings) IsConfigured() bool {
	if !l.Provider.IsValid() {
		return false
	}
	if l.Provider.RequiresAPIKey() && l.APIKey == "" {
		return false
	}
	return true
}

// AnswerSettings holds answer generation defaults.
type AnswerSettings struct {
	Language string `validate:"required"`
}

// MinioSettings configures the S3-compatible blob backend.
type MinioSettings struct {
	Endpoint  string
	Bucket    string
	AccessKey string
	SecretKey string
	UseSSL    bool
}

// StorageSettings selects and configures durable storage.
type StorageSettings struct {
	// DataDir holds tenant documents, the catalogue and fs/badger blobs.
	DataDir string         `validate:"required"`
	Backend StorageBackend `validate:"required"`
	Minio   MinioSettings
}

// AuthSettings configures bearer token verification.
type AuthSettings struct {
	JWTSecret string
	Issuer    string
}

// MirrorSettings configures the optional qdrant search replica.
type MirrorSettings struct {
	QdrantEnabled bool
	QdrantHost    string
	QdrantPort    int `validate:"gte=0,lte=65535"`
}

// Settings holds all application settings.
type Settings struct {
	Chunking  ChunkingSettings
	Embedding EmbeddingSettings
	Index     IndexSettings
	Retrieval RetrievalSettings
	LLM       LLMSettings
	Answer    AnswerSettings
	Storage   StorageSettings
	Auth      AuthSettings
	Mirror    MirrorSettings
}

// DefaultSettings returns settings matching the production pipeline.
// API keys are left empty and must come from the config file or environment.
func DefaultSettings() Settings {
	return Settings{
		Chunking: ChunkingSettings{
			Size:    800,
			Overlap: 100,
		},
		Embedding: EmbeddingSettings{
			Provider:    AIProviderOpenAI,
			Model:       "text-embedding-3-large",
			BatchSize:   128,
			MaxAttempts: 6,
			Normalize:   true,
		},
		Index: IndexSettings{
			Kind:           IndexKindHNSW,
			M:              32,
			EfConstruction: 128, // max(64, 4*M)
			EfSearch:       128,
		},
		Retrieval: RetrievalSettings{
			K:          10,
			RerankTopN: 5,
			Reranker:   RerankerLexical,
		},
		LLM: LLMSettings{
			Provider:    AIProviderMistral,
			Model:       "mistral-small-latest",
			Temperature: 0.7,
		},
		Answer: AnswerSettings{
			Language: "French",
		},
		Storage: StorageSettings{
			Backend: StorageFS,
			Minio: MinioSettings{
				Bucket: "ragindex",
			},
		},
		Mirror: MirrorSettings{
			QdrantHost: "localhost",
			QdrantPort: 6334,
		},
	}
}

// EmbeddingDimensions returns known embedding model dimensions.
func EmbeddingDimensions() map[string]int {
	return map[string]int{
		"text-embedding-3-small": 1536,
		"text-embedding-3-large": 3072,
		"text-embedding-ada-002": 1536,
		"mistral-embed":          1024,
		"nomic-embed-text":       768,
		"mxbai-embed-large":      1024,
		"all-minilm":             384,
	}
}
