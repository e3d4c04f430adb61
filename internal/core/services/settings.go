package services

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/custodia-labs/ragindex/internal/core/domain"
	"github.com/custodia-labs/ragindex/internal/core/ports/driven"
	"github.com/custodia-labs/ragindex/internal/core/ports/driving"
)

// Ensure SettingsService implements the interface.
var _ driving.SettingsService = (*SettingsService)(nil)

// valueKind is the type a setting is stored as.
type valueKind int

const (
	kindString valueKind = iota
	kindInt
	kindFloat
	kindBool
)

// setting binds a config key to a field of domain.Settings.
type setting struct {
	key    string
	kind   valueKind
	secret bool
	get    func(*domain.Settings) any
	set    func(*domain.Settings, any)
}

func stringSetting(key string, field func(*domain.Settings) *string) setting {
	return setting{
		key:  key,
		kind: kindString,
		get:  func(s *domain.Settings) any { return *field(s) },
		set:  func(s *domain.Settings, v any) { *field(s) = v.(string) },
	}
}

func secretSetting(key string, field func(*domain.Settings) *string) setting {
	s := stringSetting(key, field)
	s.secret = true
	return s
}

func intSetting(key string, field func(*domain.Settings) *int) setting {
	return setting{
		key:  key,
		kind: kindInt,
		get:  func(s *domain.Settings) any { return *field(s) },
		set:  func(s *domain.Settings, v any) { *field(s) = v.(int) },
	}
}

func boolSetting(key string, field func(*domain.Settings) *bool) setting {
	return setting{
		key:  key,
		kind: kindBool,
		get:  func(s *domain.Settings) any { return *field(s) },
		set:  func(s *domain.Settings, v any) { *field(s) = v.(bool) },
	}
}

func typedSetting[T ~string](key string, field func(*domain.Settings) *T) setting {
	return setting{
		key:  key,
		kind: kindString,
		get:  func(s *domain.Settings) any { return string(*field(s)) },
		set:  func(s *domain.Settings, v any) { *field(s) = T(v.(string)) },
	}
}

// Config keys for settings storage.
//
//nolint:gosec // G101: These are config key names, not actual credentials.
var settingsTable = []setting{
	stringSetting("data.dir", func(s *domain.Settings) *string { return &s.Storage.DataDir }),

	intSetting("chunking.size", func(s *domain.Settings) *int { return &s.Chunking.Size }),
	intSetting("chunking.overlap", func(s *domain.Settings) *int { return &s.Chunking.Overlap }),

	typedSetting("embedding.provider", func(s *domain.Settings) *domain.AIProvider { return &s.Embedding.Provider }),
	stringSetting("embedding.model", func(s *domain.Settings) *string { return &s.Embedding.Model }),
	stringSetting("embedding.base_url", func(s *domain.Settings) *string { return &s.Embedding.BaseURL }),
	secretSetting("embedding.api_key", func(s *domain.Settings) *string { return &s.Embedding.APIKey }),
	intSetting("embedding.batch_size", func(s *domain.Settings) *int { return &s.Embedding.BatchSize }),
	intSetting("embedding.max_attempts", func(s *domain.Settings) *int { return &s.Embedding.MaxAttempts }),
	intSetting("embedding.requests_per_minute", func(s *domain.Settings) *int { return &s.Embedding.RequestsPerMinute }),
	boolSetting("embedding.normalize", func(s *domain.Settings) *bool { return &s.Embedding.Normalize }),

	typedSetting("index.kind", func(s *domain.Settings) *domain.IndexKind { return &s.Index.Kind }),
	intSetting("index.m", func(s *domain.Settings) *int { return &s.Index.M }),
	intSetting("index.ef_construction", func(s *domain.Settings) *int { return &s.Index.EfConstruction }),
	intSetting("index.ef_search", func(s *domain.Settings) *int { return &s.Index.EfSearch }),

	intSetting("retrieval.k", func(s *domain.Settings) *int { return &s.Retrieval.K }),
	intSetting("retrieval.rerank_top_n", func(s *domain.Settings) *int { return &s.Retrieval.RerankTopN }),
	typedSetting("retrieval.reranker", func(s *domain.Settings) *domain.RerankerKind { return &s.Retrieval.Reranker }),

	typedSetting("llm.provider", func(s *domain.Settings) *domain.AIProvider { return &s.LLM.Provider }),
	stringSetting("llm.model", func(s *domain.Settings) *string { return &s.LLM.Model }),
	stringSetting("llm.base_url", func(s *domain.Settings) *string { return &s.LLM.BaseURL }),
	secretSetting("llm.api_key", func(s *domain.Settings) *string { return &s.LLM.APIKey }),
	{
		key:  "llm.temperature",
		kind: kindFloat,
		get:  func(s *domain.Settings) any { return s.LLM.Temperature },
		set:  func(s *domain.Settings, v any) { s.LLM.Temperature = v.(float64) },
	},

	stringSetting("answer.language", func(s *domain.Settings) *string { return &s.Answer.Language }),

	typedSetting("storage.backend", func(s *domain.Settings) *domain.StorageBackend { return &s.Storage.Backend }),
	stringSetting("storage.minio.endpoint", func(s *domain.Settings) *string { return &s.Storage.Minio.Endpoint }),
	stringSetting("storage.minio.bucket", func(s *domain.Settings) *string { return &s.Storage.Minio.Bucket }),
	secretSetting("storage.minio.access_key", func(s *domain.Settings) *string { return &s.Storage.Minio.AccessKey }),
	secretSetting("storage.minio.secret_key", func(s *domain.Settings) *string { return &s.Storage.Minio.SecretKey }),
	boolSetting("storage.minio.use_ssl", func(s *domain.Settings) *bool { return &s.Storage.Minio.UseSSL }),

	secretSetting("auth.jwt_secret", func(s *domain.Settings) *string { return &s.Auth.JWTSecret }),
	stringSetting("auth.issuer", func(s *domain.Settings) *string { return &s.Auth.Issuer }),

	boolSetting("mirror.qdrant.enabled", func(s *domain.Settings) *bool { return &s.Mirror.QdrantEnabled }),
	stringSetting("mirror.qdrant.host", func(s *domain.Settings) *string { return &s.Mirror.QdrantHost }),
	intSetting("mirror.qdrant.port", func(s *domain.Settings) *int { return &s.Mirror.QdrantPort }),
}

func lookupSetting(key string) (setting, bool) {
	for _, s := range settingsTable {
		if s.key == key {
			return s, true
		}
	}
	return setting{}, false
}

// SettingKeys returns every supported config key in display order.
func SettingKeys() []string {
	keys := make([]string, len(settingsTable))
	for i, s := range settingsTable {
		keys[i] = s.key
	}
	return keys
}

// IsSecretSetting reports whether a key holds a credential.
func IsSecretSetting(key string) bool {
	s, ok := lookupSetting(key)
	return ok && s.secret
}

// providerKeyEnv names the environment variable holding each provider's key.
var providerKeyEnv = map[domain.AIProvider]string{
	domain.AIProviderOpenAI:    "OPENAI_API_KEY",
	domain.AIProviderMistral:   "MISTRAL_API_KEY",
	domain.AIProviderAnthropic: "ANTHROPIC_API_KEY",
}

// SettingsService manages application settings.
type SettingsService struct {
	configStore driven.ConfigStore
	aiValidator driven.AIConfigValidator
	validate    *validator.Validate
	getenv      func(string) string
}

// NewSettingsService creates a new settings service.
// aiValidator is optional; without it provider checks are skipped.
func NewSettingsService(configStore driven.ConfigStore, aiValidator driven.AIConfigValidator) *SettingsService {
	return &SettingsService{
		configStore: configStore,
		aiValidator: aiValidator,
		validate:    validator.New(validator.WithRequiredStructEnabled()),
		getenv:      os.Getenv,
	}
}

// Get returns defaults overlaid with stored values, with empty secrets
// filled from the environment.
func (s *SettingsService) Get() (*domain.Settings, error) {
	settings := domain.DefaultSettings()

	for _, def := range settingsTable {
		raw, ok := s.configStore.Get(def.key)
		if !ok {
			continue
		}
		v, err := parseSetting(def, raw)
		if err != nil {
			return nil, err
		}
		def.set(&settings, v)
	}

	if settings.Storage.DataDir == "" {
		settings.Storage.DataDir = filepath.Join(filepath.Dir(s.configStore.Path()), "data")
	}
	s.applyEnv(&settings)

	return &settings, nil
}

func (s *SettingsService) applyEnv(settings *domain.Settings) {
	fill := func(dst *string, env string) {
		if *dst == "" && env != "" {
			*dst = s.getenv(env)
		}
	}
	fill(&settings.Embedding.APIKey, providerKeyEnv[settings.Embedding.Provider])
	fill(&settings.LLM.APIKey, providerKeyEnv[settings.LLM.Provider])
	fill(&settings.Auth.JWTSecret, "RAGINDEX_JWT_SECRET")
	fill(&settings.Storage.Minio.AccessKey, "MINIO_ACCESS_KEY")
	fill(&settings.Storage.Minio.SecretKey, "MINIO_SECRET_KEY")
}

// Set parses, validates and stores one key.
func (s *SettingsService) Set(key, value string) error {
	def, ok := lookupSetting(key)
	if !ok {
		return fmt.Errorf("%w: unknown setting %q", domain.ErrInvalidInput, key)
	}
	v, err := parseSetting(def, value)
	if err != nil {
		return err
	}

	settings, err := s.Get()
	if err != nil {
		return err
	}
	def.set(settings, v)
	if err := s.Validate(settings); err != nil {
		return err
	}

	if err := s.configStore.Set(key, v); err != nil {
		return fmt.Errorf("save %s: %w", key, err)
	}
	return nil
}

// Value returns the effective value of one key, formatted for display.
func (s *SettingsService) Value(settings *domain.Settings, key string) (string, bool) {
	def, ok := lookupSetting(key)
	if !ok {
		return "", false
	}
	return fmt.Sprint(def.get(settings)), true
}

// Keys returns every supported config key in display order.
func (s *SettingsService) Keys() []string {
	return SettingKeys()
}

// IsSecret reports whether key holds a credential.
func (s *SettingsService) IsSecret(key string) bool {
	return IsSecretSetting(key)
}

// SetAPIKey stores key for every configured role that uses provider.
func (s *SettingsService) SetAPIKey(provider domain.AIProvider, key string) error {
	if !provider.IsValid() || !provider.RequiresAPIKey() {
		return fmt.Errorf("%w: provider %q does not take an API key", domain.ErrInvalidInput, provider)
	}
	if strings.TrimSpace(key) == "" {
		return fmt.Errorf("%w: empty API key", domain.ErrInvalidInput)
	}

	settings, err := s.Get()
	if err != nil {
		return err
	}

	stored := false
	if settings.Embedding.Provider == provider {
		if err := s.configStore.Set("embedding.api_key", key); err != nil {
			return fmt.Errorf("save embedding.api_key: %w", err)
		}
		stored = true
	}
	if settings.LLM.Provider == provider {
		if err := s.configStore.Set("llm.api_key", key); err != nil {
			return fmt.Errorf("save llm.api_key: %w", err)
		}
		stored = true
	}
	if !stored {
		return fmt.Errorf("%w: neither embedding nor llm uses %s", domain.ErrInvalidInput, provider)
	}
	return nil
}

// Validate checks settings for consistency.
func (s *SettingsService) Validate(settings *domain.Settings) error {
	var problems []string

	if err := s.validate.Struct(settings); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return fmt.Errorf("%w: %w", domain.ErrInvalidInput, err)
		}
		for _, fe := range verrs {
			problems = append(problems, describeFieldError(fe))
		}
	}

	if !settings.Embedding.Provider.SupportsEmbeddings() {
		problems = append(problems, fmt.Sprintf("embedding.provider: %q cannot embed", settings.Embedding.Provider))
	}
	if !settings.LLM.Provider.IsValid() {
		problems = append(problems, fmt.Sprintf("llm.provider: unknown provider %q", settings.LLM.Provider))
	}
	if !settings.Index.Kind.IsValid() {
		problems = append(problems, fmt.Sprintf("index.kind: unknown kind %q", settings.Index.Kind))
	}
	if !settings.Retrieval.Reranker.IsValid() {
		problems = append(problems, fmt.Sprintf("retrieval.reranker: unknown reranker %q", settings.Retrieval.Reranker))
	}
	if !settings.Storage.Backend.IsValid() {
		problems = append(problems, fmt.Sprintf("storage.backend: unknown backend %q", settings.Storage.Backend))
	}
	if settings.Storage.Backend == domain.StorageMinio {
		if settings.Storage.Minio.Endpoint == "" {
			problems = append(problems, "storage.minio.endpoint: required for the minio backend")
		}
		if settings.Storage.Minio.Bucket == "" {
			problems = append(problems, "storage.minio.bucket: required for the minio backend")
		}
	}
	if settings.Mirror.QdrantEnabled && settings.Mirror.QdrantHost == "" {
		problems = append(problems, "mirror.qdrant.host: required when the mirror is enabled")
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", domain.ErrInvalidInput, strings.Join(problems, "; "))
	}
	return nil
}

// ValidateEmbeddingConfig pings the configured embedding provider.
func (s *SettingsService) ValidateEmbeddingConfig() error {
	if s.aiValidator == nil {
		return nil
	}
	settings, err := s.Get()
	if err != nil {
		return err
	}
	return s.aiValidator.ValidateEmbedding(&settings.Embedding)
}

// ValidateLLMConfig pings the configured generative model provider.
func (s *SettingsService) ValidateLLMConfig() error {
	if s.aiValidator == nil {
		return nil
	}
	settings, err := s.Get()
	if err != nil {
		return err
	}
	return s.aiValidator.ValidateLLM(&settings.LLM)
}

// describeFieldError renders a validator failure with the config key name.
func describeFieldError(fe validator.FieldError) string {
	field := configKeyForNamespace(fe.StructNamespace())
	if fe.Param() != "" {
		return fmt.Sprintf("%s: failed %s=%s (got %v)", field, fe.Tag(), fe.Param(), fe.Value())
	}
	return fmt.Sprintf("%s: failed %s (got %v)", field, fe.Tag(), fe.Value())
}

// configKeyForNamespace maps "Settings.Index.EfConstruction" to
// "index.efconstruction" style names close to the config keys.
func configKeyForNamespace(ns string) string {
	ns = strings.TrimPrefix(ns, "Settings.")
	return strings.ToLower(ns)
}

// parseSetting converts a stored or user-supplied value to the setting's type.
func parseSetting(def setting, raw any) (any, error) {
	invalid := func(err error) error {
		return fmt.Errorf("%w: %s: %v", domain.ErrInvalidInput, def.key, err)
	}

	switch def.kind {
	case kindString:
		switch v := raw.(type) {
		case string:
			return strings.TrimSpace(v), nil
		default:
			return fmt.Sprint(v), nil
		}

	case kindInt:
		switch v := raw.(type) {
		case int:
			return v, nil
		case int64:
			return int(v), nil
		case float64:
			if v != float64(int(v)) {
				return nil, invalid(fmt.Errorf("%v is not an integer", v))
			}
			return int(v), nil
		case string:
			n, err := strconv.Atoi(strings.TrimSpace(v))
			if err != nil {
				return nil, invalid(err)
			}
			return n, nil
		}

	case kindFloat:
		switch v := raw.(type) {
		case float64:
			return v, nil
		case int:
			return float64(v), nil
		case int64:
			return float64(v), nil
		case string:
			f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
			if err != nil {
				return nil, invalid(err)
			}
			return f, nil
		}

	case kindBool:
		switch v := raw.(type) {
		case bool:
			return v, nil
		case string:
			b, err := strconv.ParseBool(strings.TrimSpace(v))
			if err != nil {
				return nil, invalid(err)
			}
			return b, nil
		}
	}
	return nil, invalid(fmt.Errorf("unexpected value %v (%T)", raw, raw))
}
