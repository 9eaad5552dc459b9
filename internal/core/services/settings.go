package services

import (
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/custodia-labs/brokerdesk/internal/core/domain"
	"github.com/custodia-labs/brokerdesk/internal/core/ports/driven"
	"github.com/custodia-labs/brokerdesk/internal/core/ports/driving"
)

// Ensure SettingsService implements the interface.
var _ driving.SettingsService = (*SettingsService)(nil)

// Config keys for settings storage.
//
//nolint:gosec // G101: These are config key names, not actual credentials.
const (
	keyLibraryDir         = "library.dir"
	keyDataDir            = "data.dir"
	keyLongChars          = "chunking.long_chars"
	keyLongOverlap        = "chunking.long_overlap"
	keyShortChars         = "chunking.short_chars"
	keyShortOverlap       = "chunking.short_overlap"
	keyLongDocThreshold   = "chunking.long_doc_page_threshold"
	keyChunkingVersion    = "chunking.version"
	keyEmbedProvider      = "embedding.provider"
	keyEmbedModel         = "embedding.model"
	keyEmbedBaseURL       = "embedding.base_url"
	keyEmbedAPIKey        = "embedding.api_key"
	keyEmbedBatchSize     = "embedding.batch_size"
	keyEmbedDimensions    = "embedding.dimensions"
	keyLLMProvider        = "llm.provider"
	keyLLMModel           = "llm.model"
	keyLLMBaseURL         = "llm.base_url"
	keyLLMAPIKey          = "llm.api_key"
	keyLLMAPI             = "llm.api"
	keyVectorBackend      = "vector_index.backend"
	keyVectorURL          = "vector_index.url"
	keyVectorCollection   = "vector_index.collection"
	keyVectorAPIKey       = "vector_index.api_key"
	keyTopK               = "retrieval.top_k"
	keyMaxContextChars    = "retrieval.max_context_chars"
	keyHTTPMaxRetries     = "http.max_retries"
	keyHTTPRequestsPerSec = "http.requests_per_second"
	keyOpenAIAPIKey       = "openai.api_key"
	keyAnthropicAPIKey    = "anthropic.api_key"
)

// defaultLocalProviderURL is where Ollama listens out of the box.
const defaultLocalProviderURL = "http://localhost:11434"

type keyKind int

const (
	kindString keyKind = iota
	kindInt
	kindFloat
	kindSecret
)

// settingKeys lists every key Set accepts and how its value is parsed.
var settingKeys = map[string]keyKind{
	keyLibraryDir:         kindString,
	keyDataDir:            kindString,
	keyLongChars:          kindInt,
	keyLongOverlap:        kindInt,
	keyShortChars:         kindInt,
	keyShortOverlap:       kindInt,
	keyLongDocThreshold:   kindInt,
	keyChunkingVersion:    kindInt,
	keyEmbedProvider:      kindString,
	keyEmbedModel:         kindString,
	keyEmbedBaseURL:       kindString,
	keyEmbedAPIKey:        kindSecret,
	keyEmbedBatchSize:     kindInt,
	keyEmbedDimensions:    kindInt,
	keyLLMProvider:        kindString,
	keyLLMModel:           kindString,
	keyLLMBaseURL:         kindString,
	keyLLMAPIKey:          kindSecret,
	keyLLMAPI:             kindString,
	keyVectorBackend:      kindString,
	keyVectorURL:          kindSecret,
	keyVectorCollection:   kindString,
	keyVectorAPIKey:       kindSecret,
	keyTopK:               kindInt,
	keyMaxContextChars:    kindInt,
	keyHTTPMaxRetries:     kindInt,
	keyHTTPRequestsPerSec: kindFloat,
	keyOpenAIAPIKey:       kindSecret,
	keyAnthropicAPIKey:    kindSecret,
}

// SettingKeys returns every settable key, sorted.
func SettingKeys() []string {
	keys := make([]string, 0, len(settingKeys))
	for k := range settingKeys {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// IsSecretKey reports whether a key holds a credential that should be masked.
func IsSecretKey(key string) bool {
	return settingKeys[key] == kindSecret
}

// SettingsService manages application settings.
type SettingsService struct {
	configStore driven.ConfigStore
	aiValidator driven.AIConfigValidator
	homeDir     string
}

// NewSettingsService creates a new settings service.
// homeDir anchors the default library and data directories.
func NewSettingsService(
	configStore driven.ConfigStore,
	aiValidator driven.AIConfigValidator,
	homeDir string,
) *SettingsService {
	return &SettingsService{
		configStore: configStore,
		aiValidator: aiValidator,
		homeDir:     homeDir,
	}
}

// Get retrieves current application settings with environment overrides applied.
func (s *SettingsService) Get() (*domain.AppSettings, error) {
	defaults := s.GetDefaults()

	settings := &domain.AppSettings{
		Library: domain.LibrarySettings{
			Dir:     s.getString(keyLibraryDir, defaults.Library.Dir),
			DataDir: s.getString(keyDataDir, defaults.Library.DataDir),
		},
		Chunking: domain.ChunkingSettings{
			Long: domain.ChunkPolicy{
				Size:    s.getInt(keyLongChars, defaults.Chunking.Long.Size),
				Overlap: s.getInt(keyLongOverlap, defaults.Chunking.Long.Overlap),
			},
			Short: domain.ChunkPolicy{
				Size:    s.getInt(keyShortChars, defaults.Chunking.Short.Size),
				Overlap: s.getInt(keyShortOverlap, defaults.Chunking.Short.Overlap),
			},
			LongDocPageThreshold: s.getInt(keyLongDocThreshold, defaults.Chunking.LongDocPageThreshold),
			Version:              s.getInt(keyChunkingVersion, defaults.Chunking.Version),
		},
		Embedding: domain.EmbeddingSettings{
			Provider:   s.getProvider(keyEmbedProvider, defaults.Embedding.Provider),
			Model:      s.getString(keyEmbedModel, defaults.Embedding.Model),
			BaseURL:    s.configStore.GetString(keyEmbedBaseURL), // No default - empty is valid for cloud providers
			APIKey:     s.configStore.GetString(keyEmbedAPIKey),
			BatchSize:  s.getInt(keyEmbedBatchSize, defaults.Embedding.BatchSize),
			Dimensions: s.configStore.GetInt(keyEmbedDimensions),
		},
		LLM: domain.LLMSettings{
			Provider: s.getProvider(keyLLMProvider, defaults.LLM.Provider),
			Model:    s.getString(keyLLMModel, defaults.LLM.Model),
			BaseURL:  s.configStore.GetString(keyLLMBaseURL),
			APIKey:   s.configStore.GetString(keyLLMAPIKey),
			API:      domain.LLMAPI(s.getString(keyLLMAPI, string(defaults.LLM.API))),
		},
		VectorIndex: domain.VectorIndexSettings{
			Backend:    domain.VectorBackend(s.getString(keyVectorBackend, string(defaults.VectorIndex.Backend))),
			URL:        s.configStore.GetString(keyVectorURL),
			Collection: s.getString(keyVectorCollection, defaults.VectorIndex.Collection),
			APIKey:     s.configStore.GetString(keyVectorAPIKey),
		},
		Retrieval: domain.RetrievalSettings{
			TopK:            s.getInt(keyTopK, defaults.Retrieval.TopK),
			MaxContextChars: s.getInt(keyMaxContextChars, defaults.Retrieval.MaxContextChars),
		},
		HTTP: domain.HTTPSettings{
			MaxRetries:        s.getInt(keyHTTPMaxRetries, defaults.HTTP.MaxRetries),
			RequestsPerSecond: s.getFloat(keyHTTPRequestsPerSec, defaults.HTTP.RequestsPerSecond),
		},
	}

	// Provider-wide keys fill in when no service-specific key is set.
	if settings.Embedding.APIKey == "" {
		settings.Embedding.APIKey = s.providerKey(settings.Embedding.Provider)
	}
	if settings.LLM.APIKey == "" {
		settings.LLM.APIKey = s.providerKey(settings.LLM.Provider)
	}

	return settings, nil
}

func (s *SettingsService) providerKey(p domain.AIProvider) string {
	switch p {
	case domain.AIProviderOpenAI:
		return s.configStore.GetString(keyOpenAIAPIKey)
	case domain.AIProviderAnthropic:
		return s.configStore.GetString(keyAnthropicAPIKey)
	default:
		return ""
	}
}

type setting struct {
	key   string
	value any
}

// Save persists application settings.
// API keys are written only when set, so a key supplied by the environment is never copied to disk.
func (s *SettingsService) Save(settings *domain.AppSettings) error {
	values := []setting{
		{keyLibraryDir, settings.Library.Dir},
		{keyDataDir, settings.Library.DataDir},
		{keyLongChars, settings.Chunking.Long.Size},
		{keyLongOverlap, settings.Chunking.Long.Overlap},
		{keyShortChars, settings.Chunking.Short.Size},
		{keyShortOverlap, settings.Chunking.Short.Overlap},
		{keyLongDocThreshold, settings.Chunking.LongDocPageThreshold},
		{keyChunkingVersion, settings.Chunking.Version},
		{keyEmbedProvider, settings.Embedding.Provider.String()},
		{keyEmbedModel, settings.Embedding.Model},
		{keyEmbedBaseURL, settings.Embedding.BaseURL},
		{keyEmbedBatchSize, settings.Embedding.BatchSize},
		{keyEmbedDimensions, settings.Embedding.Dimensions},
		{keyLLMProvider, settings.LLM.Provider.String()},
		{keyLLMModel, settings.LLM.Model},
		{keyLLMBaseURL, settings.LLM.BaseURL},
		{keyLLMAPI, string(settings.LLM.API)},
		{keyVectorBackend, settings.VectorIndex.Backend.String()},
		{keyVectorURL, settings.VectorIndex.URL},
		{keyVectorCollection, settings.VectorIndex.Collection},
		{keyTopK, settings.Retrieval.TopK},
		{keyMaxContextChars, settings.Retrieval.MaxContextChars},
		{keyHTTPMaxRetries, settings.HTTP.MaxRetries},
		{keyHTTPRequestsPerSec, settings.HTTP.RequestsPerSecond},
	}
	if settings.Embedding.APIKey != "" && settings.Embedding.APIKey != s.providerKey(settings.Embedding.Provider) {
		values = append(values, setting{keyEmbedAPIKey, settings.Embedding.APIKey})
	}
	if settings.LLM.APIKey != "" && settings.LLM.APIKey != s.providerKey(settings.LLM.Provider) {
		values = append(values, setting{keyLLMAPIKey, settings.LLM.APIKey})
	}
	if settings.VectorIndex.APIKey != "" {
		values = append(values, setting{keyVectorAPIKey, settings.VectorIndex.APIKey})
	}

	for _, v := range values {
		if err := s.configStore.Set(v.key, v.value); err != nil {
			return fmt.Errorf("save %s: %w", v.key, err)
		}
	}
	return nil
}

// Set parses value for key and stores it.
// Strings are converted to the key's type; unknown keys are rejected.
func (s *SettingsService) Set(key string, value any) error {
	kind, ok := settingKeys[key]
	if !ok {
		return fmt.Errorf("unknown setting %q: %w", key, domain.ErrInvalidInput)
	}

	parsed, err := coerce(kind, value)
	if err != nil {
		return fmt.Errorf("setting %s: %w", key, err)
	}

	switch key {
	case keyEmbedProvider:
		p := domain.AIProvider(parsed.(string))
		if !p.IsValid() || p == domain.AIProviderAnthropic {
			return fmt.Errorf("embedding provider %q: %w", p, domain.ErrUnsupportedType)
		}
	case keyLLMProvider:
		if p := domain.AIProvider(parsed.(string)); !p.IsValid() {
			return fmt.Errorf("llm provider %q: %w", p, domain.ErrUnsupportedType)
		}
	case keyLLMAPI:
		if a := domain.LLMAPI(parsed.(string)); !a.IsValid() {
			return fmt.Errorf("llm api %q: %w", a, domain.ErrUnsupportedType)
		}
	case keyVectorBackend:
		if b := domain.VectorBackend(parsed.(string)); !b.IsValid() {
			return fmt.Errorf("vector backend %q: %w", b, domain.ErrUnsupportedType)
		}
	}

	return s.configStore.Set(key, parsed)
}

func coerce(kind keyKind, value any) (any, error) {
	str, isString := value.(string)
	switch kind {
	case kindInt:
		switch v := value.(type) {
		case int:
			return v, nil
		case int64:
			return int(v), nil
		}
		if !isString {
			return nil, fmt.Errorf("expected an integer: %w", domain.ErrInvalidInput)
		}
		n, err := strconv.Atoi(strings.TrimSpace(str))
		if err != nil {
			return nil, fmt.Errorf("expected an integer, got %q: %w", str, domain.ErrInvalidInput)
		}
		return n, nil
	case kindFloat:
		switch v := value.(type) {
		case float64:
			return v, nil
		case int:
			return float64(v), nil
		}
		if !isString {
			return nil, fmt.Errorf("expected a number: %w", domain.ErrInvalidInput)
		}
		f, err := strconv.ParseFloat(strings.TrimSpace(str), 64)
		if err != nil {
			return nil, fmt.Errorf("expected a number, got %q: %w", str, domain.ErrInvalidInput)
		}
		return f, nil
	default:
		if !isString {
			return nil, fmt.Errorf("expected a string: %w", domain.ErrInvalidInput)
		}
		return strings.TrimSpace(str), nil
	}
}

// SetEmbeddingProvider configures the embedding provider.
func (s *SettingsService) SetEmbeddingProvider(provider domain.AIProvider, model, apiKey string) error {
	if !provider.IsValid() {
		return fmt.Errorf("invalid embedding provider: %s", provider)
	}
	if !containsProvider(domain.AllEmbeddingProviders(), provider) {
		return fmt.Errorf("provider %s does not support embeddings", provider)
	}

	settings, err := s.Get()
	if err != nil {
		return err
	}
	if apiKey == "" {
		apiKey = s.providerKey(provider)
	}
	if provider.RequiresAPIKey() && apiKey == "" {
		return fmt.Errorf("API key required for %s", provider)
	}

	settings.Embedding.Provider = provider
	settings.Embedding.Model = modelOrDefault(model, domain.DefaultEmbeddingModels()[provider])
	settings.Embedding.BaseURL = baseURLFor(provider, settings.Embedding.BaseURL)
	settings.Embedding.APIKey = apiKey
	settings.Embedding.Dimensions = 0

	return s.Save(settings)
}

// SetLLMProvider configures the LLM provider.
func (s *SettingsService) SetLLMProvider(provider domain.AIProvider, model, apiKey string) error {
	if !provider.IsValid() {
		return fmt.Errorf("invalid LLM provider: %s", provider)
	}

	settings, err := s.Get()
	if err != nil {
		return err
	}
	if apiKey == "" {
		apiKey = s.providerKey(provider)
	}
	if provider.RequiresAPIKey() && apiKey == "" {
		return fmt.Errorf("API key required for %s", provider)
	}

	settings.LLM.Provider = provider
	settings.LLM.Model = modelOrDefault(model, domain.DefaultLLMModels()[provider])
	settings.LLM.BaseURL = baseURLFor(provider, settings.LLM.BaseURL)
	settings.LLM.APIKey = apiKey

	return s.Save(settings)
}

func containsProvider(list []domain.AIProvider, p domain.AIProvider) bool {
	for _, candidate := range list {
		if candidate == p {
			return true
		}
	}
	return false
}

func modelOrDefault(model, fallback string) string {
	if model != "" {
		return model
	}
	return fallback
}

// baseURLFor keeps a custom URL for Ollama and clears it for hosted providers.
func baseURLFor(p domain.AIProvider, current string) string {
	switch p {
	case domain.AIProviderOllama:
		if current == "" {
			return defaultLocalProviderURL
		}
		return current
	default:
		return ""
	}
}

// Validate checks the settings for consistency.
func (s *SettingsService) Validate() error {
	settings, err := s.Get()
	if err != nil {
		return err
	}

	var errs []error
	for name, p := range map[string]domain.ChunkPolicy{
		"long":  settings.Chunking.Long,
		"short": settings.Chunking.Short,
	} {
		if p.Size <= 0 {
			errs = append(errs, fmt.Errorf("%s chunk size must be positive", name))
		}
		if p.Overlap < 0 || p.Overlap >= p.Size {
			errs = append(errs, fmt.Errorf("%s chunk overlap must be in [0, size)", name))
		}
	}
	if settings.Chunking.LongDocPageThreshold <= 0 {
		errs = append(errs, errors.New("long document page threshold must be positive"))
	}
	if !settings.Embedding.IsConfigured() {
		errs = append(errs, fmt.Errorf("embedding provider %q is not configured", settings.Embedding.Provider))
	}
	if settings.Embedding.BatchSize <= 0 {
		errs = append(errs, errors.New("embedding batch size must be positive"))
	}
	switch {
	case !settings.VectorIndex.Backend.IsValid():
		errs = append(errs, fmt.Errorf("unknown vector backend %q", settings.VectorIndex.Backend))
	case s.aiValidator != nil:
		if err := s.aiValidator.ValidateVectorIndex(&settings.VectorIndex); err != nil {
			errs = append(errs, err)
		}
	case settings.VectorIndex.Backend == domain.VectorBackendPgvector && settings.VectorIndex.URL == "":
		errs = append(errs, errors.New("pgvector backend requires vector_index.url"))
	}
	if settings.LLM.Provider == domain.AIProviderOpenAI && !settings.LLM.API.IsValid() {
		errs = append(errs, fmt.Errorf("unknown llm api %q", settings.LLM.API))
	}
	if settings.Retrieval.TopK <= 0 {
		errs = append(errs, errors.New("retrieval top_k must be positive"))
	}
	if settings.Retrieval.MaxContextChars <= 0 {
		errs = append(errs, errors.New("retrieval max_context_chars must be positive"))
	}

	if len(errs) > 0 {
		sort.Slice(errs, func(i, j int) bool { return errs[i].Error() < errs[j].Error() })
		return fmt.Errorf("%w: %w", domain.ErrInvalidInput, errors.Join(errs...))
	}
	return nil
}

// GetDefaults returns default settings rooted at the home directory.
func (s *SettingsService) GetDefaults() domain.AppSettings {
	defaults := domain.DefaultAppSettings()
	if s.homeDir != "" {
		defaults.Library.Dir = filepath.Join(s.homeDir, "library")
		defaults.Library.DataDir = filepath.Join(s.homeDir, "data")
	}
	return defaults
}

// ValidateEmbeddingConfig validates the current embedding configuration by pinging the provider.
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

// ValidateLLMConfig validates the current LLM configuration by pinging the provider.
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

func (s *SettingsService) getString(key, defaultVal string) string {
	if v := s.configStore.GetString(key); v != "" {
		return v
	}
	return defaultVal
}

// getInt returns defaultVal when the key is missing or not an integer.
// A stored zero is kept.
func (s *SettingsService) getInt(key string, defaultVal int) int {
	raw, ok := s.configStore.Get(key)
	if !ok {
		return defaultVal
	}
	switch raw.(type) {
	case int, int64:
		return s.configStore.GetInt(key)
	default:
		return defaultVal
	}
}

func (s *SettingsService) getFloat(key string, defaultVal float64) float64 {
	raw, ok := s.configStore.Get(key)
	if !ok {
		return defaultVal
	}
	switch raw.(type) {
	case float64, int, int64:
		return s.configStore.GetFloat(key)
	default:
		return defaultVal
	}
}

func (s *SettingsService) getProvider(key string, defaultVal domain.AIProvider) domain.AIProvider {
	p := domain.AIProvider(s.configStore.GetString(key))
	if p.IsValid() {
		return p
	}
	return defaultVal
}
