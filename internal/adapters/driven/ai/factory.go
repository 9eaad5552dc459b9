// Package ai provides factory functions for creating AI service adapters.
package ai

import (
	"context"
	"fmt"
	"time"

	"github.com/custodia-labs/brokerdesk/internal/adapters/driven/embedding/mock"
	ollamaembed "github.com/custodia-labs/brokerdesk/internal/adapters/driven/embedding/ollama"
	openaiembed "github.com/custodia-labs/brokerdesk/internal/adapters/driven/embedding/openai"
	"github.com/custodia-labs/brokerdesk/internal/adapters/driven/httpretry"
	anthropicllm "github.com/custodia-labs/brokerdesk/internal/adapters/driven/llm/anthropic"
	mockllm "github.com/custodia-labs/brokerdesk/internal/adapters/driven/llm/mock"
	ollamallm "github.com/custodia-labs/brokerdesk/internal/adapters/driven/llm/ollama"
	openaillm "github.com/custodia-labs/brokerdesk/internal/adapters/driven/llm/openai"
	memoryvec "github.com/custodia-labs/brokerdesk/internal/adapters/driven/vector/memory"
	"github.com/custodia-labs/brokerdesk/internal/adapters/driven/vector/pgvector"
	"github.com/custodia-labs/brokerdesk/internal/adapters/driven/vector/qdrant"
	sqlitevec "github.com/custodia-labs/brokerdesk/internal/adapters/driven/vector/sqlite"
	"github.com/custodia-labs/brokerdesk/internal/core/domain"
	"github.com/custodia-labs/brokerdesk/internal/core/ports/driven"
	"github.com/custodia-labs/brokerdesk/internal/logger"
)

// pingTimeout is the maximum time to wait for service connectivity validation.
const pingTimeout = 5 * time.Second

// InitResult contains the result of AI service initialisation.
type InitResult struct {
	EmbeddingService driven.EmbeddingService
	LLMService       driven.LLMService
	VectorIndex      driven.VectorIndex
	Warnings         []string // Non-fatal issues that left a service unset.
}

// Close releases all resources held by InitResult.
func (r *InitResult) Close() {
	if r.EmbeddingService != nil {
		r.EmbeddingService.Close()
	}
	if r.VectorIndex != nil {
		r.VectorIndex.Close()
	}
	if r.LLMService != nil {
		r.LLMService.Close()
	}
}

// Initialise builds every AI-facing service from settings. A service that
// cannot be created is left nil and reported as a warning, so search keeps
// working without an LLM and document queries keep working without either.
// Connectivity is not checked; providers are contacted on first use.
func Initialise(ctx context.Context, settings *domain.AppSettings) *InitResult {
	result := &InitResult{}

	embedder, err := CreateEmbeddingService(&settings.Embedding, settings.HTTP)
	switch {
	case err != nil:
		result.Warnings = append(result.Warnings, fmt.Sprintf("embedding disabled: %v", err))
	case embedder == nil:
		result.Warnings = append(result.Warnings, "embedding disabled: provider not configured")
	default:
		result.EmbeddingService = embedder
	}

	dims := 0
	if embedder != nil {
		dims = embedder.Dimensions()
	}
	index, err := CreateVectorIndex(ctx, &settings.VectorIndex, settings.Library.DataDir, dims, settings.HTTP)
	if err != nil {
		result.Warnings = append(result.Warnings, fmt.Sprintf("vector index disabled: %v", err))
	} else {
		result.VectorIndex = index
	}

	llm, err := CreateLLMService(&settings.LLM, settings.HTTP)
	switch {
	case err != nil:
		result.Warnings = append(result.Warnings, fmt.Sprintf("answers disabled: %v", err))
	case llm == nil:
		result.Warnings = append(result.Warnings, "answers disabled: llm provider not configured")
	default:
		result.LLMService = llm
	}

	for _, w := range result.Warnings {
		logger.Debug("ai init: %s", w)
	}
	return result
}

// CreateAndValidateEmbeddingService creates an embedding service and validates connectivity.
// Returns the service if successful, or an error with guidance.
func CreateAndValidateEmbeddingService(
	settings *domain.EmbeddingSettings, httpSettings domain.HTTPSettings,
) (driven.EmbeddingService, error) {
	if settings == nil || !settings.IsConfigured() {
		return nil, nil
	}

	svc, err := CreateEmbeddingService(settings, httpSettings)
	if err != nil {
		return nil, fmt.Errorf("%w: %w. Run 'brokerdesk settings set embedding.provider' to fix",
			domain.ErrEmbeddingUnavailable, err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()

	if err := svc.Ping(ctx); err != nil {
		svc.Close()
		return nil, fmt.Errorf("%w: service unreachable (%w)", domain.ErrEmbeddingUnavailable, err)
	}

	return svc, nil
}

// ValidateEmbeddingConfig validates an embedding configuration by creating a service and pinging it.
// This is intended for use by 'settings set' to validate credentials on configuration.
func ValidateEmbeddingConfig(settings *domain.EmbeddingSettings) error {
	if settings == nil || !settings.IsConfigured() {
		return nil
	}

	svc, err := CreateEmbeddingService(settings, domain.HTTPSettings{MaxRetries: 1})
	if err != nil {
		return err
	}
	defer svc.Close()

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()
	return svc.Ping(ctx)
}

// ValidateLLMConfig validates an LLM configuration by creating a service and pinging it.
// This is intended for use by 'settings set' to validate credentials on configuration.
func ValidateLLMConfig(settings *domain.LLMSettings) error {
	if settings == nil || !settings.IsConfigured() {
		return nil
	}

	svc, err := CreateLLMService(settings, domain.HTTPSettings{MaxRetries: 1})
	if err != nil {
		return err
	}
	defer svc.Close()

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()
	return svc.Ping(ctx)
}

// ValidateVectorIndexConfig checks vector index settings without contacting the backend.
// Servers are reached on first use, so only the shape of the settings is checked here.
func ValidateVectorIndexConfig(settings *domain.VectorIndexSettings) error {
	if settings == nil {
		return nil
	}
	switch settings.Backend {
	case "", domain.VectorBackendSQLite:
		return sqlitevec.ValidateCollection(settings.Collection)
	case domain.VectorBackendQdrant:
		return qdrant.Config{URL: settings.URL, Collection: settings.Collection}.Validate()
	case domain.VectorBackendPgvector:
		return pgvector.Config{URL: settings.URL, Table: settings.Collection}.Validate()
	case domain.VectorBackendMemory:
		return nil
	default:
		return fmt.Errorf("unsupported vector backend %q: %w", settings.Backend, domain.ErrUnsupportedType)
	}
}

// CreateEmbeddingService creates the appropriate embedding service based on settings.
// Returns nil if the provider is not configured.
func CreateEmbeddingService(
	settings *domain.EmbeddingSettings, httpSettings domain.HTTPSettings,
) (driven.EmbeddingService, error) {
	if settings == nil {
		return nil, nil
	}
	if settings.Provider == domain.AIProviderAnthropic {
		return nil, fmt.Errorf("anthropic does not support embeddings, use openai, ollama or mock")
	}
	if !settings.IsConfigured() {
		return nil, nil
	}

	switch settings.Provider {
	case domain.AIProviderOllama:
		return createOllamaEmbedding(settings, httpSettings), nil

	case domain.AIProviderOpenAI:
		return createOpenAIEmbedding(settings, httpSettings)

	case domain.AIProviderMock:
		return mock.NewEmbeddingService(dimensionsFor(settings)), nil

	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s", settings.Provider)
	}
}

// CreateLLMService creates the appropriate LLM service based on settings.
// Returns nil if the provider is not configured.
func CreateLLMService(settings *domain.LLMSettings, httpSettings domain.HTTPSettings) (driven.LLMService, error) {
	if settings == nil || !settings.IsConfigured() {
		return nil, nil
	}

	switch settings.Provider {
	case domain.AIProviderOllama:
		return createOllamaLLM(settings, httpSettings), nil

	case domain.AIProviderOpenAI:
		return createOpenAILLM(settings, httpSettings)

	case domain.AIProviderAnthropic:
		return createAnthropicLLM(settings, httpSettings)

	case domain.AIProviderMock:
		return mockllm.NewLLMService(), nil

	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", settings.Provider)
	}
}

// CreateVectorIndex opens the configured vector index backend.
// dims sizes server-side collections up front; zero defers creation to the first upsert.
func CreateVectorIndex(
	ctx context.Context,
	settings *domain.VectorIndexSettings,
	dataDir string,
	dims int,
	httpSettings domain.HTTPSettings,
) (driven.VectorIndex, error) {
	if settings == nil {
		return nil, fmt.Errorf("vector index: %w", domain.ErrInvalidInput)
	}
	backend := settings.Backend
	if backend == "" {
		backend = domain.VectorBackendSQLite
	}
	if err := ValidateVectorIndexConfig(settings); err != nil {
		return nil, err
	}

	switch backend {
	case domain.VectorBackendSQLite:
		idx, err := sqlitevec.New(dataDir, settings.Collection)
		if err != nil {
			return nil, err
		}
		return idx, nil

	case domain.VectorBackendQdrant:
		return qdrant.New(qdrant.Config{
			URL:        settings.URL,
			APIKey:     settings.APIKey,
			Collection: settings.Collection,
			Retry:      retryConfig(httpSettings),
		}), nil

	case domain.VectorBackendPgvector:
		idx, err := pgvector.New(ctx, pgvector.Config{
			URL:        settings.URL,
			Table:      settings.Collection,
			Dimensions: dims,
		})
		if err != nil {
			return nil, err
		}
		return idx, nil

	case domain.VectorBackendMemory:
		return memoryvec.New(), nil

	default:
		return nil, fmt.Errorf("unsupported vector backend: %s", backend)
	}
}

func retryConfig(s domain.HTTPSettings) httpretry.Config {
	return httpretry.Config{
		MaxRetries:        s.MaxRetries,
		RequestsPerSecond: s.RequestsPerSecond,
	}
}

// dimensionsFor prefers an explicit override, then the known model size.
func dimensionsFor(settings *domain.EmbeddingSettings) int {
	if settings.Dimensions > 0 {
		return settings.Dimensions
	}
	return domain.EmbeddingDimensions()[settings.Model]
}

// createOllamaEmbedding creates an Ollama embedding service.
func createOllamaEmbedding(settings *domain.EmbeddingSettings, httpSettings domain.HTTPSettings) driven.EmbeddingService {
	dimensions := dimensionsFor(settings)
	if dimensions == 0 {
		dimensions = ollamaembed.DefaultDimensions
	}

	return ollamaembed.NewEmbeddingService(ollamaembed.Config{
		BaseURL:    settings.BaseURL,
		Model:      settings.Model,
		Dimensions: dimensions,
		Retry:      retryConfig(httpSettings),
	})
}

// createOpenAIEmbedding creates an OpenAI embedding service.
func createOpenAIEmbedding(
	settings *domain.EmbeddingSettings, httpSettings domain.HTTPSettings,
) (driven.EmbeddingService, error) {
	svc, err := openaiembed.NewEmbeddingService(openaiembed.Config{
		APIKey:     settings.APIKey,
		BaseURL:    settings.BaseURL,
		Model:      settings.Model,
		Dimensions: dimensionsFor(settings),
		Retry:      retryConfig(httpSettings),
	})
	if err != nil {
		return nil, err
	}
	return svc, nil
}

// createOllamaLLM creates an Ollama LLM service.
func createOllamaLLM(settings *domain.LLMSettings, httpSettings domain.HTTPSettings) driven.LLMService {
	return ollamallm.NewLLMService(ollamallm.LLMConfig{
		BaseURL: settings.BaseURL,
		Model:   settings.Model,
		Retry:   retryConfig(httpSettings),
	})
}

// createOpenAILLM creates an OpenAI LLM service.
func createOpenAILLM(settings *domain.LLMSettings, httpSettings domain.HTTPSettings) (driven.LLMService, error) {
	svc, err := openaillm.NewLLMService(openaillm.LLMConfig{
		APIKey:  settings.APIKey,
		BaseURL: settings.BaseURL,
		Model:   settings.Model,
		API:     settings.API,
		Retry:   retryConfig(httpSettings),
	})
	if err != nil {
		return nil, err
	}
	return svc, nil
}

// createAnthropicLLM creates an Anthropic LLM service.
func createAnthropicLLM(settings *domain.LLMSettings, httpSettings domain.HTTPSettings) (driven.LLMService, error) {
	svc, err := anthropicllm.NewLLMService(anthropicllm.Config{
		APIKey:  settings.APIKey,
		BaseURL: settings.BaseURL,
		Model:   settings.Model,
		Retry:   retryConfig(httpSettings),
	})
	if err != nil {
		return nil, err
	}
	return svc, nil
}
