package ai

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/brokerdesk/internal/adapters/driven/embedding/mock"
	mockllm "github.com/custodia-labs/brokerdesk/internal/adapters/driven/llm/mock"
	memoryvec "github.com/custodia-labs/brokerdesk/internal/adapters/driven/vector/memory"
	sqlitevec "github.com/custodia-labs/brokerdesk/internal/adapters/driven/vector/sqlite"
	"github.com/custodia-labs/brokerdesk/internal/core/domain"
)

func TestInitResult_Close(t *testing.T) {
	t.Run("close with nil services", func(t *testing.T) {
		result := &InitResult{}
		// Should not panic
		result.Close()
	})
}

func TestCreateEmbeddingService(t *testing.T) {
	tests := []struct {
		name        string
		settings    *domain.EmbeddingSettings
		wantNil     bool
		wantErr     bool
		errContains string
	}{
		{
			name:     "nil settings returns nil",
			settings: nil,
			wantNil:  true,
		},
		{
			name:     "unconfigured settings returns nil",
			settings: &domain.EmbeddingSettings{},
			wantNil:  true,
		},
		{
			name: "ollama provider creates service",
			settings: &domain.EmbeddingSettings{
				Provider: domain.AIProviderOllama,
				BaseURL:  "http://localhost:11434",
				Model:    "nomic-embed-text",
			},
		},
		{
			name: "openai provider creates service",
			settings: &domain.EmbeddingSettings{
				Provider: domain.AIProviderOpenAI,
				APIKey:   "test-key",
				Model:    "text-embedding-3-small",
			},
		},
		{
			name: "openai without key is not configured",
			settings: &domain.EmbeddingSettings{
				Provider: domain.AIProviderOpenAI,
				Model:    "text-embedding-3-small",
			},
			wantNil: true,
		},
		{
			name:     "mock provider creates service",
			settings: &domain.EmbeddingSettings{Provider: domain.AIProviderMock},
		},
		{
			name: "anthropic provider returns error",
			settings: &domain.EmbeddingSettings{
				Provider: domain.AIProviderAnthropic,
				APIKey:   "test-key",
			},
			wantNil:     true,
			wantErr:     true,
			errContains: "anthropic does not support embeddings",
		},
		{
			name: "unknown provider returns nil (not configured)",
			settings: &domain.EmbeddingSettings{
				Provider: "unknown",
				APIKey:   "test-key",
			},
			wantNil: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, err := CreateEmbeddingService(tt.settings, domain.HTTPSettings{})

			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errContains)
			} else {
				require.NoError(t, err)
			}
			if tt.wantNil {
				assert.Nil(t, svc)
			} else {
				require.NotNil(t, svc)
				svc.Close()
			}
		})
	}
}

func TestCreateEmbeddingService_Dimensions(t *testing.T) {
	svc, err := CreateEmbeddingService(&domain.EmbeddingSettings{
		Provider: domain.AIProviderOpenAI,
		APIKey:   "test-key",
		Model:    "text-embedding-3-large",
	}, domain.HTTPSettings{})
	require.NoError(t, err)
	assert.Equal(t, 3072, svc.Dimensions())

	svc, err = CreateEmbeddingService(&domain.EmbeddingSettings{
		Provider:   domain.AIProviderMock,
		Dimensions: 16,
	}, domain.HTTPSettings{})
	require.NoError(t, err)
	assert.Equal(t, 16, svc.Dimensions())
	assert.IsType(t, &mock.EmbeddingService{}, svc)
}

func TestCreateLLMService(t *testing.T) {
	tests := []struct {
		name     string
		settings *domain.LLMSettings
		wantNil  bool
		wantErr  bool
	}{
		{name: "nil settings returns nil", settings: nil, wantNil: true},
		{name: "unconfigured settings returns nil", settings: &domain.LLMSettings{}, wantNil: true},
		{
			name: "openai chat",
			settings: &domain.LLMSettings{
				Provider: domain.AIProviderOpenAI, APIKey: "k", Model: "gpt-5-mini", API: domain.LLMAPIChat,
			},
		},
		{
			name: "openai responses",
			settings: &domain.LLMSettings{
				Provider: domain.AIProviderOpenAI, APIKey: "k", API: domain.LLMAPIResponses,
			},
		},
		{
			name: "openai unknown schema",
			settings: &domain.LLMSettings{
				Provider: domain.AIProviderOpenAI, APIKey: "k", API: "completions",
			},
			wantNil: true,
			wantErr: true,
		},
		{
			name:     "anthropic",
			settings: &domain.LLMSettings{Provider: domain.AIProviderAnthropic, APIKey: "k"},
		},
		{
			name:     "anthropic without key is not configured",
			settings: &domain.LLMSettings{Provider: domain.AIProviderAnthropic},
			wantNil:  true,
		},
		{
			name:     "ollama",
			settings: &domain.LLMSettings{Provider: domain.AIProviderOllama, Model: "llama3.2"},
		},
		{
			name:     "mock",
			settings: &domain.LLMSettings{Provider: domain.AIProviderMock},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, err := CreateLLMService(tt.settings, domain.HTTPSettings{MaxRetries: 2})
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
			if tt.wantNil {
				assert.Nil(t, svc)
			} else {
				require.NotNil(t, svc)
				svc.Close()
			}
		})
	}
}

func TestCreateVectorIndex(t *testing.T) {
	ctx := context.Background()

	t.Run("default backend is sqlite", func(t *testing.T) {
		idx, err := CreateVectorIndex(ctx, &domain.VectorIndexSettings{}, t.TempDir(), 0, domain.HTTPSettings{})
		require.NoError(t, err)
		defer idx.Close()
		assert.IsType(t, &sqlitevec.Index{}, idx)
	})

	t.Run("memory", func(t *testing.T) {
		idx, err := CreateVectorIndex(ctx, &domain.VectorIndexSettings{Backend: domain.VectorBackendMemory},
			"", 0, domain.HTTPSettings{})
		require.NoError(t, err)
		assert.IsType(t, &memoryvec.Index{}, idx)
	})

	t.Run("qdrant does not connect eagerly", func(t *testing.T) {
		idx, err := CreateVectorIndex(ctx, &domain.VectorIndexSettings{
			Backend: domain.VectorBackendQdrant,
			URL:     "http://127.0.0.1:1",
		}, "", 8, domain.HTTPSettings{})
		require.NoError(t, err)
		require.NotNil(t, idx)
		idx.Close()
	})

	t.Run("pgvector requires url", func(t *testing.T) {
		idx, err := CreateVectorIndex(ctx, &domain.VectorIndexSettings{Backend: domain.VectorBackendPgvector},
			"", 8, domain.HTTPSettings{})
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
		assert.Nil(t, idx)
	})

	t.Run("bad sqlite collection", func(t *testing.T) {
		idx, err := CreateVectorIndex(ctx, &domain.VectorIndexSettings{Collection: "drop table"},
			t.TempDir(), 0, domain.HTTPSettings{})
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
		assert.Nil(t, idx)
	})

	t.Run("unknown backend", func(t *testing.T) {
		_, err := CreateVectorIndex(ctx, &domain.VectorIndexSettings{Backend: "faiss"}, "", 0, domain.HTTPSettings{})
		assert.Error(t, err)
	})
}

func TestInitialise(t *testing.T) {
	settings := domain.DefaultAppSettings()
	settings.Library.DataDir = t.TempDir()
	settings.Embedding = domain.EmbeddingSettings{Provider: domain.AIProviderMock}
	settings.LLM = domain.LLMSettings{Provider: domain.AIProviderMock}
	settings.VectorIndex.Backend = domain.VectorBackendMemory

	result := Initialise(context.Background(), &settings)
	defer result.Close()

	assert.Empty(t, result.Warnings)
	assert.NotNil(t, result.EmbeddingService)
	assert.IsType(t, &mockllm.LLMService{}, result.LLMService)
	assert.NotNil(t, result.VectorIndex)
}

func TestInitialise_MissingKeysWarn(t *testing.T) {
	settings := domain.DefaultAppSettings()
	settings.Library.DataDir = t.TempDir()

	result := Initialise(context.Background(), &settings)
	defer result.Close()

	assert.Nil(t, result.EmbeddingService)
	assert.Nil(t, result.LLMService)
	assert.NotNil(t, result.VectorIndex)
	assert.Len(t, result.Warnings, 2)
}
