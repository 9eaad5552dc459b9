package domain

const unknownDescription = "Unknown"

// AIProvider identifies an AI service provider for embeddings or LLM.
type AIProvider string

// Available AI providers.
const (
	// AIProviderOpenAI is OpenAI cloud API.
	AIProviderOpenAI AIProvider = "openai"

	// AIProviderOllama is local Ollama instance.
	AIProviderOllama AIProvider = "ollama"

	// AIProviderAnthropic is Anthropic cloud API.
	AIProviderAnthropic AIProvider = "anthropic"

	// AIProviderMock is a deterministic offline provider used in tests and demos.
	AIProviderMock AIProvider = "mock"
)

// IsValid returns true if the AI provider is recognised.
func (p AIProvider) IsValid() bool {
	switch p {
	case AIProviderOllama, AIProviderOpenAI, AIProviderAnthropic, AIProviderMock:
		return true
	default:
		return false
	}
}

// RequiresAPIKey returns true if this provider needs an API key.
func (p AIProvider) RequiresAPIKey() bool {
	return p == AIProviderOpenAI || p == AIProviderAnthropic
}

// IsLocal returns true if this provider runs without network credentials.
func (p AIProvider) IsLocal() bool {
	return p == AIProviderOllama || p == AIProviderMock
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
	case AIProviderAnthropic:
		return "Anthropic (cloud)"
	case AIProviderMock:
		return "Mock (offline, deterministic)"
	default:
		return unknownDescription
	}
}

// LLMAPI selects the OpenAI request/response schema.
type LLMAPI string

// Supported OpenAI API schemas.
const (
	// LLMAPIChat is the chat completions endpoint.
	LLMAPIChat LLMAPI = "chat"

	// LLMAPIResponses is the responses endpoint.
	LLMAPIResponses LLMAPI = "responses"
)

// IsValid returns true if the schema is recognised.
func (a LLMAPI) IsValid() bool {
	return a == LLMAPIChat || a == LLMAPIResponses
}

// VectorBackend identifies a vector index implementation.
type VectorBackend string

// Available vector index backends.
const (
	// VectorBackendSQLite is a local collection stored next to the metadata database.
	VectorBackendSQLite VectorBackend = "sqlite"

	// VectorBackendQdrant is a Qdrant server reached over REST.
	VectorBackendQdrant VectorBackend = "qdrant"

	// VectorBackendPgvector is a PostgreSQL database with the pgvector extension.
	VectorBackendPgvector VectorBackend = "pgvector"

	// VectorBackendMemory keeps vectors in process memory only.
	VectorBackendMemory VectorBackend = "memory"
)

// IsValid returns true if the backend is recognised.
func (b VectorBackend) IsValid() bool {
	switch b {
	case VectorBackendSQLite, VectorBackendQdrant, VectorBackendPgvector, VectorBackendMemory:
		return true
	default:
		return false
	}
}

// RequiresURL returns true if the backend connects to a server.
func (b VectorBackend) RequiresURL() bool {
	return b == VectorBackendQdrant || b == VectorBackendPgvector
}

// String returns the string representation.
func (b VectorBackend) String() string {
	return string(b)
}

// LibrarySettings locates the watched library and local state.
type LibrarySettings struct {
	// Dir is the library root walked by sync and used as durable file storage.
	Dir string

	// DataDir holds the databases and the sync lock file.
	DataDir string
}

// ChunkPolicy is one chunk size/overlap pair, measured in characters.
type ChunkPolicy struct {
	Size    int
	Overlap int
}

// ChunkingSettings holds both chunking policies and the selection threshold.
type ChunkingSettings struct {
	// Long applies to documents with at least LongDocPageThreshold pages.
	Long ChunkPolicy

	// Short applies to every other document.
	Short ChunkPolicy

	// LongDocPageThreshold is the page count at which Long is selected.
	LongDocPageThreshold int

	// Version is recorded on each document for future re-chunk decisions.
	Version int
}

// Select returns the policy for a document with the given page count.
func (c ChunkingSettings) Select(pages int) ChunkPolicy {
	if pages >= c.LongDocPageThreshold {
		return c.Long
	}
	return c.Short
}

// EmbeddingSettings holds embedding provider configuration.
type EmbeddingSettings struct {
	// Provider is the embedding service provider.
	Provider AIProvider

	// Model is the embedding model name.
	Model string

	// BaseURL is the API endpoint. Empty means the provider default.
	BaseURL string

	// APIKey is the API key (for OpenAI).
	APIKey string

	// BatchSize is the number of texts sent per embedding request.
	BatchSize int

	// Dimensions overrides the known model dimension when non-zero.
	Dimensions int
}

// IsConfigured returns true if the embedding provider is set up.
func (e EmbeddingSettings) IsConfigured() bool {
	if !e.Provider.IsValid() || e.Provider == AIProviderAnthropic {
		return false
	}
	if e.Provider.RequiresAPIKey() && e.APIKey == "" {
		return false
	}
	return true
}

// LLMSettings holds LLM provider configuration.
type LLMSettings struct {
	// Provider is the LLM service provider.
	Provider AIProvider

	// Model is the LLM model name.
	Model string

	// BaseURL is the API endpoint. Empty means the provider default.
	BaseURL string

	// APIKey is the API key (for OpenAI/Anthropic).
	APIKey string

	// API selects the OpenAI schema. Ignored by other providers.
	API LLMAPI
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

// VectorIndexSettings holds vector index configuration.
type VectorIndexSettings struct {
	// Backend selects the implementation.
	Backend VectorBackend

	// URL is the server address (Qdrant) or connection string (pgvector).
	URL string

	// Collection is the collection or table name.
	Collection string

	// APIKey authenticates against Qdrant Cloud.
	APIKey string
}

// RetrievalSettings holds search and answer budgets.
type RetrievalSettings struct {
	// TopK is the default number of chunks returned by a search.
	TopK int

	// MaxContextChars bounds the context passed to the LLM.
	MaxContextChars int
}

// HTTPSettings tunes the outbound provider clients.
type HTTPSettings struct {
	// MaxRetries is the total number of attempts per request.
	MaxRetries int

	// RequestsPerSecond caps the request rate per provider client. Zero disables.
	RequestsPerSecond float64
}

// AppSettings holds all application settings.
type AppSettings struct {
	Library     LibrarySettings
	Chunking    ChunkingSettings
	Embedding   EmbeddingSettings
	LLM         LLMSettings
	VectorIndex VectorIndexSettings
	Retrieval   RetrievalSettings
	HTTP        HTTPSettings
}

// DefaultAppSettings returns settings with sensible defaults.
// API keys are left empty; they come from the config file or environment.
func DefaultAppSettings() AppSettings {
	return AppSettings{
		Chunking: ChunkingSettings{
			Long:                 ChunkPolicy{Size: 2500, Overlap: 150},
			Short:                ChunkPolicy{Size: 1000, Overlap: 100},
			LongDocPageThreshold: 15,
			Version:              1,
		},
		Embedding: EmbeddingSettings{
			Provider:  AIProviderOpenAI,
			Model:     "text-embedding-3-small",
			BatchSize: 128,
		},
		LLM: LLMSettings{
			Provider: AIProviderOpenAI,
			Model:    "gpt-5-mini",
			API:      LLMAPIChat,
		},
		VectorIndex: VectorIndexSettings{
			Backend:    VectorBackendSQLite,
			Collection: "doc_chunks",
		},
		Retrieval: RetrievalSettings{
			TopK:            6,
			MaxContextChars: 6000,
		},
		HTTP: HTTPSettings{
			MaxRetries:        3,
			RequestsPerSecond: 5,
		},
	}
}

// AllEmbeddingProviders returns providers that support embeddings.
func AllEmbeddingProviders() []AIProvider {
	return []AIProvider{
		AIProviderOpenAI,
		AIProviderOllama,
		AIProviderMock,
	}
}

// AllLLMProviders returns providers that support LLM operations.
func AllLLMProviders() []AIProvider {
	return []AIProvider{
		AIProviderOpenAI,
		AIProviderAnthropic,
		AIProviderOllama,
		AIProviderMock,
	}
}

// AllVectorBackends returns every supported vector index backend.
func AllVectorBackends() []VectorBackend {
	return []VectorBackend{
		VectorBackendSQLite,
		VectorBackendQdrant,
		VectorBackendPgvector,
		VectorBackendMemory,
	}
}

// DefaultEmbeddingModels returns default models for each embedding provider.
func DefaultEmbeddingModels() map[AIProvider]string {
	return map[AIProvider]string{
		AIProviderOllama: "nomic-embed-text",
		AIProviderOpenAI: "text-embedding-3-small",
		AIProviderMock:   "mock-embed",
	}
}

// DefaultLLMModels returns default models for each LLM provider.
func DefaultLLMModels() map[AIProvider]string {
	return map[AIProvider]string{
		AIProviderOllama:    "llama3.2",
		AIProviderOpenAI:    "gpt-5-mini",
		AIProviderAnthropic: "claude-3-5-sonnet-latest",
		AIProviderMock:      "mock-llm",
	}
}

// EmbeddingDimensions returns the vector dimensions for known models.
func EmbeddingDimensions() map[string]int {
	return map[string]int{
		// Ollama models
		"nomic-embed-text":  768,
		"mxbai-embed-large": 1024,
		"all-minilm":        384,
		// OpenAI models
		"text-embedding-3-small": 1536,
		"text-embedding-3-large": 3072,
		"text-embedding-ada-002": 1536,
		// Offline
		"mock-embed": 64,
	}
}
