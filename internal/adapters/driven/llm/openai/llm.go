// Package openai provides an LLM service adapter using OpenAI API.
//
// Two request schemas are supported: chat completions and the responses API.
package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/custodia-labs/brokerdesk/internal/adapters/driven/httpretry"
	"github.com/custodia-labs/brokerdesk/internal/core/domain"
	"github.com/custodia-labs/brokerdesk/internal/core/ports/driven"
)

// Ensure LLMService implements the interface.
var _ driven.LLMService = (*LLMService)(nil)

// Default configuration values.
const (
	DefaultBaseURL    = "https://api.openai.com/v1"
	DefaultLLMModel   = "gpt-5-mini"
	DefaultLLMTimeout = 120 * time.Second
)

const providerName = "openai"

// LLMConfig holds configuration for the OpenAI LLM service.
type LLMConfig struct {
	// APIKey is the OpenAI API key (required).
	APIKey string

	// BaseURL is the API base URL (default: https://api.openai.com/v1).
	// Can be changed for Azure OpenAI or compatible APIs.
	BaseURL string

	// Model is the LLM model to use (default: gpt-5-mini).
	Model string

	// API selects chat completions or the responses endpoint (default: chat).
	API domain.LLMAPI

	// Timeout is the request timeout (default: 120s).
	Timeout time.Duration

	// Retry tunes retries and rate limiting.
	Retry httpretry.Config
}

// LLMService provides LLM operations using OpenAI API.
type LLMService struct {
	client  *httpretry.Client
	baseURL string
	apiKey  string
	model   string
	api     domain.LLMAPI
}

// chatCompletionRequest is the OpenAI /chat/completions request format.
type chatCompletionRequest struct {
	Model               string       `json:"model"`
	Messages            []messageDTO `json:"messages"`
	MaxTokens           int          `json:"max_tokens,omitempty"`
	MaxCompletionTokens int          `json:"max_completion_tokens,omitempty"`
	Temperature         float64      `json:"temperature,omitempty"`
	Stop                []string     `json:"stop,omitempty"`
}

// responsesRequest is the OpenAI /responses request format.
type responsesRequest struct {
	Model           string       `json:"model"`
	Input           []messageDTO `json:"input"`
	MaxOutputTokens int          `json:"max_output_tokens,omitempty"`
	Temperature     float64      `json:"temperature,omitempty"`
}

// messageDTO is the OpenAI message format shared by both schemas.
type messageDTO struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type apiError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
}

// chatCompletionResponse is the OpenAI /chat/completions response format.
type chatCompletionResponse struct {
	Choices []struct {
		Message struct {
			Content *string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Error *apiError `json:"error,omitempty"`
}

// responsesResponse is the OpenAI /responses response format.
type responsesResponse struct {
	OutputText string `json:"output_text"`
	Output     []struct {
		Type    string `json:"type"`
		Text    string `json:"text"`
		Content []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"content"`
	} `json:"output"`
	Error *apiError `json:"error,omitempty"`
}

// NewLLMService creates a new OpenAI LLM service.
func NewLLMService(cfg LLMConfig) (*LLMService, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openai: API key is required")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultLLMModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultLLMTimeout
	}
	if cfg.API == "" {
		cfg.API = domain.LLMAPIChat
	}
	if !cfg.API.IsValid() {
		return nil, fmt.Errorf("openai: unknown api schema %q", cfg.API)
	}

	retry := cfg.Retry
	retry.Provider = providerName

	return &LLMService{
		client:  httpretry.New(&http.Client{Timeout: cfg.Timeout}, retry),
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		model:   cfg.Model,
		api:     cfg.API,
	}, nil
}

// Generate produces text completion from a prompt.
func (s *LLMService) Generate(ctx context.Context, prompt string, opts driven.GenerateOptions) (string, error) {
	messages := []driven.ChatMessage{
		{Role: "user", Content: prompt},
	}
	chatOpts := driven.ChatOptions{
		MaxTokens:   opts.MaxTokens,
		Temperature: opts.Temperature,
	}
	return s.complete(ctx, messages, chatOpts, opts.StopWords)
}

// Chat conducts a multi-turn conversation.
func (s *LLMService) Chat(ctx context.Context, messages []driven.ChatMessage, opts driven.ChatOptions) (string, error) {
	return s.complete(ctx, messages, opts, nil)
}

// complete sends the conversation using the configured schema.
func (s *LLMService) complete(
	ctx context.Context,
	messages []driven.ChatMessage,
	opts driven.ChatOptions,
	stopWords []string,
) (string, error) {
	msgs := make([]messageDTO, len(messages))
	for i, msg := range messages {
		msgs[i] = messageDTO{Role: msg.Role, Content: msg.Content}
	}

	var (
		path  string
		body  any
		parse func([]byte) (string, error)
	)
	if s.api == domain.LLMAPIResponses {
		path = "/responses"
		body = responsesRequest{
			Model:           s.model,
			Input:           msgs,
			MaxOutputTokens: opts.MaxTokens,
			Temperature:     opts.Temperature,
		}
		parse = ParseResponsesResponse
	} else {
		path = "/chat/completions"
		req := chatCompletionRequest{
			Model:       s.model,
			Messages:    msgs,
			Temperature: opts.Temperature,
			Stop:        stopWords,
		}
		// Newer model families reject max_tokens.
		if usesCompletionTokens(s.model) {
			req.MaxCompletionTokens = opts.MaxTokens
		} else {
			req.MaxTokens = opts.MaxTokens
		}
		body = req
		parse = ParseChatResponse
	}

	jsonBody, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	resp, err := s.client.Do(ctx, func(ctx context.Context) (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+path, bytes.NewReader(jsonBody))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+s.apiKey)
		return req, nil
	})
	if err != nil {
		return "", err
	}

	return parse(resp.Body)
}

func usesCompletionTokens(model string) bool {
	m := strings.ToLower(model)
	return strings.HasPrefix(m, "gpt-4") || strings.HasPrefix(m, "gpt-5") || strings.HasPrefix(m, "o")
}

// ParseChatResponse extracts the first choice's content from a chat completions body.
func ParseChatResponse(body []byte) (string, error) {
	var chatResp chatCompletionResponse
	if err := json.Unmarshal(body, &chatResp); err != nil {
		return "", fmt.Errorf("%s: decode response: %w: %w", providerName, domain.ErrUnrecognisedResponse, err)
	}
	if chatResp.Error != nil {
		return "", &domain.ProviderError{Provider: providerName, Err: fmt.Errorf("%s", chatResp.Error.Message)}
	}
	if len(chatResp.Choices) == 0 || chatResp.Choices[0].Message.Content == nil {
		return "", fmt.Errorf("%s: no message content: %w", providerName, domain.ErrUnrecognisedResponse)
	}
	text := strings.TrimSpace(*chatResp.Choices[0].Message.Content)
	if text == "" {
		return "", fmt.Errorf("%s: empty message content: %w", providerName, domain.ErrUnrecognisedResponse)
	}
	return text, nil
}

// ParseResponsesResponse extracts text from a responses API body.
// output_text wins; otherwise output_text parts of message items are joined.
func ParseResponsesResponse(body []byte) (string, error) {
	var r responsesResponse
	if err := json.Unmarshal(body, &r); err != nil {
		return "", fmt.Errorf("%s: decode response: %w: %w", providerName, domain.ErrUnrecognisedResponse, err)
	}
	if r.Error != nil {
		return "", &domain.ProviderError{Provider: providerName, Err: fmt.Errorf("%s", r.Error.Message)}
	}
	if text := strings.TrimSpace(r.OutputText); text != "" {
		return text, nil
	}

	var parts []string
	for _, item := range r.Output {
		if item.Text != "" {
			parts = append(parts, item.Text)
		}
		for _, c := range item.Content {
			if c.Type == "output_text" && c.Text != "" {
				parts = append(parts, c.Text)
			}
		}
	}
	text := strings.TrimSpace(strings.Join(parts, "\n"))
	if text == "" {
		return "", fmt.Errorf("%s: no output text: %w", providerName, domain.ErrUnrecognisedResponse)
	}
	return text, nil
}

// ModelName returns the name of the LLM model being used.
func (s *LLMService) ModelName() string {
	return s.model
}

// Ping validates the service is reachable by checking the /models endpoint.
// This is a lightweight check that validates the API key without running inference.
func (s *LLMService) Ping(ctx context.Context) error {
	_, err := s.client.Do(ctx, func(ctx context.Context) (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"/models", http.NoBody)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Authorization", "Bearer "+s.apiKey)
		return req, nil
	})
	if err != nil {
		return fmt.Errorf("openai: ping failed: %w", err)
	}
	return nil
}

// Close releases resources.
func (s *LLMService) Close() error {
	// HTTP client doesn't need explicit cleanup
	return nil
}
