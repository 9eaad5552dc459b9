// Package mock provides an offline LLM that answers from its own prompt.
package mock

import (
	"context"
	"fmt"
	"strings"

	"github.com/custodia-labs/brokerdesk/internal/core/ports/driven"
)

// Ensure LLMService implements the interface.
var _ driven.LLMService = (*LLMService)(nil)

// DefaultModel is the reported model name.
const DefaultModel = "mock-llm"

// LLMService returns a deterministic reply built from the last user message.
type LLMService struct{}

// NewLLMService creates a mock LLM.
func NewLLMService() *LLMService {
	return &LLMService{}
}

// Generate echoes a summary of the prompt.
func (s *LLMService) Generate(_ context.Context, prompt string, _ driven.GenerateOptions) (string, error) {
	return reply(prompt), nil
}

// Chat replies to the last user message.
func (s *LLMService) Chat(_ context.Context, messages []driven.ChatMessage, _ driven.ChatOptions) (string, error) {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == "user" {
			return reply(messages[i].Content), nil
		}
	}
	return "", fmt.Errorf("mock llm: no user message")
}

// reply quotes the first line of each cited excerpt so offline answers still carry citations.
func reply(prompt string) string {
	var cited []string
	for _, line := range strings.Split(prompt, "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "[") && strings.Contains(line, "| p.") {
			cited = append(cited, line)
		}
	}
	if len(cited) == 0 {
		return "No supporting excerpts were found in the library."
	}
	return "Based on " + strings.Join(cited, ", ") + "."
}

// ModelName returns the model name.
func (s *LLMService) ModelName() string {
	return DefaultModel
}

// Ping always succeeds.
func (s *LLMService) Ping(context.Context) error {
	return nil
}

// Close releases resources.
func (s *LLMService) Close() error {
	return nil
}
