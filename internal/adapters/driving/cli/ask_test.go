package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/brokerdesk/internal/core/domain"
)

func TestAskCmd_PrintsAnswerAndSources(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	out, err := execute(t, "ask", "what", "docs", "for", "self", "employed?")

	require.NoError(t, err)
	assert.Equal(t, "what docs for self employed?", answerService.(*mockAnswerService).question)
	assert.Contains(t, out, "Two years of tax returns")
	assert.Contains(t, out, "Sources:")
	assert.Contains(t, out, "[Westpac Credit Policy.pdf | p.12-13]")
	assert.Contains(t, out, "(mock-llm)")
}

func TestAskCmd_NoCitations(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()
	answerService = &mockAnswerService{answer: &domain.Answer{Text: "I could not find that in the library."}}

	out, err := execute(t, "ask", "rate?")

	require.NoError(t, err)
	assert.NotContains(t, out, "Sources:")
}

func TestAskCmd_LLMUnavailable(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()
	answerService = &mockAnswerService{err: domain.ErrLLMUnavailable}

	_, err := execute(t, "ask", "rate?")
	assert.ErrorIs(t, err, domain.ErrLLMUnavailable)
}

func TestAskCmd_ServiceNotConfigured(t *testing.T) {
	old := answerService
	answerService = nil
	defer func() { answerService = old }()

	_, err := execute(t, "ask", "rate?")
	assert.EqualError(t, err, "answer service not configured")
}
