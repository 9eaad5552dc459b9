package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/brokerdesk/internal/core/domain"
	"github.com/custodia-labs/brokerdesk/internal/core/ports/driven"
)

// mockLLM is a testify mock for driven.LLMService.
type mockLLM struct {
	mock.Mock
}

func (m *mockLLM) Generate(ctx context.Context, prompt string, opts driven.GenerateOptions) (string, error) {
	args := m.Called(ctx, prompt, opts)
	return args.String(0), args.Error(1)
}

func (m *mockLLM) Chat(ctx context.Context, messages []driven.ChatMessage, opts driven.ChatOptions) (string, error) {
	args := m.Called(ctx, messages, opts)
	return args.String(0), args.Error(1)
}

func (m *mockLLM) ModelName() string          { return "gpt-test" }
func (m *mockLLM) Ping(context.Context) error { return nil }
func (m *mockLLM) Close() error               { return nil }

// stubRetrieval returns canned chunks.
type stubRetrieval struct {
	chunks []domain.RetrievedChunk
	err    error
}

func (s *stubRetrieval) Search(context.Context, string, int) ([]domain.RetrievedChunk, error) {
	return s.chunks, s.err
}

// stubPrompts serves templates from a map.
type stubPrompts map[string]string

func (p stubPrompts) Load(name string) (string, error) {
	if v, ok := p[name]; ok {
		return v, nil
	}
	return "", domain.ErrNotFound
}

func (p stubPrompts) Reload() {}

func retrieved(title string, page int, text string) domain.RetrievedChunk {
	return domain.RetrievedChunk{
		ChunkID:    title + "-chunk",
		DocumentID: title + "-doc",
		Title:      title,
		PageFrom:   page,
		PageTo:     page,
		Text:       text,
	}
}

func TestBuildContext_FormatsSegmentsInRankOrder(t *testing.T) {
	chunks := []domain.RetrievedChunk{
		retrieved("cba.pdf", 4, "Max LVR 95%\nwith LMI"),
		retrieved("anz.pdf", 2, "  Genuine savings 5%  "),
	}

	text, citations := BuildContext(chunks, 1000)

	want := "[cba.pdf | p.4-4]\nMax LVR 95% with LMI\n" +
		"\n\n" +
		"[anz.pdf | p.2-2]\nGenuine savings 5%\n"
	assert.Equal(t, want, text)
	require.Len(t, citations, 2)
	assert.Equal(t, "cba.pdf", citations[0].Title)
	assert.Equal(t, "anz.pdf-doc", citations[1].DocumentID)
}

func TestBuildContext_TruncatesByWholeChunk(t *testing.T) {
	first := retrieved("a.pdf", 1, strings.Repeat("x", 20))
	second := retrieved("b.pdf", 1, strings.Repeat("y", 20))
	third := retrieved("c.pdf", 1, "z")

	seg := len([]rune("[a.pdf | p.1-1]\n" + strings.Repeat("x", 20) + "\n"))

	tests := []struct {
		name     string
		budget   int
		segments int
	}{
		{name: "exact fit for one", budget: seg, segments: 1},
		{name: "one short of two", budget: 2*seg - 1, segments: 1},
		{name: "exact fit for two", budget: 2 * seg, segments: 2},
		{name: "nothing fits", budget: seg - 1, segments: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			text, citations := BuildContext([]domain.RetrievedChunk{first, second, third}, tt.budget)
			assert.Len(t, citations, tt.segments)
			if tt.segments == 0 {
				assert.Equal(t, NoExcerpts, text)
				assert.Nil(t, citations)
				return
			}
			assert.Equal(t, tt.segments, strings.Count(text, "| p.1-1]"))
			assert.NotContains(t, text, "z")
		})
	}
}

func TestBuildContext_StopsAtFirstOverflow(t *testing.T) {
	big := retrieved("big.pdf", 1, strings.Repeat("b", 500))
	small := retrieved("small.pdf", 1, "tiny")

	text, citations := BuildContext([]domain.RetrievedChunk{big, small}, 100)
	assert.Equal(t, NoExcerpts, text)
	assert.Empty(t, citations)
}

func TestBuildContext_CountsRunes(t *testing.T) {
	c := retrieved("é.pdf", 1, "ééé")
	seg := len([]rune("[é.pdf | p.1-1]\nééé\n"))

	_, citations := BuildContext([]domain.RetrievedChunk{c}, seg)
	assert.Len(t, citations, 1)
}

func TestBuildContext_Empty(t *testing.T) {
	text, citations := BuildContext(nil, 6000)
	assert.Equal(t, NoExcerpts, text)
	assert.Nil(t, citations)
}

func TestAnswer_RendersPromptsAndCallsLLM(t *testing.T) {
	llm := &mockLLM{}
	retrieval := &stubRetrieval{chunks: []domain.RetrievedChunk{retrieved("westpac.pdf", 7, "Rental income shaded to 80%")}}
	prompts := stubPrompts{
		driven.PromptAnswerSystem: "You are a broker assistant.",
		driven.PromptAnswerUser:   "Q: {{question}}\nC: {{context}}",
	}

	expectedUser := "Q: How is rental income treated?\nC: [westpac.pdf | p.7-7]\nRental income shaded to 80%\n"
	llm.On("Chat", mock.Anything, []driven.ChatMessage{
		{Role: "system", Content: "You are a broker assistant."},
		{Role: "user", Content: expectedUser},
	}, driven.ChatOptions{}).Return("  Westpac shades rental income to 80% [westpac.pdf | p.7-7]. \n", nil)

	svc := NewAnswerService(retrieval, llm, prompts, domain.AIProviderOpenAI, 0)
	answer, err := svc.Answer(context.Background(), " How is rental income treated? ")
	require.NoError(t, err)

	assert.Equal(t, "Westpac shades rental income to 80% [westpac.pdf | p.7-7].", answer.Text)
	assert.Equal(t, domain.AIProviderOpenAI, answer.Provider)
	assert.Equal(t, "gpt-test", answer.Model)
	require.Len(t, answer.Citations, 1)
	assert.Equal(t, 7, answer.Citations[0].PageFrom)
	llm.AssertExpectations(t)
}

func TestAnswer_NoExcerptsStillAsks(t *testing.T) {
	llm := &mockLLM{}
	llm.On("Chat", mock.Anything, mock.MatchedBy(func(msgs []driven.ChatMessage) bool {
		return len(msgs) == 2 && strings.Contains(msgs[1].Content, NoExcerpts)
	}), mock.Anything).Return("I could not find that in the library.", nil)

	svc := NewAnswerService(&stubRetrieval{}, llm, nil, domain.AIProviderMock, 0)
	answer, err := svc.Answer(context.Background(), "unknown policy")
	require.NoError(t, err)
	assert.Empty(t, answer.Citations)
	llm.AssertExpectations(t)
}

func TestAnswer_Errors(t *testing.T) {
	retrievalErr := errors.New("index down")
	llmErr := errors.New("rate limited")

	t.Run("blank question", func(t *testing.T) {
		svc := NewAnswerService(&stubRetrieval{}, &mockLLM{}, nil, domain.AIProviderMock, 0)
		_, err := svc.Answer(context.Background(), "  ")
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	})

	t.Run("no llm", func(t *testing.T) {
		svc := NewAnswerService(&stubRetrieval{}, nil, nil, domain.AIProviderMock, 0)
		_, err := svc.Answer(context.Background(), "q")
		assert.ErrorIs(t, err, domain.ErrLLMUnavailable)
	})

	t.Run("retrieval fails", func(t *testing.T) {
		svc := NewAnswerService(&stubRetrieval{err: retrievalErr}, &mockLLM{}, nil, domain.AIProviderMock, 0)
		_, err := svc.Answer(context.Background(), "q")
		assert.ErrorIs(t, err, retrievalErr)
	})

	t.Run("llm fails", func(t *testing.T) {
		llm := &mockLLM{}
		llm.On("Chat", mock.Anything, mock.Anything, mock.Anything).Return("", llmErr)
		svc := NewAnswerService(&stubRetrieval{}, llm, nil, domain.AIProviderMock, 0)
		_, err := svc.Answer(context.Background(), "q")
		assert.ErrorIs(t, err, llmErr)
	})
}
