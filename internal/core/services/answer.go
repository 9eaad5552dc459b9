package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/custodia-labs/brokerdesk/internal/core/domain"
	"github.com/custodia-labs/brokerdesk/internal/core/ports/driven"
	"github.com/custodia-labs/brokerdesk/internal/core/ports/driving"
)

// Ensure AnswerService implements the interface.
var _ driving.AnswerService = (*AnswerService)(nil)

// DefaultMaxContextChars bounds the answer context when settings give no positive value.
const DefaultMaxContextChars = 6000

// NoExcerpts replaces the context when nothing fits or nothing was found.
const NoExcerpts = "(no excerpts found)"

// Fallback templates when no prompt store is wired.
const (
	fallbackSystemPrompt = "Answer only from the provided excerpts and cite them by label."
	fallbackUserPrompt   = "Question:\n{{question}}\n\nExcerpts:\n{{context}}"
)

// AnswerService composes grounded answers from retrieved excerpts.
type AnswerService struct {
	retrieval driving.RetrievalService
	llm       driven.LLMService
	prompts   driven.PromptStore
	provider  domain.AIProvider
	maxChars  int
}

// NewAnswerService creates an answer service.
// llm and prompts are optional; without an LLM Answer fails with ErrLLMUnavailable.
func NewAnswerService(
	retrieval driving.RetrievalService,
	llm driven.LLMService,
	prompts driven.PromptStore,
	provider domain.AIProvider,
	maxContextChars int,
) *AnswerService {
	if maxContextChars <= 0 {
		maxContextChars = DefaultMaxContextChars
	}
	return &AnswerService{
		retrieval: retrieval,
		llm:       llm,
		prompts:   prompts,
		provider:  provider,
		maxChars:  maxContextChars,
	}
}

// Answer retrieves context for question and asks the LLM.
func (s *AnswerService) Answer(ctx context.Context, question string) (*domain.Answer, error) {
	if strings.TrimSpace(question) == "" {
		return nil, fmt.Errorf("answer: question required: %w", domain.ErrInvalidInput)
	}
	if s.llm == nil {
		return nil, domain.ErrLLMUnavailable
	}

	chunks, err := s.retrieval.Search(ctx, question, 0)
	if err != nil {
		return nil, err
	}
	contextText, citations := BuildContext(chunks, s.maxChars)

	system := s.prompt(driven.PromptAnswerSystem, fallbackSystemPrompt)
	user := strings.NewReplacer(
		"{{question}}", strings.TrimSpace(question),
		"{{context}}", contextText,
	).Replace(s.prompt(driven.PromptAnswerUser, fallbackUserPrompt))

	text, err := s.llm.Chat(ctx, []driven.ChatMessage{
		{Role: "system", Content: system},
		{Role: "user", Content: user},
	}, driven.ChatOptions{})
	if err != nil {
		return nil, fmt.Errorf("compose answer: %w", err)
	}

	return &domain.Answer{
		Question:  question,
		Text:      strings.TrimSpace(text),
		Citations: citations,
		Provider:  s.provider,
		Model:     s.llm.ModelName(),
	}, nil
}

func (s *AnswerService) prompt(name, fallback string) string {
	if s.prompts == nil {
		return fallback
	}
	p, err := s.prompts.Load(name)
	if err != nil || p == "" {
		return fallback
	}
	return p
}

// BuildContext renders chunks as labelled segments in rank order.
// Each segment is "<label>\n<text>\n" with the text flattened to one line.
// The loop stops at the first segment that would push the total past
// maxChars, so no segment is ever cut. Segments are joined by a blank
// line, which does not count against the budget.
func BuildContext(chunks []domain.RetrievedChunk, maxChars int) (string, []domain.Citation) {
	var (
		pieces    []string
		citations []domain.Citation
		total     int
	)

	for _, ch := range chunks {
		c := domain.Citation{
			DocumentID: ch.DocumentID,
			Title:      ch.Title,
			PageFrom:   ch.PageFrom,
			PageTo:     ch.PageTo,
		}
		text := strings.ReplaceAll(strings.TrimSpace(ch.Text), "\n", " ")
		seg := c.Label() + "\n" + text + "\n"

		n := len([]rune(seg))
		if total+n > maxChars {
			break
		}
		pieces = append(pieces, seg)
		citations = append(citations, c)
		total += n
	}

	if len(pieces) == 0 {
		return NoExcerpts, nil
	}
	return strings.Join(pieces, "\n\n"), citations
}
