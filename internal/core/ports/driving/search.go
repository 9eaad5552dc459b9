package driving

import (
	"context"

	"github.com/custodia-labs/brokerdesk/internal/core/domain"
)

// RetrievalService provides semantic search to external actors.
type RetrievalService interface {
	// Search returns up to topK chunks ranked by similarity.
	// A non-positive topK uses the configured default; a blank query returns nothing.
	Search(ctx context.Context, query string, topK int) ([]domain.RetrievedChunk, error)
}

// AnswerService composes grounded answers.
type AnswerService interface {
	// Answer retrieves context for question and asks the LLM.
	Answer(ctx context.Context, question string) (*domain.Answer, error)
}
