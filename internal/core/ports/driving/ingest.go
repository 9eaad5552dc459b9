package driving

import (
	"context"

	"github.com/custodia-labs/brokerdesk/internal/core/domain"
)

// IngestService ingests single files into the library.
type IngestService interface {
	// Ingest extracts, chunks, embeds and indexes one file.
	// Re-ingesting identical bytes keeps the document id. Errors propagate.
	Ingest(ctx context.Context, req domain.IngestRequest) (*domain.IngestResult, error)
}
