package normalisers

import (
	"github.com/custodia-labs/brokerdesk/internal/normalisers/docx"
	"github.com/custodia-labs/brokerdesk/internal/normalisers/markdown"
	"github.com/custodia-labs/brokerdesk/internal/normalisers/pdf"
	"github.com/custodia-labs/brokerdesk/internal/normalisers/plaintext"
)

// NewDefaultRegistry returns a registry with every built-in extractor.
func NewDefaultRegistry() *Registry {
	return NewRegistry(
		pdf.New(),
		plaintext.New(),
		markdown.New(),
		docx.New(),
	)
}
