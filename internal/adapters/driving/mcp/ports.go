package mcp

import (
	"github.com/custodia-labs/brokerdesk/internal/core/ports/driving"
)

// Ports aggregates all driving port interfaces required by the MCP server.
// This provides a single injection point for dependency injection.
type Ports struct {
	// Search provides semantic search over the library.
	Search driving.RetrievalService

	// Answer composes grounded answers. Optional.
	Answer driving.AnswerService

	// Sync reconciles the library directory. Optional.
	Sync driving.LibrarySync

	// Document exposes documents and their chunks. Optional.
	Document driving.DocumentService
}

// Validate ensures all required ports are set.
// Returns an error if any required port is nil.
func (p *Ports) Validate() error {
	if p.Search == nil {
		return ErrMissingSearchService
	}
	return nil
}
