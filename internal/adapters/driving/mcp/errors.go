// Package mcp provides an MCP (Model Context Protocol) server adapter for brokerdesk.
// It lets AI assistants search the lender policy library, ask grounded
// questions and trigger a library sync.
package mcp

import "errors"

var (
	// ErrMissingSearchService is returned when the search service is not provided.
	ErrMissingSearchService = errors.New("mcp: search service is required")

	// ErrToolUnavailable is returned by tools whose backing service is not wired.
	ErrToolUnavailable = errors.New("mcp: tool unavailable")
)
