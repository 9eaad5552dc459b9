package mcp

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/brokerdesk/internal/core/domain"
)

// SearchInput is the input schema for the search tool.
type SearchInput struct {
	Query string `json:"query" jsonschema:"the question or phrase to look up in lender policies"`
	K     int    `json:"k,omitempty" jsonschema:"maximum number of excerpts to return (default from settings)"`
}

// SearchOutput is the output schema for the search tool.
type SearchOutput struct {
	Results []SearchResultOutput `json:"results"`
	Count   int                  `json:"count"`
}

// SearchResultOutput represents a single retrieved excerpt.
type SearchResultOutput struct {
	DocumentID string  `json:"document_id"`
	ChunkID    string  `json:"chunk_id"`
	Title      string  `json:"title"`
	PageFrom   int     `json:"page_from"`
	PageTo     int     `json:"page_to"`
	Score      float64 `json:"score"`
	Text       string  `json:"text"`
}

// AskInput is the input schema for the ask tool.
type AskInput struct {
	Question string `json:"question" jsonschema:"the broker's question about lender policy"`
}

// AskOutput is the output schema for the ask tool.
type AskOutput struct {
	Answer    string           `json:"answer"`
	Citations []CitationOutput `json:"citations"`
	Model     string           `json:"model"`
}

// CitationOutput points at one excerpt used in an answer.
type CitationOutput struct {
	DocumentID string `json:"document_id"`
	Label      string `json:"label"`
}

// SyncInput is the input schema for the sync_library tool.
type SyncInput struct{}

// SyncOutput is the output schema for the sync_library tool.
type SyncOutput struct {
	Status   string `json:"status"`
	Scanned  int    `json:"scanned"`
	Ingested int    `json:"ingested"`
	Failed   int    `json:"failed"`
	Deleted  int    `json:"deleted"`
}

// ListDocumentsInput is the input schema for the list_documents tool.
type ListDocumentsInput struct {
	Limit int `json:"limit,omitempty" jsonschema:"maximum number of documents to return (default 100)"`
}

// ListDocumentsOutput is the output schema for the list_documents tool.
type ListDocumentsOutput struct {
	Documents []DocumentOutput `json:"documents"`
	Count     int              `json:"count"`
}

// DocumentOutput is a document summary.
type DocumentOutput struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Status    string `json:"status"`
	Pages     int    `json:"pages"`
	Uploader  string `json:"uploader"`
	UpdatedAt string `json:"updated_at"`
}

// registerTools registers all tool handlers with the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "search",
		Description: "Search lender policy documents for excerpts relevant to a query",
	}, s.handleSearch)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "ask",
		Description: "Answer a mortgage policy question from the library, with citations",
	}, s.handleAsk)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "sync_library",
		Description: "Reconcile the policy library folder with the index",
	}, s.handleSync)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "list_documents",
		Description: "List documents in the policy library, most recently updated first",
	}, s.handleListDocuments)
}

// handleSearch handles the search tool invocation.
func (s *Server) handleSearch(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input SearchInput,
) (*mcp.CallToolResult, SearchOutput, error) {
	results, err := s.ports.Search.Search(ctx, input.Query, input.K)
	if err != nil {
		return nil, SearchOutput{}, err
	}

	output := SearchOutput{
		Results: make([]SearchResultOutput, len(results)),
		Count:   len(results),
	}
	for i, r := range results {
		output.Results[i] = SearchResultOutput{
			DocumentID: r.DocumentID,
			ChunkID:    r.ChunkID,
			Title:      r.Title,
			PageFrom:   r.PageFrom,
			PageTo:     r.PageTo,
			Score:      r.Score,
			Text:       r.Text,
		}
	}

	return nil, output, nil
}

// handleAsk handles the ask tool invocation.
func (s *Server) handleAsk(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input AskInput,
) (*mcp.CallToolResult, AskOutput, error) {
	if s.ports.Answer == nil {
		return nil, AskOutput{}, fmt.Errorf("ask: %w", ErrToolUnavailable)
	}

	answer, err := s.ports.Answer.Answer(ctx, input.Question)
	if err != nil {
		return nil, AskOutput{}, err
	}

	output := AskOutput{
		Answer:    answer.Text,
		Citations: make([]CitationOutput, len(answer.Citations)),
		Model:     answer.Model,
	}
	for i, c := range answer.Citations {
		output.Citations[i] = CitationOutput{DocumentID: c.DocumentID, Label: c.Label()}
	}

	return nil, output, nil
}

// handleSync handles the sync_library tool invocation.
// A held lock is reported as status "locked", not as an error.
func (s *Server) handleSync(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	_ SyncInput,
) (*mcp.CallToolResult, SyncOutput, error) {
	if s.ports.Sync == nil {
		return nil, SyncOutput{}, fmt.Errorf("sync_library: %w", ErrToolUnavailable)
	}

	report, err := s.ports.Sync.SyncOnce(ctx)
	if err != nil {
		return nil, SyncOutput{}, err
	}

	return nil, SyncOutput{
		Status:   string(report.Status),
		Scanned:  report.Scanned,
		Ingested: report.Ingested,
		Failed:   report.Failed,
		Deleted:  report.Deleted,
	}, nil
}

// handleListDocuments handles the list_documents tool invocation.
func (s *Server) handleListDocuments(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input ListDocumentsInput,
) (*mcp.CallToolResult, ListDocumentsOutput, error) {
	if s.ports.Document == nil {
		return nil, ListDocumentsOutput{}, fmt.Errorf("list_documents: %w", ErrToolUnavailable)
	}

	docs, err := s.ports.Document.List(ctx, input.Limit)
	if err != nil {
		return nil, ListDocumentsOutput{}, err
	}

	output := ListDocumentsOutput{
		Documents: make([]DocumentOutput, len(docs)),
		Count:     len(docs),
	}
	for i := range docs {
		output.Documents[i] = documentOutput(&docs[i])
	}
	return nil, output, nil
}

func documentOutput(d *domain.Document) DocumentOutput {
	return DocumentOutput{
		ID:        d.ID,
		Title:     d.Title,
		Status:    d.Status.String(),
		Pages:     d.Pages,
		Uploader:  d.Uploader,
		UpdatedAt: d.UpdatedAt.Format("2006-01-02T15:04:05Z07:00"),
	}
}
