package mcp

import (
	"context"

	"github.com/custodia-labs/brokerdesk/internal/core/domain"
)

// mockSearchService is a mock implementation of driving.RetrievalService.
type mockSearchService struct {
	results []domain.RetrievedChunk
	err     error
	lastK   int
}

func (m *mockSearchService) Search(_ context.Context, _ string, topK int) ([]domain.RetrievedChunk, error) {
	m.lastK = topK
	return m.results, m.err
}

// mockAnswerService is a mock implementation of driving.AnswerService.
type mockAnswerService struct {
	answer *domain.Answer
	err    error
}

func (m *mockAnswerService) Answer(_ context.Context, _ string) (*domain.Answer, error) {
	return m.answer, m.err
}

// mockLibrarySync is a mock implementation of driving.LibrarySync.
type mockLibrarySync struct {
	report *domain.SyncReport
	err    error
}

func (m *mockLibrarySync) SyncOnce(_ context.Context) (*domain.SyncReport, error) {
	return m.report, m.err
}

func (m *mockLibrarySync) BreakLock() error {
	return nil
}

// mockDocumentService is a mock implementation of driving.DocumentService.
type mockDocumentService struct {
	documents []domain.Document
	document  *domain.Document
	chunks    []domain.Chunk
	err       error
}

func (m *mockDocumentService) List(_ context.Context, _ int) ([]domain.Document, error) {
	return m.documents, m.err
}

func (m *mockDocumentService) Get(_ context.Context, _ string) (*domain.Document, error) {
	return m.document, m.err
}

func (m *mockDocumentService) Chunks(_ context.Context, _ string) ([]domain.Chunk, error) {
	return m.chunks, m.err
}

func (m *mockDocumentService) Operations(_ context.Context, _ int) ([]domain.Operation, error) {
	return nil, m.err
}

func (m *mockDocumentService) VectorCount(_ context.Context) (int, error) {
	return 0, m.err
}
