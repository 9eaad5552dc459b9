package http

import (
	"errors"
	"fmt"
	stdhttp "net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/custodia-labs/brokerdesk/internal/core/domain"
)

// apiActor tags operation log entries written through the API.
const apiActor = "api"

var (
	errServiceUnavailable = errors.New("service not configured")
	errPathNotAllowed     = errors.New("path is outside the import directories")
)

type handler struct {
	cfg RouterConfig
}

func newHandler(cfg RouterConfig) *handler {
	return &handler{cfg: cfg}
}

// SearchResult is one hit in a search response.
type SearchResult struct {
	DocumentID string  `json:"document_id"`
	ChunkID    string  `json:"chunk_id"`
	Title      string  `json:"title"`
	PageFrom   int     `json:"page_from"`
	PageTo     int     `json:"page_to"`
	Score      float64 `json:"score"`
	Text       string  `json:"text"`
}

// AskRequest is the body of POST /api/ask.
type AskRequest struct {
	Question string `json:"question" binding:"required"`
}

// AskResponse is the body returned by POST /api/ask.
type AskResponse struct {
	Answer    string     `json:"answer"`
	Citations []Citation `json:"citations"`
	Provider  string     `json:"provider"`
	Model     string     `json:"model"`
}

// Citation is one excerpt used in an answer.
type Citation struct {
	DocumentID string `json:"document_id"`
	Title      string `json:"title"`
	PageFrom   int    `json:"page_from"`
	PageTo     int    `json:"page_to"`
	Label      string `json:"label"`
}

// IngestRequest is the body of POST /api/documents.
type IngestRequest struct {
	Path     string `json:"path" binding:"required"`
	Uploader string `json:"uploader"`
}

// IngestResponse is the body returned by POST /api/documents.
type IngestResponse struct {
	DocumentID string `json:"document_id"`
	Generation string `json:"generation"`
	Pages      int    `json:"pages"`
	Chunks     int    `json:"chunks"`
}

// Document is the JSON form of a library document.
type Document struct {
	ID              string    `json:"id"`
	Title           string    `json:"title"`
	Path            string    `json:"path"`
	Ext             string    `json:"ext"`
	Pages           int       `json:"pages"`
	SizeBytes       int64     `json:"size_bytes"`
	ContentHash     string    `json:"content_hash"`
	Uploader        string    `json:"uploader"`
	ChunkingVersion int       `json:"chunking_version"`
	EmbeddingModel  string    `json:"embedding_model"`
	Status          string    `json:"status"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// Chunk is the JSON form of an active chunk.
type Chunk struct {
	ID       string `json:"id"`
	Position int    `json:"position"`
	PageFrom int    `json:"page_from"`
	PageTo   int    `json:"page_to"`
	Text     string `json:"text"`
}

// Operation is the JSON form of an operation log entry.
type Operation struct {
	ID        int64     `json:"id"`
	Type      string    `json:"type"`
	Actor     string    `json:"actor"`
	Detail    string    `json:"detail"`
	CreatedAt time.Time `json:"created_at"`
}

// SyncResponse is the body returned by POST /api/sync.
type SyncResponse struct {
	Status     string `json:"status"`
	Scanned    int    `json:"scanned"`
	Ingested   int    `json:"ingested"`
	Failed     int    `json:"failed"`
	Deleted    int    `json:"deleted"`
	Rehashed   int    `json:"rehashed"`
	DurationMS int64  `json:"duration_ms"`
}

// Health answers liveness probes.
func (h *handler) Health(c *gin.Context) {
	c.String(stdhttp.StatusOK, "ok")
}

// Search handles GET /api/search?q=&k=.
func (h *handler) Search(c *gin.Context) {
	if h.cfg.Search == nil {
		RespondError(c, stdhttp.StatusServiceUnavailable, "unavailable", errServiceUnavailable)
		return
	}

	query := strings.TrimSpace(c.Query("q"))
	if query == "" {
		RespondError(c, stdhttp.StatusBadRequest, "invalid_input", errors.New("query parameter q is required"))
		return
	}
	k, err := intQuery(c, "k")
	if err != nil {
		RespondError(c, stdhttp.StatusBadRequest, "invalid_input", err)
		return
	}

	results, err := h.cfg.Search.Search(c.Request.Context(), query, k)
	if err != nil {
		RespondDomainError(c, err)
		return
	}

	out := make([]SearchResult, len(results))
	for i, r := range results {
		out[i] = SearchResult{
			DocumentID: r.DocumentID,
			ChunkID:    r.ChunkID,
			Title:      r.Title,
			PageFrom:   r.PageFrom,
			PageTo:     r.PageTo,
			Score:      r.Score,
			Text:       r.Text,
		}
	}
	RespondOK(c, gin.H{"results": out, "count": len(out)})
}

// Ask handles POST /api/ask.
func (h *handler) Ask(c *gin.Context) {
	if h.cfg.Answer == nil {
		RespondError(c, stdhttp.StatusServiceUnavailable, "unavailable", errServiceUnavailable)
		return
	}

	var req AskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, stdhttp.StatusBadRequest, "invalid_input", err)
		return
	}

	answer, err := h.cfg.Answer.Answer(c.Request.Context(), req.Question)
	if err != nil {
		RespondDomainError(c, err)
		return
	}

	resp := AskResponse{
		Answer:    answer.Text,
		Citations: make([]Citation, len(answer.Citations)),
		Provider:  answer.Provider.String(),
		Model:     answer.Model,
	}
	for i, cit := range answer.Citations {
		resp.Citations[i] = Citation{
			DocumentID: cit.DocumentID,
			Title:      cit.Title,
			PageFrom:   cit.PageFrom,
			PageTo:     cit.PageTo,
			Label:      cit.Label(),
		}
	}
	RespondOK(c, resp)
}

// ListDocuments handles GET /api/documents?limit=.
func (h *handler) ListDocuments(c *gin.Context) {
	if h.cfg.Document == nil {
		RespondError(c, stdhttp.StatusServiceUnavailable, "unavailable", errServiceUnavailable)
		return
	}
	limit, err := intQuery(c, "limit")
	if err != nil {
		RespondError(c, stdhttp.StatusBadRequest, "invalid_input", err)
		return
	}

	docs, err := h.cfg.Document.List(c.Request.Context(), limit)
	if err != nil {
		RespondDomainError(c, err)
		return
	}

	out := make([]Document, len(docs))
	for i := range docs {
		out[i] = toDocument(&docs[i])
	}
	RespondOK(c, gin.H{"documents": out, "count": len(out)})
}

// GetDocument handles GET /api/documents/:id.
func (h *handler) GetDocument(c *gin.Context) {
	if h.cfg.Document == nil {
		RespondError(c, stdhttp.StatusServiceUnavailable, "unavailable", errServiceUnavailable)
		return
	}

	doc, err := h.cfg.Document.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	RespondOK(c, toDocument(doc))
}

// DocumentChunks handles GET /api/documents/:id/chunks.
func (h *handler) DocumentChunks(c *gin.Context) {
	if h.cfg.Document == nil {
		RespondError(c, stdhttp.StatusServiceUnavailable, "unavailable", errServiceUnavailable)
		return
	}

	chunks, err := h.cfg.Document.Chunks(c.Request.Context(), c.Param("id"))
	if err != nil {
		RespondDomainError(c, err)
		return
	}

	out := make([]Chunk, len(chunks))
	for i, ch := range chunks {
		out[i] = Chunk{
			ID:       ch.ID,
			Position: ch.Position,
			PageFrom: ch.PageFrom,
			PageTo:   ch.PageTo,
			Text:     ch.Text,
		}
	}
	RespondOK(c, gin.H{"chunks": out, "count": len(out)})
}

// IngestDocument handles POST /api/documents. The path is read on the server
// and must lie inside one of the configured import directories.
func (h *handler) IngestDocument(c *gin.Context) {
	if h.cfg.Ingest == nil {
		RespondError(c, stdhttp.StatusServiceUnavailable, "unavailable", errServiceUnavailable)
		return
	}

	var req IngestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, stdhttp.StatusBadRequest, "invalid_input", err)
		return
	}

	path, ok := allowedPath(req.Path, h.cfg.ImportDirs)
	if !ok {
		RespondError(c, stdhttp.StatusForbidden, "path_not_allowed", errPathNotAllowed)
		return
	}

	result, err := h.cfg.Ingest.Ingest(c.Request.Context(), domain.IngestRequest{
		Path:     path,
		Uploader: req.Uploader,
		Actor:    apiActor,
	})
	if err != nil {
		RespondDomainError(c, err)
		return
	}

	c.JSON(stdhttp.StatusCreated, IngestResponse{
		DocumentID: result.DocumentID,
		Generation: result.Generation,
		Pages:      result.Pages,
		Chunks:     result.Chunks,
	})
}

// Sync handles POST /api/sync. A held lock answers 409.
func (h *handler) Sync(c *gin.Context) {
	if h.cfg.Sync == nil {
		RespondError(c, stdhttp.StatusServiceUnavailable, "unavailable", errServiceUnavailable)
		return
	}

	report, err := h.cfg.Sync.SyncOnce(c.Request.Context())
	if err != nil {
		RespondDomainError(c, err)
		return
	}

	resp := SyncResponse{
		Status:     string(report.Status),
		Scanned:    report.Scanned,
		Ingested:   report.Ingested,
		Failed:     report.Failed,
		Deleted:    report.Deleted,
		Rehashed:   report.Rehashed,
		DurationMS: report.Duration().Milliseconds(),
	}
	if report.Status == domain.SyncStatusLocked {
		c.JSON(stdhttp.StatusConflict, resp)
		return
	}
	RespondOK(c, resp)
}

// Operations handles GET /api/operations?limit=.
func (h *handler) Operations(c *gin.Context) {
	if h.cfg.Document == nil {
		RespondError(c, stdhttp.StatusServiceUnavailable, "unavailable", errServiceUnavailable)
		return
	}
	limit, err := intQuery(c, "limit")
	if err != nil {
		RespondError(c, stdhttp.StatusBadRequest, "invalid_input", err)
		return
	}

	ops, err := h.cfg.Document.Operations(c.Request.Context(), limit)
	if err != nil {
		RespondDomainError(c, err)
		return
	}

	out := make([]Operation, len(ops))
	for i, op := range ops {
		out[i] = Operation{
			ID:        op.ID,
			Type:      op.Type.String(),
			Actor:     op.Actor,
			Detail:    op.Detail,
			CreatedAt: op.CreatedAt,
		}
	}
	RespondOK(c, gin.H{"operations": out, "count": len(out)})
}

// intQuery parses an optional integer query parameter. Missing means 0.
func intQuery(c *gin.Context, name string) (int, error) {
	raw := c.Query(name)
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("query parameter %s must be an integer", name)
	}
	return v, nil
}

func toDocument(d *domain.Document) Document {
	return Document{
		ID:              d.ID,
		Title:           d.Title,
		Path:            d.Path,
		Ext:             d.Ext,
		Pages:           d.Pages,
		SizeBytes:       d.SizeBytes,
		ContentHash:     d.ContentHash,
		Uploader:        d.Uploader,
		ChunkingVersion: d.ChunkingVersion,
		EmbeddingModel:  d.EmbeddingModel,
		Status:          d.Status.String(),
		CreatedAt:       d.CreatedAt,
		UpdatedAt:       d.UpdatedAt,
	}
}

// allowedPath resolves path and reports whether it lies under one of dirs.
func allowedPath(path string, dirs []string) (string, bool) {
	if strings.TrimSpace(path) == "" {
		return "", false
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", false
	}
	for _, dir := range dirs {
		if dir == "" {
			continue
		}
		root, err := filepath.Abs(dir)
		if err != nil {
			continue
		}
		rel, err := filepath.Rel(root, abs)
		if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			continue
		}
		return abs, true
	}
	return "", false
}
