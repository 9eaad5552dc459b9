// Package qdrant provides a vector index backed by a Qdrant server over REST.
//
// The collection uses cosine distance and is created on first upsert.
// Chunk ids that are not UUIDs are mapped to name-based UUIDs; the original
// id travels in the payload.
package qdrant

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/brokerdesk/internal/adapters/driven/httpretry"
	"github.com/custodia-labs/brokerdesk/internal/adapters/driven/vector"
	"github.com/custodia-labs/brokerdesk/internal/core/domain"
	"github.com/custodia-labs/brokerdesk/internal/core/ports/driven"
)

// Ensure Index implements the interface.
var _ driven.VectorIndex = (*Index)(nil)

// Defaults.
const (
	DefaultURL        = "http://localhost:6333"
	DefaultCollection = "doc_chunks"
	DefaultTimeout    = 15 * time.Second
)

// Payload keys.
const (
	keyDocumentID = "document_id"
	keyChunkID    = "chunk_id"
	keyGeneration = "generation"
)

// pointNamespace seeds name-based point ids.
var pointNamespace = uuid.MustParse("6f1c7f0e-3a52-4d3e-9a8f-8f0b7f5f2c11")

// Config holds Qdrant connection settings.
type Config struct {
	URL        string
	APIKey     string
	Collection string
	Timeout    time.Duration
	Retry      httpretry.Config
}

// Validate checks the server URL and collection name without contacting Qdrant.
// Empty values mean the defaults.
func (cfg Config) Validate() error {
	if cfg.URL != "" {
		u, err := url.Parse(cfg.URL)
		if err != nil {
			return fmt.Errorf("qdrant url: %w: %w", domain.ErrInvalidInput, err)
		}
		if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("qdrant url %q must be http(s)://host[:port]: %w", cfg.URL, domain.ErrInvalidInput)
		}
	}
	if strings.ContainsAny(cfg.Collection, "/ \t\n") {
		return fmt.Errorf("collection name %q: %w", cfg.Collection, domain.ErrInvalidInput)
	}
	return nil
}

// Index talks to one Qdrant collection.
type Index struct {
	client     *httpretry.Client
	baseURL    string
	apiKey     string
	collection string

	mu    sync.Mutex
	ready bool
}

// New creates a Qdrant index client. No request is made until first use.
func New(cfg Config) *Index {
	if cfg.URL == "" {
		cfg.URL = DefaultURL
	}
	if cfg.Collection == "" {
		cfg.Collection = DefaultCollection
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	retry := cfg.Retry
	retry.Provider = "qdrant"

	return &Index{
		client:     httpretry.New(&http.Client{Timeout: cfg.Timeout}, retry),
		baseURL:    strings.TrimRight(cfg.URL, "/"),
		apiKey:     cfg.APIKey,
		collection: cfg.Collection,
	}
}

// PointID returns the Qdrant point id for a chunk id.
func PointID(chunkID string) string {
	if id, err := uuid.Parse(chunkID); err == nil {
		return id.String()
	}
	return uuid.NewSHA1(pointNamespace, []byte(chunkID)).String()
}

type point struct {
	ID      string         `json:"id"`
	Vector  []float32      `json:"vector"`
	Payload map[string]any `json:"payload"`
}

type condition struct {
	Key   string `json:"key"`
	Match match  `json:"match"`
}

type match struct {
	Value string   `json:"value,omitempty"`
	Any   []string `json:"any,omitempty"`
}

type filter struct {
	Must    []condition `json:"must,omitempty"`
	MustNot []condition `json:"must_not,omitempty"`
}

// BuildFilter renders a VectorFilter as a Qdrant payload filter.
func BuildFilter(f domain.VectorFilter) filter {
	var out filter
	if f.DocumentID != "" {
		out.Must = append(out.Must, condition{Key: keyDocumentID, Match: match{Value: f.DocumentID}})
	}
	if f.Generation != "" {
		out.Must = append(out.Must, condition{Key: keyGeneration, Match: match{Value: f.Generation}})
	}
	if len(f.ChunkIDs) > 0 {
		out.Must = append(out.Must, condition{Key: keyChunkID, Match: match{Any: f.ChunkIDs}})
	}
	if f.ExcludeGeneration != "" {
		out.MustNot = append(out.MustNot, condition{Key: keyGeneration, Match: match{Value: f.ExcludeGeneration}})
	}
	return out
}

// Upsert creates the collection if needed and writes the points.
func (idx *Index) Upsert(ctx context.Context, records []domain.VectorRecord) error {
	if len(records) == 0 {
		return nil
	}
	dim, err := vector.Validate(records)
	if err != nil {
		return err
	}
	if err := idx.ensureCollection(ctx, dim); err != nil {
		return err
	}

	points := make([]point, len(records))
	for i, r := range records {
		points[i] = point{
			ID:     PointID(r.ChunkID),
			Vector: r.Vector,
			Payload: map[string]any{
				keyDocumentID: r.DocumentID,
				keyChunkID:    r.ChunkID,
				keyGeneration: r.Generation,
			},
		}
	}
	if _, err := idx.do(ctx, http.MethodPut, "/points?wait=true", map[string]any{"points": points}); err != nil {
		return domain.NewStoreError("upserting points", err)
	}
	return nil
}

func (idx *Index) ensureCollection(ctx context.Context, dim int) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	if idx.ready {
		return nil
	}

	_, err := idx.do(ctx, http.MethodGet, "", nil)
	if isNotFound(err) {
		_, err = idx.do(ctx, http.MethodPut, "", map[string]any{
			"vectors": map[string]any{"size": dim, "distance": "Cosine"},
		})
	}
	if err != nil {
		return domain.NewStoreError("ensuring collection", err)
	}
	idx.ready = true
	return nil
}

// Query searches the collection. A missing collection yields no hits.
func (idx *Index) Query(ctx context.Context, query []float32, k int) ([]domain.VectorHit, error) {
	if k <= 0 || len(query) == 0 {
		return nil, nil
	}

	body, err := idx.do(ctx, http.MethodPost, "/points/search", map[string]any{
		"vector":       query,
		"limit":        k,
		"with_payload": true,
	})
	if isNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, domain.NewStoreError("searching points", err)
	}
	return ParseSearchResponse(body)
}

// ParseSearchResponse converts a points/search body into hits.
func ParseSearchResponse(body []byte) ([]domain.VectorHit, error) {
	var resp struct {
		Result []struct {
			Score   float64        `json:"score"`
			Payload map[string]any `json:"payload"`
		} `json:"result"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("qdrant: decode search: %w: %w", domain.ErrUnrecognisedResponse, err)
	}

	hits := make([]domain.VectorHit, 0, len(resp.Result))
	for _, r := range resp.Result {
		chunkID, _ := r.Payload[keyChunkID].(string)
		if chunkID == "" {
			continue
		}
		docID, _ := r.Payload[keyDocumentID].(string)
		gen, _ := r.Payload[keyGeneration].(string)
		hits = append(hits, domain.VectorHit{
			ChunkID:    chunkID,
			DocumentID: docID,
			Generation: gen,
			Similarity: r.Score,
		})
	}
	return hits, nil
}

// DeleteWhere removes points matching filter.
func (idx *Index) DeleteWhere(ctx context.Context, f domain.VectorFilter) error {
	if err := vector.RequireFilter(f); err != nil {
		return err
	}
	_, err := idx.do(ctx, http.MethodPost, "/points/delete?wait=true", map[string]any{"filter": BuildFilter(f)})
	if err != nil && !isNotFound(err) {
		return domain.NewStoreError("deleting points", err)
	}
	return nil
}

// Count returns the exact number of points.
func (idx *Index) Count(ctx context.Context) (int, error) {
	body, err := idx.do(ctx, http.MethodPost, "/points/count", map[string]any{"exact": true})
	if isNotFound(err) {
		return 0, nil
	}
	if err != nil {
		return 0, domain.NewStoreError("counting points", err)
	}

	var resp struct {
		Result struct {
			Count int `json:"count"`
		} `json:"result"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return 0, fmt.Errorf("qdrant: decode count: %w: %w", domain.ErrUnrecognisedResponse, err)
	}
	return resp.Result.Count, nil
}

// Close releases resources.
func (idx *Index) Close() error {
	return nil
}

func (idx *Index) do(ctx context.Context, method, suffix string, payload any) ([]byte, error) {
	var data []byte
	if payload != nil {
		var err error
		if data, err = json.Marshal(payload); err != nil {
			return nil, fmt.Errorf("marshal request: %w", err)
		}
	}
	endpoint := idx.baseURL + "/collections/" + url.PathEscape(idx.collection) + suffix

	resp, err := idx.client.Do(ctx, func(ctx context.Context) (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, method, endpoint, bytes.NewReader(data))
		if err != nil {
			return nil, err
		}
		if data != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		if idx.apiKey != "" {
			req.Header.Set("api-key", idx.apiKey)
		}
		return req, nil
	})
	if err != nil {
		return nil, err
	}
	return resp.Body, nil
}

func isNotFound(err error) bool {
	var perr *domain.ProviderError
	return errors.As(err, &perr) && perr.StatusCode == http.StatusNotFound
}
