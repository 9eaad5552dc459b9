// Package chunker provides a fixed-size overlapping text chunker.
package chunker

import (
	"strings"

	"github.com/google/uuid"

	"github.com/custodia-labs/brokerdesk/internal/core/domain"
	"github.com/custodia-labs/brokerdesk/internal/core/ports/driven"
)

// DefaultChunkSize is the default number of characters per chunk.
const DefaultChunkSize = 1000

// DefaultChunkOverlap is the default number of overlapping characters.
const DefaultChunkOverlap = 100

// Verify interface compliance.
var _ driven.Chunker = (*Processor)(nil)

// Processor splits page text into overlapping windows measured in runes.
// It implements the Chunker interface.
type Processor struct {
	chunkSize int
	overlap   int
}

// Option configures the chunker processor.
type Option func(*Processor)

// WithChunkSize sets the fallback chunk size in characters.
func WithChunkSize(size int) Option {
	return func(p *Processor) {
		if size > 0 {
			p.chunkSize = size
		}
	}
}

// WithOverlap sets the fallback overlap between chunks in characters.
func WithOverlap(overlap int) Option {
	return func(p *Processor) {
		if overlap >= 0 {
			p.overlap = overlap
		}
	}
}

// New creates a new chunker processor with the given options.
// The size and overlap are used when a policy leaves them unset.
func New(opts ...Option) *Processor {
	p := &Processor{
		chunkSize: DefaultChunkSize,
		overlap:   DefaultChunkOverlap,
	}

	for _, opt := range opts {
		opt(p)
	}

	p.chunkSize, p.overlap = clamp(p.chunkSize, p.overlap)

	return p
}

// Name returns the processor name.
func (p *Processor) Name() string {
	return "chunker"
}

// Split collapses whitespace runs to single spaces, trims, and cuts the result
// into windows. Each window after the first starts overlap runes before the
// previous end; the last window ends exactly at the end of the text.
// Windows are not trimmed, so joining them minus overlaps rebuilds the text.
func (p *Processor) Split(text string, policy domain.ChunkPolicy) []string {
	normalised := Normalise(text)
	if normalised == "" {
		return nil
	}

	size, overlap := p.resolve(policy)
	runes := []rune(normalised)
	n := len(runes)

	estimated := 1
	if n > size {
		estimated = (n-overlap+size-overlap-1)/(size-overlap) + 1
	}
	chunks := make([]string, 0, estimated)

	start := 0
	for {
		end := min(n, start+size)
		chunks = append(chunks, string(runes[start:end]))
		if end == n {
			break
		}
		start = end - overlap
	}

	return chunks
}

// ChunkPages splits each page separately so every chunk covers exactly one page.
// Positions run across the whole document.
func (p *Processor) ChunkPages(
	documentID, generation string,
	pages []domain.Page,
	policy domain.ChunkPolicy,
) []domain.Chunk {
	var chunks []domain.Chunk
	position := 0

	for _, page := range pages {
		for _, text := range p.Split(page.Text, policy) {
			chunks = append(chunks, domain.Chunk{
				ID:         uuid.New().String(),
				DocumentID: documentID,
				Generation: generation,
				Position:   position,
				PageFrom:   page.Number,
				PageTo:     page.Number,
				Text:       text,
			})
			position++
		}
	}

	return chunks
}

// Normalise collapses every run of unicode whitespace to one space and trims.
func Normalise(text string) string {
	return strings.Join(strings.Fields(text), " ")
}

func (p *Processor) resolve(policy domain.ChunkPolicy) (size, overlap int) {
	size, overlap = policy.Size, policy.Overlap
	if size <= 0 {
		size = p.chunkSize
	}
	if overlap < 0 {
		overlap = p.overlap
	}
	return clamp(size, overlap)
}

// clamp keeps overlap strictly below size so every window advances.
func clamp(size, overlap int) (int, int) {
	if overlap >= size {
		overlap = size / 4
	}
	return size, overlap
}
