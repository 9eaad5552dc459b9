package chunker

import (
	"strings"
	"testing"

	"github.com/custodia-labs/brokerdesk/internal/core/domain"
)

func TestNew(t *testing.T) {
	t.Run("default values", func(t *testing.T) {
		p := New()
		if p.chunkSize != DefaultChunkSize {
			t.Errorf("expected chunkSize %d, got %d", DefaultChunkSize, p.chunkSize)
		}
		if p.overlap != DefaultChunkOverlap {
			t.Errorf("expected overlap %d, got %d", DefaultChunkOverlap, p.overlap)
		}
	})

	t.Run("overlap exceeds chunk size", func(t *testing.T) {
		p := New(WithChunkSize(100), WithOverlap(150))
		if p.overlap != 25 {
			t.Errorf("expected overlap clamped to 25, got %d", p.overlap)
		}
	})

	t.Run("zero values ignored", func(t *testing.T) {
		p := New(WithChunkSize(0), WithOverlap(-1))
		if p.chunkSize != DefaultChunkSize {
			t.Errorf("expected default chunkSize, got %d", p.chunkSize)
		}
		if p.overlap != DefaultChunkOverlap {
			t.Errorf("expected default overlap, got %d", p.overlap)
		}
	})
}

func TestProcessor_Name(t *testing.T) {
	p := New()
	if p.Name() != "chunker" {
		t.Errorf("expected name 'chunker', got '%s'", p.Name())
	}
}

func TestSplit_EmptyAndWhitespace(t *testing.T) {
	p := New()
	policy := domain.ChunkPolicy{Size: 10, Overlap: 2}

	for _, input := range []string{"", "   ", "\n\t \r\n", "  "} {
		if chunks := p.Split(input, policy); len(chunks) != 0 {
			t.Errorf("expected 0 chunks for %q, got %d", input, len(chunks))
		}
	}
}

func TestSplit_ShortText(t *testing.T) {
	p := New()
	chunks := p.Split("  Serviceability   buffer\n\nis 3%.  ", domain.ChunkPolicy{Size: 100, Overlap: 10})

	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(chunks))
	}
	if chunks[0] != "Serviceability buffer is 3%." {
		t.Errorf("unexpected chunk %q", chunks[0])
	}
}

func TestSplit_ExactSize(t *testing.T) {
	p := New()
	chunks := p.Split(strings.Repeat("a", 50), domain.ChunkPolicy{Size: 50, Overlap: 5})
	if len(chunks) != 1 {
		t.Errorf("expected 1 chunk, got %d", len(chunks))
	}
}

func TestSplit_Overlap(t *testing.T) {
	p := New()
	chunks := p.Split("0123456789ABCDEFGHIJ", domain.ChunkPolicy{Size: 10, Overlap: 3})

	expected := []string{"0123456789", "789ABCDEFG", "EFGHIJ"}
	if len(chunks) != len(expected) {
		t.Fatalf("expected %d chunks, got %d: %q", len(expected), len(chunks), chunks)
	}
	for i := range expected {
		if chunks[i] != expected[i] {
			t.Errorf("chunk %d: expected %q, got %q", i, expected[i], chunks[i])
		}
	}
}

func TestSplit_CountFormulaAndCoverage(t *testing.T) {
	p := New()

	tests := []struct {
		n, size, overlap int
	}{
		{1, 10, 2},
		{10, 10, 2},
		{11, 10, 2},
		{100, 10, 2},
		{2501, 2500, 150},
		{9999, 1000, 100},
		{37, 7, 0},
	}

	for _, tt := range tests {
		text := strings.Repeat("x", tt.n)
		chunks := p.Split(text, domain.ChunkPolicy{Size: tt.size, Overlap: tt.overlap})

		want := 1
		if tt.n > tt.size {
			step := tt.size - tt.overlap
			want = (tt.n - tt.overlap + step - 1) / step
		}
		if len(chunks) != want {
			t.Errorf("n=%d size=%d overlap=%d: expected %d chunks, got %d",
				tt.n, tt.size, tt.overlap, want, len(chunks))
		}

		// Rebuild by dropping each later chunk's overlap prefix.
		var b strings.Builder
		for i, c := range chunks {
			if i == 0 {
				b.WriteString(c)
				continue
			}
			b.WriteString(c[tt.overlap:])
		}
		if b.String() != text {
			t.Errorf("n=%d size=%d overlap=%d: reconstruction mismatch", tt.n, tt.size, tt.overlap)
		}
	}
}

func TestSplit_CountsRunesNotBytes(t *testing.T) {
	p := New()
	text := strings.Repeat("é", 25)
	chunks := p.Split(text, domain.ChunkPolicy{Size: 10, Overlap: 0})

	if len(chunks) != 3 {
		t.Fatalf("expected 3 chunks, got %d", len(chunks))
	}
	if got := len([]rune(chunks[0])); got != 10 {
		t.Errorf("expected 10 runes in first chunk, got %d", got)
	}
}

func TestSplit_PolicyOverlapClamped(t *testing.T) {
	p := New()
	// Overlap 20 >= size 8 is clamped to 2, step 6.
	chunks := p.Split(strings.Repeat("z", 20), domain.ChunkPolicy{Size: 8, Overlap: 20})
	if len(chunks) != 3 {
		t.Errorf("expected 3 chunks, got %d", len(chunks))
	}
}

func TestChunkPages(t *testing.T) {
	p := New()
	pages := []domain.Page{
		{Number: 1, Text: "0123456789ABCDEFGHIJ"},
		{Number: 2, Text: "   "},
		{Number: 3, Text: "short"},
	}

	chunks := p.ChunkPages("doc-1", "gen-1", pages, domain.ChunkPolicy{Size: 10, Overlap: 3})
	if len(chunks) != 4 {
		t.Fatalf("expected 4 chunks, got %d", len(chunks))
	}

	seen := make(map[string]bool)
	for i, c := range chunks {
		if c.Position != i {
			t.Errorf("expected position %d, got %d", i, c.Position)
		}
		if c.DocumentID != "doc-1" || c.Generation != "gen-1" {
			t.Errorf("chunk %d not tagged with document and generation", i)
		}
		if c.PageFrom != c.PageTo {
			t.Errorf("chunk %d spans pages %d-%d", i, c.PageFrom, c.PageTo)
		}
		if seen[c.ID] {
			t.Errorf("duplicate chunk ID: %s", c.ID)
		}
		seen[c.ID] = true
	}

	if chunks[3].PageFrom != 3 || chunks[3].Text != "short" {
		t.Errorf("unexpected last chunk %+v", chunks[3])
	}
}
