package normalisers

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/brokerdesk/internal/core/domain"
	"github.com/custodia-labs/brokerdesk/internal/normalisers/plaintext"
)

func TestRegistry_Dispatch(t *testing.T) {
	r := NewRegistry(plaintext.New())

	path := filepath.Join(t.TempDir(), "Notes.TXT")
	require.NoError(t, os.WriteFile(path, []byte("hello"), 0o600))

	assert.True(t, r.Supports(path))
	pages, err := r.Extract(context.Background(), path)
	require.NoError(t, err)
	require.Len(t, pages, 1)
	assert.Equal(t, "hello", pages[0].Text)
}

func TestRegistry_Unsupported(t *testing.T) {
	r := NewRegistry(plaintext.New())

	path := filepath.Join(t.TempDir(), "sheet.xlsx")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o600))

	assert.False(t, r.Supports(path))
	_, err := r.Extract(context.Background(), path)
	assert.ErrorIs(t, err, domain.ErrExtraction)
	assert.ErrorIs(t, err, domain.ErrUnsupportedType)
}

func TestRegistry_MissingFile(t *testing.T) {
	r := NewDefaultRegistry()

	_, err := r.Extract(context.Background(), filepath.Join(t.TempDir(), "gone.pdf"))
	assert.ErrorIs(t, err, domain.ErrExtraction)
}

func TestNewDefaultRegistry(t *testing.T) {
	exts := NewDefaultRegistry().SupportedExtensions()
	for _, ext := range []string{"pdf", "txt", "md", "docx"} {
		assert.Contains(t, exts, ext)
	}
}

func TestExt(t *testing.T) {
	assert.Equal(t, "pdf", Ext("/lib/Westpac.PDF"))
	assert.Equal(t, "", Ext("/lib/README"))
}
