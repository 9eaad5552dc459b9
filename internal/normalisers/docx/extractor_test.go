package docx

import (
	"archive/zip"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/brokerdesk/internal/core/domain"
)

// writeDocx builds a minimal DOCX archive with the given document.xml body.
func writeDocx(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "policy.docx")
	f, err := os.Create(path)
	require.NoError(t, err)

	zw := zip.NewWriter(f)
	w, err := zw.Create("word/document.xml")
	require.NoError(t, err)
	_, err = w.Write([]byte(`<?xml version="1.0" encoding="UTF-8"?>` +
		`<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">` +
		`<w:body>` + body + `</w:body></w:document>`))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	require.NoError(t, f.Close())
	return path
}

func TestExtract_Paragraphs(t *testing.T) {
	path := writeDocx(t, `<w:p><w:r><w:t>First paragraph.</w:t></w:r></w:p>`+
		`<w:p><w:r><w:t>Second </w:t></w:r><w:r><w:t>paragraph.</w:t></w:r></w:p>`)

	pages, err := New().Extract(context.Background(), path)
	require.NoError(t, err)
	require.Len(t, pages, 1)
	assert.Equal(t, "First paragraph.\nSecond paragraph.", pages[0].Text)
}

func TestExtract_PageBreaks(t *testing.T) {
	path := writeDocx(t, `<w:p><w:r><w:t>Page one.</w:t></w:r></w:p>`+
		`<w:p><w:r><w:br w:type="page"/></w:r><w:r><w:t>Page two.</w:t></w:r></w:p>`)

	pages, err := New().Extract(context.Background(), path)
	require.NoError(t, err)
	require.Len(t, pages, 2)
	assert.Equal(t, domain.Page{Number: 1, Text: "Page one."}, pages[0])
	assert.Equal(t, domain.Page{Number: 2, Text: "Page two."}, pages[1])
}

func TestExtract_NotAZip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.docx")
	require.NoError(t, os.WriteFile(path, []byte("plain"), 0o600))

	_, err := New().Extract(context.Background(), path)
	assert.ErrorIs(t, err, domain.ErrExtraction)
}
