package filestore

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/brokerdesk/internal/core/domain"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0750))
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
}

func TestStore_CopiesOnce(t *testing.T) {
	ctx := context.Background()
	lib := filepath.Join(t.TempDir(), "library")
	src := filepath.Join(t.TempDir(), "policy.pdf")
	writeFile(t, src, "v1")

	s, err := New(lib)
	require.NoError(t, err)

	dst, err := s.Store(ctx, src)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(s.Root(), "policy.pdf"), dst)

	writeFile(t, src, "v2")
	again, err := s.Store(ctx, src)
	require.NoError(t, err)
	assert.Equal(t, dst, again)

	data, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, "v1", string(data))
}

func TestStore_FileInsideRootIsNotCopied(t *testing.T) {
	lib := t.TempDir()
	s, err := New(lib)
	require.NoError(t, err)

	inside := filepath.Join(s.Root(), "sub", "guide.txt")
	writeFile(t, inside, "x")

	got, err := s.Store(context.Background(), inside)
	require.NoError(t, err)
	assert.Equal(t, inside, got)

	_, err = os.Stat(filepath.Join(s.Root(), "guide.txt"))
	assert.True(t, os.IsNotExist(err))
}

func TestStore_MissingSource(t *testing.T) {
	s, err := New(t.TempDir())
	require.NoError(t, err)
	_, err = s.Store(context.Background(), filepath.Join(t.TempDir(), "nope.pdf"))
	assert.Error(t, err)
}

func TestWalk_SkipsHidden(t *testing.T) {
	lib := t.TempDir()
	writeFile(t, filepath.Join(lib, "b.pdf"), "b")
	writeFile(t, filepath.Join(lib, "a.txt"), "aa")
	writeFile(t, filepath.Join(lib, "nested", "c.md"), "c")
	writeFile(t, filepath.Join(lib, ".DS_Store"), "junk")
	writeFile(t, filepath.Join(lib, ".git", "config"), "junk")

	s, err := New(lib)
	require.NoError(t, err)
	files, err := s.Walk(context.Background())
	require.NoError(t, err)

	var names []string
	for _, f := range files {
		rel, _ := filepath.Rel(s.Root(), f.Path)
		names = append(names, filepath.ToSlash(rel))
	}
	assert.Equal(t, []string{"a.txt", "b.pdf", "nested/c.md"}, names)
	assert.Equal(t, int64(2), files[0].Size)
	assert.False(t, files[0].ModTime.IsZero())
}

func TestIsHidden(t *testing.T) {
	tests := map[string]bool{
		".hidden":                true,
		"path/to/.hidden":        true,
		"/path/.hidden/file.txt": true,
		"dir/.git/config":        true,
		"file.txt":               false,
		"path/to/file.txt":       false,
		".":                      false,
		"..":                     false,
		"path/../file":           false,
		"":                       false,
		"file.hidden":            false,
	}
	for path, want := range tests {
		assert.Equal(t, want, IsHidden(path), path)
	}
}

func TestHashFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "x.txt")
	writeFile(t, path, "abc")

	sum, err := HashFile(path)
	require.NoError(t, err)
	assert.Equal(t, "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad", sum)
}

func TestStat(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "x.txt")
	writeFile(t, path, "hello")

	s, err := New(dir)
	require.NoError(t, err)

	info, err := s.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, int64(5), info.Size)
	assert.Equal(t, path, info.Path)

	_, err = s.Stat(dir)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = s.Stat(filepath.Join(dir, "missing"))
	assert.Error(t, err)

	sum, err := s.Hash(context.Background(), path)
	require.NoError(t, err)
	assert.Len(t, sum, 64)
}
