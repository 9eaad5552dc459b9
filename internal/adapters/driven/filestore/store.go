// Package filestore keeps ingested files in the library directory.
package filestore

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/custodia-labs/brokerdesk/internal/core/domain"
	"github.com/custodia-labs/brokerdesk/internal/core/ports/driven"
	"github.com/custodia-labs/brokerdesk/internal/logger"
)

// Ensure Store implements the interface.
var _ driven.FileStore = (*Store)(nil)

// Store copies files into a root directory keyed by base name.
type Store struct {
	root string
}

// New creates a store rooted at dir, creating it if needed.
func New(dir string) (*Store, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolving library dir: %w", err)
	}
	if err := os.MkdirAll(abs, 0750); err != nil {
		return nil, fmt.Errorf("creating library dir: %w", err)
	}
	return &Store{root: abs}, nil
}

// Root returns the storage directory.
func (s *Store) Root() string {
	return s.root
}

// Store copies src into the root unless a file of that name already exists
// there, or src already lives under the root.
func (s *Store) Store(ctx context.Context, src string) (string, error) {
	abs, err := filepath.Abs(src)
	if err != nil {
		return "", fmt.Errorf("resolving %s: %w", src, err)
	}
	if s.contains(abs) {
		return abs, nil
	}

	dst := filepath.Join(s.root, filepath.Base(abs))
	if _, err := os.Stat(dst); err == nil {
		logger.Debug("filestore: %s already stored", filepath.Base(abs))
		return dst, nil
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	if err := copyFile(abs, dst); err != nil {
		return "", fmt.Errorf("storing %s: %w", src, err)
	}
	return dst, nil
}

func (s *Store) contains(path string) bool {
	rel, err := filepath.Rel(s.root, path)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// copyFile writes through a temp file so a crash never leaves a partial copy.
func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	tmp, err := os.CreateTemp(filepath.Dir(dst), ".brokerdesk-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name()) //nolint:errcheck

	if _, err := io.Copy(tmp, in); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), dst)
}

// Walk lists regular, non-hidden files under the root in lexical order.
func (s *Store) Walk(ctx context.Context) ([]domain.LibraryFile, error) {
	var files []domain.LibraryFile
	err := filepath.WalkDir(s.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if path != s.root && strings.HasPrefix(d.Name(), ".") {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		files = append(files, domain.LibraryFile{
			Path:    path,
			Size:    info.Size(),
			ModTime: info.ModTime().UTC(),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking library: %w", err)
	}
	return files, nil
}

// Stat describes one file. Directories are rejected.
func (s *Store) Stat(path string) (domain.LibraryFile, error) {
	info, err := os.Stat(path)
	if err != nil {
		return domain.LibraryFile{}, err
	}
	if !info.Mode().IsRegular() {
		return domain.LibraryFile{}, fmt.Errorf("%s is not a regular file: %w", path, domain.ErrInvalidInput)
	}
	return domain.LibraryFile{Path: path, Size: info.Size(), ModTime: info.ModTime().UTC()}, nil
}

// Hash returns the hex sha256 digest of the file's bytes.
func (s *Store) Hash(ctx context.Context, path string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return HashFile(path)
}

// IsHidden reports whether any element of path starts with a dot.
// "." and ".." are not hidden.
func IsHidden(path string) bool {
	for _, part := range strings.Split(filepath.ToSlash(path), "/") {
		if part == "" || part == "." || part == ".." {
			continue
		}
		if strings.HasPrefix(part, ".") {
			return true
		}
	}
	return false
}

// HashFile returns the hex sha256 of the file's bytes.
func HashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
