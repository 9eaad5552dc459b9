// Package lock provides a cross-process lock file for library sync passes.
package lock

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/custodia-labs/brokerdesk/internal/core/domain"
	"github.com/custodia-labs/brokerdesk/internal/core/ports/driven"
	"github.com/custodia-labs/brokerdesk/internal/logger"
)

// Ensure FileLock implements the interface.
var _ driven.SyncLock = (*FileLock)(nil)

// FileName is the lock file name inside the data directory.
const FileName = "sync.lock"

// FileLock is held while its file exists. The file holds the owner's pid.
type FileLock struct {
	path string

	mu   sync.Mutex
	held bool
}

// New creates a lock at <dataDir>/sync.lock.
func New(dataDir string) *FileLock {
	return &FileLock{path: filepath.Join(dataDir, FileName)}
}

// Path returns the lock file path.
func (l *FileLock) Path() string {
	return l.path
}

// TryAcquire creates the lock file exclusively. It never waits.
func (l *FileLock) TryAcquire() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(l.path), 0700); err != nil {
		return fmt.Errorf("creating lock dir: %w", err)
	}

	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0600)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			if pid, ok := l.owner(); ok {
				logger.Debug("sync lock held by pid %d", pid)
			}
			return domain.ErrSyncLocked
		}
		return fmt.Errorf("creating lock file: %w", err)
	}
	defer f.Close()

	if _, err := f.WriteString(strconv.Itoa(os.Getpid())); err != nil {
		os.Remove(l.path) //nolint:errcheck
		return fmt.Errorf("writing lock file: %w", err)
	}
	l.held = true
	return nil
}

// Release removes the lock file if this instance holds it.
func (l *FileLock) Release() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.held {
		return nil
	}
	l.held = false
	if err := os.Remove(l.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("removing lock file: %w", err)
	}
	return nil
}

// Break removes the lock file regardless of owner.
func (l *FileLock) Break() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if pid, ok := l.owner(); ok {
		logger.Warn("breaking sync lock held by pid %d", pid)
	}
	l.held = false
	if err := os.Remove(l.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("removing lock file: %w", err)
	}
	return nil
}

func (l *FileLock) owner() (int, bool) {
	data, err := os.ReadFile(l.path)
	if err != nil {
		return 0, false
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	return pid, err == nil
}
