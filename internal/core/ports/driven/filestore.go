package driven

import (
	"context"

	"github.com/custodia-labs/brokerdesk/internal/core/domain"
)

// FileStore keeps a durable copy of every ingested file.
type FileStore interface {
	// Store copies the file at src into storage keyed by its base name and
	// returns the stored path. A file already inside storage is not copied.
	Store(ctx context.Context, src string) (string, error)

	// Root returns the storage directory.
	Root() string

	// Walk lists regular, non-hidden files under the root in lexical order.
	Walk(ctx context.Context) ([]domain.LibraryFile, error)

	// Stat describes one file.
	Stat(path string) (domain.LibraryFile, error)

	// Hash returns the hex sha256 digest of the file's bytes.
	Hash(ctx context.Context, path string) (string, error)
}

// SyncLock guards a library sync pass across processes.
type SyncLock interface {
	// TryAcquire takes the lock without waiting.
	// A held lock returns domain.ErrSyncLocked.
	TryAcquire() error

	// Release drops the lock. Releasing an unheld lock is a no-op.
	Release() error

	// Break removes a stale lock left by a crashed process.
	Break() error
}
