package driving

import (
	"context"

	"github.com/custodia-labs/brokerdesk/internal/core/domain"
)

// LibrarySync reconciles the library directory against the stores.
type LibrarySync interface {
	// SyncOnce runs one pass. A held lock yields a report with
	// domain.SyncStatusLocked and a nil error.
	SyncOnce(ctx context.Context) (*domain.SyncReport, error)

	// BreakLock removes a stale lock file.
	BreakLock() error
}
