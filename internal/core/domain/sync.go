package domain

import "time"

// IngestRequest describes one file to ingest.
type IngestRequest struct {
	// Path is the source file.
	Path string

	// Uploader tags the document ("local" when empty).
	Uploader string

	// Actor is recorded on the operation log entry ("cli" when empty).
	Actor string

	// ContentHash is a hash the caller already trusts. Empty means hash the file.
	ContentHash string
}

// IngestResult reports the outcome of a successful ingestion.
type IngestResult struct {
	DocumentID string
	Generation string
	Chunks     int
	Pages      int
}

// SyncStatus is the outcome class of a sync pass.
type SyncStatus string

// Sync outcomes.
const (
	// SyncStatusOK means the pass ran to completion. Per-file failures are counted.
	SyncStatusOK SyncStatus = "ok"

	// SyncStatusLocked means another pass held the lock and nothing was touched.
	SyncStatusLocked SyncStatus = "locked"
)

// SyncReport summarises a library sync pass.
type SyncReport struct {
	Status SyncStatus

	// Scanned is the number of files found on disk.
	Scanned int

	// Ingested is the number of files re-ingested successfully.
	Ingested int

	// Failed is the number of files whose ingestion failed.
	Failed int

	// Deleted is the number of documents tombstoned because their file is gone.
	Deleted int

	// Rehashed is the number of files whose cached hash could not be trusted.
	Rehashed int

	StartedAt  time.Time
	FinishedAt time.Time
}

// Duration returns how long the pass took.
func (r *SyncReport) Duration() time.Duration {
	if r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// LibraryFile is one file found while walking the library root.
type LibraryFile struct {
	Path    string
	Size    int64
	ModTime time.Time
}
