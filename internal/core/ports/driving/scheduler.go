package driving

import "context"

// SyncScheduler runs library sync passes in the background.
type SyncScheduler interface {
	// Start runs scheduled passes. Blocks until ctx is cancelled or Stop is called.
	Start(ctx context.Context) error

	// Stop gracefully stops the loop, waiting for an in-flight pass.
	Stop() error

	// Trigger requests a pass soon. It never blocks.
	Trigger()
}
