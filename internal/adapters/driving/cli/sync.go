package cli

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/brokerdesk/internal/core/domain"
)

var syncBreakLock bool

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Synchronise the library folder with the index",
	Long: `Walks the library folder once. New and changed files are re-ingested,
documents whose file is gone are tombstoned and their vectors removed.

Only one pass runs at a time. If another pass holds the lock the command exits
without touching anything. Use --break-lock to remove a stale lock first.`,
	Args: cobra.NoArgs,
	RunE: runSync,
}

func init() {
	syncCmd.Flags().BoolVar(&syncBreakLock, "break-lock", false, "remove a stale sync lock before running")
	rootCmd.AddCommand(syncCmd)
}

func runSync(cmd *cobra.Command, _ []string) error {
	if librarySync == nil {
		return errors.New("sync service not configured")
	}

	if syncBreakLock {
		if err := librarySync.BreakLock(); err != nil {
			return fmt.Errorf("failed to break sync lock: %w", err)
		}
		cmd.Println("Removed sync lock.")
	}

	cmd.Println("Synchronising library...")
	report, err := librarySync.SyncOnce(cmd.Context())
	if err != nil {
		return fmt.Errorf("sync failed: %w", err)
	}

	if report.Status == domain.SyncStatusLocked {
		cmd.Println("Another sync pass is running; nothing was changed.")
		return domain.ErrSyncLocked
	}

	printSyncReport(cmd, report)
	return nil
}

func printSyncReport(cmd *cobra.Command, report *domain.SyncReport) {
	cmd.Printf("  Scanned:  %d\n", report.Scanned)
	cmd.Printf("  Ingested: %d\n", report.Ingested)
	cmd.Printf("  Failed:   %d\n", report.Failed)
	cmd.Printf("  Deleted:  %d\n", report.Deleted)
	cmd.Printf("  Rehashed: %d\n", report.Rehashed)
	cmd.Printf("Sync finished in %s.\n", report.Duration().Round(time.Millisecond))
}
