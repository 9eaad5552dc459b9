package cli

import (
	"context"
	"errors"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/brokerdesk/internal/adapters/driving/watch"
	"github.com/custodia-labs/brokerdesk/internal/logger"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Keep the index in sync with the library folder",
	Long: `Runs a sync pass, then watches the library folder and runs another pass
shortly after files stop changing. Stop with Ctrl+C.`,
	Args: cobra.NoArgs,
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, _ []string) error {
	if syncScheduler == nil {
		return errors.New("sync scheduler not configured")
	}
	if libraryDir == "" {
		return errors.New("library directory not configured")
	}

	ctx, stop := signalContext(cmd.Context())
	defer stop()

	cmd.Printf("Watching %s (Ctrl+C to stop)\n", libraryDir)
	return runWatcher(ctx)
}

// runWatcher runs the scheduler and the filesystem watcher until ctx ends.
func runWatcher(ctx context.Context) error {
	w, err := watch.New(libraryDir, syncScheduler.Trigger)
	if err != nil {
		return err
	}
	defer w.Close()

	go func() {
		if err := w.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Warn("watcher stopped: %v", err)
		}
	}()

	err = syncScheduler.Start(ctx)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	if parent == nil {
		parent = context.Background()
	}
	return signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
}

// displayAddr turns ":8080" into "localhost:8080".
func displayAddr(addr string) string {
	if strings.HasPrefix(addr, ":") {
		return "localhost" + addr
	}
	return addr
}
