package cli

import (
	"context"
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	httpapi "github.com/custodia-labs/brokerdesk/internal/adapters/driving/http"
	"github.com/custodia-labs/brokerdesk/internal/logger"
)

var (
	serveAddr    string
	serveWatch   bool
	serveOrigins []string
	serveImports []string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	Long: `Serves the JSON HTTP API:

  GET  /healthz
  GET  /api/search?q=&k=
  POST /api/ask
  GET  /api/documents
  POST /api/documents
  GET  /api/documents/:id
  GET  /api/documents/:id/chunks
  POST /api/sync
  GET  /api/operations

POST /api/documents only reads files inside the library folder and the
directories given with --import-dir.

With --watch the library folder is also watched and synced in the background.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "127.0.0.1:8080", "listen address")
	serveCmd.Flags().BoolVar(&serveWatch, "watch", false, "also watch the library folder")
	serveCmd.Flags().StringSliceVar(&serveOrigins, "cors-origin", nil, "allowed CORS origins (default local dev servers)")
	serveCmd.Flags().StringSliceVar(&serveImports, "import-dir", nil, "extra directory POST /api/documents may read from")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	if searchService == nil {
		return errors.New("search service not configured")
	}

	if logger.IsVerbose() {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signalContext(cmd.Context())
	defer stop()

	if serveWatch {
		if syncScheduler == nil || libraryDir == "" {
			return errors.New("sync scheduler not configured")
		}
		go func() {
			if err := runWatcher(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Warn("library watcher stopped: %v", err)
			}
		}()
	}

	server := httpapi.NewServer(httpapi.RouterConfig{
		Search:       searchService,
		Answer:       answerService,
		Ingest:       ingestService,
		Sync:         librarySync,
		Document:     documentService,
		ImportDirs:   importDirs(),
		AllowOrigins: serveOrigins,
	})

	cmd.Printf("HTTP API listening on http://%s\n", displayAddr(serveAddr))
	return server.Run(ctx, serveAddr)
}

// importDirs is the library folder followed by any --import-dir values.
func importDirs() []string {
	var dirs []string
	if libraryDir != "" {
		dirs = append(dirs, libraryDir)
	}
	return append(dirs, serveImports...)
}
