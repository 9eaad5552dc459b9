package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/brokerdesk/internal/core/domain"
)

// ingestActor tags operation log entries written by this command.
const ingestActor = "cli"

var ingestSource string

var ingestCmd = &cobra.Command{
	Use:   "ingest [path...]",
	Short: "Ingest policy documents",
	Long: `Extracts, chunks, embeds and indexes one or more files.

The file is copied into the library folder first. Ingesting the same bytes
again keeps the document id and replaces its chunks.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runIngest,
}

func init() {
	ingestCmd.Flags().StringVarP(&ingestSource, "source", "s", "", "uploader label recorded on the document")
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	if ingestService == nil {
		return errors.New("ingest service not configured")
	}

	var failed int
	for _, path := range args {
		result, err := ingestService.Ingest(cmd.Context(), domain.IngestRequest{
			Path:     path,
			Uploader: ingestSource,
			Actor:    ingestActor,
		})
		if err != nil {
			failed++
			cmd.PrintErrf("Failed to ingest %s: %v\n", path, err)
			continue
		}
		cmd.Printf("Ingested %s\n", path)
		cmd.Printf("  Document: %s\n", result.DocumentID)
		cmd.Printf("  Pages:    %d\n", result.Pages)
		cmd.Printf("  Chunks:   %d\n", result.Chunks)
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d files failed to ingest", failed, len(args))
	}
	return nil
}
