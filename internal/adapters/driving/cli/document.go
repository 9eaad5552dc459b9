package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

// timeLayout formats timestamps in command output.
const timeLayout = "2006-01-02 15:04:05"

var (
	documentListLimit  int
	operationListLimit int
)

var documentCmd = &cobra.Command{
	Use:     "documents",
	Aliases: []string{"document", "docs"},
	Short:   "Inspect library documents",
	Long:    `List documents, show their metadata and print their active chunks.`,
}

var documentListCmd = &cobra.Command{
	Use:   "list",
	Short: "List documents, most recently updated first",
	Args:  cobra.NoArgs,
	RunE:  runDocumentList,
}

var documentShowCmd = &cobra.Command{
	Use:   "show [doc-id]",
	Short: "Show document metadata",
	Args:  cobra.ExactArgs(1),
	RunE:  runDocumentShow,
}

var documentChunksCmd = &cobra.Command{
	Use:   "chunks [doc-id]",
	Short: "Print a document's active chunks",
	Args:  cobra.ExactArgs(1),
	RunE:  runDocumentChunks,
}

var operationsCmd = &cobra.Command{
	Use:   "operations",
	Short: "Show the operation log, newest first",
	Args:  cobra.NoArgs,
	RunE:  runOperations,
}

func init() {
	documentListCmd.Flags().IntVarP(&documentListLimit, "limit", "n", 100, "maximum number of documents")
	operationsCmd.Flags().IntVarP(&operationListLimit, "limit", "n", 100, "maximum number of entries")

	documentCmd.AddCommand(documentListCmd)
	documentCmd.AddCommand(documentShowCmd)
	documentCmd.AddCommand(documentChunksCmd)
	rootCmd.AddCommand(documentCmd)
	rootCmd.AddCommand(operationsCmd)
}

func runDocumentList(cmd *cobra.Command, _ []string) error {
	if documentService == nil {
		return errors.New("document service not configured")
	}

	docs, err := documentService.List(cmd.Context(), documentListLimit)
	if err != nil {
		return fmt.Errorf("failed to list documents: %w", err)
	}

	if len(docs) == 0 {
		cmd.Println("No documents found.")
		return nil
	}

	cmd.Println("Documents:")
	cmd.Println()
	for i := range docs {
		cmd.Printf("  %s\n", docs[i].ID)
		cmd.Printf("    Title:  %s\n", docs[i].Title)
		cmd.Printf("    Status: %s\n", docs[i].Status)
		cmd.Printf("    Pages:  %d\n", docs[i].Pages)
		cmd.Println()
	}

	cmd.Printf("Total: %d documents\n", len(docs))
	return nil
}

func runDocumentShow(cmd *cobra.Command, args []string) error {
	if documentService == nil {
		return errors.New("document service not configured")
	}

	doc, err := documentService.Get(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("failed to get document: %w", err)
	}

	cmd.Printf("Document: %s\n\n", doc.ID)
	cmd.Printf("  Title:      %s\n", doc.Title)
	cmd.Printf("  Path:       %s\n", doc.Path)
	cmd.Printf("  Status:     %s\n", doc.Status)
	cmd.Printf("  Pages:      %d\n", doc.Pages)
	cmd.Printf("  Size:       %d bytes\n", doc.SizeBytes)
	cmd.Printf("  Hash:       %s\n", doc.ContentHash)
	cmd.Printf("  Uploader:   %s\n", doc.Uploader)
	cmd.Printf("  Model:      %s\n", doc.EmbeddingModel)
	cmd.Printf("  Chunking:   v%d\n", doc.ChunkingVersion)
	cmd.Printf("  Generation: %s\n", doc.Generation)
	cmd.Printf("  Created:    %s\n", doc.CreatedAt.Format(timeLayout))
	cmd.Printf("  Updated:    %s\n", doc.UpdatedAt.Format(timeLayout))
	return nil
}

func runDocumentChunks(cmd *cobra.Command, args []string) error {
	if documentService == nil {
		return errors.New("document service not configured")
	}

	chunks, err := documentService.Chunks(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("failed to get document chunks: %w", err)
	}

	if len(chunks) == 0 {
		cmd.Println("Document has no active chunks.")
		return nil
	}

	for i := range chunks {
		cmd.Printf("--- chunk %d, p.%d-%d ---\n", chunks[i].Position, chunks[i].PageFrom, chunks[i].PageTo)
		cmd.Println(chunks[i].Text)
		cmd.Println()
	}
	return nil
}

func runOperations(cmd *cobra.Command, _ []string) error {
	if documentService == nil {
		return errors.New("document service not configured")
	}

	ops, err := documentService.Operations(cmd.Context(), operationListLimit)
	if err != nil {
		return fmt.Errorf("failed to list operations: %w", err)
	}

	if len(ops) == 0 {
		cmd.Println("No operations recorded.")
		return nil
	}

	for i := range ops {
		cmd.Printf("%s  %-18s %-6s %s\n",
			ops[i].CreatedAt.Format(timeLayout), ops[i].Type, ops[i].Actor, ops[i].Detail)
	}
	return nil
}
