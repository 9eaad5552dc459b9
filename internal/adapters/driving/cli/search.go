package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/custodia-labs/brokerdesk/internal/core/domain"
)

// Output formats for commands that print structured results.
const (
	outputTable = "table"
	outputJSON  = "json"
	outputYAML  = "yaml"
)

// snippetLength bounds the excerpt printed per table row.
const snippetLength = 160

var (
	searchK      int
	searchOutput string
)

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Search policy documents",
	Long: `Embeds the query and returns the most similar excerpts from the active
version of every document, best match first.`,
	Args: cobra.ExactArgs(1),
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().IntVarP(&searchK, "k", "k", 0, "number of excerpts (0 = retrieval.top_k)")
	searchCmd.Flags().StringVarP(&searchOutput, "output", "o", outputTable, "output format: table, json or yaml")
	rootCmd.AddCommand(searchCmd)
}

// searchResult is the structured form of one hit.
type searchResult struct {
	Rank       int     `json:"rank" yaml:"rank"`
	DocumentID string  `json:"document_id" yaml:"document_id"`
	ChunkID    string  `json:"chunk_id" yaml:"chunk_id"`
	Title      string  `json:"title" yaml:"title"`
	PageFrom   int     `json:"page_from" yaml:"page_from"`
	PageTo     int     `json:"page_to" yaml:"page_to"`
	Score      float64 `json:"score" yaml:"score"`
	Text       string  `json:"text" yaml:"text"`
}

func runSearch(cmd *cobra.Command, args []string) error {
	query := args[0]

	if searchService == nil {
		return errors.New("search service not configured")
	}

	switch searchOutput {
	case outputTable, outputJSON, outputYAML:
	default:
		return fmt.Errorf("unknown output format %q", searchOutput)
	}

	results, err := searchService.Search(cmd.Context(), query, searchK)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	switch searchOutput {
	case outputJSON:
		return printJSON(cmd, toSearchResults(results))
	case outputYAML:
		return printYAML(cmd, toSearchResults(results))
	default:
		outputSearchTable(cmd, results)
		return nil
	}
}

func toSearchResults(results []domain.RetrievedChunk) []searchResult {
	out := make([]searchResult, len(results))
	for i, r := range results {
		out[i] = searchResult{
			Rank:       i + 1,
			DocumentID: r.DocumentID,
			ChunkID:    r.ChunkID,
			Title:      r.Title,
			PageFrom:   r.PageFrom,
			PageTo:     r.PageTo,
			Score:      r.Score,
			Text:       r.Text,
		}
	}
	return out
}

func outputSearchTable(cmd *cobra.Command, results []domain.RetrievedChunk) {
	if len(results) == 0 {
		cmd.Println("No results found.")
		return
	}

	cmd.Println("Results:")
	cmd.Println()
	for i := range results {
		title := results[i].Title
		if title == "" {
			title = results[i].DocumentID
		}
		cmd.Printf("  [%d] %s p.%d-%d (%.2f)\n", i+1, title, results[i].PageFrom, results[i].PageTo, results[i].Score)
		cmd.Printf("      %s\n", snippet(results[i].Text, snippetLength))
		cmd.Println()
	}
}

// snippet shortens text to at most n runes on one line.
func snippet(text string, n int) string {
	text = strings.Join(strings.Fields(text), " ")
	runes := []rune(text)
	if len(runes) <= n {
		return text
	}
	return string(runes[:n]) + "..."
}

func printJSON(cmd *cobra.Command, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal results: %w", err)
	}
	cmd.Println(string(data))
	return nil
}

func printYAML(cmd *cobra.Command, v any) error {
	data, err := yaml.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal results: %w", err)
	}
	cmd.Print(string(data))
	return nil
}
