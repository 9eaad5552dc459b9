package cli

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/custodia-labs/brokerdesk/internal/core/domain"
)

func TestSearchCmd_Use(t *testing.T) {
	assert.Equal(t, "search [query]", searchCmd.Use)
}

func TestSearchCmd_Short(t *testing.T) {
	assert.Equal(t, "Search policy documents", searchCmd.Short)
}

func TestSearchCmd_RequiresExactlyOneArg(t *testing.T) {
	_, err := execute(t, "search")

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "accepts 1 arg(s)")
}

func TestSearchCmd_Flags(t *testing.T) {
	k := searchCmd.Flags().Lookup("k")
	require.NotNil(t, k, "k flag should exist")
	assert.Equal(t, "k", k.Shorthand)
	assert.Equal(t, "0", k.DefValue)

	output := searchCmd.Flags().Lookup("output")
	require.NotNil(t, output, "output flag should exist")
	assert.Equal(t, "o", output.Shorthand)
	assert.Equal(t, "table", output.DefValue)
}

func TestSearchCmd_Table(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	out, err := execute(t, "search", "self employed")

	require.NoError(t, err)
	assert.Contains(t, out, "Results:")
	assert.Contains(t, out, "[1] Westpac Credit Policy.pdf p.12-13 (0.87)")
	assert.Contains(t, out, "two years of tax returns")
}

func TestSearchCmd_PassesK(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	_, err := execute(t, "search", "-k", "3", "lvr")

	require.NoError(t, err)
	assert.Equal(t, 3, searchService.(*mockSearchService).lastK)
}

func TestSearchCmd_JSONOutput(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	out, err := execute(t, "search", "--output", "json", "lvr")
	require.NoError(t, err)

	var results []searchResult
	require.NoError(t, json.Unmarshal([]byte(out), &results))
	require.Len(t, results, 1)
	assert.Equal(t, 1, results[0].Rank)
	assert.Equal(t, "c-1", results[0].ChunkID)
	assert.Equal(t, 12, results[0].PageFrom)
}

func TestSearchCmd_YAMLOutput(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	out, err := execute(t, "search", "-o", "yaml", "lvr")
	require.NoError(t, err)

	var results []searchResult
	require.NoError(t, yaml.Unmarshal([]byte(out), &results))
	require.Len(t, results, 1)
	assert.Equal(t, "doc-1", results[0].DocumentID)
	assert.InDelta(t, 0.87, results[0].Score, 1e-9)
}

func TestSearchCmd_UnknownOutput(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	_, err := execute(t, "search", "-o", "xml", "lvr")
	assert.EqualError(t, err, `unknown output format "xml"`)
}

func TestSearchCmd_ServiceNotConfigured(t *testing.T) {
	oldService := searchService
	searchService = nil
	defer func() {
		searchService = oldService
	}()

	_, err := execute(t, "search", "test")

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "search service not configured")
}

func TestSearchCmd_ServiceError(t *testing.T) {
	oldService := searchService
	searchService = &mockSearchService{err: domain.ErrEmbeddingUnavailable}
	defer func() {
		searchService = oldService
	}()

	_, err := execute(t, "search", "test")

	assert.ErrorIs(t, err, domain.ErrEmbeddingUnavailable)
	assert.Contains(t, err.Error(), "search failed")
}

func TestOutputSearchTable_EmptyResults(t *testing.T) {
	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)

	outputSearchTable(rootCmd, nil)

	assert.Contains(t, buf.String(), "No results found")
}

func TestOutputSearchTable_WithoutTitle(t *testing.T) {
	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)

	outputSearchTable(rootCmd, []domain.RetrievedChunk{{DocumentID: "doc-123", PageFrom: 1, PageTo: 1, Score: 0.75}})

	assert.Contains(t, buf.String(), "doc-123")
	assert.Contains(t, buf.String(), "0.75")
}

func TestSnippet(t *testing.T) {
	tests := []struct {
		name string
		text string
		n    int
		want string
	}{
		{name: "short", text: "LMI waived", n: 20, want: "LMI waived"},
		{name: "collapses whitespace", text: "LMI\n\n  waived", n: 20, want: "LMI waived"},
		{name: "truncates", text: "abcdefghij", n: 4, want: "abcd..."},
		{name: "counts runes", text: "ééééé", n: 3, want: "ééé..."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, snippet(tt.text, tt.n))
		})
	}
}
