package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/brokerdesk/internal/adapters/driving/mcp"
)

var mcpHTTPAddr string

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start the MCP server",
	Long: `Start the Model Context Protocol server so AI assistants can search the
policy library, ask questions and trigger a sync.

By default the server speaks JSON-RPC over stdio. Use --http to serve the
streamable HTTP transport instead.

Examples:
  # Stdio mode (for desktop assistants)
  brokerdesk mcp

  # HTTP mode (for MCP Inspector, remote access)
  brokerdesk mcp --http :8090

Assistant configuration:
  {
    "mcpServers": {
      "brokerdesk": {
        "command": "/path/to/brokerdesk",
        "args": ["mcp"]
      }
    }
  }`,
	Args: cobra.NoArgs,
	RunE: runMCP,
}

func init() {
	mcpCmd.Flags().StringVar(&mcpHTTPAddr, "http", "", "serve streamable HTTP on this address instead of stdio")
	rootCmd.AddCommand(mcpCmd)
}

func runMCP(cmd *cobra.Command, _ []string) error {
	ports := &mcp.Ports{
		Search:   searchService,
		Answer:   answerService,
		Sync:     librarySync,
		Document: documentService,
	}

	server, err := mcp.NewServer(ports)
	if err != nil {
		return err
	}

	if mcpHTTPAddr != "" {
		fmt.Fprintf(cmd.OutOrStdout(), "MCP server listening on http://%s\n", displayAddr(mcpHTTPAddr))
		return server.RunHTTP(cmd.Context(), mcpHTTPAddr)
	}

	return server.Run(cmd.Context())
}
