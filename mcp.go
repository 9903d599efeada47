package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Expose corpus search as an MCP tool over SSE",
	RunE:  runMCP,
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}

func runMCP(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	retriever, _, err := buildQueryPath(ctx)
	if err != nil {
		return err
	}

	srv := NewRagServer(retriever)
	sse := server.NewSSEServer(srv, server.WithBaseURL(fmt.Sprintf("http://%s", cfg.ServerAddr)))

	logger.Info("serving MCP tool", "addr", cfg.ServerAddr)
	return sse.Start(cfg.ServerAddr)
}

// NewRagServer builds an MCP server with a single corpus-search tool.
// Hits are rendered one JSON object per line so tool callers can use
// them as RAG context directly.
func NewRagServer(retriever HitSearcher) *server.MCPServer {
	tool := mcp.NewTool("search_corpus",
		mcp.WithDescription("Search the ingested article corpus and get scored chunks for RAG"),
		mcp.WithString("query",
			mcp.Required(),
			mcp.Description("Search query"),
		))

	srv := server.NewMCPServer("wikirag", "0.1.0", server.WithToolCapabilities(false))
	srv.AddTool(tool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		q, err := request.RequireString("query")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		hits, err := retriever.Search(ctx, q, defaultTopK)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		var response string
		for _, h := range hits {
			src := h.Payload.URL
			if src == "" {
				src = h.Payload.Path
			}

			raw, err := json.Marshal(struct {
				Score   float32 `json:"score"`
				DocName string  `json:"doc_name"`
				Snippet string  `json:"snippet"`
				Source  string  `json:"source"`
			}{
				Score:   h.Score,
				DocName: h.Payload.DocName,
				Snippet: h.Payload.Snippet,
				Source:  src,
			})
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}

			response += fmt.Sprintf("%s\n", string(raw))
		}

		return mcp.NewToolResultText(response), nil
	})

	return srv
}
