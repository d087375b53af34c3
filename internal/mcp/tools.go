package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"docqa-ai/internal/service"
)

// ServerName is the name announced to MCP clients.
const ServerName = "docqa-ai"

// NewServer creates an MCP server exposing the document tools.
func NewServer(askService service.AskService, documentService service.DocumentService) *mcpserver.MCPServer {
	server := mcpserver.NewMCPServer(ServerName, service.Version)
	RegisterTools(server, askService, documentService)
	return server
}

// RegisterTools registers the document tools with server.
func RegisterTools(server *mcpserver.MCPServer, askService service.AskService, documentService service.DocumentService) *Handlers {
	handlers := NewHandlers(askService, documentService)

	server.AddTool(mcp.Tool{
		Name:        "ask_documents",
		Description: "Answer a question using the indexed documents. Returns the answer, cited sources and a confidence level.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]any{
				"query": map[string]any{
					"type":        "string",
					"description": "Question to answer",
				},
				"top_k": map[string]any{
					"type":        "number",
					"description": "Number of passages to retrieve (default: 5, max: 20)",
					"default":     5,
				},
				"filters": map[string]any{
					"type":        "object",
					"description": "Metadata filters, e.g. {\"source\": \"guia.pdf\"}. Values may be strings or lists of strings.",
				},
				"namespace": map[string]any{
					"type":        "string",
					"description": "Restrict retrieval to one namespace",
				},
			},
			Required: []string{"query"},
		},
	}, handlers.AskDocuments)

	server.AddTool(mcp.Tool{
		Name:        "list_documents",
		Description: "List the documents available in the documents folder.",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]any{},
		},
	}, handlers.ListDocuments)

	server.AddTool(mcp.Tool{
		Name:        "reindex_document",
		Description: "Re-index one document from the documents folder.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]any{
				"filename": map[string]any{
					"type":        "string",
					"description": "File name inside the documents folder",
				},
			},
			Required: []string{"filename"},
		},
	}, handlers.ReindexDocument)

	return handlers
}
