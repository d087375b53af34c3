package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"docqa-ai/internal/contextutil"
	"docqa-ai/internal/rag"
	"docqa-ai/internal/service"
)

// Handlers contains the handler functions for the MCP tools.
type Handlers struct {
	askService      service.AskService
	documentService service.DocumentService
}

// NewHandlers creates tool handlers over the services.
func NewHandlers(askService service.AskService, documentService service.DocumentService) *Handlers {
	return &Handlers{
		askService:      askService,
		documentService: documentService,
	}
}

// AskDocuments handles the ask_documents tool.
func (h *Handlers) AskDocuments(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := request.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError("query argument is required and must be a string"), nil
	}

	req := rag.AskRequest{
		Query:     query,
		TopK:      request.GetInt("top_k", 0),
		Namespace: request.GetString("namespace", ""),
	}
	if filters, ok := request.GetArguments()["filters"].(map[string]any); ok && len(filters) > 0 {
		req.Filters = filters
	}

	resp, err := h.askService.Ask(ctx, req)
	if err != nil {
		contextutil.LoggerFromContext(ctx).ErrorContext(ctx, "ask_documents failed", "error", err)
		return mcp.NewToolResultError(fmt.Sprintf("failed to answer question: %v", err)), nil
	}

	return jsonResult(resp)
}

// ListDocuments handles the list_documents tool.
func (h *Handlers) ListDocuments(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	list, err := h.documentService.List(ctx)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to list documents: %v", err)), nil
	}
	return jsonResult(list)
}

// ReindexDocument handles the reindex_document tool.
func (h *Handlers) ReindexDocument(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	filename, err := request.RequireString("filename")
	if err != nil {
		return mcp.NewToolResultError("filename argument is required and must be a string"), nil
	}

	outcome, err := h.documentService.Reindex(ctx, filename)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to reindex document: %v", err)), nil
	}
	return jsonResult(outcome)
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	responseJSON, err := json.Marshal(v)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal response: %v", err)), nil
	}
	return mcp.NewToolResultText(string(responseJSON)), nil
}
