package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/dshills/uekb-mcp/internal/searcher"
	"github.com/dshills/uekb-mcp/internal/storage"
	"github.com/dshills/uekb-mcp/pkg/types"
)

// MCP error codes
const (
	ErrorCodeInvalidParams = -32602 // Invalid method parameters
	ErrorCodeInternalError = -32603 // Internal JSON-RPC error
	ErrorCodeEmptyQuery    = -32004 // Query parameter is empty
)

// noteSummary is the compact Note form used in listings
type noteSummary struct {
	ID        int64     `json:"id"`
	Title     string    `json:"title"`
	Subsystem string    `json:"subsystem"`
	Category  string    `json:"category"`
	Summary   string    `json:"summary"`
	Tags      []string  `json:"tags"`
	UpdatedAt time.Time `json:"updated_at"`
}

// handleSave handles the ue_save tool invocation
func (s *Server) handleSave(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args saveArgs
	if err := bindArgs(request, &args); err != nil {
		return nil, err
	}

	note, err := s.storage.CreateNote(ctx, args.note())
	var dup *storage.DuplicateTitleError
	if errors.As(err, &dup) {
		return duplicateResult(dup), nil
	}
	if err != nil {
		return nil, s.toolError("ue_save", err)
	}

	return mcp.NewToolResultText(formatJSON(map[string]interface{}{
		"saved": true,
		"id":    note.ID,
		"title": note.Title,
	})), nil
}

// handleGet handles the ue_get tool invocation
func (s *Server) handleGet(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args idArgs
	if err := bindArgs(request, &args); err != nil {
		return nil, err
	}
	if args.ID == nil {
		return nil, requiredParam("id")
	}

	note, err := s.storage.GetNote(ctx, *args.ID)
	if errors.Is(err, storage.ErrNotFound) {
		return notFoundResult("note", *args.ID), nil
	}
	if err != nil {
		return nil, s.toolError("ue_get", err)
	}
	return mcp.NewToolResultText(formatJSON(note)), nil
}

// handleList handles the ue_list tool invocation
func (s *Server) handleList(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args listArgs
	if err := bindArgs(request, &args); err != nil {
		return nil, err
	}

	list, err := s.storage.ListNotes(ctx, storage.NoteFilter{
		Subsystem: args.Subsystem,
		Category:  args.Category,
		Limit:     args.Limit,
		Offset:    args.Offset,
	})
	if err != nil {
		return nil, s.toolError("ue_list", err)
	}

	notes := make([]noteSummary, 0, len(list.Notes))
	for _, n := range list.Notes {
		notes = append(notes, noteSummary{
			ID:        n.ID,
			Title:     n.Title,
			Subsystem: n.Subsystem,
			Category:  n.Category,
			Summary:   n.Summary,
			Tags:      n.Tags,
			UpdatedAt: n.UpdatedAt,
		})
	}
	return mcp.NewToolResultText(formatJSON(map[string]interface{}{
		"entries": notes,
		"count":   len(notes),
		"total":   list.Total,
	})), nil
}

// handleUpdate handles the ue_update tool invocation
func (s *Server) handleUpdate(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args updateArgs
	if err := bindArgs(request, &args); err != nil {
		return nil, err
	}
	if args.ID == nil {
		return nil, requiredParam("id")
	}

	note, err := s.storage.UpdateNote(ctx, *args.ID, &args.NoteUpdate)
	var dup *storage.DuplicateTitleError
	switch {
	case errors.As(err, &dup):
		return duplicateResult(dup), nil
	case errors.Is(err, storage.ErrNotFound):
		return notFoundResult("note", *args.ID), nil
	case err != nil:
		return nil, s.toolError("ue_update", err)
	}

	return mcp.NewToolResultText(formatJSON(map[string]interface{}{
		"updated": true,
		"note":    note,
	})), nil
}

// handleDelete handles the ue_delete tool invocation
func (s *Server) handleDelete(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args idArgs
	if err := bindArgs(request, &args); err != nil {
		return nil, err
	}
	if args.ID == nil {
		return nil, requiredParam("id")
	}

	err := s.storage.DeleteNote(ctx, *args.ID)
	if errors.Is(err, storage.ErrNotFound) {
		return notFoundResult("note", *args.ID), nil
	}
	if err != nil {
		return nil, s.toolError("ue_delete", err)
	}
	return mcp.NewToolResultText(formatJSON(map[string]interface{}{
		"deleted": true,
		"id":      *args.ID,
	})), nil
}

func (s *Server) searchRequest(request mcp.CallToolRequest) (searcher.SearchRequest, error) {
	var args searchArgs
	if err := bindArgs(request, &args); err != nil {
		return searcher.SearchRequest{}, err
	}
	if strings.TrimSpace(args.Query) == "" {
		return searcher.SearchRequest{}, newMCPError(ErrorCodeEmptyQuery, "query parameter is required and cannot be empty", map[string]interface{}{
			"param":  "query",
			"reason": "missing or empty",
		})
	}
	if err := args.validate(); err != nil {
		return searcher.SearchRequest{}, s.toolError("search", err)
	}
	return searcher.SearchRequest{
		Query:   args.Query,
		Tables:  args.tables(),
		Filters: args.filters(),
		Limit:   args.Limit,
		Offset:  args.Offset,
	}, nil
}

// handleSearch handles the ue_search tool invocation
func (s *Server) handleSearch(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	req, err := s.searchRequest(request)
	if err != nil {
		return nil, err
	}

	resp, err := s.searcher.Search(ctx, req)
	if err != nil {
		return nil, s.toolError("ue_search", err)
	}
	s.logger.Debug("search", "query", req.Query, "matches", resp.TotalMatches, "cache_hit", resp.CacheHit, "duration", resp.Duration)
	return mcp.NewToolResultText(formatJSON(resp)), nil
}

// handleSearchAll handles the ue_search_all tool invocation
func (s *Server) handleSearchAll(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	req, err := s.searchRequest(request)
	if err != nil {
		return nil, err
	}

	resp, err := s.searcher.SearchAll(ctx, req)
	if err != nil {
		return nil, s.toolError("ue_search_all", err)
	}
	return mcp.NewToolResultText(formatJSON(resp)), nil
}

// handleStats handles the ue_stats tool invocation
func (s *Server) handleStats(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	stats, err := s.storage.Stats(ctx)
	if err != nil {
		return nil, s.toolError("ue_stats", err)
	}
	return mcp.NewToolResultText(formatJSON(stats)), nil
}

// Helper functions

// toolError maps a domain error onto an MCP error. Validation failures
// become invalid-params naming the field; anything else is internal.
func (s *Server) toolError(tool string, err error) error {
	var ve *types.ValidationError
	if errors.As(err, &ve) {
		return newMCPError(ErrorCodeInvalidParams, ve.Error(), map[string]interface{}{
			"param":  ve.Field,
			"value":  ve.Value,
			"reason": ve.Reason,
		})
	}
	var me *MCPError
	if errors.As(err, &me) {
		return me
	}

	s.logger.Error("tool failed", "tool", tool, "error", err)
	return newMCPError(ErrorCodeInternalError, tool+" failed", map[string]interface{}{
		"error": err.Error(),
	})
}

func notFoundResult(kind string, key interface{}) *mcp.CallToolResult {
	return mcp.NewToolResultText(formatJSON(map[string]interface{}{
		"found": false,
		"error": fmt.Sprintf("%s %v not found", kind, key),
	}))
}

func duplicateResult(dup *storage.DuplicateTitleError) *mcp.CallToolResult {
	return mcp.NewToolResultText(formatJSON(map[string]interface{}{
		"duplicate":   true,
		"existing_id": dup.ExistingID,
		"title":       dup.Title,
		"message":     fmt.Sprintf("A note titled %q already exists; use ue_update with id %d to change it.", dup.Title, dup.ExistingID),
	}))
}

// newMCPError creates a properly formatted MCP error
func newMCPError(code int, message string, data interface{}) error {
	// MCP errors are returned as regular errors, the framework handles encoding
	return &MCPError{
		Code:    code,
		Message: message,
		Data:    data,
	}
}

// MCPError represents an MCP protocol error
type MCPError struct {
	Code    int
	Message string
	Data    interface{}
}

func (e *MCPError) Error() string {
	return fmt.Sprintf("MCP error %d: %s", e.Code, e.Message)
}

// formatJSON formats a value as indented JSON
func formatJSON(data interface{}) string {
	bytes, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Sprintf("%v", data)
	}
	return string(bytes)
}
