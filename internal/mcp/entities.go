package mcp

import (
	"context"
	"errors"
	"sort"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/dshills/uekb-mcp/internal/graph"
	"github.com/dshills/uekb-mcp/internal/storage"
)

// handleSaveClass handles the ue_save_class tool invocation
func (s *Server) handleSaveClass(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args classArgs
	if err := bindArgs(request, &args); err != nil {
		return nil, err
	}

	saved, outcome, err := s.storage.UpsertType(ctx, args.entity())
	if err != nil {
		return nil, s.toolError("ue_save_class", err)
	}
	return mcp.NewToolResultText(formatJSON(map[string]interface{}{
		"status": outcome,
		"type":   saved,
	})), nil
}

// handleSaveFunction handles the ue_save_function tool invocation
func (s *Server) handleSaveFunction(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args functionArgs
	if err := bindArgs(request, &args); err != nil {
		return nil, err
	}

	saved, outcome, err := s.storage.UpsertCallable(ctx, args.entity())
	if err != nil {
		return nil, s.toolError("ue_save_function", err)
	}
	return mcp.NewToolResultText(formatJSON(map[string]interface{}{
		"status":   outcome,
		"callable": saved,
	})), nil
}

// handleSaveProperty handles the ue_save_property tool invocation
func (s *Server) handleSaveProperty(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args propertyArgs
	if err := bindArgs(request, &args); err != nil {
		return nil, err
	}

	saved, outcome, err := s.storage.UpsertField(ctx, args.entity())
	if err != nil {
		return nil, s.toolError("ue_save_property", err)
	}
	return mcp.NewToolResultText(formatJSON(map[string]interface{}{
		"status": outcome,
		"field":  saved,
	})), nil
}

// handleSaveBatch handles the ue_save_batch tool invocation. Items that
// cannot be decoded or fail validation are reported by index; every other
// item commits.
func (s *Server) handleSaveBatch(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args batchArgs
	if err := bindArgs(request, &args); err != nil {
		return nil, err
	}
	if len(args.Items) == 0 {
		return nil, requiredParam("items")
	}

	items := make([]storage.BatchItem, 0, len(args.Items))
	positions := make([]int, 0, len(args.Items))
	var decodeErrs []storage.BatchItemError
	for i, raw := range args.Items {
		item, itemErr := decodeBatchItem(i, raw)
		if itemErr != nil {
			decodeErrs = append(decodeErrs, *itemErr)
			continue
		}
		items = append(items, item)
		positions = append(positions, i)
	}

	result, err := s.storage.UpsertBatch(ctx, items)
	if err != nil {
		return nil, s.toolError("ue_save_batch", err)
	}
	result = mergeBatchResult(result, positions, decodeErrs)
	s.logger.Info("batch saved", "items", len(args.Items), "saved", result.Saved, "errors", len(result.Errors))
	return mcp.NewToolResultText(formatJSON(result)), nil
}

// mergeBatchResult maps indexes of the stored subset back to request
// positions and folds in the decode failures, ordered by index.
func mergeBatchResult(result *storage.BatchResult, positions []int, decodeErrs []storage.BatchItemError) *storage.BatchResult {
	for i := range result.Results {
		result.Results[i].Index = positions[result.Results[i].Index]
	}
	for i := range result.Errors {
		result.Errors[i].Index = positions[result.Errors[i].Index]
	}
	result.Errors = append(result.Errors, decodeErrs...)
	sort.SliceStable(result.Errors, func(i, j int) bool {
		return result.Errors[i].Index < result.Errors[j].Index
	})
	return result
}

// handleQueryClass handles the ue_query_class tool invocation
func (s *Server) handleQueryClass(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args queryClassArgs
	if err := bindArgs(request, &args); err != nil {
		return nil, err
	}
	if strings.TrimSpace(args.ClassName) == "" {
		return nil, requiredParam("class_name")
	}

	detail, err := s.graph.QueryType(ctx, args.ClassName,
		boolDefault(args.IncludeMethods, true),
		boolDefault(args.IncludeProperties, true))
	if errors.Is(err, storage.ErrNotFound) {
		return notFoundResult("class", args.ClassName), nil
	}
	if err != nil {
		return nil, s.toolError("ue_query_class", err)
	}
	return mcp.NewToolResultText(formatJSON(detail)), nil
}

// hierarchyDirection maps the tool's direction names onto walk directions
func hierarchyDirection(direction string) graph.Direction {
	switch strings.ToLower(strings.TrimSpace(direction)) {
	case "parents", "up":
		return graph.DirectionUp
	case "children", "down":
		return graph.DirectionDown
	case "", "both":
		return graph.DirectionBoth
	default:
		return graph.Direction(direction)
	}
}

// handleQueryHierarchy handles the ue_query_hierarchy tool invocation
func (s *Server) handleQueryHierarchy(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args hierarchyArgs
	if err := bindArgs(request, &args); err != nil {
		return nil, err
	}
	if strings.TrimSpace(args.ClassName) == "" {
		return nil, requiredParam("class_name")
	}

	result, err := s.graph.Walk(ctx, args.ClassName, hierarchyDirection(args.Direction), graph.Limits{
		DepthLimit:          args.Depth,
		MaxChildrenPerLevel: args.MaxChildrenPerLevel,
		MaxTotal:            args.MaxTotal,
	})
	if err != nil {
		return nil, s.toolError("ue_query_hierarchy", err)
	}
	return mcp.NewToolResultText(formatJSON(result)), nil
}

// handleQueryCalls handles the ue_query_calls tool invocation
func (s *Server) handleQueryCalls(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args callsArgs
	if err := bindArgs(request, &args); err != nil {
		return nil, err
	}
	if strings.TrimSpace(args.FunctionName) == "" {
		return nil, requiredParam("function_name")
	}

	result, err := s.graph.CallChain(ctx, args.FunctionName, graph.CallMode(strings.ToLower(args.Direction)))
	if err != nil {
		return nil, s.toolError("ue_query_calls", err)
	}
	return mcp.NewToolResultText(formatJSON(result)), nil
}

// handleLogAnalysis handles the ue_log_analysis tool invocation
func (s *Server) handleLogAnalysis(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args logAnalysisArgs
	if err := bindArgs(request, &args); err != nil {
		return nil, err
	}

	entry, err := s.storage.LogCoverage(ctx, args.entry())
	if err != nil {
		return nil, s.toolError("ue_log_analysis", err)
	}
	return mcp.NewToolResultText(formatJSON(map[string]interface{}{
		"logged": true,
		"entry":  entry,
	})), nil
}

// handleAnalysisStatus handles the ue_analysis_status tool invocation
func (s *Server) handleAnalysisStatus(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args analysisStatusArgs
	if err := bindArgs(request, &args); err != nil {
		return nil, err
	}

	report, err := s.storage.CoverageStatus(ctx, storage.CoverageQuery{
		GroupBy:   args.GroupBy,
		Module:    args.Module,
		Subsystem: args.Subsystem,
	})
	if err != nil {
		return nil, s.toolError("ue_analysis_status", err)
	}
	return mcp.NewToolResultText(formatJSON(report)), nil
}
