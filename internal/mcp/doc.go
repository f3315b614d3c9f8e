// Package mcp implements the Model Context Protocol (MCP) server for the
// Unreal Engine knowledge base.
//
// The server speaks JSON-RPC 2.0 over stdio and exposes seventeen tools to
// an analyzing agent, in four groups:
//
//   - Notes: ue_save, ue_get, ue_list, ue_update, ue_delete
//   - Search: ue_search, ue_search_all, ue_stats
//   - Entities: ue_save_class, ue_save_function, ue_save_property,
//     ue_save_batch, ue_query_class, ue_query_hierarchy, ue_query_calls
//   - Coverage: ue_log_analysis, ue_analysis_status
//
// # Tool: ue_save_class
//
// Saving a type that already exists merges the new facts into the stored
// record instead of replacing it:
//
//	Request:
//	{
//	  "name": "ue_save_class",
//	  "arguments": {
//	    "name": "APawn",
//	    "kind": "class",
//	    "subsystem": "gameplay",
//	    "parent_class": "AActor",
//	    "analysis_depth": "shallow"
//	  }
//	}
//
//	Response:
//	{
//	  "status": "created",
//	  "type": { "name": "APawn", "parent_type": "AActor", ... }
//	}
//
// # Tool: ue_query_hierarchy
//
// Walks parents ("parents"/"up"), children ("children"/"down") or both.
// Names that are referenced but never saved appear with "known": false.
// The walk stops at depth, max_children_per_level and max_total; the
// result reports "truncated" when max_total cut it short.
//
// # Error Handling
//
// Invalid input returns a JSON-RPC error naming the offending field:
//
//	{
//	  "error": {
//	    "code": -32602,
//	    "message": "invalid subsystem \"sound\": must be one of: ...",
//	    "data": {
//	      "param": "subsystem",
//	      "value": "sound",
//	      "reason": "must be one of: ..."
//	    }
//	  }
//	}
//
// Error codes:
//   - -32602: Invalid params (missing/invalid arguments)
//   - -32603: Internal error (database failure)
//   - -32004: Empty search query
//
// Lookups of missing records are not errors: ue_get, ue_update, ue_delete
// and ue_query_class answer with "found": false. A duplicate Note title
// answers with "duplicate": true and the existing id.
//
// # Logging
//
// The server logs to stderr through log/slog; stdout is reserved for the
// protocol.
package mcp
