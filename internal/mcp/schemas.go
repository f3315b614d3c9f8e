package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/dshills/uekb-mcp/pkg/types"
)

func prop(typ, description string) map[string]interface{} {
	p := map[string]interface{}{"type": typ}
	if description != "" {
		p["description"] = description
	}
	return p
}

func enumProp(description string, values []string) map[string]interface{} {
	p := prop("string", description)
	p["enum"] = values
	return p
}

func arrayProp(description string, items map[string]interface{}) map[string]interface{} {
	p := prop("array", description)
	p["items"] = items
	return p
}

func objectOf(fields ...string) map[string]interface{} {
	props := make(map[string]interface{}, len(fields))
	for _, f := range fields {
		props[f] = prop("string", "")
	}
	return map[string]interface{}{"type": "object", "properties": props}
}

func depthValues() []string {
	out := make([]string, len(types.Depths))
	for i, d := range types.Depths {
		out[i] = string(d)
	}
	return out
}

func searchProperties() map[string]interface{} {
	return map[string]interface{}{
		"query": prop("string", "Search terms (e.g. 'actor replication', 'gameplay ability')"),
		"tables": arrayProp("Tables to search: notes, types, callables, fields (also entries, classes, functions, properties)",
			enumProp("", []string{"notes", "types", "callables", "fields", "entries", "classes", "functions", "properties"})),
		"subsystem": enumProp("Filter by subsystem (all tables)", types.Subsystems),
		"category":  enumProp("Filter by category (notes only)", types.Categories),
		"tags":      arrayProp("Notes must carry every tag (case-insensitive). Only notes have tags, so other tables return no results when set", prop("string", "")),
		"limit": map[string]interface{}{
			"type":        "integer",
			"description": "Maximum number of results to return",
			"default":     10,
			"minimum":     1,
		},
		"offset": map[string]interface{}{
			"type":        "integer",
			"description": "Skip the first N results",
			"default":     0,
			"minimum":     0,
		},
	}
}

// saveTool returns the tool definition for ue_save
func saveTool() mcp.Tool {
	return mcp.Tool{
		Name:        "ue_save",
		Description: "Save an Unreal Engine knowledge note: classes, patterns, gotchas, architecture, macros. Titles are unique.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"title":           prop("string", "Short title, e.g. 'AActor lifecycle hooks'"),
				"subsystem":       enumProp("UE subsystem", types.Subsystems),
				"category":        enumProp("Note category", types.Categories),
				"summary":         prop("string", "1-3 sentence summary shown in search results"),
				"content":         prop("string", "Full detailed content, markdown supported"),
				"source_files":    arrayProp("UE source paths this note is based on", prop("string", "")),
				"tags":            arrayProp("Tags for filtering", prop("string", "")),
				"related_entries": arrayProp("IDs of related notes", prop("integer", "")),
			},
			Required: []string{"title", "subsystem", "category", "summary", "content"},
		},
	}
}

// getTool returns the tool definition for ue_get
func getTool() mcp.Tool {
	return mcp.Tool{
		Name:        "ue_get",
		Description: "Get a full knowledge note by ID",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{"id": prop("integer", "Note ID")},
			Required:   []string{"id"},
		},
	}
}

// listTool returns the tool definition for ue_list
func listTool() mcp.Tool {
	return mcp.Tool{
		Name:        "ue_list",
		Description: "List knowledge notes, most recently updated first, optionally filtered by subsystem and category",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"subsystem": enumProp("Filter by subsystem", types.Subsystems),
				"category":  enumProp("Filter by category", types.Categories),
				"limit": map[string]interface{}{
					"type":        "integer",
					"description": "Maximum number of notes (default 20)",
					"default":     20,
				},
				"offset": map[string]interface{}{
					"type":        "integer",
					"description": "Skip the first N notes",
					"default":     0,
				},
			},
		},
	}
}

// updateTool returns the tool definition for ue_update
func updateTool() mcp.Tool {
	return mcp.Tool{
		Name:        "ue_update",
		Description: "Update a knowledge note. Only supplied fields change; an empty list clears that list.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"id":              prop("integer", "Note ID to update"),
				"title":           prop("string", ""),
				"subsystem":       enumProp("", types.Subsystems),
				"category":        enumProp("", types.Categories),
				"summary":         prop("string", ""),
				"content":         prop("string", ""),
				"source_files":    arrayProp("", prop("string", "")),
				"tags":            arrayProp("", prop("string", "")),
				"related_entries": arrayProp("", prop("integer", "")),
			},
			Required: []string{"id"},
		},
	}
}

// deleteTool returns the tool definition for ue_delete
func deleteTool() mcp.Tool {
	return mcp.Tool{
		Name:        "ue_delete",
		Description: "Delete a knowledge note by ID. Entities linked to it keep their data and lose the link.",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{"id": prop("integer", "Note ID to delete")},
			Required:   []string{"id"},
		},
	}
}

// searchTool returns the tool definition for ue_search
func searchTool() mcp.Tool {
	return mcp.Tool{
		Name:        "ue_search",
		Description: "Full-text search over notes (default) or any mix of tables, merged into one ranked page",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: searchProperties(),
			Required:   []string{"query"},
		},
	}
}

// searchAllTool returns the tool definition for ue_search_all
func searchAllTool() mcp.Tool {
	return mcp.Tool{
		Name:        "ue_search_all",
		Description: "Run one full-text query against every table and return a separate ranked page per table",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: searchProperties(),
			Required:   []string{"query"},
		},
	}
}

// statsTool returns the tool definition for ue_stats
func statsTool() mcp.Tool {
	return mcp.Tool{
		Name:        "ue_stats",
		Description: "Show knowledge base statistics: row counts, notes by subsystem and category, types by analysis depth",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}
}

func classProperties() map[string]interface{} {
	return map[string]interface{}{
		"name":              prop("string", "Type name: 'AActor', 'FVector', 'ENetRole'"),
		"kind":              enumProp("", types.TypeKinds),
		"parent_class":      prop("string", "Direct parent type"),
		"outer_class":       prop("string", "Enclosing type for nested types"),
		"subsystem":         enumProp("", types.Subsystems),
		"module":            prop("string", "Module: 'Engine', 'CoreUObject', 'GameplayAbilities'"),
		"header_path":       prop("string", "Relative path from Engine/Source/"),
		"class_specifiers":  prop("string", "UCLASS/USTRUCT specifiers as in source"),
		"doc_comment":       prop("string", "Verbatim doc comment from source"),
		"summary":           prop("string", "1-3 sentence description"),
		"inheritance_chain": arrayProp("Parent chain to root: ['AActor', 'UObject']", prop("string", "")),
		"known_children":    arrayProp("", prop("string", "")),
		"interfaces":        arrayProp("", prop("string", "")),
		"key_methods":       arrayProp("", objectOf("name", "brief", "signature")),
		"key_properties":    arrayProp("", objectOf("name", "type", "specifiers")),
		"key_delegates":     arrayProp("", objectOf("name", "signature")),
		"lifecycle_order":   prop("string", "Call order: 'Constructor -> BeginPlay -> Tick -> EndPlay'"),
		"related_classes":   arrayProp("", prop("string", "")),
		"entry_id":          prop("integer", "ID of a linked note"),
		"analysis_depth":    enumProp("Analysis maturity; never downgraded", depthValues()),
		"source_line_count": prop("integer", ""),
	}
}

func functionProperties() map[string]interface{} {
	return map[string]interface{}{
		"name":                  prop("string", ""),
		"qualified_name":        prop("string", "Defaults to class_name::name"),
		"class_name":            prop("string", "Owning type; omit for free functions"),
		"subsystem":             enumProp("", types.Subsystems),
		"return_type":           prop("string", ""),
		"parameters":            arrayProp("", objectOf("name", "type", "default")),
		"signature_full":        prop("string", "Full signature as in header"),
		"ufunction_specifiers":  prop("string", ""),
		"is_virtual":            prop("boolean", ""),
		"is_const":              prop("boolean", ""),
		"is_static":             prop("boolean", ""),
		"is_blueprint_callable": prop("boolean", ""),
		"is_blueprint_event":    prop("boolean", ""),
		"is_rpc":                prop("boolean", ""),
		"rpc_type":              enumProp("", types.RPCTypes),
		"doc_comment":           prop("string", ""),
		"summary":               prop("string", ""),
		"call_context":          prop("string", "When or how this gets called"),
		"call_order":            prop("string", "Position in a call sequence"),
		"calls_into":            arrayProp("Qualified names this calls; replaces the stored list", prop("string", "")),
		"called_by":             arrayProp("Qualified names that call this; replaces the stored list", prop("string", "")),
		"entry_id":              prop("integer", "ID of a linked note"),
	}
}

func propertyProperties() map[string]interface{} {
	return map[string]interface{}{
		"name":                 prop("string", ""),
		"class_name":           prop("string", "Owning type"),
		"subsystem":            enumProp("", types.Subsystems),
		"property_type":        prop("string", "'float', 'uint8:1', 'TObjectPtr<USceneComponent>'"),
		"default_value":        prop("string", ""),
		"uproperty_specifiers": prop("string", "Full specifiers as in source"),
		"is_replicated":        prop("boolean", ""),
		"replicated_using":     prop("string", "OnRep function name"),
		"is_blueprint_visible": prop("boolean", ""),
		"is_edit_anywhere":     prop("boolean", ""),
		"is_config":            prop("boolean", ""),
		"doc_comment":          prop("string", ""),
		"summary":              prop("string", ""),
		"entry_id":             prop("integer", "ID of a linked note"),
	}
}

// saveClassTool returns the tool definition for ue_save_class
func saveClassTool() mcp.Tool {
	return mcp.Tool{
		Name:        "ue_save_class",
		Description: "Save a UE class, struct, enum or interface. Upserts by name: lists are merged and depth only goes up.",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: classProperties(),
			Required:   []string{"name", "kind", "subsystem"},
		},
	}
}

// saveFunctionTool returns the tool definition for ue_save_function
func saveFunctionTool() mcp.Tool {
	return mcp.Tool{
		Name:        "ue_save_function",
		Description: "Save a UE function or method. Upserts by qualified name (ClassName::FuncName); supplied fields overwrite.",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: functionProperties(),
			Required:   []string{"name", "subsystem"},
		},
	}
}

// savePropertyTool returns the tool definition for ue_save_property
func savePropertyTool() mcp.Tool {
	return mcp.Tool{
		Name:        "ue_save_property",
		Description: "Save a UPROPERTY. Upserts by qualified name (ClassName::PropName); supplied fields overwrite.",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: propertyProperties(),
			Required:   []string{"name", "class_name", "subsystem", "property_type"},
		},
	}
}

// saveBatchTool returns the tool definition for ue_save_batch
func saveBatchTool() mcp.Tool {
	return mcp.Tool{
		Name:        "ue_save_batch",
		Description: "Save many classes, functions and properties in one transaction. Invalid items are reported by index and skipped.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"items": arrayProp("Items to save", map[string]interface{}{
					"type": "object",
					"properties": map[string]interface{}{
						"kind": enumProp("", []string{"class", "function", "property"}),
						"data": prop("object", "Arguments as for ue_save_class, ue_save_function or ue_save_property"),
					},
					"required": []string{"kind", "data"},
				}),
			},
			Required: []string{"items"},
		},
	}
}

// queryClassTool returns the tool definition for ue_query_class
func queryClassTool() mcp.Tool {
	return mcp.Tool{
		Name:        "ue_query_class",
		Description: "Get a class with its methods, properties and linked note",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"class_name": prop("string", ""),
				"include_methods": map[string]interface{}{
					"type":    "boolean",
					"default": true,
				},
				"include_properties": map[string]interface{}{
					"type":    "boolean",
					"default": true,
				},
			},
			Required: []string{"class_name"},
		},
	}
}

// queryHierarchyTool returns the tool definition for ue_query_hierarchy
func queryHierarchyTool() mcp.Tool {
	return mcp.Tool{
		Name:        "ue_query_hierarchy",
		Description: "Walk class inheritance: parents nearest-first, children breadth-first, or both",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"class_name": prop("string", ""),
				"direction": map[string]interface{}{
					"type":    "string",
					"enum":    []string{"parents", "children", "both", "up", "down"},
					"default": "both",
				},
				"depth":                  prop("integer", "Maximum levels in each direction"),
				"max_children_per_level": prop("integer", "Maximum children listed per level"),
				"max_total":              prop("integer", "Maximum nodes returned; the result is marked truncated when reached"),
			},
			Required: []string{"class_name"},
		},
	}
}

// queryCallsTool returns the tool definition for ue_query_calls
func queryCallsTool() mcp.Tool {
	return mcp.Tool{
		Name:        "ue_query_calls",
		Description: "Query recorded call relationships of a function: what calls it, what it calls, or both",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"function_name": prop("string", "'AActor::BeginPlay' or just 'BeginPlay'"),
				"direction": map[string]interface{}{
					"type":    "string",
					"enum":    []string{"callers", "callees", "both"},
					"default": "both",
				},
			},
			Required: []string{"function_name"},
		},
	}
}

// logAnalysisTool returns the tool definition for ue_log_analysis
func logAnalysisTool() mcp.Tool {
	return mcp.Tool{
		Name:        "ue_log_analysis",
		Description: "Record that a source file has been analyzed",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"file_path":        prop("string", ""),
				"module":           prop("string", ""),
				"subsystem":        enumProp("", types.Subsystems),
				"analysis_depth":   enumProp("", depthValues()),
				"classes_found":    prop("integer", ""),
				"functions_found":  prop("integer", ""),
				"properties_found": prop("integer", ""),
				"notes":            prop("string", ""),
			},
			Required: []string{"file_path", "analysis_depth"},
		},
	}
}

// analysisStatusTool returns the tool definition for ue_analysis_status
func analysisStatusTool() mcp.Tool {
	return mcp.Tool{
		Name:        "ue_analysis_status",
		Description: "Check analysis progress: files analyzed, depth coverage and types still at stub depth",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"group_by": map[string]interface{}{
					"type":    "string",
					"enum":    []string{"module", "subsystem", "depth"},
					"default": "module",
				},
				"module":    prop("string", ""),
				"subsystem": enumProp("", types.Subsystems),
			},
		},
	}
}
