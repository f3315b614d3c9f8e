package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/uekb-mcp/internal/storage"
)

type handler func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error)

func setupServer(t *testing.T) *Server {
	t.Helper()
	store, err := storage.NewSQLiteStorage(":memory:")
	require.NoError(t, err)

	s, err := NewServer(store, Options{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func call(t *testing.T, h handler, name string, args map[string]interface{}) (map[string]interface{}, error) {
	t.Helper()
	var request mcp.CallToolRequest
	request.Params.Name = name
	request.Params.Arguments = args

	result, err := h(context.Background(), request)
	if err != nil {
		return nil, err
	}
	require.NotNil(t, result)
	require.NotEmpty(t, result.Content)
	text, ok := result.Content[0].(mcp.TextContent)
	require.True(t, ok, "expected text content")

	var out map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(text.Text), &out))
	return out, nil
}

func mustCall(t *testing.T, h handler, name string, args map[string]interface{}) map[string]interface{} {
	t.Helper()
	out, err := call(t, h, name, args)
	require.NoError(t, err)
	return out
}

func requireMCPError(t *testing.T, err error, code int) *MCPError {
	t.Helper()
	require.Error(t, err)
	var me *MCPError
	require.True(t, errors.As(err, &me), "expected MCPError, got %v", err)
	assert.Equal(t, code, me.Code)
	return me
}

func saveNote(t *testing.T, s *Server, title string) int64 {
	t.Helper()
	out := mustCall(t, s.handleSave, "ue_save", map[string]interface{}{
		"title":     title,
		"subsystem": "gameplay",
		"category":  "architecture",
		"summary":   "How actors begin play",
		"content":   "BeginPlay runs after components are initialized.",
		"tags":      []string{"Lifecycle", "actor"},
	})
	require.Equal(t, true, out["saved"])
	return int64(out["id"].(float64))
}

func TestNewServer(t *testing.T) {
	_, err := NewServer(nil, Options{})
	assert.Error(t, err)

	s := setupServer(t)
	assert.NotNil(t, s.mcp)
	assert.NotNil(t, s.searcher)
	assert.NotNil(t, s.graph)
	assert.NotNil(t, s.logger)
}

func TestNoteTools(t *testing.T) {
	s := setupServer(t)
	id := saveNote(t, s, "Actor lifecycle")

	t.Run("get", func(t *testing.T) {
		out := mustCall(t, s.handleGet, "ue_get", map[string]interface{}{"id": id})
		assert.Equal(t, "Actor lifecycle", out["title"])
		assert.ElementsMatch(t, []interface{}{"lifecycle", "actor"}, out["tags"])
	})

	t.Run("get missing id param", func(t *testing.T) {
		_, err := call(t, s.handleGet, "ue_get", nil)
		me := requireMCPError(t, err, ErrorCodeInvalidParams)
		assert.Equal(t, "id", me.Data.(map[string]interface{})["param"])
	})

	t.Run("get unknown", func(t *testing.T) {
		out := mustCall(t, s.handleGet, "ue_get", map[string]interface{}{"id": 9999})
		assert.Equal(t, false, out["found"])
	})

	t.Run("duplicate title", func(t *testing.T) {
		out := mustCall(t, s.handleSave, "ue_save", map[string]interface{}{
			"title":     "Actor lifecycle ",
			"subsystem": "gameplay",
			"category":  "architecture",
		})
		assert.Equal(t, true, out["duplicate"])
		assert.Equal(t, float64(id), out["existing_id"])
	})

	t.Run("invalid subsystem", func(t *testing.T) {
		_, err := call(t, s.handleSave, "ue_save", map[string]interface{}{
			"title":     "Something else",
			"subsystem": "sound",
			"category":  "architecture",
		})
		me := requireMCPError(t, err, ErrorCodeInvalidParams)
		assert.Equal(t, "subsystem", me.Data.(map[string]interface{})["param"])
	})

	t.Run("list", func(t *testing.T) {
		saveNote(t, s, "Tick groups")
		out := mustCall(t, s.handleList, "ue_list", map[string]interface{}{"subsystem": "gameplay"})
		assert.Equal(t, float64(2), out["total"])
		assert.Len(t, out["entries"], 2)
	})

	t.Run("update", func(t *testing.T) {
		out := mustCall(t, s.handleUpdate, "ue_update", map[string]interface{}{
			"id":      id,
			"summary": "Updated summary",
		})
		assert.Equal(t, true, out["updated"])
		note := out["note"].(map[string]interface{})
		assert.Equal(t, "Updated summary", note["summary"])
		assert.Equal(t, "Actor lifecycle", note["title"])
	})

	t.Run("update with nothing to change", func(t *testing.T) {
		_, err := call(t, s.handleUpdate, "ue_update", map[string]interface{}{"id": id})
		requireMCPError(t, err, ErrorCodeInvalidParams)
	})

	t.Run("delete", func(t *testing.T) {
		out := mustCall(t, s.handleDelete, "ue_delete", map[string]interface{}{"id": id})
		assert.Equal(t, true, out["deleted"])

		out = mustCall(t, s.handleDelete, "ue_delete", map[string]interface{}{"id": id})
		assert.Equal(t, false, out["found"])
	})
}

func TestSearchTools(t *testing.T) {
	s := setupServer(t)
	saveNote(t, s, "Actor lifecycle")
	mustCall(t, s.handleSaveClass, "ue_save_class", map[string]interface{}{
		"name":      "AActor",
		"kind":      "class",
		"subsystem": "gameplay",
		"summary":   "Base actor with a lifecycle",
	})

	t.Run("search merges tables", func(t *testing.T) {
		out := mustCall(t, s.handleSearch, "ue_search", map[string]interface{}{
			"query":  "lifecycle",
			"tables": []string{"entries", "classes"},
		})
		assert.Equal(t, float64(2), out["total_matches"])
		assert.Len(t, out["results"], 2)
	})

	t.Run("tag filter keeps only notes", func(t *testing.T) {
		out := mustCall(t, s.handleSearch, "ue_search", map[string]interface{}{
			"query":  "lifecycle",
			"tables": []string{"entries", "classes"},
			"tags":   []string{"lifecycle"},
		})
		assert.Equal(t, float64(1), out["total_matches"])
		results := out["results"].([]interface{})
		require.Len(t, results, 1)
		assert.Equal(t, "notes", results[0].(map[string]interface{})["table"])
	})

	t.Run("search defaults to notes", func(t *testing.T) {
		out := mustCall(t, s.handleSearch, "ue_search", map[string]interface{}{"query": "lifecycle"})
		assert.Equal(t, float64(1), out["total_matches"])
	})

	t.Run("search single table", func(t *testing.T) {
		out := mustCall(t, s.handleSearch, "ue_search", map[string]interface{}{
			"query":  "lifecycle",
			"tables": []string{"classes"},
		})
		assert.Equal(t, float64(1), out["total_matches"])
	})

	t.Run("empty query", func(t *testing.T) {
		_, err := call(t, s.handleSearch, "ue_search", map[string]interface{}{"query": "  "})
		requireMCPError(t, err, ErrorCodeEmptyQuery)
	})

	t.Run("unknown category", func(t *testing.T) {
		_, err := call(t, s.handleSearch, "ue_search", map[string]interface{}{
			"query":    "lifecycle",
			"category": "trivia",
		})
		requireMCPError(t, err, ErrorCodeInvalidParams)
	})

	t.Run("search all", func(t *testing.T) {
		out := mustCall(t, s.handleSearchAll, "ue_search_all", map[string]interface{}{"query": "lifecycle"})
		tables := out["tables"].(map[string]interface{})
		assert.Len(t, tables, len(storage.AllTables))
	})

	t.Run("stats", func(t *testing.T) {
		out := mustCall(t, s.handleStats, "ue_stats", nil)
		assert.Equal(t, float64(1), out["notes"])
		assert.Equal(t, float64(1), out["types"])
	})
}

func TestEntityTools(t *testing.T) {
	s := setupServer(t)

	out := mustCall(t, s.handleSaveClass, "ue_save_class", map[string]interface{}{
		"name":      "AActor",
		"kind":      "class",
		"subsystem": "gameplay",
	})
	assert.Equal(t, "created", out["status"])

	out = mustCall(t, s.handleSaveClass, "ue_save_class", map[string]interface{}{
		"name":         "APawn",
		"kind":         "class",
		"subsystem":    "gameplay",
		"parent_class": "AActor",
	})
	assert.Equal(t, "created", out["status"])

	out = mustCall(t, s.handleSaveFunction, "ue_save_function", map[string]interface{}{
		"name":       "BeginPlay",
		"class_name": "AActor",
		"subsystem":  "gameplay",
		"calls_into": []string{"UActorComponent::BeginPlay"},
		"called_by":  []string{"UWorld::BeginPlay"},
	})
	assert.Equal(t, "created", out["status"])

	out = mustCall(t, s.handleSaveProperty, "ue_save_property", map[string]interface{}{
		"name":          "RootComponent",
		"class_name":    "AActor",
		"subsystem":     "gameplay",
		"property_type": "USceneComponent*",
	})
	assert.Equal(t, "created", out["status"])

	t.Run("query class", func(t *testing.T) {
		out := mustCall(t, s.handleQueryClass, "ue_query_class", map[string]interface{}{"class_name": "AActor"})
		assert.Len(t, out["callables"], 1)
		assert.Len(t, out["fields"], 1)

		out = mustCall(t, s.handleQueryClass, "ue_query_class", map[string]interface{}{
			"class_name":         "AActor",
			"include_methods":    false,
			"include_properties": false,
		})
		assert.Nil(t, out["callables"])
		assert.Nil(t, out["fields"])

		out = mustCall(t, s.handleQueryClass, "ue_query_class", map[string]interface{}{"class_name": "UMissing"})
		assert.Equal(t, false, out["found"])
	})

	t.Run("query hierarchy", func(t *testing.T) {
		out := mustCall(t, s.handleQueryHierarchy, "ue_query_hierarchy", map[string]interface{}{
			"class_name": "APawn",
			"direction":  "parents",
		})
		assert.Equal(t, "up", out["direction"])
		ancestors := out["ancestors"].([]interface{})
		require.Len(t, ancestors, 1)
		assert.Equal(t, "AActor", ancestors[0].(map[string]interface{})["name"])

		out = mustCall(t, s.handleQueryHierarchy, "ue_query_hierarchy", map[string]interface{}{
			"class_name": "AActor",
			"direction":  "children",
		})
		descendants := out["descendants"].([]interface{})
		require.Len(t, descendants, 1)
		assert.Equal(t, "APawn", descendants[0].(map[string]interface{})["name"])

		_, err := call(t, s.handleQueryHierarchy, "ue_query_hierarchy", map[string]interface{}{
			"class_name": "AActor",
			"direction":  "sideways",
		})
		requireMCPError(t, err, ErrorCodeInvalidParams)
	})

	t.Run("query calls", func(t *testing.T) {
		out := mustCall(t, s.handleQueryCalls, "ue_query_calls", map[string]interface{}{
			"function_name": "AActor::BeginPlay",
			"direction":     "callees",
		})
		assert.Equal(t, true, out["found"])
		assert.Equal(t, []interface{}{"UActorComponent::BeginPlay"}, out["callees"])
		assert.Nil(t, out["callers"])
	})

	t.Run("invalid property", func(t *testing.T) {
		_, err := call(t, s.handleSaveProperty, "ue_save_property", map[string]interface{}{
			"name":       "Orphan",
			"class_name": "AActor",
			"subsystem":  "gameplay",
		})
		me := requireMCPError(t, err, ErrorCodeInvalidParams)
		assert.Equal(t, "declared_type", me.Data.(map[string]interface{})["param"])
	})
}

func TestSaveBatch(t *testing.T) {
	s := setupServer(t)

	out := mustCall(t, s.handleSaveBatch, "ue_save_batch", map[string]interface{}{
		"items": []interface{}{
			map[string]interface{}{"kind": "class", "data": map[string]interface{}{
				"name": "UObject", "kind": "class", "subsystem": "core",
			}},
			map[string]interface{}{"kind": "function", "data": map[string]interface{}{
				"name": "PostLoad", "class_name": "UObject", "subsystem": "core",
			}},
			map[string]interface{}{"kind": "property", "data": map[string]interface{}{
				"name": "Broken", "class_name": "UObject", "subsystem": "nowhere", "property_type": "int32",
			}},
		},
	})
	assert.Equal(t, float64(2), out["saved"])
	errs := out["errors"].([]interface{})
	require.Len(t, errs, 1)
	assert.Equal(t, float64(2), errs[0].(map[string]interface{})["index"])

	_, err := call(t, s.handleSaveBatch, "ue_save_batch", map[string]interface{}{"items": []interface{}{}})
	requireMCPError(t, err, ErrorCodeInvalidParams)
}

func TestSaveBatch_MalformedItemsIsolated(t *testing.T) {
	s := setupServer(t)
	ctx := context.Background()

	out := mustCall(t, s.handleSaveBatch, "ue_save_batch", map[string]interface{}{
		"items": []interface{}{
			map[string]interface{}{"kind": "class", "data": map[string]interface{}{
				"name": "UObject", "kind": "class", "subsystem": "core",
			}},
			map[string]interface{}{"kind": "class", "data": map[string]interface{}{
				"name": 42, "kind": "class", "subsystem": "core",
			}},
			map[string]interface{}{"kind": "macro", "data": map[string]interface{}{"name": "UCLASS"}},
			"not an object",
			map[string]interface{}{"kind": "function", "data": map[string]interface{}{
				"name": "PostLoad", "class_name": "UObject", "subsystem": "nowhere",
			}},
			map[string]interface{}{"kind": "class", "data": map[string]interface{}{
				"name": "AActor", "kind": "class", "subsystem": "gameplay", "parent_class": "UObject",
			}},
		},
	})
	assert.Equal(t, float64(2), out["saved"])

	results := out["results"].([]interface{})
	require.Len(t, results, 2)
	assert.Equal(t, float64(0), results[0].(map[string]interface{})["index"])
	assert.Equal(t, float64(5), results[1].(map[string]interface{})["index"])

	errs := out["errors"].([]interface{})
	require.Len(t, errs, 4)
	indexes := make([]float64, 0, len(errs))
	for _, e := range errs {
		indexes = append(indexes, e.(map[string]interface{})["index"].(float64))
	}
	assert.Equal(t, []float64{1, 2, 3, 4}, indexes)
	assert.Equal(t, "name", errs[0].(map[string]interface{})["field"])
	assert.Equal(t, "kind", errs[1].(map[string]interface{})["field"])

	_, err := s.storage.GetType(ctx, "UObject")
	assert.NoError(t, err)
	_, err = s.storage.GetType(ctx, "AActor")
	assert.NoError(t, err)
}

func TestSaveBatch_AllItemsMalformed(t *testing.T) {
	s := setupServer(t)

	out := mustCall(t, s.handleSaveBatch, "ue_save_batch", map[string]interface{}{
		"items": []interface{}{
			map[string]interface{}{"kind": "macro", "data": map[string]interface{}{}},
			map[string]interface{}{"kind": "class"},
		},
	})
	assert.Equal(t, float64(0), out["saved"])
	errs := out["errors"].([]interface{})
	require.Len(t, errs, 2)
	assert.Equal(t, "data", errs[1].(map[string]interface{})["field"])
}

func TestCoverageTools(t *testing.T) {
	s := setupServer(t)

	out := mustCall(t, s.handleLogAnalysis, "ue_log_analysis", map[string]interface{}{
		"file_path":      "Engine/Source/Runtime/Engine/Classes/GameFramework/Actor.h",
		"module":         "Engine",
		"subsystem":      "gameplay",
		"analysis_depth": "shallow",
		"classes_found":  1,
	})
	assert.Equal(t, true, out["logged"])

	_, err := call(t, s.handleLogAnalysis, "ue_log_analysis", map[string]interface{}{
		"file_path":      "Actor.h",
		"analysis_depth": "exhaustive",
	})
	requireMCPError(t, err, ErrorCodeInvalidParams)

	out = mustCall(t, s.handleAnalysisStatus, "ue_analysis_status", map[string]interface{}{"group_by": "module"})
	assert.Equal(t, float64(1), out["files_analyzed"])
}

func TestHierarchyDirection(t *testing.T) {
	assert.Equal(t, "up", string(hierarchyDirection("parents")))
	assert.Equal(t, "down", string(hierarchyDirection("Children")))
	assert.Equal(t, "both", string(hierarchyDirection("")))
	assert.Equal(t, "sideways", string(hierarchyDirection("sideways")))
}

func TestFormatJSON(t *testing.T) {
	assert.Equal(t, "{\n  \"a\": 1\n}", formatJSON(map[string]int{"a": 1}))
}
