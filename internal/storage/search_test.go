package storage

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/uekb-mcp/pkg/types"
)

func TestBuildMatchQuery(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"actor", `"actor"*`},
		{`actor "tick group"`, `"actor"* OR "tick"* OR "group"*`},
		{"AActor::BeginPlay", `"AActor::BeginPlay"*`},
		{"  ", ""},
		{`"" :: --`, ""},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, BuildMatchQuery(tt.in))
		})
	}
}

func TestParseTable(t *testing.T) {
	for name, want := range map[string]Table{
		"notes": TableNotes, "Entries": TableNotes, "classes": TableTypes,
		"functions": TableCallables, "properties": TableFields, "fields": TableFields,
	} {
		got, err := ParseTable(name)
		require.NoError(t, err, name)
		assert.Equal(t, want, got)
	}
	_, err := ParseTable("widgets")
	assert.True(t, types.IsValidationError(err))
}

func TestSearchTable_Pagination(t *testing.T) {
	store := setupTestDB(t)
	ctx := context.Background()
	for i := 0; i < 7; i++ {
		createNote(t, store, fmt.Sprintf("Replication note %d", i))
	}
	createNote(t, store, "Unrelated")

	seen := map[int64]bool{}
	for offset := 0; offset < 9; offset += 3 {
		page, err := store.SearchTable(ctx, TableNotes, "replication", SearchFilters{}, 3, offset)
		require.NoError(t, err)
		assert.Equal(t, 7, page.TotalMatches)
		assert.LessOrEqual(t, len(page.Hits), 3)
		for _, h := range page.Hits {
			assert.False(t, seen[h.ID], "row %d returned twice", h.ID)
			seen[h.ID] = true
			assert.Greater(t, h.Score, 0.0)
		}
	}
	assert.Len(t, seen, 7)

	first, err := store.SearchTable(ctx, TableNotes, "replication", SearchFilters{}, 5, 0)
	require.NoError(t, err)
	assert.Greater(t, first.TotalMatches, len(first.Hits))
}

func TestSearchTable_Filters(t *testing.T) {
	store := setupTestDB(t)
	ctx := context.Background()

	createNote(t, store, "Actor tags one", "Actor", "Lifecycle")
	createNote(t, store, "Actor tags two", "actor")
	createNote(t, store, "Actor tags three", "lifecycle", "ACTOR", "extra")
	_, err := store.CreateNote(ctx, &types.Note{
		Title: "Actor in core", Subsystem: "core", Category: "gotcha", Tags: []string{"actor", "lifecycle"},
	})
	require.NoError(t, err)

	t.Run("tags are all required and case-insensitive", func(t *testing.T) {
		page, err := store.SearchTable(ctx, TableNotes, "actor", SearchFilters{Tags: []string{"LIFECYCLE", "actor"}}, 10, 0)
		require.NoError(t, err)
		assert.Equal(t, 3, page.TotalMatches)
		assert.Len(t, page.Hits, 3)
	})

	t.Run("tag filter pages after filtering", func(t *testing.T) {
		page, err := store.SearchTable(ctx, TableNotes, "actor", SearchFilters{Tags: []string{"lifecycle"}}, 2, 2)
		require.NoError(t, err)
		assert.Equal(t, 3, page.TotalMatches)
		assert.Len(t, page.Hits, 1)
	})

	t.Run("subsystem and category", func(t *testing.T) {
		page, err := store.SearchTable(ctx, TableNotes, "actor", SearchFilters{Subsystem: "core"}, 10, 0)
		require.NoError(t, err)
		require.Equal(t, 1, page.TotalMatches)
		assert.Equal(t, "Actor in core", page.Hits[0].Key)

		page, err = store.SearchTable(ctx, TableNotes, "actor", SearchFilters{Category: "pattern"}, 10, 0)
		require.NoError(t, err)
		assert.Equal(t, 3, page.TotalMatches)
	})

	t.Run("empty query", func(t *testing.T) {
		page, err := store.SearchTable(ctx, TableNotes, "  ", SearchFilters{}, 10, 0)
		require.NoError(t, err)
		assert.Zero(t, page.TotalMatches)
		assert.NotNil(t, page.Hits)
	})

	t.Run("negative offset", func(t *testing.T) {
		_, err := store.SearchTable(ctx, TableNotes, "actor", SearchFilters{}, 10, -1)
		assert.True(t, types.IsValidationError(err))
	})
}

func TestSearchTable_Entities(t *testing.T) {
	store := setupTestDB(t)
	ctx := context.Background()

	_, _, err := store.UpsertType(ctx, &types.TypeEntity{
		Name: "UAbilitySystemComponent", Kind: "class", Subsystem: "gas",
		Summary: "Owns gameplay abilities and attribute sets",
	})
	require.NoError(t, err)
	_, _, err = store.UpsertCallable(ctx, &types.CallableEntity{
		Name: "TryActivateAbility", OwnerType: "UAbilitySystemComponent", Subsystem: "gas",
		Summary: "Attempts to activate an ability",
	})
	require.NoError(t, err)
	_, _, err = store.UpsertField(ctx, &types.FieldEntity{
		Name: "ActivatableAbilities", OwnerType: "UAbilitySystemComponent", Subsystem: "gas",
		DeclaredType: "FGameplayAbilitySpecContainer", Summary: "Granted abilities",
	})
	require.NoError(t, err)

	for _, table := range []Table{TableTypes, TableCallables, TableFields} {
		page, err := store.SearchTable(ctx, table, "abilities", SearchFilters{Subsystem: "gas"}, 10, 0)
		require.NoError(t, err, table)
		assert.Equal(t, 1, page.TotalMatches, table)
		assert.Equal(t, table, page.Hits[0].Table)
	}

	page, err := store.SearchTable(ctx, TableTypes, "abilities", SearchFilters{Subsystem: "core"}, 10, 0)
	require.NoError(t, err)
	assert.Zero(t, page.TotalMatches)

	// Entities carry no tags, so a tag filter excludes them
	for _, table := range []Table{TableTypes, TableCallables, TableFields} {
		page, err := store.SearchTable(ctx, table, "abilities", SearchFilters{Subsystem: "gas", Tags: []string{"gas"}}, 10, 0)
		require.NoError(t, err, table)
		assert.Zero(t, page.TotalMatches, table)
		assert.Empty(t, page.Hits, table)
	}

	// A re-save replaces the indexed text rather than adding to it
	_, _, err = store.UpsertType(ctx, &types.TypeEntity{
		Name: "UAbilitySystemComponent", Kind: "class", Subsystem: "gas", Summary: "Hub for attributes",
	})
	require.NoError(t, err)
	page, err = store.SearchTable(ctx, TableTypes, "abilities", SearchFilters{}, 10, 0)
	require.NoError(t, err)
	assert.Zero(t, page.TotalMatches)
	page, err = store.SearchTable(ctx, TableTypes, "hub", SearchFilters{}, 10, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, page.TotalMatches)
	assert.Equal(t, "class", page.Hits[0].Kind)
}
