package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/uekb-mcp/pkg/types"
)

func TestCoverageStatus(t *testing.T) {
	store := setupTestDB(t)
	ctx := context.Background()

	entries := []types.CoverageEntry{
		{FilePath: "Engine/Actor.h", Module: "Engine", Subsystem: "gameplay", Depth: types.DepthDeep, TypesFound: 1},
		{FilePath: "Engine/Pawn.h", Module: "Engine", Subsystem: "gameplay", Depth: types.DepthShallow},
		{FilePath: "Core/Object.h", Module: "CoreUObject", Subsystem: "core", Depth: types.DepthShallow},
	}
	for i := range entries {
		logged, err := store.LogCoverage(ctx, &entries[i])
		require.NoError(t, err)
		assert.Greater(t, logged.ID, int64(0))
		assert.False(t, logged.AnalyzedAt.IsZero())
	}

	_, _, err := store.UpsertType(ctx, &types.TypeEntity{Name: "AActor", Kind: "class", Subsystem: "gameplay", Depth: types.DepthDeep})
	require.NoError(t, err)
	_, _, err = store.UpsertType(ctx, &types.TypeEntity{Name: "APawn", Kind: "class", Subsystem: "gameplay"})
	require.NoError(t, err)

	report, err := store.CoverageStatus(ctx, CoverageQuery{})
	require.NoError(t, err)
	assert.Equal(t, "module", report.GroupBy)
	assert.Equal(t, 3, report.FilesAnalyzed)
	assert.Equal(t, 2, report.TotalTypes)
	assert.Equal(t, map[string]int{"deep": 1, "stub": 1}, report.ByDepth)
	assert.Equal(t, map[string]int{"deep": 1, "shallow": 1}, report.Breakdown["Engine"])
	assert.Equal(t, []string{"APawn"}, report.PendingTypes)

	report, err = store.CoverageStatus(ctx, CoverageQuery{GroupBy: "depth", Subsystem: "gameplay"})
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"shallow": 1}, report.Breakdown["shallow"])
	assert.NotContains(t, report.Breakdown, "CoreUObject")

	_, err = store.CoverageStatus(ctx, CoverageQuery{GroupBy: "file"})
	assert.True(t, types.IsValidationError(err))

	_, err = store.LogCoverage(ctx, &types.CoverageEntry{Depth: types.DepthStub})
	assert.True(t, types.IsValidationError(err))
}

func TestStats(t *testing.T) {
	store := setupTestDB(t)
	ctx := context.Background()

	createNote(t, store, "first")
	_, err := store.CreateNote(ctx, &types.Note{Title: "second", Subsystem: "core", Category: "macro"})
	require.NoError(t, err)
	_, _, err = store.UpsertType(ctx, &types.TypeEntity{Name: "UObject", Kind: "class", Subsystem: "core", Depth: types.DepthShallow})
	require.NoError(t, err)
	_, _, err = store.UpsertCallable(ctx, &types.CallableEntity{Name: "GetWorld", OwnerType: "UObject", Subsystem: "core"})
	require.NoError(t, err)

	stats, err := store.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Notes)
	assert.Equal(t, 1, stats.Types)
	assert.Equal(t, 1, stats.Callables)
	assert.Equal(t, 0, stats.Fields)
	assert.Equal(t, map[string]int{"gameplay": 1, "core": 1}, stats.BySubsystem)
	assert.Equal(t, map[string]int{"pattern": 1, "macro": 1}, stats.ByCategory)
	assert.Equal(t, map[string]int{"shallow": 1}, stats.TypesByDepth)
}
