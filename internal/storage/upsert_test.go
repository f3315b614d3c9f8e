package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/uekb-mcp/pkg/types"
)

// TestUpsertType_UnionAcrossSaves verifies that array fields accumulate
// across independent partial saves of the same type
func TestUpsertType_UnionAcrossSaves(t *testing.T) {
	store := setupTestDB(t)
	ctx := context.Background()

	first, outcome, err := store.UpsertType(ctx, &types.TypeEntity{
		Name:          "AActor",
		Kind:          "class",
		Subsystem:     "gameplay",
		KnownChildren: []string{"B"},
		KeyMethods:    []types.Member{{Name: "BeginPlay"}},
	})
	require.NoError(t, err)
	assert.Equal(t, OutcomeCreated, outcome)
	assert.Equal(t, types.DepthStub, first.Depth)

	second, outcome, err := store.UpsertType(ctx, &types.TypeEntity{
		Name:          "AActor",
		Kind:          "class",
		Subsystem:     "gameplay",
		KnownChildren: []string{"C"},
		KeyMethods:    []types.Member{{Name: "Tick", Brief: "per frame"}},
	})
	require.NoError(t, err)
	assert.Equal(t, OutcomeUpdated, outcome)
	assert.Equal(t, first.ID, second.ID)

	got, err := store.GetType(ctx, "AActor")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"B", "C"}, got.KnownChildren)
	require.Len(t, got.KeyMethods, 2)
	assert.Equal(t, "Tick", got.KeyMethods[1].Name)
	assert.True(t, first.CreatedAt.Equal(got.CreatedAt))
}

func TestUpsertType_DepthNeverRegresses(t *testing.T) {
	store := setupTestDB(t)
	ctx := context.Background()

	_, _, err := store.UpsertType(ctx, &types.TypeEntity{Name: "UWorld", Kind: "class", Subsystem: "core", Depth: types.DepthDeep})
	require.NoError(t, err)
	_, _, err = store.UpsertType(ctx, &types.TypeEntity{Name: "UWorld", Kind: "class", Subsystem: "core", Depth: types.DepthStub})
	require.NoError(t, err)

	got, err := store.GetType(ctx, "UWorld")
	require.NoError(t, err)
	assert.Equal(t, types.DepthDeep, got.Depth)
}

func TestUpsertType_Validation(t *testing.T) {
	store := setupTestDB(t)
	ctx := context.Background()

	_, _, err := store.UpsertType(ctx, &types.TypeEntity{Name: "X", Kind: "union", Subsystem: "core"})
	assert.True(t, types.IsValidationError(err))

	missing := int64(404)
	_, _, err = store.UpsertType(ctx, &types.TypeEntity{Name: "X", Kind: "class", Subsystem: "core", NoteID: &missing})
	var ve *types.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "note_id", ve.Field)

	_, err = store.GetType(ctx, "X")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUpsertCallable_ReplacesEdges(t *testing.T) {
	store := setupTestDB(t)
	ctx := context.Background()

	saved, outcome, err := store.UpsertCallable(ctx, &types.CallableEntity{
		Name:       "BeginPlay",
		OwnerType:  "AActor",
		Subsystem:  "gameplay",
		Parameters: []types.Parameter{},
		CallsInto:  []string{"AActor::ReceiveBeginPlay", "UActorComponent::BeginPlay"},
		CalledBy:   []string{"UWorld::BeginPlay"},
		IsVirtual:  types.BoolPtr(true),
	})
	require.NoError(t, err)
	assert.Equal(t, OutcomeCreated, outcome)
	assert.Equal(t, "AActor::BeginPlay", saved.QualifiedName)
	assert.Equal(t, "void", saved.ReturnType)

	_, outcome, err = store.UpsertCallable(ctx, &types.CallableEntity{
		Name:      "BeginPlay",
		OwnerType: "AActor",
		Subsystem: "gameplay",
		CallsInto: []string{"AActor::ReceiveBeginPlay"},
		Summary:   "Called when play begins",
	})
	require.NoError(t, err)
	assert.Equal(t, OutcomeUpdated, outcome)

	got, err := store.GetCallable(ctx, "AActor::BeginPlay")
	require.NoError(t, err)
	assert.Equal(t, []string{"AActor::ReceiveBeginPlay"}, got.CallsInto)
	assert.Equal(t, []string{"UWorld::BeginPlay"}, got.CalledBy)
	assert.Equal(t, "Called when play begins", got.Summary)
	require.NotNil(t, got.IsVirtual)
	assert.True(t, *got.IsVirtual)

	byName, err := store.FindCallable(ctx, "BeginPlay")
	require.NoError(t, err)
	assert.Equal(t, got.ID, byName.ID)

	_, err = store.FindCallable(ctx, "EndPlay")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUpsertField(t *testing.T) {
	store := setupTestDB(t)
	ctx := context.Background()

	_, _, err := store.UpsertField(ctx, &types.FieldEntity{
		Name:         "Health",
		OwnerType:    "ACharacter",
		Subsystem:    "gameplay",
		DeclaredType: "float",
	})
	require.NoError(t, err)

	_, outcome, err := store.UpsertField(ctx, &types.FieldEntity{
		Name:            "Health",
		OwnerType:       "ACharacter",
		Subsystem:       "gameplay",
		DeclaredType:    "float",
		IsReplicated:    types.BoolPtr(true),
		ReplicatedUsing: "OnRep_Health",
	})
	require.NoError(t, err)
	assert.Equal(t, OutcomeUpdated, outcome)

	fields, err := store.ListFieldsByOwner(ctx, "ACharacter")
	require.NoError(t, err)
	require.Len(t, fields, 1)
	assert.True(t, *fields[0].IsReplicated)
	assert.Equal(t, "OnRep_Health", fields[0].ReplicatedUsing)

	_, _, err = store.UpsertField(ctx, &types.FieldEntity{Name: "Mana", OwnerType: "ACharacter", Subsystem: "gameplay"})
	assert.True(t, types.IsValidationError(err))
}

func TestListChildTypesAndCallables(t *testing.T) {
	store := setupTestDB(t)
	ctx := context.Background()

	for _, name := range []string{"APawn", "AInfo"} {
		_, _, err := store.UpsertType(ctx, &types.TypeEntity{Name: name, Kind: "class", Subsystem: "gameplay", ParentType: "AActor"})
		require.NoError(t, err)
	}
	children, err := store.ListChildTypes(ctx, "AActor")
	require.NoError(t, err)
	assert.Equal(t, []string{"AInfo", "APawn"}, children)

	for _, name := range []string{"Tick", "BeginPlay"} {
		_, _, err := store.UpsertCallable(ctx, &types.CallableEntity{Name: name, OwnerType: "AActor", Subsystem: "gameplay"})
		require.NoError(t, err)
	}
	callables, err := store.ListCallablesByOwner(ctx, "AActor")
	require.NoError(t, err)
	require.Len(t, callables, 2)
	assert.Equal(t, "BeginPlay", callables[0].Name)
}
