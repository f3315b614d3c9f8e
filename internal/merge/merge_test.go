package merge

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/uekb-mcp/pkg/types"
)

func TestMergeTypeUnionsArrays(t *testing.T) {
	existing := &types.TypeEntity{
		Name:          "AActor",
		Kind:          "class",
		Subsystem:     "gameplay",
		KnownChildren: []string{"B"},
		Interfaces:    []string{"IInterface"},
		Depth:         types.DepthShallow,
	}
	incoming := &types.TypeEntity{
		Name:          "AActor",
		KnownChildren: []string{"C", " b "},
		Interfaces:    nil,
	}

	merged := MergeType(existing, incoming)

	assert.Equal(t, []string{"B", "C"}, merged.KnownChildren)
	assert.Equal(t, []string{"IInterface"}, merged.Interfaces)
	assert.Equal(t, "class", merged.Kind, "empty incoming scalar must not overwrite")
	assert.Equal(t, []string{"B"}, existing.KnownChildren, "input must not be modified")
}

func TestMergeTypeDepthNeverRegresses(t *testing.T) {
	tests := []struct {
		existing, incoming, want types.Depth
	}{
		{types.DepthDeep, types.DepthStub, types.DepthDeep},
		{types.DepthStub, types.DepthDeep, types.DepthDeep},
		{types.DepthShallow, "", types.DepthShallow},
		{types.DepthShallow, types.DepthShallow, types.DepthShallow},
	}

	for _, tt := range tests {
		t.Run(string(tt.existing)+"->"+string(tt.incoming), func(t *testing.T) {
			merged := MergeType(
				&types.TypeEntity{Name: "X", Depth: tt.existing},
				&types.TypeEntity{Name: "X", Depth: tt.incoming},
			)
			assert.Equal(t, tt.want, merged.Depth)
		})
	}
}

func TestMergeTypeOverwritesScalars(t *testing.T) {
	noteID := int64(7)
	merged := MergeType(
		&types.TypeEntity{Name: "UObject", Summary: "old", Module: "CoreUObject", SourceLineCount: 100},
		&types.TypeEntity{Name: "UObject", Summary: "new", Module: "  ", NoteID: &noteID},
	)

	assert.Equal(t, "new", merged.Summary)
	assert.Equal(t, "CoreUObject", merged.Module)
	assert.Equal(t, 100, merged.SourceLineCount)
	require.NotNil(t, merged.NoteID)
	assert.Equal(t, int64(7), *merged.NoteID)
}

func TestUnionMembers(t *testing.T) {
	existing := []types.Member{{Name: "BeginPlay"}}
	incoming := []types.Member{
		{Name: "beginplay", Brief: "called when play starts"},
		{Name: "Tick", Brief: "per frame"},
		{Name: "  "},
	}

	got := UnionMembers(existing, incoming)

	require.Len(t, got, 2)
	assert.Equal(t, "BeginPlay", got[0].Name)
	assert.Equal(t, "called when play starts", got[0].Brief)
	assert.Equal(t, "Tick", got[1].Name)
	assert.Empty(t, existing[0].Brief)
}

func TestUnionStringsNeverNil(t *testing.T) {
	assert.NotNil(t, UnionStrings(nil, nil))
	assert.Equal(t, []string{"a"}, UnionStrings([]string{"a", "A", ""}, nil))
}

func TestNewTypeDefaultsDepth(t *testing.T) {
	got := NewType(&types.TypeEntity{Name: "FVector", KnownChildren: []string{"x", "X"}})
	assert.Equal(t, types.DepthStub, got.Depth)
	assert.Equal(t, []string{"x"}, got.KnownChildren)
	assert.NotNil(t, got.KeyMethods)
}

func TestNormalizeTags(t *testing.T) {
	assert.Equal(t, []string{"actor", "lifecycle"}, NormalizeTags([]string{"Actor", " Lifecycle "}))
	assert.Equal(t, []string{"b", "a"}, NormalizeTags([]string{"B", "a", "b", "", "A "}))
	assert.Empty(t, NormalizeTags(nil))
}

func TestOverlayCallableReplacesEdges(t *testing.T) {
	existing := NewCallable(&types.CallableEntity{
		Name:      "BeginPlay",
		OwnerType: "AActor",
		Subsystem: "gameplay",
		CallsInto: []string{"A::One", "A::Two"},
		CalledBy:  []string{"UWorld::BeginPlay"},
		IsVirtual: types.BoolPtr(true),
	})
	require.Equal(t, "AActor::BeginPlay", existing.QualifiedName)
	require.Equal(t, "void", existing.ReturnType)

	got := OverlayCallable(existing, &types.CallableEntity{
		Name:      "BeginPlay",
		CallsInto: []string{"A::Three"},
		IsVirtual: types.BoolPtr(false),
	})

	assert.Equal(t, []string{"A::Three"}, got.CallsInto, "edges are replaced, not unioned")
	assert.Equal(t, []string{"UWorld::BeginPlay"}, got.CalledBy, "unsupplied list is kept")
	require.NotNil(t, got.IsVirtual)
	assert.False(t, *got.IsVirtual)

	cleared := OverlayCallable(got, &types.CallableEntity{Name: "BeginPlay", CalledBy: []string{}})
	assert.Empty(t, cleared.CalledBy)
	assert.NotNil(t, cleared.CalledBy)
}

func TestOverlayField(t *testing.T) {
	existing := NewField(&types.FieldEntity{
		Name:         "Health",
		OwnerType:    "ACharacter",
		Subsystem:    "gameplay",
		DeclaredType: "float",
		IsReplicated: types.BoolPtr(false),
	})
	assert.Equal(t, "ACharacter::Health", existing.QualifiedName)

	got := OverlayField(existing, &types.FieldEntity{
		Name:            "Health",
		OwnerType:       "ACharacter",
		DeclaredType:    "double",
		IsReplicated:    types.BoolPtr(true),
		ReplicatedUsing: "OnRep_Health",
	})

	assert.Equal(t, "double", got.DeclaredType)
	assert.True(t, *got.IsReplicated)
	assert.Equal(t, "OnRep_Health", got.ReplicatedUsing)
	assert.Equal(t, "gameplay", got.Subsystem)
	assert.False(t, *existing.IsReplicated)
}
