package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDepthRank(t *testing.T) {
	assert.Less(t, DepthStub.Rank(), DepthShallow.Rank())
	assert.Less(t, DepthShallow.Rank(), DepthDeep.Rank())
	assert.Equal(t, -1, Depth("bogus").Rank())
	assert.False(t, Depth("").Valid())
}

func TestNoteValidate(t *testing.T) {
	tests := []struct {
		name  string
		note  Note
		field string
	}{
		{"valid", Note{Title: "Actor lifecycle", Subsystem: "gameplay", Category: "pattern"}, ""},
		{"blank title", Note{Title: "  ", Subsystem: "gameplay", Category: "pattern"}, "title"},
		{"unknown subsystem", Note{Title: "x", Subsystem: "sound", Category: "pattern"}, "subsystem"},
		{"unknown category", Note{Title: "x", Subsystem: "core", Category: "tips"}, "category"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.note.Validate()
			if tt.field == "" {
				assert.NoError(t, err)
				return
			}
			var ve *ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Equal(t, tt.field, ve.Field)
		})
	}
}

func TestNoteUpdateApply(t *testing.T) {
	n := &Note{Title: "old", Summary: "keep", Tags: []string{"a"}}
	title := " new "
	tags := []string{}
	u := &NoteUpdate{Title: &title, Tags: &tags}

	require.NoError(t, u.Validate())
	assert.False(t, u.Empty())
	u.Apply(n)

	assert.Equal(t, "new", n.Title)
	assert.Equal(t, "keep", n.Summary)
	assert.Empty(t, n.Tags)
	assert.True(t, (&NoteUpdate{}).Empty())
}

func TestTypeEntityValidate(t *testing.T) {
	valid := TypeEntity{Name: "AActor", Kind: "class", Subsystem: "gameplay"}
	assert.NoError(t, valid.Validate())

	badKind := valid
	badKind.Kind = "union"
	var ve *ValidationError
	require.ErrorAs(t, badKind.Validate(), &ve)
	assert.Equal(t, "kind", ve.Field)
	assert.Contains(t, ve.Error(), "union")

	badDepth := valid
	badDepth.Depth = "medium"
	require.ErrorAs(t, badDepth.Validate(), &ve)
	assert.Equal(t, "depth", ve.Field)
}

func TestQualifiedKey(t *testing.T) {
	c := CallableEntity{Name: "BeginPlay", OwnerType: "AActor"}
	assert.Equal(t, "AActor::BeginPlay", c.QualifiedKey())

	c.QualifiedName = "AActor::Tick"
	assert.Equal(t, "AActor::Tick", c.QualifiedKey())

	free := CallableEntity{Name: " GetWorld "}
	assert.Equal(t, "GetWorld", free.QualifiedKey())

	f := FieldEntity{Name: "RootComponent", OwnerType: "AActor"}
	assert.Equal(t, "AActor::RootComponent", f.QualifiedKey())
}

func TestCallableValidateRPCType(t *testing.T) {
	c := CallableEntity{Name: "ServerFire", Subsystem: "networking", RPCType: "Server"}
	assert.NoError(t, c.Validate())

	c.RPCType = "server"
	assert.True(t, IsValidationError(c.Validate()))
}

func TestFieldValidate(t *testing.T) {
	f := FieldEntity{Name: "Health", OwnerType: "ACharacter", Subsystem: "gameplay", DeclaredType: "float"}
	assert.NoError(t, f.Validate())

	f.OwnerType = ""
	var ve *ValidationError
	require.ErrorAs(t, f.Validate(), &ve)
	assert.Equal(t, "owner_type", ve.Field)
}

func TestCoverageValidate(t *testing.T) {
	c := CoverageEntry{FilePath: "Engine/Actor.h", Depth: DepthShallow}
	assert.NoError(t, c.Validate())

	c.Depth = ""
	assert.True(t, IsValidationError(c.Validate()))
}
