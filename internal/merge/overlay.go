package merge

import (
	"github.com/dshills/uekb-mcp/pkg/types"
)

// OverlayCallable writes every field supplied in incoming over existing.
// Call edges are replaced, not unioned: re-supplying the list is how an
// edge is removed. A nil list means "not supplied", an empty one clears.
func OverlayCallable(existing, incoming *types.CallableEntity) *types.CallableEntity {
	out := *existing

	overwrite(&out.Name, incoming.Name)
	overwrite(&out.OwnerType, incoming.OwnerType)
	overwrite(&out.Subsystem, incoming.Subsystem)
	overwrite(&out.ReturnType, incoming.ReturnType)
	overwrite(&out.Signature, incoming.Signature)
	overwrite(&out.Specifiers, incoming.Specifiers)
	overwrite(&out.RPCType, incoming.RPCType)
	overwrite(&out.DocComment, incoming.DocComment)
	overwrite(&out.Summary, incoming.Summary)
	overwrite(&out.CallContext, incoming.CallContext)
	overwrite(&out.CallOrder, incoming.CallOrder)

	overlayBool(&out.IsVirtual, incoming.IsVirtual)
	overlayBool(&out.IsConst, incoming.IsConst)
	overlayBool(&out.IsStatic, incoming.IsStatic)
	overlayBool(&out.IsBlueprintCallable, incoming.IsBlueprintCallable)
	overlayBool(&out.IsBlueprintEvent, incoming.IsBlueprintEvent)
	overlayBool(&out.IsRPC, incoming.IsRPC)

	if incoming.Parameters != nil {
		out.Parameters = append([]types.Parameter{}, incoming.Parameters...)
	}
	if incoming.CallsInto != nil {
		out.CallsInto = append([]string{}, incoming.CallsInto...)
	}
	if incoming.CalledBy != nil {
		out.CalledBy = append([]string{}, incoming.CalledBy...)
	}
	if incoming.NoteID != nil {
		id := *incoming.NoteID
		out.NoteID = &id
	}
	return &out
}

// NewCallable prepares a first save with the documented defaults
func NewCallable(incoming *types.CallableEntity) *types.CallableEntity {
	out := *incoming
	out.QualifiedName = incoming.QualifiedKey()
	if out.ReturnType == "" {
		out.ReturnType = "void"
	}
	if out.Parameters == nil {
		out.Parameters = []types.Parameter{}
	}
	if out.CallsInto == nil {
		out.CallsInto = []string{}
	}
	if out.CalledBy == nil {
		out.CalledBy = []string{}
	}
	return &out
}

// OverlayField writes every field supplied in incoming over existing
func OverlayField(existing, incoming *types.FieldEntity) *types.FieldEntity {
	out := *existing

	overwrite(&out.Name, incoming.Name)
	overwrite(&out.OwnerType, incoming.OwnerType)
	overwrite(&out.Subsystem, incoming.Subsystem)
	overwrite(&out.DeclaredType, incoming.DeclaredType)
	overwrite(&out.DefaultValue, incoming.DefaultValue)
	overwrite(&out.Specifiers, incoming.Specifiers)
	overwrite(&out.ReplicatedUsing, incoming.ReplicatedUsing)
	overwrite(&out.DocComment, incoming.DocComment)
	overwrite(&out.Summary, incoming.Summary)

	overlayBool(&out.IsReplicated, incoming.IsReplicated)
	overlayBool(&out.IsBlueprintVisible, incoming.IsBlueprintVisible)
	overlayBool(&out.IsEditAnywhere, incoming.IsEditAnywhere)
	overlayBool(&out.IsConfig, incoming.IsConfig)

	if incoming.NoteID != nil {
		id := *incoming.NoteID
		out.NoteID = &id
	}
	return &out
}

// NewField prepares a first save
func NewField(incoming *types.FieldEntity) *types.FieldEntity {
	out := *incoming
	out.QualifiedName = incoming.QualifiedKey()
	return &out
}

func overlayBool(dst **bool, v *bool) {
	if v != nil {
		b := *v
		*dst = &b
	}
}
