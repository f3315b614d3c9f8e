package merge

import (
	"strings"

	"github.com/dshills/uekb-mcp/pkg/types"
)

// MergeType folds incoming into existing and returns the merged record.
// Scalars overwrite when incoming is non-empty, the array fields union and
// depth only moves up. Neither argument is modified.
func MergeType(existing, incoming *types.TypeEntity) *types.TypeEntity {
	out := *existing

	overwrite(&out.Kind, incoming.Kind)
	overwrite(&out.ParentType, incoming.ParentType)
	overwrite(&out.OuterType, incoming.OuterType)
	overwrite(&out.Subsystem, incoming.Subsystem)
	overwrite(&out.Module, incoming.Module)
	overwrite(&out.HeaderPath, incoming.HeaderPath)
	overwrite(&out.Specifiers, incoming.Specifiers)
	overwrite(&out.DocComment, incoming.DocComment)
	overwrite(&out.Summary, incoming.Summary)
	overwrite(&out.LifecycleOrder, incoming.LifecycleOrder)
	if incoming.NoteID != nil {
		id := *incoming.NoteID
		out.NoteID = &id
	}
	if incoming.SourceLineCount > 0 {
		out.SourceLineCount = incoming.SourceLineCount
	}

	out.InheritanceChain = UnionStrings(existing.InheritanceChain, incoming.InheritanceChain)
	out.KnownChildren = UnionStrings(existing.KnownChildren, incoming.KnownChildren)
	out.Interfaces = UnionStrings(existing.Interfaces, incoming.Interfaces)
	out.RelatedTypes = UnionStrings(existing.RelatedTypes, incoming.RelatedTypes)
	out.KeyMethods = UnionMembers(existing.KeyMethods, incoming.KeyMethods)
	out.KeyProperties = UnionMembers(existing.KeyProperties, incoming.KeyProperties)
	out.KeyDelegates = UnionMembers(existing.KeyDelegates, incoming.KeyDelegates)

	out.Depth = MaxDepth(existing.Depth, incoming.Depth)
	return &out
}

// NewType prepares a first save: depth defaults to stub and arrays are
// deduplicated the same way a merge would.
func NewType(incoming *types.TypeEntity) *types.TypeEntity {
	out := *incoming
	if !out.Depth.Valid() {
		out.Depth = types.DepthStub
	}
	out.InheritanceChain = UnionStrings(nil, incoming.InheritanceChain)
	out.KnownChildren = UnionStrings(nil, incoming.KnownChildren)
	out.Interfaces = UnionStrings(nil, incoming.Interfaces)
	out.RelatedTypes = UnionStrings(nil, incoming.RelatedTypes)
	out.KeyMethods = UnionMembers(nil, incoming.KeyMethods)
	out.KeyProperties = UnionMembers(nil, incoming.KeyProperties)
	out.KeyDelegates = UnionMembers(nil, incoming.KeyDelegates)
	return &out
}

// MaxDepth returns the higher of a and b. An invalid value never wins.
func MaxDepth(a, b types.Depth) types.Depth {
	if b.Rank() > a.Rank() {
		return b
	}
	if !a.Valid() {
		return types.DepthStub
	}
	return a
}

// UnionStrings keeps existing in order and appends incoming values whose
// case-folded, trimmed form is not already present. The result is never nil.
func UnionStrings(existing, incoming []string) []string {
	out := make([]string, 0, len(existing)+len(incoming))
	seen := make(map[string]struct{}, len(existing)+len(incoming))
	for _, list := range [][]string{existing, incoming} {
		for _, v := range list {
			key := normalize(v)
			if key == "" {
				continue
			}
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}
			out = append(out, strings.TrimSpace(v))
		}
	}
	return out
}

// UnionMembers merges member summaries by normalized name. A member already
// present keeps its values and only gains details it was missing.
func UnionMembers(existing, incoming []types.Member) []types.Member {
	out := make([]types.Member, 0, len(existing)+len(incoming))
	index := make(map[string]int, len(existing)+len(incoming))
	for _, list := range [][]types.Member{existing, incoming} {
		for _, m := range list {
			key := normalize(m.Name)
			if key == "" {
				continue
			}
			if i, ok := index[key]; ok {
				fillMember(&out[i], m)
				continue
			}
			m.Name = strings.TrimSpace(m.Name)
			index[key] = len(out)
			out = append(out, m)
		}
	}
	return out
}

func fillMember(dst *types.Member, src types.Member) {
	fill(&dst.Type, src.Type)
	fill(&dst.Brief, src.Brief)
	fill(&dst.Specifiers, src.Specifiers)
	fill(&dst.Signature, src.Signature)
}

// NormalizeTags lower-cases and trims every tag, drops empties and duplicates
// and keeps first-seen order.
func NormalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]struct{}, len(tags))
	for _, t := range tags {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func overwrite(dst *string, v string) {
	if strings.TrimSpace(v) != "" {
		*dst = v
	}
}

func fill(dst *string, v string) {
	if *dst == "" && v != "" {
		*dst = v
	}
}
