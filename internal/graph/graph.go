package graph

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dshills/uekb-mcp/internal/storage"
	"github.com/dshills/uekb-mcp/pkg/types"
)

// Store is the subset of storage the graph queries read from
type Store interface {
	GetType(ctx context.Context, name string) (*types.TypeEntity, error)
	ListChildTypes(ctx context.Context, parent string) ([]string, error)
	FindCallable(ctx context.Context, name string) (*types.CallableEntity, error)
	ListCallablesByOwner(ctx context.Context, owner string) ([]*types.CallableEntity, error)
	ListFieldsByOwner(ctx context.Context, owner string) ([]*types.FieldEntity, error)
	GetNote(ctx context.Context, id int64) (*types.Note, error)
}

// Limits bound a hierarchy walk
type Limits struct {
	DepthLimit          int `json:"depth_limit"`
	MaxChildrenPerLevel int `json:"max_children_per_level"`
	MaxTotal            int `json:"max_total"`
}

// DefaultLimits are used for any limit left at zero
var DefaultLimits = Limits{DepthLimit: 10, MaxChildrenPerLevel: 50, MaxTotal: 200}

// Graph answers hierarchy, call-edge and type-detail queries over a Store
type Graph struct {
	store    Store
	defaults Limits
}

// New creates a Graph. Zero fields in defaults fall back to DefaultLimits.
func New(store Store, defaults Limits) *Graph {
	return &Graph{store: store, defaults: fill(defaults, DefaultLimits)}
}

func fill(l, from Limits) Limits {
	if l.DepthLimit <= 0 {
		l.DepthLimit = from.DepthLimit
	}
	if l.MaxChildrenPerLevel <= 0 {
		l.MaxChildrenPerLevel = from.MaxChildrenPerLevel
	}
	if l.MaxTotal <= 0 {
		l.MaxTotal = from.MaxTotal
	}
	return l
}

func isNotFound(err error) bool {
	return errors.Is(err, storage.ErrNotFound)
}

func normalize(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// CallMode selects which call edges CallChain returns
type CallMode string

const (
	CallModeCallers CallMode = "callers"
	CallModeCallees CallMode = "callees"
	CallModeBoth    CallMode = "both"
)

// CallChainResult holds the one-hop call edges of a callable
type CallChainResult struct {
	QualifiedName string   `json:"qualified_name"`
	Found         bool     `json:"found"`
	Mode          CallMode `json:"mode"`
	Callers       []string `json:"callers,omitempty"`
	Callees       []string `json:"callees,omitempty"`
}

// CallChain returns the recorded callers and/or callees of one callable.
// Lookup falls back to the plain name. A missing callable is not an error:
// the result is empty with Found false.
func (g *Graph) CallChain(ctx context.Context, name string, mode CallMode) (*CallChainResult, error) {
	if mode == "" {
		mode = CallModeBoth
	}
	if mode != CallModeCallers && mode != CallModeCallees && mode != CallModeBoth {
		return nil, &types.ValidationError{Field: "direction", Value: string(mode), Reason: "must be one of: callers, callees, both"}
	}

	result := &CallChainResult{QualifiedName: strings.TrimSpace(name), Mode: mode}
	c, err := g.store.FindCallable(ctx, name)
	if isNotFound(err) {
		return result, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up callable: %w", err)
	}

	result.Found = true
	result.QualifiedName = c.QualifiedName
	if mode != CallModeCallees {
		result.Callers = append([]string{}, c.CalledBy...)
	}
	if mode != CallModeCallers {
		result.Callees = append([]string{}, c.CallsInto...)
	}
	return result, nil
}

// TypeDetail is one Type-entity with its owned members and linked Note
type TypeDetail struct {
	Type      *types.TypeEntity       `json:"type"`
	Callables []*types.CallableEntity `json:"callables,omitempty"`
	Fields    []*types.FieldEntity    `json:"fields,omitempty"`
	Note      *types.NoteRef          `json:"note,omitempty"`
}

// QueryType assembles a Type-entity with its callables, fields and linked
// Note. Returns storage.ErrNotFound when the type is unknown.
func (g *Graph) QueryType(ctx context.Context, name string, includeCallables, includeFields bool) (*TypeDetail, error) {
	t, err := g.store.GetType(ctx, name)
	if err != nil {
		return nil, err
	}
	detail := &TypeDetail{Type: t}

	if includeCallables {
		if detail.Callables, err = g.store.ListCallablesByOwner(ctx, t.Name); err != nil {
			return nil, err
		}
	}
	if includeFields {
		if detail.Fields, err = g.store.ListFieldsByOwner(ctx, t.Name); err != nil {
			return nil, err
		}
	}
	if t.NoteID != nil {
		n, err := g.store.GetNote(ctx, *t.NoteID)
		switch {
		case err == nil:
			detail.Note = &types.NoteRef{ID: n.ID, Title: n.Title}
		case !isNotFound(err):
			return nil, err
		}
	}
	return detail, nil
}
