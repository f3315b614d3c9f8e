package graph

import (
	"context"
	"fmt"

	"github.com/dshills/uekb-mcp/internal/merge"
	"github.com/dshills/uekb-mcp/pkg/types"
)

// Direction selects which way Walk follows the hierarchy
type Direction string

const (
	DirectionUp   Direction = "up"
	DirectionDown Direction = "down"
	DirectionBoth Direction = "both"
)

// Node is one type reached by a walk. Known is false for names that are
// referenced but were never saved; such nodes are always leaves.
type Node struct {
	Name      string      `json:"name"`
	Known     bool        `json:"known"`
	Kind      string      `json:"kind,omitempty"`
	Subsystem string      `json:"subsystem,omitempty"`
	Depth     types.Depth `json:"depth,omitempty"`
	Summary   string      `json:"summary,omitempty"`
	Parent    string      `json:"parent,omitempty"`
	Level     int         `json:"level"`
}

// WalkResult is the outcome of a hierarchy walk. Ancestors are ordered
// nearest-first: index 0 is the direct parent, the last entry is root-most.
type WalkResult struct {
	Root        Node      `json:"root"`
	Direction   Direction `json:"direction"`
	Ancestors   []Node    `json:"ancestors,omitempty"`
	Descendants []Node    `json:"descendants,omitempty"`
	Total       int       `json:"total"`
	Truncated   bool      `json:"truncated"`
	LevelCapped bool      `json:"level_capped"`
	Limits      Limits    `json:"limits"`
}

// walk carries the state shared by both directions of one call
type walk struct {
	g       *Graph
	limits  Limits
	visited map[string]bool
	result  *WalkResult
}

// budgetLeft reports whether another node may be added. When it may not,
// the result is marked truncated.
func (w *walk) budgetLeft() bool {
	if w.result.Total >= w.limits.MaxTotal {
		w.result.Truncated = true
		return false
	}
	return true
}

func (w *walk) add(node Node) {
	w.visited[normalize(node.Name)] = true
	w.result.Total++
}

// Walk traverses the type hierarchy from name. Up follows parent_type until
// the chain ends, a name repeats or a parent was never saved. Down is
// breadth-first over known_children plus types naming this one as parent,
// at most MaxChildrenPerLevel nodes per level. Both share one MaxTotal
// budget; the start node is not counted.
func (g *Graph) Walk(ctx context.Context, name string, direction Direction, limits Limits) (*WalkResult, error) {
	if direction == "" {
		direction = DirectionBoth
	}
	if direction != DirectionUp && direction != DirectionDown && direction != DirectionBoth {
		return nil, &types.ValidationError{Field: "direction", Value: string(direction), Reason: "must be one of: up, down, both"}
	}
	limits = fill(limits, g.defaults)

	start, err := g.lookup(ctx, name)
	if err != nil {
		return nil, err
	}

	w := &walk{
		g:       g,
		limits:  limits,
		visited: map[string]bool{normalize(name): true},
		result: &WalkResult{
			Root:      nodeFrom(name, start, "", 0),
			Direction: direction,
			Limits:    limits,
		},
	}

	if direction != DirectionDown {
		if err := w.up(ctx, start); err != nil {
			return nil, err
		}
	}
	if direction != DirectionUp && !w.result.Truncated {
		if err := w.down(ctx, name, start); err != nil {
			return nil, err
		}
	}
	return w.result, nil
}

func (w *walk) up(ctx context.Context, start *types.TypeEntity) error {
	cur := start
	for level := 1; cur != nil && level <= w.limits.DepthLimit; level++ {
		parent := cur.ParentType
		if parent == "" || w.visited[normalize(parent)] {
			return nil
		}
		if !w.budgetLeft() {
			return nil
		}
		next, err := w.g.lookup(ctx, parent)
		if err != nil {
			return err
		}
		node := nodeFrom(parent, next, "", level)
		w.add(node)
		w.result.Ancestors = append(w.result.Ancestors, node)
		cur = next
	}
	return nil
}

func (w *walk) down(ctx context.Context, rootName string, root *types.TypeEntity) error {
	type frontierEntry struct {
		name string
		t    *types.TypeEntity
	}
	frontier := []frontierEntry{{name: rootName, t: root}}

	for level := 1; len(frontier) > 0 && level <= w.limits.DepthLimit; level++ {
		var next []frontierEntry
		placed := 0

	level:
		for _, parent := range frontier {
			children, err := w.g.children(ctx, parent.name, parent.t)
			if err != nil {
				return err
			}
			for _, child := range children {
				if w.visited[normalize(child)] {
					continue
				}
				if placed >= w.limits.MaxChildrenPerLevel {
					w.result.LevelCapped = true
					break level
				}
				if !w.budgetLeft() {
					return nil
				}
				t, err := w.g.lookup(ctx, child)
				if err != nil {
					return err
				}
				node := nodeFrom(child, t, parent.name, level)
				w.add(node)
				w.result.Descendants = append(w.result.Descendants, node)
				placed++
				if t != nil {
					next = append(next, frontierEntry{name: child, t: t})
				}
			}
		}
		frontier = next
	}
	return nil
}

// children returns known_children unioned with types that name parent as
// their parent_type, in that order.
func (g *Graph) children(ctx context.Context, parent string, t *types.TypeEntity) ([]string, error) {
	var known []string
	if t != nil {
		known = t.KnownChildren
	}
	byParent, err := g.store.ListChildTypes(ctx, parent)
	if err != nil {
		return nil, fmt.Errorf("failed to list children of %s: %w", parent, err)
	}
	return merge.UnionStrings(known, byParent), nil
}

// lookup returns the named type, or nil when it was never saved
func (g *Graph) lookup(ctx context.Context, name string) (*types.TypeEntity, error) {
	t, err := g.store.GetType(ctx, name)
	if isNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up type %s: %w", name, err)
	}
	return t, nil
}

func nodeFrom(name string, t *types.TypeEntity, parent string, level int) Node {
	node := Node{Name: name, Parent: parent, Level: level}
	if t == nil {
		return node
	}
	node.Name = t.Name
	node.Known = true
	node.Kind = t.Kind
	node.Subsystem = t.Subsystem
	node.Depth = t.Depth
	node.Summary = t.Summary
	return node
}
