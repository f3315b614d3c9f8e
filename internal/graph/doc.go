// Package graph answers relationship queries over stored entities: the
// parent/child type hierarchy, one-hop call edges and the assembled view of
// a type with its members.
//
// Names in parent_type, known_children and the call lists may refer to
// records that were never saved. Walks report those as Known=false leaf
// nodes instead of failing.
//
//	g := graph.New(store, graph.Limits{})
//	result, err := g.Walk(ctx, "APawn", graph.DirectionUp, graph.Limits{MaxTotal: 20})
//	// result.Ancestors[0] is the direct parent
package graph
