package network

import (
	"sort"
)

// Method selects a direction resolution strategy. True physical flow
// direction cannot be derived from geometry alone, so the choice is the
// caller's, not an automatic best-fit.
type Method int

const (
	// FromSources traces each connected component upstream from its single
	// flow source, orienting every edge toward that source. Components with
	// zero or multiple sources are left unresolved and reported.
	FromSources Method = iota
	// VertexOrder takes direction straight from the stored vertex order of
	// each line, first vertex toward last. Always succeeds; makes no claim
	// about physical flow.
	VertexOrder
	// VertexOrderReversed is VertexOrder with every direction flipped.
	VertexOrderReversed
)

// String returns the method name as accepted by configuration files.
func (m Method) String() string {
	switch m {
	case FromSources:
		return "from_sources"
	case VertexOrder:
		return "vertex_order"
	case VertexOrderReversed:
		return "vertex_order_r"
	default:
		return "unknown"
	}
}

// ParseMethod converts a method name to a Method.
func ParseMethod(s string) (Method, error) {
	switch s {
	case "from_sources":
		return FromSources, nil
	case "vertex_order":
		return VertexOrder, nil
	case "vertex_order_r":
		return VertexOrderReversed, nil
	default:
		return 0, ErrUnknownMethod
	}
}

// ComponentDiagnostic describes one connected component whose edges could not
// be oriented by FromSources because it contains zero or multiple sources.
type ComponentDiagnostic struct {
	Nodes   []uint64
	Edges   []uint64
	Sources []uint64
}

// Resolution reports the outcome of a ResolveDirections call. Ambiguity is
// expected in real data, so unresolved components are diagnostics rather than
// errors; resolution proceeds for every other component.
type Resolution struct {
	Method          Method
	ResolvedEdges   int
	UnresolvedEdges int
	Unresolved      []ComponentDiagnostic
}

// ResolveDirections orients the graph's edges in place using the given
// method. It is idempotent: re-running with the same method yields the same
// orientation, and switching methods fully re-derives orientation from the
// stored geometry.
func (g *Graph) ResolveDirections(method Method) (*Resolution, error) {
	res := &Resolution{Method: method}

	switch method {
	case VertexOrder:
		for _, e := range g.edges {
			e.FromNodeID = e.firstNode
			e.ToNodeID = e.lastNode
			e.Directed = true
		}
		res.ResolvedEdges = len(g.edges)

	case VertexOrderReversed:
		for _, e := range g.edges {
			e.FromNodeID = e.lastNode
			e.ToNodeID = e.firstNode
			e.Directed = true
		}
		res.ResolvedEdges = len(g.edges)

	case FromSources:
		g.resolveFromSources(res)

	default:
		return nil, ErrUnknownMethod
	}

	g.rebuildAdjacency()
	g.method = method
	g.resolved = true
	return res, nil
}

// resolveFromSources orients each connected component by tracing upstream
// from its single contained source. Every edge ends up pointing toward the
// source, transitively.
func (g *Graph) resolveFromSources(res *Resolution) {
	// Start from a clean slate so re-resolution is idempotent.
	for _, e := range g.edges {
		e.FromNodeID = e.firstNode
		e.ToNodeID = e.lastNode
		e.Directed = false
	}

	for _, component := range g.Components() {
		var sources []uint64
		for _, id := range component {
			if g.nodes[id].IsSource {
				sources = append(sources, id)
			}
		}
		edgeIDs := g.componentEdges(component)

		if len(sources) != 1 {
			res.UnresolvedEdges += len(edgeIDs)
			res.Unresolved = append(res.Unresolved, ComponentDiagnostic{
				Nodes:   component,
				Edges:   edgeIDs,
				Sources: sources,
			})
			continue
		}

		// BFS from the source over undirected incidence, recording visit
		// order. Orienting every component edge from the later-visited
		// endpoint to the earlier-visited one points all flow at the source,
		// including edges that close cycles.
		order := map[uint64]int{sources[0]: 0}
		queue := []uint64{sources[0]}
		for len(queue) > 0 {
			v := queue[0]
			queue = queue[1:]
			for _, eid := range g.touching[v] {
				u := g.edges[eid].otherEnd(v)
				if _, seen := order[u]; !seen {
					order[u] = len(order)
					queue = append(queue, u)
				}
			}
		}

		for _, eid := range edgeIDs {
			e := g.edges[eid]
			if order[e.firstNode] < order[e.lastNode] {
				e.FromNodeID = e.lastNode
				e.ToNodeID = e.firstNode
			} else {
				e.FromNodeID = e.firstNode
				e.ToNodeID = e.lastNode
			}
			e.Directed = true
		}
		res.ResolvedEdges += len(edgeIDs)
	}
}

// componentEdges returns the sorted IDs of all edges with both endpoints in
// the component.
func (g *Graph) componentEdges(component []uint64) []uint64 {
	seen := make(map[uint64]bool)
	var edgeIDs []uint64
	for _, id := range component {
		for _, eid := range g.touching[id] {
			if !seen[eid] {
				seen[eid] = true
				edgeIDs = append(edgeIDs, eid)
			}
		}
	}
	sort.Slice(edgeIDs, func(i, j int) bool { return edgeIDs[i] < edgeIDs[j] })
	return edgeIDs
}

// rebuildAdjacency re-derives the directed adjacency indexes from the current
// edge orientation. Undirected edges are invisible to directed traversal.
func (g *Graph) rebuildAdjacency() {
	g.outgoing = make(map[uint64][]uint64)
	g.incoming = make(map[uint64][]uint64)
	for _, e := range g.edges {
		if !e.Directed {
			continue
		}
		g.outgoing[e.FromNodeID] = append(g.outgoing[e.FromNodeID], e.ID)
		g.incoming[e.ToNodeID] = append(g.incoming[e.ToNodeID], e.ID)
	}
	for _, ids := range g.outgoing {
		sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	}
	for _, ids := range g.incoming {
		sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	}
}
