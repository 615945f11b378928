package network

import (
	"container/list"
	"sort"
)

// Components returns the connected components of the graph over undirected
// incidence, each as a sorted slice of node IDs. Components are ordered by
// their lowest node ID. Isolated nodes form single-node components.
func (g *Graph) Components() [][]uint64 {
	nodeIDs := make([]uint64, 0, len(g.nodes))
	for id := range g.nodes {
		nodeIDs = append(nodeIDs, id)
	}
	sort.Slice(nodeIDs, func(i, j int) bool { return nodeIDs[i] < nodeIDs[j] })

	visited := make(map[uint64]bool, len(g.nodes))
	var components [][]uint64

	for _, start := range nodeIDs {
		if visited[start] {
			continue
		}
		var component []uint64
		queue := list.New()
		queue.PushBack(start)
		visited[start] = true

		for queue.Len() > 0 {
			id := queue.Remove(queue.Front()).(uint64)
			component = append(component, id)
			for _, eid := range g.touching[id] {
				other := g.edges[eid].otherEnd(id)
				if !visited[other] {
					visited[other] = true
					queue.PushBack(other)
				}
			}
		}
		sort.Slice(component, func(i, j int) bool { return component[i] < component[j] })
		components = append(components, component)
	}
	return components
}

// UpstreamNodes returns the IDs of every node with a directed path
// terminating at the given node, sorted. The node itself is excluded.
// Undirected edges do not participate.
func (g *Graph) UpstreamNodes(nodeID uint64) ([]uint64, error) {
	return g.reachable(nodeID, g.incoming, func(e *Edge) uint64 { return e.FromNodeID })
}

// DownstreamNodes returns the IDs of every node reachable from the given node
// along directed edges, sorted. The node itself is excluded.
func (g *Graph) DownstreamNodes(nodeID uint64) ([]uint64, error) {
	return g.reachable(nodeID, g.outgoing, func(e *Edge) uint64 { return e.ToNodeID })
}

func (g *Graph) reachable(nodeID uint64, adjacency map[uint64][]uint64, next func(*Edge) uint64) ([]uint64, error) {
	if _, ok := g.nodes[nodeID]; !ok {
		return nil, ErrNodeNotFound
	}
	if !g.resolved {
		return nil, ErrNotResolved
	}

	visited := map[uint64]bool{nodeID: true}
	var found []uint64
	queue := list.New()
	queue.PushBack(nodeID)

	for queue.Len() > 0 {
		id := queue.Remove(queue.Front()).(uint64)
		for _, eid := range adjacency[id] {
			other := next(g.edges[eid])
			if !visited[other] {
				visited[other] = true
				found = append(found, other)
				queue.PushBack(other)
			}
		}
	}
	sort.Slice(found, func(i, j int) bool { return found[i] < found[j] })
	return found, nil
}

// Outlet returns the terminal node downstream of the given node: the
// reachable node with no directed out-edges. When the downstream subgraph has
// multiple terminals the lowest ID is returned and multiple is true. A node
// with no outgoing edges is its own outlet.
func (g *Graph) Outlet(nodeID uint64) (outlet uint64, multiple bool, err error) {
	if _, ok := g.nodes[nodeID]; !ok {
		return 0, false, ErrNodeNotFound
	}
	if !g.resolved {
		return 0, false, ErrNotResolved
	}

	if len(g.outgoing[nodeID]) == 0 {
		return nodeID, false, nil
	}

	downstream, err := g.DownstreamNodes(nodeID)
	if err != nil {
		return 0, false, err
	}
	var terminals []uint64
	for _, id := range downstream {
		if len(g.outgoing[id]) == 0 {
			terminals = append(terminals, id)
		}
	}
	if len(terminals) == 0 {
		// Directed cycle with no exit.
		return 0, false, ErrNoOutlet
	}
	return terminals[0], len(terminals) > 1, nil
}
