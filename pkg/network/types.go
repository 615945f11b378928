package network

import (
	"sort"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/quadtree"
)

// Node is one stormwater structure: a catchbasin, manhole, outfall, culvert
// end, or similar. A node may be a flow sink (surface water enters the
// subsurface system here), a flow source (subsurface water exits here), both,
// or neither.
type Node struct {
	ID       uint64
	Geom     orb.Point
	Kind     string
	IsSink   bool
	IsSource bool
}

// Point implements orb.Pointer so nodes can be indexed in a quadtree.
func (n *Node) Point() orb.Point {
	return n.Geom
}

// Edge is one pipe segment. FromNodeID and ToNodeID are resolved against node
// geometry at build time; until directions are resolved they only record
// incidence, afterwards they point downstream (catchbasin toward outfall).
type Edge struct {
	ID         uint64
	Geom       orb.LineString
	FromNodeID uint64
	ToNodeID   uint64
	Directed   bool

	// Endpoint node IDs in stored geometry order, fixed at build time so
	// direction resolution stays idempotent no matter how often it re-runs.
	firstNode uint64
	lastNode  uint64
}

// Region is the minimal spatial containment capability the graph needs to
// answer "which structures fall inside this area". Catchment polygons from
// any delineation backend satisfy it.
type Region interface {
	Contains(pt orb.Point) bool
}

// Graph is the directed graph of a stormwater network. It is built once from
// immutable input features; ResolveDirections orients the edges in place and
// is the only mutation the graph supports. After resolution the graph is
// read-only and safe for concurrent traversal.
type Graph struct {
	nodes map[uint64]*Node
	edges map[uint64]*Edge

	// Directed adjacency, rebuilt by ResolveDirections. Edge IDs are kept
	// sorted so traversal order is deterministic.
	outgoing map[uint64][]uint64
	incoming map[uint64][]uint64

	// Undirected incidence: every edge touching a node, regardless of
	// resolution state.
	touching map[uint64][]uint64

	qt *quadtree.Quadtree

	// Original inputs, retained so the topology validator can rebuild a
	// corrected graph without the caller re-supplying features.
	points []PointFeature
	lines  []LineFeature
	opts   BuildOptions

	method   Method
	resolved bool
}

// Node returns the node with the given ID, or nil if absent.
func (g *Graph) Node(id uint64) *Node {
	return g.nodes[id]
}

// Edge returns the edge with the given ID, or nil if absent.
func (g *Graph) Edge(id uint64) *Edge {
	return g.edges[id]
}

// NodeCount returns the number of nodes in the graph.
func (g *Graph) NodeCount() int {
	return len(g.nodes)
}

// EdgeCount returns the number of edges in the graph.
func (g *Graph) EdgeCount() int {
	return len(g.edges)
}

// Nodes returns all nodes ordered by ID.
func (g *Graph) Nodes() []*Node {
	nodes := make([]*Node, 0, len(g.nodes))
	for _, n := range g.nodes {
		nodes = append(nodes, n)
	}
	sort.Slice(nodes, func(i, j int) bool { return nodes[i].ID < nodes[j].ID })
	return nodes
}

// Edges returns all edges ordered by ID.
func (g *Graph) Edges() []*Edge {
	edges := make([]*Edge, 0, len(g.edges))
	for _, e := range g.edges {
		edges = append(edges, e)
	}
	sort.Slice(edges, func(i, j int) bool { return edges[i].ID < edges[j].ID })
	return edges
}

// NodesByKind returns all nodes with the given categorical kind, ordered by ID.
func (g *Graph) NodesByKind(kind string) []*Node {
	var nodes []*Node
	for _, n := range g.nodes {
		if n.Kind == kind {
			nodes = append(nodes, n)
		}
	}
	sort.Slice(nodes, func(i, j int) bool { return nodes[i].ID < nodes[j].ID })
	return nodes
}

// SinksWithin returns every sink node whose geometry is contained in the
// region, ordered by ID.
func (g *Graph) SinksWithin(r Region) []*Node {
	var sinks []*Node
	for _, n := range g.nodes {
		if n.IsSink && r.Contains(n.Geom) {
			sinks = append(sinks, n)
		}
	}
	sort.Slice(sinks, func(i, j int) bool { return sinks[i].ID < sinks[j].ID })
	return sinks
}

// SourcesWithin returns every source node whose geometry is contained in the
// region, ordered by ID.
func (g *Graph) SourcesWithin(r Region) []*Node {
	var sources []*Node
	for _, n := range g.nodes {
		if n.IsSource && r.Contains(n.Geom) {
			sources = append(sources, n)
		}
	}
	sort.Slice(sources, func(i, j int) bool { return sources[i].ID < sources[j].ID })
	return sources
}

// OutEdges returns the IDs of directed edges leaving the node.
func (g *Graph) OutEdges(nodeID uint64) []uint64 {
	return g.outgoing[nodeID]
}

// InEdges returns the IDs of directed edges entering the node.
func (g *Graph) InEdges(nodeID uint64) []uint64 {
	return g.incoming[nodeID]
}

// TouchingEdges returns the IDs of all edges incident to the node, whether or
// not their direction has been resolved.
func (g *Graph) TouchingEdges(nodeID uint64) []uint64 {
	return g.touching[nodeID]
}

// Resolved reports whether ResolveDirections has run on this graph.
func (g *Graph) Resolved() bool {
	return g.resolved
}

// ResolutionMethod returns the method used by the last ResolveDirections call.
func (g *Graph) ResolutionMethod() Method {
	return g.method
}

// Points returns a copy of the point features the graph was built from.
func (g *Graph) Points() []PointFeature {
	points := make([]PointFeature, len(g.points))
	copy(points, g.points)
	return points
}

// Lines returns a copy of the line features the graph was built from.
func (g *Graph) Lines() []LineFeature {
	lines := make([]LineFeature, len(g.lines))
	copy(lines, g.lines)
	return lines
}

// Options returns the build options the graph was constructed with.
func (g *Graph) Options() BuildOptions {
	return g.opts
}

// NearestNode returns the node nearest to pt within the given tolerance, or
// nil if no node is that close.
func (g *Graph) NearestNode(pt orb.Point, tolerance float64) *Node {
	if g.qt == nil {
		return nil
	}
	found := g.qt.Find(pt)
	if found == nil {
		return nil
	}
	node := found.(*Node)
	if pointDistance(node.Geom, pt) > tolerance {
		return nil
	}
	return node
}

// otherEnd returns the endpoint of e that is not nodeID. For a self-loop it
// returns nodeID itself.
func (e *Edge) otherEnd(nodeID uint64) uint64 {
	if e.firstNode == nodeID {
		return e.lastNode
	}
	return e.firstNode
}
