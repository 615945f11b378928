package network

import (
	"fmt"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
	"github.com/paulmach/orb/quadtree"
)

// DefaultSnapTolerance is the endpoint snapping tolerance in map units.
// It matches typical GIS vertex precision for projected (metric) data.
const DefaultSnapTolerance = 0.001

// PointFeature is one input stormwater structure. Either the IsSink/IsSource
// flags are set explicitly, or Kind carries a categorical type that a
// Classifier maps onto them.
type PointFeature struct {
	ID       uint64
	Geom     orb.Point
	Kind     string
	IsSink   bool
	IsSource bool
}

// LineFeature is one input pipe segment with an ordered vertex sequence.
type LineFeature struct {
	ID   uint64
	Geom orb.LineString
}

// Classifier maps categorical structure kinds onto sink/source roles, for
// datasets that carry a type column instead of explicit boolean attributes.
type Classifier struct {
	SinkKinds   []string
	SourceKinds []string
}

func (c *Classifier) isSink(kind string) bool {
	for _, k := range c.SinkKinds {
		if k == kind {
			return true
		}
	}
	return false
}

func (c *Classifier) isSource(kind string) bool {
	for _, k := range c.SourceKinds {
		if k == kind {
			return true
		}
	}
	return false
}

// BuildOptions configures graph construction.
type BuildOptions struct {
	// SnapTolerance is the maximum distance between a line endpoint and the
	// node it resolves to. Zero means DefaultSnapTolerance.
	SnapTolerance float64

	// Classifier, when non-nil, derives IsSink/IsSource from each point's
	// Kind. When nil the explicit flags on the features are used as-is.
	Classifier *Classifier
}

// Build constructs a stormwater network graph from point and line features.
// Every line endpoint must coincide with exactly one node within the snapping
// tolerance; any endpoint that matches no node fails the build with a
// *TopologyError enumerating the unmatched endpoints. Nodes that touch no
// line are permitted, the topology validator reports them as floating.
func Build(points []PointFeature, lines []LineFeature, opts BuildOptions) (*Graph, error) {
	if len(points) == 0 {
		return nil, ErrNoPoints
	}
	tolerance := opts.SnapTolerance
	if tolerance == 0 {
		tolerance = DefaultSnapTolerance
	}
	if opts.Classifier != nil {
		c := opts.Classifier
		if len(c.SinkKinds) == 0 || len(c.SourceKinds) == 0 {
			return nil, ErrMissingSinkSets
		}
	}

	g := &Graph{
		nodes:    make(map[uint64]*Node, len(points)),
		edges:    make(map[uint64]*Edge, len(lines)),
		outgoing: make(map[uint64][]uint64),
		incoming: make(map[uint64][]uint64),
		touching: make(map[uint64][]uint64),
		points:   append([]PointFeature(nil), points...),
		lines:    append([]LineFeature(nil), lines...),
		opts:     opts,
	}

	for _, pt := range points {
		if _, exists := g.nodes[pt.ID]; exists {
			return nil, fmt.Errorf("point %d: %w", pt.ID, ErrDuplicateID)
		}
		node := &Node{
			ID:       pt.ID,
			Geom:     pt.Geom,
			Kind:     pt.Kind,
			IsSink:   pt.IsSink,
			IsSource: pt.IsSource,
		}
		if opts.Classifier != nil {
			node.IsSink = opts.Classifier.isSink(pt.Kind)
			node.IsSource = opts.Classifier.isSource(pt.Kind)
		}
		g.nodes[pt.ID] = node
	}

	g.qt = quadtree.New(nodeBound(g.nodes, tolerance))
	for _, n := range g.nodes {
		if err := g.qt.Add(n); err != nil {
			return nil, fmt.Errorf("index node %d: %w", n.ID, err)
		}
	}

	var unmatched []UnmatchedEndpoint
	for _, line := range lines {
		if _, exists := g.edges[line.ID]; exists {
			return nil, fmt.Errorf("line %d: %w", line.ID, ErrDuplicateID)
		}
		if len(line.Geom) < 2 {
			return nil, fmt.Errorf("line %d: %w", line.ID, ErrDegenerateLine)
		}

		first := line.Geom[0]
		last := line.Geom[len(line.Geom)-1]
		firstNode := g.NearestNode(first, tolerance)
		lastNode := g.NearestNode(last, tolerance)
		if firstNode == nil {
			unmatched = append(unmatched, UnmatchedEndpoint{EdgeID: line.ID, Last: false, Coord: first})
		}
		if lastNode == nil {
			unmatched = append(unmatched, UnmatchedEndpoint{EdgeID: line.ID, Last: true, Coord: last})
		}
		if firstNode == nil || lastNode == nil {
			continue
		}

		edge := &Edge{
			ID:         line.ID,
			Geom:       line.Geom,
			FromNodeID: firstNode.ID,
			ToNodeID:   lastNode.ID,
			firstNode:  firstNode.ID,
			lastNode:   lastNode.ID,
		}
		g.edges[line.ID] = edge
		g.touching[firstNode.ID] = append(g.touching[firstNode.ID], line.ID)
		if lastNode.ID != firstNode.ID {
			g.touching[lastNode.ID] = append(g.touching[lastNode.ID], line.ID)
		}
	}

	if len(unmatched) > 0 {
		return nil, &TopologyError{Unmatched: unmatched, Tolerance: tolerance}
	}
	return g, nil
}

// nodeBound computes a quadtree bound covering every node, padded by the
// snapping tolerance so endpoint lookups near the hull still resolve.
func nodeBound(nodes map[uint64]*Node, pad float64) orb.Bound {
	var bound orb.Bound
	first := true
	for _, n := range nodes {
		if first {
			bound = orb.Bound{Min: n.Geom, Max: n.Geom}
			first = false
			continue
		}
		bound = bound.Extend(n.Geom)
	}
	bound.Min[0] -= pad
	bound.Min[1] -= pad
	bound.Max[0] += pad
	bound.Max[1] += pad
	return bound
}

func pointDistance(a, b orb.Point) float64 {
	return planar.Distance(a, b)
}
