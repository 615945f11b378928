// Package topology detects structural defects in stormwater network input
// that make direction resolution unreliable: points that are not snapped to
// any pipe vertex, and subnetworks with more than one outlet. Defects are
// reported as data, never thrown; only a rebuild against corrected geometry
// can fail.
package topology

import (
	"sort"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
	"github.com/paulmach/orb/quadtree"

	"github.com/t-ott/stormcatchments/pkg/network"
)

// SnappedPoint records one point relocation performed by SnapPoints.
type SnappedPoint struct {
	NodeID   uint64
	From     orb.Point
	To       orb.Point
	Distance float64
}

// SnapReport summarizes a snapping pass. Unsnapped lists floating points for
// which no line vertex lay within the tolerance; they remain floating.
type SnapReport struct {
	Moved     []SnappedPoint
	Unsnapped []uint64
}

// MultiOutletComponent is a connected component containing more than one flow
// source. Direction inference by source-tracing is ambiguous there, and
// delineation results touching it are not guaranteed correct.
type MultiOutletComponent struct {
	Nodes   []uint64
	Sources []uint64
}

// FindFloatingPoints returns the IDs of nodes whose geometry coincides with
// no line vertex within the tolerance, sorted. Floating points cannot
// participate in edges and signal bad input.
func FindFloatingPoints(g *network.Graph, tolerance float64) []uint64 {
	index := newVertexIndex(g.Lines())
	var floating []uint64
	for _, n := range g.Nodes() {
		if _, ok := index.nearest(n.Geom, tolerance); !ok {
			floating = append(floating, n.ID)
		}
	}
	sort.Slice(floating, func(i, j int) bool { return floating[i] < floating[j] })
	return floating
}

// SnapPoints returns a new graph in which every floating point has been
// relocated to its nearest line vertex within the tolerance, with edges
// rebuilt against the corrected geometry. The input graph is not mutated.
// Floating points beyond the tolerance stay where they are and are listed in
// the report.
func SnapPoints(g *network.Graph, tolerance float64) (*network.Graph, *SnapReport, error) {
	points, report := SnapFeatures(g.Points(), g.Lines(), tolerance, g.Options().SnapTolerance)
	snapped, err := network.Build(points, g.Lines(), g.Options())
	if err != nil {
		return nil, nil, err
	}
	return snapped, report, nil
}

// SnapFeatures relocates floating point features to their nearest line vertex
// within tolerance, returning corrected copies. coincidence is the distance
// at which a point already counts as on a vertex; zero means the network
// default. Useful before a first Build on raw data whose endpoints would not
// otherwise resolve.
func SnapFeatures(points []network.PointFeature, lines []network.LineFeature, tolerance, coincidence float64) ([]network.PointFeature, *SnapReport) {
	if coincidence == 0 {
		coincidence = network.DefaultSnapTolerance
	}
	index := newVertexIndex(lines)
	report := &SnapReport{}

	out := make([]network.PointFeature, len(points))
	copy(out, points)
	for i := range out {
		vertex, ok := index.nearest(out[i].Geom, coincidence)
		if ok {
			continue // already on a vertex
		}
		vertex, ok = index.nearest(out[i].Geom, tolerance)
		if !ok {
			report.Unsnapped = append(report.Unsnapped, out[i].ID)
			continue
		}
		report.Moved = append(report.Moved, SnappedPoint{
			NodeID:   out[i].ID,
			From:     out[i].Geom,
			To:       vertex,
			Distance: planar.Distance(out[i].Geom, vertex),
		})
		out[i].Geom = vertex
	}
	return out, report
}

// FindMultiOutlet returns every connected component containing more than one
// flow source, ordered by lowest node ID.
func FindMultiOutlet(g *network.Graph) []MultiOutletComponent {
	var flagged []MultiOutletComponent
	for _, component := range g.Components() {
		var sources []uint64
		for _, id := range component {
			if g.Node(id).IsSource {
				sources = append(sources, id)
			}
		}
		if len(sources) > 1 {
			flagged = append(flagged, MultiOutletComponent{
				Nodes:   component,
				Sources: sources,
			})
		}
	}
	return flagged
}

// vertexIndex answers nearest-vertex queries over every vertex of every line.
type vertexIndex struct {
	qt *quadtree.Quadtree
}

func newVertexIndex(lines []network.LineFeature) *vertexIndex {
	var bound orb.Bound
	first := true
	for _, line := range lines {
		for _, v := range line.Geom {
			if first {
				bound = orb.Bound{Min: v, Max: v}
				first = false
				continue
			}
			bound = bound.Extend(v)
		}
	}
	if first {
		return &vertexIndex{}
	}

	qt := quadtree.New(bound)
	for _, line := range lines {
		for _, v := range line.Geom {
			qt.Add(v)
		}
	}
	return &vertexIndex{qt: qt}
}

// nearest returns the closest line vertex within tolerance of pt.
func (vi *vertexIndex) nearest(pt orb.Point, tolerance float64) (orb.Point, bool) {
	if vi.qt == nil {
		return orb.Point{}, false
	}
	found := vi.qt.Find(pt)
	if found == nil {
		return orb.Point{}, false
	}
	vertex := found.Point()
	if planar.Distance(vertex, pt) > tolerance {
		return orb.Point{}, false
	}
	return vertex, true
}
