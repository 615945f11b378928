package delineate

import (
	"github.com/paulmach/orb"
)

// Region is an immutable geometric area. Implementations come from the
// terrain backend; the delineator only ever asks for containment, area, union
// and an exportable boundary, so the spatial representation can vary freely.
type Region interface {
	// Contains reports whether the point lies inside the region.
	Contains(pt orb.Point) bool
	// Area returns the region's area in squared map units.
	Area() float64
	// Union returns a new region covering both this region and other.
	// Neither input is mutated.
	Union(other Region) Region
	// Boundary returns the region outline as a multipolygon.
	Boundary() orb.MultiPolygon
}

// TerrainModel delineates pure-surface watersheds from elevation data. It
// must be deterministic for fixed grid and threshold inputs. Implementations
// do any raster I/O before or outside delineation calls; the delineator
// itself is CPU-bound and synchronous.
type TerrainModel interface {
	// SurfaceCatchment returns the watershed draining to the pour point,
	// using terrain alone and ignoring subsurface piping. accThreshold is the
	// minimum flow accumulation used when snapping the pour point onto the
	// drainage network.
	SurfaceCatchment(pour orb.Point, accThreshold int) (Region, error)
}

// MultiRegion is the union of several regions from possibly different
// backends. Area sums the parts, which is exact only when the parts are
// disjoint; backends that can merge exactly (such as cell-backed regions on
// a shared grid) should do so in their own Union instead of falling back to
// a MultiRegion.
type MultiRegion struct {
	parts []Region
}

// NewMultiRegion combines regions into a single Region.
func NewMultiRegion(parts ...Region) *MultiRegion {
	flattened := make([]Region, 0, len(parts))
	for _, p := range parts {
		if mr, ok := p.(*MultiRegion); ok {
			flattened = append(flattened, mr.parts...)
			continue
		}
		flattened = append(flattened, p)
	}
	return &MultiRegion{parts: flattened}
}

// Contains reports whether any part contains the point.
func (m *MultiRegion) Contains(pt orb.Point) bool {
	for _, p := range m.parts {
		if p.Contains(pt) {
			return true
		}
	}
	return false
}

// Area returns the summed area of the parts.
func (m *MultiRegion) Area() float64 {
	var total float64
	for _, p := range m.parts {
		total += p.Area()
	}
	return total
}

// Union returns a new MultiRegion additionally covering other.
func (m *MultiRegion) Union(other Region) Region {
	parts := make([]Region, len(m.parts), len(m.parts)+1)
	copy(parts, m.parts)
	return NewMultiRegion(append(parts, other)...)
}

// Boundary concatenates the boundaries of the parts.
func (m *MultiRegion) Boundary() orb.MultiPolygon {
	var mp orb.MultiPolygon
	for _, p := range m.parts {
		mp = append(mp, p.Boundary()...)
	}
	return mp
}
