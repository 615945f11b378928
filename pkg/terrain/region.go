package terrain

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"

	"github.com/t-ott/stormcatchments/pkg/delineate"
)

// CellRegion is a catchment represented exactly as a set of grid cells.
// Containment, area and union are exact set operations; the polygon boundary
// is only materialized on demand for export.
type CellRegion struct {
	grid  GridDef
	cells map[int]struct{}
}

// NewCellRegion builds a region from explicit cell IDs, mainly for tests and
// synthetic fixtures.
func NewCellRegion(grid GridDef, cellIDs []int) *CellRegion {
	cells := make(map[int]struct{}, len(cellIDs))
	for _, cid := range cellIDs {
		cells[cid] = struct{}{}
	}
	return &CellRegion{grid: grid, cells: cells}
}

// CellCount returns the number of cells in the region.
func (r *CellRegion) CellCount() int {
	return len(r.cells)
}

// HasCell reports whether the cell ID belongs to the region.
func (r *CellRegion) HasCell(cid int) bool {
	_, ok := r.cells[cid]
	return ok
}

// Contains reports whether the point falls in one of the region's cells.
func (r *CellRegion) Contains(pt orb.Point) bool {
	cid := r.grid.PointToCell(pt)
	if cid < 0 {
		return false
	}
	_, ok := r.cells[cid]
	return ok
}

// Area returns the summed cell area.
func (r *CellRegion) Area() float64 {
	return float64(len(r.cells)) * r.grid.CellArea()
}

// Union merges two regions. Regions on the same grid merge exactly; anything
// else falls back to a generic multi-region.
func (r *CellRegion) Union(other delineate.Region) delineate.Region {
	if o, ok := other.(*CellRegion); ok && o.grid == r.grid {
		cells := make(map[int]struct{}, len(r.cells)+len(o.cells))
		for cid := range r.cells {
			cells[cid] = struct{}{}
		}
		for cid := range o.cells {
			cells[cid] = struct{}{}
		}
		return &CellRegion{grid: r.grid, cells: cells}
	}
	return delineate.NewMultiRegion(r, other)
}

// Boundary traces the region outline into a multipolygon by stitching the
// exposed cell faces into rings. Counter-clockwise rings are exteriors,
// clockwise rings are holes assigned to the exterior that contains them.
func (r *CellRegion) Boundary() orb.MultiPolygon {
	type segment struct {
		from, to orb.Point
	}

	// Emit one directed segment per exposed face, oriented with the region
	// interior on the left.
	var segments []segment
	cs := r.grid.Cellsize
	for cid := range r.cells {
		row, col := r.grid.RowCol(cid)
		x0 := r.grid.Eorig + float64(col)*cs
		x1 := x0 + cs
		y0 := r.grid.Norig - float64(row)*cs
		y1 := y0 - cs

		if !r.HasCell(r.grid.CellID(row-1, col)) { // exposed top face
			segments = append(segments, segment{orb.Point{x1, y0}, orb.Point{x0, y0}})
		}
		if !r.HasCell(r.grid.CellID(row+1, col)) { // bottom
			segments = append(segments, segment{orb.Point{x0, y1}, orb.Point{x1, y1}})
		}
		if !r.HasCell(r.grid.CellID(row, col-1)) { // left
			segments = append(segments, segment{orb.Point{x0, y0}, orb.Point{x0, y1}})
		}
		if !r.HasCell(r.grid.CellID(row, col+1)) { // right
			segments = append(segments, segment{orb.Point{x1, y1}, orb.Point{x1, y0}})
		}
	}

	// Stitch segments end to start into closed rings. Corner coordinates are
	// computed identically everywhere, so exact float equality is safe here.
	byStart := make(map[orb.Point][]int, len(segments))
	for i, s := range segments {
		byStart[s.from] = append(byStart[s.from], i)
	}
	used := make([]bool, len(segments))

	var rings []orb.Ring
	for i := range segments {
		if used[i] {
			continue
		}
		ring := orb.Ring{segments[i].from}
		current := i
		for {
			used[current] = true
			end := segments[current].to
			ring = append(ring, end)
			if end == ring[0] {
				break
			}
			next := -1
			for _, cand := range byStart[end] {
				if !used[cand] {
					next = cand
					break
				}
			}
			if next < 0 {
				break // should not happen on a well-formed face set
			}
			current = next
		}
		rings = append(rings, ring)
	}

	var exteriors []orb.Polygon
	var holes []orb.Ring
	for _, ring := range rings {
		if ring.Orientation() == orb.CCW {
			exteriors = append(exteriors, orb.Polygon{ring})
		} else {
			holes = append(holes, ring)
		}
	}
	for _, hole := range holes {
		for i := range exteriors {
			if planar.RingContains(exteriors[i][0], hole[0]) {
				exteriors[i] = append(exteriors[i], hole)
				break
			}
		}
	}
	return orb.MultiPolygon(exteriors)
}
