package terrain

import (
	"testing"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"

	"github.com/t-ott/stormcatchments/pkg/delineate"
)

func testGrid() GridDef {
	return GridDef{Eorig: 0, Norig: 100, Nrow: 10, Ncol: 10, Cellsize: 10}
}

// TestCellRegion_Basics verifies containment and area
func TestCellRegion_Basics(t *testing.T) {
	grid := testGrid()
	r := NewCellRegion(grid, []int{grid.CellID(0, 0), grid.CellID(0, 1)})

	if r.CellCount() != 2 {
		t.Errorf("CellCount = %d, expected 2", r.CellCount())
	}
	if r.Area() != 200 {
		t.Errorf("Area = %g, expected 200", r.Area())
	}
	if !r.Contains(orb.Point{5, 95}) {
		t.Error("Should contain center of cell (0,0)")
	}
	if r.Contains(orb.Point{25, 95}) {
		t.Error("Should not contain cell (0,2)")
	}
	if r.Contains(orb.Point{-5, 95}) {
		t.Error("Should not contain points off the grid")
	}
}

// TestCellRegion_Union verifies same-grid unions merge exactly without
// double-counting overlap
func TestCellRegion_Union(t *testing.T) {
	grid := testGrid()
	a := NewCellRegion(grid, []int{0, 1, 2})
	b := NewCellRegion(grid, []int{2, 3})

	u := a.Union(b)
	cells, ok := u.(*CellRegion)
	if !ok {
		t.Fatalf("Same-grid union should stay a CellRegion, got %T", u)
	}
	if cells.CellCount() != 4 {
		t.Errorf("Union has %d cells, expected 4", cells.CellCount())
	}
	if cells.Area() != 400 {
		t.Errorf("Union area = %g, expected 400 (overlap counted once)", cells.Area())
	}
	// Inputs are untouched.
	if a.CellCount() != 3 || b.CellCount() != 2 {
		t.Error("Union mutated its inputs")
	}
}

// TestCellRegion_UnionCrossGrid verifies unions across different grids fall
// back to a multi-region
func TestCellRegion_UnionCrossGrid(t *testing.T) {
	a := NewCellRegion(testGrid(), []int{0})
	other := GridDef{Eorig: 1000, Norig: 100, Nrow: 10, Ncol: 10, Cellsize: 5}
	b := NewCellRegion(other, []int{0})

	u := a.Union(b)
	if _, ok := u.(*delineate.MultiRegion); !ok {
		t.Fatalf("Cross-grid union should be a MultiRegion, got %T", u)
	}
	if u.Area() != 125 {
		t.Errorf("Union area = %g, expected 125", u.Area())
	}
}

// TestCellRegion_Boundary_SingleCell verifies a one-cell outline
func TestCellRegion_Boundary_SingleCell(t *testing.T) {
	grid := testGrid()
	r := NewCellRegion(grid, []int{grid.CellID(0, 0)})

	mp := r.Boundary()
	if len(mp) != 1 {
		t.Fatalf("Expected 1 polygon, got %d", len(mp))
	}
	ring := mp[0][0]
	if len(ring) != 5 {
		t.Errorf("Expected closed 4-corner ring, got %d points", len(ring))
	}
	if ring.Orientation() != orb.CCW {
		t.Error("Exterior ring should be counter-clockwise")
	}
	if area := planar.Area(mp); area != 100 {
		t.Errorf("Polygon area = %g, expected 100", area)
	}
}

// TestCellRegion_Boundary_Disjoint verifies separated blocks become
// separate polygons
func TestCellRegion_Boundary_Disjoint(t *testing.T) {
	grid := testGrid()
	r := NewCellRegion(grid, []int{grid.CellID(0, 0), grid.CellID(5, 5)})

	mp := r.Boundary()
	if len(mp) != 2 {
		t.Fatalf("Expected 2 polygons, got %d", len(mp))
	}
	if area := planar.Area(mp); area != 200 {
		t.Errorf("Total area = %g, expected 200", area)
	}
}

// TestCellRegion_Boundary_Hole verifies a ring of cells produces an
// exterior with one hole
func TestCellRegion_Boundary_Hole(t *testing.T) {
	grid := testGrid()
	var cells []int
	for row := 1; row <= 3; row++ {
		for col := 1; col <= 3; col++ {
			if row == 2 && col == 2 {
				continue // the hole
			}
			cells = append(cells, grid.CellID(row, col))
		}
	}
	r := NewCellRegion(grid, cells)

	mp := r.Boundary()
	if len(mp) != 1 {
		t.Fatalf("Expected 1 polygon, got %d", len(mp))
	}
	if len(mp[0]) != 2 {
		t.Fatalf("Expected exterior plus 1 hole, got %d rings", len(mp[0]))
	}
	if mp[0][1].Orientation() != orb.CW {
		t.Error("Hole ring should be clockwise")
	}
	// 8 cells of 100 each.
	if area := planar.Area(mp); area != 800 {
		t.Errorf("Area = %g, expected 800", area)
	}

	// The hole is not part of the region.
	if r.Contains(grid.CellCenter(grid.CellID(2, 2))) {
		t.Error("Hole cell should not be contained")
	}
}
