package terrain

import (
	"errors"
	"testing"

	"github.com/paulmach/orb"
)

// tiltedPlane is a 3x3 DEM sloping east; every cell drains to its eastern
// neighbor and off the eastern edge.
func tiltedPlane(t *testing.T) *DEM {
	t.Helper()
	grid := GridDef{Eorig: 0, Norig: 30, Nrow: 3, Ncol: 3, Cellsize: 10}
	elev := []float64{
		10, 9, 8,
		10, 9, 8,
		10, 9, 8,
	}
	dem, err := NewDEM(grid, elev, nil)
	if err != nil {
		t.Fatalf("NewDEM failed: %v", err)
	}
	return dem
}

// valleyDEM is a 5x5 DEM with a west-east valley along the middle row;
// everything drains into the valley and out the eastern edge.
func valleyDEM(t *testing.T) *DEM {
	t.Helper()
	grid := GridDef{Eorig: 0, Norig: 50, Nrow: 5, Ncol: 5, Cellsize: 10}
	elev := make([]float64, grid.NumCells())
	for row := 0; row < grid.Nrow; row++ {
		for col := 0; col < grid.Ncol; col++ {
			ridge := float64(row - 2)
			if ridge < 0 {
				ridge = -ridge
			}
			elev[grid.CellID(row, col)] = ridge*10 + float64(4-col)
		}
	}
	dem, err := NewDEM(grid, elev, nil)
	if err != nil {
		t.Fatalf("NewDEM failed: %v", err)
	}
	return dem
}

// TestBuildFlowModel_Directions verifies steepest-descent receivers on a
// uniform slope
func TestBuildFlowModel_Directions(t *testing.T) {
	fm, err := BuildFlowModel(tiltedPlane(t))
	if err != nil {
		t.Fatalf("BuildFlowModel failed: %v", err)
	}

	grid := fm.Grid
	for row := 0; row < 3; row++ {
		for col := 0; col < 2; col++ {
			cid := grid.CellID(row, col)
			if want := int32(grid.CellID(row, col+1)); fm.Dir[cid] != want {
				t.Errorf("Cell (%d,%d) drains to %d, expected %d", row, col, fm.Dir[cid], want)
			}
		}
		// Eastern edge drains off the grid.
		cid := grid.CellID(row, 2)
		if fm.Dir[cid] != dirOffGrid {
			t.Errorf("Cell (%d,2) drains to %d, expected off-grid", row, fm.Dir[cid])
		}
	}
}

// TestBuildFlowModel_Accumulation verifies upslope counts grow downslope
func TestBuildFlowModel_Accumulation(t *testing.T) {
	fm, err := BuildFlowModel(tiltedPlane(t))
	if err != nil {
		t.Fatalf("BuildFlowModel failed: %v", err)
	}

	grid := fm.Grid
	for row := 0; row < 3; row++ {
		for col := 0; col < 3; col++ {
			cid := grid.CellID(row, col)
			if want := int32(col + 1); fm.Acc[cid] != want {
				t.Errorf("Acc(%d,%d) = %d, expected %d", row, col, fm.Acc[cid], want)
			}
		}
	}
}

// TestBuildFlowModel_PitFilling verifies an interior depression is raised to
// its spill elevation and drains
func TestBuildFlowModel_PitFilling(t *testing.T) {
	grid := GridDef{Eorig: 0, Norig: 30, Nrow: 3, Ncol: 3, Cellsize: 10}
	elev := []float64{
		5, 5, 5,
		5, 1, 5,
		5, 5, 5,
	}
	dem, err := NewDEM(grid, elev, nil)
	if err != nil {
		t.Fatalf("NewDEM failed: %v", err)
	}
	fm, err := BuildFlowModel(dem)
	if err != nil {
		t.Fatalf("BuildFlowModel failed: %v", err)
	}

	center := grid.CellID(1, 1)
	if fm.Dir[center] < 0 {
		t.Errorf("Filled pit should drain to a neighbor, got %d", fm.Dir[center])
	}
}

// TestBuildFlowModel_NoData verifies nodata cells take no part in flow
func TestBuildFlowModel_NoData(t *testing.T) {
	grid := GridDef{Eorig: 0, Norig: 30, Nrow: 3, Ncol: 3, Cellsize: 10}
	elev := []float64{
		10, 9, 8,
		10, -9999, 8,
		10, 9, 8,
	}
	nodata := make([]bool, grid.NumCells())
	nodata[grid.CellID(1, 1)] = true
	dem, err := NewDEM(grid, elev, nodata)
	if err != nil {
		t.Fatalf("NewDEM failed: %v", err)
	}
	fm, err := BuildFlowModel(dem)
	if err != nil {
		t.Fatalf("BuildFlowModel failed: %v", err)
	}

	center := grid.CellID(1, 1)
	if fm.Dir[center] != dirNoData {
		t.Errorf("NoData cell Dir = %d, expected nodata marker", fm.Dir[center])
	}
	if fm.Acc[center] != 0 {
		t.Errorf("NoData cell Acc = %d, expected 0", fm.Acc[center])
	}
	// Neighbors never drain into the nodata cell.
	for cid, recv := range fm.Dir {
		if recv == int32(center) {
			t.Errorf("Cell %d drains into nodata cell", cid)
		}
	}
}

// TestSnapToAccumulation verifies pour points snap to the nearest cell on
// the modelled drainage
func TestSnapToAccumulation(t *testing.T) {
	fm, err := BuildFlowModel(valleyDEM(t))
	if err != nil {
		t.Fatalf("BuildFlowModel failed: %v", err)
	}
	grid := fm.Grid

	// A point on the northern slope snaps down to the valley row.
	pour := orb.Point{25, 35} // cell (1, 2)
	cid, err := fm.SnapToAccumulation(pour, 10)
	if err != nil {
		t.Fatalf("SnapToAccumulation failed: %v", err)
	}
	if want := grid.CellID(2, 2); cid != want {
		t.Errorf("Snapped to cell %d, expected %d", cid, want)
	}

	if _, err := fm.SnapToAccumulation(orb.Point{-100, -100}, 10); !errors.Is(err, ErrOutsideGrid) {
		t.Errorf("Expected ErrOutsideGrid, got %v", err)
	}
	if _, err := fm.SnapToAccumulation(pour, 1000); !errors.Is(err, ErrNoDrainage) {
		t.Errorf("Expected ErrNoDrainage, got %v", err)
	}
}

// TestSurfaceCatchment verifies the upslope climb returns exactly the cells
// draining through the snapped pour point
func TestSurfaceCatchment(t *testing.T) {
	fm, err := BuildFlowModel(valleyDEM(t))
	if err != nil {
		t.Fatalf("BuildFlowModel failed: %v", err)
	}
	grid := fm.Grid

	// Valley accumulation grows eastward by one column of five cells:
	// Acc(2,c) = 5(c+1). Threshold 10 snaps onto column 2 or further east.
	region, err := fm.SurfaceCatchment(grid.CellCenter(grid.CellID(2, 2)), 10)
	if err != nil {
		t.Fatalf("SurfaceCatchment failed: %v", err)
	}
	cells := region.(*CellRegion)
	if cells.CellCount() != 15 {
		t.Errorf("Catchment has %d cells, expected 15 (columns 0-2)", cells.CellCount())
	}
	if cells.Area() != 1500 {
		t.Errorf("Catchment area = %g, expected 1500", cells.Area())
	}
	if !cells.Contains(grid.CellCenter(grid.CellID(0, 0))) {
		t.Error("Catchment should contain the northwest corner")
	}
	if cells.Contains(grid.CellCenter(grid.CellID(0, 4))) {
		t.Error("Catchment should not contain column 4")
	}

	// At the valley mouth the whole grid contributes.
	region, err = fm.SurfaceCatchment(grid.CellCenter(grid.CellID(2, 4)), 20)
	if err != nil {
		t.Fatalf("SurfaceCatchment failed: %v", err)
	}
	if got := region.(*CellRegion).CellCount(); got != 25 {
		t.Errorf("Catchment has %d cells, expected all 25", got)
	}
}
