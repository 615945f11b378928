// Package terrain implements the surface watershed backend: a uniform-grid
// elevation model conditioned into a D8 flow model that delineates the cells
// draining to a pour point. It satisfies the delineate.TerrainModel interface
// but has no knowledge of the stormwater network.
package terrain

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/paulmach/orb"
)

var (
	ErrRotatedGrid   = errors.New("rotated grids are not supported")
	ErrOutsideGrid   = errors.New("point lies outside the grid")
	ErrNoDrainage    = errors.New("no cell exceeds the accumulation threshold")
	ErrGridMismatch  = errors.New("grid definitions do not match")
	ErrShortGridData = errors.New("grid data shorter than rows x cols")
)

// GridDef defines a uniform, unrotated grid: an upper-left origin, row and
// column counts, and a square cell size. Cells are identified by
// row*Ncol+col, rows counting down from the northern edge.
type GridDef struct {
	Eorig    float64 // easting of the upper-left corner
	Norig    float64 // northing of the upper-left corner
	Rotation float64 // must be zero
	Nrow     int
	Ncol     int
	Cellsize float64
}

// ParseGridDef reads the six-value text grid definition format: origin
// easting, origin northing, rotation, rows, columns, cellsize, whitespace
// separated.
func ParseGridDef(r io.Reader) (GridDef, error) {
	var gd GridDef
	scanner := bufio.NewScanner(r)
	scanner.Split(bufio.ScanWords)

	vals := make([]float64, 0, 6)
	for scanner.Scan() && len(vals) < 6 {
		v, err := strconv.ParseFloat(scanner.Text(), 64)
		if err != nil {
			return gd, fmt.Errorf("parse grid definition: %w", err)
		}
		vals = append(vals, v)
	}
	if err := scanner.Err(); err != nil {
		return gd, err
	}
	if len(vals) < 6 {
		return gd, fmt.Errorf("grid definition needs 6 values, got %d", len(vals))
	}

	gd = GridDef{
		Eorig:    vals[0],
		Norig:    vals[1],
		Rotation: vals[2],
		Nrow:     int(vals[3]),
		Ncol:     int(vals[4]),
		Cellsize: vals[5],
	}
	return gd, gd.validate()
}

// LoadGridDef reads a grid definition from a .gdef file.
func LoadGridDef(path string) (GridDef, error) {
	f, err := os.Open(path)
	if err != nil {
		return GridDef{}, err
	}
	defer f.Close()
	return ParseGridDef(f)
}

func (gd GridDef) validate() error {
	if gd.Rotation != 0 {
		return ErrRotatedGrid
	}
	if gd.Nrow <= 0 || gd.Ncol <= 0 {
		return fmt.Errorf("grid has non-positive dimensions %dx%d", gd.Nrow, gd.Ncol)
	}
	if gd.Cellsize <= 0 {
		return fmt.Errorf("grid has non-positive cellsize %g", gd.Cellsize)
	}
	return nil
}

// NumCells returns the total cell count.
func (gd GridDef) NumCells() int {
	return gd.Nrow * gd.Ncol
}

// CellID converts a row/column pair to a cell ID, or -1 if out of range.
func (gd GridDef) CellID(row, col int) int {
	if row < 0 || row >= gd.Nrow || col < 0 || col >= gd.Ncol {
		return -1
	}
	return row*gd.Ncol + col
}

// RowCol converts a cell ID back to its row/column pair.
func (gd GridDef) RowCol(cid int) (row, col int) {
	return cid / gd.Ncol, cid % gd.Ncol
}

// CellCenter returns the coordinate of the cell's center.
func (gd GridDef) CellCenter(cid int) orb.Point {
	row, col := gd.RowCol(cid)
	return orb.Point{
		gd.Eorig + (float64(col)+0.5)*gd.Cellsize,
		gd.Norig - (float64(row)+0.5)*gd.Cellsize,
	}
}

// PointToCell returns the ID of the cell containing pt, or -1 if pt lies
// outside the grid.
func (gd GridDef) PointToCell(pt orb.Point) int {
	col := int((pt[0] - gd.Eorig) / gd.Cellsize)
	row := int((gd.Norig - pt[1]) / gd.Cellsize)
	if pt[0] < gd.Eorig || pt[1] > gd.Norig {
		return -1
	}
	return gd.CellID(row, col)
}

// CellArea returns the area of one cell.
func (gd GridDef) CellArea() float64 {
	return gd.Cellsize * gd.Cellsize
}
