package terrain

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// DEM is a digital elevation model on a uniform grid. Cells flagged in NoData
// take no part in flow modelling.
type DEM struct {
	Grid   GridDef
	Elev   []float64
	NoData []bool
}

// NewDEM builds a DEM from in-memory elevations, row-major from the
// northwest corner. nodata may be nil when every cell is valid.
func NewDEM(grid GridDef, elev []float64, nodata []bool) (*DEM, error) {
	if err := grid.validate(); err != nil {
		return nil, err
	}
	if len(elev) < grid.NumCells() {
		return nil, ErrShortGridData
	}
	if nodata == nil {
		nodata = make([]bool, grid.NumCells())
	}
	return &DEM{Grid: grid, Elev: elev, NoData: nodata}, nil
}

// ReadESRIASCII parses an ESRI ASCII grid (.asc): a six-line header of
// ncols, nrows, xllcorner, yllcorner, cellsize and nodata_value followed by
// row-major elevations starting at the northwest corner.
func ReadESRIASCII(r io.Reader) (*DEM, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 16*1024*1024)

	header := make(map[string]float64)
	var values []float64
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		fields := strings.Fields(line)
		// Header lines pair a key with one value; data lines are all numeric.
		if len(fields) == 2 {
			if _, err := strconv.ParseFloat(fields[0], 64); err != nil {
				v, err := strconv.ParseFloat(fields[1], 64)
				if err != nil {
					return nil, fmt.Errorf("header %q: %w", fields[0], err)
				}
				header[strings.ToLower(fields[0])] = v
				continue
			}
		}
		for _, field := range fields {
			v, err := strconv.ParseFloat(field, 64)
			if err != nil {
				return nil, fmt.Errorf("elevation value %q: %w", field, err)
			}
			values = append(values, v)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	for _, key := range []string{"ncols", "nrows", "xllcorner", "yllcorner", "cellsize"} {
		if _, ok := header[key]; !ok {
			return nil, fmt.Errorf("ESRI ASCII header missing %q", key)
		}
	}

	nrows := int(header["nrows"])
	ncols := int(header["ncols"])
	cellsize := header["cellsize"]
	grid := GridDef{
		Eorig:    header["xllcorner"],
		Norig:    header["yllcorner"] + float64(nrows)*cellsize,
		Nrow:     nrows,
		Ncol:     ncols,
		Cellsize: cellsize,
	}
	if err := grid.validate(); err != nil {
		return nil, err
	}
	if len(values) < grid.NumCells() {
		return nil, ErrShortGridData
	}

	nodata := make([]bool, grid.NumCells())
	if nd, ok := header["nodata_value"]; ok {
		for i, v := range values[:grid.NumCells()] {
			if v == nd {
				nodata[i] = true
			}
		}
	}
	return &DEM{Grid: grid, Elev: values[:grid.NumCells()], NoData: nodata}, nil
}

// LoadESRIASCII reads a DEM from an .asc file.
func LoadESRIASCII(path string) (*DEM, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadESRIASCII(f)
}
