package terrain

import (
	"container/heap"
	"container/list"
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"

	"github.com/t-ott/stormcatchments/pkg/delineate"
)

// Receiver codes for cells that drain nowhere in-grid.
const (
	dirOffGrid = -1 // drains off the grid edge or into nodata
	dirNoData  = -2
)

// fillEpsilon is the minimum head difference imposed while filling pits, so
// flats left by the fill still drain.
const fillEpsilon = 1e-5

// FlowModel is a conditioned D8 flow model: per cell, the receiver it drains
// to and the number of upslope cells draining through it. Once built it is
// read-only, so concurrent delineations need no coordination.
type FlowModel struct {
	Grid GridDef
	Dir  []int32 // receiver cell ID, dirOffGrid or dirNoData
	Acc  []int32 // upslope cell count, including the cell itself

	donors [][]int32
}

// neighbor offsets, cardinal directions first so ties in the steepest
// descent scan resolve to them
var neighborOffsets = [8][2]int{
	{-1, 0}, {0, 1}, {1, 0}, {0, -1},
	{-1, 1}, {1, 1}, {1, -1}, {-1, -1},
}

// BuildFlowModel conditions the DEM (priority-flood pit filling with an
// epsilon gradient) and derives D8 steepest-descent flow directions and flow
// accumulation.
func BuildFlowModel(dem *DEM) (*FlowModel, error) {
	if err := dem.Grid.validate(); err != nil {
		return nil, err
	}
	grid := dem.Grid
	n := grid.NumCells()

	filled := fillPits(dem)

	fm := &FlowModel{
		Grid: grid,
		Dir:  make([]int32, n),
		Acc:  make([]int32, n),
	}

	diag := grid.Cellsize * math.Sqrt2
	for cid := 0; cid < n; cid++ {
		if dem.NoData[cid] {
			fm.Dir[cid] = dirNoData
			continue
		}
		row, col := grid.RowCol(cid)
		best := int32(dirOffGrid)
		bestDrop := 0.0
		for i, off := range neighborOffsets {
			ncid := grid.CellID(row+off[0], col+off[1])
			if ncid < 0 || dem.NoData[ncid] {
				continue
			}
			dist := grid.Cellsize
			if i >= 4 {
				dist = diag
			}
			drop := (filled[cid] - filled[ncid]) / dist
			if drop > bestDrop {
				bestDrop = drop
				best = int32(ncid)
			}
		}
		fm.Dir[cid] = best
	}

	fm.accumulate()
	fm.buildDonors()
	return fm, nil
}

// fillPits raises every interior depression to its spill elevation using a
// priority flood from the grid boundary, adding fillEpsilon per step so the
// filled surface keeps a drainable gradient.
func fillPits(dem *DEM) []float64 {
	grid := dem.Grid
	n := grid.NumCells()
	filled := make([]float64, n)
	copy(filled, dem.Elev)

	visited := make([]bool, n)
	pq := &cellHeap{}
	heap.Init(pq)

	// Seed with every cell that can drain without crossing another valid
	// cell: grid-edge cells and cells bordering nodata.
	for cid := 0; cid < n; cid++ {
		if dem.NoData[cid] {
			visited[cid] = true
			continue
		}
		row, col := grid.RowCol(cid)
		seed := row == 0 || row == grid.Nrow-1 || col == 0 || col == grid.Ncol-1
		if !seed {
			for _, off := range neighborOffsets {
				ncid := grid.CellID(row+off[0], col+off[1])
				if ncid >= 0 && dem.NoData[ncid] {
					seed = true
					break
				}
			}
		}
		if seed {
			visited[cid] = true
			heap.Push(pq, cellElev{cid: cid, elev: filled[cid]})
		}
	}

	for pq.Len() > 0 {
		c := heap.Pop(pq).(cellElev)
		row, col := grid.RowCol(c.cid)
		for _, off := range neighborOffsets {
			ncid := grid.CellID(row+off[0], col+off[1])
			if ncid < 0 || visited[ncid] {
				continue
			}
			visited[ncid] = true
			if filled[ncid] < c.elev+fillEpsilon {
				filled[ncid] = c.elev + fillEpsilon
			}
			heap.Push(pq, cellElev{cid: ncid, elev: filled[ncid]})
		}
	}
	return filled
}

// accumulate computes upslope cell counts in topological order over the
// receiver graph.
func (fm *FlowModel) accumulate() {
	n := fm.Grid.NumCells()
	indegree := make([]int32, n)
	for cid := 0; cid < n; cid++ {
		if fm.Dir[cid] >= 0 {
			indegree[fm.Dir[cid]]++
		}
	}

	queue := list.New()
	for cid := 0; cid < n; cid++ {
		if fm.Dir[cid] == dirNoData {
			continue
		}
		fm.Acc[cid] = 1
		if indegree[cid] == 0 {
			queue.PushBack(cid)
		}
	}

	for queue.Len() > 0 {
		cid := queue.Remove(queue.Front()).(int)
		recv := fm.Dir[cid]
		if recv < 0 {
			continue
		}
		fm.Acc[recv] += fm.Acc[cid]
		indegree[recv]--
		if indegree[recv] == 0 {
			queue.PushBack(int(recv))
		}
	}
}

// buildDonors inverts the receiver mapping for upslope climbs.
func (fm *FlowModel) buildDonors() {
	fm.donors = make([][]int32, fm.Grid.NumCells())
	for cid := 0; cid < fm.Grid.NumCells(); cid++ {
		recv := fm.Dir[cid]
		if recv >= 0 {
			fm.donors[recv] = append(fm.donors[recv], int32(cid))
		}
	}
}

// SnapToAccumulation returns the ID of the cell nearest to pt whose flow
// accumulation exceeds the threshold. Pour points rarely land exactly on the
// modelled drainage line, so delineation snaps them onto it first.
func (fm *FlowModel) SnapToAccumulation(pt orb.Point, accThreshold int) (int, error) {
	if fm.Grid.PointToCell(pt) < 0 {
		return 0, ErrOutsideGrid
	}
	best := -1
	bestDist := math.Inf(1)
	for cid := 0; cid < fm.Grid.NumCells(); cid++ {
		if fm.Dir[cid] == dirNoData || int(fm.Acc[cid]) <= accThreshold {
			continue
		}
		d := planar.Distance(fm.Grid.CellCenter(cid), pt)
		if d < bestDist {
			bestDist = d
			best = cid
		}
	}
	if best < 0 {
		return 0, ErrNoDrainage
	}
	return best, nil
}

// SurfaceCatchment delineates the cells draining to the pour point: the pour
// point is snapped to the nearest cell exceeding the accumulation threshold,
// then the flow model is climbed upslope from there. Implements
// delineate.TerrainModel.
func (fm *FlowModel) SurfaceCatchment(pour orb.Point, accThreshold int) (delineate.Region, error) {
	start, err := fm.SnapToAccumulation(pour, accThreshold)
	if err != nil {
		return nil, err
	}

	cells := make(map[int]struct{})
	queue := list.New()
	queue.PushBack(start)
	cells[start] = struct{}{}
	for queue.Len() > 0 {
		cid := queue.Remove(queue.Front()).(int)
		for _, donor := range fm.donors[cid] {
			if _, ok := cells[int(donor)]; !ok {
				cells[int(donor)] = struct{}{}
				queue.PushBack(int(donor))
			}
		}
	}

	return &CellRegion{grid: fm.Grid, cells: cells}, nil
}

// cellHeap is a min-heap of cells ordered by elevation.
type cellElev struct {
	cid  int
	elev float64
}

type cellHeap []cellElev

func (h cellHeap) Len() int { return len(h) }
func (h cellHeap) Less(i, j int) bool {
	if h[i].elev != h[j].elev {
		return h[i].elev < h[j].elev
	}
	return h[i].cid < h[j].cid
}
func (h cellHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *cellHeap) Push(x any) {
	*h = append(*h, x.(cellElev))
}

func (h *cellHeap) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}
