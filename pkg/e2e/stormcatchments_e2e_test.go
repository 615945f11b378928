package e2e

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/t-ott/stormcatchments/pkg/delineate"
	"github.com/t-ott/stormcatchments/pkg/gis"
	"github.com/t-ott/stormcatchments/pkg/network"
	"github.com/t-ott/stormcatchments/pkg/terrain"
	"github.com/t-ott/stormcatchments/pkg/topology"
	"github.com/t-ott/stormcatchments/pkg/viz"
)

// ridgeDEM builds the two-hillside terrain used throughout the pipeline
// test: an east slope and a west slope split by a ridge, each concentrating
// into its own channel.
func ridgeDEM(t *testing.T) *terrain.DEM {
	t.Helper()
	grid := terrain.GridDef{Eorig: 0, Norig: 200, Nrow: 20, Ncol: 20, Cellsize: 10}
	elev := make([]float64, grid.NumCells())
	for row := 0; row < grid.Nrow; row++ {
		for col := 0; col < grid.Ncol; col++ {
			distFromRidge := float64(col - 10)
			if distFromRidge < 0 {
				distFromRidge = -distFromRidge
			}
			rowTilt := float64(row - 10)
			if rowTilt < 0 {
				rowTilt = -rowTilt
			}
			elev[grid.CellID(row, col)] = 100 - 5*distFromRidge + 0.5*rowTilt
		}
	}
	dem, err := terrain.NewDEM(grid, elev, nil)
	require.NoError(t, err)
	return dem
}

// TestFullPipeline exercises the complete workflow: terrain conditioning
// with caching, feature snapping, graph construction, direction resolution,
// network-aware delineation, and GeoJSON plus SVG export
func TestFullPipeline(t *testing.T) {
	tmp := t.TempDir()

	t.Log("Step 1: Conditioning terrain with a cold cache...")
	dem := ridgeDEM(t)
	cachePath := filepath.Join(tmp, "ridge.flow")
	flow, err := terrain.LoadOrBuildFlowModel(dem, cachePath)
	require.NoError(t, err)
	require.FileExists(t, cachePath)

	// A warm cache must reproduce the same model.
	cached, err := terrain.LoadOrBuildFlowModel(dem, cachePath)
	require.NoError(t, err)
	assert.Equal(t, flow.Dir, cached.Dir)

	t.Log("Step 2: Building the network from offset structure points...")
	grid := dem.Grid
	sGeom := grid.CellCenter(grid.CellID(10, 17))
	uGeom := grid.CellCenter(grid.CellID(10, 2))
	points := []network.PointFeature{
		// U digitized 4 units off its pipe end, as real data tends to be.
		{ID: 1, Geom: sGeom, Kind: "CB", IsSink: true},
		{ID: 2, Geom: orb.Point{uGeom[0] + 4, uGeom[1]}, Kind: "CB", IsSink: true},
	}
	lines := []network.LineFeature{
		{ID: 10, Geom: orb.LineString{uGeom, sGeom}},
	}

	snapped, report := topology.SnapFeatures(points, lines, 5.0, 0)
	require.Len(t, report.Moved, 1)
	assert.Equal(t, uGeom, snapped[1].Geom)

	graph, err := network.Build(snapped, lines, network.BuildOptions{})
	require.NoError(t, err)
	assert.Empty(t, topology.FindFloatingPoints(graph, network.DefaultSnapTolerance))

	t.Log("Step 3: Resolving pipe directions...")
	resolution, err := graph.ResolveDirections(network.VertexOrder)
	require.NoError(t, err)
	assert.Equal(t, 1, resolution.ResolvedEdges)

	t.Log("Step 4: Delineating the stormcatchment...")
	d, err := delineate.New(graph, flow)
	require.NoError(t, err)

	const accThreshold = 5
	naive, err := d.Catchment(sGeom, accThreshold)
	require.NoError(t, err)
	remote, err := d.Catchment(uGeom, accThreshold)
	require.NoError(t, err)

	sc, err := d.Stormcatchment(sGeom, accThreshold)
	require.NoError(t, err)
	assert.Equal(t, []uint64{1, 2}, sc.ContributingNodes)
	assert.Equal(t, 2, sc.Expansions)

	// The piped-in hillside joins the surface catchment, and nothing is
	// ever subtracted.
	assert.GreaterOrEqual(t, sc.Region.Area(), naive.Area())
	assert.InDelta(t, naive.Area()+remote.Area(), sc.Region.Area(), 1e-9,
		"disjoint hillsides should sum exactly")
	assert.True(t, sc.Region.Contains(uGeom))

	t.Log("Step 5: Exporting results...")
	outPath := filepath.Join(tmp, "stormcatchment.geojson")
	require.NoError(t, gis.WriteCatchmentFile(outPath, sc, gis.ExportOptions{}))

	data, err := os.ReadFile(outPath)
	require.NoError(t, err)
	fc, err := geojson.UnmarshalFeatureCollection(data)
	require.NoError(t, err)
	require.Len(t, fc.Features, 1)
	assert.Equal(t, sc.Region.Area(), fc.Features[0].Properties["area"])
	assert.NotEmpty(t, fc.Features[0].Properties["run_id"])

	var svg bytes.Buffer
	require.NoError(t, viz.RenderSVG(&svg, graph, []orb.MultiPolygon{sc.Region.Boundary()}, viz.RenderOptions{}))
	assert.Contains(t, svg.String(), "<polygon")

	var layout bytes.Buffer
	require.NoError(t, viz.ExportJSON(&layout, graph))
	assert.Contains(t, layout.String(), `"isSink": true`)
}

// TestFullPipeline_EscapingDiagnostics verifies the escape diagnostics on
// the remote hillside: its interception leaves through the pipe
func TestFullPipeline_EscapingDiagnostics(t *testing.T) {
	dem := ridgeDEM(t)
	flow, err := terrain.BuildFlowModel(dem)
	require.NoError(t, err)

	grid := dem.Grid
	sGeom := grid.CellCenter(grid.CellID(10, 17))
	uGeom := grid.CellCenter(grid.CellID(10, 2))
	points := []network.PointFeature{
		{ID: 1, Geom: sGeom, Kind: "CB", IsSink: true},
		{ID: 2, Geom: uGeom, Kind: "CB", IsSink: true},
	}
	lines := []network.LineFeature{
		{ID: 10, Geom: orb.LineString{uGeom, sGeom}},
	}
	graph, err := network.Build(points, lines, network.BuildOptions{})
	require.NoError(t, err)
	_, err = graph.ResolveDirections(network.VertexOrder)
	require.NoError(t, err)

	d, err := delineate.New(graph, flow)
	require.NoError(t, err)

	remote, err := d.Catchment(uGeom, 5)
	require.NoError(t, err)

	escaping, err := d.EscapingSinks(remote)
	require.NoError(t, err)
	require.Len(t, escaping, 1)
	assert.Equal(t, uint64(2), escaping[0].SinkID)
	assert.Equal(t, uint64(1), escaping[0].OutletID)

	// Despite the escape, U's stormcatchment still covers its whole surface
	// catchment.
	sc, err := d.Stormcatchment(uGeom, 5)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, sc.Region.Area(), remote.Area())
}
