package gis

import (
	"bytes"
	"testing"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/t-ott/stormcatchments/pkg/delineate"
	"github.com/t-ott/stormcatchments/pkg/terrain"
)

func testStormcatchment() *delineate.Stormcatchment {
	grid := terrain.GridDef{Eorig: 500000, Norig: 4650000, Nrow: 4, Ncol: 4, Cellsize: 10}
	region := terrain.NewCellRegion(grid, []int{0, 1, 4, 5})
	return &delineate.Stormcatchment{
		PourPoint:         orb.Point{500005, 4649995},
		Region:            region,
		ContributingNodes: []uint64{3, 7},
		Expansions:        2,
	}
}

// TestCatchmentFeature verifies the exported properties and geometry
func TestCatchmentFeature(t *testing.T) {
	sc := testStormcatchment()
	f, err := CatchmentFeature(sc, ExportOptions{})
	if err != nil {
		t.Fatalf("CatchmentFeature failed: %v", err)
	}

	if f.Properties["area"] != 400.0 {
		t.Errorf("area = %v, expected 400", f.Properties["area"])
	}
	if f.Properties["expansions"] != 2 {
		t.Errorf("expansions = %v, expected 2", f.Properties["expansions"])
	}
	if runID, _ := f.Properties["run_id"].(string); runID == "" {
		t.Error("run_id should be a non-empty UUID")
	}
	mp, ok := f.Geometry.(orb.MultiPolygon)
	if !ok || len(mp) != 1 {
		t.Fatalf("Geometry = %T with %d polygons, expected 1 multipolygon", f.Geometry, len(mp))
	}
	// Without a UTM zone the projected coordinates pass through untouched.
	if mp[0][0][0][0] < 400000 {
		t.Errorf("Projected coordinates were converted: %v", mp[0][0][0])
	}
}

// TestCatchmentFeature_UTMConversion verifies vertices and pour point come
// out as plausible longitude/latitude when a zone is configured
func TestCatchmentFeature_UTMConversion(t *testing.T) {
	sc := testStormcatchment()
	f, err := CatchmentFeature(sc, ExportOptions{UTMZone: 18})
	if err != nil {
		t.Fatalf("CatchmentFeature failed: %v", err)
	}

	mp := f.Geometry.(orb.MultiPolygon)
	for _, pt := range mp[0][0] {
		if pt[0] < -180 || pt[0] > 180 || pt[1] < -90 || pt[1] > 90 {
			t.Fatalf("Vertex %v is not in degrees", pt)
		}
	}
	pour := f.Properties["pour_point"].([]float64)
	if pour[0] > -60 || pour[0] < -90 {
		t.Errorf("Pour point longitude %g implausible for zone 18 north", pour[0])
	}
	if pour[1] < 30 || pour[1] > 50 {
		t.Errorf("Pour point latitude %g implausible for zone 18 north", pour[1])
	}
}

// TestWriteCatchment verifies the output parses back as a single-feature
// collection
func TestWriteCatchment(t *testing.T) {
	sc := testStormcatchment()
	var buf bytes.Buffer
	if err := WriteCatchment(&buf, sc, ExportOptions{}); err != nil {
		t.Fatalf("WriteCatchment failed: %v", err)
	}

	fc, err := geojson.UnmarshalFeatureCollection(buf.Bytes())
	if err != nil {
		t.Fatalf("Output is not valid GeoJSON: %v", err)
	}
	if len(fc.Features) != 1 {
		t.Errorf("Expected 1 feature, got %d", len(fc.Features))
	}
}
