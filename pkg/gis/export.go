package gis

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/google/uuid"
	"github.com/im7mortal/UTM"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/t-ott/stormcatchments/pkg/delineate"
)

// ExportOptions controls catchment export. The core never reprojects; when
// UTMZone is set, coordinates are converted from that UTM zone to WGS84
// latitude/longitude on the way out, as a convenience for web mapping.
type ExportOptions struct {
	UTMZone  int
	Southern bool
}

// CatchmentFeature converts a delineated stormcatchment to a GeoJSON feature
// carrying a fresh run ID, the pour point, area and contributing node IDs.
func CatchmentFeature(sc *delineate.Stormcatchment, opts ExportOptions) (*geojson.Feature, error) {
	boundary := sc.Region.Boundary()
	pour := sc.PourPoint
	if opts.UTMZone > 0 {
		var err error
		boundary, err = toWGS84(boundary, opts)
		if err != nil {
			return nil, err
		}
		lat, lon, err := UTM.ToLatLon(pour[0], pour[1], opts.UTMZone, "", !opts.Southern)
		if err != nil {
			return nil, fmt.Errorf("convert pour point: %w", err)
		}
		pour = orb.Point{lon, lat}
	}

	f := geojson.NewFeature(boundary)
	f.Properties["run_id"] = uuid.NewString()
	f.Properties["pour_point"] = []float64{pour[0], pour[1]}
	f.Properties["area"] = sc.Region.Area()
	f.Properties["contributing_nodes"] = sc.ContributingNodes
	f.Properties["expansions"] = sc.Expansions
	return f, nil
}

// WriteCatchment writes the stormcatchment as a single-feature GeoJSON
// FeatureCollection.
func WriteCatchment(w io.Writer, sc *delineate.Stormcatchment, opts ExportOptions) error {
	f, err := CatchmentFeature(sc, opts)
	if err != nil {
		return err
	}
	fc := geojson.NewFeatureCollection()
	fc.Append(f)
	data, err := json.Marshal(fc)
	if err != nil {
		return fmt.Errorf("marshal catchment: %w", err)
	}
	_, err = w.Write(data)
	return err
}

// WriteCatchmentFile writes the stormcatchment to a GeoJSON file.
func WriteCatchmentFile(path string, sc *delineate.Stormcatchment, opts ExportOptions) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return WriteCatchment(f, sc, opts)
}

// toWGS84 converts every vertex of a projected multipolygon from the
// configured UTM zone to longitude/latitude.
func toWGS84(mp orb.MultiPolygon, opts ExportOptions) (orb.MultiPolygon, error) {
	out := make(orb.MultiPolygon, len(mp))
	for i, poly := range mp {
		out[i] = make(orb.Polygon, len(poly))
		for j, ring := range poly {
			out[i][j] = make(orb.Ring, len(ring))
			for k, pt := range ring {
				lat, lon, err := UTM.ToLatLon(pt[0], pt[1], opts.UTMZone, "", !opts.Southern)
				if err != nil {
					return nil, fmt.Errorf("convert vertex (%g, %g): %w", pt[0], pt[1], err)
				}
				out[i][j][k] = orb.Point{lon, lat}
			}
		}
	}
	return out, nil
}
