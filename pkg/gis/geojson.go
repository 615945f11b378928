// Package gis adapts external GIS formats to the network's feature model.
// The core packages never touch files or format details; everything here is
// glue on the outside of the library surface.
package gis

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/t-ott/stormcatchments/pkg/network"
)

var (
	ErrMissingID     = errors.New("feature has no usable ID attribute")
	ErrBadGeometry   = errors.New("unexpected feature geometry type")
	ErrMultiGeometry = errors.New("multi-geometry with more than one member")
)

// FieldMap names the feature attributes to read. Zero values fall back to
// the conventional names used by the reference datasets.
type FieldMap struct {
	ID       string // default "id"
	Kind     string // categorical type attribute, optional
	IsSink   string // default "IS_SINK"
	IsSource string // default "IS_SOURCE"
}

func (fm FieldMap) withDefaults() FieldMap {
	if fm.ID == "" {
		fm.ID = "id"
	}
	if fm.IsSink == "" {
		fm.IsSink = "IS_SINK"
	}
	if fm.IsSource == "" {
		fm.IsSource = "IS_SOURCE"
	}
	return fm
}

// UnmarshalPoints parses a GeoJSON FeatureCollection of stormwater structure
// points. MultiPoint geometries collapse to their first coordinate.
func UnmarshalPoints(data []byte, fm FieldMap) ([]network.PointFeature, error) {
	fm = fm.withDefaults()
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, fmt.Errorf("parse point collection: %w", err)
	}

	points := make([]network.PointFeature, 0, len(fc.Features))
	for i, f := range fc.Features {
		id, err := featureID(f, fm.ID)
		if err != nil {
			return nil, fmt.Errorf("point feature %d: %w", i, err)
		}

		var geom orb.Point
		switch g := f.Geometry.(type) {
		case orb.Point:
			geom = g
		case orb.MultiPoint:
			if len(g) == 0 {
				return nil, fmt.Errorf("point feature %d: empty multipoint: %w", i, ErrBadGeometry)
			}
			geom = g[0]
		default:
			return nil, fmt.Errorf("point feature %d: got %T: %w", i, f.Geometry, ErrBadGeometry)
		}

		pt := network.PointFeature{ID: id, Geom: geom}
		if fm.Kind != "" {
			pt.Kind, _ = f.Properties[fm.Kind].(string)
		}
		pt.IsSink = coerceBool(f.Properties[fm.IsSink])
		pt.IsSource = coerceBool(f.Properties[fm.IsSource])
		points = append(points, pt)
	}
	return points, nil
}

// UnmarshalLines parses a GeoJSON FeatureCollection of pipe lines.
// Single-member MultiLineString geometries are unwrapped.
func UnmarshalLines(data []byte, fm FieldMap) ([]network.LineFeature, error) {
	fm = fm.withDefaults()
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, fmt.Errorf("parse line collection: %w", err)
	}

	lines := make([]network.LineFeature, 0, len(fc.Features))
	for i, f := range fc.Features {
		id, err := featureID(f, fm.ID)
		if err != nil {
			return nil, fmt.Errorf("line feature %d: %w", i, err)
		}

		var geom orb.LineString
		switch g := f.Geometry.(type) {
		case orb.LineString:
			geom = g
		case orb.MultiLineString:
			if len(g) != 1 {
				return nil, fmt.Errorf("line feature %d: %w", i, ErrMultiGeometry)
			}
			geom = g[0]
		default:
			return nil, fmt.Errorf("line feature %d: got %T: %w", i, f.Geometry, ErrBadGeometry)
		}

		lines = append(lines, network.LineFeature{ID: id, Geom: geom})
	}
	return lines, nil
}

// ReadPointsFile reads structure points from a GeoJSON file.
func ReadPointsFile(path string, fm FieldMap) ([]network.PointFeature, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return UnmarshalPoints(data, fm)
}

// ReadLinesFile reads pipe lines from a GeoJSON file.
func ReadLinesFile(path string, fm FieldMap) ([]network.LineFeature, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return UnmarshalLines(data, fm)
}

// featureID pulls the feature ID from the named property, falling back to
// the GeoJSON top-level id.
func featureID(f *geojson.Feature, field string) (uint64, error) {
	if v, ok := f.Properties[field]; ok {
		return coerceUint64(v)
	}
	if f.ID != nil {
		return coerceUint64(f.ID)
	}
	return 0, ErrMissingID
}

func coerceUint64(v any) (uint64, error) {
	switch x := v.(type) {
	case float64:
		if x < 0 {
			return 0, fmt.Errorf("negative ID %v", x)
		}
		return uint64(x), nil
	case int:
		if x < 0 {
			return 0, fmt.Errorf("negative ID %v", x)
		}
		return uint64(x), nil
	case string:
		return strconv.ParseUint(x, 10, 64)
	default:
		return 0, ErrMissingID
	}
}

// coerceBool accepts the encodings shapefile-derived data tends to carry:
// real booleans, 0/1 numerics, and "0"/"1"/"true"/"false" strings.
func coerceBool(v any) bool {
	switch x := v.(type) {
	case bool:
		return x
	case float64:
		return x != 0
	case int:
		return x != 0
	case string:
		b, err := strconv.ParseBool(x)
		return err == nil && b
	default:
		return false
	}
}
