// Package postgis reads stormwater infrastructure layers from a PostGIS
// database, producing the same feature slices the GeoJSON loader does.
package postgis

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/encoding/wkb"

	"github.com/t-ott/stormcatchments/pkg/network"
)

// Source is a pooled PostGIS connection serving feature queries.
type Source struct {
	pool *pgxpool.Pool
}

// Connect opens a connection pool against the given database URL and
// verifies connectivity.
func Connect(ctx context.Context, databaseURL string) (*Source, error) {
	config, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database URL: %w", err)
	}

	config.MaxConns = 10
	config.MaxConnLifetime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("database unreachable: %w", err)
	}
	return &Source{pool: pool}, nil
}

// Close closes the connection pool.
func (s *Source) Close() {
	s.pool.Close()
}

// PointLayer names the table and columns holding structure points. Kind,
// Sink and Source columns are each optional; absent ones read as zero values
// and classification falls to the build-time Classifier.
type PointLayer struct {
	Table        string
	IDColumn     string
	GeomColumn   string
	KindColumn   string
	SinkColumn   string
	SourceColumn string
}

// LineLayer names the table and columns holding pipe lines.
type LineLayer struct {
	Table      string
	IDColumn   string
	GeomColumn string
}

// Points reads every structure point in the layer. Geometry comes across the
// wire as WKB via ST_AsBinary.
func (s *Source) Points(ctx context.Context, layer PointLayer) ([]network.PointFeature, error) {
	kind := "''"
	if layer.KindColumn != "" {
		kind = layer.KindColumn
	}
	sink := "false"
	if layer.SinkColumn != "" {
		sink = layer.SinkColumn
	}
	source := "false"
	if layer.SourceColumn != "" {
		source = layer.SourceColumn
	}

	query := fmt.Sprintf(
		"SELECT %s, %s, %s, %s, ST_AsBinary(%s) FROM %s",
		layer.IDColumn, kind, sink, source, layer.GeomColumn, layer.Table,
	)
	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query point layer %s: %w", layer.Table, err)
	}
	defer rows.Close()

	var points []network.PointFeature
	for rows.Next() {
		var (
			id        int64
			kindVal   string
			isSink    bool
			isSource  bool
			geomBytes []byte
		)
		if err := rows.Scan(&id, &kindVal, &isSink, &isSource, &geomBytes); err != nil {
			return nil, fmt.Errorf("scan point row: %w", err)
		}
		geom, err := wkb.Unmarshal(geomBytes)
		if err != nil {
			return nil, fmt.Errorf("decode point %d geometry: %w", id, err)
		}
		pt, ok := geom.(orb.Point)
		if !ok {
			return nil, fmt.Errorf("point %d: geometry is %T, want Point", id, geom)
		}
		points = append(points, network.PointFeature{
			ID:       uint64(id),
			Geom:     pt,
			Kind:     kindVal,
			IsSink:   isSink,
			IsSource: isSource,
		})
	}
	return points, rows.Err()
}

// Lines reads every pipe line in the layer.
func (s *Source) Lines(ctx context.Context, layer LineLayer) ([]network.LineFeature, error) {
	query := fmt.Sprintf(
		"SELECT %s, ST_AsBinary(%s) FROM %s",
		layer.IDColumn, layer.GeomColumn, layer.Table,
	)
	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query line layer %s: %w", layer.Table, err)
	}
	defer rows.Close()

	var lines []network.LineFeature
	for rows.Next() {
		var (
			id        int64
			geomBytes []byte
		)
		if err := rows.Scan(&id, &geomBytes); err != nil {
			return nil, fmt.Errorf("scan line row: %w", err)
		}
		geom, err := wkb.Unmarshal(geomBytes)
		if err != nil {
			return nil, fmt.Errorf("decode line %d geometry: %w", id, err)
		}
		var ls orb.LineString
		switch g := geom.(type) {
		case orb.LineString:
			ls = g
		case orb.MultiLineString:
			if len(g) != 1 {
				return nil, fmt.Errorf("line %d: multilinestring with %d members", id, len(g))
			}
			ls = g[0]
		default:
			return nil, fmt.Errorf("line %d: geometry is %T, want LineString", id, geom)
		}
		lines = append(lines, network.LineFeature{ID: uint64(id), Geom: ls})
	}
	return lines, rows.Err()
}
