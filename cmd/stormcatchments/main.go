// Command stormcatchments runs the batch delineation pipeline: load
// stormwater infrastructure features, build and validate the network graph,
// resolve pipe directions, condition the DEM into a flow model, and
// delineate a stormcatchment for every configured pour point.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/paulmach/orb"

	"github.com/t-ott/stormcatchments/pkg/config"
	"github.com/t-ott/stormcatchments/pkg/delineate"
	"github.com/t-ott/stormcatchments/pkg/gis"
	"github.com/t-ott/stormcatchments/pkg/gis/postgis"
	"github.com/t-ott/stormcatchments/pkg/logging"
	"github.com/t-ott/stormcatchments/pkg/metrics"
	"github.com/t-ott/stormcatchments/pkg/network"
	"github.com/t-ott/stormcatchments/pkg/terrain"
	"github.com/t-ott/stormcatchments/pkg/topology"
	"github.com/t-ott/stormcatchments/pkg/viz"
)

func main() {
	configPath := flag.String("config", "run.yaml", "Path to run configuration")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger := logging.NewJSONLogger(os.Stdout, logging.ParseLevel(cfg.LogLevel))
	registry := metrics.NewRegistry()

	if err := run(cfg, logger, registry); err != nil {
		logger.Error("run failed", logging.Error(err))
		os.Exit(1)
	}

	if cfg.Output.MetricsTextfile != "" {
		if err := registry.WriteTextfile(cfg.Output.MetricsTextfile); err != nil {
			logger.Error("failed to write metrics textfile", logging.Error(err))
			os.Exit(1)
		}
	}
}

func run(cfg *config.Config, logger logging.Logger, registry *metrics.Registry) error {
	points, lines, err := loadFeatures(cfg)
	if err != nil {
		return fmt.Errorf("load features: %w", err)
	}
	logger.Info("features loaded",
		logging.Int("points", len(points)),
		logging.Int("lines", len(lines)),
	)

	// Snapping raw data before the build keeps offset structures from
	// failing endpoint resolution.
	if cfg.Network.SnapSearch > 0 {
		snapped, report := topology.SnapFeatures(points, lines, cfg.Network.SnapSearch, cfg.Network.SnapTolerance)
		points = snapped
		if len(report.Moved) > 0 {
			logger.Info("snapped floating points", logging.Int("moved", len(report.Moved)))
		}
		for _, id := range report.Unsnapped {
			logger.Warn("point beyond snapping tolerance", logging.NodeID(id))
		}
	}

	opts := network.BuildOptions{SnapTolerance: cfg.Network.SnapTolerance}
	if len(cfg.Network.SinkKinds) > 0 {
		opts.Classifier = &network.Classifier{
			SinkKinds:   cfg.Network.SinkKinds,
			SourceKinds: cfg.Network.SourceKinds,
		}
	}

	buildStart := time.Now()
	graph, err := network.Build(points, lines, opts)
	if err != nil {
		registry.RecordBuild("error", time.Since(buildStart), 0, 0)
		return fmt.Errorf("build graph: %w", err)
	}
	registry.RecordBuild("ok", time.Since(buildStart), graph.NodeCount(), graph.EdgeCount())
	logger.Info("graph built",
		logging.Int("nodes", graph.NodeCount()),
		logging.Int("edges", graph.EdgeCount()),
	)

	for _, id := range topology.FindFloatingPoints(graph, cfg.Network.SnapTolerance) {
		logger.Warn("floating point cannot participate in edges", logging.NodeID(id))
	}
	for _, mo := range topology.FindMultiOutlet(graph) {
		logger.Warn("multi-outlet subnetwork, delineation unreliable",
			logging.Int("nodes", len(mo.Nodes)),
			logging.Any("sources", mo.Sources),
		)
	}

	method, err := network.ParseMethod(cfg.Network.Method)
	if err != nil {
		return err
	}
	resolution, err := graph.ResolveDirections(method)
	if err != nil {
		registry.RecordResolution(cfg.Network.Method, "error", 0, 0)
		return fmt.Errorf("resolve directions: %w", err)
	}
	registry.RecordResolution(cfg.Network.Method, "ok", resolution.ResolvedEdges, resolution.UnresolvedEdges)
	logger.Info("directions resolved",
		logging.String("method", method.String()),
		logging.Int("resolved", resolution.ResolvedEdges),
		logging.Int("unresolved", resolution.UnresolvedEdges),
	)
	for _, diag := range resolution.Unresolved {
		logger.Warn("component left unresolved",
			logging.Int("nodes", len(diag.Nodes)),
			logging.Any("sources", diag.Sources),
		)
	}

	dem, err := terrain.LoadESRIASCII(cfg.Terrain.DEMPath)
	if err != nil {
		return fmt.Errorf("load DEM: %w", err)
	}
	cachePath := cfg.Terrain.CachePath
	if cachePath == "" {
		cachePath = cfg.Terrain.DEMPath + ".flow"
	}
	flow, err := terrain.LoadOrBuildFlowModel(dem, cachePath)
	if err != nil {
		return fmt.Errorf("build flow model: %w", err)
	}
	logger.Info("flow model ready", logging.Int("cells", flow.Grid.NumCells()))

	delineator, err := delineate.New(graph, flow)
	if err != nil {
		return err
	}
	delineator.SetLogger(logger)

	exportOpts := gis.ExportOptions{UTMZone: cfg.Output.UTMZone, Southern: cfg.Output.Southern}
	var boundaries []orb.MultiPolygon
	for i, pp := range cfg.Delineation.PourPoints {
		pour := orb.Point{pp.X, pp.Y}
		start := time.Now()
		sc, err := delineator.Stormcatchment(pour, cfg.Delineation.AccThreshold)
		if err != nil {
			registry.RecordStormcatchment("error", time.Since(start), 0, 0, 0)
			return fmt.Errorf("delineate pour point %d: %w", i, err)
		}
		registry.RecordStormcatchment("ok", time.Since(start),
			sc.Region.Area(), len(sc.ContributingNodes), sc.Expansions)

		escaping, err := delineator.EscapingSinks(sc.Region)
		if err != nil {
			return err
		}
		for _, esc := range escaping {
			logger.Warn("sink pipes flow out of the catchment",
				logging.Uint64("sink_id", esc.SinkID),
				logging.Uint64("outlet_id", esc.OutletID),
			)
		}

		boundaries = append(boundaries, sc.Region.Boundary())
		if cfg.Output.CatchmentDir != "" {
			path := filepath.Join(cfg.Output.CatchmentDir, fmt.Sprintf("stormcatchment_%03d.geojson", i))
			if err := gis.WriteCatchmentFile(path, sc, exportOpts); err != nil {
				return fmt.Errorf("write catchment %d: %w", i, err)
			}
			logger.Info("catchment written",
				logging.String("path", path),
				logging.Area(sc.Region.Area()),
			)
		}
	}

	if cfg.Output.SVGPath != "" {
		f, err := os.Create(cfg.Output.SVGPath)
		if err != nil {
			return err
		}
		defer f.Close()
		if err := viz.RenderSVG(f, graph, boundaries, viz.RenderOptions{}); err != nil {
			return fmt.Errorf("render SVG: %w", err)
		}
	}
	if cfg.Output.LayoutPath != "" {
		f, err := os.Create(cfg.Output.LayoutPath)
		if err != nil {
			return err
		}
		defer f.Close()
		if err := viz.ExportJSON(f, graph); err != nil {
			return fmt.Errorf("export layout: %w", err)
		}
	}
	return nil
}

// loadFeatures reads infrastructure features from the configured source.
func loadFeatures(cfg *config.Config) ([]network.PointFeature, []network.LineFeature, error) {
	switch cfg.Input.Source {
	case "geojson":
		fm := gis.FieldMap{
			ID:       cfg.Input.IDField,
			Kind:     cfg.Input.KindField,
			IsSink:   cfg.Input.SinkField,
			IsSource: cfg.Input.SourceField,
		}
		points, err := gis.ReadPointsFile(cfg.Input.PointsPath, fm)
		if err != nil {
			return nil, nil, err
		}
		lines, err := gis.ReadLinesFile(cfg.Input.LinesPath, fm)
		if err != nil {
			return nil, nil, err
		}
		return points, lines, nil

	case "postgis":
		ctx := context.Background()
		src, err := postgis.Connect(ctx, cfg.Input.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		defer src.Close()

		geomColumn := cfg.Input.GeomColumn
		if geomColumn == "" {
			geomColumn = "geom"
		}
		idColumn := cfg.Input.IDColumn
		if idColumn == "" {
			idColumn = "id"
		}
		points, err := src.Points(ctx, postgis.PointLayer{
			Table:        cfg.Input.PointsTable,
			IDColumn:     idColumn,
			GeomColumn:   geomColumn,
			KindColumn:   cfg.Input.KindColumn,
			SinkColumn:   cfg.Input.SinkColumn,
			SourceColumn: cfg.Input.SourceColumn,
		})
		if err != nil {
			return nil, nil, err
		}
		lines, err := src.Lines(ctx, postgis.LineLayer{
			Table:      cfg.Input.LinesTable,
			IDColumn:   idColumn,
			GeomColumn: geomColumn,
		})
		if err != nil {
			return nil, nil, err
		}
		return points, lines, nil

	default:
		return nil, nil, fmt.Errorf("unknown input source %q", cfg.Input.Source)
	}
}
