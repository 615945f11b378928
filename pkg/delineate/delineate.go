// Package delineate combines surface watersheds with subsurface-network
// contributing areas. Rainfall landing inside a surface catchment may be
// intercepted by a catchbasin and piped elsewhere, and a pour point may
// receive extra area piped in from a disconnected hillside; the stormcatchment
// accounts for both.
package delineate

import (
	"errors"
	"sort"

	"github.com/paulmach/orb"

	"github.com/t-ott/stormcatchments/pkg/logging"
	"github.com/t-ott/stormcatchments/pkg/network"
)

// ErrDirectionsUnresolved is returned when a delineator is created over a
// graph whose edge directions were never resolved.
var ErrDirectionsUnresolved = errors.New("graph edge directions not resolved")

// Stormcatchment is the network-aware catchment for a pour point: its surface
// catchment plus every surface catchment piped into it through the
// subsurface network, transitively.
type Stormcatchment struct {
	PourPoint orb.Point
	Region    Region

	// ContributingNodes lists the IDs of every sink node whose surface
	// catchment was pulled into the result, sorted. It doubles as the guard
	// against double-counting during expansion.
	ContributingNodes []uint64

	// Expansions counts the surface delineations performed, including the
	// pour point's own.
	Expansions int
}

// EscapingSink is a sink inside a region whose network outlet lies outside
// it: rainfall intercepted there leaves the region through the pipes. The
// delineator reports these as diagnostics and never subtracts their area, so
// a stormcatchment always covers at least the naive surface catchment.
type EscapingSink struct {
	SinkID   uint64
	OutletID uint64
}

// Delineator answers catchment queries against a resolved network graph and
// a terrain model. It performs read-only traversals, so a single Delineator
// may serve concurrent delineations as long as nothing mutates the graph.
type Delineator struct {
	net     *network.Graph
	terrain TerrainModel
	logger  logging.Logger
}

// New creates a Delineator. The graph must have had its edge directions
// resolved.
func New(net *network.Graph, terrain TerrainModel) (*Delineator, error) {
	if !net.Resolved() {
		return nil, ErrDirectionsUnresolved
	}
	return &Delineator{net: net, terrain: terrain}, nil
}

// SetLogger attaches an optional logger for per-expansion diagnostics.
func (d *Delineator) SetLogger(logger logging.Logger) {
	d.logger = logger
}

// Catchment returns the naive surface-only watershed for the pour point,
// with no network involvement. It is the baseline the stormcatchment is a
// superset of.
func (d *Delineator) Catchment(pour orb.Point, accThreshold int) (Region, error) {
	return d.terrain.SurfaceCatchment(pour, accThreshold)
}

// Stormcatchment delineates the network-aware catchment for the pour point.
//
// The expansion runs over an explicit work stack guarded by a visited set:
// each popped point contributes its surface catchment, every unvisited sink
// inside that catchment is marked visited, and for each such sink every
// upstream sink lying outside the catchment is marked visited and pushed for
// expansion of its own. Marking on discovery bounds the work by the number of
// distinct nodes, so malformed graphs containing cycles still terminate.
func (d *Delineator) Stormcatchment(pour orb.Point, accThreshold int) (*Stormcatchment, error) {
	visited := make(map[uint64]bool)
	result := &Stormcatchment{PourPoint: pour}

	stack := []orb.Point{pour}
	var accumulated Region

	for len(stack) > 0 {
		pt := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		base, err := d.terrain.SurfaceCatchment(pt, accThreshold)
		if err != nil {
			return nil, err
		}
		result.Expansions++
		if accumulated == nil {
			accumulated = base
		} else {
			accumulated = accumulated.Union(base)
		}

		for _, sink := range d.net.SinksWithin(base) {
			if visited[sink.ID] {
				continue
			}
			visited[sink.ID] = true

			upstream, err := d.net.UpstreamNodes(sink.ID)
			if err != nil {
				return nil, err
			}
			for _, upID := range upstream {
				up := d.net.Node(upID)
				if !up.IsSink || visited[upID] || base.Contains(up.Geom) {
					continue
				}
				// A remote sink that physically discharges into this
				// catchment through the network: pull in its own surface
				// catchment, and transitively anything piped into it.
				visited[upID] = true
				stack = append(stack, up.Geom)
				if d.logger != nil {
					d.logger.Debug("expanding external sink",
						logging.Uint64("sink_id", upID),
						logging.Uint64("via_sink_id", sink.ID),
					)
				}
			}
		}
	}

	for id := range visited {
		result.ContributingNodes = append(result.ContributingNodes, id)
	}
	sort.Slice(result.ContributingNodes, func(i, j int) bool {
		return result.ContributingNodes[i] < result.ContributingNodes[j]
	})
	result.Region = accumulated

	if d.logger != nil {
		d.logger.Info("stormcatchment delineated",
			logging.Int("expansions", result.Expansions),
			logging.Int("contributing_nodes", len(result.ContributingNodes)),
			logging.Float64("area", accumulated.Area()),
		)
	}
	return result, nil
}

// EscapingSinks returns every sink inside the region whose outlet lies
// outside it, sorted by sink ID. Sinks whose downstream subgraph has no
// terminal (a directed cycle) are skipped.
func (d *Delineator) EscapingSinks(r Region) ([]EscapingSink, error) {
	var escaping []EscapingSink
	for _, sink := range d.net.SinksWithin(r) {
		outletID, _, err := d.net.Outlet(sink.ID)
		if errors.Is(err, network.ErrNoOutlet) {
			continue
		}
		if err != nil {
			return nil, err
		}
		outlet := d.net.Node(outletID)
		if !r.Contains(outlet.Geom) {
			escaping = append(escaping, EscapingSink{SinkID: sink.ID, OutletID: outletID})
		}
	}
	return escaping, nil
}
