package viz

import (
	"encoding/json"
	"io"

	"github.com/t-ott/stormcatchments/pkg/network"
)

// NodeExport is one node in a JSON layout export.
type NodeExport struct {
	ID       uint64  `json:"id"`
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	Kind     string  `json:"kind,omitempty"`
	IsSink   bool    `json:"isSink"`
	IsSource bool    `json:"isSource"`
}

// EdgeExport is one edge in a JSON layout export.
type EdgeExport struct {
	ID       uint64 `json:"id"`
	From     uint64 `json:"from"`
	To       uint64 `json:"to"`
	Directed bool   `json:"directed"`
}

// LayoutExport is the JSON shape consumed by external viewers: geographic
// node positions plus the edge list.
type LayoutExport struct {
	Nodes []NodeExport `json:"nodes"`
	Edges []EdgeExport `json:"edges"`
}

// ExportJSON writes the network as a JSON layout document.
func ExportJSON(w io.Writer, g *network.Graph) error {
	export := LayoutExport{
		Nodes: make([]NodeExport, 0, g.NodeCount()),
		Edges: make([]EdgeExport, 0, g.EdgeCount()),
	}
	for _, n := range g.Nodes() {
		export.Nodes = append(export.Nodes, NodeExport{
			ID:       n.ID,
			X:        n.Geom[0],
			Y:        n.Geom[1],
			Kind:     n.Kind,
			IsSink:   n.IsSink,
			IsSource: n.IsSource,
		})
	}
	for _, e := range g.Edges() {
		export.Edges = append(export.Edges, EdgeExport{
			ID:       e.ID,
			From:     e.FromNodeID,
			To:       e.ToNodeID,
			Directed: e.Directed,
		})
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(export)
}
