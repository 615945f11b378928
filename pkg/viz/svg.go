// Package viz renders stormwater networks and delineated catchments for
// visual inspection. Rendering is plotting glue outside the core; nothing in
// here feeds back into delineation.
package viz

import (
	"fmt"
	"io"

	"github.com/paulmach/orb"

	"github.com/t-ott/stormcatchments/pkg/network"
)

// RenderOptions configures the SVG canvas.
type RenderOptions struct {
	Width   float64 // canvas width in pixels, default 800
	Height  float64 // canvas height in pixels, default 800
	Padding float64 // canvas padding in pixels, default 20
}

func (o RenderOptions) withDefaults() RenderOptions {
	if o.Width == 0 {
		o.Width = 800
	}
	if o.Height == 0 {
		o.Height = 800
	}
	if o.Padding == 0 {
		o.Padding = 20
	}
	return o
}

// RenderSVG draws the network to SVG: directed edges as arrows, unresolved
// edges as dashed segments, sinks as squares, sources as circles, and any
// catchment boundaries as filled polygons underneath.
func RenderSVG(w io.Writer, g *network.Graph, catchments []orb.MultiPolygon, opts RenderOptions) error {
	opts = opts.withDefaults()
	tr, err := newTransform(g, catchments, opts)
	if err != nil {
		return err
	}

	fmt.Fprintf(w,
		`<svg xmlns="http://www.w3.org/2000/svg" width="%g" height="%g" viewBox="0 0 %g %g">`+"\n",
		opts.Width, opts.Height, opts.Width, opts.Height,
	)
	fmt.Fprintln(w, `<defs><marker id="arrow" viewBox="0 0 10 10" refX="9" refY="5" markerWidth="6" markerHeight="6" orient="auto-start-reverse"><path d="M 0 0 L 10 5 L 0 10 z" fill="darkblue"/></marker></defs>`)

	// Catchments underneath everything else
	for _, mp := range catchments {
		for _, poly := range mp {
			for _, ring := range poly {
				fmt.Fprint(w, `<polygon points="`)
				for i, pt := range ring {
					if i > 0 {
						fmt.Fprint(w, " ")
					}
					x, y := tr.apply(pt)
					fmt.Fprintf(w, "%.2f,%.2f", x, y)
				}
				fmt.Fprintln(w, `" fill="lightsteelblue" fill-opacity="0.5" stroke="steelblue"/>`)
			}
		}
	}

	for _, e := range g.Edges() {
		from := g.Node(e.FromNodeID).Geom
		to := g.Node(e.ToNodeID).Geom
		x1, y1 := tr.apply(from)
		x2, y2 := tr.apply(to)
		if e.Directed {
			fmt.Fprintf(w,
				`<line x1="%.2f" y1="%.2f" x2="%.2f" y2="%.2f" stroke="darkblue" stroke-width="1.5" marker-end="url(#arrow)"/>`+"\n",
				x1, y1, x2, y2,
			)
		} else {
			fmt.Fprintf(w,
				`<line x1="%.2f" y1="%.2f" x2="%.2f" y2="%.2f" stroke="darkblue" stroke-width="1.5" stroke-dasharray="4 2"/>`+"\n",
				x1, y1, x2, y2,
			)
		}
	}

	for _, n := range g.Nodes() {
		x, y := tr.apply(n.Geom)
		switch {
		case n.IsSink:
			fmt.Fprintf(w,
				`<rect x="%.2f" y="%.2f" width="8" height="8" fill="white" stroke="black"/>`+"\n",
				x-4, y-4,
			)
		case n.IsSource:
			fmt.Fprintf(w,
				`<circle cx="%.2f" cy="%.2f" r="4" fill="white" stroke="black"/>`+"\n",
				x, y,
			)
		default:
			fmt.Fprintf(w,
				`<circle cx="%.2f" cy="%.2f" r="3" fill="gray" stroke="black"/>`+"\n",
				x, y,
			)
		}
	}

	fmt.Fprintln(w, `</svg>`)
	return nil
}

// transform maps map coordinates onto the canvas, flipping y so north stays
// up.
type transform struct {
	bound        orb.Bound
	scale        float64
	padX, padY   float64
	canvasHeight float64
}

func newTransform(g *network.Graph, catchments []orb.MultiPolygon, opts RenderOptions) (*transform, error) {
	var bound orb.Bound
	first := true
	extend := func(pt orb.Point) {
		if first {
			bound = orb.Bound{Min: pt, Max: pt}
			first = false
			return
		}
		bound = bound.Extend(pt)
	}
	for _, n := range g.Nodes() {
		extend(n.Geom)
	}
	for _, mp := range catchments {
		for _, poly := range mp {
			for _, ring := range poly {
				for _, pt := range ring {
					extend(pt)
				}
			}
		}
	}
	if first {
		return nil, fmt.Errorf("nothing to render")
	}

	spanX := bound.Max[0] - bound.Min[0]
	spanY := bound.Max[1] - bound.Min[1]
	if spanX == 0 {
		spanX = 1
	}
	if spanY == 0 {
		spanY = 1
	}
	innerW := opts.Width - 2*opts.Padding
	innerH := opts.Height - 2*opts.Padding
	scale := innerW / spanX
	if s := innerH / spanY; s < scale {
		scale = s
	}

	return &transform{
		bound:        bound,
		scale:        scale,
		padX:         opts.Padding,
		padY:         opts.Padding,
		canvasHeight: opts.Height,
	}, nil
}

func (t *transform) apply(pt orb.Point) (x, y float64) {
	x = t.padX + (pt[0]-t.bound.Min[0])*t.scale
	y = t.canvasHeight - t.padY - (pt[1]-t.bound.Min[1])*t.scale
	return x, y
}
