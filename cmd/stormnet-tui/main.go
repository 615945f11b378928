// Command stormnet-tui is a terminal inspector for a stormwater network:
// a dashboard of graph statistics, a browsable node table, and per-component
// direction resolution diagnostics.
package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/t-ott/stormcatchments/pkg/gis"
	"github.com/t-ott/stormcatchments/pkg/network"
	"github.com/t-ott/stormcatchments/pkg/topology"
)

// Styles
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#00FFFF")).
			MarginLeft(2).
			MarginTop(1)

	activeTabStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FFFFFF")).
			Background(lipgloss.Color("#005FAF")).
			Padding(0, 2)

	inactiveTabStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#666666")).
				Padding(0, 2)

	statsBoxStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#00FF00")).
			Padding(1, 2).
			MarginLeft(2).
			MarginTop(1)

	warnStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFAF00")).
			Bold(true)

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#888888")).
			MarginTop(1).
			MarginLeft(2)
)

type view int

const (
	dashboardView view = iota
	nodesView
	componentsView
)

type keyMap struct {
	Tab  key.Binding
	Quit key.Binding
}

var keys = keyMap{
	Tab: key.NewBinding(
		key.WithKeys("tab"),
		key.WithHelp("tab", "next view"),
	),
	Quit: key.NewBinding(
		key.WithKeys("q", "ctrl+c"),
		key.WithHelp("q", "quit"),
	),
}

type model struct {
	graph      *network.Graph
	resolution *network.Resolution
	floating   []uint64
	multiOut   []topology.MultiOutletComponent

	current   view
	nodeTable table.Model
}

func newModel(graph *network.Graph, resolution *network.Resolution, floating []uint64, multiOut []topology.MultiOutletComponent) model {
	columns := []table.Column{
		{Title: "ID", Width: 10},
		{Title: "Kind", Width: 18},
		{Title: "Sink", Width: 6},
		{Title: "Source", Width: 8},
		{Title: "X", Width: 14},
		{Title: "Y", Width: 14},
	}
	rows := make([]table.Row, 0, graph.NodeCount())
	for _, n := range graph.Nodes() {
		rows = append(rows, table.Row{
			fmt.Sprintf("%d", n.ID),
			n.Kind,
			boolMark(n.IsSink),
			boolMark(n.IsSource),
			fmt.Sprintf("%.2f", n.Geom[0]),
			fmt.Sprintf("%.2f", n.Geom[1]),
		})
	}
	t := table.New(
		table.WithColumns(columns),
		table.WithRows(rows),
		table.WithFocused(true),
		table.WithHeight(15),
	)
	return model{
		graph:      graph,
		resolution: resolution,
		floating:   floating,
		multiOut:   multiOut,
		nodeTable:  t,
	}
}

func boolMark(b bool) string {
	if b {
		return "yes"
	}
	return ""
}

func (m model) Init() tea.Cmd {
	return nil
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.Quit):
			return m, tea.Quit
		case key.Matches(msg, keys.Tab):
			m.current = (m.current + 1) % 3
			return m, nil
		}
	}
	var cmd tea.Cmd
	if m.current == nodesView {
		m.nodeTable, cmd = m.nodeTable.Update(msg)
	}
	return m, cmd
}

func (m model) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("stormcatchments network inspector"))
	b.WriteString("\n")
	b.WriteString(m.tabs())
	b.WriteString("\n")

	switch m.current {
	case dashboardView:
		b.WriteString(m.dashboard())
	case nodesView:
		b.WriteString(lipgloss.NewStyle().MarginLeft(2).MarginTop(1).Render(m.nodeTable.View()))
	case componentsView:
		b.WriteString(m.components())
	}

	b.WriteString("\n")
	b.WriteString(helpStyle.Render("tab: next view • q: quit"))
	b.WriteString("\n")
	return b.String()
}

func (m model) tabs() string {
	names := []string{"Dashboard", "Nodes", "Components"}
	tabs := make([]string, len(names))
	for i, name := range names {
		if view(i) == m.current {
			tabs[i] = activeTabStyle.Render(name)
		} else {
			tabs[i] = inactiveTabStyle.Render(name)
		}
	}
	return lipgloss.NewStyle().MarginLeft(2).Render(lipgloss.JoinHorizontal(lipgloss.Top, tabs...))
}

func (m model) dashboard() string {
	sinks, sources := 0, 0
	for _, n := range m.graph.Nodes() {
		if n.IsSink {
			sinks++
		}
		if n.IsSource {
			sources++
		}
	}

	stats := fmt.Sprintf(
		"Nodes:       %d\nEdges:       %d\nSinks:       %d\nSources:     %d\nComponents:  %d",
		m.graph.NodeCount(), m.graph.EdgeCount(), sinks, sources, len(m.graph.Components()),
	)
	resolution := fmt.Sprintf(
		"Method:      %s\nResolved:    %d\nUnresolved:  %d",
		m.graph.ResolutionMethod(), m.resolution.ResolvedEdges, m.resolution.UnresolvedEdges,
	)

	boxes := lipgloss.JoinHorizontal(lipgloss.Top,
		statsBoxStyle.Render(stats),
		statsBoxStyle.Render(resolution),
	)
	if len(m.floating) > 0 {
		boxes += "\n" + lipgloss.NewStyle().MarginLeft(2).Render(
			warnStyle.Render(fmt.Sprintf("%d floating points: %v", len(m.floating), m.floating)),
		)
	}
	return boxes
}

func (m model) components() string {
	var b strings.Builder
	b.WriteString(lipgloss.NewStyle().MarginLeft(2).MarginTop(1).Render(
		fmt.Sprintf("%d unresolved components, %d multi-outlet subnetworks",
			len(m.resolution.Unresolved), len(m.multiOut)),
	))
	b.WriteString("\n")
	for _, diag := range m.resolution.Unresolved {
		b.WriteString(lipgloss.NewStyle().MarginLeft(4).Render(
			fmt.Sprintf("unresolved: %d nodes, sources %v", len(diag.Nodes), diag.Sources),
		))
		b.WriteString("\n")
	}
	for _, mo := range m.multiOut {
		b.WriteString(lipgloss.NewStyle().MarginLeft(4).Render(
			warnStyle.Render(fmt.Sprintf("multi-outlet: %d nodes, sources %v", len(mo.Nodes), mo.Sources)),
		))
		b.WriteString("\n")
	}
	return b.String()
}

func main() {
	pointsPath := flag.String("points", "", "GeoJSON file of structure points")
	linesPath := flag.String("lines", "", "GeoJSON file of pipe lines")
	methodName := flag.String("method", "from_sources", "Direction resolution method")
	tolerance := flag.Float64("tolerance", network.DefaultSnapTolerance, "Endpoint snapping tolerance")
	flag.Parse()

	if *pointsPath == "" || *linesPath == "" {
		fmt.Fprintln(os.Stderr, "Usage: stormnet-tui -points pts.geojson -lines lines.geojson")
		os.Exit(1)
	}

	points, err := gis.ReadPointsFile(*pointsPath, gis.FieldMap{})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load points: %v\n", err)
		os.Exit(1)
	}
	lines, err := gis.ReadLinesFile(*linesPath, gis.FieldMap{})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load lines: %v\n", err)
		os.Exit(1)
	}

	graph, err := network.Build(points, lines, network.BuildOptions{SnapTolerance: *tolerance})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to build graph: %v\n", err)
		os.Exit(1)
	}

	method, err := network.ParseMethod(*methodName)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Unknown method %q\n", *methodName)
		os.Exit(1)
	}
	resolution, err := graph.ResolveDirections(method)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to resolve directions: %v\n", err)
		os.Exit(1)
	}

	floating := topology.FindFloatingPoints(graph, *tolerance)
	multiOut := topology.FindMultiOutlet(graph)

	p := tea.NewProgram(newModel(graph, resolution, floating, multiOut))
	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "TUI error: %v\n", err)
		os.Exit(1)
	}
}
