package export

import (
	"fmt"
	"io"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/jward/compgraph/internal/graph"
)

const (
	baseSymbolSize   = 12
	symbolSizePerDeg = 4
	maxSymbolSize    = 60
	chartHeight      = "800px"
)

var kindCategories = []graph.Kind{graph.KindComponent, graph.KindHook, graph.KindUtility}

// RenderHTML writes a standalone page with a force-directed view of g.
// Node size grows with degree and nodes are grouped by kind. A link's
// value is the number of parameters passed along it.
func RenderHTML(w io.Writer, g *graph.Graph, title string) error {
	chart := BuildChart(g, title)
	if err := chart.Render(w); err != nil {
		return fmt.Errorf("render html: %w", err)
	}
	return nil
}

// BuildChart builds the force graph without rendering it.
func BuildChart(g *graph.Graph, title string) *charts.Graph {
	if g == nil {
		g = &graph.Graph{}
	}

	categories := make([]*opts.GraphCategory, 0, len(kindCategories))
	categoryIndex := make(map[graph.Kind]int, len(kindCategories))
	for i, k := range kindCategories {
		categories = append(categories, &opts.GraphCategory{Name: string(k)})
		categoryIndex[k] = i
	}

	nodes := make([]opts.GraphNode, 0, len(g.Nodes))
	for _, u := range g.Nodes {
		nodes = append(nodes, opts.GraphNode{
			Name:       u.ID,
			Value:      float32(u.Degree),
			Category:   categoryIndex[u.Kind],
			SymbolSize: symbolSize(u.Degree),
		})
	}

	links := make([]opts.GraphLink, 0, len(g.Links))
	for _, e := range g.Links {
		links = append(links, opts.GraphLink{
			Source: e.Source,
			Target: e.Target,
			Value:  float32(len(e.Props)),
		})
	}

	subtitle := fmt.Sprintf("%d units, %d edges, %d state slots",
		len(g.Nodes), len(g.Links), len(g.StateVariables))

	chart := charts.NewGraph()
	chart.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{
			PageTitle: title,
			Width:     "100%",
			Height:    chartHeight,
		}),
		charts.WithTitleOpts(opts.Title{Title: title, Subtitle: subtitle}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
	)
	chart.AddSeries("units", nodes, links,
		charts.WithGraphChartOpts(opts.GraphChart{
			Layout:     "force",
			Roam:       opts.Bool(true),
			Draggable:  opts.Bool(true),
			EdgeSymbol: []string{"none", "arrow"},
			Force: &opts.GraphForce{
				Repulsion:  600,
				EdgeLength: 120,
			},
			Categories: categories,
		}),
		charts.WithLabelOpts(opts.Label{Show: opts.Bool(true), Position: "right"}),
	)
	return chart
}

func symbolSize(degree int) int {
	return min(baseSymbolSize+symbolSizePerDeg*degree, maxSymbolSize)
}
