// Package dashboard lays out a reaction network and renders it as a single
// interactive HTML page or a static PNG preview.
package dashboard

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"
	"html/template"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/turtacn/vizcrn/internal/domain/network"
	"github.com/turtacn/vizcrn/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/vizcrn/pkg/errors"
)

// Node coloring fields.
const (
	FieldEnergy = "energy"
	FieldDegree = "degree"
	FieldZPVE   = "ZPVE"
)

// DefaultPlotlyURL is the plotly.js bundle referenced by rendered pages.
const DefaultPlotlyURL = "https://cdn.plot.ly/plotly-2.27.0.min.js"

//go:embed templates/network.html
var templateFS embed.FS

var pageTemplate = template.Must(template.ParseFS(templateFS, "templates/network.html"))

// Options controls one rendering.
type Options struct {
	Title     string
	Width     int
	Height    int
	MapField  string
	Layout    LayoutFunc
	PlotlyURL string
}

// ColorValue returns the value of field used to color n.
func ColorValue(n *network.Node, field string) (float64, error) {
	switch field {
	case FieldEnergy, "":
		return n.Energy, nil
	case FieldDegree:
		return float64(n.Degree), nil
	case FieldZPVE:
		return n.ZPVE, nil
	}
	return 0, errors.New(errors.CodeInvalidParam, "unknown map field").WithDetail(field)
}

// Renderer produces dashboard pages.
type Renderer struct {
	logger logging.Logger
}

func NewRenderer(logger logging.Logger) *Renderer {
	return &Renderer{logger: logger.Named("dashboard")}
}

type pageData struct {
	Title     string
	Width     int
	Height    int
	NodeCount int
	EdgeCount int
	PlotlyURL string
	Figure    template.JS
}

// Render writes a self-contained page for g to w.
func (r *Renderer) Render(w io.Writer, g *network.Graph, opts Options) error {
	if opts.Layout == nil {
		opts.Layout = SpringLayout
	}
	if opts.PlotlyURL == "" {
		opts.PlotlyURL = DefaultPlotlyURL
	}
	pos := opts.Layout(g)

	fig, err := buildFigure(g, pos, opts)
	if err != nil {
		return err
	}
	raw, err := json.Marshal(fig)
	if err != nil {
		return errors.Wrap(err, errors.CodeRenderFailed, "encode figure")
	}

	data := pageData{
		Title:     opts.Title,
		Width:     opts.Width,
		Height:    opts.Height,
		NodeCount: g.NodeCount(),
		EdgeCount: g.EdgeCount(),
		PlotlyURL: opts.PlotlyURL,
		Figure:    template.JS(raw),
	}
	if err := pageTemplate.Execute(w, data); err != nil {
		return errors.Wrap(err, errors.CodeRenderFailed, "execute page template")
	}
	r.logger.Debug("page rendered", logging.Int("nodes", data.NodeCount), logging.Int("edges", data.EdgeCount))
	return nil
}

// RenderFile renders into path, replacing it only once rendering succeeded.
func (r *Renderer) RenderFile(path string, g *network.Graph, opts Options) error {
	var buf bytes.Buffer
	if err := r.Render(&buf, g, opts); err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return errors.Wrap(err, errors.ErrCodeIO, "create output directory").WithDetail(dir)
		}
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return errors.Wrap(err, errors.ErrCodeIO, "write page").WithDetail(path)
	}
	r.logger.Info("dashboard written", logging.String("path", path), logging.Int("bytes", buf.Len()))
	return nil
}

type trace map[string]any

type figure struct {
	Data   []trace        `json:"data"`
	Layout map[string]any `json:"layout"`
}

func buildFigure(g *network.Graph, pos Positions, opts Options) (*figure, error) {
	var ex, ey []any
	var mx, my []float64
	var mtext, mhover, mgeom []string
	for _, e := range g.Edges() {
		a, b := pos[e.FromID], pos[e.ToID]
		ex = append(ex, a.X, b.X, nil)
		ey = append(ey, a.Y, b.Y, nil)
		mx = append(mx, (a.X+b.X)/2)
		my = append(my, (a.Y+b.Y)/2)
		mtext = append(mtext, e.Name)
		mhover = append(mhover, edgeHover(e))
		mgeom = append(mgeom, e.Geometry)
	}

	nodes := g.Nodes()
	nx := make([]float64, len(nodes))
	ny := make([]float64, len(nodes))
	color := make([]float64, len(nodes))
	symbols := make([]string, len(nodes))
	names := make([]string, len(nodes))
	hover := make([]string, len(nodes))
	geom := make([]string, len(nodes))
	for i, n := range nodes {
		p := pos[n.ID]
		nx[i], ny[i] = p.X, p.Y
		v, err := ColorValue(n, opts.MapField)
		if err != nil {
			return nil, err
		}
		color[i] = v
		symbols[i] = "circle"
		if n.Adduct {
			symbols[i] = "diamond"
		}
		names[i] = n.Name
		hover[i] = nodeHover(n)
		geom[i] = n.Geometry
	}

	field := opts.MapField
	if field == "" {
		field = FieldEnergy
	}
	return &figure{
		Data: []trace{
			{
				"type": "scatter", "mode": "lines", "x": ex, "y": ey,
				"hoverinfo": "none", "showlegend": false,
				"line": map[string]any{"width": 1, "color": "#888"},
			},
			{
				"type": "scatter", "mode": "markers", "x": mx, "y": my,
				"text": mtext, "hovertext": mhover, "hoverinfo": "text", "customdata": mgeom,
				"name": "elementary steps",
				"marker": map[string]any{"size": 6, "color": "#bbb", "symbol": "square"},
			},
			{
				"type": "scatter", "mode": "markers", "x": nx, "y": ny,
				"text": names, "hovertext": hover, "hoverinfo": "text", "customdata": geom,
				"name": "species",
				"marker": map[string]any{
					"size": 12, "color": color, "symbol": symbols,
					"colorscale": "Viridis", "showscale": true,
					"colorbar": map[string]any{"title": field},
				},
			},
		},
		Layout: map[string]any{
			"title":      opts.Title,
			"width":      opts.Width,
			"height":     opts.Height,
			"hovermode":  "closest",
			"showlegend": false,
			"xaxis":      map[string]any{"visible": false},
			"yaxis":      map[string]any{"visible": false, "scaleanchor": "x"},
		},
	}, nil
}

func nodeHover(n *network.Node) string {
	return strings.Join([]string{
		n.Name,
		fmt.Sprintf("energy: %.2f kJ/mol", n.Energy),
		"formula: " + n.Formula,
		"charge: " + n.Charge,
		"multiplicity: " + n.Multiplicity,
		fmt.Sprintf("degree: %d", n.Degree),
		"neighbors: " + strings.Join(n.Neighbors, ", "),
	}, "<br>")
}

func edgeHover(e *network.Edge) string {
	lines := []string{
		e.Name,
		fmt.Sprintf("ΔE1: %s %s", e.DeltaE1, e.From),
		fmt.Sprintf("ΔE2: %s %s", e.DeltaE2, e.To),
	}
	if e.Barrierless {
		lines = append(lines, "barrierless")
	} else {
		lines = append(lines, fmt.Sprintf("energy: %.2f kJ/mol", e.Energy), "formula: "+e.Formula)
	}
	return strings.Join(lines, "<br>")
}
