package dashboard

import (
	"image/color"
	"math"
	"os"
	"path/filepath"

	"github.com/fogleman/gg"

	"github.com/turtacn/vizcrn/internal/domain/network"
	"github.com/turtacn/vizcrn/pkg/errors"
)

const (
	previewMargin = 40.0
	previewRadius = 6.0
)

// Preview draws a static PNG of g using the same layout and coloring as the
// page.
func (r *Renderer) Preview(path string, g *network.Graph, opts Options) error {
	if opts.Layout == nil {
		opts.Layout = SpringLayout
	}
	if opts.Width <= 0 || opts.Height <= 0 {
		return errors.New(errors.CodeRenderFailed, "preview size must be positive").
			WithDetailf("%dx%d", opts.Width, opts.Height)
	}
	pos := Normalize(opts.Layout(g))

	nodes := g.Nodes()
	values := make([]float64, len(nodes))
	lo, hi := math.Inf(1), math.Inf(-1)
	for i, n := range nodes {
		v, err := ColorValue(n, opts.MapField)
		if err != nil {
			return err
		}
		values[i] = v
		lo, hi = math.Min(lo, v), math.Max(hi, v)
	}

	w, h := float64(opts.Width), float64(opts.Height)
	scale := math.Min(w, h) - 2*previewMargin
	at := func(id int64) (float64, float64) {
		p := pos[id]
		return previewMargin + p.X*scale, h - previewMargin - p.Y*scale
	}

	dc := gg.NewContext(opts.Width, opts.Height)
	dc.SetColor(color.White)
	dc.Clear()

	dc.SetRGB(0.6, 0.6, 0.6)
	dc.SetLineWidth(1)
	for _, e := range g.Edges() {
		x1, y1 := at(e.FromID)
		x2, y2 := at(e.ToID)
		dc.DrawLine(x1, y1, x2, y2)
		dc.Stroke()
	}

	for i, n := range nodes {
		x, y := at(n.ID)
		dc.SetColor(ramp(values[i], lo, hi))
		if n.Adduct {
			dc.DrawRegularPolygon(4, x, y, previewRadius*1.3, 0)
		} else {
			dc.DrawCircle(x, y, previewRadius)
		}
		dc.Fill()
		dc.SetRGB(0, 0, 0)
		dc.DrawStringAnchored(n.Name, x, y-previewRadius-2, 0.5, 0)
	}

	if opts.Title != "" {
		dc.SetRGB(0, 0, 0)
		dc.DrawStringAnchored(opts.Title, w/2, previewMargin/2, 0.5, 0.5)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.Wrap(err, errors.ErrCodeIO, "create preview directory").WithDetail(path)
	}
	if err := dc.SavePNG(path); err != nil {
		return errors.Wrap(err, errors.CodeRenderFailed, "write preview").WithDetail(path)
	}
	return nil
}

// ramp maps v in [lo, hi] from blue to red.
func ramp(v, lo, hi float64) color.Color {
	t := 0.5
	if hi > lo {
		t = (v - lo) / (hi - lo)
	}
	return color.RGBA{R: uint8(255 * t), G: 64, B: uint8(255 * (1 - t)), A: 255}
}
