package render

import (
	"context"
	"fmt"
	"image/color"
	"io"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/spatial/r3"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"github.com/banshee-data/plyviz/internal/pointcloud/scene"
)

// Plane selects the two axes a ProjectionRenderer draws.
type Plane int

const (
	// PlaneXY is the top-down view.
	PlaneXY Plane = iota
	// PlaneXZ is the front view.
	PlaneXZ
	// PlaneYZ is the side view.
	PlaneYZ
)

func (p Plane) String() string {
	switch p {
	case PlaneXZ:
		return "xz"
	case PlaneYZ:
		return "yz"
	default:
		return "xy"
	}
}

// ParsePlane maps "xy", "xz" or "yz" to a Plane.
func ParsePlane(s string) (Plane, error) {
	switch strings.ToLower(s) {
	case "", "xy":
		return PlaneXY, nil
	case "xz":
		return PlaneXZ, nil
	case "yz":
		return PlaneYZ, nil
	default:
		return PlaneXY, fmt.Errorf("unknown projection plane %q", s)
	}
}

func (p Plane) project(v r3.Vec) (float64, float64) {
	switch p {
	case PlaneXZ:
		return v.X, v.Z
	case PlaneYZ:
		return v.Y, v.Z
	default:
		return v.X, v.Y
	}
}

func (p Plane) labels() (string, string) {
	switch p {
	case PlaneXZ:
		return "X", "Z"
	case PlaneYZ:
		return "Y", "Z"
	default:
		return "X", "Y"
	}
}

// ProjectionRenderer writes a PNG projection of each scene onto a plane.
type ProjectionRenderer struct {
	W      io.Writer
	Plane  Plane
	Width  vg.Length
	Height vg.Length
	// Tight fits the axes to the projected points instead of the camera
	// frame.
	Tight bool
}

// Render writes the PNG for s to r.W.
func (r *ProjectionRenderer) Render(ctx context.Context, s *scene.Scene) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p, err := r.Plot(s)
	if err != nil {
		return err
	}
	width, height := r.Width, r.Height
	if width <= 0 {
		width = 8 * vg.Inch
	}
	if height <= 0 {
		height = 8 * vg.Inch
	}
	wt, err := p.WriterTo(width, height, "png")
	if err != nil {
		return fmt.Errorf("encode projection: %w", err)
	}
	if _, err := wt.WriteTo(r.W); err != nil {
		return fmt.Errorf("write projection: %w", err)
	}
	return nil
}

// Plot builds the plot for s without encoding it.
func (r *ProjectionRenderer) Plot(s *scene.Scene) (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = s.Title
	xl, yl := r.Plane.labels()
	p.X.Label.Text = xl
	p.Y.Label.Text = yl
	p.Legend.Top = true
	p.Legend.Left = true

	var xs, ys []float64
	for _, l := range s.Layers {
		pts := make(plotter.XYs, len(l.Points))
		for i, pt := range l.Points {
			pts[i].X, pts[i].Y = r.Plane.project(scene.Vec(pt))
			xs = append(xs, pts[i].X)
			ys = append(ys, pts[i].Y)
		}
		sc, err := plotter.NewScatter(pts)
		if err != nil {
			return nil, fmt.Errorf("layer %s: %w", l.Name, err)
		}
		sc.GlyphStyle.Color = parseColor(l.Color, l.Opacity)
		sc.GlyphStyle.Radius = vg.Points(l.Size / 2)
		sc.GlyphStyle.Shape = draw.CircleGlyph{}
		p.Add(sc)
		p.Legend.Add(l.Name, sc)
	}

	for _, c := range s.Connectors {
		x0, y0 := r.Plane.project(c.From)
		x1, y1 := r.Plane.project(c.To)
		line, err := plotter.NewLine(plotter.XYs{{X: x0, Y: y0}, {X: x1, Y: y1}})
		if err != nil {
			return nil, fmt.Errorf("connector: %w", err)
		}
		line.Color = parseColor(c.Category.Color(), 1)
		line.Width = vg.Points(c.Width / 2)
		if c.Dashed {
			line.Dashes = []vg.Length{vg.Points(4), vg.Points(3)}
		}
		p.Add(line)
	}

	for _, h := range s.Highlights {
		x, y := r.Plane.project(h.Point)
		pts := plotter.XYs{{X: x, Y: y}}
		fill, err := plotter.NewScatter(pts)
		if err != nil {
			return nil, fmt.Errorf("highlight: %w", err)
		}
		fill.GlyphStyle.Color = parseColor(h.Category.Color(), 1)
		fill.GlyphStyle.Radius = vg.Points(h.Size / 2)
		fill.GlyphStyle.Shape = glyph(h.Category)
		p.Add(fill)
		if h.BorderColor != "" {
			border, err := plotter.NewScatter(pts)
			if err != nil {
				return nil, fmt.Errorf("highlight: %w", err)
			}
			border.GlyphStyle = fill.GlyphStyle
			border.GlyphStyle.Color = parseColor(h.BorderColor, 1)
			border.GlyphStyle.Shape = outline(h.Category)
			p.Add(border)
		}
		if h.Label != "" {
			p.Legend.Add(h.Label, fill)
		}
	}

	if r.Tight && len(xs) > 0 {
		p.X.Min, p.X.Max = floats.Min(xs), floats.Max(xs)
		p.Y.Min, p.Y.Max = floats.Min(ys), floats.Max(ys)
	} else {
		lo, hi := s.Camera.Range()
		p.X.Min, p.Y.Min = r.Plane.project(lo)
		p.X.Max, p.Y.Max = r.Plane.project(hi)
	}
	return p, nil
}

func glyph(c scene.Category) draw.GlyphDrawer {
	if c == scene.CategoryStatic {
		return draw.CircleGlyph{}
	}
	return draw.BoxGlyph{}
}

func outline(c scene.Category) draw.GlyphDrawer {
	if c == scene.CategoryStatic {
		return draw.RingGlyph{}
	}
	return draw.SquareGlyph{}
}

var namedColors = map[string]color.NRGBA{
	"blue":  {B: 255, A: 255},
	"red":   {R: 255, A: 255},
	"black": {A: 255},
}

// parseColor accepts "#RRGGBB" or one of a few color names.
func parseColor(s string, opacity float64) color.Color {
	alpha := uint8(clamp01(opacity) * 255)
	if c, ok := namedColors[strings.ToLower(s)]; ok {
		c.A = alpha
		return c
	}
	h := strings.TrimPrefix(s, "#")
	v, err := strconv.ParseUint(h, 16, 32)
	if err != nil || len(h) != 6 {
		return color.NRGBA{A: alpha}
	}
	return color.NRGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: alpha}
}

func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
