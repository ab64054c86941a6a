// Package render draws scenes. EChartsRenderer produces an interactive 3D
// HTML page; ProjectionRenderer produces a static PNG projection.
package render

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/banshee-data/plyviz/internal/pointcloud/scene"
)

// DefaultAssetsHost serves the echarts JavaScript bundles.
const DefaultAssetsHost = "https://go-echarts.github.io/go-echarts-assets/assets/"

// dashSteps is the number of dots drawn along each connector. Scatter3D has
// no dashed line style, so connectors are rendered as dotted segments.
const dashSteps = 24

// EChartsRenderer writes a Scatter3D HTML page for each scene.
type EChartsRenderer struct {
	W          io.Writer
	Width      string
	Height     string
	AssetsHost string
}

// Render writes the HTML page for s to r.W.
func (r *EChartsRenderer) Render(ctx context.Context, s *scene.Scene) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	chart := r.Chart(s)
	var buf bytes.Buffer
	if err := chart.Render(&buf); err != nil {
		return fmt.Errorf("render echarts page: %w", err)
	}
	_, err := r.W.Write(buf.Bytes())
	return err
}

// Chart builds the Scatter3D chart for s without rendering it.
func (r *EChartsRenderer) Chart(s *scene.Scene) *charts.Scatter3D {
	width, height := r.Width, r.Height
	if width == "" {
		width = "900px"
	}
	if height == "" {
		height = "900px"
	}
	assets := r.AssetsHost
	if assets == "" {
		assets = DefaultAssetsHost
	}

	lo, hi := s.Camera.Range()
	subtitle := fmt.Sprintf("mode=%s points=%d matches=%d", s.Mode, pointCount(s), len(s.Connectors))

	chart := charts.NewScatter3D()
	chart.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: s.Title, Width: width, Height: height, AssetsHost: assets}),
		charts.WithTitleOpts(opts.Title{Title: s.Title, Subtitle: subtitle}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true), Left: "2%", Top: "2%"}),
		charts.WithXAxis3DOpts(opts.XAxis3D{Name: "X", Min: lo.X, Max: hi.X}),
		charts.WithYAxis3DOpts(opts.YAxis3D{Name: "Y", Min: lo.Y, Max: hi.Y}),
		charts.WithZAxis3DOpts(opts.ZAxis3D{Name: "Z", Min: lo.Z, Max: hi.Z}),
		// Equal box sides give the cubic aspect.
		charts.WithGrid3DOpts(opts.Grid3D{BoxWidth: 100, BoxHeight: 100, BoxDepth: 100}),
	)

	for _, l := range s.Layers {
		data := make([]opts.Chart3DData, len(l.Points))
		for i, p := range l.Points {
			data[i] = opts.Chart3DData{Value: []interface{}{p.X, p.Y, p.Z}}
		}
		chart.AddSeries(l.Name, data,
			withSymbol("circle", l.Size),
			charts.WithItemStyleOpts(opts.ItemStyle{Color: rgba(l.Color, l.Opacity)}),
		)
	}

	for _, cat := range []scene.Category{scene.CategoryStatic, scene.CategoryDynamic} {
		name := legendName(s, cat)
		if name == "" {
			continue
		}
		var markers, dots []opts.Chart3DData
		for _, h := range s.Highlights {
			if h.Category == cat {
				markers = append(markers, opts.Chart3DData{Value: []interface{}{h.Point.X, h.Point.Y, h.Point.Z}})
			}
		}
		var width float64
		for _, c := range s.Connectors {
			if c.Category != cat {
				continue
			}
			width = c.Width
			for k := 1; k < dashSteps; k++ {
				if c.Dashed && k%2 == 0 {
					continue
				}
				t := float64(k) / dashSteps
				dots = append(dots, opts.Chart3DData{Value: []interface{}{
					c.From.X + t*(c.To.X-c.From.X),
					c.From.Y + t*(c.To.Y-c.From.Y),
					c.From.Z + t*(c.To.Z-c.From.Z),
				}})
			}
		}
		size := 6.0
		border := "black"
		for _, h := range s.Highlights {
			if h.Category == cat {
				size, border = h.Size, h.BorderColor
				break
			}
		}
		chart.AddSeries(name, markers,
			withSymbol(echartsSymbol(cat.Symbol()), size),
			charts.WithItemStyleOpts(opts.ItemStyle{Color: cat.Color(), BorderColor: border}),
		)
		if len(dots) > 0 {
			chart.AddSeries(name, dots,
				withSymbol("circle", width),
				charts.WithItemStyleOpts(opts.ItemStyle{Color: cat.Color()}),
			)
		}
	}
	return chart
}

func withSymbol(symbol string, size float64) charts.SeriesOpts {
	return func(s *charts.SingleSeries) {
		s.Symbol = symbol
		s.SymbolSize = size
	}
}

// legendName returns the label carried by the first highlight of cat.
func legendName(s *scene.Scene, cat scene.Category) string {
	for _, h := range s.Highlights {
		if h.Category == cat && h.Label != "" {
			return h.Label
		}
	}
	return ""
}

func echartsSymbol(shape string) string {
	if shape == "square" {
		return "rect"
	}
	return shape
}

func pointCount(s *scene.Scene) int {
	n := 0
	for _, l := range s.Layers {
		n += len(l.Points)
	}
	return n
}

// rgba turns "#RRGGBB" plus an opacity into a CSS rgba() color. Other
// color strings are returned unchanged.
func rgba(hex string, opacity float64) string {
	h := strings.TrimPrefix(hex, "#")
	if len(h) != 6 {
		return hex
	}
	v, err := strconv.ParseUint(h, 16, 32)
	if err != nil {
		return hex
	}
	return fmt.Sprintf("rgba(%d,%d,%d,%g)", v>>16&0xff, v>>8&0xff, v&0xff, opacity)
}
