// Package scene turns merged point clouds and a sampled match selection into
// a renderer-agnostic description: point layers, highlighted match markers,
// dashed connectors and a cubic camera frame.
//
// The scene never draws anything. Rendering surfaces live in the render
// package.
package scene

import (
	"errors"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/banshee-data/plyviz/internal/pointcloud/pairing"
	"github.com/banshee-data/plyviz/internal/pointcloud/ply"
)

// ErrEmptyInput is returned when neither cloud holds a point.
var ErrEmptyInput = errors.New("scene: nothing to draw")

const (
	DefaultMargin       = 0.1
	DefaultOffsetFactor = 1.5

	singleOpacity = 0.6
	dualOpacity   = 0.4
	baseSize      = 2
	markerSize    = 6
	lineWidth     = 2

	sourceColor = "#2E5C8A"
	targetColor = "#8B4513"
)

// DefaultEye is the camera eye position used for every scene.
var DefaultEye = r3.Vec{X: 1.5, Y: 1.5, Z: 1.5}

// Mode is the layout of a scene.
type Mode int

const (
	ModeSingle Mode = iota
	ModeDual
)

func (m Mode) String() string {
	if m == ModeDual {
		return "dual"
	}
	return "single"
}

// Category tags a highlighted match as part of the static or the dynamic
// component.
type Category int

const (
	CategoryStatic Category = iota
	CategoryDynamic
)

// Color returns the marker and connector color of the category.
func (c Category) Color() string {
	if c == CategoryStatic {
		return "blue"
	}
	return "red"
}

// Symbol returns the marker shape of the category.
func (c Category) Symbol() string {
	if c == CategoryStatic {
		return "circle"
	}
	return "square"
}

// Label returns the legend text of the category.
func (c Category) Label() string {
	if c == CategoryStatic {
		return "Static match"
	}
	return "Dynamic match"
}

// Layer is one translucent base cloud.
type Layer struct {
	Name    string
	Points  ply.PointSet
	Color   string
	Opacity float64
	Size    float64
}

// Highlight is a single emphasised match endpoint. Label is empty for every
// highlight except the first of its category.
type Highlight struct {
	Point       r3.Vec
	Category    Category
	Label       string
	Size        float64
	BorderColor string
	// Pair is the index into the ground-truth pair list.
	Pair int
}

// Connector is the dashed segment joining a source highlight to its
// offset target highlight.
type Connector struct {
	From, To r3.Vec
	Category Category
	Width    float64
	Dashed   bool
}

// Camera frames the scene: every axis spans Center ± HalfRange.
type Camera struct {
	Center    r3.Vec
	HalfRange float64
	Aspect    string
	Eye       r3.Vec
}

// Range returns the low and high ends of the X, Y and Z axes.
func (c Camera) Range() (lo, hi r3.Vec) {
	h := r3.Vec{X: c.HalfRange, Y: c.HalfRange, Z: c.HalfRange}
	return r3.Sub(c.Center, h), r3.Add(c.Center, h)
}

// Scene is the complete render-ready description.
type Scene struct {
	Mode       Mode
	Title      string
	Layers     []Layer
	Highlights []Highlight
	Connectors []Connector
	Camera     Camera
	// TargetOffset is the X shift applied to the target layer in dual mode.
	TargetOffset float64
	StaticSize   int
}

// Options tune scene construction.
type Options struct {
	Margin       float64
	OffsetFactor float64
	Title        string
}

// DefaultOptions returns the standard framing parameters.
func DefaultOptions() Options {
	return Options{Margin: DefaultMargin, OffsetFactor: DefaultOffsetFactor}
}

func (o Options) normalized() Options {
	if o.Margin < 0 {
		o.Margin = DefaultMargin
	}
	if o.OffsetFactor <= 0 {
		o.OffsetFactor = DefaultOffsetFactor
	}
	return o
}

// Build assembles a scene. An empty target selects single-cloud mode,
// where selection and staticSize are ignored. In dual mode every selected
// pair index below min(|source|, |target|) yields two highlights and one
// connector; other indices are skipped.
func Build(source, target ply.PointSet, selection pairing.Selection, staticSize int, opts Options) (*Scene, error) {
	if len(source) == 0 && len(target) == 0 {
		return nil, ErrEmptyInput
	}
	opts = opts.normalized()

	if len(target) == 0 {
		return buildSingle(source, opts), nil
	}
	return buildDual(source, target, selection, staticSize, opts), nil
}

func buildSingle(source ply.PointSet, opts Options) *Scene {
	title := opts.Title
	if title == "" {
		title = "Point Cloud"
	}
	b, _ := BoundsOf(source)
	return &Scene{
		Mode:  ModeSingle,
		Title: title,
		Layers: []Layer{{
			Name:    title,
			Points:  source,
			Color:   sourceColor,
			Opacity: singleOpacity,
			Size:    baseSize,
		}},
		Camera: frame(b, opts.Margin),
	}
}

func buildDual(source, target ply.PointSet, selection pairing.Selection, staticSize int, opts Options) *Scene {
	title := opts.Title
	if title == "" {
		title = "Point Cloud Matches"
	}

	combined, _ := BoundsOf(source, target)
	offset := opts.OffsetFactor * combined.MaxExtent()
	shifted := offsetX(target, offset)

	s := &Scene{
		Mode:  ModeDual,
		Title: title,
		Layers: []Layer{
			{Name: "Source", Points: source, Color: sourceColor, Opacity: dualOpacity, Size: baseSize},
			{Name: "Target", Points: shifted, Color: targetColor, Opacity: dualOpacity, Size: baseSize},
		},
		TargetOffset: offset,
		StaticSize:   staticSize,
	}

	pairs := pairing.GroundTruthPairs(source, shifted)
	labelled := map[Category]bool{}
	for _, idx := range selection {
		if idx < 0 || idx >= len(pairs) {
			continue
		}
		pair := pairs[idx]
		cat := CategoryDynamic
		if pair.IsStatic(staticSize) {
			cat = CategoryStatic
		}
		label := ""
		if !labelled[cat] {
			label = cat.Label()
			labelled[cat] = true
		}

		from := Vec(source[pair.SourceIndex])
		to := Vec(shifted[pair.TargetIndex])
		s.Highlights = append(s.Highlights,
			Highlight{Point: from, Category: cat, Label: label, Size: markerSize, BorderColor: "black", Pair: idx},
			Highlight{Point: to, Category: cat, Size: markerSize, BorderColor: "black", Pair: idx},
		)
		s.Connectors = append(s.Connectors, Connector{From: from, To: to, Category: cat, Width: lineWidth, Dashed: true})
	}

	framed, _ := BoundsOf(source, shifted)
	s.Camera = frame(framed, opts.Margin)
	return s
}

func frame(b Bounds, margin float64) Camera {
	return Camera{
		Center:    b.Center(),
		HalfRange: b.MaxExtent() / 2 * (1 + margin),
		Aspect:    "cube",
		Eye:       DefaultEye,
	}
}
