package scene

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/banshee-data/plyviz/internal/pointcloud/ply"
)

// Vec converts a decoded point to a gonum vector.
func Vec(p ply.Point3) r3.Vec { return r3.Vec{X: p.X, Y: p.Y, Z: p.Z} }

// Bounds is an axis-aligned bounding box.
type Bounds struct {
	Min, Max r3.Vec
}

// BoundsOf returns the bounding box of every point in sets. ok is false
// when the sets hold no points.
func BoundsOf(sets ...ply.PointSet) (b Bounds, ok bool) {
	b = Bounds{
		Min: r3.Vec{X: math.Inf(1), Y: math.Inf(1), Z: math.Inf(1)},
		Max: r3.Vec{X: math.Inf(-1), Y: math.Inf(-1), Z: math.Inf(-1)},
	}
	for _, s := range sets {
		for _, p := range s {
			b.Min = r3.Vec{X: math.Min(b.Min.X, p.X), Y: math.Min(b.Min.Y, p.Y), Z: math.Min(b.Min.Z, p.Z)}
			b.Max = r3.Vec{X: math.Max(b.Max.X, p.X), Y: math.Max(b.Max.Y, p.Y), Z: math.Max(b.Max.Z, p.Z)}
			ok = true
		}
	}
	if !ok {
		return Bounds{}, false
	}
	return b, true
}

// Center returns the midpoint of the box.
func (b Bounds) Center() r3.Vec {
	return r3.Scale(0.5, r3.Add(b.Min, b.Max))
}

// Extent returns the per-axis size of the box. A zero-size axis reports 1
// so that flat or single-point clouds still get a usable frame.
func (b Bounds) Extent() r3.Vec {
	e := r3.Sub(b.Max, b.Min)
	if e.X == 0 {
		e.X = 1
	}
	if e.Y == 0 {
		e.Y = 1
	}
	if e.Z == 0 {
		e.Z = 1
	}
	return e
}

// MaxExtent returns the largest of the three axis extents.
func (b Bounds) MaxExtent() float64 {
	e := b.Extent()
	return math.Max(e.X, math.Max(e.Y, e.Z))
}

// offsetX returns a copy of points shifted by dx along X.
func offsetX(points ply.PointSet, dx float64) ply.PointSet {
	out := make(ply.PointSet, len(points))
	for i, p := range points {
		out[i] = ply.Point3{X: p.X + dx, Y: p.Y, Z: p.Z}
	}
	return out
}
