// Package synthetic builds articulated demo objects and encodes them as
// PLY files. It backs the gen-ply tool and the pipeline tests.
package synthetic

import (
	"math"
	"math/rand/v2"

	"github.com/banshee-data/plyviz/internal/pointcloud/ply"
)

// Object is a two-part articulated point cloud: a rigid body and a lid
// captured at two hinge angles. StartDynamic[i] and EndDynamic[i] are the
// same physical lid point.
type Object struct {
	Static       ply.PointSet
	StartDynamic ply.PointSet
	EndDynamic   ply.PointSet
}

// Generator produces laptop-like objects: a flat base box with a lid hinged
// along the base's back edge.
type Generator struct {
	// Configuration
	StaticPoints  int     // points sampled on the base surface
	DynamicPoints int     // points sampled on the lid
	Width         float64 // base extent along X (metres)
	Depth         float64 // base extent along Y (metres)
	Height        float64 // base extent along Z (metres)
	StartAngleDeg float64 // lid opening angle of the start capture
	EndAngleDeg   float64 // lid opening angle of the end capture
	Noise         float64 // per-axis uniform jitter amplitude (metres)

	rng *rand.Rand
}

// NewGenerator returns a generator with demo defaults. A fixed seed makes
// output reproducible.
func NewGenerator(seed uint64) *Generator {
	return &Generator{
		StaticPoints:  2000,
		DynamicPoints: 1500,
		Width:         0.32,
		Depth:         0.22,
		Height:        0.02,
		StartAngleDeg: 10,
		EndAngleDeg:   100,
		Noise:         0.0005,
		rng:           rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
	}
}

// Generate samples a new object.
func (g *Generator) Generate() Object {
	obj := Object{
		Static:       make(ply.PointSet, 0, g.StaticPoints),
		StartDynamic: make(ply.PointSet, 0, g.DynamicPoints),
		EndDynamic:   make(ply.PointSet, 0, g.DynamicPoints),
	}

	for range g.StaticPoints {
		obj.Static = append(obj.Static, g.jitter(g.baseSurfacePoint()))
	}

	start := g.StartAngleDeg * math.Pi / 180
	end := g.EndAngleDeg * math.Pi / 180
	for range g.DynamicPoints {
		u := g.rng.Float64() * g.Width
		v := g.rng.Float64() * g.Depth
		obj.StartDynamic = append(obj.StartDynamic, g.jitter(g.lidPoint(u, v, start)))
		obj.EndDynamic = append(obj.EndDynamic, g.jitter(g.lidPoint(u, v, end)))
	}
	return obj
}

// baseSurfacePoint samples the top or bottom face of the base box. Side
// faces are thin enough to skip.
func (g *Generator) baseSurfacePoint() ply.Point3 {
	z := 0.0
	if g.rng.IntN(2) == 1 {
		z = g.Height
	}
	return ply.Point3{
		X: g.rng.Float64() * g.Width,
		Y: g.rng.Float64() * g.Depth,
		Z: z,
	}
}

// lidPoint places lid coordinate (u, v) for a lid opened by angle radians
// about the hinge line y = Depth, z = Height. Angle 0 is closed flat on the
// base; π/2 is upright.
func (g *Generator) lidPoint(u, v, angle float64) ply.Point3 {
	r := g.Depth - v // distance from the hinge
	return ply.Point3{
		X: u,
		Y: g.Depth - r*math.Cos(angle),
		Z: g.Height + r*math.Sin(angle),
	}
}

func (g *Generator) jitter(p ply.Point3) ply.Point3 {
	if g.Noise == 0 {
		return p
	}
	j := func() float64 { return (g.rng.Float64()*2 - 1) * g.Noise }
	return ply.Point3{X: p.X + j(), Y: p.Y + j(), Z: p.Z + j()}
}
