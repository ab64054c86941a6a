package pairing

import (
	"errors"

	"github.com/banshee-data/plyviz/internal/pointcloud/ply"
)

// ErrEmptySource is returned when static and start-dynamic inputs hold no
// points between them.
var ErrEmptySource = errors.New("pairing: no points extracted for the source cloud")

// MergedClouds is the source/target pair built from one batch.
//
//	Source = static ++ startDynamic
//	Target = static ++ endDynamic
type MergedClouds struct {
	Source     ply.PointSet
	Target     ply.PointSet
	StaticSize int
	// ComponentSizes is [static] followed by the start-dynamic size when
	// it is non-zero.
	ComponentSizes []int
}

// Accumulator collects decoded point sets per role in upload order.
type Accumulator struct {
	sets map[Role][]ply.PointSet
}

// NewAccumulator returns an empty accumulator.
func NewAccumulator() *Accumulator {
	return &Accumulator{sets: make(map[Role][]ply.PointSet)}
}

// Add appends points under role.
func (a *Accumulator) Add(role Role, points ply.PointSet) {
	a.sets[role] = append(a.sets[role], points)
}

// Count returns the total number of points held for role.
func (a *Accumulator) Count(role Role) int {
	n := 0
	for _, s := range a.sets[role] {
		n += len(s)
	}
	return n
}

// HasStatic reports whether any static point has been collected.
func (a *Accumulator) HasStatic() bool { return a.Count(RoleStatic) > 0 }

// HasStartDynamic reports whether any start-dynamic point has been collected.
func (a *Accumulator) HasStartDynamic() bool { return a.Count(RoleStartDynamic) > 0 }

// Merge builds the merged clouds from what has been collected.
func (a *Accumulator) Merge() (MergedClouds, error) {
	return Merge(a.sets)
}

// Merge concatenates point sets per role (in slice order) and builds the
// source and target clouds. Sets filed under RoleUnknown are ignored. The
// target may be empty; callers then fall back to a single-cloud view.
func Merge(sets map[Role][]ply.PointSet) (MergedClouds, error) {
	static := concat(sets[RoleStatic])
	start := concat(sets[RoleStartDynamic])
	end := concat(sets[RoleEndDynamic])

	m := MergedClouds{
		Source:         make(ply.PointSet, 0, len(static)+len(start)),
		Target:         make(ply.PointSet, 0, len(static)+len(end)),
		StaticSize:     len(static),
		ComponentSizes: []int{len(static)},
	}
	m.Source = append(append(m.Source, static...), start...)
	m.Target = append(append(m.Target, static...), end...)
	if len(start) > 0 {
		m.ComponentSizes = append(m.ComponentSizes, len(start))
	}

	if len(m.Source) == 0 {
		return MergedClouds{}, ErrEmptySource
	}
	return m, nil
}

func concat(sets []ply.PointSet) ply.PointSet {
	n := 0
	for _, s := range sets {
		n += len(s)
	}
	out := make(ply.PointSet, 0, n)
	for _, s := range sets {
		out = append(out, s...)
	}
	return out
}
