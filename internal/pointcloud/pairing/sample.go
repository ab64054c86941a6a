package pairing

import (
	"math/rand/v2"

	"gonum.org/v1/gonum/stat/sampleuv"

	"github.com/banshee-data/plyviz/internal/pointcloud/ply"
)

// DefaultMaxVisible is the number of match pairs annotated in a scene.
const DefaultMaxVisible = 20

// MatchPair is one ground-truth correspondence. SourceIndex always equals
// TargetIndex.
type MatchPair struct {
	SourceIndex int
	TargetIndex int
}

// IsStatic reports whether the pair lies in the static segment.
func (p MatchPair) IsStatic(staticSize int) bool {
	return p.SourceIndex < staticSize
}

// Selection is a shuffled list of indices into the pair list.
type Selection []int

// GroundTruthPairs returns (i, i) for every index shared by both clouds.
func GroundTruthPairs(source, target ply.PointSet) []MatchPair {
	n := min(len(source), len(target))
	pairs := make([]MatchPair, n)
	for i := range pairs {
		pairs[i] = MatchPair{SourceIndex: i, TargetIndex: i}
	}
	return pairs
}

// Sample draws up to maxVisible pair indices, half from the static pool
// (index < staticSize) and half from the dynamic pool, without
// replacement, then shuffles the combined list. The static half takes
// floor(n/2); either half is truncated when its pool is smaller. A nil rng
// uses the default random source.
func Sample(pairs []MatchPair, staticSize, maxVisible int, rng *rand.Rand) Selection {
	if maxVisible <= 0 {
		maxVisible = DefaultMaxVisible
	}
	n := min(maxVisible, len(pairs))
	numStatic := n / 2
	numDynamic := n - numStatic

	staticEnd := min(max(staticSize, 0), len(pairs))

	sel := make(Selection, 0, n)
	sel = drawRange(sel, 0, staticEnd, numStatic, rng)
	sel = drawRange(sel, staticEnd, len(pairs), numDynamic, rng)

	if rng != nil {
		rng.Shuffle(len(sel), func(i, j int) { sel[i], sel[j] = sel[j], sel[i] })
	} else {
		rand.Shuffle(len(sel), func(i, j int) { sel[i], sel[j] = sel[j], sel[i] })
	}
	return sel
}

// SampleClouds is the convenience path used by the pipeline: pairs are
// derived from the clouds and sampled in one go.
func SampleClouds(m MergedClouds, maxVisible int, rng *rand.Rand) ([]MatchPair, Selection) {
	pairs := GroundTruthPairs(m.Source, m.Target)
	return pairs, Sample(pairs, m.StaticSize, maxVisible, rng)
}

// drawRange appends up to want distinct indices from [lo, hi) to dst.
func drawRange(dst Selection, lo, hi, want int, rng *rand.Rand) Selection {
	pool := hi - lo
	k := min(want, pool)
	if k <= 0 {
		return dst
	}
	idxs := make([]int, k)
	var src rand.Source
	if rng != nil {
		src = rng
	}
	sampleuv.WithoutReplacement(idxs, pool, src)
	for _, i := range idxs {
		dst = append(dst, lo+i)
	}
	return dst
}
