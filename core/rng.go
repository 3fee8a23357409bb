package core

import (
	"math/rand/v2"

	"gonum.org/v1/gonum/stat/distuv"
)

// DefaultLanes is the number of paths packed into one lane group. Every lane
// group draws from its own random stream.
const DefaultLanes = 8

func laneStream(seed, stream uint64, group int) *rand.Rand {
	return rand.New(rand.NewPCG(seed, stream<<32|uint64(group)))
}

// stratifiedNormal returns a standard normal draw from stratum i of n.
func stratifiedNormal(rng *rand.Rand, i, n int) float64 {
	u := rng.Float64()
	for u == 0 {
		u = rng.Float64()
	}

	return distuv.UnitNormal.Quantile((float64(i) + u) / float64(n))
}

func numGroups(paths, lanes int) int {
	return (paths + lanes - 1) / lanes
}

func groupRange(group, lanes, paths int) (int, int) {
	lo := group * lanes
	hi := lo + lanes
	if hi > paths {
		hi = paths
	}

	return lo, hi
}
