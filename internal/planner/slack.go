package planner

import "knitc/internal/machine"

// Params bundles the planner's derived and caller-supplied parameters
// (spec §4.E).
type Params struct {
	MaxRacking float64
	Slack      []int // slack[i] between consecutive loop i and i+1
	MinFree    int
	MaxFree    int
}

// ComputeSlack derives slack[i] = max(2, max(|S[i+1]-S[i]|, |T[i+1]-T[i]|))
// over consecutive indices, wrapping around for circular slices (spec
// §4.E). len(sources) must equal len(targets).
func ComputeSlack(sources, targets []machine.Needle, circular bool) []int {
	n := len(sources)
	if n == 0 {
		return nil
	}
	limit := n - 1
	if circular {
		limit = n
	}
	slack := make([]int, limit)
	for i := 0; i < limit; i++ {
		j := (i + 1) % n
		ds := abs(sources[j].Offset - sources[i].Offset)
		dt := abs(targets[j].Offset - targets[i].Offset)
		s := ds
		if dt > s {
			s = dt
		}
		if s < 2 {
			s = 2
		}
		slack[i] = s
	}
	return slack
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// FreeRange computes the half-open [minFree,maxFree) staging offsets
// available on one side of an active block (spec §4.E). occupied is the
// set of offsets already holding a loop of this block or a neighboring
// one; stagingWidth is how many staging slots are needed.
func FreeRange(occupied []int, stagingWidth int) (minFree, maxFree int) {
	if len(occupied) == 0 {
		return 0, stagingWidth
	}
	lo, hi := occupied[0], occupied[0]
	for _, o := range occupied {
		if o < lo {
			lo = o
		}
		if o > hi {
			hi = o
		}
	}
	return lo - stagingWidth, hi + stagingWidth + 1
}

// FreeRangeTwoSided computes free ranges on both sides of a two-sided
// (tubular) block, used by the RS planner's corner search (spec §4.E).
func FreeRangeTwoSided(frontOccupied, backOccupied []int, stagingWidth int) (minFree, maxFree int) {
	all := append(append([]int(nil), frontOccupied...), backOccupied...)
	return FreeRange(all, stagingWidth)
}
