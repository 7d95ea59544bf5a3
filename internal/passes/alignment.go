package passes

import (
	"sort"

	kerrors "knitc/internal/errors"
	"knitc/internal/fragment"
	"knitc/internal/knitout"
	"knitc/internal/machine"
)

// Alignment is a fragment payload handling inter-step shifts: pure
// same-bed translations with no topological change (spec §4.F). Each
// entry maps a needle's current position to its desired offset on the
// same bed.
type Alignment struct {
	Shifts map[machine.Needle]int // current needle -> desired offset
}

var _ fragment.Generator = (*Alignment)(nil)

type alignItem struct {
	side   machine.Side
	cur    int
	target int
}

func (a *Alignment) Generate(stream *knitout.Stream, state *machine.State, verbose bool) error {
	items := make([]*alignItem, 0, len(a.Shifts))
	for n, target := range a.Shifts {
		items = append(items, &alignItem{side: n.Side.HookOf(), cur: n.Offset, target: target})
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].side != items[j].side {
			return items[i].side < items[j].side
		}
		return items[i].cur < items[j].cur
	})

	prevAbsSum := -1
	for round := 0; ; round++ {
		pending := pendingItems(items)
		if len(pending) == 0 {
			return nil
		}
		absSum := 0
		for _, it := range pending {
			absSum += abs(it.target - it.cur)
		}
		if prevAbsSum >= 0 && absSum >= prevAbsSum {
			return kerrors.New(kerrors.PlannerFailure, kerrors.Site{StreamPtr: stream.Length()},
				"alignment pass: pending shift sum did not decrease (round %d, sum %d)", round, absSum)
		}
		prevAbsSum = absSum

		groups := groupByShift(pending)
		for _, g := range groups {
			stashToOppositeSlider(stream, state, g)
			unstashAt(stream, state, g)
		}
		for _, it := range pending {
			it.cur += clampShift(it.target - it.cur)
		}
	}
}

func pendingItems(items []*alignItem) []*alignItem {
	var out []*alignItem
	for _, it := range items {
		if it.cur != it.target {
			out = append(out, it)
		}
	}
	return out
}

// clampShift bounds a single round's movement to [-2,+2] (spec §4.F:
// "groups by shift in [-2,+2]").
func clampShift(delta int) int {
	if delta > 2 {
		return 2
	}
	if delta < -2 {
		return -2
	}
	return delta
}

func groupByShift(pending []*alignItem) [][]*alignItem {
	byShift := make(map[int][]*alignItem)
	var order []int
	for _, it := range pending {
		s := clampShift(it.target - it.cur)
		if _, ok := byShift[s]; !ok {
			order = append(order, s)
		}
		byShift[s] = append(byShift[s], it)
	}
	sort.Ints(order)
	out := make([][]*alignItem, 0, len(order))
	for _, s := range order {
		out = append(out, byShift[s])
	}
	return out
}

func stashToOppositeSlider(stream *knitout.Stream, state *machine.State, group []*alignItem) {
	if state.Racking != 0 {
		stream.Append(knitout.OpRack, "0")
		stream.Flush()
	}
	for _, it := range group {
		src := machine.Needle{Side: it.side, Offset: it.cur}
		dst := machine.Needle{Side: it.side.Opposite().SliderOf(), Offset: it.cur}
		stream.Append(knitout.OpXfer, src.String(), dst.String())
	}
	stream.Flush()
}

func unstashAt(stream *knitout.Stream, state *machine.State, group []*alignItem) {
	shift := clampShift(group[0].target - group[0].cur)
	rack := float64(shift)
	if !group[0].side.IsFront() {
		rack = -rack
	}
	if state.Racking != rack {
		stream.Append(knitout.OpRack, formatRackLocal(rack))
		stream.Flush()
	}
	for _, it := range group {
		stashSide := it.side.Opposite().SliderOf()
		src := machine.Needle{Side: stashSide, Offset: it.cur}
		dst := machine.Needle{Side: it.side, Offset: it.cur + shift}
		stream.Append(knitout.OpXfer, src.String(), dst.String())
	}
	stream.Flush()
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

func formatRackLocal(r float64) string {
	if r == float64(int(r)) {
		n := int(r)
		neg := n < 0
		if neg {
			n = -n
		}
		if n == 0 {
			return "0"
		}
		var buf [16]byte
		i := len(buf)
		for n > 0 {
			i--
			buf[i] = byte('0' + n%10)
			n /= 10
		}
		if neg {
			i--
			buf[i] = '-'
		}
		return string(buf[i:])
	}
	return "0"
}

// NewAlignmentFragment wraps an Alignment payload in a fragment.Fragment.
func NewAlignmentFragment(a *Alignment) *fragment.Fragment {
	return &fragment.Fragment{
		Kind:                fragment.KindAlignment,
		DesiredStitchNumber: -1,
		Gen:                 a,
	}
}
