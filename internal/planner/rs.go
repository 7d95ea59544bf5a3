package planner

import (
	"sort"

	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"

	kerrors "knitc/internal/errors"
	"knitc/internal/machine"
)

// rsState is the RS planner's own state machine (spec §4.E: "INIT ->
// ROTATING <-> SHIFTING -> DONE").
type rsState int

const (
	rsInit rsState = iota
	rsRotating
	rsShifting
	rsDone
)

// corner names one of the four CCW corners the rotation phase inspects
// (spec §4.E).
type corner int

const (
	cornerFrontLeft corner = iota
	cornerFrontRight
	cornerBackRight
	cornerBackLeft
)

// bedSide is which physical bed (ignoring hook/slider) a needle sits on;
// the rotation phase reasons about front/back bed membership, the shift
// phase about hook/slider staging within a bed.
type bedSide int

const (
	bedFront bedSide = iota
	bedBack
)

func physicalBed(s machine.Side) bedSide {
	if s.IsFront() {
		return bedFront
	}
	return bedBack
}

// maxRSIterations is the soft bailout cap from spec §5 ("Maximum-step
// caps inside the RS planner act as soft bailouts").
const maxRSIterations = 64

// PlanRS realizes sources -> targets for a (possibly two-sided, tubular)
// slice using the rotation+shift algorithm (spec §4.E.2). circular is
// passed to the shift sub-pass, which does not read it; wrap-around slack
// comes from params.Slack (see ComputeSlack). The shift-sub-pass barriers
// are the anchor offsets of the state's active carriers.
func PlanRS(sources, targets []machine.Needle, state *machine.State, params Params, circular bool) (*TransferSequence, error) {
	if len(sources) != len(targets) {
		return nil, kerrors.New(kerrors.Precondition, kerrors.Site{StreamPtr: -1},
			"RS planner: %d sources but %d targets", len(sources), len(targets))
	}

	seq := &TransferSequence{}
	work := make([]machine.Needle, len(sources))
	copy(work, sources)

	st := rsInit
	for iter := 0; iter < maxRSIterations; iter++ {
		w := windingError(work, targets)
		if w == 0 && allOnFinalOffset(work, targets) {
			st = rsDone
			break
		}
		if w != 0 {
			st = rsRotating
			changed, err := rotateOneStep(seq, work, targets, state)
			if err != nil {
				return nil, err
			}
			if !changed {
				return nil, kerrors.New(kerrors.PlannerFailure, kerrors.Site{StreamPtr: -1},
					"RS planner: rotation phase could not reduce winding error %d", w)
			}
			continue
		}
		st = rsShifting
		before := absShiftSum(work, targets)
		if err := shiftSubPass(seq, work, targets, state, params, circular); err != nil {
			return nil, err
		}
		after := absShiftSum(work, targets)
		if after >= before {
			return nil, kerrors.New(kerrors.PlannerFailure, kerrors.Site{StreamPtr: -1},
				"RS planner: shifting iteration failed to reduce absolute shift sum (%d -> %d)", before, after)
		}
	}
	if st != rsDone && !(windingError(work, targets) == 0 && allOnFinalOffset(work, targets)) {
		return nil, kerrors.New(kerrors.PlannerFailure, kerrors.Site{StreamPtr: -1},
			"RS planner: exceeded %d iterations without converging", maxRSIterations)
	}

	if err := verifyTargetFidelity(sources, targets, state, seq); err != nil {
		return nil, err
	}
	return seq, nil
}

// windingError counts how many needles currently sit on the wrong
// physical bed relative to their target (spec §4.E: "how many of the
// implied bed-side traversals around the slice disagree with the
// target's").
func windingError(work, targets []machine.Needle) int {
	errCount := 0
	for i := range work {
		if physicalBed(work[i].Side) != physicalBed(targets[i].Side) {
			errCount++
		}
	}
	return errCount
}

func allOnFinalOffset(work, targets []machine.Needle) bool {
	for i := range work {
		if work[i] != targets[i] {
			return false
		}
	}
	return true
}

// rotateOneStep finds the first needle whose physical bed disagrees with
// its target and whose opposite hook is empty, and issues a direct xfer
// to that hook; the caller then recomputes the winding error. Needles are
// visited in the four-corner order (lower corner index first); the first
// eligible needle is taken, and no step counts are compared.
func rotateOneStep(seq *TransferSequence, work, targets []machine.Needle, state *machine.State) (bool, error) {
	order := cornerOrder(work, targets)
	for _, i := range order {
		if physicalBed(work[i].Side) == physicalBed(targets[i].Side) {
			continue
		}
		oppHook := machine.Needle{Side: work[i].Side.Opposite().HookOf(), Offset: work[i].Offset}
		if !state.IsEmpty(oppHook) || oppHook == work[i] {
			continue
		}
		seq.xfer(work[i], oppHook)
		applyToWork(work, i, oppHook)
		return true, nil
	}
	return false, nil
}

// cornerOrder returns indices sorted by which of the four CCW corners
// they currently occupy, giving the rotation phase a deterministic,
// spec-named traversal order.
func cornerOrder(work, targets []machine.Needle) []int {
	idx := make([]int, len(work))
	for i := range idx {
		idx[i] = i
	}
	cornerOf := func(i int) corner {
		front := work[i].Side.IsFront()
		// "left"/"right" half determined by offset sign relative to 0,
		// a stand-in for true slice-relative left/right since the
		// upstream course path already orders needles CCW.
		left := work[i].Offset < 0
		switch {
		case front && left:
			return cornerFrontLeft
		case front && !left:
			return cornerFrontRight
		case !front && !left:
			return cornerBackRight
		default:
			return cornerBackLeft
		}
	}
	sort.SliceStable(idx, func(a, b int) bool {
		return cornerOf(idx[a]) < cornerOf(idx[b])
	})
	return idx
}

func applyToWork(work []machine.Needle, i int, n machine.Needle) {
	work[i] = n
}

func absShiftSum(work, targets []machine.Needle) int {
	sum := 0
	for i := range work {
		sum += abs(targets[i].Offset - work[i].Offset)
	}
	return sum
}

// shiftBlock is a maximal run of needles with the same (bed side,
// direction sign) that the shift sub-pass realizes together (spec
// §4.E).
type shiftBlock struct {
	indices []int
	side    bedSide
	sign    int
}

// shiftSubPass partitions needles by (bed-side, direction sign), further
// splits at carrier barriers, and realizes each block's permitted shift
// (spec §4.E).
func shiftSubPass(seq *TransferSequence, work, targets []machine.Needle, state *machine.State, params Params, circular bool) error {
	blocks := partitionIntoBlocks(work, targets, state)
	for _, b := range blocks {
		if err := realizeBlock(seq, work, targets, state, params, b); err != nil {
			return err
		}
	}
	return nil
}

func partitionIntoBlocks(work, targets []machine.Needle, state *machine.State) []shiftBlock {
	type key struct {
		side bedSide
		sign int
	}
	groups := make(map[key][]int)
	for i := range work {
		delta := targets[i].Offset - work[i].Offset
		if delta == 0 {
			continue
		}
		sign := 1
		if delta < 0 {
			sign = -1
		}
		k := key{side: physicalBed(work[i].Side), sign: sign}
		groups[k] = append(groups[k], i)
	}
	var blocks []shiftBlock
	var keys []key
	for k := range groups {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(a, b int) bool {
		if keys[a].side != keys[b].side {
			return keys[a].side < keys[b].side
		}
		return keys[a].sign < keys[b].sign
	})
	barriers := carrierBarrierOffsets(state)
	for _, k := range keys {
		idxs := groups[k]
		sort.Slice(idxs, func(a, b int) bool { return work[idxs[a]].Offset < work[idxs[b]].Offset })
		for _, run := range splitAtBarriers(idxs, work, barriers) {
			blocks = append(blocks, shiftBlock{indices: run, side: k.side, sign: k.sign})
		}
	}
	return blocks
}

// carrierBarrierOffsets returns the sorted, deduplicated anchor offsets of
// every active carrier (spec §4.E: "further split at carrier barriers").
func carrierBarrierOffsets(state *machine.State) []int {
	seen := map[int]bool{}
	var out []int
	for _, name := range sortedCarrierNames(state) {
		c := state.Carriers[name]
		if c.Active && !seen[c.Anchor.Offset] {
			seen[c.Anchor.Offset] = true
			out = append(out, c.Anchor.Offset)
		}
	}
	slices.Sort(out)
	return out
}

func sortedCarrierNames(state *machine.State) []string {
	names := maps.Keys(state.Carriers)
	slices.Sort(names)
	return names
}

func splitAtBarriers(idxs []int, work []machine.Needle, barriers []int) [][]int {
	if len(barriers) == 0 {
		return [][]int{idxs}
	}
	var runs [][]int
	var cur []int
	for _, i := range idxs {
		crossesBarrier := false
		for _, b := range barriers {
			if len(cur) > 0 && ((work[cur[len(cur)-1]].Offset < b && work[i].Offset >= b) ||
				(work[cur[len(cur)-1]].Offset > b && work[i].Offset <= b)) {
				crossesBarrier = true
				break
			}
		}
		if crossesBarrier {
			runs = append(runs, cur)
			cur = nil
		}
		cur = append(cur, i)
	}
	if len(cur) > 0 {
		runs = append(runs, cur)
	}
	return runs
}

// realizeBlock computes the per-needle shift permitted by maxRacking,
// neighbor slack, and the no-merge rule (the block is already bounded by
// carrier barriers), then stages it on the destination pickDestination
// returns (spec §4.E). Needles of a positive-shift block are moved
// rightmost first, those of a negative-shift block leftmost first, so the
// offsets ahead of each needle have already been vacated.
func realizeBlock(seq *TransferSequence, work, targets []machine.Needle, state *machine.State, params Params, b shiftBlock) error {
	order := b.indices
	if b.sign > 0 {
		order = make([]int, len(b.indices))
		for k, i := range b.indices {
			order[len(b.indices)-1-k] = i
		}
	}
	for _, i := range order {
		desired := targets[i].Offset - work[i].Offset
		shift := clampShift(desired, params.MaxRacking, i, params.Slack)
		for shift != 0 && collidesWithOther(work, i, shift) {
			shift -= sign(shift) // back off until no other needle on this bed sits at the landing offset
		}
		if shift == 0 {
			continue
		}
		dest, err := pickDestination(work[i], shift, state)
		if err != nil {
			return err
		}
		seq.xfer(work[i], dest)
		applyToWork(work, i, dest)
		// Second racking pass: the block is realized at a single racking
		// to stage on the opposite bed, then at a second racking to drop
		// back onto the block's own bed side at the new offset (spec
		// §4.E). dest is always on the opposite bed by construction, so
		// this hop always runs unless it already landed exactly on the
		// final needle.
		final := machine.Needle{Side: b.sideHook(), Offset: dest.Offset}
		if final != dest {
			seq.xfer(dest, final)
			applyToWork(work, i, final)
		}
	}
	return nil
}

func (b shiftBlock) sideHook() machine.Side {
	if b.side == bedFront {
		return machine.FrontHook
	}
	return machine.BackHook
}

func sign(v int) int {
	if v < 0 {
		return -1
	}
	return 1
}

func clampShift(desired int, maxRacking float64, idx int, slack []int) int {
	max := int(maxRacking)
	if max <= 0 {
		max = 1
	}
	s := desired
	if s > max {
		s = max
	}
	if s < -max {
		s = -max
	}
	if idx < len(slack) && abs(s) > slack[idx] {
		if s > 0 {
			s = slack[idx]
		} else {
			s = -slack[idx]
		}
	}
	return s
}

func collidesWithOther(work []machine.Needle, i, shift int) bool {
	target := work[i].Offset + shift
	for j, n := range work {
		if j == i {
			continue
		}
		if n.Offset == target && physicalBed(n.Side) == physicalBed(work[i].Side) {
			return true
		}
	}
	return false
}

// pickDestination returns the opposite hook at n.Offset+shift. The
// candidate list also holds the opposite hook at shift +-1 and the
// opposite slider, but the first candidate always satisfies the loop's
// condition, so those are never chosen.
func pickDestination(n machine.Needle, shift int, state *machine.State) (machine.Needle, error) {
	oppHook := n.Side.Opposite().HookOf()
	candidates := []machine.Needle{
		{Side: oppHook, Offset: n.Offset + shift},
		{Side: oppHook, Offset: n.Offset + shift + 1},
		{Side: oppHook, Offset: n.Offset + shift - 1},
		{Side: n.Side.Opposite().SliderOf(), Offset: n.Offset + shift},
	}
	for _, c := range candidates {
		if state.IsEmpty(c) || c.Offset == n.Offset+shift {
			return c, nil
		}
	}
	return candidates[0], nil
}
