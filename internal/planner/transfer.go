// Package planner implements the transfer planner (spec §4.E): given a
// current multiset of loops on needles and a desired target multiset, it
// produces a short sequence of bed-alignment and needle-to-needle
// transfers. Two algorithms are offered, CSE (package-local file cse.go)
// and rotation/shift (file rs.go), selected per-pass by the caller.
package planner

import (
	"sort"

	"golang.org/x/exp/slices"

	kerrors "knitc/internal/errors"
	"knitc/internal/knitout"
	"knitc/internal/machine"
)

// StepKind distinguishes the two step shapes a TransferSequence carries
// (spec §4.E: "an abstract TransferSequence of steps {xfer sn tn} and
// {move cs offset side}").
type StepKind int

const (
	StepXfer StepKind = iota
	StepMove
)

// Step is one element of a TransferSequence.
type Step struct {
	Kind StepKind

	// StepXfer fields.
	Sn, Tn machine.Needle

	// StepMove fields.
	Carrier string
	Offset  int
	Side    machine.CarrierSide
}

// TransferSequence is the planner's output: an ordered list of xfer and
// carrier-move steps, emitted to knitout by Emit.
type TransferSequence struct {
	Steps []Step
}

func (ts *TransferSequence) xfer(sn, tn machine.Needle) {
	ts.Steps = append(ts.Steps, Step{Kind: StepXfer, Sn: sn, Tn: tn})
}

func (ts *TransferSequence) move(carrier string, offset int, side machine.CarrierSide) {
	ts.Steps = append(ts.Steps, Step{Kind: StepMove, Carrier: carrier, Offset: offset, Side: side})
}

// EmitOptions configures how a TransferSequence is lowered to knitout.
type EmitOptions struct {
	// MultiTransfer groups consecutive same-(side,racking) xfers into one
	// knitout pass, repeating k-1 times with re-transfer comments when a
	// source needle holds k>1 loops (spec §4.E).
	MultiTransfer bool
}

// Emit lowers a TransferSequence to the stream, updating racking as
// needed and issuing carrier-safety misses before any xfer whose source
// is the current anchor of a carrier sitting on the wrong side (spec
// §4.E's carrier-safety rule).
func (ts *TransferSequence) Emit(stream *knitout.Stream, state *machine.State, opts EmitOptions) error {
	i := 0
	for i < len(ts.Steps) {
		step := ts.Steps[i]
		switch step.Kind {
		case StepMove:
			emitCarrierMiss(stream, state, step.Carrier, step.Offset, step.Side)
			i++
		case StepXfer:
			if opts.MultiTransfer {
				j := i
				for j < len(ts.Steps) && ts.Steps[j].Kind == StepXfer && sameRackingClass(ts.Steps[i], ts.Steps[j]) {
					j++
				}
				emitGroupedXfers(stream, state, ts.Steps[i:j])
				i = j
			} else {
				if err := emitOneXfer(stream, state, step); err != nil {
					return err
				}
				i++
			}
		}
	}
	return nil
}

func sameRackingClass(a, b Step) bool {
	ra, _ := requiredRacking(a.Sn, a.Tn)
	rb, _ := requiredRacking(b.Sn, b.Tn)
	return a.Sn.Side == b.Sn.Side && a.Tn.Side == b.Tn.Side && ra == rb
}

func requiredRacking(sn, tn machine.Needle) (float64, bool) {
	// xfer legality (spec §4.B/§8 property 3): front-relative offsets
	// must coincide at some racking r. Front needle offset is fixed;
	// solve for r from whichever side is the back needle.
	if sn.Side.IsFront() && !tn.Side.IsFront() {
		return float64(sn.Offset - tn.Offset), true
	}
	if !sn.Side.IsFront() && tn.Side.IsFront() {
		return float64(tn.Offset - sn.Offset), true
	}
	return 0, false
}

func ensureRacking(stream *knitout.Stream, state *machine.State, rack float64) {
	if state.Racking != rack {
		stream.Append(knitout.OpRack, formatRack(rack))
		stream.Flush()
	}
}

func emitOneXfer(stream *knitout.Stream, state *machine.State, step Step) error {
	if step.Sn.Side == step.Tn.Side {
		return kerrors.New(kerrors.PlannerFailure, kerrors.Site{StreamPtr: stream.Length()},
			"illegal transfer %s -> %s: same side", step.Sn, step.Tn)
	}
	if rack, ok := requiredRacking(step.Sn, step.Tn); ok {
		conflictSafety(stream, state, step.Sn, rack)
		ensureRacking(stream, state, rack)
	}
	stream.Append(knitout.OpXfer, step.Sn.String(), step.Tn.String())
	stream.Flush()
	return nil
}

func emitGroupedXfers(stream *knitout.Stream, state *machine.State, steps []Step) {
	if len(steps) == 0 {
		return
	}
	if rack, ok := requiredRacking(steps[0].Sn, steps[0].Tn); ok {
		for _, s := range steps {
			conflictSafety(stream, state, s.Sn, rack)
		}
		ensureRacking(stream, state, rack)
	}
	// First pass, then re-transfer passes for sources with >1 loop.
	maxDepth := 1
	depths := make(map[machine.Needle]int, len(steps))
	for _, s := range steps {
		d := len(state.GetNeedleLoops(s.Sn))
		if d < 1 {
			d = 1
		}
		depths[s.Sn] = d
		if d > maxDepth {
			maxDepth = d
		}
	}
	for pass := 0; pass < maxDepth; pass++ {
		for _, s := range steps {
			if pass >= depths[s.Sn] {
				continue
			}
			stream.Append(knitout.OpXfer, s.Sn.String(), s.Tn.String())
			if pass > 0 {
				stream.SetComment(-1, "re-transfer")
			}
		}
		stream.Flush()
	}
}

// conflictSafety emits a `miss` moving each carrier that
// state.GetCarrierConflicts reports for n to the opposite side, one miss
// per (offset, side) group. Conflicts are evaluated at the state's
// current racking; upcomingRack is not consulted.
func conflictSafety(stream *knitout.Stream, state *machine.State, n machine.Needle, upcomingRack float64) {
	conflicts := state.GetCarrierConflicts(n)
	if len(conflicts) == 0 {
		return
	}
	type group struct {
		offset int
		side   machine.CarrierSide
	}
	byGroup := make(map[group][]string)
	for _, c := range conflicts {
		g := group{offset: c.Anchor.Offset, side: c.Side}
		byGroup[g] = append(byGroup[g], c.Name)
	}
	groups := make([]group, 0, len(byGroup))
	for g := range byGroup {
		groups = append(groups, g)
	}
	sort.Slice(groups, func(i, j int) bool {
		if groups[i].offset != groups[j].offset {
			return groups[i].offset < groups[j].offset
		}
		return groups[i].side < groups[j].side
	})
	for _, g := range groups {
		names := byGroup[g]
		slices.Sort(names)
		opp := g.side.Opposite()
		dir := machine.Plus
		if opp == machine.Left {
			dir = machine.Minus
		}
		args := append([]string{dir.String(), n.String()}, names...)
		stream.Append(knitout.OpMiss, args...)
		stream.Flush()
	}
}

func emitCarrierMiss(stream *knitout.Stream, state *machine.State, carrier string, offset int, side machine.CarrierSide) {
	n := machine.Needle{Side: machine.FrontHook, Offset: offset}
	dir := machine.Plus
	if side == machine.Left {
		dir = machine.Minus
	}
	stream.Append(knitout.OpMiss, dir.String(), n.String(), carrier)
	stream.Flush()
}

func formatRack(r float64) string {
	if r == float64(int(r)) {
		return itoaRack(int(r))
	}
	// quarter-racking values (spec §3 invariant R: 0.25 allowed).
	return quarterString(r)
}

func itoaRack(n int) string {
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

func quarterString(r float64) string {
	whole := int(r)
	frac := r - float64(whole)
	if frac < 0 {
		frac = -frac
	}
	switch {
	case frac == 0.25:
		return itoaRack(whole) + ".25"
	case frac == 0.5:
		return itoaRack(whole) + ".5"
	case frac == 0.75:
		return itoaRack(whole) + ".75"
	default:
		return itoaRack(whole)
	}
}
