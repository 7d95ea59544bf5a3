// Package passes implements the shaping/alignment/action/cast-on/cast-off
// /yarn fragment generators (spec §4.F, §4.G, §4.H), each a
// fragment.Generator built through the fragment.Fragment template method.
package passes

import (
	kerrors "knitc/internal/errors"
	"knitc/internal/fragment"
	"knitc/internal/knitout"
	"knitc/internal/machine"
	"knitc/internal/planner"
)

// Shaping is a fragment payload that realizes sources -> targets using
// the planner (spec §4.F): "computes a TransferSequence using §4.E, then
// emits it while verifying that after emission every pre-recorded loop
// of every source ended up at the recorded target."
// Sources and Targets are always physical machine-needle offsets; a
// half-gauge compile converts logical stitch positions to physical
// offsets once, at needle-assignment time (internal/gauge, driven from
// internal/driver), so every pass downstream — including this one —
// works in one consistent coordinate space.
type Shaping struct {
	Sources, Targets []machine.Needle
	Algorithm        string // "cse" or "rs" (spec §6 Configuration: shapingAlgorithm)
	Oracle           planner.CSEOracle
	Params           planner.Params
	MultiTransfer    bool
	Reduce           bool
	Circular         bool
}

var _ fragment.Generator = (*Shaping)(nil)

func (s *Shaping) Generate(stream *knitout.Stream, state *machine.State, verbose bool) error {
	originals := make([]machine.LoopID, len(s.Sources))
	for i, src := range s.Sources {
		ids := state.GetNeedleLoops(src)
		if len(ids) > 0 {
			originals[i] = ids[len(ids)-1]
		}
	}

	var seq *planner.TransferSequence
	var err error
	if s.Algorithm == "rs" {
		seq, err = planner.PlanRS(s.Sources, s.Targets, state, s.Params, s.Circular)
	} else {
		seq, err = planner.PlanCSE(s.Sources, s.Targets, state, s.Oracle, s.Params, s.Reduce)
	}
	if err != nil {
		return err
	}

	if err := seq.Emit(stream, state, planner.EmitOptions{MultiTransfer: s.MultiTransfer}); err != nil {
		return err
	}

	for i, tgt := range s.Targets {
		if originals[i] == 0 {
			continue
		}
		found := false
		for _, id := range state.GetNeedleLoops(tgt) {
			if id == originals[i] {
				found = true
				break
			}
		}
		if !found {
			return kerrors.New(kerrors.StateInvariant, kerrors.Site{StreamPtr: stream.Length()},
				"shaping pass: source loop %d did not reach target %s", originals[i], tgt)
		}
	}
	return nil
}

// NewShapingFragment wraps a Shaping payload in a fragment.Fragment
// (spec §4.D/§4.F).
func NewShapingFragment(s *Shaping, desiredStitchNumber int) *fragment.Fragment {
	return &fragment.Fragment{
		Kind:                fragment.KindShaping,
		DesiredStitchNumber: desiredStitchNumber,
		Gen:                 s,
	}
}
