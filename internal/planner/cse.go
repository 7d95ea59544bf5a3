package planner

import (
	kerrors "knitc/internal/errors"
	"knitc/internal/knitout"
	"knitc/internal/machine"
)

// RawTransfer is the oracle's raw output shape, before pruning/reduction.
type RawTransfer struct {
	Sn, Tn machine.Needle
}

// CSEOracle is the narrow contract spec §1 describes the real (external,
// "autoknit") solver through: "consumed as an opaque oracle through a
// narrow interface". Solve receives the one-dimensional realignment
// problem and returns a list of (sn, tn) transfers, with no obligation to
// have already pruned identity/empty-source transfers — that is this
// package's job (spec §4.E.1).
type CSEOracle interface {
	Solve(sources, targets []machine.Needle, slack []int, maxRacking float64, minFree, maxFree int) ([]RawTransfer, error)
}

// DefaultOracle is a reference CSE solver used when no external oracle is
// wired in. It realizes each out-of-place loop with a collapse (front to
// the opposite bed, same front-offset) followed by an expand (opposite
// bed to the target front-offset), which is the canonical CSE triplet
// shape with an implicit zero-length shift when collapse and expand share
// a racking change rather than a separate bed-wide shift pass.
type DefaultOracle struct{}

func (DefaultOracle) Solve(sources, targets []machine.Needle, slack []int, maxRacking float64, minFree, maxFree int) ([]RawTransfer, error) {
	var out []RawTransfer
	for i, src := range sources {
		tgt := targets[i]
		if src == tgt {
			continue
		}
		collapseSide := src.Side.Opposite()
		collapsed := machine.Needle{Side: collapseSide, Offset: src.Offset}
		out = append(out, RawTransfer{Sn: src, Tn: collapsed})
		expandSide := tgt.Side
		if expandSide == collapseSide {
			// target already lives on the collapse bed; one more hop
			// through the original source bed realizes the shift.
			mid := machine.Needle{Side: src.Side, Offset: tgt.Offset}
			out = append(out, RawTransfer{Sn: collapsed, Tn: mid})
			out = append(out, RawTransfer{Sn: mid, Tn: tgt})
			continue
		}
		out = append(out, RawTransfer{Sn: collapsed, Tn: tgt})
	}
	return out, nil
}

// PruneIdentity drops identity transfers and transfers whose source is
// already empty when replayed in order against a scratch copy of state
// (spec §4.E.1, §7 soft-warning pruning).
func PruneIdentity(raw []RawTransfer, state *machine.State) []RawTransfer {
	scratch := state.Clone()
	out := make([]RawTransfer, 0, len(raw))
	for _, t := range raw {
		if t.Sn == t.Tn {
			continue
		}
		if scratch.IsEmpty(t.Sn) {
			continue
		}
		out = append(out, t)
		applyXfer(scratch, t)
	}
	return out
}

func applyXfer(state *machine.State, t RawTransfer) {
	ids := state.GetNeedleLoops(t.Sn)
	if len(ids) == 0 {
		return
	}
	// Drive the scratch state the same way the real stream would, via
	// Execute, so subsequent prune/reduce decisions see a consistent
	// picture.
	state.Execute(knitout.OpXfer, []string{t.Sn.String(), t.Tn.String()})
}

// ReduceTriplets groups a pruned transfer list into collapse/shift/expand
// triplets and drops any triplet whose combined effect on loop placement
// is the identity (spec §4.E.1: "within each triplet, a transfer moving
// only loops whose full triplet effect is the identity is dropped").
func ReduceTriplets(pruned []RawTransfer, state *machine.State) []RawTransfer {
	out := make([]RawTransfer, 0, len(pruned))
	scratch := state.Clone()
	for i := 0; i < len(pruned); i += 3 {
		end := i + 3
		if end > len(pruned) {
			end = len(pruned)
		}
		triplet := pruned[i:end]
		// Determine each triplet's net (origin -> final) needle per
		// loop by replaying it on a throwaway branch of scratch.
		before := scratch.Clone()
		for _, t := range triplet {
			applyXfer(scratch, t)
		}
		if tripletIsIdentity(before, scratch, triplet) {
			continue
		}
		out = append(out, triplet...)
	}
	return out
}

func tripletIsIdentity(before, after *machine.State, triplet []RawTransfer) bool {
	if len(triplet) == 0 {
		return true
	}
	touched := map[machine.Needle]bool{}
	for _, t := range triplet {
		touched[t.Sn] = true
		touched[t.Tn] = true
	}
	for n := range touched {
		b := loopSet(before.GetNeedleLoops(n))
		a := loopSet(after.GetNeedleLoops(n))
		if len(b) != len(a) {
			return false
		}
		for id := range b {
			if !a[id] {
				return false
			}
		}
	}
	return true
}

func loopSet(ids []machine.LoopID) map[machine.LoopID]bool {
	m := make(map[machine.LoopID]bool, len(ids))
	for _, id := range ids {
		m[id] = true
	}
	return m
}

// PlanCSE realizes sources -> targets using the CSE algorithm (spec
// §4.E.1): solve, prune, optionally reduce, then verify the resulting
// plan is loop-identity-consistent on a replayed copy of state.
func PlanCSE(sources, targets []machine.Needle, state *machine.State, oracle CSEOracle, params Params, reduce bool) (*TransferSequence, error) {
	if len(sources) != len(targets) {
		return nil, kerrors.New(kerrors.Precondition, kerrors.Site{StreamPtr: -1},
			"CSE planner: %d sources but %d targets", len(sources), len(targets))
	}
	if oracle == nil {
		oracle = DefaultOracle{}
	}
	raw, err := oracle.Solve(sources, targets, params.Slack, params.MaxRacking, params.MinFree, params.MaxFree)
	if err != nil {
		return nil, kerrors.Wrap(err, kerrors.PlannerFailure, kerrors.Site{StreamPtr: -1}, "CSE oracle failed")
	}
	pruned := PruneIdentity(raw, state)
	if reduce {
		pruned = ReduceTriplets(pruned, state)
	}

	seq := &TransferSequence{}
	for _, t := range pruned {
		seq.xfer(t.Sn, t.Tn)
	}

	if err := verifyTargetFidelity(sources, targets, state, seq); err != nil {
		return nil, err
	}
	return seq, nil
}

// verifyTargetFidelity replays seq on a clone of state and checks spec §8
// property 2: every source loop ends up on its recorded target needle.
func verifyTargetFidelity(sources, targets []machine.Needle, state *machine.State, seq *TransferSequence) error {
	scratch := state.Clone()
	originals := make([]machine.LoopID, len(sources))
	for i, s := range sources {
		ids := scratch.GetNeedleLoops(s)
		if len(ids) > 0 {
			originals[i] = ids[len(ids)-1]
		}
	}
	for _, step := range seq.Steps {
		if step.Kind != StepXfer {
			continue
		}
		applyXfer(scratch, RawTransfer{Sn: step.Sn, Tn: step.Tn})
	}
	for i, tgt := range targets {
		if originals[i] == 0 {
			continue
		}
		found := false
		for _, id := range scratch.GetNeedleLoops(tgt) {
			if id == originals[i] {
				found = true
				break
			}
		}
		if !found {
			return kerrors.New(kerrors.PlannerFailure, kerrors.Site{StreamPtr: -1},
				"CSE plan failed target fidelity for source %d: loop did not reach %s", i, tgt)
		}
	}
	return nil
}
