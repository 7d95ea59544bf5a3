package passes

import (
	kerrors "knitc/internal/errors"
	"knitc/internal/fragment"
	"knitc/internal/knitout"
	"knitc/internal/machine"
	"knitc/internal/registry"
)

// Entry is one stitch's worth of needle assignment within an Action pass
// (spec §4.G): the primary needle(s), an optional neighbor used for side
// tucks, and any racked/secondary needles.
type Entry struct {
	Stitch int
	N       []machine.Needle
	NS      *machine.Needle
	RN      []machine.Needle
}

// IntarsiaMode is the configured side-tuck yarn rule (spec §6:
// intarsiaTucks).
type IntarsiaMode string

const (
	IntarsiaBoth IntarsiaMode = "both"
	IntarsiaCW   IntarsiaMode = "cw"
	IntarsiaCCW  IntarsiaMode = "ccw"
	IntarsiaNone IntarsiaMode = "none"
)

// Action is the fragment payload driving a step's action program (spec
// §4.G): pre/main/post passes over a run of entries, with optional side
// tucks and short-row presser handling.
type Action struct {
	Reg       *registry.Registry
	ProgramID registry.ID
	TuckID    registry.ID // not read by Generate; side tucks are emitted as plain tuck instructions

	Entries   []Entry
	Direction machine.Direction
	Carriers  []string
	SVS       bool

	SafeTucks     bool
	IntarsiaTucks IntarsiaMode
	IntarsiaSide  string // "before" | "after"
	UseSRTucks    bool
	ShortRow      bool
}

var _ fragment.Generator = (*Action)(nil)

func (a *Action) Generate(stream *knitout.Stream, state *machine.State, verbose bool) error {
	site := kerrors.Site{StreamPtr: stream.Length(), StitchIndex: -1}
	if err := a.Reg.RequireRegistered(a.ProgramID, site); err != nil {
		return err
	}
	prog, _ := a.Reg.Lookup(a.ProgramID)

	runs := [][]Entry{a.Entries}
	if prog.SplitBySide {
		runs = splitBySide(a.Entries)
	}

	if a.ShortRow {
		stream.Append(knitout.OpXPresserMode, "on")
		stream.Flush()
	}

	for _, run := range runs {
		if err := a.runPre(stream, state, prog, run); err != nil {
			return err
		}
		if err := a.runMain(stream, state, prog, run); err != nil {
			return err
		}
		if err := a.runPost(stream, state, prog, run); err != nil {
			return err
		}
	}

	if a.ShortRow {
		stream.Append(knitout.OpXPresserMode, "off")
		stream.Flush()
	}
	return nil
}

func splitBySide(entries []Entry) [][]Entry {
	var front, back []Entry
	for _, e := range entries {
		if len(e.N) > 0 && e.N[0].Side.IsFront() {
			front = append(front, e)
		} else {
			back = append(back, e)
		}
	}
	var out [][]Entry
	if len(front) > 0 {
		out = append(out, front)
	}
	if len(back) > 0 {
		out = append(out, back)
	}
	return out
}

func (a *Action) newEntry(stream *knitout.Stream, state *machine.State, e Entry, move *registry.MoveMap) *registry.ActionEntry {
	return &registry.ActionEntry{
		K:      stream,
		D:      a.Direction,
		N:      e.N,
		NS:     e.NS,
		RN:     e.RN,
		CS:     a.Carriers,
		State:  state,
		Stitch: e.Stitch,
		Move:   move,
		SVS:    a.SVS,
	}
}

func (a *Action) runPre(stream *knitout.Stream, state *machine.State, prog registry.Program, run []Entry) error {
	for _, fn := range prog.Pre {
		for _, e := range run {
			if err := fn(a.newEntry(stream, state, e, nil)); err != nil {
				return err
			}
		}
	}
	return nil
}

// runMain iterates the program's main passes, calling each pass's own
// function for every entry. Base programs have a single main pass, so
// their standard action runs on pass 0 only; programs from the
// stitch-program lift have one pass per yarn (spec §4.J), and each of
// those passes does nothing when its yarn is not among the carriers.
func (a *Action) runMain(stream *knitout.Stream, state *machine.State, prog registry.Program, run []Entry) error {
	for pass, fn := range prog.Main {
		if len(prog.QuarterRacking) > pass && prog.QuarterRacking[pass] {
			stream.Append(knitout.OpRack, quarterRackStep(state.Racking))
			stream.Flush()
		}
		for i, e := range run {
			if pass == prog.FrontPass {
				a.maybePrevTuck(stream, state, run, i)
			}
			if err := fn(a.newEntry(stream, state, e, nil)); err != nil {
				return err
			}
			if pass == prog.FrontPass {
				a.maybeNextTuck(stream, state, run, i)
			}
		}
	}
	return nil
}

func (a *Action) runPost(stream *knitout.Stream, state *machine.State, prog registry.Program, run []Entry) error {
	move := registry.NewMoveMap(registry.PhasePost)
	for _, fn := range prog.Post {
		for _, e := range run {
			if err := fn(a.newEntry(stream, state, e, move)); err != nil {
				return err
			}
		}
	}
	return applyMoveRequests(stream, state, run, move)
}

// mayTuck checks the per-needle part of spec §4.G's side-tuck
// eligibility: the neighbor needle exists and holds at least one loop,
// holds at most one loop when SafeTucks is set, and the short-row or
// intarsia yarn/orientation rule allows the tuck. Its callers in runMain
// only consider tucks on the program's front pass; whether the program
// splits is not checked.
func (a *Action) mayTuck(state *machine.State, n *machine.Needle) bool {
	if n == nil {
		return false
	}
	loops := state.GetNeedleLoops(*n)
	if len(loops) == 0 {
		return false
	}
	if a.SafeTucks && len(loops) > 1 {
		return false
	}
	if a.ShortRow {
		return a.UseSRTucks
	}
	switch a.IntarsiaTucks {
	case IntarsiaBoth:
		return true
	case IntarsiaCW:
		return a.Direction == machine.Plus
	case IntarsiaCCW:
		return a.Direction == machine.Minus
	default:
		return false
	}
}

func (a *Action) maybeNextTuck(stream *knitout.Stream, state *machine.State, run []Entry, i int) {
	if a.IntarsiaSide == "before" {
		return
	}
	if i+1 >= len(run) {
		return
	}
	if !a.mayTuck(state, run[i].NS) {
		return
	}
	a.emitSideTuck(stream, state, *run[i].NS)
}

func (a *Action) maybePrevTuck(stream *knitout.Stream, state *machine.State, run []Entry, i int) {
	if a.IntarsiaSide != "before" {
		return
	}
	if i == 0 {
		return
	}
	if !a.mayTuck(state, run[i].NS) {
		return
	}
	a.emitSideTuck(stream, state, *run[i].NS)
}

func (a *Action) emitSideTuck(stream *knitout.Stream, state *machine.State, n machine.Needle) {
	stream.Append(knitout.OpTuck, a.Direction.String(), n.String())
	stream.Flush()
}

// applyMoveRequests realizes the post-pass move map (spec §4.C/§9): each
// requested inter-pass shift moves a stitch's current loop to an
// adjacent needle by stashing through the opposite-bed slider, same as
// the alignment pass's single-round mechanics.
func applyMoveRequests(stream *knitout.Stream, state *machine.State, run []Entry, move *registry.MoveMap) error {
	if len(move.Requests()) == 0 {
		return nil
	}
	byStitch := make(map[int]machine.Needle, len(run))
	for _, e := range run {
		if len(e.N) > 0 {
			byStitch[e.Stitch] = e.N[0]
		}
	}
	for _, req := range move.Requests() {
		n, ok := byStitch[req.StitchIndex]
		if !ok {
			continue
		}
		shift := req.Offset
		if shift == 0 {
			continue
		}
		item := &alignItem{side: n.Side.HookOf(), cur: n.Offset, target: n.Offset + shift}
		stashToOppositeSlider(stream, state, []*alignItem{item})
		unstashAt(stream, state, []*alignItem{item})
	}
	return nil
}

func quarterRackStep(current float64) string {
	return formatRackLocal(current + 0.25)
}

// NewActionFragment wraps an Action payload in a fragment.Fragment.
func NewActionFragment(a *Action, desiredStitchNumber int) *fragment.Fragment {
	return &fragment.Fragment{
		Kind:                fragment.KindAction,
		DesiredStitchNumber: desiredStitchNumber,
		Gen:                 a,
	}
}
