package passes

import (
	"testing"

	kerrors "knitc/internal/errors"
	"knitc/internal/gauge"
	"knitc/internal/knitout"
	"knitc/internal/machine"
	"knitc/internal/planner"
	"knitc/internal/registry"
)

func newStreamState(n int) (*knitout.Stream, *machine.State) {
	stream := knitout.NewStream(n * 3)
	state := machine.NewState()
	stream.Listen(state)
	return stream, state
}

func knitRow(t *testing.T, n int) (*knitout.Stream, *machine.State) {
	t.Helper()
	stream, state := newStreamState(n)
	stream.Append(knitout.OpInHook, "1")
	for i := 0; i < n; i++ {
		stream.Append(knitout.OpKnit, "+", (machine.Needle{Side: machine.FrontHook, Offset: i}).String(), "1")
	}
	stream.Flush()
	return stream, state
}

func TestShapingGeneratorRealizesTargets(t *testing.T) {
	stream, state := knitRow(t, 4)
	sources := []machine.Needle{
		{Side: machine.FrontHook, Offset: 0},
		{Side: machine.FrontHook, Offset: 1},
		{Side: machine.FrontHook, Offset: 2},
		{Side: machine.FrontHook, Offset: 3},
	}
	targets := []machine.Needle{
		{Side: machine.FrontHook, Offset: 2},
		{Side: machine.FrontHook, Offset: 3},
		{Side: machine.FrontHook, Offset: 4},
		{Side: machine.FrontHook, Offset: 5},
	}
	shaping := &Shaping{
		Sources:   sources,
		Targets:   targets,
		Algorithm: "rs",
		Params:    planner.Params{MaxRacking: 4, Slack: planner.ComputeSlack(sources, targets, false)},
	}
	frag := NewShapingFragment(shaping, -1)
	if err := frag.Build(stream, state, false, kerrors.Site{StreamPtr: stream.Length()}); err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	for _, tgt := range targets {
		if state.IsEmpty(tgt) {
			t.Errorf("target %s empty after shaping", tgt)
		}
	}
}

// TestShapingGeneratorOnGaugeExpandedNeedles exercises Shaping against
// needle offsets already expanded from logical half-gauge positions
// (internal/gauge), confirming the pass works unchanged once the
// gauge conversion has happened upstream of it.
func TestShapingGeneratorOnGaugeExpandedNeedles(t *testing.T) {
	logicalSources := []machine.Needle{
		{Side: machine.FrontHook, Offset: 0},
		{Side: machine.FrontHook, Offset: 1},
		{Side: machine.FrontHook, Offset: 2},
		{Side: machine.FrontHook, Offset: 3},
	}
	logicalTargets := []machine.Needle{
		{Side: machine.FrontHook, Offset: 1},
		{Side: machine.FrontHook, Offset: 2},
		{Side: machine.FrontHook, Offset: 3},
		{Side: machine.FrontHook, Offset: 4},
	}
	sources := gauge.HalfToFullGaugeAll(logicalSources)
	targets := gauge.HalfToFullGaugeAll(logicalTargets)

	stream, state := newStreamState(8)
	stream.Append(knitout.OpInHook, "1")
	for _, n := range sources {
		stream.Append(knitout.OpKnit, "+", n.String(), "1")
	}
	stream.Flush()

	shaping := &Shaping{
		Sources:   sources,
		Targets:   targets,
		Algorithm: "rs",
		Params:    planner.Params{MaxRacking: 4, Slack: planner.ComputeSlack(sources, targets, false)},
	}
	frag := NewShapingFragment(shaping, -1)
	if err := frag.Build(stream, state, false, kerrors.Site{StreamPtr: stream.Length()}); err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	for _, tgt := range targets {
		if state.IsEmpty(tgt) {
			t.Errorf("target %s empty after shaping", tgt)
		}
	}
}

func TestAlignmentConverges(t *testing.T) {
	stream, state := knitRow(t, 3)
	shifts := map[machine.Needle]int{
		{Side: machine.FrontHook, Offset: 0}: 1,
		{Side: machine.FrontHook, Offset: 1}: 2,
		{Side: machine.FrontHook, Offset: 2}: 3,
	}
	align := &Alignment{Shifts: shifts}
	if err := align.Generate(stream, state, false); err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	for src, target := range shifts {
		want := machine.Needle{Side: src.Side, Offset: target}
		if state.IsEmpty(want) {
			t.Errorf("expected loop at %s after alignment", want)
		}
	}
	if state.HasPendingSliders() {
		t.Errorf("expected no pending sliders after alignment completes")
	}
}

func TestActionKnitProgramEmitsKnit(t *testing.T) {
	stream, state := newStreamState(1)
	stream.Append(knitout.OpInHook, "1")
	stream.Flush()

	reg := registry.New()
	InstallBasePrograms(reg)

	act := &Action{
		Reg:       reg,
		ProgramID: registry.KNIT,
		Entries: []Entry{
			{Stitch: 0, N: []machine.Needle{{Side: machine.FrontHook, Offset: 0}}},
		},
		Direction: machine.Plus,
		Carriers:  []string{"1"},
	}
	if err := act.Generate(stream, state, false); err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if got := len(state.GetNeedleLoops(machine.Needle{Side: machine.FrontHook, Offset: 0})); got != 1 {
		t.Errorf("loop count = %d, want 1", got)
	}
}

// TestMayTuckHonorsIntarsiaOrientation documents the cw/ccw half of the
// side-tuck eligibility rule (spec §4.G): a cw-only or ccw-only intarsia
// mode only allows a side tuck when the pass direction matches.
func TestMayTuckHonorsIntarsiaOrientation(t *testing.T) {
	_, state := newStreamState(1)
	n := machine.Needle{Side: machine.FrontHook, Offset: 0}
	state.Consume(knitout.OpKnit, []string{"+", n.String(), "1"}, 0)

	cases := []struct {
		name      string
		mode      IntarsiaMode
		direction machine.Direction
		want      bool
	}{
		{"cw matches plus", IntarsiaCW, machine.Plus, true},
		{"cw rejects minus", IntarsiaCW, machine.Minus, false},
		{"ccw matches minus", IntarsiaCCW, machine.Minus, true},
		{"ccw rejects plus", IntarsiaCCW, machine.Plus, false},
		{"both always allowed", IntarsiaBoth, machine.Minus, true},
		{"none never allowed", IntarsiaNone, machine.Plus, false},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			act := &Action{Direction: c.direction, IntarsiaTucks: c.mode}
			if got := act.mayTuck(state, &n); got != c.want {
				t.Errorf("mayTuck() = %v, want %v", got, c.want)
			}
		})
	}
}

func TestCastOnInterlockFlat(t *testing.T) {
	stream, state := newStreamState(4)
	stream.Append(knitout.OpInHook, "1")
	stream.Flush()

	co := &CastOn{
		Type:    CastOnInterlock,
		Carrier: "1",
		Needles: []machine.Needle{
			{Side: machine.FrontHook, Offset: 0}, {Side: machine.FrontHook, Offset: 1},
			{Side: machine.FrontHook, Offset: 2}, {Side: machine.FrontHook, Offset: 3},
		},
	}
	if err := co.Generate(stream, state, false); err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	for i := 0; i < 4; i++ {
		n := machine.Needle{Side: machine.FrontHook, Offset: i}
		if state.IsEmpty(n) {
			t.Errorf("needle %s not cast on", n)
		}
	}
}

func TestYarnStartThenEnd(t *testing.T) {
	stream, state := newStreamState(5)
	ys := &YarnStart{Carrier: "1", Direction: machine.Plus, SeedFrom: machine.Needle{Side: machine.FrontHook, Offset: 0}, Depth: 2}
	if err := ys.Generate(stream, state, false); err != nil {
		t.Fatalf("YarnStart failed: %v", err)
	}
	if c, ok := state.Carriers["1"]; !ok || !c.Released {
		t.Errorf("expected carrier 1 released after yarn-start, got %+v", c)
	}

	ye := &YarnEnd{Carrier: "1", Direction: machine.Plus, TailFrom: machine.Needle{Side: machine.FrontHook, Offset: 1}, EmitTail: false}
	if err := ye.Generate(stream, state, false); err != nil {
		t.Fatalf("YarnEnd failed: %v", err)
	}
	if c := state.Carriers["1"]; c.Active {
		t.Errorf("expected carrier 1 inactive after yarn-end")
	}
}
