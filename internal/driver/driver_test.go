package driver

import (
	"testing"

	"knitc/internal/config"
	"knitc/internal/machine"
	"knitc/internal/node"
	"knitc/internal/session"
	"knitc/internal/stitch"
)

func buildSimpleNode(t *testing.T) *node.Node {
	t.Helper()
	castOnStitches := []stitch.TracedStitch{
		{Index: 0, ProgramID: -1, CoursePrev: -1, CourseNext: -1, Type: stitch.Knit,
			Yarns: stitch.YarnStack{Yarns: []string{"1"}, FrontYarns: map[string]bool{"1": true}}},
		{Index: 1, ProgramID: -1, CoursePrev: -1, CourseNext: -1, Type: stitch.Knit,
			Yarns: stitch.YarnStack{Yarns: []string{"1"}, FrontYarns: map[string]bool{"1": true}}},
	}
	castOnBlock := node.NewBlock(castOnStitches, []int{0, 1}, []int{1, 1}, 0)
	castOnBlock.SetYarnBoundaries(true, false)
	castOnBlock.SetCastFlags(true, false)

	actionStitches := []stitch.TracedStitch{
		{Index: 2, ProgramID: -1, CoursePrev: -1, CourseNext: -1, Type: stitch.Knit,
			Yarns: stitch.YarnStack{Yarns: []string{"1"}, FrontYarns: map[string]bool{"1": true}}},
		{Index: 3, ProgramID: -1, CoursePrev: -1, CourseNext: -1, Type: stitch.Knit,
			Yarns: stitch.YarnStack{Yarns: []string{"1"}, FrontYarns: map[string]bool{"1": true}}},
	}
	actionBlock := node.NewBlock(actionStitches, []int{0, 1}, []int{1, 1}, 1)
	actionBlock.SetYarnBoundaries(false, true)

	castOnBlock.SetNext(actionBlock)

	trace := append(append([]stitch.TracedStitch{}, castOnStitches...), actionStitches...)
	return &node.Node{
		Steps:       []node.Step{{Block: castOnBlock}, {Block: actionBlock}},
		Trace:       trace,
		StitchCount: len(trace),
	}
}

func TestCompileWalksCastOnThenActionThenYarnEnd(t *testing.T) {
	sess, err := session.New(config.Defaults(), nil, nil)
	if err != nil {
		t.Fatalf("session.New failed: %v", err)
	}
	n := buildSimpleNode(t)
	d := New(n.StitchCount, sess)

	if err := d.Compile([]*node.Node{n}); err != nil {
		t.Fatalf("Compile failed: %v", err)
	}
	if d.Phase() != PhaseFinish {
		t.Errorf("Phase() = %v, want PhaseFinish", d.Phase())
	}
	if err := d.Program.CheckPartition(); err != nil {
		t.Errorf("CheckPartition failed: %v", err)
	}
	if len(d.Program.Fragments) == 0 {
		t.Error("expected at least one fragment to be recorded")
	}
}

func TestCompileAtHalfGaugeUsesPhysicalNeedleOffsets(t *testing.T) {
	opts := config.Defaults()
	opts.Gauge = config.GaugeHalf
	sess, err := session.New(opts, nil, nil)
	if err != nil {
		t.Fatalf("session.New failed: %v", err)
	}
	n := buildSimpleNode(t)
	d := New(n.StitchCount, sess)

	if err := d.Compile([]*node.Node{n}); err != nil {
		t.Fatalf("Compile failed: %v", err)
	}

	// Logical needle 1 (the cast-on/action block's second stitch) must
	// land on physical offset 2 at half gauge, never on physical offset 1.
	if d.State.IsEmpty(machine.Needle{Side: machine.FrontHook, Offset: 2}) {
		t.Error("expected a loop at physical offset 2 (logical offset 1 expanded)")
	}
	if !d.State.IsEmpty(machine.Needle{Side: machine.FrontHook, Offset: 1}) {
		t.Error("physical offset 1 should remain empty at half gauge")
	}
}

// TestCompileRealizesShapingTargets exercises a decrease at the right
// end (sources f0..f3, targets f0,f1,f2,f2): after Compile, f2 holds two
// loops and f3 is empty.
func TestCompileRealizesShapingTargets(t *testing.T) {
	sess, err := session.New(config.Defaults(), nil, nil)
	if err != nil {
		t.Fatalf("session.New failed: %v", err)
	}

	castOnStitches := make([]stitch.TracedStitch, 4)
	for i := range castOnStitches {
		castOnStitches[i] = stitch.TracedStitch{Index: i, ProgramID: -1, CoursePrev: -1, CourseNext: -1,
			Type: stitch.Knit, Yarns: stitch.YarnStack{Yarns: []string{"1"}, FrontYarns: map[string]bool{"1": true}}}
	}
	castOnBlock := node.NewBlock(castOnStitches, []int{0, 1, 2, 3}, []int{1, 1, 1, 1}, 0)
	castOnBlock.SetYarnBoundaries(true, false)
	castOnBlock.SetCastFlags(true, false)

	actionStitches := make([]stitch.TracedStitch, 4)
	for i := range actionStitches {
		actionStitches[i] = stitch.TracedStitch{Index: 4 + i, ProgramID: -1, CoursePrev: -1, CourseNext: -1,
			Type: stitch.Knit, Yarns: stitch.YarnStack{Yarns: []string{"1"}, FrontYarns: map[string]bool{"1": true}}}
	}
	actionBlock := node.NewBlock(actionStitches, []int{0, 1, 2, 3}, []int{1, 1, 1, 1}, 1)
	actionBlock.SetYarnBoundaries(false, true)
	actionBlock.SetShapingTargets([]int{0, 1, 2, 2})

	castOnBlock.SetNext(actionBlock)

	trace := append(append([]stitch.TracedStitch{}, castOnStitches...), actionStitches...)
	n := &node.Node{
		Steps:       []node.Step{{Block: castOnBlock}, {Block: actionBlock}},
		Trace:       trace,
		StitchCount: len(trace),
	}

	d := New(n.StitchCount, sess)
	if err := d.Compile([]*node.Node{n}); err != nil {
		t.Fatalf("Compile failed: %v", err)
	}

	if got := len(d.State.GetNeedleLoops(machine.Needle{Side: machine.FrontHook, Offset: 2})); got != 2 {
		t.Errorf("f2 holds %d loops, want 2", got)
	}
	if !d.State.IsEmpty(machine.Needle{Side: machine.FrontHook, Offset: 3}) {
		t.Error("f3 should be empty after the decrease")
	}
}

// TestCompileFlatToCircularTransitionKnitsBackNeedle exercises S4: a
// stitch whose topology goes one-sided -> two-sided must knit its racked
// (back-bed) counterpart during the front pass, not just its front
// needle.
func TestCompileFlatToCircularTransitionKnitsBackNeedle(t *testing.T) {
	sess, err := session.New(config.Defaults(), nil, nil)
	if err != nil {
		t.Fatalf("session.New failed: %v", err)
	}

	flatStitch := stitch.TracedStitch{Index: 0, ProgramID: -1, CoursePrev: -1, CourseNext: -1, Type: stitch.Knit,
		Yarns: stitch.YarnStack{Yarns: []string{"1"}, FrontYarns: map[string]bool{"1": true}}}
	flatBlock := node.NewBlock([]stitch.TracedStitch{flatStitch}, []int{0}, []int{1}, 0)
	flatBlock.SetYarnBoundaries(true, false)
	flatBlock.SetCastFlags(true, false)

	transitionStitch := stitch.TracedStitch{Index: 1, ProgramID: -1, CoursePrev: 0, CourseNext: -1, Type: stitch.Knit,
		Yarns: stitch.YarnStack{Yarns: []string{"1"}, FrontYarns: map[string]bool{"1": true}},
		Flags: stitch.Flags{TwoSided: true}}
	transitionBlock := node.NewBlock([]stitch.TracedStitch{transitionStitch}, []int{0}, []int{1}, 1)
	transitionBlock.SetYarnBoundaries(false, true)

	flatBlock.SetNext(transitionBlock)

	trace := []stitch.TracedStitch{flatStitch, transitionStitch}
	n := &node.Node{
		Steps:       []node.Step{{Block: flatBlock}, {Block: transitionBlock}},
		Trace:       trace,
		StitchCount: len(trace),
	}

	d := New(n.StitchCount, sess)
	if err := d.Compile([]*node.Node{n}); err != nil {
		t.Fatalf("Compile failed: %v", err)
	}

	if d.State.IsEmpty(machine.Needle{Side: machine.BackHook, Offset: 0}) {
		t.Error("expected the front-back knit pass to place a loop on the back-bed needle")
	}
}
