package fragment

import (
	"testing"

	kerrors "knitc/internal/errors"
	"knitc/internal/knitout"
	"knitc/internal/machine"
)

type fakeGen struct {
	write func(stream *knitout.Stream)
}

func (g *fakeGen) Generate(stream *knitout.Stream, state *machine.State, verbose bool) error {
	g.write(stream)
	return nil
}

func TestBuildRecordsRangeAndComment(t *testing.T) {
	stream := knitout.NewStream(4)
	state := machine.NewState()
	stream.Listen(state)

	f := &Fragment{Kind: KindAction, DesiredStitchNumber: -1, Gen: &fakeGen{write: func(s *knitout.Stream) {
		s.Append(knitout.OpInHook, "1")
		s.Append(knitout.OpKnit, "+", "f0", "1")
	}}}

	if err := f.Build(stream, state, false, kerrors.Site{StreamPtr: -1}); err != nil {
		t.Fatal(err)
	}
	if f.FirstPtr != 0 || f.LastPtr != 1 {
		t.Errorf("range = [%d,%d], want [0,1]", f.FirstPtr, f.LastPtr)
	}
	e, _ := stream.GetEntry(0)
	if e.Comment != "action" {
		t.Errorf("comment = %q, want 'action'", e.Comment)
	}
}

func TestBuildEmitsStitchNumberWhenDesiredDiffers(t *testing.T) {
	stream := knitout.NewStream(4)
	state := machine.NewState()
	stream.Listen(state)
	state.StitchNumber = 5

	f := &Fragment{Kind: KindAction, DesiredStitchNumber: 7, Gen: &fakeGen{write: func(s *knitout.Stream) {}}}
	if err := f.Build(stream, state, false, kerrors.Site{StreamPtr: -1}); err != nil {
		t.Fatal(err)
	}
	e, ok := stream.GetEntry(0)
	if !ok || e.Op != knitout.OpXStitchNumber || e.Args[0] != "7" {
		t.Fatalf("entry 0 = %+v, ok=%v, want x-stitch-number 7", e, ok)
	}
}

func TestBuildRejectsPendingSliders(t *testing.T) {
	stream := knitout.NewStream(4)
	state := machine.NewState()
	stream.Listen(state)
	stream.Append(knitout.OpInHook, "1")
	stream.Append(knitout.OpKnit, "+", "f0", "1")
	stream.Append(knitout.OpXfer, "f0", "bs0")
	stream.Flush()

	f := &Fragment{DesiredStitchNumber: -1, Gen: &fakeGen{write: func(s *knitout.Stream) {}}}
	err := f.Build(stream, state, false, kerrors.Site{StreamPtr: -1})
	if err == nil {
		t.Fatal("expected pending-slider error")
	}
}

func TestCheckPartitionDetectsGap(t *testing.T) {
	p := &Program{Fragments: []*Fragment{
		{FirstPtr: 0, LastPtr: 1},
		{FirstPtr: 3, LastPtr: 4}, // gap at index 2
	}}
	if err := p.CheckPartition(); err == nil {
		t.Fatal("expected partition error for the gap")
	}
}
