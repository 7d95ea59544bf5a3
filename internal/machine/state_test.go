package machine

import (
	"testing"

	"knitc/internal/knitout"
)

func buildSimple(t *testing.T) (*knitout.Stream, *State) {
	t.Helper()
	s := knitout.NewStream(4)
	st := NewState()
	s.Listen(st)
	return s, st
}

func TestKnitCreatesLoopAndAnchorsCarrier(t *testing.T) {
	s, st := buildSimple(t)
	s.Append(knitout.OpInHook, "1")
	s.Append(knitout.OpKnit, "+", "f0", "1")
	s.Flush()

	n := Needle{Side: FrontHook, Offset: 0}
	if st.IsEmpty(n) {
		t.Fatalf("expected loop at f0")
	}
	c, ok := st.Carriers["1"]
	if !ok || c.Anchor != n || c.Side != Right {
		t.Fatalf("carrier anchor = %+v, ok=%v, want anchored at f0 on the right", c, ok)
	}
}

func TestXferMovesLoopToOppositeBed(t *testing.T) {
	s, st := buildSimple(t)
	s.Append(knitout.OpInHook, "1")
	s.Append(knitout.OpKnit, "+", "f0", "1")
	s.Append(knitout.OpXfer, "f0", "b0")
	s.Flush()

	front := Needle{Side: FrontHook, Offset: 0}
	back := Needle{Side: BackHook, Offset: 0}
	if !st.IsEmpty(front) {
		t.Errorf("expected f0 empty after xfer")
	}
	if st.IsEmpty(back) {
		t.Errorf("expected b0 occupied after xfer")
	}
}

func TestHasPendingSlidersDetectsSliderLoops(t *testing.T) {
	s, st := buildSimple(t)
	s.Append(knitout.OpInHook, "1")
	s.Append(knitout.OpKnit, "+", "f0", "1")
	s.Append(knitout.OpXfer, "f0", "bs0")
	s.Flush()

	if !st.HasPendingSliders() {
		t.Errorf("expected pending sliders after xfer to bs0")
	}
}

func TestFrontOffsetMatchesRacking(t *testing.T) {
	n := Needle{Side: BackHook, Offset: 3}
	if got := n.FrontOffset(2); got != 5 {
		t.Errorf("FrontOffset = %v, want 5", got)
	}
}

func TestCloneIsIndependent(t *testing.T) {
	s, st := buildSimple(t)
	s.Append(knitout.OpInHook, "1")
	s.Append(knitout.OpKnit, "+", "f0", "1")
	s.Flush()

	clone := st.Clone()
	s.Append(knitout.OpXfer, "f0", "b0")
	s.Flush()

	front := Needle{Side: FrontHook, Offset: 0}
	if clone.IsEmpty(front) {
		t.Errorf("clone mutated by original's later xfer")
	}
	if st.IsEmpty(front) {
		// expected: original did move
	} else {
		t.Errorf("original state did not reflect xfer")
	}
}
