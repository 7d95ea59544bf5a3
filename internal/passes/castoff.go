package passes

import (
	"knitc/internal/fragment"
	"knitc/internal/knitout"
	"knitc/internal/machine"
)

// CastOff is the fragment payload for a row's cast-off (spec §4.H):
// "iterate entries in order; optionally tuck on the previous entry
// (pick-up stitch); knit current entry; move the current loop to the
// next needle via a single move; if same-side as current, emit a
// kickback miss first; drop all pick-up tucks at the end."
type CastOff struct {
	Needles       []machine.Needle
	Carrier       string
	Direction     machine.Direction
	UsePickUp     bool
}

var _ fragment.Generator = (*CastOff)(nil)

func (c *CastOff) Generate(stream *knitout.Stream, state *machine.State, verbose bool) error {
	n := c.Needles
	var pickUps []machine.Needle
	for i := 0; i < len(n); i++ {
		cur := n[i]
		if c.UsePickUp && i > 0 {
			prev := n[i-1]
			stream.Append(knitout.OpTuck, c.Direction.String(), prev.String(), c.Carrier)
			pickUps = append(pickUps, prev)
		}
		stream.Append(knitout.OpKnit, c.Direction.String(), cur.String(), c.Carrier)
		stream.Flush()

		if i+1 < len(n) {
			next := n[i+1]
			if next.Side == cur.Side {
				kickback := machine.Needle{Side: cur.Side.Opposite(), Offset: cur.Offset}
				stream.Append(knitout.OpMiss, c.Direction.String(), kickback.String(), c.Carrier)
				stream.Flush()
			}
			moveToNext(stream, state, cur, next)
		}
	}
	for _, p := range pickUps {
		stream.Append(knitout.OpDrop, p.String())
	}
	stream.Flush()
	return nil
}

// moveToNext performs the single-hop move of the current cast-off loop
// onto the next needle's bed via the opposite bed as a staging point:
// rack to 0, stage cur onto the opposite bed at the same offset, rack
// to the delta needed to reach next, then transfer onto next.
func moveToNext(stream *knitout.Stream, state *machine.State, cur, next machine.Needle) {
	staged := machine.Needle{Side: cur.Side.Opposite(), Offset: cur.Offset}
	if state.Racking != 0 {
		stream.Append(knitout.OpRack, "0")
		stream.Flush()
	}
	stream.Append(knitout.OpXfer, cur.String(), staged.String())
	stream.Flush()

	rack := float64(next.Offset - staged.Offset)
	if staged.Side.IsFront() {
		rack = -rack
	}
	if state.Racking != rack {
		stream.Append(knitout.OpRack, formatRackLocal(rack))
		stream.Flush()
	}
	stream.Append(knitout.OpXfer, staged.String(), next.String())
	stream.Flush()
}

// NewCastOffFragment wraps a CastOff payload in a fragment.Fragment.
func NewCastOffFragment(c *CastOff) *fragment.Fragment {
	return &fragment.Fragment{
		Kind:                fragment.KindCastOff,
		DesiredStitchNumber: -1,
		Gen:                 c,
	}
}
