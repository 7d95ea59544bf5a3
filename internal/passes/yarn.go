package passes

import (
	"knitc/internal/fragment"
	"knitc/internal/knitout"
	"knitc/internal/machine"
)

// YarnStart is the fragment payload for bringing a carrier into work
// (spec §4.H): "inhook cs; seed tucks in a depth-dependent pattern;
// releasehook cs."
type YarnStart struct {
	Carrier   string
	Direction machine.Direction
	SeedFrom  machine.Needle
	Depth     int // spec §6: insertDepth, int >= 1
}

var _ fragment.Generator = (*YarnStart)(nil)

func (y *YarnStart) Generate(stream *knitout.Stream, state *machine.State, verbose bool) error {
	depth := y.Depth
	if depth < 1 {
		depth = 1
	}
	stream.Append(knitout.OpInHook, y.Carrier)
	stream.Flush()

	dir := y.Direction
	for i := 0; i < depth; i++ {
		n := machine.Needle{Side: y.SeedFrom.Side, Offset: y.SeedFrom.Offset + i}
		stream.Append(knitout.OpTuck, dir.String(), n.String(), y.Carrier)
		dir = opposite(dir)
	}
	stream.Flush()

	stream.Append(knitout.OpReleaseHook, y.Carrier)
	stream.Flush()
	return nil
}

// YarnEnd is the fragment payload for taking a carrier out of work
// (spec §4.H): "optional 5-stitch tail alternating direction; outhook
// cs; drop tail needle."
type YarnEnd struct {
	Carrier   string
	Direction machine.Direction
	TailFrom  machine.Needle
	EmitTail  bool
}

var _ fragment.Generator = (*YarnEnd)(nil)

const yarnEndTailStitches = 5

func (y *YarnEnd) Generate(stream *knitout.Stream, state *machine.State, verbose bool) error {
	tailNeedle := y.TailFrom
	if y.EmitTail {
		dir := y.Direction
		for i := 0; i < yarnEndTailStitches; i++ {
			n := machine.Needle{Side: y.TailFrom.Side, Offset: y.TailFrom.Offset + i}
			stream.Append(knitout.OpTuck, dir.String(), n.String(), y.Carrier)
			tailNeedle = n
			dir = opposite(dir)
		}
		stream.Flush()
	}

	stream.Append(knitout.OpOutHook, y.Carrier)
	stream.Append(knitout.OpDrop, tailNeedle.String())
	stream.Flush()
	return nil
}

func opposite(d machine.Direction) machine.Direction {
	if d == machine.Plus {
		return machine.Minus
	}
	return machine.Plus
}

// NewYarnStartFragment wraps a YarnStart payload in a fragment.Fragment.
func NewYarnStartFragment(y *YarnStart) *fragment.Fragment {
	return &fragment.Fragment{Kind: fragment.KindYarnStart, DesiredStitchNumber: -1, Gen: y}
}

// NewYarnEndFragment wraps a YarnEnd payload in a fragment.Fragment.
func NewYarnEndFragment(y *YarnEnd) *fragment.Fragment {
	return &fragment.Fragment{Kind: fragment.KindYarnEnd, DesiredStitchNumber: -1, Gen: y}
}
