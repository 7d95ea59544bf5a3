package passes

import (
	"knitc/internal/fragment"
	"knitc/internal/knitout"
	"knitc/internal/machine"
)

// CastOnType selects the cast-on pattern (spec §6: castOnType).
type CastOnType string

const (
	CastOnInterlock CastOnType = "interlock"
	CastOnKickback  CastOnType = "kickback"
)

// CastOn is the fragment payload for a row's cast-on (spec §4.H).
type CastOn struct {
	Type     CastOnType
	Needles  []machine.Needle
	Carrier  string
	Circular bool
}

var _ fragment.Generator = (*CastOn)(nil)

func (c *CastOn) Generate(stream *knitout.Stream, state *machine.State, verbose bool) error {
	switch c.Type {
	case CastOnKickback:
		return c.generateKickback(stream, state)
	default:
		return c.generateInterlock(stream, state)
	}
}

// generateInterlock implements spec §4.H: "N>1 entries, half-knit
// indices in alternation (two passes for flat, same-direction for
// circular)."
func (c *CastOn) generateInterlock(stream *knitout.Stream, state *machine.State) error {
	n := c.Needles
	if len(n) <= 1 {
		return nil
	}
	knitEntries := func(dir machine.Direction, start, step int) {
		for i := start; i >= 0 && i < len(n); i += step {
			stream.Append(knitout.OpKnit, dir.String(), n[i].String(), c.Carrier)
		}
		stream.Flush()
	}
	if c.Circular {
		// same-direction pass for each alternating half.
		knitEntries(machine.Plus, 0, 2)
		knitEntries(machine.Plus, 1, 2)
		return nil
	}
	knitEntries(machine.Plus, 0, 2)
	last := len(n) - 1
	if last%2 == 0 {
		last--
	}
	knitEntries(machine.Minus, last, -2)
	return nil
}

// generateKickback implements spec §4.H: "for circular N>4, emit a
// pattern (i-3, i-2, i, i-1 backward) per i."
func (c *CastOn) generateKickback(stream *knitout.Stream, state *machine.State) error {
	n := c.Needles
	if len(n) <= 4 {
		return c.generateInterlock(stream, state)
	}
	for i := 3; i < len(n); i++ {
		order := []int{i - 3, i - 2, i, i - 1}
		for j, idx := range order {
			dir := machine.Plus
			if j == len(order)-1 {
				dir = machine.Minus
			}
			stream.Append(knitout.OpKnit, dir.String(), n[idx].String(), c.Carrier)
		}
	}
	stream.Flush()
	return nil
}

// NewCastOnFragment wraps a CastOn payload in a fragment.Fragment.
func NewCastOnFragment(c *CastOn) *fragment.Fragment {
	return &fragment.Fragment{
		Kind:                fragment.KindCastOn,
		DesiredStitchNumber: -1,
		Gen:                 c,
	}
}
