// Package fragment implements the program fragment base (spec §4.D): the
// unit of compilation every pass (shaping, alignment, action, cast-on/off,
// yarn-start/end) is built from.
package fragment

import (
	kerrors "knitc/internal/errors"
	"knitc/internal/knitout"
	"knitc/internal/machine"
)

// Kind tags a fragment's role, used for diagnostics and for hooks that
// need to recognize a fragment type to transform it in place (spec §9:
// "Hooks modifying fragments in flight").
type Kind int

const (
	KindNodeStart Kind = iota
	KindYarnStart
	KindCastOn
	KindAction
	KindShaping
	KindAlignment
	KindCastOff
	KindYarnEnd
	KindStepEnd
)

func (k Kind) String() string {
	switch k {
	case KindNodeStart:
		return "node-start"
	case KindYarnStart:
		return "yarn-start"
	case KindCastOn:
		return "cast-on"
	case KindAction:
		return "action"
	case KindShaping:
		return "shaping"
	case KindAlignment:
		return "alignment"
	case KindCastOff:
		return "cast-off"
	case KindYarnEnd:
		return "yarn-end"
	case KindStepEnd:
		return "step-end"
	}
	return "fragment"
}

// Generator is implemented by each concrete fragment payload (shaping,
// action, cast-on, ...). It is the "generate" step of the Build template
// method (spec §4.D step 4): write instructions to the stream and mutate
// state, returning a fatal error on any precondition/invariant breach.
type Generator interface {
	Generate(stream *knitout.Stream, state *machine.State, verbose bool) error
}

// Fragment is the common envelope around every concrete pass payload
// (spec §4.D / §9: "fragment variants hold only value-type payloads;
// parent/sibling links encoded as indices into the program's fragment
// vector to avoid cyclic ownership").
type Fragment struct {
	Kind Kind

	// ParentIndex/PrevIndex/NextIndex are indices into the owning
	// Program's fragment slice, or -1 when absent.
	ParentIndex int
	PrevIndex   int
	NextIndex   int

	FirstPtr int
	LastPtr  int

	DesiredStitchNumber int // -1 means "no change requested"

	Gen Generator
}

// Build is the template method from spec §4.D:
//  1. assert no pending sliders
//  2. record firstPtr
//  3. emit x-stitch-number if the desired stitch number differs
//  4. call Generate
//  5. flush; record lastPtr; attach a type comment at firstPtr if absent
func (f *Fragment) Build(stream *knitout.Stream, state *machine.State, verbose bool, site kerrors.Site) error {
	if err := state.RequireNoPendingSliders(site); err != nil {
		return err
	}

	f.FirstPtr = stream.Length()

	if f.DesiredStitchNumber >= 0 && state.StitchNumber != f.DesiredStitchNumber {
		stream.Append(knitout.OpXStitchNumber, itoa(f.DesiredStitchNumber))
	}

	if err := f.Gen.Generate(stream, state, verbose); err != nil {
		return err
	}

	stream.Flush()
	f.LastPtr = stream.Length() - 1

	if f.LastPtr >= f.FirstPtr {
		if e, ok := stream.GetEntry(f.FirstPtr); ok && e.Comment == "" {
			stream.SetComment(f.FirstPtr, f.Kind.String())
		}
	}
	return nil
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}

// Program owns an ordered vector of fragments, the allocator for
// ParentIndex/Prev/Next links (spec §9).
type Program struct {
	Fragments []*Fragment
}

// Append adds f to the program, linking it after the current last
// fragment, and returns its index.
func (p *Program) Append(f *Fragment) int {
	idx := len(p.Fragments)
	f.PrevIndex, f.NextIndex, f.ParentIndex = -1, -1, -1
	if idx > 0 {
		f.PrevIndex = idx - 1
		p.Fragments[idx-1].NextIndex = idx
	}
	p.Fragments = append(p.Fragments, f)
	return idx
}

// CheckPartition verifies spec §8 property 7: fragment [FirstPtr,LastPtr]
// ranges partition the stream into contiguous, non-overlapping intervals
// in emission order.
func (p *Program) CheckPartition() error {
	expectedNext := 0
	for i, f := range p.Fragments {
		if f.LastPtr < f.FirstPtr {
			continue // empty fragment, contributes nothing
		}
		if f.FirstPtr != expectedNext {
			return kerrors.New(kerrors.StateInvariant, kerrors.Site{StreamPtr: f.FirstPtr},
				"fragment %d range [%d,%d] does not continue the stream partition at %d", i, f.FirstPtr, f.LastPtr, expectedNext)
		}
		expectedNext = f.LastPtr + 1
	}
	return nil
}
