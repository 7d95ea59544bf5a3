// Package node models the compiler's external input contract (spec §6):
// a sequence of yarn nodes, each carrying the steps, stitch-program
// trace, and block-boundary metadata the driver walks during assembly.
package node

import "knitc/internal/stitch"

// Block is one knitting operation's worth of active-bed state: the
// stitches involved, their needle assignment, and the flags the passes
// and driver need to decide cast-on/cast-off/yarn handling (spec §6).
type Block struct {
	stitches       []stitch.TracedStitch
	needles        []int // front-bed offsets, or back-bed via negative encoding left to caller
	activeIndex    int
	directions     []int // +1 or -1 per needle, same length as needles
	circular       bool
	startsYarn     bool
	endsYarn       bool
	needsCastOn    bool
	needsCastOff   bool
	row            int
	next           *Block
	shapingTargets []int // target layout for this block's needles, if shaping is needed
}

// NewBlock builds a Block from its stitch list and needle layout.
func NewBlock(stitches []stitch.TracedStitch, needles []int, directions []int, row int) *Block {
	return &Block{stitches: stitches, needles: needles, directions: directions, row: row}
}

func (b *Block) Stitches() []stitch.TracedStitch { return b.stitches }
func (b *Block) Needles() []int                  { return b.needles }
func (b *Block) ActiveIndex() int                { return b.activeIndex }
func (b *Block) Directions() []int               { return b.directions }
func (b *Block) Circular() bool                  { return b.circular }
func (b *Block) StartsYarn() bool                { return b.startsYarn }
func (b *Block) EndsYarn() bool                  { return b.endsYarn }
func (b *Block) NeedsCastOn() bool               { return b.needsCastOn }
func (b *Block) NeedsCastOff() bool              { return b.needsCastOff }
func (b *Block) Row() int                        { return b.row }
func (b *Block) Next() *Block                    { return b.next }

// ShapingTargets returns the target needle layout to realize via the
// transfer planner, or nil if this block's needles are already final
// (spec §4.F: a shaping fragment is only built when sources and targets
// differ).
func (b *Block) ShapingTargets() []int { return b.shapingTargets }

// SetActiveIndex records which needle index is the action's target
// (spec §6); used while assembling blocks from a stitch trace.
func (b *Block) SetActiveIndex(i int) { b.activeIndex = i }

// SetCircular, SetYarnBoundaries, SetCastFlags and SetNext are setters
// used by the assembly phase while it builds a node's block chain; they
// exist because Block's fields are unexported to keep callers reading
// through the same accessor surface the passes/driver use.
func (b *Block) SetCircular(v bool) { b.circular = v }

func (b *Block) SetYarnBoundaries(starts, ends bool) {
	b.startsYarn = starts
	b.endsYarn = ends
}

func (b *Block) SetCastFlags(castOn, castOff bool) {
	b.needsCastOn = castOn
	b.needsCastOff = castOff
}

func (b *Block) SetNext(next *Block) { b.next = next }

// SetShapingTargets records the needle layout this block's loops must be
// realigned to after its action program runs (spec §4.F).
func (b *Block) SetShapingTargets(targets []int) { b.shapingTargets = targets }

// Step is one scheduled action within a node: the block it runs over
// (spec §6). The program is chosen from the block's lifted stitches.
type Step struct {
	Block *Block
}

// Node is one yarn-carrier's worth of knitting: an ordered step list
// plus the block-row bookkeeping the driver uses to stitch nodes
// together across cast-on/cast-off boundaries (spec §6).
type Node struct {
	Steps         []Step
	Trace         []stitch.TracedStitch
	StitchCount   int
	FirstBlockRow int
	LastBlockRow  int
	Following     []*Node
}
