package machine

// LoopID is an opaque handle for a Loop; stable for the life of the loop.
type LoopID int64

// Loop is a thread held on a needle (spec §3). It carries opaque
// provenance — which loops it was knit through (Parents) and the
// carrier-history of the same yarn (Previous) — as integer stitch
// indices, per spec §3's ownership note ("no loop is referenced outside
// the state after its birth except via its integer stitch index used as
// metadata").
type Loop struct {
	ID          LoopID
	StitchIndex int
	Parents     []LoopID
	Previous    []LoopID
}

// loopTable owns every loop ever created during a compilation session.
type loopTable struct {
	next  LoopID
	loops map[LoopID]*Loop
}

func newLoopTable() *loopTable {
	return &loopTable{loops: make(map[LoopID]*Loop)}
}

func (t *loopTable) create(stitchIndex int, parents []LoopID) *Loop {
	t.next++
	l := &Loop{ID: t.next, StitchIndex: stitchIndex, Parents: append([]LoopID(nil), parents...)}
	t.loops[l.ID] = l
	return l
}

func (t *loopTable) get(id LoopID) (*Loop, bool) {
	l, ok := t.loops[id]
	return l, ok
}
