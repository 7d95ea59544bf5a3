package machine

import (
	"golang.org/x/exp/slices"

	kerrors "knitc/internal/errors"
	"knitc/internal/knitout"
)

// PresserMode mirrors the machine's fabric-presser extension setting.
type PresserMode string

const (
	PresserOff PresserMode = "off"
	PresserOn  PresserMode = "on"
	PresserAuto PresserMode = "auto"
)

// State is the live mirror of the machine (spec §4.B / §3): four beds,
// racking, named carriers, and the scalar extension state (stitch number,
// presser mode, speed). It implements knitout.Listener so a Stream can
// drive it deterministically via Flush.
type State struct {
	beds     [4]*Bed
	loops    *loopTable
	Racking  float64
	Carriers map[string]*Carrier

	StitchNumber  int
	PresserMode   PresserMode
	Speed         int
	LastCarriers  []string

	// offline records every consumed instruction when Execute (rather
	// than Consume) is used, matching spec §4.B's "offline" mode used by
	// the planner to replay a plan without a live Stream attached.
	offline []knitout.Entry
}

// NewState constructs an empty machine state with all four beds clear.
func NewState() *State {
	s := &State{
		loops:    newLoopTable(),
		Racking:  0,
		Carriers: make(map[string]*Carrier),
	}
	for i := range s.beds {
		s.beds[i] = newBed(Side(i))
	}
	return s
}

func (s *State) bed(side Side) *Bed { return s.beds[side] }

// Consume applies one instruction to the state. It is called once per
// appended instruction by Stream.Flush (spec §5).
func (s *State) Consume(op knitout.Opcode, args []string, metadata int) {
	switch op {
	case knitout.OpIn, knitout.OpInHook:
		for _, cs := range args {
			s.activateCarrier(cs, op == knitout.OpInHook)
		}
	case knitout.OpOut, knitout.OpOutHook:
		for _, cs := range args {
			if c, ok := s.Carriers[cs]; ok {
				c.Active = false
				c.Released = op == knitout.OpOutHook
			}
		}
	case knitout.OpReleaseHook:
		for _, cs := range args {
			if c, ok := s.Carriers[cs]; ok {
				c.Released = true
			}
		}
	case knitout.OpRack:
		if len(args) == 1 {
			s.Racking = ParseRack(args[0])
		}
	case knitout.OpKnit, knitout.OpTuck:
		s.consumeKnitOrTuck(op, args, metadata)
	case knitout.OpMiss:
		s.consumeMiss(args)
	case knitout.OpXfer:
		s.consumeXfer(args)
	case knitout.OpSplit:
		s.consumeSplit(args, metadata)
	case knitout.OpDrop:
		if len(args) == 1 {
			if n, ok := ParseNeedle(args[0]); ok {
				s.bed(n.Side).take(n.Offset)
			}
		}
	case knitout.OpAMiss:
		// all-needle miss: no loop or carrier-anchor effect to mirror.
	case knitout.OpPause, knitout.OpStitch:
		// bookkeeping markers only.
	case knitout.OpXStitchNumber:
		if len(args) == 1 {
			if v, ok := atoiSafe(args[0]); ok {
				s.StitchNumber = v
			}
		}
	case knitout.OpXSpeedNumber:
		if len(args) == 1 {
			if v, ok := atoiSafe(args[0]); ok {
				s.Speed = v
			}
		}
	case knitout.OpXPresserMode:
		if len(args) == 1 {
			s.PresserMode = PresserMode(args[0])
		}
	}
}

// Execute additionally records the instruction for offline replay (spec
// §4.B), used by the planner when it wants to simulate a tentative plan
// against a scratch copy of the state without a backing Stream.
func (s *State) Execute(op knitout.Opcode, args []string) {
	s.offline = append(s.offline, knitout.Entry{Op: op, Args: append([]string(nil), args...), Metadata: -1})
	s.Consume(op, args, -1)
}

func (s *State) activateCarrier(name string, hooked bool) {
	c, ok := s.Carriers[name]
	if !ok {
		c = &Carrier{Name: name}
		s.Carriers[name] = c
	}
	c.Active = true
	c.Released = !hooked
	c.InBed = true
}

func (s *State) consumeKnitOrTuck(op knitout.Opcode, args []string, metadata int) {
	if len(args) < 2 {
		return
	}
	dir := ParseDirection(args[0])
	n, ok := ParseNeedle(args[1])
	if !ok {
		return
	}
	carriers := args[2:]
	prev := s.bed(n.Side).take(n.Offset)
	var loop *Loop
	if op == knitout.OpKnit {
		loop = s.loops.create(metadata, prev)
	} else {
		// tuck: new loop sits atop, prior loops remain (not consumed).
		loop = s.loops.create(metadata, nil)
		prev = append(prev, loop.ID)
		s.bed(n.Side).place(n.Offset, prev...)
		s.anchorCarriers(carriers, n, dir)
		return
	}
	s.bed(n.Side).place(n.Offset, loop.ID)
	s.anchorCarriers(carriers, n, dir)
}

func (s *State) consumeMiss(args []string) {
	if len(args) < 2 {
		return
	}
	dir := ParseDirection(args[0])
	n, ok := ParseNeedle(args[1])
	if !ok {
		return
	}
	s.anchorCarriers(args[2:], n, dir)
}

func (s *State) anchorCarriers(names []string, n Needle, dir Direction) {
	side := Right
	if dir == Minus {
		side = Left
	}
	for _, name := range names {
		c, ok := s.Carriers[name]
		if !ok {
			c = &Carrier{Name: name}
			s.Carriers[name] = c
		}
		c.Anchor = n
		c.Side = side
		c.InBed = true
		c.Active = true
	}
	if len(names) > 0 {
		s.LastCarriers = append([]string(nil), names...)
	}
}

func (s *State) consumeXfer(args []string) {
	if len(args) != 2 {
		return
	}
	from, ok1 := ParseNeedle(args[0])
	to, ok2 := ParseNeedle(args[1])
	if !ok1 || !ok2 {
		return
	}
	ids := s.bed(from.Side).take(from.Offset)
	existing := s.bed(to.Side).Loops(to.Offset)
	s.bed(to.Side).place(to.Offset, append(append([]LoopID(nil), existing...), ids...)...)
}

func (s *State) consumeSplit(args []string, metadata int) {
	if len(args) < 3 {
		return
	}
	dir := ParseDirection(args[0])
	n, ok1 := ParseNeedle(args[1])
	n2, ok2 := ParseNeedle(args[2])
	if !ok1 || !ok2 {
		return
	}
	carriers := args[3:]
	prev := s.bed(n.Side).take(n.Offset)
	loop := s.loops.create(metadata, nil)
	s.bed(n.Side).place(n.Offset, loop.ID)
	existing := s.bed(n2.Side).Loops(n2.Offset)
	s.bed(n2.Side).place(n2.Offset, append(append([]LoopID(nil), existing...), prev...)...)
	s.anchorCarriers(carriers, n, dir)
}

func atoiSafe(s string) (int, bool) {
	n := 0
	neg := false
	if s == "" {
		return 0, false
	}
	for i, r := range s {
		if i == 0 && r == '-' {
			neg = true
			continue
		}
		if r < '0' || r > '9' {
			return 0, false
		}
		n = n*10 + int(r-'0')
	}
	if neg {
		n = -n
	}
	return n, true
}

// --- Queries (spec §4.B) ---

// GetNeedleLoops returns the loop ids currently on n, in stacking order.
func (s *State) GetNeedleLoops(n Needle) []LoopID {
	return s.bed(n.Side).Loops(n.Offset)
}

// IsEmpty reports whether n holds no loops.
func (s *State) IsEmpty(n Needle) bool {
	return s.bed(n.Side).IsEmpty(n.Offset)
}

// HasPendingSliders reports whether any slider bed currently holds loops,
// violating invariant P (spec §3) if true across a pass boundary.
func (s *State) HasPendingSliders() bool {
	return len(s.bed(FrontSlider).loops) > 0 || len(s.bed(BackSlider).loops) > 0
}

// carrierConflictThreshold is the geometric distance (in front-relative
// offset units) within which a carrier is considered to be in the path of
// a needle, per spec §4.E's carrier-safety helper.
const carrierConflictThreshold = 0.5

// GetCarrierConflicts returns, in deterministic name order, the carriers
// whose geometric position overlaps n under the current racking.
func (s *State) GetCarrierConflicts(n Needle) []*Carrier {
	names := make([]string, 0, len(s.Carriers))
	for name := range s.Carriers {
		names = append(names, name)
	}
	slices.Sort(names)
	var out []*Carrier
	for _, name := range names {
		c := s.Carriers[name]
		if c.conflictsWith(n, s.Racking, carrierConflictThreshold) {
			out = append(out, c)
		}
	}
	return out
}

// FindLoopNeedle returns the first needle (in deterministic bed/offset
// order) holding a loop for which pred returns true.
func (s *State) FindLoopNeedle(pred func(Loop) bool) (Needle, bool) {
	for side := Side(0); side < 4; side++ {
		offsets := s.bed(side).Offsets()
		slices.Sort(offsets)
		for _, off := range offsets {
			for _, id := range s.bed(side).Loops(off) {
				l, ok := s.loops.get(id)
				if ok && pred(*l) {
					return Needle{Side: side, Offset: off}, true
				}
			}
		}
	}
	return Needle{}, false
}

// FilterLoopNeedles returns every needle (sorted, deterministic) holding at
// least one loop for which pred returns true.
func (s *State) FilterLoopNeedles(pred func(Loop) bool) []Needle {
	var out []Needle
	for side := Side(0); side < 4; side++ {
		offsets := s.bed(side).Offsets()
		slices.Sort(offsets)
		for _, off := range offsets {
			for _, id := range s.bed(side).Loops(off) {
				l, ok := s.loops.get(id)
				if ok && pred(*l) {
					out = append(out, Needle{Side: side, Offset: off})
					break
				}
			}
		}
	}
	return out
}

// Loop returns the loop record for id.
func (s *State) Loop(id LoopID) (Loop, bool) {
	l, ok := s.loops.get(id)
	if !ok {
		return Loop{}, false
	}
	return *l, true
}

// Clone returns a deep-enough copy of the state for the planner to replay
// a tentative plan against (spec §4.E: "re-checked on a replayed copy of
// the state"). Loop identities are shared (loops are never mutated, only
// moved), but bed contents and carrier positions are independent.
func (s *State) Clone() *State {
	c := &State{
		loops:    s.loops,
		Racking:  s.Racking,
		Carriers: make(map[string]*Carrier, len(s.Carriers)),

		StitchNumber: s.StitchNumber,
		PresserMode:  s.PresserMode,
		Speed:        s.Speed,
		LastCarriers: append([]string(nil), s.LastCarriers...),
	}
	for name, car := range s.Carriers {
		cc := *car
		c.Carriers[name] = &cc
	}
	for i, b := range s.beds {
		nb := newBed(Side(i))
		for off, ids := range b.loops {
			nb.place(off, ids...)
		}
		c.beds[i] = nb
	}
	return c
}

// IsCompleteHalfGaugeState reports whether no slider of any bed holds a
// loop, the precondition for the planner's half-gauge fast path (spec
// §4.E) to be a *complete* half-gauge state (no pending sliders, no
// half-gauge sliders in use at all).
func (s *State) IsCompleteHalfGaugeState() bool {
	return !s.HasPendingSliders()
}

// RequireNoPendingSliders is the invariant-P check fragments run before
// building (spec §4.D step 1); it returns a fatal StateInvariant error
// rather than panicking, per spec §7.
func (s *State) RequireNoPendingSliders(site kerrors.Site) error {
	if s.HasPendingSliders() {
		return kerrors.New(kerrors.StateInvariant, site, "pending slider loops at pass boundary")
	}
	return nil
}
