package registry

import (
	"knitc/internal/knitout"
	"knitc/internal/machine"
)

// MoveRequest is the payload recorded by the move helper described in
// spec §4.C/§9: "modelled as a scoped message-passing interface: the
// callback records intended shifts into a move-map; the action pass
// consumes the map after all POST functions return."
type MoveRequest struct {
	StitchIndex int
	Offset      int
}

// MoveMap collects move requests from POST passes only (spec §4.C: "Only
// POST-pass move requests are honored (MAIN never shifts; PRE may be
// forbidden)"). Requesting a move twice for the same stitch fails, per
// spec: "The move helper records a requested inter-pass shift of the
// given stitch; attempted multiple times it fails."
type MoveMap struct {
	phase    passPhase
	requests map[int]MoveRequest
}

type passPhase int

const (
	PhasePre passPhase = iota
	PhaseMain
	PhasePost
)

// NewMoveMap creates an empty map scoped to the given pass phase.
func NewMoveMap(phase passPhase) *MoveMap {
	return &MoveMap{phase: phase, requests: make(map[int]MoveRequest)}
}

// Request records a move. It returns false (a soft, prunable failure per
// spec §7) when called from MAIN, or a second time for the same stitch.
func (m *MoveMap) Request(stitchIndex, offset int) bool {
	if m.phase != PhasePost {
		return false
	}
	if _, exists := m.requests[stitchIndex]; exists {
		return false
	}
	m.requests[stitchIndex] = MoveRequest{StitchIndex: stitchIndex, Offset: offset}
	return true
}

// Requests returns every recorded move, consumed by the action pass after
// all POST functions have returned.
func (m *MoveMap) Requests() map[int]MoveRequest {
	return m.requests
}

// ActionEntry is the structured argument passed to a PassFunc (spec
// §4.C). Field names mirror the spec's terse letter-code projections,
// documented here rather than renamed, since user programs (spec §4.J)
// are written against this exact shape:
//
//	K     - the knitout stream to append to
//	D     - the pass direction
//	N     - the primary needle(s) for this stitch
//	NS    - the neighboring needle used for inter-stitch side tucks (may be absent)
//	RN    - racked/secondary needles (e.g. the back-bed needle of a two-sided stitch)
//	CS    - the active carrier names for this pass
//	State - the live machine state
//	Stitch - opaque per-stitch context (stitch index, yarn stack, etc.)
//	Move  - the move helper (spec §4.C/§9); nil outside POST passes
//	SVS   - the session's useSVS configuration flag
type ActionEntry struct {
	K      *knitout.Stream
	D      machine.Direction
	N      []machine.Needle
	NS     *machine.Needle
	RN     []machine.Needle
	CS     []string
	State  *machine.State
	Stitch int
	Move   *MoveMap
	SVS    bool
}
