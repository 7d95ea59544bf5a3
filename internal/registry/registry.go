// Package registry implements the process-wide (here: per-session) action
// program table described in spec §4.C: a named table of (pre, main, post)
// pass-function lists with per-program options, ids 0..K, with the first
// eight ids reserved for base programs and interning by name thereafter.
package registry

import (
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"

	kerrors "knitc/internal/errors"
)

// ID identifies a registered action program.
type ID int

// Reserved base program ids (spec §4.C).
const (
	KNIT ID = iota
	TUCK
	MISS
	KICKBACK
	SPLIT
	RSPLIT
	BKNIT
	FBKNIT
	firstUserID
)

// PassFunc is the signature every pre/main/post pass function satisfies.
// Implementations receive an ActionEntry (spec §4.C: "a single structured
// argument whose fields k,d,n,ns,rn,cs,state,stitch,move,svs are
// projections of an ActionEntry").
type PassFunc func(*ActionEntry) error

// Program is an action program: three ordered pass lists plus the
// program-level options from spec §3/§4.C.
type Program struct {
	Pre  []PassFunc
	Main []PassFunc
	Post []PassFunc

	SplitBySide    bool
	UseCSEMoves    bool
	QuarterRacking []bool // indexed by main-pass position; may be nil
	FrontPass      int    // index into Main carrying the visible front yarn
}

// Registry is the per-session action-program table (spec §6: "Process-wide
// state... initialized with 8 base programs; extended via register; reset
// via resetPrograms").
type Registry struct {
	programs []Program
	names    map[string]ID
}

// New constructs a Registry seeded with the 8 base programs. Base program
// bodies are left to the passes package to populate via SetBase, since
// their pass functions depend on types (fragments, planner) that would
// otherwise create an import cycle with this package.
func New() *Registry {
	r := &Registry{
		programs: make([]Program, firstUserID),
		names:    make(map[string]ID),
	}
	return r
}

// SetBase installs the pass-function bodies for one of the 8 reserved
// ids. It is called once per id during session construction.
func (r *Registry) SetBase(id ID, p Program) {
	if id < 0 || int(id) >= int(firstUserID) {
		return
	}
	r.programs[id] = p
}

// Register interns (pre, main, post, options) under name, returning the
// existing id if name was already registered (spec §4.C). User program ids
// start at firstUserID (8).
func (r *Registry) Register(p Program, name string) ID {
	if name != "" {
		if id, ok := r.names[name]; ok {
			return id
		}
	}
	id := ID(len(r.programs))
	r.programs = append(r.programs, p)
	if name != "" {
		r.names[name] = id
	}
	return id
}

// Lookup resolves an id to its Program. Base ids, including MISS, are
// never reassigned, so a caller holding registry.MISS always resolves to
// the reserved MISS program regardless of how many user programs have
// since been registered; the Action.MISS legacy-alias decision itself
// (spec §9 Open Question) is made earlier, in
// internal/stitchprogram.Lift, before an id ever reaches Lookup.
func (r *Registry) Lookup(id ID) (Program, bool) {
	if id < 0 || int(id) >= len(r.programs) {
		return Program{}, false
	}
	return r.programs[id], true
}

// Reset truncates the table back to the 8 base programs (spec §6:
// "reset via resetPrograms before a new compilation session"). Base
// program bodies set via SetBase are preserved; only user registrations
// and their name interning are discarded.
func (r *Registry) Reset() {
	r.programs = r.programs[:firstUserID]
	r.names = make(map[string]ID)
}

// Names returns every interned user-program name in deterministic
// (sorted) order, for diagnostics and determinism-sensitive tests (spec
// §8 property 9: registering the same program twice returns a stable id).
func (r *Registry) Names() []string {
	out := maps.Keys(r.names)
	slices.Sort(out)
	return out
}

// RequireRegistered returns a Precondition error if id has no entry, used
// by callers (the action pass, the stitch-program lift) that must fail
// fast on a malformed program id rather than silently treating it as
// empty.
func (r *Registry) RequireRegistered(id ID, site kerrors.Site) error {
	if _, ok := r.Lookup(id); !ok {
		return kerrors.New(kerrors.Precondition, site, "action program id %d is not registered", id)
	}
	return nil
}
