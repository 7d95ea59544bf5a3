// Package driver implements the compiler's top-level state machine
// (spec §4.I): alloc -> init -> assemble -> generate -> modify ->
// finish, walking the input node sequence and building one fragment
// per node-start/yarn-start/cast-on/action+shaping/cast-off/alignment/
// yarn-end/step-end event.
package driver

import (
	"knitc/internal/config"
	kerrors "knitc/internal/errors"
	"knitc/internal/fragment"
	"knitc/internal/gauge"
	"knitc/internal/knitout"
	"knitc/internal/machine"
	"knitc/internal/monitor"
	"knitc/internal/node"
	"knitc/internal/passes"
	"knitc/internal/planner"
	"knitc/internal/registry"
	"knitc/internal/session"
	"knitc/internal/stitchprogram"
)

// Phase is one stage of the driver's linear state machine (spec §4.I).
type Phase int

const (
	PhaseAlloc Phase = iota
	PhaseInit
	PhaseAssemble
	PhaseGenerate
	PhaseModify
	PhaseFinish
)

func (p Phase) String() string {
	switch p {
	case PhaseAlloc:
		return "alloc"
	case PhaseInit:
		return "init"
	case PhaseAssemble:
		return "assemble"
	case PhaseGenerate:
		return "generate"
	case PhaseModify:
		return "modify"
	case PhaseFinish:
		return "finish"
	}
	return "?"
}

// Hook may transform a fragment in-flight as it is appended (spec §4.I:
// "Hooks (e.g. half-gauge) may modify fragments in-flight"; spec §4.E
// half-gauge fast path is the canonical example).
type Hook interface {
	Modify(f *fragment.Fragment, state *machine.State) error
}

// Driver owns the stream, live state, and fragment program for one
// compile, and drives it through the six phases.
type Driver struct {
	Stream  *knitout.Stream
	State   *machine.State
	Session *session.Session
	Program fragment.Program
	Hooks   []Hook
	Monitor *monitor.Publisher

	phase Phase
}

// New allocates the stream and state for a compile of totalStitchCount
// stitches (spec §4.I phase "alloc"; spec §5's 3x pre-allocation).
func New(totalStitchCount int, sess *session.Session) *Driver {
	stream := knitout.NewStream(totalStitchCount)
	state := machine.NewState()
	stream.Listen(state)
	return &Driver{Stream: stream, State: state, Session: sess, phase: PhaseAlloc}
}

// Phase returns the driver's current phase, for progress reporting.
func (d *Driver) Phase() Phase { return d.phase }

// Compile walks nodes in time order, building one fragment per event
// named in spec §4.I, then runs the modify and finish phases.
func (d *Driver) Compile(nodes []*node.Node) error {
	d.phase = PhaseInit
	total := countStitches(nodes)
	done := 0

	d.phase = PhaseAssemble
	for ni, n := range nodes {
		if err := d.appendFragment(fragment.KindNodeStart, noopGenerator{}, -1); err != nil {
			return d.siteError(err, ni, -1)
		}

		ids := stitchprogram.Lift(n.Trace, d.Session.Registry, d.Session.Options.InsertDepth)
		idByIndex := make(map[int]registry.ID, len(n.Trace))
		for i, ts := range n.Trace {
			idByIndex[ts.Index] = ids[i]
		}

		for si, step := range n.Steps {
			block := step.Block
			if block.StartsYarn() {
				if err := d.buildYarnStart(block); err != nil {
					return d.siteError(err, ni, si)
				}
			}

			if block.NeedsCastOn() {
				if err := d.buildCastOn(block); err != nil {
					return d.siteError(err, ni, si)
				}
			} else {
				if err := d.buildAction(block, idByIndex); err != nil {
					return d.siteError(err, ni, si)
				}
				if err := d.buildShaping(block); err != nil {
					return d.siteError(err, ni, si)
				}
			}

			if block.NeedsCastOff() {
				if err := d.buildCastOff(block); err != nil {
					return d.siteError(err, ni, si)
				}
			}

			if err := d.buildInterStepAlignment(block); err != nil {
				return d.siteError(err, ni, si)
			}

			if block.EndsYarn() {
				if err := d.buildYarnEnd(block); err != nil {
					return d.siteError(err, ni, si)
				}
			}

			if err := d.appendFragment(fragment.KindStepEnd, noopGenerator{}, -1); err != nil {
				return d.siteError(err, ni, si)
			}

			done += len(block.Stitches())
			d.reportProgress(done, total)
		}

		if err := d.appendFragment(fragment.KindAlignment, &passes.Alignment{Shifts: map[machine.Needle]int{}}, -1); err != nil {
			return d.siteError(err, ni, -1)
		}
	}

	d.phase = PhaseGenerate // generation happens inline via Fragment.Build above

	d.phase = PhaseModify
	for _, f := range d.Program.Fragments {
		for _, h := range d.Hooks {
			if err := h.Modify(f, d.State); err != nil {
				return err
			}
		}
	}

	d.phase = PhaseFinish
	return d.Program.CheckPartition()
}

func countStitches(nodes []*node.Node) int {
	total := 0
	for _, n := range nodes {
		total += n.StitchCount
	}
	return total
}

func (d *Driver) reportProgress(done, total int) {
	if total == 0 {
		return
	}
	fraction := float64(done) / float64(total)
	if d.Session != nil && d.Session.Log != nil {
		d.Session.Log.Progress(fraction, done, total)
	}
	if d.Monitor != nil {
		d.Monitor.Publish(monitor.Event{
			SessionID: d.Session.ID.String(),
			Phase:     d.phase.String(),
			Fraction:  fraction,
		})
	}
}

func (d *Driver) appendFragment(kind fragment.Kind, gen fragment.Generator, desiredStitchNumber int) error {
	f := &fragment.Fragment{Kind: kind, DesiredStitchNumber: desiredStitchNumber, Gen: gen}
	idx := d.Program.Append(f)
	site := kerrors.Site{Node: idx, StreamPtr: d.Stream.Length()}
	return f.Build(d.Stream, d.State, false, site)
}

type noopGenerator struct{}

func (noopGenerator) Generate(stream *knitout.Stream, state *machine.State, verbose bool) error {
	return nil
}

func (d *Driver) siteError(err error, nodeIdx, stepIdx int) error {
	if ce, ok := err.(*kerrors.CompileError); ok {
		ce.Site.Node = nodeIdx
		ce.Site.Step = stepIdx
		return ce
	}
	return err
}

func (d *Driver) buildYarnStart(b *node.Block) error {
	needles := b.Needles()
	if len(needles) == 0 {
		return nil
	}
	carrier := primaryCarrier(b)
	y := &passes.YarnStart{
		Carrier:   carrier,
		Direction: primaryDirection(b),
		SeedFrom:  d.physicalNeedle(needles[0]),
		Depth:     d.Session.Options.InsertDepth,
	}
	return d.appendFragment(fragment.KindYarnStart, y, -1)
}

func (d *Driver) buildYarnEnd(b *node.Block) error {
	needles := b.Needles()
	if len(needles) == 0 {
		return nil
	}
	y := &passes.YarnEnd{
		Carrier:   primaryCarrier(b),
		Direction: primaryDirection(b),
		TailFrom:  d.physicalNeedle(needles[len(needles)-1]),
		EmitTail:  !b.Circular(),
	}
	return d.appendFragment(fragment.KindYarnEnd, y, -1)
}

func (d *Driver) buildCastOn(b *node.Block) error {
	needles := make([]machine.Needle, len(b.Needles()))
	for i, off := range b.Needles() {
		needles[i] = d.physicalNeedle(off)
	}
	cot := passes.CastOnInterlock
	if d.Session.Options.CastOnType == "kickback" {
		cot = passes.CastOnKickback
	}
	c := &passes.CastOn{
		Type:     cot,
		Needles:  needles,
		Carrier:  primaryCarrier(b),
		Circular: b.Circular(),
	}
	return d.appendFragment(fragment.KindCastOn, c, -1)
}

func (d *Driver) buildCastOff(b *node.Block) error {
	needles := make([]machine.Needle, len(b.Needles()))
	for i, off := range b.Needles() {
		needles[i] = d.physicalNeedle(off)
	}
	c := &passes.CastOff{
		Needles:   needles,
		Carrier:   primaryCarrier(b),
		Direction: primaryDirection(b),
		UsePickUp: d.Session.Options.UsePickUpStitch,
	}
	return d.appendFragment(fragment.KindCastOff, c, -1)
}

func (d *Driver) buildAction(b *node.Block, idByIndex map[int]registry.ID) error {
	entries := make([]passes.Entry, len(b.Stitches()))
	for i, st := range b.Stitches() {
		n := d.physicalNeedle(needleOffsetOrZero(b, i))
		entries[i] = passes.Entry{
			Stitch: st.Index,
			N:      []machine.Needle{n},
			RN:     []machine.Needle{n.On(n.Side.Opposite())},
		}
	}
	programID := programIDForBlock(b, idByIndex)
	a := &passes.Action{
		Reg:           d.Session.Registry,
		ProgramID:     programID,
		Entries:       entries,
		Direction:     primaryDirection(b),
		Carriers:      activeCarriers(b),
		SVS:           d.Session.Options.UseSVS,
		SafeTucks:     d.Session.Options.SafeTucks,
		IntarsiaTucks: passes.IntarsiaMode(d.Session.Options.IntarsiaTucks),
		IntarsiaSide:  string(d.Session.Options.IntarsiaSide),
		UseSRTucks:    d.Session.Options.UseSRTucks,
	}
	return d.appendFragment(fragment.KindAction, a, -1)
}

// maxRackingDefault bounds how far the planner may rack per shift pass
// absent a machine-specific limit in the input contract.
const maxRackingDefault = 10

func (d *Driver) buildShaping(b *node.Block) error {
	rawTargets := b.ShapingTargets()
	if len(rawTargets) == 0 {
		// Block's needle layout is already final; inter-step realignment
		// is handled separately by buildInterStepAlignment.
		return nil
	}
	rawSources := b.Needles()
	n := len(rawSources)
	if len(rawTargets) < n {
		n = len(rawTargets)
	}
	sources := make([]machine.Needle, n)
	targets := make([]machine.Needle, n)
	for i := 0; i < n; i++ {
		sources[i] = d.physicalNeedle(rawSources[i])
		targets[i] = d.physicalNeedle(rawTargets[i])
	}
	if equalNeedles(sources, targets) {
		return nil
	}

	circular := b.Circular()
	s := &passes.Shaping{
		Sources:       sources,
		Targets:       targets,
		Algorithm:     string(d.Session.Options.ShapingAlgorithm),
		Oracle:        planner.DefaultOracle{},
		MultiTransfer: d.Session.Options.MultiTransfer,
		Reduce:        d.Session.Options.ReduceTransfers,
		Circular:      circular,
	}
	s.Params = planner.Params{
		MaxRacking: maxRackingDefault,
		Slack:      planner.ComputeSlack(sources, targets, circular),
	}
	return d.appendFragment(fragment.KindShaping, s, -1)
}

func equalNeedles(a, b []machine.Needle) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func (d *Driver) buildInterStepAlignment(b *node.Block) error {
	next := b.Next()
	if next == nil {
		return nil
	}
	shifts := map[machine.Needle]int{}
	cur := b.Needles()
	nxt := next.Needles()
	for i := 0; i < len(cur) && i < len(nxt); i++ {
		if cur[i] != nxt[i] {
			shifts[d.physicalNeedle(cur[i])] = d.physicalNeedle(nxt[i]).Offset
		}
	}
	if len(shifts) == 0 {
		return nil
	}
	return d.appendFragment(fragment.KindAlignment, &passes.Alignment{Shifts: shifts}, -1)
}

// physicalNeedle converts a block's logical front-bed needle position to
// the physical machine needle the fragments and state operate on. At
// full gauge the two coincide; at half gauge (spec §6 Configuration:
// gauge) the input contract's positions are dense logical stitch
// indices, one per usable needle, and internal/gauge's
// HalfToFullGauge expands them to the actual (every-other) physical
// offsets once, here, so every downstream pass sees only physical
// coordinates.
func (d *Driver) physicalNeedle(offset int) machine.Needle {
	n := machine.Needle{Side: machine.FrontHook, Offset: offset}
	if d.Session != nil && d.Session.Options.Gauge == config.GaugeHalf {
		return gauge.HalfToFullGauge(n)
	}
	return n
}

func needleOffsetOrZero(b *node.Block, i int) int {
	n := b.Needles()
	if i < len(n) {
		return n[i]
	}
	return 0
}

func primaryCarrier(b *node.Block) string {
	for _, st := range b.Stitches() {
		for _, y := range st.Yarns.Yarns {
			return y
		}
	}
	return "1"
}

func activeCarriers(b *node.Block) []string {
	seen := map[string]bool{}
	var out []string
	for _, st := range b.Stitches() {
		for _, y := range st.Yarns.Yarns {
			if !seen[y] {
				seen[y] = true
				out = append(out, y)
			}
		}
	}
	if len(out) == 0 {
		out = []string{"1"}
	}
	return out
}

func primaryDirection(b *node.Block) machine.Direction {
	dirs := b.Directions()
	if len(dirs) == 0 || dirs[0] >= 0 {
		return machine.Plus
	}
	return machine.Minus
}

// programIDForBlock picks the block's shared action-program id. A
// block's stitches are expected to share one program once lifted (spec
// §4.J: "identical stitches share an id"); the driver uses the first
// stitch's lifted id as representative.
func programIDForBlock(b *node.Block, idByIndex map[int]registry.ID) registry.ID {
	stitches := b.Stitches()
	if len(stitches) == 0 {
		return registry.KNIT
	}
	if id, ok := idByIndex[stitches[0].Index]; ok {
		return id
	}
	return registry.KNIT
}
