// Package stitchprogram implements the multi-yarn lift (spec §4.J): for
// each stitch with no user-authored action program, it derives the
// yarn-insertion/removal and topology-transition facts from the
// surrounding trace, then synthesizes and interns a pass schedule.
package stitchprogram

import (
	"fmt"
	"sort"
	"strings"

	"knitc/internal/knitout"
	"knitc/internal/registry"
	"knitc/internal/stitch"
)

// Lift computes a registry.ID for every stitch in trace that has no
// user program (ProgramID < 0), registering a fresh interned program
// the first time a given schedule shape is seen. Stitches that already
// carry a user program keep their ProgramID unchanged. insertDepth is
// the configured tuck depth (spec §6: insertDepth).
func Lift(trace []stitch.TracedStitch, reg *registry.Registry, insertDepth int) []registry.ID {
	ids := make([]registry.ID, len(trace))
	for i, ts := range trace {
		if ts.ProgramID >= 0 {
			ids[i] = registry.ID(ts.ProgramID)
			continue
		}
		prev := lowerCourseStitch(trace, ts.CoursePrev)
		next := lowerCourseStitch(trace, ts.CourseNext)

		insert := stitch.InsertYarns(ts, prev)
		remove := stitch.RemoveYarns(ts, next)

		// Action.MISS pseudo-id (spec §9 Open Question): stitchType ==
		// Miss set because shapingType == Miss is a legacy alias for the
		// reserved MISS program. Preserved only when the stitch carries
		// no insert/remove yarns of its own; with insert/remove yarns
		// present the interaction is ambiguous, so it falls through to
		// the normal synthesized schedule instead of guessing.
		if ts.Type == stitch.Miss && ts.Shaping == stitch.ShapeMiss && len(insert) == 0 && len(remove) == 0 {
			ids[i] = registry.MISS
			continue
		}

		topo := classifyTopo(prev, ts)
		frontPass, mainYarns := frontPassAndYarns(ts)

		name := scheduleName(ts, insert, remove, topo, mainYarns, insertDepth)
		prog := synthesize(ts, insert, remove, topo, mainYarns, frontPass, insertDepth)
		ids[i] = reg.Register(prog, name)
	}
	return ids
}

func lowerCourseStitch(trace []stitch.TracedStitch, idx int) stitch.TracedStitch {
	if idx < 0 || idx >= len(trace) {
		return stitch.TracedStitch{}
	}
	return trace[idx]
}

// classifyTopo derives topoXform from the two-sided flag transition
// between the lower-course previous stitch and this one (spec §4.J:
// "topoXform ∈ {none, one-to-two-sided, two-to-one-sided}").
func classifyTopo(prev, this stitch.TracedStitch) stitch.TopoXform {
	if prev.Flags.TwoSided == this.Flags.TwoSided {
		return stitch.TopoNone
	}
	if this.Flags.TwoSided {
		return stitch.TopoOneToTwoSided
	}
	return stitch.TopoTwoToOneSided
}

// frontPassAndYarns returns the sorted yarn list that the main phase
// will iterate (spec §4.J: "main = one pass per yarn in sorted order")
// and the index of the front (visible) yarn within it.
func frontPassAndYarns(ts stitch.TracedStitch) (int, []string) {
	yarns := append([]string(nil), ts.Yarns.Yarns...)
	sort.Strings(yarns)
	front := 0
	for i, y := range yarns {
		if ts.Yarns.IsFront(y) {
			front = i
			break
		}
	}
	return front, yarns
}

func scheduleName(ts stitch.TracedStitch, insert, remove []string, topo stitch.TopoXform, yarns []string, insertDepth int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "lift/t%d/topo%d/d%d/in:%s/out:%s/y:%s",
		ts.Type, topo, insertDepth, strings.Join(insert, ","), strings.Join(remove, ","), strings.Join(yarns, ","))
	return b.String()
}

// synthesize builds the pass schedule spec §4.J describes: "pre =
// (inhook + depth-dependent tucks) and optional purl pre-transfer; main
// = one pass per yarn in sorted order; post = stitch-type-specific
// transfer (purl, move-L1, move-R1) and optional outhook."
func synthesize(ts stitch.TracedStitch, insert, remove []string, topo stitch.TopoXform, yarns []string, frontPass, insertDepth int) registry.Program {
	var pre []registry.PassFunc
	for _, y := range insert {
		pre = append(pre, inhookAndSeedPass(y, insertDepth))
	}
	if ts.Type == stitch.Purl {
		pre = append(pre, purlPreTransferPass())
	}

	var main []registry.PassFunc
	for i, y := range yarns {
		// S4 flat-to-circular transition (spec §4.J/§8 scenarios):
		// a stitch whose topology goes one-sided -> two-sided knits its
		// racked (back-bed) counterpart, e.RN, alongside its front needle
		// during the front pass, at the quarter-racking this program's
		// QuarterRacking flag already requests for that pass.
		frontBack := topo == stitch.TopoOneToTwoSided && i == frontPass
		main = append(main, mainPassFor(y, frontBack))
	}

	var post []registry.PassFunc
	switch ts.Type {
	case stitch.Purl:
		post = append(post, purlPostTransferPass())
	case stitch.MoveL1:
		post = append(post, movePass(-1))
	case stitch.MoveR1:
		post = append(post, movePass(1))
	}
	for _, y := range remove {
		post = append(post, outhookPass(y))
	}

	quarter := make([]bool, len(main))
	if topo != stitch.TopoNone {
		for i := range quarter {
			quarter[i] = true
		}
	}

	return registry.Program{
		Pre:            pre,
		Main:           main,
		Post:           post,
		QuarterRacking: quarter,
		FrontPass:      frontPass,
	}
}

func inhookAndSeedPass(yarn string, depth int) registry.PassFunc {
	return func(e *registry.ActionEntry) error {
		e.K.Append(knitout.OpInHook, yarn)
		for i := 0; i < depth && i < len(e.N); i++ {
			e.K.Append(knitout.OpTuck, e.D.String(), e.N[i].String(), yarn)
		}
		e.K.Flush()
		return nil
	}
}

func outhookPass(yarn string) registry.PassFunc {
	return func(e *registry.ActionEntry) error {
		e.K.Append(knitout.OpOutHook, yarn)
		e.K.Flush()
		return nil
	}
}

func purlPreTransferPass() registry.PassFunc {
	return func(e *registry.ActionEntry) error {
		for _, n := range e.N {
			dst := n.On(n.Side.Opposite().SliderOf())
			e.K.Append(knitout.OpXfer, n.String(), dst.String())
		}
		e.K.Flush()
		return nil
	}
}

func purlPostTransferPass() registry.PassFunc {
	return func(e *registry.ActionEntry) error {
		for _, n := range e.N {
			src := n.On(n.Side.Opposite().SliderOf())
			e.K.Append(knitout.OpXfer, src.String(), n.String())
		}
		e.K.Flush()
		return nil
	}
}

// movePass records a single post-pass inter-stitch shift via the move
// helper (spec §4.C/§9), honored only when called from a POST pass.
func movePass(offset int) registry.PassFunc {
	return func(e *registry.ActionEntry) error {
		if e.Move == nil {
			return nil
		}
		e.Move.Request(e.Stitch, offset)
		return nil
	}
}

// mainPassFor builds the per-yarn main pass (spec §4.J: "main = one pass
// per yarn in sorted order"). When frontBack is set, it additionally
// knits the entry's racked counterpart (e.RN), realizing the front-back
// knit pass a flat-to-circular topology transition requires (spec §4.J
// scenario S4).
func mainPassFor(yarn string, frontBack bool) registry.PassFunc {
	return func(e *registry.ActionEntry) error {
		active := false
		for _, cs := range e.CS {
			if cs == yarn {
				active = true
				break
			}
		}
		if !active {
			return nil
		}
		for _, n := range e.N {
			e.K.Append(knitout.OpKnit, e.D.String(), n.String(), yarn)
		}
		if frontBack {
			for _, n := range e.RN {
				e.K.Append(knitout.OpKnit, e.D.String(), n.String(), yarn)
			}
		}
		e.K.Flush()
		return nil
	}
}
