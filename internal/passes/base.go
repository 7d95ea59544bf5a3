package passes

import (
	"knitc/internal/knitout"
	"knitc/internal/registry"
)

// InstallBasePrograms populates the 8 reserved action-program ids (spec
// §4.C/§6: "initialized with 8 base programs") with their pass-function
// bodies. It is called once per session, after registry.New.
func InstallBasePrograms(r *registry.Registry) {
	r.SetBase(registry.KNIT, registry.Program{Main: []registry.PassFunc{knitMain}})
	r.SetBase(registry.TUCK, registry.Program{Main: []registry.PassFunc{tuckMain}})
	r.SetBase(registry.MISS, registry.Program{Main: []registry.PassFunc{missMain}})
	r.SetBase(registry.KICKBACK, registry.Program{Main: []registry.PassFunc{kickbackMain}})
	r.SetBase(registry.SPLIT, registry.Program{Main: []registry.PassFunc{splitMain}})
	r.SetBase(registry.RSPLIT, registry.Program{Main: []registry.PassFunc{rsplitMain}})
	r.SetBase(registry.BKNIT, registry.Program{Main: []registry.PassFunc{bknitMain}})
	r.SetBase(registry.FBKNIT, registry.Program{Main: []registry.PassFunc{fbknitMain}, SplitBySide: false})
}

func knitMain(e *registry.ActionEntry) error {
	for _, n := range e.N {
		args := append([]string{e.D.String(), n.String()}, e.CS...)
		e.K.Append(knitout.OpKnit, args...)
	}
	e.K.Flush()
	return nil
}

func tuckMain(e *registry.ActionEntry) error {
	for _, n := range e.N {
		args := append([]string{e.D.String(), n.String()}, e.CS...)
		e.K.Append(knitout.OpTuck, args...)
	}
	e.K.Flush()
	return nil
}

func missMain(e *registry.ActionEntry) error {
	for _, n := range e.N {
		args := append([]string{e.D.String(), n.String()}, e.CS...)
		e.K.Append(knitout.OpMiss, args...)
	}
	e.K.Flush()
	return nil
}

// kickbackMain emits a carrier-safety miss on the opposite bed before the
// real action fires, mirroring the cast-off pass's kickback step (spec
// §4.H) when used as a standalone action program.
func kickbackMain(e *registry.ActionEntry) error {
	for _, n := range e.N {
		kb := n.On(n.Side.Opposite())
		args := append([]string{e.D.String(), kb.String()}, e.CS...)
		e.K.Append(knitout.OpMiss, args...)
	}
	e.K.Flush()
	return nil
}

// splitMain realizes a knit-and-transfer in one instruction: a new loop
// is knit on N while N's previous loops are pushed onto RN (spec §4.A's
// split opcode), used for moves that need to preserve the old loop while
// knitting a new one.
func splitMain(e *registry.ActionEntry) error {
	for i, n := range e.N {
		if i >= len(e.RN) {
			break
		}
		args := append([]string{e.D.String(), n.String(), e.RN[i].String()}, e.CS...)
		e.K.Append(knitout.OpSplit, args...)
	}
	e.K.Flush()
	return nil
}

// rsplitMain is the reversed-role split: RN is the knit target and N is
// where RN's old loops land, the inverse of splitMain.
func rsplitMain(e *registry.ActionEntry) error {
	for i, n := range e.N {
		if i >= len(e.RN) {
			break
		}
		args := append([]string{e.D.String(), e.RN[i].String(), n.String()}, e.CS...)
		e.K.Append(knitout.OpSplit, args...)
	}
	e.K.Flush()
	return nil
}

// bknitMain knits onto the racked-needle projection (RN) rather than N,
// used for back-bed actions within a front-indexed entry list.
func bknitMain(e *registry.ActionEntry) error {
	for _, n := range e.RN {
		args := append([]string{e.D.String(), n.String()}, e.CS...)
		e.K.Append(knitout.OpKnit, args...)
	}
	e.K.Flush()
	return nil
}

// fbknitMain knits both N and its racked counterpart in RN, realizing a
// two-sided (tubular) stitch in a single pass.
func fbknitMain(e *registry.ActionEntry) error {
	if err := knitMain(e); err != nil {
		return err
	}
	for _, n := range e.RN {
		args := append([]string{e.D.String(), n.String()}, e.CS...)
		e.K.Append(knitout.OpKnit, args...)
	}
	e.K.Flush()
	return nil
}
