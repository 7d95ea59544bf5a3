package knitout

import (
	"fmt"
	"io"
)

// Writer renders a Stream to the textual knitout grammar described in
// spec §6: one "OP ARGS" line per non-comment entry, a trailing "; comment"
// when present, and a `rack R` line emitted automatically before any xfer
// whose racking differs from the last one written.
//
// Writer does not itself track racking — NewWriter's caller supplies the
// current racking via WriteAll's rackOf callback so the writer stays a
// pure formatter over whatever the fragment/driver layer already computed.
type Writer struct {
	out io.Writer
}

func NewWriter(out io.Writer) *Writer {
	return &Writer{out: out}
}

// WriteAll renders every entry in the stream. rackOf, given an entry index,
// returns the racking that was active immediately before that instruction;
// it is used only to decide whether to emit a `rack R` line before an xfer
// or split, per spec §6.
func (w *Writer) WriteAll(s *Stream, rackOf func(i int) (rack float64, changed bool)) error {
	for i := 0; i < s.Length(); i++ {
		e, _ := s.GetEntry(i)
		if e.Op == OpXfer || e.Op == OpSplit {
			if rackOf != nil {
				if r, changed := rackOf(i); changed {
					if _, err := fmt.Fprintf(w.out, "rack %s\n", formatRack(r)); err != nil {
						return err
					}
				}
			}
		}
		if err := w.writeEntry(e); err != nil {
			return err
		}
	}
	return nil
}

func (w *Writer) writeEntry(e Entry) error {
	line := e.Op.String()
	if e.Op == OpRack && len(e.Args) == 1 {
		line = fmt.Sprintf("rack %s", e.Args[0])
	} else {
		for _, a := range e.Args {
			line += " " + a
		}
	}
	if e.Comment != "" {
		line += "; " + e.Comment
	}
	_, err := fmt.Fprintln(w.out, line)
	return err
}

func formatRack(r float64) string {
	if r == float64(int(r)) {
		return fmt.Sprintf("%d", int(r))
	}
	return fmt.Sprintf("%g", r)
}
