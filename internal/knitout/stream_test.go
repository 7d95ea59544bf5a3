package knitout

import (
	"strings"
	"testing"
)

type recordingListener struct {
	seen []Opcode
}

func (r *recordingListener) Consume(op Opcode, args []string, metadata int) {
	r.seen = append(r.seen, op)
}

func TestAppendAndFlushNotifiesOnce(t *testing.T) {
	s := NewStream(4)
	l := &recordingListener{}
	s.Listen(l)

	s.Append(OpIn, "1")
	s.Append(OpKnit, "+", "f0", "1")
	s.Flush()
	s.Flush() // second flush must not re-notify

	if len(l.seen) != 2 {
		t.Fatalf("seen = %v, want 2 entries", l.seen)
	}
	if l.seen[0] != OpIn || l.seen[1] != OpKnit {
		t.Errorf("seen = %v, want [in knit]", l.seen)
	}
}

func TestNegativeIndexResolution(t *testing.T) {
	s := NewStream(1)
	s.Append(OpIn, "1")
	s.Append(OpKnit, "+", "f0", "1")
	s.SetComment(-1, "last")
	e, ok := s.GetEntry(-1)
	if !ok || e.Comment != "last" {
		t.Fatalf("GetEntry(-1) = %+v, ok=%v", e, ok)
	}
}

func TestWriterRendersOpsAndComments(t *testing.T) {
	s := NewStream(1)
	s.Append(OpInHook, "1")
	s.Append(OpKnit, "+", "f0", "1")
	s.SetComment(0, "seed")

	var sb strings.Builder
	w := NewWriter(&sb)
	if err := w.WriteAll(s, nil); err != nil {
		t.Fatal(err)
	}
	out := sb.String()
	if !strings.Contains(out, "inhook 1; seed") {
		t.Errorf("output = %q, missing commented inhook line", out)
	}
	if !strings.Contains(out, "knit + f0 1") {
		t.Errorf("output = %q, missing knit line", out)
	}
}

func TestWriterEmitsRackBeforeXfer(t *testing.T) {
	s := NewStream(1)
	s.Append(OpXfer, "f0", "b0")

	var sb strings.Builder
	w := NewWriter(&sb)
	rackOf := func(i int) (float64, bool) { return 1, true }
	if err := w.WriteAll(s, rackOf); err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(sb.String()), "\n")
	if lines[0] != "rack 1" {
		t.Errorf("lines[0] = %q, want 'rack 1'", lines[0])
	}
	if lines[1] != "xfer f0 b0" {
		t.Errorf("lines[1] = %q, want 'xfer f0 b0'", lines[1])
	}
}
