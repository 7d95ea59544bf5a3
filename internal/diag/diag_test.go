package diag

import (
	"bytes"
	"strings"
	"testing"
)

func TestLevelGating(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, LevelInfo)
	l.Infof("hello %d", 1)
	l.Verbosef("should not appear")
	if !strings.Contains(buf.String(), "hello 1") {
		t.Errorf("expected info line, got %q", buf.String())
	}
	if strings.Contains(buf.String(), "should not appear") {
		t.Errorf("verbose line logged at info level: %q", buf.String())
	}
}

func TestProgressFormatsCounts(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, LevelInfo)
	l.Progress(0.5, 1234, 2000)
	out := buf.String()
	if !strings.Contains(out, "1,234") {
		t.Errorf("expected humanized count in %q", out)
	}
	if !strings.Contains(out, "50.0%") {
		t.Errorf("expected percentage in %q", out)
	}
}

func TestDumpStateGatedAtTrace(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, LevelVerbose)
	l.DumpState("state", struct{ X int }{X: 1})
	if buf.Len() != 0 {
		t.Errorf("expected no dump output below LevelTrace, got %q", buf.String())
	}
}
