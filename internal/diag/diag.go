// Package diag is the compiler's verbosity-leveled diagnostic logger: a
// small level-gated writer plus the structured dump/progress helpers
// the driver and planner use to report what they're doing.
package diag

import (
	"fmt"
	"io"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/kr/pretty"
	"github.com/mattn/go-isatty"
)

// Level is a diagnostic verbosity tier.
type Level int

const (
	LevelSilent Level = iota
	LevelInfo
	LevelVerbose
	LevelTrace
)

// Logger writes level-gated diagnostic lines to an underlying writer,
// mirroring the teacher CLI's plain stderr logging but gated by an
// explicit level rather than a boolean --verbose flag, since the driver
// has three distinct diagnostic tiers (spec §4.I progress events,
// fragment-build comments, and planner per-option search traces).
type Logger struct {
	out   io.Writer
	level Level
	isTTY bool
}

// New constructs a Logger writing to out at the given level.
func New(out io.Writer, level Level) *Logger {
	tty := false
	if f, ok := out.(*os.File); ok {
		tty = isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
	}
	return &Logger{out: out, level: level, isTTY: tty}
}

// Infof logs at LevelInfo.
func (l *Logger) Infof(format string, args ...interface{}) { l.logf(LevelInfo, format, args...) }

// Verbosef logs at LevelVerbose.
func (l *Logger) Verbosef(format string, args ...interface{}) { l.logf(LevelVerbose, format, args...) }

// Tracef logs at LevelTrace.
func (l *Logger) Tracef(format string, args ...interface{}) { l.logf(LevelTrace, format, args...) }

func (l *Logger) logf(at Level, format string, args ...interface{}) {
	if l == nil || l.level < at {
		return
	}
	fmt.Fprintf(l.out, format+"\n", args...)
}

// DumpState writes a verbose structural dump of v (typically a
// *machine.State or planner intermediate) using kr/pretty, gated at
// LevelTrace since these dumps are large.
func (l *Logger) DumpState(label string, v interface{}) {
	if l == nil || l.level < LevelTrace {
		return
	}
	fmt.Fprintf(l.out, "%s:\n%# v\n", label, pretty.Formatter(v))
}

// Progress reports a monotonic compile-progress fraction (spec §4.I),
// rendered as a percentage plus a humanized count of stitches processed
// so far, gated at LevelInfo.
func (l *Logger) Progress(fraction float64, stitchesDone, stitchesTotal int) {
	if l == nil || l.level < LevelInfo {
		return
	}
	pct := fraction * 100
	fmt.Fprintf(l.out, "[%5.1f%%] %s / %s stitches\n", pct,
		humanize.Comma(int64(stitchesDone)), humanize.Comma(int64(stitchesTotal)))
}

// IsTTY reports whether the underlying writer is a terminal. Progress
// writes one line per update regardless of this value.
func (l *Logger) IsTTY() bool { return l != nil && l.isTTY }
