// Package errors defines the compiler's fatal and advisory error taxonomy
// (spec §7): precondition violations, planner failures, state invariant
// breaches, and soft warnings that are pruned rather than raised.
package errors

import (
	"fmt"

	pkgerrors "github.com/pkg/errors"
)

// Kind classifies a CompileError for callers that need to branch on it
// (e.g. the driver deciding whether partial output is still worth
// retaining for diagnosis).
type Kind string

const (
	Precondition    Kind = "precondition"
	PlannerFailure  Kind = "planner-failure"
	StateInvariant  Kind = "state-invariant"
	Warning         Kind = "warning"
)

// Site locates a CompileError in the node/step/stitch/stream coordinate
// system the driver walks (spec §4.I, §6).
type Site struct {
	Node        int
	Step        int
	StitchIndex int
	StreamPtr   int // -1 if not applicable
}

func (s Site) String() string {
	return fmt.Sprintf("node=%d step=%d stitch=%d stream=%d", s.Node, s.Step, s.StitchIndex, s.StreamPtr)
}

// CompileError is the single error type raised by every core package.
// Fatal kinds (everything but Warning) stop compilation; Warning-kind
// errors are constructed but never returned to a caller — they exist so
// call sites can log a pruned/no-op decision through the same shape used
// for real errors.
type CompileError struct {
	Kind    Kind
	Message string
	Site    Site
	cause   error
}

func New(kind Kind, site Site, format string, args ...interface{}) *CompileError {
	return &CompileError{Kind: kind, Message: fmt.Sprintf(format, args...), Site: site}
}

// Wrap attaches a CompileError to an underlying cause, preserving a stack
// trace via github.com/pkg/errors so the driver's final fatal report can
// show where in the planner's per-option search the failure originated.
func Wrap(cause error, kind Kind, site Site, format string, args ...interface{}) *CompileError {
	return &CompileError{
		Kind:    kind,
		Message: fmt.Sprintf(format, args...),
		Site:    site,
		cause:   pkgerrors.WithStack(cause),
	}
}

func (e *CompileError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s (%s): %v", e.Kind, e.Message, e.Site, e.cause)
	}
	return fmt.Sprintf("%s: %s (%s)", e.Kind, e.Message, e.Site)
}

func (e *CompileError) Unwrap() error { return e.cause }

// Fatal reports whether this error kind halts compilation. Only Warning
// is non-fatal; it is never expected to flow through a return path, but
// the predicate exists for completeness and for assertions in tests.
func (e *CompileError) Fatal() bool { return e.Kind != Warning }
