package errors

import (
	"strings"
	"testing"
)

func TestCompileErrorFatal(t *testing.T) {
	tests := []struct {
		name  string
		kind  Kind
		fatal bool
	}{
		{"precondition", Precondition, true},
		{"planner", PlannerFailure, true},
		{"state", StateInvariant, true},
		{"warning", Warning, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := New(tt.kind, Site{Node: 1, Step: 2, StitchIndex: 3, StreamPtr: -1}, "boom")
			if got := e.Fatal(); got != tt.fatal {
				t.Errorf("Fatal() = %v, want %v", got, tt.fatal)
			}
		})
	}
}

func TestWrapPreservesCause(t *testing.T) {
	cause := New(Warning, Site{StreamPtr: -1}, "inner")
	wrapped := Wrap(cause, StateInvariant, Site{Node: 4, StreamPtr: 10}, "outer failure")
	if !strings.Contains(wrapped.Error(), "outer failure") {
		t.Errorf("Error() = %q, missing outer message", wrapped.Error())
	}
	if wrapped.Unwrap() == nil {
		t.Errorf("Unwrap() = nil, want non-nil cause")
	}
}
