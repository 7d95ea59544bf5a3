// Package session ties together one compilation run: a freshly reset
// action-program registry, the configured options, and a UUID that tags
// the progress events a compile publishes to the optional monitor, so
// concurrent compiles can be told apart there.
package session

import (
	"github.com/google/uuid"

	"knitc/internal/config"
	"knitc/internal/diag"
	"knitc/internal/passes"
	"knitc/internal/registry"
)

// Session is the process-wide state scoped to one compile (spec §6:
// "Process-wide state. The action-program registry... reset via
// resetPrograms before a new compilation session").
type Session struct {
	ID       uuid.UUID
	Options  config.Options
	Registry *registry.Registry
	Log      *diag.Logger
}

// New resets (or creates) registry r, installs the base programs, and
// returns a new Session. Passing a nil registry creates one.
func New(opts config.Options, r *registry.Registry, log *diag.Logger) (*Session, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if r == nil {
		r = registry.New()
	} else {
		r.Reset()
	}
	passes.InstallBasePrograms(r)
	return &Session{
		ID:       uuid.New(),
		Options:  opts,
		Registry: r,
		Log:      log,
	}, nil
}
