// Package config holds the driver's recognized options (spec §6
// Configuration) and their validation, mirroring the teacher's flat
// options-struct-plus-Validate convention.
package config

import (
	"fmt"

	kerrors "knitc/internal/errors"
)

// Gauge selects full- or half-gauge operation (spec §6: gauge).
type Gauge string

const (
	GaugeFull Gauge = "full"
	GaugeHalf Gauge = "half"
)

// ShapingAlgorithm selects which transfer planner a shaping fragment
// uses (spec §6: shapingAlgorithm).
type ShapingAlgorithm string

const (
	AlgorithmCSE ShapingAlgorithm = "cse"
	AlgorithmRS  ShapingAlgorithm = "rs"
)

// IntarsiaTucks is the side-tuck yarn rule (spec §6: intarsiaTucks).
type IntarsiaTucks string

const (
	IntarsiaTucksBoth IntarsiaTucks = "both"
	IntarsiaTucksCW   IntarsiaTucks = "cw"
	IntarsiaTucksCCW  IntarsiaTucks = "ccw"
	IntarsiaTucksNone IntarsiaTucks = "none"
)

// IntarsiaSide is which neighbor a side tuck is emitted against (spec
// §6: intarsiaSide).
type IntarsiaSide string

const (
	IntarsiaSideBefore IntarsiaSide = "before"
	IntarsiaSideAfter  IntarsiaSide = "after"
)

// CastOnType selects the cast-on pattern (spec §6: castOnType).
type CastOnType string

const (
	CastOnInterlock CastOnType = "interlock"
	CastOnKickback  CastOnType = "kickback"
)

// Options is the full recognized option set for a compile session (spec
// §6 Configuration). Zero-value Options is not valid; call Defaults()
// and override from there.
type Options struct {
	Gauge Gauge

	UseIncreaseStitchNumber bool
	UseSRTucks              bool
	UseSVS                  bool

	IntarsiaTucks IntarsiaTucks
	IntarsiaSide  IntarsiaSide
	SafeTucks     bool

	ShapingAlgorithm ShapingAlgorithm
	MultiTransfer    bool
	ReduceTransfers  bool

	UsePickUpStitch bool
	InsertDepth     int
	CastOnType      CastOnType
}

// Defaults returns the option set the driver uses when the caller
// supplies no overrides.
func Defaults() Options {
	return Options{
		Gauge:            GaugeFull,
		IntarsiaTucks:    IntarsiaTucksNone,
		IntarsiaSide:     IntarsiaSideAfter,
		ShapingAlgorithm: AlgorithmCSE,
		InsertDepth:      1,
		CastOnType:       CastOnInterlock,
	}
}

// Validate rejects option combinations spec §6/§7 treat as precondition
// violations: an unrecognized enum value or insertDepth < 1.
func (o Options) Validate() error {
	site := kerrors.Site{StreamPtr: -1}
	switch o.Gauge {
	case GaugeFull, GaugeHalf:
	default:
		return kerrors.New(kerrors.Precondition, site, "unrecognized gauge %q", o.Gauge)
	}
	switch o.IntarsiaTucks {
	case IntarsiaTucksBoth, IntarsiaTucksCW, IntarsiaTucksCCW, IntarsiaTucksNone:
	default:
		return kerrors.New(kerrors.Precondition, site, "unrecognized intarsiaTucks %q", o.IntarsiaTucks)
	}
	switch o.IntarsiaSide {
	case IntarsiaSideBefore, IntarsiaSideAfter:
	default:
		return kerrors.New(kerrors.Precondition, site, "unrecognized intarsiaSide %q", o.IntarsiaSide)
	}
	switch o.ShapingAlgorithm {
	case AlgorithmCSE, AlgorithmRS:
	default:
		return kerrors.New(kerrors.Precondition, site, "unrecognized shapingAlgorithm %q", o.ShapingAlgorithm)
	}
	switch o.CastOnType {
	case CastOnInterlock, CastOnKickback:
	default:
		return kerrors.New(kerrors.Precondition, site, "unrecognized castOnType %q", o.CastOnType)
	}
	if o.InsertDepth < 1 {
		return kerrors.New(kerrors.Precondition, site, "insertDepth must be >= 1, got %d", o.InsertDepth)
	}
	return nil
}

func (o Options) String() string {
	return fmt.Sprintf("Options{gauge=%s shaping=%s castOn=%s insertDepth=%d}",
		o.Gauge, o.ShapingAlgorithm, o.CastOnType, o.InsertDepth)
}
