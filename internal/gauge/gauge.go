// Package gauge implements the pure half-gauge <-> full-gauge needle
// conversions referenced by the transfer planner's half-gauge fast path
// (spec §4.E) and treated by spec §1 as "a pure functional layer" external
// collaborator — supplemented here (spec.md §12 / SPEC_FULL.md §12)
// because the planner calls the two named functions directly.
package gauge

import "knitc/internal/machine"

// HalfToFullGauge maps a needle used at half gauge (every other needle) to
// its full-gauge equivalent: offsets double, sliders collapse onto hooks
// since half-gauge transfers stage through the otherwise-unused
// interleaved positions.
func HalfToFullGauge(n machine.Needle) machine.Needle {
	side := n.Side
	if side.IsSlider() {
		side = side.HookOf()
	}
	return machine.Needle{Side: side, Offset: n.Offset * 2}
}

// FullToHalfGauge is the inverse mapping used once the planner has
// computed a plan in expanded (full-gauge) space.
func FullToHalfGauge(n machine.Needle) machine.Needle {
	side := n.Side
	if side.IsSlider() {
		side = side.HookOf()
	}
	return machine.Needle{Side: side, Offset: n.Offset / 2}
}

// HalfToFullGaugeAll maps a whole sequence, preserving order.
func HalfToFullGaugeAll(ns []machine.Needle) []machine.Needle {
	out := make([]machine.Needle, len(ns))
	for i, n := range ns {
		out[i] = HalfToFullGauge(n)
	}
	return out
}

// FullToHalfGaugeAll is the inverse of HalfToFullGaugeAll.
func FullToHalfGaugeAll(ns []machine.Needle) []machine.Needle {
	out := make([]machine.Needle, len(ns))
	for i, n := range ns {
		out[i] = FullToHalfGauge(n)
	}
	return out
}
