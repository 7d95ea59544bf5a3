package stitchprogram

import (
	"testing"

	"knitc/internal/registry"
	"knitc/internal/stitch"
)

func TestLiftInternsIdenticalSchedulesUnderSameID(t *testing.T) {
	reg := registry.New()
	trace := []stitch.TracedStitch{
		{Index: 0, ProgramID: -1, CoursePrev: -1, CourseNext: -1, Type: stitch.Knit,
			Yarns: stitch.YarnStack{Yarns: []string{"a"}, FrontYarns: map[string]bool{"a": true}}},
		{Index: 1, ProgramID: -1, CoursePrev: -1, CourseNext: -1, Type: stitch.Knit,
			Yarns: stitch.YarnStack{Yarns: []string{"a"}, FrontYarns: map[string]bool{"a": true}}},
	}
	ids := Lift(trace, reg, 1)
	if ids[0] != ids[1] {
		t.Errorf("expected identical stitch schedules to share an id, got %d and %d", ids[0], ids[1])
	}
}

func TestLiftPreservesUserProgramID(t *testing.T) {
	reg := registry.New()
	userID := reg.Register(registry.Program{}, "user-authored")
	trace := []stitch.TracedStitch{
		{Index: 0, ProgramID: int(userID), CoursePrev: -1, CourseNext: -1},
	}
	ids := Lift(trace, reg, 1)
	if ids[0] != userID {
		t.Errorf("expected user program id preserved, got %d want %d", ids[0], userID)
	}
}

func TestLiftDistinguishesDifferentYarnSets(t *testing.T) {
	reg := registry.New()
	trace := []stitch.TracedStitch{
		{Index: 0, ProgramID: -1, CoursePrev: -1, CourseNext: -1, Type: stitch.Knit,
			Yarns: stitch.YarnStack{Yarns: []string{"a"}, FrontYarns: map[string]bool{"a": true}}},
		{Index: 1, ProgramID: -1, CoursePrev: -1, CourseNext: -1, Type: stitch.Knit,
			Yarns: stitch.YarnStack{Yarns: []string{"b"}, FrontYarns: map[string]bool{"b": true}}},
	}
	ids := Lift(trace, reg, 1)
	if ids[0] == ids[1] {
		t.Errorf("expected distinct schedules for distinct yarn sets, got same id %d", ids[0])
	}
}

// TestLiftAliasesBareShapeMissToRegistryMISS documents the Action.MISS
// legacy alias (spec §9 Open Question): a stitch whose type is Miss
// because its shaping action is also ShapeMiss, with no insert/remove
// yarns, is lifted directly to the reserved MISS program rather than a
// synthesized schedule. Its course neighbours carry the same yarn, so
// nothing is inserted or removed.
func TestLiftAliasesBareShapeMissToRegistryMISS(t *testing.T) {
	reg := registry.New()
	trace := []stitch.TracedStitch{
		{Index: 0, ProgramID: -1, CoursePrev: -1, CourseNext: 1, Type: stitch.Knit,
			Yarns: stitch.YarnStack{Yarns: []string{"a"}, FrontYarns: map[string]bool{"a": true}}},
		{Index: 1, ProgramID: -1, CoursePrev: 0, CourseNext: 2, Type: stitch.Miss, Shaping: stitch.ShapeMiss,
			Yarns: stitch.YarnStack{Yarns: []string{"a"}, FrontYarns: map[string]bool{"a": true}}},
		{Index: 2, ProgramID: -1, CoursePrev: 1, CourseNext: -1, Type: stitch.Knit,
			Yarns: stitch.YarnStack{Yarns: []string{"a"}, FrontYarns: map[string]bool{"a": true}}},
	}
	ids := Lift(trace, reg, 1)
	if ids[1] != registry.MISS {
		t.Errorf("expected bare ShapeMiss stitch aliased to registry.MISS, got %d", ids[1])
	}
}

// TestLiftDoesNotAliasShapeMissWithInsertYarns documents the ambiguous
// half of the same Open Question: when the stitch also inserts a yarn
// (its yarn set differs from the lower-course previous stitch), the
// alias does not apply and the stitch instead gets a normal synthesized
// schedule distinct from the reserved MISS program.
func TestLiftDoesNotAliasShapeMissWithInsertYarns(t *testing.T) {
	reg := registry.New()
	trace := []stitch.TracedStitch{
		{Index: 0, ProgramID: -1, CoursePrev: -1, CourseNext: -1, Type: stitch.Knit,
			Yarns: stitch.YarnStack{Yarns: []string{"a"}, FrontYarns: map[string]bool{"a": true}}},
		{Index: 1, ProgramID: -1, CoursePrev: 0, CourseNext: -1, Type: stitch.Miss, Shaping: stitch.ShapeMiss,
			Yarns: stitch.YarnStack{Yarns: []string{"a", "b"}, FrontYarns: map[string]bool{"a": true, "b": true}}},
	}
	ids := Lift(trace, reg, 1)
	if ids[1] == registry.MISS {
		t.Error("expected ShapeMiss stitch with an inserted yarn not to alias to registry.MISS")
	}
}
