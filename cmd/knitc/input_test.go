package main

import (
	"strings"
	"testing"

	"knitc/internal/config"
)

const sampleInput = `{
  "options": {"castOnType": "interlock", "insertDepth": "2"},
  "nodes": [
    {
      "trace": [
        {"index": 0, "coursePrev": -1, "courseNext": -1, "type": 0, "programId": -1,
         "yarns": {"yarns": ["1"], "frontYarns": {"1": true}}},
        {"index": 1, "coursePrev": -1, "courseNext": -1, "type": 0, "programId": -1,
         "yarns": {"yarns": ["1"], "frontYarns": {"1": true}}}
      ],
      "blocks": [
        {"needles": [0, 1], "directions": [1, 1], "row": 0, "needsCastOn": true, "startsYarn": true}
      ]
    }
  ]
}`

func TestLoadInputBuildsNodesAndOverrides(t *testing.T) {
	nodes, opts, err := loadInput(strings.NewReader(sampleInput))
	if err != nil {
		t.Fatalf("loadInput failed: %v", err)
	}
	if len(nodes) != 1 {
		t.Fatalf("len(nodes) = %d, want 1", len(nodes))
	}
	if nodes[0].StitchCount != 2 {
		t.Errorf("StitchCount = %d, want 2", nodes[0].StitchCount)
	}
	if len(nodes[0].Steps) != 1 {
		t.Fatalf("len(Steps) = %d, want 1", len(nodes[0].Steps))
	}
	if !nodes[0].Steps[0].Block.NeedsCastOn() {
		t.Error("expected NeedsCastOn true")
	}
	if opts.InsertDepth != 2 {
		t.Errorf("InsertDepth = %d, want 2", opts.InsertDepth)
	}
	if opts.CastOnType != config.CastOnInterlock {
		t.Errorf("CastOnType = %v, want interlock", opts.CastOnType)
	}
}

func TestApplyOptionOverridesRejectsUnknownKey(t *testing.T) {
	opts := config.Defaults()
	if err := applyOptionOverrides(&opts, map[string]string{"bogus": "x"}); err == nil {
		t.Error("expected error for unknown option key")
	}
}
