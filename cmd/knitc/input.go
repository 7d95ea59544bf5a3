package main

import (
	"encoding/json"
	"fmt"
	"io"

	"knitc/internal/config"
	"knitc/internal/node"
	"knitc/internal/stitch"
)

// blockDTO is the on-disk shape of one node.Block (spec §6 external
// input contract), since Block keeps its fields unexported behind
// NewBlock and setters.
type blockDTO struct {
	Stitches       []stitch.TracedStitch `json:"stitches"`
	Needles        []int                 `json:"needles"`
	Directions     []int                 `json:"directions"`
	Row            int                   `json:"row"`
	Circular       bool                  `json:"circular,omitempty"`
	StartsYarn     bool                  `json:"startsYarn,omitempty"`
	EndsYarn       bool                  `json:"endsYarn,omitempty"`
	NeedsCastOn    bool                  `json:"needsCastOn,omitempty"`
	NeedsCastOff   bool                  `json:"needsCastOff,omitempty"`
	ShapingTargets []int                 `json:"shapingTargets,omitempty"`
}

type nodeDTO struct {
	Trace  []stitch.TracedStitch `json:"trace"`
	Blocks []blockDTO            `json:"blocks"`
}

type inputDTO struct {
	Options map[string]string `json:"options,omitempty"`
	Nodes   []nodeDTO         `json:"nodes"`
}

// loadInput decodes a compile-input document into node.Node values plus
// any option overrides layered on top of config.Defaults().
func loadInput(r io.Reader) ([]*node.Node, config.Options, error) {
	var in inputDTO
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&in); err != nil {
		return nil, config.Options{}, fmt.Errorf("decode input: %w", err)
	}

	opts := config.Defaults()
	if err := applyOptionOverrides(&opts, in.Options); err != nil {
		return nil, config.Options{}, err
	}

	nodes := make([]*node.Node, 0, len(in.Nodes))
	for _, nd := range in.Nodes {
		blocks := make([]*node.Block, len(nd.Blocks))
		for i, bd := range nd.Blocks {
			b := node.NewBlock(bd.Stitches, bd.Needles, bd.Directions, bd.Row)
			b.SetCircular(bd.Circular)
			b.SetYarnBoundaries(bd.StartsYarn, bd.EndsYarn)
			b.SetCastFlags(bd.NeedsCastOn, bd.NeedsCastOff)
			b.SetShapingTargets(bd.ShapingTargets)
			blocks[i] = b
		}
		for i := 0; i < len(blocks)-1; i++ {
			blocks[i].SetNext(blocks[i+1])
		}

		steps := make([]node.Step, len(blocks))
		for i, b := range blocks {
			steps[i] = node.Step{Block: b}
		}

		n := &node.Node{
			Steps:       steps,
			Trace:       nd.Trace,
			StitchCount: len(nd.Trace),
		}
		if len(blocks) > 0 {
			n.FirstBlockRow = blocks[0].Row()
			n.LastBlockRow = blocks[len(blocks)-1].Row()
		}
		nodes = append(nodes, n)
	}
	return nodes, opts, nil
}

// applyOptionOverrides layers string-keyed overrides (as they arrive
// from JSON or --set flags) onto opts, the way the teacher's own
// hand-rolled flag table assigns into a flat options struct field by
// field rather than through reflection.
func applyOptionOverrides(opts *config.Options, overrides map[string]string) error {
	for k, v := range overrides {
		switch k {
		case "gauge":
			opts.Gauge = config.Gauge(v)
		case "shapingAlgorithm":
			opts.ShapingAlgorithm = config.ShapingAlgorithm(v)
		case "intarsiaTucks":
			opts.IntarsiaTucks = config.IntarsiaTucks(v)
		case "intarsiaSide":
			opts.IntarsiaSide = config.IntarsiaSide(v)
		case "castOnType":
			opts.CastOnType = config.CastOnType(v)
		case "insertDepth":
			var depth int
			if _, err := fmt.Sscanf(v, "%d", &depth); err != nil {
				return fmt.Errorf("option insertDepth: %w", err)
			}
			opts.InsertDepth = depth
		case "useSRTucks":
			opts.UseSRTucks = v == "true"
		case "useSVS":
			opts.UseSVS = v == "true"
		case "safeTucks":
			opts.SafeTucks = v == "true"
		case "multiTransfer":
			opts.MultiTransfer = v == "true"
		case "reduceTransfers":
			opts.ReduceTransfers = v == "true"
		case "usePickUpStitch":
			opts.UsePickUpStitch = v == "true"
		case "useIncreaseStitchNumber":
			opts.UseIncreaseStitchNumber = v == "true"
		default:
			return fmt.Errorf("unrecognized option %q", k)
		}
	}
	return nil
}
