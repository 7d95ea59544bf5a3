package machine

// CarrierSide is which side of its anchor needle a carrier currently sits
// on (spec §3).
type CarrierSide int

const (
	Left CarrierSide = iota
	Right
)

func (s CarrierSide) Opposite() CarrierSide {
	if s == Left {
		return Right
	}
	return Left
}

// Carrier is a named yarn source (spec §3). Its physical position is
// modelled as "just to Side of Anchor"; GetCarrierConflicts uses this to
// decide whether a carrier lies in the path of an upcoming transfer.
type Carrier struct {
	Name     string
	InBed    bool
	Active   bool
	Released bool
	Anchor   Needle
	Side     CarrierSide
	LastLoop LoopID
}

// conflictsWith reports whether the carrier's physical position overlaps
// needle n under the given racking: the carrier sits "just to Side of
// Anchor", so it conflicts with n when n is on the side of Anchor the
// carrier currently occupies and within the geometric threshold (spec
// §4.E: "A helper inspects state.getCarrierConflicts(n)").
func (c *Carrier) conflictsWith(n Needle, rack float64, threshold float64) bool {
	if !c.InBed || !c.Active {
		return false
	}
	anchorFront := c.Anchor.FrontOffset(rack)
	nFront := n.FrontOffset(rack)
	delta := nFront - anchorFront
	switch c.Side {
	case Right:
		return delta >= 0 && delta <= threshold
	case Left:
		return delta <= 0 && -delta <= threshold
	}
	return false
}
