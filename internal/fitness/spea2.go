package fitness

import (
	"gonum.org/v1/gonum/floats"
)

// SPEA2 extends MultiObjective with the archive-ranking scalar assigned by
// the strength/density pass. Values below 1 mark non-dominated individuals;
// lower is always better regardless of the objective direction.
type SPEA2 struct {
	MultiObjective
	SPEA2Fitness float64
}

// NewSPEA2 returns a zeroed SPEA2 fitness over bounds.
func NewSPEA2(bounds *Bounds, maximize bool) *SPEA2 {
	return &SPEA2{MultiObjective: *NewMultiObjective(bounds, maximize)}
}

func (f *SPEA2) Clone() Fitness {
	c := *f
	c.Objectives = append([]float64(nil), f.Objectives...)
	return &c
}

// CalcDistance is the Euclidean distance to other in objective space.
func (f *SPEA2) CalcDistance(other *SPEA2) float64 {
	return floats.Distance(f.Objectives, other.Objectives, 2)
}
