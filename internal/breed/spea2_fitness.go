package breed

import (
	"math"
	"sort"

	"evoforge/internal/fitness"
	"evoforge/internal/genome"
)

// AssignSPEA2Fitness computes the ranking scalar for every individual:
// raw fitness (the summed strengths of its dominators) plus a density
// term 1/(d_k + 2), where d_k is the distance to the sqrt(N)-th nearest
// neighbor in objective space.
//
// The density term is at most 1/2 and the raw fitness is a non-negative
// integer, so a value below 1 marks exactly the non-dominated set.
func AssignSPEA2Fitness(inds []*genome.Individual) error {
	n := len(inds)
	fits := make([]*spea2Fit, n)
	for i, ind := range inds {
		f, err := spea2Of(ind)
		if err != nil {
			return err
		}
		fits[i] = &spea2Fit{f: f}
	}

	// Strength: how many individuals each one dominates.
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			if i != j && fits[i].f.BetterThan(fits[j].f) {
				fits[i].strength++
			}
		}
	}

	// Raw fitness: the summed strengths of everything dominating i.
	for i := 0; i < n; i++ {
		raw := 0.0
		for j := 0; j < n; j++ {
			if i != j && fits[j].f.BetterThan(fits[i].f) {
				raw += float64(fits[j].strength)
			}
		}
		fits[i].raw = raw
	}

	kth := int(math.Sqrt(float64(n)))
	if kth < 1 {
		kth = 1
	}
	dists := make([]float64, 0, n-1)
	for i := 0; i < n; i++ {
		dists = dists[:0]
		for j := 0; j < n; j++ {
			if i != j {
				dists = append(dists, fits[i].f.CalcDistance(fits[j].f))
			}
		}
		sort.Float64s(dists)
		k := kth
		if k > len(dists) {
			k = len(dists)
		}
		dk := 0.0
		if k > 0 {
			dk = dists[k-1]
		}
		fits[i].f.SPEA2Fitness = fits[i].raw + 1.0/(dk+2.0)
	}
	return nil
}

type spea2Fit struct {
	f        *fitness.SPEA2
	strength int
	raw      float64
}
