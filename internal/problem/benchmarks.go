package problem

import (
	"fmt"
	"math"

	"evoforge/internal/fitness"
	"evoforge/internal/genome"
	"evoforge/internal/rng"
)

// Sphere is the classic unimodal benchmark: minimize sum(x_i^2) over a
// float vector genome. Reported as a scalar fitness where higher is
// better, so the value is negated.
type Sphere struct{}

func (Sphere) Name() string { return "sphere" }

func (Sphere) Evaluate(ind *genome.Individual, subpop, thread int, rnd *rng.MT) error {
	g, ok := ind.Genome.(*genome.FloatVectorGenome)
	if !ok {
		return fmt.Errorf("sphere requires a float vector genome, got %s", ind.Genome.Kind())
	}
	f, ok := ind.Fitness.(*fitness.Scalar)
	if !ok {
		return fmt.Errorf("sphere requires a scalar fitness, got %T", ind.Fitness)
	}
	sum := 0.0
	for _, x := range g.Genes {
		sum += x * x
	}
	f.Fitness = -sum
	ind.Evaluated = true
	return nil
}

// ZDT1 is a two-objective benchmark over [0,1]^n with a known Pareto
// front f2 = 1 - sqrt(f1); both objectives are minimized.
type ZDT1 struct{}

func (ZDT1) Name() string { return "zdt1" }

// Objectives computes the two ZDT1 objectives for a variable vector.
func (ZDT1) Objectives(vars []float64) (float64, float64) {
	f1 := vars[0]
	g := 1.0
	for i := 1; i < len(vars); i++ {
		g += 9.0 * vars[i] / float64(len(vars)-1)
	}
	return f1, g * (1.0 - math.Sqrt(f1/g))
}

func (p ZDT1) Evaluate(ind *genome.Individual, subpop, thread int, rnd *rng.MT) error {
	g, ok := ind.Genome.(*genome.FloatVectorGenome)
	if !ok {
		return fmt.Errorf("zdt1 requires a float vector genome, got %s", ind.Genome.Kind())
	}
	mo := multiObjectiveOf(ind.Fitness)
	if mo == nil {
		return fmt.Errorf("zdt1 requires a multi-objective fitness, got %T", ind.Fitness)
	}
	if len(mo.Objectives) != 2 {
		return fmt.Errorf("zdt1 has 2 objectives, fitness carries %d", len(mo.Objectives))
	}
	f1, f2 := p.Objectives(g.Genes)
	if err := mo.SetObjectives([]float64{f1, f2}); err != nil {
		return err
	}
	ind.Evaluated = true
	return nil
}

func multiObjectiveOf(f fitness.Fitness) *fitness.MultiObjective {
	switch v := f.(type) {
	case *fitness.MultiObjective:
		return v
	case *fitness.SPEA2:
		return &v.MultiObjective
	default:
		return nil
	}
}
