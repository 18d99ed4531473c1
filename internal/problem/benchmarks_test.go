package problem

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"evoforge/internal/fitness"
	"evoforge/internal/genome"
	"evoforge/internal/rng"
)

func TestRegistry(t *testing.T) {
	p, err := New("sphere")
	require.NoError(t, err)
	assert.Equal(t, "sphere", p.Name())

	_, err = New("no-such-problem")
	assert.Error(t, err)

	assert.Contains(t, Names(), "zdt1")
}

func TestSphereEvaluate(t *testing.T) {
	sp := &genome.Species{
		Name:       "floats",
		Kind:       genome.FloatVector,
		GenomeSize: 3,
		MinValue:   -1,
		MaxValue:   1,
		Fitness:    &fitness.Scalar{},
	}
	require.NoError(t, sp.Validate())

	ind := sp.NewIndividual()
	ind.Genome.(*genome.FloatVectorGenome).Genes = []float64{1, 2, 3}

	require.NoError(t, Sphere{}.Evaluate(ind, 0, 0, rng.New(1)))
	assert.True(t, ind.Evaluated)
	assert.Equal(t, -14.0, ind.Fitness.(*fitness.Scalar).Fitness)
}

func TestSphereRejectsWrongGenome(t *testing.T) {
	sp := &genome.Species{
		Name:       "longs",
		Kind:       genome.LongVector,
		GenomeSize: 3,
		MinGene:    0,
		MaxGene:    1,
		Fitness:    &fitness.Scalar{},
	}
	require.NoError(t, sp.Validate())
	assert.Error(t, Sphere{}.Evaluate(sp.NewIndividual(), 0, 0, rng.New(1)))
}

func TestZDT1ParetoFrontPoint(t *testing.T) {
	// On the true front the tail variables are all zero, so g == 1 and
	// f2 == 1 - sqrt(f1).
	f1, f2 := ZDT1{}.Objectives([]float64{0.25, 0, 0, 0})
	assert.Equal(t, 0.25, f1)
	assert.InDelta(t, 0.5, f2, 1e-12)
}

func TestZDT1Evaluate(t *testing.T) {
	bounds, err := fitness.UniformBounds(2, 0, 10)
	require.NoError(t, err)
	sp := &genome.Species{
		Name:       "floats",
		Kind:       genome.FloatVector,
		GenomeSize: 4,
		MinValue:   0,
		MaxValue:   1,
		Fitness:    fitness.NewMultiObjective(bounds, false),
	}
	require.NoError(t, sp.Validate())

	ind := sp.NewIndividual()
	ind.Genome.(*genome.FloatVectorGenome).Genes = []float64{0.25, 0, 0, 0}

	require.NoError(t, ZDT1{}.Evaluate(ind, 0, 0, rng.New(1)))
	assert.True(t, ind.Evaluated)
	mo := ind.Fitness.(*fitness.MultiObjective)
	assert.Equal(t, 0.25, mo.Objectives[0])
	assert.InDelta(t, 0.5, mo.Objectives[1], 1e-12)
}
