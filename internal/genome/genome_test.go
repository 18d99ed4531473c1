package genome

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"evoforge/internal/code"
	"evoforge/internal/fitness"
	"evoforge/internal/rng"
	"evoforge/internal/wire"
)

func longSpecies(t *testing.T, size int) *Species {
	t.Helper()
	sp := &Species{
		Name:                "longs",
		Kind:                LongVector,
		GenomeSize:          size,
		MinGene:             -10,
		MaxGene:             10,
		MutationProbability: 0.5,
		Crossover:           OnePoint,
		Fitness:             &fitness.Scalar{},
	}
	require.NoError(t, sp.Validate())
	return sp
}

func floatSpecies(t *testing.T, size int) *Species {
	t.Helper()
	sp := &Species{
		Name:                "floats",
		Kind:                FloatVector,
		GenomeSize:          size,
		MinValue:            0,
		MaxValue:            1,
		MutationProbability: 0.5,
		Crossover:           TwoPoint,
		Fitness:             &fitness.Scalar{},
	}
	require.NoError(t, sp.Validate())
	return sp
}

func TestSpeciesValidation(t *testing.T) {
	sp := longSpecies(t, 4)

	bad := *sp
	bad.GenomeSize = 0
	assert.Error(t, bad.Validate())

	bad = *sp
	bad.Kind = "tree"
	assert.Error(t, bad.Validate())

	bad = *sp
	bad.MutationProbability = 1.5
	assert.Error(t, bad.Validate())

	bad = *sp
	bad.Fitness = nil
	assert.Error(t, bad.Validate())
}

func TestCloneIsDeep(t *testing.T) {
	sp := longSpecies(t, 3)
	ind := sp.NewIndividual()
	ind.Genome.(*LongVectorGenome).Genes[0] = 7
	ind.Fitness.(*fitness.Scalar).Fitness = 1
	ind.Evaluated = true

	c := ind.Clone()
	c.Genome.(*LongVectorGenome).Genes[0] = 99
	c.Fitness.(*fitness.Scalar).Fitness = 2

	assert.Equal(t, int64(7), ind.Genome.(*LongVectorGenome).Genes[0])
	assert.Equal(t, 1.0, ind.Fitness.(*fitness.Scalar).Fitness)
	assert.True(t, c.Evaluated)
	assert.Same(t, sp, c.Species)
}

func TestResetStaysInRange(t *testing.T) {
	sp := longSpecies(t, 100)
	g := sp.NewGenome().(*LongVectorGenome)
	g.Reset(sp, rng.New(1))
	assert.True(t, g.IsInRange(sp))
}

func TestSetLengthCopiesPrefixToFront(t *testing.T) {
	g := &LongVectorGenome{Genes: []int64{1, 2, 3}}

	g.SetLength(5)
	assert.Equal(t, []int64{1, 2, 3, 0, 0}, g.Genes)

	g.SetLength(2)
	assert.Equal(t, []int64{1, 2}, g.Genes)
}

func TestClamp(t *testing.T) {
	sp := longSpecies(t, 3)
	g := &LongVectorGenome{Genes: []int64{-50, 5, 50}}
	assert.False(t, g.IsInRange(sp))
	g.Clamp(sp)
	assert.Equal(t, []int64{-10, 5, 10}, g.Genes)
	assert.True(t, g.IsInRange(sp))
}

func TestCrossKindEqualIsFalse(t *testing.T) {
	long := &LongVectorGenome{Genes: []int64{1}}
	flt := &FloatVectorGenome{Genes: []float64{1}}
	bits := &BitVectorGenome{Genes: []bool{true}}

	assert.False(t, long.Equal(flt))
	assert.False(t, flt.Equal(bits))
	assert.False(t, bits.Equal(long))
	assert.True(t, long.Equal(&LongVectorGenome{Genes: []int64{1}}))
}

func TestCrossoverRejectsMismatch(t *testing.T) {
	sp := longSpecies(t, 2)
	a := &LongVectorGenome{Genes: []int64{1, 2}}
	assert.Error(t, a.Crossover(sp, rng.New(1), &FloatVectorGenome{Genes: []float64{1, 2}}))
	assert.Error(t, a.Crossover(sp, rng.New(1), &LongVectorGenome{Genes: []int64{1}}))
}

func TestCrossoverSwapsGenes(t *testing.T) {
	sp := longSpecies(t, 4)
	a := &LongVectorGenome{Genes: []int64{1, 1, 1, 1}}
	b := &LongVectorGenome{Genes: []int64{2, 2, 2, 2}}
	require.NoError(t, a.Crossover(sp, rng.New(3), b))

	// Whatever the cut point, the multiset of genes is preserved.
	ones, twos := 0, 0
	for _, genes := range [][]int64{a.Genes, b.Genes} {
		for _, v := range genes {
			switch v {
			case 1:
				ones++
			case 2:
				twos++
			}
		}
	}
	assert.Equal(t, 4, ones)
	assert.Equal(t, 4, twos)
}

func TestIndividualBinaryRoundTrip(t *testing.T) {
	sp := longSpecies(t, 4)
	ind := sp.NewIndividual()
	ind.Genome.(*LongVectorGenome).Genes = []int64{4, -3, 2, 1}
	ind.Fitness.(*fitness.Scalar).Fitness = 2.5
	ind.Evaluated = true

	var buf bytes.Buffer
	w := wire.NewWriter(&buf)
	require.NoError(t, ind.Write(w))
	require.NoError(t, w.Flush())

	got, err := sp.ReadIndividual(wire.NewReader(&buf))
	require.NoError(t, err)
	assert.True(t, ind.Equal(got))
	assert.True(t, got.Evaluated)
	assert.Equal(t, 2.5, got.Fitness.(*fitness.Scalar).Fitness)
}

func TestFloatIndividualBinaryRoundTrip(t *testing.T) {
	sp := floatSpecies(t, 3)
	ind := sp.NewIndividual()
	ind.Genome.(*FloatVectorGenome).Genes = []float64{0.1, 0.2, 0.3}

	var buf bytes.Buffer
	w := wire.NewWriter(&buf)
	require.NoError(t, ind.Write(w))
	require.NoError(t, w.Flush())

	got, err := sp.ReadIndividual(wire.NewReader(&buf))
	require.NoError(t, err)
	assert.True(t, ind.Equal(got))
	assert.False(t, got.Evaluated)
}

func TestGenomeTextRoundTrip(t *testing.T) {
	g := &LongVectorGenome{Genes: []int64{5, -7, 0}}
	text := g.EncodeText()

	parsed := &LongVectorGenome{}
	require.NoError(t, parsed.ParseText(code.NewDecoder(text)))
	assert.True(t, g.Equal(parsed))
}

func TestIndividualTextRoundTrip(t *testing.T) {
	sp := floatSpecies(t, 2)
	ind := sp.NewIndividual()
	ind.Genome.(*FloatVectorGenome).Genes = []float64{0.25, 1.0 / 3.0}
	ind.Fitness.(*fitness.Scalar).Fitness = -1.5
	ind.Evaluated = true

	text, err := ind.PrintString()
	require.NoError(t, err)

	got, err := sp.ParseIndividual(text)
	require.NoError(t, err)
	assert.True(t, ind.Equal(got))
	assert.True(t, got.Evaluated)
	assert.Equal(t, -1.5, got.Fitness.(*fitness.Scalar).Fitness)
}

func TestBitVectorRoundTrip(t *testing.T) {
	sp := &Species{
		Name:                "bits",
		Kind:                BitVector,
		GenomeSize:          5,
		MutationProbability: 0.5,
		Fitness:             &fitness.Scalar{},
	}
	require.NoError(t, sp.Validate())

	ind := sp.NewIndividual()
	ind.Genome.(*BitVectorGenome).Genes = []bool{true, false, true, true, false}

	var buf bytes.Buffer
	w := wire.NewWriter(&buf)
	require.NoError(t, ind.Write(w))
	require.NoError(t, w.Flush())

	got, err := sp.ReadIndividual(wire.NewReader(&buf))
	require.NoError(t, err)
	assert.True(t, ind.Equal(got))
}
