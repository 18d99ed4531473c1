package fitness

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMO(t *testing.T, maximize bool, objectives ...float64) *MultiObjective {
	t.Helper()
	bounds, err := UniformBounds(len(objectives), -1000, 1000)
	require.NoError(t, err)
	f := NewMultiObjective(bounds, maximize)
	require.NoError(t, f.SetObjectives(objectives))
	return f
}

func TestParetoDominance(t *testing.T) {
	a := newMO(t, true, 2, 3)
	b := newMO(t, true, 2, 4)

	assert.True(t, b.BetterThan(a))
	assert.False(t, a.BetterThan(b))
	assert.False(t, a.EquivalentTo(b))
}

func TestDominanceIrreflexiveAndAsymmetric(t *testing.T) {
	a := newMO(t, true, 1, 2, 3)
	b := newMO(t, true, 1, 2, 4)

	assert.False(t, a.BetterThan(a))
	assert.True(t, a.EquivalentTo(a))

	assert.True(t, b.BetterThan(a))
	assert.False(t, a.BetterThan(b))
}

func TestEquivalentToSymmetric(t *testing.T) {
	// Each beats the other on one objective: mutually non-dominated.
	a := newMO(t, true, 1, 0)
	b := newMO(t, true, 0, 1)

	assert.True(t, a.EquivalentTo(b))
	assert.True(t, b.EquivalentTo(a))
	assert.False(t, a.BetterThan(b))
	assert.False(t, b.BetterThan(a))
}

func TestMinimizationFlipsDominance(t *testing.T) {
	a := newMO(t, false, 2, 3)
	b := newMO(t, false, 2, 4)

	assert.True(t, a.BetterThan(b))
	assert.False(t, b.BetterThan(a))
}

func TestMismatchedComparisonsPanic(t *testing.T) {
	a := newMO(t, true, 1, 2)
	b := newMO(t, false, 1, 2)
	c := newMO(t, true, 1, 2, 3)

	assert.Panics(t, func() { a.BetterThan(b) })
	assert.Panics(t, func() { a.EquivalentTo(c) })
	assert.Panics(t, func() { a.BetterThan(&Scalar{}) })
}

func TestSetObjectivesSanitizesNonFinite(t *testing.T) {
	bounds, err := NewBounds([]float64{0, -5}, []float64{1, 5})
	require.NoError(t, err)

	max := NewMultiObjective(bounds, true)
	require.NoError(t, max.SetObjectives([]float64{math.NaN(), math.Inf(1)}))
	assert.Equal(t, []float64{0, -5}, max.Objectives)

	min := NewMultiObjective(bounds, false)
	require.NoError(t, min.SetObjectives([]float64{math.Inf(-1), 2}))
	assert.Equal(t, []float64{1, 2}, min.Objectives)
}

func TestSetObjectivesRejectsBadLength(t *testing.T) {
	f := newMO(t, true, 1, 2)
	assert.Error(t, f.SetObjectives([]float64{1}))
	assert.Error(t, f.SetObjectives(nil))
}

func TestBoundsValidation(t *testing.T) {
	_, err := NewBounds([]float64{1}, []float64{1})
	assert.Error(t, err)
	_, err = NewBounds([]float64{2}, []float64{1})
	assert.Error(t, err)
	_, err = NewBounds(nil, nil)
	assert.Error(t, err)
	_, err = NewBounds([]float64{0, 1}, []float64{1})
	assert.Error(t, err)
}

func TestValueIsMaxObjective(t *testing.T) {
	f := newMO(t, true, 1, 7, 3)
	assert.Equal(t, 7.0, f.Value())
}

func TestCloneSharesBoundsCopiesObjectives(t *testing.T) {
	f := newMO(t, true, 1, 2)
	c := f.Clone().(*MultiObjective)

	assert.Same(t, f.Bounds, c.Bounds)
	c.Objectives[0] = 99
	assert.Equal(t, 1.0, f.Objectives[0])
}

func TestScalarOrdering(t *testing.T) {
	a := &Scalar{Fitness: 1}
	b := &Scalar{Fitness: 2}

	assert.True(t, b.BetterThan(a))
	assert.False(t, a.BetterThan(b))
	assert.False(t, a.BetterThan(a))
	assert.True(t, a.EquivalentTo(a))
}

func TestSPEA2Distance(t *testing.T) {
	bounds, err := UniformBounds(2, 0, 2)
	require.NoError(t, err)
	a := NewSPEA2(bounds, true)
	require.NoError(t, a.SetObjectives([]float64{0, 0}))
	b := NewSPEA2(bounds, true)
	require.NoError(t, b.SetObjectives([]float64{1, 1}))

	assert.InDelta(t, math.Sqrt2, a.CalcDistance(b), 1e-12)
	assert.InDelta(t, math.Sqrt2, b.CalcDistance(a), 1e-12)
}

func TestSPEA2ComparesAgainstMultiObjective(t *testing.T) {
	bounds, err := UniformBounds(2, 0, 10)
	require.NoError(t, err)
	s := NewSPEA2(bounds, true)
	require.NoError(t, s.SetObjectives([]float64{2, 2}))
	m := NewMultiObjective(bounds, true)
	require.NoError(t, m.SetObjectives([]float64{1, 1}))

	assert.True(t, s.BetterThan(m))
	assert.True(t, m.EquivalentTo(m))
}

func TestTextRoundTrip(t *testing.T) {
	f := newMO(t, true, 0.5, -2.25)
	text := f.String()

	g := newMO(t, false, 0, 0)
	require.NoError(t, g.ParseString(text))
	assert.Equal(t, f.Objectives, g.Objectives)
	assert.Equal(t, f.Maximize, g.Maximize)
}

func TestScalarTextRoundTrip(t *testing.T) {
	f := &Scalar{Fitness: -3.75}
	g := &Scalar{}
	require.NoError(t, g.ParseString(f.String()))
	assert.Equal(t, f.Fitness, g.Fitness)
}
