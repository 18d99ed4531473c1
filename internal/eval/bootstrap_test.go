package eval

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"evoforge/internal/fitness"
	"evoforge/internal/genome"
	"evoforge/internal/output"
	"evoforge/internal/params"
	"evoforge/internal/state"
)

func newOutput(t *testing.T) *output.Output {
	t.Helper()
	out, err := output.New(1, false, false)
	require.NoError(t, err)
	return out
}

func TestBuildFitnessPrototypeScalar(t *testing.T) {
	db, err := params.Parse([]byte("{}"))
	require.NoError(t, err)

	fit, err := BuildFitnessPrototype(db, newOutput(t))
	require.NoError(t, err)
	assert.IsType(t, &fitness.Scalar{}, fit)
}

func TestBuildFitnessPrototypeMultiObjective(t *testing.T) {
	db, err := params.Parse([]byte(`
fitness: multi
multi:
  num-objectives: 2
  maximize: false
  min: 0
  max:
    "0": 2
    "1": 5
`))
	require.NoError(t, err)

	fit, err := BuildFitnessPrototype(db, newOutput(t))
	require.NoError(t, err)
	mo, ok := fit.(*fitness.MultiObjective)
	require.True(t, ok)
	assert.False(t, mo.Maximize)
	assert.Len(t, mo.Objectives, 2)
	assert.Equal(t, 2.0, mo.Bounds.Max[0])
	assert.Equal(t, 5.0, mo.Bounds.Max[1])
}

func TestBuildFitnessPrototypeReportsBadBounds(t *testing.T) {
	db, err := params.Parse([]byte(`
fitness: multi
multi:
  num-objectives: 1
  min: 3
  max: 1
`))
	require.NoError(t, err)

	_, err = BuildFitnessPrototype(db, newOutput(t))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "multi.min.0")
}

func TestBuildStateWiresEverything(t *testing.T) {
	db, err := params.Parse([]byte(slaveYAML))
	require.NoError(t, err)

	st, err := BuildState(db, newOutput(t))
	require.NoError(t, err)
	assert.Equal(t, 2, st.NumGenerations)
	require.Len(t, st.Population.Subpops, 1)
	assert.Len(t, st.Population.Subpops[0].Individuals, 2)
	assert.Equal(t, genome.FloatVector, st.Population.Subpops[0].Species.Kind)

	// The assembled state runs.
	result, err := st.Run()
	require.NoError(t, err)
	assert.Equal(t, state.Failure, result)
}

func TestBuildStateRejectsUnknownVariant(t *testing.T) {
	db, err := params.Parse([]byte("state: steady\n"))
	require.NoError(t, err)
	_, err = BuildState(db, newOutput(t))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "steady")
}

func TestBuildBreederRejectsUnknownTag(t *testing.T) {
	db, err := params.Parse([]byte(slaveYAML))
	require.NoError(t, err)
	db.Set("breeder", "annealing")
	_, err = BuildState(db, newOutput(t))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "annealing")
}

func TestBuildStateValidatesMuLambda(t *testing.T) {
	db, err := params.Parse([]byte(slaveYAML))
	require.NoError(t, err)
	db.Set("es.mu.0", "3")
	db.Set("es.lambda.0", "10")
	_, err = BuildState(db, newOutput(t))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "lambda must be a multiple of mu")
}
