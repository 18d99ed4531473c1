package fitness

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"evoforge/internal/wire"
)

func TestMultiObjectiveBinaryRoundTrip(t *testing.T) {
	// Objectives travel as float32, so use exactly representable values.
	f := newMO(t, false, 0.5, -2.25, 16)

	var buf bytes.Buffer
	w := wire.NewWriter(&buf)
	require.NoError(t, f.Write(w))
	require.NoError(t, w.Flush())

	g := newMO(t, true, 0, 0, 0)
	require.NoError(t, g.Read(wire.NewReader(&buf)))
	assert.Equal(t, f.Objectives, g.Objectives)
	assert.Equal(t, f.Maximize, g.Maximize)
}

func TestMultiObjectiveBinaryLayout(t *testing.T) {
	f := newMO(t, true, 1)
	var buf bytes.Buffer
	w := wire.NewWriter(&buf)
	require.NoError(t, f.Write(w))
	require.NoError(t, w.Flush())
	// int32 count, one float32, one bool byte.
	assert.Equal(t, 4+4+1, buf.Len())
}

func TestMultiObjectiveReadResizes(t *testing.T) {
	f := newMO(t, true, 1, 2, 3)
	var buf bytes.Buffer
	w := wire.NewWriter(&buf)
	require.NoError(t, f.Write(w))
	require.NoError(t, w.Flush())

	g := newMO(t, true, 0)
	require.NoError(t, g.Read(wire.NewReader(&buf)))
	assert.Len(t, g.Objectives, 3)
}

func TestSPEA2BinaryRoundTrip(t *testing.T) {
	bounds, err := UniformBounds(2, 0, 10)
	require.NoError(t, err)
	f := NewSPEA2(bounds, false)
	require.NoError(t, f.SetObjectives([]float64{0.25, 0.75}))
	f.SPEA2Fitness = 1.0625

	var buf bytes.Buffer
	w := wire.NewWriter(&buf)
	require.NoError(t, f.Write(w))
	require.NoError(t, w.Flush())

	g := NewSPEA2(bounds, true)
	require.NoError(t, g.Read(wire.NewReader(&buf)))
	assert.Equal(t, f.Objectives, g.Objectives)
	assert.Equal(t, f.Maximize, g.Maximize)
	assert.Equal(t, f.SPEA2Fitness, g.SPEA2Fitness)
}

func TestScalarBinaryRoundTrip(t *testing.T) {
	f := &Scalar{Fitness: -17.125}
	var buf bytes.Buffer
	w := wire.NewWriter(&buf)
	require.NoError(t, f.Write(w))
	require.NoError(t, w.Flush())

	g := &Scalar{}
	require.NoError(t, g.Read(wire.NewReader(&buf)))
	assert.Equal(t, f.Fitness, g.Fitness)
}
