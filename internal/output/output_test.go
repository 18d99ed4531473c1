package output

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNegativeVerbosityRejected(t *testing.T) {
	_, err := New(-1, false, false)
	assert.Error(t, err)
}

func TestErrorsAccumulateAndFlushOnce(t *testing.T) {
	out, err := New(0, false, false)
	require.NoError(t, err)

	assert.NoError(t, out.ExitIfErrors())

	out.Error("es.mu.0: mu must be an integer >= 1")
	out.Error("es.lambda.0: lambda must be an integer >= 1")
	assert.True(t, out.HasErrors())

	got := out.ExitIfErrors()
	require.Error(t, got)
	assert.Contains(t, got.Error(), "es.mu.0")
	assert.Contains(t, got.Error(), "es.lambda.0")

	// The batch is flushed; a second call reports nothing.
	assert.NoError(t, out.ExitIfErrors())
	assert.False(t, out.HasErrors())
}

func TestStoredAnnouncements(t *testing.T) {
	out, err := New(0, true, false)
	require.NoError(t, err)

	out.Message("generation %d", 3)
	out.Warning("bad objective")

	ann := out.Announcements()
	require.Len(t, ann, 2)
	assert.Equal(t, "generation 3", ann[0])
	assert.Equal(t, "WARNING: bad objective", ann[1])
}
