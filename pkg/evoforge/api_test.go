package evoforge

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func memoryClient(t *testing.T) *Client {
	t.Helper()
	client, err := New(context.Background(), Options{StoreKind: "memory", Verbosity: 1})
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestRunSphereWithES(t *testing.T) {
	ctx := context.Background()
	client := memoryClient(t)

	summary, err := client.Run(ctx, RunRequest{
		Problem:     "sphere",
		Algorithm:   "es",
		Mu:          2,
		Lambda:      10,
		GenomeSize:  4,
		Generations: 15,
		Seed:        42,
	})
	require.NoError(t, err)
	require.Len(t, summary.BestByGeneration, 15)

	// Sphere fitness is -sum(x^2), so every recorded best is <= 0.
	for i, best := range summary.BestByGeneration {
		assert.LessOrEqual(t, best, 0.0, "generation %d", i)
	}
	assert.Greater(t, summary.Evaluations, int64(0))

	runs, err := client.Runs(ctx, 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, summary.RunID, runs[0].ID)
	assert.Equal(t, "es", runs[0].Algorithm)

	stats, err := client.GenerationStats(ctx, summary.RunID)
	require.NoError(t, err)
	assert.Len(t, stats, 15)
}

func TestRunZDT1WithSPEA2(t *testing.T) {
	ctx := context.Background()
	client := memoryClient(t)

	summary, err := client.Run(ctx, RunRequest{
		Problem:        "zdt1",
		Algorithm:      "spea2",
		PopulationSize: 12,
		ArchiveSize:    4,
		GenomeSize:     4,
		Generations:    5,
		Seed:           7,
	})
	require.NoError(t, err)
	assert.Len(t, summary.BestByGeneration, 5)
}

func TestRunMuPlusLambda(t *testing.T) {
	ctx := context.Background()
	client := memoryClient(t)

	summary, err := client.Run(ctx, RunRequest{
		Problem:     "sphere",
		Algorithm:   "es-plus",
		Mu:          2,
		Lambda:      6,
		GenomeSize:  3,
		Generations: 8,
		Seed:        3,
	})
	require.NoError(t, err)
	assert.Len(t, summary.BestByGeneration, 8)

	// With elitist merging the best fitness never regresses.
	for i := 1; i < len(summary.BestByGeneration); i++ {
		assert.GreaterOrEqual(t, summary.BestByGeneration[i], summary.BestByGeneration[i-1],
			"generation %d regressed", i)
	}
}

func TestRunRejectsBadCombination(t *testing.T) {
	ctx := context.Background()
	client := memoryClient(t)

	_, err := client.Run(ctx, RunRequest{Problem: "sphere", Algorithm: "spea2"})
	assert.Error(t, err)

	_, err = client.Run(ctx, RunRequest{Problem: "sphere", Algorithm: "hillclimb"})
	assert.Error(t, err)
}
