package breed

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"evoforge/internal/fitness"
	"evoforge/internal/genome"
	"evoforge/internal/pop"
	"evoforge/internal/rng"
	"evoforge/internal/state"
)

func spea2Species(t *testing.T) *genome.Species {
	t.Helper()
	bounds, err := fitness.UniformBounds(2, 0, 2)
	require.NoError(t, err)
	sp := &genome.Species{
		Name:                "points",
		Kind:                genome.FloatVector,
		GenomeSize:          2,
		MinValue:            0,
		MaxValue:            1,
		MutationProbability: 0.5,
		Crossover:           genome.OnePoint,
		Fitness:             fitness.NewSPEA2(bounds, true),
	}
	require.NoError(t, sp.Validate())
	return sp
}

func spea2Individuals(t *testing.T, sp *genome.Species, points [][2]float64) []*genome.Individual {
	t.Helper()
	inds := make([]*genome.Individual, len(points))
	for i, p := range points {
		ind := sp.NewIndividual()
		ind.Genome.(*genome.FloatVectorGenome).Genes = []float64{p[0], p[1]}
		require.NoError(t, ind.Fitness.(*fitness.SPEA2).SetObjectives([]float64{p[0], p[1]}))
		ind.Evaluated = true
		inds[i] = ind
	}
	return inds
}

func objectivesOf(t *testing.T, ind *genome.Individual) [2]float64 {
	t.Helper()
	require.NotNil(t, ind)
	f := ind.Fitness.(*fitness.SPEA2)
	return [2]float64{f.Objectives[0], f.Objectives[1]}
}

func TestAssignSPEA2FitnessSeparatesFronts(t *testing.T) {
	sp := spea2Species(t)
	// Three non-dominated points and two dominated ones.
	inds := spea2Individuals(t, sp, [][2]float64{
		{0, 1}, {0.5, 0.5}, {1, 0},
		{0.2, 0.2}, {0.1, 0.1},
	})
	require.NoError(t, AssignSPEA2Fitness(inds))

	for i := 0; i < 3; i++ {
		f := inds[i].Fitness.(*fitness.SPEA2)
		assert.Less(t, f.SPEA2Fitness, 1.0, "non-dominated point %d", i)
	}
	for i := 3; i < 5; i++ {
		f := inds[i].Fitness.(*fitness.SPEA2)
		assert.GreaterOrEqual(t, f.SPEA2Fitness, 1.0, "dominated point %d", i)
	}
}

// Five evenly spaced non-dominated points truncated to an archive of
// three. The extremes always survive; density pruning removes two of the
// interior points, and the archive lands in the last three slots of both
// arrays.
func TestArchiveTruncation(t *testing.T) {
	sp := spea2Species(t)
	points := [][2]float64{{0, 1}, {0.25, 0.75}, {0.5, 0.5}, {0.75, 0.25}, {1, 0}}
	oldInds := spea2Individuals(t, sp, points)
	require.NoError(t, AssignSPEA2Fitness(oldInds))

	newInds := make([]*genome.Individual, 5)
	b, err := NewSPEA2(SPEA2Config{Pipelines: []Pipeline{SPEA2TournamentSelection{}}})
	require.NoError(t, err)
	require.NoError(t, b.LoadElites(oldInds, newInds, 3))

	// Non-archive slots stay empty in both arrays.
	for i := 0; i < 2; i++ {
		assert.Nil(t, newInds[i])
		assert.Nil(t, oldInds[i])
	}

	var archive [][2]float64
	for i := 2; i < 5; i++ {
		archive = append(archive, objectivesOf(t, newInds[i]))
		assert.NotNil(t, oldInds[i])
	}
	assert.Contains(t, archive, [2]float64{0, 1})
	assert.Contains(t, archive, [2]float64{1, 0})
	assert.Len(t, archive, 3)

	// The old array holds the same survivors in its high slots.
	for i := 2; i < 5; i++ {
		assert.Contains(t, archive, objectivesOf(t, oldInds[i]))
	}
}

// With fewer non-dominated individuals than archive slots, the archive
// fills up with the best dominated ones and keeps the whole front.
func TestArchiveFillsWithDominated(t *testing.T) {
	sp := spea2Species(t)
	points := [][2]float64{
		{0.5, 1}, {1, 0.5}, // front
		{0.4, 0.4}, {0.3, 0.3}, {0.2, 0.2}, {0.1, 0.1},
	}
	oldInds := spea2Individuals(t, sp, points)
	require.NoError(t, AssignSPEA2Fitness(oldInds))

	newInds := make([]*genome.Individual, 6)
	b, err := NewSPEA2(SPEA2Config{Pipelines: []Pipeline{SPEA2TournamentSelection{}}})
	require.NoError(t, err)
	require.NoError(t, b.LoadElites(oldInds, newInds, 3))

	var archive [][2]float64
	for i := 3; i < 6; i++ {
		archive = append(archive, objectivesOf(t, newInds[i]))
	}
	assert.Contains(t, archive, [2]float64{0.5, 1})
	assert.Contains(t, archive, [2]float64{1, 0.5})
	// The best dominated point fills the remaining slot.
	assert.Contains(t, archive, [2]float64{0.4, 0.4})
}

// When every individual is dominated the first archiveSize sorted entries
// survive unchanged.
func TestArchiveAllDominated(t *testing.T) {
	sp := spea2Species(t)
	points := [][2]float64{{0.1, 0.1}, {0.2, 0.2}, {0.3, 0.3}, {0.4, 0.4}}
	oldInds := spea2Individuals(t, sp, points)
	for i, ind := range oldInds {
		ind.Fitness.(*fitness.SPEA2).SPEA2Fitness = float64(10 - i)
	}

	newInds := make([]*genome.Individual, 4)
	b, err := NewSPEA2(SPEA2Config{Pipelines: []Pipeline{SPEA2TournamentSelection{}}})
	require.NoError(t, err)
	require.NoError(t, b.LoadElites(oldInds, newInds, 2))

	var archive []float64
	for i := 2; i < 4; i++ {
		archive = append(archive, objectivesOf(t, newInds[i])[0])
	}
	// Lowest SPEA2Fitness values were assigned to the last points.
	assert.ElementsMatch(t, []float64{0.4, 0.3}, archive)
}

func TestSPEA2BreedPopulation(t *testing.T) {
	sp := spea2Species(t)
	points := [][2]float64{
		{0, 1}, {0.25, 0.75}, {0.5, 0.5}, {0.75, 0.25}, {1, 0},
		{0.1, 0.1}, {0.2, 0.2}, {0.3, 0.3},
	}
	inds := spea2Individuals(t, sp, points)

	st := &state.EvolutionState{
		Random: []*rng.MT{rng.New(5)},
		Population: &pop.Population{Subpops: []*pop.Subpopulation{{
			Species:     sp,
			Individuals: inds,
			ArchiveSize: 4,
		}}},
		BreedThreads: 1,
	}

	b, err := NewSPEA2(SPEA2Config{
		Pipelines: []Pipeline{&MutationPipeline{Source: SPEA2TournamentSelection{}}},
	})
	require.NoError(t, err)

	newpop, err := b.BreedPopulation(st)
	require.NoError(t, err)
	require.Len(t, newpop.Subpops[0].Individuals, 8)
	require.NoError(t, newpop.Validate())

	// The archive block carries evaluated clones; bred slots are fresh.
	for i := 0; i < 4; i++ {
		assert.False(t, newpop.Subpops[0].Individuals[i].Evaluated, "bred slot %d", i)
	}
	for i := 4; i < 8; i++ {
		assert.True(t, newpop.Subpops[0].Individuals[i].Evaluated, "archive slot %d", i)
	}
}

func TestSPEA2RejectsBadArchiveSize(t *testing.T) {
	sp := spea2Species(t)
	inds := spea2Individuals(t, sp, [][2]float64{{0, 1}, {1, 0}})
	st := &state.EvolutionState{
		Random: []*rng.MT{rng.New(5)},
		Population: &pop.Population{Subpops: []*pop.Subpopulation{{
			Species:     sp,
			Individuals: inds,
			ArchiveSize: 0,
		}}},
	}
	b, err := NewSPEA2(SPEA2Config{Pipelines: []Pipeline{SPEA2TournamentSelection{}}})
	require.NoError(t, err)
	_, err = b.BreedPopulation(st)
	assert.Error(t, err)
}

func TestScratchBuffersGrowAcrossCalls(t *testing.T) {
	sp := spea2Species(t)
	b, err := NewSPEA2(SPEA2Config{Pipelines: []Pipeline{SPEA2TournamentSelection{}}})
	require.NoError(t, err)

	small := spea2Individuals(t, sp, [][2]float64{{0, 1}, {0.5, 0.5}, {1, 0}})
	require.NoError(t, AssignSPEA2Fitness(small))
	require.NoError(t, b.LoadElites(small, make([]*genome.Individual, 3), 2))

	larger := spea2Individuals(t, sp, [][2]float64{
		{0, 1}, {0.2, 0.8}, {0.4, 0.6}, {0.6, 0.4}, {0.8, 0.2}, {1, 0},
	})
	require.NoError(t, AssignSPEA2Fitness(larger))
	require.NoError(t, b.LoadElites(larger, make([]*genome.Individual, 6), 3))

	count := 0
	for _, ind := range larger[3:] {
		require.NotNil(t, ind)
		count++
	}
	assert.Equal(t, 3, count)
}
