package breed

import (
	"fmt"

	"evoforge/internal/genome"
)

// SPEA2TournamentSelection draws parents from the archive block: the last
// archiveSize slots of the current subpopulation, where loadElites parked
// the survivors. The tournament compares the SPEA2 ranking scalar; lower
// wins.
type SPEA2TournamentSelection struct {
	// Size is the tournament size; 2 when unset.
	Size int
}

func (s SPEA2TournamentSelection) Clone() Pipeline { return s }

func (SPEA2TournamentSelection) Produces(sp *genome.Species) bool { return true }

func (SPEA2TournamentSelection) PrepareToProduce(ctx *Context) error { return nil }

func (s SPEA2TournamentSelection) Produce(min, max, start int, inds []*genome.Individual, ctx *Context) (int, error) {
	sub := ctx.State.Population.Subpops[ctx.Subpop]
	if sub.ArchiveSize < 1 || sub.ArchiveSize > len(sub.Individuals) {
		return 0, fmt.Errorf("spea2 tournament: subpopulation %d has no archive to select from", ctx.Subpop)
	}
	archive := sub.Individuals[len(sub.Individuals)-sub.ArchiveSize:]

	size := s.Size
	if size < 2 {
		size = 2
	}
	best := archive[ctx.Random.Intn(len(archive))]
	bestFit, err := spea2Of(best)
	if err != nil {
		return 0, err
	}
	for i := 1; i < size; i++ {
		candidate := archive[ctx.Random.Intn(len(archive))]
		candidateFit, err := spea2Of(candidate)
		if err != nil {
			return 0, err
		}
		if candidateFit.SPEA2Fitness < bestFit.SPEA2Fitness {
			best = candidate
			bestFit = candidateFit
		}
	}
	inds[start] = best.Clone()
	return 1, nil
}

func (SPEA2TournamentSelection) FinishProducing(ctx *Context) error { return nil }
