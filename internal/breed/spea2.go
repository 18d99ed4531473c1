package breed

import (
	"fmt"
	"math"
	"sort"
	"sync"

	"evoforge/internal/fitness"
	"evoforge/internal/genome"
	"evoforge/internal/pop"
	"evoforge/internal/state"
)

// SPEA2Config wires a SPEA2Breeder. Pipelines fill the non-archive slots;
// they normally source from SPEA2TournamentSelection.
type SPEA2Config struct {
	Pipelines []Pipeline
	Threads   int
}

// SPEA2Breeder maintains the SPEA2 archive: each generation it copies the
// non-dominated individuals (truncated to the archive size by iterative
// nearest-neighbor pruning) into the top slots of the next population and
// refills the rest through the breeding pipelines.
//
// The distance and sorted-index matrices are reused across generations:
// they grow but never shrink. That is safe only because loadElites runs on
// the single main thread before any breeding workers start.
type SPEA2Breeder struct {
	pipelines []Pipeline
	threads   int

	distances   [][]float64
	sortedIndex [][]int
}

func NewSPEA2(cfg SPEA2Config) (*SPEA2Breeder, error) {
	if len(cfg.Pipelines) == 0 {
		return nil, fmt.Errorf("spea2: at least one breeding pipeline is required")
	}
	for x, bp := range cfg.Pipelines {
		if bp == nil {
			return nil, fmt.Errorf("spea2: breeding pipeline for subpopulation %d is required", x)
		}
	}
	threads := cfg.Threads
	if threads < 1 {
		threads = 1
	}
	return &SPEA2Breeder{pipelines: cfg.Pipelines, threads: threads}, nil
}

func spea2Of(ind *genome.Individual) (*fitness.SPEA2, error) {
	f, ok := ind.Fitness.(*fitness.SPEA2)
	if !ok {
		return nil, fmt.Errorf("spea2: individual carries %T, not a SPEA2 fitness", ind.Fitness)
	}
	return f, nil
}

// BreedPopulation loads the archives on the main thread, then breeds the
// remaining slots in parallel.
func (b *SPEA2Breeder) BreedPopulation(st *state.EvolutionState) (*pop.Population, error) {
	if len(b.pipelines) != len(st.Population.Subpops) {
		return nil, fmt.Errorf("spea2: %d breeding pipelines configured for %d subpopulations", len(b.pipelines), len(st.Population.Subpops))
	}

	newpop := st.Population.EmptyClone()
	for x, sub := range st.Population.Subpops {
		if sub.ArchiveSize < 1 || sub.ArchiveSize > len(sub.Individuals) {
			return nil, fmt.Errorf("spea2: subpopulation %d archive size %d is outside [1, %d]", x, sub.ArchiveSize, len(sub.Individuals))
		}
		if err := AssignSPEA2Fitness(sub.Individuals); err != nil {
			return nil, fmt.Errorf("spea2: subpopulation %d: %w", x, err)
		}
		if err := b.LoadElites(sub.Individuals, newpop.Subpops[x].Individuals, sub.ArchiveSize); err != nil {
			return nil, fmt.Errorf("spea2: subpopulation %d: %w", x, err)
		}
	}

	if err := b.breedParallel(newpop, st); err != nil {
		return nil, err
	}
	return newpop, nil
}

// loadElites picks the archive out of oldInds and clones it into the top
// slots of newInds. oldInds is rearranged in place so its own archive ends
// up in the last archiveSize slots, where SPEA2TournamentSelection expects
// the survivors.
func (b *SPEA2Breeder) LoadElites(oldInds, newInds []*genome.Individual, archiveSize int) error {
	for _, ind := range oldInds {
		if _, err := spea2Of(ind); err != nil {
			return err
		}
	}

	// Ascending by the SPEA2 ranking scalar; values below 1 are the
	// non-dominated set.
	sort.Slice(oldInds, func(i, j int) bool {
		fi, _ := spea2Of(oldInds[i])
		fj, _ := spea2Of(oldInds[j])
		return fi.SPEA2Fitness < fj.SPEA2Fitness
	})

	// Keep every non-dominated individual, plus enough dominated ones to
	// reach the archive size; null out the rest. When everything is
	// dominated this keeps the first archiveSize sorted entries.
	kept := 0
	for x := range oldInds {
		f, _ := spea2Of(oldInds[x])
		if kept >= archiveSize && f.SPEA2Fitness >= 1 {
			oldInds[x] = nil
		} else {
			kept++
		}
	}

	if kept > archiveSize {
		b.truncateByDensity(oldInds, kept, archiveSize)
	}

	// Compact survivors to the front and clone them into the top of
	// newInds, walking the new population backwards.
	nullIndex := -1
	newIndex := 1
	for i := 0; i < kept; i++ {
		if oldInds[i] == nil {
			if nullIndex == -1 {
				nullIndex = i
			}
			continue
		}
		newInds[len(newInds)-newIndex] = oldInds[i].Clone()
		newIndex++
		if nullIndex > -1 {
			oldInds[nullIndex] = oldInds[i]
			nullIndex++
			oldInds[i] = nil
		}
	}

	// Rotate so the archive occupies the last archiveSize slots of the
	// old array too.
	for i := 0; i < len(oldInds)-archiveSize; i++ {
		oldInds[len(oldInds)-1-i] = oldInds[i]
		oldInds[i] = nil
	}
	return nil
}

// truncateByDensity iteratively drops the individual with the
// lexicographically smallest sorted neighbor-distance sequence until only
// archiveSize survivors remain.
func (b *SPEA2Breeder) truncateByDensity(oldInds []*genome.Individual, kept, archiveSize int) {
	if len(b.distances) < kept {
		b.distances = make([][]float64, kept)
		b.sortedIndex = make([][]int, kept)
		for i := range b.distances {
			b.distances[i] = make([]float64, kept)
			b.sortedIndex[i] = make([]int, kept)
		}
	}
	distances := b.distances
	sortedIndex := b.sortedIndex

	for y := 0; y < kept; y++ {
		fy, _ := spea2Of(oldInds[y])
		for z := y + 1; z < kept; z++ {
			fz, _ := spea2Of(oldInds[z])
			d := fy.CalcDistance(fz)
			distances[y][z] = d
			distances[z][y] = d
		}
		// The self-distance sentinel makes every row's first sorted
		// neighbor itself, so that n-way tie prunes nobody.
		distances[y][y] = -1
	}

	// Insertion-sort each row's index list ascending by distance; kept is
	// small enough that this beats a general sort.
	for i := 0; i < kept; i++ {
		sortedIndex[i][0] = 0
		for j := 1; j < kept; j++ {
			k := j
			for k > 0 && distances[i][j] < distances[i][sortedIndex[i][k-1]] {
				sortedIndex[i][k] = sortedIndex[i][k-1]
				k--
			}
			sortedIndex[i][k] = j
		}
	}

	mf := kept
	for mf > archiveSize {
		// The row whose distance sequence is lexicographically smallest
		// has the tightest neighborhood; it goes first. Rank 0 is the
		// self sentinel, so scanning starts at 1.
		minpos := 0
		for i := 1; i < kept; i++ {
			for j := 1; j < mf; j++ {
				di := distances[i][sortedIndex[i][j]]
				dmin := distances[minpos][sortedIndex[minpos][j]]
				if di < dmin {
					minpos = i
					break
				} else if di > dmin {
					break
				}
			}
		}

		for i := 0; i < kept; i++ {
			distances[i][minpos] = math.Inf(1)
			distances[minpos][i] = math.Inf(1)
			row := sortedIndex[i]
			for j := 1; j < mf-1; j++ {
				if row[j] == minpos {
					row[j] = row[j+1]
					row[j+1] = minpos
				}
			}
		}
		oldInds[minpos] = nil
		mf--
	}
}

// breedParallel fills the non-archive slots [0, len-archiveSize) of every
// subpopulation, divvied across the breeding threads with the last thread
// absorbing the remainder.
func (b *SPEA2Breeder) breedParallel(newpop *pop.Population, st *state.EvolutionState) error {
	threads := b.threads
	if st.BreedThreads > 0 {
		threads = st.BreedThreads
	}
	if threads < 1 {
		threads = 1
	}

	var wg sync.WaitGroup
	errs := make([]error, threads)
	for t := 0; t < threads; t++ {
		if threads == 1 {
			errs[0] = b.breedChunk(newpop, st, 0, 1)
			break
		}
		wg.Add(1)
		go func(t int) {
			defer wg.Done()
			errs[t] = b.breedChunk(newpop, st, t, threads)
		}(t)
	}
	wg.Wait()
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}

func (b *SPEA2Breeder) breedChunk(newpop *pop.Population, st *state.EvolutionState, thread, threads int) error {
	ctx := &Context{
		State:  st,
		Thread: thread,
		Random: st.Random[thread],
	}
	for subpop, sub := range newpop.Subpops {
		ctx.Subpop = subpop
		toBreed := len(sub.Individuals) - sub.ArchiveSize
		chunk := toBreed / threads
		from := chunk * thread
		num := chunk
		if thread == threads-1 {
			num = toBreed - chunk*(threads-1)
		}

		bp := b.pipelines[subpop].Clone()
		if err := checkPipeline(bp, sub.Species, subpop); err != nil {
			return err
		}
		if err := bp.PrepareToProduce(ctx); err != nil {
			return err
		}
		for x := from; x < from+num; x++ {
			n, err := bp.Produce(1, 1, x, sub.Individuals, ctx)
			if err != nil {
				return err
			}
			if n != 1 {
				return fmt.Errorf("spea2: the breeding pipeline for subpopulation %d is not producing one individual at a time", subpop)
			}
		}
		if err := bp.FinishProducing(ctx); err != nil {
			return err
		}
	}
	return nil
}
