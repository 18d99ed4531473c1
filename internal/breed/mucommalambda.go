package breed

import (
	"fmt"
	"sync"

	"evoforge/internal/pop"
	"evoforge/internal/state"
)

// Comparison reports how last generation's children fared against their
// parents, the input to a 1/5-rule mutation adapter.
type Comparison int8

const (
	UnderOneFifthBetter   Comparison = -1
	ExactlyOneFifthBetter Comparison = 0
	OverOneFifthBetter    Comparison = 1
)

// PostProcessor is the hook that turns (mu,lambda) into (mu+lambda): it
// sees the bred population and the (sorted) parent population after every
// generation.
type PostProcessor interface {
	PostProcess(newpop, oldpop *pop.Population) (*pop.Population, error)
}

type identityPostProcessor struct{}

func (identityPostProcessor) PostProcess(newpop, _ *pop.Population) (*pop.Population, error) {
	return newpop, nil
}

// Config wires a MuCommaLambdaBreeder. Pipelines holds one prototype per
// subpopulation; every produced child must pass through exactly one
// ESSelection.
type Config struct {
	Mu        []int
	Lambda    []int
	Pipelines []Pipeline
	Threads   int
}

// MuCommaLambdaBreeder implements the (mu,lambda) strategy: each
// generation the lambda children replace the population outright, parents
// are discarded, and per-subpopulation 1/5-rule statistics are gathered
// for any mutation operator that wants them.
type MuCommaLambdaBreeder struct {
	Mu     []int
	Lambda []int

	// Comparison is refreshed at the start of each breeding cycle, once
	// a parent population exists to compare against.
	Comparison []Comparison

	// ParentPopulation is the previous generation, rank-sorted.
	ParentPopulation *pop.Population

	pipelines []Pipeline
	threads   int
	post      PostProcessor
}

// NewMuCommaLambda validates the per-subpopulation mu and lambda vectors.
// Lambda must be a positive multiple of mu so every parent gets the same
// number of children.
func NewMuCommaLambda(cfg Config) (*MuCommaLambdaBreeder, error) {
	b := &MuCommaLambdaBreeder{post: identityPostProcessor{}}
	if err := b.setup(cfg); err != nil {
		return nil, err
	}
	return b, nil
}

func (b *MuCommaLambdaBreeder) setup(cfg Config) error {
	if len(cfg.Mu) == 0 || len(cfg.Mu) != len(cfg.Lambda) {
		return fmt.Errorf("es: mu and lambda must be configured for every subpopulation (%d mu, %d lambda)", len(cfg.Mu), len(cfg.Lambda))
	}
	if len(cfg.Pipelines) != len(cfg.Mu) {
		return fmt.Errorf("es: %d breeding pipelines configured for %d subpopulations", len(cfg.Pipelines), len(cfg.Mu))
	}
	for x := range cfg.Mu {
		if cfg.Lambda[x] < 1 {
			return fmt.Errorf("es.lambda.%d: lambda must be an integer >= 1", x)
		}
		if cfg.Mu[x] < 1 {
			return fmt.Errorf("es.mu.%d: mu must be an integer >= 1", x)
		}
		if cfg.Lambda[x]%cfg.Mu[x] != 0 {
			return fmt.Errorf("es.mu.%d: lambda must be a multiple of mu", x)
		}
		if cfg.Pipelines[x] == nil {
			return fmt.Errorf("es: breeding pipeline for subpopulation %d is required", x)
		}
	}
	b.Mu = append([]int(nil), cfg.Mu...)
	b.Lambda = append([]int(nil), cfg.Lambda...)
	b.Comparison = make([]Comparison, len(cfg.Mu))
	b.pipelines = append([]Pipeline(nil), cfg.Pipelines...)
	b.threads = cfg.Threads
	if b.threads < 1 {
		b.threads = 1
	}
	return nil
}

// BreedPopulation runs one (mu,lambda) generation: 1/5 statistics against
// the previous parents, rank sort, slot allocation, and parallel pipeline
// dispatch under the once-per-child counter discipline.
func (b *MuCommaLambdaBreeder) BreedPopulation(st *state.EvolutionState) (*pop.Population, error) {
	// Complete the 1/5 statistics for the last population. Child i's
	// parent index is i / (lambda/mu); only the first lambda slots are
	// children, the rest may be merged-in parents.
	if b.ParentPopulation != nil {
		for x, sub := range st.Population.Subpops {
			childrenPerParent := b.Lambda[x] / b.Mu[x]
			numChildrenBetter := 0
			for i := 0; i < b.Lambda[x]; i++ {
				parent := i / childrenPerParent
				if sub.Individuals[i].Fitness.BetterThan(b.ParentPopulation.Subpops[x].Individuals[parent].Fitness) {
					numChildrenBetter++
				}
			}
			fifth := float64(b.Lambda[x]) / 5.0
			switch {
			case float64(numChildrenBetter) > fifth:
				b.Comparison[x] = OverOneFifthBetter
			case float64(numChildrenBetter) < fifth:
				b.Comparison[x] = UnderOneFifthBetter
			default:
				b.Comparison[x] = ExactlyOneFifthBetter
			}
		}
	}

	b.ParentPopulation = st.Population

	if len(b.Mu) != len(st.Population.Subpops) {
		return nil, fmt.Errorf("es: the population has %d subpopulations but mu and lambda were configured for %d", len(st.Population.Subpops), len(b.Mu))
	}
	for x, sub := range st.Population.Subpops {
		if len(sub.Individuals) < b.Mu[x] {
			return nil, fmt.Errorf("es: subpopulation %d has %d individuals, fewer than mu (%d)", x, len(sub.Individuals), b.Mu[x])
		}
	}

	// Rank-sort so the best individuals occupy the lowest indexes; the
	// top mu are the parents ESSelection draws from.
	for _, sub := range st.Population.Subpops {
		RankSort(sub.Individuals)
	}

	newpop := st.Population.EmptyClone()
	for x, sub := range newpop.Subpops {
		sub.Resize(b.Lambda[x])
	}

	if err := b.breedParallel(newpop, st); err != nil {
		return nil, err
	}
	return b.post.PostProcess(newpop, st.Population)
}

// breedParallel divvies each subpopulation's lambda slots across the
// breeding threads; the last thread absorbs the division remainder. Slot
// ranges are disjoint, so the workers share nothing but the read-only
// parent population.
func (b *MuCommaLambdaBreeder) breedParallel(newpop *pop.Population, st *state.EvolutionState) error {
	threads := b.threads
	if st.BreedThreads > 0 {
		threads = st.BreedThreads
	}
	if threads < 1 {
		threads = 1
	}

	numinds := make([][]int, threads)
	from := make([][]int, threads)
	for t := 0; t < threads; t++ {
		numinds[t] = make([]int, len(newpop.Subpops))
		from[t] = make([]int, len(newpop.Subpops))
		for x := range newpop.Subpops {
			chunk := b.Lambda[x] / threads
			from[t][x] = chunk * t
			if t < threads-1 {
				numinds[t][x] = chunk
			} else {
				numinds[t][x] = b.Lambda[x] - chunk*(threads-1)
			}
		}
	}

	if threads == 1 {
		return b.breedChunk(newpop, st, numinds[0], from[0], 0)
	}

	var wg sync.WaitGroup
	errs := make([]error, threads)
	for t := 0; t < threads; t++ {
		wg.Add(1)
		go func(t int) {
			defer wg.Done()
			errs[t] = b.breedChunk(newpop, st, numinds[t], from[t], t)
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

// breedChunk breeds one thread's slot ranges across every subpopulation,
// verifying the ES-selection counter advanced by exactly one per child.
func (b *MuCommaLambdaBreeder) breedChunk(newpop *pop.Population, st *state.EvolutionState, numinds, from []int, thread int) error {
	counter := &Counter{}
	ctx := &Context{
		State:   st,
		Thread:  thread,
		Random:  st.Random[thread],
		Counter: counter,
		Mu:      b.Mu,
	}

	for subpop := range newpop.Subpops {
		ctx.Subpop = subpop
		bp := b.pipelines[subpop].Clone()
		if err := checkPipeline(bp, newpop.Subpops[subpop].Species, subpop); err != nil {
			return err
		}
		if err := bp.PrepareToProduce(ctx); err != nil {
			return err
		}

		upper := from[subpop] + numinds[subpop]
		for x := from[subpop]; x < upper; x++ {
			prev := counter.Count()
			n, err := bp.Produce(1, 1, x, newpop.Subpops[subpop].Individuals, ctx)
			if err != nil {
				return err
			}
			if n != 1 {
				return fmt.Errorf("the breeding pipeline for subpopulation %d is not producing one individual at a time, as the mu/lambda strategies require", subpop)
			}
			if delta := counter.Count() - prev; delta != 1 {
				return fmt.Errorf("the breeding pipeline for subpopulation %d used ES selection more or less than exactly once: %d times", subpop, delta)
			}
		}
		if err := bp.FinishProducing(ctx); err != nil {
			return err
		}
	}
	return nil
}
