// Package state drives the top-level evolutionary loop: evaluate the
// population, record statistics, breed the next generation, checkpoint.
package state

import (
	"errors"
	"fmt"
	"sync"

	"gonum.org/v1/gonum/stat"

	"evoforge/internal/genome"
	"evoforge/internal/output"
	"evoforge/internal/pop"
	"evoforge/internal/problem"
	"evoforge/internal/rng"
)

// Result codes returned by Evolve.
type Result int

const (
	Success Result = 0
	Failure Result = 1
	NotDone Result = 2
)

func (r Result) String() string {
	switch r {
	case Success:
		return "success"
	case Failure:
		return "failure"
	default:
		return "not done"
	}
}

// Breeder produces the next generation from the state's population.
type Breeder interface {
	BreedPopulation(st *EvolutionState) (*pop.Population, error)
}

// GenerationStats is the per-generation fitness summary, computed over the
// scalar fallback values.
type GenerationStats struct {
	Generation int
	Best       float64
	Mean       float64
	Std        float64
}

// EvolutionState owns the population exclusively. Breeders hand back a
// fresh population; the old one is dropped when the slot is overwritten.
type EvolutionState struct {
	RunID  string
	Output *output.Output

	// Random is indexed by thread so each worker draws from its own
	// stream.
	Random []*rng.MT

	Population *pop.Population
	Breeder    Breeder
	Problem    problem.Simple

	Generation     int
	NumGenerations int
	EvalThreads    int
	BreedThreads   int

	// FitnessGoal ends the run with Success once the best scalar
	// fallback reaches it.
	FitnessGoal    float64
	HasFitnessGoal bool

	Evaluations int64
	History     []GenerationStats

	evalMu sync.Mutex
}

// Validate checks the wiring before the first generation.
func (st *EvolutionState) Validate() error {
	if st.Population == nil || len(st.Population.Subpops) == 0 {
		return errors.New("state: population is required")
	}
	if st.Breeder == nil {
		return errors.New("state: breeder is required")
	}
	if st.Problem == nil {
		return errors.New("state: problem is required")
	}
	if st.NumGenerations < 1 {
		return errors.New("state: generations must be an integer >= 1")
	}
	threads := st.EvalThreads
	if st.BreedThreads > threads {
		threads = st.BreedThreads
	}
	if threads < 1 {
		threads = 1
	}
	if len(st.Random) < threads {
		return fmt.Errorf("state: %d worker threads but only %d random streams", threads, len(st.Random))
	}
	return nil
}

// StartFresh randomizes every individual and clears the generation
// counter.
func (st *EvolutionState) StartFresh() error {
	if err := st.Validate(); err != nil {
		return err
	}
	for _, sub := range st.Population.Subpops {
		for i := range sub.Individuals {
			if sub.Individuals[i] == nil {
				sub.Individuals[i] = sub.Species.NewIndividual()
			}
			ind := sub.Individuals[i]
			ind.Genome.Reset(sub.Species, st.Random[0])
			ind.Evaluated = false
		}
	}
	st.Generation = 0
	st.Evaluations = 0
	st.History = st.History[:0]
	return nil
}

// InjectSubpopulation replaces subpop x with the given individuals,
// resizing the slot array. Used by the slave's re-evolve mode.
func (st *EvolutionState) InjectSubpopulation(x int, inds []*genome.Individual) error {
	if x < 0 || x >= len(st.Population.Subpops) {
		return fmt.Errorf("state: no subpopulation %d", x)
	}
	st.Population.Subpops[x].Individuals = inds
	return nil
}

// Evolve runs one generation. It returns NotDone while the run should
// continue, Success when the fitness goal is met, and Failure when the
// generation budget runs out first.
func (st *EvolutionState) Evolve() (Result, error) {
	if err := st.evaluatePopulation(); err != nil {
		return Failure, err
	}

	stats := st.recordStats()
	if st.Output != nil {
		st.Output.Message("generation %d: best %g mean %g", stats.Generation, stats.Best, stats.Mean)
	}

	if st.HasFitnessGoal && stats.Best >= st.FitnessGoal {
		return Success, nil
	}
	if st.Generation >= st.NumGenerations-1 {
		return Failure, nil
	}

	newpop, err := st.Breeder.BreedPopulation(st)
	if err != nil {
		return Failure, err
	}
	st.Population = newpop
	st.Generation++
	return NotDone, nil
}

// Run drives Evolve to completion.
func (st *EvolutionState) Run() (Result, error) {
	if err := st.StartFresh(); err != nil {
		return Failure, err
	}
	for {
		result, err := st.Evolve()
		if err != nil {
			return result, err
		}
		if result != NotDone {
			st.Finish(result)
			return result, nil
		}
	}
}

// Finish announces the terminal result.
func (st *EvolutionState) Finish(result Result) {
	if st.Output != nil {
		st.Output.Message("run %s finished after generation %d: %s", st.RunID, st.Generation, result)
	}
}

// evaluatePopulation evaluates every unevaluated individual, fanning out
// over EvalThreads with disjoint slot ranges per thread.
func (st *EvolutionState) evaluatePopulation() error {
	threads := st.EvalThreads
	if threads < 1 {
		threads = 1
	}
	for x, sub := range st.Population.Subpops {
		n := len(sub.Individuals)
		if threads == 1 || n < threads*2 {
			if err := st.evaluateChunk(x, 0, n, 0); err != nil {
				return err
			}
			continue
		}
		chunk := n / threads
		var wg sync.WaitGroup
		errs := make([]error, threads)
		for t := 0; t < threads; t++ {
			from := t * chunk
			to := from + chunk
			if t == threads-1 {
				to = n
			}
			wg.Add(1)
			go func(t, from, to int) {
				defer wg.Done()
				errs[t] = st.evaluateChunk(x, from, to, t)
			}(t, from, to)
		}
		wg.Wait()
		for _, err := range errs {
			if err != nil {
				return err
			}
		}
	}
	return nil
}

func (st *EvolutionState) evaluateChunk(subpop, from, to, thread int) error {
	sub := st.Population.Subpops[subpop]
	for i := from; i < to; i++ {
		ind := sub.Individuals[i]
		if ind == nil {
			return fmt.Errorf("subpopulation %d: slot %d is empty at evaluation", subpop, i)
		}
		if ind.Evaluated {
			continue
		}
		if err := st.Problem.Evaluate(ind, subpop, thread, st.Random[thread]); err != nil {
			return err
		}
		st.countEvaluation()
	}
	return nil
}

func (st *EvolutionState) countEvaluation() {
	st.evalMu.Lock()
	st.Evaluations++
	st.evalMu.Unlock()
}

func (st *EvolutionState) recordStats() GenerationStats {
	var values []float64
	for _, sub := range st.Population.Subpops {
		for _, ind := range sub.Individuals {
			values = append(values, ind.Fitness.Value())
		}
	}
	best := values[0]
	for _, v := range values[1:] {
		if v > best {
			best = v
		}
	}
	stats := GenerationStats{
		Generation: st.Generation,
		Best:       best,
		Mean:       stat.Mean(values, nil),
		Std:        stat.StdDev(values, nil),
	}
	st.History = append(st.History, stats)
	return stats
}

// BestIndividual returns the dominance-best individual of subpop x: the
// one no other individual strictly beats, scanning in order.
func (st *EvolutionState) BestIndividual(x int) *genome.Individual {
	sub := st.Population.Subpops[x]
	best := sub.Individuals[0]
	for _, ind := range sub.Individuals[1:] {
		if ind.Fitness.BetterThan(best.Fitness) {
			best = ind
		}
	}
	return best
}
