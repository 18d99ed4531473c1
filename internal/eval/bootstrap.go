// Package eval implements the distributed-evaluation runtime: the slave
// process that serves a master over TCP, the master side of that
// connection, and the parameter-driven bootstrap both share.
package eval

import (
	"fmt"
	"strconv"
	"time"

	"evoforge/internal/breed"
	"evoforge/internal/fitness"
	"evoforge/internal/genome"
	"evoforge/internal/output"
	"evoforge/internal/params"
	"evoforge/internal/pop"
	"evoforge/internal/problem"
	"evoforge/internal/rng"
	"evoforge/internal/state"
)

// BuildFitnessPrototype reads the fitness parameters. The multi-objective
// bounds default to [0,1) per objective, overridable globally (multi.min,
// multi.max) and per objective (multi.min.<i>, multi.max.<i>).
func BuildFitnessPrototype(db *params.Database, out *output.Output) (fitness.Fitness, error) {
	kind := db.StringDefault("fitness", "scalar")
	if kind == "scalar" {
		return &fitness.Scalar{}, nil
	}

	n, err := db.Int("multi.num-objectives")
	if err != nil || n < 1 {
		out.Error("multi.num-objectives: the number of objectives must be an integer >= 1")
	}
	maximize := db.BoolDefault("multi.maximize", true)

	mins := make([]float64, n)
	maxs := make([]float64, n)
	for i := 0; i < n; i++ {
		mins[i] = db.FloatDefault("multi.min", 0.0)
		maxs[i] = db.FloatDefault("multi.max", 1.0)
		mins[i] = db.FloatDefault("multi.min."+strconv.Itoa(i), mins[i])
		maxs[i] = db.FloatDefault("multi.max."+strconv.Itoa(i), maxs[i])
		if mins[i] >= maxs[i] {
			out.Error("multi.min.%d: the min fitness must be strictly less than the max fitness", i)
		}
	}
	if err := out.ExitIfErrors(); err != nil {
		return nil, err
	}

	bounds, err := fitness.NewBounds(mins, maxs)
	if err != nil {
		return nil, err
	}
	switch kind {
	case "multi":
		return fitness.NewMultiObjective(bounds, maximize), nil
	case "spea2":
		return fitness.NewSPEA2(bounds, maximize), nil
	default:
		return nil, fmt.Errorf("fitness: unknown fitness kind %q", kind)
	}
}

// BuildSpecies reads pop.subpop.<x>.* into a species descriptor.
func BuildSpecies(db *params.Database, subpop int, fit fitness.Fitness) (*genome.Species, error) {
	base := "pop.subpop." + strconv.Itoa(subpop) + "."
	sp := &genome.Species{
		Name:                 db.StringDefault(base+"name", "subpop-"+strconv.Itoa(subpop)),
		Kind:                 genome.Kind(db.StringDefault(base+"genome", string(genome.FloatVector))),
		GenomeSize:           db.IntDefault(base+"genome-size", 1),
		MinGene:              int64(db.IntDefault(base+"min-gene", 0)),
		MaxGene:              int64(db.IntDefault(base+"max-gene", 1)),
		MinValue:             db.FloatDefault(base+"min-value", 0.0),
		MaxValue:             db.FloatDefault(base+"max-value", 1.0),
		MutationProbability:  db.FloatDefault(base+"mutation-prob", 0.1),
		Crossover:            genome.CrossoverType(db.StringDefault(base+"crossover", string(genome.OnePoint))),
		CrossoverProbability: db.FloatDefault(base+"crossover-prob", 0.5),
		Fitness:              fit,
	}
	if err := sp.Validate(); err != nil {
		return nil, err
	}
	return sp, nil
}

// seedFromParams resolves the seed parameter; the value "time" draws from
// the wall clock.
func seedFromParams(db *params.Database) int64 {
	raw := db.StringDefault("seed", "time")
	if raw == "time" {
		return time.Now().UnixNano()
	}
	if v, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return v
	}
	return time.Now().UnixNano()
}

// BuildState assembles a full evolution state from the parameter
// database: population shells, fitness prototypes, breeder, problem and
// per-thread random streams. Setup errors accumulate in out and surface
// together.
func BuildState(db *params.Database, out *output.Output) (*state.EvolutionState, error) {
	if tag := db.StringDefault("state", "simple"); tag != "simple" {
		return nil, fmt.Errorf("state: unknown evolution state variant %q", tag)
	}

	fit, err := BuildFitnessPrototype(db, out)
	if err != nil {
		return nil, err
	}

	numSubpops := db.IntDefault("pop.subpops", 1)
	if numSubpops < 1 {
		return nil, fmt.Errorf("pop.subpops: the number of subpopulations must be an integer >= 1")
	}

	population := &pop.Population{Subpops: make([]*pop.Subpopulation, numSubpops)}
	for x := 0; x < numSubpops; x++ {
		sp, err := BuildSpecies(db, x, fit)
		if err != nil {
			return nil, err
		}
		size := db.IntDefault("pop.subpop."+strconv.Itoa(x)+".size", 1)
		if size < 1 {
			return nil, fmt.Errorf("pop.subpop.%d.size: subpopulation size must be an integer >= 1", x)
		}
		sub := &pop.Subpopulation{
			Species:     sp,
			Individuals: make([]*genome.Individual, size),
			ArchiveSize: db.IntDefault("pop.subpop."+strconv.Itoa(x)+".archive-size", 0),
		}
		population.Subpops[x] = sub
	}

	evalThreads := db.IntDefault("evalthreads", 1)
	breedThreads := db.IntDefault("breedthreads", 1)
	threads := evalThreads
	if breedThreads > threads {
		threads = breedThreads
	}
	if threads < 1 {
		threads = 1
	}
	seed := seedFromParams(db)
	randoms := make([]*rng.MT, threads)
	for t := range randoms {
		randoms[t] = rng.New(seed + int64(t))
	}

	breeder, err := buildBreeder(db, numSubpops, breedThreads)
	if err != nil {
		return nil, err
	}

	prob, err := problem.New(db.StringDefault("eval.problem", "sphere"))
	if err != nil {
		return nil, err
	}

	st := &state.EvolutionState{
		Output:         out,
		Random:         randoms,
		Population:     population,
		Breeder:        breeder,
		Problem:        prob,
		NumGenerations: db.IntDefault("generations", 10),
		EvalThreads:    evalThreads,
		BreedThreads:   breedThreads,
	}
	if goal, err := db.Float("fitness-goal"); err == nil {
		st.FitnessGoal = goal
		st.HasFitnessGoal = true
	}
	if err := st.Validate(); err != nil {
		return nil, err
	}
	return st, nil
}

func buildBreeder(db *params.Database, numSubpops, threads int) (state.Breeder, error) {
	tag := db.StringDefault("breeder", "es")
	switch tag {
	case "es", "es-plus":
		mu := make([]int, numSubpops)
		lambda := make([]int, numSubpops)
		pipelines := make([]breed.Pipeline, numSubpops)
		for x := 0; x < numSubpops; x++ {
			mu[x] = db.IntDefault("es.mu."+strconv.Itoa(x), 0)
			lambda[x] = db.IntDefault("es.lambda."+strconv.Itoa(x), 0)
			pipelines[x] = &breed.MutationPipeline{Source: breed.ESSelection{}}
		}
		cfg := breed.Config{Mu: mu, Lambda: lambda, Pipelines: pipelines, Threads: threads}
		if tag == "es-plus" {
			return breed.NewMuPlusLambda(cfg)
		}
		return breed.NewMuCommaLambda(cfg)
	case "spea2":
		pipelines := make([]breed.Pipeline, numSubpops)
		for x := 0; x < numSubpops; x++ {
			pipelines[x] = &breed.MutationPipeline{Source: breed.SPEA2TournamentSelection{}}
		}
		return breed.NewSPEA2(breed.SPEA2Config{Pipelines: pipelines, Threads: threads})
	default:
		return nil, fmt.Errorf("breeder: unknown breeder %q", tag)
	}
}
