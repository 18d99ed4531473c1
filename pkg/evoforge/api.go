// Package evoforge is the public facade: configure a store, launch
// optimization runs, and query their history.
package evoforge

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"evoforge/internal/breed"
	"evoforge/internal/fitness"
	"evoforge/internal/genome"
	"evoforge/internal/output"
	"evoforge/internal/pop"
	"evoforge/internal/problem"
	"evoforge/internal/rng"
	"evoforge/internal/state"
	"evoforge/internal/storage"
)

const defaultDBPath = "evoforge.db"

type Options struct {
	StoreKind string
	DBPath    string
	Verbosity int
}

type Client struct {
	store storage.Store
	out   *output.Output
}

// New opens the store and prepares a client.
func New(ctx context.Context, opts Options) (*Client, error) {
	dbPath := opts.DBPath
	if dbPath == "" {
		dbPath = defaultDBPath
	}
	store, err := storage.NewStore(opts.StoreKind, dbPath)
	if err != nil {
		return nil, err
	}
	if err := store.Init(ctx); err != nil {
		return nil, err
	}
	out, err := output.New(opts.Verbosity, false, false)
	if err != nil {
		return nil, err
	}
	return &Client{store: store, out: out}, nil
}

func (c *Client) Close() error {
	return storage.CloseIfSupported(c.store)
}

// RunRequest configures one optimization run.
type RunRequest struct {
	// Problem is a registered problem tag: sphere, zdt1.
	Problem string
	// Algorithm is es, es-plus or spea2.
	Algorithm string

	Mu             int
	Lambda         int
	PopulationSize int
	ArchiveSize    int
	GenomeSize     int
	Generations    int
	Seed           int64
	Threads        int
}

type RunSummary struct {
	RunID            string
	BestByGeneration []float64
	FinalBestFitness float64
	Evaluations      int64
}

func (req *RunRequest) normalize() {
	if req.Problem == "" {
		req.Problem = "sphere"
	}
	if req.Algorithm == "" {
		req.Algorithm = "es"
	}
	if req.GenomeSize < 1 {
		req.GenomeSize = 10
	}
	if req.Generations < 1 {
		req.Generations = 20
	}
	if req.Threads < 1 {
		req.Threads = 1
	}
	if req.Mu < 1 {
		req.Mu = 2
	}
	if req.Lambda < 1 {
		req.Lambda = req.Mu * 5
	}
	if req.PopulationSize < 1 {
		req.PopulationSize = req.Lambda
	}
	if req.ArchiveSize < 1 {
		req.ArchiveSize = req.PopulationSize / 2
	}
	if req.Seed == 0 {
		req.Seed = time.Now().UnixNano()
	}
}

// Run executes the request synchronously and persists the run record,
// the per-generation statistics and a final checkpoint.
func (c *Client) Run(ctx context.Context, req RunRequest) (RunSummary, error) {
	req.normalize()

	st, err := c.buildState(req)
	if err != nil {
		return RunSummary{}, err
	}
	st.RunID = uuid.NewString()

	if _, err := st.Run(); err != nil {
		return RunSummary{}, fmt.Errorf("run %s: %w", st.RunID, err)
	}

	summary := RunSummary{
		RunID:       st.RunID,
		Evaluations: st.Evaluations,
	}
	stats := make([]storage.GenerationStat, len(st.History))
	for i, h := range st.History {
		stats[i] = storage.GenerationStat{
			RunID:      st.RunID,
			Generation: h.Generation,
			Best:       h.Best,
			Mean:       h.Mean,
			Std:        h.Std,
		}
		summary.BestByGeneration = append(summary.BestByGeneration, h.Best)
	}
	if len(summary.BestByGeneration) > 0 {
		summary.FinalBestFitness = summary.BestByGeneration[len(summary.BestByGeneration)-1]
	}

	run := storage.Run{
		ID:           st.RunID,
		CreatedAtUTC: time.Now().UTC().Format(time.RFC3339),
		Algorithm:    req.Algorithm,
		Problem:      req.Problem,
		Seed:         req.Seed,
		Population:   req.PopulationSize,
		Generations:  req.Generations,
		Evaluations:  st.Evaluations,
		BestFitness:  summary.FinalBestFitness,
	}
	run.Stamp()
	if err := c.store.SaveRun(ctx, run); err != nil {
		return RunSummary{}, err
	}
	if err := c.store.SaveGenerationStats(ctx, st.RunID, stats); err != nil {
		return RunSummary{}, err
	}
	payload, err := st.MarshalCheckpoint()
	if err != nil {
		return RunSummary{}, err
	}
	cp := storage.Checkpoint{RunID: st.RunID, Generation: st.Generation, Payload: payload}
	if err := c.store.SaveCheckpoint(ctx, cp); err != nil {
		return RunSummary{}, err
	}
	return summary, nil
}

func (c *Client) buildState(req RunRequest) (*state.EvolutionState, error) {
	fit, err := fitnessFor(req)
	if err != nil {
		return nil, err
	}

	sp := &genome.Species{
		Name:                "run-species",
		Kind:                genome.FloatVector,
		GenomeSize:          req.GenomeSize,
		MinValue:            0,
		MaxValue:            1,
		MutationProbability: 1.0 / float64(req.GenomeSize),
		Crossover:           genome.OnePoint,
		Fitness:             fit,
	}
	if err := sp.Validate(); err != nil {
		return nil, err
	}

	sub := &pop.Subpopulation{
		Species:     sp,
		Individuals: make([]*genome.Individual, req.PopulationSize),
	}
	if req.Algorithm == "spea2" {
		sub.ArchiveSize = req.ArchiveSize
	}

	breeder, err := breederFor(req)
	if err != nil {
		return nil, err
	}
	prob, err := problem.New(req.Problem)
	if err != nil {
		return nil, err
	}

	randoms := make([]*rng.MT, req.Threads)
	for t := range randoms {
		randoms[t] = rng.New(req.Seed + int64(t))
	}

	return &state.EvolutionState{
		Output:         c.out,
		Random:         randoms,
		Population:     &pop.Population{Subpops: []*pop.Subpopulation{sub}},
		Breeder:        breeder,
		Problem:        prob,
		NumGenerations: req.Generations,
		EvalThreads:    req.Threads,
		BreedThreads:   req.Threads,
	}, nil
}

func fitnessFor(req RunRequest) (fitness.Fitness, error) {
	switch req.Problem {
	case "sphere":
		if req.Algorithm == "spea2" {
			return nil, errors.New("spea2 requires a multi-objective problem")
		}
		return &fitness.Scalar{}, nil
	case "zdt1":
		bounds, err := fitness.UniformBounds(2, 0, 10)
		if err != nil {
			return nil, err
		}
		if req.Algorithm == "spea2" {
			return fitness.NewSPEA2(bounds, false), nil
		}
		return fitness.NewMultiObjective(bounds, false), nil
	default:
		return nil, fmt.Errorf("no fitness mapping for problem %q", req.Problem)
	}
}

func breederFor(req RunRequest) (state.Breeder, error) {
	switch req.Algorithm {
	case "es", "es-plus":
		cfg := breed.Config{
			Mu:        []int{req.Mu},
			Lambda:    []int{req.Lambda},
			Pipelines: []breed.Pipeline{&breed.MutationPipeline{Source: breed.ESSelection{}}},
			Threads:   req.Threads,
		}
		if req.Algorithm == "es-plus" {
			return breed.NewMuPlusLambda(cfg)
		}
		return breed.NewMuCommaLambda(cfg)
	case "spea2":
		return breed.NewSPEA2(breed.SPEA2Config{
			Pipelines: []breed.Pipeline{&breed.MutationPipeline{Source: breed.SPEA2TournamentSelection{}}},
			Threads:   req.Threads,
		})
	default:
		return nil, fmt.Errorf("unknown algorithm: %s", req.Algorithm)
	}
}

// Runs lists stored runs, newest first.
func (c *Client) Runs(ctx context.Context, limit int) ([]storage.Run, error) {
	return c.store.ListRuns(ctx, limit)
}

// GenerationStats returns the fitness history of one run.
func (c *Client) GenerationStats(ctx context.Context, runID string) ([]storage.GenerationStat, error) {
	stats, ok, err := c.store.GetGenerationStats(ctx, runID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("no generation stats for run %s", runID)
	}
	return stats, nil
}
