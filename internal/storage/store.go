// Package storage persists run metadata, per-generation statistics and
// checkpoint blobs behind a Store interface with memory and sqlite
// backends.
package storage

import (
	"context"
)

// Run is the durable record of one optimization run.
type Run struct {
	VersionedRecord
	ID           string  `json:"id"`
	CreatedAtUTC string  `json:"created_at_utc"`
	Algorithm    string  `json:"algorithm"`
	Problem      string  `json:"problem"`
	Seed         int64   `json:"seed"`
	Population   int     `json:"population"`
	Generations  int     `json:"generations"`
	Evaluations  int64   `json:"evaluations"`
	BestFitness  float64 `json:"best_fitness"`
}

// GenerationStat is one row of the per-generation fitness history.
type GenerationStat struct {
	RunID      string  `json:"run_id" csv:"-"`
	Generation int     `json:"generation" csv:"generation"`
	Best       float64 `json:"best" csv:"best_fitness"`
	Mean       float64 `json:"mean" csv:"mean_fitness"`
	Std        float64 `json:"std" csv:"std_fitness"`
}

// Checkpoint is an opaque state blob; the engine defines its layout.
type Checkpoint struct {
	RunID      string `json:"run_id"`
	Generation int    `json:"generation"`
	Payload    []byte `json:"payload"`
}

type Store interface {
	Init(ctx context.Context) error
	SaveRun(ctx context.Context, run Run) error
	GetRun(ctx context.Context, id string) (Run, bool, error)
	ListRuns(ctx context.Context, limit int) ([]Run, error)
	SaveGenerationStats(ctx context.Context, runID string, stats []GenerationStat) error
	GetGenerationStats(ctx context.Context, runID string) ([]GenerationStat, bool, error)
	SaveCheckpoint(ctx context.Context, cp Checkpoint) error
	LatestCheckpoint(ctx context.Context, runID string) (Checkpoint, bool, error)
}
