package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"github.com/gocarina/gocsv"

	"evoforge/internal/storage"
	forge "evoforge/pkg/evoforge"
)

func main() {
	if err := run(context.Background(), os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return usageError("missing command")
	}

	switch args[0] {
	case "run":
		return runRun(ctx, args[1:])
	case "runs":
		return runRuns(ctx, args[1:])
	case "export":
		return runExport(ctx, args[1:])
	default:
		return usageError(fmt.Sprintf("unknown command: %s", args[0]))
	}
}

type usageError string

func (e usageError) Error() string {
	return string(e) + "\nusage: evoforgectl <run|runs|export> [flags]"
}

func storeFlags(fs *flag.FlagSet) (storeKind, dbPath *string) {
	storeKind = fs.String("store", storage.DefaultStoreKind(), "store backend: memory|sqlite")
	dbPath = fs.String("db-path", "evoforge.db", "sqlite database path")
	return storeKind, dbPath
}

func runRun(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("run", flag.ContinueOnError)
	storeKind, dbPath := storeFlags(fs)
	problemName := fs.String("problem", "sphere", "problem: sphere|zdt1")
	algorithm := fs.String("algorithm", "es", "algorithm: es|es-plus|spea2")
	mu := fs.Int("mu", 2, "parents per generation")
	lambda := fs.Int("lambda", 10, "children per generation (a multiple of mu)")
	popSize := fs.Int("population", 0, "initial population size (default lambda)")
	archive := fs.Int("archive", 0, "spea2 archive size (default population/2)")
	genomeSize := fs.Int("genome-size", 10, "genome length")
	generations := fs.Int("generations", 20, "generation budget")
	seed := fs.Int64("seed", 0, "random seed (0 draws from the clock)")
	threads := fs.Int("threads", 1, "evaluation and breeding threads")
	if err := fs.Parse(args); err != nil {
		return err
	}

	client, err := forge.New(ctx, forge.Options{StoreKind: *storeKind, DBPath: *dbPath})
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	summary, err := client.Run(ctx, forge.RunRequest{
		Problem:        *problemName,
		Algorithm:      *algorithm,
		Mu:             *mu,
		Lambda:         *lambda,
		PopulationSize: *popSize,
		ArchiveSize:    *archive,
		GenomeSize:     *genomeSize,
		Generations:    *generations,
		Seed:           *seed,
		Threads:        *threads,
	})
	if err != nil {
		return err
	}

	fmt.Printf("run %s finished: best fitness %g after %s evaluations\n",
		summary.RunID, summary.FinalBestFitness, humanize.Comma(summary.Evaluations))
	return nil
}

func runRuns(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("runs", flag.ContinueOnError)
	storeKind, dbPath := storeFlags(fs)
	limit := fs.Int("limit", 20, "maximum runs to list")
	if err := fs.Parse(args); err != nil {
		return err
	}

	client, err := forge.New(ctx, forge.Options{StoreKind: *storeKind, DBPath: *dbPath})
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	runs, err := client.Runs(ctx, *limit)
	if err != nil {
		return err
	}
	for _, r := range runs {
		fmt.Printf("%s  %s  %s/%s  seed=%d  pop=%d  gens=%d  evals=%s  best=%g\n",
			r.ID, r.CreatedAtUTC, r.Algorithm, r.Problem, r.Seed,
			r.Population, r.Generations, humanize.Comma(r.Evaluations), r.BestFitness)
	}
	return nil
}

func runExport(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("export", flag.ContinueOnError)
	storeKind, dbPath := storeFlags(fs)
	runID := fs.String("run", "", "run id to export")
	outDir := fs.String("out", "exports", "output directory")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *runID == "" {
		return usageError("export requires -run")
	}

	client, err := forge.New(ctx, forge.Options{StoreKind: *storeKind, DBPath: *dbPath})
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	stats, err := client.GenerationStats(ctx, *runID)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(*outDir, 0o755); err != nil {
		return err
	}
	path := filepath.Join(*outDir, *runID+"-fitness.csv")
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		_ = f.Close()
	}()

	if err := gocsv.MarshalFile(&stats, f); err != nil {
		return err
	}
	fmt.Printf("exported %d generations to %s\n", len(stats), path)
	return nil
}
