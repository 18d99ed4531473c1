// evoslave is the slave entry point: it loads a parameter file, connects
// to the master named there, and serves evaluation requests until the
// master sends a shutdown.
//
//	evoslave -file slave.yaml [-checkpoint state.bin] [key=value ...]
//
// Arguments that are not flags are forwarded to the parameter database as
// overrides.
package main

import (
	"errors"
	"fmt"
	"os"

	"k8s.io/klog/v2"

	"evoforge/internal/eval"
	"evoforge/internal/output"
	"evoforge/internal/params"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		klog.Flush()
		os.Exit(1)
	}
	klog.Flush()
}

func run(args []string) error {
	var file, checkpoint string
	var extra []string
	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "-file":
			if i+1 >= len(args) {
				return errors.New("-file requires a parameter file path")
			}
			i++
			file = args[i]
		case "-checkpoint":
			if i+1 >= len(args) {
				return errors.New("-checkpoint requires a checkpoint file path")
			}
			i++
			checkpoint = args[i]
		default:
			extra = append(extra, args[i])
		}
	}
	if file == "" {
		return errors.New("no parameter file was specified")
	}

	db, err := params.Load(file, extra)
	if err != nil {
		return err
	}

	verbosity := db.IntDefault("verbosity", 0)
	store := db.BoolDefault("store", false)
	flush := db.BoolDefault("flush", false)
	out, err := output.New(verbosity, store, flush)
	if err != nil {
		return err
	}

	slave, err := eval.NewSlave(db, out)
	if err != nil {
		return err
	}
	if checkpoint != "" {
		blob, err := os.ReadFile(checkpoint)
		if err != nil {
			return fmt.Errorf("reading the checkpoint file %q: %w", checkpoint, err)
		}
		if err := slave.RestoreRandomFromCheckpoint(blob); err != nil {
			return err
		}
	}
	if err := out.ExitIfErrors(); err != nil {
		return err
	}
	return slave.Run()
}
