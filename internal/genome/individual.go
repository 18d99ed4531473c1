package genome

import (
	"fmt"
	"strings"

	"evoforge/internal/code"
	"evoforge/internal/fitness"
	"evoforge/internal/wire"
)

// Individual ties a genome to its fitness. Evaluated is true iff the
// fitness was produced against the current genome; any destructive genome
// operation must clear it.
type Individual struct {
	Genome    Genome
	Fitness   fitness.Fitness
	Evaluated bool
	Species   *Species
}

// Clone deep-copies the genome and fitness; the species handle is shared.
func (ind *Individual) Clone() *Individual {
	return &Individual{
		Genome:    ind.Genome.Clone(),
		Fitness:   ind.Fitness.Clone(),
		Evaluated: ind.Evaluated,
		Species:   ind.Species,
	}
}

// Equal compares genomes; individuals of different genome kinds are never
// equal.
func (ind *Individual) Equal(other *Individual) bool {
	return other != nil && ind.Genome.Equal(other.Genome)
}

// Write encodes the individual in binary: evaluated flag, fitness, then
// genotype.
func (ind *Individual) Write(w *wire.Writer) error {
	if err := w.WriteBool(ind.Evaluated); err != nil {
		return err
	}
	codec, ok := ind.Fitness.(fitness.Codec)
	if !ok {
		return fmt.Errorf("fitness %T has no binary codec", ind.Fitness)
	}
	if err := codec.Write(w); err != nil {
		return err
	}
	return ind.Genome.Write(w)
}

// Read decodes into the receiver, the inverse of Write.
func (ind *Individual) Read(r *wire.Reader) error {
	evaluated, err := r.ReadBool()
	if err != nil {
		return fmt.Errorf("read evaluated flag: %w", err)
	}
	codec, ok := ind.Fitness.(fitness.Codec)
	if !ok {
		return fmt.Errorf("fitness %T has no binary codec", ind.Fitness)
	}
	if err := codec.Read(r); err != nil {
		return err
	}
	if err := ind.Genome.Read(r); err != nil {
		return err
	}
	ind.Evaluated = evaluated
	return nil
}

type fitnessText interface {
	String() string
	ParseString(s string) error
}

// PrintString renders the individual for the human-inspectable population
// file: the evaluated flag and fitness on their own lines, then the
// genotype line starting with the length token.
func (ind *Individual) PrintString() (string, error) {
	ft, ok := ind.Fitness.(fitnessText)
	if !ok {
		return "", fmt.Errorf("fitness %T has no text form", ind.Fitness)
	}
	var sb strings.Builder
	sb.WriteString("Evaluated: ")
	sb.WriteString(code.EncodeBool(ind.Evaluated))
	sb.WriteString("\nFitness: ")
	sb.WriteString(ft.String())
	sb.WriteString("\n")
	sb.WriteString(ind.Genome.EncodeText())
	sb.WriteString("\n")
	return sb.String(), nil
}

// ParseIndividual reads back the format produced by PrintString.
func (sp *Species) ParseIndividual(s string) (*Individual, error) {
	lines := strings.Split(strings.TrimRight(s, "\n"), "\n")
	if len(lines) < 3 {
		return nil, fmt.Errorf("individual text needs 3 lines, found %d", len(lines))
	}
	ind := sp.NewIndividual()

	evalLine, ok := strings.CutPrefix(lines[0], "Evaluated: ")
	if !ok {
		return nil, fmt.Errorf("bad evaluated line %q", lines[0])
	}
	evaluated, err := code.NewDecoder(evalLine).Bool()
	if err != nil {
		return nil, err
	}

	fitLine, ok := strings.CutPrefix(lines[1], "Fitness: ")
	if !ok {
		return nil, fmt.Errorf("bad fitness line %q", lines[1])
	}
	ft, ok := ind.Fitness.(fitnessText)
	if !ok {
		return nil, fmt.Errorf("fitness %T has no text form", ind.Fitness)
	}
	if err := ft.ParseString(fitLine); err != nil {
		return nil, err
	}

	if err := ind.Genome.ParseText(code.NewDecoder(lines[2])); err != nil {
		return nil, err
	}
	ind.Evaluated = evaluated
	return ind, nil
}
