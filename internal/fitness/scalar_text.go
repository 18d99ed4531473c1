package fitness

import (
	"fmt"
	"strings"

	"evoforge/internal/code"
)

func (f *Scalar) String() string {
	return code.EncodeFloat64(f.Fitness)
}

// ParseString reads back the format produced by String.
func (f *Scalar) ParseString(s string) error {
	v, err := code.NewDecoder(strings.TrimSpace(s)).Float64()
	if err != nil {
		return fmt.Errorf("scalar fitness text: %w", err)
	}
	f.Fitness = v
	return nil
}
