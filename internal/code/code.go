// Package code implements the self-delimiting textual encoding used by the
// human-readable population files. Each token is a single type prefix
// followed by the canonical value and a '|' terminator:
//
//	i10|  l-3|  f0.25|  d1.5|  btrue|
//
// Floats are formatted with strconv's shortest round-tripping form, so
// decoding a token always reproduces the encoded value exactly.
package code

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

func EncodeInt(v int32) string {
	return "i" + strconv.FormatInt(int64(v), 10) + "|"
}

func EncodeLong(v int64) string {
	return "l" + strconv.FormatInt(v, 10) + "|"
}

func EncodeFloat32(v float32) string {
	return "f" + strconv.FormatFloat(float64(v), 'g', -1, 32) + "|"
}

func EncodeFloat64(v float64) string {
	return "d" + strconv.FormatFloat(v, 'g', -1, 64) + "|"
}

func EncodeBool(v bool) string {
	return "b" + strconv.FormatBool(v) + "|"
}

// Decoder consumes tokens from an encoded string. Spaces and tabs between
// tokens are skipped; other characters, newlines included, are not.
type Decoder struct {
	s   string
	pos int
}

func NewDecoder(s string) *Decoder {
	return &Decoder{s: s}
}

func (d *Decoder) token(prefix byte) (string, error) {
	for d.pos < len(d.s) && (d.s[d.pos] == ' ' || d.s[d.pos] == '\t') {
		d.pos++
	}
	if d.pos >= len(d.s) {
		return "", errors.New("code: unexpected end of input")
	}
	if d.s[d.pos] != prefix {
		return "", fmt.Errorf("code: expected %q token, found %q", prefix, d.s[d.pos])
	}
	d.pos++
	end := strings.IndexByte(d.s[d.pos:], '|')
	if end < 0 {
		return "", errors.New("code: unterminated token")
	}
	tok := d.s[d.pos : d.pos+end]
	d.pos += end + 1
	return tok, nil
}

func (d *Decoder) Int() (int32, error) {
	tok, err := d.token('i')
	if err != nil {
		return 0, err
	}
	v, err := strconv.ParseInt(tok, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("code: bad int token %q: %w", tok, err)
	}
	return int32(v), nil
}

func (d *Decoder) Long() (int64, error) {
	tok, err := d.token('l')
	if err != nil {
		return 0, err
	}
	v, err := strconv.ParseInt(tok, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("code: bad long token %q: %w", tok, err)
	}
	return v, nil
}

func (d *Decoder) Float32() (float32, error) {
	tok, err := d.token('f')
	if err != nil {
		return 0, err
	}
	v, err := strconv.ParseFloat(tok, 32)
	if err != nil {
		return 0, fmt.Errorf("code: bad float token %q: %w", tok, err)
	}
	return float32(v), nil
}

func (d *Decoder) Float64() (float64, error) {
	tok, err := d.token('d')
	if err != nil {
		return 0, err
	}
	v, err := strconv.ParseFloat(tok, 64)
	if err != nil {
		return 0, fmt.Errorf("code: bad double token %q: %w", tok, err)
	}
	return v, nil
}

func (d *Decoder) Bool() (bool, error) {
	tok, err := d.token('b')
	if err != nil {
		return false, err
	}
	v, err := strconv.ParseBool(tok)
	if err != nil {
		return false, fmt.Errorf("code: bad bool token %q: %w", tok, err)
	}
	return v, nil
}
