// Package params implements the parameter database: a YAML file of nested
// keys addressed by dotted paths (es.mu.0, eval.master.host), with
// command-line key=value overrides layered on top.
package params

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Database resolves dotted parameter paths. Overrides always win over the
// file; list elements are addressed by integer path segments.
type Database struct {
	root      map[string]any
	overrides map[string]string
}

// Load reads a YAML parameter file and applies extra arguments of the form
// key=value as overrides. Arguments without '=' are rejected; the caller
// forwards only what its own flag parsing did not consume.
func Load(path string, extra []string) (*Database, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading the parameter file %q: %w", path, err)
	}
	db, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parameter file %q: %w", path, err)
	}
	for _, arg := range extra {
		key, value, ok := strings.Cut(arg, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("bad parameter override %q, want key=value", arg)
		}
		db.overrides[key] = value
	}
	return db, nil
}

// Parse builds a database from raw YAML.
func Parse(data []byte) (*Database, error) {
	root := map[string]any{}
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, err
	}
	return &Database{root: root, overrides: map[string]string{}}, nil
}

// Set installs an override programmatically.
func (db *Database) Set(path, value string) {
	db.overrides[path] = value
}

// lookup returns the raw value at path and whether it exists.
func (db *Database) lookup(path string) (any, bool) {
	if v, ok := db.overrides[path]; ok {
		return v, true
	}
	var cur any = db.root
	for _, seg := range strings.Split(path, ".") {
		switch node := cur.(type) {
		case map[string]any:
			v, ok := node[seg]
			if !ok {
				return nil, false
			}
			cur = v
		case []any:
			idx, err := strconv.Atoi(seg)
			if err != nil || idx < 0 || idx >= len(node) {
				return nil, false
			}
			cur = node[idx]
		default:
			return nil, false
		}
	}
	return cur, true
}

// Exists reports whether path resolves to a value.
func (db *Database) Exists(path string) bool {
	_, ok := db.lookup(path)
	return ok
}

// String returns the value at path as a string.
func (db *Database) String(path string) (string, bool) {
	v, ok := db.lookup(path)
	if !ok {
		return "", false
	}
	switch s := v.(type) {
	case string:
		return s, true
	default:
		return fmt.Sprintf("%v", v), true
	}
}

// StringDefault returns the value at path, or def when absent.
func (db *Database) StringDefault(path, def string) string {
	if v, ok := db.String(path); ok {
		return v
	}
	return def
}

// Int returns the value at path as an int.
func (db *Database) Int(path string) (int, error) {
	v, ok := db.lookup(path)
	if !ok {
		return 0, fmt.Errorf("parameter %s is missing", path)
	}
	switch n := v.(type) {
	case int:
		return n, nil
	case int64:
		return int(n), nil
	case float64:
		if n == float64(int(n)) {
			return int(n), nil
		}
	case string:
		if i, err := strconv.Atoi(strings.TrimSpace(n)); err == nil {
			return i, nil
		}
	}
	return 0, fmt.Errorf("parameter %s: %v is not an integer", path, v)
}

// IntDefault returns the int at path, or def when absent or unparsable.
func (db *Database) IntDefault(path string, def int) int {
	if v, err := db.Int(path); err == nil {
		return v
	}
	return def
}

// Int64 returns the value at path as an int64.
func (db *Database) Int64(path string) (int64, error) {
	v, ok := db.lookup(path)
	if !ok {
		return 0, fmt.Errorf("parameter %s is missing", path)
	}
	switch n := v.(type) {
	case int:
		return int64(n), nil
	case int64:
		return n, nil
	case string:
		if i, err := strconv.ParseInt(strings.TrimSpace(n), 10, 64); err == nil {
			return i, nil
		}
	}
	return 0, fmt.Errorf("parameter %s: %v is not an integer", path, v)
}

// Float returns the value at path as a float64.
func (db *Database) Float(path string) (float64, error) {
	v, ok := db.lookup(path)
	if !ok {
		return 0, fmt.Errorf("parameter %s is missing", path)
	}
	switch n := v.(type) {
	case float64:
		return n, nil
	case int:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case string:
		if f, err := strconv.ParseFloat(strings.TrimSpace(n), 64); err == nil {
			return f, nil
		}
	}
	return 0, fmt.Errorf("parameter %s: %v is not a number", path, v)
}

// FloatDefault returns the float at path, or def when absent or unparsable.
func (db *Database) FloatDefault(path string, def float64) float64 {
	if v, err := db.Float(path); err == nil {
		return v
	}
	return def
}

// Bool returns the value at path as a bool. Strings accept the
// strconv.ParseBool forms plus "yes" and "no" in any case.
func (db *Database) Bool(path string) (bool, error) {
	v, ok := db.lookup(path)
	if !ok {
		return false, fmt.Errorf("parameter %s is missing", path)
	}
	switch b := v.(type) {
	case bool:
		return b, nil
	case string:
		s := strings.TrimSpace(b)
		if p, err := strconv.ParseBool(s); err == nil {
			return p, nil
		}
		switch strings.ToLower(s) {
		case "yes":
			return true, nil
		case "no":
			return false, nil
		}
	}
	return false, fmt.Errorf("parameter %s: %v is not a boolean", path, v)
}

// BoolDefault returns the bool at path, or def when absent or unparsable.
func (db *Database) BoolDefault(path string, def bool) bool {
	if v, err := db.Bool(path); err == nil {
		return v
	}
	return def
}
