package params

import (
	"fmt"

	"github.com/spf13/pflag"
)

type kind int

const (
	kindInt kind = iota
	kindFloat
	kindString
	kindBool
)

// Param describes a single tunable parameter. Build one with Int, Float,
// String, or Bool and refine it with the chainable constraint methods.
type Param struct {
	name string
	help string
	kind kind

	defInt    int
	defFloat  float64
	defString string
	defBool   bool

	min *float64
	max *float64
}

// Int creates an integer parameter.
func Int(name string, def int, help string) *Param {
	return &Param{name: name, help: help, kind: kindInt, defInt: def}
}

// Float creates a floating point parameter.
func Float(name string, def float64, help string) *Param {
	return &Param{name: name, help: help, kind: kindFloat, defFloat: def}
}

// String creates a string parameter.
func String(name string, def string, help string) *Param {
	return &Param{name: name, help: help, kind: kindString, defString: def}
}

// Bool creates a boolean parameter.
func Bool(name string, def bool, help string) *Param {
	return &Param{name: name, help: help, kind: kindBool, defBool: def}
}

// Min sets the minimum allowed value for a numeric parameter.
func (p *Param) Min(v float64) *Param {
	p.min = &v
	return p
}

// Max sets the maximum allowed value for a numeric parameter.
func (p *Param) Max(v float64) *Param {
	p.max = &v
	return p
}

// Name returns the parameter's flag name.
func (p *Param) Name() string {
	return p.name
}

// property returns the JSON Schema property for this parameter.
func (p *Param) property() map[string]any {
	prop := map[string]any{"description": p.help}
	switch p.kind {
	case kindInt:
		prop["type"] = "integer"
	case kindFloat:
		prop["type"] = "number"
	case kindString:
		prop["type"] = "string"
	case kindBool:
		prop["type"] = "boolean"
	}
	if p.min != nil {
		prop["minimum"] = *p.min
	}
	if p.max != nil {
		prop["maximum"] = *p.max
	}
	return prop
}

// Spec is an ordered collection of parameters. Models and datasets expose a
// Spec for their tunables; scripts merge them and drive flags, persistence,
// and validation from the result.
type Spec struct {
	params []*Param
}

// New creates a Spec from the given parameters.
func New(ps ...*Param) *Spec {
	return &Spec{params: ps}
}

// Add appends parameters to the spec. Returns the spec for chaining.
func (s *Spec) Add(ps ...*Param) *Spec {
	s.params = append(s.params, ps...)
	return s
}

// Merge appends all parameters of other. Returns the spec for chaining.
func (s *Spec) Merge(other *Spec) *Spec {
	if other != nil {
		s.params = append(s.params, other.params...)
	}
	return s
}

// Len returns the number of parameters in the spec.
func (s *Spec) Len() int {
	return len(s.params)
}

// Names returns the parameter names in declaration order.
func (s *Spec) Names() []string {
	names := make([]string, len(s.params))
	for i, p := range s.params {
		names[i] = p.name
	}
	return names
}

// RegisterFlags registers every parameter as a flag with its default value.
func (s *Spec) RegisterFlags(fs *pflag.FlagSet) {
	for _, p := range s.params {
		switch p.kind {
		case kindInt:
			fs.Int(p.name, p.defInt, p.help)
		case kindFloat:
			fs.Float64(p.name, p.defFloat, p.help)
		case kindString:
			fs.String(p.name, p.defString, p.help)
		case kindBool:
			fs.Bool(p.name, p.defBool, p.help)
		}
	}
}

// Values snapshots the effective value of every parameter from the flag set.
// Call it after flag parsing; the result is what ArgsGuard persists next to
// checkpoints.
func (s *Spec) Values(fs *pflag.FlagSet) (map[string]any, error) {
	values := make(map[string]any, len(s.params))
	for _, p := range s.params {
		var (
			v   any
			err error
		)
		switch p.kind {
		case kindInt:
			v, err = fs.GetInt(p.name)
		case kindFloat:
			v, err = fs.GetFloat64(p.name)
		case kindString:
			v, err = fs.GetString(p.name)
		case kindBool:
			v, err = fs.GetBool(p.name)
		}
		if err != nil {
			return nil, fmt.Errorf("read parameter %q: %w", p.name, err)
		}
		values[p.name] = v
	}
	return values, nil
}

// Schema compiles a JSON Schema describing the spec: an object with one
// typed property per parameter, all required, nothing extra allowed.
func (s *Spec) Schema() (*Schema, error) {
	props := make(map[string]any, len(s.params))
	for _, p := range s.params {
		props[p.name] = p.property()
	}
	raw := map[string]any{
		"type":                 "object",
		"properties":           props,
		"required":             s.Names(),
		"additionalProperties": false,
	}
	return Compile(raw)
}
