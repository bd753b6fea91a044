// Package initial builds initial process configurations from declarative specs.
package initial

import (
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/inference-sim/agreement-sim/sim"
)

// Type selects how initial values are produced.
type Type string

const (
	// TypeExplicit lists every process value.
	TypeExplicit Type = "explicit"
	// TypeBinary starts Zeros processes at 0 and the rest at 1.
	TypeBinary Type = "binary"
	// TypeUniform draws every coordinate uniformly from [Low, High).
	TypeUniform Type = "uniform"
)

// specValidate is the validator instance for initial-configuration specs.
var specValidate = validator.New()

// Spec declares an initial configuration.
// Loaded from the `initial` block of a run or search config file.
type Spec struct {
	Type    Type        `yaml:"type" json:"type" validate:"omitempty,oneof=explicit binary uniform"`
	Values  []float64   `yaml:"values,omitempty" json:"values,omitempty"`
	Vectors [][]float64 `yaml:"vectors,omitempty" json:"vectors,omitempty" validate:"omitempty,dive,min=1"`
	N       int         `yaml:"n,omitempty" json:"n,omitempty" validate:"omitempty,min=2"`
	// Zeros defaults to N-1 (a single process holds 1).
	Zeros *int    `yaml:"zeros,omitempty" json:"zeros,omitempty" validate:"omitempty,gte=0"`
	Dims  int     `yaml:"dims,omitempty" json:"dims,omitempty" validate:"gte=0"`
	Low   float64 `yaml:"low,omitempty" json:"low,omitempty"`
	High  float64 `yaml:"high,omitempty" json:"high,omitempty"`
}

// Explicit returns a spec listing scalar values.
func Explicit(values ...float64) Spec {
	return Spec{Type: TypeExplicit, Values: values}
}

// Binary returns an n-process binary spec with the given number of zeros.
func Binary(n, zeros int) Spec {
	return Spec{Type: TypeBinary, N: n, Zeros: &zeros}
}

// resolvedType infers explicit when Type is empty.
func (s Spec) resolvedType() Type {
	if s.Type == "" {
		return TypeExplicit
	}
	return s.Type
}

// Validate checks the spec with struct tags, then cross-field rules.
func (s Spec) Validate() error {
	if err := specValidate.Struct(s); err != nil {
		return &sim.ConfigError{Field: "initial", Reason: err.Error()}
	}
	switch s.resolvedType() {
	case TypeExplicit:
		if len(s.Values) > 0 && len(s.Vectors) > 0 {
			return &sim.ConfigError{Field: "initial", Reason: "set values or vectors, not both"}
		}
		count := max(len(s.Values), len(s.Vectors))
		if count < 2 {
			return &sim.ConfigError{Field: "initial.values", Reason: fmt.Sprintf("need at least 2 processes, got %d", count)}
		}
		for i, v := range s.Vectors {
			if len(v) != len(s.Vectors[0]) {
				return &sim.ConfigError{Field: fmt.Sprintf("initial.vectors[%d]", i), Reason: fmt.Sprintf("has %d coordinates, expected %d", len(v), len(s.Vectors[0]))}
			}
		}
	case TypeBinary:
		if s.N < 2 {
			return &sim.ConfigError{Field: "initial.n", Reason: fmt.Sprintf("need at least 2 processes, got %d", s.N)}
		}
		if s.Zeros != nil && *s.Zeros > s.N {
			return &sim.ConfigError{Field: "initial.zeros", Reason: fmt.Sprintf("must be at most n=%d, got %d", s.N, *s.Zeros)}
		}
	case TypeUniform:
		if s.N < 2 {
			return &sim.ConfigError{Field: "initial.n", Reason: fmt.Sprintf("need at least 2 processes, got %d", s.N)}
		}
		if s.High < s.Low {
			return &sim.ConfigError{Field: "initial.high", Reason: fmt.Sprintf("must be >= low (%v), got %v", s.Low, s.High)}
		}
	}
	return nil
}

// IsVector reports whether the spec describes multi-dimensional values.
func (s Spec) IsVector() bool {
	return len(s.Vectors) > 0 || s.Dims > 1
}

// dims is the value dimension, at least 1.
func (s Spec) dims() int {
	if len(s.Vectors) > 0 {
		return len(s.Vectors[0])
	}
	return max(s.Dims, 1)
}

// BuildVectors builds the configuration as vectors. Scalar specs yield 1-D vectors.
// src is consulted only for uniform specs.
func (s Spec) BuildVectors(src sim.Source) ([]sim.Vector, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	d := s.dims()
	switch s.resolvedType() {
	case TypeBinary:
		zeros := s.N - 1
		if s.Zeros != nil {
			zeros = *s.Zeros
		}
		out := make([]sim.Vector, s.N)
		for i := range out {
			bit := 1.0
			if i < zeros {
				bit = 0
			}
			out[i] = sim.Broadcast[sim.Vector](bit, d)
		}
		return out, nil
	case TypeUniform:
		out := make([]sim.Vector, s.N)
		for i := range out {
			c := make([]float64, d)
			for j := range c {
				c[j] = s.Low + (s.High-s.Low)*src.Float64()
			}
			out[i] = sim.Vector(c)
		}
		return out, nil
	default:
		if len(s.Vectors) > 0 {
			out := make([]sim.Vector, len(s.Vectors))
			for i, v := range s.Vectors {
				out[i] = sim.Vector{}.FromCoords(v)
			}
			return out, nil
		}
		out := make([]sim.Vector, len(s.Values))
		for i, v := range s.Values {
			out[i] = sim.Broadcast[sim.Vector](v, d)
		}
		return out, nil
	}
}

// Scalars builds the configuration as scalars. Multi-dimensional specs are rejected.
func (s Spec) Scalars(src sim.Source) ([]sim.Scalar, error) {
	if s.IsVector() {
		return nil, &sim.ConfigError{Field: "initial", Reason: fmt.Sprintf("describes %d-dimensional values, not scalars", s.dims())}
	}
	vs, err := s.BuildVectors(src)
	if err != nil {
		return nil, err
	}
	out := make([]sim.Scalar, len(vs))
	for i, v := range vs {
		out[i] = sim.Scalar(v[0])
	}
	return out, nil
}

// Floats returns the scalar configuration as plain floats.
func (s Spec) Floats(src sim.Source) ([]float64, error) {
	scalars, err := s.Scalars(src)
	if err != nil {
		return nil, err
	}
	out := make([]float64, len(scalars))
	for i, v := range scalars {
		out[i] = float64(v)
	}
	return out, nil
}
