package sim

import (
	"fmt"
	"math"
)

// Epsilon is the per-coordinate tolerance of the equality policy.
//
// One rule applies everywhere "differs from my value" or set membership is
// tested: two values are equal when they have the same dimension and every
// coordinate differs by at most Epsilon. For discrete {0,1} inputs this is
// exact equality; for floating vector coordinates it absorbs rounding noise
// from interpolation. Scalar and Vector share the rule, which keeps the
// scalar path and the 1-dimensional vector path identical.
const Epsilon = 1e-12

// Value is the constraint satisfied by process values the engine can simulate.
// Implementations are treated as immutable: the engine never writes into a
// value it did not create.
type Value[V any] interface {
	// Dim returns the number of coordinates (1 for scalars).
	Dim() int
	// Coord returns coordinate i.
	Coord(i int) float64
	// FromCoords builds a new value of the same type from coordinates.
	// It is called on the zero value, so it must not depend on the receiver.
	FromCoords(c []float64) V
}

// Scalar is a single real-valued process value.
type Scalar float64

func (s Scalar) Dim() int                    { return 1 }
func (s Scalar) Coord(int) float64           { return float64(s) }
func (Scalar) FromCoords(c []float64) Scalar { return Scalar(c[0]) }
func (s Scalar) String() string              { return fmt.Sprintf("%g", float64(s)) }
func (s Scalar) Float64() float64            { return float64(s) }

// Vector is a fixed-length vector process value (multi-dimensional mode).
type Vector []float64

func (v Vector) Dim() int            { return len(v) }
func (v Vector) Coord(i int) float64 { return v[i] }

// FromCoords copies c so the returned vector never aliases caller storage.
func (Vector) FromCoords(c []float64) Vector {
	out := make(Vector, len(c))
	copy(out, c)
	return out
}

// Scalars converts plain floats to Scalar values.
func Scalars(xs ...float64) []Scalar {
	out := make([]Scalar, len(xs))
	for i, x := range xs {
		out[i] = Scalar(x)
	}
	return out
}

// Coords returns a fresh slice with the coordinates of v.
func Coords[V Value[V]](v V) []float64 {
	c := make([]float64, v.Dim())
	for i := range c {
		c[i] = v.Coord(i)
	}
	return c
}

// Equal reports whether a and b are equal under the equality policy (see Epsilon).
func Equal[V Value[V]](a, b V) bool {
	if a.Dim() != b.Dim() {
		return false
	}
	for i := 0; i < a.Dim(); i++ {
		if math.Abs(a.Coord(i)-b.Coord(i)) > Epsilon {
			return false
		}
	}
	return true
}

// AllEqual reports whether every value equals the first one.
func AllEqual[V Value[V]](values []V) bool {
	for i := 1; i < len(values); i++ {
		if !Equal(values[0], values[i]) {
			return false
		}
	}
	return true
}

// IsBinary reports whether every coordinate of every value is 0 or 1.
func IsBinary[V Value[V]](values []V) bool {
	for _, v := range values {
		for i := 0; i < v.Dim(); i++ {
			c := v.Coord(i)
			if math.Abs(c) > Epsilon && math.Abs(c-1) > Epsilon {
				return false
			}
		}
	}
	return true
}

// Broadcast builds a value of dimension dims with every coordinate set to x.
func Broadcast[V Value[V]](x float64, dims int) V {
	var zero V
	c := make([]float64, dims)
	for i := range c {
		c[i] = x
	}
	return zero.FromCoords(c)
}

// coordSum is the MIN ordering key.
func coordSum[V Value[V]](v V) float64 {
	s := 0.0
	for i := 0; i < v.Dim(); i++ {
		s += v.Coord(i)
	}
	return s
}

// lessBySumThenLex orders values by coordinate sum, breaking ties lexicographically.
// For scalars this is the natural order.
func lessBySumThenLex[V Value[V]](a, b V) bool {
	sa, sb := coordSum(a), coordSum(b)
	if sa != sb {
		return sa < sb
	}
	for i := 0; i < a.Dim() && i < b.Dim(); i++ {
		if a.Coord(i) != b.Coord(i) {
			return a.Coord(i) < b.Coord(i)
		}
	}
	return a.Dim() < b.Dim()
}
