package model

import (
	"math"
	"math/cmplx"
)

// Sign is the numeric type carried as the running reweighting factor of a
// Markov chain: a real ±1 or a unit-modulus complex phase.
type Sign interface {
	float64 | complex128
}

// Abs returns the modulus of s.
func Abs[S Sign](s S) float64 {
	switch v := any(s).(type) {
	case float64:
		return math.Abs(v)
	case complex128:
		return cmplx.Abs(v)
	}
	return 0
}

// IsNaN reports whether any component of s is NaN.
func IsNaN[S Sign](s S) bool {
	c := ToComplex(s)
	return math.IsNaN(real(c)) || math.IsNaN(imag(c))
}

// ToComplex widens s to complex128. Real signs get a zero imaginary part.
func ToComplex[S Sign](s S) complex128 {
	switch v := any(s).(type) {
	case float64:
		return complex(v, 0)
	case complex128:
		return v
	}
	return 0
}

// FromComplex narrows c to S. The imaginary part is dropped for real signs.
func FromComplex[S Sign](c complex128) S {
	var out S
	switch p := any(&out).(type) {
	case *float64:
		*p = real(c)
	case *complex128:
		*p = c
	}
	return out
}

// Unit returns s/|s|, or one when |s| is below eps.
func Unit[S Sign](s S, eps float64) S {
	a := Abs(s)
	if a < eps {
		return FromComplex[S](1)
	}
	return FromComplex[S](ToComplex(s) / complex(a, 0))
}
