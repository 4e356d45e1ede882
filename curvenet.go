/*
Package curvenet implements the numeric ground for a NURBS curve-network
surface engine: points of arbitrary dimension, numeric predicates,
the tolerance context threaded through every build, and the error kinds
reported by the engine's packages.

The engine itself lives in sub-packages:

	bspline   knot vectors, curves, surfaces, knot insertion, degree elevation
	compat    making a set of curves (or surfaces) compatible
	fit       interpolation and approximation of curves and surfaces
	network   matching two transversal families of curves
	gordon    Gordon surfaces from a matched curve network
	kernel    evaluation and intersection interfaces, plus a reference kernel

# BSD License

# Copyright (c) Norbert Pillmayer

All rights reserved.

Please refer to the license file for more information.
*/
package curvenet

import (
	"math"

	"github.com/npillmayer/schuko/tracing"
)

// tracer writes to trace with key 'curvenet'
func tracer() tracing.Trace {
	return tracing.Select("curvenet")
}

// === Numeric Data Type =====================================================

// Deg2Rad is a constant for converting from DEG to RAD or vice versa
var Deg2Rad float64 = 0.01745329251

// Epsilon : numbers below ε are considered 0
var Epsilon float64 = 1e-9

// Is0 is a predicate: is n = 0 ?
func Is0(n float64) bool {
	return math.Abs(n) <= Epsilon
}

// Is1 is a predicate: is n = 1.0 ?
func Is1(n float64) bool {
	return math.Abs(1-n) <= Epsilon
}

// Zap makes n = 0 if n "means" to be zero
func Zap(n float64) float64 {
	if Is0(n) {
		n = 0
	}
	return n
}

// Round to ε.
func Round(n float64) float64 {
	return math.Round(n/Epsilon) * Epsilon
}

// Near is a predicate: do a and b differ by at most tol?
func Near(a, b, tol float64) bool {
	return math.Abs(a-b) <= tol
}

// Clamp restricts n to [lo,hi].
func Clamp(n, lo, hi float64) float64 {
	if n < lo {
		return lo
	}
	if n > hi {
		return hi
	}
	return n
}
