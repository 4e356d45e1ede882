/*
Package bspline deals with knot vectors, B-spline basis functions and
the abstract records for B-spline curves and surfaces.

All operations are exact re-expressions of a curve's geometry: knot
insertion (Boehm's algorithm), degree elevation, clamping of periodic
curves, reparametrization and reversal. None of them changes the point
set of a curve; they change its representation only. Operations never
modify their arguments but return new curves.

The algorithms follow the notation of

	Les Piegl, Wayne Tiller: The NURBS Book, 2nd ed., Springer 1997

(A2.1 FindSpan, A2.2 BasisFuns, A2.3 DersBasisFuns, A5.1 CurveKnotIns).
Rational curves are handled in homogeneous coordinates (x·w, w).

Periodic curves are stored in wrapped form: the knot vector is
unclamped, and the last Degree control points repeat the first ones.
Most operations of this package require clamped curves; use Clamped()
to convert a periodic curve first.

# BSD License

# Copyright (c) Norbert Pillmayer

All rights reserved.

Please refer to the license file for more information.
*/
package bspline

import (
	"github.com/npillmayer/schuko/tracing"
)

// tracer writes to trace with key 'curvenet.bspline'
func tracer() tracing.Trace {
	return tracing.Select("curvenet.bspline")
}
