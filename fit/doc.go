/*
Package fit fits B-spline curves and surfaces to points or curves, by
interpolation or by least-squares approximation.

Interpolation forces a curve through every point (and optionally matches
tangents), with uniform, chord-length or centripetal parametrization,
open or periodic.

Approximation minimizes

	Σ‖Pₖ − C(tₖ)‖² + α∫‖C′‖² + β∫‖C″‖² + γ∫‖C‴‖²

for the control points of C, where α, β and γ are the length, curvature
and torsion smoothing weights. Selected points may be interpolated
exactly, kinks may be introduced at selected points, and closed curves
may be forced to join with C2 continuity; these constraints are handled
by Lagrange multipliers. Starting with few knot spans and a low degree,
Approximate escalates the segment count and then the degree until the
maximum deviation is within tolerance. If the ceilings of the tolerance
context are reached first, the best result is returned together with a
ToleranceNotMetError.

Surfaces are built by lofting: rows are fitted first, then the columns
of the resulting control point ladder.

Literature:

	Les Piegl, Wayne Tiller: The NURBS Book, 2nd ed., Springer 1997
	(chapter 9: curve and surface fitting)

# BSD License

# Copyright (c) Norbert Pillmayer

All rights reserved.

Please refer to the license file for more information.
*/
package fit

import (
	"github.com/npillmayer/schuko/tracing"
)

// tracer writes to trace with key 'curvenet.fit'
func tracer() tracing.Trace {
	return tracing.Select("curvenet.fit")
}
