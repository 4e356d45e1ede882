/*
Package kernel defines the services the curve-network engine consumes from
a geometry kernel: evaluation of curves and surfaces, curve-curve
intersection and construction of kernel-native geometry from the
engine's abstract records.

The engine packages depend on the interfaces only. Reference is a small
self-contained kernel implementing all of them, sufficient for testing
and for the command line tool. Hosts embedding the engine will usually
plug in their own kernel.

# BSD License

# Copyright (c) Norbert Pillmayer

All rights reserved.

Please refer to the license file for more information.
*/
package kernel

import (
	"github.com/npillmayer/curvenet"
	"github.com/npillmayer/curvenet/bspline"
	"github.com/npillmayer/schuko/tracing"
)

// tracer writes to trace with key 'curvenet.kernel'
func tracer() tracing.Trace {
	return tracing.Select("curvenet.kernel")
}

// CurveEvaluator evaluates curves at a parameter.
type CurveEvaluator interface {
	// CurvePoint returns the point of c at u.
	CurvePoint(c *bspline.Curve, u float64) curvenet.Point
	// CurveDerivatives returns C(u), C'(u), …, C⁽ⁿ⁾(u).
	CurveDerivatives(c *bspline.Curve, u float64, n int) []curvenet.Point
}

// SurfaceEvaluator evaluates surfaces at a parameter pair.
type SurfaceEvaluator interface {
	// SurfacePoint returns the point of s at (u,v).
	SurfacePoint(s *bspline.Surface, u, v float64) curvenet.Point
	// SurfaceDerivatives returns the partial derivatives SKL[k][l] =
	// ∂ᵏ⁺ˡS/∂uᵏ∂vˡ for k+l ≤ n.
	SurfaceDerivatives(s *bspline.Surface, u, v float64, n int) [][]curvenet.Point
}

// Intersection is a point where two curves meet.
type Intersection struct {
	U, V     float64        // parameters on the first and on the second curve
	Point    curvenet.Point // midpoint of the two curve points
	Distance float64        // distance between the two curve points
}

// Intersector intersects curves.
type Intersector interface {
	// Intersect returns all intersections of a and b with a distance of at
	// most tol, ordered by parameter on a.
	Intersect(a, b *bspline.Curve, tol float64) ([]Intersection, error)
}

// Constructor materializes abstract records into kernel-native geometry.
type Constructor interface {
	MakeCurve(c *bspline.Curve) (any, error)
	MakeSurface(s *bspline.Surface) (any, error)
}

// Kernel bundles all services of a geometry kernel.
type Kernel interface {
	CurveEvaluator
	SurfaceEvaluator
	Intersector
	Constructor
}

// Default returns the reference kernel.
func Default() Kernel {
	return Reference{}
}
