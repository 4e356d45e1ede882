/*
Package compat makes sets of B-spline curves or surfaces compatible: after
unification all members share one degree and one knot vector (per
parametric direction for surfaces), which enables direct control point
algebra between them.

Unification re-expresses every input exactly, by degree elevation and
knot insertion. The outputs are nevertheless verified against the inputs
at a dense set of parameters, as nearly coincident knots of different
inputs are identified within the parametric tolerance.

# BSD License

# Copyright (c) Norbert Pillmayer

All rights reserved.

Please refer to the license file for more information.
*/
package compat

import (
	"fmt"
	"math"

	"github.com/npillmayer/curvenet"
	"github.com/npillmayer/curvenet/bspline"
	"github.com/npillmayer/curvenet/kernel"
	"github.com/npillmayer/schuko/tracing"
)

// tracer writes to trace with key 'curvenet.compat'
func tracer() tracing.Trace {
	return tracing.Select("curvenet.compat")
}

// samplesPerSpan is the density of the verification sampling.
const samplesPerSpan = 8

// UnifyCurves re-expresses a non-empty set of curves on one shared degree
// (the maximum of the input degrees) and one shared knot vector. Each
// output curve deviates from its input by at most tol.Tol3D.
//
// Mixed periodicity is rejected with ErrCompatibility. Sets of periodic
// curves are unified in clamped form. All curves must have the same
// parameter domain.
func UnifyCurves(curves []*bspline.Curve, tol curvenet.Tolerance, eval kernel.CurveEvaluator) ([]*bspline.Curve, error) {
	if len(curves) == 0 {
		return nil, fmt.Errorf("%w: no curves given", curvenet.ErrCompatibility)
	}
	if err := tol.Validate(); err != nil {
		return nil, err
	}
	periodic := 0
	for i, c := range curves {
		if err := c.Validate(); err != nil {
			return nil, fmt.Errorf("curve %d: %w", i, err)
		}
		if c.Periodic {
			periodic++
		}
		if c.Dim() != curves[0].Dim() {
			return nil, fmt.Errorf("%w: curve %d has dimension %d, expected %d",
				curvenet.ErrCompatibility, i, c.Dim(), curves[0].Dim())
		}
	}
	if periodic > 0 && periodic < len(curves) {
		return nil, fmt.Errorf("%w: mixed periodicity (%d of %d curves periodic)",
			curvenet.ErrCompatibility, periodic, len(curves))
	}
	a, b := curves[0].Domain()
	degree := 0
	for i, c := range curves {
		ca, cb := c.Domain()
		if !curvenet.Near(a, ca, tol.TolParam) || !curvenet.Near(b, cb, tol.TolParam) {
			return nil, fmt.Errorf("%w: curve %d has domain [%g,%g], expected [%g,%g]",
				curvenet.ErrCompatibility, i, ca, cb, a, b)
		}
		degree = max(degree, c.Degree)
	}
	work := make([]*bspline.Curve, len(curves))
	vectors := make([]bspline.KnotVector, len(curves))
	for i, c := range curves {
		w, err := c.Clamped()
		if err != nil {
			return nil, err
		}
		if w, err = bspline.ElevateDegree(w, degree); err != nil {
			return nil, fmt.Errorf("curve %d: %w", i, err)
		}
		work[i], vectors[i] = w, w.Knots
	}
	kv := bspline.MergeKnotVectors(degree, tol.TolParam, vectors...)
	for i, w := range work {
		r, err := bspline.RefineKnots(w, kv, tol.TolParam)
		if err != nil {
			return nil, fmt.Errorf("curve %d: %w", i, err)
		}
		if len(r.Knots) != len(kv) {
			return nil, fmt.Errorf("%w: curve %d has %d knots after refinement, expected %d",
				curvenet.ErrCompatibility, i, len(r.Knots), len(kv))
		}
		r.Knots = kv.Copy()
		work[i] = r
	}
	for i := range curves {
		dev := CurveDeviation(eval, curves[i], work[i], kv, degree)
		if dev > tol.Tol3D {
			tracer().Errorf("unified curve %d deviates by %g", i, dev)
			return nil, fmt.Errorf("%w: unified curve %d deviates by %g > %g",
				curvenet.ErrCompatibility, i, dev, tol.Tol3D)
		}
	}
	tracer().Debugf("unified %d curves to degree %d with %d knots", len(curves), degree, len(kv))
	return work, nil
}

// MustUnifyCurves is like UnifyCurves, but panics on error.
func MustUnifyCurves(curves []*bspline.Curve, tol curvenet.Tolerance, eval kernel.CurveEvaluator) []*bspline.Curve {
	unified, err := UnifyCurves(curves, tol, eval)
	if err != nil {
		panic(err)
	}
	return unified
}

// CurveDeviation samples c and d at the distinct knots of kv and at
// samplesPerSpan parameters inside every span, returning the maximum
// distance.
func CurveDeviation(eval kernel.CurveEvaluator, c, d *bspline.Curve, kv bspline.KnotVector, degree int) float64 {
	dev := 0.0
	for _, u := range sampleParameters(kv, degree) {
		dev = math.Max(dev, eval.CurvePoint(c, u).Dist(eval.CurvePoint(d, u)))
	}
	return dev
}

func sampleParameters(kv bspline.KnotVector, degree int) []float64 {
	a, b := kv.Domain(degree)
	knots := kv.Multiplicities(0)
	params := make([]float64, 0, len(knots)*samplesPerSpan+1)
	for i := 0; i+1 < len(knots); i++ {
		k0, k1 := knots[i].Value, knots[i+1].Value
		if k1 <= a || k0 >= b {
			continue
		}
		for s := 0; s < samplesPerSpan; s++ {
			params = append(params, k0+(k1-k0)*float64(s)/samplesPerSpan)
		}
	}
	return append(params, b)
}

// Compatible is a predicate: do all curves share degree and knot vector
// (knots equal within tol)?
func Compatible(tol float64, curves ...*bspline.Curve) bool {
	for _, c := range curves[1:] {
		if c.Degree != curves[0].Degree || !c.Knots.Equal(curves[0].Knots, tol) {
			return false
		}
	}
	return true
}
