package compat

import (
	"fmt"
	"math"

	"github.com/npillmayer/curvenet"
	"github.com/npillmayer/curvenet/bspline"
	"github.com/npillmayer/curvenet/kernel"
)

// UnifySurfaces is the 2D extension of UnifyCurves: the same rule is
// applied along U and then along V. After unification all surfaces share
// degree and knot vector in each direction, and each output deviates from
// its input by at most tol.Tol3D.
func UnifySurfaces(surfaces []*bspline.Surface, tol curvenet.Tolerance, eval kernel.SurfaceEvaluator) ([]*bspline.Surface, error) {
	if len(surfaces) == 0 {
		return nil, fmt.Errorf("%w: no surfaces given", curvenet.ErrCompatibility)
	}
	if err := tol.Validate(); err != nil {
		return nil, err
	}
	pu, pv := 0, 0
	for i, s := range surfaces {
		if err := s.Validate(); err != nil {
			return nil, fmt.Errorf("surface %d: %w", i, err)
		}
		if s.PeriodicU {
			pu++
		}
		if s.PeriodicV {
			pv++
		}
	}
	if (pu > 0 && pu < len(surfaces)) || (pv > 0 && pv < len(surfaces)) {
		return nil, fmt.Errorf("%w: mixed periodicity of surfaces", curvenet.ErrCompatibility)
	}
	work := make([]*bspline.Surface, len(surfaces))
	for i, s := range surfaces {
		c, err := s.Clamped()
		if err != nil {
			return nil, err
		}
		work[i] = c
	}
	work, err := unifyU(work, tol)
	if err != nil {
		return nil, fmt.Errorf("direction U: %w", err)
	}
	for i, s := range work {
		work[i] = s.Transposed()
	}
	if work, err = unifyU(work, tol); err != nil {
		return nil, fmt.Errorf("direction V: %w", err)
	}
	for i, s := range work {
		work[i] = s.Transposed()
	}
	for i := range surfaces {
		dev := SurfaceDeviation(eval, surfaces[i], work[i])
		if dev > tol.Tol3D {
			tracer().Errorf("unified surface %d deviates by %g", i, dev)
			return nil, fmt.Errorf("%w: unified surface %d deviates by %g > %g",
				curvenet.ErrCompatibility, i, dev, tol.Tol3D)
		}
	}
	tracer().Debugf("unified %d surfaces to degrees (%d,%d)", len(surfaces), work[0].DegreeU, work[0].DegreeV)
	return work, nil
}

// unifyU unifies the U direction of clamped surfaces.
func unifyU(surfaces []*bspline.Surface, tol curvenet.Tolerance) ([]*bspline.Surface, error) {
	u0, u1, _, _ := surfaces[0].Domain()
	degree := 0
	for i, s := range surfaces {
		a, b, _, _ := s.Domain()
		if !curvenet.Near(a, u0, tol.TolParam) || !curvenet.Near(b, u1, tol.TolParam) {
			return nil, fmt.Errorf("%w: surface %d has domain [%g,%g], expected [%g,%g]",
				curvenet.ErrCompatibility, i, a, b, u0, u1)
		}
		degree = max(degree, s.DegreeU)
	}
	result := make([]*bspline.Surface, len(surfaces))
	vectors := make([]bspline.KnotVector, len(surfaces))
	for i, s := range surfaces {
		e, err := bspline.ElevateDegreeU(s, degree)
		if err != nil {
			return nil, fmt.Errorf("surface %d: %w", i, err)
		}
		result[i], vectors[i] = e, e.KnotsU
	}
	kv := bspline.MergeKnotVectors(degree, tol.TolParam, vectors...)
	for i, s := range result {
		r, err := bspline.RefineKnotsU(s, kv, tol.TolParam)
		if err != nil {
			return nil, fmt.Errorf("surface %d: %w", i, err)
		}
		if len(r.KnotsU) != len(kv) {
			return nil, fmt.Errorf("%w: surface %d has %d knots after refinement, expected %d",
				curvenet.ErrCompatibility, i, len(r.KnotsU), len(kv))
		}
		r.KnotsU = kv.Copy()
		result[i] = r
	}
	return result, nil
}

// SurfaceDeviation samples s and t on a grid built from the distinct knots
// of s, refined with samplesPerSpan parameters per span, and returns the
// maximum distance.
func SurfaceDeviation(eval kernel.SurfaceEvaluator, s, t *bspline.Surface) float64 {
	us := sampleParameters(s.KnotsU, s.DegreeU)
	vs := sampleParameters(s.KnotsV, s.DegreeV)
	dev := 0.0
	for _, u := range us {
		for _, v := range vs {
			dev = math.Max(dev, eval.SurfacePoint(s, u, v).Dist(eval.SurfacePoint(t, u, v)))
		}
	}
	return dev
}

// SharesBasis is a predicate: do all surfaces have identical degrees and
// knot vectors in both directions?
func SharesBasis(surfaces ...*bspline.Surface) bool {
	s0 := surfaces[0]
	for _, s := range surfaces[1:] {
		if s.DegreeU != s0.DegreeU || s.DegreeV != s0.DegreeV ||
			!s.KnotsU.Equal(s0.KnotsU, 0) || !s.KnotsV.Equal(s0.KnotsV, 0) {
			return false
		}
	}
	return true
}
