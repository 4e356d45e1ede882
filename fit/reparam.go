package fit

import (
	"fmt"
	"math"
	"slices"

	"github.com/npillmayer/curvenet"
	"github.com/npillmayer/curvenet/bspline"
	"github.com/npillmayer/curvenet/kernel"
)

// DefaultKinkAngle is the tangent jump (in radians) above which Kinks
// reports a knot.
var DefaultKinkAngle = curvenet.Deg2Rad * 6

// Kinks returns the interior knots of c with multiplicity ≥ degree at which
// the tangent direction jumps by more than angle (in radians).
func Kinks(eval kernel.CurveEvaluator, c *bspline.Curve, angle float64) []float64 {
	a, b := c.Domain()
	h := 1e-8 * (b - a)
	var kinks []float64
	for _, k := range c.Knots.Multiplicities(0) {
		if k.Value <= a || k.Value >= b || k.Mult < c.Degree {
			continue
		}
		left := eval.CurveDerivatives(c, k.Value-h, 1)[1]
		right := eval.CurveDerivatives(c, k.Value+h, 1)[1]
		if curvenet.Is0(left.Norm()) || curvenet.Is0(right.Norm()) {
			continue
		}
		cos := curvenet.Clamp(left.Normalized().Dot(right.Normalized()), -1, 1)
		if math.Acos(cos) > angle {
			kinks = append(kinks, k.Value)
		}
	}
	return kinks
}

// Reparametrize changes the parametrization of c such that the returned
// curve d satisfies d(newParams[i]) = c(oldParams[i]), while following the
// geometry of c between the breaks. The parameter map is a cubic
// interpolant through the pairs; c is resampled along it and approximated
// with ncp control points, interpolating the breaks and the kinks of c.
func Reparametrize(c *bspline.Curve, oldParams, newParams []float64, ncp int, eval kernel.CurveEvaluator) (*bspline.Curve, error) {
	n := len(oldParams)
	if n < 2 || len(newParams) != n {
		return nil, fmt.Errorf("%w: %d old and %d new parameters", curvenet.ErrInvalidGeometry, n, len(newParams))
	}
	if err := checkParameters(newParams, n); err != nil {
		return nil, err
	}
	if eval == nil {
		eval = kernel.Default()
	}
	// map from the new parameter space into the old one
	values := make([]curvenet.Point, n)
	for i, t := range oldParams {
		values[i] = curvenet.P(t)
	}
	mapping, _, err := Interpolate(values, nil, InterpolationOptions{Parameters: newParams})
	if err != nil {
		return nil, err
	}
	toOld := func(s float64) float64 {
		a, b := c.Domain()
		return curvenet.Clamp(eval.CurvePoint(mapping, s)[0], a, b)
	}
	breaks := append([]float64(nil), newParams[1:n-1]...)
	var kinkParams []float64
	for _, k := range Kinks(eval, c, DefaultKinkAngle) {
		if s, ok := invertMonotone(toOld, newParams, k); ok {
			kinkParams = append(kinkParams, s)
		}
	}
	breaks = append(breaks, kinkParams...)
	slices.Sort(breaks)
	s0, s1 := newParams[0], newParams[n-1]
	samples := bspline.LinspaceWithBreaks(s0, s1, max(101, 2*ncp), breaks)
	points := make([]curvenet.Point, len(samples))
	for i, s := range samples {
		points[i] = eval.CurvePoint(c, toOld(s))
	}
	params := Params{Parameters: samples, Evaluator: eval, Optimize: 2}
	for i, s := range samples {
		switch {
		case i == 0 || i == len(samples)-1:
			params.Interpolated = append(params.Interpolated, i)
		case slices.Contains(kinkParams, s):
			params.Kinks = append(params.Kinks, i)
		case slices.Contains(newParams, s):
			params.Interpolated = append(params.Interpolated, i)
		}
	}
	degree := 3
	ncp = max(ncp, degree+1, len(params.Interpolated)+2)
	fit, err := ApproxInterp(points, degree, ncp, params)
	if err != nil {
		return nil, err
	}
	tracer().Debugf("reparametrized curve with %d control points, deviation %g", fit.Curve.N(), fit.Deviation)
	return fit.Curve, nil
}

// invertMonotone solves f(s) = target for s by bisection, assuming f is
// non-decreasing or non-increasing over the range of params.
func invertMonotone(f func(float64) float64, params []float64, target float64) (float64, bool) {
	lo, hi := params[0], params[len(params)-1]
	flo, fhi := f(lo), f(hi)
	if (target-flo)*(target-fhi) > 0 {
		return 0, false
	}
	increasing := fhi >= flo
	for it := 0; it < 100 && hi-lo > 1e-14; it++ {
		mid := (lo + hi) / 2
		if (f(mid) < target) == increasing {
			lo = mid
		} else {
			hi = mid
		}
	}
	return (lo + hi) / 2, true
}
