package bspline

import (
	"errors"
	"fmt"
	"math"

	"github.com/npillmayer/curvenet"
	"gonum.org/v1/gonum/mat"
)

// ElevateDegree returns a new curve of degree newDegree representing the
// same geometry as c. Every distinct knot gains newDegree-degree in
// multiplicity, so the continuity of c is preserved.
//
// A curve of degree p lives in the spline space of degree q > p over the
// elevated knot vector. The control points of the elevated curve are found
// by collocation at the Greville abscissae of the elevated knot vector,
// which is unisolvent by the Schoenberg-Whitney theorem. The operation is
// exact up to floating point round-off.
//
// Curves with an interior knot of multiplicity degree+1 (a break, where the
// curve may be discontinuous) cannot be elevated; ElevateDegree returns an
// error wrapping ErrInvalidMultiplicity. This includes curves produced by
// InsertKnot(c, u, c.Degree+1), and it makes compat.UnifyCurves fail for
// such curves when their degrees differ.
func ElevateDegree(c *Curve, newDegree int) (*Curve, error) {
	if newDegree < c.Degree {
		return nil, fmt.Errorf("%w: cannot elevate degree %d to %d",
			curvenet.ErrInvalidDegree, c.Degree, newDegree)
	}
	if c.Periodic {
		return nil, fmt.Errorf("%w: degree elevation requires a clamped curve", curvenet.ErrInvalidGeometry)
	}
	if newDegree == c.Degree {
		return c.Clone(), nil
	}
	knots, err := elevatedKnots(c.Knots, c.Degree, newDegree)
	if err != nil {
		return nil, err
	}
	hw := c.Homogeneous()
	hpts, err := project(newDegree, knots, [][]curvenet.Point{hw},
		func(k int, u float64) curvenet.Point { return c.pointAt(u, hw) })
	if err != nil {
		return nil, err
	}
	tracer().Debugf("elevated curve from degree %d to %d, %d → %d control points",
		c.Degree, newDegree, c.N(), len(hpts[0]))
	return fromHomogeneous(newDegree, knots, hpts[0], c.Weights != nil, false), nil
}

// MustElevateDegree is like ElevateDegree, but panics on error.
func MustElevateDegree(c *Curve, newDegree int) *Curve {
	d, err := ElevateDegree(c, newDegree)
	if err != nil {
		panic(err)
	}
	return d
}

// elevatedKnots raises every multiplicity of a clamped knot vector by
// q-p. Interior knots of multiplicity p+1 (curve breaks) are rejected.
func elevatedKnots(kv KnotVector, p, q int) (KnotVector, error) {
	knots := kv.Multiplicities(0)
	for i := range knots {
		if i > 0 && i < len(knots)-1 && knots[i].Mult > p {
			return nil, fmt.Errorf("%w: cannot elevate across break at %g",
				curvenet.ErrInvalidMultiplicity, knots[i].Value)
		}
		knots[i].Mult += q - p
	}
	return FromMultiplicities(knots), nil
}

// Clamped converts a periodic curve into an equivalent clamped curve on the
// same domain. Clamped curves are returned as a copy.
//
// Restricted to its domain, a periodic curve is a spline over the interior
// knots of its knot vector. The clamped representation is found by
// collocation, as for degree elevation.
func (c *Curve) Clamped() (*Curve, error) {
	if !c.Periodic {
		return c.Clone(), nil
	}
	p := c.Degree
	a, b := c.Domain()
	knots := make(KnotVector, 0, len(c.Knots))
	for i := 0; i <= p; i++ {
		knots = append(knots, a)
	}
	for _, k := range c.Knots[p+1 : c.N()] {
		if k > a && k < b {
			knots = append(knots, k)
		}
	}
	for i := 0; i <= p; i++ {
		knots = append(knots, b)
	}
	hw := c.Homogeneous()
	hpts, err := project(p, knots, [][]curvenet.Point{hw},
		func(k int, u float64) curvenet.Point { return c.pointAt(u, hw) })
	if err != nil {
		return nil, err
	}
	return fromHomogeneous(p, knots, hpts[0], c.Weights != nil, false), nil
}

// project computes control points over (degree, knots) such that the
// resulting splines interpolate given functions at the Greville abscissae.
// Each element of strips stands for one function to project, eval(k, u)
// yields the value of function k at u. If the functions are members of the
// target spline space, the projection is exact.
func project(degree int, knots KnotVector, strips [][]curvenet.Point,
	eval func(k int, u float64) curvenet.Point) ([][]curvenet.Point, error) {
	//
	sites := knots.Greville(degree)
	n := len(sites)
	A := mat.NewDense(n, n, nil)
	for i, u := range sites {
		span, N := knots.BasisRow(degree, u)
		for j := 0; j <= degree; j++ {
			A.Set(i, span-degree+j, N[j])
		}
	}
	dim := len(strips[0][0])
	B := mat.NewDense(n, dim*len(strips), nil)
	for k := range strips {
		for i, u := range sites {
			pt := eval(k, u)
			for d := 0; d < dim; d++ {
				B.Set(i, k*dim+d, pt[d])
			}
		}
	}
	var X mat.Dense
	if err := solve(&X, A, B); err != nil {
		return nil, err
	}
	result := make([][]curvenet.Point, len(strips))
	for k := range strips {
		result[k] = make([]curvenet.Point, n)
		for i := 0; i < n; i++ {
			pt := make(curvenet.Point, dim)
			for d := 0; d < dim; d++ {
				pt[d] = X.At(i, k*dim+d)
			}
			result[k][i] = pt
		}
	}
	return result, nil
}

// solve wraps mat.Dense.Solve. Near-singular systems are traced but
// accepted, exactly singular systems are reported as ErrSingularSystem.
func solve(X *mat.Dense, A, B mat.Matrix) error {
	err := X.Solve(A, B)
	if err == nil {
		return nil
	}
	var cond mat.Condition
	if errors.As(err, &cond) && !math.IsInf(float64(cond), 1) {
		tracer().Infof("collocation matrix is ill-conditioned: %v", err)
		return nil
	}
	return fmt.Errorf("%w: %v", curvenet.ErrSingularSystem, err)
}
