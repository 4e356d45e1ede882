package bspline

import (
	"fmt"

	"github.com/npillmayer/curvenet"
)

// InsertKnot returns a new curve with knot value u present with multiplicity
// target. The geometry of the curve is unchanged. If u already has
// multiplicity ≥ target, a copy of c is returned.
//
// Inserting up to degree+1 is allowed; an interior knot of multiplicity
// degree+1 splits the curve into two pieces meeting at a shared point.
// Targets above degree+1 are rejected with ErrInvalidMultiplicity.
func InsertKnot(c *Curve, u float64, target int) (*Curve, error) {
	if target < 0 || target > c.Degree+1 {
		return nil, fmt.Errorf("%w: target multiplicity %d for degree %d",
			curvenet.ErrInvalidMultiplicity, target, c.Degree)
	}
	if c.Periodic {
		return nil, fmt.Errorf("%w: knot insertion requires a clamped curve", curvenet.ErrInvalidGeometry)
	}
	a, b := c.Domain()
	if u < a-curvenet.Epsilon || u > b+curvenet.Epsilon {
		return nil, fmt.Errorf("%w: knot %g outside [%g,%g]", curvenet.ErrParameterOutOfRange, u, a, b)
	}
	u = snapKnot(c.Knots, u, curvenet.Epsilon)
	knots, hpts := c.Knots, c.Homogeneous()
	knots, hpts = insertToMultiplicity(c.Degree, knots, hpts, u, target)
	return fromHomogeneous(c.Degree, knots, hpts, c.Weights != nil, false), nil
}

// MustInsertKnot is like InsertKnot, but panics on error.
func MustInsertKnot(c *Curve, u float64, target int) *Curve {
	d, err := InsertKnot(c, u, target)
	if err != nil {
		panic(err)
	}
	return d
}

// RefineKnots inserts knots into c until every knot of kv is present in c
// with at least its multiplicity in kv. Knots of c within tol of a knot of
// kv are identified with it. kv must span the same domain as c.
func RefineKnots(c *Curve, kv KnotVector, tol float64) (*Curve, error) {
	if c.Periodic {
		return nil, fmt.Errorf("%w: knot refinement requires a clamped curve", curvenet.ErrInvalidGeometry)
	}
	a, b := c.Domain()
	ka, kb := kv.Domain(c.Degree)
	if !curvenet.Near(a, ka, tol) || !curvenet.Near(b, kb, tol) {
		return nil, fmt.Errorf("%w: domain [%g,%g] differs from knot vector domain [%g,%g]",
			curvenet.ErrParameterOutOfRange, a, b, ka, kb)
	}
	knots, hpts := c.Knots, c.Homogeneous()
	for _, k := range kv.Multiplicities(tol) {
		if k.Mult > c.Degree+1 {
			return nil, fmt.Errorf("%w: knot %g with multiplicity %d",
				curvenet.ErrInvalidMultiplicity, k.Value, k.Mult)
		}
		u := snapKnot(knots, k.Value, tol)
		if u <= a || u >= b {
			continue // end knots are clamped already
		}
		knots, hpts = insertToMultiplicity(c.Degree, knots, hpts, u, k.Mult)
	}
	return fromHomogeneous(c.Degree, knots, hpts, c.Weights != nil, false), nil
}

// snapKnot returns the existing knot within tol of u, or u itself.
func snapKnot(kv KnotVector, u, tol float64) float64 {
	for _, k := range kv {
		if curvenet.Near(k, u, tol) {
			return k
		}
	}
	return u
}

// insertToMultiplicity raises the multiplicity of knot u to target in a
// clamped knot vector. Targets up to degree are handled by Boehm's
// algorithm, target degree+1 duplicates the control point the curve
// interpolates at u.
func insertToMultiplicity(p int, U KnotVector, Pw []curvenet.Point, u float64, target int) (KnotVector, []curvenet.Point) {
	s := U.Multiplicity(u, 0)
	if s >= target {
		return U.Copy(), copyPoints(Pw)
	}
	if target <= p {
		k := U.FindSpan(p, u)
		return curveKnotIns(p, U, Pw, u, k, s, target-s)
	}
	if s < p {
		k := U.FindSpan(p, u)
		U, Pw = curveKnotIns(p, U, Pw, u, k, s, p-s)
	}
	first := 0
	for U[first] != u {
		first++
	}
	UQ := make(KnotVector, 0, len(U)+1)
	UQ = append(UQ, U[:first]...)
	UQ = append(UQ, u)
	UQ = append(UQ, U[first:]...)
	Qw := make([]curvenet.Point, 0, len(Pw)+1)
	Qw = append(Qw, copyPoints(Pw[:first])...)
	Qw = append(Qw, Pw[first-1].Copy())
	Qw = append(Qw, copyPoints(Pw[first:])...)
	return UQ, Qw
}

// curveKnotIns inserts u r times into span k, where u has multiplicity s
// (A5.1). Requires s+r ≤ p.
func curveKnotIns(p int, UP KnotVector, Pw []curvenet.Point, u float64, k, s, r int) (KnotVector, []curvenet.Point) {
	np := len(Pw) - 1
	mp := np + p + 1
	UQ := make(KnotVector, mp+r+1)
	Qw := make([]curvenet.Point, np+r+1)
	for i := 0; i <= k; i++ {
		UQ[i] = UP[i]
	}
	for i := 1; i <= r; i++ {
		UQ[k+i] = u
	}
	for i := k + 1; i <= mp; i++ {
		UQ[i+r] = UP[i]
	}
	for i := 0; i <= k-p; i++ {
		Qw[i] = Pw[i].Copy()
	}
	for i := k - s; i <= np; i++ {
		Qw[i+r] = Pw[i].Copy()
	}
	Rw := make([]curvenet.Point, p-s+1)
	for i := 0; i <= p-s; i++ {
		Rw[i] = Pw[k-p+i].Copy()
	}
	L := k - p
	for j := 1; j <= r; j++ {
		L = k - p + j
		for i := 0; i <= p-j-s; i++ {
			alpha := (u - UP[L+i]) / (UP[i+k+1] - UP[L+i])
			Rw[i] = Rw[i+1].Scaled(alpha).AddScaled(1-alpha, Rw[i])
		}
		Qw[L] = Rw[0]
		Qw[k+r-j-s] = Rw[p-j-s]
	}
	for i := L + 1; i < k-s; i++ {
		Qw[i] = Rw[i-L]
	}
	return UQ, Qw
}
