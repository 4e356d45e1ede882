package kernel

import (
	"math"
	"sort"

	"github.com/npillmayer/curvenet"
	"github.com/npillmayer/curvenet/bspline"
)

// Intersect finds the intersections of two curves. Both curves are sampled
// into polylines; pairs of close polyline segments seed a Gauss-Newton
// minimization of |a(u) - b(v)|². Converged pairs with a distance of at
// most tol are reported, duplicates removed.
func (r Reference) Intersect(a, b *bspline.Curve, tol float64) ([]Intersection, error) {
	if err := a.Validate(); err != nil {
		return nil, err
	}
	if err := b.Validate(); err != nil {
		return nil, err
	}
	ua, pa := r.sample(a)
	ub, pb := r.sample(b)
	var found []Intersection
	for i := 0; i+1 < len(pa); i++ {
		for j := 0; j+1 < len(pb); j++ {
			s, t, d := segmentDistance(pa[i], pa[i+1], pb[j], pb[j+1])
			reach := 0.5*(pa[i].Dist(pa[i+1])+pb[j].Dist(pb[j+1])) + tol
			if d > reach {
				continue
			}
			u0 := ua[i] + s*(ua[i+1]-ua[i])
			v0 := ub[j] + t*(ub[j+1]-ub[j])
			x := r.refine(a, b, u0, v0)
			if x.Distance <= tol {
				found = appendUnique(found, x, a, b)
			}
		}
	}
	sort.Slice(found, func(i, j int) bool { return found[i].U < found[j].U })
	tracer().Debugf("intersect: %d intersection(s) found", len(found))
	return found, nil
}

// sample returns parameters and points of a polyline approximation of c,
// with every distinct knot among the parameters.
func (r Reference) sample(c *bspline.Curve) ([]float64, []curvenet.Point) {
	knots := c.Knots.Multiplicities(0)
	a, b := c.Domain()
	perSpan := max(4, 64/len(knots))
	var params []float64
	for i := 0; i+1 < len(knots); i++ {
		k0, k1 := knots[i].Value, knots[i+1].Value
		if k1 <= a || k0 >= b {
			continue
		}
		k0, k1 = math.Max(k0, a), math.Min(k1, b)
		for s := 0; s < perSpan; s++ {
			params = append(params, k0+(k1-k0)*float64(s)/float64(perSpan))
		}
	}
	params = append(params, b)
	pts := make([]curvenet.Point, len(params))
	for i, u := range params {
		pts[i] = r.CurvePoint(c, u)
	}
	return params, pts
}

// refine runs a Gauss-Newton iteration on r(u,v) = a(u) - b(v), restricted
// to the parameter domains.
func (r Reference) refine(a, b *bspline.Curve, u, v float64) Intersection {
	a0, a1 := a.Domain()
	b0, b1 := b.Domain()
	for it := 0; it < 50; it++ {
		A := r.CurveDerivatives(a, u, 1)
		B := r.CurveDerivatives(b, v, 1)
		res := A[0].Sub(B[0])
		ju, jv := A[1], B[1].Scaled(-1)
		m11, m12, m22 := ju.Dot(ju), ju.Dot(jv), jv.Dot(jv)
		g1, g2 := -ju.Dot(res), -jv.Dot(res)
		det := m11*m22 - m12*m12
		var du, dv float64
		if math.Abs(det) <= 1e-14*math.Max(1, m11*m22) {
			// tangential contact: gradient steps
			if m11 > 0 {
				du = g1 / m11
			}
			if m22 > 0 {
				dv = g2 / m22
			}
		} else {
			du = (g1*m22 - m12*g2) / det
			dv = (m11*g2 - m12*g1) / det
		}
		un := curvenet.Clamp(u+du, a0, a1)
		vn := curvenet.Clamp(v+dv, b0, b1)
		done := math.Abs(un-u) <= 1e-15*(a1-a0) && math.Abs(vn-v) <= 1e-15*(b1-b0)
		u, v = un, vn
		if done {
			break
		}
	}
	pa, pb := r.CurvePoint(a, u), r.CurvePoint(b, v)
	return Intersection{
		U:        u,
		V:        v,
		Point:    curvenet.Lerp(pa, pb, 0.5),
		Distance: pa.Dist(pb),
	}
}

// appendUnique adds x to found unless an intersection with the same
// parameters is already present; of two duplicates the closer one is kept.
// On closed curves the seam parameters denote the same point, therefore
// duplicates are detected by parameter, not by location.
func appendUnique(found []Intersection, x Intersection, a, b *bspline.Curve) []Intersection {
	a0, a1 := a.Domain()
	b0, b1 := b.Domain()
	ptol := 1e-6
	for i, y := range found {
		sameU := math.Abs(x.U-y.U) <= ptol*(a1-a0)
		sameV := math.Abs(x.V-y.V) <= ptol*(b1-b0)
		if sameU && sameV {
			if x.Distance < y.Distance {
				found[i] = x
			}
			return found
		}
	}
	return append(found, x)
}

// segmentDistance computes the closest points of segments [p0,p1] and
// [q0,q1], returning their segment parameters s,t ∈ [0,1] and distance.
func segmentDistance(p0, p1, q0, q1 curvenet.Point) (float64, float64, float64) {
	d1, d2 := p1.Sub(p0), q1.Sub(q0)
	r := p0.Sub(q0)
	a, e, f := d1.Dot(d1), d2.Dot(d2), d2.Dot(r)
	var s, t float64
	switch {
	case a <= 1e-30 && e <= 1e-30:
		s, t = 0, 0
	case a <= 1e-30:
		s, t = 0, curvenet.Clamp(f/e, 0, 1)
	default:
		c := d1.Dot(r)
		if e <= 1e-30 {
			s, t = curvenet.Clamp(-c/a, 0, 1), 0
		} else {
			b := d1.Dot(d2)
			denom := a*e - b*b
			if denom > 0 {
				s = curvenet.Clamp((b*f-c*e)/denom, 0, 1)
			}
			t = (b*s + f) / e
			if t < 0 {
				t, s = 0, curvenet.Clamp(-c/a, 0, 1)
			} else if t > 1 {
				t, s = 1, curvenet.Clamp((b-c)/a, 0, 1)
			}
		}
	}
	cp := p0.AddScaled(s, d1)
	cq := q0.AddScaled(t, d2)
	return s, t, cp.Dist(cq)
}

// ProjectPoint finds the parameter of the point on c closest to p, starting
// a Newton iteration at u0. It returns the parameter and the distance.
func ProjectPoint(e CurveEvaluator, c *bspline.Curve, p curvenet.Point, u0 float64) (float64, float64) {
	a, b := c.Domain()
	u := u0
	for it := 0; it < 20; it++ {
		d := e.CurveDerivatives(c, u, 2)
		diff := d[0].Sub(p)
		f := d[1].Dot(diff)
		df := d[2].Dot(diff) + d[1].Dot(d[1])
		if math.Abs(df) <= 1e-30 {
			break
		}
		un := u - f/df
		if c.Periodic {
			un = c.WrapParameter(un)
		} else {
			un = curvenet.Clamp(un, a, b)
		}
		if math.Abs(un-u) <= 1e-12*(b-a) {
			u = un
			break
		}
		u = un
	}
	return u, e.CurvePoint(c, u).Dist(p)
}
