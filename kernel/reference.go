package kernel

import (
	"github.com/npillmayer/curvenet"
	"github.com/npillmayer/curvenet/bspline"
)

// Reference is a self-contained kernel working directly on the abstract
// records of package bspline. Rational geometry is evaluated in homogeneous
// coordinates (The NURBS Book, A4.2 and A4.4).
type Reference struct{}

var _ Kernel = Reference{}

// CurvePoint returns the point of c at u.
func (Reference) CurvePoint(c *bspline.Curve, u float64) curvenet.Point {
	u = c.WrapParameter(u)
	p := c.Degree
	span, N := c.Knots.BasisRow(p, u)
	dim := c.Dim()
	h := make(curvenet.Point, dim+1)
	for j := 0; j <= p; j++ {
		w := c.Weight(span - p + j)
		pt := c.Control[span-p+j]
		for k := 0; k < dim; k++ {
			h[k] += N[j] * w * pt[k]
		}
		h[dim] += N[j] * w
	}
	r := make(curvenet.Point, dim)
	for k := 0; k < dim; k++ {
		r[k] = h[k] / h[dim]
	}
	return r
}

// CurveDerivatives returns C(u) and its first n derivatives.
func (Reference) CurveDerivatives(c *bspline.Curve, u float64, n int) []curvenet.Point {
	u = c.WrapParameter(u)
	p := c.Degree
	span := c.Knots.FindSpan(p, u)
	ders := c.Knots.DersBasisFuns(span, p, n, u)
	dim := c.Dim()
	aders := make([]curvenet.Point, n+1) // homogeneous derivatives
	for k := 0; k <= n; k++ {
		aders[k] = make(curvenet.Point, dim+1)
		for j := 0; j <= p; j++ {
			w := c.Weight(span - p + j)
			pt := c.Control[span-p+j]
			for d := 0; d < dim; d++ {
				aders[k][d] += ders[k][j] * w * pt[d]
			}
			aders[k][dim] += ders[k][j] * w
		}
	}
	return rationalCurveDerivs(aders, dim)
}

// rationalCurveDerivs projects homogeneous derivatives (A4.2).
func rationalCurveDerivs(aders []curvenet.Point, dim int) []curvenet.Point {
	n := len(aders) - 1
	ck := make([]curvenet.Point, n+1)
	for k := 0; k <= n; k++ {
		v := make(curvenet.Point, dim)
		copy(v, aders[k][:dim])
		for i := 1; i <= k; i++ {
			v = v.AddScaled(-binomial(k, i)*aders[i][dim], ck[k-i])
		}
		ck[k] = v.Scaled(1 / aders[0][dim])
	}
	return ck
}

// SurfacePoint returns the point of s at (u,v).
func (r Reference) SurfacePoint(s *bspline.Surface, u, v float64) curvenet.Point {
	return r.SurfaceDerivatives(s, u, v, 0)[0][0]
}

// SurfaceDerivatives returns the partial derivatives of s up to total
// order n.
func (Reference) SurfaceDerivatives(s *bspline.Surface, u, v float64, n int) [][]curvenet.Point {
	u = wrap(u, s.KnotsU, s.DegreeU, s.PeriodicU)
	v = wrap(v, s.KnotsV, s.DegreeV, s.PeriodicV)
	p, q := s.DegreeU, s.DegreeV
	spanU := s.KnotsU.FindSpan(p, u)
	spanV := s.KnotsV.FindSpan(q, v)
	Nu := s.KnotsU.DersBasisFuns(spanU, p, n, u)
	Nv := s.KnotsV.DersBasisFuns(spanV, q, n, v)
	dim := len(s.Control[0][0])
	weight := func(i, j int) float64 {
		if s.Weights == nil {
			return 1
		}
		return s.Weights[i][j]
	}
	aders := make([][]curvenet.Point, n+1)
	for k := 0; k <= n; k++ {
		aders[k] = make([]curvenet.Point, n+1)
		for l := 0; l <= n-k; l++ {
			h := make(curvenet.Point, dim+1)
			for a := 0; a <= p; a++ {
				for b := 0; b <= q; b++ {
					i, j := spanU-p+a, spanV-q+b
					f := Nu[k][a] * Nv[l][b] * weight(i, j)
					for d := 0; d < dim; d++ {
						h[d] += f * s.Control[i][j][d]
					}
					h[dim] += f
				}
			}
			aders[k][l] = h
		}
	}
	// A4.4
	skl := make([][]curvenet.Point, n+1)
	for k := range skl {
		skl[k] = make([]curvenet.Point, n+1)
	}
	w00 := aders[0][0][dim]
	for k := 0; k <= n; k++ {
		for l := 0; l <= n-k; l++ {
			sk := make(curvenet.Point, dim)
			copy(sk, aders[k][l][:dim])
			for j := 1; j <= l; j++ {
				sk = sk.AddScaled(-binomial(l, j)*aders[0][j][dim], skl[k][l-j])
			}
			for i := 1; i <= k; i++ {
				sk = sk.AddScaled(-binomial(k, i)*aders[i][0][dim], skl[k-i][l])
				v2 := make(curvenet.Point, dim)
				for j := 1; j <= l; j++ {
					v2 = v2.AddScaled(binomial(l, j)*aders[i][j][dim], skl[k-i][l-j])
				}
				sk = sk.AddScaled(-binomial(k, i), v2)
			}
			skl[k][l] = sk.Scaled(1 / w00)
		}
	}
	return skl
}

// MakeCurve validates c and returns it as its own native representation.
func (Reference) MakeCurve(c *bspline.Curve) (any, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// MakeSurface validates s and returns it as its own native representation.
func (Reference) MakeSurface(s *bspline.Surface) (any, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

func wrap(u float64, kv bspline.KnotVector, degree int, periodic bool) float64 {
	if !periodic {
		return u
	}
	a, b := kv.Domain(degree)
	for u < a {
		u += b - a
	}
	for u >= b {
		u -= b - a
	}
	return u
}

func binomial(n, k int) float64 {
	r := 1.0
	for i := 1; i <= k; i++ {
		r = r * float64(n-k+i) / float64(i)
	}
	return r
}
