package curvenet

import (
	"fmt"
	"math"
	"strings"

	"github.com/ungerik/go3d/float64/vec3"
)

// Point is a point (or vector) of arbitrary dimension. Curves and surfaces
// of the engine usually live in 3D, but re-parametrization functions are
// 1D curves and planar inputs are 2D.
//
// Points are treated as values: operations return new points and leave
// their receivers unchanged.
type Point []float64

// P is a quick notation for constructing a point from floats.
func P(coords ...float64) Point {
	p := make(Point, len(coords))
	copy(p, coords)
	return p
}

// Origin returns the origin of dimension dim.
func Origin(dim int) Point {
	return make(Point, dim)
}

// Dim returns the dimension of p.
func (p Point) Dim() int {
	return len(p)
}

// Copy returns a copy of p.
func (p Point) Copy() Point {
	return P(p...)
}

// Pretty Stringer for points.
func (p Point) String() string {
	var b strings.Builder
	b.WriteByte('(')
	for i, c := range p {
		if i > 0 {
			b.WriteByte(',')
		}
		fmt.Fprintf(&b, "%g", c)
	}
	b.WriteByte(')')
	return b.String()
}

// Add returns p+q. Missing coordinates of the shorter point are taken as 0.
func (p Point) Add(q Point) Point {
	r := make(Point, max(len(p), len(q)))
	copy(r, p)
	for i, c := range q {
		r[i] += c
	}
	return r
}

// Sub returns p-q. Missing coordinates of the shorter point are taken as 0.
func (p Point) Sub(q Point) Point {
	r := make(Point, max(len(p), len(q)))
	copy(r, p)
	for i, c := range q {
		r[i] -= c
	}
	return r
}

// Scaled returns a new point scaled by factor a.
func (p Point) Scaled(a float64) Point {
	r := make(Point, len(p))
	for i, c := range p {
		r[i] = c * a
	}
	return r
}

// AddScaled returns p + a·q.
func (p Point) AddScaled(a float64, q Point) Point {
	r := make(Point, max(len(p), len(q)))
	copy(r, p)
	for i, c := range q {
		r[i] += a * c
	}
	return r
}

// Dot is the scalar product of p and q.
func (p Point) Dot(q Point) float64 {
	var s float64
	for i := 0; i < min(len(p), len(q)); i++ {
		s += p[i] * q[i]
	}
	return s
}

// Norm is the Euclidean length of p.
func (p Point) Norm() float64 {
	return math.Sqrt(p.Dot(p))
}

// Dist is the Euclidean distance between p and q.
func (p Point) Dist(q Point) float64 {
	return p.Sub(q).Norm()
}

// Normalized returns p scaled to unit length. The zero vector is returned
// unchanged.
func (p Point) Normalized() Point {
	n := p.Norm()
	if Is0(n) {
		return p.Copy()
	}
	return p.Scaled(1 / n)
}

// Zap rounds all coordinates to Epsilon.
func (p Point) Zap() Point {
	r := make(Point, len(p))
	for i, c := range p {
		r[i] = Zap(c)
	}
	return r
}

// Equal compares two points coordinate-wise, up to Epsilon.
func (p Point) Equal(q Point) bool {
	if len(p) != len(q) {
		return false
	}
	for i := range p {
		if !Is0(p[i] - q[i]) {
			return false
		}
	}
	return true
}

// Vec3 returns the first three coordinates of p as a go3d vector.
// Lower dimensional points are padded with zeros.
func (p Point) Vec3() vec3.T {
	var v vec3.T
	copy(v[:], p)
	return v
}

// FromVec3 creates a 3D point from a go3d vector.
func FromVec3(v vec3.T) Point {
	return P(v[0], v[1], v[2])
}

// Lerp interpolates linearly between p and q.
func Lerp(p, q Point, t float64) Point {
	return p.Scaled(1 - t).AddScaled(t, q)
}

// Centroid returns the arithmetic mean of a set of points.
func Centroid(pts []Point) Point {
	if len(pts) == 0 {
		return nil
	}
	c := Origin(len(pts[0]))
	for _, p := range pts {
		c = c.Add(p)
	}
	return c.Scaled(1 / float64(len(pts)))
}

// BoundingDiagonal returns the length of the diagonal of the axis-aligned
// bounding box of a set of points. It is used as a scale for relative
// tolerances.
func BoundingDiagonal(pts []Point) float64 {
	if len(pts) == 0 {
		return 0
	}
	lo, hi := pts[0].Copy(), pts[0].Copy()
	for _, p := range pts[1:] {
		for i := 0; i < min(len(p), len(lo)); i++ {
			lo[i] = math.Min(lo[i], p[i])
			hi[i] = math.Max(hi[i], p[i])
		}
	}
	return hi.Dist(lo)
}
