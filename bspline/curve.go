package bspline

import (
	"fmt"
	"math"

	"github.com/npillmayer/curvenet"
)

// Curve is the abstract record of a (possibly rational) B-spline curve.
// A curve owns its knot vector and control points exclusively; operations
// in this package never modify a curve but return a new one.
type Curve struct {
	Degree   int
	Knots    KnotVector
	Control  []curvenet.Point
	Weights  []float64 // nil for non-rational curves
	Periodic bool
}

// NewCurve creates a clamped curve from copies of its arguments and
// validates it. weights may be nil.
func NewCurve(degree int, knots KnotVector, control []curvenet.Point, weights []float64) (*Curve, error) {
	c := &Curve{
		Degree:  degree,
		Knots:   knots.Copy(),
		Control: copyPoints(control),
	}
	if weights != nil {
		c.Weights = append([]float64(nil), weights...)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// MustCurve is like NewCurve, but panics on invalid input.
func MustCurve(degree int, knots KnotVector, control []curvenet.Point, weights []float64) *Curve {
	c, err := NewCurve(degree, knots, control, weights)
	if err != nil {
		panic(err)
	}
	return c
}

// Bezier creates a Bézier curve on [0,1] with degree len(control)-1.
func Bezier(control ...curvenet.Point) *Curve {
	p := len(control) - 1
	return MustCurve(p, Uniform(p, 1, 0, 1), control, nil)
}

// Polyline creates a curve of degree 1 through the given points, with
// knots at the cumulative chord lengths normalized to [0,1].
func Polyline(points ...curvenet.Point) *Curve {
	kv := make(KnotVector, 0, len(points)+2)
	kv = append(kv, 0, 0)
	total := 0.0
	for i := 1; i < len(points); i++ {
		total += points[i].Dist(points[i-1])
	}
	acc := 0.0
	for i := 1; i < len(points)-1; i++ {
		acc += points[i].Dist(points[i-1])
		kv = append(kv, acc/total)
	}
	kv = append(kv, 1, 1)
	return MustCurve(1, kv, points, nil)
}

// Validate checks the structural invariants of a curve.
func (c *Curve) Validate() error {
	if c == nil {
		return fmt.Errorf("%w: curve is nil", curvenet.ErrInvalidGeometry)
	}
	if err := c.Knots.Validate(c.Degree, !c.Periodic); err != nil {
		return err
	}
	if len(c.Control) != len(c.Knots)-c.Degree-1 {
		return fmt.Errorf("%w: %d control points, %d knots, degree %d",
			curvenet.ErrInvalidGeometry, len(c.Control), len(c.Knots), c.Degree)
	}
	dim := len(c.Control[0])
	for i, p := range c.Control {
		if len(p) != dim || dim == 0 {
			return fmt.Errorf("%w: control point %d has dimension %d", curvenet.ErrInvalidGeometry, i, len(p))
		}
	}
	if c.Weights != nil {
		if len(c.Weights) != len(c.Control) {
			return fmt.Errorf("%w: %d weights for %d control points",
				curvenet.ErrInvalidGeometry, len(c.Weights), len(c.Control))
		}
		for i, w := range c.Weights {
			if !(w > 0) {
				return fmt.Errorf("%w: weight %d is %g", curvenet.ErrInvalidGeometry, i, w)
			}
		}
	}
	if c.Periodic {
		n, p := len(c.Control), c.Degree
		if n < 2*p {
			return fmt.Errorf("%w: periodic curve needs at least %d control points",
				curvenet.ErrInvalidGeometry, 2*p)
		}
		scale := math.Max(1, curvenet.BoundingDiagonal(c.Control))
		for i := 0; i < p; i++ {
			if c.Control[i].Dist(c.Control[n-p+i]) > 1e-9*scale {
				return fmt.Errorf("%w: periodic curve does not wrap at control point %d",
					curvenet.ErrInvalidGeometry, i)
			}
		}
	}
	return nil
}

// N returns the number of control points.
func (c *Curve) N() int {
	return len(c.Control)
}

// Dim returns the dimension of the control points.
func (c *Curve) Dim() int {
	return len(c.Control[0])
}

// IsRational is a predicate: does c carry weights which are not all equal?
func (c *Curve) IsRational() bool {
	if c.Weights == nil {
		return false
	}
	for _, w := range c.Weights[1:] {
		if math.Abs(w-c.Weights[0]) > curvenet.Epsilon {
			return true
		}
	}
	return false
}

// Weight returns the weight of control point i (1 for non-rational curves).
func (c *Curve) Weight(i int) float64 {
	if c.Weights == nil {
		return 1
	}
	return c.Weights[i]
}

// Domain returns the parameter range of c.
func (c *Curve) Domain() (float64, float64) {
	return c.Knots.Domain(c.Degree)
}

// WrapParameter maps u into the domain of a periodic curve. For other
// curves u is returned unchanged.
func (c *Curve) WrapParameter(u float64) float64 {
	if !c.Periodic {
		return u
	}
	a, b := c.Domain()
	period := b - a
	u = a + math.Mod(u-a, period)
	if u < a {
		u += period
	}
	return u
}

// IsClosed is a predicate: do start and end point of c coincide within tol?
// Periodic curves are always closed.
func (c *Curve) IsClosed(tol float64) bool {
	if c.Periodic {
		return true
	}
	return c.Control[0].Dist(c.Control[len(c.Control)-1]) <= tol
}

// Clone returns a deep copy of c.
func (c *Curve) Clone() *Curve {
	d := &Curve{
		Degree:   c.Degree,
		Knots:    c.Knots.Copy(),
		Control:  copyPoints(c.Control),
		Periodic: c.Periodic,
	}
	if c.Weights != nil {
		d.Weights = append([]float64(nil), c.Weights...)
	}
	return d
}

// Reparametrized returns a copy of c with its domain mapped affinely onto
// [a,b].
func (c *Curve) Reparametrized(a, b float64) *Curve {
	d := c.Clone()
	d.Knots = c.Knots.Remapped(c.Degree, a, b)
	return d
}

// Reversed returns a copy of c running in the opposite direction on the
// same domain: the point at parameter u of the result is the point at
// first+last-u of c.
func (c *Curve) Reversed() *Curve {
	d := c.Clone()
	d.Knots = c.Knots.Reversed(c.Degree)
	n := len(d.Control)
	for i := 0; i < n/2; i++ {
		d.Control[i], d.Control[n-1-i] = d.Control[n-1-i], d.Control[i]
		if d.Weights != nil {
			d.Weights[i], d.Weights[n-1-i] = d.Weights[n-1-i], d.Weights[i]
		}
	}
	return d
}

// Homogeneous returns the control points in homogeneous form (x·w, w).
func (c *Curve) Homogeneous() []curvenet.Point {
	return toHomogeneous(c.Control, c.Weights)
}

// fromHomogeneous creates a curve from homogeneous control points. The
// curve is rational if the template curve was.
func fromHomogeneous(degree int, knots KnotVector, hpts []curvenet.Point, rational bool, periodic bool) *Curve {
	ctrl, weights := fromHomogeneousPoints(hpts, rational)
	return &Curve{
		Degree:   degree,
		Knots:    knots,
		Control:  ctrl,
		Weights:  weights,
		Periodic: periodic,
	}
}

// pointAt evaluates c at u in homogeneous coordinates. It is used for the
// exact re-expression of curves in a larger spline space only; general
// evaluation belongs to a kernel.
func (c *Curve) pointAt(u float64, hpts []curvenet.Point) curvenet.Point {
	u = c.WrapParameter(u)
	span, N := c.Knots.BasisRow(c.Degree, u)
	r := curvenet.Origin(len(hpts[0]))
	for j := 0; j <= c.Degree; j++ {
		r = r.AddScaled(N[j], hpts[span-c.Degree+j])
	}
	return r
}

// --- Helpers ---------------------------------------------------------------

func copyPoints(pts []curvenet.Point) []curvenet.Point {
	c := make([]curvenet.Point, len(pts))
	for i, p := range pts {
		c[i] = p.Copy()
	}
	return c
}

func toHomogeneous(pts []curvenet.Point, weights []float64) []curvenet.Point {
	h := make([]curvenet.Point, len(pts))
	for i, p := range pts {
		w := 1.0
		if weights != nil {
			w = weights[i]
		}
		hp := make(curvenet.Point, len(p)+1)
		for k, x := range p {
			hp[k] = x * w
		}
		hp[len(p)] = w
		h[i] = hp
	}
	return h
}

func fromHomogeneousPoints(hpts []curvenet.Point, rational bool) ([]curvenet.Point, []float64) {
	ctrl := make([]curvenet.Point, len(hpts))
	var weights []float64
	if rational {
		weights = make([]float64, len(hpts))
	}
	for i, hp := range hpts {
		d := len(hp) - 1
		w := hp[d]
		p := make(curvenet.Point, d)
		for k := 0; k < d; k++ {
			p[k] = hp[k] / w
		}
		ctrl[i] = p
		if rational {
			weights[i] = w
		}
	}
	return ctrl, weights
}
