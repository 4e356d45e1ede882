/*
Package gordon builds Gordon surfaces from curve networks.

A Gordon surface interpolates a bidirectional network of curves. It is
composed of three auxiliary surfaces:

	S_v   the skin of the profiles (interpolating every profile along V)
	S_u   the skin of the guides (interpolating every guide along U)
	S_uv  the tensor-product interpolant of the intersection points

and combined as S = S_u + S_v - S_uv. The combination is done on control
points and therefore requires the three surfaces to share a basis. Clients
can only combine surfaces wrapped in a UnifiedTriple, which is created by
Unify.

Literature:

	W.J. Gordon: Spline-blended surface interpolation through curve networks,
	Journal of Mathematics and Mechanics 18 (1969), pp. 931-952.

	L. Piegl, W. Tiller: The NURBS Book, 2nd ed., Springer 1997, ch. 10.4.

# BSD License

# Copyright (c) Norbert Pillmayer

All rights reserved.

Please refer to the license file for more information.
*/
package gordon

import (
	"fmt"
	"math"

	"github.com/npillmayer/curvenet"
	"github.com/npillmayer/curvenet/bspline"
	"github.com/npillmayer/curvenet/fit"
	"github.com/npillmayer/curvenet/kernel"
	"github.com/npillmayer/curvenet/network"
	"github.com/npillmayer/schuko/tracing"
)

// tracer writes to trace with key 'curvenet.gordon'
func tracer() tracing.Trace {
	return tracing.Select("curvenet.gordon")
}

// Builder creates Gordon surfaces and skinning surfaces. A Builder holds
// no state between builds and may be used concurrently.
type Builder struct {
	tol    curvenet.Tolerance
	kernel kernel.Kernel
}

// NewBuilder creates a builder for a tolerance context. k may be nil,
// selecting the reference kernel.
func NewBuilder(tol curvenet.Tolerance, k kernel.Kernel) (*Builder, error) {
	if err := tol.Validate(); err != nil {
		return nil, err
	}
	if k == nil {
		k = kernel.Default()
	}
	return &Builder{tol: tol, kernel: k}, nil
}

// Tolerance returns the tolerance context of b.
func (b *Builder) Tolerance() curvenet.Tolerance {
	return b.tol
}

// Result is the outcome of a Gordon build. ProfileSkin, GuideSkin and
// Tensor are the auxiliary surfaces after unification.
type Result struct {
	Surface     *bspline.Surface
	ProfileSkin *bspline.Surface
	GuideSkin   *bspline.Surface
	Tensor      *bspline.Surface
	Network     *network.Matched
	ClosedU     bool
	ClosedV     bool
}

// BuildGordonSurface interpolates a network of profiles and guides with
// the reference kernel. It is a shortcut for
//
//	b, _ := NewBuilder(tol, nil)
//	r, err := b.Build(network.New().Profile(profiles...).Guide(guides...))
//
// It fails with ErrDegenerateNetwork for fewer than two profiles or
// guides, and with ErrInconsistentNetwork if the curves do not form a
// consistent grid.
func BuildGordonSurface(profiles, guides []*bspline.Curve, tol curvenet.Tolerance) (*bspline.Surface, error) {
	b, err := NewBuilder(tol, nil)
	if err != nil {
		return nil, err
	}
	r, err := b.Build(network.New().Profile(profiles...).Guide(guides...))
	if err != nil {
		return nil, err
	}
	return r.Surface, nil
}

// Build matches the curves of a network and creates its Gordon surface.
func (b *Builder) Build(net *network.Network) (*Result, error) {
	if p, g := net.Size(); p < 2 || g < 2 {
		tracer().Errorf("Gordon surface needs at least 2 profiles and 2 guides, have %d and %d", p, g)
		return nil, fmt.Errorf("%w: %d profiles, %d guides", curvenet.ErrDegenerateNetwork, p, g)
	}
	m, err := network.Match(net, b.tol, b.kernel)
	if err != nil {
		return nil, err
	}
	return b.BuildMatched(m)
}

// BuildMatched creates the Gordon surface of an already matched network.
func (b *Builder) BuildMatched(m *network.Matched) (*Result, error) {
	nP, nG := m.Size()
	if nP < 2 || nG < 2 {
		return nil, fmt.Errorf("%w: %d profiles, %d guides", curvenet.ErrDegenerateNetwork, nP, nG)
	}
	if err := b.checkConsistency(m); err != nil {
		return nil, err
	}
	r := &Result{Network: m}
	r.ClosedU, r.ClosedV = b.closedDirections(m)
	params := b.params()
	tracer().Debugf("skinning %d profiles along v", nP)
	sv, err := fit.SkinCurves(m.Profiles, m.ParamsV, r.ClosedV, params)
	if err != nil {
		return nil, fmt.Errorf("skinning profiles: %w", err)
	}
	tracer().Debugf("skinning %d guides along u", nG)
	su, err := fit.SkinCurves(m.Guides, m.ParamsU, r.ClosedU, params)
	if err != nil {
		return nil, fmt.Errorf("skinning guides: %w", err)
	}
	su = su.Transposed()
	// grid[j][i] is the intersection of guide j (at u_j) and profile i (at v_i)
	grid := make([][]curvenet.Point, nG)
	for j := range grid {
		grid[j] = make([]curvenet.Point, nP)
		for i := range grid[j] {
			grid[j][i] = m.Points[i][j]
		}
	}
	suv, err := fit.InterpolateGrid(grid, m.ParamsU, m.ParamsV, r.ClosedU, r.ClosedV, params)
	if err != nil {
		return nil, fmt.Errorf("interpolating intersections: %w", err)
	}
	triple, err := Unify(su, sv, suv, b.tol, b.kernel)
	if err != nil {
		return nil, err
	}
	if r.Surface, err = triple.Combine(); err != nil {
		return nil, err
	}
	r.GuideSkin, r.ProfileSkin, r.Tensor = triple.Operands()
	nu, nv := r.Surface.Dims()
	tracer().Infof("Gordon surface of degrees (%d,%d) with %d×%d control points",
		r.Surface.DegreeU, r.Surface.DegreeV, nu, nv)
	return r, nil
}

// Skin creates a plain skinning surface through a single family of
// curves, which is the fallback for networks without guides. vParams may
// be nil, selecting parameters from the chord lengths between the curves'
// control polygons.
func (b *Builder) Skin(curves []*bspline.Curve, vParams []float64) (*bspline.Surface, error) {
	if len(curves) < 2 {
		return nil, fmt.Errorf("%w: cannot skin %d curve(s)", curvenet.ErrDegenerateNetwork, len(curves))
	}
	closed := curves[0].Dim() == curves[len(curves)-1].Dim() &&
		curveDistance(b.kernel, curves[0], curves[len(curves)-1]) <= b.tol.Tol3D
	if vParams == nil {
		vParams = skinParameters(b.kernel, curves)
	}
	return fit.SkinCurves(curves, vParams, closed, b.params())
}

func (b *Builder) params() fit.Params {
	params := fit.DefaultParams()
	params.Tolerance = b.tol
	params.Evaluator = b.kernel
	return params
}

// checkConsistency verifies that profile i at u_j meets guide j at v_i.
func (b *Builder) checkConsistency(m *network.Matched) error {
	tol := b.tol.Tol3D * scale(m)
	for i, p := range m.Profiles {
		for j, g := range m.Guides {
			d := b.kernel.CurvePoint(p, m.ParamsU[j]).Dist(b.kernel.CurvePoint(g, m.ParamsV[i]))
			if d > tol {
				tracer().Errorf("profile %d and guide %d miss each other by %g", i, j, d)
				return fmt.Errorf("%w: profile %d and guide %d miss each other by %g at (%g,%g)",
					curvenet.ErrInconsistentNetwork, i, j, d, m.ParamsU[j], m.ParamsV[i])
			}
		}
	}
	return nil
}

// closedDirections reports whether the first and last guides (closedU) or
// the first and last profiles (closedV) coincide.
func (b *Builder) closedDirections(m *network.Matched) (closedU, closedV bool) {
	nP, nG := m.Size()
	tol := b.tol.Tol3D * scale(m)
	closedU, closedV = true, true
	for i := 0; i < nP; i++ {
		closedU = closedU && m.Points[i][0].Dist(m.Points[i][nG-1]) <= tol
	}
	for j := 0; j < nG; j++ {
		closedV = closedV && m.Points[0][j].Dist(m.Points[nP-1][j]) <= tol
	}
	closedU = closedU && curveDistance(b.kernel, m.Guides[0], m.Guides[nG-1]) <= tol
	closedV = closedV && curveDistance(b.kernel, m.Profiles[0], m.Profiles[nP-1]) <= tol
	if closedU || closedV {
		tracer().Infof("network is closed in u=%v, v=%v", closedU, closedV)
	}
	return
}

const distanceSamples = 20

// curveDistance samples two curves at common relative parameters and
// returns the maximum distance.
func curveDistance(eval kernel.CurveEvaluator, c, d *bspline.Curve) float64 {
	c0, c1 := c.Domain()
	d0, d1 := d.Domain()
	dist := 0.0
	for k := 0; k <= distanceSamples; k++ {
		t := float64(k) / distanceSamples
		p := eval.CurvePoint(c, c0+t*(c1-c0))
		q := eval.CurvePoint(d, d0+t*(d1-d0))
		dist = math.Max(dist, p.Dist(q))
	}
	return dist
}

// scale is the mean extent of both families, at least 1.
func scale(m *network.Matched) float64 {
	extent := func(curves []*bspline.Curve) float64 {
		var pts []curvenet.Point
		for _, c := range curves {
			pts = append(pts, c.Control...)
		}
		return curvenet.BoundingDiagonal(pts)
	}
	return math.Max(1, 0.5*(extent(m.Profiles)+extent(m.Guides)))
}

// skinParameters averages the chord-length parameters of corresponding
// sample points of all curves.
func skinParameters(eval kernel.CurveEvaluator, curves []*bspline.Curve) []float64 {
	n := len(curves)
	params := make([]float64, n)
	for k := 0; k <= distanceSamples; k++ {
		t := float64(k) / distanceSamples
		pts := make([]curvenet.Point, n)
		for i, c := range curves {
			a, b := c.Domain()
			pts[i] = eval.CurvePoint(c, a+t*(b-a))
		}
		for i, u := range fit.Parameters(pts, fit.ChordLength) {
			params[i] += u / (distanceSamples + 1)
		}
	}
	params[0], params[n-1] = 0, 1
	return params
}
