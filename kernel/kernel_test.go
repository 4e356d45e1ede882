package kernel

import (
	"math"
	"testing"

	"github.com/npillmayer/curvenet"
	"github.com/npillmayer/curvenet/bspline"
	"github.com/npillmayer/schuko/tracing/gotestingadapter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quarterCircle() *bspline.Curve {
	w := math.Sqrt2 / 2
	return bspline.MustCurve(2, bspline.KnotVector{0, 0, 0, 1, 1, 1},
		[]curvenet.Point{curvenet.P(1, 0, 0), curvenet.P(1, 1, 0), curvenet.P(0, 1, 0)},
		[]float64{1, w, 1})
}

func TestCurvePointRational(t *testing.T) {
	teardown := gotestingadapter.RedirectTracing(t)
	defer teardown()
	//
	k := Default()
	c := quarterCircle()
	for i := 0; i <= 10; i++ {
		p := k.CurvePoint(c, float64(i)/10)
		assert.InDelta(t, 1, p.Norm(), 1e-12)
	}
	assert.True(t, k.CurvePoint(c, 0).Equal(curvenet.P(1, 0, 0)))
	assert.True(t, k.CurvePoint(c, 1).Equal(curvenet.P(0, 1, 0)))
}

func TestCurveDerivativesMatchDifferences(t *testing.T) {
	teardown := gotestingadapter.RedirectTracing(t)
	defer teardown()
	//
	k := Default()
	c := quarterCircle()
	h := 1e-6
	for _, u := range []float64{0.2, 0.5, 0.8} {
		d := k.CurveDerivatives(c, u, 2)
		fd := k.CurvePoint(c, u+h).Sub(k.CurvePoint(c, u-h)).Scaled(1 / (2 * h))
		assert.Less(t, d[1].Dist(fd), 1e-6, "u=%g", u)
		// tangent of a circle is orthogonal to the radius
		assert.InDelta(t, 0, d[0].Dot(d[1]), 1e-10)
		fd2 := k.CurvePoint(c, u+h).Add(k.CurvePoint(c, u-h)).Sub(d[0].Scaled(2)).Scaled(1 / (h * h))
		assert.Less(t, d[2].Dist(fd2), 1e-3, "u=%g", u)
	}
}

func TestSurfacePointBilinear(t *testing.T) {
	teardown := gotestingadapter.RedirectTracing(t)
	defer teardown()
	//
	s := &bspline.Surface{
		DegreeU: 1, DegreeV: 1,
		KnotsU: bspline.KnotVector{0, 0, 1, 1},
		KnotsV: bspline.KnotVector{0, 0, 1, 1},
		Control: [][]curvenet.Point{
			{curvenet.P(0, 0, 0), curvenet.P(0, 1, 0)},
			{curvenet.P(1, 0, 0), curvenet.P(1, 1, 1)},
		},
	}
	require.NoError(t, s.Validate())
	k := Default()
	p := k.SurfacePoint(s, 0.5, 0.5)
	assert.True(t, p.Equal(curvenet.P(0.5, 0.5, 0.25)), "p = %v", p)
	skl := k.SurfaceDerivatives(s, 0.5, 0.5, 2)
	assert.True(t, skl[1][0].Equal(curvenet.P(1, 0, 0.5)))
	assert.True(t, skl[0][1].Equal(curvenet.P(0, 1, 0.5)))
	assert.True(t, skl[1][1].Equal(curvenet.P(0, 0, 1)))
}

func TestIntersectLines(t *testing.T) {
	teardown := gotestingadapter.RedirectTracing(t)
	defer teardown()
	//
	a := bspline.Bezier(curvenet.P(0, 0, 0), curvenet.P(1, 0, 0), curvenet.P(2, 0, 0))
	b := bspline.Bezier(curvenet.P(0.5, -1, 0), curvenet.P(0.5, 1, 0))
	xs, err := Default().Intersect(a, b, 1e-7)
	require.NoError(t, err)
	require.Len(t, xs, 1)
	assert.InDelta(t, 0.25, xs[0].U, 1e-9)
	assert.InDelta(t, 0.5, xs[0].V, 1e-9)
	assert.Less(t, xs[0].Distance, 1e-9)
}

func TestIntersectSkewAndCurved(t *testing.T) {
	teardown := gotestingadapter.RedirectTracing(t)
	defer teardown()
	//
	k := Default()
	c := quarterCircle()
	// a line through the origin at 45° meets the quarter circle once
	l := bspline.Bezier(curvenet.P(0, 0, 0), curvenet.P(2, 2, 0))
	xs, err := k.Intersect(c, l, 1e-7)
	require.NoError(t, err)
	require.Len(t, xs, 1)
	assert.InDelta(t, math.Sqrt2/2, xs[0].Point[0], 1e-7)
	// skew lines do not intersect
	m := bspline.Bezier(curvenet.P(0, 0, 1), curvenet.P(2, 2, 1))
	xs, err = k.Intersect(c, m, 1e-7)
	require.NoError(t, err)
	assert.Empty(t, xs)
	// a line crossing twice
	s := bspline.Bezier(curvenet.P(-1, 0.8, 0), curvenet.P(2, 0.8, 0))
	xs, err = k.Intersect(bspline.Bezier(curvenet.P(0, 0, 0), curvenet.P(1, 2, 0), curvenet.P(2, 0, 0)), s, 1e-7)
	require.NoError(t, err)
	assert.Len(t, xs, 2)
}

func TestProjectPoint(t *testing.T) {
	teardown := gotestingadapter.RedirectTracing(t)
	defer teardown()
	//
	k := Default()
	c := quarterCircle()
	target := k.CurvePoint(c, 0.37)
	u, d := ProjectPoint(k, c, target.Scaled(1.5), 0.5)
	assert.InDelta(t, 0.37, u, 1e-8)
	assert.InDelta(t, 0.5, d, 1e-8)
}
