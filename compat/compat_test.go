package compat

import (
	"errors"
	"math"
	"testing"

	"github.com/npillmayer/curvenet"
	"github.com/npillmayer/curvenet/bspline"
	"github.com/npillmayer/curvenet/kernel"
	"github.com/npillmayer/schuko/tracing/gotestingadapter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func curveSet() []*bspline.Curve {
	c1 := bspline.MustCurve(3, bspline.KnotVector{0, 0, 0, 0, 0.4, 1, 1, 1, 1},
		[]curvenet.Point{
			curvenet.P(0, 0, 0), curvenet.P(1, 1, 0), curvenet.P(2, 1, 0),
			curvenet.P(3, 0, 0), curvenet.P(4, 0, 1),
		}, nil)
	c2 := bspline.Bezier(curvenet.P(0, 2, 0), curvenet.P(2, 3, 1), curvenet.P(4, 2, 0))
	c3 := bspline.Polyline(curvenet.P(0, 4, 0), curvenet.P(1, 4, 1), curvenet.P(3, 5, 1), curvenet.P(4, 4, 0))
	w := math.Sqrt2 / 2
	c4 := bspline.MustCurve(2, bspline.KnotVector{0, 0, 0, 1, 1, 1},
		[]curvenet.Point{curvenet.P(1, 0, 3), curvenet.P(1, 1, 3), curvenet.P(0, 1, 3)},
		[]float64{1, w, 1})
	return []*bspline.Curve{c1, c2, c3, c4}
}

func TestUnifyCurves(t *testing.T) {
	teardown := gotestingadapter.RedirectTracing(t)
	defer teardown()
	//
	k := kernel.Default()
	curves := curveSet()
	unified, err := UnifyCurves(curves, curvenet.DefaultTolerance(), k)
	require.NoError(t, err)
	require.Len(t, unified, len(curves))
	assert.True(t, Compatible(0, unified...))
	assert.Equal(t, 3, unified[0].Degree)
	for i := range curves {
		assert.Less(t, CurveDeviation(k, curves[i], unified[i], unified[i].Knots, 3), 1e-9)
		require.NoError(t, unified[i].Validate())
	}
	// unifying again is a no-op on the knot vector
	again, err := UnifyCurves(unified, curvenet.DefaultTolerance(), k)
	require.NoError(t, err)
	assert.Equal(t, unified[0].Knots, again[0].Knots)
	// inputs are untouched
	assert.Equal(t, 2, curves[1].Degree)
}

func TestUnifyCurvesErrors(t *testing.T) {
	teardown := gotestingadapter.RedirectTracing(t)
	defer teardown()
	//
	k := kernel.Default()
	tol := curvenet.DefaultTolerance()
	_, err := UnifyCurves(nil, tol, k)
	assert.True(t, errors.Is(err, curvenet.ErrCompatibility))
	// mixed periodicity
	pts := []curvenet.Point{curvenet.P(1, 0, 0), curvenet.P(0, 1, 0), curvenet.P(-1, 0, 0), curvenet.P(0, -1, 0)}
	ctrl := append(append([]curvenet.Point{}, pts...), pts[0], pts[1], pts[2])
	kv := make(bspline.KnotVector, len(ctrl)+4)
	for i := range kv {
		kv[i] = float64(i-3) / 4
	}
	periodic := &bspline.Curve{Degree: 3, Knots: kv, Control: ctrl, Periodic: true}
	require.NoError(t, periodic.Validate())
	_, err = UnifyCurves([]*bspline.Curve{periodic, curveSet()[0]}, tol, k)
	assert.True(t, errors.Is(err, curvenet.ErrCompatibility))
	// all periodic is fine
	unified, err := UnifyCurves([]*bspline.Curve{periodic, periodic.Reversed()}, tol, k)
	require.NoError(t, err)
	assert.False(t, unified[0].Periodic)
	// differing domains
	_, err = UnifyCurves([]*bspline.Curve{curveSet()[0], curveSet()[1].Reparametrized(0, 2)}, tol, k)
	assert.True(t, errors.Is(err, curvenet.ErrCompatibility))
	// invalid tolerance
	_, err = UnifyCurves(curveSet(), tol.WithTol3D(-1), k)
	assert.True(t, errors.Is(err, curvenet.ErrInvalidTolerance))
}

func TestUnifySurfaces(t *testing.T) {
	teardown := gotestingadapter.RedirectTracing(t)
	defer teardown()
	//
	k := kernel.Default()
	curves := MustUnifyCurves(curveSet()[:3], curvenet.DefaultTolerance(), k)
	s1 := bspline.FromColumns(curves, 2, bspline.KnotVector{0, 0, 0, 1, 1, 1})
	s2 := bspline.FromColumns(curves[:2], 1, bspline.KnotVector{0, 0, 1, 1})
	bilinear := &bspline.Surface{
		DegreeU: 1, DegreeV: 1,
		KnotsU: bspline.KnotVector{0, 0, 0.5, 1, 1},
		KnotsV: bspline.KnotVector{0, 0, 1, 1},
		Control: [][]curvenet.Point{
			{curvenet.P(0, 0, 0), curvenet.P(0, 4, 0)},
			{curvenet.P(2, 0, 1), curvenet.P(2, 4, 1)},
			{curvenet.P(4, 0, 0), curvenet.P(4, 4, 0)},
		},
	}
	surfaces := []*bspline.Surface{s1, s2, bilinear}
	unified, err := UnifySurfaces(surfaces, curvenet.DefaultTolerance(), k)
	require.NoError(t, err)
	assert.True(t, SharesBasis(unified...))
	assert.False(t, SharesBasis(surfaces...))
	for i := range surfaces {
		require.NoError(t, unified[i].Validate())
		assert.Less(t, SurfaceDeviation(k, surfaces[i], unified[i]), 1e-9)
	}
	assert.Equal(t, 3, unified[0].DegreeU)
	assert.Equal(t, 2, unified[0].DegreeV)
}
