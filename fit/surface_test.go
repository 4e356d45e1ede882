package fit

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

func saddle(nu, nv int, f func(x, y float64) float64) [][]curvenet.Point {
	grid := make([][]curvenet.Point, nu)
	for i := range grid {
		grid[i] = make([]curvenet.Point, nv)
		for j := range grid[i] {
			x, y := 2*float64(i)/float64(nu-1), 2*float64(j)/float64(nv-1)
			grid[i][j] = curvenet.P(x, y, f(x, y))
		}
	}
	return grid
}

func TestFitSurfaceInterpolation(t *testing.T) {
	teardown := gotestingadapter.RedirectTracing(t)
	defer teardown()
	//
	grid := saddle(5, 4, func(x, y float64) float64 { return x*x - y*y })
	fit, err := FitSurface(grid, Interpolation, DefaultParams())
	require.NoError(t, err)
	assert.Less(t, fit.Deviation, 1e-9)
	assert.Equal(t, 3, fit.Surface.DegreeU)
	assert.Equal(t, 3, fit.Surface.DegreeV)
	nu, nv := fit.Surface.Dims()
	assert.Equal(t, 5, nu)
	assert.Equal(t, 4, nv)
	_, err = FitSurface(grid[:1], Interpolation, DefaultParams())
	assert.True(t, errors.Is(err, curvenet.ErrUnderdeterminedSystem))
}

func TestFitSurfaceApproximation(t *testing.T) {
	teardown := gotestingadapter.RedirectTracing(t)
	defer teardown()
	//
	grid := saddle(25, 25, func(x, y float64) float64 { return math.Sin(x) * math.Cos(y) })
	params := DefaultParams()
	params.Tolerance = curvenet.DefaultTolerance().WithTol3D(1e-3)
	fit, err := FitSurface(grid, Approximation, params)
	require.NoError(t, err)
	assert.LessOrEqual(t, fit.Deviation, 1e-3)
	nu, nv := fit.Surface.Dims()
	assert.Less(t, nu, 25)
	assert.Less(t, nv, 25)
	require.NoError(t, fit.Surface.Validate())
}

func arc(r, z float64) *bspline.Curve {
	w := math.Sqrt2 / 2
	return bspline.MustCurve(2, bspline.KnotVector{0, 0, 0, 1, 1, 1},
		[]curvenet.Point{curvenet.P(r, 0, z), curvenet.P(r, r, z), curvenet.P(0, r, z)},
		[]float64{1, w, 1})
}

func TestSkinRationalCurves(t *testing.T) {
	teardown := gotestingadapter.RedirectTracing(t)
	defer teardown()
	//
	k := kernel.Default()
	curves := []*bspline.Curve{arc(1, 0), arc(2, 1), arc(1.5, 2)}
	vParams := []float64{0, 0.4, 1}
	s, err := SkinCurves(curves, vParams, false, DefaultParams())
	require.NoError(t, err)
	assert.True(t, s.IsRational())
	assert.Equal(t, 2, s.DegreeV)
	for i, c := range curves {
		for j := 0; j <= 20; j++ {
			u := float64(j) / 20
			assert.Less(t, k.SurfacePoint(s, u, vParams[i]).Dist(k.CurvePoint(c, u)), 1e-9)
		}
	}
	_, err = SkinCurves(curves[:1], vParams[:1], false, DefaultParams())
	assert.True(t, errors.Is(err, curvenet.ErrUnderdeterminedSystem))
}

func TestSkinClosedFamily(t *testing.T) {
	teardown := gotestingadapter.RedirectTracing(t)
	defer teardown()
	//
	k := kernel.Default()
	var curves []*bspline.Curve
	for i := 0; i < 4; i++ {
		a := float64(i) * math.Pi / 2
		curves = append(curves, bspline.Bezier(
			curvenet.P(math.Cos(a), math.Sin(a), 0),
			curvenet.P(math.Cos(a), math.Sin(a), 1)))
	}
	vParams := []float64{0, 0.25, 0.5, 0.75, 1}
	s, err := SkinCurves(curves, vParams, true, DefaultParams())
	require.NoError(t, err)
	assert.False(t, s.PeriodicV)
	for j := 0; j <= 10; j++ {
		u := float64(j) / 10
		for i, c := range curves {
			assert.Less(t, k.SurfacePoint(s, u, vParams[i]).Dist(k.CurvePoint(c, u)), 1e-9)
		}
		assert.Less(t, k.SurfacePoint(s, u, 0).Dist(k.SurfacePoint(s, u, 1)), 1e-9)
		// the seam is smooth
		d0 := k.SurfaceDerivatives(s, u, 0, 1)[0][1]
		d1 := k.SurfaceDerivatives(s, u, 1, 1)[0][1]
		assert.Less(t, d0.Dist(d1), 1e-6)
	}
}

func TestFitSurfaceToCurves(t *testing.T) {
	teardown := gotestingadapter.RedirectTracing(t)
	defer teardown()
	//
	var curves []*bspline.Curve
	for i := 0; i < 6; i++ {
		y := float64(i)
		curves = append(curves, bspline.Bezier(
			curvenet.P(0, y, 0), curvenet.P(1, y, math.Sin(y)), curvenet.P(2, y, 0)))
	}
	fit, err := FitSurfaceToCurves(curves, Interpolation, DefaultParams())
	require.NoError(t, err)
	assert.Less(t, fit.Deviation, 1e-9)
	fit, err = FitSurfaceToCurves(curves, Approximation, DefaultParams())
	require.NoError(t, err)
	assert.LessOrEqual(t, fit.Deviation, curvenet.DefaultTolerance().Tol3D)
	assert.Len(t, fit.VParams, 6)
}
