package gordon

import (
	"errors"
	"fmt"
	"testing"

	"github.com/npillmayer/curvenet"
	"github.com/npillmayer/curvenet/bspline"
	"github.com/npillmayer/curvenet/compat"
	"github.com/npillmayer/curvenet/kernel"
	"github.com/npillmayer/curvenet/network"
	"github.com/npillmayer/schuko/tracing/gotestingadapter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// The dome z = x(2-x)·(1 + y(2-y)/4) over [0,2]², sliced at x,y ∈ {0,1,2}.
func domeProfile(y float64) *bspline.Curve {
	g := 1 + y*(2-y)/4
	return bspline.Bezier(curvenet.P(0, y, 0), curvenet.P(1, y, 2*g), curvenet.P(2, y, 0))
}

func domeGuide(x float64) *bspline.Curve {
	c := x * (2 - x)
	return bspline.Bezier(curvenet.P(x, 0, c), curvenet.P(x, 1, 1.5*c), curvenet.P(x, 2, c))
}

func dome(x, y float64) curvenet.Point {
	return curvenet.P(x, y, x*(2-x)*(1+y*(2-y)/4))
}

func domeNetwork() ([]*bspline.Curve, []*bspline.Curve) {
	return []*bspline.Curve{domeProfile(0), domeProfile(1), domeProfile(2)},
		[]*bspline.Curve{domeGuide(0), domeGuide(1), domeGuide(2)}
}

func TestBuildGordonSurface(t *testing.T) {
	teardown := gotestingadapter.RedirectTracing(t)
	defer teardown()
	//
	k := kernel.Default()
	profiles, guides := domeNetwork()
	s, err := BuildGordonSurface(profiles, guides, curvenet.DefaultTolerance())
	require.NoError(t, err)
	require.NoError(t, s.Validate())
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			u, v := float64(j)/2, float64(i)/2
			want := dome(float64(j), float64(i))
			assert.Less(t, k.SurfacePoint(s, u, v).Dist(want), 1e-5, "intersection %d/%d", i, j)
		}
	}
	// the dome is biquadratic and is reproduced between the curves
	for _, u := range []float64{0.1, 0.3, 0.7} {
		for _, v := range []float64{0.2, 0.45, 0.9} {
			assert.Less(t, k.SurfacePoint(s, u, v).Dist(dome(2*u, 2*v)), 1e-4)
		}
	}
}

func TestCombinationInvariant(t *testing.T) {
	teardown := gotestingadapter.RedirectTracing(t)
	defer teardown()
	//
	k := kernel.Default()
	profiles, guides := domeNetwork()
	b, err := NewBuilder(curvenet.DefaultTolerance(), k)
	require.NoError(t, err)
	r, err := b.Build(network.New().Profile(profiles...).Guide(guides...))
	require.NoError(t, err)
	assert.True(t, compat.SharesBasis(r.Surface, r.ProfileSkin, r.GuideSkin, r.Tensor))
	assert.False(t, r.ClosedU)
	assert.False(t, r.ClosedV)
	m := r.Network
	for i := range m.Profiles {
		for j := range m.Guides {
			x := k.SurfacePoint(r.Surface, m.ParamsU[j], m.ParamsV[i])
			assert.Less(t, x.Dist(m.Points[i][j]), b.Tolerance().Tol3D)
			// every operand passes through the intersection point
			for _, op := range []*bspline.Surface{r.ProfileSkin, r.GuideSkin, r.Tensor} {
				assert.Less(t, k.SurfacePoint(op, m.ParamsU[j], m.ParamsV[i]).Dist(m.Points[i][j]), 1e-5)
			}
		}
	}
	// the profile skin reproduces the profiles along u
	for i, p := range m.Profiles {
		for _, u := range []float64{0.15, 0.6} {
			assert.Less(t, k.SurfacePoint(r.Surface, u, m.ParamsV[i]).Dist(k.CurvePoint(p, u)), 1e-5)
		}
	}
}

func TestDegenerateNetwork(t *testing.T) {
	teardown := gotestingadapter.RedirectTracing(t)
	defer teardown()
	//
	_, guides := domeNetwork()
	_, err := BuildGordonSurface([]*bspline.Curve{domeProfile(1)}, guides, curvenet.DefaultTolerance())
	assert.True(t, errors.Is(err, curvenet.ErrDegenerateNetwork))
	_, err = BuildGordonSurface(guides, nil, curvenet.DefaultTolerance())
	assert.True(t, errors.Is(err, curvenet.ErrDegenerateNetwork))
	_, err = BuildGordonSurface(guides, guides, curvenet.Tolerance{})
	assert.True(t, errors.Is(err, curvenet.ErrInvalidTolerance))
}

func TestInconsistentNetwork(t *testing.T) {
	teardown := gotestingadapter.RedirectTracing(t)
	defer teardown()
	//
	var profiles []*bspline.Curve
	for y := 0.0; y <= 2; y++ {
		profiles = append(profiles, bspline.Polyline(curvenet.P(0, y, 0), curvenet.P(2, y, 0)))
	}
	// the middle guide visits the last profile before the middle one
	guides := []*bspline.Curve{
		bspline.Polyline(curvenet.P(0, 0, 0), curvenet.P(0, 2, 0)),
		bspline.Polyline(curvenet.P(1, 0, 0), curvenet.P(1, 1, 1), curvenet.P(1, 2, 0), curvenet.P(1, 1, 0)),
		bspline.Polyline(curvenet.P(2, 0, 0), curvenet.P(2, 2, 0)),
	}
	_, err := BuildGordonSurface(profiles, guides, curvenet.DefaultTolerance())
	assert.True(t, errors.Is(err, curvenet.ErrInconsistentNetwork), "error is %v", err)
}

func TestCheckConsistency(t *testing.T) {
	teardown := gotestingadapter.RedirectTracing(t)
	defer teardown()
	//
	b, err := NewBuilder(curvenet.DefaultTolerance(), nil)
	require.NoError(t, err)
	profiles, guides := domeNetwork()
	m := &network.Matched{
		Profiles: profiles,
		Guides:   guides,
		ParamsU:  []float64{0, 0.5, 1},
		ParamsV:  []float64{0, 0.5, 1},
	}
	require.NoError(t, b.checkConsistency(m))
	m.ParamsV = []float64{0, 0.4, 1}
	assert.True(t, errors.Is(b.checkConsistency(m), curvenet.ErrInconsistentNetwork))
}

func TestClosedDirections(t *testing.T) {
	teardown := gotestingadapter.RedirectTracing(t)
	defer teardown()
	//
	b, err := NewBuilder(curvenet.DefaultTolerance(), nil)
	require.NoError(t, err)
	corners := []curvenet.Point{curvenet.P(0, 0), curvenet.P(1, 0), curvenet.P(1, 1), curvenet.P(0, 1), curvenet.P(0, 0)}
	m := &network.Matched{}
	for z := 0.0; z <= 1; z++ {
		var square []curvenet.Point
		for _, c := range corners {
			square = append(square, curvenet.P(c[0], c[1], z))
		}
		m.Profiles = append(m.Profiles, bspline.Polyline(square...))
		m.Points = append(m.Points, square)
	}
	for _, c := range corners {
		m.Guides = append(m.Guides, bspline.Polyline(curvenet.P(c[0], c[1], 0), curvenet.P(c[0], c[1], 1)))
	}
	closedU, closedV := b.closedDirections(m)
	assert.True(t, closedU)
	assert.False(t, closedV)
}

func TestUnifiedTriple(t *testing.T) {
	teardown := gotestingadapter.RedirectTracing(t)
	defer teardown()
	//
	k := kernel.Default()
	bilinear := func(z00, z10, z01, z11 float64) *bspline.Surface {
		return &bspline.Surface{
			DegreeU: 1, DegreeV: 1,
			KnotsU: bspline.KnotVector{0, 0, 1, 1},
			KnotsV: bspline.KnotVector{0, 0, 1, 1},
			Control: [][]curvenet.Point{
				{curvenet.P(0, 0, z00), curvenet.P(0, 1, z01)},
				{curvenet.P(1, 0, z10), curvenet.P(1, 1, z11)},
			},
		}
	}
	su := bilinear(0, 1, 0, 1)
	sv := bilinear(0, 0, 2, 2)
	suv := bilinear(0, 0, 0, 0)
	// a biquadratic operand forces elevation of the other two
	quad, err := bspline.ElevateDegreeU(suv, 2)
	require.NoError(t, err)
	triple, err := Unify(su, sv, quad, curvenet.DefaultTolerance(), k)
	require.NoError(t, err)
	s, err := triple.Combine()
	require.NoError(t, err)
	assert.Equal(t, 2, s.DegreeU)
	assert.True(t, compat.SharesBasis(triple.Operands()))
	for _, u := range []float64{0, 0.3, 1} {
		for _, v := range []float64{0, 0.6, 1} {
			want := curvenet.P(u, v, u+2*v)
			assert.Less(t, k.SurfacePoint(s, u, v).Dist(want), 1e-9)
		}
	}
	_, err = (&UnifiedTriple{}).Combine()
	assert.True(t, errors.Is(err, curvenet.ErrCompatibility))
	rational := bilinear(0, 0, 0, 0)
	rational.Weights = [][]float64{{1, 2}, {1, 1}}
	_, err = Unify(su, sv, rational, curvenet.DefaultTolerance(), k)
	assert.True(t, errors.Is(err, curvenet.ErrCompatibility))
}

func TestSkin(t *testing.T) {
	teardown := gotestingadapter.RedirectTracing(t)
	defer teardown()
	//
	k := kernel.Default()
	b, err := NewBuilder(curvenet.DefaultTolerance(), nil)
	require.NoError(t, err)
	profiles, _ := domeNetwork()
	s, err := b.Skin(profiles, nil)
	require.NoError(t, err)
	_, _, v0, v1 := s.Domain()
	assert.Equal(t, 0.0, v0)
	assert.Equal(t, 1.0, v1)
	assert.Less(t, k.SurfacePoint(s, 0.5, 0).Dist(dome(1, 0)), 1e-9)
	assert.Less(t, k.SurfacePoint(s, 0.5, 1).Dist(dome(1, 2)), 1e-9)
	_, err = b.Skin(profiles[:1], nil)
	assert.True(t, errors.Is(err, curvenet.ErrDegenerateNetwork))
}

func ExampleBuildGordonSurface() {
	profiles, guides := domeNetwork()
	s, err := BuildGordonSurface(profiles, guides, curvenet.DefaultTolerance())
	if err != nil {
		fmt.Println(err)
		return
	}
	top := kernel.Default().SurfacePoint(s, 0.5, 0.5)
	fmt.Printf("apex at (%.3f, %.3f, %.3f)\n", top[0], top[1], top[2])
	// Output: apex at (1.000, 1.000, 1.250)
}
