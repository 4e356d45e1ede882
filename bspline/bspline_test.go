package bspline

import (
	"errors"
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/npillmayer/curvenet"
	"github.com/npillmayer/schuko/tracing/gotestingadapter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// eval evaluates c at u in Cartesian coordinates.
func eval(c *Curve, u float64) curvenet.Point {
	h := c.pointAt(u, c.Homogeneous())
	d := len(h) - 1
	return h[:d].Scaled(1 / h[d])
}

// sampleDeviation returns the maximum distance of c and d over a dense set
// of parameters of c's domain.
func sampleDeviation(c, d *Curve) float64 {
	a, b := c.Domain()
	dev := 0.0
	for i := 0; i <= 500; i++ {
		u := a + (b-a)*float64(i)/500
		dev = math.Max(dev, eval(c, u).Dist(eval(d, u)))
	}
	return dev
}

func testCurve() *Curve {
	return MustCurve(3,
		KnotVector{0, 0, 0, 0, 0.3, 0.5, 0.5, 1, 1, 1, 1},
		[]curvenet.Point{
			curvenet.P(0, 0, 0), curvenet.P(1, 2, 0), curvenet.P(2, 2, 1), curvenet.P(3, 0, 1),
			curvenet.P(4, -1, 0), curvenet.P(5, 1, 2), curvenet.P(6, 0, 0),
		}, nil)
}

func testRationalCurve() *Curve {
	// quarter circle
	w := math.Sqrt2 / 2
	return MustCurve(2, KnotVector{0, 0, 0, 1, 1, 1},
		[]curvenet.Point{curvenet.P(1, 0), curvenet.P(1, 1), curvenet.P(0, 1)},
		[]float64{1, w, 1})
}

func TestKnotMultiplicities(t *testing.T) {
	teardown := gotestingadapter.RedirectTracing(t)
	defer teardown()
	//
	kv := KnotVector{0, 0, 0, 0.5, 0.5 + 1e-12, 1, 1, 1}
	knots := kv.Multiplicities(1e-10)
	assert.Equal(t, []Knot{{0, 3}, {0.5, 2}, {1, 3}}, knots)
	assert.Equal(t, 2, kv.Multiplicity(0.5, 1e-10))
	assert.True(t, kv.IsClamped(2))
	assert.False(t, kv.IsClamped(3))
	assert.Equal(t, kv.Copy()[:3], FromMultiplicities(knots)[:3])
}

func TestFindSpan(t *testing.T) {
	teardown := gotestingadapter.RedirectTracing(t)
	defer teardown()
	//
	kv := KnotVector{0, 0, 0, 1, 2, 3, 4, 4, 5, 5, 5} // The NURBS Book, Ex. 2.3
	assert.Equal(t, 4, kv.FindSpan(2, 2.5))
	assert.Equal(t, 2, kv.FindSpan(2, 0))
	assert.Equal(t, 7, kv.FindSpan(2, 5))
	assert.Equal(t, 7, kv.FindSpan(2, 4))
	N := kv.BasisFuns(4, 2, 2.5)
	if diff := cmp.Diff([]float64{1.0 / 8, 6.0 / 8, 1.0 / 8}, N, cmpopts.EquateApprox(0, 1e-12)); diff != "" {
		t.Errorf("basis functions mismatch (-want +got):\n%s", diff)
	}
}

func TestDersBasisFunsPartitionOfUnity(t *testing.T) {
	teardown := gotestingadapter.RedirectTracing(t)
	defer teardown()
	//
	kv := KnotVector{0, 0, 0, 0, 0.2, 0.4, 0.7, 1, 1, 1, 1}
	for _, u := range []float64{0, 0.1, 0.35, 0.5, 0.99, 1} {
		span := kv.FindSpan(3, u)
		ders := kv.DersBasisFuns(span, 3, 4, u)
		var s0, s1, s2 float64
		for j := 0; j <= 3; j++ {
			s0 += ders[0][j]
			s1 += ders[1][j]
			s2 += ders[2][j]
			assert.Zero(t, ders[4][j])
		}
		assert.InDelta(t, 1, s0, 1e-12, "u=%g", u)
		assert.InDelta(t, 0, s1, 1e-9, "u=%g", u)
		assert.InDelta(t, 0, s2, 1e-7, "u=%g", u)
	}
}

func TestCurveValidate(t *testing.T) {
	teardown := gotestingadapter.RedirectTracing(t)
	defer teardown()
	//
	_, err := NewCurve(2, KnotVector{0, 0, 1, 1}, []curvenet.Point{curvenet.P(0, 0)}, nil)
	assert.Error(t, err)
	_, err = NewCurve(0, KnotVector{0, 1}, []curvenet.Point{curvenet.P(0, 0)}, nil)
	assert.True(t, errors.Is(err, curvenet.ErrInvalidDegree))
	_, err = NewCurve(1, KnotVector{0, 0, 1, 1}, []curvenet.Point{curvenet.P(0, 0), curvenet.P(1, 0)}, []float64{1, -1})
	assert.True(t, errors.Is(err, curvenet.ErrInvalidGeometry))
	c := testCurve()
	assert.NoError(t, c.Validate())
	assert.Equal(t, 7, c.N())
	assert.Equal(t, 3, c.Dim())
}

func TestInsertKnotExactness(t *testing.T) {
	teardown := gotestingadapter.RedirectTracing(t)
	defer teardown()
	//
	for _, c := range []*Curve{testCurve(), testRationalCurve()} {
		for _, u := range []float64{0.1, 0.3, 0.5, 0.77} {
			for m := 1; m <= c.Degree+1; m++ {
				d, err := InsertKnot(c, u, m)
				require.NoError(t, err)
				require.NoError(t, d.Validate())
				assert.GreaterOrEqual(t, d.Knots.Multiplicity(u, 0), m)
				assert.Less(t, sampleDeviation(c, d), 1e-12, "u=%g, m=%d", u, m)
			}
		}
	}
}

func TestInsertKnotErrors(t *testing.T) {
	teardown := gotestingadapter.RedirectTracing(t)
	defer teardown()
	//
	c := testCurve()
	_, err := InsertKnot(c, 0.4, 5)
	assert.True(t, errors.Is(err, curvenet.ErrInvalidMultiplicity))
	_, err = InsertKnot(c, 1.4, 1)
	assert.True(t, errors.Is(err, curvenet.ErrParameterOutOfRange))
	d, err := InsertKnot(c, 0.5, 1) // already present with multiplicity 2
	require.NoError(t, err)
	assert.Equal(t, c.Knots, d.Knots)
}

func TestElevateDegreeExactness(t *testing.T) {
	teardown := gotestingadapter.RedirectTracing(t)
	defer teardown()
	//
	for _, c := range []*Curve{testCurve(), testRationalCurve()} {
		for q := c.Degree; q <= c.Degree+3; q++ {
			d, err := ElevateDegree(c, q)
			require.NoError(t, err)
			require.NoError(t, d.Validate())
			assert.Equal(t, q, d.Degree)
			assert.Less(t, sampleDeviation(c, d), 1e-9, "q=%d", q)
			// continuity is preserved
			for _, k := range c.Knots.Multiplicities(0) {
				assert.Equal(t, k.Mult+q-c.Degree, d.Knots.Multiplicity(k.Value, 0))
			}
		}
	}
	_, err := ElevateDegree(testCurve(), 2)
	assert.True(t, errors.Is(err, curvenet.ErrInvalidDegree))
	// a break at 0.3 cannot be elevated
	broken, err := InsertKnot(testCurve(), 0.3, 4)
	require.NoError(t, err)
	_, err = ElevateDegree(broken, 4)
	assert.True(t, errors.Is(err, curvenet.ErrInvalidMultiplicity))
}

func TestUnifyKnotVectorsIdempotent(t *testing.T) {
	teardown := gotestingadapter.RedirectTracing(t)
	defer teardown()
	//
	c1 := testCurve()
	c2 := MustCurve(3, KnotVector{0, 0, 0, 0, 0.25, 0.5, 1, 1, 1, 1},
		[]curvenet.Point{
			curvenet.P(0, 1, 0), curvenet.P(1, 1, 0), curvenet.P(2, 3, 1), curvenet.P(3, 1, 1),
			curvenet.P(4, 1, 0), curvenet.P(6, 1, 0),
		}, nil)
	kv, err := UnifyKnotVectors([]*Curve{c1, c2}, 1e-10)
	require.NoError(t, err)
	assert.Equal(t, KnotVector{0, 0, 0, 0, 0.25, 0.3, 0.5, 0.5, 1, 1, 1, 1}, kv)
	r1, err := RefineKnots(c1, kv, 1e-10)
	require.NoError(t, err)
	r2, err := RefineKnots(c2, kv, 1e-10)
	require.NoError(t, err)
	assert.Equal(t, kv, r1.Knots)
	assert.Equal(t, kv, r2.Knots)
	kv2, err := UnifyKnotVectors([]*Curve{r1, r2}, 1e-10)
	require.NoError(t, err)
	assert.Equal(t, kv, kv2)
	assert.Equal(t, kv, MergeKnotVectors(3, 1e-10, kv, kv))
	assert.Less(t, sampleDeviation(c2, r2), 1e-12)
	_, err = UnifyKnotVectors([]*Curve{c1, testRationalCurve()}, 1e-10)
	assert.True(t, errors.Is(err, curvenet.ErrInvalidDegree))
}

func TestReverseAndReparametrize(t *testing.T) {
	teardown := gotestingadapter.RedirectTracing(t)
	defer teardown()
	//
	c := testCurve()
	r := c.Reversed()
	for _, u := range []float64{0, 0.2, 0.5, 0.9, 1} {
		assert.True(t, eval(c, u).Dist(eval(r, 1-u)) < 1e-12)
	}
	s := c.Reparametrized(2, 6)
	a, b := s.Domain()
	assert.Equal(t, 2.0, a)
	assert.Equal(t, 6.0, b)
	assert.True(t, eval(c, 0.25).Dist(eval(s, 3)) < 1e-12)
}

func TestPeriodicClamped(t *testing.T) {
	teardown := gotestingadapter.RedirectTracing(t)
	defer teardown()
	//
	// uniform periodic cubic through a square's corners
	pts := []curvenet.Point{curvenet.P(1, 0), curvenet.P(0, 1), curvenet.P(-1, 0), curvenet.P(0, -1)}
	ctrl := append(append([]curvenet.Point{}, pts...), pts[0], pts[1], pts[2])
	kv := make(KnotVector, len(ctrl)+4)
	for i := range kv {
		kv[i] = float64(i - 3)
	}
	c := &Curve{Degree: 3, Knots: kv, Control: ctrl, Periodic: true}
	require.NoError(t, c.Validate())
	a, b := c.Domain()
	assert.Equal(t, 0.0, a)
	assert.Equal(t, 4.0, b)
	d, err := c.Clamped()
	require.NoError(t, err)
	require.NoError(t, d.Validate())
	assert.False(t, d.Periodic)
	assert.Less(t, sampleDeviation(c, d), 1e-9)
	assert.True(t, d.IsClosed(1e-9))
}

func TestLinspaceWithBreaks(t *testing.T) {
	teardown := gotestingadapter.RedirectTracing(t)
	defer teardown()
	//
	v := LinspaceWithBreaks(0, 1, 11, []float64{0.31, 0.45})
	assert.Len(t, v, 12)
	assert.Contains(t, v, 0.31)
	assert.Contains(t, v, 0.45)
	assert.NotContains(t, v, 0.3)
	for i := 1; i < len(v); i++ {
		assert.Less(t, v[i-1], v[i])
	}
}

func TestSurfaceOperations(t *testing.T) {
	teardown := gotestingadapter.RedirectTracing(t)
	defer teardown()
	//
	c := testCurve()
	cols := []*Curve{c, c.Reparametrized(0, 1)}
	for j := range cols[1].Control {
		cols[1].Control[j] = cols[1].Control[j].Add(curvenet.P(0, 0, 3))
	}
	s := FromColumns(cols, 1, KnotVector{0, 0, 1, 1})
	require.NoError(t, s.Validate())
	e, err := ElevateDegreeV(s, 3)
	require.NoError(t, err)
	require.NoError(t, e.Validate())
	assert.Equal(t, 3, e.DegreeV)
	k, err := InsertKnotU(e, 0.6, 2)
	require.NoError(t, err)
	require.NoError(t, k.Validate())
	nu, nv := k.Dims()
	assert.Equal(t, 9, nu)
	assert.Equal(t, 4, nv)
	tt := k.Transposed()
	assert.Equal(t, k.KnotsU, tt.KnotsV)
	// the first column still is the original curve
	assert.Less(t, sampleDeviation(c, k.IsoCurveV(0)), 1e-9)
}

func TestSurfaceValidateWeights(t *testing.T) {
	teardown := gotestingadapter.RedirectTracing(t)
	defer teardown()
	//
	c := testRationalCurve()
	s := FromColumns([]*Curve{c, c.Clone()}, 1, KnotVector{0, 0, 1, 1})
	require.NoError(t, s.Validate())
	short := s.Clone()
	short.Weights = short.Weights[:1]
	var err error
	assert.NotPanics(t, func() { err = short.Validate() })
	assert.True(t, errors.Is(err, curvenet.ErrInvalidGeometry))
	ragged := s.Clone()
	ragged.Weights[2] = ragged.Weights[2][:1]
	assert.True(t, errors.Is(ragged.Validate(), curvenet.ErrInvalidGeometry))
}
