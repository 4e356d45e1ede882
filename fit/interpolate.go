package fit

import (
	"errors"
	"fmt"
	"math"

	"github.com/npillmayer/curvenet"
	"github.com/npillmayer/curvenet/bspline"
	"gonum.org/v1/gonum/mat"
)

// InterpolationOptions control Interpolate.
type InterpolationOptions struct {
	// Degree of the interpolant. 0 selects min(3, n-1) for n distinct points.
	Degree int
	// Parametrization is used if Parameters is nil.
	Parametrization Parametrization
	// Parameters are explicit, strictly increasing parameters. For periodic
	// interpolation there must be one more parameter than distinct points,
	// the last one closing the period.
	Parameters []float64
	// Periodic requests a closed curve with continuity of order degree-1
	// across the seam. A last point equal to the first one is dropped.
	Periodic bool
	// ScaleTangents replaces the magnitude of every given tangent by the
	// total chord length of the points, measured per unit of parameter.
	ScaleTangents bool
}

// Interpolate computes a curve through all points. tangents may be nil or
// have one entry per point, where nil entries leave the derivative free.
// Interpolate returns the curve together with the parameter assigned to
// every point.
//
// Tangent constraints are supported for open curves only.
func Interpolate(points, tangents []curvenet.Point, opts InterpolationOptions) (*bspline.Curve, []float64, error) {
	if opts.Periodic {
		for _, t := range tangents {
			if t != nil {
				return nil, nil, fmt.Errorf("%w: tangent constraints on periodic interpolation",
					curvenet.ErrInvalidGeometry)
			}
		}
		return interpolatePeriodic(points, opts)
	}
	return interpolateOpen(points, tangents, opts)
}

func interpolateOpen(points, tangents []curvenet.Point, opts InterpolationOptions) (*bspline.Curve, []float64, error) {
	n := len(points)
	if tangents != nil && len(tangents) != n {
		return nil, nil, fmt.Errorf("%w: %d tangents for %d points", curvenet.ErrInvalidGeometry, len(tangents), n)
	}
	nt := 0
	for _, t := range tangents {
		if t != nil {
			nt++
		}
	}
	if n < 2 {
		return nil, nil, fmt.Errorf("%w: cannot interpolate %d point(s)", curvenet.ErrUnderdeterminedSystem, n)
	}
	p := opts.Degree
	if p == 0 {
		p = min(3, n-1)
		if nt > 0 {
			p = max(p, min(3, n+nt-1))
		}
	}
	if p < 1 {
		return nil, nil, fmt.Errorf("%w: degree %d", curvenet.ErrInvalidDegree, p)
	}
	if nt > 0 && p < 2 {
		return nil, nil, fmt.Errorf("%w: tangent constraints need degree ≥ 2", curvenet.ErrInvalidDegree)
	}
	m := n + nt
	if m < p+1 {
		return nil, nil, fmt.Errorf("%w: %d conditions for degree %d", curvenet.ErrUnderdeterminedSystem, m, p)
	}
	params := opts.Parameters
	if params == nil {
		params = Parameters(points, opts.Parametrization)
		if !strictlyIncreasing(params) {
			return nil, nil, fmt.Errorf("%w: coincident consecutive points", curvenet.ErrInvalidGeometry)
		}
	} else if err := checkParameters(params, n); err != nil {
		return nil, nil, err
	}
	// every parameter carrying a tangent counts twice for knot averaging
	ext := make([]float64, 0, m)
	for i, t := range params {
		ext = append(ext, t)
		if tangents != nil && tangents[i] != nil {
			ext = append(ext, t)
		}
	}
	kv := averagedKnots(ext, p)
	scale := 1.0
	if opts.ScaleTangents {
		chord := 0.0
		for i := 1; i < n; i++ {
			chord += points[i].Dist(points[i-1])
		}
		scale = chord / (params[n-1] - params[0])
	}
	dim := points[0].Dim()
	A := mat.NewDense(m, m, nil)
	B := mat.NewDense(m, dim, nil)
	row := 0
	for i, t := range params {
		span := kv.FindSpan(p, t)
		N := kv.BasisFuns(span, p, t)
		for j := 0; j <= p; j++ {
			A.Set(row, span-p+j, N[j])
		}
		B.SetRow(row, points[i])
		row++
		if tangents == nil || tangents[i] == nil {
			continue
		}
		ders := kv.DersBasisFuns(span, p, 1, t)
		for j := 0; j <= p; j++ {
			A.Set(row, span-p+j, ders[1][j])
		}
		tan := tangents[i]
		if opts.ScaleTangents {
			tan = tan.Normalized().Scaled(scale)
		}
		B.SetRow(row, tan)
		row++
	}
	var X mat.Dense
	if err := solve(&X, A, B); err != nil {
		return nil, nil, err
	}
	c, err := bspline.NewCurve(p, kv, rowsToPoints(&X, 0, m, 0, dim), nil)
	if err != nil {
		return nil, nil, err
	}
	tracer().Debugf("interpolated %d points (%d tangents) with degree %d", n, nt, p)
	return c, append([]float64(nil), params...), nil
}

// averagedKnots places the interior knots of a clamped curve at running
// averages of p consecutive parameters.
func averagedKnots(params []float64, p int) bspline.KnotVector {
	m := len(params)
	kv := make(bspline.KnotVector, 0, m+p+1)
	for i := 0; i <= p; i++ {
		kv = append(kv, params[0])
	}
	for j := 1; j <= m-p-1; j++ {
		s := 0.0
		for i := j; i < j+p; i++ {
			s += params[i]
		}
		kv = append(kv, s/float64(p))
	}
	for i := 0; i <= p; i++ {
		kv = append(kv, params[m-1])
	}
	return kv
}

func interpolatePeriodic(points []curvenet.Point, opts InterpolationOptions) (*bspline.Curve, []float64, error) {
	pts := points
	if len(pts) > 2 && pts[0].Dist(pts[len(pts)-1]) <= curvenet.Epsilon*math.Max(1, curvenet.BoundingDiagonal(pts)) {
		pts = pts[:len(pts)-1]
	}
	n := len(pts)
	p := opts.Degree
	if p == 0 {
		p = min(3, n-1)
	}
	if p < 1 {
		return nil, nil, fmt.Errorf("%w: degree %d", curvenet.ErrInvalidDegree, p)
	}
	if n < 3 || n < p+1 {
		return nil, nil, fmt.Errorf("%w: %d points for a periodic curve of degree %d",
			curvenet.ErrUnderdeterminedSystem, n, p)
	}
	params := opts.Parameters
	if params == nil {
		params = ClosedParameters(pts, opts.Parametrization)
		if !strictlyIncreasing(params) {
			return nil, nil, fmt.Errorf("%w: coincident consecutive points", curvenet.ErrInvalidGeometry)
		}
	} else if err := checkParameters(params, n+1); err != nil {
		return nil, nil, err
	}
	period := params[n] - params[0]
	// breakpoints at the parameters for odd degree, between them for even
	// degree, keeping the collocation matrix well conditioned
	s := make([]float64, n+1)
	for i := 0; i < n; i++ {
		if p%2 == 1 {
			s[i] = params[i]
		} else {
			s[i] = (params[i] + params[i+1]) / 2
		}
	}
	s[n] = s[0] + period
	at := func(i int) float64 {
		q, r := i/n, i%n
		if r < 0 {
			q, r = q-1, r+n
		}
		return s[r] + float64(q)*period
	}
	kv := make(bspline.KnotVector, n+2*p+1)
	for j := range kv {
		kv[j] = at(j - p)
	}
	dim := pts[0].Dim()
	A := mat.NewDense(n, n, nil)
	B := mat.NewDense(n, dim, nil)
	for k := 0; k < n; k++ {
		t := params[k]
		for t < s[0] {
			t += period
		}
		for t >= s[n] {
			t -= period
		}
		span := kv.FindSpan(p, t)
		N := kv.BasisFuns(span, p, t)
		for j := 0; j <= p; j++ {
			col := (span - p + j) % n
			A.Set(k, col, A.At(k, col)+N[j])
		}
		B.SetRow(k, pts[k])
	}
	var X mat.Dense
	if err := solve(&X, A, B); err != nil {
		return nil, nil, err
	}
	ctrl := rowsToPoints(&X, 0, n, 0, dim)
	for j := 0; j < p; j++ {
		ctrl = append(ctrl, ctrl[j].Copy())
	}
	c := &bspline.Curve{Degree: p, Knots: kv, Control: ctrl, Periodic: true}
	if err := c.Validate(); err != nil {
		return nil, nil, err
	}
	tracer().Debugf("interpolated %d points periodically with degree %d", n, p)
	return c, append([]float64(nil), params...), nil
}

// solve wraps mat.Dense.Solve. Ill-conditioned systems are traced but
// accepted, exactly singular systems are reported as ErrSingularSystem.
func solve(X *mat.Dense, A, B mat.Matrix) error {
	err := X.Solve(A, B)
	if err == nil {
		return nil
	}
	var cond mat.Condition
	if errors.As(err, &cond) && !math.IsInf(float64(cond), 1) {
		tracer().Infof("fitting system is ill-conditioned: %v", err)
		return nil
	}
	return fmt.Errorf("%w: %v", curvenet.ErrSingularSystem, err)
}

// rowsToPoints extracts rows [r0,r1) and columns [c0,c1) of X as points.
func rowsToPoints(X *mat.Dense, r0, r1, c0, c1 int) []curvenet.Point {
	pts := make([]curvenet.Point, r1-r0)
	for i := r0; i < r1; i++ {
		pt := make(curvenet.Point, c1-c0)
		for d := c0; d < c1; d++ {
			pt[d-c0] = X.At(i, d)
		}
		pts[i-r0] = pt
	}
	return pts
}

func strictlyIncreasing(t []float64) bool {
	for i := 1; i < len(t); i++ {
		if !(t[i] > t[i-1]) {
			return false
		}
	}
	return true
}
