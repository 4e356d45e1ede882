package fit

import (
	"errors"
	"fmt"
	"math"
	"slices"

	"github.com/npillmayer/curvenet"
	"github.com/npillmayer/curvenet/bspline"
	"github.com/npillmayer/curvenet/kernel"
	"gonum.org/v1/gonum/integrate/quad"
	"gonum.org/v1/gonum/mat"
)

// Smoothing holds the weights of the smoothing terms of the approximation
// objective. Weights are relative to the data term: a weight of 1 gives the
// integral term about the same influence as the sum of squared errors.
type Smoothing struct {
	Length    float64 `yaml:"length" validate:"gte=0"`
	Curvature float64 `yaml:"curvature" validate:"gte=0"`
	Torsion   float64 `yaml:"torsion" validate:"gte=0"`
}

// IsZero is a predicate: are all smoothing weights zero?
func (s Smoothing) IsZero() bool {
	return s.Length == 0 && s.Curvature == 0 && s.Torsion == 0
}

func (s Smoothing) weight(order int) float64 {
	switch order {
	case 1:
		return s.Length
	case 2:
		return s.Curvature
	case 3:
		return s.Torsion
	}
	return 0
}

// CurveFit is the result of fitting a curve to points.
type CurveFit struct {
	Curve      *bspline.Curve
	Parameters []float64 // parameter assigned to every input point
	Deviation  float64   // max |Pₖ − C(tₖ)|
	Degree     int
	Segments   int // number of non-empty knot spans
}

// problem is a constrained least-squares problem for fixed degree and knots.
// values may hold several concatenated points per parameter, for fitting a
// family of curves on one basis.
type problem struct {
	degree    int
	knots     bspline.KnotVector
	params    []float64
	values    []curvenet.Point
	interp    []bool // values to hit exactly
	closed    bool   // join the ends with continuity up to C2
	smoothing Smoothing
}

// solve computes the control points of the problem. Constraints are
// enforced by Lagrange multipliers, i.e. by solving the KKT system
//
//	⎡ AᵀA + S   Cᵀ ⎤ ⎡ Q ⎤   ⎡ AᵀP ⎤
//	⎣    C      0  ⎦ ⎣ λ ⎦ = ⎣  D  ⎦
func (pb *problem) solve() ([]curvenet.Point, error) {
	p, kv := pb.degree, pb.knots
	ncp := len(kv) - p - 1
	dim := len(pb.values[0])
	var interp, approx []int
	for k := range pb.values {
		if pb.interp != nil && pb.interp[k] {
			interp = append(interp, k)
		} else {
			approx = append(approx, k)
		}
	}
	a, b := kv.Domain(p)
	var orders []int
	if pb.closed {
		first := pb.interp != nil && pb.interp[0]
		last := pb.interp != nil && pb.interp[len(pb.values)-1]
		for d := 0; d <= min(2, p-1); d++ {
			if d == 0 && first && last {
				continue // C0 holds by interpolation
			}
			orders = append(orders, d)
		}
	}
	nc := len(interp) + len(orders)
	if nc > ncp {
		return nil, fmt.Errorf("%w: %d constraints for %d control points",
			curvenet.ErrUnderdeterminedSystem, nc, ncp)
	}
	if pb.smoothing.IsZero() && len(approx)+nc < ncp {
		return nil, fmt.Errorf("%w: %d points for %d control points",
			curvenet.ErrUnderdeterminedSystem, len(pb.values), ncp)
	}
	K := mat.NewDense(ncp+nc, ncp+nc, nil)
	R := mat.NewDense(ncp+nc, dim, nil)
	for _, k := range approx {
		span, N := kv.BasisRow(p, pb.params[k])
		for i := 0; i <= p; i++ {
			r := span - p + i
			for j := 0; j <= p; j++ {
				c := span - p + j
				K.Set(r, c, K.At(r, c)+N[i]*N[j])
			}
			for d := 0; d < dim; d++ {
				R.Set(r, d, R.At(r, d)+N[i]*pb.values[k][d])
			}
		}
	}
	if !pb.smoothing.IsZero() {
		trace := 0.0
		for i := 0; i < ncp; i++ {
			trace += K.At(i, i)
		}
		for order := 1; order <= 3; order++ {
			w := pb.smoothing.weight(order)
			if w == 0 || order > p {
				continue
			}
			G := gramMatrix(kv, p, order)
			if gt := mat.Trace(G); gt > 0 && trace > 0 {
				w *= trace / gt
			}
			for i := 0; i < ncp; i++ {
				for j := 0; j < ncp; j++ {
					K.Set(i, j, K.At(i, j)+w*G.At(i, j))
				}
			}
		}
	}
	row := ncp
	for _, k := range interp {
		span, N := kv.BasisRow(p, pb.params[k])
		for j := 0; j <= p; j++ {
			K.Set(row, span-p+j, N[j])
			K.Set(span-p+j, row, N[j])
		}
		R.SetRow(row, pb.values[k])
		row++
	}
	if len(orders) > 0 {
		sa, sb := kv.FindSpan(p, a), kv.FindSpan(p, b)
		da := kv.DersBasisFuns(sa, p, 2, a)
		db := kv.DersBasisFuns(sb, p, 2, b)
		for _, d := range orders {
			for j := 0; j <= p; j++ {
				K.Set(row, sa-p+j, K.At(row, sa-p+j)+da[d][j])
				K.Set(row, sb-p+j, K.At(row, sb-p+j)-db[d][j])
			}
			for j := 0; j < ncp; j++ {
				K.Set(j, row, K.At(row, j))
			}
			row++
		}
	}
	var X mat.Dense
	if err := solve(&X, K, R); err != nil {
		return nil, err
	}
	return rowsToPoints(&X, 0, ncp, 0, dim), nil
}

// gramMatrix computes Gᵢⱼ = ∫ Nᵢ⁽ᵈ⁾(t) Nⱼ⁽ᵈ⁾(t) dt over the domain of kv by
// Gauss-Legendre quadrature, which is exact for the polynomial integrand
// on every span.
func gramMatrix(kv bspline.KnotVector, p, d int) *mat.Dense {
	ncp := len(kv) - p - 1
	G := mat.NewDense(ncp, ncp, nil)
	nq := p - d + 1
	xs, ws := make([]float64, nq), make([]float64, nq)
	for span := p; span < ncp; span++ {
		if !(kv[span+1] > kv[span]) {
			continue
		}
		quad.Legendre{}.FixedLocations(xs, ws, kv[span], kv[span+1])
		for q, x := range xs {
			ders := kv.DersBasisFuns(span, p, d, x)
			for i := 0; i <= p; i++ {
				for j := 0; j <= p; j++ {
					r, c := span-p+i, span-p+j
					G.Set(r, c, G.At(r, c)+ws[q]*ders[d][i]*ders[d][j])
				}
			}
		}
	}
	return G
}

// approximationKnots places ncp-p-1 interior knots such that every span
// receives data, following Piegl & Tiller eq. (9.68). Kink parameters get
// multiplicity p, increasing the number of control points.
func approximationKnots(params []float64, p, ncp int, kinks []float64) bspline.KnotVector {
	m := len(params)
	a, b := params[0], params[m-1]
	nInt := ncp - p - 1
	interior := make([]float64, 0, nInt+p*len(kinks))
	if m >= ncp {
		d := float64(m) / float64(ncp-p)
		for j := 1; j <= nInt; j++ {
			i := int(float64(j) * d)
			alpha := float64(j)*d - float64(i)
			interior = append(interior, (1-alpha)*params[i-1]+alpha*params[i])
		}
	}
	if !spaced(a, b, interior, nInt) {
		interior = interior[:0]
		for j := 1; j <= nInt; j++ {
			interior = append(interior, a+(b-a)*float64(j)/float64(ncp-p))
		}
	}
	eps := 1e-6 * (b - a)
	for _, k := range kinks {
		if k <= a+eps || k >= b-eps {
			continue
		}
		interior = slices.DeleteFunc(interior, func(u float64) bool { return math.Abs(u-k) <= eps })
		for i := 0; i < p; i++ {
			interior = append(interior, k)
		}
	}
	slices.Sort(interior)
	kv := make(bspline.KnotVector, 0, len(interior)+2*p+2)
	for i := 0; i <= p; i++ {
		kv = append(kv, a)
	}
	kv = append(kv, interior...)
	for i := 0; i <= p; i++ {
		kv = append(kv, b)
	}
	return kv
}

func spaced(a, b float64, interior []float64, n int) bool {
	if len(interior) != n {
		return false
	}
	prev := a
	for _, u := range interior {
		if !(u > prev) {
			return false
		}
		prev = u
	}
	return b > prev
}

// ApproxInterp fits a curve of the given degree with ncp control points
// (plus p-1 for every kink) to points, interpolating the points named in
// params.Interpolated and params.Kinks exactly. It does not escalate; see
// Approximate.
func ApproxInterp(points []curvenet.Point, degree, ncp int, params Params) (*CurveFit, error) {
	t, err := params.resolve(points)
	if err != nil {
		return nil, err
	}
	if degree < 1 {
		return nil, fmt.Errorf("%w: degree %d", curvenet.ErrInvalidDegree, degree)
	}
	if ncp < degree+1 {
		return nil, fmt.Errorf("%w: %d control points for degree %d", curvenet.ErrUnderdeterminedSystem, ncp, degree)
	}
	return approxInterp(points, t, degree, ncp, params)
}

func approxInterp(points []curvenet.Point, t []float64, degree, ncp int, params Params) (*CurveFit, error) {
	fixed := make([]bool, len(points))
	for _, k := range params.Interpolated {
		fixed[k] = true
	}
	kinks := make([]float64, 0, len(params.Kinks))
	for _, k := range params.Kinks {
		fixed[k] = true
		kinks = append(kinks, t[k])
	}
	kv := approximationKnots(t, degree, ncp, kinks)
	fit, err := solveFit(points, t, degree, kv, fixed, params)
	if err != nil {
		return nil, err
	}
	for round := 0; round < params.Optimize; round++ {
		t2 := reproject(params.evaluator(), fit.Curve, points, fit.Parameters, fixed)
		f2, err := solveFit(points, t2, degree, kv, fixed, params)
		if err != nil || f2.Deviation >= fit.Deviation {
			break
		}
		tracer().Debugf("parameter optimization round %d: deviation %g -> %g", round, fit.Deviation, f2.Deviation)
		fit = f2
	}
	return fit, nil
}

func solveFit(points []curvenet.Point, t []float64, degree int, kv bspline.KnotVector,
	fixed []bool, params Params) (*CurveFit, error) {
	//
	pb := &problem{
		degree:    degree,
		knots:     kv,
		params:    t,
		values:    points,
		interp:    fixed,
		closed:    params.Periodic,
		smoothing: params.Smoothing,
	}
	ctrl, err := pb.solve()
	if err != nil {
		return nil, err
	}
	c, err := bspline.NewCurve(degree, kv, ctrl, nil)
	if err != nil {
		return nil, err
	}
	return &CurveFit{
		Curve:      c,
		Parameters: append([]float64(nil), t...),
		Deviation:  maxDeviation(params.evaluator(), c, points, t),
		Degree:     degree,
		Segments:   len(kv.Multiplicities(0)) - 1,
	}, nil
}

// reproject moves the parameter of every free inner point to the foot of
// its projection onto c.
func reproject(eval kernel.CurveEvaluator, c *bspline.Curve, points []curvenet.Point,
	t []float64, fixed []bool) []float64 {
	//
	t2 := append([]float64(nil), t...)
	for k := 1; k < len(points)-1; k++ {
		if fixed[k] {
			continue
		}
		t2[k], _ = kernel.ProjectPoint(eval, c, points[k], t[k])
	}
	return t2
}

func maxDeviation(eval kernel.CurveEvaluator, c *bspline.Curve, points []curvenet.Point, t []float64) float64 {
	dev := 0.0
	for k, pt := range points {
		dev = math.Max(dev, eval.CurvePoint(c, t[k]).Dist(pt))
	}
	return dev
}

// Approximate fits a curve to points within tol.Tol3D. Starting at
// params.Degree (3 if unset) with a single segment, the number of segments
// grows up to tol.MaxSegments, then the degree grows up to tol.MaxDegree.
// The first fit within tolerance is returned. If none is found, the fit
// with the smallest deviation is returned together with a
// *curvenet.ToleranceNotMetError.
func Approximate(points []curvenet.Point, tol curvenet.Tolerance, params Params) (*CurveFit, error) {
	if err := tol.Validate(); err != nil {
		return nil, err
	}
	t, err := params.resolve(points)
	if err != nil {
		return nil, err
	}
	minDegree := params.Degree
	if minDegree <= 0 {
		minDegree = 3
	}
	minDegree = min(minDegree, tol.MaxDegree, len(points)-1)
	fit, err := escalate(tol, minDegree, len(points), func(degree, ncp int) (*CurveFit, float64, error) {
		f, err := approxInterp(points, t, degree, ncp, params)
		if err != nil {
			return nil, 0, err
		}
		return f, f.Deviation, nil
	})
	if fit != nil {
		tracer().Infof("approximated %d points: degree %d, %d segments, deviation %g",
			len(points), fit.Degree, fit.Segments, fit.Deviation)
	}
	return fit, err
}

// escalate drives a fitting attempt through growing segment counts and
// degrees. try is called with a degree and a number of control points
// and reports the deviation reached.
func escalate[R any](tol curvenet.Tolerance, minDegree, maxNcp int,
	try func(degree, ncp int) (R, float64, error)) (R, error) {
	//
	var best R
	bestDev, bestDegree, bestSegs := math.Inf(1), 0, 0
	found := false
	for p := max(1, minDegree); p <= tol.MaxDegree && p+1 <= maxNcp; p++ {
		segs := 1
		for {
			ncp := segs + p
			if ncp > maxNcp {
				ncp = maxNcp
				segs = ncp - p
			}
			r, dev, err := try(p, ncp)
			if err == nil {
				if dev < bestDev || !found {
					best, bestDev, bestDegree, bestSegs, found = r, dev, p, segs, true
				}
				if dev <= tol.Tol3D {
					return r, nil
				}
			} else if !errors.Is(err, curvenet.ErrSingularSystem) && !errors.Is(err, curvenet.ErrUnderdeterminedSystem) {
				return best, err
			} else {
				tracer().Debugf("degree %d with %d control points: %v", p, ncp, err)
			}
			if segs >= tol.MaxSegments || ncp >= maxNcp {
				break
			}
			segs = min(tol.MaxSegments, segs+1+segs/4)
		}
	}
	if !found {
		return best, fmt.Errorf("%w: no admissible degree and segment count for %d points",
			curvenet.ErrUnderdeterminedSystem, maxNcp)
	}
	return best, &curvenet.ToleranceNotMetError{
		Deviation: bestDev,
		Tolerance: tol.Tol3D,
		Degree:    bestDegree,
		Segments:  bestSegs,
	}
}
