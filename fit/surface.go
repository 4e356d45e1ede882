package fit

import (
	"fmt"
	"math"

	"github.com/npillmayer/curvenet"
	"github.com/npillmayer/curvenet/bspline"
	"github.com/npillmayer/curvenet/compat"
	"github.com/npillmayer/curvenet/kernel"
)

// SurfaceFit is the result of fitting a surface.
type SurfaceFit struct {
	Surface   *bspline.Surface
	UParams   []float64
	VParams   []float64
	Deviation float64
}

func (params Params) surfaceEvaluator() kernel.SurfaceEvaluator {
	if se, ok := params.Evaluator.(kernel.SurfaceEvaluator); ok {
		return se
	}
	return kernel.Default()
}

// SkinCurves interpolates a family of curves along V: the resulting
// surface S satisfies S(u, vParams[k]) = curves[k](u). The curves are made
// compatible first. The degree in V is params.Degree, or min(3, n-1) for
// n distinct curves. If closed is set, the surface is periodic in V (and
// returned in clamped form); vParams must then have one entry more than
// the number of distinct curves, and a last curve equal to the first one
// is dropped.
func SkinCurves(curves []*bspline.Curve, vParams []float64, closed bool, params Params) (*bspline.Surface, error) {
	if len(curves) < 2 {
		return nil, fmt.Errorf("%w: cannot skin %d curve(s)", curvenet.ErrUnderdeterminedSystem, len(curves))
	}
	unified, err := compat.UnifyCurves(curves, params.tolerance(), params.evaluator())
	if err != nil {
		return nil, err
	}
	rational := false
	for _, c := range unified {
		rational = rational || c.Weights != nil
	}
	nu := unified[0].N()
	opts := InterpolationOptions{Degree: params.Degree, Parameters: vParams, Periodic: closed}
	var columns []*bspline.Curve
	for i := 0; i < nu; i++ {
		pts := make([]curvenet.Point, len(unified))
		for k, c := range unified {
			if rational {
				pts[k] = c.Homogeneous()[i]
			} else {
				pts[k] = c.Control[i]
			}
		}
		col, _, err := Interpolate(pts, nil, opts)
		if err != nil {
			return nil, fmt.Errorf("skinning control column %d: %w", i, err)
		}
		if closed {
			if col, err = col.Clamped(); err != nil {
				return nil, err
			}
		}
		if i > 0 && !col.Knots.Equal(columns[0].Knots, 0) {
			return nil, fmt.Errorf("%w: skinning columns differ in knots", curvenet.ErrCompatibility)
		}
		columns = append(columns, col)
	}
	s := &bspline.Surface{
		DegreeU: unified[0].Degree,
		DegreeV: columns[0].Degree,
		KnotsU:  unified[0].Knots.Copy(),
		KnotsV:  columns[0].Knots.Copy(),
		Control: make([][]curvenet.Point, nu),
	}
	if rational {
		s.Weights = make([][]float64, nu)
	}
	for i, col := range columns {
		if rational {
			s.Control[i], s.Weights[i] = dehomogenize(col.Control)
		} else {
			s.Control[i] = col.Control
		}
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	tracer().Debugf("skinned %d curves, degrees (%d,%d)", len(curves), s.DegreeU, s.DegreeV)
	return s, nil
}

func dehomogenize(hpts []curvenet.Point) ([]curvenet.Point, []float64) {
	pts := make([]curvenet.Point, len(hpts))
	weights := make([]float64, len(hpts))
	for i, hp := range hpts {
		d := len(hp) - 1
		weights[i] = hp[d]
		pts[i] = hp[:d].Scaled(1 / hp[d])
	}
	return pts, weights
}

// InterpolateGrid interpolates a grid of points, indexed grid[i][j] with i
// along U and j along V: S(uParams[i], vParams[j]) = grid[i][j]. Curves are
// interpolated along U first and then skinned along V.
func InterpolateGrid(grid [][]curvenet.Point, uParams, vParams []float64, closedU, closedV bool, params Params) (*bspline.Surface, error) {
	if len(grid) < 2 || len(grid[0]) < 2 {
		return nil, fmt.Errorf("%w: grid needs at least 2×2 points", curvenet.ErrUnderdeterminedSystem)
	}
	nv := len(grid[0])
	opts := InterpolationOptions{Degree: params.Degree, Parameters: uParams, Periodic: closedU}
	curves := make([]*bspline.Curve, nv)
	for j := 0; j < nv; j++ {
		row := make([]curvenet.Point, len(grid))
		for i := range grid {
			if len(grid[i]) != nv {
				return nil, fmt.Errorf("%w: ragged grid at row %d", curvenet.ErrInvalidGeometry, i)
			}
			row[i] = grid[i][j]
		}
		c, _, err := Interpolate(row, nil, opts)
		if err != nil {
			return nil, fmt.Errorf("interpolating grid column %d: %w", j, err)
		}
		if closedU {
			if c, err = c.Clamped(); err != nil {
				return nil, err
			}
		}
		curves[j] = c
	}
	return SkinCurves(curves, vParams, closedV, params)
}

// FitSurface fits a surface to a grid of points, indexed grid[i][j] with i
// along U and j along V. Interpolation reproduces every grid point.
// Approximation fits the rows along V on a common basis first and the
// resulting control point columns along U second, each within half of the
// tolerance. A result returned together with a
// *curvenet.ToleranceNotMetError is usable.
func FitSurface(grid [][]curvenet.Point, mode Mode, params Params) (*SurfaceFit, error) {
	if len(grid) < 2 || len(grid[0]) < 2 {
		return nil, fmt.Errorf("%w: grid needs at least 2×2 points", curvenet.ErrUnderdeterminedSystem)
	}
	uParams, vParams := GridParameters(grid, params.Parametrization)
	if mode == Interpolation {
		s, err := InterpolateGrid(grid, uParams, vParams, false, false, params)
		if err != nil {
			return nil, err
		}
		return &SurfaceFit{Surface: s, UParams: uParams, VParams: vParams,
			Deviation: gridDeviation(params.surfaceEvaluator(), s, grid, uParams, vParams)}, nil
	}
	tol := params.tolerance()
	half := tol.WithTol3D(tol.Tol3D / 2)
	rows, _, err := fitFamily(grid, vParams, half, params)
	if err != nil && !curvenet.IsSoft(err) {
		return nil, fmt.Errorf("fitting rows: %w", err)
	}
	nv := rows[0].N()
	ladder := make([][]curvenet.Point, nv)
	for j := 0; j < nv; j++ {
		ladder[j] = make([]curvenet.Point, len(rows))
		for i, r := range rows {
			ladder[j][i] = r.Control[j]
		}
	}
	cols, _, err := fitFamily(ladder, uParams, half, params)
	if err != nil && !curvenet.IsSoft(err) {
		return nil, fmt.Errorf("fitting columns: %w", err)
	}
	s := &bspline.Surface{
		DegreeU: cols[0].Degree,
		DegreeV: rows[0].Degree,
		KnotsU:  cols[0].Knots.Copy(),
		KnotsV:  rows[0].Knots.Copy(),
		Control: make([][]curvenet.Point, cols[0].N()),
	}
	for a := range s.Control {
		s.Control[a] = make([]curvenet.Point, nv)
		for j, c := range cols {
			s.Control[a][j] = c.Control[a]
		}
	}
	result := &SurfaceFit{Surface: s, UParams: uParams, VParams: vParams,
		Deviation: gridDeviation(params.surfaceEvaluator(), s, grid, uParams, vParams)}
	if result.Deviation > tol.Tol3D {
		return result, &curvenet.ToleranceNotMetError{
			Deviation: result.Deviation, Tolerance: tol.Tol3D,
			Degree: max(s.DegreeU, s.DegreeV), Segments: len(s.KnotsU.Multiplicities(0)) - 1,
		}
	}
	return result, nil
}

// FitSurfaceToCurves lofts a surface through (interpolation) or along
// (approximation) a family of curves, ordered along V. Parameters in V are
// averaged over the control point columns of the compatible curves.
func FitSurfaceToCurves(curves []*bspline.Curve, mode Mode, params Params) (*SurfaceFit, error) {
	if len(curves) < 2 {
		return nil, fmt.Errorf("%w: need at least 2 curves", curvenet.ErrUnderdeterminedSystem)
	}
	tol := params.tolerance()
	unified, err := compat.UnifyCurves(curves, tol, params.evaluator())
	if err != nil {
		return nil, err
	}
	nu := unified[0].N()
	grid := make([][]curvenet.Point, nu)
	for i := range grid {
		grid[i] = make([]curvenet.Point, len(unified))
		for k, c := range unified {
			grid[i][k] = c.Control[i]
		}
	}
	_, vParams := GridParameters(grid, params.Parametrization)
	a, b := unified[0].Domain()
	var s *bspline.Surface
	if mode == Interpolation {
		if s, err = SkinCurves(unified, vParams, false, params); err != nil {
			return nil, err
		}
	} else {
		rational := false
		for _, c := range unified {
			rational = rational || c.Weights != nil
		}
		if rational {
			for i := range grid {
				for k, c := range unified {
					grid[i][k] = c.Homogeneous()[i]
				}
			}
		}
		columns, _, err := fitFamily(grid, vParams, tol, params)
		if err != nil && !curvenet.IsSoft(err) {
			return nil, err
		}
		s = &bspline.Surface{
			DegreeU: unified[0].Degree,
			DegreeV: columns[0].Degree,
			KnotsU:  unified[0].Knots.Copy(),
			KnotsV:  columns[0].Knots.Copy(),
			Control: make([][]curvenet.Point, nu),
		}
		if rational {
			s.Weights = make([][]float64, nu)
		}
		for i, col := range columns {
			if rational {
				s.Control[i], s.Weights[i] = dehomogenize(col.Control)
			} else {
				s.Control[i] = col.Control
			}
		}
	}
	result := &SurfaceFit{Surface: s, UParams: []float64{a, b}, VParams: vParams}
	se, ce := params.surfaceEvaluator(), params.evaluator()
	for k, c := range curves {
		for _, u := range bspline.LinspaceWithBreaks(a, b, 8*nu, nil) {
			d := se.SurfacePoint(s, u, vParams[k]).Dist(ce.CurvePoint(c, u))
			result.Deviation = math.Max(result.Deviation, d)
		}
	}
	if mode == Approximation && result.Deviation > tol.Tol3D {
		return result, &curvenet.ToleranceNotMetError{
			Deviation: result.Deviation, Tolerance: tol.Tol3D,
			Degree: s.DegreeV, Segments: len(s.KnotsV.Multiplicities(0)) - 1,
		}
	}
	return result, nil
}

// fitFamily approximates one curve per point set on a common basis. All
// sets are parametrized by t.
func fitFamily(sets [][]curvenet.Point, t []float64, tol curvenet.Tolerance, params Params) ([]*bspline.Curve, float64, error) {
	n := len(t)
	dim := len(sets[0][0])
	values := make([]curvenet.Point, n)
	for i := range values {
		values[i] = make(curvenet.Point, 0, dim*len(sets))
		for _, set := range sets {
			values[i] = append(values[i], set[i]...)
		}
	}
	minDegree := params.Degree
	if minDegree <= 0 {
		minDegree = 3
	}
	minDegree = min(minDegree, tol.MaxDegree, n-1)
	type family struct {
		curves []*bspline.Curve
		dev    float64
	}
	eval := params.evaluator()
	best, err := escalate(tol, minDegree, n, func(p, ncp int) (family, float64, error) {
		kv := approximationKnots(t, p, ncp, nil)
		pb := &problem{degree: p, knots: kv, params: t, values: values,
			closed: params.Periodic, smoothing: params.Smoothing}
		ctrl, err := pb.solve()
		if err != nil {
			return family{}, 0, err
		}
		f := family{curves: make([]*bspline.Curve, len(sets))}
		for k := range sets {
			pts := make([]curvenet.Point, len(ctrl))
			for i, c := range ctrl {
				pts[i] = c[k*dim : (k+1)*dim]
			}
			f.curves[k] = &bspline.Curve{Degree: p, Knots: kv.Copy(), Control: pts}
			f.dev = math.Max(f.dev, maxDeviation(eval, f.curves[k], sets[k], t))
		}
		return f, f.dev, nil
	})
	if best.curves == nil {
		return nil, 0, err
	}
	return best.curves, best.dev, err
}

func gridDeviation(eval kernel.SurfaceEvaluator, s *bspline.Surface, grid [][]curvenet.Point, u, v []float64) float64 {
	dev := 0.0
	for i := range grid {
		for j := range grid[i] {
			dev = math.Max(dev, eval.SurfacePoint(s, u[i], v[j]).Dist(grid[i][j]))
		}
	}
	return dev
}
