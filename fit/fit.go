package fit

import (
	"fmt"

	"github.com/npillmayer/curvenet"
	"github.com/npillmayer/curvenet/kernel"
)

// Mode selects between interpolation and approximation.
type Mode int

// Fitting modes.
const (
	Interpolation Mode = iota
	Approximation
)

func (m Mode) String() string {
	if m == Approximation {
		return "Approximation"
	}
	return "Interpolation"
}

// Params configures fitting operations. The zero value is usable, with
// chord-length parametrization, automatic degree and the reference kernel.
type Params struct {
	Tolerance       curvenet.Tolerance
	Parametrization Parametrization
	// Parameters are explicit parameters, one per point.
	Parameters []float64
	// Degree is the interpolation degree, or the starting degree of
	// approximation. 0 selects a default.
	Degree int
	// Periodic requests a periodic interpolant, or a closed approximation
	// with C2 continuity at the seam.
	Periodic      bool
	ScaleTangents bool
	Smoothing     Smoothing
	// Interpolated lists indices of points an approximation must hit.
	Interpolated []int
	// Kinks lists indices of points where an approximation may have a
	// tangent discontinuity. Kink points are interpolated.
	Kinks []int
	// Optimize is the number of parameter optimization rounds per
	// approximation attempt.
	Optimize  int
	Evaluator kernel.CurveEvaluator
}

// DefaultParams returns parameters for fitting with the default tolerance
// context.
func DefaultParams() Params {
	return Params{
		Tolerance:       curvenet.DefaultTolerance(),
		Parametrization: ChordLength,
	}
}

func (params Params) evaluator() kernel.CurveEvaluator {
	if params.Evaluator == nil {
		return kernel.Default()
	}
	return params.Evaluator
}

func (params Params) tolerance() curvenet.Tolerance {
	if params.Tolerance == (curvenet.Tolerance{}) {
		return curvenet.DefaultTolerance()
	}
	return params.Tolerance
}

// resolve checks point indices and returns the parameters of points for
// approximation.
func (params Params) resolve(points []curvenet.Point) ([]float64, error) {
	n := len(points)
	if n < 2 {
		return nil, fmt.Errorf("%w: cannot fit %d point(s)", curvenet.ErrUnderdeterminedSystem, n)
	}
	for _, list := range [][]int{params.Interpolated, params.Kinks} {
		for _, k := range list {
			if k < 0 || k >= n {
				return nil, fmt.Errorf("%w: point index %d, have %d points", curvenet.ErrParameterOutOfRange, k, n)
			}
		}
	}
	if params.Parameters == nil {
		t := Parameters(points, params.Parametrization)
		if t[n-1] == t[0] {
			return nil, fmt.Errorf("%w: all points coincide", curvenet.ErrInvalidGeometry)
		}
		return t, nil
	}
	t := params.Parameters
	if len(t) != n {
		return nil, fmt.Errorf("%w: %d parameters for %d points", curvenet.ErrInvalidGeometry, len(t), n)
	}
	for i := 1; i < n; i++ {
		if t[i] < t[i-1] {
			return nil, fmt.Errorf("%w: parameters decrease at %d", curvenet.ErrInvalidGeometry, i)
		}
	}
	if !(t[n-1] > t[0]) {
		return nil, fmt.Errorf("%w: empty parameter range", curvenet.ErrInvalidGeometry)
	}
	return append([]float64(nil), t...), nil
}

func (params Params) interpolation() InterpolationOptions {
	return InterpolationOptions{
		Degree:          params.Degree,
		Parametrization: params.Parametrization,
		Parameters:      params.Parameters,
		Periodic:        params.Periodic,
		ScaleTangents:   params.ScaleTangents,
	}
}

// FitCurve is the façade for curve fitting. In interpolation mode the
// curve passes through all points and matches the given tangents (which
// may be nil). In approximation mode the curve is fitted within
// params.Tolerance; tangents are not supported. A result returned together
// with a *curvenet.ToleranceNotMetError is usable.
func FitCurve(points, tangents []curvenet.Point, mode Mode, params Params) (*CurveFit, error) {
	switch mode {
	case Interpolation:
		c, t, err := Interpolate(points, tangents, params.interpolation())
		if err != nil {
			return nil, err
		}
		// periodic interpolation reports the closing parameter, too
		ts := t[:min(len(t), len(points))]
		return &CurveFit{
			Curve:      c,
			Parameters: ts,
			Deviation:  maxDeviation(params.evaluator(), c, points, ts),
			Degree:     c.Degree,
			Segments:   len(c.Knots.Multiplicities(0)) - 1,
		}, nil
	case Approximation:
		for _, tan := range tangents {
			if tan != nil {
				return nil, fmt.Errorf("%w: tangents are not supported for approximation", curvenet.ErrInvalidGeometry)
			}
		}
		return Approximate(points, params.tolerance(), params)
	}
	return nil, fmt.Errorf("unknown fitting mode %d", int(mode))
}
