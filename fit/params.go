package fit

import (
	"fmt"
	"math"

	"github.com/npillmayer/curvenet"
)

// Parametrization is a scheme to assign parameter values to ordered points.
type Parametrization int

// Parametrization schemes. Parameters grow with |Pᵢ₊₁ − Pᵢ|^α, where α is
// 0 for Uniform, 1 for ChordLength and ½ for Centripetal.
const (
	ChordLength Parametrization = iota
	Centripetal
	Uniform
)

func (p Parametrization) String() string {
	switch p {
	case ChordLength:
		return "ChordLength"
	case Centripetal:
		return "Centripetal"
	case Uniform:
		return "Uniform"
	}
	return fmt.Sprintf("Parametrization(%d)", int(p))
}

// ParseParametrization converts a name as used in configuration files.
func ParseParametrization(s string) (Parametrization, error) {
	switch s {
	case "ChordLength", "chordlength", "chord", "":
		return ChordLength, nil
	case "Centripetal", "centripetal":
		return Centripetal, nil
	case "Uniform", "uniform":
		return Uniform, nil
	}
	return ChordLength, fmt.Errorf("unknown parametrization %q", s)
}

func (p Parametrization) exponent() float64 {
	switch p {
	case Uniform:
		return 0
	case Centripetal:
		return 0.5
	}
	return 1
}

// Parameters assigns normalized parameters in [0,1] to points. Coincident
// points receive the same parameter; if all points coincide, parameters
// are uniform.
func Parameters(points []curvenet.Point, method Parametrization) []float64 {
	return cumulative(points, method, false)
}

// ClosedParameters assigns parameters to the points of a closed curve,
// including the closing chord from the last point back to the first. The
// result has one value more than points, the last one being 1.
func ClosedParameters(points []curvenet.Point, method Parametrization) []float64 {
	return cumulative(points, method, true)
}

func cumulative(points []curvenet.Point, method Parametrization, closed bool) []float64 {
	n := len(points)
	m := n
	if closed {
		m = n + 1
	}
	t := make([]float64, m)
	if n == 0 {
		return t
	}
	alpha := method.exponent()
	for i := 1; i < m; i++ {
		d := points[i%n].Dist(points[i-1])
		if alpha == 0 {
			d = 1
		} else if alpha != 1 {
			d = math.Pow(d, alpha)
		}
		t[i] = t[i-1] + d
	}
	total := t[m-1]
	if curvenet.Is0(total) {
		for i := range t {
			t[i] = float64(i) / float64(max(1, m-1))
		}
		return t
	}
	for i := range t {
		t[i] /= total
	}
	t[m-1] = 1
	return t
}

// GridParameters computes parameters for a grid of points, indexed
// grid[i][j] with i along U and j along V, by averaging the parameters of
// all rows and all columns.
func GridParameters(grid [][]curvenet.Point, method Parametrization) ([]float64, []float64) {
	nu, nv := len(grid), len(grid[0])
	uParams := make([]float64, nu)
	vParams := make([]float64, nv)
	for j := 0; j < nv; j++ {
		col := make([]curvenet.Point, nu)
		for i := 0; i < nu; i++ {
			col[i] = grid[i][j]
		}
		for i, t := range Parameters(col, method) {
			uParams[i] += t / float64(nv)
		}
	}
	for i := 0; i < nu; i++ {
		for j, t := range Parameters(grid[i], method) {
			vParams[j] += t / float64(nu)
		}
	}
	uParams[0], uParams[nu-1] = 0, 1
	vParams[0], vParams[nv-1] = 0, 1
	return uParams, vParams
}

func checkParameters(params []float64, n int) error {
	if len(params) != n {
		return fmt.Errorf("%w: %d parameters for %d points", curvenet.ErrInvalidGeometry, len(params), n)
	}
	for i := 1; i < len(params); i++ {
		if !(params[i] > params[i-1]) {
			return fmt.Errorf("%w: parameters must increase strictly, got %g after %g",
				curvenet.ErrInvalidGeometry, params[i], params[i-1])
		}
	}
	return nil
}
