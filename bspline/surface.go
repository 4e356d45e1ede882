package bspline

import (
	"fmt"

	"github.com/npillmayer/curvenet"
)

// Surface is the abstract record of a (possibly rational) tensor-product
// B-spline surface. Control[i][j] is the control point with index i along
// U and index j along V.
type Surface struct {
	DegreeU, DegreeV     int
	KnotsU, KnotsV       KnotVector
	Control              [][]curvenet.Point
	Weights              [][]float64 // nil for non-rational surfaces
	PeriodicU, PeriodicV bool
}

// Validate checks the structural invariants of a surface.
func (s *Surface) Validate() error {
	if s == nil {
		return fmt.Errorf("%w: surface is nil", curvenet.ErrInvalidGeometry)
	}
	if err := s.KnotsU.Validate(s.DegreeU, !s.PeriodicU); err != nil {
		return fmt.Errorf("knots U: %w", err)
	}
	if err := s.KnotsV.Validate(s.DegreeV, !s.PeriodicV); err != nil {
		return fmt.Errorf("knots V: %w", err)
	}
	nu, nv := len(s.KnotsU)-s.DegreeU-1, len(s.KnotsV)-s.DegreeV-1
	if len(s.Control) != nu {
		return fmt.Errorf("%w: %d control rows, U basis has %d functions",
			curvenet.ErrInvalidGeometry, len(s.Control), nu)
	}
	if s.Weights != nil && len(s.Weights) != nu {
		return fmt.Errorf("%w: %d weight rows for %d control rows",
			curvenet.ErrInvalidGeometry, len(s.Weights), nu)
	}
	for i, row := range s.Control {
		if len(row) != nv {
			return fmt.Errorf("%w: control row %d has %d points, V basis has %d functions",
				curvenet.ErrInvalidGeometry, i, len(row), nv)
		}
		if s.Weights != nil && len(s.Weights[i]) != nv {
			return fmt.Errorf("%w: weight row %d has wrong length", curvenet.ErrInvalidGeometry, i)
		}
	}
	return nil
}

// Dims returns the number of control points along U and V.
func (s *Surface) Dims() (int, int) {
	return len(s.Control), len(s.Control[0])
}

// Domain returns the parameter ranges along U and V.
func (s *Surface) Domain() (u0, u1, v0, v1 float64) {
	u0, u1 = s.KnotsU.Domain(s.DegreeU)
	v0, v1 = s.KnotsV.Domain(s.DegreeV)
	return
}

// IsRational is a predicate: does s carry weights which are not all equal?
func (s *Surface) IsRational() bool {
	if s.Weights == nil {
		return false
	}
	w0 := s.Weights[0][0]
	for _, row := range s.Weights {
		for _, w := range row {
			if !curvenet.Is0(w - w0) {
				return true
			}
		}
	}
	return false
}

// Clone returns a deep copy of s.
func (s *Surface) Clone() *Surface {
	t := &Surface{
		DegreeU:   s.DegreeU,
		DegreeV:   s.DegreeV,
		KnotsU:    s.KnotsU.Copy(),
		KnotsV:    s.KnotsV.Copy(),
		Control:   make([][]curvenet.Point, len(s.Control)),
		PeriodicU: s.PeriodicU,
		PeriodicV: s.PeriodicV,
	}
	for i, row := range s.Control {
		t.Control[i] = copyPoints(row)
	}
	if s.Weights != nil {
		t.Weights = make([][]float64, len(s.Weights))
		for i, row := range s.Weights {
			t.Weights[i] = append([]float64(nil), row...)
		}
	}
	return t
}

// Transposed exchanges the roles of U and V.
func (s *Surface) Transposed() *Surface {
	nu, nv := s.Dims()
	t := &Surface{
		DegreeU:   s.DegreeV,
		DegreeV:   s.DegreeU,
		KnotsU:    s.KnotsV.Copy(),
		KnotsV:    s.KnotsU.Copy(),
		Control:   make([][]curvenet.Point, nv),
		PeriodicU: s.PeriodicV,
		PeriodicV: s.PeriodicU,
	}
	if s.Weights != nil {
		t.Weights = make([][]float64, nv)
	}
	for j := 0; j < nv; j++ {
		t.Control[j] = make([]curvenet.Point, nu)
		if s.Weights != nil {
			t.Weights[j] = make([]float64, nu)
		}
		for i := 0; i < nu; i++ {
			t.Control[j][i] = s.Control[i][j].Copy()
			if s.Weights != nil {
				t.Weights[j][i] = s.Weights[i][j]
			}
		}
	}
	return t
}

// Reparametrized maps the U domain onto [u0,u1] and the V domain onto [v0,v1].
func (s *Surface) Reparametrized(u0, u1, v0, v1 float64) *Surface {
	t := s.Clone()
	t.KnotsU = s.KnotsU.Remapped(s.DegreeU, u0, u1)
	t.KnotsV = s.KnotsV.Remapped(s.DegreeV, v0, v1)
	return t
}

// IsoCurveV returns the control-point column j as a curve along U. For a
// surface built by skinning, these are the curves in homogeneous
// correspondence across the family.
func (s *Surface) IsoCurveV(j int) *Curve {
	nu, _ := s.Dims()
	c := &Curve{
		Degree:   s.DegreeU,
		Knots:    s.KnotsU.Copy(),
		Control:  make([]curvenet.Point, nu),
		Periodic: s.PeriodicU,
	}
	if s.Weights != nil {
		c.Weights = make([]float64, nu)
	}
	for i := 0; i < nu; i++ {
		c.Control[i] = s.Control[i][j].Copy()
		if s.Weights != nil {
			c.Weights[i] = s.Weights[i][j]
		}
	}
	return c
}

// FromColumns assembles a surface from curves along U sharing degree and
// knots. Curve j becomes control column j. The V direction is given by
// degreeV and knotsV.
func FromColumns(columns []*Curve, degreeV int, knotsV KnotVector) *Surface {
	nu := columns[0].N()
	s := &Surface{
		DegreeU:   columns[0].Degree,
		DegreeV:   degreeV,
		KnotsU:    columns[0].Knots.Copy(),
		KnotsV:    knotsV.Copy(),
		Control:   make([][]curvenet.Point, nu),
		PeriodicU: columns[0].Periodic,
	}
	rational := false
	for _, c := range columns {
		rational = rational || c.Weights != nil
	}
	if rational {
		s.Weights = make([][]float64, nu)
	}
	for i := 0; i < nu; i++ {
		s.Control[i] = make([]curvenet.Point, len(columns))
		if rational {
			s.Weights[i] = make([]float64, len(columns))
		}
		for j, c := range columns {
			s.Control[i][j] = c.Control[i].Copy()
			if rational {
				s.Weights[i][j] = c.Weight(i)
			}
		}
	}
	return s
}

func (s *Surface) columns() []*Curve {
	_, nv := s.Dims()
	cols := make([]*Curve, nv)
	for j := range cols {
		cols[j] = s.IsoCurveV(j)
	}
	return cols
}

// --- Operations along a parameter direction --------------------------------

// InsertKnotU inserts u into the U knot vector of s with the given target
// multiplicity. See InsertKnot.
func InsertKnotU(s *Surface, u float64, target int) (*Surface, error) {
	cols := s.columns()
	for j, c := range cols {
		d, err := InsertKnot(c, u, target)
		if err != nil {
			return nil, err
		}
		cols[j] = d
	}
	r := FromColumns(cols, s.DegreeV, s.KnotsV)
	r.PeriodicV = s.PeriodicV
	return r, nil
}

// InsertKnotV inserts v into the V knot vector of s.
func InsertKnotV(s *Surface, v float64, target int) (*Surface, error) {
	t, err := InsertKnotU(s.Transposed(), v, target)
	if err != nil {
		return nil, err
	}
	return t.Transposed(), nil
}

// RefineKnotsU inserts knots into the U direction of s until every knot
// of kv is present, see RefineKnots.
func RefineKnotsU(s *Surface, kv KnotVector, tol float64) (*Surface, error) {
	cols := s.columns()
	for j, c := range cols {
		d, err := RefineKnots(c, kv, tol)
		if err != nil {
			return nil, err
		}
		cols[j] = d
	}
	r := FromColumns(cols, s.DegreeV, s.KnotsV)
	r.PeriodicV = s.PeriodicV
	return r, nil
}

// RefineKnotsV is RefineKnotsU for the V direction.
func RefineKnotsV(s *Surface, kv KnotVector, tol float64) (*Surface, error) {
	t, err := RefineKnotsU(s.Transposed(), kv, tol)
	if err != nil {
		return nil, err
	}
	return t.Transposed(), nil
}

// ElevateDegreeU raises the U degree of s to newDegree, see ElevateDegree.
// All control columns share one collocation system.
func ElevateDegreeU(s *Surface, newDegree int) (*Surface, error) {
	if newDegree < s.DegreeU {
		return nil, fmt.Errorf("%w: cannot elevate U degree %d to %d",
			curvenet.ErrInvalidDegree, s.DegreeU, newDegree)
	}
	if s.PeriodicU {
		return nil, fmt.Errorf("%w: degree elevation requires a clamped surface", curvenet.ErrInvalidGeometry)
	}
	if newDegree == s.DegreeU {
		return s.Clone(), nil
	}
	knots, err := elevatedKnots(s.KnotsU, s.DegreeU, newDegree)
	if err != nil {
		return nil, err
	}
	cols := s.columns()
	hw := make([][]curvenet.Point, len(cols))
	for j, c := range cols {
		hw[j] = c.Homogeneous()
	}
	hpts, err := project(newDegree, knots, hw,
		func(k int, u float64) curvenet.Point { return cols[k].pointAt(u, hw[k]) })
	if err != nil {
		return nil, err
	}
	for j := range cols {
		cols[j] = fromHomogeneous(newDegree, knots.Copy(), hpts[j], s.Weights != nil, false)
	}
	r := FromColumns(cols, s.DegreeV, s.KnotsV)
	r.PeriodicV = s.PeriodicV
	return r, nil
}

// ElevateDegreeV raises the V degree of s to newDegree.
func ElevateDegreeV(s *Surface, newDegree int) (*Surface, error) {
	t, err := ElevateDegreeU(s.Transposed(), newDegree)
	if err != nil {
		return nil, err
	}
	return t.Transposed(), nil
}

// Clamped converts periodic directions of s into clamped form.
func (s *Surface) Clamped() (*Surface, error) {
	r := s.Clone()
	if r.PeriodicU {
		cols := r.columns()
		for j, c := range cols {
			d, err := c.Clamped()
			if err != nil {
				return nil, err
			}
			cols[j] = d
		}
		periodicV := r.PeriodicV
		r = FromColumns(cols, r.DegreeV, r.KnotsV)
		r.PeriodicV = periodicV
	}
	if r.PeriodicV {
		t, err := r.Transposed().Clamped()
		if err != nil {
			return nil, err
		}
		r = t.Transposed()
	}
	return r, nil
}
