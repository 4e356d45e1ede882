package gordon

import (
	"fmt"

	"github.com/npillmayer/curvenet"
	"github.com/npillmayer/curvenet/bspline"
	"github.com/npillmayer/curvenet/compat"
	"github.com/npillmayer/curvenet/kernel"
)

// UnifiedTriple holds the three operands of Gordon's formula after they
// have been brought onto a common basis. The zero value is not usable;
// a UnifiedTriple is created by Unify only.
type UnifiedTriple struct {
	su, sv, suv *bspline.Surface
}

// Unify makes the guide skin su, the profile skin sv and the tensor
// surface suv compatible in both directions, using the rule of
// compat.UnifySurfaces. Rational operands are rejected, as Gordon's
// formula is not defined on weighted control points.
func Unify(su, sv, suv *bspline.Surface, tol curvenet.Tolerance, eval kernel.SurfaceEvaluator) (*UnifiedTriple, error) {
	for k, s := range []*bspline.Surface{su, sv, suv} {
		if s.IsRational() {
			return nil, fmt.Errorf("%w: operand %d of Gordon's formula is rational",
				curvenet.ErrCompatibility, k)
		}
	}
	if eval == nil {
		eval = kernel.Default()
	}
	unified, err := compat.UnifySurfaces([]*bspline.Surface{su, sv, suv}, tol, eval)
	if err != nil {
		return nil, fmt.Errorf("unifying Gordon operands: %w", err)
	}
	if !compat.SharesBasis(unified...) {
		panic("unified Gordon operands do not share a basis")
	}
	return &UnifiedTriple{su: unified[0], sv: unified[1], suv: unified[2]}, nil
}

// Operands returns the unified guide skin, profile skin and tensor
// surface.
func (t *UnifiedTriple) Operands() (su, sv, suv *bspline.Surface) {
	return t.su, t.sv, t.suv
}

// Combine computes S = S_u + S_v - S_uv on control points. The operands
// are not modified.
func (t *UnifiedTriple) Combine() (*bspline.Surface, error) {
	if t == nil || t.su == nil {
		return nil, fmt.Errorf("%w: Gordon operands have not been unified", curvenet.ErrCompatibility)
	}
	s := t.sv.Clone()
	s.Weights = nil
	for i, row := range s.Control {
		for j := range row {
			row[j] = t.su.Control[i][j].Add(t.sv.Control[i][j]).Sub(t.suv.Control[i][j])
		}
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}
