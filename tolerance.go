package curvenet

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

// Tolerance is the tolerance context of a build. It is immutable for the
// duration of a build and passed by value to every fitting call.
type Tolerance struct {
	Tol3D       float64 `yaml:"tol3d" validate:"gt=0"`                 // 3D distance tolerance
	TolParam    float64 `yaml:"tolparam" validate:"gt=0,ltfield=Tol3D"` // parametric tolerance
	MaxDegree   int     `yaml:"maxdegree" validate:"gte=1,lte=25"`     // ceiling for degree escalation
	MaxSegments int     `yaml:"maxsegments" validate:"gte=1"`          // ceiling for knot spans / control points
}

// DefaultTolerance returns the tolerance context used for Gordon surfaces.
func DefaultTolerance() Tolerance {
	return Tolerance{
		Tol3D:       1e-5,
		TolParam:    1e-10,
		MaxDegree:   8,
		MaxSegments: 80,
	}
}

var validate = validator.New()

// Validate checks the tolerance context. It returns an error wrapping
// ErrInvalidTolerance.
func (tol Tolerance) Validate() error {
	if err := validate.Struct(tol); err != nil {
		tracer().Errorf("tolerance context rejected: %v", err)
		return fmt.Errorf("%w: %v", ErrInvalidTolerance, err)
	}
	return nil
}

// WithTol3D returns a copy of tol with a different 3D tolerance.
func (tol Tolerance) WithTol3D(t float64) Tolerance {
	tol.Tol3D = t
	return tol
}

// WithMaxDegree returns a copy of tol with a different degree ceiling.
func (tol Tolerance) WithMaxDegree(d int) Tolerance {
	tol.MaxDegree = d
	return tol
}

// WithMaxSegments returns a copy of tol with a different segment ceiling.
func (tol Tolerance) WithMaxSegments(n int) Tolerance {
	tol.MaxSegments = n
	return tol
}

// String returns a compact representation of tol.
func (tol Tolerance) String() string {
	return fmt.Sprintf("tol{3d=%g, par=%g, deg≤%d, seg≤%d}",
		tol.Tol3D, tol.TolParam, tol.MaxDegree, tol.MaxSegments)
}
