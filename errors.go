package curvenet

import (
	"errors"
	"fmt"
)

// Error kinds reported by the engine. Callers test for them with errors.Is.
var (
	// ErrInvalidMultiplicity flags a knot multiplicity above degree+1.
	ErrInvalidMultiplicity = errors.New("invalid knot multiplicity")
	// ErrInvalidDegree flags a degree which is out of range for an operation.
	ErrInvalidDegree = errors.New("invalid degree")
	// ErrCompatibility flags curves which cannot be made compatible,
	// e.g. because of mixed periodicity.
	ErrCompatibility = errors.New("curves cannot be made compatible")
	// ErrUnderdeterminedSystem flags too few constraints for the requested
	// degree or periodicity.
	ErrUnderdeterminedSystem = errors.New("underdetermined system")
	// ErrToleranceNotMet flags a best-effort fitting result. It is the only
	// error returned together with usable geometry.
	ErrToleranceNotMet = errors.New("tolerance not met")
	// ErrInconsistentNetwork flags a curve network which cannot be ordered
	// consistently.
	ErrInconsistentNetwork = errors.New("inconsistent curve network")
	// ErrDegenerateNetwork flags an insufficient number of curves.
	ErrDegenerateNetwork = errors.New("degenerate curve network")

	ErrInvalidTolerance    = errors.New("invalid tolerance context")
	ErrParameterOutOfRange = errors.New("parameter out of range")
	ErrSingularSystem      = errors.New("singular linear system")
	ErrInvalidGeometry     = errors.New("invalid geometry")
)

// ToleranceNotMetError carries the deviation reached by a best-effort fit.
// It unwraps to ErrToleranceNotMet.
type ToleranceNotMetError struct {
	Deviation float64 // maximum pointwise deviation of the returned result
	Tolerance float64 // requested tolerance
	Degree    int     // degree of the returned result
	Segments  int     // number of knot spans of the returned result
}

func (e *ToleranceNotMetError) Error() string {
	return fmt.Sprintf("%s: deviation %g > %g (degree %d, %d segments)",
		ErrToleranceNotMet.Error(), e.Deviation, e.Tolerance, e.Degree, e.Segments)
}

// Unwrap makes errors.Is(err, ErrToleranceNotMet) work.
func (e *ToleranceNotMetError) Unwrap() error {
	return ErrToleranceNotMet
}

// IsSoft is a predicate: does err carry a usable (degraded) result?
func IsSoft(err error) bool {
	return errors.Is(err, ErrToleranceNotMet)
}
