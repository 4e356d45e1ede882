package bspline

import (
	"fmt"
	"math"
	"sort"

	"github.com/emirpasic/gods/maps/treemap"
	"github.com/emirpasic/gods/utils"
	"github.com/npillmayer/curvenet"
)

// KnotVector is a non-decreasing sequence of parameter values.
type KnotVector []float64

// Knot is a distinct knot value together with its multiplicity.
type Knot struct {
	Value float64
	Mult  int
}

// Copy returns a copy of kv.
func (kv KnotVector) Copy() KnotVector {
	c := make(KnotVector, len(kv))
	copy(c, kv)
	return c
}

// IsNonDecreasing is a predicate: is kv sorted?
func (kv KnotVector) IsNonDecreasing() bool {
	for i := 1; i < len(kv); i++ {
		if kv[i] < kv[i-1] {
			return false
		}
	}
	return true
}

// Multiplicities groups kv into distinct knots. Values within tol of the
// first value of a group belong to the group.
func (kv KnotVector) Multiplicities(tol float64) []Knot {
	var knots []Knot
	for _, u := range kv {
		if n := len(knots); n > 0 && u-knots[n-1].Value <= tol {
			knots[n-1].Mult++
			continue
		}
		knots = append(knots, Knot{Value: u, Mult: 1})
	}
	return knots
}

// Multiplicity returns the number of knots within tol of u.
func (kv KnotVector) Multiplicity(u, tol float64) int {
	m := 0
	for _, k := range kv {
		if math.Abs(k-u) <= tol {
			m++
		}
	}
	return m
}

// FromMultiplicities expands distinct knots into a knot vector.
func FromMultiplicities(knots []Knot) KnotVector {
	var kv KnotVector
	for _, k := range knots {
		for i := 0; i < k.Mult; i++ {
			kv = append(kv, k.Value)
		}
	}
	return kv
}

// Uniform creates a clamped knot vector on [a,b] with the given number of
// spans of equal length.
func Uniform(degree, spans int, a, b float64) KnotVector {
	kv := make(KnotVector, 0, spans+2*degree+1)
	for i := 0; i < degree; i++ {
		kv = append(kv, a)
	}
	for i := 0; i <= spans; i++ {
		kv = append(kv, a+(b-a)*float64(i)/float64(spans))
	}
	for i := 0; i < degree; i++ {
		kv = append(kv, b)
	}
	kv[len(kv)-1] = b
	return kv
}

// Domain returns the parameter range [kv[p], kv[n+1]] of a curve of the
// given degree over kv.
func (kv KnotVector) Domain(degree int) (float64, float64) {
	n := len(kv) - degree - 2
	return kv[degree], kv[n+1]
}

// IsClamped is a predicate: do both ends of kv have multiplicity degree+1?
func (kv KnotVector) IsClamped(degree int) bool {
	if len(kv) < 2*(degree+1) {
		return false
	}
	for i := 1; i <= degree; i++ {
		if kv[i] != kv[0] || kv[len(kv)-1-i] != kv[len(kv)-1] {
			return false
		}
	}
	return true
}

// Validate checks kv for use with a curve of the given degree.
// Clamped vectors may have interior multiplicities up to degree+1.
func (kv KnotVector) Validate(degree int, clamped bool) error {
	if degree < 1 {
		return fmt.Errorf("%w: degree %d", curvenet.ErrInvalidDegree, degree)
	}
	if len(kv) < 2*(degree+1) {
		return fmt.Errorf("%w: %d knots for degree %d", curvenet.ErrInvalidGeometry, len(kv), degree)
	}
	if !kv.IsNonDecreasing() {
		return fmt.Errorf("%w: knot vector is decreasing", curvenet.ErrInvalidGeometry)
	}
	a, b := kv.Domain(degree)
	if !(a < b) {
		return fmt.Errorf("%w: empty parameter domain [%g,%g]", curvenet.ErrInvalidGeometry, a, b)
	}
	if !clamped {
		return nil
	}
	if !kv.IsClamped(degree) {
		return fmt.Errorf("%w: knot vector is not clamped", curvenet.ErrInvalidMultiplicity)
	}
	knots := kv.Multiplicities(0)
	for _, k := range knots[1 : len(knots)-1] {
		if k.Mult > degree+1 {
			return fmt.Errorf("%w: knot %g has multiplicity %d > %d",
				curvenet.ErrInvalidMultiplicity, k.Value, k.Mult, degree+1)
		}
	}
	if knots[0].Mult != degree+1 || knots[len(knots)-1].Mult != degree+1 {
		return fmt.Errorf("%w: end knots must have multiplicity %d",
			curvenet.ErrInvalidMultiplicity, degree+1)
	}
	return nil
}

// FindSpan determines the knot span index for parameter u (A2.1), i.e. the
// index k with kv[k] ≤ u < kv[k+1]. Parameters outside the domain are
// attributed to the first or last non-empty span.
func (kv KnotVector) FindSpan(degree int, u float64) int {
	n := len(kv) - degree - 2
	if u >= kv[n+1] {
		for n > degree && kv[n] == kv[n+1] {
			n--
		}
		return n
	}
	if u <= kv[degree] {
		k := degree
		for k < n && kv[k+1] <= u {
			k++
		}
		return k
	}
	low, high := degree, n+1
	mid := (low + high) / 2
	for u < kv[mid] || u >= kv[mid+1] {
		if u < kv[mid] {
			high = mid
		} else {
			low = mid
		}
		mid = (low + high) / 2
	}
	return mid
}

// Remapped applies the affine map [a0,b0] → [a,b] to every knot, where
// [a0,b0] is the domain for the given degree.
func (kv KnotVector) Remapped(degree int, a, b float64) KnotVector {
	a0, b0 := kv.Domain(degree)
	s := (b - a) / (b0 - a0)
	r := make(KnotVector, len(kv))
	for i, k := range kv {
		r[i] = a + (k-a0)*s
	}
	r[degree] = a
	r[len(kv)-degree-1] = b
	if kv.IsClamped(degree) {
		for i := 0; i <= degree; i++ {
			r[i] = a
			r[len(r)-1-i] = b
		}
	}
	return r
}

// Reversed maps every knot k to first+last-k and reverses the order,
// where first and last are the domain ends.
func (kv KnotVector) Reversed(degree int) KnotVector {
	a, b := kv.Domain(degree)
	r := make(KnotVector, len(kv))
	for i, k := range kv {
		r[len(kv)-1-i] = a + b - k
	}
	return r
}

// Equal compares two knot vectors element-wise with tolerance tol.
func (kv KnotVector) Equal(other KnotVector, tol float64) bool {
	if len(kv) != len(other) {
		return false
	}
	for i := range kv {
		if math.Abs(kv[i]-other[i]) > tol {
			return false
		}
	}
	return true
}

// Greville returns the Greville abscissae of kv for the given degree,
// i.e. the averages of degree consecutive knots.
func (kv KnotVector) Greville(degree int) []float64 {
	n := len(kv) - degree - 1
	g := make([]float64, n)
	for i := 0; i < n; i++ {
		var s float64
		for j := i + 1; j <= i+degree; j++ {
			s += kv[j]
		}
		g[i] = s / float64(degree)
	}
	return g
}

// MergeKnotVectors builds the common knot vector of a set of knot vectors
// for the given degree: the union of all knot values, with the maximum
// multiplicity found for each value. Values within tol are considered
// identical, the first value seen wins. The result is clamped to
// multiplicity degree+1 at both ends.
//
// Merging is idempotent: merging the merged vector again yields the same
// vector.
func MergeKnotVectors(degree int, tol float64, vectors ...KnotVector) KnotVector {
	tm := treemap.NewWith(utils.Float64Comparator)
	for _, kv := range vectors {
		for _, k := range kv.Multiplicities(tol) {
			key, mult := k.Value, 0
			if fk, fv := tm.Floor(key); fk != nil && key-fk.(float64) <= tol {
				key, mult = fk.(float64), fv.(int)
			} else if ck, cv := tm.Ceiling(key); ck != nil && ck.(float64)-key <= tol {
				key, mult = ck.(float64), cv.(int)
			}
			if k.Mult > mult {
				tm.Put(key, k.Mult)
			} else {
				tm.Put(key, mult)
			}
		}
	}
	if tm.Size() < 2 {
		return nil
	}
	knots := make([]Knot, 0, tm.Size())
	it := tm.Iterator()
	for it.Next() {
		knots = append(knots, Knot{Value: it.Key().(float64), Mult: min(it.Value().(int), degree+1)})
	}
	knots[0].Mult = degree + 1
	knots[len(knots)-1].Mult = degree + 1
	tracer().Debugf("merged %d knot vectors into %d distinct knots", len(vectors), len(knots))
	return FromMultiplicities(knots)
}

// UnifyKnotVectors computes the common knot vector of a set of curves of
// equal degree, see MergeKnotVectors. Curves of differing degree are
// rejected with ErrInvalidDegree.
func UnifyKnotVectors(curves []*Curve, tol float64) (KnotVector, error) {
	if len(curves) == 0 {
		return nil, fmt.Errorf("%w: no curves to unify", curvenet.ErrCompatibility)
	}
	degree := curves[0].Degree
	vectors := make([]KnotVector, len(curves))
	for i, c := range curves {
		if c.Degree != degree {
			return nil, fmt.Errorf("%w: curve %d has degree %d, expected %d",
				curvenet.ErrInvalidDegree, i, c.Degree, degree)
		}
		vectors[i] = c.Knots
	}
	return MergeKnotVectors(degree, tol, vectors...), nil
}

// LinspaceWithBreaks returns n equidistant values on [a,b]. Each break
// value replaces a sample closer than 30% of the sample distance, or is
// inserted otherwise.
func LinspaceWithBreaks(a, b float64, n int, breaks []float64) []float64 {
	if n < 2 {
		n = 2
	}
	du := (b - a) / float64(n-1)
	values := make([]float64, n)
	for i := range values {
		values[i] = a + float64(i)*du
	}
	values[n-1] = b
	for _, br := range breaks {
		pos := sort.SearchFloat64s(values, br)
		switch {
		case pos < len(values) && math.Abs(values[pos]-br) <= 0.3*du:
			values[pos] = br
		case pos > 0 && math.Abs(values[pos-1]-br) <= 0.3*du:
			values[pos-1] = br
		default:
			values = append(values, 0)
			copy(values[pos+1:], values[pos:])
			values[pos] = br
		}
	}
	return values
}
