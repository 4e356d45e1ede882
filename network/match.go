package network

import (
	"fmt"
	"math"

	"github.com/npillmayer/curvenet"
	"github.com/npillmayer/curvenet/bspline"
	"github.com/npillmayer/curvenet/fit"
	"github.com/npillmayer/curvenet/kernel"
	"github.com/ungerik/go3d/float64/vec3"
)

// Bounds for the number of control points of reparametrized curves. The
// upper bound is taken from the tolerance context if that is larger.
const (
	minControlPoints   = 10
	extraControlPoints = 10
)

// Matched is a network with consistently ordered, oriented and
// parametrized families. Profile i meets guide j at
// Profiles[i](ParamsU[j]) = Guides[j](ParamsV[i]) = Points[i][j].
type Matched struct {
	Profiles      []*bspline.Curve
	Guides        []*bspline.Curve
	ParamsU       []float64 // parameters of the guides along every profile
	ParamsV       []float64 // parameters of the profiles along every guide
	Points        [][]curvenet.Point
	Intersections [][]kernel.Intersection // before reparametrization
}

// Size returns the number of profiles and guides.
func (m *Matched) Size() (int, int) {
	return len(m.Profiles), len(m.Guides)
}

// Match computes the parameter correspondence of a network. All curves are
// mapped to [0,1], intersected pairwise, sorted and oriented, checked for
// monotonic ordering, and finally reparametrized to common intersection
// parameters. k may be nil, selecting the reference kernel.
//
// Match fails with ErrDegenerateNetwork for networks with fewer than two
// curves per family, and with ErrInconsistentNetwork if curves do not meet
// exactly once or cannot be ordered monotonically.
func Match(net *Network, tol curvenet.Tolerance, k kernel.Kernel) (*Matched, error) {
	if err := net.Validate(); err != nil {
		return nil, err
	}
	if err := tol.Validate(); err != nil {
		return nil, err
	}
	if k == nil {
		k = kernel.Default()
	}
	s := &sorter{
		profiles: normalized(net.Profiles),
		guides:   normalized(net.Guides),
	}
	if err := s.intersect(k, tol); err != nil {
		return nil, err
	}
	if err := s.sort(); err != nil {
		return nil, err
	}
	if err := s.validate(); err != nil {
		tracer().Errorf("network is inconsistent: %v", err)
		return nil, err
	}
	s.snap(tol)
	m := &Matched{
		ParamsU:       averageColumns(s.u),
		ParamsV:       averageRows(s.v),
		Intersections: s.hits,
	}
	nP, nG := s.nProfiles(), s.nGuides()
	if !bounded(m.ParamsU, tol) || !bounded(m.ParamsV, tol) {
		return nil, fmt.Errorf("%w: network is not bounded by its first and last curves (u ∈ [%g,%g], v ∈ [%g,%g])",
			curvenet.ErrInconsistentNetwork, m.ParamsU[0], m.ParamsU[nG-1], m.ParamsV[0], m.ParamsV[nP-1])
	}
	m.ParamsU[0], m.ParamsU[nG-1] = 0, 1
	m.ParamsV[0], m.ParamsV[nP-1] = 0, 1
	ncpU := controlPointBudget(s.profiles, nG, tol)
	ncpV := controlPointBudget(s.guides, nP, tol)
	m.Profiles = make([]*bspline.Curve, nP)
	for i, c := range s.profiles {
		r, err := fit.Reparametrize(c, s.u[i], m.ParamsU, ncpU, k)
		if err != nil {
			return nil, fmt.Errorf("reparametrizing profile %d: %w", i, err)
		}
		m.Profiles[i] = r
	}
	m.Guides = make([]*bspline.Curve, nG)
	for j, c := range s.guides {
		r, err := fit.Reparametrize(c, s.column(j), m.ParamsV, ncpV, k)
		if err != nil {
			return nil, fmt.Errorf("reparametrizing guide %d: %w", j, err)
		}
		m.Guides[j] = r
	}
	m.Points = make([][]curvenet.Point, nP)
	for i := range m.Points {
		m.Points[i] = make([]curvenet.Point, nG)
		for j := range m.Points[i] {
			a := k.CurvePoint(m.Profiles[i], m.ParamsU[j]).Vec3()
			b := k.CurvePoint(m.Guides[j], m.ParamsV[i]).Vec3()
			mid := a
			mid.Add(&b).Scale(0.5)
			m.Points[i][j] = curvenet.FromVec3(mid)
		}
	}
	tracer().Infof("matched network of %d profiles and %d guides", nP, nG)
	return m, nil
}

func normalized(curves []*bspline.Curve) []*bspline.Curve {
	r := make([]*bspline.Curve, len(curves))
	for i, c := range curves {
		r[i] = c.Reparametrized(0, 1)
	}
	return r
}

// intersect fills the parameter matrices. Every pair of curves has to
// meet exactly once. Closed curves may meet a partner twice at their seam;
// the first guide then takes the lower parameter and the last guide the
// upper one (and symmetrically for closed guides).
func (s *sorter) intersect(k kernel.Kernel, tol curvenet.Tolerance) error {
	nP, nG := s.nProfiles(), s.nGuides()
	s.u = make([][]float64, nP)
	s.v = make([][]float64, nP)
	s.hits = make([][]kernel.Intersection, nP)
	scale := math.Max(1, networkScale(s.profiles, s.guides))
	closedP := s.profiles[0].IsClosed(tol.Tol3D * scale)
	closedG := s.guides[0].IsClosed(tol.Tol3D * scale)
	for i, p := range s.profiles {
		s.u[i] = make([]float64, nG)
		s.v[i] = make([]float64, nG)
		s.hits[i] = make([]kernel.Intersection, nG)
		for j, g := range s.guides {
			found, err := k.Intersect(p, g, tol.Tol3D*scale)
			if err != nil {
				return err
			}
			var x kernel.Intersection
			switch {
			case len(found) == 1:
				x = found[0]
			case len(found) == 2 && closedP:
				x = found[0]
				if j == nG-1 {
					x.U = math.Max(found[0].U, found[1].U)
				} else {
					x.U = math.Min(found[0].U, found[1].U)
				}
			case len(found) == 2 && closedG:
				x = found[0]
				if i == nP-1 {
					x.V = math.Max(found[0].V, found[1].V)
				} else {
					x.V = math.Min(found[0].V, found[1].V)
				}
			default:
				return fmt.Errorf("%w: profile %d and guide %d intersect %d times",
					curvenet.ErrInconsistentNetwork, i, j, len(found))
			}
			s.u[i][j], s.v[i][j], s.hits[i][j] = x.U, x.V, x
			tracer().Debugf("profile %d × guide %d at (%.4f, %.4f)", i, j, x.U, x.V)
		}
	}
	return nil
}

// snap removes small inaccuracies of intersection parameters at the
// domain boundaries.
func (s *sorter) snap(tol curvenet.Tolerance) {
	for _, m := range [][][]float64{s.u, s.v} {
		for i := range m {
			for j, t := range m[i] {
				if math.Abs(t) < tol.Tol3D {
					m[i][j] = 0
				} else if math.Abs(t-1) < tol.Tol3D {
					m[i][j] = 1
				}
			}
		}
	}
}

func averageColumns(m [][]float64) []float64 {
	avg := make([]float64, len(m[0]))
	for _, row := range m {
		for j, t := range row {
			avg[j] += t / float64(len(m))
		}
	}
	return avg
}

func averageRows(m [][]float64) []float64 {
	avg := make([]float64, len(m))
	for i, row := range m {
		for _, t := range row {
			avg[i] += t / float64(len(row))
		}
	}
	return avg
}

func bounded(params []float64, tol curvenet.Tolerance) bool {
	return params[0] <= tol.Tol3D && params[len(params)-1] >= 1-tol.Tol3D
}

// controlPointBudget is the number of control points for reparametrized
// curves: 10 more than the most detailed input curve, at least 10 and
// enough to interpolate all intersections with C2 closure, at most the
// segment ceiling of the tolerance context.
func controlPointBudget(curves []*bspline.Curve, partners int, tol curvenet.Tolerance) int {
	most := 0
	for _, c := range curves {
		most = max(most, c.N())
	}
	lo := max(partners+2, minControlPoints)
	hi := max(lo, tol.MaxSegments)
	return max(lo, min(most+extraControlPoints, hi))
}

// networkScale is the diameter of the bounding box of all control points.
func networkScale(families ...[]*bspline.Curve) float64 {
	var lo, hi vec3.T
	first := true
	for _, f := range families {
		for _, c := range f {
			for _, p := range c.Control {
				v := p.Vec3()
				if first {
					lo, hi, first = v, v, false
					continue
				}
				for d := 0; d < 3; d++ {
					lo[d], hi[d] = math.Min(lo[d], v[d]), math.Max(hi[d], v[d])
				}
			}
		}
	}
	return vec3.Distance(&lo, &hi)
}
