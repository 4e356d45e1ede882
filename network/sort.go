package network

import (
	"fmt"

	"github.com/npillmayer/curvenet"
	"github.com/npillmayer/curvenet/bspline"
	"github.com/npillmayer/curvenet/kernel"
)

// sorter orders a network. u[i][j] is the parameter of the intersection
// of profile i and guide j along the profile, v[i][j] along the guide.
// All curves have the domain [0,1].
type sorter struct {
	profiles, guides []*bspline.Curve
	u, v             [][]float64
	hits             [][]kernel.Intersection
}

func (s *sorter) nProfiles() int { return len(s.profiles) }
func (s *sorter) nGuides() int   { return len(s.guides) }

func (s *sorter) swapProfiles(i, j int) {
	if i == j {
		return
	}
	s.profiles[i], s.profiles[j] = s.profiles[j], s.profiles[i]
	s.u[i], s.u[j] = s.u[j], s.u[i]
	s.v[i], s.v[j] = s.v[j], s.v[i]
	s.hits[i], s.hits[j] = s.hits[j], s.hits[i]
}

func (s *sorter) swapGuides(i, j int) {
	if i == j {
		return
	}
	s.guides[i], s.guides[j] = s.guides[j], s.guides[i]
	for k := range s.u {
		s.u[k][i], s.u[k][j] = s.u[k][j], s.u[k][i]
		s.v[k][i], s.v[k][j] = s.v[k][j], s.v[k][i]
		s.hits[k][i], s.hits[k][j] = s.hits[k][j], s.hits[k][i]
	}
}

func (s *sorter) reverseProfile(i int) {
	tracer().Debugf("reversing profile %d", i)
	s.profiles[i] = s.profiles[i].Reversed()
	for j := range s.u[i] {
		s.u[i][j] = 1 - s.u[i][j]
		s.hits[i][j].U = s.u[i][j]
	}
}

func (s *sorter) reverseGuide(j int) {
	tracer().Debugf("reversing guide %d", j)
	s.guides[j] = s.guides[j].Reversed()
	for i := range s.v {
		s.v[i][j] = 1 - s.v[i][j]
		s.hits[i][j].V = s.v[i][j]
	}
}

// argmin/argmax of profile row i in u, and of guide column j in v.
func (s *sorter) guideAtStart(i int) int  { return rowIndex(s.u[i], func(a, b float64) bool { return a < b }) }
func (s *sorter) guideAtEnd(i int) int    { return rowIndex(s.u[i], func(a, b float64) bool { return a > b }) }
func (s *sorter) profileAtStart(j int) int { return rowIndex(s.column(j), func(a, b float64) bool { return a < b }) }
func (s *sorter) profileAtEnd(j int) int   { return rowIndex(s.column(j), func(a, b float64) bool { return a > b }) }

func (s *sorter) column(j int) []float64 {
	col := make([]float64, s.nProfiles())
	for i := range col {
		col[i] = s.v[i][j]
	}
	return col
}

func rowIndex(row []float64, better func(a, b float64) bool) int {
	best := 0
	for k := range row {
		if better(row[k], row[best]) {
			best = k
		}
	}
	return best
}

// findStart finds a profile and a guide which meet at the start (or end)
// of each other, and reports which of them have to be reversed. Pairs
// needing no reversal are preferred.
func (s *sorter) findStart() (iProf, iGuide int, revProf, revGuide bool, ok bool) {
	for _, rev := range [][2]bool{{false, false}, {true, false}, {false, true}, {true, true}} {
		for i := 0; i < s.nProfiles(); i++ {
			for j := 0; j < s.nGuides(); j++ {
				atG := s.guideAtStart(i) == j
				if rev[0] {
					atG = s.guideAtEnd(i) == j
				}
				atP := s.profileAtStart(j) == i
				if rev[1] {
					atP = s.profileAtEnd(j) == i
				}
				if atG && atP {
					return i, j, rev[0], rev[1], true
				}
			}
		}
	}
	return 0, 0, false, false, false
}

// sort moves the start pair to the front, bubble-sorts the guides along the
// first profile and the profiles along the first guide, and reverses curves
// running backwards.
func (s *sorter) sort() error {
	i0, j0, revP, revG, ok := s.findStart()
	if !ok {
		return fmt.Errorf("%w: no pair of curves starting at each other", curvenet.ErrInconsistentNetwork)
	}
	s.swapProfiles(0, i0)
	s.swapGuides(0, j0)
	if revP {
		s.reverseProfile(0)
	}
	if revG {
		s.reverseGuide(0)
	}
	bubbleSort(s.nGuides(), func(j int) float64 { return s.u[0][j] }, s.swapGuides)
	bubbleSort(s.nProfiles(), func(i int) float64 { return s.v[i][0] }, s.swapProfiles)
	last := s.nGuides() - 1
	for i := 1; i < s.nProfiles(); i++ {
		if s.u[i][0] > s.u[i][last] {
			s.reverseProfile(i)
		}
	}
	last = s.nProfiles() - 1
	for j := 1; j < s.nGuides(); j++ {
		if s.v[0][j] > s.v[last][j] {
			s.reverseGuide(j)
		}
	}
	return nil
}

func bubbleSort(n int, key func(int) float64, swap func(i, j int)) {
	for pass := n - 1; pass > 0; pass-- {
		swapped := false
		for k := 0; k < pass; k++ {
			if key(k) > key(k+1) {
				swap(k, k+1)
				swapped = true
			}
		}
		if !swapped {
			return
		}
	}
}

// failing lists profiles whose row in u and guides whose column in v are
// not strictly increasing.
func (s *sorter) failing() (profiles, guides []int) {
	for i := range s.u {
		if !increasing(s.u[i]) {
			profiles = append(profiles, i)
		}
	}
	for j := 0; j < s.nGuides(); j++ {
		if !increasing(s.column(j)) {
			guides = append(guides, j)
		}
	}
	return
}

func increasing(t []float64) bool {
	for k := 1; k < len(t); k++ {
		if !(t[k] > t[k-1]) {
			return false
		}
	}
	return true
}

// validate checks monotonicity. A single offending curve gets one reversal
// attempt; offences on more than one curve are not repaired.
func (s *sorter) validate() error {
	profiles, guides := s.failing()
	switch n := len(profiles) + len(guides); {
	case n == 0:
		return nil
	case n > 1:
		return fmt.Errorf("%w: profiles %v and guides %v are out of order",
			curvenet.ErrInconsistentNetwork, profiles, guides)
	}
	if len(profiles) == 1 {
		s.reverseProfile(profiles[0])
	} else {
		s.reverseGuide(guides[0])
	}
	profiles, guides = s.failing()
	if len(profiles)+len(guides) > 0 {
		return fmt.Errorf("%w: profiles %v and guides %v are out of order after reversal",
			curvenet.ErrInconsistentNetwork, profiles, guides)
	}
	return nil
}
