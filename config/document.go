package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/npillmayer/curvenet"
	"github.com/npillmayer/curvenet/bspline"
	"github.com/npillmayer/curvenet/network"
	"gopkg.in/yaml.v3"
)

// ErrInvalidDocument is returned for documents which cannot be read or do
// not pass validation.
var ErrInvalidDocument = errors.New("invalid document")

// Document is the content of a curvenet input file.
type Document struct {
	Settings  Settings            `yaml:"settings,omitempty"`
	Tolerance *curvenet.Tolerance `yaml:"tolerance,omitempty"`
	Networks  []NetworkSpec       `yaml:"networks" validate:"min=1,dive"`
}

// NetworkSpec describes a curve network. Guides may be empty, requesting
// a skinning surface through the profiles.
type NetworkSpec struct {
	Name     string      `yaml:"name" validate:"required"`
	Profiles []CurveSpec `yaml:"profiles" validate:"min=2,dive"`
	Guides   []CurveSpec `yaml:"guides,omitempty" validate:"omitempty,min=2,dive"`
}

// CurveSpec is the serialized form of a bspline.Curve.
type CurveSpec struct {
	Degree   int         `yaml:"degree" validate:"gte=1"`
	Knots    []float64   `yaml:"knots,flow" validate:"required"`
	Control  [][]float64 `yaml:"control,flow" validate:"min=2,dive,min=2,max=4"`
	Weights  []float64   `yaml:"weights,flow,omitempty" validate:"omitempty,dive,gt=0"`
	Periodic bool        `yaml:"periodic,omitempty"`
}

// SurfaceSpec is the serialized form of a bspline.Surface.
type SurfaceSpec struct {
	Name      string        `yaml:"name"`
	DegreeU   int           `yaml:"degreeu"`
	DegreeV   int           `yaml:"degreev"`
	KnotsU    []float64     `yaml:"knotsu,flow"`
	KnotsV    []float64     `yaml:"knotsv,flow"`
	Control   [][][]float64 `yaml:"control"`
	Weights   [][]float64   `yaml:"weights,omitempty"`
	PeriodicU bool          `yaml:"periodicu,omitempty"`
	PeriodicV bool          `yaml:"periodicv,omitempty"`
	Key       string        `yaml:"key,omitempty"`
}

var validate = validator.New()

// Load reads a document and validates it. Missing settings are set to
// their defaults, a missing tolerance context is set to
// curvenet.DefaultTolerance.
func Load(r io.Reader) (*Document, error) {
	doc := &Document{}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}
	doc.Settings = doc.Settings.normalize()
	doc.Settings.InitDefaults()
	if doc.Tolerance == nil {
		tol := curvenet.DefaultTolerance()
		doc.Tolerance = &tol
	}
	if err := doc.Validate(); err != nil {
		return nil, err
	}
	tracer().Infof("loaded document with %d network(s)", len(doc.Networks))
	return doc, nil
}

// LoadFile reads a document from a file.
func LoadFile(path string) (*Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Load(f)
}

// Validate checks the structure of a document and its tolerance context.
func (doc *Document) Validate() error {
	if err := validate.Struct(doc); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidDocument, formatValidationError(err))
	}
	if doc.Tolerance != nil {
		if err := doc.Tolerance.Validate(); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidDocument, err)
		}
	}
	return nil
}

func formatValidationError(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	msgs := make([]string, len(verrs))
	for i, e := range verrs {
		field := strings.TrimPrefix(e.Namespace(), "Document.")
		if e.Param() != "" {
			msgs[i] = fmt.Sprintf("%s violates %s=%s", field, e.Tag(), e.Param())
		} else {
			msgs[i] = fmt.Sprintf("%s violates %s", field, e.Tag())
		}
	}
	return strings.Join(msgs, "; ")
}

// Network converts a network spec into a curve network.
func (ns NetworkSpec) Network() (*network.Network, error) {
	net := network.New()
	for i, cs := range ns.Profiles {
		c, err := cs.Curve()
		if err != nil {
			return nil, fmt.Errorf("network %s, profile %d: %w", ns.Name, i, err)
		}
		net.Profile(c)
	}
	for j, cs := range ns.Guides {
		c, err := cs.Curve()
		if err != nil {
			return nil, fmt.Errorf("network %s, guide %d: %w", ns.Name, j, err)
		}
		net.Guide(c)
	}
	return net, nil
}

// Curve converts a curve spec into a validated curve.
func (cs CurveSpec) Curve() (*bspline.Curve, error) {
	control := make([]curvenet.Point, len(cs.Control))
	for i, p := range cs.Control {
		control[i] = curvenet.P(p...)
	}
	c := &bspline.Curve{
		Degree:   cs.Degree,
		Knots:    append(bspline.KnotVector(nil), cs.Knots...),
		Control:  control,
		Periodic: cs.Periodic,
	}
	if cs.Weights != nil {
		c.Weights = append([]float64(nil), cs.Weights...)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// FromCurve creates the document record of a curve.
func FromCurve(c *bspline.Curve) CurveSpec {
	cs := CurveSpec{
		Degree:   c.Degree,
		Knots:    append([]float64(nil), c.Knots...),
		Control:  make([][]float64, len(c.Control)),
		Periodic: c.Periodic,
	}
	for i, p := range c.Control {
		cs.Control[i] = append([]float64(nil), p...)
	}
	if c.Weights != nil {
		cs.Weights = append([]float64(nil), c.Weights...)
	}
	return cs
}

// FromSurface creates the document record of a surface.
func FromSurface(name string, s *bspline.Surface) SurfaceSpec {
	ss := SurfaceSpec{
		Name:      name,
		DegreeU:   s.DegreeU,
		DegreeV:   s.DegreeV,
		KnotsU:    append([]float64(nil), s.KnotsU...),
		KnotsV:    append([]float64(nil), s.KnotsV...),
		Control:   make([][][]float64, len(s.Control)),
		PeriodicU: s.PeriodicU,
		PeriodicV: s.PeriodicV,
	}
	for i, row := range s.Control {
		ss.Control[i] = make([][]float64, len(row))
		for j, p := range row {
			ss.Control[i][j] = append([]float64(nil), p...)
		}
	}
	if s.Weights != nil {
		ss.Weights = make([][]float64, len(s.Weights))
		for i, row := range s.Weights {
			ss.Weights[i] = append([]float64(nil), row...)
		}
	}
	return ss
}

// Surface converts a surface spec into a validated surface.
func (ss SurfaceSpec) Surface() (*bspline.Surface, error) {
	s := &bspline.Surface{
		DegreeU:   ss.DegreeU,
		DegreeV:   ss.DegreeV,
		KnotsU:    append(bspline.KnotVector(nil), ss.KnotsU...),
		KnotsV:    append(bspline.KnotVector(nil), ss.KnotsV...),
		Control:   make([][]curvenet.Point, len(ss.Control)),
		PeriodicU: ss.PeriodicU,
		PeriodicV: ss.PeriodicV,
	}
	for i, row := range ss.Control {
		s.Control[i] = make([]curvenet.Point, len(row))
		for j, p := range row {
			s.Control[i][j] = curvenet.P(p...)
		}
	}
	if ss.Weights != nil {
		s.Weights = make([][]float64, len(ss.Weights))
		for i, row := range ss.Weights {
			s.Weights[i] = append([]float64(nil), row...)
		}
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// WriteSurfaces writes surface specs as a YAML document.
func WriteSurfaces(w io.Writer, surfaces []SurfaceSpec) error {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(map[string][]SurfaceSpec{"surfaces": surfaces}); err != nil {
		return err
	}
	if err := enc.Close(); err != nil {
		return err
	}
	_, err := w.Write(buf.Bytes())
	return err
}
