package cache

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"hash"
	"math"

	"github.com/npillmayer/curvenet"
	"github.com/npillmayer/curvenet/bspline"
)

// Key is the hex encoded SHA-256 of a canonical binary encoding of curve
// families and a tolerance context.
type Key string

// Short returns the first 12 hex digits of k.
func (k Key) Short() string {
	if len(k) < 12 {
		return string(k)
	}
	return string(k[:12])
}

// KeyOf computes the content key of curve families built with tol. The
// order of families and of curves within a family is significant. Curves
// are encoded with degree, periodicity, knots, control points and weights;
// a non-rational curve and the same curve with unit weights get different
// keys.
func KeyOf(tol curvenet.Tolerance, families ...[]*bspline.Curve) Key {
	h := sha256.New()
	enc := encoder{h: h}
	enc.float(tol.Tol3D)
	enc.float(tol.TolParam)
	enc.int(tol.MaxDegree)
	enc.int(tol.MaxSegments)
	enc.int(len(families))
	for _, f := range families {
		enc.int(len(f))
		for _, c := range f {
			enc.curve(c)
		}
	}
	return Key(hex.EncodeToString(h.Sum(nil)))
}

type encoder struct {
	h   hash.Hash
	buf [8]byte
}

func (enc *encoder) int(n int) {
	binary.LittleEndian.PutUint64(enc.buf[:], uint64(int64(n)))
	enc.h.Write(enc.buf[:])
}

func (enc *encoder) float(x float64) {
	if x == 0 {
		x = 0 // -0 and +0 encode the same
	}
	binary.LittleEndian.PutUint64(enc.buf[:], math.Float64bits(x))
	enc.h.Write(enc.buf[:])
}

func (enc *encoder) floats(xs []float64) {
	enc.int(len(xs))
	for _, x := range xs {
		enc.float(x)
	}
}

func (enc *encoder) curve(c *bspline.Curve) {
	enc.int(c.Degree)
	if c.Periodic {
		enc.int(1)
	} else {
		enc.int(0)
	}
	enc.floats(c.Knots)
	enc.int(len(c.Control))
	for _, p := range c.Control {
		enc.floats(p)
	}
	if c.Weights == nil {
		enc.int(-1)
		return
	}
	enc.floats(c.Weights)
}
