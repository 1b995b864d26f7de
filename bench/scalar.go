package bench

import (
	"encoding/binary"
	"math"

	"github.com/sarchlab/miogemm/geometry"
)

// Scalar is the alpha/beta payload tagged union (§9 DESIGN NOTES):
// kernels read alpha and beta at their own native float width, so the
// value is carried at the width it was constructed with and converted
// only when AsBytes is called, never via pointer-aliased
// reinterpretation.
type Scalar struct {
	isF64 bool
	f32   float32
	f64   float64
}

// F32Scalar constructs a single-precision Scalar.
func F32Scalar(v float32) Scalar { return Scalar{f32: v} }

// F64Scalar constructs a double-precision Scalar.
func F64Scalar(v float64) Scalar { return Scalar{isF64: true, f64: v} }

// AsBytes returns the little-endian raw bytes of the Scalar narrowed
// or widened to width.
func (s Scalar) AsBytes(width geometry.FloatType) []byte {
	switch width {
	case geometry.F32:
		v := s.f32
		if s.isF64 {
			v = float32(s.f64)
		}
		buf := make([]byte, 4)
		binary.LittleEndian.PutUint32(buf, math.Float32bits(v))
		return buf
	case geometry.F64:
		v := s.f64
		if !s.isF64 {
			v = float64(s.f32)
		}
		buf := make([]byte, 8)
		binary.LittleEndian.PutUint64(buf, math.Float64bits(v))
		return buf
	default:
		panic("bench: unknown float width")
	}
}
