// Package accuracy compares a device-computed GEMM result against a
// double-precision CPU reference (§4.J).
package accuracy

import (
	"math"

	"github.com/sarchlab/miogemm/geometry"
)

// Result holds the comparison statistics between a device result and
// the CPU reference.
type Result struct {
	SumAbsDiff float64
	MaxAbsDiff float64
	Passed     bool
}

// Reference computes C_ref = alpha*A*B + beta*C0 in float64, honoring
// g's transpose flags, storage layout, and leading dimensions via
// geometry.Geometry.Offset. a, b, and c0 are flat element buffers
// sized to their matrix's own leading-dimension extent.
func Reference(g geometry.Geometry, a, b, c0 []float64, alpha, beta float64) []float64 {
	out := make([]float64, g.M*g.N)
	for i := 0; i < g.M; i++ {
		for j := 0; j < g.N; j++ {
			var sum float64
			for k := 0; k < g.K; k++ {
				sum += a[g.Offset('A', i, k)] * b[g.Offset('B', k, j)]
			}
			outIdx := i*g.N + j
			out[outIdx] = alpha*sum + beta*c0[g.Offset('C', i, j)]
		}
	}
	return out
}

// defaultTolerance is the absolute max-abs-diff threshold used by Check
// when the caller does not supply one: 1e-5 for f32 and 1e-10 for f64,
// scaled by K to account for summation error accumulated over the
// reduction dimension.
func defaultTolerance(g geometry.Geometry) float64 {
	eps := 1e-5
	if g.FloatType == geometry.F64 {
		eps = 1e-10
	}
	return eps * float64(g.K)
}

// Check compares deviceC (row-major, M*N, widened to float64 by the
// caller) against refC produced by Reference, row-major in the same
// M*N layout. It returns NumericSanityFailedError when the maximum
// absolute difference exceeds tolerance (or defaultTolerance(g) when
// tolerance <= 0).
func Check(g geometry.Geometry, deviceC, refC []float64, tolerance float64) (Result, error) {
	if tolerance <= 0 {
		tolerance = defaultTolerance(g)
	}
	if len(deviceC) != len(refC) {
		return Result{}, &NumericSanityFailedError{Detail: "device and reference result lengths differ"}
	}

	var sum, max float64
	for i := range refC {
		diff := math.Abs(deviceC[i] - refC[i])
		sum += diff
		if diff > max {
			max = diff
		}
	}

	res := Result{SumAbsDiff: sum, MaxAbsDiff: max, Passed: max <= tolerance}
	if !res.Passed {
		return res, &NumericSanityFailedError{
			Detail:     "max abs diff exceeds tolerance",
			MaxAbsDiff: max,
			Tolerance:  tolerance,
		}
	}
	return res, nil
}
