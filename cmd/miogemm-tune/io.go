package main

import (
	"encoding/binary"
	"fmt"
	"math"
	"os"

	"github.com/sarchlab/miogemm/bench"
	"github.com/sarchlab/miogemm/geometry"
	"github.com/sarchlab/miogemm/output"
	"github.com/sarchlab/miogemm/solution"
)

// syntheticInputs builds placeholder A/B/C0 host buffers (all-ones
// A/B, zero C0) for geometries supplied on the command line, since the
// CLI surface (§6) has no flag for real problem data. Accuracy
// checking is requested only under ACCURACY verbosity (§4.J).
func syntheticInputs(g geometry.Geometry, verbosity output.Verbosity) (bench.Inputs, bench.RunOptions) {
	a := make([]float64, g.LdA*g.UncoalDim('A'))
	b := make([]float64, g.LdB*g.UncoalDim('B'))
	c0 := make([]float64, g.LdC*g.UncoalDim('C'))
	for i := range a {
		a[i] = 1
	}
	for i := range b {
		b[i] = 1
	}

	inputs := bench.Inputs{
		A:  encodeFloats(a, g.FloatType),
		B:  encodeFloats(b, g.FloatType),
		C0: encodeFloats(c0, g.FloatType),
	}

	runOpts := bench.RunOptions{
		Alpha:         bench.F32Scalar(1),
		Beta:          bench.F32Scalar(0),
		CheckAccuracy: verbosity == output.ACCURACY,
		RefA:          a,
		RefB:          b,
		RefC0:         c0,
		AccuracyTol:   1e-4,
	}
	return inputs, runOpts
}

func encodeFloats(vals []float64, ft geometry.FloatType) []byte {
	switch ft {
	case geometry.F64:
		out := make([]byte, len(vals)*8)
		for i, v := range vals {
			binary.LittleEndian.PutUint64(out[i*8:], math.Float64bits(v))
		}
		return out
	default:
		out := make([]byte, len(vals)*4)
		for i, v := range vals {
			binary.LittleEndian.PutUint32(out[i*4:], math.Float32bits(float32(v)))
		}
		return out
	}
}

// writeSolution writes sol's emitted text to outputPath, or a
// per-geometry suffixed path when multiple geometries were requested,
// or stdout when no --output was given.
func writeSolution(sol solution.Solution, index, total int) {
	text := sol.Emit()

	if outputPath == "" {
		fmt.Println(text)
		return
	}

	path := outputPath
	if total > 1 {
		path = fmt.Sprintf("%s.%d", outputPath, index)
	}

	if err := os.WriteFile(path, []byte(text), 0o644); err != nil {
		fmt.Fprintln(os.Stderr, err)
	}
}
