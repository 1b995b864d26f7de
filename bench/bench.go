// Package bench compiles, enqueues, times, and optionally
// accuracy-checks one kernel bundle on a device.Handle (§4.H).
package bench

import (
	"math"
	"sort"

	"github.com/sarchlab/miogemm/accuracy"
	"github.com/sarchlab/miogemm/derive"
	"github.com/sarchlab/miogemm/device"
	"github.com/sarchlab/miogemm/geometry"
	"github.com/sarchlab/miogemm/hypas"
	"github.com/sarchlab/miogemm/kernelgen"
)

// nWarmup is the number of untimed iterations run before the n_timed
// measured iterations (§4.H step 4 fixes only the total; the warmup
// count itself is left to the implementation).
const nWarmup = 2

// Inputs holds the already-width-encoded host bytes for A, B, and the
// initial C, sized to each matrix's own leading-dimension extent.
type Inputs struct {
	A, B, C0 []byte
}

// Result is one Benchmarker.Run outcome.
type Result struct {
	Status         Status
	MedianTimeMs   float64
	MedianGFLOPs   float64
	PerIterTimesMs []float64
	Accuracy       *accuracy.Result
}

// RunOptions configures one Run call.
type RunOptions struct {
	Alpha, Beta   Scalar
	CheckAccuracy bool
	RefA, RefB    []float64 // host-precision inputs for the CPU reference, only read when CheckAccuracy
	RefC0         []float64
	AccuracyTol   float64
}

// Benchmarker drives one device.Handle, reusing its A/B/C/W buffers
// across HyPas iterations with compatible shapes (§5 shared resource
// policy).
type Benchmarker struct {
	handle device.Handle

	shapeKey               string
	bufA, bufB, bufC, bufW device.BufferID
	haveBuffers            bool
}

// New creates a Benchmarker over handle.
func New(handle device.Handle) *Benchmarker {
	return &Benchmarker{handle: handle}
}

func shapeKey(g geometry.Geometry) string {
	return g.String()
}

func (bm *Benchmarker) ensureBuffers(g geometry.Geometry, dp derive.DerivedParams) error {
	key := shapeKey(g)
	if bm.haveBuffers && bm.shapeKey == key {
		return nil
	}
	if bm.haveBuffers {
		bm.handle.Release(bm.bufA)
		bm.handle.Release(bm.bufB)
		bm.handle.Release(bm.bufC)
		if bm.bufW != 0 {
			bm.handle.Release(bm.bufW)
		}
	}

	floatSize := g.FloatSizeBytes()
	var err error
	if bm.bufA, err = bm.handle.Alloc(g.LdA*g.UncoalDim('A')*floatSize, device.ReadOnly); err != nil {
		return err
	}
	if bm.bufB, err = bm.handle.Alloc(g.LdB*g.UncoalDim('B')*floatSize, device.ReadOnly); err != nil {
		return err
	}
	if bm.bufC, err = bm.handle.Alloc(g.LdC*g.UncoalDim('C')*floatSize, device.ReadWriteBoth); err != nil {
		return err
	}
	bm.bufW = 0
	if dp.WorkspaceBytesRequired > 0 {
		if bm.bufW, err = bm.handle.Alloc(dp.WorkspaceBytesRequired, device.ReadWriteBoth); err != nil {
			return err
		}
	}

	bm.shapeKey = key
	bm.haveBuffers = true
	return nil
}

func nTimed(g geometry.Geometry) int {
	n := math.Ceil(1e11 / (2 * float64(g.M) * float64(g.N) * float64(g.K)))
	if n < 2 {
		n = 2
	}
	if n > 1000 {
		n = 1000
	}
	return int(n)
}

func median(vals []float64) float64 {
	sorted := append([]float64(nil), vals...)
	sort.Float64s(sorted)
	n := len(sorted)
	if n == 0 {
		return 0
	}
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}

// Run compiles bundle's kernels, stages in, enqueues n_warmup+n_timed
// iterations in dependency order, and aggregates timing statistics
// (§4.H).
func (bm *Benchmarker) Run(g geometry.Geometry, h hypas.HyPas, dp derive.DerivedParams, bundle kernelgen.KernelBundle, in Inputs, opts RunOptions) (Result, error) {
	programs := make(map[kernelgen.KernelType]device.ProgramID, len(bundle.Kernels))
	for _, kt := range bundle.DependencyOrder() {
		ks, _ := bundle.Get(kt)
		prog, err := bm.handle.Compile(ks.Source, ks.EntryName)
		if err != nil {
			return Result{Status: CompileFailed}, &Error{Status: CompileFailed, Detail: err.Error()}
		}
		programs[kt] = prog
	}

	if err := bm.ensureBuffers(g, dp); err != nil {
		return Result{Status: EnqueueFailed}, &Error{Status: EnqueueFailed, Detail: err.Error()}
	}

	if _, err := bm.handle.Write(bm.bufA, 0, in.A); err != nil {
		return Result{Status: EnqueueFailed}, &Error{Status: EnqueueFailed, Detail: err.Error()}
	}
	if _, err := bm.handle.Write(bm.bufB, 0, in.B); err != nil {
		return Result{Status: EnqueueFailed}, &Error{Status: EnqueueFailed, Detail: err.Error()}
	}
	if _, err := bm.handle.Write(bm.bufC, 0, in.C0); err != nil {
		return Result{Status: EnqueueFailed}, &Error{Status: EnqueueFailed, Detail: err.Error()}
	}

	nTotal := nWarmup + nTimed(g)
	timesMs := make([]float64, 0, nTotal-nWarmup)

	for iter := 0; iter < nTotal; iter++ {
		finalEvent, err := bm.enqueueOnce(bundle, programs, dp)
		if err != nil {
			return Result{Status: EnqueueFailed}, &Error{Status: EnqueueFailed, Detail: err.Error()}
		}

		if iter >= nWarmup {
			startNs, endNs := bm.handle.EventProfile(finalEvent)
			if endNs <= startNs {
				return Result{Status: ProfilingMissing}, &Error{Status: ProfilingMissing, Detail: "event profile returned non-positive duration"}
			}
			timesMs = append(timesMs, float64(endNs-startNs)/1e6)
		}
	}

	medianMs := median(timesMs)
	result := Result{
		Status:         OK,
		MedianTimeMs:   medianMs,
		MedianGFLOPs:   2 * float64(g.M) * float64(g.N) * float64(g.K) / (medianMs * 1e6),
		PerIterTimesMs: timesMs,
	}

	if opts.CheckAccuracy {
		hostC := make([]byte, g.LdC*g.UncoalDim('C')*g.FloatSizeBytes())
		if _, err := bm.handle.Read(bm.bufC, 0, hostC); err != nil {
			return result, &Error{Status: EnqueueFailed, Detail: err.Error()}
		}
		stored := widen(hostC, g.FloatType)
		deviceC := make([]float64, g.M*g.N)
		for i := 0; i < g.M; i++ {
			for j := 0; j < g.N; j++ {
				deviceC[i*g.N+j] = stored[g.Offset('C', i, j)]
			}
		}
		ref := accuracy.Reference(g, opts.RefA, opts.RefB, opts.RefC0, widenScalar(opts.Alpha), widenScalar(opts.Beta))
		accRes, accErr := accuracy.Check(g, deviceC, ref, opts.AccuracyTol)
		result.Accuracy = &accRes
		if accErr != nil {
			result.Status = NumericSanityFailed
			return result, &Error{Status: NumericSanityFailed, Detail: accErr.Error()}
		}
	}

	return result, nil
}

func (bm *Benchmarker) enqueueOnce(bundle kernelgen.KernelBundle, programs map[kernelgen.KernelType]device.ProgramID, dp derive.DerivedParams) (device.EventID, error) {
	var prereqs []device.EventID
	var final device.EventID

	for _, kt := range bundle.DependencyOrder() {
		ks, _ := bundle.Get(kt)
		ev, err := bm.handle.Enqueue(programs[kt], nil, ks.GlobalWorkSize, ks.LocalWorkSize, prereqs)
		if err != nil {
			return 0, err
		}
		if kt == kernelgen.Main {
			final = ev
		} else {
			prereqs = append(prereqs, ev)
		}
	}

	if final == 0 {
		// No Main kernel was in the bundle; the last enqueued
		// dependency stands in as the completion event.
		final = prereqs[len(prereqs)-1]
	}
	return final, nil
}

func widen(raw []byte, ft geometry.FloatType) []float64 {
	n := len(raw) / ft.Bytes()
	out := make([]float64, n)
	for i := 0; i < n; i++ {
		switch ft {
		case geometry.F32:
			bits := uint32(raw[i*4]) | uint32(raw[i*4+1])<<8 | uint32(raw[i*4+2])<<16 | uint32(raw[i*4+3])<<24
			out[i] = float64(math.Float32frombits(bits))
		case geometry.F64:
			var bits uint64
			for b := 0; b < 8; b++ {
				bits |= uint64(raw[i*8+b]) << (8 * b)
			}
			out[i] = math.Float64frombits(bits)
		}
	}
	return out
}

func widenScalar(s Scalar) float64 {
	if s.isF64 {
		return s.f64
	}
	return float64(s.f32)
}
