// Package descent implements the neighborhood search driver: it walks
// a graph.SearchGraph, benchmarking candidates under a wall-clock
// budget and tracking the best solution found (§4.I).
package descent

import (
	"time"

	"github.com/rs/xid"

	"github.com/sarchlab/miogemm/bench"
	"github.com/sarchlab/miogemm/derive"
	"github.com/sarchlab/miogemm/geometry"
	"github.com/sarchlab/miogemm/graph"
	"github.com/sarchlab/miogemm/hypas"
	"github.com/sarchlab/miogemm/kernelgen"
	"github.com/sarchlab/miogemm/output"
	"github.com/sarchlab/miogemm/solution"
)

// Benchmarker is the subset of *bench.Benchmarker the driver needs,
// so tests can substitute a stub or mock without a real device.Handle.
type Benchmarker interface {
	Run(g geometry.Geometry, h hypas.HyPas, dp derive.DerivedParams, bundle kernelgen.KernelBundle, in bench.Inputs, opts bench.RunOptions) (bench.Result, error)
}

// SumStat selects the statistic used to reduce NRunsPerBench repeats
// of one candidate to a single comparable number.
type SumStat int

const (
	MEDIAN SumStat = iota
	MEAN
	MAX
)

func (s SumStat) String() string {
	switch s {
	case MEDIAN:
		return "MEDIAN"
	case MEAN:
		return "MEAN"
	case MAX:
		return "MAX"
	default:
		return "UNKNOWN"
	}
}

func (s SumStat) aggregate(vals []float64) float64 {
	if len(vals) == 0 {
		return 0
	}
	switch s {
	case MEAN:
		var sum float64
		for _, v := range vals {
			sum += v
		}
		return sum / float64(len(vals))
	case MAX:
		max := vals[0]
		for _, v := range vals[1:] {
			if v > max {
				max = v
			}
		}
		return max
	default: // MEDIAN
		sorted := append([]float64(nil), vals...)
		for i := 1; i < len(sorted); i++ {
			for j := i; j > 0 && sorted[j-1] > sorted[j]; j-- {
				sorted[j-1], sorted[j] = sorted[j], sorted[j-1]
			}
		}
		n := len(sorted)
		if n%2 == 1 {
			return sorted[n/2]
		}
		return (sorted[n/2-1] + sorted[n/2]) / 2
	}
}

// FindParams configures one Find call (§4.I).
type FindParams struct {
	SumStat              SumStat
	NRunsPerBench        int // < 1 defaults to 1; bench.Run's own n_timed already adapts per-candidate
	EnforceDeterministic bool
	AllowRestart         bool
	Verbosity            output.Verbosity
	Seed                 int64
	WarmStart            *hypas.HyPas

	// Epsilon is the minimum improvement required to replace best
	// (§4.I: "ε defaults to 0 (strict improvement)").
	Epsilon float64
}

func (p FindParams) nRuns() int {
	if p.NRunsPerBench < 1 {
		return 1
	}
	return p.NRunsPerBench
}

// DescentDriver owns one SearchGraph and drives local search over it.
type DescentDriver struct {
	geom  geometry.Geometry
	dev   geometry.DeviceInfo
	graph *graph.SearchGraph
	bm    Benchmarker
	out   *output.Outputs

	consecutiveCompileFailures int
}

// New builds a DescentDriver, constructing the SearchGraph from
// (g, dev, constraints). out may be nil to suppress all logging.
func New(g geometry.Geometry, dev geometry.DeviceInfo, constraints hypas.Constraints, bm Benchmarker, out *output.Outputs) (*DescentDriver, error) {
	sg, err := graph.Build(g, dev, constraints)
	if err != nil {
		return nil, &Error{Kind: GraphEmpty, Detail: err.Error()}
	}
	return &DescentDriver{geom: g, dev: dev, graph: sg, bm: bm, out: out}, nil
}

func (d *DescentDriver) log(part output.OutPart, msg string, args ...any) {
	if d.out != nil {
		d.out.Emit(part, msg, args...)
	}
}

type candidate struct {
	hypas    hypas.HyPas
	bundle   kernelgen.KernelBundle
	medianMs float64
	gflops   float64
}

// evaluate derives, generates, and benchmarks one HyPas, aggregating
// params.nRuns() repeats via params.SumStat.
func (d *DescentDriver) evaluate(h hypas.HyPas, inputs bench.Inputs, runOpts bench.RunOptions, params FindParams) (candidate, error) {
	dp, err := derive.Compute(d.geom, h, d.dev)
	if err != nil {
		return candidate{}, &Error{Kind: DeriveFailed, Detail: err.Error(), HyPas: &h}
	}

	bundle := kernelgen.Generate(d.geom, h, dp)

	if params.EnforceDeterministic && kernelgen.UsesNonDeterministicAtomics(h) {
		return candidate{}, &Error{Kind: NumericSanityFailed, Detail: "kernel uses non-deterministic atomics under enforce_deterministic", HyPas: &h}
	}

	runs := params.nRuns()
	times := make([]float64, 0, runs)
	var gflops float64

	for i := 0; i < runs; i++ {
		res, rerr := d.bm.Run(d.geom, h, dp, bundle, inputs, runOpts)
		if rerr != nil {
			kind := kindFromBenchStatus(res.Status)
			if kind == CompileFailed {
				d.consecutiveCompileFailures++
				if d.consecutiveCompileFailures >= 2 {
					return candidate{}, &Error{Kind: DeviceFatal, Detail: "compile failed twice in a row", HyPas: &h}
				}
			} else {
				d.consecutiveCompileFailures = 0
			}
			return candidate{}, &Error{Kind: kind, Detail: rerr.Error(), HyPas: &h}
		}
		d.consecutiveCompileFailures = 0
		times = append(times, res.MedianTimeMs)
		gflops = res.MedianGFLOPs
	}

	return candidate{hypas: h, bundle: bundle, medianMs: params.SumStat.aggregate(times), gflops: gflops}, nil
}

func kindFromBenchStatus(s bench.Status) ErrorKind {
	switch s {
	case bench.CompileFailed:
		return CompileFailed
	case bench.EnqueueFailed, bench.ProfilingMissing:
		return EnqueueFailed
	case bench.NumericSanityFailed:
		return NumericSanityFailed
	case bench.DeriveFailed:
		return DeriveFailed
	default:
		return EnqueueFailed
	}
}

// Find runs the neighborhood search (§4.I) until budget elapses or no
// neighbor improves and restarts are disallowed, returning the best
// Solution recorded.
func (d *DescentDriver) Find(budget time.Duration, inputs bench.Inputs, runOpts bench.RunOptions, params FindParams) (solution.Solution, error) {
	runID := xid.New()
	start := time.Now()
	rng := newRand(params.Seed)

	var current hypas.HyPas
	if params.WarmStart != nil {
		current = *params.WarmStart
	} else {
		var err error
		current, err = d.graph.RandomValidStart(rng)
		if err != nil {
			return solution.Solution{}, &Error{Kind: GraphEmpty, Detail: err.Error()}
		}
	}

	d.log(output.MAI, "descent starting", "run", runID.String(), "start_hypas", current.String())

	best, err := d.evaluate(current, inputs, runOpts, params)
	if err != nil {
		// There is no fallback solution to fall back to: whatever kind
		// the starting HyPas failed with propagates unchanged.
		return solution.Solution{}, err
	}

	visited := map[string]bool{current.Key(): true}

	for time.Since(start) < budget {
		neighbors := d.graph.GetNeighbors(current)
		improved := false

		for _, h := range neighbors {
			if visited[h.Key()] {
				continue
			}
			if time.Since(start) >= budget {
				return d.finish(best, runID, start), nil
			}

			cand, cerr := d.evaluate(h, inputs, runOpts, params)
			visited[h.Key()] = true

			if cerr != nil {
				if de, ok := cerr.(*Error); ok {
					if de.Kind == DeviceFatal {
						d.log(output.WRN, "aborting: device fatal", "run", runID.String(), "hypas", h.String())
						return d.finish(best, runID, start), de
					}
					d.log(output.WRN, "candidate rejected", "run", runID.String(), "hypas", h.String(), "kind", de.Kind.String())
				}
				continue
			}

			d.log(output.TRA, "candidate evaluated", "run", runID.String(), "hypas", h.String(), "median_ms", cand.medianMs)
			if d.out != nil {
				d.out.RecordBench(h.Key(), cand.medianMs, cand.gflops)
			}

			if cand.medianMs < best.medianMs-params.Epsilon {
				best = cand
				current = h
				improved = true
				break
			}
		}

		if !improved {
			if params.AllowRestart {
				visited[current.Key()] = true
				newStart, serr := d.graph.RandomValidStart(rng)
				if serr != nil {
					break
				}
				current = newStart
				continue
			}
			break
		}
	}

	return d.finish(best, runID, start), nil
}

func (d *DescentDriver) finish(best candidate, runID xid.ID, start time.Time) solution.Solution {
	discoverySecs := time.Since(start).Seconds()
	d.log(output.MAI, "descent finished", "run", runID.String(), "best_hypas", best.hypas.String(), "median_ms", best.medianMs)
	return solution.FromBundle(best.bundle, best.hypas, d.geom, best.medianMs, best.gflops, discoverySecs)
}
