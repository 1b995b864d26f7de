package descent_test

import (
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/miogemm/bench"
	"github.com/sarchlab/miogemm/derive"
	"github.com/sarchlab/miogemm/descent"
	"github.com/sarchlab/miogemm/geometry"
	"github.com/sarchlab/miogemm/graph"
	"github.com/sarchlab/miogemm/hypas"
	"github.com/sarchlab/miogemm/kernelgen"
)

func mustTestGeometry() geometry.Geometry {
	g, err := geometry.Parse("tC0_tA0_tB0_colMaj1_m64_n64_k64_lda64_ldb64_ldc64_ws0_f32")
	Expect(err).NotTo(HaveOccurred())
	return g
}

func fixtureHyPas() hypas.HyPas {
	h := hypas.New()
	h = h.WithKnob(hypas.RoleA, "MIC", 4).WithKnob(hypas.RoleA, "PAD", 1)
	h = h.WithKnob(hypas.RoleB, "MIC", 4).WithKnob(hypas.RoleB, "PAD", 1)
	h = h.WithKnob(hypas.RoleC, "UNR", 8).WithKnob(hypas.RoleC, "MAC", 16).
		WithKnob(hypas.RoleC, "NAW", 4).WithKnob(hypas.RoleC, "UFO", 0)
	return h
}

type constantBenchmarker struct {
	ms    float64
	calls int
}

func (b *constantBenchmarker) Run(g geometry.Geometry, h hypas.HyPas, dp derive.DerivedParams, bundle kernelgen.KernelBundle, in bench.Inputs, opts bench.RunOptions) (bench.Result, error) {
	b.calls++
	return bench.Result{Status: bench.OK, MedianTimeMs: b.ms, MedianGFLOPs: 1}, nil
}

type sleepingBenchmarker struct {
	calls int
}

func (b *sleepingBenchmarker) Run(g geometry.Geometry, h hypas.HyPas, dp derive.DerivedParams, bundle kernelgen.KernelBundle, in bench.Inputs, opts bench.RunOptions) (bench.Result, error) {
	b.calls++
	time.Sleep(20 * time.Millisecond)
	return bench.Result{Status: bench.OK, MedianTimeMs: 1, MedianGFLOPs: 1}, nil
}

type poisoningBenchmarker struct {
	startKey    string
	poisonedKey string
	counter     float64
}

func (b *poisoningBenchmarker) Run(g geometry.Geometry, h hypas.HyPas, dp derive.DerivedParams, bundle kernelgen.KernelBundle, in bench.Inputs, opts bench.RunOptions) (bench.Result, error) {
	switch h.Key() {
	case b.poisonedKey:
		return bench.Result{Status: bench.NumericSanityFailed}, &bench.Error{Status: bench.NumericSanityFailed, Detail: "fault injected"}
	case b.startKey:
		return bench.Result{Status: bench.OK, MedianTimeMs: 10, MedianGFLOPs: 1}, nil
	default:
		b.counter--
		return bench.Result{Status: bench.OK, MedianTimeMs: b.counter, MedianGFLOPs: 1}, nil
	}
}

var _ = Describe("DescentDriver", func() {
	g := mustTestGeometry()
	dev := geometry.DefaultDeviceInfo
	h := fixtureHyPas()

	It("terminates at the starting HyPas when no neighbor improves (Scenario 4)", func() {
		stub := &constantBenchmarker{ms: 10}
		driver, err := descent.New(g, dev, hypas.Empty(), stub, nil)
		Expect(err).NotTo(HaveOccurred())

		sol, err := driver.Find(1*time.Second, bench.Inputs{}, bench.RunOptions{}, descent.FindParams{
			WarmStart:    &h,
			AllowRestart: false,
			Seed:         1,
		})

		Expect(err).NotTo(HaveOccurred())
		Expect(sol.HyPas.Equal(h)).To(BeTrue())
		Expect(stub.calls).To(BeNumerically(">", 0))
	})

	It("cuts off within the wall-clock budget (Scenario 5)", func() {
		stub := &sleepingBenchmarker{}
		driver, err := descent.New(g, dev, hypas.Empty(), stub, nil)
		Expect(err).NotTo(HaveOccurred())

		budget := 50 * time.Millisecond
		started := time.Now()

		_, err = driver.Find(budget, bench.Inputs{}, bench.RunOptions{}, descent.FindParams{
			WarmStart:    &h,
			AllowRestart: false,
			Seed:         1,
		})
		elapsed := time.Since(started)

		Expect(err).NotTo(HaveOccurred())
		Expect(stub.calls).To(BeNumerically("<=", 5))
		Expect(elapsed).To(BeNumerically(">=", 40*time.Millisecond))
		Expect(elapsed).To(BeNumerically("<", 120*time.Millisecond))
	})

	It("never re-enters an accuracy-poisoned HyPas (Scenario 6)", func() {
		sg, err := graph.Build(g, dev, hypas.Empty())
		Expect(err).NotTo(HaveOccurred())

		neighbors := sg.GetNeighbors(h)
		var h0 hypas.HyPas
		found := false
		for _, n := range neighbors {
			if _, derr := derive.Compute(g, n, dev); derr == nil {
				h0 = n
				found = true
				break
			}
		}
		Expect(found).To(BeTrue(), "expected at least one derivable neighbor to use as the poisoned candidate")

		stub := &poisoningBenchmarker{startKey: h.Key(), poisonedKey: h0.Key(), counter: 9}
		driver, err := descent.New(g, dev, hypas.Empty(), stub, nil)
		Expect(err).NotTo(HaveOccurred())

		sol, err := driver.Find(5*time.Second, bench.Inputs{}, bench.RunOptions{}, descent.FindParams{
			WarmStart:    &h,
			AllowRestart: true,
			Seed:         1,
		})

		Expect(err).NotTo(HaveOccurred())
		Expect(sol.HyPas.Equal(h0)).To(BeFalse())
		Expect(sol.MedianTimeMs).To(BeNumerically("<", 10))
	})

	It("propagates GraphEmpty when constraints leave no admissible start", func() {
		impossible, err := hypas.NewFromStrings([3]string{"A_PAD[999]", "", ""})
		Expect(err).NotTo(HaveOccurred())

		_, err = descent.New(g, dev, impossible, &constantBenchmarker{ms: 1}, nil)
		Expect(err).To(HaveOccurred())

		var derr *descent.Error
		Expect(err).To(BeAssignableToTypeOf(derr))
	})
})
