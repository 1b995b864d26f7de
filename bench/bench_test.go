package bench_test

import (
	"encoding/binary"
	"errors"
	"math"

	"github.com/golang/mock/gomock"
	"github.com/sarchlab/akita/v4/sim"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/miogemm/bench"
	"github.com/sarchlab/miogemm/derive"
	"github.com/sarchlab/miogemm/device"
	"github.com/sarchlab/miogemm/geometry"
	"github.com/sarchlab/miogemm/hypas"
	"github.com/sarchlab/miogemm/kernelgen"
)

func f32Bytes(vals []float32) []byte {
	out := make([]byte, len(vals)*4)
	for i, v := range vals {
		binary.LittleEndian.PutUint32(out[i*4:], math.Float32bits(v))
	}
	return out
}

func setupScenario() (geometry.Geometry, hypas.HyPas, derive.DerivedParams) {
	g, err := geometry.Parse("tC0_tA0_tB0_colMaj1_m64_n64_k64_lda64_ldb64_ldc64_ws0_f32")
	Expect(err).NotTo(HaveOccurred())

	h := hypas.New()
	h = h.WithKnob(hypas.RoleA, "MIC", 4).WithKnob(hypas.RoleA, "PAD", 1)
	h = h.WithKnob(hypas.RoleB, "MIC", 4).WithKnob(hypas.RoleB, "PAD", 1)
	h = h.WithKnob(hypas.RoleC, "UNR", 8).WithKnob(hypas.RoleC, "MAC", 16).
		WithKnob(hypas.RoleC, "NAW", 4).WithKnob(hypas.RoleC, "UFO", 0)

	dp, err := derive.Compute(g, h, geometry.DefaultDeviceInfo)
	Expect(err).NotTo(HaveOccurred())

	return g, h, dp
}

var _ = Describe("Benchmarker", func() {
	It("runs to completion against SimDevice and aggregates positive timings", func() {
		g, h, dp := setupScenario()
		bundle := kernelgen.Generate(g, h, dp)

		dev := device.SimDeviceBuilder{}.
			WithEngine(sim.NewSerialEngine()).
			WithFreq(1 * sim.GHz).
			WithDeviceInfo(geometry.DefaultDeviceInfo).
			Build("BenchDevice")

		bm := bench.New(dev)

		a := make([]float32, g.M*g.K)
		b := make([]float32, g.K*g.N)
		c0 := make([]float32, g.M*g.N)
		for i := range a {
			a[i] = 1
		}
		for i := range b {
			b[i] = 1
		}

		result, err := bm.Run(g, h, dp, bundle, bench.Inputs{
			A: f32Bytes(a), B: f32Bytes(b), C0: f32Bytes(c0),
		}, bench.RunOptions{})

		Expect(err).NotTo(HaveOccurred())
		Expect(result.Status).To(Equal(bench.OK))
		Expect(result.MedianTimeMs).To(BeNumerically(">", 0))
		Expect(result.MedianGFLOPs).To(BeNumerically(">", 0))
		Expect(result.PerIterTimesMs).NotTo(BeEmpty())
	})

	It("reports CompileFailed when the device rejects a kernel", func() {
		g, h, dp := setupScenario()
		bundle := kernelgen.Generate(g, h, dp)

		mockCtrl := gomock.NewController(GinkgoT())
		defer mockCtrl.Finish()

		mockHandle := device.NewMockHandle(mockCtrl)
		mockHandle.EXPECT().Compile(gomock.Any(), gomock.Any()).
			Return(device.ProgramID(0), errors.New("bad source")).AnyTimes()

		bm := bench.New(mockHandle)
		_, err := bm.Run(g, h, dp, bundle, bench.Inputs{}, bench.RunOptions{})

		Expect(err).To(HaveOccurred())
		var benchErr *bench.Error
		Expect(errors.As(err, &benchErr)).To(BeTrue())
		Expect(benchErr.Status).To(Equal(bench.CompileFailed))
	})
})
