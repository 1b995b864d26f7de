package graph_test

import (
	"errors"
	"math/rand"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/miogemm/geometry"
	"github.com/sarchlab/miogemm/graph"
	"github.com/sarchlab/miogemm/hypas"
)

func mustGeometry(s string) geometry.Geometry {
	g, err := geometry.Parse(s)
	if err != nil {
		panic(err)
	}
	return g
}

var _ = Describe("SearchGraph", func() {
	var g geometry.Geometry

	BeforeEach(func() {
		g = mustGeometry("tC0_tA0_tB0_colMaj1_m256_n256_k256_lda256_ldb256_ldc256_ws0_f32")
	})

	Describe("Build", func() {
		It("builds a non-empty start range for every knob under no constraints", func() {
			sg, err := graph.Build(g, geometry.DefaultDeviceInfo, hypas.Empty())
			Expect(err).NotTo(HaveOccurred())
			for _, role := range []hypas.Role{hypas.RoleA, hypas.RoleB, hypas.RoleC} {
				rg := sg.Roles[role]
				for _, knob := range hypas.KnobsFor(role) {
					Expect(rg.StartRange[knob]).NotTo(BeEmpty(), "role %s knob %s", string(role), knob)
				}
			}
		})

		It("returns EmptyError when a declared subset excludes the whole universe", func() {
			c, err := hypas.NewFromStrings([3]string{"A_MIC[999]", "", ""})
			Expect(err).NotTo(HaveOccurred())
			_, err = graph.Build(g, geometry.DefaultDeviceInfo, c)
			Expect(err).To(HaveOccurred())
			var emptyErr *graph.EmptyError
			Expect(errors.As(err, &emptyErr)).To(BeTrue())
		})
	})

	Describe("Contains", func() {
		It("accepts a HyPas drawn from RandomStart and rejects an out-of-range one", func() {
			sg, err := graph.Build(g, geometry.DefaultDeviceInfo, hypas.Empty())
			Expect(err).NotTo(HaveOccurred())

			rng := rand.New(rand.NewSource(1))
			h := sg.RandomStart(rng)
			Expect(sg.Contains(h)).To(BeTrue())

			bad := h.WithKnob(hypas.RoleC, "MAC", 999999)
			Expect(sg.Contains(bad)).To(BeFalse())
		})
	})

	// Scenario 2 (§8): for this geometry, the neighbor count from a
	// valid start stays within a sane range — neither degenerate (too
	// few directions to search) nor combinatorially exploded.
	Describe("GetNeighbors", func() {
		It("returns between 8 and 80 neighbors for a valid start", func() {
			sg, err := graph.Build(g, geometry.DefaultDeviceInfo, hypas.Empty())
			Expect(err).NotTo(HaveOccurred())

			rng := rand.New(rand.NewSource(42))
			h, err := sg.RandomValidStart(rng)
			Expect(err).NotTo(HaveOccurred())

			neighbors := sg.GetNeighbors(h)
			Expect(len(neighbors)).To(BeNumerically(">=", 8))
			Expect(len(neighbors)).To(BeNumerically("<=", 80))
		})

		It("never returns a duplicate or out-of-graph candidate", func() {
			sg, err := graph.Build(g, geometry.DefaultDeviceInfo, hypas.Empty())
			Expect(err).NotTo(HaveOccurred())

			rng := rand.New(rand.NewSource(7))
			h, err := sg.RandomValidStart(rng)
			Expect(err).NotTo(HaveOccurred())

			seen := make(map[string]bool)
			for _, n := range sg.GetNeighbors(h) {
				Expect(sg.Contains(n)).To(BeTrue())
				key := n.Key()
				Expect(seen[key]).To(BeFalse())
				seen[key] = true
			}
		})
	})

	Describe("RandomValidStart", func() {
		It("finds a derivable HyPas within the retry cap", func() {
			sg, err := graph.Build(g, geometry.DefaultDeviceInfo, hypas.Empty())
			Expect(err).NotTo(HaveOccurred())

			rng := rand.New(rand.NewSource(99))
			_, err = sg.RandomValidStart(rng)
			Expect(err).NotTo(HaveOccurred())
		})

		It("returns NoValidStartError when every draw is tiny-device infeasible", func() {
			tiny := geometry.DeviceInfo{WavefrontSize: 64, LocalMemBytes: 1, ComputeUnits: 1, SupportsFloat64: false}
			sg, err := graph.Build(g, tiny, hypas.Empty())
			Expect(err).NotTo(HaveOccurred())

			rng := rand.New(rand.NewSource(3))
			_, err = sg.RandomValidStart(rng)
			Expect(err).To(HaveOccurred())
			var startErr *graph.NoValidStartError
			Expect(errors.As(err, &startErr)).To(BeTrue())
		})
	})
})
