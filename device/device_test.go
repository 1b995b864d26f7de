package device_test

import (
	"github.com/sarchlab/akita/v4/sim"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/miogemm/device"
	"github.com/sarchlab/miogemm/geometry"
)

var _ = Describe("SimDevice", func() {
	var dev *device.SimDevice

	BeforeEach(func() {
		dev = device.SimDeviceBuilder{}.
			WithEngine(sim.NewSerialEngine()).
			WithFreq(1 * sim.GHz).
			WithDeviceInfo(geometry.DefaultDeviceInfo).
			Build("TestDevice")
	})

	It("reports the DeviceInfo it was built with", func() {
		Expect(dev.DeviceInfo()).To(Equal(geometry.DefaultDeviceInfo))
	})

	It("round-trips a buffer write then read", func() {
		buf, err := dev.Alloc(16, device.ReadWriteBoth)
		Expect(err).NotTo(HaveOccurred())

		payload := []byte{1, 2, 3, 4}
		_, err = dev.Write(buf, 0, payload)
		Expect(err).NotTo(HaveOccurred())

		out := make([]byte, 4)
		_, err = dev.Read(buf, 0, out)
		Expect(err).NotTo(HaveOccurred())
		Expect(out).To(Equal(payload))
	})

	It("rejects writes past the end of the buffer", func() {
		buf, err := dev.Alloc(4, device.ReadWriteBoth)
		Expect(err).NotTo(HaveOccurred())

		_, err = dev.Write(buf, 0, []byte{1, 2, 3, 4, 5})
		Expect(err).To(HaveOccurred())
	})

	It("memoizes Compile by (source, entry_name)", func() {
		p1, err := dev.Compile("kernel body", "entry")
		Expect(err).NotTo(HaveOccurred())
		p2, err := dev.Compile("kernel body", "entry")
		Expect(err).NotTo(HaveOccurred())
		Expect(p1).To(Equal(p2))
	})

	It("rejects compiling empty source", func() {
		_, err := dev.Compile("", "entry")
		Expect(err).To(HaveOccurred())
	})

	It("charges Enqueue a positive, monotonic synthetic duration", func() {
		prog, err := dev.Compile("kernel body", "entry")
		Expect(err).NotTo(HaveOccurred())

		ev, err := dev.Enqueue(prog, nil, [2]int{64, 64}, [2]int{8, 8}, nil)
		Expect(err).NotTo(HaveOccurred())

		start, end := dev.EventProfile(ev)
		Expect(end).To(BeNumerically(">", start))
	})

	It("rejects Enqueue of an uncompiled program", func() {
		_, err := dev.Enqueue(device.ProgramID(9999), nil, [2]int{64, 64}, [2]int{8, 8}, nil)
		Expect(err).To(HaveOccurred())
	})
})
