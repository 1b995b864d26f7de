package geometry

import (
	"fmt"
)

// DeviceInfo holds the queried capabilities of the target device that
// the search graph and derived-params computation need. It is created
// once per search and never mutated.
type DeviceInfo struct {
	WavefrontSize   int
	LocalMemBytes   int
	ComputeUnits    int
	SupportsFloat64 bool
}

// DefaultDeviceInfo is a representative mid-range GPU, used by tests
// and as a CLI fallback when a real device handle cannot be queried
// up front.
var DefaultDeviceInfo = DeviceInfo{
	WavefrontSize:   64,
	LocalMemBytes:   32 * 1024,
	ComputeUnits:    36,
	SupportsFloat64: true,
}

// Fingerprint returns a short string identifying this device's
// characteristics, used as part of the solution cache key (§4 of
// SPEC_FULL.md: cache keys on geometry + device fingerprint).
func (d DeviceInfo) Fingerprint() string {
	f64 := 0
	if d.SupportsFloat64 {
		f64 = 1
	}
	return fmt.Sprintf("wf%d_lm%d_cu%d_f64%d", d.WavefrontSize, d.LocalMemBytes, d.ComputeUnits, f64)
}
