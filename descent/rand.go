package descent

import "math/rand"

// newRand seeds a PRNG for one Find call (§6: FindParams.seed).
func newRand(seed int64) *rand.Rand {
	return rand.New(rand.NewSource(seed))
}
