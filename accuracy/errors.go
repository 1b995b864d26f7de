package accuracy

import "fmt"

// NumericSanityFailedError means a candidate HyPas's device output
// diverged from the CPU reference by more than tolerance (§7): the
// HyPas is recorded as poisoned and never retried, but the search
// continues.
type NumericSanityFailedError struct {
	Detail     string
	MaxAbsDiff float64
	Tolerance  float64
}

func (e *NumericSanityFailedError) Error() string {
	return fmt.Sprintf("accuracy: %s (max_abs_diff=%g tolerance=%g)", e.Detail, e.MaxAbsDiff, e.Tolerance)
}
