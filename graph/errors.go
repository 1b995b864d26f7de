package graph

import (
	"fmt"

	"github.com/sarchlab/miogemm/hypas"
)

// EmptyError is returned by Build when, after intersecting with
// Constraints, some knob's start range is empty (§4.F).
type EmptyError struct {
	Role hypas.Role
	Knob string
}

func (e *EmptyError) Error() string {
	return fmt.Sprintf("graph: empty start range for %s.%s (%s) after applying constraints",
		string(e.Role), e.Knob, hypas.Describe(e.Knob))
}

// NoValidStartError is returned by RandomValidStart when no
// DerivedParams-admissible HyPas was found within the retry cap
// (§4.F).
type NoValidStartError struct {
	Attempts int
}

func (e *NoValidStartError) Error() string {
	return fmt.Sprintf("graph: no valid start found after %d attempts", e.Attempts)
}
