package descent

import (
	"fmt"

	"github.com/sarchlab/miogemm/hypas"
)

// ErrorKind classifies a descent-level failure per the error taxonomy
// (§7). Inside Find's neighbor loop only DeviceFatal escapes; every
// other kind is recovered there (the candidate is skipped). GraphEmpty
// is returned when no start can be drawn, and an error from the
// starting HyPas itself is returned unchanged, whatever its kind.
type ErrorKind int

const (
	UserInput ErrorKind = iota
	GraphEmpty
	DeriveFailed
	CompileFailed
	EnqueueFailed
	NumericSanityFailed
	DeviceFatal
	Timeout
)

func (k ErrorKind) String() string {
	switch k {
	case UserInput:
		return "UserInput"
	case GraphEmpty:
		return "GraphEmpty"
	case DeriveFailed:
		return "DeriveFailed"
	case CompileFailed:
		return "CompileFailed"
	case EnqueueFailed:
		return "EnqueueFailed"
	case NumericSanityFailed:
		return "NumericSanityFailed"
	case DeviceFatal:
		return "DeviceFatal"
	case Timeout:
		return "Timeout"
	default:
		return "Unknown"
	}
}

// Error carries an ErrorKind, a human-readable detail, and (where
// applicable) the HyPas that triggered it.
type Error struct {
	Kind   ErrorKind
	Detail string
	HyPas  *hypas.HyPas
}

func (e *Error) Error() string {
	if e.HyPas != nil {
		return fmt.Sprintf("descent: %s: %s (hypas=%s)", e.Kind, e.Detail, e.HyPas.String())
	}
	return fmt.Sprintf("descent: %s: %s", e.Kind, e.Detail)
}
