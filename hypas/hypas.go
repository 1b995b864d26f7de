// Package hypas defines the hyperparameter assignment (HyPas) that
// drives kernel generation: a structured set of tuning knobs for
// matrices A, B (the "Chi" family) and the C-update (the "NonChi"
// family).
package hypas

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var titleCaser = cases.Title(language.English)

// knobDescriptions gives each knob abbreviation a lowercase, diagnosable
// full name, title-cased on demand by Describe.
var knobDescriptions = map[string]string{
	"MIC": "micro-tile",
	"PAD": "local padding",
	"PLU": "pipeline unroll",
	"LIW": "load interleave width",
	"MIW": "micro-interleave width",
	"WOS": "workspace offset staging",
	"UNR": "unroll",
	"GAL": "group allocation",
	"PUN": "partial unroll",
	"ICE": "inter-chunk epsilon",
	"NAW": "number of active warps",
	"UFO": "work-group form",
	"MAC": "work-group dimension",
	"SKW": "skew",
}

// Describe returns a human-readable, title-cased name for knob,
// falling back to the bare abbreviation if it is unrecognized.
func Describe(knob string) string {
	name, ok := knobDescriptions[knob]
	if !ok {
		return knob
	}
	return titleCaser.String(name)
}

// Role identifies which matrix a sub-hyper belongs to.
type Role byte

const (
	RoleA Role = 'A'
	RoleB Role = 'B'
	RoleC Role = 'C'
)

func (r Role) String() string { return string(r) }

// ChiKnobs are the knob abbreviations for matrices A and B, in
// declaration order. Declaration order is also canonical emission and
// neighbor-iteration order (§4.F requires deterministic ordering).
var ChiKnobs = []string{"MIC", "PAD", "PLU", "LIW", "MIW", "WOS"}

// NonChiKnobs are the knob abbreviations for the C-update, in
// declaration order.
var NonChiKnobs = []string{"UNR", "GAL", "PUN", "ICE", "NAW", "UFO", "MAC", "SKW"}

// KnobsFor returns the ordered knob list for a role: ChiKnobs for A/B,
// NonChiKnobs for C.
func KnobsFor(role Role) []string {
	if role == RoleC {
		return NonChiKnobs
	}
	return ChiKnobs
}

// SubHy is one role's knob assignment.
type SubHy struct {
	Role   Role
	Values map[string]int
}

// NewSubHy creates a zero-valued SubHy for the given role, with every
// knob present and set to 0.
func NewSubHy(role Role) SubHy {
	vals := make(map[string]int, len(KnobsFor(role)))
	for _, k := range KnobsFor(role) {
		vals[k] = 0
	}
	return SubHy{Role: role, Values: vals}
}

// Get returns the value of a knob, and whether the knob is known for
// this role.
func (s SubHy) Get(knob string) (int, bool) {
	v, ok := s.Values[knob]
	return v, ok
}

// With returns a copy of s with knob set to value.
func (s SubHy) With(knob string, value int) SubHy {
	out := s.Clone()
	out.Values[knob] = value
	return out
}

// Clone returns a deep copy.
func (s SubHy) Clone() SubHy {
	vals := make(map[string]int, len(s.Values))
	for k, v := range s.Values {
		vals[k] = v
	}
	return SubHy{Role: s.Role, Values: vals}
}

// Equal reports field-wise equality.
func (s SubHy) Equal(o SubHy) bool {
	if s.Role != o.Role || len(s.Values) != len(o.Values) {
		return false
	}
	for k, v := range s.Values {
		if ov, ok := o.Values[k]; !ok || ov != v {
			return false
		}
	}
	return true
}

// String emits this sub-hyper's canonical form:
// ROLE_<KNOB><VAL>_<KNOB><VAL>...
func (s SubHy) String() string {
	knobs := KnobsFor(s.Role)
	parts := make([]string, 0, len(knobs)+1)
	parts = append(parts, s.Role.String())
	for _, k := range knobs {
		parts = append(parts, fmt.Sprintf("%s%d", k, s.Values[k]))
	}
	return strings.Join(parts, "_")
}

var knobTokenPattern = regexp.MustCompile(`^([A-Z]+)(\d+)$`)

func parseSubHy(s string) (SubHy, error) {
	tokens := strings.Split(s, "_")
	if len(tokens) == 0 {
		return SubHy{}, fmt.Errorf("hypas: empty sub-hyper string")
	}
	roleTok := tokens[0]
	if len(roleTok) != 1 {
		return SubHy{}, fmt.Errorf("hypas: malformed role tag %q", roleTok)
	}
	role := Role(roleTok[0])
	if role != RoleA && role != RoleB && role != RoleC {
		return SubHy{}, fmt.Errorf("hypas: unknown role tag %q", roleTok)
	}

	sub := NewSubHy(role)
	knobSet := make(map[string]bool)
	for _, k := range KnobsFor(role) {
		knobSet[k] = true
	}

	for _, tok := range tokens[1:] {
		m := knobTokenPattern.FindStringSubmatch(tok)
		if m == nil {
			return SubHy{}, fmt.Errorf("hypas: malformed knob token %q", tok)
		}
		knob, valStr := m[1], m[2]
		if !knobSet[knob] {
			return SubHy{}, fmt.Errorf("hypas: unknown knob %q for role %s", knob, role)
		}
		val, err := strconv.Atoi(valStr)
		if err != nil {
			return SubHy{}, fmt.Errorf("hypas: bad value in token %q: %w", tok, err)
		}
		sub.Values[knob] = val
	}

	return sub, nil
}

// HyPas is the full tuning assignment: one sub-hyper per matrix role.
type HyPas struct {
	A, B, C SubHy
}

// New creates a zero-valued HyPas.
func New() HyPas {
	return HyPas{A: NewSubHy(RoleA), B: NewSubHy(RoleB), C: NewSubHy(RoleC)}
}

// At returns the sub-hyper for the given role.
func (h HyPas) At(role Role) SubHy {
	switch role {
	case RoleA:
		return h.A
	case RoleB:
		return h.B
	case RoleC:
		return h.C
	default:
		panic("hypas: unknown role " + string(role))
	}
}

// With returns a copy of h with the sub-hyper for role replaced.
func (h HyPas) With(role Role, sub SubHy) HyPas {
	out := h.Clone()
	switch role {
	case RoleA:
		out.A = sub
	case RoleB:
		out.B = sub
	case RoleC:
		out.C = sub
	default:
		panic("hypas: unknown role " + string(role))
	}
	return out
}

// WithKnob returns a copy of h with one knob of one role set to value.
func (h HyPas) WithKnob(role Role, knob string, value int) HyPas {
	return h.With(role, h.At(role).With(knob, value))
}

// Clone returns a deep copy.
func (h HyPas) Clone() HyPas {
	return HyPas{A: h.A.Clone(), B: h.B.Clone(), C: h.C.Clone()}
}

// Equal reports field-wise equality across all three sub-hypers.
func (h HyPas) Equal(o HyPas) bool {
	return h.A.Equal(o.A) && h.B.Equal(o.B) && h.C.Equal(o.C)
}

// Key returns a value usable as a map key for HyPas (e.g. the
// driver's visited set), since HyPas itself contains maps and is not
// Go-comparable.
func (h HyPas) Key() string {
	return h.String()
}

// String emits the canonical HyPas string (§6): the three sub-hyper
// strings joined by "__".
func (h HyPas) String() string {
	return strings.Join([]string{h.A.String(), h.B.String(), h.C.String()}, "__")
}

// Parse parses the canonical HyPas string (§6): three sub-hyper
// sub-strings, in A, B, C order, joined by "__".
func Parse(s string) (HyPas, error) {
	parts := strings.Split(s, "__")
	if len(parts) != 3 {
		return HyPas{}, fmt.Errorf("hypas: expected 3 sub-hypers joined by \"__\", got %d", len(parts))
	}

	a, err := parseSubHy(parts[0])
	if err != nil {
		return HyPas{}, err
	}
	if a.Role != RoleA {
		return HyPas{}, fmt.Errorf("hypas: expected role A first, got %s", a.Role)
	}
	b, err := parseSubHy(parts[1])
	if err != nil {
		return HyPas{}, err
	}
	if b.Role != RoleB {
		return HyPas{}, fmt.Errorf("hypas: expected role B second, got %s", b.Role)
	}
	c, err := parseSubHy(parts[2])
	if err != nil {
		return HyPas{}, err
	}
	if c.Role != RoleC {
		return HyPas{}, fmt.Errorf("hypas: expected role C third, got %s", c.Role)
	}

	return HyPas{A: a, B: b, C: c}, nil
}

