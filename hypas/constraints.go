package hypas

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// KnobConstraint restricts one knob of one role: either fixed to a
// single value, or free but declared to a subset of values, or
// entirely unconstrained (nil Subset, not Fixed). StartSubset further
// narrows the range used for seeding only (§4.E); a nil StartSubset
// means seeding draws from whatever SearchGraph materializes for this
// knob.
type KnobConstraint struct {
	Fixed       bool
	FixedValue  int
	Subset      []int
	StartSubset []int
}

// RoleConstraint is the set of per-knob constraints for one role.
type RoleConstraint struct {
	Role  Role
	Knobs map[string]KnobConstraint
}

func newRoleConstraint(role Role) RoleConstraint {
	return RoleConstraint{Role: role, Knobs: make(map[string]KnobConstraint)}
}

// Constraints is a HyPas with holes (§3, §4.E): a partial assignment
// plus a separate start-range hint, intersected with the SearchGraph.
type Constraints struct {
	A, B, C RoleConstraint
}

// Empty returns a Constraints object with every knob unconstrained.
func Empty() Constraints {
	return Constraints{A: newRoleConstraint(RoleA), B: newRoleConstraint(RoleB), C: newRoleConstraint(RoleC)}
}

// At returns the role constraint for role.
func (c Constraints) At(role Role) RoleConstraint {
	switch role {
	case RoleA:
		return c.A
	case RoleB:
		return c.B
	case RoleC:
		return c.C
	default:
		panic("hypas: unknown role " + string(role))
	}
}

func (c Constraints) with(role Role, rc RoleConstraint) Constraints {
	switch role {
	case RoleA:
		c.A = rc
	case RoleB:
		c.B = rc
	case RoleC:
		c.C = rc
	default:
		panic("hypas: unknown role " + string(role))
	}
	return c
}

// Apply overwrites only the knobs this Constraints object fixes,
// leaving every other knob of h untouched. Idempotent: applying twice
// yields the same result as applying once, since each fixed knob is
// unconditionally overwritten with the same value both times.
func (c Constraints) Apply(h HyPas) HyPas {
	out := h.Clone()
	for _, role := range []Role{RoleA, RoleB, RoleC} {
		rc := c.At(role)
		sub := out.At(role)
		for knob, kc := range rc.Knobs {
			if kc.Fixed {
				sub.Values[knob] = kc.FixedValue
			}
		}
		out = out.With(role, sub)
	}
	return out
}

// roleConstraintTokenPattern matches a knob token in a role
// constraint string: either "KNOB<value>" (fixed), "KNOB[v1,v2,...]"
// (declared subset), or bare "KNOB" (unconstrained, explicitly
// mentioned so its absence from the string is unambiguous).
var roleConstraintTokenPattern = regexp.MustCompile(`^([A-Z]+)(?:(\d+)|\[([0-9,]*)\])?$`)

// parseRoleConstraintString parses one role's constraint string, of
// the form "ROLE_KNOB<value-or-subset>_KNOB..." — the same token
// grammar as a HyPas sub-hyper string, except each token's value may
// be a bracketed comma-separated subset instead of a single integer,
// and a knob may be omitted entirely to leave it free.
func parseRoleConstraintString(s string) (RoleConstraint, error) {
	tokens := strings.Split(s, "_")
	if len(tokens) == 0 || len(tokens[0]) != 1 {
		return RoleConstraint{}, fmt.Errorf("hypas: malformed role constraint %q", s)
	}
	role := Role(tokens[0][0])
	if role != RoleA && role != RoleB && role != RoleC {
		return RoleConstraint{}, fmt.Errorf("hypas: unknown role tag %q", tokens[0])
	}

	knobSet := make(map[string]bool)
	for _, k := range KnobsFor(role) {
		knobSet[k] = true
	}

	rc := newRoleConstraint(role)
	for _, tok := range tokens[1:] {
		if tok == "" {
			continue
		}
		m := roleConstraintTokenPattern.FindStringSubmatch(tok)
		if m == nil {
			return RoleConstraint{}, fmt.Errorf("hypas: malformed constraint token %q", tok)
		}
		knob, fixedStr, subsetStr := m[1], m[2], m[3]
		if !knobSet[knob] {
			return RoleConstraint{}, fmt.Errorf("hypas: unknown knob %q for role %s", knob, role)
		}

		switch {
		case fixedStr != "":
			v, err := strconv.Atoi(fixedStr)
			if err != nil {
				return RoleConstraint{}, fmt.Errorf("hypas: bad fixed value in %q: %w", tok, err)
			}
			rc.Knobs[knob] = KnobConstraint{Fixed: true, FixedValue: v}
		case m[0] != knob: // "KNOB[...]" matched, possibly empty brackets
			subset, err := parseIntList(subsetStr)
			if err != nil {
				return RoleConstraint{}, fmt.Errorf("hypas: bad subset in %q: %w", tok, err)
			}
			rc.Knobs[knob] = KnobConstraint{Subset: subset}
		default:
			// Bare knob name: explicitly unconstrained.
			rc.Knobs[knob] = KnobConstraint{}
		}
	}

	return rc, nil
}

func parseIntList(s string) ([]int, error) {
	if s == "" {
		return nil, nil
	}
	fields := strings.Split(s, ",")
	out := make([]int, 0, len(fields))
	for _, f := range fields {
		v, err := strconv.Atoi(strings.TrimSpace(f))
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// NewFromStrings builds Constraints from a per-role array of
// constraint strings, one per role in A, B, C order (§4.E).
func NewFromStrings(roleStrings [3]string) (Constraints, error) {
	c := Empty()
	roles := [3]Role{RoleA, RoleB, RoleC}
	for i, s := range roleStrings {
		if strings.TrimSpace(s) == "" {
			continue
		}
		rc, err := parseRoleConstraintString(s)
		if err != nil {
			return Constraints{}, err
		}
		if rc.Role != roles[i] {
			return Constraints{}, fmt.Errorf("hypas: constraint at position %d names role %s, expected %s", i, rc.Role, roles[i])
		}
		c = c.with(roles[i], rc)
	}
	return c, nil
}

// NewFromColonJoined builds Constraints from a single string: the
// three per-role constraint strings joined by ":" (§4.E).
func NewFromColonJoined(s string) (Constraints, error) {
	if strings.TrimSpace(s) == "" {
		return Empty(), nil
	}
	parts := strings.Split(s, ":")
	if len(parts) != 3 {
		return Constraints{}, fmt.Errorf("hypas: colon-joined constraints need 3 parts, got %d", len(parts))
	}
	return NewFromStrings([3]string{parts[0], parts[1], parts[2]})
}

// NewWithStartRange builds Constraints from a per-role declared-range
// array r and a separate per-role start-range array sr that narrows
// only the seeding range (§4.E), leaving the declared range from r
// untouched.
func NewWithStartRange(r [3]string, sr [3]string) (Constraints, error) {
	c, err := NewFromStrings(r)
	if err != nil {
		return Constraints{}, err
	}

	roles := [3]Role{RoleA, RoleB, RoleC}
	for i, s := range sr {
		if strings.TrimSpace(s) == "" {
			continue
		}
		srRC, err := parseRoleConstraintString(s)
		if err != nil {
			return Constraints{}, err
		}
		if srRC.Role != roles[i] {
			return Constraints{}, fmt.Errorf("hypas: start-range constraint at position %d names role %s, expected %s", i, srRC.Role, roles[i])
		}

		rc := c.At(roles[i])
		for knob, kc := range srRC.Knobs {
			existing := rc.Knobs[knob]
			if kc.Subset != nil {
				existing.StartSubset = kc.Subset
			} else if kc.Fixed {
				existing.StartSubset = []int{kc.FixedValue}
			}
			rc.Knobs[knob] = existing
		}
		c = c.with(roles[i], rc)
	}

	return c, nil
}
