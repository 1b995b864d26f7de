// Package graph builds the per-geometry search graph that the descent
// driver walks: for every knob, the largest range admissible for a
// Geometry and DeviceInfo, a one-away neighbor relation on that range,
// a narrower start range for seeding, and a small table of coupled
// knob pairs that must move together (§4.F).
package graph

import (
	"math/rand"
	"sort"

	"github.com/sarchlab/miogemm/derive"
	"github.com/sarchlab/miogemm/geometry"
	"github.com/sarchlab/miogemm/hypas"
)

// KnobRef names one knob of one role, used by the coupled-pair table
// and by transform neighbors.
type KnobRef struct {
	Role hypas.Role
	Knob string
}

// CoupledPair is a pair of (knob, value) assignments that the descent
// driver may adopt together in a single neighbor step, even though
// neither knob alone changed by one-away would reach the combination
// (§4.F). Grounded on the MIOpenGEMM SKW/GAL relationship: SKW is only
// feasible with column-major group allocation, so flipping one without
// the other almost always derives to SkewInfeasible.
type CoupledPair struct {
	I, J  KnobRef
	VI, VJ int
}

// RoleGraph is the per-role slice of the search graph: every knob's
// range, its one-away edges, and its start range.
type RoleGraph struct {
	Role       hypas.Role
	Range      map[string][]int
	Edges      map[string]map[int][]int
	StartRange map[string][]int
}

func (rg RoleGraph) contains(knob string, value int) bool {
	for _, v := range rg.Range[knob] {
		if v == value {
			return true
		}
	}
	return false
}

// SearchGraph is the full per-geometry search space: one RoleGraph per
// role, plus the cross-role coupled-pair table.
type SearchGraph struct {
	Geometry    geometry.Geometry
	Device      geometry.DeviceInfo
	Constraints hypas.Constraints
	Roles       map[hypas.Role]RoleGraph
	Coupled     []CoupledPair
}

func dedupSorted(vals []int) []int {
	if len(vals) == 0 {
		return vals
	}
	sort.Ints(vals)
	out := vals[:1]
	for _, v := range vals[1:] {
		if v != out[len(out)-1] {
			out = append(out, v)
		}
	}
	return out
}

func intersect(universe, subset []int) []int {
	if subset == nil {
		return universe
	}
	allowed := make(map[int]bool, len(subset))
	for _, v := range subset {
		allowed[v] = true
	}
	out := make([]int, 0, len(universe))
	for _, v := range universe {
		if allowed[v] {
			out = append(out, v)
		}
	}
	return out
}

// universeRange returns the largest range of admissible values for
// each knob of role, before any Constraints are applied. The bounds
// are chosen to keep derive.Compute's acceptance rate high without
// being geometry-blind: WOS is pinned to {0} when the geometry has no
// workspace, and the MAC/UNR universes are capped relative to the
// problem's m/n/k so that trivially oversized tiles never enter the
// graph.
func universeRange(role hypas.Role, g geometry.Geometry, dev geometry.DeviceInfo) map[string][]int {
	out := make(map[string][]int)
	switch role {
	case hypas.RoleA, hypas.RoleB:
		out["MIC"] = []int{1, 2, 4, 8}
		out["PAD"] = []int{0, 1, 2, 4}
		out["PLU"] = []int{0, 1}
		out["LIW"] = []int{1, 2, 4, 8}
		out["MIW"] = []int{1, 2, 4}
		if g.WsSize > 0 {
			out["WOS"] = []int{0, 1}
		} else {
			out["WOS"] = []int{0}
		}
	case hypas.RoleC:
		out["UNR"] = unrollUniverse(g.K)
		out["GAL"] = []int{0, 1, 2}
		out["PUN"] = []int{0, 1}
		out["ICE"] = []int{0, 1, 2, 4}
		out["NAW"] = nawUniverse(dev)
		out["UFO"] = []int{0, 1, 2}
		out["MAC"] = macUniverse(g, dev)
		out["SKW"] = []int{0, 1}
	}
	return out
}

func unrollUniverse(k int) []int {
	candidates := []int{1, 2, 4, 8, 16, 32, 64}
	out := make([]int, 0, len(candidates))
	for _, u := range candidates {
		if u <= k {
			out = append(out, u)
		}
	}
	if len(out) == 0 {
		out = []int{1}
	}
	return out
}

func nawUniverse(dev geometry.DeviceInfo) []int {
	candidates := []int{1, 2, 4, 8}
	out := make([]int, 0, len(candidates))
	for _, n := range candidates {
		if n*dev.WavefrontSize <= 1024 {
			out = append(out, n)
		}
	}
	if len(out) == 0 {
		out = []int{1}
	}
	return out
}

func macUniverse(g geometry.Geometry, dev geometry.DeviceInfo) []int {
	candidates := []int{8, 16, 32, 64}
	bound := g.M
	if g.N < bound {
		bound = g.N
	}
	out := make([]int, 0, len(candidates))
	for _, m := range candidates {
		if m <= bound && m*m <= 1024 {
			out = append(out, m)
		}
	}
	if len(out) == 0 {
		out = []int{8}
	}
	_ = dev
	return out
}

// buildEdges connects consecutive values of a sorted range: the
// one-away relation is "the adjacent entry in the admissible range",
// which for the power-of-two-shaped ranges above means doubling or
// halving.
func buildEdges(rng map[string][]int) map[string]map[int][]int {
	edges := make(map[string]map[int][]int, len(rng))
	for knob, vals := range rng {
		sorted := append([]int(nil), vals...)
		sort.Ints(sorted)
		m := make(map[int][]int, len(sorted))
		for i, v := range sorted {
			var neighbors []int
			if i > 0 {
				neighbors = append(neighbors, sorted[i-1])
			}
			if i < len(sorted)-1 {
				neighbors = append(neighbors, sorted[i+1])
			}
			m[v] = neighbors
		}
		edges[knob] = m
	}
	return edges
}

// refineStartRange narrows a role's full range down to a seeding
// range, per role. Chi roles drop the largest micro-tile value (the
// biggest tiles are the likeliest to overflow local memory, per
// derive.Compute); the NonChi role drops both extremes of MAC and of
// UNR for the same reason.
func refineStartRange(role hypas.Role, rng map[string][]int) map[string][]int {
	out := make(map[string][]int, len(rng))
	for knob, vals := range rng {
		sorted := append([]int(nil), vals...)
		sort.Ints(sorted)
		switch {
		case role != hypas.RoleC && knob == "MIC" && len(sorted) > 1:
			out[knob] = sorted[:len(sorted)-1]
		case role == hypas.RoleC && (knob == "MAC" || knob == "UNR") && len(sorted) > 2:
			out[knob] = sorted[1 : len(sorted)-1]
		default:
			out[knob] = sorted
		}
	}
	return out
}

func defaultCoupledPairs() []CoupledPair {
	return []CoupledPair{
		{
			I: KnobRef{Role: hypas.RoleC, Knob: "GAL"}, VI: 1,
			J: KnobRef{Role: hypas.RoleC, Knob: "SKW"}, VJ: 1,
		},
		{
			I: KnobRef{Role: hypas.RoleC, Knob: "UFO"}, VI: 1,
			J: KnobRef{Role: hypas.RoleC, Knob: "MAC"}, VJ: 8,
		},
		{
			I: KnobRef{Role: hypas.RoleC, Knob: "UFO"}, VI: 2,
			J: KnobRef{Role: hypas.RoleC, Knob: "MAC"}, VJ: 8,
		},
	}
}

// Build constructs the SearchGraph for g under dev, intersected with
// constraints. It returns a *graph.EmptyError if, after intersection,
// any knob's start range is empty (§4.F).
func Build(g geometry.Geometry, dev geometry.DeviceInfo, constraints hypas.Constraints) (*SearchGraph, error) {
	sg := &SearchGraph{
		Geometry:    g,
		Device:      dev,
		Constraints: constraints,
		Roles:       make(map[hypas.Role]RoleGraph, 3),
		Coupled:     defaultCoupledPairs(),
	}

	for _, role := range []hypas.Role{hypas.RoleA, hypas.RoleB, hypas.RoleC} {
		universe := universeRange(role, g, dev)
		rc := constraints.At(role)

		rng := make(map[string][]int, len(universe))
		for knob, vals := range universe {
			kc := rc.Knobs[knob]
			if kc.Fixed {
				rng[knob] = []int{kc.FixedValue}
				continue
			}
			rng[knob] = dedupSorted(intersect(vals, kc.Subset))
		}

		edges := buildEdges(rng)
		start := refineStartRange(role, rng)
		for knob, vals := range start {
			kc := rc.Knobs[knob]
			if kc.StartSubset != nil {
				start[knob] = dedupSorted(intersect(vals, kc.StartSubset))
			}
			if len(start[knob]) == 0 {
				return nil, &EmptyError{Role: role, Knob: knob}
			}
		}

		sg.Roles[role] = RoleGraph{Role: role, Range: rng, Edges: edges, StartRange: start}
	}

	return sg, nil
}

// Contains reports whether every knob of h lies within this graph's
// range for its role.
func (sg *SearchGraph) Contains(h hypas.HyPas) bool {
	for _, role := range []hypas.Role{hypas.RoleA, hypas.RoleB, hypas.RoleC} {
		rg := sg.Roles[role]
		sub := h.At(role)
		for knob := range rg.Range {
			v, ok := sub.Get(knob)
			if !ok || !rg.contains(knob, v) {
				return false
			}
		}
	}
	return true
}

// oneAwayNeighbors yields h with exactly one knob moved to an adjacent
// value in its role's edge list, for every (role, knob).
func (sg *SearchGraph) oneAwayNeighbors(h hypas.HyPas) []hypas.HyPas {
	var out []hypas.HyPas
	for _, role := range []hypas.Role{hypas.RoleA, hypas.RoleB, hypas.RoleC} {
		rg := sg.Roles[role]
		sub := h.At(role)
		for _, knob := range hypas.KnobsFor(role) {
			cur, ok := sub.Get(knob)
			if !ok {
				continue
			}
			for _, v := range rg.Edges[knob][cur] {
				out = append(out, h.WithKnob(role, knob, v))
			}
		}
	}
	return out
}

// transformNeighbors applies the two micro-tile/work-group-shape
// equivalence transforms: swapping A and B's MIC (the micro tile is
// interchangeable across the two coalesced axes), and permuting UFO
// between the Tall and Wide forms while holding MAC fixed (swapping
// which axis the work group favors).
func (sg *SearchGraph) transformNeighbors(h hypas.HyPas) []hypas.HyPas {
	var out []hypas.HyPas

	micA, okA := h.A.Get("MIC")
	micB, okB := h.B.Get("MIC")
	if okA && okB && micA != micB {
		swapped := h.WithKnob(hypas.RoleA, "MIC", micB)
		swapped = swapped.WithKnob(hypas.RoleB, "MIC", micA)
		out = append(out, swapped)
	}

	if ufo, ok := h.C.Get("UFO"); ok {
		switch ufo {
		case 1: // Tall -> Wide
			out = append(out, h.WithKnob(hypas.RoleC, "UFO", 2))
		case 2: // Wide -> Tall
			out = append(out, h.WithKnob(hypas.RoleC, "UFO", 1))
		}
	}

	return out
}

// coupledNeighbors applies every coupled pair in sg.Coupled whose
// knobs are not already both at (VI, VJ).
func (sg *SearchGraph) coupledNeighbors(h hypas.HyPas) []hypas.HyPas {
	var out []hypas.HyPas
	for _, pair := range sg.Coupled {
		iv, iok := h.At(pair.I.Role).Get(pair.I.Knob)
		jv, jok := h.At(pair.J.Role).Get(pair.J.Knob)
		if !iok || !jok {
			continue
		}
		if iv == pair.VI && jv == pair.VJ {
			continue
		}
		next := h.WithKnob(pair.I.Role, pair.I.Knob, pair.VI)
		next = next.WithKnob(pair.J.Role, pair.J.Knob, pair.VJ)
		out = append(out, next)
	}
	return out
}

// GetNeighbors returns every candidate reachable from h in one search
// step: one-away moves, the MIC/UFO equivalence transforms, and
// coupled-pair jumps, deduplicated and filtered to candidates this
// graph contains, in a deterministic order (§4.F).
func (sg *SearchGraph) GetNeighbors(h hypas.HyPas) []hypas.HyPas {
	var candidates []hypas.HyPas
	candidates = append(candidates, sg.oneAwayNeighbors(h)...)
	candidates = append(candidates, sg.transformNeighbors(h)...)
	candidates = append(candidates, sg.coupledNeighbors(h)...)

	seen := make(map[string]bool, len(candidates))
	out := make([]hypas.HyPas, 0, len(candidates))
	for _, c := range candidates {
		if !sg.Contains(c) {
			continue
		}
		key := c.Key()
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, c)
	}
	return out
}

func pick(rng *rand.Rand, vals []int) int {
	return vals[rng.Intn(len(vals))]
}

// RandomStart draws one HyPas uniformly at random from this graph's
// start ranges, independently per knob. It does not check derivability
// against the geometry; see RandomValidStart for that.
func (sg *SearchGraph) RandomStart(rng *rand.Rand) hypas.HyPas {
	h := hypas.New()
	for _, role := range []hypas.Role{hypas.RoleA, hypas.RoleB, hypas.RoleC} {
		rg := sg.Roles[role]
		sub := h.At(role)
		for _, knob := range hypas.KnobsFor(role) {
			sub = sub.With(knob, pick(rng, rg.StartRange[knob]))
		}
		h = h.With(role, sub)
	}
	return h
}

// maxStartAttempts bounds RandomValidStart's retry loop (§4.F,
// mirroring the 1e6 cap in the MIOpenGEMM original).
const maxStartAttempts = 1_000_000

// RandomValidStart retries RandomStart until derive.Compute accepts
// the draw, or returns *graph.NoValidStartError after maxStartAttempts
// tries.
func (sg *SearchGraph) RandomValidStart(rng *rand.Rand) (hypas.HyPas, error) {
	for i := 0; i < maxStartAttempts; i++ {
		h := sg.RandomStart(rng)
		if _, err := derive.Compute(sg.Geometry, h, sg.Device); err == nil {
			return h, nil
		}
	}
	return hypas.HyPas{}, &NoValidStartError{Attempts: maxStartAttempts}
}
