// Package derive computes the quantities a validated hyperparameter
// assignment implies for a given problem geometry: tile shapes, work
// sizes, local-memory and workspace footprints, and the strides the
// kernel generator needs. Construction fails with a reasoned
// *derive.Error when the assignment is not admissible for the
// geometry and device.
package derive

import (
	"github.com/sarchlab/miogemm/geometry"
	"github.com/sarchlab/miogemm/hypas"
)

// WorkGroupForm selects how the NonChi MAC knob is split across the
// two work-group axes.
type WorkGroupForm int

const (
	FormSquare WorkGroupForm = iota
	FormTall
	FormWide
)

// groupAllocColumnMajor is the GAL value that allows a nonzero SKW
// (§4 of SPEC_FULL.md: SKW is only feasible paired with this
// allocation strategy; encoded here and mirrored as a coupled-pair
// entry in package graph).
const groupAllocColumnMajor = 1

// DerivedParams holds everything computed from (Geometry, HyPas) that
// the kernel generator and benchmarker need.
type DerivedParams struct {
	MacroTileM, MacroTileN int
	LocalDimX, LocalDimY   int
	GroupCountM, GroupCountN int
	GlobalWorkSize           [2]int
	LocalWorkSize            [2]int
	PerThreadWorkM, PerThreadWorkN int
	LocalMemBytes                  int
	WorkspaceBytesRequired          int
	StrideA, StrideB, StrideC       int
}

func localDims(mac int, form WorkGroupForm) (lx, ly int, err error) {
	switch form {
	case FormSquare:
		return mac, mac, nil
	case FormTall:
		ly := mac / 2
		if ly < 1 {
			ly = 1
		}
		return mac, ly, nil
	case FormWide:
		lx := mac / 2
		if lx < 1 {
			lx = 1
		}
		return lx, mac, nil
	default:
		return 0, 0, newError(Other, "unknown work-group form %d", form)
	}
}

func ceilDiv(a, b int) int {
	if b <= 0 {
		return 0
	}
	return (a + b - 1) / b
}

// Compute derives macro-tile, work-size, and memory-footprint
// quantities for h against g and dev. It returns a *derive.Error
// (never a bare error) on any infeasibility, matching §4.C.
func Compute(g geometry.Geometry, h hypas.HyPas, dev geometry.DeviceInfo) (DerivedParams, error) {
	micA, _ := h.A.Get("MIC")
	micB, _ := h.B.Get("MIC")
	padA, _ := h.A.Get("PAD")
	padB, _ := h.B.Get("PAD")
	wosA, _ := h.A.Get("WOS")
	wosB, _ := h.B.Get("WOS")

	unr, _ := h.C.Get("UNR")
	gal, _ := h.C.Get("GAL")
	pun, _ := h.C.Get("PUN")
	naw, _ := h.C.Get("NAW")
	ufo, _ := h.C.Get("UFO")
	mac, _ := h.C.Get("MAC")
	skw, _ := h.C.Get("SKW")

	if micA <= 0 || micB <= 0 || mac <= 0 {
		return DerivedParams{}, newError(IllegalMicroTile,
			"micro-tile and work-group dims must be positive: mic_a=%d mic_b=%d mac=%d", micA, micB, mac)
	}
	if unr <= 0 {
		return DerivedParams{}, newError(IllegalMicroTile, "k-unroll UNR must be positive, got %d", unr)
	}

	lx, ly, err := localDims(mac, WorkGroupForm(ufo))
	if err != nil {
		return DerivedParams{}, err
	}
	if lx <= 0 || ly <= 0 {
		return DerivedParams{}, newError(IllegalMicroTile, "derived work-group shape %dx%d is non-positive", lx, ly)
	}

	if naw <= 0 || naw*dev.WavefrontSize > lx*ly {
		return DerivedParams{}, newError(Other,
			"active warps NAW=%d (x wavefront %d) exceeds work-group size %dx%d", naw, dev.WavefrontSize, lx, ly)
	}

	if skw != 0 && gal != groupAllocColumnMajor {
		return DerivedParams{}, newError(SkewInfeasible,
			"SKW=%d requires GAL=%d (column-major group allocation), got GAL=%d", skw, groupAllocColumnMajor, gal)
	}

	macroTileM := lx * micA
	macroTileN := ly * micB

	if macroTileM > g.M || macroTileN > g.N {
		return DerivedParams{}, newError(TileExceedsProblem,
			"macro tile %dx%d exceeds problem dimensions %dx%d", macroTileM, macroTileN, g.M, g.N)
	}

	if (wosA != 0 || wosB != 0) && g.WsSize == 0 {
		return DerivedParams{}, newError(WorkspaceMissing,
			"role requests workspace staging (wos_a=%d wos_b=%d) but geometry ws_size=0", wosA, wosB)
	}

	floatSize := g.FloatSizeBytes()
	localTileA := (macroTileM + padA) * unr * floatSize
	localTileB := (macroTileN + padB) * unr * floatSize
	totalLocal := localTileA + localTileB
	if pun != 0 {
		totalLocal *= 2 // double-buffered for the partial-unroll remainder pass
	}
	if totalLocal > dev.LocalMemBytes {
		return DerivedParams{}, newError(LocalMemoryOverflow,
			"local memory required %d bytes exceeds device limit %d bytes", totalLocal, dev.LocalMemBytes)
	}

	groupCountM := ceilDiv(g.M, macroTileM)
	groupCountN := ceilDiv(g.N, macroTileN)

	workspaceBytes := 0
	if wosA != 0 {
		workspaceBytes += g.M * unr * floatSize
	}
	if wosB != 0 {
		workspaceBytes += g.N * unr * floatSize
	}
	if workspaceBytes > g.WsSize {
		return DerivedParams{}, newError(WorkspaceMissing,
			"workspace staging requires %d bytes, geometry provides %d", workspaceBytes, g.WsSize)
	}

	return DerivedParams{
		MacroTileM:       macroTileM,
		MacroTileN:       macroTileN,
		LocalDimX:        lx,
		LocalDimY:        ly,
		GroupCountM:      groupCountM,
		GroupCountN:      groupCountN,
		GlobalWorkSize:   [2]int{groupCountM * lx, groupCountN * ly},
		LocalWorkSize:    [2]int{lx, ly},
		PerThreadWorkM:   micA,
		PerThreadWorkN:   micB,
		LocalMemBytes:    totalLocal,
		WorkspaceBytesRequired: workspaceBytes,
		StrideA:          g.LdA,
		StrideB:          g.LdB,
		StrideC:          g.LdC,
	}, nil
}
