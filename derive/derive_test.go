package derive_test

import (
	"errors"
	"testing"

	"github.com/sarchlab/miogemm/derive"
	"github.com/sarchlab/miogemm/geometry"
	"github.com/sarchlab/miogemm/hypas"
)

func baseGeometry(t *testing.T) geometry.Geometry {
	t.Helper()
	g, err := geometry.Parse("tC0_tA0_tB0_colMaj1_m256_n256_k256_lda256_ldb256_ldc256_ws0_f32")
	if err != nil {
		t.Fatalf("baseGeometry: %v", err)
	}
	return g
}

func reasonableHyPas() hypas.HyPas {
	h := hypas.New()
	h = h.WithKnob(hypas.RoleA, "MIC", 4)
	h = h.WithKnob(hypas.RoleA, "PAD", 1)
	h = h.WithKnob(hypas.RoleB, "MIC", 4)
	h = h.WithKnob(hypas.RoleB, "PAD", 1)
	h = h.WithKnob(hypas.RoleC, "UNR", 8)
	h = h.WithKnob(hypas.RoleC, "MAC", 16)
	h = h.WithKnob(hypas.RoleC, "NAW", 4)
	h = h.WithKnob(hypas.RoleC, "UFO", 0)
	return h
}

func TestComputeSucceedsForReasonableHyPas(t *testing.T) {
	g := baseGeometry(t)
	h := reasonableHyPas()

	dp, err := derive.Compute(g, h, geometry.DefaultDeviceInfo)
	if err != nil {
		t.Fatalf("Compute failed: %v", err)
	}
	if dp.MacroTileM <= 0 || dp.MacroTileN <= 0 {
		t.Fatalf("expected positive macro tile, got %dx%d", dp.MacroTileM, dp.MacroTileN)
	}
	if dp.GlobalWorkSize[0] < dp.LocalWorkSize[0] {
		t.Fatalf("global work size %v smaller than local %v", dp.GlobalWorkSize, dp.LocalWorkSize)
	}
}

// Scenario 3 (§8): macro-tile 128x128 with unroll 64 on a device with
// only 16 KiB local memory overflows local memory.
func TestComputeLocalMemoryOverflowScenario3(t *testing.T) {
	g := baseGeometry(t)

	h := hypas.New()
	h = h.WithKnob(hypas.RoleA, "MIC", 8) // MAC(16) * MIC(8) = 128
	h = h.WithKnob(hypas.RoleB, "MIC", 8)
	h = h.WithKnob(hypas.RoleC, "UNR", 64)
	h = h.WithKnob(hypas.RoleC, "MAC", 16)
	h = h.WithKnob(hypas.RoleC, "NAW", 4)
	h = h.WithKnob(hypas.RoleC, "UFO", 0)

	small := geometry.DeviceInfo{WavefrontSize: 64, LocalMemBytes: 16 * 1024, ComputeUnits: 16, SupportsFloat64: false}

	_, err := derive.Compute(g, h, small)
	if err == nil {
		t.Fatalf("expected LocalMemoryOverflow error, got success")
	}
	var derr *derive.Error
	if !errors.As(err, &derr) {
		t.Fatalf("expected *derive.Error, got %T", err)
	}
	if derr.Kind != derive.LocalMemoryOverflow {
		t.Fatalf("expected LocalMemoryOverflow, got %v", derr.Kind)
	}
}

// A 64x64 macro tile (MAC=16, MIC=4, square work-group) against a
// 32x32 problem overhangs both dimensions.
func TestComputeTileExceedsProblem(t *testing.T) {
	g, err := geometry.Parse("tC0_tA0_tB0_colMaj1_m32_n32_k32_lda32_ldb32_ldc32_ws0_f32")
	if err != nil {
		t.Fatalf("geometry.Parse: %v", err)
	}
	h := reasonableHyPas()

	_, err = derive.Compute(g, h, geometry.DefaultDeviceInfo)
	if err == nil {
		t.Fatalf("expected TileExceedsProblem error, got success")
	}
	var derr *derive.Error
	if !errors.As(err, &derr) {
		t.Fatalf("expected *derive.Error, got %T", err)
	}
	if derr.Kind != derive.TileExceedsProblem {
		t.Fatalf("expected TileExceedsProblem, got %v", derr.Kind)
	}
}

func TestComputeWorkspaceMissing(t *testing.T) {
	g := baseGeometry(t) // ws_size = 0
	h := reasonableHyPas()
	h = h.WithKnob(hypas.RoleA, "WOS", 1)

	_, err := derive.Compute(g, h, geometry.DefaultDeviceInfo)
	var derr *derive.Error
	if !errors.As(err, &derr) || derr.Kind != derive.WorkspaceMissing {
		t.Fatalf("expected WorkspaceMissing, got %v", err)
	}
}

func TestComputeSkewInfeasibleWithoutMatchingGAL(t *testing.T) {
	g := baseGeometry(t)
	h := reasonableHyPas()
	h = h.WithKnob(hypas.RoleC, "SKW", 1)
	h = h.WithKnob(hypas.RoleC, "GAL", 0)

	_, err := derive.Compute(g, h, geometry.DefaultDeviceInfo)
	var derr *derive.Error
	if !errors.As(err, &derr) || derr.Kind != derive.SkewInfeasible {
		t.Fatalf("expected SkewInfeasible, got %v", err)
	}
}

func TestComputeIllegalMicroTile(t *testing.T) {
	g := baseGeometry(t)
	h := reasonableHyPas()
	h = h.WithKnob(hypas.RoleA, "MIC", 0)

	_, err := derive.Compute(g, h, geometry.DefaultDeviceInfo)
	var derr *derive.Error
	if !errors.As(err, &derr) || derr.Kind != derive.IllegalMicroTile {
		t.Fatalf("expected IllegalMicroTile, got %v", err)
	}
}
