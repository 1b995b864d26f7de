package solution_test

import (
	"strings"
	"testing"

	"github.com/sarchlab/miogemm/derive"
	"github.com/sarchlab/miogemm/geometry"
	"github.com/sarchlab/miogemm/hypas"
	"github.com/sarchlab/miogemm/kernelgen"
	"github.com/sarchlab/miogemm/solution"
)

func mustGeometry(t *testing.T) geometry.Geometry {
	t.Helper()
	g, err := geometry.Parse("tC0_tA0_tB0_colMaj1_m64_n64_k64_lda64_ldb64_ldc64_ws0_f32")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	return g
}

func buildSolution(t *testing.T, wosA int) (solution.Solution, kernelgen.KernelBundle) {
	t.Helper()
	g := mustGeometry(t)
	if wosA != 0 {
		// Workspace staging needs ws_size > 0; with ws_size=0 derive.Compute
		// reports WorkspaceMissing.
		g.WsSize = 1 << 20
	}

	h := hypas.New()
	h = h.WithKnob(hypas.RoleA, "MIC", 4).WithKnob(hypas.RoleA, "PAD", 1).WithKnob(hypas.RoleA, "WOS", wosA)
	h = h.WithKnob(hypas.RoleB, "MIC", 4).WithKnob(hypas.RoleB, "PAD", 1)
	h = h.WithKnob(hypas.RoleC, "UNR", 8).WithKnob(hypas.RoleC, "MAC", 16).
		WithKnob(hypas.RoleC, "NAW", 4).WithKnob(hypas.RoleC, "UFO", 0)

	dp, err := derive.Compute(g, h, geometry.DefaultDeviceInfo)
	if err != nil {
		t.Fatalf("derive.Compute: %v", err)
	}

	bundle := kernelgen.Generate(g, h, dp)
	sol := solution.FromBundle(bundle, h, g, 1.25, 420.5, 3.5)
	return sol, bundle
}

func TestEmitParseRoundTrip(t *testing.T) {
	sol, _ := buildSolution(t, 0)

	text := sol.Emit()
	parsed, err := solution.Parse(text)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	if !parsed.HyPas.Equal(sol.HyPas) {
		t.Errorf("hypas mismatch: got %s, want %s", parsed.HyPas, sol.HyPas)
	}
	if parsed.Geometry.String() != sol.Geometry.String() {
		t.Errorf("geometry mismatch: got %s, want %s", parsed.Geometry, sol.Geometry)
	}
	if parsed.MedianTimeMs != sol.MedianTimeMs {
		t.Errorf("MedianTimeMs: got %v, want %v", parsed.MedianTimeMs, sol.MedianTimeMs)
	}
	if parsed.MedianGFLOPs != sol.MedianGFLOPs {
		t.Errorf("MedianGFLOPs: got %v, want %v", parsed.MedianGFLOPs, sol.MedianGFLOPs)
	}
	if parsed.DiscoverySecs != sol.DiscoverySecs {
		t.Errorf("DiscoverySecs: got %v, want %v", parsed.DiscoverySecs, sol.DiscoverySecs)
	}
	if parsed.MainKernelSource != sol.MainKernelSource {
		t.Errorf("main source mismatch")
	}
	if parsed.BetaCSource != sol.BetaCSource {
		t.Errorf("beta_c source mismatch")
	}
}

func TestEmitParseRoundTripWithWorkspaceKernels(t *testing.T) {
	sol, bundle := buildSolution(t, 1)
	if _, ok := bundle.Get(kernelgen.WSA); !ok {
		t.Fatalf("expected WSA kernel to be generated when WOS=1")
	}

	parsed, err := solution.Parse(sol.Emit())
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	if parsed.WorkspaceSources[kernelgen.WSA] != sol.WorkspaceSources[kernelgen.WSA] {
		t.Errorf("wsa source mismatch")
	}
	if _, ok := parsed.WorkspaceSources[kernelgen.WSB]; ok {
		t.Errorf("did not expect a wsb kernel")
	}
}

func TestEmitIsLineOriented(t *testing.T) {
	sol, _ := buildSolution(t, 0)
	text := sol.Emit()

	if !strings.HasPrefix(text, "# geometry=") {
		t.Errorf("expected text to start with geometry header, got %q", text[:20])
	}
	if !strings.Contains(text, "\nmain:\n") {
		t.Errorf("expected a main: kernel header")
	}
	if !strings.Contains(text, "\n---\n") {
		t.Errorf("expected a --- separator")
	}
}

func TestParseRejectsMissingHeader(t *testing.T) {
	_, err := solution.Parse("not a solution\n")
	if err == nil {
		t.Fatalf("expected an error for malformed input")
	}
}
