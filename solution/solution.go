// Package solution defines the emitted result of one search: kernel
// source(s), the HyPas that produced them, and measured statistics
// (§4.K), plus its line-oriented text serialization.
package solution

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/sarchlab/miogemm/geometry"
	"github.com/sarchlab/miogemm/hypas"
	"github.com/sarchlab/miogemm/kernelgen"
)

// Solution is the fastest benchmarked result for one geometry.
type Solution struct {
	MainKernelSource string
	BetaCSource      string                          // empty if not used
	WorkspaceSources map[kernelgen.KernelType]string // WSA and/or WSB, empty map if neither used

	HyPas    hypas.HyPas
	Geometry geometry.Geometry

	MedianTimeMs  float64
	MedianGFLOPs  float64
	DiscoverySecs float64
}

// FloatType reports the element width the Solution was discovered
// under, derived from its Geometry.
func (s Solution) FloatType() geometry.FloatType {
	return s.Geometry.FloatType
}

// FromBundle builds a Solution from a generated bundle and measured
// statistics.
func FromBundle(bundle kernelgen.KernelBundle, h hypas.HyPas, g geometry.Geometry, medianMs, gflops, discoverySecs float64) Solution {
	s := Solution{
		HyPas:            h,
		Geometry:         g,
		MedianTimeMs:     medianMs,
		MedianGFLOPs:     gflops,
		DiscoverySecs:    discoverySecs,
		WorkspaceSources: map[kernelgen.KernelType]string{},
	}
	if ks, ok := bundle.Get(kernelgen.Main); ok {
		s.MainKernelSource = ks.Source
	}
	if ks, ok := bundle.Get(kernelgen.BetaC); ok {
		s.BetaCSource = ks.Source
	}
	if ks, ok := bundle.Get(kernelgen.WSA); ok {
		s.WorkspaceSources[kernelgen.WSA] = ks.Source
	}
	if ks, ok := bundle.Get(kernelgen.WSB); ok {
		s.WorkspaceSources[kernelgen.WSB] = ks.Source
	}
	return s
}

const kernelSeparator = "---"

// Emit renders s in the canonical line-oriented text format (§6):
//
//	# geometry=<g>
//	# hypas=<h>
//	# median_ms=<x>
//	# gflops=<y>
//	# discovery_s=<z>
//	<kernel-name>:
//	<source>
//	---
//	...
func (s Solution) Emit() string {
	var b strings.Builder

	fmt.Fprintf(&b, "# geometry=%s\n", s.Geometry.String())
	fmt.Fprintf(&b, "# hypas=%s\n", s.HyPas.String())
	fmt.Fprintf(&b, "# median_ms=%s\n", strconv.FormatFloat(s.MedianTimeMs, 'g', -1, 64))
	fmt.Fprintf(&b, "# gflops=%s\n", strconv.FormatFloat(s.MedianGFLOPs, 'g', -1, 64))
	fmt.Fprintf(&b, "# discovery_s=%s\n", strconv.FormatFloat(s.DiscoverySecs, 'g', -1, 64))

	writeKernel := func(name, source string) {
		fmt.Fprintf(&b, "%s:\n", name)
		b.WriteString(source)
		if !strings.HasSuffix(source, "\n") {
			b.WriteString("\n")
		}
		b.WriteString(kernelSeparator + "\n")
	}

	writeKernel(kernelgen.Main.String(), s.MainKernelSource)
	if s.BetaCSource != "" {
		writeKernel(kernelgen.BetaC.String(), s.BetaCSource)
	}
	if src, ok := s.WorkspaceSources[kernelgen.WSA]; ok {
		writeKernel(kernelgen.WSA.String(), src)
	}
	if src, ok := s.WorkspaceSources[kernelgen.WSB]; ok {
		writeKernel(kernelgen.WSB.String(), src)
	}

	return b.String()
}

// Parse reverses Emit. It skips blank lines and trims whitespace around
// kernel-name lines; the header lines must appear exactly as Emit
// writes them, in the same order.
func Parse(text string) (Solution, error) {
	lines := strings.Split(text, "\n")
	s := Solution{WorkspaceSources: map[kernelgen.KernelType]string{}}

	i := 0
	readHeader := func(prefix string) (string, error) {
		if i >= len(lines) || !strings.HasPrefix(lines[i], prefix) {
			return "", fmt.Errorf("solution: expected header %q at line %d", prefix, i+1)
		}
		v := strings.TrimPrefix(lines[i], prefix)
		i++
		return v, nil
	}

	geomStr, err := readHeader("# geometry=")
	if err != nil {
		return Solution{}, err
	}
	s.Geometry, err = geometry.Parse(geomStr)
	if err != nil {
		return Solution{}, fmt.Errorf("solution: %w", err)
	}

	hyposStr, err := readHeader("# hypas=")
	if err != nil {
		return Solution{}, err
	}
	s.HyPas, err = hypas.Parse(hyposStr)
	if err != nil {
		return Solution{}, fmt.Errorf("solution: %w", err)
	}

	medianStr, err := readHeader("# median_ms=")
	if err != nil {
		return Solution{}, err
	}
	if s.MedianTimeMs, err = strconv.ParseFloat(medianStr, 64); err != nil {
		return Solution{}, fmt.Errorf("solution: bad median_ms %q: %w", medianStr, err)
	}

	gflopsStr, err := readHeader("# gflops=")
	if err != nil {
		return Solution{}, err
	}
	if s.MedianGFLOPs, err = strconv.ParseFloat(gflopsStr, 64); err != nil {
		return Solution{}, fmt.Errorf("solution: bad gflops %q: %w", gflopsStr, err)
	}

	discStr, err := readHeader("# discovery_s=")
	if err != nil {
		return Solution{}, err
	}
	if s.DiscoverySecs, err = strconv.ParseFloat(discStr, 64); err != nil {
		return Solution{}, fmt.Errorf("solution: bad discovery_s %q: %w", discStr, err)
	}

	for i < len(lines) {
		header := strings.TrimSpace(lines[i])
		if header == "" {
			i++
			continue
		}
		name, ok := strings.CutSuffix(header, ":")
		if !ok {
			return Solution{}, fmt.Errorf("solution: expected kernel header at line %d, got %q", i+1, lines[i])
		}
		i++

		var srcLines []string
		for i < len(lines) && lines[i] != kernelSeparator {
			srcLines = append(srcLines, lines[i])
			i++
		}
		if i >= len(lines) {
			return Solution{}, fmt.Errorf("solution: missing %q terminator after kernel %q", kernelSeparator, name)
		}
		i++ // consume separator

		source := strings.Join(srcLines, "\n")
		if len(srcLines) > 0 {
			source += "\n"
		}

		switch name {
		case kernelgen.Main.String():
			s.MainKernelSource = source
		case kernelgen.BetaC.String():
			s.BetaCSource = source
		case kernelgen.WSA.String():
			s.WorkspaceSources[kernelgen.WSA] = source
		case kernelgen.WSB.String():
			s.WorkspaceSources[kernelgen.WSB] = source
		default:
			return Solution{}, fmt.Errorf("solution: unknown kernel name %q", name)
		}
	}

	return s, nil
}
