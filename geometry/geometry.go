// Package geometry describes the shape of one GEMM problem instance.
package geometry

import (
	"fmt"
	"regexp"
	"strconv"
)

// FloatType is the element type of a GEMM problem.
type FloatType int

const (
	// F32 is single precision.
	F32 FloatType = iota
	// F64 is double precision.
	F64
)

func (f FloatType) String() string {
	switch f {
	case F32:
		return "f32"
	case F64:
		return "f64"
	default:
		return "f?"
	}
}

// Bytes returns the size in bytes of one element of this type.
func (f FloatType) Bytes() int {
	switch f {
	case F32:
		return 4
	case F64:
		return 8
	default:
		panic("unknown float type")
	}
}

// Geometry is an immutable description of one GEMM problem instance.
//
// Two Geometries compare equal iff all exported fields are equal; the
// zero value is never valid (M, N, K must be positive).
type Geometry struct {
	IsColMajor bool
	TA, TB, TC bool

	M, N, K int

	LdA, LdB, LdC int

	WsSize int

	FloatType FloatType
}

// FloatSizeBytes is the size in bytes of one element.
func (g Geometry) FloatSizeBytes() int {
	return g.FloatType.Bytes()
}

// coalUncoal returns the coalesced-axis length and the uncoalesced-axis
// length for matrix A, B, or C given the geometry's layout and transpose
// flags. mat must be one of 'A', 'B', 'C'.
func (g Geometry) coalUncoal(mat byte) (coal, uncoal int) {
	transposed := map[byte]bool{'A': g.TA, 'B': g.TB, 'C': g.TC}[mat]
	rows, cols := g.rowsCols(mat)

	// Row-major stores each row contiguously, so the coalesced axis is
	// the column axis; column-major stores each column contiguously, so
	// the coalesced axis is the row axis. A transpose flips which
	// logical axis (rows/cols) lands in memory order.
	if g.IsColMajor {
		if transposed {
			return cols, rows
		}
		return rows, cols
	}
	if transposed {
		return rows, cols
	}
	return cols, rows
}

func (g Geometry) rowsCols(mat byte) (rows, cols int) {
	switch mat {
	case 'A':
		return g.M, g.K
	case 'B':
		return g.K, g.N
	case 'C':
		return g.M, g.N
	default:
		panic("unknown matrix role " + string(mat))
	}
}

// CoalDim returns the coalesced (memory-contiguous) axis length for the
// named matrix role ('A', 'B', or 'C').
func (g Geometry) CoalDim(mat byte) int {
	coal, _ := g.coalUncoal(mat)
	return coal
}

// UncoalDim returns the uncoalesced axis length for the named matrix role.
func (g Geometry) UncoalDim(mat byte) int {
	_, uncoal := g.coalUncoal(mat)
	return uncoal
}

// MinLeadingDim returns the smallest leading dimension admissible for
// the named matrix role, i.e. the coalesced axis length.
func (g Geometry) MinLeadingDim(mat byte) int {
	return g.CoalDim(mat)
}

func (g Geometry) leadingDim(mat byte) int {
	switch mat {
	case 'A':
		return g.LdA
	case 'B':
		return g.LdB
	case 'C':
		return g.LdC
	default:
		panic("unknown matrix role " + string(mat))
	}
}

// Offset returns the flat memory offset, in elements, of the logical
// (row, col) entry of mat. row and col are always given in the
// matrix's logical orientation (row ranges over M for A/C or K for B;
// col ranges over K for A or N for B/C), independent of transpose or
// storage layout.
func (g Geometry) Offset(mat byte, row, col int) int {
	transposed := map[byte]bool{'A': g.TA, 'B': g.TB, 'C': g.TC}[mat]

	var coalIdx, uncoalIdx int
	switch {
	case g.IsColMajor && transposed:
		coalIdx, uncoalIdx = col, row
	case g.IsColMajor && !transposed:
		coalIdx, uncoalIdx = row, col
	case !g.IsColMajor && transposed:
		coalIdx, uncoalIdx = row, col
	default:
		coalIdx, uncoalIdx = col, row
	}

	return coalIdx + uncoalIdx*g.leadingDim(mat)
}

// Validate checks the Geometry's invariants: positive dimensions and
// leading dimensions no smaller than their respective coalesced axis.
func (g Geometry) Validate() error {
	if g.M <= 0 || g.N <= 0 || g.K <= 0 {
		return fmt.Errorf("geometry: m, n, k must be positive, got m=%d n=%d k=%d", g.M, g.N, g.K)
	}
	if g.WsSize < 0 {
		return fmt.Errorf("geometry: ws_size must be >= 0, got %d", g.WsSize)
	}
	if g.LdA < g.MinLeadingDim('A') {
		return fmt.Errorf("geometry: lda=%d smaller than coalesced axis %d", g.LdA, g.MinLeadingDim('A'))
	}
	if g.LdB < g.MinLeadingDim('B') {
		return fmt.Errorf("geometry: ldb=%d smaller than coalesced axis %d", g.LdB, g.MinLeadingDim('B'))
	}
	if g.LdC < g.MinLeadingDim('C') {
		return fmt.Errorf("geometry: ldc=%d smaller than coalesced axis %d", g.LdC, g.MinLeadingDim('C'))
	}
	return nil
}

func b2i(b bool) int {
	if b {
		return 1
	}
	return 0
}

// String emits the canonical geometry string (§6):
//
//	tC{0|1}_tA{0|1}_tB{0|1}_colMaj{0|1}_m{M}_n{N}_k{K}_lda{LDA}_ldb{LDB}_ldc{LDC}_ws{WS}_f{32|64}
func (g Geometry) String() string {
	return fmt.Sprintf(
		"tC%d_tA%d_tB%d_colMaj%d_m%d_n%d_k%d_lda%d_ldb%d_ldc%d_ws%d_f%d",
		b2i(g.TC), b2i(g.TA), b2i(g.TB), b2i(g.IsColMajor),
		g.M, g.N, g.K, g.LdA, g.LdB, g.LdC, g.WsSize, g.FloatType.Bytes()*8,
	)
}

var canonicalPattern = regexp.MustCompile(
	`^tC([01])_tA([01])_tB([01])_colMaj([01])_m(\d+)_n(\d+)_k(\d+)_lda(\d+)_ldb(\d+)_ldc(\d+)_ws(\d+)_f(32|64)$`,
)

// Parse parses the canonical geometry string (§6). The string must
// match the fixed field order exactly; Parse never guesses a missing
// field.
func Parse(s string) (Geometry, error) {
	m := canonicalPattern.FindStringSubmatch(s)
	if m == nil {
		return Geometry{}, fmt.Errorf("geometry: malformed canonical string %q", s)
	}

	ints := make([]int, 11)
	for i, field := range m[1:12] {
		v, err := strconv.Atoi(field)
		if err != nil {
			return Geometry{}, fmt.Errorf("geometry: bad integer field %q in %q: %w", field, s, err)
		}
		ints[i] = v
	}

	var ft FloatType
	switch m[12] {
	case "32":
		ft = F32
	case "64":
		ft = F64
	default:
		return Geometry{}, fmt.Errorf("geometry: unknown float width %q", m[12])
	}

	g := Geometry{
		TC:         ints[0] == 1,
		TA:         ints[1] == 1,
		TB:         ints[2] == 1,
		IsColMajor: ints[3] == 1,
		M:          ints[4],
		N:          ints[5],
		K:          ints[6],
		LdA:        ints[7],
		LdB:        ints[8],
		LdC:        ints[9],
		WsSize:     ints[10],
		FloatType:  ft,
	}

	if err := g.Validate(); err != nil {
		return Geometry{}, err
	}

	return g, nil
}
