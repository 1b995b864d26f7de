// Package output is the structured writer that routes tagged messages
// to terminal, file, both, or neither, according to the fixed
// verbosity routing matrix (§4.L, §6).
package output

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
)

// LevelBench sits between Info and Warn for per-iteration benchmark
// detail, mirroring the teacher's LevelTrace/LevelWaveform pair.
const LevelBench slog.Level = slog.LevelInfo + 2

// OutPart tags one structured output channel.
type OutPart int

const (
	MAI OutPart = iota // main progress: starting HyPas, final Solution
	TRA                // trace: per-neighbor descent steps
	DEP                // dependency / graph-construction detail
	ACC                // accuracy-check results
	WRN                // warnings: soft failures, skipped HyPas
	CCH                // cache hits/misses
	BEN                // per-candidate benchmark timings (MULTIBENCH)
)

func (p OutPart) String() string {
	switch p {
	case MAI:
		return "MAI"
	case TRA:
		return "TRA"
	case DEP:
		return "DEP"
	case ACC:
		return "ACC"
	case WRN:
		return "WRN"
	case CCH:
		return "CCH"
	case BEN:
		return "BEN"
	default:
		return "UNKNOWN"
	}
}

// Verbosity selects one row of the routing matrix.
type Verbosity int

const (
	SILENT Verbosity = iota
	TERMINAL
	TERMWITHDEPS
	SPLIT
	TOFILE
	TRACK
	STRACK
	ACCURACY
	MULTIBENCH
)

func (v Verbosity) String() string {
	switch v {
	case SILENT:
		return "SILENT"
	case TERMINAL:
		return "TERMINAL"
	case TERMWITHDEPS:
		return "TERMWITHDEPS"
	case SPLIT:
		return "SPLIT"
	case TOFILE:
		return "TOFILE"
	case TRACK:
		return "TRACK"
	case STRACK:
		return "STRACK"
	case ACCURACY:
		return "ACCURACY"
	case MULTIBENCH:
		return "MULTIBENCH"
	default:
		return "UNKNOWN"
	}
}

// ParseVerbosity parses the --verbosity flag value.
func ParseVerbosity(s string) (Verbosity, error) {
	for v := SILENT; v <= MULTIBENCH; v++ {
		if v.String() == s {
			return v, nil
		}
	}
	return SILENT, fmt.Errorf("output: unknown verbosity %q", s)
}

// route is a bitmask of which sinks a (verbosity, part) pair reaches.
type route int

const (
	none route = 0
	term route = 1 << 0
	file route = 1 << 1
)

func (r route) wantsTerminal() bool { return r&term != 0 }
func (r route) wantsFile() bool     { return r&file != 0 }

// matrix is the fixed verbosity routing table from §6. Rows not listed
// for a given part route to none.
var matrix = map[Verbosity]map[OutPart]route{
	SILENT: {},
	TERMINAL: {
		MAI: term,
		ACC: term,
	},
	TERMWITHDEPS: {
		MAI: term,
		DEP: term,
		ACC: term,
	},
	SPLIT: {
		MAI: term | file,
		ACC: term | file,
	},
	TOFILE: {
		MAI: file,
		ACC: file,
	},
	TRACK: {
		TRA: term,
		WRN: term,
	},
	STRACK: {
		MAI: file,
		TRA: term,
		ACC: file,
		CCH: file,
	},
	ACCURACY: {
		TRA: term,
		ACC: term,
		WRN: term,
	},
	MULTIBENCH: {
		BEN: term,
	},
}

// Outputs is the routed writer. Construct with New.
type Outputs struct {
	verbosity  Verbosity
	terminal   *slog.Logger
	fileLogger *slog.Logger
	file       *os.File
	benchRows  table.Writer
}

// New builds an Outputs for verbosity. filePath is used only by
// verbosity rows that route to file (SPLIT, TOFILE, STRACK); passing
// an empty path when the matrix never needs a file sink is fine.
func New(verbosity Verbosity, filePath string) (*Outputs, error) {
	o := &Outputs{
		verbosity: verbosity,
		terminal:  slog.New(slog.NewTextHandler(os.Stdout, nil)),
	}

	if needsFileSink(verbosity) && filePath != "" {
		f, err := os.Create(filePath)
		if err != nil {
			return nil, fmt.Errorf("output: opening log file: %w", err)
		}
		o.file = f
		o.fileLogger = slog.New(slog.NewTextHandler(f, nil))
	}

	if verbosity == MULTIBENCH {
		o.benchRows = table.NewWriter()
		o.benchRows.AppendHeader(table.Row{"HyPas", "Median ms", "GFLOP/s"})
	}

	return o, nil
}

func needsFileSink(v Verbosity) bool {
	return v == SPLIT || v == TOFILE || v == STRACK
}

// Emit routes msg to whichever sinks the routing matrix assigns to
// (Outputs' verbosity, part).
func (o *Outputs) Emit(part OutPart, msg string, args ...any) {
	row, ok := matrix[o.verbosity][part]
	if !ok || row == none {
		return
	}

	level := levelFor(part)
	if row.wantsTerminal() {
		o.terminal.Log(context.Background(), level, msg, args...)
	}
	if row.wantsFile() && o.fileLogger != nil {
		o.fileLogger.Log(context.Background(), level, msg, args...)
	}
}

func levelFor(part OutPart) slog.Level {
	switch part {
	case WRN:
		return slog.LevelWarn
	case BEN, TRA:
		return LevelBench
	default:
		return slog.LevelInfo
	}
}

// RecordBench appends one candidate's timing to the MULTIBENCH table.
// A no-op outside MULTIBENCH verbosity.
func (o *Outputs) RecordBench(hyposKey string, medianMs, gflops float64) {
	if o.verbosity != MULTIBENCH || o.benchRows == nil {
		return
	}
	o.benchRows.AppendRow(table.Row{hyposKey, medianMs, gflops})
}

// FlushBenchTable renders the accumulated MULTIBENCH table to the
// terminal sink. A no-op outside MULTIBENCH verbosity.
func (o *Outputs) FlushBenchTable() {
	if o.verbosity != MULTIBENCH || o.benchRows == nil {
		return
	}
	fmt.Fprintln(os.Stdout, o.benchRows.Render())
}

// Close releases the file sink, if one was opened.
func (o *Outputs) Close() error {
	if o.file != nil {
		return o.file.Close()
	}
	return nil
}
