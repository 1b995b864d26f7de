// Command miogemm-tune is the CLI harness around the core library: it
// parses one or more geometries, runs the descent search against a
// simulated device, and emits the discovered Solution(s) (§6).
package main

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/sarchlab/akita/v4/monitoring"
	"github.com/sarchlab/akita/v4/sim"
	"github.com/spf13/cobra"
	"github.com/tebeka/atexit"

	"github.com/sarchlab/miogemm/bench"
	"github.com/sarchlab/miogemm/cache"
	"github.com/sarchlab/miogemm/descent"
	"github.com/sarchlab/miogemm/device"
	"github.com/sarchlab/miogemm/geometry"
	"github.com/sarchlab/miogemm/hypas"
	"github.com/sarchlab/miogemm/output"
)

const (
	exitSuccess         = 0
	exitUsage           = 1
	exitNoValidStart    = 2
	exitDeviceError     = 3
	exitAccuracyFailure = 4
)

var (
	geometryStrings []string
	budgetSeconds   float64
	constraintsStr  string
	verbosityStr    string
	seedFlag        int64
	outputPath      string
	configPath      string
)

func exitWith(code int) {
	atexit.Exit(code)
}

func main() {
	root := &cobra.Command{
		Use:   "miogemm-tune",
		Short: "Auto-tune GEMM kernels for one or more geometries",
		RunE:  run,
	}

	root.Flags().StringArrayVar(&geometryStrings, "geometry", nil, "canonical geometry string (repeatable)")
	root.Flags().Float64Var(&budgetSeconds, "budget-seconds", 5, "wall-clock search budget, in seconds")
	root.Flags().StringVar(&constraintsStr, "constraints", "", "colon-joined HyPas constraints string")
	root.Flags().StringVar(&verbosityStr, "verbosity", "SILENT", "output verbosity")
	root.Flags().Int64Var(&seedFlag, "seed", 0, "PRNG seed (0 reads MIOGEMM_SEED, else defaults to 1)")
	root.Flags().StringVar(&outputPath, "output", "", "path to write the discovered Solution(s); empty means stdout")
	root.Flags().StringVar(&configPath, "config", "", "path to a YAML file of device/run defaults")

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitUsage)
	}
}

func run(cmd *cobra.Command, args []string) error {
	if len(geometryStrings) == 0 {
		fmt.Fprintln(os.Stderr, "miogemm-tune: at least one --geometry is required")
		exitWith(exitUsage)
	}

	deviceInfo := geometry.DefaultDeviceInfo
	if configPath != "" {
		fc, cerr := loadFileConfig(configPath)
		if cerr != nil {
			fmt.Fprintln(os.Stderr, cerr)
			exitWith(exitUsage)
		}
		deviceInfo = fc.deviceInfo()
		if constraintsStr == "" {
			constraintsStr = fc.Constraints
		}
		if verbosityStr == "SILENT" {
			verbosityStr = fc.Verbosity
		}
		if seedFlag == 0 {
			seedFlag = fc.Seed
		}
		if budgetSeconds == 5 && fc.BudgetSeconds != 0 {
			budgetSeconds = fc.BudgetSeconds
		}
	}
	if verbosityStr == "" {
		verbosityStr = "SILENT"
	}

	verbosity, err := output.ParseVerbosity(verbosityStr)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		exitWith(exitUsage)
	}
	if envVerbosity := os.Getenv("MIOGEMM_LOG_LEVEL"); envVerbosity != "" {
		if v, verr := output.ParseVerbosity(envVerbosity); verr == nil {
			verbosity = v
		}
	}

	constraints, err := hypas.NewFromColonJoined(constraintsStr)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		exitWith(exitUsage)
	}

	seed := resolveSeed()

	var logPath string
	if outputPath != "" {
		logPath = outputPath + ".log"
	}
	outs, err := output.New(verbosity, logPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		exitWith(exitDeviceError)
	}
	atexit.Register(func() { outs.Close() })

	monitor := monitoring.NewMonitor()
	engine := sim.NewSerialEngine()
	monitor.RegisterEngine(engine)

	dev := device.SimDeviceBuilder{}.
		WithEngine(engine).
		WithFreq(1 * sim.GHz).
		WithMonitor(monitor).
		WithDeviceInfo(deviceInfo).
		Build("MiogemmTuneDevice")

	monitor.StartServer()

	var solutionCache *cache.Cache
	if dir := os.Getenv("MIOGEMM_CACHE_DIR"); dir != "" {
		solutionCache, err = cache.Open(dir)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			exitWith(exitDeviceError)
		}
		atexit.Register(func() { solutionCache.Close() })
	}

	bm := bench.New(dev)
	budget := time.Duration(budgetSeconds * float64(time.Second))

	for i, gs := range geometryStrings {
		g, gerr := geometry.Parse(gs)
		if gerr != nil {
			fmt.Fprintln(os.Stderr, gerr)
			exitWith(exitUsage)
		}

		if solutionCache != nil {
			if cached, cerr := solutionCache.Get(g, dev.DeviceInfo()); cerr == nil {
				writeSolution(cached, i, len(geometryStrings))
				continue
			}
		}

		driver, derr := descent.New(g, dev.DeviceInfo(), constraints, bm, outs)
		if derr != nil {
			handleDescentError(derr)
		}

		inputs, runOpts := syntheticInputs(g, verbosity)

		sol, ferr := driver.Find(budget, inputs, runOpts, descent.FindParams{
			Verbosity:    verbosity,
			Seed:         seed + int64(i),
			AllowRestart: true,
		})
		if ferr != nil {
			handleDescentError(ferr)
		}

		if solutionCache != nil {
			if perr := solutionCache.Put(g, dev.DeviceInfo(), sol); perr != nil {
				fmt.Fprintln(os.Stderr, perr)
			}
		}

		writeSolution(sol, i, len(geometryStrings))
	}

	exitWith(exitSuccess)
	return nil
}

func resolveSeed() int64 {
	if seedFlag != 0 {
		return seedFlag
	}
	if envSeed := os.Getenv("MIOGEMM_SEED"); envSeed != "" {
		if parsed, err := strconv.ParseInt(envSeed, 10, 64); err == nil {
			return parsed
		}
	}
	return 1
}

func handleDescentError(err error) {
	var de *descent.Error
	if errors.As(err, &de) {
		switch de.Kind {
		case descent.GraphEmpty:
			fmt.Fprintln(os.Stderr, de)
			exitWith(exitNoValidStart)
		case descent.NumericSanityFailed:
			fmt.Fprintln(os.Stderr, de)
			exitWith(exitAccuracyFailure)
		default:
			fmt.Fprintln(os.Stderr, de)
			exitWith(exitDeviceError)
		}
		return
	}
	fmt.Fprintln(os.Stderr, err)
	exitWith(exitDeviceError)
}
