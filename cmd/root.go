package cmd

import (
	"context"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/inference-sim/household-sim/sim"
)

var (
	// Model inputs
	paramsPath       string // YAML parameter file
	compositionsPath string // CSV of household compositions
	distributionPath string // CSV of composition weights

	// Integration settings
	horizon    float64 // End of the simulated interval, in days
	firstStep  float64 // Initial integrator step
	relTol     float64 // Relative error tolerance
	absTol     float64 // Absolute error tolerance
	maxSteps   int     // Attempted step budget (0 = unlimited)
	minStep    float64 // Smallest admissible step (0 = integrator default)
	prevalence float64 // Initial mass of each single-infectious seed state

	// Household builds
	workers     int    // Concurrent composition builds (0 = unlimited)
	cacheDriver string // "", fs, memory or s3
	cacheDir    string
	cacheBucket string
	cacheRegion string
	cacheURL    string
	cachePath   bool

	// Outputs
	resultsDriver string // "", sqlite or postgres
	resultsDSN    string
	outputPath    string // CSV of detected/undetected per class
	metricsOut    string // Prometheus text exposition
	traceOut      string // JSON step trace
	logLevel      string // Log verbosity level
)

// rootCmd is the base command for the CLI
var rootCmd = &cobra.Command{
	Use:   "household-sim",
	Short: "Household-structured epidemic simulator",
}

// runCmd integrates the household model using parameters from CLI flags
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the household epidemic simulation",
	Run: func(cmd *cobra.Command, args []string) {
		setLogLevel()
		opts := runOptionsFromFlags()
		res, err := runSimulation(cmd.Context(), opts)
		if res != nil {
			res.Metrics.Print(res.Solution)
		}
		if err != nil {
			logrus.Fatalf("Simulation failed: %v", err)
		}
		logrus.Info("Simulation complete.")
	},
}

// buildCmd builds (and caches) the household generators without integrating
var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Enumerate household states and assemble generators",
	Run: func(cmd *cobra.Command, args []string) {
		setLogLevel()
		opts := runOptionsFromFlags()
		pop, _, err := buildPopulation(cmd.Context(), opts, nil)
		if err != nil {
			logrus.Fatalf("Build failed: %v", err)
		}
		printPopulation(os.Stdout, pop)
	},
}

func setLogLevel() {
	level, err := logrus.ParseLevel(logLevel)
	if err != nil {
		logrus.Fatalf("Invalid log level: %s", logLevel)
	}
	logrus.SetLevel(level)
}

func runOptionsFromFlags() runOptions {
	if paramsPath == "" || compositionsPath == "" || distributionPath == "" {
		logrus.Fatalf("--params, --compositions and --distribution are required")
	}
	return runOptions{
		ParamsPath:       paramsPath,
		CompositionsPath: compositionsPath,
		DistributionPath: distributionPath,
		Run:              sim.NewRunConfig(horizon, firstStep, relTol, absTol, maxSteps, minStep, prevalence),
		Workers:          workers,
		Cache: cacheOptions{
			Driver:    cacheDriver,
			Dir:       cacheDir,
			Bucket:    cacheBucket,
			Region:    cacheRegion,
			Endpoint:  cacheURL,
			PathStyle: cachePath,
		},
		ResultsDriver: resultsDriver,
		ResultsDSN:    resultsDSN,
		OutputPath:    outputPath,
		MetricsOut:    metricsOut,
		TraceOut:      traceOut,
	}
}

// Execute runs the CLI root command
func Execute() {
	rootCmd.SetContext(context.Background())
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// init sets up CLI flags and subcommands
func init() {
	defaults := sim.DefaultRunConfig()

	for _, c := range []*cobra.Command{runCmd, buildCmd} {
		c.Flags().StringVar(&paramsPath, "params", "", "YAML file of model parameters")
		c.Flags().StringVar(&compositionsPath, "compositions", "", "CSV of household compositions, one row per composition")
		c.Flags().StringVar(&distributionPath, "distribution", "", "CSV of composition weights")
		c.Flags().IntVar(&workers, "workers", 0, "Concurrent household builds (0 = unlimited)")
		c.Flags().StringVar(&cacheDriver, "cache-driver", "", "Household build cache: fs, memory or s3 (empty disables)")
		c.Flags().StringVar(&cacheDir, "cache-dir", ".household-cache", "Directory of the fs cache")
		c.Flags().StringVar(&cacheBucket, "cache-bucket", "", "Bucket of the s3 cache")
		c.Flags().StringVar(&cacheRegion, "cache-region", "", "Region of the s3 cache (default us-east-1)")
		c.Flags().StringVar(&cacheURL, "cache-endpoint", "", "Custom s3 endpoint, e.g. MinIO")
		c.Flags().BoolVar(&cachePath, "cache-path-style", false, "Use path-style s3 addressing")
		c.Flags().StringVar(&logLevel, "log", "warn", "Log level (trace, debug, info, warn, error, fatal, panic)")
	}

	runCmd.Flags().Float64Var(&horizon, "horizon", defaults.Horizon, "End of the simulated interval")
	runCmd.Flags().Float64Var(&firstStep, "first-step", defaults.FirstStep, "Initial integrator step (0 = estimate)")
	runCmd.Flags().Float64Var(&relTol, "rtol", defaults.RelTol, "Relative error tolerance")
	runCmd.Flags().Float64Var(&absTol, "atol", defaults.AbsTol, "Absolute error tolerance")
	runCmd.Flags().IntVar(&maxSteps, "max-steps", defaults.MaxSteps, "Attempted step budget (0 = unlimited)")
	runCmd.Flags().Float64Var(&minStep, "min-step", defaults.MinStep, "Smallest admissible step (0 = integrator default)")
	runCmd.Flags().Float64Var(&prevalence, "prevalence", defaults.Prevalence, "Initial mass of each single-infectious seed state, per unit composition weight")

	runCmd.Flags().StringVar(&resultsDriver, "results-driver", "", "Persist runs to sqlite or postgres (empty disables)")
	runCmd.Flags().StringVar(&resultsDSN, "results-dsn", "", "Results database path (sqlite) or DSN (postgres)")
	runCmd.Flags().StringVar(&outputPath, "output", "", "Write detected and undetected counts per class to this CSV")
	runCmd.Flags().StringVar(&metricsOut, "metrics-out", "", "Write Prometheus metrics to this file")
	runCmd.Flags().StringVar(&traceOut, "trace-out", "", "Write the integrator step trace to this JSON file")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(buildCmd)
}
