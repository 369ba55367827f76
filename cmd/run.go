package cmd

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/inference-sim/household-sim/sim"
	"github.com/inference-sim/household-sim/sim/cache"
	"github.com/inference-sim/household-sim/sim/inputs"
	"github.com/inference-sim/household-sim/sim/results"
	"github.com/inference-sim/household-sim/sim/trace"
)

type cacheOptions struct {
	Driver    string
	Dir       string
	Bucket    string
	Region    string
	Endpoint  string
	PathStyle bool
}

// runOptions carries everything a run needs, decoupled from flag globals.
type runOptions struct {
	ParamsPath       string
	CompositionsPath string
	DistributionPath string
	Run              sim.RunConfig
	Workers          int
	Cache            cacheOptions

	ResultsDriver string
	ResultsDSN    string
	OutputPath    string
	MetricsOut    string
	TraceOut      string
}

type runResult struct {
	Population *sim.Population
	Solution   *sim.Solution
	Metrics    *sim.Metrics
	Trace      *trace.SimulationTrace
	RunID      int64
}

// buildPopulation loads the inputs and builds or loads every household.
func buildPopulation(ctx context.Context, opts runOptions, metrics *sim.Metrics) (*sim.Population, *sim.Params, error) {
	params, err := inputs.LoadParams(opts.ParamsPath)
	if err != nil {
		return nil, nil, err
	}
	comps, err := inputs.LoadCompositions(opts.CompositionsPath)
	if err != nil {
		return nil, nil, err
	}
	weights, err := inputs.LoadDistribution(opts.DistributionPath)
	if err != nil {
		return nil, nil, err
	}
	build := sim.BuildOptions{Workers: opts.Workers, Metrics: metrics}
	if opts.Cache.Driver != "" {
		store, err := cache.Open(ctx, cache.Config{
			Driver:    cache.Driver(opts.Cache.Driver),
			Dir:       opts.Cache.Dir,
			Bucket:    opts.Cache.Bucket,
			Region:    opts.Cache.Region,
			Endpoint:  opts.Cache.Endpoint,
			PathStyle: opts.Cache.PathStyle,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("opening cache: %w", err)
		}
		build.Cache = cache.NewHouseholds(store)
	}
	pop, err := sim.NewPopulation(ctx, comps, weights, params, build)
	if err != nil {
		return nil, nil, err
	}
	return pop, params, nil
}

// runSimulation builds the population, integrates it and writes every
// requested output. On an integrator failure the partial solution is still
// written and returned alongside the error.
func runSimulation(ctx context.Context, opts runOptions) (*runResult, error) {
	metrics := sim.NewMetrics()
	pop, params, err := buildPopulation(ctx, opts, metrics)
	if err != nil {
		return nil, err
	}

	s := sim.NewSimulator(pop, params, opts.Run)
	s.Metrics = metrics
	if opts.TraceOut != "" {
		s.Trace = trace.NewSimulationTrace(trace.TraceConfig{Level: trace.TraceLevelSteps})
	}
	logrus.Infof("Starting simulation: %d compositions, %d states, horizon=%g, rtol=%g, atol=%g",
		len(pop.Compositions), pop.Size(), opts.Run.Horizon, opts.Run.RelTol, opts.Run.AbsTol)
	sol, runErr := s.Run()
	if sol == nil {
		return nil, runErr
	}
	if runErr != nil && sim.IsIntegrationFailure(runErr) {
		logrus.Errorf("Integration stopped early; writing the partial solution: %v", runErr)
	}
	res := &runResult{Population: pop, Solution: sol, Metrics: metrics, Trace: s.Trace}

	if opts.OutputPath != "" {
		if err := writeFile(opts.OutputPath, func(w io.Writer) error {
			return writeSeriesCSV(w, sol, params.CoarseBounds)
		}); err != nil {
			return res, err
		}
	}
	if opts.TraceOut != "" {
		if err := writeFile(opts.TraceOut, s.Trace.WriteJSON); err != nil {
			return res, err
		}
	}
	if opts.ResultsDriver != "" {
		store, err := results.Open(ctx, opts.ResultsDriver, opts.ResultsDSN)
		if err != nil {
			return res, err
		}
		defer func() { _ = store.Close() }()
		series := results.SeriesFromSolution(sol, sim.Detected, sim.Undetected)
		id, err := store.SaveRun(ctx, results.NewRun(pop, params, opts.Run.Horizon, sol, runErr), series)
		if err != nil {
			return res, err
		}
		res.RunID = id
	}
	if opts.MetricsOut != "" {
		if err := writeFile(opts.MetricsOut, metrics.WriteText); err != nil {
			return res, err
		}
	}
	return res, runErr
}

func writeFile(path string, write func(io.Writer) error) (retErr error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	defer func() {
		if err := f.Close(); err != nil && retErr == nil {
			retErr = fmt.Errorf("closing %s: %w", path, err)
		}
	}()
	if err := write(f); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}

func printPopulation(w io.Writer, pop *sim.Population) {
	_, _ = fmt.Fprintln(w, "=== Household Population ===")
	_, _ = fmt.Fprintf(w, "Compositions         : %d\n", len(pop.Compositions))
	_, _ = fmt.Fprintf(w, "States               : %d\n", pop.Size())
	_, _ = fmt.Fprintf(w, "Generator Entries    : %d\n", pop.Generator.NNZ())
	_, _ = fmt.Fprintf(w, "Infection Moves      : %d\n", len(pop.Infections))
}
