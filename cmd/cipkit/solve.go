package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/cipkit/cipkit/logger"
	"github.com/cipkit/cipkit/numerics"
	"github.com/cipkit/cipkit/solver"
)

var solveCmd = &cobra.Command{
	Use:   "solve [problem.toml ...]",
	Short: "solves the integer programs in the given TOML files",
	Args:  cobra.MinimumNArgs(1),
	RunE:  cmdSolve,
}

var (
	fSelector  string
	fNodeLimit uint64
	fTimeLimit time.Duration
	fGapLimit  float64
	fJobs      int
	fConfig    string
	fQuiet     bool
)

func init() {
	rootCmd.AddCommand(solveCmd)
	solveCmd.Flags().StringVar(&fSelector, "selector", "bfs", "node selection strategy (bfs, dfs, hybrid)")
	solveCmd.Flags().Uint64Var(&fNodeLimit, "node-limit", 0, "stop after this many nodes (0 = unlimited)")
	solveCmd.Flags().DurationVar(&fTimeLimit, "time-limit", 0, "stop after this duration (0 = unlimited)")
	solveCmd.Flags().Float64Var(&fGapLimit, "gap-limit", 0, "stop at this relative primal-dual gap (0 = optimality)")
	solveCmd.Flags().IntVar(&fJobs, "jobs", 1, "number of instances solved concurrently")
	solveCmd.Flags().StringVar(&fConfig, "config", "", "TOML file with numeric tolerances")
	solveCmd.Flags().BoolVar(&fQuiet, "quiet", false, "suppress solver logging")
}

func cmdSolve(cmd *cobra.Command, args []string) error {
	if fQuiet {
		logger.Disable()
	}

	tol := numerics.Default()
	if fConfig != "" {
		cfg, err := numerics.LoadConfig(fConfig)
		if err != nil {
			return err
		}
		tol, err = cfg.Tolerances()
		if err != nil {
			return err
		}
	}
	if fJobs < 1 {
		return fmt.Errorf("--jobs must be at least 1")
	}

	opts := []solver.Option{
		solver.WithSelector(fSelector),
		solver.WithNodeLimit(fNodeLimit),
		solver.WithTimeLimit(fTimeLimit),
		solver.WithGapLimit(fGapLimit),
	}

	g, ctx := errgroup.WithContext(cmd.Context())
	g.SetLimit(fJobs)
	results := make([]*solver.Result, len(args))
	models := make([]*Model, len(args))
	for i, path := range args {
		i, path := i, path
		g.Go(func() error {
			m, err := LoadModel(path)
			if err != nil {
				return err
			}
			sol, err := m.Build(tol, withSolverOptions(opts...))
			if err != nil {
				return fmt.Errorf("%s: %w", path, err)
			}
			res, err := sol.Solve(ctx)
			if err != nil {
				return fmt.Errorf("%s: %w", path, err)
			}
			models[i], results[i] = m, res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	for i, res := range results {
		report(os.Stdout, args[i], models[i], res)
	}
	return nil
}

func report(w *os.File, path string, m *Model, res *solver.Result) {
	obj := res.Objective
	if m.maximizing() {
		obj = -obj
	}
	fmt.Fprintf(w, "%s: %s", path, res.Status)
	if res.Vals != nil {
		fmt.Fprintf(w, ", objective %g", obj)
	}
	fmt.Fprintf(w, " (%d nodes, %d LPs, %s)\n", res.Stats.NNodes, res.Stats.NLPs, res.Stats.Elapsed.Round(time.Millisecond))
	if res.Vals == nil {
		return
	}
	for i, mv := range m.Variables {
		if res.Vals[i] != 0 {
			fmt.Fprintf(w, "  %s = %g\n", mv.Name, res.Vals[i])
		}
	}
}
