// Package commands implements CLI command handlers for memfit.
package commands

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/memfit/pkg/alloc"
	"github.com/Sumatoshi-tech/memfit/pkg/config"
	"github.com/Sumatoshi-tech/memfit/pkg/csvio"
	"github.com/Sumatoshi-tech/memfit/pkg/solver"
	"github.com/Sumatoshi-tech/memfit/pkg/sweep"
)

// ErrValidationFailed is returned when --validate finds the produced
// solution inconsistent with the problem.
var ErrValidationFailed = errors.New("solution failed validation")

// SolveCommand holds configuration and flags for the solve command.
type SolveCommand struct {
	configPath string
	input      string
	output     string
	capacity   int64
	timeout    time.Duration
	validate   bool
	stats      bool
	legacyCsv  bool
	verbose    bool

	canonicalOnly        bool
	sectionInference     bool
	dynamicOrdering      bool
	checkDominance       bool
	unallocatedFloor     bool
	staticPreordering    bool
	dynamicDecomposition bool
	monotonicFloor       bool
	hatlessPruning       bool
	minimizeCapacity     bool
	heuristics           []string
}

// NewSolveCommand creates the solve command.
func NewSolveCommand() *cobra.Command {
	sc := &SolveCommand{}

	cmd := &cobra.Command{
		Use:   "solve",
		Short: "Allocate offsets for a CSV problem",
		Long:  "Read a problem from CSV, assign an offset to every buffer, and write the result.",
		RunE:  sc.run,
	}

	cmd.Flags().StringVar(&sc.configPath, "config", "", "Path to a memfit.yaml config file")
	cmd.Flags().StringVar(&sc.input, "input", "", "The path to the input CSV file (.lz4 accepted)")
	cmd.Flags().StringVar(&sc.output, "output", "", "The path to the output CSV file (default: stdout)")
	cmd.Flags().Int64Var(&sc.capacity, "capacity", 0, "The maximum memory capacity")
	cmd.Flags().DurationVar(&sc.timeout, "timeout", 0, "The time limit enforced for the solver (0 = none)")
	cmd.Flags().BoolVar(&sc.validate, "validate", false, "Validate the solver's output")
	cmd.Flags().BoolVar(&sc.stats, "stats", false, "Print a solve summary table to stderr")
	cmd.Flags().BoolVar(&sc.legacyCsv, "legacy-csv", false, "Write output using the legacy start/end columns")
	cmd.Flags().BoolVarP(&sc.verbose, "verbose", "v", false, "Enable debug logging")

	cmd.Flags().BoolVar(&sc.canonicalOnly, "canonical-only", true, "Explore canonical solutions only")
	cmd.Flags().BoolVar(&sc.sectionInference, "section-inference", true, "Perform advanced inference")
	cmd.Flags().BoolVar(&sc.dynamicOrdering, "dynamic-ordering", true, "Dynamically order buffers")
	cmd.Flags().BoolVar(&sc.checkDominance, "check-dominance", true,
		"Check for dominated solutions that leave gaps in the allocation")
	cmd.Flags().BoolVar(&sc.unallocatedFloor, "unallocated-floor", true,
		"Use min offsets to establish lower bounds on section floors")
	cmd.Flags().BoolVar(&sc.staticPreordering, "static-preordering", true, "Statically preorder buffers")
	cmd.Flags().BoolVar(&sc.dynamicDecomposition, "dynamic-decomposition", true, "Dynamically decompose buffers")
	cmd.Flags().BoolVar(&sc.monotonicFloor, "monotonic-floor", true,
		"Require the solution floor to increase monotonically")
	cmd.Flags().BoolVar(&sc.hatlessPruning, "hatless-pruning", true,
		"Prune alternate placements for buffers with nothing overhead")
	cmd.Flags().BoolVar(&sc.minimizeCapacity, "minimize-capacity", false,
		"Binary-search the smallest feasible capacity")
	cmd.Flags().StringSliceVar(&sc.heuristics, "preordering-heuristics", nil,
		"Static preordering heuristics to attempt (example: WAT,TAW,TWA)")

	_ = cmd.MarkFlagRequired("input")

	return cmd
}

func (sc *SolveCommand) run(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd, sc.configPath, &sc.capacity, &sc.timeout, sc.verbose)
	if err != nil {
		return err
	}

	params := sc.solverParams(cmd, cfg)

	problem, err := readProblem(sc.input, sc.capacity)
	if err != nil {
		return err
	}

	memSolver := solver.New(params)
	memSolver.SetLogger(slog.Default())

	started := time.Now()
	solution, err := memSolver.Solve(cmd.Context(), problem)
	elapsed := time.Since(started)

	fmt.Fprintf(cmd.ErrOrStderr(), "%.3f\n", elapsed.Seconds())

	if err != nil {
		return fmt.Errorf("solve: %w", err)
	}

	if sc.validate {
		result := alloc.Validate(problem, &solution)
		printValidation(cmd.ErrOrStderr(), result)

		if result != alloc.Good {
			return fmt.Errorf("%w: %s", ErrValidationFailed, result)
		}
	}

	if sc.stats {
		printStats(cmd.ErrOrStderr(), problem, &solution, memSolver.Backtracks(), elapsed)
	}

	contents := csvio.ToCSV(problem, &solution, sc.legacyCsv)
	if sc.output == "" {
		fmt.Fprint(cmd.OutOrStdout(), contents)

		return nil
	}

	return csvio.WriteFile(sc.output, contents)
}

// solverParams merges config defaults with any explicitly set flags.
func (sc *SolveCommand) solverParams(cmd *cobra.Command, cfg *config.Config) solver.Params {
	params := solver.Params{
		Timeout:               sc.timeout,
		CanonicalOnly:         cfg.Solver.CanonicalOnly,
		SectionInference:      cfg.Solver.SectionInference,
		DynamicOrdering:       cfg.Solver.DynamicOrdering,
		CheckDominance:        cfg.Solver.CheckDominance,
		UnallocatedFloor:      cfg.Solver.UnallocatedFloor,
		StaticPreordering:     cfg.Solver.StaticPreordering,
		DynamicDecomposition:  cfg.Solver.DynamicDecomposition,
		MonotonicFloor:        cfg.Solver.MonotonicFloor,
		HatlessPruning:        cfg.Solver.HatlessPruning,
		MinimizeCapacity:      cfg.Solver.MinimizeCapacity,
		PreorderingHeuristics: cfg.Solver.PreorderingHeuristics,
	}

	flagOverrides := map[string]*bool{
		"canonical-only":        &params.CanonicalOnly,
		"section-inference":     &params.SectionInference,
		"dynamic-ordering":      &params.DynamicOrdering,
		"check-dominance":       &params.CheckDominance,
		"unallocated-floor":     &params.UnallocatedFloor,
		"static-preordering":    &params.StaticPreordering,
		"dynamic-decomposition": &params.DynamicDecomposition,
		"monotonic-floor":       &params.MonotonicFloor,
		"hatless-pruning":       &params.HatlessPruning,
		"minimize-capacity":     &params.MinimizeCapacity,
	}

	flagValues := map[string]bool{
		"canonical-only":        sc.canonicalOnly,
		"section-inference":     sc.sectionInference,
		"dynamic-ordering":      sc.dynamicOrdering,
		"check-dominance":       sc.checkDominance,
		"unallocated-floor":     sc.unallocatedFloor,
		"static-preordering":    sc.staticPreordering,
		"dynamic-decomposition": sc.dynamicDecomposition,
		"monotonic-floor":       sc.monotonicFloor,
		"hatless-pruning":       sc.hatlessPruning,
		"minimize-capacity":     sc.minimizeCapacity,
	}

	for name, target := range flagOverrides {
		if cmd.Flags().Changed(name) {
			*target = flagValues[name]
		}
	}

	if cmd.Flags().Changed("preordering-heuristics") {
		params.PreorderingHeuristics = sc.heuristics
	}

	return params
}

// printValidation reports the validator's verdict, colorized for humans.
func printValidation(w io.Writer, result alloc.ValidationResult) {
	if result == alloc.Good {
		fmt.Fprintln(w, color.GreenString("PASS"))

		return
	}

	fmt.Fprintln(w, color.RedString("FAIL (%s)", result))
}

// printStats renders a solve summary table.
func printStats(
	w io.Writer, problem *alloc.Problem, solution *alloc.Solution, backtracks int64, elapsed time.Duration,
) {
	sweepResult := sweep.Sweep(problem)

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.AppendHeader(table.Row{"Metric", "Value"})
	t.AppendRows([]table.Row{
		{"Buffers", len(problem.Buffers)},
		{"Sections", len(sweepResult.Sections)},
		{"Partitions", len(sweepResult.Partitions)},
		{"Backtracks", backtracks},
		{"Capacity", humanize.IBytes(uint64(problem.Capacity))},
		{"Height", humanize.IBytes(uint64(solution.Height))},
		{"Elapsed", elapsed.Round(time.Millisecond)},
	})
	t.Render()
}
