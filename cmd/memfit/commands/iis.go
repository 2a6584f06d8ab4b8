package commands

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/memfit/pkg/solver"
)

// IISCommand holds configuration and flags for the iis command.
type IISCommand struct {
	configPath string
	input      string
	capacity   int64
	timeout    time.Duration
	verbose    bool
}

// NewIISCommand creates the iis command, which reports an irreducible
// infeasible subset of an unsolvable problem.
func NewIISCommand() *cobra.Command {
	ic := &IISCommand{}

	cmd := &cobra.Command{
		Use:   "iis",
		Short: "Compute an irreducible infeasible subset",
		Long: "Identify a minimal set of buffers whose combination makes the problem\n" +
			"infeasible: removing any one of them restores feasibility.",
		RunE: ic.run,
	}

	cmd.Flags().StringVar(&ic.configPath, "config", "", "Path to a memfit.yaml config file")
	cmd.Flags().StringVar(&ic.input, "input", "", "The path to the input CSV file (.lz4 accepted)")
	cmd.Flags().Int64Var(&ic.capacity, "capacity", 0, "The maximum memory capacity")
	cmd.Flags().DurationVar(&ic.timeout, "timeout", 0, "The time limit for the whole computation (0 = none)")
	cmd.Flags().BoolVarP(&ic.verbose, "verbose", "v", false, "Enable debug logging")

	_ = cmd.MarkFlagRequired("input")

	return cmd
}

func (ic *IISCommand) run(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd, ic.configPath, &ic.capacity, &ic.timeout, ic.verbose)
	if err != nil {
		return err
	}

	problem, err := readProblem(ic.input, ic.capacity)
	if err != nil {
		return err
	}

	params := solver.DefaultParams()
	params.Timeout = ic.timeout
	params.PreorderingHeuristics = cfg.Solver.PreorderingHeuristics

	memSolver := solver.New(params)
	memSolver.SetLogger(slog.Default())

	subset, err := memSolver.ComputeIrreducibleInfeasibleSubset(cmd.Context(), problem)
	if err != nil {
		return fmt.Errorf("iis: %w", err)
	}

	for _, bufferIdx := range subset {
		fmt.Fprintln(cmd.OutOrStdout(), problem.Buffers[bufferIdx].ID)
	}

	return nil
}
