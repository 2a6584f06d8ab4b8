package solver

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/Sumatoshi-tech/memfit/pkg/alloc"
	"github.com/Sumatoshi-tech/memfit/pkg/sweep"
)

// Errors surfaced by the solver entry points.
var (
	// ErrNoSolution means the search completed and proved the problem
	// infeasible under the given parameters and capacity.
	ErrNoSolution = errors.New("no feasible allocation exists")

	// ErrDeadlineExceeded means the timeout elapsed or the search was
	// cancelled; nothing is proven either way.
	ErrDeadlineExceeded = errors.New("allocation search deadline exceeded")

	// errAborted is internal to the round robin: a heuristic exhausted its
	// node budget. It never escapes to callers.
	errAborted = errors.New("node budget exhausted")
)

// Solver assigns offsets to a problem's buffers. A solver is single-
// threaded and fully synchronous: all search state belongs to one Solve
// call. The only cross-thread field is the cancellation flag, which may be
// set from another goroutine via Cancel.
type Solver struct {
	params     Params
	logger     *slog.Logger
	backtracks int64
	cancelled  atomic.Bool
}

// New creates a solver with the given parameters.
func New(params Params) *Solver {
	return &Solver{params: params, logger: slog.Default()}
}

// SetLogger replaces the solver's logger. Search tracing is emitted at
// debug level.
func (s *Solver) SetLogger(logger *slog.Logger) {
	s.logger = logger
}

// Backtracks returns the number of backtracks in the latest invocation.
func (s *Solver) Backtracks() int64 {
	return s.backtracks
}

// Cancel aborts the search; the next node entered returns
// ErrDeadlineExceeded. Safe to call from another goroutine.
func (s *Solver) Cancel() {
	s.cancelled.Store(true)
}

// Solve computes partitions via the sweep and solves each independently.
// When MinimizeCapacity is set it instead binary-searches the smallest
// feasible capacity, returning the best solution found.
func (s *Solver) Solve(ctx context.Context, problem *alloc.Problem) (alloc.Solution, error) {
	s.backtracks = 0
	s.cancelled.Store(false)

	return s.solveWithStartTime(ctx, problem, time.Now())
}

func (s *Solver) solveWithStartTime(
	ctx context.Context, problem *alloc.Problem, startTime time.Time,
) (alloc.Solution, error) {
	sweepResult := sweep.Sweep(problem)

	if !s.params.MinimizeCapacity {
		state := newSearchState(
			ctx, &s.params, s.logger, startTime, problem, sweepResult, &s.backtracks, &s.cancelled)

		return state.solve()
	}

	return s.minimizeCapacity(ctx, problem, sweepResult, startTime)
}

// minimizeCapacity binary-searches the smallest feasible capacity in
// [0, problem.Capacity]. Each success tightens the upper bound to one below
// the achieved height; each failure raises the lower bound. Deadline errors
// propagate out.
func (s *Solver) minimizeCapacity(
	ctx context.Context,
	problem *alloc.Problem,
	sweepResult *sweep.SweepResult,
	startTime time.Time,
) (alloc.Solution, error) {
	best := alloc.Solution{}
	bestErr := error(ErrNoSolution)

	trial := *problem
	lo, hi := alloc.Capacity(0), problem.Capacity

	for lo <= hi {
		mid := lo + (hi-lo)/2
		trial.Capacity = mid

		state := newSearchState(
			ctx, &s.params, s.logger, startTime, &trial, sweepResult, &s.backtracks, &s.cancelled)

		solution, err := state.solve()

		switch {
		case err == nil:
			s.logger.Debug("capacity search: feasible",
				slog.Int64("capacity", mid), slog.Int64("height", solution.Height))

			best, bestErr = solution, nil
			hi = solution.Height - 1
		case errors.Is(err, ErrDeadlineExceeded):
			return alloc.Solution{}, err
		default:
			s.logger.Debug("capacity search: infeasible", slog.Int64("capacity", mid))

			lo = mid + 1
		}
	}

	return best, bestErr
}
