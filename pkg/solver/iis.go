package solver

import (
	"context"
	"errors"
	"time"

	"github.com/Sumatoshi-tech/memfit/pkg/alloc"
)

// ComputeIrreducibleInfeasibleSubset runs a deletion filter over the
// problem's buffers: each buffer is tentatively removed and the remainder
// re-solved. A buffer whose removal restores feasibility is essential and
// joins the subset; one whose removal leaves the problem infeasible stays
// out for good. The solver's timeout spans the entire computation. The
// result is irreducible: removing any member of the subset yields a
// feasible subproblem.
func (s *Solver) ComputeIrreducibleInfeasibleSubset(
	ctx context.Context, problem *alloc.Problem,
) ([]alloc.BufferIdx, error) {
	s.backtracks = 0
	s.cancelled.Store(false)

	startTime := time.Now()
	include := make([]bool, len(problem.Buffers))

	for i := range include {
		include[i] = true
	}

	var subset []alloc.BufferIdx

	for bufferIdx := range problem.Buffers {
		include[bufferIdx] = false

		subproblem := alloc.Problem{Capacity: problem.Capacity}
		for idx := range problem.Buffers {
			if include[idx] {
				subproblem.Buffers = append(subproblem.Buffers, problem.Buffers[idx])
			}
		}

		_, err := s.solveWithStartTime(ctx, &subproblem, startTime)
		if errors.Is(err, ErrDeadlineExceeded) {
			return nil, err
		}

		if err == nil {
			include[bufferIdx] = true
			subset = append(subset, bufferIdx)
		}
	}

	return subset, nil
}
