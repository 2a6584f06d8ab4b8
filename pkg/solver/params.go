// Package solver assigns offsets to buffers via an exact depth-first
// branch-and-bound over the section decomposition produced by the sweep
// package. It supports several pruning and inference techniques, dynamic
// temporal decomposition during search, a node-budgeted round robin over
// preordering heuristics, capacity minimization, and the computation of
// irreducible infeasible subsets.
package solver

import "time"

// Params enables or disables the solver's advanced search and inference
// techniques (primarily for benchmarking). Unless directed otherwise, users
// should stick with the defaults.
type Params struct {
	// Timeout bounds the search; zero or negative means no limit.
	Timeout time.Duration

	// CanonicalOnly requires partial assignments to conform to a canonical
	// (non-redundant) solution structure.
	CanonicalOnly bool

	// SectionInference prunes partial solutions in which the lower bound of
	// some section height eclipses the memory capacity.
	SectionInference bool

	// DynamicOrdering prefers buffers with smaller viable offset values,
	// breaking ties by preorder index.
	DynamicOrdering bool

	// CheckDominance prunes partial solutions that leave gaps where
	// unallocated buffers could easily be placed.
	CheckDominance bool

	// UnallocatedFloor uses the minimum offsets of unallocated buffers to
	// establish stronger lower bounds on each section's floor.
	UnallocatedFloor bool

	// StaticPreordering sorts each partition's buffers up front using the
	// active preordering heuristic.
	StaticPreordering bool

	// DynamicDecomposition re-partitions the remaining buffers whenever a
	// placement leaves a zero-cut section boundary.
	DynamicDecomposition bool

	// MonotonicFloor requires the floor of the entire solution to increase
	// monotonically.
	MonotonicFloor bool

	// HatlessPruning abandons alternate placements whenever a buffer has
	// nothing overhead.
	HatlessPruning bool

	// MinimizeCapacity binary-searches the smallest feasible capacity
	// instead of solving at the problem's stated capacity.
	MinimizeCapacity bool

	// PreorderingHeuristics lists the static preordering heuristics to
	// attempt. More than one entry engages the round robin.
	PreorderingHeuristics []string
}

// DefaultParams returns the parameter set users should normally run with:
// every technique enabled and three preordering heuristics raced.
func DefaultParams() Params {
	return Params{
		CanonicalOnly:         true,
		SectionInference:      true,
		DynamicOrdering:       true,
		CheckDominance:        true,
		UnallocatedFloor:      true,
		StaticPreordering:     true,
		DynamicDecomposition:  true,
		MonotonicFloor:        true,
		HatlessPruning:        true,
		PreorderingHeuristics: []string{"WAT", "TAW", "TWA"},
	}
}
