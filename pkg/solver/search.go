package solver

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"sort"
	"sync/atomic"
	"time"

	"github.com/Sumatoshi-tech/memfit/pkg/alloc"
	"github.com/Sumatoshi-tech/memfit/pkg/sweep"
)

// noOffset marks a buffer as unassigned in the working assignment.
const noOffset alloc.Offset = -1

// sectionData is incrementally maintained per section during search.
type sectionData struct {
	floor alloc.Offset // The lowest viable offset for any buffer here.
	total int64        // Sum of the unallocated buffer sizes here.
}

// orderData is one entry of the dynamic candidate ordering.
type orderData struct {
	offset      alloc.Offset
	preorderIdx int
}

// offsetChange records a buffer's minimum offset prior to a change, so the
// change can be undone in reverse on unwind.
type offsetChange struct {
	bufferIdx alloc.BufferIdx
	minOffset alloc.Offset
}

// sectionChange records a section's floor prior to a change.
type sectionChange struct {
	sectionIdx sweep.SectionIdx
	floor      alloc.Offset
}

// searchState owns all mutable state of a single solve over one sweep
// result. Change logs are scoped to a recursion frame and replayed in
// reverse on every exit path, so sibling nodes always observe an unmodified
// view.
type searchState struct {
	ctx         context.Context
	params      *Params
	logger      *slog.Logger
	startTime   time.Time
	problem     *alloc.Problem
	sweepResult *sweep.SweepResult
	backtracks  *int64
	cancelled   *atomic.Bool

	assignment     []alloc.Offset
	solution       alloc.Solution
	minOffsets     []alloc.Offset
	sectionData    []sectionData
	cuts           []sweep.CutCount
	nodesRemaining int64
}

func newSearchState(
	ctx context.Context,
	params *Params,
	logger *slog.Logger,
	startTime time.Time,
	problem *alloc.Problem,
	sweepResult *sweep.SweepResult,
	backtracks *int64,
	cancelled *atomic.Bool,
) *searchState {
	return &searchState{
		ctx:            ctx,
		params:         params,
		logger:         logger,
		startTime:      startTime,
		problem:        problem,
		sweepResult:    sweepResult,
		backtracks:     backtracks,
		cancelled:      cancelled,
		nodesRemaining: math.MaxInt64,
	}
}

// solve prepares the global search state and dispatches to either a single
// heuristic or the round robin.
func (s *searchState) solve() (alloc.Solution, error) {
	if len(s.problem.Buffers) == 0 {
		return s.solution, nil
	}

	numBuffers := len(s.problem.Buffers)
	s.assignment = make([]alloc.Offset, numBuffers)
	s.solution.Offsets = make([]alloc.Offset, numBuffers)
	s.minOffsets = make([]alloc.Offset, numBuffers)
	s.sectionData = make([]sectionData, len(s.sweepResult.Sections))

	for bufferIdx := range numBuffers {
		s.assignment[bufferIdx] = noOffset
		s.solution.Offsets[bufferIdx] = noOffset

		bufferData := &s.sweepResult.BufferData[bufferIdx]
		for _, span := range bufferData.SectionSpans {
			for sectionIdx := span.SectionRange.Lower; sectionIdx < span.SectionRange.Upper; sectionIdx++ {
				s.sectionData[sectionIdx].total += span.Window.Width()
			}
		}

		if buffer := &s.problem.Buffers[bufferIdx]; buffer.Offset != nil {
			s.minOffsets[bufferIdx] = *buffer.Offset
		}
	}

	s.cuts = s.sweepResult.CalculateCuts()

	// Multiple heuristics race in a node-budgeted round robin.
	if len(s.params.PreorderingHeuristics) > 1 {
		return s.roundRobin()
	}

	heuristic := defaultHeuristic
	if len(s.params.PreorderingHeuristics) == 1 {
		heuristic = s.params.PreorderingHeuristics[0]
	}

	comparator := NewComparator(heuristic)

	for i := range s.sweepResult.Partitions {
		if err := s.subSolve(&s.sweepResult.Partitions[i], comparator); err != nil {
			return alloc.Solution{}, err
		}
	}

	s.updateSolutionHeight()

	return s.solution, nil
}

// defaultHeuristic applies when the parameter list names none.
const defaultHeuristic = "WAT"

// roundRobin races the configured heuristics under a per-round node budget,
// doubling the budget whenever every heuristic exhausts it. The first
// heuristic to solve all partitions within budget wins; non-budget errors
// surface immediately.
func (s *searchState) roundRobin() (alloc.Solution, error) {
	nodeLimit := int64(len(s.problem.Buffers))

	for {
		nodeLimit *= 2

		var err error

		for _, heuristic := range s.params.PreorderingHeuristics {
			comparator := NewComparator(heuristic)
			s.nodesRemaining = nodeLimit
			err = nil

			s.logger.Debug("round robin attempt",
				slog.String("heuristic", heuristic), slog.Int64("node_limit", nodeLimit))

			for i := range s.sweepResult.Partitions {
				err = s.subSolve(&s.sweepResult.Partitions[i], comparator)
				if err != nil {
					break
				}
			}

			if err == nil {
				s.logger.Debug("round robin solved",
					slog.String("heuristic", heuristic),
					slog.Int64("nodes_visited", nodeLimit-s.nodesRemaining))

				break
			}

			// Budget exhaustion moves on to the next heuristic; any other
			// failure is final.
			if !errors.Is(err, errAborted) {
				return alloc.Solution{}, err
			}
		}

		if err == nil {
			break
		}
	}

	s.updateSolutionHeight()

	return s.solution, nil
}

// subSolve builds the preordering for one partition and enters the
// recursive search.
func (s *searchState) subSolve(partition *sweep.Partition, comparator Comparator) error {
	preordering := make([]PreorderData, 0, len(partition.BufferIdxs))

	for _, bufferIdx := range partition.BufferIdxs {
		buffer := &s.problem.Buffers[bufferIdx]
		bufferData := &s.sweepResult.BufferData[bufferIdx]
		spans := bufferData.SectionSpans

		var total int64

		for _, span := range spans {
			for sectionIdx := span.SectionRange.Lower; sectionIdx < span.SectionRange.Upper; sectionIdx++ {
				total = max(total, s.sectionData[sectionIdx].total)
			}
		}

		sections := spans[len(spans)-1].SectionRange.Upper - spans[0].SectionRange.Lower

		preordering = append(preordering, PreorderData{
			Area:      buffer.Area(),
			Lower:     buffer.Lifespan.Lower,
			Overlaps:  len(bufferData.Overlaps),
			Sections:  sections,
			Size:      buffer.Size,
			Total:     total,
			Upper:     buffer.Lifespan.Upper,
			Width:     buffer.Lifespan.Width(),
			BufferIdx: bufferIdx,
		})
	}

	if s.params.StaticPreordering {
		sort.Slice(preordering, func(i, j int) bool {
			return comparator.Less(&preordering[i], &preordering[j])
		})
	}

	ordering := make([]orderData, len(preordering))
	for idx := range ordering {
		ordering[idx].preorderIdx = idx
	}

	return s.search(partition, comparator, preordering, ordering, 0, 0)
}

// computeOrdering drops assigned buffers from the previous ordering,
// refreshes each entry's offset from the current minimum offsets, and
// optionally re-sorts by (offset, preorder index).
func (s *searchState) computeOrdering(
	preordering []PreorderData, origOrdering []orderData,
) []orderData {
	ordering := make([]orderData, 0, len(origOrdering))

	for _, entry := range origOrdering {
		bufferIdx := preordering[entry.preorderIdx].BufferIdx
		if s.assignment[bufferIdx] != noOffset {
			continue
		}

		ordering = append(ordering, orderData{
			offset:      s.minOffsets[bufferIdx],
			preorderIdx: entry.preorderIdx,
		})
	}

	if s.params.DynamicOrdering {
		sort.Slice(ordering, func(i, j int) bool {
			if ordering[i].offset != ordering[j].offset {
				return ordering[i].offset < ordering[j].offset
			}

			return ordering[i].preorderIdx < ordering[j].preorderIdx
		})
	}

	return ordering
}

// calcMinHeight determines the minimum height any unallocated buffer would
// attain at its current minimum offset. No other buffer should be assigned
// an offset at this value or greater.
func (s *searchState) calcMinHeight(preordering []PreorderData, ordering []orderData) alloc.Offset {
	minHeight := alloc.Offset(math.MaxInt64)

	for _, entry := range ordering {
		bufferIdx := preordering[entry.preorderIdx].BufferIdx
		minHeight = min(minHeight, entry.offset+s.problem.Buffers[bufferIdx].Size)
	}

	return minHeight
}

// updateMinOffsets bumps the minimum offsets of every unassigned buffer
// overlapping bufferIdx, rounding up to each neighbor's alignment. It
// reports the change log, whether the buffer is hatless (no unassigned
// neighbor above), and whether a neighbor's fixed offset became
// unsatisfiable.
func (s *searchState) updateMinOffsets(
	bufferIdx alloc.BufferIdx, affectedSections map[sweep.SectionIdx]struct{},
) (changes []offsetChange, hatless, fixedOffsetFailure bool) {
	hatless = true
	offset := s.assignment[bufferIdx]

	for _, overlap := range s.sweepResult.BufferData[bufferIdx].Overlaps {
		otherIdx := overlap.BufferIdx
		if s.assignment[otherIdx] != noOffset {
			continue
		}

		hatless = false

		height := offset + overlap.EffectiveSize
		if s.minOffsets[otherIdx] >= height {
			continue
		}

		changes = append(changes, offsetChange{bufferIdx: otherIdx, minOffset: s.minOffsets[otherIdx]})
		s.minOffsets[otherIdx] = height

		otherBuffer := &s.problem.Buffers[otherIdx]
		if otherBuffer.Alignment > 1 {
			if diff := s.minOffsets[otherIdx] % otherBuffer.Alignment; diff > 0 {
				s.minOffsets[otherIdx] += otherBuffer.Alignment - diff
			}
		}

		if otherBuffer.Offset != nil && s.minOffsets[otherIdx] > *otherBuffer.Offset {
			fixedOffsetFailure = true
		}

		if !s.params.UnallocatedFloor {
			continue
		}

		for _, span := range s.sweepResult.BufferData[otherIdx].SectionSpans {
			for sectionIdx := span.SectionRange.Lower; sectionIdx < span.SectionRange.Upper; sectionIdx++ {
				affectedSections[sectionIdx] = struct{}{}
			}
		}
	}

	return changes, hatless, fixedOffsetFailure
}

// restoreMinOffsets replays the change log in reverse.
func (s *searchState) restoreMinOffsets(changes []offsetChange) {
	for i := len(changes) - 1; i >= 0; i-- {
		s.minOffsets[changes[i].bufferIdx] = changes[i].minOffset
	}
}

// updateSectionData raises the floor and lowers the remaining total of
// every section bufferIdx occupies, then raises the floors of affected
// sections to the lowest minimum offset among their unassigned buffers.
func (s *searchState) updateSectionData(
	affectedSections map[sweep.SectionIdx]struct{}, bufferIdx alloc.BufferIdx,
) []sectionChange {
	var changes []sectionChange

	offset := s.assignment[bufferIdx]

	for _, span := range s.sweepResult.BufferData[bufferIdx].SectionSpans {
		height := offset + span.Window.Upper

		for sectionIdx := span.SectionRange.Lower; sectionIdx < span.SectionRange.Upper; sectionIdx++ {
			changes = append(changes, sectionChange{sectionIdx: sectionIdx, floor: s.sectionData[sectionIdx].floor})
			s.sectionData[sectionIdx].floor = height
			s.sectionData[sectionIdx].total -= span.Window.Width()
		}
	}

	// No section's floor may sit below the lowest minimum offset among its
	// unassigned buffers.
	for sectionIdx := range affectedSections {
		minOffset := alloc.Offset(math.MaxInt64)

		for otherIdx := range s.sweepResult.Sections[sectionIdx] {
			if s.assignment[otherIdx] == noOffset {
				minOffset = min(minOffset, s.minOffsets[otherIdx])
			}
		}

		if minOffset != math.MaxInt64 && s.sectionData[sectionIdx].floor < minOffset {
			changes = append(changes, sectionChange{sectionIdx: sectionIdx, floor: s.sectionData[sectionIdx].floor})
			s.sectionData[sectionIdx].floor = minOffset
		}
	}

	return changes
}

// restoreSectionData replays the floor change log in reverse, then reverses
// the total decrements.
func (s *searchState) restoreSectionData(changes []sectionChange, bufferIdx alloc.BufferIdx) {
	for i := len(changes) - 1; i >= 0; i-- {
		s.sectionData[changes[i].sectionIdx].floor = changes[i].floor
	}

	for _, span := range s.sweepResult.BufferData[bufferIdx].SectionSpans {
		for sectionIdx := span.SectionRange.Lower; sectionIdx < span.SectionRange.Upper; sectionIdx++ {
			s.sectionData[sectionIdx].total += span.Window.Width()
		}
	}
}

// check reports whether the partial solution passes the per-section
// consistency and inference bounds against capacity.
func (s *searchState) check(partition *sweep.Partition, offset alloc.Offset) bool {
	for sectionIdx := partition.SectionRange.Lower; sectionIdx < partition.SectionRange.Upper; sectionIdx++ {
		floor := s.sectionData[sectionIdx].floor
		if s.params.MonotonicFloor {
			floor = max(floor, offset)
		}

		if s.params.SectionInference {
			floor += s.sectionData[sectionIdx].total
		}

		if s.problem.Capacity < floor {
			return false
		}
	}

	return true
}

// deadlineExceeded reports whether the wallclock budget has run out or the
// search was cancelled.
func (s *searchState) deadlineExceeded() bool {
	if s.cancelled.Load() || s.ctx.Err() != nil {
		return true
	}

	return s.params.Timeout > 0 && time.Since(s.startTime) > s.params.Timeout
}

// search is the recursive depth-first branch-and-bound. It returns nil once
// a feasible assignment of the partition has been committed, ErrNoSolution
// when the subtree is exhausted, ErrDeadlineExceeded on timeout or
// cancellation, and errAborted when the round-robin node budget runs out.
func (s *searchState) search(
	partition *sweep.Partition,
	comparator Comparator,
	preordering []PreorderData,
	origOrdering []orderData,
	minOffset alloc.Offset,
	minPreorderIdx int,
) error {
	if s.nodesRemaining <= 0 {
		return errAborted
	}

	s.nodesRemaining--

	if s.deadlineExceeded() {
		return ErrDeadlineExceeded
	}

	ordering := s.computeOrdering(preordering, origOrdering)
	if len(ordering) == 0 {
		// A leaf: record offsets for every buffer in this partition.
		for _, bufferIdx := range partition.BufferIdxs {
			s.solution.Offsets[bufferIdx] = s.assignment[bufferIdx]
		}

		return nil
	}

	minHeight := s.calcMinHeight(preordering, ordering)

	for _, entry := range ordering {
		offset, preorderIdx := entry.offset, entry.preorderIdx
		bufferIdx := preordering[preorderIdx].BufferIdx

		if s.params.CanonicalOnly {
			// Canonical solutions place buffers by non-decreasing offset,
			// breaking ties by preorder index.
			if offset < minOffset || (offset == minOffset && preorderIdx < minPreorderIdx) {
				continue
			}
		}

		if s.params.CheckDominance && offset >= minHeight {
			continue
		}

		buffer := &s.problem.Buffers[bufferIdx]
		if buffer.Offset != nil && offset > *buffer.Offset {
			continue
		}

		// A hint acts as a soft ceiling on this buffer's own candidates.
		if buffer.Hint != nil && offset > *buffer.Hint {
			continue
		}

		s.assignment[bufferIdx] = offset

		affectedSections := map[sweep.SectionIdx]struct{}{}
		offsetChanges, hatless, fixedOffsetFailure := s.updateMinOffsets(bufferIdx, affectedSections)
		sectionChanges := s.updateSectionData(affectedSections, bufferIdx)

		err := ErrNoSolution
		if !fixedOffsetFailure && s.check(partition, offset) {
			if s.params.DynamicDecomposition {
				err = s.dynamicallyDecompose(
					partition, comparator, preordering, ordering, offset, preorderIdx, bufferIdx)
			} else {
				err = s.search(partition, comparator, preordering, ordering, offset, preorderIdx)
			}
		}

		s.restoreSectionData(sectionChanges, bufferIdx)
		s.restoreMinOffsets(offsetChanges)
		s.assignment[bufferIdx] = noOffset

		// Anything other than continued infeasibility ends this node: a
		// feasible solution, a deadline, or an exhausted budget.
		if !errors.Is(err, ErrNoSolution) {
			return err
		}

		if hatless && s.params.HatlessPruning {
			break
		}
	}

	*s.backtracks++

	return ErrNoSolution
}

// dynamicallyDecompose commits the placed buffer, then looks for zero-cut
// section boundaries inside its span. Each zero-cut boundary splits the
// remaining unassigned buffers into sub-partitions that are solved
// independently; with no split, the search simply recurses.
func (s *searchState) dynamicallyDecompose(
	partition *sweep.Partition,
	comparator Comparator,
	preordering []PreorderData,
	origOrdering []orderData,
	minOffset alloc.Offset,
	minPreorderIdx int,
	bufferIdx alloc.BufferIdx,
) error {
	s.solution.Offsets[bufferIdx] = s.assignment[bufferIdx]

	spans := s.sweepResult.BufferData[bufferIdx].SectionSpans
	first := spans[0].SectionRange.Lower
	last := spans[len(spans)-1].SectionRange.Upper

	cutpoints := []sweep.SectionIdx{partition.SectionRange.Lower}

	for sectionIdx := first; sectionIdx+1 < last; sectionIdx++ {
		s.cuts[sectionIdx]--
		if s.cuts[sectionIdx] == 0 {
			cutpoints = append(cutpoints, sectionIdx+1)
		}
	}

	var err error

	if len(cutpoints) == 1 {
		err = s.search(partition, comparator, preordering, origOrdering, minOffset, minPreorderIdx)
	} else {
		cutpoints = append(cutpoints, partition.SectionRange.Upper)
		err = s.solveSubPartitions(partition, comparator, cutpoints)
	}

	for sectionIdx := first; sectionIdx+1 < last; sectionIdx++ {
		s.cuts[sectionIdx]++
	}

	return err
}

// solveSubPartitions splits the unassigned buffers of a partition at the
// given cutpoints and solves each resulting sub-partition in order.
func (s *searchState) solveSubPartitions(
	partition *sweep.Partition, comparator Comparator, cutpoints []sweep.SectionIdx,
) error {
	for cutIdx := 1; cutIdx < len(cutpoints); cutIdx++ {
		sectionRange := sweep.SectionRange{Lower: cutpoints[cutIdx-1], Upper: cutpoints[cutIdx]}

		var bufferIdxs []alloc.BufferIdx

		for _, otherIdx := range partition.BufferIdxs {
			if s.assignment[otherIdx] != noOffset {
				continue
			}

			otherSpans := s.sweepResult.BufferData[otherIdx].SectionSpans
			otherRange := sweep.SectionRange{
				Lower: otherSpans[0].SectionRange.Lower,
				Upper: otherSpans[len(otherSpans)-1].SectionRange.Upper,
			}

			if otherRange.Overlaps(sectionRange) {
				bufferIdxs = append(bufferIdxs, otherIdx)
			}
		}

		if len(bufferIdxs) == 0 {
			continue
		}

		subPartition := sweep.Partition{BufferIdxs: bufferIdxs, SectionRange: sectionRange}
		if err := s.subSolve(&subPartition, comparator); err != nil {
			return err
		}
	}

	return nil
}

// updateSolutionHeight sweeps the committed offsets to find the final
// height of the allocation.
func (s *searchState) updateSolutionHeight() {
	for bufferIdx := range s.problem.Buffers {
		height := s.solution.Offsets[bufferIdx] + s.problem.Buffers[bufferIdx].Size
		s.solution.Height = max(s.solution.Height, height)
	}
}
