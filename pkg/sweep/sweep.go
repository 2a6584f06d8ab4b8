// Package sweep discretizes an allocation problem in time. It converts a
// problem into a section decomposition: a linear sequence of sections
// (maximal time intervals during which the set of live buffers is constant),
// a partition of the buffers into independently solvable groups, and
// per-buffer section spans and pairwise overlap sets. The solver consumes
// this structure when propagating offset updates during its search.
package sweep

import (
	"maps"
	"sort"

	"github.com/Sumatoshi-tech/memfit/pkg/alloc"
)

// SectionIdx is an index into a list of schedule cross-sections.
type SectionIdx = int

// CutCount counts buffers crossing between adjacent sections.
type CutCount = int

// SectionRange is a half-open interval of section indices.
type SectionRange = alloc.Interval[SectionIdx]

// SectionSpan is one contiguous stretch of sections during which a buffer
// is active, together with the window it occupies for its duration.
type SectionSpan struct {
	SectionRange SectionRange
	Window       alloc.Window
}

// Section is the set of buffers live during one cross-section of the
// schedule.
type Section map[alloc.BufferIdx]struct{}

// Partition groups a subset of a problem's buffers together with the
// half-open range of sections they span. Partitions are mutually exclusive
// and never overlap in time, so each may be solved independently.
type Partition struct {
	BufferIdxs   []alloc.BufferIdx
	SectionRange SectionRange
}

// Overlap records that another buffer shares active time with this one, and
// the minimum offset delta it must keep when stacked directly above.
type Overlap struct {
	BufferIdx     alloc.BufferIdx
	EffectiveSize int64
}

// BufferData holds the preprocessed per-buffer attributes: an exhaustive
// list of the section ranges the buffer participates in (gaps create
// multiple spans) and the set of buffers it overlaps in time.
type BufferData struct {
	SectionSpans []SectionSpan
	Overlaps     []Overlap
}

// SweepResult is the full section decomposition of a problem. It is
// constructed once per solve and read-only afterwards.
type SweepResult struct {
	Sections   []Section
	Partitions []Partition
	BufferData []BufferData
}

// PointType distinguishes the two kinds of sweep events. Right events sort
// before Left events at the same time, so half-open lifespans that touch at
// an endpoint never share a section.
type PointType int

// Sweep event kinds.
const (
	Right PointType = iota
	Left
)

// Point marks one edge at which a buffer's activity or occupied window
// changes. The outermost two points of each buffer carry Endpoint: they
// bound its membership in a partition.
type Point struct {
	BufferIdx alloc.BufferIdx
	TimeValue alloc.TimeValue
	PointType PointType
	Window    alloc.Window
	Endpoint  bool
}

// less orders points by time, then direction (right before left), then
// buffer index.
func (p Point) less(other Point) bool {
	if p.TimeValue != other.TimeValue {
		return p.TimeValue < other.TimeValue
	}

	if p.PointType != other.PointType {
		return p.PointType < other.PointType
	}

	return p.BufferIdx < other.BufferIdx
}

// CreatePoints places every start and end time of every buffer into a list
// sorted by time value, then point type, then buffer index. For a buffer
// with gaps there are up to six points of interest:
//
//	A        BC       DE        F
//	          |-------|
//	|--------||  gap  ||--------|
//	          |-------|
//
// Point A need not be created when it coincides with B, points C and D only
// exist when the gap carries a window, and so on.
func CreatePoints(problem *alloc.Problem) []Point {
	allPoints := make([]Point, 0, 2*len(problem.Buffers))

	for bufferIdx := range problem.Buffers {
		buffer := &problem.Buffers[bufferIdx]
		lifespan := buffer.Lifespan
		window := alloc.Window{Lower: 0, Upper: buffer.Size}

		var points []Point

		leftTimes := map[alloc.TimeValue]struct{}{}
		rightTimes := map[alloc.TimeValue]struct{}{}

		// Left and right points for all windowed gaps.
		for _, gap := range buffer.Gaps {
			if gap.Window == nil {
				continue
			}

			points = append(points,
				Point{bufferIdx, gap.Lifespan.Lower, Left, *gap.Window, false},
				Point{bufferIdx, gap.Lifespan.Upper, Right, *gap.Window, false})
			leftTimes[gap.Lifespan.Lower] = struct{}{}
			rightTimes[gap.Lifespan.Upper] = struct{}{}
		}

		// If needed, new points for the buffer's own start and end times.
		if len(points) == 0 || points[0].TimeValue != lifespan.Lower {
			points = append([]Point{{bufferIdx, lifespan.Lower, Left, window, false}}, points...)
		}

		if last := &points[len(points)-1]; last.TimeValue != lifespan.Upper {
			points = append(points, Point{bufferIdx, lifespan.Upper, Right, window, false})
		}

		// The outermost two points bound this buffer's partition membership.
		points[0].Endpoint = true
		points[len(points)-1].Endpoint = true
		rightTimes[lifespan.Lower] = struct{}{}
		leftTimes[lifespan.Upper] = struct{}{}

		// Left and right points for all non-windowed gaps.
		for _, gap := range buffer.Gaps {
			if gap.Window != nil {
				continue
			}

			if _, ok := rightTimes[gap.Lifespan.Lower]; !ok {
				points = append(points, Point{bufferIdx, gap.Lifespan.Lower, Right, window, false})
				rightTimes[gap.Lifespan.Lower] = struct{}{}
			}

			if _, ok := leftTimes[gap.Lifespan.Upper]; !ok {
				points = append(points, Point{bufferIdx, gap.Lifespan.Upper, Left, window, false})
				leftTimes[gap.Lifespan.Upper] = struct{}{}
			}

			leftTimes[gap.Lifespan.Lower] = struct{}{}
			rightTimes[gap.Lifespan.Upper] = struct{}{}
		}

		// Left and right points for any implicitly active buffer stretches.
		for _, gap := range buffer.Gaps {
			if _, ok := rightTimes[gap.Lifespan.Lower]; !ok {
				points = append(points, Point{bufferIdx, gap.Lifespan.Lower, Right, window, false})
			}

			if _, ok := leftTimes[gap.Lifespan.Upper]; !ok {
				points = append(points, Point{bufferIdx, gap.Lifespan.Upper, Left, window, false})
			}
		}

		allPoints = append(allPoints, points...)
	}

	sort.Slice(allPoints, func(i, j int) bool { return allPoints[i].less(allPoints[j]) })

	return allPoints
}

// Sweep processes all sweep points in order, maintaining an "actives" set
// (buffers occupying the current section) and an "alive" set (buffers whose
// outermost endpoints have not yet both fired). Whenever the alive set
// drains, the current partition closes. Overlap entries are recorded in
// both directions when a buffer's left endpoint fires against every buffer
// still alive.
func Sweep(problem *alloc.Problem) *SweepResult {
	numBuffers := len(problem.Buffers)
	points := CreatePoints(problem)
	result := &SweepResult{BufferData: make([]BufferData, numBuffers)}

	actives := Section{}
	alive := Section{}

	var (
		started         bool
		lastSectionTime alloc.TimeValue
	)

	lastSectionIdx := SectionIdx(0)
	sectionStart := make([]SectionIdx, numBuffers)

	for _, point := range points {
		bufferIdx := point.BufferIdx

		if !started {
			started = true
			lastSectionTime = point.TimeValue
		}

		if point.PointType == Right {
			// Snapshot a new cross-section if time has advanced.
			if lastSectionTime < point.TimeValue {
				lastSectionTime = point.TimeValue
				result.Sections = append(result.Sections, maps.Clone(actives))
			}

			delete(actives, bufferIdx)

			if point.Endpoint {
				delete(alive, bufferIdx)
			}

			span := SectionSpan{
				SectionRange: SectionRange{Lower: sectionStart[bufferIdx], Upper: len(result.Sections)},
				Window:       point.Window,
			}
			result.BufferData[bufferIdx].SectionSpans = append(
				result.BufferData[bufferIdx].SectionSpans, span)

			// Once the alives drain, the span of this partition is known.
			if point.Endpoint && len(alive) == 0 {
				result.Partitions[len(result.Partitions)-1].SectionRange =
					SectionRange{Lower: lastSectionIdx, Upper: len(result.Sections)}
				lastSectionIdx = len(result.Sections)
			}
		}

		if point.PointType == Left {
			if len(alive) == 0 {
				result.Partitions = append(result.Partitions, Partition{})
			}

			if point.Endpoint {
				partition := &result.Partitions[len(result.Partitions)-1]
				partition.BufferIdxs = append(partition.BufferIdxs, bufferIdx)
				buffer := &problem.Buffers[bufferIdx]

				for aliveIdx := range alive {
					aliveBuffer := &problem.Buffers[aliveIdx]

					if size, ok := aliveBuffer.EffectiveSize(buffer); ok {
						result.BufferData[aliveIdx].Overlaps = append(
							result.BufferData[aliveIdx].Overlaps, Overlap{bufferIdx, size})
					}

					if size, ok := buffer.EffectiveSize(aliveBuffer); ok {
						result.BufferData[bufferIdx].Overlaps = append(
							result.BufferData[bufferIdx].Overlaps, Overlap{aliveIdx, size})
					}
				}

				alive[bufferIdx] = struct{}{}
			}

			actives[bufferIdx] = struct{}{}
			sectionStart[bufferIdx] = len(result.Sections)
		}
	}

	for i := range result.BufferData {
		sortOverlaps(result.BufferData[i].Overlaps)
	}

	return result
}

// sortOverlaps orders overlap entries by buffer index, then effective size,
// for deterministic iteration during search.
func sortOverlaps(overlaps []Overlap) {
	sort.Slice(overlaps, func(i, j int) bool {
		if overlaps[i].BufferIdx != overlaps[j].BufferIdx {
			return overlaps[i].BufferIdx < overlaps[j].BufferIdx
		}

		return overlaps[i].EffectiveSize < overlaps[j].EffectiveSize
	})
}

// CalculateCuts returns a vector of length len(Sections)-1 whose ith
// element counts the buffers whose overall section range (from the start
// of their first span to the end of their last, gaps included) covers both
// section i and section i+1. Zero cuts between sections i and i+1 imply
// the two sides may be solved separately.
func (r *SweepResult) CalculateCuts() []CutCount {
	if len(r.Sections) == 0 {
		return nil
	}

	cuts := make([]CutCount, len(r.Sections)-1)

	for _, bufferData := range r.BufferData {
		spans := bufferData.SectionSpans
		if len(spans) == 0 {
			continue
		}

		first := spans[0].SectionRange.Lower
		last := spans[len(spans)-1].SectionRange.Upper

		for sectionIdx := first; sectionIdx+1 < last; sectionIdx++ {
			cuts[sectionIdx]++
		}
	}

	return cuts
}
