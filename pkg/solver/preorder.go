package solver

import "github.com/Sumatoshi-tech/memfit/pkg/alloc"

// PreorderData carries the per-buffer sort keys available to preordering
// heuristics.
type PreorderData struct {
	Area      alloc.Area      // Space x time consumed by this buffer.
	Lower     alloc.TimeValue // When the buffer starts.
	Overlaps  int             // Number of pairwise overlaps with other buffers.
	Sections  int             // Number of sections spanned by this buffer.
	Size      int64           // The size of the buffer.
	Total     int64           // The maximum section total among its sections.
	Upper     alloc.TimeValue // When the buffer ends.
	Width     int64           // The width of the buffer's lifespan.
	BufferIdx alloc.BufferIdx // Index into the problem's buffer list.
}

// Comparator is a composable total order on PreorderData, parameterized by
// a heuristic string. Each letter selects one sort key with descending
// priority: A=area, C=sections, L=lower, O=overlaps, T=total, U=upper,
// W=width, Z=size. Ties across all letters break by ascending buffer index.
type Comparator struct {
	heuristic string
}

// NewComparator builds a comparator from a heuristic string such as "WAT".
func NewComparator(heuristic string) Comparator {
	return Comparator{heuristic: heuristic}
}

// String returns the comparator's heuristic string.
func (c Comparator) String() string {
	return c.heuristic
}

// Less reports whether a orders before b. Every selected key compares
// descending.
func (c Comparator) Less(a, b *PreorderData) bool {
	for _, key := range c.heuristic {
		switch key {
		case 'A':
			if a.Area != b.Area {
				return a.Area > b.Area
			}
		case 'C':
			if a.Sections != b.Sections {
				return a.Sections > b.Sections
			}
		case 'L':
			if a.Lower != b.Lower {
				return a.Lower > b.Lower
			}
		case 'O':
			if a.Overlaps != b.Overlaps {
				return a.Overlaps > b.Overlaps
			}
		case 'T':
			if a.Total != b.Total {
				return a.Total > b.Total
			}
		case 'U':
			if a.Upper != b.Upper {
				return a.Upper > b.Upper
			}
		case 'W':
			if a.Width != b.Width {
				return a.Width > b.Width
			}
		case 'Z':
			if a.Size != b.Size {
				return a.Size > b.Size
			}
		}
	}

	return a.BufferIdx < b.BufferIdx
}
