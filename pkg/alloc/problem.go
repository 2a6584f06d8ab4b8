package alloc

import (
	"errors"
	"fmt"
)

// ErrNoOffset is returned by StripSolution when a buffer has no assigned
// offset to extract.
var ErrNoOffset = errors.New("buffer found with no offset")

// Solution assigns an offset to every buffer of a problem, in buffer order.
// Height is the maximum offset+size over all buffers.
type Solution struct {
	Offsets []Offset
	Height  Offset
}

// Problem is a set of buffers to be packed into a contiguous address space
// of the given capacity. No buffer may be assigned an offset such that
// offset+size exceeds the capacity.
type Problem struct {
	Buffers  []Buffer
	Capacity Capacity
}

// StripSolution extracts a solution from the offset of each buffer,
// clearing the offsets as it goes. It fails with ErrNoOffset when any
// buffer has none.
func (p *Problem) StripSolution() (Solution, error) {
	solution := Solution{Offsets: make([]Offset, 0, len(p.Buffers))}

	for i := range p.Buffers {
		buffer := &p.Buffers[i]
		if buffer.Offset == nil {
			return Solution{}, fmt.Errorf("buffer %q: %w", buffer.ID, ErrNoOffset)
		}

		solution.Offsets = append(solution.Offsets, *buffer.Offset)
		buffer.Offset = nil
	}

	return solution, nil
}
