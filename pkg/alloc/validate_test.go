package alloc

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidate_GoodSolution(t *testing.T) {
	t.Parallel()

	problem := Problem{
		Buffers: []Buffer{
			{Lifespan: Lifespan{Lower: 0, Upper: 1}, Size: 2},
			{Lifespan: Lifespan{Lower: 1, Upper: 3}, Size: 1},
			{Lifespan: Lifespan{Lower: 2, Upper: 4}, Size: 1},
			{Lifespan: Lifespan{Lower: 3, Upper: 5}, Size: 1},
		},
		Capacity: 2,
	}
	solution := Solution{Offsets: []Offset{0, 0, 1, 0}, Height: 2}

	assert.Equal(t, Good, Validate(&problem, &solution))
}

func TestValidate_GoodSolutionWithGaps(t *testing.T) {
	t.Parallel()

	problem := Problem{
		Buffers: []Buffer{
			{Lifespan: Lifespan{Lower: 0, Upper: 10}, Size: 2, Gaps: []Gap{{Lifespan: Lifespan{Lower: 1, Upper: 9}}}},
			{Lifespan: Lifespan{Lower: 5, Upper: 15}, Size: 2, Gaps: []Gap{{Lifespan: Lifespan{Lower: 6, Upper: 14}}}},
		},
		Capacity: 2,
	}
	solution := Solution{Offsets: []Offset{0, 0}, Height: 2}

	assert.Equal(t, Good, Validate(&problem, &solution))
}

func TestValidate_GoodSolutionWithGapsEdgeCase(t *testing.T) {
	t.Parallel()

	problem := Problem{
		Buffers: []Buffer{
			{Lifespan: Lifespan{Lower: 0, Upper: 10}, Size: 2, Gaps: []Gap{{Lifespan: Lifespan{Lower: 1, Upper: 8}}}},
			{Lifespan: Lifespan{Lower: 5, Upper: 15}, Size: 2, Gaps: []Gap{{Lifespan: Lifespan{Lower: 8, Upper: 14}}}},
		},
		Capacity: 2,
	}
	solution := Solution{Offsets: []Offset{0, 0}, Height: 2}

	assert.Equal(t, Good, Validate(&problem, &solution))
}

func TestValidate_Tetris(t *testing.T) {
	t.Parallel()

	problem := Problem{
		Buffers: []Buffer{
			{
				Lifespan: Lifespan{Lower: 0, Upper: 10},
				Size:     2,
				Gaps: []Gap{
					{Lifespan: Lifespan{Lower: 0, Upper: 5}, Window: &Window{Lower: 0, Upper: 1}},
				},
			},
			{
				Lifespan: Lifespan{Lower: 0, Upper: 10},
				Size:     2,
				Gaps: []Gap{
					{Lifespan: Lifespan{Lower: 5, Upper: 10}, Window: &Window{Lower: 1, Upper: 2}},
				},
			},
		},
		Capacity: 3,
	}
	solution := Solution{Offsets: []Offset{0, 1}, Height: 3}

	assert.Equal(t, Good, Validate(&problem, &solution))
}

func TestValidate_WrongOffsetCount(t *testing.T) {
	t.Parallel()

	problem := Problem{
		Buffers: []Buffer{
			{Lifespan: Lifespan{Lower: 0, Upper: 1}, Size: 2},
			{Lifespan: Lifespan{Lower: 1, Upper: 2}, Size: 1},
			{Lifespan: Lifespan{Lower: 1, Upper: 2}, Size: 1},
		},
		Capacity: 2,
	}
	solution := Solution{Offsets: []Offset{0, 0}, Height: 2}

	assert.Equal(t, BadSolution, Validate(&problem, &solution))
}

func TestValidate_FixedOffsetViolated(t *testing.T) {
	t.Parallel()

	problem := Problem{
		Buffers: []Buffer{
			{Lifespan: Lifespan{Lower: 0, Upper: 1}, Size: 2},
			{Lifespan: Lifespan{Lower: 1, Upper: 2}, Size: 1},
			{Lifespan: Lifespan{Lower: 1, Upper: 2}, Size: 1, Offset: offsetPtr(0)},
		},
		Capacity: 2,
	}
	solution := Solution{Offsets: []Offset{0, 0, 1}, Height: 2}

	assert.Equal(t, BadFixed, Validate(&problem, &solution))
}

func TestValidate_NegativeOffset(t *testing.T) {
	t.Parallel()

	problem := Problem{
		Buffers: []Buffer{
			{Lifespan: Lifespan{Lower: 0, Upper: 1}, Size: 2},
			{Lifespan: Lifespan{Lower: 1, Upper: 2}, Size: 1},
			{Lifespan: Lifespan{Lower: 1, Upper: 2}, Size: 1},
		},
		Capacity: 2,
	}
	solution := Solution{Offsets: []Offset{0, 0, -1}, Height: 2}

	assert.Equal(t, BadOffset, Validate(&problem, &solution))
}

func TestValidate_OffsetOutOfRange(t *testing.T) {
	t.Parallel()

	problem := Problem{
		Buffers: []Buffer{
			{Lifespan: Lifespan{Lower: 0, Upper: 1}, Size: 2},
			{Lifespan: Lifespan{Lower: 1, Upper: 2}, Size: 1},
			{Lifespan: Lifespan{Lower: 1, Upper: 2}, Size: 1},
		},
		Capacity: 2,
	}
	solution := Solution{Offsets: []Offset{0, 0, 2}, Height: 3}

	assert.Equal(t, BadOffset, Validate(&problem, &solution))
}

func TestValidate_Overlap(t *testing.T) {
	t.Parallel()

	problem := Problem{
		Buffers: []Buffer{
			{Lifespan: Lifespan{Lower: 0, Upper: 1}, Size: 2},
			{Lifespan: Lifespan{Lower: 1, Upper: 2}, Size: 1},
			{Lifespan: Lifespan{Lower: 1, Upper: 2}, Size: 1},
		},
		Capacity: 2,
	}
	solution := Solution{Offsets: []Offset{0, 0, 0}, Height: 2}

	assert.Equal(t, BadOverlap, Validate(&problem, &solution))
}

func TestValidate_Misalignment(t *testing.T) {
	t.Parallel()

	problem := Problem{
		Buffers: []Buffer{
			{Lifespan: Lifespan{Lower: 0, Upper: 1}, Size: 2},
			{Lifespan: Lifespan{Lower: 1, Upper: 2}, Size: 1, Alignment: 2},
		},
		Capacity: 2,
	}
	solution := Solution{Offsets: []Offset{0, 1}, Height: 2}

	assert.Equal(t, BadAlignment, Validate(&problem, &solution))
}

func TestValidate_GapOverlap(t *testing.T) {
	t.Parallel()

	problem := Problem{
		Buffers: []Buffer{
			{Lifespan: Lifespan{Lower: 0, Upper: 10}, Size: 2, Gaps: []Gap{{Lifespan: Lifespan{Lower: 1, Upper: 7}}}},
			{Lifespan: Lifespan{Lower: 5, Upper: 15}, Size: 2, Gaps: []Gap{{Lifespan: Lifespan{Lower: 8, Upper: 14}}}},
		},
		Capacity: 2,
	}
	solution := Solution{Offsets: []Offset{0, 0}, Height: 2}

	assert.Equal(t, BadOverlap, Validate(&problem, &solution))
}

func TestValidate_DeclaredHeightTooLow(t *testing.T) {
	t.Parallel()

	problem := Problem{
		Buffers: []Buffer{{Lifespan: Lifespan{Lower: 0, Upper: 1}, Size: 2}},
		Capacity: 4,
	}
	solution := Solution{Offsets: []Offset{0}, Height: 1}

	assert.Equal(t, BadHeight, Validate(&problem, &solution))
}

func TestValidate_DeclaredHeightTooHigh(t *testing.T) {
	t.Parallel()

	problem := Problem{
		Buffers: []Buffer{{Lifespan: Lifespan{Lower: 0, Upper: 1}, Size: 2}},
		Capacity: 4,
	}
	solution := Solution{Offsets: []Offset{0}, Height: 3}

	assert.Equal(t, BadHeight, Validate(&problem, &solution))
}

func TestValidationResult_String(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "GOOD", Good.String())
	assert.Equal(t, "BAD_OVERLAP", BadOverlap.String())
	assert.Equal(t, "BAD_HEIGHT", BadHeight.String())
}
