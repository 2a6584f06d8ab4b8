package csvio

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/memfit/pkg/alloc"
)

func offsetPtr(offset alloc.Offset) *alloc.Offset {
	return &offset
}

func twoBufferProblem() *alloc.Problem {
	return &alloc.Problem{
		Buffers: []alloc.Buffer{
			{ID: "0", Lifespan: alloc.Lifespan{Lower: 5, Upper: 10}, Size: 15, Alignment: 1},
			{
				ID:        "1",
				Lifespan:  alloc.Lifespan{Lower: 6, Upper: 12},
				Size:      18,
				Alignment: 2,
				Gaps: []alloc.Gap{
					{Lifespan: alloc.Lifespan{Lower: 7, Upper: 8}},
					{Lifespan: alloc.Lifespan{Lower: 9, Upper: 10}},
				},
			},
		},
		Capacity: 40,
	}
}

func TestToCSV(t *testing.T) {
	t.Parallel()

	assert.Equal(t,
		"id,lower,upper,size,alignment,gaps\n"+
			"0,5,10,15,1,\n1,6,12,18,2,7-8 9-10\n",
		ToCSV(twoBufferProblem(), nil, false))
}

func TestToCSV_WithSolution(t *testing.T) {
	t.Parallel()

	solution := alloc.Solution{Offsets: []alloc.Offset{1, 21}}

	assert.Equal(t,
		"id,lower,upper,size,alignment,gaps,offset\n"+
			"0,5,10,15,1,,1\n1,6,12,18,2,7-8 9-10,21\n",
		ToCSV(twoBufferProblem(), &solution, false))
}

func TestToCSV_Legacy(t *testing.T) {
	t.Parallel()

	assert.Equal(t,
		"id,start,end,size,alignment,gaps\n"+
			"0,5,9,15,1,\n1,6,11,18,2,7-7 9-9\n",
		ToCSV(twoBufferProblem(), nil, true))
}

func TestToCSV_OmitsUnusedColumns(t *testing.T) {
	t.Parallel()

	problem := &alloc.Problem{
		Buffers: []alloc.Buffer{
			{ID: "a", Lifespan: alloc.Lifespan{Lower: 0, Upper: 4}, Size: 8, Alignment: 1},
		},
		Capacity: 16,
	}

	assert.Equal(t, "id,lower,upper,size\na,0,4,8\n", ToCSV(problem, nil, false))
}

func TestToCSV_IncludesHints(t *testing.T) {
	t.Parallel()

	problem := &alloc.Problem{
		Buffers: []alloc.Buffer{
			{ID: "a", Lifespan: alloc.Lifespan{Lower: 0, Upper: 4}, Size: 8, Alignment: 1, Hint: offsetPtr(2)},
			{ID: "b", Lifespan: alloc.Lifespan{Lower: 0, Upper: 4}, Size: 8, Alignment: 1},
		},
		Capacity: 16,
	}

	assert.Equal(t,
		"id,lower,upper,size,hint\na,0,4,8,2\nb,0,4,8,-1\n",
		ToCSV(problem, nil, false))
}

func TestFromCSV_ProblemOnly(t *testing.T) {
	t.Parallel()

	problem, err := FromCSV("start,size,buffer,end\n6,18,1,11\n5,15,0,9\n")
	require.NoError(t, err)

	assert.Equal(t, &alloc.Problem{
		Buffers: []alloc.Buffer{
			{ID: "1", Lifespan: alloc.Lifespan{Lower: 6, Upper: 12}, Size: 18, Alignment: 1},
			{ID: "0", Lifespan: alloc.Lifespan{Lower: 5, Upper: 10}, Size: 15, Alignment: 1},
		},
	}, problem)
}

func TestFromCSV_CanonicalColumns(t *testing.T) {
	t.Parallel()

	problem, err := FromCSV("id,lower,upper,size\nb0,6,12,18\nb1,5,10,15\n")
	require.NoError(t, err)

	assert.Equal(t, &alloc.Problem{
		Buffers: []alloc.Buffer{
			{ID: "b0", Lifespan: alloc.Lifespan{Lower: 6, Upper: 12}, Size: 18, Alignment: 1},
			{ID: "b1", Lifespan: alloc.Lifespan{Lower: 5, Upper: 10}, Size: 15, Alignment: 1},
		},
	}, problem)
}

func TestFromCSV_WithAlignment(t *testing.T) {
	t.Parallel()

	problem, err := FromCSV("start,size,buffer,end,alignment\n6,18,1,11,2\n5,15,0,9,1\n")
	require.NoError(t, err)

	assert.Equal(t, &alloc.Problem{
		Buffers: []alloc.Buffer{
			{ID: "1", Lifespan: alloc.Lifespan{Lower: 6, Upper: 12}, Size: 18, Alignment: 2},
			{ID: "0", Lifespan: alloc.Lifespan{Lower: 5, Upper: 10}, Size: 15, Alignment: 1},
		},
	}, problem)
}

func TestFromCSV_WithEmptyGaps(t *testing.T) {
	t.Parallel()

	problem, err := FromCSV("start,size,buffer,end,alignment,gaps\n6,18,1,11,2,\n5,15,0,9,1,\n")
	require.NoError(t, err)

	assert.Equal(t, &alloc.Problem{
		Buffers: []alloc.Buffer{
			{ID: "1", Lifespan: alloc.Lifespan{Lower: 6, Upper: 12}, Size: 18, Alignment: 2},
			{ID: "0", Lifespan: alloc.Lifespan{Lower: 5, Upper: 10}, Size: 15, Alignment: 1},
		},
	}, problem)
}

func TestFromCSV_WithGaps(t *testing.T) {
	t.Parallel()

	problem, err := FromCSV("start,size,buffer,end,alignment,gaps\n" +
		"6,18,1,11,2,7-8 \n5,15,0,9,1,9-10 12-13\n")
	require.NoError(t, err)

	assert.Equal(t, &alloc.Problem{
		Buffers: []alloc.Buffer{
			{
				ID:        "1",
				Lifespan:  alloc.Lifespan{Lower: 6, Upper: 12},
				Size:      18,
				Alignment: 2,
				Gaps:      []alloc.Gap{{Lifespan: alloc.Lifespan{Lower: 7, Upper: 9}}},
			},
			{
				ID:        "0",
				Lifespan:  alloc.Lifespan{Lower: 5, Upper: 10},
				Size:      15,
				Alignment: 1,
				Gaps: []alloc.Gap{
					{Lifespan: alloc.Lifespan{Lower: 9, Upper: 11}},
					{Lifespan: alloc.Lifespan{Lower: 12, Upper: 14}},
				},
			},
		},
	}, problem)
}

func TestFromCSV_WithWindowedGaps(t *testing.T) {
	t.Parallel()

	problem, err := FromCSV("id,lower,upper,size,gaps\nb0,0,10,2,0-5@0:1\n")
	require.NoError(t, err)

	require.Len(t, problem.Buffers, 1)
	require.Len(t, problem.Buffers[0].Gaps, 1)

	gap := problem.Buffers[0].Gaps[0]
	assert.Equal(t, alloc.Lifespan{Lower: 0, Upper: 5}, gap.Lifespan)
	require.NotNil(t, gap.Window)
	assert.Equal(t, alloc.Window{Lower: 0, Upper: 1}, *gap.Window)
}

func TestFromCSV_WithSolution(t *testing.T) {
	t.Parallel()

	problem, err := FromCSV("start,size,offset,buffer,end\n6,18,21,1,11\n5,15,1,0,9\n")
	require.NoError(t, err)

	assert.Equal(t, &alloc.Problem{
		Buffers: []alloc.Buffer{
			{ID: "1", Lifespan: alloc.Lifespan{Lower: 6, Upper: 12}, Size: 18, Alignment: 1, Offset: offsetPtr(21)},
			{ID: "0", Lifespan: alloc.Lifespan{Lower: 5, Upper: 10}, Size: 15, Alignment: 1, Offset: offsetPtr(1)},
		},
	}, problem)
}

func TestFromCSV_WithHints(t *testing.T) {
	t.Parallel()

	problem, err := FromCSV("id,lower,upper,size,hint\nb0,0,4,8,2\nb1,0,4,8,-1\n")
	require.NoError(t, err)

	require.Len(t, problem.Buffers, 2)
	require.NotNil(t, problem.Buffers[0].Hint)
	assert.Equal(t, alloc.Offset(2), *problem.Buffers[0].Hint)
	assert.Nil(t, problem.Buffers[1].Hint, "negative hints mean absent")
}

func TestFromCSV_BufferIDAlias(t *testing.T) {
	t.Parallel()

	problem, err := FromCSV("start,size,buffer_id,end\n6,18,1,11\n")
	require.NoError(t, err)
	assert.Equal(t, "1", problem.Buffers[0].ID)
}

func TestFromCSV_StringIDs(t *testing.T) {
	t.Parallel()

	problem, err := FromCSV("start,size,buffer,end\n6,18,Big,11\n5,15,Little,9\n")
	require.NoError(t, err)
	assert.Equal(t, "Big", problem.Buffers[0].ID)
	assert.Equal(t, "Little", problem.Buffers[1].ID)
}

func TestFromCSV_BogusIntegers(t *testing.T) {
	t.Parallel()

	_, err := FromCSV("start,size,buffer,end\na,b,c,d\ne,f,g,h\n")
	assert.ErrorIs(t, err, ErrBadField)
}

func TestFromCSV_BogusOffsets(t *testing.T) {
	t.Parallel()

	_, err := FromCSV("start,size,offset,buffer,end\n6,18,a,1,11\n5,15,b,0,9\n")
	assert.ErrorIs(t, err, ErrBadField)
}

func TestFromCSV_BogusGaps(t *testing.T) {
	t.Parallel()

	_, err := FromCSV("start,size,buffer,end,gaps\n6,18,1,11,1-2-3\n5,15,0,9,\n")
	assert.ErrorIs(t, err, ErrBadField)
}

func TestFromCSV_MoreBogusGaps(t *testing.T) {
	t.Parallel()

	_, err := FromCSV("start,size,buffer,end,gaps\n6,18,1,11,A-B\n5,15,0,9,\n")
	assert.ErrorIs(t, err, ErrBadField)
}

func TestFromCSV_MissingColumn(t *testing.T) {
	t.Parallel()

	_, err := FromCSV("start,size,end\n6,18,11\n5,15,9\n")
	assert.ErrorIs(t, err, ErrMissingColumn)
}

func TestFromCSV_DuplicateColumn(t *testing.T) {
	t.Parallel()

	_, err := FromCSV("start,size,offset,buffer,end,end\n6,18,21,1,11,11\n")
	assert.ErrorIs(t, err, ErrDuplicateColumn)
}

func TestFromCSV_ExtraFields(t *testing.T) {
	t.Parallel()

	_, err := FromCSV("start,size,offset,buffer,end\n6,18,21,1,11\n5,15,1,0,9,100\n")
	assert.ErrorIs(t, err, ErrBadField)
}

func TestCSV_RoundTrip(t *testing.T) {
	t.Parallel()

	input := "id,lower,upper,size,alignment,gaps\n" +
		"b0,5,10,15,1,\n" +
		"b1,6,12,18,2,7-8@0:9 9-10\n"

	problem, err := FromCSV(input)
	require.NoError(t, err)
	assert.Equal(t, input, ToCSV(problem, nil, false))
}

func TestCSV_LegacyRoundTrip(t *testing.T) {
	t.Parallel()

	input := "id,start,end,size,gaps\n" +
		"b0,5,9,15,\n" +
		"b1,6,11,18,7-7 9-9\n"

	problem, err := FromCSV(input)
	require.NoError(t, err)
	assert.Equal(t, input, ToCSV(problem, nil, true))
}
