package alloc

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInterval_Width(t *testing.T) {
	t.Parallel()

	assert.Equal(t, int64(5), Lifespan{Lower: 5, Upper: 10}.Width())
	assert.Equal(t, int64(0), Lifespan{Lower: 3, Upper: 3}.Width())
}

func TestInterval_Less(t *testing.T) {
	t.Parallel()

	assert.True(t, Lifespan{Lower: 0, Upper: 2}.Less(Lifespan{Lower: 1, Upper: 1}))
	assert.True(t, Lifespan{Lower: 1, Upper: 2}.Less(Lifespan{Lower: 1, Upper: 3}))
	assert.False(t, Lifespan{Lower: 1, Upper: 3}.Less(Lifespan{Lower: 1, Upper: 3}))
}

func TestInterval_Overlaps(t *testing.T) {
	t.Parallel()

	assert.True(t, Lifespan{Lower: 0, Upper: 2}.Overlaps(Lifespan{Lower: 1, Upper: 3}))
	assert.False(t, Lifespan{Lower: 0, Upper: 2}.Overlaps(Lifespan{Lower: 2, Upper: 4}),
		"half-open intervals touching at an endpoint do not overlap")
	assert.False(t, Lifespan{Lower: 0, Upper: 2}.Overlaps(Lifespan{Lower: 3, Upper: 5}))
}

func TestInterval_String(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "[1, 4)", Lifespan{Lower: 1, Upper: 4}.String())
}
