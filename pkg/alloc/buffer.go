package alloc

// Gap marks a sub-interval of a buffer's lifespan where it is inactive or
// occupies a reduced window. A gap without a window means the buffer
// consumes no space at all for its duration; a gap with window [wl, wu)
// means only bytes [wl, wu) of the buffer remain active, freeing the rest
// for co-resident buffers. Gaps within a buffer are non-overlapping and
// ordered by lifespan.
type Gap struct {
	Lifespan Lifespan
	Window   *Window
}

// Buffer is a single allocation request: an amount of memory needed over a
// fixed lifespan, with optional gaps, a required alignment, and optionally a
// fixed offset (hard constraint) or a hint (soft preference).
type Buffer struct {
	ID       string
	Lifespan Lifespan
	Size     int64
	// Alignment requires the offset to be a multiple of it; a value of 0
	// or 1 imposes no constraint.
	Alignment int64
	Gaps      []Gap
	Offset    *Offset
	// Hint caps the offsets the solver tries for this buffer: candidates
	// above the hint are skipped, which can make a problem infeasible that
	// would be feasible without it.
	Hint *Offset
}

// Area returns the product of the buffer's size and lifespan width.
func (b *Buffer) Area() Area {
	return b.Size * b.Lifespan.Width()
}

// activeSpan is one maximal stretch of time during which a buffer occupies
// a constant window of offset space.
type activeSpan struct {
	lifespan Lifespan
	window   Window
}

// activeSpans expands a buffer's lifespan and gaps into the ordered list of
// stretches where it occupies space, along with the window occupied during
// each. Windowed gaps keep the buffer active at a reduced window;
// non-windowed gaps suspend it entirely.
func (b *Buffer) activeSpans() []activeSpan {
	full := Window{Lower: 0, Upper: b.Size}
	spans := make([]activeSpan, 0, 2*len(b.Gaps)+1)
	cursor := b.Lifespan.Lower

	for _, gap := range b.Gaps {
		if cursor < gap.Lifespan.Lower {
			spans = append(spans, activeSpan{
				lifespan: Lifespan{Lower: cursor, Upper: gap.Lifespan.Lower},
				window:   full,
			})
		}

		if gap.Window != nil && gap.Lifespan.Lower < gap.Lifespan.Upper {
			spans = append(spans, activeSpan{lifespan: gap.Lifespan, window: *gap.Window})
		}

		cursor = gap.Lifespan.Upper
	}

	if cursor < b.Lifespan.Upper {
		spans = append(spans, activeSpan{
			lifespan: Lifespan{Lower: cursor, Upper: b.Lifespan.Upper},
			window:   full,
		})
	}

	return spans
}

// EffectiveSize computes the smallest offset delta that 'above' must keep
// over b when placed directly on top: the maximum, over every instant where
// both buffers occupy space, of b's window top minus above's window bottom.
// The second return value is false when the two buffers are never
// simultaneously active, in which case they do not constrain each other.
//
// The relation is asymmetric: with windowed gaps, stacking 'above' over b
// may need less (or more) room than stacking b over 'above'.
func (b *Buffer) EffectiveSize(above *Buffer) (int64, bool) {
	lower := b.activeSpans()
	upper := above.activeSpans()

	var (
		size  int64
		found bool
	)

	i, j := 0, 0
	for i < len(lower) && j < len(upper) {
		ls, us := lower[i], upper[j]

		if ls.lifespan.Overlaps(us.lifespan) {
			delta := ls.window.Upper - us.window.Lower
			if !found || delta > size {
				size = delta
			}

			found = true
		}

		// Advance whichever span ends first.
		if ls.lifespan.Upper <= us.lifespan.Upper {
			i++
		} else {
			j++
		}
	}

	if !found {
		return 0, false
	}

	return size, true
}
