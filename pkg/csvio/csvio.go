// Package csvio reads and writes allocation problems as CSV. The reader
// accepts header columns in any order, with legacy aliases (buffer /
// buffer_id for id, start / begin for lower, end for upper); an "end"
// column signals the legacy inclusive range convention, whose values are
// adjusted by one on read and on write. The writer emits only the optional
// columns a problem actually exercises. Files with an .lz4 suffix are
// compressed and decompressed transparently.
package csvio

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/Sumatoshi-tech/memfit/pkg/alloc"
)

// Canonical and alias column names.
const (
	colAlignment = "alignment"
	colBegin     = "begin"
	colBuffer    = "buffer"
	colBufferID  = "buffer_id"
	colEnd       = "end"
	colGaps      = "gaps"
	colHint      = "hint"
	colID        = "id"
	colLower     = "lower"
	colOffset    = "offset"
	colSize      = "size"
	colStart     = "start"
	colUpper     = "upper"
)

// Errors returned by FromCSV.
var (
	// ErrMissingColumn means a required column is absent from the header.
	ErrMissingColumn = errors.New("a required column is missing")

	// ErrDuplicateColumn means two header columns resolve to the same
	// canonical name.
	ErrDuplicateColumn = errors.New("duplicate column names")

	// ErrBadField means a record field could not be parsed.
	ErrBadField = errors.New("malformed field")
)

// FromCSV parses a problem from CSV input. The returned problem's capacity
// is zero; callers set it from their own configuration.
func FromCSV(input string) (*alloc.Problem, error) {
	problem := &alloc.Problem{}
	colMap := map[string]int{}

	var legacy bool

	for _, record := range strings.Split(input, "\n") {
		if record == "" {
			break
		}

		fields := strings.Split(record, ",")

		if len(colMap) == 0 {
			var err error

			legacy, err = readHeader(fields, colMap)
			if err != nil {
				return nil, err
			}

			continue
		}

		if len(fields) != len(colMap) {
			return nil, fmt.Errorf("%w: record %q has %d fields, header has %d",
				ErrBadField, record, len(fields), len(colMap))
		}

		buffer, err := readRecord(fields, colMap, legacy)
		if err != nil {
			return nil, err
		}

		problem.Buffers = append(problem.Buffers, buffer)
	}

	return problem, nil
}

// readHeader canonicalizes column names into colMap and reports whether
// the legacy inclusive-range convention is in effect.
func readHeader(fields []string, colMap map[string]int) (legacy bool, err error) {
	for fieldIdx, colName := range fields {
		switch colName {
		case colBegin, colStart:
			colName = colLower
		case colBuffer, colBufferID:
			colName = colID
		case colEnd:
			// Values of an "end" column are assumed to be off by one.
			colName = colUpper
			legacy = true
		}

		colMap[colName] = fieldIdx
	}

	if len(colMap) != len(fields) {
		return false, ErrDuplicateColumn
	}

	for _, required := range []string{colID, colLower, colUpper, colSize} {
		if _, ok := colMap[required]; !ok {
			return false, fmt.Errorf("%w: %s", ErrMissingColumn, required)
		}
	}

	return legacy, nil
}

// readRecord parses one buffer row.
func readRecord(fields []string, colMap map[string]int, legacy bool) (alloc.Buffer, error) {
	var addend int64
	if legacy {
		addend = 1
	}

	lower, err := parseInt(fields[colMap[colLower]], colLower)
	if err != nil {
		return alloc.Buffer{}, err
	}

	upper, err := parseInt(fields[colMap[colUpper]], colUpper)
	if err != nil {
		return alloc.Buffer{}, err
	}

	size, err := parseInt(fields[colMap[colSize]], colSize)
	if err != nil {
		return alloc.Buffer{}, err
	}

	buffer := alloc.Buffer{
		ID:        fields[colMap[colID]],
		Lifespan:  alloc.Lifespan{Lower: lower, Upper: upper + addend},
		Size:      size,
		Alignment: 1,
	}

	if fieldIdx, ok := colMap[colAlignment]; ok {
		buffer.Alignment, err = parseInt(fields[fieldIdx], colAlignment)
		if err != nil {
			return alloc.Buffer{}, err
		}
	}

	if fieldIdx, ok := colMap[colHint]; ok {
		hint, hintErr := parseInt(fields[fieldIdx], colHint)
		if hintErr != nil {
			return alloc.Buffer{}, hintErr
		}

		// Negative hints mean "absent".
		if hint >= 0 {
			buffer.Hint = &hint
		}
	}

	if fieldIdx, ok := colMap[colGaps]; ok {
		buffer.Gaps, err = parseGaps(fields[fieldIdx], addend)
		if err != nil {
			return alloc.Buffer{}, err
		}
	}

	if fieldIdx, ok := colMap[colOffset]; ok {
		offset, offsetErr := parseInt(fields[fieldIdx], colOffset)
		if offsetErr != nil {
			return alloc.Buffer{}, offsetErr
		}

		buffer.Offset = &offset
	}

	return buffer, nil
}

// parseGaps decodes zero or more space-separated gap specs of form L-U or
// L-U@WL:WU.
func parseGaps(field string, addend int64) ([]alloc.Gap, error) {
	var gaps []alloc.Gap

	for _, spec := range strings.Fields(field) {
		lifespanStr, windowStr, windowed := strings.Cut(spec, "@")

		lowerStr, upperStr, ok := strings.Cut(lifespanStr, "-")
		if !ok {
			return nil, fmt.Errorf("%w: gap %q", ErrBadField, spec)
		}

		lower, err := strconv.ParseInt(lowerStr, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: gap %q", ErrBadField, spec)
		}

		upper, err := strconv.ParseInt(upperStr, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: gap %q", ErrBadField, spec)
		}

		gap := alloc.Gap{Lifespan: alloc.Lifespan{Lower: lower, Upper: upper + addend}}

		if windowed {
			windowLowerStr, windowUpperStr, ok := strings.Cut(windowStr, ":")
			if !ok {
				return nil, fmt.Errorf("%w: gap %q", ErrBadField, spec)
			}

			windowLower, err := strconv.ParseInt(windowLowerStr, 10, 64)
			if err != nil {
				return nil, fmt.Errorf("%w: gap %q", ErrBadField, spec)
			}

			windowUpper, err := strconv.ParseInt(windowUpperStr, 10, 64)
			if err != nil {
				return nil, fmt.Errorf("%w: gap %q", ErrBadField, spec)
			}

			gap.Window = &alloc.Window{Lower: windowLower, Upper: windowUpper}
		}

		gaps = append(gaps, gap)
	}

	return gaps, nil
}

// parseInt parses one integer field, naming the column on failure.
func parseInt(field, column string) (int64, error) {
	value, err := strconv.ParseInt(field, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %s %q", ErrBadField, column, field)
	}

	return value, nil
}

// ToCSV renders a problem (and, when non-nil, a solution's offsets) as
// CSV. Optional columns appear only when some buffer exercises them. With
// legacy set, upper bounds are written under the historic start/end
// convention, adjusted by one.
func ToCSV(problem *alloc.Problem, solution *alloc.Solution, legacy bool) string {
	includeAlignment := false
	includeHint := false
	includeGaps := false

	for i := range problem.Buffers {
		buffer := &problem.Buffers[i]
		includeAlignment = includeAlignment || buffer.Alignment != 1
		includeHint = includeHint || buffer.Hint != nil
		includeGaps = includeGaps || len(buffer.Gaps) > 0
	}

	var addend int64
	if legacy {
		addend = -1
	}

	lowerName, upperName := colLower, colUpper
	if legacy {
		lowerName, upperName = colStart, colEnd
	}

	header := []string{colID, lowerName, upperName, colSize}
	if includeAlignment {
		header = append(header, colAlignment)
	}

	if includeHint {
		header = append(header, colHint)
	}

	if includeGaps {
		header = append(header, colGaps)
	}

	if solution != nil {
		header = append(header, colOffset)
	}

	var sb strings.Builder

	sb.WriteString(strings.Join(header, ","))
	sb.WriteByte('\n')

	for bufferIdx := range problem.Buffers {
		buffer := &problem.Buffers[bufferIdx]
		record := []string{
			buffer.ID,
			strconv.FormatInt(buffer.Lifespan.Lower, 10),
			strconv.FormatInt(buffer.Lifespan.Upper+addend, 10),
			strconv.FormatInt(buffer.Size, 10),
		}

		if includeAlignment {
			record = append(record, strconv.FormatInt(buffer.Alignment, 10))
		}

		if includeHint {
			hint := int64(-1)
			if buffer.Hint != nil {
				hint = *buffer.Hint
			}

			record = append(record, strconv.FormatInt(hint, 10))
		}

		if includeGaps {
			record = append(record, formatGaps(buffer.Gaps, addend))
		}

		if solution != nil {
			record = append(record, strconv.FormatInt(solution.Offsets[bufferIdx], 10))
		}

		sb.WriteString(strings.Join(record, ","))
		sb.WriteByte('\n')
	}

	return sb.String()
}

// formatGaps encodes a buffer's gaps as space-separated specs.
func formatGaps(gaps []alloc.Gap, addend int64) string {
	specs := make([]string, 0, len(gaps))

	for _, gap := range gaps {
		spec := fmt.Sprintf("%d-%d", gap.Lifespan.Lower, gap.Lifespan.Upper+addend)
		if gap.Window != nil {
			spec += fmt.Sprintf("@%d:%d", gap.Window.Lower, gap.Window.Upper)
		}

		specs = append(specs, spec)
	}

	return strings.Join(specs, " ")
}
