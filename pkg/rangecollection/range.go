package rangecollection

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrInvalidRange is wrapped by every error caused by a malformed range.
var ErrInvalidRange = errors.New("invalid range")

// Range is the half-open interval [Start, End). It includes every integer k
// with Start <= k < End; Start == End is the empty range.
type Range struct {
	Start int64
	End   int64
}

// RangeFrom returns the range [start, end).
func RangeFrom(start, end int64) Range {
	return Range{Start: start, End: end}
}

// Validate returns an error wrapping ErrInvalidRange when r.Start > r.End.
func (r Range) Validate() error {
	if r.Start > r.End {
		return fmt.Errorf("start %d is bigger then end %d: %w", r.Start, r.End, ErrInvalidRange)
	}
	return nil
}

// IsEmpty reports whether r holds no integer.
func (r Range) IsEmpty() bool { return r.Start == r.End }

// Len returns the number of integers in r. The result is unsigned since
// [MinInt64, MaxInt64) holds more than MaxInt64 integers.
func (r Range) Len() uint64 { return uint64(r.End) - uint64(r.Start) }

func (r Range) Contains(id int64) bool {
	return r.Start <= id && id < r.End
}

func (r Range) String() string {
	return fmt.Sprintf("[%d, %d)", r.Start, r.End)
}

// Intersects reports whether a and b overlap or touch. Borders are treated
// as inclusive, so [0, 1) and [1, 2) intersect by 1.
func Intersects(a, b Range) bool {
	return !(b.Start > a.End || a.Start > b.End)
}

// merge returns the smallest range covering both a and b.
func merge(a, b Range) Range {
	return Range{Start: min(a.Start, b.Start), End: max(a.End, b.End)}
}

// ParseRange parses the rendered form of a range, e.g. "[1, 5)".
func ParseRange(s string) (Range, error) {
	var r Range
	in := strings.TrimSpace(s)
	if !strings.HasPrefix(in, "[") || !strings.HasSuffix(in, ")") {
		return r, fmt.Errorf("range %q must have the form [start, end): %w", s, ErrInvalidRange)
	}
	in = in[1 : len(in)-1]
	c := strings.IndexByte(in, ',')
	if c == -1 {
		return r, fmt.Errorf("no comma in range %q: %w", s, ErrInvalidRange)
	}
	from, to := strings.TrimSpace(in[:c]), strings.TrimSpace(in[c+1:])
	start, err := strconv.ParseInt(from, 10, 64)
	if err != nil {
		return r, fmt.Errorf("invalid start %q in range %q: %w", from, s, ErrInvalidRange)
	}
	end, err := strconv.ParseInt(to, 10, 64)
	if err != nil {
		return r, fmt.Errorf("invalid end %q in range %q: %w", to, s, ErrInvalidRange)
	}
	r = Range{Start: start, End: end}
	if err := r.Validate(); err != nil {
		return Range{}, err
	}
	return r, nil
}
