package rangecollection

import (
	"errors"
	"fmt"
	"io"
	"slices"
	"sort"
	"strings"
)

// RangeCollection is an aggregate of ranges, e.g. [1, 5), [10, 11), [100, 201).
//
// After every Add or Remove the stored ranges are sorted by start, pairwise
// disjoint, non-empty and never touching: ranges[i].End < ranges[i+1].Start.
// A RangeCollection is not safe for concurrent use.
type RangeCollection struct {
	ranges []Range
}

// New returns a collection seeded with the given ranges. The seed must
// already be sorted, disjoint and merged; it is validated range by range but
// not normalized. Empty seed ranges are skipped.
func New(seed ...Range) (*RangeCollection, error) {
	var errm error
	for _, r := range seed {
		if err := r.Validate(); err != nil {
			errm = errors.Join(errm, err)
		}
	}
	if errm != nil {
		return nil, errm
	}
	rc := &RangeCollection{ranges: make([]Range, 0, len(seed))}
	for _, r := range seed {
		if !r.IsEmpty() {
			rc.ranges = append(rc.ranges, r)
		}
	}
	return rc, nil
}

// Parse builds a collection from its rendered form, e.g. "[1, 5), [10, 20)".
func Parse(s string) (*RangeCollection, error) {
	var seed []Range
	in := strings.TrimSpace(s)
	for in != "" {
		idx := strings.IndexByte(in, ')')
		if idx == -1 {
			return nil, fmt.Errorf("unterminated range in %q: %w", s, ErrInvalidRange)
		}
		r, err := ParseRange(in[:idx+1])
		if err != nil {
			return nil, err
		}
		seed = append(seed, r)
		in = strings.TrimSpace(in[idx+1:])
		in = strings.TrimSpace(strings.TrimPrefix(in, ","))
	}
	return New(seed...)
}

// Add inserts r into the collection, merging it with every stored range it
// overlaps or touches.
func (rc *RangeCollection) Add(r Range) error {
	if err := r.Validate(); err != nil {
		return err
	}
	if r.IsEmpty() {
		return nil
	}
	n := len(rc.ranges)
	// r.End == first.Start touches the first range, so it goes through the
	// scan below and gets merged.
	if n == 0 || r.End < rc.ranges[0].Start {
		rc.replace(0, 0, r)
		return nil
	}
	if r.Start > rc.ranges[n-1].End {
		rc.ranges = append(rc.ranges, r)
		return nil
	}

	candidate := r
	insertAt, consumed := -1, 0
scan:
	for i, cur := range rc.ranges {
		switch {
		case Intersects(cur, candidate):
			// cur overlaps or touches the candidate, absorb it.
			//
			//    cur      candidate
			// s------e s-----------e
			candidate = merge(cur, candidate)
			consumed++
			if insertAt == -1 {
				insertAt = i
			}
		case i+1 < n && cur.End < candidate.Start && rc.ranges[i+1].Start > candidate.End:
			// candidate fits in the gap after cur.
			//
			//   cur     candidate    next
			// s-----e   s-------e   s-----e
			insertAt = i + 1
		case insertAt != -1:
			// past the affected region, the rest is sorted after it.
			break scan
		}
	}
	if insertAt != -1 {
		rc.replace(insertAt, consumed, candidate)
	}
	return nil
}

// Remove deletes r from the collection, trimming, splitting or dropping the
// stored ranges it covers.
func (rc *RangeCollection) Remove(r Range) error {
	if err := r.Validate(); err != nil {
		return err
	}
	if r.IsEmpty() || len(rc.ranges) == 0 {
		return nil
	}
	for i := 0; i < len(rc.ranges); i++ {
		cur := rc.ranges[i]
		if cur.Start >= r.End {
			break
		}
		if cur.End <= r.Start || !Intersects(cur, r) {
			continue
		}
		switch {
		case cur.Start >= r.Start && cur.End <= r.End:
			// r entirely covers cur.
			//
			//       r
			// s-------------e
			//    s------e
			//       cur
			rc.replace(i, 1)
			i--
		case cur.Start < r.Start && cur.End <= r.End:
			// r overlaps the end of cur.
			//
			//           r
			//        s------e
			//    s------e
			//      cur
			rc.replace(i, 1, Range{Start: cur.Start, End: r.Start})
		case cur.Start < r.Start:
			// r is in the middle of cur, split it.
			//
			//       cur
			// s-------------e
			//    s------e
			//       r
			rc.replace(i, 1, Range{Start: cur.Start, End: r.Start}, Range{Start: r.End, End: cur.End})
			// the trailing piece starts at r.End, nothing after it is affected.
			return nil
		default:
			// r overlaps the start of cur.
			//
			//   r
			// s------e
			//    s------e
			//      cur
			rc.replace(i, 1, Range{Start: r.End, End: cur.End})
		}
	}
	return nil
}

// replace substitutes the k ranges starting at index i with rs, leaving out
// any empty range.
func (rc *RangeCollection) replace(i, k int, rs ...Range) {
	rs = slices.DeleteFunc(rs, Range.IsEmpty)
	rc.ranges = slices.Replace(rc.ranges, i, i+k, rs...)
}

// Ranges returns a copy of the stored ranges.
func (rc *RangeCollection) Ranges() []Range {
	return append([]Range{}, rc.ranges...)
}

// Count returns the number of stored ranges.
func (rc *RangeCollection) Count() int {
	return len(rc.ranges)
}

// Len returns the number of integers covered by the collection. Disjoint
// int64 ranges never cover more than 2^64-1 integers, so the sum fits.
func (rc *RangeCollection) Len() uint64 {
	var l uint64
	for _, r := range rc.ranges {
		l += r.Len()
	}
	return l
}

func (rc *RangeCollection) IsEmpty() bool {
	return len(rc.ranges) == 0
}

// Contains reports whether id is in the collection.
func (rc *RangeCollection) Contains(id int64) bool {
	i := sort.Search(len(rc.ranges), func(k int) bool {
		return rc.ranges[k].End > id
	})
	return i < len(rc.ranges) && rc.ranges[i].Contains(id)
}

// Covers reports whether every integer in r is in the collection. An empty
// range is always covered.
func (rc *RangeCollection) Covers(r Range) bool {
	if r.IsEmpty() {
		return true
	}
	i := sort.Search(len(rc.ranges), func(k int) bool {
		return rc.ranges[k].End > r.Start
	})
	return i < len(rc.ranges) && rc.ranges[i].Start <= r.Start && r.End <= rc.ranges[i].End
}

// Overlaps reports whether the collection shares at least one integer with r.
func (rc *RangeCollection) Overlaps(r Range) bool {
	if r.IsEmpty() {
		return false
	}
	i := sort.Search(len(rc.ranges), func(k int) bool {
		return rc.ranges[k].End > r.Start
	})
	return i < len(rc.ranges) && rc.ranges[i].Start < r.End
}

func (rc *RangeCollection) Clone() *RangeCollection {
	return &RangeCollection{ranges: rc.Ranges()}
}

// String returns the ranges of the collection, e.g. "[1, 5), [10, 11)", or
// the empty string for an empty collection.
func (rc *RangeCollection) String() string {
	var sb strings.Builder
	for i, r := range rc.ranges {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(r.String())
	}
	return sb.String()
}

// Print writes the rendered collection followed by a newline to w.
func (rc *RangeCollection) Print(w io.Writer) error {
	_, err := fmt.Fprintln(w, rc.String())
	return err
}
