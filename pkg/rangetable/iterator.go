package rangetable

type Iterator struct {
	current int
	claims  Claims
}

func (r *Iterator) Value() Claim {
	return r.claims[r.current]
}

func (r *Iterator) Next() bool {
	r.current++
	return r.current < len(r.claims)
}

// IsConsecutive reports whether the current claim starts where the previous
// one ends.
func (r *Iterator) IsConsecutive() bool {
	if r.current < 1 {
		return false
	}
	return r.claims[r.current-1].Range.End == r.claims[r.current].Range.Start
}
