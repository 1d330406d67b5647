package chart

import "fmt"

// Range is an inclusive span of years. Last may precede First when anchors
// are given in reverse order.
type Range struct {
	First Year `json:"first"`
	Last  Year `json:"last"`
}

// Inverted reports whether the range runs backwards.
func (r Range) Inverted() bool {
	return r.Last < r.First
}

// Contains reports whether y lies within the range.
func (r Range) Contains(y Year) bool {
	return y >= r.First && y <= r.Last
}

// ResolveStreamRange resolves the stream's boundary against idx and checks
// both years against the supported window. Only the anchors used by the
// boundary kind are consulted.
func ResolveStreamRange(s Stream, idx MomentYearIndex) (Range, error) {
	b := s.Boundary
	if b == nil {
		return Range{}, fmt.Errorf("%w: stream has no boundary", ErrUnknownBoundaryKind)
	}
	r, err := b.span(idx)
	if err != nil {
		return Range{}, err
	}
	if !r.First.InRange() || !r.Last.InRange() {
		return Range{}, fmt.Errorf("%w: %s resolved to %d..%d, allowed %d..%d",
			ErrOutOfRange, b.Kind(), r.First, r.Last, MinYear, MaxYear)
	}
	return r, nil
}
