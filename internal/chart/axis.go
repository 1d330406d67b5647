package chart

import (
	"fmt"
	"time"
)

// BuildXAxis lists every year from start to stop inclusive.
func BuildXAxis(start, stop time.Time) ([]Year, error) {
	if start.IsZero() || stop.IsZero() {
		return nil, ErrMissingChartDate
	}
	first, last := YearOf(start), YearOf(stop)
	if !first.InRange() || !last.InRange() {
		return nil, fmt.Errorf("%w: %d..%d, allowed %d..%d", ErrChartDateOutOfRange, first, last, MinYear, MaxYear)
	}
	if last < first {
		return nil, fmt.Errorf("%w: start year %d is after stop year %d", ErrChartDateOutOfRange, first, last)
	}

	axis := make([]Year, 0, int(last-first)+1)
	for y := first; y <= last; y++ {
		axis = append(axis, y)
	}
	return axis, nil
}

// axisPosition returns the position of y on axis, or -1.
func axisPosition(axis []Year, y Year) int {
	if len(axis) == 0 {
		return -1
	}
	i := int(y - axis[0])
	if i < 0 || i >= len(axis) || axis[i] != y {
		return -1
	}
	return i
}
