package chart

import (
	"fmt"
	"time"
)

// BoundaryKind names the pair of anchor kinds bounding a stream. The first
// segment is the start anchor, the second the stop anchor.
type BoundaryKind string

const (
	DateToDate       BoundaryKind = "Date_to_Date"
	DateToMoment     BoundaryKind = "Date_to_Moment"
	DateToDuration   BoundaryKind = "Date_to_Duration"
	MomentToDate     BoundaryKind = "Moment_to_Date"
	MomentToMoment   BoundaryKind = "Moment_to_Moment"
	MomentToDuration BoundaryKind = "Moment_to_Duration"
	DurationToDate   BoundaryKind = "Duration_to_Date"
	DurationToMoment BoundaryKind = "Duration_to_Moment"
)

var boundaryKinds = []BoundaryKind{
	DateToDate,
	DateToMoment,
	DateToDuration,
	MomentToDate,
	MomentToMoment,
	MomentToDuration,
	DurationToDate,
	DurationToMoment,
}

// BoundaryKinds returns the supported kinds in declaration order.
func BoundaryKinds() []BoundaryKind {
	out := make([]BoundaryKind, len(boundaryKinds))
	copy(out, boundaryKinds)
	return out
}

// Valid reports whether k is one of the supported kinds.
func (k BoundaryKind) Valid() bool {
	for _, known := range boundaryKinds {
		if k == known {
			return true
		}
	}
	return false
}

// Anchors is the flat, persisted form of a stream boundary: up to five
// optional fields of which only two are meaningful for any kind.
// Zero values mean "unset". A SetDuration of 0 is therefore unset too.
type Anchors struct {
	StartDate     time.Time
	StopDate      time.Time
	StartMomentID MomentID
	StopMomentID  MomentID
	SetDuration   int
}

// Boundary is the resolved-on-demand bound of a stream. The concrete types
// below are the only implementations.
type Boundary interface {
	Kind() BoundaryKind
	// Anchors returns the flat form holding only this variant's two anchors.
	Anchors() Anchors
	span(idx MomentYearIndex) (Range, error)
}

// BoundaryFor builds the variant selected by kind from a flat anchor record,
// keeping only the two anchors that kind uses. An unknown kind yields a
// boundary whose resolution fails with ErrUnknownBoundaryKind.
func BoundaryFor(kind BoundaryKind, a Anchors) Boundary {
	switch kind {
	case DateToDate:
		return DateToDateBoundary{Start: a.StartDate, Stop: a.StopDate}
	case DateToMoment:
		return DateToMomentBoundary{Start: a.StartDate, Stop: a.StopMomentID}
	case DateToDuration:
		return DateToDurationBoundary{Start: a.StartDate, Years: a.SetDuration}
	case MomentToDate:
		return MomentToDateBoundary{Start: a.StartMomentID, Stop: a.StopDate}
	case MomentToMoment:
		return MomentToMomentBoundary{Start: a.StartMomentID, Stop: a.StopMomentID}
	case MomentToDuration:
		return MomentToDurationBoundary{Start: a.StartMomentID, Years: a.SetDuration}
	case DurationToDate:
		return DurationToDateBoundary{Years: a.SetDuration, Stop: a.StopDate}
	case DurationToMoment:
		return DurationToMomentBoundary{Years: a.SetDuration, Stop: a.StopMomentID}
	default:
		return unknownBoundary{kind: kind}
	}
}

type (
	// DateToDateBoundary runs from a fixed date to a fixed date.
	DateToDateBoundary struct {
		Start time.Time
		Stop  time.Time
	}
	// DateToMomentBoundary runs from a fixed date until a moment.
	DateToMomentBoundary struct {
		Start time.Time
		Stop  MomentID
	}
	// DateToDurationBoundary runs from a fixed date for Years years.
	DateToDurationBoundary struct {
		Start time.Time
		Years int
	}
	// MomentToDateBoundary runs from a moment to a fixed date.
	MomentToDateBoundary struct {
		Start MomentID
		Stop  time.Time
	}
	// MomentToMomentBoundary runs from one moment to another.
	MomentToMomentBoundary struct {
		Start MomentID
		Stop  MomentID
	}
	// MomentToDurationBoundary runs from a moment for Years years.
	MomentToDurationBoundary struct {
		Start MomentID
		Years int
	}
	// DurationToDateBoundary runs for Years years ending at a fixed date.
	DurationToDateBoundary struct {
		Years int
		Stop  time.Time
	}
	// DurationToMomentBoundary runs for Years years ending at a moment.
	DurationToMomentBoundary struct {
		Years int
		Stop  MomentID
	}

	unknownBoundary struct {
		kind BoundaryKind
	}
)

func (DateToDateBoundary) Kind() BoundaryKind       { return DateToDate }
func (DateToMomentBoundary) Kind() BoundaryKind     { return DateToMoment }
func (DateToDurationBoundary) Kind() BoundaryKind   { return DateToDuration }
func (MomentToDateBoundary) Kind() BoundaryKind     { return MomentToDate }
func (MomentToMomentBoundary) Kind() BoundaryKind   { return MomentToMoment }
func (MomentToDurationBoundary) Kind() BoundaryKind { return MomentToDuration }
func (DurationToDateBoundary) Kind() BoundaryKind   { return DurationToDate }
func (DurationToMomentBoundary) Kind() BoundaryKind { return DurationToMoment }
func (b unknownBoundary) Kind() BoundaryKind        { return b.kind }

func (b DateToDateBoundary) Anchors() Anchors {
	return Anchors{StartDate: b.Start, StopDate: b.Stop}
}

func (b DateToMomentBoundary) Anchors() Anchors {
	return Anchors{StartDate: b.Start, StopMomentID: b.Stop}
}

func (b DateToDurationBoundary) Anchors() Anchors {
	return Anchors{StartDate: b.Start, SetDuration: b.Years}
}

func (b MomentToDateBoundary) Anchors() Anchors {
	return Anchors{StartMomentID: b.Start, StopDate: b.Stop}
}

func (b MomentToMomentBoundary) Anchors() Anchors {
	return Anchors{StartMomentID: b.Start, StopMomentID: b.Stop}
}

func (b MomentToDurationBoundary) Anchors() Anchors {
	return Anchors{StartMomentID: b.Start, SetDuration: b.Years}
}

func (b DurationToDateBoundary) Anchors() Anchors {
	return Anchors{SetDuration: b.Years, StopDate: b.Stop}
}

func (b DurationToMomentBoundary) Anchors() Anchors {
	return Anchors{SetDuration: b.Years, StopMomentID: b.Stop}
}

func (unknownBoundary) Anchors() Anchors { return Anchors{} }

func (b DateToDateBoundary) span(_ MomentYearIndex) (Range, error) {
	first, okStart := dateYear(b.Start)
	last, okStop := dateYear(b.Stop)
	if !okStart || !okStop {
		return Range{}, unresolvable(b.Kind(), "between %s and %s", fmtDate(b.Start), fmtDate(b.Stop))
	}
	return Range{First: first, Last: last}, nil
}

func (b DateToMomentBoundary) span(idx MomentYearIndex) (Range, error) {
	first, okStart := dateYear(b.Start)
	last, okStop := idx.lookup(b.Stop)
	if !okStart || !okStop {
		return Range{}, unresolvable(b.Kind(), "between date %s and moment %q", fmtDate(b.Start), b.Stop)
	}
	return Range{First: first, Last: last}, nil
}

func (b DateToDurationBoundary) span(_ MomentYearIndex) (Range, error) {
	first, okStart := dateYear(b.Start)
	if !okStart || b.Years == 0 {
		return Range{}, unresolvable(b.Kind(), "between %s and a duration of %d", fmtDate(b.Start), b.Years)
	}
	return Range{First: first, Last: first + Year(b.Years)}, nil
}

func (b MomentToDateBoundary) span(idx MomentYearIndex) (Range, error) {
	first, okStart := idx.lookup(b.Start)
	last, okStop := dateYear(b.Stop)
	if !okStart || !okStop {
		return Range{}, unresolvable(b.Kind(), "between moment %q and date %s", b.Start, fmtDate(b.Stop))
	}
	return Range{First: first, Last: last}, nil
}

func (b MomentToMomentBoundary) span(idx MomentYearIndex) (Range, error) {
	first, okStart := idx.lookup(b.Start)
	last, okStop := idx.lookup(b.Stop)
	if !okStart || !okStop {
		return Range{}, unresolvable(b.Kind(), "between moment %q and moment %q", b.Start, b.Stop)
	}
	return Range{First: first, Last: last}, nil
}

func (b MomentToDurationBoundary) span(idx MomentYearIndex) (Range, error) {
	first, okStart := idx.lookup(b.Start)
	if !okStart || b.Years == 0 {
		return Range{}, unresolvable(b.Kind(), "between moment %q and a duration of %d", b.Start, b.Years)
	}
	return Range{First: first, Last: first + Year(b.Years)}, nil
}

func (b DurationToDateBoundary) span(_ MomentYearIndex) (Range, error) {
	last, okStop := dateYear(b.Stop)
	if b.Years == 0 || !okStop {
		return Range{}, unresolvable(b.Kind(), "with a duration of %d and stop date %s", b.Years, fmtDate(b.Stop))
	}
	return Range{First: last - Year(b.Years), Last: last}, nil
}

func (b DurationToMomentBoundary) span(idx MomentYearIndex) (Range, error) {
	last, okStop := idx.lookup(b.Stop)
	if b.Years == 0 || !okStop {
		return Range{}, unresolvable(b.Kind(), "with a duration of %d and stop moment %q", b.Years, b.Stop)
	}
	return Range{First: last - Year(b.Years), Last: last}, nil
}

func (b unknownBoundary) span(_ MomentYearIndex) (Range, error) {
	return Range{}, fmt.Errorf("%w: %q", ErrUnknownBoundaryKind, b.kind)
}

func dateYear(t time.Time) (Year, bool) {
	if t.IsZero() {
		return 0, false
	}
	return YearOf(t), true
}

func fmtDate(t time.Time) string {
	if t.IsZero() {
		return "<unset>"
	}
	return t.UTC().Format(time.DateOnly)
}

func unresolvable(kind BoundaryKind, format string, args ...any) error {
	return fmt.Errorf("%w: %s %s", ErrUnresolvableBoundary, kind, fmt.Sprintf(format, args...))
}
