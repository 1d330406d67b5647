package chart

import (
	"errors"
	"testing"
	"time"
)

func date(y int) time.Time {
	return time.Date(y, time.January, 1, 0, 0, 0, 0, time.UTC)
}

func TestBuildMomentYearIndex_LaterDuplicateWins(t *testing.T) {
	idx := BuildMomentYearIndex([]Moment{
		{ID: "a", Date: date(2025)},
		{ID: "b", Date: date(2030)},
		{ID: "a", Date: date(2027)},
	})
	if len(idx) != 2 {
		t.Fatalf("len(idx) = %d, want 2", len(idx))
	}
	if idx["a"] != 2027 {
		t.Errorf("idx[a] = %d, want 2027", idx["a"])
	}
}

func TestBuildMomentYearIndex_Empty(t *testing.T) {
	idx := BuildMomentYearIndex(nil)
	if idx == nil || len(idx) != 0 {
		t.Errorf("idx = %v, want empty map", idx)
	}
}

func TestBuildMomentYearIndex_UsesUTCYear(t *testing.T) {
	// 2025-01-01 00:30 in UTC+2 is still 2024 in UTC.
	loc := time.FixedZone("UTC+2", 2*60*60)
	idx := BuildMomentYearIndex([]Moment{{ID: "m", Date: time.Date(2025, 1, 1, 0, 30, 0, 0, loc)}})
	if idx["m"] != 2024 {
		t.Errorf("idx[m] = %d, want 2024", idx["m"])
	}
}

// Every anchor field is populated so that each kind must pick its own pair.
func TestResolveStreamRange_KindMatrix(t *testing.T) {
	idx := MomentYearIndex{"start": 2026, "stop": 2031}
	all := Anchors{
		StartDate:     date(2024),
		StopDate:      date(2034),
		StartMomentID: "start",
		StopMomentID:  "stop",
		SetDuration:   5,
	}

	cases := []struct {
		kind BoundaryKind
		want Range
	}{
		{DateToDate, Range{2024, 2034}},
		{DateToMoment, Range{2024, 2031}},
		{DateToDuration, Range{2024, 2029}},
		{MomentToDate, Range{2026, 2034}},
		{MomentToMoment, Range{2026, 2031}},
		{MomentToDuration, Range{2026, 2031}},
		{DurationToDate, Range{2029, 2034}},
		{DurationToMoment, Range{2026, 2031}},
	}
	for _, tc := range cases {
		t.Run(string(tc.kind), func(t *testing.T) {
			s := Stream{Name: "s", Boundary: BoundaryFor(tc.kind, all)}
			got, err := ResolveStreamRange(s, idx)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tc.want {
				t.Errorf("range = %+v, want %+v", got, tc.want)
			}
			if s.Kind() != tc.kind {
				t.Errorf("kind = %q, want %q", s.Kind(), tc.kind)
			}
		})
	}
}

func TestResolveStreamRange_Deterministic(t *testing.T) {
	idx := MomentYearIndex{"m": 2030}
	s := Stream{Boundary: DurationToMomentBoundary{Years: 3, Stop: "m"}}
	first, err := ResolveStreamRange(s, idx)
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 5; i++ {
		again, err := ResolveStreamRange(s, idx)
		if err != nil {
			t.Fatal(err)
		}
		if again != first {
			t.Fatalf("range changed between calls: %+v vs %+v", again, first)
		}
	}
}

func TestResolveStreamRange_MissingAnchor(t *testing.T) {
	idx := MomentYearIndex{"stop": 2030}
	cases := map[string]Boundary{
		"moment unset":      MomentToMomentBoundary{Stop: "stop"},
		"moment not found":  MomentToMomentBoundary{Start: "gone", Stop: "stop"},
		"date unset":        DateToDateBoundary{Start: date(2024)},
		"duration zero":     DateToDurationBoundary{Start: date(2024)},
		"duration on stop":  DurationToMomentBoundary{Stop: "stop"},
		"stop date missing": DurationToDateBoundary{Years: 2},
	}
	for name, b := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ResolveStreamRange(Stream{Boundary: b}, idx)
			if !errors.Is(err, ErrUnresolvableBoundary) {
				t.Errorf("err = %v, want ErrUnresolvableBoundary", err)
			}
		})
	}
}

func TestResolveStreamRange_OutOfRange(t *testing.T) {
	s := Stream{Boundary: DateToDateBoundary{Start: date(1999), Stop: date(2030)}}
	_, err := ResolveStreamRange(s, nil)
	if !errors.Is(err, ErrOutOfRange) {
		t.Errorf("err = %v, want ErrOutOfRange", err)
	}

	s = Stream{Boundary: DateToDurationBoundary{Start: date(2095), Years: 10}}
	_, err = ResolveStreamRange(s, nil)
	if !errors.Is(err, ErrOutOfRange) {
		t.Errorf("err = %v, want ErrOutOfRange", err)
	}
}

func TestResolveStreamRange_UnknownKind(t *testing.T) {
	s := Stream{Boundary: BoundaryFor("Forever", Anchors{StartDate: date(2024)})}
	_, err := ResolveStreamRange(s, nil)
	if !errors.Is(err, ErrUnknownBoundaryKind) {
		t.Errorf("err = %v, want ErrUnknownBoundaryKind", err)
	}

	_, err = ResolveStreamRange(Stream{}, nil)
	if !errors.Is(err, ErrUnknownBoundaryKind) {
		t.Errorf("nil boundary: err = %v, want ErrUnknownBoundaryKind", err)
	}
}

func TestResolveStreamRange_InvertedIsReturned(t *testing.T) {
	s := Stream{Boundary: DateToDateBoundary{Start: date(2030), Stop: date(2026)}}
	r, err := ResolveStreamRange(s, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !r.Inverted() {
		t.Errorf("range %+v should be inverted", r)
	}
}

func TestResolveStreamRange_NegativeDurationInverts(t *testing.T) {
	s := Stream{Boundary: DateToDurationBoundary{Start: date(2030), Years: -3}}
	r, err := ResolveStreamRange(s, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r != (Range{2030, 2027}) {
		t.Errorf("range = %+v, want {2030 2027}", r)
	}
}

func TestBoundaryFor_AnchorsRoundTrip(t *testing.T) {
	in := Anchors{StartMomentID: "m", SetDuration: 7, StopDate: date(2040)}
	b := BoundaryFor(MomentToDuration, in)
	got := b.Anchors()
	want := Anchors{StartMomentID: "m", SetDuration: 7}
	if got != want {
		t.Errorf("anchors = %+v, want %+v", got, want)
	}
}

func TestBoundaryKind_Valid(t *testing.T) {
	for _, k := range BoundaryKinds() {
		if !k.Valid() {
			t.Errorf("%q should be valid", k)
		}
	}
	if BoundaryKind("date_to_date").Valid() {
		t.Error("tags are case sensitive")
	}
	if len(BoundaryKinds()) != 8 {
		t.Errorf("len(kinds) = %d, want 8", len(BoundaryKinds()))
	}
}
