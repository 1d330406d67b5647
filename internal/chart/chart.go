// Package chart derives year-indexed cash-flow data from a chart definition.
//
// A chart is a reportable range of years plus a set of moments (dated events)
// and streams (signed yearly cash flows). Each stream is bounded by a pair of
// anchors chosen from a fixed date, a moment or a duration in years. The
// package resolves those anchors to inclusive year ranges, lays every stream
// out over the chart's x-axis and sums the result per year.
//
// Everything here is a pure function over in-memory values. Callers fetch a
// consistent snapshot of a chart before calling Build.
package chart

import (
	"errors"
	"fmt"
	"time"
)

// Supported year window for chart and stream boundaries.
const (
	MinYear Year = 2000
	MaxYear Year = 2100
)

var (
	ErrMissingChartDate     = errors.New("chart: missing start or stop date")
	ErrChartDateOutOfRange  = errors.New("chart: date out of range")
	ErrUnresolvableBoundary = errors.New("chart: stream boundary can not be resolved")
	ErrOutOfRange           = errors.New("chart: stream boundary out of range")
	ErrUnknownBoundaryKind  = errors.New("chart: unknown stream boundary kind")
)

type (
	// Year is a calendar year.
	Year int

	// Amount is a signed yearly amount in whole currency units.
	Amount int64

	// MomentID identifies a moment within its chart.
	MomentID string

	// StreamID identifies a stream within its chart.
	StreamID string

	// Moment is a named, dated event that streams can be anchored to.
	Moment struct {
		ID   MomentID  `json:"id"`
		Name string    `json:"name"`
		Date time.Time `json:"date"`
	}

	// Stream is a recurring cash flow. A positive AmountPerYr is income,
	// anything else an expense.
	Stream struct {
		ID          StreamID `json:"id"`
		Name        string   `json:"name"`
		AmountPerYr Amount   `json:"amount_per_yr"`
		Color       Color    `json:"color,omitempty"`
		Boundary    Boundary `json:"-"`
	}

	// Chart is one financial scenario.
	Chart struct {
		ID        string    `json:"id"`
		Name      string    `json:"name"`
		Owner     string    `json:"owner,omitempty"`
		StartDate time.Time `json:"start_date"`
		StopDate  time.Time `json:"stop_date"`
		Savings   Amount    `json:"savings"`
		Moments   []Moment  `json:"moments"`
		Streams   []Stream  `json:"streams"`
	}
)

// IsIncome reports whether the stream adds money.
func (s Stream) IsIncome() bool {
	return s.AmountPerYr > 0
}

// Kind returns the stream's boundary kind, or "" when it has none.
func (s Stream) Kind() BoundaryKind {
	if s.Boundary == nil {
		return ""
	}
	return s.Boundary.Kind()
}

// YearOf returns the UTC calendar year of t.
func YearOf(t time.Time) Year {
	return Year(t.UTC().Year())
}

// InRange reports whether y lies in the supported window.
func (y Year) InRange() bool {
	return y >= MinYear && y <= MaxYear
}

// StreamError ties a stream-level failure to the stream that caused it.
type StreamError struct {
	Ordinal int
	ID      StreamID
	Name    string
	Err     error
}

func (e *StreamError) Error() string {
	return fmt.Sprintf("stream %q (#%d): %v", e.Name, e.Ordinal, e.Err)
}

func (e *StreamError) Unwrap() error {
	return e.Err
}
