package chart

import (
	"fmt"
	"log/slog"
)

// Data is the computed form of a chart, aligned to XAxis.
type Data struct {
	XAxis   []Year           `json:"x_axis"`
	Streams []StreamWithData `json:"streams_with_data"`
	Totals  []Amount         `json:"totals"`
	Balance []Amount         `json:"balance"`
	// Warnings lists non-fatal issues such as inverted stream ranges.
	Warnings []string `json:"warnings,omitempty"`
	// Skipped holds the streams excluded under SkipInvalidStreams.
	Skipped []*StreamError `json:"-"`
}

// Income returns the materialized income streams in chart order.
func (d *Data) Income() []StreamWithData {
	return d.partition(true)
}

// Expenses returns the materialized expense streams in chart order.
func (d *Data) Expenses() []StreamWithData {
	return d.partition(false)
}

func (d *Data) partition(income bool) []StreamWithData {
	out := make([]StreamWithData, 0, len(d.Streams))
	for _, s := range d.Streams {
		if s.IsIncome == income {
			out = append(out, s)
		}
	}
	return out
}

type buildOptions struct {
	logger      *slog.Logger
	skipInvalid bool
}

// Option configures Build.
type Option func(*buildOptions)

// WithLogger sets the logger used for soft warnings.
func WithLogger(l *slog.Logger) Option {
	return func(o *buildOptions) {
		if l != nil {
			o.logger = l
		}
	}
}

// SkipInvalidStreams makes Build exclude streams whose boundary fails to
// resolve instead of failing the whole chart.
func SkipInvalidStreams() Option {
	return func(o *buildOptions) {
		o.skipInvalid = true
	}
}

// Build runs the full pipeline: x-axis, moment index, per-stream resolution
// and materialization, totals and running balance.
func Build(c Chart, opts ...Option) (*Data, error) {
	o := buildOptions{logger: slog.Default()}
	for _, fn := range opts {
		fn(&o)
	}

	axis, err := BuildXAxis(c.StartDate, c.StopDate)
	if err != nil {
		return nil, err
	}
	idx := BuildMomentYearIndex(c.Moments)

	d := &Data{
		XAxis:   axis,
		Streams: make([]StreamWithData, 0, len(c.Streams)),
	}
	for i, s := range c.Streams {
		r, err := ResolveStreamRange(s, idx)
		if err != nil {
			serr := &StreamError{Ordinal: i, ID: s.ID, Name: s.Name, Err: err}
			if !o.skipInvalid {
				return nil, serr
			}
			o.logger.Warn("skipping stream",
				slog.String("chart_id", c.ID),
				slog.String("stream_id", string(s.ID)),
				slog.String("error", err.Error()),
			)
			d.Skipped = append(d.Skipped, serr)
			continue
		}
		if r.Inverted() {
			o.logger.Warn("stream range is inverted",
				slog.String("chart_id", c.ID),
				slog.String("stream_id", string(s.ID)),
				slog.Int("first_year", int(r.First)),
				slog.Int("last_year", int(r.Last)),
			)
			d.Warnings = append(d.Warnings,
				fmt.Sprintf("stream %q: last year %d is before first year %d", s.Name, r.Last, r.First))
		}
		d.Streams = append(d.Streams, Materialize(s, r, axis, i))
	}

	d.Totals = SumTotals(d.Streams)
	if len(d.Totals) == 0 {
		// No streams: savings stay flat across the axis.
		d.Balance = RunningBalance(c.Savings, make([]Amount, len(axis)))
	} else {
		d.Balance = RunningBalance(c.Savings, d.Totals)
	}
	return d, nil
}
