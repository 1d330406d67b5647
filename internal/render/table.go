// Package render prints computed charts as plain-text year tables.
package render

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/starford/fehu/internal/chart"
)

// Table writes one row per axis year with a column per stream followed by
// the total and running balance. Stream cells use the shortened K/M form;
// years a stream does not cover are shown as "-".
func Table(w io.Writer, d *chart.Data) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)

	header := []string{"Year"}
	for _, s := range d.Streams {
		header = append(header, s.Name)
	}
	header = append(header, "Total", "Balance")
	if _, err := fmt.Fprintln(tw, strings.Join(header, "\t")+"\t"); err != nil {
		return err
	}

	for i, y := range d.XAxis {
		row := []string{fmt.Sprintf("%d", y)}
		for _, s := range d.Streams {
			row = append(row, cell(s.Data[i]))
		}
		row = append(row, fmt.Sprintf("%d", at(d.Totals, i)), fmt.Sprintf("%d", at(d.Balance, i)))
		if _, err := fmt.Fprintln(tw, strings.Join(row, "\t")+"\t"); err != nil {
			return err
		}
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	for _, warn := range d.Warnings {
		if _, err := fmt.Fprintf(w, "warning: %s\n", warn); err != nil {
			return err
		}
	}
	for _, skipped := range d.Skipped {
		if _, err := fmt.Fprintf(w, "skipped: %s\n", skipped.Error()); err != nil {
			return err
		}
	}
	return nil
}

func cell(v chart.Amount) string {
	if v == 0 {
		return "-"
	}
	return chart.Shorten(v)
}

func at(vs []chart.Amount, i int) chart.Amount {
	if i < len(vs) {
		return vs[i]
	}
	return 0
}
