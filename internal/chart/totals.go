package chart

import "fmt"

// SumTotals adds the streams column by column. All streams must share the
// same length; a mismatch is a programming error and panics.
func SumTotals(streams []StreamWithData) []Amount {
	if len(streams) == 0 {
		return []Amount{}
	}
	n := len(streams[0].Data)
	totals := make([]Amount, n)
	for _, s := range streams {
		if len(s.Data) != n {
			panic(fmt.Sprintf("chart: stream %q has %d values, want %d", s.Name, len(s.Data), n))
		}
		for i, v := range s.Data {
			totals[i] += v
		}
	}
	return totals
}

// RunningBalance returns savings plus the cumulative totals at each position.
func RunningBalance(savings Amount, totals []Amount) []Amount {
	balance := make([]Amount, len(totals))
	acc := savings
	for i, v := range totals {
		acc += v
		balance[i] = acc
	}
	return balance
}
