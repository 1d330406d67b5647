package chart

// StreamWithData is a stream laid out over a chart's x-axis.
type StreamWithData struct {
	ID          StreamID     `json:"id"`
	Name        string       `json:"name"`
	AmountPerYr Amount       `json:"amount_per_yr"`
	Color       Color        `json:"color"`
	Boundary    BoundaryKind `json:"boundary"`
	Range       Range        `json:"range"`
	Data        []Amount     `json:"data"`
	// StartIndex and StopIndex are -1 when the year is not on the axis.
	StartIndex int  `json:"start_index"`
	StopIndex  int  `json:"stop_index"`
	IsIncome   bool `json:"is_income"`
}

// Materialize places the stream's yearly amount on every axis year inside r
// and zero elsewhere. An inverted range matches no year. ordinal picks the
// palette colour when the stream has none.
func Materialize(s Stream, r Range, axis []Year, ordinal int) StreamWithData {
	data := make([]Amount, len(axis))
	for i, y := range axis {
		if r.Contains(y) {
			data[i] = s.AmountPerYr
		}
	}

	color := s.Color
	if color == "" {
		color = ColorFor(ordinal)
	}

	return StreamWithData{
		ID:          s.ID,
		Name:        s.Name,
		AmountPerYr: s.AmountPerYr,
		Color:       color,
		Boundary:    s.Kind(),
		Range:       r,
		Data:        data,
		StartIndex:  axisPosition(axis, r.First),
		StopIndex:   axisPosition(axis, r.Last),
		IsIncome:    s.IsIncome(),
	}
}
