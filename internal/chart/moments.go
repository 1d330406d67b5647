package chart

// MomentYearIndex maps moment ids to the year each moment falls in.
type MomentYearIndex map[MomentID]Year

// BuildMomentYearIndex indexes moments by id. When ids repeat the later
// moment wins.
func BuildMomentYearIndex(moments []Moment) MomentYearIndex {
	idx := make(MomentYearIndex, len(moments))
	for _, m := range moments {
		idx[m.ID] = YearOf(m.Date)
	}
	return idx
}

func (idx MomentYearIndex) lookup(id MomentID) (Year, bool) {
	if id == "" {
		return 0, false
	}
	y, ok := idx[id]
	return y, ok
}
