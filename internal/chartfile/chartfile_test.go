package chartfile

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/starford/fehu/internal/apperr"
	"github.com/starford/fehu/internal/chart"
)

const sample = `id: c1
name: Retirement
owner: alice@test.run
start_date: 2024-01-01
stop_date: 2034-01-01
savings: 1000
moments:
  - id: sale
    name: Sale
    date: 2025-06-30T12:00:00Z
streams:
  - id: salary
    name: Salary
    amount_per_yr: 60000
    color: sky
    boundary: Date_to_Date
    start_date: 2024-01-01
    stop_date: 2034-01-01
    set_duration: 3
  - id: loan
    name: Loan
    amount_per_yr: -36000
    boundary: Moment_to_Duration
    start_moment_id: sale
    set_duration: 7
`

func TestParse_Sample(t *testing.T) {
	doc, err := Parse([]byte(sample))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if doc.ID != "c1" || doc.Name != "Retirement" {
		t.Errorf("doc = %+v", doc)
	}
	if got := doc.StartDate.String(); got != "2024-01-01" {
		t.Errorf("start_date = %q", got)
	}
	if got := doc.Moments[0].Date.Year(); got != 2025 {
		t.Errorf("moment year = %d, want 2025", got)
	}

	c := doc.Chart()
	if c.Streams[0].Color != chart.Sky {
		t.Errorf("color = %q, want SKY", c.Streams[0].Color)
	}
	if c.Streams[0].Kind() != chart.DateToDate {
		t.Errorf("kind = %q", c.Streams[0].Kind())
	}
	if c.Streams[1].AmountPerYr != -36000 {
		t.Errorf("amount = %d", c.Streams[1].AmountPerYr)
	}

	d, err := chart.Build(c)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if d.Totals[1] != 60000-36000 {
		t.Errorf("totals[1] = %d", d.Totals[1])
	}
}

func TestParse_IrrelevantAnchorIgnored(t *testing.T) {
	doc, err := Parse([]byte(sample))
	if err != nil {
		t.Fatal(err)
	}
	b := doc.Chart().Streams[0].Boundary
	if b.Anchors().SetDuration != 0 {
		t.Errorf("Date_to_Date should drop set_duration, anchors = %+v", b.Anchors())
	}
}

func TestParse_Invalid(t *testing.T) {
	cases := map[string]string{
		"empty":           "",
		"not yaml":        "id: [",
		"unknown key":     "id: c\nname: n\ncolour: red\n",
		"missing name":    "id: c\n",
		"bad date":        "id: c\nname: n\nstart_date: 01/02/2024\n",
		"bad boundary":    "id: c\nname: n\nstreams:\n  - {id: s, name: s, amount_per_yr: 1, boundary: Forever}\n",
		"bad color":       "id: c\nname: n\nstreams:\n  - {id: s, name: s, amount_per_yr: 1, boundary: Date_to_Date, color: teal}\n",
		"missing amount":  "id: c\nname: n\nstreams:\n  - {id: s, name: s, boundary: Date_to_Date}\n",
		"duplicate ids":   "id: c\nname: n\nmoments:\n  - {id: m, name: a, date: 2024-01-01}\n  - {id: m, name: b, date: 2025-01-01}\n",
		"moment no date":  "id: c\nname: n\nmoments:\n  - {id: m, name: a}\n",
		"stream no id":    "id: c\nname: n\nstreams:\n  - {name: s, amount_per_yr: 1, boundary: Date_to_Date}\n",
		"moment not list": "id: c\nname: n\nmoments: nope\n",
		"hidden id":       "id: .x\nname: n\n",
		"nested id":       "id: a/b\nname: n\n",
		"escaping id":     "id: ../x\nname: n\n",
	}
	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(in))
			if !errors.Is(err, apperr.ErrInvalid) {
				t.Errorf("err = %v, want ErrInvalid", err)
			}
		})
	}
}

func TestValidate_ChartID(t *testing.T) {
	for _, id := range []string{"plan", "demo123", "Plan_2024-b", "0f8e7c1a-3b2d-4c5e-9f60-718293a4b5c6"} {
		if err := (&Document{ID: id, Name: "n"}).Validate(); err != nil {
			t.Errorf("Validate(%q) = %v, want nil", id, err)
		}
	}
	for _, id := range []string{".x", "a/b", "../x", `a\b`, "-x", "a.b", "a b"} {
		if err := (&Document{ID: id, Name: "n"}).Validate(); !errors.Is(err, apperr.ErrInvalid) {
			t.Errorf("Validate(%q) = %v, want ErrInvalid", id, err)
		}
	}
}

func TestMarshal_RoundTripsThroughParse(t *testing.T) {
	doc, err := Parse([]byte(sample))
	if err != nil {
		t.Fatal(err)
	}
	*doc.Streams[0].AmountPerYr = 65000

	out, err := Marshal(doc)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if !strings.Contains(string(out), "start_date: 2024-01-01\n") {
		t.Errorf("dates should be written as plain YYYY-MM-DD:\n%s", out)
	}
	if strings.Contains(string(out), `"20`) {
		t.Errorf("dates should not be quoted:\n%s", out)
	}
	if strings.Contains(string(out), "start_moment_id: \"\"") {
		t.Errorf("empty anchors should be omitted:\n%s", out)
	}

	again, err := Parse(out)
	if err != nil {
		t.Fatalf("reparse: %v\n%s", err, out)
	}
	if *again.Streams[0].AmountPerYr != 65000 {
		t.Errorf("amount = %d, want 65000", *again.Streams[0].AmountPerYr)
	}
	if got := again.Moments[0].Date.String(); got != "2025-06-30" {
		t.Errorf("moment date = %q, want 2025-06-30", got)
	}
}

func TestDocument_JSONDates(t *testing.T) {
	in := `{"id":"c","name":"n","start_date":"2024-01-01","stop_date":"2030-12-31T00:00:00Z","streams":[]}`
	var doc Document
	if err := json.Unmarshal([]byte(in), &doc); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !doc.StopDate.Equal(time.Date(2030, 12, 31, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("stop_date = %v", doc.StopDate)
	}
	out, _ := json.Marshal(doc)
	if !strings.Contains(string(out), `"start_date":"2024-01-01"`) {
		t.Errorf("json = %s", out)
	}
}

func TestFillIDs(t *testing.T) {
	doc := &Document{
		Name:    "n",
		Moments: []Moment{{Name: "m"}},
		Streams: []Stream{{ID: "keep", Name: "a"}, {Name: "b"}},
	}
	if !doc.FillIDs() {
		t.Fatal("expected ids to be assigned")
	}
	if doc.ID == "" || doc.Moments[0].ID == "" || doc.Streams[1].ID == "" {
		t.Errorf("ids not filled: %+v", doc)
	}
	if doc.Streams[0].ID != "keep" {
		t.Errorf("existing id replaced: %q", doc.Streams[0].ID)
	}
	if doc.FillIDs() {
		t.Error("second call should be a no-op")
	}
}
