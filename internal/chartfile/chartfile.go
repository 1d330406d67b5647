// Package chartfile reads and writes chart documents, the YAML files that
// make up the vault.
package chartfile

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"regexp"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/starford/fehu/internal/apperr"
	"github.com/starford/fehu/internal/chart"
)

// chartIDPattern limits chart ids to names usable as a vault file stem: no
// separators, no leading dot.
var chartIDPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_-]*$`)

// Document is the persisted form of a chart.
type Document struct {
	ID        string   `yaml:"id" json:"id"`
	Name      string   `yaml:"name" json:"name"`
	Owner     string   `yaml:"owner,omitempty" json:"owner,omitempty"`
	StartDate Date     `yaml:"start_date" json:"start_date"`
	StopDate  Date     `yaml:"stop_date" json:"stop_date"`
	Savings   int64    `yaml:"savings,omitempty" json:"savings"`
	Moments   []Moment `yaml:"moments,omitempty" json:"moments"`
	Streams   []Stream `yaml:"streams,omitempty" json:"streams"`
}

// Moment is a dated event record.
type Moment struct {
	ID   string `yaml:"id" json:"id"`
	Name string `yaml:"name" json:"name"`
	Date Date   `yaml:"date" json:"date"`
}

// Stream is a cash-flow record. Only the two anchors named by Boundary are
// used; the others may be present and are ignored.
type Stream struct {
	ID            string `yaml:"id" json:"id"`
	Name          string `yaml:"name" json:"name"`
	AmountPerYr   *int64 `yaml:"amount_per_yr" json:"amount_per_yr"`
	Color         string `yaml:"color,omitempty" json:"color,omitempty"`
	Boundary      string `yaml:"boundary" json:"boundary"`
	StartDate     Date   `yaml:"start_date,omitempty" json:"start_date,omitempty"`
	StopDate      Date   `yaml:"stop_date,omitempty" json:"stop_date,omitempty"`
	StartMomentID string `yaml:"start_moment_id,omitempty" json:"start_moment_id,omitempty"`
	StopMomentID  string `yaml:"stop_moment_id,omitempty" json:"stop_moment_id,omitempty"`
	SetDuration   int    `yaml:"set_duration,omitempty" json:"set_duration,omitempty"`
}

// Parse decodes and validates a chart document. Unknown keys are rejected.
// All failures wrap apperr.ErrInvalid.
func Parse(data []byte) (*Document, error) {
	doc, err := Decode(data)
	if err != nil {
		return nil, err
	}
	if err := doc.Validate(); err != nil {
		return nil, err
	}
	return doc, nil
}

// Decode decodes a chart document without validating it, so callers can
// fill in missing ids first.
func Decode(data []byte) (*Document, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var doc Document
	if err := dec.Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: chartfile: empty document", apperr.ErrInvalid)
		}
		return nil, fmt.Errorf("%w: chartfile: decode: %v", apperr.ErrInvalid, err)
	}
	return &doc, nil
}

// Marshal encodes the document as YAML.
func Marshal(doc *Document) ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return nil, fmt.Errorf("chartfile: encode: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("chartfile: encode: %w", err)
	}
	return buf.Bytes(), nil
}

// Validate checks the document structure. Whether anchors resolve is left to
// the chart engine.
func (d *Document) Validate() error {
	err := validation.ValidateStruct(d,
		validation.Field(&d.ID, validation.Required,
			validation.Match(chartIDPattern).Error("must be letters, digits, '-' or '_' and start with a letter or digit")),
		validation.Field(&d.Name, validation.Required),
		validation.Field(&d.Moments, validation.By(uniqueMomentIDs)),
		validation.Field(&d.Streams, validation.By(uniqueStreamIDs)),
	)
	if err != nil {
		return fmt.Errorf("%w: %w", apperr.ErrInvalid, err)
	}
	return nil
}

func (m Moment) Validate() error {
	return validation.ValidateStruct(&m,
		validation.Field(&m.ID, validation.Required),
		validation.Field(&m.Name, validation.Required),
		validation.Field(&m.Date, validation.By(requiredDate)),
	)
}

func (s Stream) Validate() error {
	return validation.ValidateStruct(&s,
		validation.Field(&s.ID, validation.Required),
		validation.Field(&s.Name, validation.Required),
		validation.Field(&s.AmountPerYr, validation.NotNil),
		validation.Field(&s.Boundary, validation.Required, validation.By(knownBoundary)),
		validation.Field(&s.Color, validation.By(knownColor)),
	)
}

func requiredDate(v any) error {
	if d, ok := v.(Date); ok && d.IsZero() {
		return errors.New("cannot be blank")
	}
	return nil
}

func knownBoundary(v any) error {
	s, _ := v.(string)
	if !chart.BoundaryKind(s).Valid() {
		return fmt.Errorf("unknown boundary %q", s)
	}
	return nil
}

func knownColor(v any) error {
	s, _ := v.(string)
	if _, ok := chart.ParseColor(s); !ok {
		return fmt.Errorf("unknown color %q", s)
	}
	return nil
}

func uniqueMomentIDs(v any) error {
	moments, _ := v.([]Moment)
	seen := make(map[string]struct{}, len(moments))
	for _, m := range moments {
		if m.ID == "" {
			continue
		}
		if _, dup := seen[m.ID]; dup {
			return fmt.Errorf("duplicate moment id %q", m.ID)
		}
		seen[m.ID] = struct{}{}
	}
	return nil
}

func uniqueStreamIDs(v any) error {
	streams, _ := v.([]Stream)
	seen := make(map[string]struct{}, len(streams))
	for _, s := range streams {
		if s.ID == "" {
			continue
		}
		if _, dup := seen[s.ID]; dup {
			return fmt.Errorf("duplicate stream id %q", s.ID)
		}
		seen[s.ID] = struct{}{}
	}
	return nil
}

// FillIDs assigns random ids to the chart, moments and streams that lack
// one. It reports whether anything changed.
func (d *Document) FillIDs() bool {
	changed := false
	if d.ID == "" {
		d.ID = uuid.NewString()
		changed = true
	}
	for i := range d.Moments {
		if d.Moments[i].ID == "" {
			d.Moments[i].ID = uuid.NewString()
			changed = true
		}
	}
	for i := range d.Streams {
		if d.Streams[i].ID == "" {
			d.Streams[i].ID = uuid.NewString()
			changed = true
		}
	}
	return changed
}

// Stream returns the stream record with the given id.
func (d *Document) Stream(id string) (*Stream, bool) {
	for i := range d.Streams {
		if d.Streams[i].ID == id {
			return &d.Streams[i], true
		}
	}
	return nil, false
}

// Chart converts the document into the engine's model.
func (d *Document) Chart() chart.Chart {
	c := chart.Chart{
		ID:        d.ID,
		Name:      d.Name,
		Owner:     d.Owner,
		StartDate: d.StartDate.Time,
		StopDate:  d.StopDate.Time,
		Savings:   chart.Amount(d.Savings),
		Moments:   make([]chart.Moment, 0, len(d.Moments)),
		Streams:   make([]chart.Stream, 0, len(d.Streams)),
	}
	for _, m := range d.Moments {
		c.Moments = append(c.Moments, chart.Moment{
			ID:   chart.MomentID(m.ID),
			Name: m.Name,
			Date: m.Date.Time,
		})
	}
	for _, s := range d.Streams {
		c.Streams = append(c.Streams, s.stream())
	}
	return c
}

func (s Stream) stream() chart.Stream {
	var amount chart.Amount
	if s.AmountPerYr != nil {
		amount = chart.Amount(*s.AmountPerYr)
	}
	color, _ := chart.ParseColor(s.Color)
	return chart.Stream{
		ID:          chart.StreamID(s.ID),
		Name:        s.Name,
		AmountPerYr: amount,
		Color:       color,
		Boundary: chart.BoundaryFor(chart.BoundaryKind(s.Boundary), chart.Anchors{
			StartDate:     s.StartDate.Time,
			StopDate:      s.StopDate.Time,
			StartMomentID: chart.MomentID(s.StartMomentID),
			StopMomentID:  chart.MomentID(s.StopMomentID),
			SetDuration:   s.SetDuration,
		}),
	}
}

// Amount returns a pointer suitable for Stream.AmountPerYr.
func Amount(v int64) *int64 {
	return &v
}
