// Package chartservice coordinates the vault, the index and the chart engine.
package chartservice

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"sync"
	"time"

	"github.com/starford/fehu/internal/apperr"
	"github.com/starford/fehu/internal/chart"
	"github.com/starford/fehu/internal/chartfile"
	"github.com/starford/fehu/internal/checksum"
	"github.com/starford/fehu/internal/export"
	"github.com/starford/fehu/internal/index"
	"github.com/starford/fehu/internal/models"
	"github.com/starford/fehu/internal/observability/metrics"
	"github.com/starford/fehu/internal/storage"
)

// Change kinds passed to a Notifier. They match the index watcher's.
const (
	ChangeCreated = index.EventCreated
	ChangeUpdated = index.EventUpdated
	ChangeDeleted = index.EventDeleted
)

// ChartDetail is the full representation of a chart.
type ChartDetail struct {
	ID        string                     `json:"id"`
	Path      string                     `json:"path"`
	Checksum  string                     `json:"checksum"`
	Chart     *chartfile.Document        `json:"chart"`
	Dangling  []models.DanglingReference `json:"dangling_references"`
	UpdatedAt time.Time                  `json:"updated_at"`
}

// Export is a rendered chart export.
type Export struct {
	Filename    string
	ContentType string
	Body        []byte
}

// Notifier is told about every chart the service writes or removes.
type Notifier func(kind, path, id string)

// Option configures a Service.
type Option func(*Service)

// WithSkipInvalidStreams makes chart computation drop streams whose boundary
// does not resolve instead of failing.
func WithSkipInvalidStreams(skip bool) Option {
	return func(s *Service) { s.skipInvalid = skip }
}

// WithNotifier registers a change callback.
func WithNotifier(n Notifier) Option {
	return func(s *Service) { s.notify = n }
}

// Service coordinates storage and index operations.
type Service struct {
	store       storage.Provider
	db          index.ChartIndex
	logger      *slog.Logger
	skipInvalid bool
	notify      Notifier
	now         func() time.Time

	// mu serialises read-modify-write cycles on chart files.
	mu sync.Mutex
}

// NewService creates a new chart service.
func NewService(store storage.Provider, db index.ChartIndex, logger *slog.Logger, opts ...Option) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Service{store: store, db: db, logger: logger, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// GetChart loads a chart document and the moment references it cannot resolve.
func (s *Service) GetChart(_ context.Context, id string) (*ChartDetail, error) {
	path, data, err := s.load(id)
	if err != nil {
		return nil, err
	}
	doc, err := chartfile.Parse(data)
	if err != nil {
		return nil, err
	}
	return s.detail(path, doc, data)
}

// GetChartData computes the chart: x-axis, materialized streams, totals and balance.
func (s *Service) GetChartData(_ context.Context, id string) (*chart.Data, error) {
	_, data, err := s.load(id)
	if err != nil {
		return nil, err
	}
	doc, err := chartfile.Parse(data)
	if err != nil {
		return nil, err
	}
	return s.compute(doc)
}

func (s *Service) compute(doc *chartfile.Document) (*chart.Data, error) {
	opts := []chart.Option{chart.WithLogger(s.logger)}
	if s.skipInvalid {
		opts = append(opts, chart.SkipInvalidStreams())
	}

	start := time.Now()
	d, err := chart.Build(doc.Chart(), opts...)
	metrics.ObserveCompute(metrics.ResultOf(err), time.Since(start))
	if err != nil {
		s.logger.Warn("chart compute failed", slog.String("chart_id", doc.ID), slog.String("error", err.Error()))
		return nil, err
	}
	metrics.AddStreamWarnings("inverted", len(d.Warnings))
	metrics.AddStreamWarnings("skipped", len(d.Skipped))
	return d, nil
}

// CreateChart stores a new chart. Missing chart, moment and stream ids are
// generated; the file is written as <id>.yaml at the vault root.
func (s *Service) CreateChart(_ context.Context, content []byte) (*ChartDetail, error) {
	doc, err := chartfile.Decode(content)
	if err != nil {
		return nil, err
	}
	doc.FillIDs()
	if err := doc.Validate(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.db.GetChart(doc.ID); err == nil {
		return nil, fmt.Errorf("chartservice: chart %q: %w", doc.ID, apperr.ErrAlreadyExists)
	} else if !errors.Is(err, apperr.ErrNotFound) {
		return nil, err
	}
	path := doc.ID + ".yaml"
	exists, err := s.store.Exists(path)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, fmt.Errorf("chartservice: %s: %w", path, apperr.ErrAlreadyExists)
	}

	data, err := s.write(path, doc)
	if err != nil {
		return nil, err
	}
	s.logger.Info("chart created", slog.String("chart_id", doc.ID), slog.String("path", path))
	s.emit(ChangeCreated, path, doc.ID)
	return s.detail(path, doc, data)
}

// UpdateChart replaces a chart document. A non-empty ifMatch must equal the
// current checksum. The document id may be omitted but not changed.
func (s *Service) UpdateChart(_ context.Context, id string, content []byte, ifMatch string) (*ChartDetail, error) {
	doc, err := chartfile.Decode(content)
	if err != nil {
		return nil, err
	}
	if doc.ID == "" {
		doc.ID = id
	}
	if doc.ID != id {
		return nil, fmt.Errorf("%w: chart id %q does not match %q", apperr.ErrInvalid, doc.ID, id)
	}
	doc.FillIDs()
	if err := doc.Validate(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	path, existing, err := s.load(id)
	if err != nil {
		return nil, err
	}
	if err := checkMatch(existing, ifMatch); err != nil {
		return nil, err
	}
	data, err := s.write(path, doc)
	if err != nil {
		return nil, err
	}
	s.logger.Info("chart updated", slog.String("chart_id", id), slog.String("path", path))
	s.emit(ChangeUpdated, path, id)
	return s.detail(path, doc, data)
}

// UpdateStreamAmount sets one stream's yearly amount. A negative amount makes
// the stream an expense.
func (s *Service) UpdateStreamAmount(_ context.Context, id, streamID string, amount int64, ifMatch string) (*ChartDetail, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	path, existing, err := s.load(id)
	if err != nil {
		return nil, err
	}
	if err := checkMatch(existing, ifMatch); err != nil {
		return nil, err
	}
	doc, err := chartfile.Parse(existing)
	if err != nil {
		return nil, err
	}
	st, ok := doc.Stream(streamID)
	if !ok {
		return nil, fmt.Errorf("chartservice: stream %q in chart %q: %w", streamID, id, apperr.ErrNotFound)
	}
	st.AmountPerYr = chartfile.Amount(amount)

	data, err := s.write(path, doc)
	if err != nil {
		return nil, err
	}
	s.logger.Info("stream amount updated",
		slog.String("chart_id", id),
		slog.String("stream_id", streamID),
		slog.Int64("amount_per_yr", amount))
	s.emit(ChangeUpdated, path, id)
	return s.detail(path, doc, data)
}

// DeleteChart removes a chart from the vault and the index.
func (s *Service) DeleteChart(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	summary, err := s.db.GetChart(id)
	if err != nil {
		return err
	}
	if err := s.store.Delete(summary.Path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	if err := s.db.DeleteChart(summary.Path); err != nil {
		return err
	}
	s.logger.Info("chart deleted", slog.String("chart_id", id), slog.String("path", summary.Path))
	s.emit(ChangeDeleted, summary.Path, id)
	return nil
}

// ListCharts returns chart summaries, most recently updated first.
func (s *Service) ListCharts(_ context.Context, owner string, limit, offset int) ([]models.ChartSummary, int, error) {
	return s.db.ListCharts(owner, limit, offset)
}

// Search delegates full-text search to the index.
func (s *Service) Search(_ context.Context, query string, limit int) ([]index.SearchResult, error) {
	return s.db.Search(query, limit)
}

// MomentUsages lists the streams of a chart anchored on a moment.
func (s *Service) MomentUsages(_ context.Context, chartID, momentID string) ([]models.MomentUsage, error) {
	if _, err := s.db.GetChart(chartID); err != nil {
		return nil, err
	}
	return s.db.MomentUsages(chartID, momentID)
}

// Export computes a chart and renders it as xlsx or pdf.
func (s *Service) Export(_ context.Context, id, format string) (*Export, error) {
	format, ok := export.ParseFormat(format)
	if !ok {
		return nil, fmt.Errorf("%w: unsupported export format %q", apperr.ErrInvalid, format)
	}
	_, data, err := s.load(id)
	if err != nil {
		return nil, err
	}
	doc, err := chartfile.Parse(data)
	if err != nil {
		return nil, err
	}
	d, err := s.compute(doc)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	body, err := export.Build(format, export.Meta{
		ID:          doc.ID,
		Name:        doc.Name,
		Owner:       doc.Owner,
		Savings:     chart.Amount(doc.Savings),
		GeneratedAt: s.now(),
	}, d)
	metrics.ObserveExport(format, metrics.ResultOf(err), time.Since(start))
	if err != nil {
		return nil, err
	}
	return &Export{
		Filename:    doc.ID + "." + format,
		ContentType: export.ContentType(format),
		Body:        body,
	}, nil
}

// load resolves a chart id to its vault path and reads the file.
func (s *Service) load(id string) (string, []byte, error) {
	summary, err := s.db.GetChart(id)
	if err != nil {
		return "", nil, err
	}
	data, err := s.store.Read(summary.Path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", nil, fmt.Errorf("chartservice: %s: %w", summary.Path, apperr.ErrNotFound)
		}
		return "", nil, err
	}
	return summary.Path, data, nil
}

// write marshals doc, stores it at path and re-indexes it.
// write indexes the new bytes before saving them, so the watcher sees a file
// whose checksum the index already holds and stays quiet. A failed save puts
// the previous index state back.
func (s *Service) write(path string, doc *chartfile.Document) ([]byte, error) {
	data, err := chartfile.Marshal(doc)
	if err != nil {
		return nil, err
	}
	prev, readErr := s.store.Read(path)
	if err := index.IndexFile(s.db, path, data, s.now()); err != nil {
		return nil, err
	}
	if err := s.store.Write(path, data); err != nil {
		if readErr == nil {
			err = errors.Join(err, index.IndexFile(s.db, path, prev, s.now()))
		} else {
			err = errors.Join(err, s.db.DeleteChart(path))
		}
		return nil, err
	}
	return data, nil
}

func (s *Service) detail(path string, doc *chartfile.Document, data []byte) (*ChartDetail, error) {
	dangling, err := s.db.DanglingReferences(doc.ID)
	if err != nil {
		return nil, err
	}
	updated := s.now()
	if summary, err := s.db.GetChart(doc.ID); err == nil {
		updated = summary.UpdatedAt
	}
	return &ChartDetail{
		ID:        doc.ID,
		Path:      path,
		Checksum:  checksum.Sum(data),
		Chart:     doc,
		Dangling:  dangling,
		UpdatedAt: updated,
	}, nil
}

func (s *Service) emit(kind, path, id string) {
	if s.notify != nil {
		s.notify(kind, path, id)
	}
}

func checkMatch(current []byte, ifMatch string) error {
	if ifMatch != "" && ifMatch != checksum.Sum(current) {
		return apperr.ErrConflict
	}
	return nil
}
