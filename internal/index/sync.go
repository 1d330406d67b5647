package index

import (
	"log/slog"
	"strings"
	"time"

	"github.com/starford/fehu/internal/chart"
	"github.com/starford/fehu/internal/chartfile"
	"github.com/starford/fehu/internal/checksum"
	"github.com/starford/fehu/internal/storage"
)

// SyncStats summarises one Sync pass.
type SyncStats struct {
	Indexed int
	Removed int
	Failed  int
}

// Sync walks the vault and brings the index up to date:
//   - new/changed files are parsed and upserted
//   - files removed from disk are deleted from the index
//
// Files that fail to parse are logged and counted, not fatal.
func Sync(db *DB, store storage.Provider, logger *slog.Logger) (SyncStats, error) {
	var stats SyncStats

	metas, err := store.List("")
	if err != nil {
		return stats, err
	}

	checksums, err := db.AllChecksums()
	if err != nil {
		return stats, err
	}

	disk := make(map[string]struct{}, len(metas))
	for _, m := range metas {
		disk[m.Path] = struct{}{}

		if checksums[m.Path] == m.Checksum {
			continue
		}

		data, err := store.Read(m.Path)
		if err != nil {
			stats.Failed++
			logger.Warn("sync: read failed", slog.String("path", m.Path), slog.String("error", err.Error()))
			continue
		}
		if err := IndexFile(db, m.Path, data, m.UpdatedAt); err != nil {
			stats.Failed++
			logger.Warn("sync: index failed", slog.String("path", m.Path), slog.String("error", err.Error()))
			continue
		}
		stats.Indexed++
		logger.Debug("sync: indexed", slog.String("path", m.Path))
	}

	// Remove stale entries.
	for p := range checksums {
		if _, ok := disk[p]; ok {
			continue
		}
		if err := db.DeleteChart(p); err != nil {
			stats.Failed++
			logger.Warn("sync: delete failed", slog.String("path", p), slog.String("error", err.Error()))
			continue
		}
		stats.Removed++
		logger.Debug("sync: removed stale", slog.String("path", p))
	}

	return stats, nil
}

// IndexFile parses a chart document and upserts it into the index.
func IndexFile(db ChartIndex, path string, data []byte, updatedAt time.Time) error {
	doc, err := chartfile.Parse(data)
	if err != nil {
		return err
	}
	if updatedAt.IsZero() {
		updatedAt = time.Now()
	}
	c := doc.Chart()

	row := ChartRow{
		Path:      path,
		ID:        c.ID,
		Name:      c.Name,
		Owner:     c.Owner,
		StartYear: yearOrZero(c.StartDate),
		StopYear:  yearOrZero(c.StopDate),
		Savings:   int64(c.Savings),
		Checksum:  checksum.Sum(data),
		UpdatedAt: updatedAt,
	}

	moments := make([]MomentRow, 0, len(c.Moments))
	for _, m := range c.Moments {
		moments = append(moments, MomentRow{ID: string(m.ID), Name: m.Name, Year: yearOrZero(m.Date)})
	}

	streams := make([]StreamRow, 0, len(c.Streams))
	for _, s := range c.Streams {
		a := s.Boundary.Anchors()
		streams = append(streams, StreamRow{
			ID:            string(s.ID),
			Name:          s.Name,
			AmountPerYr:   int64(s.AmountPerYr),
			Color:         string(s.Color),
			Boundary:      string(s.Kind()),
			StartMomentID: string(a.StartMomentID),
			StopMomentID:  string(a.StopMomentID),
		})
	}

	return db.UpsertChart(row, moments, streams, searchBody(c))
}

func yearOrZero(t time.Time) int {
	if t.IsZero() {
		return 0
	}
	return int(chart.YearOf(t))
}

// searchBody is the text searched for a chart: owner, moment and stream names.
func searchBody(c chart.Chart) string {
	var b strings.Builder
	b.WriteString(c.Owner)
	for _, m := range c.Moments {
		b.WriteString("\n")
		b.WriteString(m.Name)
	}
	for _, s := range c.Streams {
		b.WriteString("\n")
		b.WriteString(s.Name)
	}
	return b.String()
}
