package index

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/starford/fehu/internal/apperr"
	"github.com/starford/fehu/internal/models"
)

// ChartRow represents a row in the charts table.
type ChartRow struct {
	Path      string
	ID        string
	Name      string
	Owner     string
	StartYear int
	StopYear  int
	Savings   int64
	Checksum  string
	UpdatedAt time.Time
}

// MomentRow represents a row in the moments table.
type MomentRow struct {
	ID   string
	Name string
	Year int
}

// StreamRow represents a row in the streams table. Moment ids are only set
// for the anchors the boundary actually uses.
type StreamRow struct {
	ID            string
	Name          string
	AmountPerYr   int64
	Color         string
	Boundary      string
	StartMomentID string
	StopMomentID  string
}

// SearchResult represents one search hit.
type SearchResult struct {
	ID      string `json:"id"`
	Path    string `json:"path"`
	Name    string `json:"name"`
	Snippet string `json:"snippet"`
}

// UpsertChart replaces a chart and its moments and streams within a
// transaction. A chart id already indexed under another path is rejected
// with apperr.ErrAlreadyExists.
func (db *DB) UpsertChart(c ChartRow, moments []MomentRow, streams []StreamRow, body string) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	var other string
	err = tx.QueryRow(`SELECT path FROM charts WHERE id = ? AND path <> ?`, c.ID, c.Path).Scan(&other)
	switch {
	case err == nil:
		return fmt.Errorf("index: chart id %q already indexed at %s: %w", c.ID, other, apperr.ErrAlreadyExists)
	case !errors.Is(err, sql.ErrNoRows):
		return fmt.Errorf("index: check id: %w", err)
	}

	if err := deleteByPath(tx, c.Path); err != nil {
		return err
	}

	_, err = tx.Exec(`
		INSERT INTO charts (path, id, name, owner, start_year, stop_year, savings, checksum, body, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, c.Path, c.ID, c.Name, c.Owner, c.StartYear, c.StopYear, c.Savings, c.Checksum, body, c.UpdatedAt.UTC())
	if err != nil {
		return fmt.Errorf("index: insert chart: %w", err)
	}

	if len(moments) > 0 {
		stmt, err := tx.Prepare(`INSERT OR REPLACE INTO moments (chart_id, id, name, year) VALUES (?, ?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("index: prepare moment insert: %w", err)
		}
		defer stmt.Close()
		for _, m := range moments {
			if _, err := stmt.Exec(c.ID, m.ID, m.Name, m.Year); err != nil {
				return fmt.Errorf("index: insert moment: %w", err)
			}
		}
	}

	if len(streams) > 0 {
		stmt, err := tx.Prepare(`
			INSERT OR REPLACE INTO streams
				(chart_id, id, ordinal, name, amount_per_yr, color, boundary, start_moment_id, stop_moment_id)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("index: prepare stream insert: %w", err)
		}
		defer stmt.Close()
		for i, s := range streams {
			if _, err := stmt.Exec(c.ID, s.ID, i, s.Name, s.AmountPerYr, s.Color, s.Boundary, s.StartMomentID, s.StopMomentID); err != nil {
				return fmt.Errorf("index: insert stream: %w", err)
			}
		}
	}

	if err := ftsUpsert(tx, c.Path, c.Name, body); err != nil {
		return err
	}
	return tx.Commit()
}

// DeleteChart removes the chart indexed at path along with its moments,
// streams and FTS entry.
func (db *DB) DeleteChart(path string) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if err := deleteByPath(tx, path); err != nil {
		return err
	}
	return tx.Commit()
}

func deleteByPath(tx *sql.Tx, path string) error {
	ftsDelete(tx, path)
	if _, err := tx.Exec(`DELETE FROM moments WHERE chart_id IN (SELECT id FROM charts WHERE path = ?)`, path); err != nil {
		return fmt.Errorf("index: delete moments: %w", err)
	}
	if _, err := tx.Exec(`DELETE FROM streams WHERE chart_id IN (SELECT id FROM charts WHERE path = ?)`, path); err != nil {
		return fmt.Errorf("index: delete streams: %w", err)
	}
	if _, err := tx.Exec(`DELETE FROM charts WHERE path = ?`, path); err != nil {
		return fmt.Errorf("index: delete chart: %w", err)
	}
	return nil
}

// GetChecksum returns the stored checksum for a path, or empty string if not found.
func (db *DB) GetChecksum(path string) (string, error) {
	var cs string
	err := db.conn.QueryRow(`SELECT checksum FROM charts WHERE path = ?`, path).Scan(&cs)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("index: get checksum: %w", err)
	}
	return cs, nil
}

// ChartIDAt returns the id of the chart indexed at path, or "" if none.
func (db *DB) ChartIDAt(path string) (string, error) {
	var id string
	err := db.conn.QueryRow(`SELECT id FROM charts WHERE path = ?`, path).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("index: chart id at %s: %w", path, err)
	}
	return id, nil
}

// AllChecksums returns the checksum of every indexed path.
func (db *DB) AllChecksums() (map[string]string, error) {
	rows, err := db.conn.Query(`SELECT path, checksum FROM charts`)
	if err != nil {
		return nil, fmt.Errorf("index: all checksums: %w", err)
	}
	defer rows.Close()
	out := make(map[string]string)
	for rows.Next() {
		var p, cs string
		if err := rows.Scan(&p, &cs); err != nil {
			return nil, err
		}
		out[p] = cs
	}
	return out, rows.Err()
}

const summaryColumns = `
	c.id, c.path, c.name, c.owner, c.start_year, c.stop_year, c.savings, c.checksum, c.updated_at,
	(SELECT count(*) FROM streams s WHERE s.chart_id = c.id),
	(SELECT count(*) FROM moments m WHERE m.chart_id = c.id)`

func scanSummary(sc interface{ Scan(...any) error }) (models.ChartSummary, error) {
	var s models.ChartSummary
	err := sc.Scan(&s.ID, &s.Path, &s.Name, &s.Owner, &s.StartYear, &s.StopYear, &s.Savings,
		&s.Checksum, &s.UpdatedAt, &s.StreamCount, &s.MomentCount)
	return s, err
}

// GetChart returns the summary of the chart with the given id.
func (db *DB) GetChart(id string) (*models.ChartSummary, error) {
	row := db.conn.QueryRow(`SELECT `+summaryColumns+` FROM charts c WHERE c.id = ?`, id)
	s, err := scanSummary(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("index: chart %q: %w", id, apperr.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("index: get chart: %w", err)
	}
	return &s, nil
}

// ListCharts returns charts, most recently updated first, optionally
// restricted to one owner, together with the total count.
func (db *DB) ListCharts(owner string, limit, offset int) ([]models.ChartSummary, int, error) {
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	where, args := "", []any{}
	if owner != "" {
		where, args = "WHERE c.owner = ?", append(args, owner)
	}

	var total int
	if err := db.conn.QueryRow(`SELECT count(*) FROM charts c `+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("index: count charts: %w", err)
	}

	rows, err := db.conn.Query(`SELECT `+summaryColumns+` FROM charts c `+where+`
		ORDER BY c.updated_at DESC, c.id
		LIMIT ? OFFSET ?`, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("index: list charts: %w", err)
	}
	defer rows.Close()

	out := []models.ChartSummary{}
	for rows.Next() {
		s, err := scanSummary(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, s)
	}
	return out, total, rows.Err()
}

// MomentUsages lists the streams of a chart anchored on a moment through an
// anchor their boundary actually uses.
func (db *DB) MomentUsages(chartID, momentID string) ([]models.MomentUsage, error) {
	rows, err := db.conn.Query(`
		SELECT id, name, boundary, 'start' FROM streams WHERE chart_id = ? AND start_moment_id = ?
		UNION ALL
		SELECT id, name, boundary, 'stop' FROM streams WHERE chart_id = ? AND stop_moment_id = ?
		ORDER BY 1, 4
	`, chartID, momentID, chartID, momentID)
	if err != nil {
		return nil, fmt.Errorf("index: moment usages: %w", err)
	}
	defer rows.Close()

	out := []models.MomentUsage{}
	for rows.Next() {
		var u models.MomentUsage
		if err := rows.Scan(&u.StreamID, &u.StreamName, &u.Boundary, &u.Side); err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

// DanglingReferences lists stream anchors naming moments the chart does not have.
func (db *DB) DanglingReferences(chartID string) ([]models.DanglingReference, error) {
	rows, err := db.conn.Query(`
		SELECT s.id, s.name, s.start_moment_id, 'start' FROM streams s
		WHERE s.chart_id = ? AND s.start_moment_id <> ''
		  AND NOT EXISTS (SELECT 1 FROM moments m WHERE m.chart_id = s.chart_id AND m.id = s.start_moment_id)
		UNION ALL
		SELECT s.id, s.name, s.stop_moment_id, 'stop' FROM streams s
		WHERE s.chart_id = ? AND s.stop_moment_id <> ''
		  AND NOT EXISTS (SELECT 1 FROM moments m WHERE m.chart_id = s.chart_id AND m.id = s.stop_moment_id)
		ORDER BY 1, 4
	`, chartID, chartID)
	if err != nil {
		return nil, fmt.Errorf("index: dangling references: %w", err)
	}
	defer rows.Close()

	out := []models.DanglingReference{}
	for rows.Next() {
		var d models.DanglingReference
		if err := rows.Scan(&d.StreamID, &d.StreamName, &d.MomentID, &d.Side); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// CountCharts returns the number of indexed charts.
func (db *DB) CountCharts() (int, error) {
	var n int
	if err := db.conn.QueryRow(`SELECT count(*) FROM charts`).Scan(&n); err != nil {
		return 0, fmt.Errorf("index: count charts: %w", err)
	}
	return n, nil
}
