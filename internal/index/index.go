package index

import "github.com/starford/fehu/internal/models"

// ChartIndex defines the chart indexing operations services depend on.
type ChartIndex interface {
	UpsertChart(c ChartRow, moments []MomentRow, streams []StreamRow, body string) error
	DeleteChart(path string) error
	GetChecksum(path string) (string, error)
	AllChecksums() (map[string]string, error)
	GetChart(id string) (*models.ChartSummary, error)
	ListCharts(owner string, limit, offset int) ([]models.ChartSummary, int, error)
	CountCharts() (int, error)
	Search(query string, limit int) ([]SearchResult, error)
	MomentUsages(chartID, momentID string) ([]models.MomentUsage, error)
	DanglingReferences(chartID string) ([]models.DanglingReference, error)
	Close() error
}

// Verify *DB satisfies ChartIndex at compile time.
var _ ChartIndex = (*DB)(nil)
