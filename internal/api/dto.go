package api

import (
	"github.com/starford/fehu/internal/chart"
	"github.com/starford/fehu/internal/chartfile"
	"github.com/starford/fehu/internal/chartservice"
	"github.com/starford/fehu/internal/index"
	"github.com/starford/fehu/internal/models"
)

// ChartRequest is the request body for creating or replacing a chart. Either
// Content (chart YAML) or Chart must be set; Chart wins when both are.
type ChartRequest struct {
	Content string              `json:"content,omitempty" example:"name: Retirement\nstart_date: 2024-01-01\nstop_date: 2040-01-01\n"`
	Chart   *chartfile.Document `json:"chart,omitempty"`
}

// UpdateStreamAmountRequest is the request body for PATCH /charts/{id}/streams/{streamID}.
type UpdateStreamAmountRequest struct {
	AmountPerYr *int64 `json:"amount_per_yr" example:"-60000" validate:"required"`
}

// ChartDetail is the full chart response type (aliased from the domain layer).
type ChartDetail = chartservice.ChartDetail

// ChartData is the computed chart response type.
type ChartData = chart.Data

// ChartListResponse wraps paginated chart listings.
type ChartListResponse struct {
	Charts []models.ChartSummary `json:"charts" validate:"required"`
	Total  int                   `json:"total" example:"42" validate:"required"`
}

// MomentUsagesResponse lists the streams anchored on a moment.
type MomentUsagesResponse struct {
	Usages []models.MomentUsage `json:"usages" validate:"required"`
}

// SearchResponse wraps search results.
type SearchResponse struct {
	Results []index.SearchResult `json:"results" validate:"required"`
}
