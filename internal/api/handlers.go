package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/starford/fehu/internal/chartfile"
	"github.com/starford/fehu/internal/chartservice"
	"github.com/starford/fehu/internal/checksum"
)

const maxBodyBytes = 10 << 20

// Handler holds API route handlers.
type Handler struct {
	svc *chartservice.Service
}

// NewHandler creates a new Handler.
func NewHandler(svc *chartservice.Service) *Handler {
	return &Handler{svc: svc}
}

// ListCharts handles GET /api/charts.
//
//	@Summary		List charts, most recently updated first
//	@Tags			charts
//	@Produce		json
//	@Param			owner	query		string	false	"Filter by owner"
//	@Param			limit	query		int		false	"Page size"
//	@Param			offset	query		int		false	"Page offset"
//	@Success		200		{object}	ChartListResponse
//	@Security		BearerAuth
//	@Router			/charts [get]
func (h *Handler) ListCharts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	offset, _ := strconv.Atoi(q.Get("offset"))

	items, total, err := h.svc.ListCharts(r.Context(), q.Get("owner"), limit, offset)
	if err != nil {
		writeError(w, "list charts", err)
		return
	}
	writeJSON(w, http.StatusOK, ChartListResponse{Charts: items, Total: total})
}

// GetChart handles GET /api/charts/{id}.
//
//	@Summary		Get a chart document
//	@Tags			charts
//	@Produce		json
//	@Param			id	path		string	true	"Chart id"
//	@Success		200	{object}	ChartDetail
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/charts/{id} [get]
func (h *Handler) GetChart(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	c, err := h.svc.GetChart(r.Context(), id)
	if err != nil {
		writeError(w, "get chart", err, slog.String("chart_id", id))
		return
	}
	writeChart(w, http.StatusOK, c)
}

// GetChartData handles GET /api/charts/{id}/data.
//
//	@Summary		Compute a chart: x-axis, streams, totals and balance
//	@Tags			charts
//	@Produce		json
//	@Param			id	path		string	true	"Chart id"
//	@Success		200	{object}	ChartData
//	@Failure		404	{object}	errResponse
//	@Failure		422	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/charts/{id}/data [get]
func (h *Handler) GetChartData(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	d, err := h.svc.GetChartData(r.Context(), id)
	if err != nil {
		writeError(w, "get chart data", err, slog.String("chart_id", id))
		return
	}
	writeJSON(w, http.StatusOK, d)
}

// CreateChart handles POST /api/charts.
//
//	@Summary		Create a chart
//	@Tags			charts
//	@Accept			json
//	@Produce		json
//	@Param			body	body		ChartRequest	true	"Chart to create"
//	@Success		201		{object}	ChartDetail
//	@Failure		400		{object}	errResponse
//	@Failure		409		{object}	errResponse
//	@Failure		422		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/charts [post]
func (h *Handler) CreateChart(w http.ResponseWriter, r *http.Request) {
	content, ok := readChartRequest(w, r)
	if !ok {
		return
	}
	c, err := h.svc.CreateChart(r.Context(), content)
	if err != nil {
		writeError(w, "create chart", err)
		return
	}
	writeChart(w, http.StatusCreated, c)
}

// UpdateChart handles PUT /api/charts/{id}.
//
//	@Summary		Replace a chart with optimistic concurrency
//	@Tags			charts
//	@Accept			json
//	@Produce		json
//	@Param			id			path		string			true	"Chart id"
//	@Param			If-Match	header		string			false	"Checksum (ETag) of the version being replaced"
//	@Param			body		body		ChartRequest	true	"Replacement chart"
//	@Success		200			{object}	ChartDetail
//	@Failure		404			{object}	errResponse
//	@Failure		409			{object}	errResponse
//	@Failure		422			{object}	errResponse
//	@Security		BearerAuth
//	@Router			/charts/{id} [put]
func (h *Handler) UpdateChart(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	content, ok := readChartRequest(w, r)
	if !ok {
		return
	}
	ifMatch := checksum.FromIfMatch(r.Header.Get("If-Match"))
	c, err := h.svc.UpdateChart(r.Context(), id, content, ifMatch)
	if err != nil {
		writeError(w, "update chart", err, slog.String("chart_id", id))
		return
	}
	writeChart(w, http.StatusOK, c)
}

// UpdateStreamAmount handles PATCH /api/charts/{id}/streams/{streamID}.
//
//	@Summary		Set a stream's yearly amount
//	@Tags			charts
//	@Accept			json
//	@Produce		json
//	@Param			id			path		string						true	"Chart id"
//	@Param			streamID	path		string						true	"Stream id"
//	@Param			If-Match	header		string						false	"Checksum (ETag) of the version being changed"
//	@Param			body		body		UpdateStreamAmountRequest	true	"New amount"
//	@Success		200			{object}	ChartDetail
//	@Failure		400			{object}	errResponse
//	@Failure		404			{object}	errResponse
//	@Failure		409			{object}	errResponse
//	@Security		BearerAuth
//	@Router			/charts/{id}/streams/{streamID} [patch]
func (h *Handler) UpdateStreamAmount(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	id, streamID := chi.URLParam(r, "id"), chi.URLParam(r, "streamID")

	var req UpdateStreamAmountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if req.AmountPerYr == nil {
		writeJSON(w, http.StatusBadRequest, errorBody("amount_per_yr is required"))
		return
	}

	ifMatch := checksum.FromIfMatch(r.Header.Get("If-Match"))
	c, err := h.svc.UpdateStreamAmount(r.Context(), id, streamID, *req.AmountPerYr, ifMatch)
	if err != nil {
		writeError(w, "update stream amount", err, slog.String("chart_id", id), slog.String("stream_id", streamID))
		return
	}
	writeChart(w, http.StatusOK, c)
}

// DeleteChart handles DELETE /api/charts/{id}.
//
//	@Summary		Delete a chart
//	@Tags			charts
//	@Param			id	path	string	true	"Chart id"
//	@Success		204	"Chart deleted"
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/charts/{id} [delete]
func (h *Handler) DeleteChart(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.svc.DeleteChart(r.Context(), id); err != nil {
		writeError(w, "delete chart", err, slog.String("chart_id", id))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// MomentUsages handles GET /api/charts/{id}/moments/{momentID}/usages.
//
//	@Summary		List the streams anchored on a moment
//	@Tags			charts
//	@Produce		json
//	@Param			id			path		string	true	"Chart id"
//	@Param			momentID	path		string	true	"Moment id"
//	@Success		200			{object}	MomentUsagesResponse
//	@Failure		404			{object}	errResponse
//	@Security		BearerAuth
//	@Router			/charts/{id}/moments/{momentID}/usages [get]
func (h *Handler) MomentUsages(w http.ResponseWriter, r *http.Request) {
	id, momentID := chi.URLParam(r, "id"), chi.URLParam(r, "momentID")
	usages, err := h.svc.MomentUsages(r.Context(), id, momentID)
	if err != nil {
		writeError(w, "moment usages", err, slog.String("chart_id", id), slog.String("moment_id", momentID))
		return
	}
	writeJSON(w, http.StatusOK, MomentUsagesResponse{Usages: usages})
}

// ExportChart handles GET /api/charts/{id}/export.
//
//	@Summary		Export a computed chart
//	@Tags			charts
//	@Produce		application/vnd.openxmlformats-officedocument.spreadsheetml.sheet,application/pdf
//	@Param			id		path	string	true	"Chart id"
//	@Param			format	query	string	false	"Export format"	Enums(xlsx, pdf)
//	@Success		200		{file}	binary
//	@Failure		404		{object}	errResponse
//	@Failure		422		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/charts/{id}/export [get]
func (h *Handler) ExportChart(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	format := r.URL.Query().Get("format")
	if format == "" {
		format = "xlsx"
	}
	x, err := h.svc.Export(r.Context(), id, format)
	if err != nil {
		writeError(w, "export chart", err, slog.String("chart_id", id), slog.String("format", format))
		return
	}
	w.Header().Set("Content-Type", x.ContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+x.Filename+`"`)
	w.Header().Set("Content-Length", strconv.Itoa(len(x.Body)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(x.Body)
}

// Search handles GET /api/search.
//
//	@Summary		Full-text search across charts
//	@Tags			search
//	@Produce		json
//	@Param			q		query		string	true	"Search query"
//	@Param			limit	query		int		false	"Max results"
//	@Success		200		{object}	SearchResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/search [get]
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if q == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("query parameter 'q' is required"))
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	results, err := h.svc.Search(r.Context(), q, limit)
	if err != nil {
		writeError(w, "search", err, slog.String("query", q))
		return
	}
	writeJSON(w, http.StatusOK, SearchResponse{Results: results})
}

// readChartRequest decodes a ChartRequest into chart YAML. On failure it
// writes the response and returns false.
func readChartRequest(w http.ResponseWriter, r *http.Request) ([]byte, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	var req ChartRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return nil, false
	}
	if req.Chart != nil {
		content, err := chartfile.Marshal(req.Chart)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
			return nil, false
		}
		return content, true
	}
	if req.Content == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("content or chart is required"))
		return nil, false
	}
	return []byte(req.Content), true
}

func writeChart(w http.ResponseWriter, status int, c *ChartDetail) {
	w.Header().Set("ETag", checksum.ETag(c.Checksum))
	writeJSON(w, status, c)
}
